// Package model defines domain entities shared by the session, gate and API layers.
package model

import "time"

// Role is the closed set of account roles known to the CRM.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleSalesRep Role = "sales_rep"
)

// IsAdmin is the single authorization predicate. Any value outside the known
// set is treated as non-admin.
func (r Role) IsAdmin() bool { return r == RoleAdmin }

// Valid reports whether the role is one of the known values.
func (r Role) Valid() bool { return r == RoleAdmin || r == RoleSalesRep }

// User is the authenticated account identity as the backend reports it.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

// LeadStatus is the ordered funnel stage: New -> Contacted -> Qualified -> Closed.
type LeadStatus string

const (
	StatusNew       LeadStatus = "New"
	StatusContacted LeadStatus = "Contacted"
	StatusQualified LeadStatus = "Qualified"
	StatusClosed    LeadStatus = "Closed"
)

// Lead is a sales lead. The backend owns it; the client holds leads only as
// in-memory view state and re-fetches per view.
type Lead struct {
	ID         string     `json:"id"`
	FirstName  string     `json:"firstName"`
	LastName   string     `json:"lastName"`
	Company    string     `json:"company"`
	Email      string     `json:"email"`
	Status     LeadStatus `json:"status"`
	Source     string     `json:"source"`
	AssignedTo string     `json:"assignedTo"`
}

// FullName returns the display name used in activity feeds and tables.
func (l Lead) FullName() string { return l.FirstName + " " + l.LastName }

// ActivityType classifies a touch point on a lead.
type ActivityType string

const (
	ActivityCall    ActivityType = "Call"
	ActivityEmail   ActivityType = "Email"
	ActivityMeeting ActivityType = "Meeting"
)

// Activity is a logged touch point on a lead. CreatedBy is optional; older
// records predate the field.
type Activity struct {
	ID           string       `json:"id"`
	LeadID       string       `json:"leadId"`
	ActivityType ActivityType `json:"activityType"`
	Notes        string       `json:"notes"`
	Timestamp    time.Time    `json:"timestamp"`
	CreatedBy    string       `json:"createdBy,omitempty"`
}
