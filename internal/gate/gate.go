// Package gate decides whether the current session may enter a protected view.
package gate

import "github.com/crmdesk/crmctl/internal/session"

// Requirement is a view's declared access level.
type Requirement struct {
	RequiresAuth bool
	AdminOnly    bool
}

// Action is the outcome of a gate decision.
type Action int

const (
	// Render lets the requested view proceed.
	Render Action = iota
	// Wait means hydration has not finished: show nothing, never redirect.
	Wait
	// Redirect sends the caller to Target instead of the requested view.
	Redirect
)

// Route is a redirect destination.
type Route string

const (
	RouteLogin     Route = "login"
	RouteDashboard Route = "dashboard"
)

// Decision is what the caller should do with the requested view.
type Decision struct {
	Action Action
	Target Route
}

// Decide is a pure function of (session, requirement); it has no side
// effects and is re-evaluated on every navigation and session change. The
// server independently enforces roles on every API call, so this check only
// shapes navigation, never security.
func Decide(s session.Snapshot, req Requirement) Decision {
	if !req.RequiresAuth {
		return Decision{Action: Render}
	}
	if s.Loading {
		return Decision{Action: Wait}
	}
	if s.User == nil {
		return Decision{Action: Redirect, Target: RouteLogin}
	}
	if req.AdminOnly && !s.User.Role.IsAdmin() {
		return Decision{Action: Redirect, Target: RouteDashboard}
	}
	return Decision{Action: Render}
}
