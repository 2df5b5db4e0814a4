// Package funnel computes conversion metrics over the ordered lead funnel.
package funnel

import (
	"math"

	"github.com/crmdesk/crmctl/internal/model"
)

// Rate returns 100*num/den rounded to the nearest integer percent. A zero
// denominator yields 0: rates never divide by zero and never produce NaN.
func Rate(num, den int) int {
	if den == 0 {
		return 0
	}
	return int(math.Round(float64(num) / float64(den) * 100))
}

// Metrics are the conversion-view numbers. Counts are cumulative down the
// funnel: Contacted includes Qualified and Closed, Qualified includes Closed.
type Metrics struct {
	Total     int
	Contacted int
	Qualified int
	Closed    int

	ContactedRate     int // contacted / total
	QualificationRate int // qualified / contacted
	WinRate           int // closed / qualified
	OverallRate       int // closed / total
}

// Compute derives Metrics from a set of leads.
func Compute(leads []model.Lead) Metrics {
	m := Metrics{Total: len(leads)}
	for _, l := range leads {
		switch l.Status {
		case model.StatusContacted:
			m.Contacted++
		case model.StatusQualified:
			m.Contacted++
			m.Qualified++
		case model.StatusClosed:
			m.Contacted++
			m.Qualified++
			m.Closed++
		}
	}
	m.ContactedRate = Rate(m.Contacted, m.Total)
	m.QualificationRate = Rate(m.Qualified, m.Contacted)
	m.WinRate = Rate(m.Closed, m.Qualified)
	m.OverallRate = Rate(m.Closed, m.Total)
	return m
}

// StageCount is the number of leads sitting at exactly one funnel stage.
type StageCount struct {
	Stage model.LeadStatus
	Count int
}

// Stages returns per-stage counts in funnel order.
func Stages(leads []model.Lead) []StageCount {
	counts := map[model.LeadStatus]int{}
	for _, l := range leads {
		counts[l.Status]++
	}
	order := []model.LeadStatus{model.StatusNew, model.StatusContacted, model.StatusQualified, model.StatusClosed}
	out := make([]StageCount, 0, len(order))
	for _, s := range order {
		out = append(out, StageCount{Stage: s, Count: counts[s]})
	}
	return out
}

// Stats are the dashboard counters.
type Stats struct {
	Total     int
	Mine      int // all leads for an admin, assigned leads for a sales rep
	New       int
	Qualified int
}

// ComputeStats derives the dashboard counters for the given viewer.
func ComputeStats(leads []model.Lead, viewer model.User) Stats {
	s := Stats{Total: len(leads)}
	for _, l := range leads {
		if viewer.Role.IsAdmin() || l.AssignedTo == viewer.Username {
			s.Mine++
		}
		switch l.Status {
		case model.StatusNew:
			s.New++
		case model.StatusQualified:
			s.Qualified++
		}
	}
	return s
}
