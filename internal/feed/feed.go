// Package feed assembles the recent-activity feed by fanning out per-lead
// activity fetches and joining the results into one timeline.
package feed

import (
	"context"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/crmdesk/crmctl/internal/model"
)

// ActivitySource is the single API call the feed depends on.
type ActivitySource interface {
	Activities(ctx context.Context, leadID string) ([]model.Activity, error)
}

// Entry is an activity annotated with its lead's display name.
type Entry struct {
	model.Activity
	LeadName string
}

// Failure records a lead whose activity fetch failed. The rest of the batch
// still contributes entries; a failure is reported, not swallowed.
type Failure struct {
	LeadID string
	Err    error
}

// Options bound the fan-out.
type Options struct {
	// MaxLeads caps how many leads are fetched, front of the slice first.
	// Defaults to 10.
	MaxLeads int
	// Concurrency bounds in-flight fetches. Defaults to 4.
	Concurrency int
	// Limit truncates the sorted feed; 0 keeps everything.
	Limit int
	// CreatedBy, when set, keeps only entries with an empty or matching
	// createdBy field.
	CreatedBy string
}

// Fetch joins per-lead activity fetches into one feed sorted by timestamp
// descending. Cancellation of ctx stops the remaining fetches.
func Fetch(ctx context.Context, src ActivitySource, leads []model.Lead, opts Options, log *zap.Logger) ([]Entry, []Failure) {
	if log == nil {
		log = zap.NewNop()
	}
	maxLeads := opts.MaxLeads
	if maxLeads <= 0 {
		maxLeads = 10
	}
	if len(leads) > maxLeads {
		leads = leads[:maxLeads]
	}
	conc := opts.Concurrency
	if conc <= 0 {
		conc = 4
	}

	perLead := make([][]Entry, len(leads))
	perLeadErr := make([]error, len(leads))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(conc)
	for i, ld := range leads {
		g.Go(func() error {
			acts, err := src.Activities(gctx, ld.ID)
			if err != nil {
				// one bad lead never aborts the batch
				perLeadErr[i] = err
				return nil
			}
			entries := make([]Entry, 0, len(acts))
			for _, a := range acts {
				entries = append(entries, Entry{Activity: a, LeadName: ld.FullName()})
			}
			perLead[i] = entries
			return nil
		})
	}
	_ = g.Wait()

	var out []Entry
	for _, entries := range perLead {
		for _, e := range entries {
			if opts.CreatedBy != "" && e.CreatedBy != "" && e.CreatedBy != opts.CreatedBy {
				continue
			}
			out = append(out, e)
		}
	}
	// ordered by timestamp, not by arrival
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}

	var failed []Failure
	for i, err := range perLeadErr {
		if err != nil {
			log.Warn("activity fetch failed", zap.String("lead_id", leads[i].ID), zap.Error(err))
			failed = append(failed, Failure{LeadID: leads[i].ID, Err: err})
		}
	}
	return out, failed
}
