package feed

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/crmdesk/crmctl/internal/model"
)

type fakeSource struct {
	mu       sync.Mutex
	byLead   map[string][]model.Activity
	errFor   map[string]error
	inFlight atomic.Int32
	maxSeen  atomic.Int32
	calls    atomic.Int32
}

var _ ActivitySource = (*fakeSource)(nil)

func (f *fakeSource) Activities(_ context.Context, leadID string) ([]model.Activity, error) {
	f.calls.Add(1)
	cur := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		seen := f.maxSeen.Load()
		if cur <= seen || f.maxSeen.CompareAndSwap(seen, cur) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond) // let the pool fill up

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errFor[leadID]; err != nil {
		return nil, err
	}
	return f.byLead[leadID], nil
}

func ts(sec int) time.Time {
	return time.Date(2026, 8, 1, 12, 0, sec, 0, time.UTC)
}

func act(id, leadID string, sec int, createdBy string) model.Activity {
	return model.Activity{ID: id, LeadID: leadID, ActivityType: model.ActivityCall, Timestamp: ts(sec), CreatedBy: createdBy}
}

func leadsN(n int) []model.Lead {
	out := make([]model.Lead, n)
	for i := range out {
		out[i] = model.Lead{ID: fmt.Sprintf("l%d", i), FirstName: "Lead", LastName: fmt.Sprintf("%d", i)}
	}
	return out
}

func TestFetch_SortsByTimestampDescending(t *testing.T) {
	t.Parallel()

	src := &fakeSource{byLead: map[string][]model.Activity{
		"l0": {act("a", "l0", 1, ""), act("b", "l0", 9, "")},
		"l1": {act("c", "l1", 5, "")},
	}}

	entries, failures := Fetch(context.Background(), src, leadsN(2), Options{}, zap.NewNop())
	require.Empty(t, failures)
	require.Len(t, entries, 3)
	assert.Equal(t, []string{"b", "c", "a"}, []string{entries[0].ID, entries[1].ID, entries[2].ID})
	assert.Equal(t, "Lead 0", entries[0].LeadName)
}

func TestFetch_CollectsPerLeadFailures(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	src := &fakeSource{
		byLead: map[string][]model.Activity{"l0": {act("a", "l0", 1, "")}},
		errFor: map[string]error{"l1": boom},
	}

	entries, failures := Fetch(context.Background(), src, leadsN(2), Options{}, zap.NewNop())
	require.Len(t, entries, 1, "healthy leads still contribute")
	require.Len(t, failures, 1)
	assert.Equal(t, "l1", failures[0].LeadID)
	assert.ErrorIs(t, failures[0].Err, boom)
}

func TestFetch_CreatedByFilterAndLimit(t *testing.T) {
	t.Parallel()

	src := &fakeSource{byLead: map[string][]model.Activity{
		"l0": {
			act("mine-new", "l0", 9, "bob"),
			act("anon", "l0", 8, ""), // no author predates the field; keep it
			act("theirs", "l0", 7, "ann"),
			act("mine-old", "l0", 1, "bob"),
		},
	}}

	entries, _ := Fetch(context.Background(), src, leadsN(1), Options{CreatedBy: "bob", Limit: 2}, zap.NewNop())
	require.Len(t, entries, 2)
	assert.Equal(t, "mine-new", entries[0].ID)
	assert.Equal(t, "anon", entries[1].ID)
}

func TestFetch_BoundsLeadsAndConcurrency(t *testing.T) {
	t.Parallel()

	src := &fakeSource{byLead: map[string][]model.Activity{}}
	_, failures := Fetch(context.Background(), src, leadsN(25), Options{Concurrency: 2}, zap.NewNop())
	require.Empty(t, failures)
	assert.Equal(t, int32(10), src.calls.Load(), "fan-out covers at most MaxLeads leads")
	assert.LessOrEqual(t, src.maxSeen.Load(), int32(2), "in-flight fetches stay within the bound")
}

func TestFetch_EmptyLeads(t *testing.T) {
	t.Parallel()

	src := &fakeSource{}
	entries, failures := Fetch(context.Background(), src, nil, Options{}, nil)
	assert.Empty(t, entries)
	assert.Empty(t, failures)
}
