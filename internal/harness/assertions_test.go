package harness

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/bosync/internal/ledger"
)

func sampleTrace() []TraceEvent {
	r := NewResult()
	r.AddOperationTrace(1, "proposal", "sport_create", map[string]any{
		"name": []any{[]any{"en", "Basketball"}},
	})
	r.AddOperationTrace(1, "proposal", "event_group_create", map[string]any{
		"sport_id": "0.0.0",
	})
	r.AddOperationTrace(1, "proposal", "event_create", map[string]any{
		"event_group_id": "0.0.1",
		"start_time":     "2026-03-02T01:00:00",
	})
	r.AddOperationTrace(2, "direct", "proposal_update", map[string]any{
		"proposal":                "1.10.0",
		"active_approvals_to_add": []any{"1.2.7"},
	})
	return r.Trace
}

func TestAssertTraceContains(t *testing.T) {
	trace := sampleTrace()

	tests := []struct {
		name   string
		op     string
		fields map[string]any
		pass   bool
	}{
		{"op only", "event_create", nil, true},
		{"subset", "event_create", map[string]any{"start_time": "2026-03-02T01:00:00"}, true},
		{"nested list", "sport_create", map[string]any{"name": []any{[]any{"en", "Basketball"}}}, true},
		{"yaml list", "proposal_update", map[string]any{"active_approvals_to_add": []string{"1.2.7"}}, true},
		{"wrong value", "event_create", map[string]any{"start_time": "2026-03-03T00:30:00"}, false},
		{"missing field", "event_create", map[string]any{"status": "upcoming"}, false},
		{"absent op", "betting_market_create", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := assertTraceContains(trace, Assertion{Type: AssertTraceContains, Op: tt.op, Fields: tt.fields})
			if tt.pass {
				assert.NoError(t, err)
				return
			}
			var aerr *AssertionError
			require.ErrorAs(t, err, &aerr)
			assert.Equal(t, AssertTraceContains, aerr.Type)
			assert.Contains(t, err.Error(), "not found in trace")
			assert.Contains(t, err.Error(), "pass 1 proposal sport_create")
		})
	}
}

func TestAssertTraceOrder(t *testing.T) {
	trace := sampleTrace()

	assert.NoError(t, assertTraceOrder(trace, Assertion{Ops: []string{"sport_create", "event_create"}}))
	assert.NoError(t, assertTraceOrder(trace, Assertion{Ops: []string{"sport_create", "event_group_create", "proposal_update"}}))

	err := assertTraceOrder(trace, Assertion{Ops: []string{"event_create", "sport_create"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "event_create (pos 3) should be before sport_create (pos 1)")

	err = assertTraceOrder(trace, Assertion{Ops: []string{"sport_create", "betting_market_create"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing operation: betting_market_create")
}

func TestAssertTraceCount(t *testing.T) {
	trace := sampleTrace()

	assert.NoError(t, assertTraceCount(trace, Assertion{Op: "event_create", Count: ptr(1)}))
	assert.NoError(t, assertTraceCount(trace, Assertion{Op: "betting_market_create", Count: ptr(0)}))

	err := assertTraceCount(trace, Assertion{Op: "event_create", Count: ptr(2)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 occurrences of event_create")
	assert.Contains(t, err.Error(), "1 occurrences")

	assert.Error(t, assertTraceCount(trace, Assertion{Op: "event_create"}))
}

func TestAssertFinalState(t *testing.T) {
	ctx := context.Background()
	l, err := ledger.Open(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	defer l.Close()

	require.NoError(t, l.Seed(ctx, &ledger.Fixture{
		Objects: []ledger.FixtureEntry{
			{ID: "1.20.0", Fields: map[string]any{"name": []any{[]any{"en", "Basketball"}}}},
			{ID: "1.20.1", Fields: map[string]any{"name": []any{[]any{"en", "Soccer"}}}},
			{ID: "1.21.0", Fields: map[string]any{"sport_id": "1.20.0", "leadtime_max": 10}},
		},
	}))

	tests := []struct {
		name      string
		assertion Assertion
		wantErr   string
	}{
		{"count all", Assertion{Kind: "sport", Count: ptr(2)}, ""},
		{"count where", Assertion{Kind: "sport", Where: map[string]any{"id": "1.20.1"}, Count: ptr(1)}, ""},
		{"count none", Assertion{Kind: "event", Count: ptr(0)}, ""},
		{"expect", Assertion{
			Kind:   "event_group",
			Where:  map[string]any{"id": "1.21.0"},
			Expect: map[string]any{"sport_id": "1.20.0", "leadtime_max": 10},
		}, ""},
		{"wrong count", Assertion{Kind: "sport", Count: ptr(1)}, "2 objects"},
		{"not found", Assertion{
			Kind:   "sport",
			Where:  map[string]any{"id": "1.20.9"},
			Expect: map[string]any{"name": "x"},
		}, "object not found"},
		{"ambiguous", Assertion{Kind: "sport", Expect: map[string]any{"id": "1.20.0"}}, "ambiguous"},
		{"missing field", Assertion{
			Kind:   "event_group",
			Expect: map[string]any{"status": "upcoming"},
		}, `field "status" not present`},
		{"wrong value", Assertion{
			Kind:   "event_group",
			Expect: map[string]any{"leadtime_max": 12},
		}, `field "leadtime_max" = 12`},
		{"unknown kind", Assertion{Kind: "league", Count: ptr(0)}, "unknown kind"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.assertion.Type = AssertFinalState
			err := assertFinalState(ctx, l, tt.assertion)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestEvaluateAssertions(t *testing.T) {
	result := &Result{Pass: true, Trace: sampleTrace()}
	assertions := []Assertion{
		{Type: AssertTraceCount, Op: "sport_create", Count: ptr(1)},
		{Type: AssertTraceCount, Op: "sport_create", Count: ptr(5)},
		{Type: AssertPendingProposals, Count: ptr(0)},
		{Type: "trace_exists"},
	}

	errs := EvaluateAssertions(result, assertions, nil)
	require.Len(t, errs, 3)
	assert.Contains(t, errs[0], "5 occurrences of sport_create")
	assert.Contains(t, errs[1], "pending_proposals requires a ledger")
	assert.Contains(t, errs[2], `unknown assertion type "trace_exists"`)
}

func TestAssertionError_Message(t *testing.T) {
	err := &AssertionError{
		Type:     AssertTraceCount,
		Expected: "2 occurrences of sport_create",
		Actual:   "1 occurrences",
		Trace:    sampleTrace()[:1],
	}
	msg := err.Error()
	assert.Contains(t, msg, "Assertion failed: trace_count")
	assert.Contains(t, msg, "Expected: 2 occurrences of sport_create")
	assert.Contains(t, msg, "Actual: 1 occurrences")
	assert.Contains(t, msg, "[1] pass 1 proposal sport_create")
}
