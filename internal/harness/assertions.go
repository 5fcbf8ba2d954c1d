package harness

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/roach88/bosync/internal/ir"
	"github.com/roach88/bosync/internal/ledger"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Operations for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nOperations:\n")
		for i, event := range e.Trace {
			if event.Type == EventOperation {
				fmt.Fprintf(&buf, "  [%d] pass %d %s %s\n", i+1, event.Pass, event.Buffer, event.Op)
			}
		}
	}
	return buf.String()
}

// assertTraceContains checks if an operation with matching fields
// (subset match) was buffered.
func assertTraceContains(trace []TraceEvent, assertion Assertion) error {
	expected, err := normalize(assertion.Fields)
	if err != nil {
		return err
	}
	want, _ := expected.(map[string]any)

	for _, event := range trace {
		if event.Type == EventOperation && event.Op == assertion.Op && matchFields(event.Fields, want) {
			return nil
		}
	}

	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: fmt.Sprintf("operation %s with fields %v", assertion.Op, assertion.Fields),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks that operations were first buffered in the
// given order. Other operations may come in between.
func assertTraceOrder(trace []TraceEvent, assertion Assertion) error {
	positions := make(map[string]int)
	for i, event := range trace {
		if event.Type != EventOperation {
			continue
		}
		if _, seen := positions[event.Op]; !seen {
			positions[event.Op] = i + 1
		}
	}

	for _, op := range assertion.Ops {
		if positions[op] == 0 {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("all operations present: %v", assertion.Ops),
				Actual:   fmt.Sprintf("missing operation: %s", op),
				Trace:    trace,
			}
		}
	}

	for i := 1; i < len(assertion.Ops); i++ {
		prev, curr := assertion.Ops[i-1], assertion.Ops[i]
		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("operations in order: %v", assertion.Ops),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: trace,
			}
		}
	}
	return nil
}

// assertTraceCount checks if the operation was buffered exactly the
// specified number of times, over all passes.
func assertTraceCount(trace []TraceEvent, assertion Assertion) error {
	if assertion.Count == nil {
		return fmt.Errorf("trace_count requires count")
	}
	count := 0
	for _, event := range trace {
		if event.Type == EventOperation && event.Op == assertion.Op {
			count++
		}
	}

	if count != *assertion.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d occurrences of %s", *assertion.Count, assertion.Op),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertFinalState selects the ledger objects of a kind whose fields
// match Where, then checks their number against Count and the single
// selected object against Expect.
func assertFinalState(ctx context.Context, l *ledger.Ledger, assertion Assertion) error {
	kind, ok := ir.ParseObjectKind(assertion.Kind)
	if !ok {
		return fmt.Errorf("final_state: unknown kind %q", assertion.Kind)
	}
	where, err := normalize(assertion.Where)
	if err != nil {
		return err
	}
	whereMap, _ := where.(map[string]any)

	var matched []any
	for fields, err := range l.ListObjects(ctx, kind, "") {
		if err != nil {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("list %s objects", assertion.Kind),
				Actual:   fmt.Sprintf("ledger error: %v", err),
			}
		}
		obj, err := normalize(fields)
		if err != nil {
			return err
		}
		if matchFields(obj, whereMap) {
			matched = append(matched, obj)
		}
	}

	whereDesc := formatWhere(assertion.Where)
	if assertion.Count != nil && len(matched) != *assertion.Count {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("%d %s objects where %s", *assertion.Count, assertion.Kind, whereDesc),
			Actual:   fmt.Sprintf("%d objects", len(matched)),
		}
	}
	if len(assertion.Expect) == 0 {
		return nil
	}

	switch {
	case len(matched) == 0:
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("%s object where %s", assertion.Kind, whereDesc),
			Actual:   "object not found",
		}
	case len(matched) > 1:
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("exactly one %s object where %s", assertion.Kind, whereDesc),
			Actual:   "multiple objects matched (assertion is ambiguous)",
		}
	}

	expected, err := normalize(assertion.Expect)
	if err != nil {
		return err
	}
	actual := matched[0].(map[string]any)
	keys := make([]string, 0, len(assertion.Expect))
	for k := range assertion.Expect {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, key := range keys {
		want := expected.(map[string]any)[key]
		got, exists := actual[key]
		if !exists {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("field %q to exist", key),
				Actual:   fmt.Sprintf("field %q not present on %v", key, actual["id"]),
			}
		}
		if !reflect.DeepEqual(got, want) {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("field %q = %v", key, want),
				Actual:   fmt.Sprintf("field %q = %v", key, got),
			}
		}
	}
	return nil
}

// assertPendingProposals counts the pending proposals at the ledger's
// authority.
func assertPendingProposals(ctx context.Context, l *ledger.Ledger, assertion Assertion) error {
	if assertion.Count == nil {
		return fmt.Errorf("pending_proposals requires count")
	}
	pending, err := l.Proposals(ctx, l.Authority(), "pending")
	if err != nil {
		return err
	}
	if len(pending) != *assertion.Count {
		ids := make([]string, len(pending))
		for i, p := range pending {
			ids[i] = string(p.ID)
		}
		return &AssertionError{
			Type:     AssertPendingProposals,
			Expected: fmt.Sprintf("%d pending proposals", *assertion.Count),
			Actual:   fmt.Sprintf("%d pending proposals %v", len(pending), ids),
		}
	}
	return nil
}

// formatWhere creates a human-readable description of selection fields.
func formatWhere(where map[string]any) string {
	if len(where) == 0 {
		return "(no conditions)"
	}

	keys := make([]string, 0, len(where))
	for k := range where {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, where[k]))
	}
	return strings.Join(parts, " AND ")
}

// matchFields checks if actual contains all expected fields (subset
// match). Both sides must be normalized. Extra keys in actual are
// ignored.
func matchFields(actual any, expected map[string]any) bool {
	if len(expected) == 0 {
		return true
	}

	actualMap, ok := actual.(map[string]any)
	if !ok {
		return false
	}
	for key, want := range expected {
		got, exists := actualMap[key]
		if !exists || !reflect.DeepEqual(got, want) {
			return false
		}
	}
	return true
}

// AssertionContext provides ledger access for final_state and
// pending_proposals assertions.
type AssertionContext struct {
	Ledger *ledger.Ledger
	Ctx    context.Context
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, assertion)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, assertion)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, assertion)
		case AssertFinalState, AssertPendingProposals:
			if actx == nil || actx.Ledger == nil {
				err = fmt.Errorf("assertion[%d]: %s requires a ledger", i, assertion.Type)
			} else if assertion.Type == AssertFinalState {
				err = assertFinalState(actx.Ctx, actx.Ledger, assertion)
			} else {
				err = assertPendingProposals(actx.Ctx, actx.Ledger, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}
	return errors
}
