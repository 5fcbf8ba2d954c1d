package harness

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/roach88/bosync/internal/catalog"
	"github.com/roach88/bosync/internal/engine"
	"github.com/roach88/bosync/internal/entity"
	"github.com/roach88/bosync/internal/ir"
	"github.com/roach88/bosync/internal/ledger"
	"github.com/roach88/bosync/internal/testutil"
)

// defaultStart is the scenario clock when Scenario.Start is unset. It
// lies inside the test catalog's event window.
var defaultStart = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// Harness runs the passes of one scenario.
type Harness struct {
	ledger *ledger.Ledger
	clock  *testutil.ManualClock
	cat    *catalog.Catalog
	events []*catalog.EventDef
}

// Run executes a scenario and returns the result.
//
// Each scenario runs against a fresh ledger in a temporary directory that
// is removed afterwards. Errors are returned for scenarios that cannot
// run at all; failed expectations and assertions are collected in the
// result.
func Run(scenario *Scenario) (*Result, error) {
	ctx := context.Background()

	cat, err := catalog.Load(scenario.Catalog)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	var events []*catalog.EventDef
	if scenario.Events != "" {
		if events, err = catalog.LoadEvents(scenario.Events); err != nil {
			return nil, fmt.Errorf("failed to load events: %w", err)
		}
	}

	dir, err := os.MkdirTemp("", "bosync-harness-")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	start := scenario.Start
	if start.IsZero() {
		start = defaultStart
	}
	clock := testutil.NewManualClock(start)

	opts := []ledger.Option{ledger.WithNow(clock.Now)}
	if scenario.Quorum > 0 {
		opts = append(opts, ledger.WithQuorum(scenario.Quorum))
	}
	l, err := ledger.Open(filepath.Join(dir, "ledger.db"), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create ledger: %w", err)
	}
	defer l.Close()

	if err := l.Seed(ctx, &scenario.Ledger); err != nil {
		return nil, fmt.Errorf("failed to seed ledger: %w", err)
	}

	h := &Harness{ledger: l, clock: clock, cat: cat, events: events}
	result := NewResult()
	for i, step := range scenario.Passes {
		if err := h.runPass(ctx, i+1, step, result); err != nil {
			return nil, fmt.Errorf("pass %d: %w", i+1, err)
		}
	}

	actx := &AssertionContext{Ledger: l, Ctx: ctx}
	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(errMsg)
	}
	return result, nil
}

// runPass builds a fresh entity tree and engine, runs one pass and
// records it. Buffers are broadcast or dropped afterwards, so nothing
// carries over to the next pass except the ledger.
func (h *Harness) runPass(ctx context.Context, n int, step PassStep, result *Result) error {
	h.clock.Advance(step.Advance)

	tree, err := entity.Build(h.cat, h.events)
	if err != nil {
		return fmt.Errorf("build entities: %w", err)
	}

	proposer, err := h.account(ctx, step.Proposer)
	if err != nil {
		return fmt.Errorf("proposer: %w", err)
	}
	approver, err := h.account(ctx, step.Approver)
	if err != nil {
		return fmt.Errorf("approver: %w", err)
	}

	eng := engine.New(h.ledger,
		engine.WithProposer(proposer),
		engine.WithApprover(approver),
		engine.WithAuthority(h.ledger.Authority()),
		engine.WithNow(h.clock.Now),
		engine.WithPassIDGenerator(testutil.NewFixedPassGenerator(fmt.Sprintf("pass-%d", n))),
	)

	report, err := eng.RunPass(ctx, tree.All(), false)
	if err != nil {
		return err
	}
	for _, e := range report.Entries {
		result.AddReconcileTrace(n, e.Identifier, e.State.String(), string(e.ID), e.Error)
	}

	rctx := eng.Context()
	proposal := rctx.ProposalBuffer()
	direct := rctx.DirectBuffer()
	for _, op := range direct {
		fields, err := normalize(op.Fields)
		if err != nil {
			return err
		}
		result.AddOperationTrace(n, "direct", op.Type.String(), fields)
	}
	for _, b := range proposal {
		fields, err := normalize(b.Op.Fields)
		if err != nil {
			return err
		}
		result.AddOperationTrace(n, "proposal", b.Op.Type.String(), fields)
	}

	if step.Expect != nil {
		for _, msg := range checkExpect(n, step.Expect, report, len(proposal), len(direct)) {
			result.AddError(msg)
		}
	}

	if !step.Broadcast {
		rctx.Reset()
		return nil
	}
	flush, err := eng.Flush(ctx)
	if err != nil {
		return fmt.Errorf("broadcast: %w", err)
	}
	for _, b := range flush.Broadcasts {
		result.AddBroadcastTrace(n, b.Buffer, b.Operations)
	}
	slog.Debug("scenario pass broadcast", "pass", n, "broadcasts", len(flush.Broadcasts))
	return nil
}

func (h *Harness) account(ctx context.Context, nameOrID string) (ir.ObjectID, error) {
	if nameOrID == "" {
		return "", nil
	}
	a, err := h.ledger.LookupAccount(ctx, nameOrID)
	if err != nil {
		return "", err
	}
	return a.ID, nil
}

// checkExpect compares a pass report with its expect clause.
func checkExpect(n int, expect *ExpectClause, report *engine.Report, buffered, approvals int) []string {
	var errs []string
	for name, want := range expect.States {
		state, _ := engine.ParseState(name)
		if got := report.Count(state); got != want {
			errs = append(errs, fmt.Sprintf("pass %d: %d entities %s, want %d", n, got, name, want))
		}
	}
	if expect.Errors != nil {
		if got := len(report.Errors()); got != *expect.Errors {
			errs = append(errs, fmt.Sprintf("pass %d: %d entities skipped, want %d", n, got, *expect.Errors))
		}
	}
	if expect.Buffered != nil && buffered != *expect.Buffered {
		errs = append(errs, fmt.Sprintf("pass %d: %d operations buffered, want %d", n, buffered, *expect.Buffered))
	}
	if expect.Approvals != nil && approvals != *expect.Approvals {
		errs = append(errs, fmt.Sprintf("pass %d: %d approvals queued, want %d", n, approvals, *expect.Approvals))
	}
	return errs
}

// normalize converts v to the plain JSON value tree, so values decoded
// from YAML and values produced by the engine compare equal.
func normalize(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("normalize: %w", err)
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("normalize: %w", err)
	}
	return out, nil
}
