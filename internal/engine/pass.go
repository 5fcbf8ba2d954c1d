package engine

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"

	"github.com/roach88/bosync/internal/chain"
	"github.com/roach88/bosync/internal/ir"
)

// Report summarizes one pass.
type Report struct {
	PassID  string        `json:"pass_id"`
	Seq     int64         `json:"seq"`
	Entries []ReportEntry `json:"entries"`
	Flush   *FlushResult  `json:"flush,omitempty"`
}

// ReportEntry is the outcome for one entity.
type ReportEntry struct {
	Identifier string      `json:"identifier"`
	Kind       string      `json:"kind"`
	ID         ir.ObjectID `json:"id,omitempty"`
	State      State       `json:"state"`
	Error      string      `json:"error,omitempty"`
	Retried    bool        `json:"retried,omitempty"`
}

// Count returns the number of entries in state.
func (r *Report) Count(state State) int {
	n := 0
	for _, e := range r.Entries {
		if e.State == state {
			n++
		}
	}
	return n
}

// Errors returns the entries that were skipped or failed.
func (r *Report) Errors() []ReportEntry {
	var out []ReportEntry
	for _, e := range r.Entries {
		if e.Error != "" {
			out = append(out, e)
		}
	}
	return out
}

func (r *Report) replace(entry ReportEntry) {
	for i := range r.Entries {
		if r.Entries[i].Identifier == entry.Identifier {
			r.Entries[i] = entry
			return
		}
	}
	r.Entries = append(r.Entries, entry)
}

// FlushResult lists the broadcasts of one flush.
type FlushResult struct {
	Broadcasts []BroadcastResult `json:"broadcasts"`
}

// BroadcastResult describes one broadcast transaction.
type BroadcastResult struct {
	Buffer     string       `json:"buffer"`
	TxID       string       `json:"tx_id"`
	Operations int          `json:"operations"`
	Summary    ir.TxSummary `json:"summary"`
}

func (f *FlushResult) add(buffer string, tx ir.Transaction, operations int, res ir.TxResult) {
	f.Broadcasts = append(f.Broadcasts, BroadcastResult{
		Buffer:     buffer,
		TxID:       res.ID,
		Operations: operations,
		Summary:    ir.Classify(tx, res),
	})
}

// RunPass reconciles entities in the order given, which must be hierarchy
// order (parents before children).
//
// Entities that cannot be referenced yet and entities whose submission
// failed are recorded and skipped. Any other error aborts the pass.
//
// With flush set the buffers are broadcast at the end. A proposal the
// ledger rejects as a duplicate is rebuilt once: the entities that
// contributed to it are reconciled again and the buffer is flushed again.
func (e *Engine) RunPass(ctx context.Context, entities iter.Seq[Syncable], flush bool) (*Report, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.seq++
	report := &Report{PassID: e.passIDs.Generate(), Seq: e.seq}
	defer e.retries.Clear(report.PassID)

	log := slog.With("pass", report.PassID)
	log.Info("pass starting", "seq", report.Seq)

	byIdentifier := make(map[string]Syncable)
	for s := range entities {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		byIdentifier[s.Identifier()] = s
		entry, err := e.runEntity(ctx, s)
		if err != nil {
			return report, err
		}
		report.Entries = append(report.Entries, entry)
	}

	if flush {
		res, err := e.flushWithRetry(ctx, report, byIdentifier)
		report.Flush = res
		if err != nil {
			log.Error("flush failed", "error", err)
			return report, err
		}
	}

	log.Info("pass complete",
		"entities", len(report.Entries),
		"synced", report.Count(StateSynced),
		"errors", len(report.Errors()),
	)
	return report, nil
}

func (e *Engine) runEntity(ctx context.Context, s Syncable) (ReportEntry, error) {
	state, err := e.reconcile(ctx, s)
	entry := ReportEntry{
		Identifier: s.Identifier(),
		Kind:       s.Schema().Kind.Name(),
		ID:         s.ID(),
		State:      state,
	}
	switch {
	case err == nil:
	case IsNotFound(err):
		slog.Info("entity skipped",
			"identifier", s.Identifier(),
			"error", err,
		)
		entry.Error = err.Error()
	case IsSubmissionError(err):
		slog.Error("entity submission failed",
			"identifier", s.Identifier(),
			"error", err,
		)
		entry.Error = err.Error()
	default:
		return entry, fmt.Errorf("reconcile %s: %w", s.Identifier(), err)
	}
	return entry, nil
}

func (e *Engine) flushWithRetry(ctx context.Context, report *Report, byIdentifier map[string]Syncable) (*FlushResult, error) {
	owners := e.rctx.Owners()
	res, err := e.flush(ctx)
	if !IsAlreadyExists(err) {
		return res, err
	}

	slog.Warn("proposal duplicates a pending one, reconciling its entities again",
		"pass", report.PassID,
		"entities", len(owners),
	)
	for _, identifier := range owners {
		s, ok := byIdentifier[identifier]
		if !ok || !e.retries.Allow(report.PassID, identifier) {
			continue
		}
		entry, err := e.runEntity(ctx, s)
		if err != nil {
			return res, err
		}
		entry.Retried = true
		report.replace(entry)
	}

	again, err := e.flush(ctx)
	res.Broadcasts = append(res.Broadcasts, again.Broadcasts...)
	return res, err
}

// Flush broadcasts the direct buffer, then the proposal buffer wrapped in
// a proposal_create by the proposer. Each buffer is cleared once its
// broadcast succeeds. A proposal rejected as a duplicate clears the
// proposal buffer and returns an ALREADY_EXISTS SyncError.
func (e *Engine) Flush(ctx context.Context) (*FlushResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.flush(ctx)
}

func (e *Engine) flush(ctx context.Context) (*FlushResult, error) {
	res := &FlushResult{}

	if direct := e.rctx.DirectBuffer(); len(direct) > 0 {
		tx := ir.Transaction{Operations: direct}
		out, err := e.client.Broadcast(ctx, tx)
		if err != nil {
			err = NewSubmissionError("direct", err)
			e.metrics.observeBroadcast("direct", err)
			return res, err
		}
		e.metrics.observeBroadcast("direct", nil)
		e.rctx.ClearDirectBuffer()
		res.add("direct", tx, len(direct), out)
		slog.Info("direct buffer broadcast",
			"tx", out.ID,
			"operations", len(direct),
		)
	}

	ops := e.rctx.proposalOps()
	if len(ops) == 0 {
		return res, nil
	}
	if e.proposer == "" {
		return res, NewSubmissionError("proposal", errors.New("no proposer account configured"))
	}

	tx := ir.Transaction{Operations: []ir.Operation{
		ir.NewProposalCreate(e.proposer, e.now().Add(e.expiration), ops),
	}}
	out, err := e.client.Broadcast(ctx, tx)
	if err != nil {
		if errors.Is(err, chain.ErrAlreadyExists) {
			e.rctx.ClearProposalBuffer()
			e.quota.Reset()
			err = &SyncError{
				Code:    ErrCodeAlreadyExists,
				Message: "proposal duplicates a pending operation",
				Err:     err,
			}
		} else {
			err = NewSubmissionError("proposal", err)
		}
		e.metrics.observeBroadcast("proposal", err)
		return res, err
	}
	e.metrics.observeBroadcast("proposal", nil)
	e.rctx.ClearProposalBuffer()
	e.quota.Reset()
	res.add("proposal", tx, len(ops), out)
	slog.Info("proposal broadcast",
		"tx", out.ID,
		"operations", len(ops),
		"proposals", out.OperationResults,
	)
	return res, nil
}
