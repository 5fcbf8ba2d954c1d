package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/bosync/internal/chain"
	"github.com/roach88/bosync/internal/ir"
)

type pendingOp struct {
	proposal ir.Proposal
	index    int
	op       ir.Operation
}

// pendingOps enumerates the operations of every pending proposal at the
// authority account whose proposer is authorized. Each visited proposal is
// registered in the approval map.
func (e *Engine) pendingOps(ctx context.Context) ([]pendingOp, error) {
	proposers, err := chain.ProposerSet(ctx, e.client)
	if err != nil {
		return nil, fmt.Errorf("list authorized proposers: %w", err)
	}

	var out []pendingOp
	for p, err := range e.client.ListPendingProposals(ctx, e.authority) {
		if err != nil {
			return nil, fmt.Errorf("list pending proposals: %w", err)
		}
		if !proposers[p.Proposer] {
			slog.Debug("ignoring proposal from unauthorized proposer",
				"proposal", p.ID,
				"proposer", p.Proposer,
			)
			continue
		}
		e.rctx.track(p)
		for i, op := range p.Operations() {
			out = append(out, pendingOp{proposal: p, index: i, op: op})
		}
	}
	return out, nil
}

// approvePending marks every pending operation of type opType that
// matches s. For creates it stops after approving a proposal that bundles
// nothing else.
func (e *Engine) approvePending(ctx context.Context, s Syncable, opType ir.OpType) (bool, error) {
	pending, err := e.pendingOps(ctx)
	if err != nil {
		return false, err
	}

	found := false
	for _, p := range pending {
		ok, err := e.operationMatches(s, opType, p.op, p.proposal.Operations())
		if err != nil {
			return found, err
		}
		if !ok {
			continue
		}
		found = true
		e.approve(p.proposal.ID, p.index)
		if opType == s.Schema().Create && len(p.proposal.Operations()) == 1 {
			break
		}
	}
	return found, nil
}

// approve flags one proposal operation as approved by us. Once every
// operation of a proposal is flagged, a ledger-level approval is queued in
// the direct buffer unless our approver already granted it.
func (e *Engine) approve(pid ir.ObjectID, index int) {
	if !pid.IsResolved() {
		slog.Info("cannot approve a proposal that was not broadcast",
			"proposal", pid,
		)
		return
	}
	queued := e.rctx.mark(pid, index, e.approver)
	for _, id := range queued {
		slog.Info("approving proposal",
			"proposal", id,
			"approver", e.approver,
		)
	}
	e.metrics.observeApprovals(len(queued))
}

// Approve flags operation index of proposal pid as approved by us.
func (e *Engine) Approve(pid ir.ObjectID, index int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.approve(pid, index)
}

// TrackPending registers every pending proposal from an authorized
// proposer in the approval map and returns them.
func (e *Engine) TrackPending(ctx context.Context) ([]ir.Proposal, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ops, err := e.pendingOps(ctx)
	if err != nil {
		return nil, err
	}
	var out []ir.Proposal
	for _, p := range ops {
		if p.index == 0 {
			out = append(out, p.proposal)
		}
	}
	return out, nil
}
