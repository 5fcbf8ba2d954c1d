package testutil

import (
	"context"
	"fmt"
	"iter"
	"slices"
	"sync"

	"github.com/roach88/bosync/internal/chain"
	"github.com/roach88/bosync/internal/ir"
)

// FakeChain is an in-memory chain.Client for engine and entity tests.
//
// Broadcast records every transaction. proposal_create operations become
// pending proposals with fresh 1.10.N ids; proposal_update operations add
// the approving account to the proposal. Nothing is ever executed.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type FakeChain struct {
	mu           sync.Mutex
	objects      map[ir.ObjectID]ir.Fields
	order        []ir.ObjectID
	proposals    []ir.Proposal
	proposers    []ir.ObjectID
	broadcasts   []ir.Transaction
	failures     []error
	nextProposal int
	calls        map[string]int
}

var _ chain.Client = (*FakeChain)(nil)

// NewFakeChain creates an empty fake ledger.
func NewFakeChain() *FakeChain {
	return &FakeChain{
		objects: make(map[ir.ObjectID]ir.Fields),
		calls:   make(map[string]int),
	}
}

// AddObject stores a confirmed object. The "id" field is set to id.
func (f *FakeChain) AddObject(id ir.ObjectID, fields ir.Fields) {
	f.mu.Lock()
	defer f.mu.Unlock()

	obj := fields.Clone()
	if obj == nil {
		obj = ir.Fields{}
	}
	obj["id"] = string(id)
	if _, ok := f.objects[id]; !ok {
		f.order = append(f.order, id)
	}
	f.objects[id] = obj
}

// AddProposal stores a pending proposal.
func (f *FakeChain) AddProposal(p ir.Proposal) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.proposals = append(f.proposals, p)
	if n := p.ID.Instance(); n >= f.nextProposal {
		f.nextProposal = n + 1
	}
}

// SetProposers replaces the authorized proposer set.
func (f *FakeChain) SetProposers(ids ...ir.ObjectID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.proposers = slices.Clone(ids)
}

// FailBroadcast queues errors returned by the next Broadcast calls.
func (f *FakeChain) FailBroadcast(errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures = append(f.failures, errs...)
}

// Broadcasts returns every successfully broadcast transaction.
func (f *FakeChain) Broadcasts() []ir.Transaction {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.broadcasts)
}

// Proposals returns the stored proposals.
func (f *FakeChain) Proposals() []ir.Proposal {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.proposals)
}

// Calls returns how often method was invoked.
func (f *FakeChain) Calls(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

// GetObject implements chain.Reader.
func (f *FakeChain) GetObject(_ context.Context, id ir.ObjectID) (ir.Fields, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["GetObject"]++

	obj, ok := f.objects[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, chain.ErrNotFound)
	}
	return obj.Clone(), nil
}

// ListObjects implements chain.Reader.
func (f *FakeChain) ListObjects(_ context.Context, kind ir.ObjectKind, parent ir.ObjectID) iter.Seq2[ir.Fields, error] {
	return func(yield func(ir.Fields, error) bool) {
		f.mu.Lock()
		f.calls["ListObjects"]++
		var matches []ir.Fields
		for _, id := range f.order {
			if id.Kind() != kind {
				continue
			}
			obj := f.objects[id]
			if parent != "" && obj.ObjectID(kind.ParentField()) != parent {
				continue
			}
			matches = append(matches, obj.Clone())
		}
		f.mu.Unlock()

		for _, obj := range matches {
			if !yield(obj, nil) {
				return
			}
		}
	}
}

// ListPendingProposals implements chain.Reader. The authority is ignored.
func (f *FakeChain) ListPendingProposals(_ context.Context, _ ir.ObjectID) iter.Seq2[ir.Proposal, error] {
	return func(yield func(ir.Proposal, error) bool) {
		f.mu.Lock()
		f.calls["ListPendingProposals"]++
		pending := slices.Clone(f.proposals)
		f.mu.Unlock()

		for _, p := range pending {
			if !yield(p, nil) {
				return
			}
		}
	}
}

// ListAuthorizedProposers implements chain.Reader.
func (f *FakeChain) ListAuthorizedProposers(context.Context) ([]ir.ObjectID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["ListAuthorizedProposers"]++
	return slices.Clone(f.proposers), nil
}

// Broadcast implements chain.Broadcaster.
func (f *FakeChain) Broadcast(_ context.Context, tx ir.Transaction) (ir.TxResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["Broadcast"]++

	if len(f.failures) > 0 {
		err := f.failures[0]
		f.failures = f.failures[1:]
		if err != nil {
			return ir.TxResult{}, err
		}
	}

	res := ir.TxResult{
		ID:               fmt.Sprintf("tx-%d", len(f.broadcasts)+1),
		OperationResults: make([]ir.ObjectID, len(tx.Operations)),
	}
	for i, op := range tx.Operations {
		switch op.Type {
		case ir.OpProposalCreate:
			ops, err := ir.ProposedOps(op)
			if err != nil {
				return ir.TxResult{}, err
			}
			id := ir.KindProposal.ID(f.nextProposal)
			f.nextProposal++
			f.proposals = append(f.proposals, ir.Proposal{
				ID:             id,
				Proposer:       op.Fields.ObjectID("fee_paying_account"),
				ExpirationTime: op.Fields.String("expiration_time"),
				Transaction:    ir.ProposedTransaction{Operations: ops},
			})
			res.OperationResults[i] = id
		case ir.OpProposalUpdate:
			pid := op.Fields.ObjectID("proposal")
			for j := range f.proposals {
				if f.proposals[j].ID == pid {
					f.proposals[j].AvailableActiveApprovals = append(
						f.proposals[j].AvailableActiveApprovals, ir.ApprovedAccounts(op)...)
				}
			}
		}
	}
	f.broadcasts = append(f.broadcasts, tx)
	return res, nil
}
