package chain

import (
	"context"
	"errors"
	"iter"

	"github.com/roach88/bosync/internal/ir"
)

var (
	// ErrNotFound is returned by GetObject for unknown ids.
	ErrNotFound = errors.New("object not found")

	// ErrAlreadyExists is returned by Broadcast when a proposed operation
	// is already pending in another proposal.
	ErrAlreadyExists = errors.New("operation already pending in a proposal")
)

// Reader is the read side of a ledger client.
type Reader interface {
	// GetObject returns the confirmed object with id, including its "id"
	// field. Unknown ids return ErrNotFound.
	GetObject(ctx context.Context, id ir.ObjectID) (ir.Fields, error)

	// ListObjects enumerates objects of kind whose parent reference is
	// parent, in instance order. An empty parent lists every object of
	// kind. The sequence is lazy and can be ranged over again to restart.
	ListObjects(ctx context.Context, kind ir.ObjectKind, parent ir.ObjectID) iter.Seq2[ir.Fields, error]

	// ListPendingProposals enumerates proposals awaiting approval at the
	// authority account.
	ListPendingProposals(ctx context.Context, authority ir.ObjectID) iter.Seq2[ir.Proposal, error]

	// ListAuthorizedProposers returns the accounts whose proposals may be
	// approved automatically.
	ListAuthorizedProposers(ctx context.Context) ([]ir.ObjectID, error)
}

// Broadcaster submits transactions.
type Broadcaster interface {
	// Broadcast submits tx synchronously. On success the result carries
	// the ids assigned to created objects and proposals.
	Broadcast(ctx context.Context, tx ir.Transaction) (ir.TxResult, error)
}

// Client is a full ledger client.
type Client interface {
	Reader
	Broadcaster
}

// ProposerSet builds a lookup set from ListAuthorizedProposers.
func ProposerSet(ctx context.Context, r Reader) (map[ir.ObjectID]bool, error) {
	accounts, err := r.ListAuthorizedProposers(ctx)
	if err != nil {
		return nil, err
	}
	set := make(map[ir.ObjectID]bool, len(accounts))
	for _, a := range accounts {
		set[a] = true
	}
	return set, nil
}
