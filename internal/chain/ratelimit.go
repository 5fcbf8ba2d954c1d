package chain

import (
	"context"
	"iter"

	"golang.org/x/time/rate"

	"github.com/roach88/bosync/internal/ir"
)

// RateLimited throttles every call to the wrapped client with a token
// bucket. Enumerations wait once before they start.
type RateLimited struct {
	next    Client
	limiter *rate.Limiter
}

var _ Client = (*RateLimited)(nil)

// NewRateLimited allows rps calls per second with the given burst.
func NewRateLimited(next Client, rps float64, burst int) *RateLimited {
	if burst < 1 {
		burst = 1
	}
	return &RateLimited{next: next, limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

// GetObject implements Reader.
func (c *RateLimited) GetObject(ctx context.Context, id ir.ObjectID) (ir.Fields, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return c.next.GetObject(ctx, id)
}

// ListObjects implements Reader.
func (c *RateLimited) ListObjects(ctx context.Context, kind ir.ObjectKind, parent ir.ObjectID) iter.Seq2[ir.Fields, error] {
	return func(yield func(ir.Fields, error) bool) {
		if err := c.limiter.Wait(ctx); err != nil {
			yield(nil, err)
			return
		}
		for obj, err := range c.next.ListObjects(ctx, kind, parent) {
			if !yield(obj, err) {
				return
			}
		}
	}
}

// ListPendingProposals implements Reader.
func (c *RateLimited) ListPendingProposals(ctx context.Context, authority ir.ObjectID) iter.Seq2[ir.Proposal, error] {
	return func(yield func(ir.Proposal, error) bool) {
		if err := c.limiter.Wait(ctx); err != nil {
			yield(ir.Proposal{}, err)
			return
		}
		for p, err := range c.next.ListPendingProposals(ctx, authority) {
			if !yield(p, err) {
				return
			}
		}
	}
}

// ListAuthorizedProposers implements Reader.
func (c *RateLimited) ListAuthorizedProposers(ctx context.Context) ([]ir.ObjectID, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return c.next.ListAuthorizedProposers(ctx)
}

// Broadcast implements Broadcaster.
func (c *RateLimited) Broadcast(ctx context.Context, tx ir.Transaction) (ir.TxResult, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return ir.TxResult{}, err
	}
	return c.next.Broadcast(ctx, tx)
}
