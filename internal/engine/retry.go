package engine

import "sync"

// RetryGuard tracks which entities were re-reconciled after the ledger
// rejected a proposal as a duplicate.
//
// A rejected flush is retried once per pass: the proposal buffer is
// cleared, every entity that contributed an operation is reconciled
// again, and the buffer is flushed again. The guard makes sure an entity
// is retried at most once in a pass, so a ledger that keeps rejecting
// cannot keep the pass alive.
//
// Thread-safe: Can be called concurrently.
type RetryGuard struct {
	mu      sync.Mutex
	retried map[string]map[string]bool // map[pass_id]map[identifier]bool
}

// NewRetryGuard creates an empty guard.
func NewRetryGuard() *RetryGuard {
	return &RetryGuard{
		retried: make(map[string]map[string]bool),
	}
}

// Allow reports whether identifier may be retried in pass and records the
// retry if so.
func (g *RetryGuard) Allow(passID, identifier string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.retried[passID] == nil {
		g.retried[passID] = make(map[string]bool)
	}
	if g.retried[passID][identifier] {
		return false
	}
	g.retried[passID][identifier] = true
	return true
}

// Retried reports whether identifier was already retried in pass.
func (g *RetryGuard) Retried(passID, identifier string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.retried[passID][identifier]
}

// Clear removes the history of a pass.
func (g *RetryGuard) Clear(passID string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	delete(g.retried, passID)
}

// Size returns the number of passes with tracked retries.
func (g *RetryGuard) Size() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	return len(g.retried)
}
