// Package engine implements the bosync reconciliation engine.
//
// The engine drives every catalog entity through the same sync state
// machine: resolve identity, look for a pending proposal that already does
// what the catalog asks for, and only then propose something new.
//
// ARCHITECTURE:
//
// Entities implement Syncable. The engine never depends on a concrete
// entity type; everything entity-specific (comparators, field extraction,
// parent references) comes through the interface.
//
// Shared state lives in one Context:
//   - the proposal buffer (operations for the next proposal_create)
//   - the direct buffer (proposal approvals)
//   - the ApprovalMap (proposal id -> operation index -> approved by us)
//
// A pass (RunPass) reconciles entities in hierarchy order and may end with
// a Flush that broadcasts both buffers.
//
// PROVISIONAL IDS:
//
// Operations in the proposal buffer are referenced by children as
// "0.0.N", N being the buffer index. The same convention is used inside
// on-ledger proposals, so matching a child operation may require matching
// the sibling operation its parent field points at.
//
// CONCURRENCY:
//
// Reconcile, RunPass and Flush serialize on the engine. Context guards its
// own state, so several engines may share a Context.
package engine
