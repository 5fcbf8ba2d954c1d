package engine

import (
	"context"

	"github.com/roach88/bosync/internal/chain"
	"github.com/roach88/bosync/internal/comparator"
	"github.com/roach88/bosync/internal/ir"
)

// Schema describes the ledger operations of one entity type.
type Schema struct {
	// Kind is the ledger object kind the entity maps to.
	Kind ir.ObjectKind

	// Create is the operation that creates the entity. Zero when the
	// entity is never created on its own.
	Create ir.OpType

	// Update is the operation that updates the entity. Zero when the
	// entity is never updated.
	Update ir.OpType

	// ParentField names the parent reference in create fields, or "" for
	// root entities.
	ParentField string

	// TargetField names the updated object in update fields.
	TargetField string
}

// Syncable is a catalog entity the engine can reconcile.
type Syncable interface {
	comparator.Subject

	Schema() Schema

	// ID returns the ledger id, or "" while unknown.
	ID() ir.ObjectID
	SetID(id ir.ObjectID)

	// Parent returns the owning entity, or nil for roots.
	Parent() Syncable

	// FindComparator identifies the entity among the ledger children of
	// its parent. Nil means the entity has no identity lookup.
	FindComparator() comparator.Comparator

	// EqualComparator decides whether a ledger object or a proposed
	// operation carries the canonical content.
	EqualComparator() comparator.Comparator

	// CreateFields and UpdateFields build operation payloads. Parent
	// references are obtained through r.
	CreateFields(ctx context.Context, r Resolver) (ir.Fields, error)
	UpdateFields(ctx context.Context, r Resolver) (ir.Fields, error)
}

// Resolver hands out the ids entities use to reference each other.
type Resolver interface {
	// Reference returns the ledger id of s, the provisional id of its
	// buffered create operation, or an error when s cannot be referenced.
	Reference(ctx context.Context, s Syncable) (ir.ObjectID, error)
}

// Observer is implemented by entities that adopt values from their
// matched ledger object.
type Observer interface {
	Observe(observed ir.Fields)
}

// SyncChecker overrides the EqualComparator for the synced test of a
// resolved entity.
type SyncChecker interface {
	Synced(observed ir.Fields) (bool, error)
}

// Locator overrides the default identity lookup, which lists the ledger
// children of the parent and applies the FindComparator.
type Locator interface {
	Locate(ctx context.Context, r chain.Reader) (ir.Fields, bool, error)
}
