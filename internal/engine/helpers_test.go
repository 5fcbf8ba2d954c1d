package engine

import (
	"context"
	"testing"
	"time"

	"github.com/roach88/bosync/internal/comparator"
	"github.com/roach88/bosync/internal/ir"
	"github.com/roach88/bosync/internal/testutil"
)

const (
	testProposer ir.ObjectID = "1.2.7"
	testApprover ir.ObjectID = "1.2.8"
)

var (
	sportSchema = Schema{
		Kind:        ir.KindSport,
		Create:      ir.OpSportCreate,
		Update:      ir.OpSportUpdate,
		TargetField: "sport_id",
	}
	eventGroupSchema = Schema{
		Kind:        ir.KindEventGroup,
		Create:      ir.OpEventGroupCreate,
		Update:      ir.OpEventGroupUpdate,
		ParentField: "sport_id",
		TargetField: "event_group_id",
	}
)

// testEntity is a named entity with an optional parent, shaped like a
// sport or an event group.
type testEntity struct {
	identifier string
	schema     Schema
	name       ir.LangList
	id         ir.ObjectID
	parent     *testEntity
}

func makeSport(name string) *testEntity {
	return &testEntity{
		identifier: name,
		schema:     sportSchema,
		name:       ir.LangList{{Lang: "en", Text: name}},
	}
}

func makeEventGroup(parent *testEntity, name string) *testEntity {
	return &testEntity{
		identifier: parent.identifier + "/" + name,
		schema:     eventGroupSchema,
		name:       ir.LangList{{Lang: "en", Text: name}},
		parent:     parent,
	}
}

func (e *testEntity) Identifier() string { return e.identifier }
func (e *testEntity) Status() string { return "" }
func (e *testEntity) Schema() Schema { return e.schema }
func (e *testEntity) ID() ir.ObjectID { return e.id }
func (e *testEntity) SetID(id ir.ObjectID) {
	e.id = id
}

func (e *testEntity) Text(field string) ir.LangList {
	if field == "name" {
		return e.name
	}
	return nil
}

func (e *testEntity) ParentID() ir.ObjectID {
	if e.parent == nil || !e.parent.id.IsResolved() {
		return ""
	}
	return e.parent.id
}

func (e *testEntity) Parent() Syncable {
	if e.parent == nil {
		return nil
	}
	return e.parent
}

func (e *testEntity) FindComparator() comparator.Comparator {
	return comparator.TextEqual("name", "en")
}

func (e *testEntity) EqualComparator() comparator.Comparator {
	cmps := []comparator.Comparator{
		comparator.RequiredKeys([]string{"name"}, []string{"new_name"}),
		comparator.AllLanguages("name"),
	}
	if e.schema.ParentField != "" {
		cmps = append(cmps, comparator.ParentEqual(e.schema.ParentField))
	}
	return comparator.All(cmps...)
}

func (e *testEntity) CreateFields(ctx context.Context, r Resolver) (ir.Fields, error) {
	fields := ir.Fields{"name": e.name}
	if e.parent != nil {
		ref, err := r.Reference(ctx, e.parent)
		if err != nil {
			return nil, err
		}
		fields[e.schema.ParentField] = ref
	}
	return fields, nil
}

func (e *testEntity) UpdateFields(ctx context.Context, r Resolver) (ir.Fields, error) {
	fields := ir.Fields{"new_name": e.name}
	if e.parent != nil {
		ref, err := r.Reference(ctx, e.parent)
		if err != nil {
			return nil, err
		}
		fields[ir.UpdatePrefix+e.schema.ParentField] = ref
	}
	return fields, nil
}

func createOp(e *testEntity, parentRef ir.ObjectID) ir.Operation {
	fields := ir.Fields{"name": e.name}
	if parentRef != "" {
		fields[e.schema.ParentField] = parentRef
	}
	return ir.NewOperation(e.schema.Create, fields)
}

func createTestEngine(t *testing.T, opts ...Option) (*Engine, *testutil.FakeChain) {
	t.Helper()

	fake := testutil.NewFakeChain()
	fake.SetProposers(testProposer)
	clock := testutil.NewManualClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))

	base := []Option{
		WithProposer(testProposer),
		WithApprover(testApprover),
		WithNow(clock.Now),
		WithPassIDGenerator(testutil.NewFixedPassGenerator("pass-1")),
	}
	return New(fake, append(base, opts...)...), fake
}

func entities(es ...*testEntity) func(yield func(Syncable) bool) {
	return func(yield func(Syncable) bool) {
		for _, e := range es {
			if !yield(e) {
				return
			}
		}
	}
}
