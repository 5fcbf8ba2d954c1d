package entity

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/bosync/internal/chain"
	"github.com/roach88/bosync/internal/comparator"
	"github.com/roach88/bosync/internal/engine"
	"github.com/roach88/bosync/internal/grading"
	"github.com/roach88/bosync/internal/ir"
)

const statusGraded = "graded"

// Resolve settles a betting market group once the event result is known.
// It has no ledger object of its own: it is located on the group it
// grades.
type Resolve struct {
	base
	group  *MarketGroup
	result [2]int64
}

func newResolve(t *Tree, parent int, g *MarketGroup, result [2]int64) *Resolve {
	return &Resolve{
		base:   t.newBase(parent, g.Identifier()+"::resolution", ""),
		group:  g,
		result: result,
	}
}

// Group returns the graded betting market group.
func (r *Resolve) Group() *MarketGroup {
	return r.group
}

func (r *Resolve) Schema() engine.Schema {
	return engine.Schema{
		Kind:        ir.KindBettingMarketGroup,
		Create:      ir.OpBettingMarketGroupResolve,
		ParentField: "betting_market_group_id",
	}
}

func (r *Resolve) Text(string) ir.LangList { return nil }

func (r *Resolve) FindComparator() comparator.Comparator { return nil }

func (r *Resolve) EqualComparator() comparator.Comparator {
	return comparator.All(
		comparator.RequiredKeys([]string{"resolutions"}),
		comparator.ParentEqual("betting_market_group_id"),
		func(_ comparator.Subject, observed ir.Fields) (bool, error) {
			return r.sameResolutions(context.Background(), observed)
		},
	)
}

// Locate implements engine.Locator: the group counts as resolved once it
// is graded with the resolutions computed here.
func (r *Resolve) Locate(ctx context.Context, reader chain.Reader) (ir.Fields, bool, error) {
	gid := r.group.ID()
	if !gid.IsResolved() {
		return nil, false, nil
	}
	obj, err := reader.GetObject(ctx, gid)
	if errors.Is(err, chain.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %s: %w", gid, err)
	}
	if obj.String("status") != statusGraded || !obj.Has("resolutions") {
		return nil, false, nil
	}
	ok, err := r.sameResolutions(ctx, obj)
	if err != nil || !ok {
		return nil, false, err
	}
	return obj, true, nil
}

func (r *Resolve) sameResolutions(ctx context.Context, observed ir.Fields) (bool, error) {
	v, _ := observed.Lookup("resolutions")
	got, err := grading.ParseResolutionSet(v)
	if err != nil {
		return false, &comparator.ShapeError{Identifier: r.Identifier(), Field: "resolutions", Err: err}
	}
	res, err := r.Grade(ctx, nil)
	if engine.IsNotFound(err) {
		// Markets without ids cannot have been graded yet.
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return res.Resolutions.Equal(got), nil
}

// Grade evaluates the rule of the group for the result. Market ids come
// from res when given, otherwise from the markets themselves. Ids are
// taken one per graded market, so markets beyond the rule's resolutions
// need no ledger id.
func (r *Resolve) Grade(ctx context.Context, res engine.Resolver) (*grading.Result, error) {
	ev, err := r.tree.grader()
	if err != nil {
		return nil, err
	}
	markets := func(yield func(ir.ObjectID, error) bool) {
		for _, m := range r.group.markets {
			id, err := r.marketID(ctx, res, m)
			if !yield(id, err) || err != nil {
				return
			}
		}
	}

	vars := r.group.vars()
	vars.Result = r.result
	result, err := ev.Grade(r.group.rule.Grading(), vars, markets)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", r.Identifier(), err)
	}
	return result, nil
}

func (r *Resolve) marketID(ctx context.Context, res engine.Resolver, m *Market) (ir.ObjectID, error) {
	id := m.ID()
	if res != nil {
		ref, err := res.Reference(ctx, m)
		if err != nil {
			return "", err
		}
		id = ref
	}
	if !id.IsResolved() {
		return "", engine.NewParentPendingError(m.Identifier())
	}
	return id, nil
}

func (r *Resolve) CreateFields(ctx context.Context, res engine.Resolver) (ir.Fields, error) {
	groupID, err := r.parentRef(ctx, res)
	if err != nil {
		return nil, err
	}
	result, err := r.Grade(ctx, res)
	if err != nil {
		return nil, err
	}
	return ir.Fields{
		"betting_market_group_id": groupID,
		"resolutions":             result.Resolutions,
	}, nil
}

func (r *Resolve) UpdateFields(context.Context, engine.Resolver) (ir.Fields, error) {
	return nil, fmt.Errorf("%s: resolutions cannot be updated", r.Identifier())
}
