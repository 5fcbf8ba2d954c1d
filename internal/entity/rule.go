package entity

import (
	"context"
	"fmt"

	"github.com/roach88/bosync/internal/catalog"
	"github.com/roach88/bosync/internal/comparator"
	"github.com/roach88/bosync/internal/engine"
	"github.com/roach88/bosync/internal/grading"
	"github.com/roach88/bosync/internal/ir"
)

// Rule is a set of betting market rules. The grading definition travels
// in the "grading" entry of the description.
type Rule struct {
	base
	def         *catalog.Rule
	name        ir.LangList
	description ir.LangList
}

func newRule(t *Tree, def *catalog.Rule) (*Rule, error) {
	g, err := def.Grading.JSON()
	if err != nil {
		return nil, fmt.Errorf("rule %s: %w", def.Identifier, err)
	}
	return &Rule{
		base:        t.newBase(-1, def.Sport+"/rules/"+def.Identifier, def.ID),
		def:         def,
		name:        def.Name.LangList().With("identifier", def.Identifier),
		description: def.Description.LangList().With("grading", g),
	}, nil
}

// Grading returns the settlement definition of the rule.
func (r *Rule) Grading() grading.Grading {
	return r.def.Grading
}

func (r *Rule) Schema() engine.Schema {
	return engine.Schema{
		Kind:        ir.KindRules,
		Create:      ir.OpBettingMarketRulesCreate,
		Update:      ir.OpBettingMarketRulesUpdate,
		TargetField: "betting_market_rules_id",
	}
}

func (r *Rule) Text(field string) ir.LangList {
	switch field {
	case "name":
		return r.name
	case "description":
		return r.description
	}
	return nil
}

func (r *Rule) FindComparator() comparator.Comparator {
	return comparator.TextEqual("name", "en")
}

func (r *Rule) EqualComparator() comparator.Comparator {
	return comparator.All(
		comparator.RequiredKeys([]string{"name", "description"}, []string{"new_name", "new_description"}),
		comparator.AllLanguages("name"),
		comparator.AllLanguages("description"),
	)
}

func (r *Rule) CreateFields(context.Context, engine.Resolver) (ir.Fields, error) {
	return ir.Fields{"name": r.name, "description": r.description}, nil
}

func (r *Rule) UpdateFields(ctx context.Context, res engine.Resolver) (ir.Fields, error) {
	fields, err := r.CreateFields(ctx, res)
	if err != nil {
		return nil, err
	}
	return updateShape(fields), nil
}
