package entity

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/roach88/bosync/internal/catalog"
	"github.com/roach88/bosync/internal/comparator"
	"github.com/roach88/bosync/internal/dynamic"
	"github.com/roach88/bosync/internal/engine"
	"github.com/roach88/bosync/internal/ir"
)

// MarketGroup is a betting market group template instantiated for one
// event.
type MarketGroup struct {
	base
	def     *catalog.MarketGroup
	event   *Event
	rule    *Rule
	params  dynamic.Params
	markets []*Market
}

func newMarketGroup(t *Tree, parent int, e *Event, def *catalog.MarketGroup, rule *Rule) (*MarketGroup, error) {
	identifier := e.Identifier() + "/" + def.Identifier
	missing := func(field string) error {
		return &MissingFieldError{Entity: identifier, Field: field}
	}
	switch {
	case def.Description.English() == "":
		return nil, missing("description")
	case def.Asset == "":
		return nil, missing("asset")
	case def.Rules == "" || rule == nil:
		return nil, missing("rules")
	case len(def.BettingMarkets) == 0:
		return nil, missing("bettingmarkets")
	}

	kind, err := dynamic.ParseKind(def.Dynamic)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", identifier, err)
	}
	g := &MarketGroup{
		base:   t.newBase(parent, identifier, ""),
		def:    def,
		event:  e,
		rule:   rule,
		params: dynamic.Params{Kind: kind, IntegerMode: def.IsInteger},
	}

	override, _ := e.def.Override(def.Identifier)
	switch {
	case kind.IsHandicap():
		handicaps := def.Handicaps
		if len(override.Handicaps) == 2 {
			handicaps = override.Handicaps
		}
		if len(handicaps) != 2 {
			return nil, missing("handicaps")
		}
		g.params.SetHandicap(dynamic.Home, handicaps[0])
	case kind.IsOverUnder():
		line := def.OverUnder
		if override.OverUnder != nil {
			line = override.OverUnder
		}
		if line == nil {
			return nil, missing("overunder")
		}
		g.params.SetOverUnder(*line)
	}

	if _, err := g.description(); err != nil {
		return nil, fmt.Errorf("%s: description: %w", identifier, err)
	}
	return g, nil
}

// Event returns the event the group belongs to.
func (g *MarketGroup) Event() *Event {
	return g.event
}

// Rule returns the rules entity referenced by the group.
func (g *MarketGroup) Rule() *Rule {
	return g.rule
}

// Markets returns the betting markets of the group in template order.
func (g *MarketGroup) Markets() []*Market {
	return g.markets
}

// Params returns the current dynamic parameters.
func (g *MarketGroup) Params() dynamic.Params {
	return g.params
}

func (g *MarketGroup) vars() dynamic.Vars {
	return dynamic.Vars{Teams: g.event.teams, Params: g.params}
}

func (g *MarketGroup) description() (ir.LangList, error) {
	l, err := dynamic.ExpandText(g.def.Description.LangList(), g.vars())
	if err != nil {
		return nil, err
	}
	return g.params.Attach(l), nil
}

func (g *MarketGroup) Schema() engine.Schema {
	return engine.Schema{
		Kind:        ir.KindBettingMarketGroup,
		Create:      ir.OpBettingMarketGroupCreate,
		Update:      ir.OpBettingMarketGroupUpdate,
		ParentField: "event_id",
		TargetField: "betting_market_group_id",
	}
}

func (g *MarketGroup) Text(field string) ir.LangList {
	if field != "description" {
		return nil
	}
	// Templates are expanded once when the group is built.
	l, _ := g.description()
	return l
}

func (g *MarketGroup) Status() string { return g.def.Status }

func (g *MarketGroup) dynamicMatch() comparator.Comparator {
	return comparator.All(
		comparator.ExternalLanguages("description"),
		comparator.FuzzyDynamicMatch("description", g.tolerance()),
	)
}

func (g *MarketGroup) tolerance() decimal.Decimal {
	if g.def.Fuzzy == nil {
		return g.tree.tolerance
	}
	return *g.def.Fuzzy
}

func (g *MarketGroup) FindComparator() comparator.Comparator {
	if g.params.Kind != dynamic.KindNone {
		return g.dynamicMatch()
	}
	return comparator.TextEqual("description", "en")
}

// EqualComparator adopts the dynamic parameters of a match that names our
// event by its ledger id, so the markets below follow the values already
// proposed. Matches referencing a provisional event are left alone: the
// engine still has to check the event operation they point at.
func (g *MarketGroup) EqualComparator() comparator.Comparator {
	description := comparator.AllLanguages("description")
	if g.params.Kind != dynamic.KindNone {
		description = g.dynamicMatch()
	}
	cmp := comparator.All(
		comparator.RequiredKeys(
			[]string{"betting_market_group_id", "new_description", "new_event_id", "new_rules_id"},
			[]string{"description", "event_id", "rules_id"},
		),
		comparator.StatusEqual(),
		comparator.ParentEqual("event_id"),
		description,
	)
	return func(s comparator.Subject, observed ir.Fields) (bool, error) {
		ok, err := cmp(s, observed)
		if ok && observed.ObjectID("event_id").IsResolved() {
			g.Observe(observed)
		}
		return ok, err
	}
}

// Observe implements engine.Observer.
func (g *MarketGroup) Observe(observed ir.Fields) {
	if g.params.Kind == dynamic.KindNone {
		return
	}
	l, err := observed.Text("description")
	if err != nil {
		return
	}
	p, ok, err := dynamic.Extract(l)
	if err != nil || !ok {
		return
	}
	if g.params.Adopt(p) {
		slog.Debug("adopted dynamic parameters from the ledger",
			"identifier", g.Identifier(),
			"kind", string(p.Kind),
			"home", g.params.Home.String(),
			"line", g.params.Line.String(),
		)
	}
}

func (g *MarketGroup) CreateFields(ctx context.Context, r engine.Resolver) (ir.Fields, error) {
	description, err := g.description()
	if err != nil {
		return nil, err
	}
	eventID, err := g.parentRef(ctx, r)
	if err != nil {
		return nil, err
	}
	rulesID, err := r.Reference(ctx, g.rule)
	if err != nil {
		return nil, err
	}
	fields := ir.Fields{
		"description":           description,
		"event_id":              eventID,
		"rules_id":              rulesID,
		"asset_id":              g.def.Asset,
		"delay_before_settling": g.def.DelayBeforeSettling,
		"never_in_play":         g.def.NeverInPlay,
	}
	if g.def.Status != "" {
		fields["status"] = g.def.Status
	}
	return fields, nil
}

func (g *MarketGroup) UpdateFields(ctx context.Context, r engine.Resolver) (ir.Fields, error) {
	description, err := g.description()
	if err != nil {
		return nil, err
	}
	eventID, err := g.parentRef(ctx, r)
	if err != nil {
		return nil, err
	}
	rulesID, err := r.Reference(ctx, g.rule)
	if err != nil {
		return nil, err
	}
	fields := ir.Fields{
		"new_description": description,
		"new_event_id":    eventID,
		"new_rules_id":    rulesID,
	}
	if g.def.Status != "" {
		fields["new_status"] = g.def.Status
	}
	return fields, nil
}

// Market is one betting market of a group.
type Market struct {
	base
	group *MarketGroup
	def   catalog.MarketTemplate
}

func newMarket(t *Tree, parent int, g *MarketGroup, index int, def catalog.MarketTemplate) (*Market, error) {
	m := &Market{
		base:  t.newBase(parent, g.Identifier()+"/"+strconv.Itoa(index+1), ""),
		group: g,
		def:   def,
	}
	if _, err := m.description(); err != nil {
		return nil, fmt.Errorf("%s: description: %w", m.Identifier(), err)
	}
	return m, nil
}

// description is expanded from the group's current parameters.
func (m *Market) description() (ir.LangList, error) {
	return dynamic.ExpandText(m.def.Description.LangList(), m.group.vars())
}

func (m *Market) Schema() engine.Schema {
	return engine.Schema{
		Kind:        ir.KindBettingMarket,
		Create:      ir.OpBettingMarketCreate,
		Update:      ir.OpBettingMarketUpdate,
		ParentField: "group_id",
		TargetField: "betting_market_id",
	}
}

func (m *Market) Text(field string) ir.LangList {
	if field != "description" {
		return nil
	}
	l, _ := m.description()
	return l
}

func (m *Market) FindComparator() comparator.Comparator {
	return comparator.TextEqual("description", "en")
}

func (m *Market) EqualComparator() comparator.Comparator {
	return comparator.All(
		comparator.RequiredKeys([]string{"description", "group_id"}, []string{"new_description", "new_group_id"}),
		comparator.AllLanguages("description"),
		comparator.ParentEqual("group_id"),
	)
}

func (m *Market) CreateFields(ctx context.Context, r engine.Resolver) (ir.Fields, error) {
	description, err := m.description()
	if err != nil {
		return nil, err
	}
	groupID, err := m.parentRef(ctx, r)
	if err != nil {
		return nil, err
	}
	return ir.Fields{
		"description":      description,
		"group_id":         groupID,
		"payout_condition": []string{},
	}, nil
}

func (m *Market) UpdateFields(ctx context.Context, r engine.Resolver) (ir.Fields, error) {
	fields, err := m.CreateFields(ctx, r)
	if err != nil {
		return nil, err
	}
	return updateShape(fields), nil
}
