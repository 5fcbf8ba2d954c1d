package entity

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/roach88/bosync/internal/catalog"
	"github.com/roach88/bosync/internal/engine"
	"github.com/roach88/bosync/internal/grading"
	"github.com/roach88/bosync/internal/ir"
)

// Tree is the arena holding every entity in hierarchy order.
type Tree struct {
	nodes     []engine.Syncable
	index     map[string]int
	events    []*Event
	evaluator *grading.Evaluator
	tolerance decimal.Decimal
}

// BuildOption configures Build.
type BuildOption func(*Tree)

// WithDefaultTolerance sets the fuzzy tolerance of dynamic market groups
// that do not declare one.
func WithDefaultTolerance(d decimal.Decimal) BuildOption {
	return func(t *Tree) { t.tolerance = d }
}

// base carries the state every entity shares: its place in the arena and
// its ledger id.
type base struct {
	tree       *Tree
	parent     int
	identifier string
	id         ir.ObjectID
}

func (t *Tree) newBase(parent int, identifier string, id ir.ObjectID) base {
	return base{tree: t, parent: parent, identifier: identifier, id: id}
}

func (b *base) Identifier() string { return b.identifier }
func (b *base) ID() ir.ObjectID { return b.id }
func (b *base) Status() string { return "" }

func (b *base) SetID(id ir.ObjectID) {
	b.id = id
}

func (b *base) Parent() engine.Syncable {
	if b.parent < 0 {
		return nil
	}
	return b.tree.nodes[b.parent]
}

func (b *base) ParentID() ir.ObjectID {
	p := b.Parent()
	if p == nil {
		return ""
	}
	if id := p.ID(); id.IsResolved() {
		return id
	}
	return ""
}

// parentRef returns the id the parent is referenced by in operations.
func (b *base) parentRef(ctx context.Context, r engine.Resolver) (ir.ObjectID, error) {
	p := b.Parent()
	if p == nil {
		return "", fmt.Errorf("%s has no parent", b.identifier)
	}
	return r.Reference(ctx, p)
}

// updateShape renames create fields to their update form.
func updateShape(create ir.Fields) ir.Fields {
	out := make(ir.Fields, len(create))
	for k, v := range create {
		out[ir.UpdatePrefix+k] = v
	}
	return out
}

// add appends s and returns its arena index.
func (t *Tree) add(s engine.Syncable) (int, error) {
	if _, dup := t.index[s.Identifier()]; dup {
		return -1, fmt.Errorf("duplicate entity %q", s.Identifier())
	}
	t.nodes = append(t.nodes, s)
	i := len(t.nodes) - 1
	t.index[s.Identifier()] = i
	return i, nil
}

// placedEvent is an event of the events file with its teams mapped to
// participant names.
type placedEvent struct {
	def   *catalog.EventDef
	teams [2]string
}

// Build creates the entity tree for cat and events. Events referring to
// unknown sports, event groups or teams are reported together as
// catalog.ValidationErrors.
func Build(cat *catalog.Catalog, events []*catalog.EventDef, opts ...BuildOption) (*Tree, error) {
	placed, err := placeEvents(cat, events)
	if err != nil {
		return nil, err
	}

	t := &Tree{index: make(map[string]int)}
	for _, opt := range opts {
		opt(t)
	}
	for _, sport := range cat.Sports {
		if err := t.addSport(sport, placed); err != nil {
			return nil, err
		}
	}
	slog.Debug("entity tree built",
		"entities", len(t.nodes),
		"events", len(t.events),
	)
	return t, nil
}

func placeEvents(cat *catalog.Catalog, events []*catalog.EventDef) (map[*catalog.EventGroup][]placedEvent, error) {
	placed := make(map[*catalog.EventGroup][]placedEvent)
	var errs catalog.ValidationErrors
	fail := func(i int, field, format string, args ...any) {
		errs = append(errs, &catalog.ValidationError{
			File:    "events",
			Path:    fmt.Sprintf("events.%d.%s", i, field),
			Message: fmt.Sprintf(format, args...),
		})
	}

	for i, def := range events {
		sport, ok := cat.Sport(def.Sport)
		if !ok {
			fail(i, "sport", "unknown sport %q", def.Sport)
			continue
		}
		eg, ok := sport.EventGroup(def.EventGroup)
		if !ok {
			fail(i, "eventgroup", "unknown event group %q in %s", def.EventGroup, sport.Identifier)
			continue
		}
		if len(def.Teams) != 2 {
			fail(i, "teams", "only events with two teams are supported, got %d", len(def.Teams))
			continue
		}
		participants, ok := sport.ParticipantList(eg.Participants)
		if !ok {
			fail(i, "eventgroup", "event group %s has no participant list", eg.Identifier)
			continue
		}
		var ev placedEvent
		ev.def = def
		known := true
		for side, team := range def.Teams {
			name, ok := participants.Canonical(team)
			if !ok {
				fail(i, fmt.Sprintf("teams.%d", side), "team %q is not a participant of %s", team, eg.Identifier)
				known = false
				continue
			}
			ev.teams[side] = name
		}
		if known {
			placed[eg] = append(placed[eg], ev)
		}
	}
	if len(errs) > 0 {
		return nil, errs
	}
	return placed, nil
}

func (t *Tree) addSport(def *catalog.Sport, placed map[*catalog.EventGroup][]placedEvent) error {
	si, err := t.add(newSport(t, def))
	if err != nil {
		return err
	}

	rules := make(map[*catalog.Rule]*Rule, len(def.Rules))
	for _, r := range def.Rules {
		rule, err := newRule(t, r)
		if err != nil {
			return err
		}
		if _, err := t.add(rule); err != nil {
			return err
		}
		rules[r] = rule
	}

	for _, eg := range def.EventGroups {
		gi, err := t.add(newEventGroup(t, si, eg))
		if err != nil {
			return err
		}
		for _, ev := range placed[eg] {
			if err := t.addEvent(gi, def, eg, rules, ev); err != nil {
				return err
			}
		}
	}
	return nil
}

func (t *Tree) addEvent(parent int, sport *catalog.Sport, eg *catalog.EventGroup, rules map[*catalog.Rule]*Rule, ev placedEvent) error {
	if !ev.def.ID.IsResolved() && !eg.CanOpen(ev.def.Start) {
		slog.Info("event outside the event group window, skipping",
			"event_group", eg.Identifier,
			"teams", ev.teams,
			"start_time", ir.FormatTime(ev.def.Start),
		)
		return nil
	}

	e, err := newEvent(t, parent, eg, ev.def, ev.teams)
	if err != nil {
		return err
	}
	ei, err := t.add(e)
	if err != nil {
		return err
	}
	t.events = append(t.events, e)

	if ev.def.Status != "" {
		if _, err := t.add(newEventStatus(t, ei, e)); err != nil {
			return err
		}
	}

	for _, name := range eg.MarketGroups {
		tmpl, ok := sport.MarketGroup(name)
		if !ok {
			return fmt.Errorf("event group %s: unknown betting market group %q", eg.Identifier, name)
		}
		var rule *Rule
		if r, ok := sport.Rule(tmpl.Rules); ok {
			rule = rules[r]
		}
		g, err := newMarketGroup(t, ei, e, tmpl, rule)
		if err != nil {
			return err
		}
		gi, err := t.add(g)
		if err != nil {
			return err
		}
		e.groups = append(e.groups, g)

		for i, m := range tmpl.BettingMarkets {
			market, err := newMarket(t, gi, g, i, m)
			if err != nil {
				return err
			}
			if _, err := t.add(market); err != nil {
				return err
			}
			g.markets = append(g.markets, market)
		}
		if ev.def.HasResult() {
			if _, err := t.AddResolve(g, [2]int64{ev.def.Result[0], ev.def.Result[1]}); err != nil {
				return err
			}
		}
	}
	return nil
}

// AddResolve appends the resolution of g for a final result (home, away).
func (t *Tree) AddResolve(g *MarketGroup, result [2]int64) (*Resolve, error) {
	gi, ok := t.index[g.Identifier()]
	if !ok {
		return nil, fmt.Errorf("%s is not part of the tree", g.Identifier())
	}
	r := newResolve(t, gi, g, result)
	if _, err := t.add(r); err != nil {
		return nil, err
	}
	return r, nil
}

// All yields every entity in hierarchy order.
func (t *Tree) All() iter.Seq[engine.Syncable] {
	return slices.Values(t.nodes)
}

// Len returns the number of entities.
func (t *Tree) Len() int {
	return len(t.nodes)
}

// Find returns the entity with the given identifier.
func (t *Tree) Find(identifier string) (engine.Syncable, bool) {
	i, ok := t.index[identifier]
	if !ok {
		return nil, false
	}
	return t.nodes[i], true
}

// ByID returns the first entity carrying id.
func (t *Tree) ByID(id ir.ObjectID) (engine.Syncable, bool) {
	for _, s := range t.nodes {
		if s.ID() == id {
			return s, true
		}
	}
	return nil, false
}

// Events returns the events of the tree in file order.
func (t *Tree) Events() []*Event {
	return t.events
}

// Kinds counts entities per ledger kind name.
func (t *Tree) Kinds() map[string]int {
	counts := make(map[string]int)
	for _, s := range t.nodes {
		counts[kindName(s)]++
	}
	return counts
}

func kindName(s engine.Syncable) string {
	switch s.(type) {
	case *EventStatus:
		return "event_status"
	case *Resolve:
		return "resolution"
	default:
		return s.Schema().Kind.Name()
	}
}

func (t *Tree) grader() (*grading.Evaluator, error) {
	if t.evaluator == nil {
		ev, err := grading.NewEvaluator()
		if err != nil {
			return nil, err
		}
		t.evaluator = ev
	}
	return t.evaluator, nil
}
