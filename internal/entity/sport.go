package entity

import (
	"context"

	"github.com/roach88/bosync/internal/catalog"
	"github.com/roach88/bosync/internal/comparator"
	"github.com/roach88/bosync/internal/engine"
	"github.com/roach88/bosync/internal/ir"
)

// Sport is the root entity of a catalog subtree.
type Sport struct {
	base
	def  *catalog.Sport
	name ir.LangList
}

func newSport(t *Tree, def *catalog.Sport) *Sport {
	return &Sport{
		base: t.newBase(-1, def.Identifier, def.ID),
		def:  def,
		name: def.Name.LangList().With("identifier", def.Identifier),
	}
}

func (s *Sport) Schema() engine.Schema {
	return engine.Schema{
		Kind:        ir.KindSport,
		Create:      ir.OpSportCreate,
		Update:      ir.OpSportUpdate,
		TargetField: "sport_id",
	}
}

func (s *Sport) Text(field string) ir.LangList {
	if field == "name" {
		return s.name
	}
	return nil
}

func (s *Sport) FindComparator() comparator.Comparator {
	return comparator.TextEqual("name", "en")
}

func (s *Sport) EqualComparator() comparator.Comparator {
	return comparator.All(
		comparator.RequiredKeys([]string{"name"}, []string{"new_name"}),
		comparator.AllLanguages("name"),
	)
}

func (s *Sport) CreateFields(context.Context, engine.Resolver) (ir.Fields, error) {
	return ir.Fields{"name": s.name}, nil
}

func (s *Sport) UpdateFields(ctx context.Context, r engine.Resolver) (ir.Fields, error) {
	fields, err := s.CreateFields(ctx, r)
	if err != nil {
		return nil, err
	}
	return updateShape(fields), nil
}

// EventGroup is a league or tournament below a sport.
type EventGroup struct {
	base
	def  *catalog.EventGroup
	name ir.LangList
}

func newEventGroup(t *Tree, parent int, def *catalog.EventGroup) *EventGroup {
	return &EventGroup{
		base: t.newBase(parent, def.Sport+"/"+def.Identifier, def.ID),
		def:  def,
		name: def.Name.LangList().With("identifier", def.Identifier),
	}
}

func (g *EventGroup) Schema() engine.Schema {
	return engine.Schema{
		Kind:        ir.KindEventGroup,
		Create:      ir.OpEventGroupCreate,
		Update:      ir.OpEventGroupUpdate,
		ParentField: "sport_id",
		TargetField: "event_group_id",
	}
}

func (g *EventGroup) Text(field string) ir.LangList {
	if field == "name" {
		return g.name
	}
	return nil
}

func (g *EventGroup) FindComparator() comparator.Comparator {
	return comparator.TextEqual("name", "en")
}

func (g *EventGroup) EqualComparator() comparator.Comparator {
	return comparator.All(
		comparator.RequiredKeys([]string{"name", "sport_id"}, []string{"new_name", "new_sport_id"}),
		comparator.AllLanguages("name"),
		comparator.ParentEqual("sport_id"),
	)
}

func (g *EventGroup) CreateFields(ctx context.Context, r engine.Resolver) (ir.Fields, error) {
	sportID, err := g.parentRef(ctx, r)
	if err != nil {
		return nil, err
	}
	return ir.Fields{"name": g.name, "sport_id": sportID}, nil
}

func (g *EventGroup) UpdateFields(ctx context.Context, r engine.Resolver) (ir.Fields, error) {
	fields, err := g.CreateFields(ctx, r)
	if err != nil {
		return nil, err
	}
	return updateShape(fields), nil
}
