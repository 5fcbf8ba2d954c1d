package entity

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/bosync/internal/catalog"
	"github.com/roach88/bosync/internal/comparator"
	"github.com/roach88/bosync/internal/dynamic"
	"github.com/roach88/bosync/internal/engine"
	"github.com/roach88/bosync/internal/ir"
)

// Event is a match between a home and an away team.
type Event struct {
	base
	def    *catalog.EventDef
	teams  [2]string
	name   ir.LangList
	season ir.LangList
	groups []*MarketGroup
}

func newEvent(t *Tree, parent int, eg *catalog.EventGroup, def *catalog.EventDef, teams [2]string) (*Event, error) {
	name, err := dynamic.ExpandText(eg.EventScheme.Name.LangList(), dynamic.Vars{Teams: teams})
	if err != nil {
		return nil, fmt.Errorf("event group %s: event scheme: %w", eg.Identifier, err)
	}
	identifier := fmt.Sprintf("%s/%s/%s/%s/%s",
		eg.Sport, eg.Identifier, teams[0], teams[1], ir.FormatTime(def.Start))
	return &Event{
		base:   t.newBase(parent, identifier, def.ID),
		def:    def,
		teams:  teams,
		name:   name.Normalize(),
		season: def.Season.LangList(),
	}, nil
}

// Teams returns the participant names, home team first.
func (e *Event) Teams() [2]string {
	return e.teams
}

// StartTime implements comparator.Scheduled.
func (e *Event) StartTime() time.Time {
	return e.def.Start
}

// MarketGroups returns the betting market groups of the event.
func (e *Event) MarketGroups() []*MarketGroup {
	return e.groups
}

func (e *Event) Schema() engine.Schema {
	return engine.Schema{
		Kind:        ir.KindEvent,
		Create:      ir.OpEventCreate,
		Update:      ir.OpEventUpdate,
		ParentField: "event_group_id",
		TargetField: "event_id",
	}
}

func (e *Event) Text(field string) ir.LangList {
	switch field {
	case "name":
		return e.name
	case "season":
		return e.season
	}
	return nil
}

func (e *Event) FindComparator() comparator.Comparator {
	return comparator.All(
		comparator.TextEqual("name", "en"),
		comparator.StartTimeEqual(),
	)
}

func (e *Event) EqualComparator() comparator.Comparator {
	return comparator.All(
		comparator.RequiredKeys([]string{"name", "event_group_id"}, []string{"new_name", "new_event_group_id"}),
		comparator.AllLanguages("name"),
		comparator.AllLanguagesIfPresent("season"),
		comparator.ParentEqual("event_group_id"),
		comparator.StartTimeEqual(),
	)
}

func (e *Event) CreateFields(ctx context.Context, r engine.Resolver) (ir.Fields, error) {
	groupID, err := e.parentRef(ctx, r)
	if err != nil {
		return nil, err
	}
	fields := ir.Fields{
		"name":           e.name,
		"start_time":     ir.FormatTime(e.def.Start),
		"event_group_id": groupID,
	}
	if len(e.season) > 0 {
		fields["season"] = e.season
	}
	return fields, nil
}

func (e *Event) UpdateFields(ctx context.Context, r engine.Resolver) (ir.Fields, error) {
	fields, err := e.CreateFields(ctx, r)
	if err != nil {
		return nil, err
	}
	return updateShape(fields), nil
}

// EventStatus updates the status and scores of a resolved event. It has
// no create operation: an event without id cannot be updated.
type EventStatus struct {
	base
	event *Event
}

func newEventStatus(t *Tree, parent int, e *Event) *EventStatus {
	return &EventStatus{
		base:  t.newBase(parent, e.Identifier()+"::status", ""),
		event: e,
	}
}

func (s *EventStatus) ID() ir.ObjectID { return s.event.ID() }

func (s *EventStatus) SetID(id ir.ObjectID) {
	s.event.SetID(id)
}

func (s *EventStatus) Status() string { return s.event.def.Status }

func (s *EventStatus) Schema() engine.Schema {
	return engine.Schema{
		Kind:        ir.KindEvent,
		Update:      ir.OpEventUpdateStatus,
		TargetField: "event_id",
	}
}

func (s *EventStatus) Text(string) ir.LangList { return nil }

func (s *EventStatus) FindComparator() comparator.Comparator { return nil }

func (s *EventStatus) EqualComparator() comparator.Comparator {
	return comparator.All(
		comparator.RequiredKeys([]string{"status"}),
		comparator.StatusEqual(),
		s.scoresEqual,
	)
}

// Synced compares the event object without requiring a status field:
// events created elsewhere may not carry one yet.
func (s *EventStatus) Synced(observed ir.Fields) (bool, error) {
	if observed.String("status") != s.Status() {
		return false, nil
	}
	return s.scoresEqual(s, observed)
}

func (s *EventStatus) scoresEqual(_ comparator.Subject, observed ir.Fields) (bool, error) {
	want := s.event.def.Scores
	if len(want) == 0 {
		return true, nil
	}
	v, _ := observed.Lookup("scores")
	got := stringList(v)
	if len(got) != len(want) {
		return false, nil
	}
	for i := range want {
		if got[i] != want[i] {
			return false, nil
		}
	}
	return true, nil
}

func (s *EventStatus) CreateFields(context.Context, engine.Resolver) (ir.Fields, error) {
	return nil, fmt.Errorf("%s: status updates have no create operation", s.Identifier())
}

func (s *EventStatus) UpdateFields(context.Context, engine.Resolver) (ir.Fields, error) {
	fields := ir.Fields{"status": s.Status()}
	if len(s.event.def.Scores) > 0 {
		fields["scores"] = s.event.def.Scores
	}
	return fields, nil
}

// stringList converts a decoded JSON array or a []string to strings.
func stringList(v any) []string {
	switch l := v.(type) {
	case []string:
		return l
	case []any:
		out := make([]string, len(l))
		for i, x := range l {
			out[i] = fmt.Sprint(x)
		}
		return out
	default:
		return nil
	}
}
