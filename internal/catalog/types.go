package catalog

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/roach88/bosync/internal/grading"
	"github.com/roach88/bosync/internal/ir"
)

// Text maps a language key to display text.
type Text map[string]string

// LangList returns the ledger form of t.
func (t Text) LangList() ir.LangList {
	return ir.LangListFromMap(t).Normalize()
}

// English returns the "en" entry.
func (t Text) English() string {
	return t["en"]
}

// Date is a calendar day. Both 2006-01-02 and 2006/01/02 are accepted.
type Date struct {
	time.Time
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Date) UnmarshalYAML(node *yaml.Node) error {
	t, err := ParseDate(node.Value)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

// ParseDate parses a catalog date as midnight UTC.
func ParseDate(s string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02", "2006/01/02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}

// Sport is the root of one catalog subtree.
type Sport struct {
	Version    string      `yaml:"version"`
	Kind       string      `yaml:"kind"`
	Identifier string      `yaml:"identifier"`
	ID         ir.ObjectID `yaml:"id"`
	Name       Text        `yaml:"name"`

	EventGroups  []*EventGroup   `yaml:"-"`
	Rules        []*Rule         `yaml:"-"`
	MarketGroups []*MarketGroup  `yaml:"-"`
	Participants []*Participants `yaml:"-"`
}

// EventGroup finds an event group by identifier, any of its names or an
// alias, ignoring case.
func (s *Sport) EventGroup(name string) (*EventGroup, bool) {
	for _, eg := range s.EventGroups {
		if eg.Matches(name) {
			return eg, true
		}
	}
	return nil, false
}

// Rule finds a rule by identifier.
func (s *Sport) Rule(identifier string) (*Rule, bool) {
	for _, r := range s.Rules {
		if strings.EqualFold(r.Identifier, identifier) {
			return r, true
		}
	}
	return nil, false
}

// MarketGroup finds a betting market group template by identifier.
func (s *Sport) MarketGroup(identifier string) (*MarketGroup, bool) {
	for _, g := range s.MarketGroups {
		if strings.EqualFold(g.Identifier, identifier) {
			return g, true
		}
	}
	return nil, false
}

// ParticipantList finds a participant list by identifier.
func (s *Sport) ParticipantList(identifier string) (*Participants, bool) {
	for _, p := range s.Participants {
		if strings.EqualFold(p.Identifier, identifier) {
			return p, true
		}
	}
	return nil, false
}

// EventScheme holds the templates event names are generated from.
type EventScheme struct {
	Name Text `yaml:"name"`
}

// EventGroup is a league or tournament.
type EventGroup struct {
	Version      string      `yaml:"version"`
	Kind         string      `yaml:"kind"`
	Sport        string      `yaml:"sport"`
	Identifier   string      `yaml:"identifier"`
	ID           ir.ObjectID `yaml:"id"`
	Name         Text        `yaml:"name"`
	Aliases      []string    `yaml:"aliases"`
	Participants string      `yaml:"participants"`
	MarketGroups []string    `yaml:"bettingmarketgroups"`
	EventScheme  EventScheme `yaml:"eventscheme"`
	StartDate    *Date       `yaml:"start_date"`
	FinishDate   *Date       `yaml:"finish_date"`
	LeadTimeMax  int         `yaml:"leadtime_Max"`
}

// Matches reports whether name refers to g.
func (g *EventGroup) Matches(name string) bool {
	if strings.EqualFold(g.Identifier, name) {
		return true
	}
	for _, text := range g.Name {
		if strings.EqualFold(text, name) {
			return true
		}
	}
	return slices.ContainsFunc(g.Aliases, func(a string) bool {
		return strings.EqualFold(a, name)
	})
}

// CanOpen reports whether an event starting at start may be created in
// g. Without a start date, finish date and lead time every event may
// open.
func (g *EventGroup) CanOpen(start time.Time) bool {
	if g.StartDate == nil || g.FinishDate == nil || g.LeadTimeMax == 0 {
		return true
	}
	opens := g.StartDate.AddDate(0, 0, -g.LeadTimeMax)
	return start.After(opens) && start.Before(g.FinishDate.Time)
}

// Rule is a grading rule.
type Rule struct {
	Version     string          `yaml:"version"`
	Kind        string          `yaml:"kind"`
	Sport       string          `yaml:"sport"`
	Identifier  string          `yaml:"identifier"`
	ID          ir.ObjectID     `yaml:"id"`
	Name        Text            `yaml:"name"`
	Description Text            `yaml:"description"`
	Grading     grading.Grading `yaml:"grading"`
}

// MarketTemplate is one betting market of a group template.
type MarketTemplate struct {
	Description Text `yaml:"description"`
}

// MarketGroup is a betting market group template instantiated for every
// event of the event groups listing it.
type MarketGroup struct {
	Version              string            `yaml:"version"`
	Kind                 string            `yaml:"kind"`
	Sport                string            `yaml:"sport"`
	Identifier           string            `yaml:"identifier"`
	Description          Text              `yaml:"description"`
	Asset                string            `yaml:"asset"`
	Rules                string            `yaml:"rules"`
	Status               string            `yaml:"status"`
	Dynamic              string            `yaml:"dynamic"`
	Handicaps            []decimal.Decimal `yaml:"handicaps"`
	OverUnder            *decimal.Decimal  `yaml:"overunder"`
	IsInteger            bool              `yaml:"is_integer"`
	Fuzzy                *decimal.Decimal  `yaml:"fuzzy"`
	NumberBettingMarkets int               `yaml:"number_betting_markets"`
	DelayBeforeSettling  int               `yaml:"delay_before_settling"`
	NeverInPlay          bool              `yaml:"never_in_play"`
	BettingMarkets       []MarketTemplate  `yaml:"bettingmarkets"`
}

// Tolerance returns the fuzzy matching tolerance, zero when unset.
func (g *MarketGroup) Tolerance() decimal.Decimal {
	if g.Fuzzy == nil {
		return decimal.Zero
	}
	return *g.Fuzzy
}

// Team is a participant with optional aliases.
type Team struct {
	Name    string   `yaml:"name"`
	Aliases []string `yaml:"aliases"`
}

// Participants lists the teams allowed in the event groups referencing
// it.
type Participants struct {
	Version    string `yaml:"version"`
	Kind       string `yaml:"kind"`
	Sport      string `yaml:"sport"`
	Identifier string `yaml:"identifier"`
	Teams      []Team `yaml:"teams"`
}

// Canonical returns the listed name of team, matching names and aliases
// without regard to case.
func (p *Participants) Canonical(team string) (string, bool) {
	for _, t := range p.Teams {
		if strings.EqualFold(t.Name, team) {
			return t.Name, true
		}
		for _, a := range t.Aliases {
			if strings.EqualFold(a, team) {
				return t.Name, true
			}
		}
	}
	return "", false
}

// Catalog is the loaded dataset.
type Catalog struct {
	Dir    string
	Files  int
	Sports []*Sport
}

// Sport finds a sport by identifier or any of its names, ignoring case.
func (c *Catalog) Sport(name string) (*Sport, bool) {
	for _, s := range c.Sports {
		if strings.EqualFold(s.Identifier, name) {
			return s, true
		}
		for _, text := range s.Name {
			if strings.EqualFold(text, name) {
				return s, true
			}
		}
	}
	return nil, false
}
