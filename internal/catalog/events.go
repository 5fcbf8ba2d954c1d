package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/roach88/bosync/internal/ir"
)

// Override replaces the default dynamic parameters of one market group
// for one event.
type Override struct {
	Handicaps []decimal.Decimal `yaml:"handicaps"`
	OverUnder *decimal.Decimal  `yaml:"overunder"`
}

// EventDef is one event of the runtime events file. The first team is
// the home team.
type EventDef struct {
	Teams        []string            `yaml:"teams"`
	Sport        string              `yaml:"sport"`
	EventGroup   string              `yaml:"eventgroup"`
	StartTime    string              `yaml:"start_time"`
	Season       Text                `yaml:"season"`
	Status       string              `yaml:"status"`
	Scores       []string            `yaml:"scores"`
	Result       []int64             `yaml:"result"`
	ID           ir.ObjectID         `yaml:"id"`
	MarketGroups map[string]Override `yaml:"bettingmarketgroups"`

	// Start is StartTime parsed, in UTC.
	Start time.Time `yaml:"-"`
}

// HasResult reports whether a final result was supplied.
func (e *EventDef) HasResult() bool {
	return len(e.Result) == 2
}

// Override returns the parameter override for market group identifier.
func (e *EventDef) Override(identifier string) (Override, bool) {
	for name, o := range e.MarketGroups {
		if strings.EqualFold(name, identifier) {
			return o, true
		}
	}
	return Override{}, false
}

// LoadEvents reads and validates the events file at path.
func LoadEvents(path string) ([]*EventDef, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read events: %w", err)
	}
	return ParseEvents(filepath.Base(path), data)
}

// ParseEvents validates and decodes an events document. name is used in
// error messages.
func ParseEvents(name string, data []byte) ([]*EventDef, error) {
	l, err := newLoader()
	if err != nil {
		return nil, err
	}
	if errs := l.validator.check(l.validator.events, name, data); len(errs) > 0 {
		return nil, errs
	}

	var doc struct {
		Version string      `yaml:"version"`
		Events  []*EventDef `yaml:"events"`
	}
	if err := decodeStrict(data, &doc); err != nil {
		return nil, &ValidationError{File: name, Message: err.Error()}
	}
	if doc.Version != "" {
		if e := l.checkVersion(name, doc.Version); e != nil {
			return nil, e
		}
	}

	var errs ValidationErrors
	for i, ev := range doc.Events {
		start, err := ir.ParseTime(ev.StartTime)
		if err != nil {
			errs = append(errs, &ValidationError{
				File:    name,
				Path:    fmt.Sprintf("events.%d.start_time", i),
				Message: err.Error(),
			})
			continue
		}
		ev.Start = start
	}
	if len(errs) > 0 {
		return nil, errs
	}
	return doc.Events, nil
}
