package catalog

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"
)

// SupportedVersions is the range of document format versions this build
// reads.
const SupportedVersions = ">= 1.0.0, < 2.0.0"

var documentPatterns = []string{"**/*.yaml", "**/*.yml"}

// Discover returns the slash-separated paths, relative to dir, of every
// catalog document below dir in lexical order.
func Discover(dir string) ([]string, error) {
	fsys := os.DirFS(dir)
	var files []string
	for _, pattern := range documentPatterns {
		matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("glob %s: %w", pattern, err)
		}
		files = append(files, matches...)
	}
	slices.Sort(files)
	return slices.Compact(files), nil
}

// Load reads, validates and links the catalog below dir. Validation
// problems of all documents are returned together as ValidationErrors.
func Load(dir string) (*Catalog, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("catalog directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("catalog directory: %s is not a directory", dir)
	}

	files, err := Discover(dir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no catalog documents found in %s", dir)
	}

	l, err := newLoader()
	if err != nil {
		return nil, err
	}

	var errs ValidationErrors
	for _, name := range files {
		data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(name)))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		errs = append(errs, l.add(name, data)...)
	}
	if len(errs) == 0 {
		errs = l.link()
	}
	if len(errs) > 0 {
		return nil, errs
	}

	slog.Debug("catalog loaded",
		"dir", dir,
		"files", len(files),
		"sports", len(l.sports),
	)
	return &Catalog{Dir: dir, Files: len(files), Sports: l.sports}, nil
}

type loader struct {
	validator *validator
	versions  *semver.Constraints

	sports       []*Sport
	eventGroups  []*EventGroup
	rules        []*Rule
	marketGroups []*MarketGroup
	participants []*Participants
	files        map[any]string
}

func newLoader() (*loader, error) {
	v, err := newValidator()
	if err != nil {
		return nil, err
	}
	c, err := semver.NewConstraint(SupportedVersions)
	if err != nil {
		return nil, err
	}
	return &loader{validator: v, versions: c, files: make(map[any]string)}, nil
}

func (l *loader) checkVersion(file, version string) *ValidationError {
	v, err := semver.NewVersion(version)
	if err != nil {
		return &ValidationError{File: file, Path: "version", Message: fmt.Sprintf("invalid version %q: %v", version, err)}
	}
	if !l.versions.Check(v) {
		return &ValidationError{File: file, Path: "version", Message: fmt.Sprintf("version %s is not supported (want %s)", v, SupportedVersions)}
	}
	return nil
}

// decodeStrict decodes one YAML document, rejecting unknown keys.
func decodeStrict(data []byte, out any) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (l *loader) add(file string, data []byte) ValidationErrors {
	if errs := l.validator.check(l.validator.document, file, data); len(errs) > 0 {
		return errs
	}

	var head struct {
		Kind    string `yaml:"kind"`
		Version string `yaml:"version"`
	}
	if err := yaml.Unmarshal(data, &head); err != nil {
		return ValidationErrors{{File: file, Message: err.Error()}}
	}
	if e := l.checkVersion(file, head.Version); e != nil {
		return ValidationErrors{e}
	}

	var doc any
	switch head.Kind {
	case "sport":
		doc = &Sport{}
	case "eventgroup":
		doc = &EventGroup{}
	case "rule":
		doc = &Rule{}
	case "bettingmarketgroup":
		doc = &MarketGroup{}
	case "participants":
		doc = &Participants{}
	default:
		return ValidationErrors{{File: file, Path: "kind", Message: fmt.Sprintf("unknown document kind %q", head.Kind)}}
	}
	if err := decodeStrict(data, doc); err != nil {
		return ValidationErrors{{File: file, Message: err.Error()}}
	}

	switch d := doc.(type) {
	case *Sport:
		l.sports = append(l.sports, d)
	case *EventGroup:
		l.eventGroups = append(l.eventGroups, d)
	case *Rule:
		l.rules = append(l.rules, d)
	case *MarketGroup:
		l.marketGroups = append(l.marketGroups, d)
	case *Participants:
		l.participants = append(l.participants, d)
	}
	l.files[doc] = file
	return nil
}

// link attaches documents to their sport and checks cross references.
func (l *loader) link() ValidationErrors {
	var errs ValidationErrors
	fail := func(doc any, path, format string, args ...any) {
		errs = append(errs, &ValidationError{File: l.files[doc], Path: path, Message: fmt.Sprintf(format, args...)})
	}

	bySport := make(map[string]*Sport, len(l.sports))
	for _, s := range l.sports {
		key := strings.ToLower(s.Identifier)
		if _, dup := bySport[key]; dup {
			fail(s, "identifier", "duplicate sport %q", s.Identifier)
			continue
		}
		bySport[key] = s
	}
	sportOf := func(doc any, name string) *Sport {
		s, ok := bySport[strings.ToLower(name)]
		if !ok {
			fail(doc, "sport", "unknown sport %q", name)
		}
		return s
	}

	for _, p := range l.participants {
		if s := sportOf(p, p.Sport); s != nil {
			if _, dup := s.ParticipantList(p.Identifier); dup {
				fail(p, "identifier", "duplicate participant list %q", p.Identifier)
				continue
			}
			s.Participants = append(s.Participants, p)
		}
	}

	for _, r := range l.rules {
		s := sportOf(r, r.Sport)
		if s == nil {
			continue
		}
		if _, dup := s.Rule(r.Identifier); dup {
			fail(r, "identifier", "duplicate rule %q", r.Identifier)
			continue
		}
		if err := r.Grading.Validate(); err != nil {
			fail(r, "grading", "%v", err)
		}
		s.Rules = append(s.Rules, r)
	}

	for _, g := range l.marketGroups {
		s := sportOf(g, g.Sport)
		if s == nil {
			continue
		}
		if _, dup := s.MarketGroup(g.Identifier); dup {
			fail(g, "identifier", "duplicate betting market group %q", g.Identifier)
			continue
		}
		rule, ok := s.Rule(g.Rules)
		if !ok {
			fail(g, "rules", "unknown rule %q", g.Rules)
		}
		if g.NumberBettingMarkets != len(g.BettingMarkets) {
			slog.Error("declared number of betting markets differs from templates",
				"file", l.files[g],
				"group", g.Identifier,
				"declared", g.NumberBettingMarkets,
				"templates", len(g.BettingMarkets),
			)
		}
		if ok && len(rule.Grading.Resolutions) > len(g.BettingMarkets) {
			fail(g, "bettingmarkets", "rule %s grades %d markets, group has %d",
				rule.Identifier, len(rule.Grading.Resolutions), len(g.BettingMarkets))
		}
		s.MarketGroups = append(s.MarketGroups, g)
	}

	for _, g := range l.eventGroups {
		s := sportOf(g, g.Sport)
		if s == nil {
			continue
		}
		if _, dup := s.EventGroup(g.Identifier); dup {
			fail(g, "identifier", "duplicate event group %q", g.Identifier)
			continue
		}
		if _, ok := s.ParticipantList(g.Participants); !ok {
			fail(g, "participants", "unknown participant list %q", g.Participants)
		}
		for i, name := range g.MarketGroups {
			if _, ok := s.MarketGroup(name); !ok {
				fail(g, fmt.Sprintf("bettingmarketgroups.%d", i), "unknown betting market group %q", name)
			}
		}
		if g.StartDate != nil && g.FinishDate != nil && g.FinishDate.Before(g.StartDate.Time) {
			fail(g, "finish_date", "finish date before start date")
		}
		s.EventGroups = append(s.EventGroups, g)
	}

	slices.SortFunc(l.sports, func(a, b *Sport) int {
		return strings.Compare(a.Identifier, b.Identifier)
	})
	return errs
}
