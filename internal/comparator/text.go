package comparator

import (
	"strings"

	"github.com/roach88/bosync/internal/ir"
)

func observedText(s Subject, field string, observed ir.Fields) (ir.LangList, error) {
	l, err := observed.Text(field)
	if err != nil {
		return nil, &ShapeError{Identifier: s.Identifier(), Field: field, Keys: keysOf(observed), Err: err}
	}
	return l, nil
}

// TextEqual compares the listed languages of a multi-language field. Every
// language must be present on the canonical side and carry the same text
// on the observed side. With no languages, "en" is compared.
func TextEqual(field string, langs ...string) Comparator {
	if len(langs) == 0 {
		langs = []string{"en"}
	}
	return func(s Subject, observed ir.Fields) (bool, error) {
		got, err := observedText(s, field, observed)
		if err != nil || len(got) == 0 {
			return false, err
		}
		want := s.Text(field)
		for _, lang := range langs {
			w, ok := want.Get(lang)
			if !ok {
				return false, nil
			}
			if !got.Contains(ir.LangPair{Lang: lang, Text: w}) {
				return false, nil
			}
		}
		return true, nil
	}
}

// AllLanguages requires both sides to be non-empty and to hold exactly the
// same set of [language, text] pairs.
func AllLanguages(field string) Comparator {
	return func(s Subject, observed ir.Fields) (bool, error) {
		got, err := observedText(s, field, observed)
		if err != nil {
			return false, err
		}
		return sameSet(s.Text(field), got), nil
	}
}

// AllLanguagesIfPresent is AllLanguages that holds when either side has no
// value for the field.
func AllLanguagesIfPresent(field string) Comparator {
	return func(s Subject, observed ir.Fields) (bool, error) {
		got, err := observedText(s, field, observed)
		if err != nil {
			return false, err
		}
		want := s.Text(field)
		if len(want) == 0 || len(got) == 0 {
			return true, nil
		}
		return sameSet(want, got), nil
	}
}

// ExternalLanguages compares every real-language entry of the observed
// field against the canonical text. Pseudo-language keys (prefixed with
// "_") are ignored.
func ExternalLanguages(field string) Comparator {
	return func(s Subject, observed ir.Fields) (bool, error) {
		got, err := observedText(s, field, observed)
		if err != nil || len(got) == 0 {
			return false, err
		}
		want := s.Text(field)
		for _, p := range got {
			if strings.HasPrefix(p.Lang, ir.InternalPrefix) {
				continue
			}
			if !want.Contains(p) {
				return false, nil
			}
		}
		return true, nil
	}
}

func sameSet(a, b ir.LangList) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	for _, p := range a {
		if !b.Contains(p) {
			return false
		}
	}
	for _, p := range b {
		if !a.Contains(p) {
			return false
		}
	}
	return true
}
