package ir

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// InternalPrefix marks pseudo-language keys that carry machine data
// (dynamic parameters, identifiers, grading) instead of display text.
const InternalPrefix = "_"

// LangPair is one [language, text] entry of a multi-language field.
type LangPair struct {
	Lang string
	Text string
}

// LangList is a multi-language text field. On the wire it is a list of
// two-element lists: [["en", "Basketball"], ["de", "Basketball"]].
type LangList []LangPair

// LangListFromMap builds a LangList sorted by language key.
func LangListFromMap(m map[string]string) LangList {
	out := make(LangList, 0, len(m))
	for lang, text := range m {
		out = append(out, LangPair{Lang: lang, Text: text})
	}
	out.sort()
	return out
}

func (l LangList) sort() {
	slices.SortFunc(l, func(a, b LangPair) int {
		if c := strings.Compare(a.Lang, b.Lang); c != 0 {
			return c
		}
		return strings.Compare(a.Text, b.Text)
	})
}

// Get returns the text for lang.
func (l LangList) Get(lang string) (string, bool) {
	for _, p := range l {
		if p.Lang == lang {
			return p.Text, true
		}
	}
	return "", false
}

// Contains reports whether the exact pair is present.
func (l LangList) Contains(p LangPair) bool {
	return slices.Contains(l, p)
}

// With returns a copy of l with lang set to text, keeping key order sorted.
func (l LangList) With(lang, text string) LangList {
	out := make(LangList, 0, len(l)+1)
	for _, p := range l {
		if p.Lang != lang {
			out = append(out, p)
		}
	}
	out = append(out, LangPair{Lang: lang, Text: text})
	out.sort()
	return out
}

// External returns the pairs whose key is a real language.
func (l LangList) External() LangList {
	out := make(LangList, 0, len(l))
	for _, p := range l {
		if !strings.HasPrefix(p.Lang, InternalPrefix) {
			out = append(out, p)
		}
	}
	return out
}

// Map returns the list as a language → text map.
func (l LangList) Map() map[string]string {
	m := make(map[string]string, len(l))
	for _, p := range l {
		m[p.Lang] = p.Text
	}
	return m
}

// Normalize returns a copy with every key and text in Unicode NFC.
func (l LangList) Normalize() LangList {
	out := make(LangList, len(l))
	for i, p := range l {
		out[i] = LangPair{Lang: norm.NFC.String(p.Lang), Text: norm.NFC.String(p.Text)}
	}
	return out
}

// MarshalJSON encodes the double-list wire form.
func (l LangList) MarshalJSON() ([]byte, error) {
	pairs := make([][2]string, len(l))
	for i, p := range l {
		pairs[i] = [2]string{p.Lang, p.Text}
	}
	return json.Marshal(pairs)
}

// UnmarshalJSON decodes the double-list wire form.
func (l *LangList) UnmarshalJSON(data []byte) error {
	var pairs [][2]string
	if err := json.Unmarshal(data, &pairs); err != nil {
		return fmt.Errorf("multi-language field: %w", err)
	}
	out := make(LangList, len(pairs))
	for i, p := range pairs {
		out[i] = LangPair{Lang: p[0], Text: p[1]}
	}
	*l = out
	return nil
}

// ParseLangList converts a decoded field value into a LangList. It accepts
// a LangList, a list of two-element lists, or a language → text map.
func ParseLangList(v any) (LangList, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case LangList:
		return val, nil
	case map[string]string:
		return LangListFromMap(val), nil
	case [][2]string:
		out := make(LangList, len(val))
		for i, p := range val {
			out[i] = LangPair{Lang: p[0], Text: p[1]}
		}
		return out, nil
	case []any:
		out := make(LangList, 0, len(val))
		for i, item := range val {
			pair, ok := item.([]any)
			if !ok || len(pair) != 2 {
				return nil, fmt.Errorf("entry %d: want [language, text]", i)
			}
			lang, ok1 := pair[0].(string)
			text, ok2 := pair[1].(string)
			if !ok1 || !ok2 {
				return nil, fmt.Errorf("entry %d: language and text must be strings", i)
			}
			out = append(out, LangPair{Lang: lang, Text: text})
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported multi-language value %T", v)
	}
}
