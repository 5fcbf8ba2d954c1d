package ir

import (
	"encoding/json"
	"fmt"
	"maps"
	"strconv"
)

// UpdatePrefix is prepended to create-field names in update operations.
const UpdatePrefix = "new_"

// Fields is the field map of an operation or ledger object.
//
// Values are either Go values set by bosync (string, ObjectID, LangList,
// int, bool, nested Fields) or whatever encoding/json produced when the map
// was decoded from the ledger.
type Fields map[string]any

// Has reports whether key is present.
func (f Fields) Has(key string) bool {
	_, ok := f[key]
	return ok
}

// Lookup returns the value stored under name, falling back to the
// update-shaped "new_"+name.
func (f Fields) Lookup(name string) (any, bool) {
	if v, ok := f[name]; ok {
		return v, true
	}
	v, ok := f[UpdatePrefix+name]
	return v, ok
}

// String returns the string value of name (or its update form).
func (f Fields) String(name string) string {
	v, _ := f.Lookup(name)
	switch s := v.(type) {
	case string:
		return s
	case ObjectID:
		return string(s)
	case fmt.Stringer:
		return s.String()
	default:
		return ""
	}
}

// ObjectID returns the id stored under name (or its update form).
func (f Fields) ObjectID(name string) ObjectID {
	return ObjectID(f.String(name))
}

// Text returns the multi-language field name (or its update form).
func (f Fields) Text(name string) (LangList, error) {
	v, ok := f.Lookup(name)
	if !ok {
		return nil, nil
	}
	l, err := ParseLangList(v)
	if err != nil {
		return nil, fmt.Errorf("field %s: %w", name, err)
	}
	return l, nil
}

// Int returns the integer stored under name.
func (f Fields) Int(name string) (int64, bool) {
	v, ok := f.Lookup(name)
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	case string:
		i, err := strconv.ParseInt(n, 10, 64)
		return i, err == nil
	default:
		return 0, false
	}
}

// Clone returns a shallow copy.
func (f Fields) Clone() Fields {
	return maps.Clone(f)
}

// Decode re-encodes the map through encoding/json into out.
func (f Fields) Decode(out any) error {
	data, err := json.Marshal(f)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}
