package comparator

import (
	"time"

	"github.com/roach88/bosync/internal/ir"
)

// Subject is the canonical side of a comparison.
type Subject interface {
	// Identifier is a human-readable name used in logs and errors.
	Identifier() string

	// Text returns the canonical multi-language field, including
	// pseudo-language keys.
	Text(field string) ir.LangList

	// Status returns the canonical status, or "" for no opinion.
	Status() string

	// ParentID returns the resolved ledger id of the parent, or "".
	ParentID() ir.ObjectID
}

// Scheduled is implemented by subjects with a start time.
type Scheduled interface {
	StartTime() time.Time
}

// Comparator reports whether observed is equivalent to s.
type Comparator func(s Subject, observed ir.Fields) (bool, error)

// All is satisfied when every comparator is. It stops at the first
// mismatch or error.
func All(cmps ...Comparator) Comparator {
	return func(s Subject, observed ir.Fields) (bool, error) {
		for _, cmp := range cmps {
			ok, err := cmp(s, observed)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	}
}

// Any is satisfied when at least one comparator is. Errors abort.
func Any(cmps ...Comparator) Comparator {
	return func(s Subject, observed ir.Fields) (bool, error) {
		for _, cmp := range cmps {
			ok, err := cmp(s, observed)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	}
}

// RequiredKeys recognizes the payload shape. Each argument lists the keys
// of one supported operation shape; a shape is recognized when any of its
// keys is present. A payload with no recognized shape is a ShapeError.
func RequiredKeys(shapes ...[]string) Comparator {
	return func(s Subject, observed ir.Fields) (bool, error) {
		for _, shape := range shapes {
			for _, key := range shape {
				if observed.Has(key) {
					return true, nil
				}
			}
		}
		return false, &ShapeError{Identifier: s.Identifier(), Shapes: shapes, Keys: keysOf(observed)}
	}
}

// StatusEqual holds when the canonical side has no status opinion or both
// sides carry the same status.
func StatusEqual() Comparator {
	return func(s Subject, observed ir.Fields) (bool, error) {
		want := s.Status()
		if want == "" {
			return true, nil
		}
		return observed.String("status") == want, nil
	}
}

// ParentEqual holds when the observed parent reference in field is not a
// resolved id yet (absent or a provisional space-0 placeholder) or equals
// the canonical parent's id.
func ParentEqual(field string) Comparator {
	return func(s Subject, observed ir.Fields) (bool, error) {
		got := observed.ObjectID(field)
		if !got.IsResolved() {
			return true, nil
		}
		return got == s.ParentID(), nil
	}
}

// StartTimeEqual holds when either side has no start time or both agree
// to the second.
func StartTimeEqual() Comparator {
	return func(s Subject, observed ir.Fields) (bool, error) {
		sched, ok := s.(Scheduled)
		if !ok || sched.StartTime().IsZero() {
			return true, nil
		}
		raw := observed.String("start_time")
		if raw == "" {
			return true, nil
		}
		got, err := ir.ParseTime(raw)
		if err != nil {
			return false, err
		}
		return got.Equal(sched.StartTime().UTC().Truncate(time.Second)), nil
	}
}
