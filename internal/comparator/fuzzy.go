package comparator

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/roach88/bosync/internal/dynamic"
	"github.com/roach88/bosync/internal/ir"
)

// FuzzyDynamicMatch compares the dynamic parameters stored under the
// pseudo-language keys of field. Both sides must carry the same dynamic
// kind. Handicap pairs match when home and away each lie within
// ±tolerance of the canonical values; over/under lines when the line does.
// Bounds are inclusive, so a tolerance of zero means exact equality.
func FuzzyDynamicMatch(field string, tolerance decimal.Decimal) Comparator {
	return func(s Subject, observed ir.Fields) (bool, error) {
		got, err := observedText(s, field, observed)
		if err != nil || len(got) == 0 {
			return false, err
		}
		want, ok, err := dynamic.Extract(s.Text(field))
		if err != nil {
			return false, fmt.Errorf("%s: canonical %w", s.Identifier(), err)
		}
		if !ok {
			return false, nil
		}
		have, ok, err := dynamic.Extract(got)
		if err != nil {
			return false, &ShapeError{Identifier: s.Identifier(), Field: field, Keys: keysOf(observed), Err: err}
		}
		if !ok || have.Kind != want.Kind {
			return false, nil
		}

		switch {
		case want.Kind.IsHandicap():
			return within(have.Home, want.Home, tolerance) && within(have.Away, want.Away, tolerance), nil
		case want.Kind.IsOverUnder():
			return within(have.Line, want.Line, tolerance), nil
		default:
			return false, fmt.Errorf("%s: unsupported dynamic kind %q", s.Identifier(), want.Kind)
		}
	}
}

func within(x, center, tolerance decimal.Decimal) bool {
	return x.GreaterThanOrEqual(center.Sub(tolerance)) && x.LessThanOrEqual(center.Add(tolerance))
}
