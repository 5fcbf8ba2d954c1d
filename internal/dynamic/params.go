package dynamic

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/roach88/bosync/internal/ir"
)

// Kind tags the type of dynamic parameter a market group carries.
type Kind string

const (
	KindNone        Kind = ""
	KindHandicap    Kind = "hc"
	KindHandicap1X2 Kind = "1x2_hc"
	KindOverUnder   Kind = "ou"
)

// Pseudo-language keys carrying dynamic parameters.
const (
	KeyDynamic      = "_dynamic"
	KeyHomeHandicap = "_hch"
	KeyAwayHandicap = "_hca"
	KeyOverUnder    = "_ou"
)

// ParseKind validates a dynamic kind tag. The empty string is KindNone.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindNone, KindHandicap, KindHandicap1X2, KindOverUnder:
		return k, nil
	default:
		return KindNone, fmt.Errorf("unknown dynamic kind %q", s)
	}
}

// IsHandicap reports whether k carries a handicap pair.
func (k Kind) IsHandicap() bool {
	return k == KindHandicap || k == KindHandicap1X2
}

// IsOverUnder reports whether k carries an over/under line.
func (k Kind) IsOverUnder() bool {
	return k == KindOverUnder
}

// Side selects the team a handicap value is given for.
type Side int

const (
	Home Side = iota
	Away
)

var half = decimal.NewFromFloat(0.5)

// SnapHandicap moves x to the nearest half point away from zero:
// sign(x) * (floor(|x|) + 0.5). Zero snaps to +0.5.
func SnapHandicap(x decimal.Decimal) decimal.Decimal {
	snapped := x.Abs().Floor().Add(half)
	if x.IsNegative() {
		return snapped.Neg()
	}
	return snapped
}

// SnapOverUnder returns floor(x) + 0.5.
func SnapOverUnder(x decimal.Decimal) decimal.Decimal {
	return x.Floor().Add(half)
}

// Params holds the dynamic parameters of one market group.
type Params struct {
	Kind Kind

	// Home and Away form the handicap pair; Away == -Home.
	Home decimal.Decimal
	Away decimal.Decimal

	// Line is the over/under line.
	Line decimal.Decimal

	// IntegerMode keeps whole-number handicaps instead of snapping them.
	IntegerMode bool
}

// SetHandicap sets the pair from one side and derives the other by
// negation. The result is canonical: snapped (or truncated in integer
// mode) and symmetric.
func (p *Params) SetHandicap(side Side, v decimal.Decimal) {
	home := v
	if side == Away {
		home = v.Neg()
	}
	if p.IntegerMode {
		home = home.Truncate(0)
	} else {
		home = SnapHandicap(home)
	}
	p.Home = home
	p.Away = home.Neg()
}

// SetOverUnder sets the canonical over/under line.
func (p *Params) SetOverUnder(v decimal.Decimal) {
	p.Line = SnapOverUnder(v)
}

// Adopt copies the parameter values observed on the ledger. Observed
// values are taken verbatim: they are what the ledger already carries.
func (p *Params) Adopt(observed Params) bool {
	switch {
	case p.Kind.IsHandicap() && observed.Kind.IsHandicap():
		p.Home = observed.Home
		p.Away = observed.Home.Neg()
		return true
	case p.Kind.IsOverUnder() && observed.Kind.IsOverUnder():
		p.Line = observed.Line
		return true
	default:
		return false
	}
}

// Attach returns l extended with the pseudo-language keys describing p.
func (p Params) Attach(l ir.LangList) ir.LangList {
	switch {
	case p.Kind.IsHandicap():
		return l.With(KeyDynamic, string(p.Kind)).
			With(KeyHomeHandicap, p.Home.String()).
			With(KeyAwayHandicap, p.Away.String())
	case p.Kind.IsOverUnder():
		return l.With(KeyDynamic, string(p.Kind)).
			With(KeyOverUnder, p.Line.String())
	default:
		return l
	}
}

// Extract reads the pseudo-language keys of a description. ok is false
// when the description carries no dynamic kind tag.
func Extract(l ir.LangList) (p Params, ok bool, err error) {
	tag, found := l.Get(KeyDynamic)
	if !found {
		return Params{}, false, nil
	}
	p.Kind = Kind(strings.ToLower(tag))
	switch {
	case p.Kind.IsHandicap():
		if p.Home, err = parseKey(l, KeyHomeHandicap); err != nil {
			return Params{}, false, err
		}
		if p.Away, err = parseKey(l, KeyAwayHandicap); err != nil {
			return Params{}, false, err
		}
	case p.Kind.IsOverUnder():
		if p.Line, err = parseKey(l, KeyOverUnder); err != nil {
			return Params{}, false, err
		}
	}
	return p, true, nil
}

func parseKey(l ir.LangList, key string) (decimal.Decimal, error) {
	raw, ok := l.Get(key)
	if !ok {
		return decimal.Zero, fmt.Errorf("dynamic description lacks %s", key)
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
