package dynamic

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/bosync/internal/ir"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestSnapHandicap(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"1", "1.5"},
		{"1.2", "1.5"},
		{"1.5", "1.5"},
		{"1.9", "1.5"},
		{"-1", "-1.5"},
		{"-2.7", "-2.5"},
		{"0", "0.5"},
		{"0.3", "0.5"},
		{"-0.3", "-0.5"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.True(t, d(tt.want).Equal(SnapHandicap(d(tt.in))), "got %s", SnapHandicap(d(tt.in)))
		})
	}
}

func TestSnapOverUnder(t *testing.T) {
	assert.Equal(t, "3.5", SnapOverUnder(d("3")).String())
	assert.Equal(t, "3.5", SnapOverUnder(d("3.5")).String())
	assert.Equal(t, "3.5", SnapOverUnder(d("3.99")).String())
	assert.Equal(t, "5.5", SnapOverUnder(d("5.5")).String())
}

func TestSetHandicapSymmetry(t *testing.T) {
	for _, integer := range []bool{false, true} {
		for _, h := range []string{"0", "1", "-1", "2.5", "-3.2", "7"} {
			var fromHome, fromAway Params
			fromHome.IntegerMode = integer
			fromAway.IntegerMode = integer

			fromHome.SetHandicap(Home, d(h))
			fromAway.SetHandicap(Away, d(h).Neg())

			assert.True(t, fromHome.Home.Equal(fromAway.Home), "home for %s", h)
			assert.True(t, fromHome.Away.Equal(fromAway.Away), "away for %s", h)
			assert.True(t, fromHome.Away.Equal(fromHome.Home.Neg()), "away == -home for %s", h)
		}
	}
}

func TestSetHandicapIntegerMode(t *testing.T) {
	p := Params{Kind: KindHandicap, IntegerMode: true}
	p.SetHandicap(Home, d("1"))

	assert.Equal(t, "1", p.Home.String())
	assert.Equal(t, "-1", p.Away.String())

	p.SetHandicap(Away, d("2.7"))
	assert.Equal(t, "-2", p.Home.String())
	assert.Equal(t, "2", p.Away.String())
}

func TestAttachAndExtract(t *testing.T) {
	p := Params{Kind: KindHandicap, IntegerMode: true}
	p.SetHandicap(Home, d("1"))

	l := p.Attach(ir.LangList{{Lang: "en", Text: "Handicap (0:1)"}})
	assert.True(t, l.Contains(ir.LangPair{Lang: KeyDynamic, Text: "hc"}))
	assert.True(t, l.Contains(ir.LangPair{Lang: KeyHomeHandicap, Text: "1"}))
	assert.True(t, l.Contains(ir.LangPair{Lang: KeyAwayHandicap, Text: "-1"}))
	assert.Equal(t, ir.LangList{{Lang: "en", Text: "Handicap (0:1)"}}, l.External())

	got, ok, err := Extract(l)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, KindHandicap, got.Kind)
	assert.True(t, got.Home.Equal(d("1")))
	assert.True(t, got.Away.Equal(d("-1")))

	ou := Params{Kind: KindOverUnder}
	ou.SetOverUnder(d("3.5"))
	got, ok, err = Extract(ou.Attach(nil))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "3.5", got.Line.String())
}

func TestExtractWithoutDynamicTag(t *testing.T) {
	_, ok, err := Extract(ir.LangList{{Lang: "en", Text: "Moneyline"}})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestExtractMalformed(t *testing.T) {
	_, _, err := Extract(ir.LangList{{Lang: KeyDynamic, Text: "ou"}})
	assert.Error(t, err, "missing _ou")

	_, _, err = Extract(ir.LangList{{Lang: KeyDynamic, Text: "hc"}, {Lang: KeyHomeHandicap, Text: "x"}, {Lang: KeyAwayHandicap, Text: "1"}})
	assert.Error(t, err)
}

func TestAdopt(t *testing.T) {
	p := Params{Kind: KindHandicap}
	p.SetHandicap(Home, d("1"))

	ok := p.Adopt(Params{Kind: KindHandicap1X2, Home: d("2"), Away: d("-2")})
	assert.True(t, ok)
	assert.Equal(t, "2", p.Home.String(), "observed values are adopted verbatim")
	assert.Equal(t, "-2", p.Away.String())

	assert.False(t, p.Adopt(Params{Kind: KindOverUnder, Line: d("3.5")}))
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("HC")
	require.NoError(t, err)
	assert.Equal(t, KindHandicap, k)
	assert.True(t, k.IsHandicap())

	k, err = ParseKind("")
	require.NoError(t, err)
	assert.Equal(t, KindNone, k)

	_, err = ParseKind("spread")
	assert.Error(t, err)
}
