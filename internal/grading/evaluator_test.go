package grading

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEvaluator(t *testing.T) *Evaluator {
	t.Helper()
	e, err := NewEvaluator()
	require.NoError(t, err)
	return e
}

func TestTranslate(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"(0 + 0) - (0 + 1)", "( 0.0 + 0.0 ) - ( 0.0 + 1.0 )"},
		{"-1 > 0", "- 1.0 > 0.0"},
		{"7 <= 3.5", "7.0 <= 3.5"},
		{"1 != 2", "1.0 != 2.0"},
		{"False", "false"},
		{"True and 1 == 1", "true && 1.0 == 1.0"},
		{"not 1 > 0 or True", "!( 1.0 > 0.0 ) || true"},
		{"(not 1 > 0) and True", "( !( 1.0 > 0.0 ) ) && true"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := translate(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTranslateRejects(t *testing.T) {
	tests := []string{
		"",
		"x > 1",
		"__import__('os')",
		"2 ** 10",
		"7 // 2",
		"1 = 1",
		"[1, 2]",
		"\"a\" == \"a\"",
		"(1 + 2",
		"1 + 2)",
		"size(1)",
		"1 ? 2 : 3",
	}
	for _, in := range tests {
		t.Run(in, func(t *testing.T) {
			_, err := translate(in)
			require.Error(t, err)
			assert.True(t, IsExpressionError(err))
		})
	}
}

func TestEvaluatorNumber(t *testing.T) {
	e := newTestEvaluator(t)

	tests := []struct {
		expr string
		want string
	}{
		{"(0 + 0) - (0 + 1)", "-1"},
		{"(4 + 0) - (3 + 1.5)", "-0.5"},
		{"3 + 4", "7"},
		{"7 / 2", "3.5"},
		{"2 * -3", "-6"},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := e.Number(tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestEvaluatorBool(t *testing.T) {
	e := newTestEvaluator(t)

	tests := []struct {
		expr string
		want bool
	}{
		{"-1 > 0", false},
		{"-1 < 0", true},
		{"0 == 0", true},
		{"7 <= 3.5", false},
		{"7 > 3.5", true},
		{"False", false},
		{"True", true},
		{"not 1 > 0", false},
		{"1 > 0 and 2 > 1", true},
		{"1 > 2 or 2 > 1", true},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := e.Bool(tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluatorTypeErrors(t *testing.T) {
	e := newTestEvaluator(t)

	_, err := e.Bool("1 + 1")
	assert.True(t, IsExpressionError(err), "number where boolean expected")

	_, err = e.Number("1 > 0")
	assert.True(t, IsExpressionError(err), "boolean where number expected")

	_, err = e.Number("1 / 0")
	assert.True(t, IsExpressionError(err), "infinite result")
}

func TestEvaluatorCachesPrograms(t *testing.T) {
	e := newTestEvaluator(t)

	_, err := e.Bool("1 > 0")
	require.NoError(t, err)
	_, err = e.Bool("1 > 0")
	require.NoError(t, err)

	assert.Len(t, e.programs, 1)
}
