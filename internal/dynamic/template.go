package dynamic

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/roach88/bosync/internal/ir"
)

// Vars are the values a template may reference.
//
// Supported placeholders:
//
//	{teams.home} {teams.away}
//	{result.hometeam} {result.awayteam} {result.home} {result.away} {result.total}
//	{handicaps.home} {handicaps.away}
//	{handicaps.home_score} {handicaps.away_score}
//	{handicaps.home_score_int} {handicaps.away_score_int}
//	{handicaps.home_score_float} {handicaps.away_score_float}
//	{overunder.value}
//	{metric}
//
// "{{" and "}}" produce literal braces.
type Vars struct {
	Teams  [2]string
	Result [2]int64
	Params Params

	// Metric is set while expanding resolution expressions.
	Metric *decimal.Decimal
}

// TeamName capitalizes every space-separated word of a team name.
func TeamName(s string) string {
	caser := cases.Title(language.Und)
	words := strings.Split(s, " ")
	for i, w := range words {
		words[i] = caser.String(w)
	}
	return strings.Join(words, " ")
}

// scoreShare returns the handicap credited to the other team's score:
// v when v is non-negative, zero otherwise.
func scoreShare(v decimal.Decimal) decimal.Decimal {
	if v.IsNegative() {
		return decimal.Zero
	}
	return v
}

func (v Vars) lookup(name string) (string, error) {
	home := decimal.NewFromInt(v.Result[0])
	away := decimal.NewFromInt(v.Result[1])
	h := v.Params

	switch name {
	case "teams.home":
		return TeamName(v.Teams[0]), nil
	case "teams.away":
		return TeamName(v.Teams[1]), nil
	case "result.hometeam", "result.home":
		return home.String(), nil
	case "result.awayteam", "result.away":
		return away.String(), nil
	case "result.total":
		return home.Add(away).String(), nil
	case "handicaps.home":
		return h.Home.String(), nil
	case "handicaps.away":
		return h.Away.String(), nil
	case "handicaps.home_score":
		if h.IntegerMode {
			return scoreShare(h.Away.Truncate(0)).String(), nil
		}
		return scoreShare(h.Away).String(), nil
	case "handicaps.away_score":
		if h.IntegerMode {
			return scoreShare(h.Home.Truncate(0)).String(), nil
		}
		return scoreShare(h.Home).String(), nil
	case "handicaps.home_score_int":
		return scoreShare(h.Away.Truncate(0)).String(), nil
	case "handicaps.away_score_int":
		return scoreShare(h.Home.Truncate(0)).String(), nil
	case "handicaps.home_score_float":
		return scoreShare(h.Away).String(), nil
	case "handicaps.away_score_float":
		return scoreShare(h.Home).String(), nil
	case "overunder.value":
		return h.Line.String(), nil
	case "metric":
		if v.Metric == nil {
			return "", fmt.Errorf("metric is not available here")
		}
		return v.Metric.String(), nil
	default:
		return "", fmt.Errorf("unknown placeholder {%s}", name)
	}
}

// TemplateError reports a template that could not be expanded.
type TemplateError struct {
	Template string
	Pos      int
	Message  string
}

func (e *TemplateError) Error() string {
	return fmt.Sprintf("template %q at %d: %s", e.Template, e.Pos, e.Message)
}

// Expand substitutes every placeholder of tmpl.
func Expand(tmpl string, vars Vars) (string, error) {
	var b strings.Builder
	for i := 0; i < len(tmpl); i++ {
		c := tmpl[i]
		switch c {
		case '{':
			if i+1 < len(tmpl) && tmpl[i+1] == '{' {
				b.WriteByte('{')
				i++
				continue
			}
			end := strings.IndexByte(tmpl[i+1:], '}')
			if end < 0 {
				return "", &TemplateError{Template: tmpl, Pos: i, Message: "unclosed placeholder"}
			}
			name := strings.TrimSpace(tmpl[i+1 : i+1+end])
			val, err := vars.lookup(name)
			if err != nil {
				return "", &TemplateError{Template: tmpl, Pos: i, Message: err.Error()}
			}
			b.WriteString(val)
			i += end + 1
		case '}':
			if i+1 < len(tmpl) && tmpl[i+1] == '}' {
				b.WriteByte('}')
				i++
				continue
			}
			return "", &TemplateError{Template: tmpl, Pos: i, Message: "single '}' in template"}
		default:
			b.WriteByte(c)
		}
	}
	return b.String(), nil
}

// ExpandText expands every real-language entry of a multi-language
// template. Pseudo-language keys are dropped.
func ExpandText(tmpl ir.LangList, vars Vars) (ir.LangList, error) {
	out := make(ir.LangList, 0, len(tmpl))
	for _, p := range tmpl.External() {
		text, err := Expand(p.Text, vars)
		if err != nil {
			return nil, fmt.Errorf("language %s: %w", p.Lang, err)
		}
		out = append(out, ir.LangPair{Lang: p.Lang, Text: text})
	}
	return out, nil
}
