package grading

import (
	"encoding/json"
	"fmt"
	"iter"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/roach88/bosync/internal/dynamic"
	"github.com/roach88/bosync/internal/ir"
)

// Grading is the settlement definition carried by a rule.
type Grading struct {
	Metric      string              `json:"metric" yaml:"metric"`
	Resolutions []map[string]string `json:"resolutions" yaml:"resolutions"`
}

// ParseGrading decodes the JSON form stored in a rule description.
func ParseGrading(data string) (Grading, error) {
	var raw map[string]any
	if err := json.Unmarshal([]byte(data), &raw); err != nil {
		return Grading{}, fmt.Errorf("grading: %w", err)
	}
	if _, ok := raw["metric"].(string); !ok {
		return Grading{}, fmt.Errorf("grading: metric must be a string, got %T", raw["metric"])
	}
	var g Grading
	if err := json.Unmarshal([]byte(data), &g); err != nil {
		return Grading{}, fmt.Errorf("grading: %w", err)
	}
	return g, g.Validate()
}

// Validate checks the definition without evaluating it.
func (g Grading) Validate() error {
	if g.Metric == "" {
		return fmt.Errorf("grading: empty metric")
	}
	if len(g.Resolutions) == 0 {
		return fmt.Errorf("grading: no resolutions")
	}
	for i, res := range g.Resolutions {
		if len(res) == 0 {
			return fmt.Errorf("grading: resolution %d has no outcomes", i)
		}
	}
	return nil
}

// JSON returns the compact JSON form stored on the ledger.
func (g Grading) JSON() (string, error) {
	data, err := json.Marshal(g)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Resolution pairs a market with its winning outcome label.
type Resolution struct {
	Market  ir.ObjectID
	Outcome string
}

// ResolutionSet is the ordered settlement of one market group.
type ResolutionSet []Resolution

// MarshalJSON encodes the wire form [[market_id, label], ...].
func (rs ResolutionSet) MarshalJSON() ([]byte, error) {
	pairs := make([][2]string, len(rs))
	for i, r := range rs {
		pairs[i] = [2]string{string(r.Market), r.Outcome}
	}
	return json.Marshal(pairs)
}

// ParseResolutionSet decodes an observed resolutions field.
func ParseResolutionSet(v any) (ResolutionSet, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var pairs [][2]string
	if err := json.Unmarshal(data, &pairs); err != nil {
		return nil, fmt.Errorf("resolutions: %w", err)
	}
	rs := make(ResolutionSet, len(pairs))
	for i, p := range pairs {
		rs[i] = Resolution{Market: ir.ObjectID(p[0]), Outcome: p[1]}
	}
	return rs, nil
}

// Equal reports whether both sets resolve the same markets the same way,
// in any order.
func (rs ResolutionSet) Equal(other ResolutionSet) bool {
	if len(rs) != len(other) {
		return false
	}
	for _, r := range rs {
		if !slices.Contains(other, r) {
			return false
		}
	}
	return true
}

// Result is the outcome of grading one market group.
type Result struct {
	// MetricExpression is the metric after placeholder substitution.
	MetricExpression string
	Metric           decimal.Decimal
	Resolutions      ResolutionSet
}

// Grade evaluates g for vars. markets yields the group's market ids in
// rule order; one id is consumed per resolution entry.
func (e *Evaluator) Grade(g Grading, vars dynamic.Vars, markets iter.Seq2[ir.ObjectID, error]) (*Result, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}

	vars.Metric = nil
	metricExpr, err := dynamic.Expand(g.Metric, vars)
	if err != nil {
		return nil, fmt.Errorf("metric: %w", err)
	}
	metric, err := e.Number(metricExpr)
	if err != nil {
		return nil, fmt.Errorf("metric: %w", err)
	}
	vars.Metric = &metric

	next, stop := iter.Pull2(markets)
	defer stop()

	res := &Result{MetricExpression: metricExpr, Metric: metric}
	for pos, outcomes := range g.Resolutions {
		market, err, ok := next()
		if !ok {
			return nil, fmt.Errorf("rule grades %d markets, group has %d", len(g.Resolutions), pos)
		}
		if err != nil {
			return nil, fmt.Errorf("market %d: %w", pos, err)
		}

		labels := make([]string, 0, len(outcomes))
		for label := range outcomes {
			labels = append(labels, label)
		}
		slices.Sort(labels)

		truths := make(map[string]bool, len(labels))
		var winner string
		held := 0
		for _, label := range labels {
			expr, err := dynamic.Expand(outcomes[label], vars)
			if err != nil {
				return nil, fmt.Errorf("market %d outcome %s: %w", pos, label, err)
			}
			ok, err := e.Bool(expr)
			if err != nil {
				return nil, fmt.Errorf("market %d outcome %s: %w", pos, label, err)
			}
			truths[label] = ok
			if ok {
				held++
				winner = label
			}
		}
		if held != 1 {
			return nil, &InvariantError{Position: pos, Market: market, Truths: truths}
		}
		res.Resolutions = append(res.Resolutions, Resolution{Market: market, Outcome: winner})
	}
	return res, nil
}
