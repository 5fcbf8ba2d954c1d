package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/bosync/internal/engine"
	"github.com/roach88/bosync/internal/ir"
	"github.com/roach88/bosync/internal/ledger"
)

// Scenario defines a reconciliation scenario.
type Scenario struct {
	// Name uniquely identifies this scenario. It names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Catalog is the catalog directory, relative to the scenario file.
	Catalog string `yaml:"catalog"`

	// Events is the optional events file, relative to the scenario file.
	Events string `yaml:"events,omitempty"`

	// Ledger is seeded into the fresh ledger before the first pass.
	Ledger ledger.Fixture `yaml:"ledger"`

	// Quorum overrides the number of witness approvals a proposal needs.
	Quorum int `yaml:"quorum,omitempty"`

	// Start is the clock at the first pass. Defaults to defaultStart.
	Start time.Time `yaml:"start,omitempty"`

	// Passes run in order, each with a fresh engine.
	Passes []PassStep `yaml:"passes"`

	// Assertions validate the trace and the final ledger.
	Assertions []Assertion `yaml:"assertions"`
}

// PassStep is one invocation of the reconciler.
type PassStep struct {
	// Proposer and Approver are account names or ids. An empty approver
	// approves as the proposer.
	Proposer string `yaml:"proposer,omitempty"`
	Approver string `yaml:"approver,omitempty"`

	// Broadcast flushes the buffers after the pass. Otherwise the pass is
	// a dry run and the buffers are dropped.
	Broadcast bool `yaml:"broadcast,omitempty"`

	// Advance moves the clock forward before the pass.
	Advance time.Duration `yaml:"advance,omitempty"`

	// Expect is checked against the pass report.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies the expected outcome of a pass.
type ExpectClause struct {
	// States maps state names to the number of entities that ended the
	// pass in that state. Unlisted states are not checked.
	States map[string]int `yaml:"states,omitempty"`

	// Errors is the expected number of entities skipped with an error.
	Errors *int `yaml:"errors,omitempty"`

	// Buffered is the expected number of operations in the proposal
	// buffer at the end of the pass.
	Buffered *int `yaml:"buffered,omitempty"`

	// Approvals is the expected number of queued approvals.
	Approvals *int `yaml:"approvals,omitempty"`
}

// Assertion validates trace or final state.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Op is the operation name (trace_contains, trace_count).
	Op string `yaml:"op,omitempty"`

	// Fields are the expected operation fields (trace_contains). Subset
	// match.
	Fields map[string]any `yaml:"fields,omitempty"`

	// Ops is the expected operation order (trace_order).
	Ops []string `yaml:"ops,omitempty"`

	// Count is the expected number of operations, objects or proposals.
	Count *int `yaml:"count,omitempty"`

	// Kind is the object kind name (final_state).
	Kind string `yaml:"kind,omitempty"`

	// Where selects objects of Kind by field values (final_state).
	Where map[string]any `yaml:"where,omitempty"`

	// Expect contains expected field values of the selected object
	// (final_state). Subset match.
	Expect map[string]any `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains    = "trace_contains"
	AssertTraceOrder       = "trace_order"
	AssertTraceCount       = "trace_count"
	AssertFinalState       = "final_state"
	AssertPendingProposals = "pending_proposals"
)

// LoadScenario reads and parses a scenario YAML file, resolving the
// catalog and events paths relative to the file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	base := filepath.Dir(path)
	scenario.Catalog = resolvePath(base, scenario.Catalog)
	scenario.Events = resolvePath(base, scenario.Events)

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func resolvePath(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Catalog == "" {
		return fmt.Errorf("catalog is required")
	}
	if len(s.Passes) == 0 {
		return fmt.Errorf("passes list is required and must be non-empty")
	}
	if s.Quorum < 0 {
		return fmt.Errorf("quorum must be non-negative")
	}

	for _, p := range []string{s.Catalog, s.Events} {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); os.IsNotExist(err) {
			return fmt.Errorf("input not found: %s", p)
		}
	}

	for i, pass := range s.Passes {
		if pass.Broadcast && pass.Proposer == "" {
			return fmt.Errorf("passes[%d]: broadcast needs a proposer", i)
		}
		if pass.Advance < 0 {
			return fmt.Errorf("passes[%d]: advance must be non-negative", i)
		}
		if pass.Expect == nil {
			continue
		}
		for name := range pass.Expect.States {
			if _, ok := engine.ParseState(name); !ok {
				return fmt.Errorf("passes[%d].expect: unknown state %q", i, name)
			}
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}
	if a.Count != nil && *a.Count < 0 {
		return fmt.Errorf("assertions[%d]: count must be non-negative", index)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Op == "" {
			return fmt.Errorf("assertions[%d]: op is required for trace_contains", index)
		}
		return validateOpName(index, a.Op)
	case AssertTraceOrder:
		if len(a.Ops) == 0 {
			return fmt.Errorf("assertions[%d]: ops list is required for trace_order", index)
		}
		for _, op := range a.Ops {
			if err := validateOpName(index, op); err != nil {
				return err
			}
		}
	case AssertTraceCount:
		if a.Op == "" {
			return fmt.Errorf("assertions[%d]: op is required for trace_count", index)
		}
		if a.Count == nil {
			return fmt.Errorf("assertions[%d]: count is required for trace_count", index)
		}
		return validateOpName(index, a.Op)
	case AssertFinalState:
		if _, ok := ir.ParseObjectKind(a.Kind); !ok {
			return fmt.Errorf("assertions[%d]: unknown kind %q for final_state", index, a.Kind)
		}
		if a.Count == nil && len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: count or expect is required for final_state", index)
		}
	case AssertPendingProposals:
		if a.Count == nil {
			return fmt.Errorf("assertions[%d]: count is required for pending_proposals", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}

func validateOpName(index int, name string) error {
	if _, ok := ir.ParseOpType(name); !ok {
		return fmt.Errorf("assertions[%d]: unknown operation %q", index, name)
	}
	return nil
}
