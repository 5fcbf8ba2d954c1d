package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/bosync/internal/ledger"
)

func loadTestScenario(t *testing.T, name string) *Scenario {
	t.Helper()
	scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", name+".yaml"))
	require.NoError(t, err)
	return scenario
}

func TestRun_Scenarios(t *testing.T) {
	paths, err := FindScenarios(filepath.Join("testdata", "scenarios"))
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		t.Run(filepath.Base(path), func(t *testing.T) {
			scenario, err := LoadScenario(path)
			require.NoError(t, err)

			result, err := Run(scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
			assert.Empty(t, result.Errors)
		})
	}
}

func TestRun_TraceShape(t *testing.T) {
	result, err := Run(loadTestScenario(t, "propose_catalog"))
	require.NoError(t, err)

	var reconciled, operations, broadcasts int
	for _, e := range result.Trace {
		assert.Equal(t, 1, e.Pass)
		switch e.Type {
		case EventReconcile:
			reconciled++
		case EventOperation:
			operations++
			assert.Equal(t, "proposal", e.Buffer)
		case EventBroadcast:
			broadcasts++
			assert.Equal(t, "proposal", e.Buffer)
			assert.Equal(t, 25, e.Operations)
		}
	}
	assert.Equal(t, 29, reconciled)
	assert.Equal(t, 25, operations)
	assert.Equal(t, 1, broadcasts)

	first := result.Trace[0]
	assert.Equal(t, "Basketball", first.Identifier)
	assert.Equal(t, "CREATE_SUBMITTED", first.State)

	ops := result.Operations()
	require.Len(t, ops, 25)
	assert.Equal(t, "sport_create", ops[0].Op)
	fields, ok := ops[0].Fields.(map[string]any)
	require.True(t, ok)
	assert.Contains(t, fields, "name")
}

func TestRun_ExpectFailuresAreCollected(t *testing.T) {
	scenario := loadTestScenario(t, "propose_catalog")
	wrong := 3
	scenario.Passes[0].Expect = &ExpectClause{
		States:   map[string]int{"SYNCED": 25},
		Errors:   &wrong,
		Buffered: &wrong,
	}
	scenario.Assertions = nil

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 3)
	assert.Contains(t, result.Errors[0], "0 entities SYNCED, want 25")
	assert.Contains(t, result.Errors[1], "4 entities skipped, want 3")
	assert.Contains(t, result.Errors[2], "25 operations buffered, want 3")
}

func TestRun_FailingAssertion(t *testing.T) {
	scenario, err := LoadScenario(filepath.Join("testdata", "invalid", "failing_assertion.yaml"))
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "1 sport objects")
}

func TestRun_UnknownProposer(t *testing.T) {
	scenario := loadTestScenario(t, "propose_catalog")
	scenario.Passes[0].Proposer = "nobody"

	_, err := Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pass 1: proposer")
}

func TestRun_BadFixture(t *testing.T) {
	scenario := loadTestScenario(t, "propose_catalog")
	scenario.Ledger = ledger.Fixture{
		Objects: []ledger.FixtureEntry{{ID: "not-an-id"}},
	}

	_, err := Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to seed ledger")
}

func TestRun_DryPassDropsBuffers(t *testing.T) {
	scenario := loadTestScenario(t, "propose_catalog")
	scenario.Passes = []PassStep{{Proposer: "init0"}, {Proposer: "init0"}}
	scenario.Assertions = []Assertion{
		{Type: AssertTraceCount, Op: "sport_create", Count: ptr(2)},
		{Type: AssertPendingProposals, Count: ptr(0)},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	for _, e := range result.Trace {
		assert.NotEqual(t, EventBroadcast, e.Type)
	}
}

func ptr[T any](v T) *T { return &v }
