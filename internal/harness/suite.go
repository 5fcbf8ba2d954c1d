package harness

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"github.com/bmatcuk/doublestar/v4"
)

// SuiteResult summarizes the scenarios of a directory.
type SuiteResult struct {
	TotalScenarios int               `json:"total_scenarios"`
	Passed         int               `json:"passed"`
	Failed         int               `json:"failed"`
	Failures       []ScenarioFailure `json:"failures,omitempty"`
}

// ScenarioFailure represents a scenario that did not pass.
type ScenarioFailure struct {
	ScenarioPath string `json:"scenario_path"`
	Error        string `json:"error"`
}

// FindScenarios returns the scenario files below dir in lexical order.
func FindScenarios(dir string) ([]string, error) {
	matches, err := doublestar.Glob(os.DirFS(dir), "**/*.{yaml,yml}")
	if err != nil {
		return nil, fmt.Errorf("find scenarios: %w", err)
	}
	paths := make([]string, len(matches))
	for i, m := range matches {
		paths[i] = filepath.Join(dir, filepath.FromSlash(m))
	}
	slices.Sort(paths)
	return paths, nil
}

// RunSuite loads and runs every scenario below dir.
//
// For each scenario file:
// 1. Load and validate the scenario
// 2. Run it via Run
// 3. Collect and report results
func RunSuite(dir string) (*SuiteResult, error) {
	if _, err := os.Stat(dir); err != nil {
		return nil, err
	}
	paths, err := FindScenarios(dir)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no scenarios in %s: %w", dir, fs.ErrNotExist)
	}

	result := &SuiteResult{}
	fail := func(path, format string, args ...any) {
		result.Failed++
		result.Failures = append(result.Failures, ScenarioFailure{
			ScenarioPath: path,
			Error:        fmt.Sprintf(format, args...),
		})
	}

	for _, path := range paths {
		result.TotalScenarios++

		scenario, err := LoadScenario(path)
		if err != nil {
			fail(path, "failed to load scenario: %v", err)
			continue
		}
		runResult, err := Run(scenario)
		if err != nil {
			fail(path, "scenario execution failed: %v", err)
			continue
		}
		if !runResult.Pass {
			fail(path, "scenario assertions failed: %v", runResult.Errors)
			continue
		}
		result.Passed++
	}
	return result, nil
}
