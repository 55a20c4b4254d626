package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/cellsim/internal/ir"
)

// GoldenDir is where golden traces live, relative to this package.
var GoldenDir = "../../testdata/scenarios/golden"

// GoldenBytes renders the deterministic part of a result as canonical
// JSON: the scenario name, the outcome and the full count trace.
func GoldenBytes(scenarioName string, r *Result) ([]byte, error) {
	trace := make([]any, len(r.Trace))
	for i, row := range r.Trace {
		trace[i] = map[string]any{
			"buffer":    row.Buffer,
			"column":    row.Column,
			"iteration": row.Iteration,
			"time":      row.Time,
			"value":     row.Value,
		}
	}

	snapshot := map[string]any{
		"scenario_name":   scenarioName,
		"status":          r.Status,
		"final_iteration": r.Iteration,
		"trace":           trace,
	}
	if r.ErrorCode != "" {
		snapshot["error_code"] = r.ErrorCode
	}
	return ir.MarshalCanonical(snapshot)
}

// RunWithGolden executes a scenario and compares its trace against the
// golden file {GoldenDir}/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if trace doesn't match golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against a golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := GoldenBytes(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir(GoldenDir),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}
