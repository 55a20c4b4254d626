package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadScenario(t *testing.T, name string) *Scenario {
	t.Helper()
	scenario, err := LoadScenario(filepath.Join(scenariosDir, name+".yaml"))
	require.NoError(t, err)
	return scenario
}

func TestRun_FillAndDrain(t *testing.T) {
	result, err := Run(loadScenario(t, "fill_and_drain"))
	require.NoError(t, err)

	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, "fill_and_drain", result.RunID)
	assert.Equal(t, "completed", result.Status)
	assert.Empty(t, result.ErrorCode)
	assert.Equal(t, 10.0, result.Iteration)
	assert.Equal(t, 70, result.LiveMolecules)
	assert.Equal(t, 2, result.Fired["release"])
	assert.Equal(t, 6, result.Fired["count"])
	assert.Equal(t, 0, result.Fired["clamp_release"])
	require.Len(t, result.Trace, 6)
	assert.Equal(t, 100.0, result.Trace[0].Value)
	assert.Equal(t, 70.0, result.Trace[5].Value)
}

func TestRun_Overrides(t *testing.T) {
	result, err := Run(loadScenario(t, "short_run"))
	require.NoError(t, err)

	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, 4.0, result.Iteration)
	assert.Len(t, result.Trace, 3)
}

func TestRun_ExpectedFailure(t *testing.T) {
	result, err := Run(loadScenario(t, "crowded_membrane"))
	require.NoError(t, err)

	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, "failed", result.Status)
	assert.Equal(t, "PLACEMENT_FAILED", result.ErrorCode)
	assert.Equal(t, 5.0, result.Iteration)
	assert.Empty(t, result.Trace)
}

func TestRun_UnexpectedStatus(t *testing.T) {
	scenario := loadScenario(t, "crowded_membrane")
	scenario.Expect = Expectation{}

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.NotEmpty(t, result.Errors)
	assert.Contains(t, result.Errors[0], "expected status completed, got failed")
	assert.Contains(t, result.Errors[0], "PLACEMENT_FAILED")
}

func TestRun_WrongErrorCode(t *testing.T) {
	scenario := loadScenario(t, "crowded_membrane")
	scenario.Expect.ErrorCode = "NON_FINITE"

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	assert.Contains(t, result.Errors, `expected error code NON_FINITE, got "PLACEMENT_FAILED"`)
}

func TestRun_FailingAssertion(t *testing.T) {
	scenario := loadScenario(t, "fill_and_drain")
	scenario.Assertions = append(scenario.Assertions, Assertion{Type: AssertLiveMolecules, Count: ptr(100)})

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "assertions[7]")
	assert.Contains(t, result.Errors[0], "100 live molecules")
}

func TestRun_Deterministic(t *testing.T) {
	first, err := Run(loadScenario(t, "fill_and_drain"))
	require.NoError(t, err)
	second, err := Run(loadScenario(t, "fill_and_drain"))
	require.NoError(t, err)

	a, err := GoldenBytes("fill_and_drain", first)
	require.NoError(t, err)
	b, err := GoldenBytes("fill_and_drain", second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestRun_ModelDoesNotCompile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "model.cue"), []byte("species: {}\n"), 0644))

	_, err := Run(&Scenario{Name: "broken", Description: "d", Model: dir})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load model")
}

func TestRun_InvalidOverride(t *testing.T) {
	scenario := loadScenario(t, "fill_and_drain")
	scenario.Iterations = ptr(int64(-5))

	_, err := Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid model")
}
