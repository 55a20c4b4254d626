package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var scenariosDir = filepath.Join("..", "..", "testdata", "scenarios")

func testCommand(format string) *TestOptions {
	return &TestOptions{RootOptions: &RootOptions{Format: format}}
}

// writeScenarioDir writes one passing scenario against fill_and_drain
// into a fresh directory.
func writeScenarioDir(t *testing.T) string {
	t.Helper()
	model, err := filepath.Abs(fillAndDrainDir)
	require.NoError(t, err)

	dir := t.TempDir()
	content := "name: drain\n" +
		"description: \"drain leaves 70\"\n" +
		"model: " + model + "\n" +
		"assertions:\n" +
		"  - type: live_molecules\n" +
		"    count: 70\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "drain.yaml"), []byte(content), 0644))
	return dir
}

func TestTestCommand_Scenarios(t *testing.T) {
	out, _, err := execute(NewTestCommand(&RootOptions{Format: "text"}), scenariosDir)
	require.NoError(t, err, out)

	assert.Contains(t, out, "✓ fill_and_drain")
	assert.Contains(t, out, "✓ short_run")
	assert.Contains(t, out, "✓ crowded_membrane")
	assert.Contains(t, out, "Test Summary: 3 passed, 0 failed, 3 total")
	assert.Contains(t, out, "✓ All scenarios passed")
}

func TestTestCommand_Filter(t *testing.T) {
	out, _, err := execute(NewTestCommand(&RootOptions{Format: "json"}), scenariosDir, "--filter", "fill_*")
	require.NoError(t, err)

	resp := decodeResponse(t, out)
	assert.Equal(t, "ok", resp.Status)
	data := resp.Data.(map[string]any)
	assert.Equal(t, float64(1), data["total"])
	assert.Equal(t, float64(1), data["passed"])
	scenarios := data["scenarios"].([]any)
	require.Len(t, scenarios, 1)
	assert.Equal(t, "fill_and_drain", scenarios[0].(map[string]any)["name"])
}

func TestTestCommand_InvalidFilter(t *testing.T) {
	_, _, err := execute(NewTestCommand(&RootOptions{Format: "text"}), scenariosDir, "--filter", "[")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTestCommand_NoGoldenUsesAssertions(t *testing.T) {
	dir := writeScenarioDir(t)

	out, _, err := execute(NewTestCommand(&RootOptions{Format: "text"}), dir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ drain")
	assert.NoFileExists(t, filepath.Join(dir, "golden", "drain.golden"))
}

func TestTestCommand_UpdateThenCompare(t *testing.T) {
	dir := writeScenarioDir(t)

	out, _, err := execute(NewTestCommand(&RootOptions{Format: "text"}), dir, "--update")
	require.NoError(t, err, out)

	goldenPath := filepath.Join(dir, "golden", "drain.golden")
	require.FileExists(t, goldenPath)
	data, err := os.ReadFile(goldenPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"scenario_name":"drain"`)
	assert.Contains(t, string(data), `"final_iteration":10`)

	_, _, err = execute(NewTestCommand(&RootOptions{Format: "text"}), dir)
	require.NoError(t, err)
}

func TestTestCommand_GoldenMismatch(t *testing.T) {
	dir := writeScenarioDir(t)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "golden"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "golden", "drain.golden"), []byte(`{}`), 0644))

	out, _, err := execute(NewTestCommand(&RootOptions{Format: "text"}), dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ drain")
	assert.Contains(t, out, "trace does not match golden file")
	assert.Contains(t, out, "Test Summary: 0 passed, 1 failed, 1 total")
}

func TestTestCommand_FailingScenarioJSON(t *testing.T) {
	dir := writeScenarioDir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte("name: broken\n"), 0644))

	out, _, err := execute(NewTestCommand(&RootOptions{Format: "json"}), dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	resp := decodeResponse(t, out)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeTestFailed, resp.Error.Code)
	assert.Equal(t, "1 scenario(s) failed", resp.Error.Message)
}

func TestTestCommand_EmptyDirectory(t *testing.T) {
	out, _, err := execute(NewTestCommand(&RootOptions{Format: "text"}), t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found.")
}

func TestTestCommand_MissingDirectory(t *testing.T) {
	_, _, err := execute(NewTestCommand(&RootOptions{Format: "text"}), "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "scenarios directory not found")
}

func TestFindScenarioFiles(t *testing.T) {
	files, err := findScenarioFiles(scenariosDir, "")
	require.NoError(t, err)
	assert.Len(t, files, 3)

	files, err = findScenarioFiles(scenariosDir, "short_*")
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "short_run.yaml", filepath.Base(files[0]))
}

func TestGoldenFilePath(t *testing.T) {
	assert.Equal(t,
		filepath.Join("scenarios", "golden", "drain.golden"),
		goldenFilePath(filepath.Join("scenarios", "drain.yaml")))
}

func TestRunScenario_LoadError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: [\n"), 0644))

	sr := runScenario(path, testCommand("text"))
	assert.False(t, sr.Pass)
	assert.Equal(t, "bad.yaml", sr.Name)
	require.Len(t, sr.Errors, 1)
	assert.Contains(t, sr.Errors[0], "failed to load scenario")
}
