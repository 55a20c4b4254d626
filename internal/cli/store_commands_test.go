package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordRun runs the fill-and-drain model into a fresh database.
func recordRun(t *testing.T, runID string) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "runs.db")
	_, _, err := execute(runCommand("text", runID), "--db", dbPath, fillAndDrainDir)
	require.NoError(t, err)
	return dbPath
}

func TestRunsList(t *testing.T) {
	dbPath := recordRun(t, "run-1")

	out, _, err := execute(NewRunsCommand(&RootOptions{Format: "text"}), "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "RUN")
	assert.Contains(t, out, "run-1")
	assert.Contains(t, out, "fill_and_drain")
	assert.Contains(t, out, "completed")
	assert.Contains(t, out, "10/10")
}

func TestRunsListJSON(t *testing.T) {
	dbPath := recordRun(t, "run-1")

	out, _, err := execute(NewRunsCommand(&RootOptions{Format: "json"}), "--db", dbPath)
	require.NoError(t, err)

	resp := decodeResponse(t, out)
	runs, ok := resp.Data.([]any)
	require.True(t, ok)
	require.Len(t, runs, 1)
	assert.Equal(t, "run-1", runs[0].(map[string]any)["id"])
}

func TestStoreCommandsMissingDatabase(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.db")
	for name, cmd := range map[string][]string{
		"runs":       {"runs", "--db", missing},
		"counts":     {"counts", "--db", missing, "run-1"},
		"checkpoint": {"checkpoint", "--db", missing, "run-1"},
	} {
		t.Run(name, func(t *testing.T) {
			out, _, err := execute(NewRootCommand(), cmd...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, out, ErrCodeNotFound)
			assert.NoFileExists(t, missing, "reading must not create the database")
		})
	}
}

func TestStoreCommandsRequireDatabaseFlag(t *testing.T) {
	_, _, err := execute(NewRunsCommand(&RootOptions{Format: "text"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
}

func TestCounts(t *testing.T) {
	dbPath := recordRun(t, "run-1")

	out, _, err := execute(NewCountsCommand(&RootOptions{Format: "json"}), "--db", dbPath, "run-1")
	require.NoError(t, err)

	resp := decodeResponse(t, out)
	assert.Equal(t, "run-1", resp.RunID)
	rows, ok := resp.Data.([]any)
	require.True(t, ok)
	require.Len(t, rows, 6)

	var values []float64
	for _, r := range rows {
		values = append(values, r.(map[string]any)["value"].(float64))
	}
	assert.Equal(t, []float64{100, 100, 100, 70, 70, 70}, values)
}

func TestCountsText(t *testing.T) {
	dbPath := recordRun(t, "run-1")

	out, _, err := execute(NewCountsCommand(&RootOptions{Format: "text"}), "--db", dbPath, "--buffer", "out", "run-1")
	require.NoError(t, err)
	assert.Contains(t, out, "BUFFER")
	assert.Contains(t, out, "100")
}

func TestCountsUnknownBuffer(t *testing.T) {
	dbPath := recordRun(t, "run-1")

	out, _, err := execute(NewCountsCommand(&RootOptions{Format: "text"}), "--db", dbPath, "--buffer", "nope", "run-1")
	require.NoError(t, err)
	assert.Contains(t, out, "No count rows")
}

func TestCountsUnknownRun(t *testing.T) {
	dbPath := recordRun(t, "run-1")

	out, _, err := execute(NewCountsCommand(&RootOptions{Format: "text"}), "--db", dbPath, "run-2")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, ErrCodeNotFound)
}

func TestCheckpointList(t *testing.T) {
	dbPath := recordRun(t, "run-1")

	out, _, err := execute(NewCheckpointCommand(&RootOptions{Format: "json"}), "--db", dbPath, "run-1")
	require.NoError(t, err)

	resp := decodeResponse(t, out)
	recs, ok := resp.Data.([]any)
	require.True(t, ok)
	require.Len(t, recs, 1, "a completed run writes one closing checkpoint")
	rec := recs[0].(map[string]any)
	assert.Equal(t, 10.0, rec["iteration"])
	assert.NotContains(t, rec, "payload")
}

func TestCheckpointLatest(t *testing.T) {
	dbPath := recordRun(t, "run-1")

	out, _, err := execute(NewCheckpointCommand(&RootOptions{Format: "text"}), "--db", dbPath, "--latest", "run-1")
	require.NoError(t, err)
	assert.Contains(t, out, "iteration:      10")
	assert.Contains(t, out, "live molecules: 70")
	assert.Contains(t, out, "seed:           1")
	assert.Contains(t, out, "count")
}

func TestCheckpointLatestJSON(t *testing.T) {
	dbPath := recordRun(t, "run-1")

	out, _, err := execute(NewCheckpointCommand(&RootOptions{Format: "json"}), "--db", dbPath, "--latest", "run-1")
	require.NoError(t, err)

	resp := decodeResponse(t, out)
	snap, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "run-1", snap["run_id"])
	assert.Equal(t, 70.0, snap["live_molecules"])
}

func TestCheckpointUnknownRun(t *testing.T) {
	dbPath := recordRun(t, "run-1")

	_, _, err := execute(NewCheckpointCommand(&RootOptions{Format: "text"}), "--db", dbPath, "--latest", "run-9")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
