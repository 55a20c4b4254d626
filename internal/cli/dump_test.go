package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDumpInitialSchedule(t *testing.T) {
	out, _, err := execute(NewDumpCommand(&RootOptions{Format: "text"}), fillAndDrainDir)
	require.NoError(t, err)

	assert.Contains(t, out, "scheduler: 4 events, iteration 0")
	assert.Contains(t, out, `release "fill"`)
	assert.Contains(t, out, `release "drain"`)
	assert.Contains(t, out, `count "total"`)
	assert.Contains(t, out, "diffuse_react")
	assert.Contains(t, out, "region: ")
	assert.Contains(t, out, "out/A: total=0")
}

func TestDumpUntil(t *testing.T) {
	out, _, err := execute(NewDumpCommand(&RootOptions{Format: "text"}), "--until", "6", fillAndDrainDir)
	require.NoError(t, err)
	assert.Contains(t, out, "iteration 6")
}

func TestDumpJSON(t *testing.T) {
	out, _, err := execute(NewDumpCommand(&RootOptions{Format: "json"}), fillAndDrainDir)
	require.NoError(t, err)

	resp := decodeResponse(t, out)
	assert.Equal(t, "ok", resp.Status)
	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "dump", data["run_id"])
	events, ok := data["events"].([]any)
	require.True(t, ok)
	assert.Len(t, events, 4)
}

func TestDumpInvalidModel(t *testing.T) {
	_, _, err := execute(NewDumpCommand(&RootOptions{Format: "text"}), unknownSpeciesDir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}
