package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

var (
	fillAndDrainDir   = filepath.Join("..", "..", "testdata", "models", "fill_and_drain")
	unknownSpeciesDir = filepath.Join("..", "..", "testdata", "models", "unknown_species")
	missingConfigDir  = filepath.Join("..", "..", "testdata", "models", "missing_config")
)

// execute runs cmd with args and returns stdout, stderr and the error.
func execute(cmd *cobra.Command, args ...string) (string, string, error) {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

// writeModel writes src as the only file of a fresh model directory.
func writeModel(t *testing.T, src string) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "model")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "model.cue"), []byte(src), 0644))
	return dir
}

func decodeResponse(t *testing.T, out string) CLIResponse {
	t.Helper()
	var resp CLIResponse
	require.NoError(t, jsonOut.UnmarshalFromString(out, &resp))
	return resp
}
