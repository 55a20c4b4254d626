package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// createTestStore opens a fresh store in a temp directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRun inserts a run with minimal required fields.
func createTestRun(t *testing.T, s *Store, id string) Run {
	t.Helper()
	run := Run{
		ID:            id,
		ModelName:     "test",
		ModelHash:     "test-hash",
		Seed:          1,
		Iterations:    10,
		TimeStep:      1e-6,
		EngineVersion: "0.1.0",
	}
	require.NoError(t, s.CreateRun(context.Background(), run))
	run.Status = StatusRunning
	return run
}
