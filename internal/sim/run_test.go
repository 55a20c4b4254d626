package sim

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cellsim/internal/engine"
	"github.com/roach88/cellsim/internal/ir"
	"github.com/roach88/cellsim/internal/store"
)

func openStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func TestRunner_PersistsRunCountsAndCheckpoint(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()
	m := fillAndDrain()

	r := &Runner{Store: st, Logger: discardLogger(), IDs: engine.NewFixedGenerator("run-1")}
	res, sim, err := r.Run(ctx, m)
	require.NoError(t, err)

	assert.Equal(t, "run-1", res.RunID)
	assert.Equal(t, store.StatusCompleted, res.Status)
	assert.Equal(t, ir.MustModelHash(m), res.ModelHash)
	assert.Equal(t, 10.0, res.Iteration)
	assert.Equal(t, 70, res.LiveMolecules)
	assert.Equal(t, 2, res.Releases)
	assert.Equal(t, 6, res.Counts)
	assert.Len(t, sim.Buffers.Rows("out"), 6)

	run, err := st.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, store.StatusCompleted, run.Status)
	assert.Equal(t, 10.0, run.FinalIteration)
	assert.Equal(t, res.ModelHash, run.ModelHash)

	rows, err := st.ReadCounts(ctx, "run-1", "out")
	require.NoError(t, err)
	require.Len(t, rows, 6)
	assert.Equal(t, 100.0, rows[0].Value)
	assert.Equal(t, 70.0, rows[5].Value)

	rec, err := st.LatestCheckpoint(ctx, "run-1")
	require.NoError(t, err)
	snap, err := rec.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, 70, snap.LiveMolecules)
	assert.Equal(t, uint64(1), snap.Seed)
}

func TestRunner_InMemory(t *testing.T) {
	r := &Runner{Logger: discardLogger(), IDs: engine.NewFixedGenerator("mem")}
	res, sim, err := r.Run(context.Background(), fillAndDrain())
	require.NoError(t, err)
	assert.Equal(t, store.StatusCompleted, res.Status)
	assert.Len(t, sim.Buffers.Series("out", "A"), 6)
}

func TestRunner_OnStartSeesSimulation(t *testing.T) {
	var seen *Simulation
	r := &Runner{Logger: discardLogger(), OnStart: func(s *Simulation) { seen = s }}
	_, sim, err := r.Run(context.Background(), fillAndDrain())
	require.NoError(t, err)
	assert.Same(t, sim, seen)
}

func TestRunner_CancelledRunIsRecorded(t *testing.T) {
	st := openStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := &Runner{
		Store:   st,
		Logger:  discardLogger(),
		IDs:     engine.NewFixedGenerator("run-c"),
		OnStart: func(*Simulation) { cancel() },
	}
	res, _, err := r.Run(ctx, fillAndDrain())
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, store.StatusCancelled, res.Status)

	run, err := st.GetRun(context.Background(), "run-c")
	require.NoError(t, err)
	assert.Equal(t, store.StatusCancelled, run.Status)
}

func TestRunner_PlacementErrorFailsRun(t *testing.T) {
	st := openStore(t)
	m := fillAndDrain()
	m.Config.PlacementFailurePolicy = "error"
	m.Config.GridDensity = 100
	m.Species = append(m.Species, ir.Species{Name: "S", DiffusionConstant: 1e-8, Surface: true})
	// The top face has 128 tiles at this density.
	m.Releases = append(m.Releases, ir.ReleaseSite{
		Name: "crowd", Species: "S", Shape: "region", Method: "const_num", Number: 500,
		Region: "cell[top]", Probability: 1,
		Pattern: &ir.Pattern{Delay: 5e-6, NumberOfTrains: 1, ReleaseInterval: 1e-6},
	})

	r := &Runner{Store: st, Logger: discardLogger(), IDs: engine.NewFixedGenerator("run-f")}
	res, _, err := r.Run(context.Background(), m)
	require.Error(t, err)
	assert.True(t, engine.IsPlacementError(err))
	assert.Equal(t, store.StatusFailed, res.Status)
	assert.Equal(t, 5.0, res.Iteration)

	run, err := st.GetRun(context.Background(), "run-f")
	require.NoError(t, err)
	assert.Equal(t, store.StatusFailed, run.Status)
}

func TestRunner_BuildFailureIsRecorded(t *testing.T) {
	st := openStore(t)
	m := fillAndDrain()
	m.Releases[0].Shape = "cube"

	r := &Runner{Store: st, Logger: discardLogger(), IDs: engine.NewFixedGenerator("run-b")}
	_, sim, err := r.Run(context.Background(), m)
	require.Error(t, err)
	assert.Nil(t, sim)

	run, err := st.GetRun(context.Background(), "run-b")
	require.NoError(t, err)
	assert.Equal(t, store.StatusFailed, run.Status)
}
