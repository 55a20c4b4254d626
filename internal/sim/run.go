package sim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/cellsim/internal/count"
	"github.com/roach88/cellsim/internal/engine"
	"github.com/roach88/cellsim/internal/ir"
	"github.com/roach88/cellsim/internal/store"
)

// Result summarizes a finished run.
type Result struct {
	RunID         string  `json:"run_id"`
	ModelHash     string  `json:"model_hash"`
	Status        string  `json:"status"`
	Iteration     float64 `json:"iteration"`
	Time          float64 `json:"time"`
	LiveMolecules int     `json:"live_molecules"`
	Releases      int     `json:"releases_fired"`
	Counts        int     `json:"counts_fired"`
}

// Runner executes models against a store. A nil Store keeps everything in
// memory.
type Runner struct {
	Store  *store.Store
	Logger *slog.Logger
	Kernel engine.Kernel
	IDs    engine.RunIDGenerator

	// OnStart is called with the built simulation before the engine runs,
	// for example to hook checkpoint requests to a signal.
	OnStart func(*Simulation)
}

// Run builds m, records the run, executes it through the model's final
// iteration and writes a closing checkpoint. The run's status in the store
// reflects how it ended.
func (r *Runner) Run(ctx context.Context, m *ir.Model) (Result, *Simulation, error) {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ids := r.IDs
	if ids == nil {
		ids = engine.UUIDv7Generator{}
	}

	runID := ids.Generate()
	hash, err := ir.ModelHash(m)
	if err != nil {
		return Result{}, nil, err
	}
	logger = logger.With("run_id", runID)

	opts := Options{Logger: logger, RunID: runID, Kernel: r.Kernel}
	buffers := count.NewMemoryBuffers()
	if r.Store != nil {
		run, err := store.NewRun(runID, m)
		if err != nil {
			return Result{}, nil, err
		}
		if err := r.Store.CreateRun(ctx, run); err != nil {
			return Result{}, nil, err
		}
		opts.Sink = count.Tee{buffers, r.Store.Sink(runID)}
		opts.Checkpointer = r.Store
	} else {
		opts.Sink = buffers
	}

	sim, err := Build(m, opts)
	if err != nil {
		r.finish(logger, runID, store.StatusFailed, 0)
		return Result{}, nil, err
	}
	sim.Buffers = buffers
	if r.OnStart != nil {
		r.OnStart(sim)
	}

	logger.Info("run starting",
		"model", m.Name,
		"model_hash", hash,
		"seed", m.Config.Seed,
		"iterations", m.Config.Iterations,
	)

	runErr := sim.Engine.Run(ctx, sim.Until())
	status := statusOf(runErr)
	if runErr == nil && r.Store != nil {
		runErr = sim.Engine.Checkpoint(ctx)
		status = statusOf(runErr)
	}
	iteration := sim.Engine.CurrentIteration()
	r.finish(logger, runID, status, iteration)

	res := Result{
		RunID:         runID,
		ModelHash:     hash,
		Status:        status,
		Iteration:     iteration,
		Time:          iteration * m.Config.TimeStep,
		LiveMolecules: sim.World.NumLive(),
		Releases:      sim.Engine.Fired(engine.EventTypeRelease),
		Counts:        sim.Engine.Fired(engine.EventTypeCount),
	}
	if runErr != nil {
		return res, sim, fmt.Errorf("run %s: %w", runID, runErr)
	}
	logger.Info("run finished", "iteration", iteration, "live_molecules", res.LiveMolecules)
	return res, sim, nil
}

func statusOf(err error) string {
	switch {
	case err == nil:
		return store.StatusCompleted
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return store.StatusCancelled
	default:
		return store.StatusFailed
	}
}

// finish records the terminal status. The run context may already be
// cancelled, so the write uses a fresh one.
func (r *Runner) finish(logger *slog.Logger, runID, status string, iteration float64) {
	if r.Store == nil {
		return
	}
	if err := r.Store.FinishRun(context.Background(), runID, status, iteration); err != nil {
		logger.Error("failed to record run status", "status", status, "error", err)
	}
}
