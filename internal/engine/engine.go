package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
)

// RunIDGenerator generates run identifiers.
// Implemented by UUIDv7Generator (production) and FixedGenerator (tests).
type RunIDGenerator interface {
	Generate() string
}

// Snapshot is the engine state written on a checkpoint request.
type Snapshot struct {
	RunID         string       `json:"run_id"`
	Iteration     float64      `json:"iteration"`
	Time          float64      `json:"time"`
	Seed          uint64       `json:"seed"`
	RNGDraws      uint64       `json:"rng_draws"`
	LiveMolecules int          `json:"live_molecules"`
	Events        []Checkpoint `json:"events"`
}

// Checkpointer persists snapshots. Implemented by store.Store.
type Checkpointer interface {
	SaveCheckpoint(ctx context.Context, snap Snapshot) error
}

// Engine is the single-threaded event loop.
//
// Thread-safety model:
//   - RequestCheckpoint(): safe from any goroutine
//   - everything else: Run goroutine only
type Engine struct {
	env          *Env
	sched        *Scheduler
	logger       *slog.Logger
	runID        string
	checkpointer Checkpointer

	checkpointRequested atomic.Bool

	current float64
	fired   map[EventType]int
}

// Option configures an Engine.
type Option func(*Engine)

// WithCheckpointer sets where checkpoint snapshots are written. Without one,
// requests are logged and dropped.
func WithCheckpointer(c Checkpointer) Option {
	return func(e *Engine) {
		e.checkpointer = c
	}
}

// WithRunID sets the run identifier stamped on snapshots.
func WithRunID(id string) Option {
	return func(e *Engine) {
		e.runID = id
	}
}

// New creates an engine over env. A nil env.Scheduler is replaced with an
// empty one and a nil logger with slog.Default().
func New(env *Env, opts ...Option) *Engine {
	if env.Scheduler == nil {
		env.Scheduler = NewScheduler()
	}
	if env.Logger == nil {
		env.Logger = slog.Default()
	}
	e := &Engine{
		env:    env,
		sched:  env.Scheduler,
		logger: env.Logger,
		fired:  make(map[EventType]int),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.runID == "" {
		e.runID = UUIDv7Generator{}.Generate()
	}
	return e
}

// Env returns the environment events step in.
func (e *Engine) Env() *Env { return e.env }

// Scheduler returns the event scheduler.
func (e *Engine) Scheduler() *Scheduler { return e.sched }

// RunID returns the run identifier.
func (e *Engine) RunID() string { return e.runID }

// CurrentIteration returns the event time of the last dispatched event.
func (e *Engine) CurrentIteration() float64 { return e.current }

// Fired returns how many times events of type t have stepped.
func (e *Engine) Fired(t EventType) int { return e.fired[t] }

// RequestCheckpoint asks the Run loop to write a snapshot before the next
// event. Safe to call from a signal handler goroutine.
func (e *Engine) RequestCheckpoint() {
	e.checkpointRequested.Store(true)
}

// Run dispatches every event with event_time <= until in order.
//
// A non-nil error from Step is fatal: Run stops at once and returns it
// annotated with the failing event. Context cancellation is checked between
// events, never inside Step.
func (e *Engine) Run(ctx context.Context, until float64) error {
	e.logger.Info("engine starting", "until_iteration", until, "scheduled", e.sched.Len(), "run_id", e.runID)

	for {
		if err := ctx.Err(); err != nil {
			e.logger.Info("engine stopping: context cancelled", "iteration", e.current)
			return err
		}
		if e.checkpointRequested.Swap(false) {
			if err := e.Checkpoint(ctx); err != nil {
				return err
			}
		}

		next := e.sched.Peek()
		if next == nil || next.EventTime() > until {
			break
		}
		ev, _ := e.sched.PopNext()
		if err := e.dispatch(ctx, ev); err != nil {
			e.logger.Error("event failed",
				"event_type", ev.Type().String(),
				"event", ev.Name(),
				"iteration", ev.EventTime(),
				"error", err,
			)
			return err
		}
	}

	if e.checkpointRequested.Swap(false) {
		if err := e.Checkpoint(ctx); err != nil {
			return err
		}
	}
	e.logger.Info("engine stopped",
		"iteration", e.current,
		"live_molecules", e.env.World.NumLive(),
		"scheduled", e.sched.Len(),
	)
	return nil
}

// dispatch steps one event and reinserts it if it has a next occurrence.
func (e *Engine) dispatch(ctx context.Context, ev Event) error {
	t := ev.EventTime()
	if t < e.current {
		return annotate(NewRuntimeError(ErrCodeInvalidState,
			"event time %g is before current iteration %g", t, e.current), ev)
	}
	e.current = t

	e.logger.Debug("event firing",
		"event_type", ev.Type().String(),
		"event", ev.Name(),
		"iteration", t,
	)

	e.sched.setExecuting(ev)
	err := ev.Step(ctx, e.env)
	e.sched.setExecuting(nil)
	if err != nil {
		return annotate(err, ev)
	}
	e.fired[ev.Type()]++

	if !ev.Reschedule() {
		e.logger.Debug("event retired", "event_type", ev.Type().String(), "event", ev.Name())
		return nil
	}
	if ev.EventTime() < t {
		return annotate(NewRuntimeError(ErrCodeInvalidState,
			"rescheduled to %g, before previous firing at %g", ev.EventTime(), t), ev)
	}
	e.sched.Schedule(ev)
	return nil
}

// Snapshot captures the scheduler and world summary.
func (e *Engine) Snapshot() Snapshot {
	ts := e.env.TimeStep()
	events := e.sched.Events()
	cps := make([]Checkpoint, 0, len(events))
	for _, ev := range events {
		cps = append(cps, ev.ToCheckpoint(ts))
	}
	snap := Snapshot{
		RunID:         e.runID,
		Iteration:     e.current,
		Time:          e.current * ts,
		LiveMolecules: e.env.World.NumLive(),
		Events:        cps,
	}
	if e.env.RNG != nil {
		snap.Seed = e.env.RNG.Seed()
		snap.RNGDraws = e.env.RNG.Draws()
	}
	return snap
}

// Checkpoint writes a snapshot now.
func (e *Engine) Checkpoint(ctx context.Context) error {
	snap := e.Snapshot()
	if e.checkpointer == nil {
		e.logger.Warn("checkpoint requested but no checkpointer configured", "iteration", e.current)
		return nil
	}
	if err := e.checkpointer.SaveCheckpoint(ctx, snap); err != nil {
		return fmt.Errorf("save checkpoint at iteration %g: %w", e.current, err)
	}
	e.logger.Info("checkpoint written", "iteration", e.current, "events", len(snap.Events))
	return nil
}

// Dump writes every scheduled event in dispatch order.
func (e *Engine) Dump(w io.Writer) {
	fmt.Fprintf(w, "scheduler: %d events, iteration %g\n", e.sched.Len(), e.current)
	for _, ev := range e.sched.Events() {
		ev.Dump(w, "  ")
	}
}
