package store

import (
	"context"
	"fmt"

	"github.com/doug-martin/goqu/v9"

	"github.com/roach88/cellsim/internal/count"
	"github.com/roach88/cellsim/internal/engine"
	"github.com/roach88/cellsim/internal/ir"
)

// Run statuses.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// rowsPerInsert bounds the bound parameters of one multi-row insert.
const rowsPerInsert = 500

// Run is the metadata of one simulation run.
type Run struct {
	ID             string  `json:"id"`
	ModelName      string  `json:"model_name"`
	ModelHash      string  `json:"model_hash"`
	Seed           uint64  `json:"seed"`
	Iterations     int64   `json:"iterations"`
	TimeStep       float64 `json:"time_step"`
	EngineVersion  string  `json:"engine_version"`
	Status         string  `json:"status"`
	FinalIteration float64 `json:"final_iteration"`
}

// NewRun describes a run of m under the given id.
func NewRun(id string, m *ir.Model) (Run, error) {
	hash, err := ir.ModelHash(m)
	if err != nil {
		return Run{}, fmt.Errorf("new run: %w", err)
	}
	return Run{
		ID:            id,
		ModelName:     m.Name,
		ModelHash:     hash,
		Seed:          m.Config.Seed,
		Iterations:    m.Config.Iterations,
		TimeStep:      m.Config.TimeStep,
		EngineVersion: ir.EngineVersion,
		Status:        StatusRunning,
	}, nil
}

// CreateRun inserts a run record. Inserting the same id twice is a no-op.
func (s *Store) CreateRun(ctx context.Context, run Run) error {
	if run.ID == "" {
		return fmt.Errorf("create run: %w", ErrEmptyRunID)
	}
	if run.Status == "" {
		run.Status = StatusRunning
	}

	// Seeds above MaxInt64 are stored by bit pattern; the driver rejects
	// uint64 values with the high bit set.
	query, args, err := s.dialect.Insert(tableRuns).Prepared(true).
		Rows(goqu.Record{
			colID:             run.ID,
			colModelName:      run.ModelName,
			colModelHash:      run.ModelHash,
			colSeed:           int64(run.Seed),
			colIterations:     run.Iterations,
			colTimeStep:       run.TimeStep,
			colEngineVersion:  run.EngineVersion,
			colStatus:         run.Status,
			colFinalIteration: run.FinalIteration,
		}).
		OnConflict(goqu.DoNothing()).
		ToSQL()
	if err != nil {
		return fmt.Errorf("create run: build query: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("create run: %w", err)
	}
	return nil
}

// FinishRun records the terminal status of a run and the iteration it
// reached.
func (s *Store) FinishRun(ctx context.Context, runID, status string, iteration float64) error {
	query, args, err := s.dialect.Update(tableRuns).Prepared(true).
		Set(goqu.Record{colStatus: status, colFinalIteration: iteration}).
		Where(goqu.Ex{colID: runID}).
		ToSQL()
	if err != nil {
		return fmt.Errorf("finish run: build query: %w", err)
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("finish run %s: %w", runID, ErrRunNotFound)
	}
	return nil
}

// Sink returns a count sink that appends rows to the buffers of one run.
func (s *Store) Sink(runID string) count.Sink {
	return &runSink{store: s, runID: runID}
}

type runSink struct {
	store *Store
	runID string
}

// AppendRows implements count.Sink. The rows of one call commit together.
func (r *runSink) AppendRows(ctx context.Context, rows []count.Row) error {
	return r.store.AppendCountRows(ctx, r.runID, rows)
}

// AppendCountRows appends rows to the count buffers of a run in a single
// transaction, preserving their order.
func (s *Store) AppendCountRows(ctx context.Context, runID string, rows []count.Row) error {
	if len(rows) == 0 {
		return nil
	}
	if runID == "" {
		return fmt.Errorf("append count rows: %w", ErrEmptyRunID)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("append count rows: begin: %w", err)
	}
	defer tx.Rollback()

	for start := 0; start < len(rows); start += rowsPerInsert {
		end := min(start+rowsPerInsert, len(rows))
		records := make([]any, 0, end-start)
		for _, row := range rows[start:end] {
			records = append(records, goqu.Record{
				colRunID:     runID,
				colBuffer:    row.Buffer,
				colColumn:    row.Column,
				colIteration: row.Iteration,
				colTime:      row.Time,
				colValue:     row.Value,
			})
		}

		query, args, err := s.dialect.Insert(tableCountRows).Prepared(true).Rows(records...).ToSQL()
		if err != nil {
			return fmt.Errorf("append count rows: build query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("append count rows: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("append count rows: commit: %w", err)
	}
	return nil
}

// SaveCheckpoint stores an engine snapshot. It implements
// engine.Checkpointer. Saving an identical snapshot twice is a no-op.
func (s *Store) SaveCheckpoint(ctx context.Context, snap engine.Snapshot) error {
	if snap.RunID == "" {
		return fmt.Errorf("save checkpoint: %w", ErrEmptyRunID)
	}

	payload, hash, err := marshalSnapshot(snap)
	if err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}

	query, args, err := s.dialect.Insert(tableCheckpoints).Prepared(true).
		Rows(goqu.Record{
			colRunID:     snap.RunID,
			colIteration: snap.Iteration,
			colTime:      snap.Time,
			colPayload:   payload,
			colHash:      hash,
		}).
		OnConflict(goqu.DoNothing()).
		ToSQL()
	if err != nil {
		return fmt.Errorf("save checkpoint: build query: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}
	return nil
}
