package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"

	"github.com/roach88/cellsim/internal/count"
	"github.com/roach88/cellsim/internal/engine"
)

type runRow struct {
	ID             string  `db:"id"`
	ModelName      string  `db:"model_name"`
	ModelHash      string  `db:"model_hash"`
	Seed           int64   `db:"seed"`
	Iterations     int64   `db:"iterations"`
	TimeStep       float64 `db:"time_step"`
	EngineVersion  string  `db:"engine_version"`
	Status         string  `db:"status"`
	FinalIteration float64 `db:"final_iteration"`
}

func (r runRow) run() Run {
	return Run{
		ID:             r.ID,
		ModelName:      r.ModelName,
		ModelHash:      r.ModelHash,
		Seed:           uint64(r.Seed),
		Iterations:     r.Iterations,
		TimeStep:       r.TimeStep,
		EngineVersion:  r.EngineVersion,
		Status:         r.Status,
		FinalIteration: r.FinalIteration,
	}
}

type countRow struct {
	Buffer    string  `db:"buffer"`
	Column    string  `db:"col"`
	Iteration float64 `db:"iteration"`
	Time      float64 `db:"time"`
	Value     float64 `db:"value"`
}

// CheckpointRecord is one stored engine snapshot.
type CheckpointRecord struct {
	Seq       int64   `db:"seq" json:"seq"`
	RunID     string  `db:"run_id" json:"run_id"`
	Iteration float64 `db:"iteration" json:"iteration"`
	Time      float64 `db:"time" json:"time"`
	Hash      string  `db:"hash" json:"hash"`
	Payload   string  `db:"payload" json:"-"`
}

// Snapshot decodes the stored payload.
func (c CheckpointRecord) Snapshot() (engine.Snapshot, error) {
	return unmarshalSnapshot(c.Payload)
}

var runColumns = []any{
	colID, colModelName, colModelHash, colSeed, colIterations,
	colTimeStep, colEngineVersion, colStatus, colFinalIteration,
}

// GetRun returns the run with the given id.
func (s *Store) GetRun(ctx context.Context, runID string) (Run, error) {
	query, args, err := s.dialect.From(tableRuns).Prepared(true).
		Select(runColumns...).
		Where(goqu.Ex{colID: runID}).
		ToSQL()
	if err != nil {
		return Run{}, fmt.Errorf("get run: build query: %w", err)
	}

	var row runRow
	if err := s.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, fmt.Errorf("get run %s: %w", runID, ErrRunNotFound)
		}
		return Run{}, fmt.Errorf("get run: %w", err)
	}
	return row.run(), nil
}

// ListRuns returns every run in creation order.
//
// Returns an empty slice (not nil) if the store holds no runs.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	query, args, err := s.dialect.From(tableRuns).Prepared(true).
		Select(runColumns...).
		Order(goqu.I(colSeq).Asc()).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("list runs: build query: %w", err)
	}

	var rows []runRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}

	runs := make([]Run, 0, len(rows))
	for _, r := range rows {
		runs = append(runs, r.run())
	}
	return runs, nil
}

// ReadCounts returns the rows of one count buffer of a run in append order.
// An empty buffer name returns the rows of every buffer.
//
// Returns an empty slice (not nil) if the buffer has no rows.
func (s *Store) ReadCounts(ctx context.Context, runID, buffer string) ([]count.Row, error) {
	where := goqu.Ex{colRunID: runID}
	if buffer != "" {
		where[colBuffer] = buffer
	}

	query, args, err := s.dialect.From(tableCountRows).Prepared(true).
		Select(colBuffer, colColumn, colIteration, colTime, colValue).
		Where(where).
		Order(goqu.I(colSeq).Asc()).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("read counts: build query: %w", err)
	}

	var rows []countRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("read counts: %w", err)
	}

	out := make([]count.Row, 0, len(rows))
	for _, r := range rows {
		out = append(out, count.Row{
			Buffer:    r.Buffer,
			Column:    r.Column,
			Iteration: r.Iteration,
			Time:      r.Time,
			Value:     r.Value,
		})
	}
	return out, nil
}

// ReadBuffers returns the buffer names of a run in the order they were
// first written.
func (s *Store) ReadBuffers(ctx context.Context, runID string) ([]string, error) {
	query, args, err := s.dialect.From(tableCountRows).Prepared(true).
		Select(colBuffer).
		Where(goqu.Ex{colRunID: runID}).
		GroupBy(colBuffer).
		Order(goqu.MIN(colSeq).Asc()).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("read buffers: build query: %w", err)
	}

	buffers := []string{}
	if err := s.db.SelectContext(ctx, &buffers, query, args...); err != nil {
		return nil, fmt.Errorf("read buffers: %w", err)
	}
	return buffers, nil
}

var checkpointColumns = []any{colSeq, colRunID, colIteration, colTime, colHash, colPayload}

// ReadCheckpoints returns every checkpoint of a run in the order taken.
//
// Returns an empty slice (not nil) if the run has no checkpoints.
func (s *Store) ReadCheckpoints(ctx context.Context, runID string) ([]CheckpointRecord, error) {
	query, args, err := s.dialect.From(tableCheckpoints).Prepared(true).
		Select(checkpointColumns...).
		Where(goqu.Ex{colRunID: runID}).
		Order(goqu.I(colSeq).Asc()).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("read checkpoints: build query: %w", err)
	}

	records := []CheckpointRecord{}
	if err := s.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("read checkpoints: %w", err)
	}
	return records, nil
}

// LatestCheckpoint returns the most recent checkpoint of a run.
func (s *Store) LatestCheckpoint(ctx context.Context, runID string) (CheckpointRecord, error) {
	query, args, err := s.dialect.From(tableCheckpoints).Prepared(true).
		Select(checkpointColumns...).
		Where(goqu.Ex{colRunID: runID}).
		Order(goqu.I(colSeq).Desc()).
		Limit(1).
		ToSQL()
	if err != nil {
		return CheckpointRecord{}, fmt.Errorf("latest checkpoint: build query: %w", err)
	}

	var rec CheckpointRecord
	if err := s.db.GetContext(ctx, &rec, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return CheckpointRecord{}, fmt.Errorf("latest checkpoint of %s: %w", runID, ErrCheckpointNotFound)
		}
		return CheckpointRecord{}, fmt.Errorf("latest checkpoint: %w", err)
	}
	return rec, nil
}
