package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cellsim/internal/count"
)

func TestGetRun_NotFound(t *testing.T) {
	s := createTestStore(t)
	_, err := s.GetRun(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestListRuns_CreationOrder(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	runs, err := s.ListRuns(ctx)
	require.NoError(t, err)
	assert.NotNil(t, runs)
	assert.Empty(t, runs)

	for _, id := range []string{"zeta", "alpha", "mid"} {
		createTestRun(t, s, id)
	}

	runs, err = s.ListRuns(ctx)
	require.NoError(t, err)
	ids := make([]string, len(runs))
	for i, r := range runs {
		ids[i] = r.ID
	}
	assert.Equal(t, []string{"zeta", "alpha", "mid"}, ids, "runs list by insertion, not by id")
}

func TestReadCounts_FiltersByRunAndBuffer(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestRun(t, s, "r1")
	createTestRun(t, s, "r2")

	require.NoError(t, s.AppendCountRows(ctx, "r1", []count.Row{
		{Buffer: "a", Column: "x", Value: 1},
		{Buffer: "b", Column: "x", Value: 2},
		{Buffer: "a", Column: "x", Iteration: 1, Value: 3},
	}))
	require.NoError(t, s.AppendCountRows(ctx, "r2", []count.Row{{Buffer: "a", Column: "x", Value: 99}}))

	a, err := s.ReadCounts(ctx, "r1", "a")
	require.NoError(t, err)
	require.Len(t, a, 2)
	assert.Equal(t, 1.0, a[0].Value)
	assert.Equal(t, 3.0, a[1].Value)

	all, err := s.ReadCounts(ctx, "r1", "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	none, err := s.ReadCounts(ctx, "r1", "c")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestReadBuffers_FirstWriteOrder(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestRun(t, s, "r1")

	require.NoError(t, s.AppendCountRows(ctx, "r1", []count.Row{
		{Buffer: "zz", Column: "x"},
		{Buffer: "aa", Column: "x"},
		{Buffer: "zz", Column: "x"},
	}))

	buffers, err := s.ReadBuffers(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, []string{"zz", "aa"}, buffers)
}

func TestLatestCheckpoint_NotFound(t *testing.T) {
	s := createTestStore(t)
	createTestRun(t, s, "r1")

	_, err := s.LatestCheckpoint(context.Background(), "r1")
	assert.ErrorIs(t, err, ErrCheckpointNotFound)

	recs, err := s.ReadCheckpoints(context.Background(), "r1")
	require.NoError(t, err)
	assert.NotNil(t, recs)
	assert.Empty(t, recs)
}

func TestLatestCheckpoint_PicksNewest(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestRun(t, s, "r1")

	require.NoError(t, s.SaveCheckpoint(ctx, testSnapshot("r1", 2)))
	require.NoError(t, s.SaveCheckpoint(ctx, testSnapshot("r1", 8)))

	rec, err := s.LatestCheckpoint(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, 8.0, rec.Iteration)
}
