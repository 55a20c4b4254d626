package sim

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cellsim/internal/count"
	"github.com/roach88/cellsim/internal/engine"
	"github.com/roach88/cellsim/internal/geom"
	"github.com/roach88/cellsim/internal/ir"
	"github.com/roach88/cellsim/internal/release"
	"github.com/roach88/cellsim/internal/world"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fillAndDrain releases 100 A into a 1 µm box at iteration 0, removes 30
// at iteration 5 and counts A every 2 iterations through iteration 10.
func fillAndDrain() *ir.Model {
	return &ir.Model{
		Name: "fill_and_drain",
		Config: ir.Config{
			Seed: 1, Iterations: 10, TimeStep: 1e-6, GridDensity: 10000,
			PlacementFailurePolicy: "warning",
		},
		Species: []ir.Species{
			{Name: "A", DiffusionConstant: 1e-6},
			{Name: "membrane", SurfaceClass: true},
		},
		Reactions: []ir.Reaction{{Name: "decay"}},
		Objects: []ir.Object{{
			Name: "cell", Max: ir.Vec{1, 1, 1},
			Regions: []ir.Region{
				{Name: "top", SurfaceClass: "membrane"},
				{Name: "sides", Faces: []string{"left", "right"}},
			},
		}},
		Releases: []ir.ReleaseSite{
			{Name: "fill", Species: "A", Shape: "region", Method: "const_num", Number: 100, Region: "cell", Probability: 1},
			{
				Name: "drain", Species: "A", Shape: "region", Method: "const_num", Number: -30, Region: "cell", Probability: 1,
				Pattern: &ir.Pattern{Delay: 5e-6, NumberOfTrains: 1, ReleaseInterval: 1e-6},
			},
		},
		Counts: []ir.Count{{
			Name: "total", Every: 2,
			Items: []ir.CountItem{{
				Buffer: "out", Column: "A", Multiplier: 1,
				Terms: []ir.CountTerm{{Species: "A", In: "cell"}},
			}},
		}},
	}
}

func TestBuild_Wiring(t *testing.T) {
	sim, err := Build(fillAndDrain(), Options{Logger: discardLogger(), RunID: "run-1"})
	require.NoError(t, err)

	assert.Equal(t, "run-1", sim.Engine.RunID())
	assert.Equal(t, 10.0, sim.Until())
	assert.NotNil(t, sim.Buffers, "no sink means in-memory buffers")
	assert.Len(t, sim.Releases, 2)
	assert.Len(t, sim.Counts, 1)
	assert.NotNil(t, sim.Diffuse)
	assert.Equal(t, 4, sim.Engine.Scheduler().Len())

	// 1 µm at 10000 tiles/µm² is 100 length units.
	obj, ok := sim.Geometry.ObjectByName("cell")
	require.True(t, ok)
	assert.InDelta(t, 100, obj.Bounds().Size().X, 1e-9)

	vol, exact := sim.Geometry.ObjectVolume(obj.ID)
	assert.True(t, exact)
	assert.InDelta(t, 1e6, vol, 1e-3)
}

func TestBuild_SpeciesUnits(t *testing.T) {
	sim, err := Build(fillAndDrain(), Options{Logger: discardLogger()})
	require.NoError(t, err)

	id, ok := sim.World.SpeciesByName("A")
	require.True(t, ok)
	s := sim.World.Species(id)
	// sqrt(4 * 1e8 * 1e-6 * 1e-6) µm = 0.02 µm = 2 length units.
	assert.InDelta(t, 2.0, s.SpaceStep, 1e-9)
	assert.Equal(t, 1.0, s.TimeStep)
}

func TestBuild_Regions(t *testing.T) {
	sim, err := Build(fillAndDrain(), Options{Logger: discardLogger()})
	require.NoError(t, err)

	obj, _ := sim.Geometry.ObjectByName("cell")
	membrane, _ := sim.World.SpeciesByName("membrane")

	top, ok := sim.Geometry.RegionByName(obj.ID, "top")
	require.True(t, ok)
	assert.Equal(t, int(membrane), top.SurfaceClass)

	sides, ok := sim.Geometry.RegionByName(obj.ID, "sides")
	require.True(t, ok)
	assert.Len(t, sides.Walls, 4)
	assert.Equal(t, geom.NoSurfaceClass, sides.SurfaceClass)
}

func TestBuild_DropsReleaseThatNeverFires(t *testing.T) {
	m := fillAndDrain()
	m.Releases[1].Pattern = &ir.Pattern{NumberOfTrains: 0, ReleaseInterval: 1e-6}

	sim, err := Build(m, Options{Logger: discardLogger()})
	require.NoError(t, err)
	assert.Len(t, sim.Releases, 1)
}

func TestBuild_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(m *ir.Model)
		want   string
	}{
		{"bad policy", func(m *ir.Model) { m.Config.PlacementFailurePolicy = "loud" }, "policy"},
		{"zero time step", func(m *ir.Model) { m.Config.TimeStep = 0 }, "time step"},
		{"unknown shape", func(m *ir.Model) { m.Releases[0].Shape = "cube" }, "release fill"},
		{"unknown face region", func(m *ir.Model) { m.Objects[0].Regions[0].Name = "roof" }, "cell[roof]"},
		{"unknown reaction", func(m *ir.Model) {
			m.Counts[0].Items[0].Terms = []ir.CountTerm{{Reaction: "bind"}}
		}, "unknown reaction"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := fillAndDrain()
			tt.mutate(m)
			_, err := Build(m, Options{Logger: discardLogger()})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestBuild_BadRegionExpressionIsRuntimeError(t *testing.T) {
	m := fillAndDrain()
	m.Releases[0].Region = "cell + nucleus"

	_, err := Build(m, Options{Logger: discardLogger()})
	require.Error(t, err)
	assert.Equal(t, engine.ErrCodeInvalidRegionExpr, engine.CodeOf(err))
}

func TestPattern_SecondsToIterations(t *testing.T) {
	p := Pattern(&ir.Pattern{Delay: 5e-6, NumberOfTrains: 3, TrainInterval: 1e-5, TrainDuration: 4e-6, ReleaseInterval: 2e-6}, 1e-6)
	assert.InDelta(t, 5, p.Delay, 1e-9)
	assert.Equal(t, 3, p.NumberOfTrains)
	assert.InDelta(t, 10, p.TrainInterval, 1e-9)
	assert.InDelta(t, 4, p.TrainDuration, 1e-9)
	assert.InDelta(t, 2, p.ReleaseInterval, 1e-9)

	assert.Equal(t, release.SingleRelease(), Pattern(nil, 1e-6))
}

func TestSimulation_FillAndDrain(t *testing.T) {
	sim, err := Build(fillAndDrain(), Options{Logger: discardLogger()})
	require.NoError(t, err)
	require.NoError(t, sim.Engine.Run(context.Background(), sim.Until()))

	series := sim.Buffers.Series("out", "A")
	var values, iterations []float64
	for _, r := range series {
		values = append(values, r.Value)
		iterations = append(iterations, r.Iteration)
	}
	assert.Equal(t, []float64{0, 2, 4, 6, 8, 10}, iterations)
	assert.Equal(t, []float64{100, 100, 100, 70, 70, 70}, values)
	assert.InDelta(t, 4e-6, series[2].Time, 1e-15)
	assert.Equal(t, 70, sim.World.NumLive())
}

func TestSimulation_Deterministic(t *testing.T) {
	positions := func() []float64 {
		sim, err := Build(fillAndDrain(), Options{Logger: discardLogger()})
		require.NoError(t, err)
		require.NoError(t, sim.Engine.Run(context.Background(), sim.Until()))
		var out []float64
		sim.World.Each(func(m *world.Molecule) bool {
			out = append(out, m.Pos.X, m.Pos.Y, m.Pos.Z)
			return true
		})
		return out
	}
	assert.Equal(t, positions(), positions())
}

func TestSimulation_CustomSink(t *testing.T) {
	buffers := count.NewMemoryBuffers()
	sim, err := Build(fillAndDrain(), Options{Logger: discardLogger(), Sink: buffers})
	require.NoError(t, err)
	assert.Nil(t, sim.Buffers)
	require.NoError(t, sim.Engine.Run(context.Background(), 0))
	assert.Len(t, buffers.Rows("out"), 1)
}

func TestSimulation_OverlappingInitialSurfaceSites(t *testing.T) {
	m := fillAndDrain()
	m.Config.Iterations = 0
	m.Species = append(m.Species,
		ir.Species{Name: "S1", DiffusionConstant: 1e-8, Surface: true},
		ir.Species{Name: "S2", DiffusionConstant: 1e-8, Surface: true},
	)
	m.Releases = append(m.Releases,
		ir.ReleaseSite{
			Name: "coat", Shape: "initial_surface_region", Region: "cell[ALL]", Probability: 1,
			Initial: []ir.InitialItem{{Species: "S1", Orientation: 1, Density: 5000}},
		},
		ir.ReleaseSite{
			Name: "cap", Shape: "initial_surface_region", Region: "cell[top]", Probability: 1,
			Initial: []ir.InitialItem{{Species: "S2", Orientation: 1, Density: 5000}},
		},
	)

	sim, err := Build(m, Options{Logger: discardLogger()})
	require.NoError(t, err)
	require.NoError(t, sim.Engine.Run(context.Background(), sim.Until()))

	s1, ok := sim.World.SpeciesByName("S1")
	require.True(t, ok)
	s2, ok := sim.World.SpeciesByName("S2")
	require.True(t, ok)

	// Both sites draw from one table on the top walls, so the cap gets its
	// full 5000 per µm² over the 1 µm² top face.
	assert.InDelta(t, 5000, len(sim.World.Matching(s2, nil)), 250)
	// The coat sees 6 µm² at the same density.
	assert.InDelta(t, 30000, len(sim.World.Matching(s1, nil)), 600)
}
