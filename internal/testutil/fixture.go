// Package testutil provides deterministic fixtures for simulation tests.
package testutil

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/cellsim/internal/engine"
	"github.com/roach88/cellsim/internal/geom"
	"github.com/roach88/cellsim/internal/regionexpr"
	"github.com/roach88/cellsim/internal/rng"
	"github.com/roach88/cellsim/internal/world"
)

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Fixture is a seeded world with its engine environment.
type Fixture struct {
	Geometry *geom.Geometry
	World    *world.World
	Env      *engine.Env
}

// NewFixture creates an empty geometry and world with default physical
// constants, the given placement policy and a seeded RNG.
func NewFixture(seed uint64, policy world.Policy) *Fixture {
	g := geom.New()
	cfg := world.DefaultConfig()
	cfg.FailurePolicy = policy
	logger := DiscardLogger()
	w := world.New(cfg, g, logger)
	return &Fixture{
		Geometry: g,
		World:    w,
		Env: &engine.Env{
			World:     w,
			RNG:       rng.New(seed),
			Scheduler: engine.NewScheduler(),
			Logger:    logger,
		},
	}
}

// Box adds a closed box object.
func (f *Fixture) Box(tb testing.TB, name string, min, max geom.Vec3) *geom.Object {
	tb.Helper()
	obj, err := f.Geometry.AddBox(name, min, max)
	require.NoError(tb, err)
	return obj
}

// Cube adds a box from the origin with the given side.
func (f *Fixture) Cube(tb testing.TB, name string, side float64) *geom.Object {
	tb.Helper()
	return f.Box(tb, name, geom.Vec3{}, geom.Vec3{X: side, Y: side, Z: side})
}

// Volume returns the region expression for an object's enclosed volume.
func (f *Fixture) Volume(obj *geom.Object) regionexpr.Expr {
	return regionexpr.ObjectVolume(f.Geometry, obj.ID)
}

// Surface returns the region expression for a named region of obj.
func (f *Fixture) Surface(tb testing.TB, obj *geom.Object, region string) regionexpr.Expr {
	tb.Helper()
	r, ok := f.Geometry.RegionByName(obj.ID, region)
	require.True(tb, ok, "region %s[%s]", obj.Name, region)
	return regionexpr.SurfaceRegion(f.Geometry, r.ID)
}

// VolumeSpecies registers a volume species.
func (f *Fixture) VolumeSpecies(tb testing.TB, name string) world.SpeciesID {
	tb.Helper()
	id, err := f.World.AddSpecies(world.Species{Name: name, D: 1e-6, SpaceStep: 1, TimeStep: 1})
	require.NoError(tb, err)
	return id
}

// SurfaceSpecies registers a surface species.
func (f *Fixture) SurfaceSpecies(tb testing.TB, name string) world.SpeciesID {
	tb.Helper()
	id, err := f.World.AddSpecies(world.Species{Name: name, D: 1e-8, SpaceStep: 1, TimeStep: 1, Surface: true})
	require.NoError(tb, err)
	return id
}

// SurfaceClass registers a surface class and attaches it to the named
// regions of obj.
func (f *Fixture) SurfaceClass(tb testing.TB, name string, obj *geom.Object, regions ...string) world.SpeciesID {
	tb.Helper()
	id, err := f.World.AddSpecies(world.Species{Name: name, SurfaceClass: true})
	require.NoError(tb, err)
	for _, rn := range regions {
		r, ok := f.Geometry.RegionByName(obj.ID, rn)
		require.True(tb, ok, "region %s[%s]", obj.Name, rn)
		require.NoError(tb, f.Geometry.SetSurfaceClass(r.ID, int(id)))
	}
	return id
}

// Engine creates an engine over the fixture's environment with a fixed
// run id.
func (f *Fixture) Engine(opts ...engine.Option) *engine.Engine {
	opts = append([]engine.Option{engine.WithRunID("test-run")}, opts...)
	return engine.New(f.Env, opts...)
}

// OccupiedTiles counts occupied tiles over walls.
func (f *Fixture) OccupiedTiles(walls []geom.WallID) int {
	n := 0
	for _, wid := range walls {
		n += f.Geometry.Wall(wid).Grid.OccupiedCount()
	}
	return n
}

// TotalTiles counts tiles over walls.
func (f *Fixture) TotalTiles(walls []geom.WallID) int {
	n := 0
	for _, wid := range walls {
		n += f.Geometry.Wall(wid).Grid.TileCount()
	}
	return n
}
