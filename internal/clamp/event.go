// Package clamp implements boundary clamps. Each iteration a clamp injects
// volume molecules just off the walls carrying a surface class, in the
// number expected to cross those walls at a fixed target concentration.
package clamp

import (
	"context"
	"fmt"
	"io"
	"math"

	"github.com/roach88/cellsim/internal/engine"
	"github.com/roach88/cellsim/internal/geom"
	"github.com/roach88/cellsim/internal/release"
	"github.com/roach88/cellsim/internal/world"
)

// Event is a concentration clamp on the walls of one surface class.
//
// Orientation 0 clamps both sides of the walls; +1 or -1 restricts
// injection to the side the wall normal points to, or away from.
type Event struct {
	engine.BaseEvent

	Species       world.SpeciesID
	SurfaceClass  world.SpeciesID
	Concentration float64
	Orientation   int

	speciesName string
	className   string

	walls         []geom.WallID
	cumAreas      []float64
	scalingFactor float64

	initialized  bool
	lastReleased int
}

// New creates a clamp that fires every iteration starting at iteration 0.
func New(name string, species, surfaceClass world.SpeciesID, concentration float64, orientation int) *Event {
	return &Event{
		BaseEvent: engine.BaseEvent{
			Kind:        engine.EventTypeClampRelease,
			Label:       name,
			Periodicity: 1,
		},
		Species:       species,
		SurfaceClass:  surfaceClass,
		Concentration: concentration,
		Orientation:   orientation,
	}
}

// Init resolves the walls carrying the surface class and derives the
// scaling factor from their total area.
func (c *Event) Init(w *world.World) error {
	s := w.Species(c.Species)
	if s == nil || !s.IsVolume() {
		return engine.NewRuntimeError(engine.ErrCodeUnsupportedConfig,
			"clamp %q: clamped species %d is not a volume species", c.Label, c.Species)
	}
	class := w.Species(c.SurfaceClass)
	if class == nil || !class.SurfaceClass {
		return engine.NewRuntimeError(engine.ErrCodeUnsupportedConfig,
			"clamp %q: species %d is not a surface class", c.Label, c.SurfaceClass)
	}
	if c.Orientation < -1 || c.Orientation > 1 {
		return engine.NewRuntimeError(engine.ErrCodeUnsupportedConfig,
			"clamp %q: orientation must be -1, 0 or 1", c.Label)
	}
	if c.Concentration < 0 || math.IsNaN(c.Concentration) {
		return engine.NewRuntimeError(engine.ErrCodeUnsupportedConfig,
			"clamp %q: concentration %g must not be negative", c.Label, c.Concentration)
	}
	c.speciesName, c.className = s.Name, class.Name

	g := w.Geometry()
	c.walls = c.walls[:0]
	for _, wl := range g.Walls() {
		if g.WallHasSurfaceClass(wl.ID, int(c.SurfaceClass)) {
			c.walls = append(c.walls, wl.ID)
		}
	}
	c.cumAreas = release.CumulativeAreas(g, c.walls)

	// Molecules crossing area A per step at concentration c, with
	// space_step = sqrt(4·D·dt): c·A·space_step/sqrt(pi), both sides.
	lu := w.Config().LengthUnit()
	c.scalingFactor = c.TotalArea() * lu * lu * lu * world.NAvogadro * 1e-15 / math.Sqrt(math.Pi)
	if c.Orientation != 0 {
		c.scalingFactor /= 2
	}
	c.initialized = true
	return nil
}

// Walls returns the clamped walls in wall order.
func (c *Event) Walls() []geom.WallID { return c.walls }

// TotalArea returns the summed area of the clamped walls.
func (c *Event) TotalArea() float64 {
	if len(c.cumAreas) == 0 {
		return 0
	}
	return c.cumAreas[len(c.cumAreas)-1]
}

// ScalingFactor returns the area and unit factor applied to concentration.
func (c *Event) ScalingFactor() float64 { return c.scalingFactor }

// LastReleased returns how many molecules the last firing injected.
func (c *Event) LastReleased() int { return c.lastReleased }

// ExpectedCollisions returns the Poisson mean of one firing:
// scaling_factor · space_step · concentration / time_step.
func (c *Event) ExpectedCollisions(w *world.World) float64 {
	s := w.Species(c.Species)
	if s == nil {
		return 0
	}
	return c.scalingFactor * s.SpaceStep * c.Concentration / s.TimeStep
}

// Step injects one iteration's worth of clamped molecules.
func (c *Event) Step(_ context.Context, env *engine.Env) error {
	if !c.initialized {
		return engine.NewRuntimeError(engine.ErrCodeInvalidState, "clamp %q stepped before Init", c.Label)
	}
	c.lastReleased = 0
	if len(c.walls) == 0 {
		return nil
	}

	mean := c.ExpectedCollisions(env.World)
	n := env.RNG.Poisson(mean)
	g := env.World.Geometry()
	total := c.TotalArea()

	for i := 0; i < n; i++ {
		k := release.CumAreaBisectHigh(c.cumAreas, env.RNG.Uniform()*total)
		wl := g.Wall(c.walls[k])
		p := wl.UniformPoint(env.RNG.Uniform(), env.RNG.Uniform())

		side := c.Orientation
		if side == 0 {
			side = env.RNG.Sign()
		}
		pos := p.Add(wl.Normal.Scale(float64(side) * offset(p)))

		id, err := env.World.AddVolumeMolecule(c.Species, pos, c.Time, world.FlagClamped|world.FlagScheduleUnimol)
		if err != nil {
			return err
		}
		if pending := env.World.Pending(); pending != nil {
			pending.Add(id, c.Time)
		}
		c.lastReleased++
	}

	env.Logger.Debug("clamp fired",
		"event", c.Label,
		"iteration", c.Time,
		"species", c.speciesName,
		"expected", mean,
		"placed", n,
	)
	return nil
}

// offset is the distance off the wall, scaled so it survives rounding at
// large coordinates.
func offset(p geom.Vec3) float64 {
	return 1e-9 * math.Max(1, p.MaxAbs())
}

// Dump implements engine.Event.
func (c *Event) Dump(w io.Writer, indent string) {
	c.DumpBase(w, indent)
	in := indent + "  "
	fmt.Fprintf(w, "%sspecies: %s\n", in, c.speciesName)
	fmt.Fprintf(w, "%ssurface_class: %s\n", in, c.className)
	fmt.Fprintf(w, "%sconcentration: %g\n", in, c.Concentration)
	fmt.Fprintf(w, "%sorientation: %d\n", in, c.Orientation)
	fmt.Fprintf(w, "%swalls: %d (total area %g)\n", in, len(c.walls), c.TotalArea())
	fmt.Fprintf(w, "%sscaling_factor: %g\n", in, c.scalingFactor)
}

// ToCheckpoint implements engine.Event.
func (c *Event) ToCheckpoint(timeStep float64) engine.Checkpoint {
	cp := c.BaseCheckpoint(timeStep)
	cp.State["species"] = c.speciesName
	cp.State["surface_class"] = c.className
	cp.State["concentration"] = c.Concentration
	cp.State["orientation"] = c.Orientation
	cp.State["scaling_factor"] = c.scalingFactor
	cp.State["walls"] = len(c.walls)
	return cp
}
