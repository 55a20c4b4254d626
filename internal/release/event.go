// Package release implements release sites: events that create molecules
// (or remove them, for negative counts) following a release pattern, a
// release shape and a number-computation method.
package release

import (
	"context"
	"fmt"

	"github.com/roach88/cellsim/internal/engine"
	"github.com/roach88/cellsim/internal/geom"
	"github.com/roach88/cellsim/internal/regionexpr"
	"github.com/roach88/cellsim/internal/world"
)

// Shape selects where molecules are placed.
type Shape int

const (
	ShapeSpherical Shape = iota
	ShapeSphericalShell
	ShapeRegion
	ShapeList
	ShapeInitialSurfaceRegion
)

func (s Shape) String() string {
	switch s {
	case ShapeSpherical:
		return "spherical"
	case ShapeSphericalShell:
		return "spherical_shell"
	case ShapeRegion:
		return "region"
	case ShapeList:
		return "list"
	case ShapeInitialSurfaceRegion:
		return "initial_surface_region"
	default:
		return fmt.Sprintf("shape(%d)", int(s))
	}
}

// ParseShape parses the names produced by Shape.String.
func ParseShape(s string) (Shape, error) {
	for sh := ShapeSpherical; sh <= ShapeInitialSurfaceRegion; sh++ {
		if sh.String() == s {
			return sh, nil
		}
	}
	return 0, fmt.Errorf("unknown release shape %q", s)
}

// NumberMethod selects how many molecules one firing releases.
type NumberMethod int

const (
	ConstNum NumberMethod = iota
	GaussNum
	VolNum
	ConcentrationNum
	DensityNum
)

func (m NumberMethod) String() string {
	switch m {
	case ConstNum:
		return "const_num"
	case GaussNum:
		return "gauss_num"
	case VolNum:
		return "vol_num"
	case ConcentrationNum:
		return "concentration_num"
	case DensityNum:
		return "density_num"
	default:
		return fmt.Sprintf("method(%d)", int(m))
	}
}

// ParseNumberMethod parses the names produced by NumberMethod.String.
func ParseNumberMethod(s string) (NumberMethod, error) {
	for m := ConstNum; m <= DensityNum; m++ {
		if m.String() == s {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown release number method %q", s)
}

// ListItem is one molecule of a List release.
type ListItem struct {
	Species     world.SpeciesID
	Orientation int
	Pos         geom.Vec3
}

// InitialItem seeds one species onto the walls of an initial surface
// region, either by density (molecules per µm²) or by absolute number.
type InitialItem struct {
	Species     world.SpeciesID
	Orientation int
	Density     float64
	Number      int
	ByNumber    bool
}

// Event is a release site.
//
// Lengths (Location, Diameter, DiameterStd) are in internal units.
// Concentration is molar for volume releases and molecules per µm² for
// DensityNum.
type Event struct {
	engine.BaseEvent

	Species     world.SpeciesID
	Orientation int
	Shape       Shape
	Method      NumberMethod

	ReleaseNumber float64
	NumberStd     float64
	Concentration float64
	Location      geom.Vec3
	Diameter      geom.Vec3
	DiameterStd   float64

	Region  regionexpr.Expr
	List    []ListItem
	Initial []InitialItem

	ReleaseProbability float64
	Pattern            Pattern

	state patternState

	speciesName string
	walls       []geom.WallID
	cumAreas    []float64
	volume      float64
	exactVolume bool

	seeding *Seeding

	initialized  bool
	lastReleased int
	skipped      int
}

// New creates a release site with a single-release pattern and
// probability 1.
func New(name string, species world.SpeciesID, shape Shape, method NumberMethod) *Event {
	return &Event{
		BaseEvent: engine.BaseEvent{
			Kind:  engine.EventTypeRelease,
			Label: name,
		},
		Species:            species,
		Shape:              shape,
		Method:             method,
		ReleaseProbability: 1,
		Pattern:            SingleRelease(),
	}
}

// Init validates the site against the world, caches the region's wall
// table and computes the first firing time. It returns false when the
// pattern never fires; such events must not be scheduled.
func (r *Event) Init(w *world.World) (bool, error) {
	if err := r.validate(w); err != nil {
		return false, err
	}
	r.speciesName = w.SpeciesName(r.Species)

	if r.needsWallTable() {
		walls, err := r.Region.Walls(w.Geometry())
		if err != nil {
			return false, regionError(err)
		}
		r.walls = walls
		r.cumAreas = CumulativeAreas(w.Geometry(), walls)
	}
	if r.Shape == ShapeRegion && r.Region.IsVolume() {
		vol, exact, err := r.Region.Volume(w.Geometry())
		if err != nil {
			return false, regionError(err)
		}
		r.volume, r.exactVolume = vol, exact
	}

	r.initialized = true
	return r.UpdateEventTimeForNextScheduledTime(), nil
}

func (r *Event) needsWallTable() bool {
	switch r.Shape {
	case ShapeInitialSurfaceRegion:
		return true
	case ShapeRegion:
		return r.Region.IsSurface()
	}
	return false
}

// UpdateEventTimeForNextScheduledTime moves the event to its next firing:
// actual_release_time = delay + train·train_interval + release·release_interval
// and event_time = floor(actual_release_time). It returns false when the
// pattern is exhausted.
func (r *Event) UpdateEventTimeForNextScheduledTime() bool {
	t, ok := r.state.advance(r.Pattern)
	if !ok {
		return false
	}
	r.Time = t
	return true
}

// Reschedule implements engine.Event.
func (r *Event) Reschedule() bool {
	if r.Shape == ShapeInitialSurfaceRegion {
		return false
	}
	return r.UpdateEventTimeForNextScheduledTime()
}

// NeedsSecondaryOrdering implements engine.Event: releases landing in the
// same iteration fire in actual-time order.
func (r *Event) NeedsSecondaryOrdering() bool { return true }

// SecondaryOrderingValue implements engine.Event.
func (r *Event) SecondaryOrderingValue() float64 { return r.state.actualReleaseTime }

// ActualReleaseTime returns the sub-iteration time of the pending firing.
func (r *Event) ActualReleaseTime() float64 { return r.state.actualReleaseTime }

// LastReleased returns the signed number of molecules the last firing
// created (negative for removals).
func (r *Event) LastReleased() int { return r.lastReleased }

// Skipped returns how many firings release_probability suppressed.
func (r *Event) Skipped() int { return r.skipped }

// Step performs one firing.
func (r *Event) Step(_ context.Context, env *engine.Env) error {
	if !r.initialized {
		return engine.NewRuntimeError(engine.ErrCodeInvalidState, "release %q stepped before Init", r.Label)
	}
	if r.ReleaseProbability < 1 && env.RNG.Uniform() > r.ReleaseProbability {
		r.skipped++
		r.lastReleased = 0
		env.Logger.Debug("release skipped",
			"event", r.Label,
			"iteration", r.Time,
			"release_probability", r.ReleaseProbability,
		)
		return nil
	}
	return r.release(env)
}

// ReleaseFromReaction fires the site immediately at time t, outside the
// scheduler. It is called from a reaction callback while a diffusion step
// is in flight; the new molecules go onto that step's pending-action list.
func (r *Event) ReleaseFromReaction(env *engine.Env, t float64) error {
	if !r.initialized {
		return engine.NewRuntimeError(engine.ErrCodeInvalidState, "release %q fired before Init", r.Label)
	}
	saved := r.state.actualReleaseTime
	r.state.actualReleaseTime = t
	defer func() { r.state.actualReleaseTime = saved }()
	return r.release(env)
}

func (r *Event) release(env *engine.Env) error {
	var (
		placed int
		err    error
	)
	switch r.Shape {
	case ShapeSpherical, ShapeSphericalShell:
		placed, err = r.releaseEllipsoid(env)
	case ShapeRegion:
		if r.Region.IsSurface() {
			placed, err = r.releaseOntoRegions(env)
		} else {
			placed, err = r.releaseInsideRegions(env)
		}
	case ShapeList:
		placed, err = r.releaseList(env)
	case ShapeInitialSurfaceRegion:
		placed, err = r.releaseInitialSurface(env)
	default:
		err = engine.NewRuntimeError(engine.ErrCodeUnsupportedConfig, "unknown release shape %s", r.Shape)
	}
	r.lastReleased = placed
	if err != nil {
		return err
	}
	env.Logger.Debug("release fired",
		"event", r.Label,
		"iteration", r.Time,
		"actual_time", r.state.actualReleaseTime,
		"species", r.speciesName,
		"placed", placed,
	)
	return nil
}

// track registers a new molecule with the in-flight diffusion step, if any.
func (r *Event) track(env *engine.Env, id world.MoleculeID) {
	if p := env.World.Pending(); p != nil {
		p.Add(id, r.state.actualReleaseTime)
	}
}

func regionError(err error) error {
	return &engine.RuntimeError{
		Code:    engine.ErrCodeInvalidRegionExpr,
		Message: err.Error(),
		Cause:   err,
	}
}
