package sim

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/roach88/cellsim/internal/clamp"
	"github.com/roach88/cellsim/internal/count"
	"github.com/roach88/cellsim/internal/engine"
	"github.com/roach88/cellsim/internal/geom"
	"github.com/roach88/cellsim/internal/ir"
	"github.com/roach88/cellsim/internal/regionexpr"
	"github.com/roach88/cellsim/internal/release"
	"github.com/roach88/cellsim/internal/rng"
	"github.com/roach88/cellsim/internal/world"
)

// Options configures Build. Zero values are usable: output goes to
// in-memory buffers, molecules stay in place, logs go to slog.Default().
type Options struct {
	Logger       *slog.Logger
	RunID        string
	Sink         count.Sink
	Checkpointer engine.Checkpointer
	Kernel       engine.Kernel
}

// Simulation is a model wired into geometry, world, events and engine,
// ready to run.
type Simulation struct {
	Model    *ir.Model
	Geometry *geom.Geometry
	World    *world.World
	Engine   *engine.Engine
	Buffers  *count.MemoryBuffers

	Releases []*release.Event
	Clamps   []*clamp.Event
	Counts   []*count.Event
	Diffuse  *engine.DiffuseReactEvent
}

// Until returns the last iteration the simulation runs through.
func (s *Simulation) Until() float64 {
	return float64(s.Model.Config.Iterations)
}

// builder carries the partially built simulation. Lengths in the model are
// µm; lu converts them to internal units.
type builder struct {
	m      *ir.Model
	g      *geom.Geometry
	w      *world.World
	sched  *engine.Scheduler
	logger *slog.Logger
	lu     float64
	dt     float64
}

// Build turns a validated model into a runnable simulation. Every event is
// initialized against the world and scheduled; release sites whose pattern
// never fires are dropped.
func Build(m *ir.Model, opts Options) (*Simulation, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	policy, err := world.ParsePolicy(m.Config.PlacementFailurePolicy)
	if err != nil {
		return nil, fmt.Errorf("build: %w", err)
	}
	cfg := world.Config{
		GridDensity:   m.Config.GridDensity,
		TimeStep:      m.Config.TimeStep,
		FailurePolicy: policy,
	}
	if cfg.GridDensity <= 0 {
		cfg.GridDensity = world.DefaultConfig().GridDensity
	}
	if cfg.TimeStep <= 0 {
		return nil, fmt.Errorf("build: time step must be positive, got %g", cfg.TimeStep)
	}

	g := geom.New()
	b := &builder{
		m:      m,
		g:      g,
		w:      world.New(cfg, g, logger),
		sched:  engine.NewScheduler(),
		logger: logger,
		lu:     cfg.LengthUnit(),
		dt:     cfg.TimeStep,
	}

	sim := &Simulation{Model: m, Geometry: g, World: b.w}

	sink := opts.Sink
	if sink == nil {
		sim.Buffers = count.NewMemoryBuffers()
		sink = sim.Buffers
	}

	steps := []func(*Simulation) error{
		b.species,
		b.reactions,
		b.objects,
		b.releases,
		b.clamps,
		func(s *Simulation) error { return b.counts(s, sink) },
	}
	for _, step := range steps {
		if err := step(sim); err != nil {
			return nil, fmt.Errorf("build: %w", err)
		}
	}

	sim.Diffuse = engine.NewDiffuseReactEvent(opts.Kernel, 0)
	b.sched.Schedule(sim.Diffuse)

	env := &engine.Env{
		World:     b.w,
		RNG:       rng.New(m.Config.Seed),
		Scheduler: b.sched,
		Logger:    logger,
	}
	engineOpts := []engine.Option{}
	if opts.RunID != "" {
		engineOpts = append(engineOpts, engine.WithRunID(opts.RunID))
	}
	if opts.Checkpointer != nil {
		engineOpts = append(engineOpts, engine.WithCheckpointer(opts.Checkpointer))
	}
	sim.Engine = engine.New(env, engineOpts...)

	logger.Debug("simulation built",
		"model", m.Name,
		"objects", len(m.Objects),
		"releases", len(sim.Releases),
		"clamps", len(sim.Clamps),
		"counts", len(sim.Counts),
		"scheduled", b.sched.Len(),
	)
	return sim, nil
}

// species registers every species. Space steps follow
// sqrt(4·D·dt) with D converted from cm²/s to µm²/s.
func (b *builder) species(*Simulation) error {
	for _, s := range b.m.Species {
		ts := s.TimeStep
		if ts <= 0 {
			ts = 1
		}
		_, err := b.w.AddSpecies(world.Species{
			Name:         s.Name,
			D:            s.DiffusionConstant,
			SpaceStep:    math.Sqrt(4*1e8*s.DiffusionConstant*ts*b.dt) / b.lu,
			TimeStep:     ts,
			Surface:      s.Surface,
			SurfaceClass: s.SurfaceClass,
		})
		if err != nil {
			return fmt.Errorf("species %s: %w", s.Name, err)
		}
	}
	return nil
}

func (b *builder) reactions(*Simulation) error {
	for _, r := range b.m.Reactions {
		if _, err := b.w.AddReaction(world.Reaction{Name: r.Name}); err != nil {
			return fmt.Errorf("reaction %s: %w", r.Name, err)
		}
	}
	return nil
}

func (b *builder) vec(v ir.Vec) geom.Vec3 {
	return geom.Vec3{X: v[0] / b.lu, Y: v[1] / b.lu, Z: v[2] / b.lu}
}

func (b *builder) speciesID(name string) (world.SpeciesID, error) {
	if name == "" {
		return world.NoSpecies, nil
	}
	id, ok := b.w.SpeciesByName(name)
	if !ok {
		return world.NoSpecies, fmt.Errorf("unknown species %q", name)
	}
	return id, nil
}

// objects adds boxes and their regions. A region without faces attaches a
// surface class to the existing face (or ALL) region of the same name.
func (b *builder) objects(*Simulation) error {
	for _, o := range b.m.Objects {
		obj, err := b.g.AddBox(o.Name, b.vec(o.Min), b.vec(o.Max))
		if err != nil {
			return fmt.Errorf("object %s: %w", o.Name, err)
		}
		for _, r := range o.Regions {
			class := geom.NoSurfaceClass
			if r.SurfaceClass != "" {
				id, err := b.speciesID(r.SurfaceClass)
				if err != nil {
					return fmt.Errorf("region %s[%s]: %w", o.Name, r.Name, err)
				}
				class = int(id)
			}

			if len(r.Faces) == 0 {
				existing, ok := b.g.RegionByName(obj.ID, r.Name)
				if !ok {
					return fmt.Errorf("region %s[%s]: no such face", o.Name, r.Name)
				}
				if err := b.g.SetSurfaceClass(existing.ID, class); err != nil {
					return fmt.Errorf("region %s[%s]: %w", o.Name, r.Name, err)
				}
				continue
			}

			var walls []geom.WallID
			for _, face := range r.Faces {
				fr, ok := b.g.RegionByName(obj.ID, face)
				if !ok {
					return fmt.Errorf("region %s[%s]: unknown face %q", o.Name, r.Name, face)
				}
				walls = append(walls, fr.Walls...)
			}
			if _, err := b.g.AddRegion(obj.ID, r.Name, walls, class); err != nil {
				return fmt.Errorf("region %s[%s]: %w", o.Name, r.Name, err)
			}
		}
	}
	return nil
}

// region parses a region expression against the geometry.
func (b *builder) region(src string) (regionexpr.Expr, error) {
	e, err := regionexpr.Parse(b.g, src)
	if err != nil {
		return regionexpr.Expr{}, &engine.RuntimeError{
			Code:    engine.ErrCodeInvalidRegionExpr,
			Message: err.Error(),
			Cause:   err,
		}
	}
	return e, nil
}

// Pattern converts a release pattern from seconds to iterations. A nil
// pattern is a single release at iteration 0.
func Pattern(p *ir.Pattern, dt float64) release.Pattern {
	if p == nil {
		return release.SingleRelease()
	}
	return release.Pattern{
		Delay:           p.Delay / dt,
		NumberOfTrains:  p.NumberOfTrains,
		TrainInterval:   p.TrainInterval / dt,
		TrainDuration:   p.TrainDuration / dt,
		ReleaseInterval: p.ReleaseInterval / dt,
	}
}

func (b *builder) releases(sim *Simulation) error {
	seeding := release.NewSeeding()
	for i := range b.m.Releases {
		site := &b.m.Releases[i]
		ev, err := b.release(site)
		if err != nil {
			return fmt.Errorf("release %s: %w", site.Name, err)
		}
		ok, err := ev.Init(b.w)
		if err != nil {
			return fmt.Errorf("release %s: %w", site.Name, err)
		}
		if !ok {
			b.logger.Info("release site never fires", "event", site.Name)
			continue
		}
		if ev.Shape == release.ShapeInitialSurfaceRegion {
			seeding.Add(ev)
		}
		sim.Releases = append(sim.Releases, ev)
		b.sched.Schedule(ev)
	}
	return nil
}

func (b *builder) release(site *ir.ReleaseSite) (*release.Event, error) {
	shape, err := release.ParseShape(site.Shape)
	if err != nil {
		return nil, err
	}
	method := release.ConstNum
	if site.Method != "" {
		if method, err = release.ParseNumberMethod(site.Method); err != nil {
			return nil, err
		}
	}
	species, err := b.speciesID(site.Species)
	if err != nil {
		return nil, err
	}

	ev := release.New(site.Name, species, shape, method)
	ev.Orientation = site.Orientation
	ev.ReleaseNumber = site.Number
	ev.NumberStd = site.NumberStd
	ev.Concentration = site.Concentration
	ev.Location = b.vec(site.Location)
	ev.Diameter = b.vec(site.Diameter)
	ev.DiameterStd = site.DiameterStd / b.lu
	ev.ReleaseProbability = site.Probability
	ev.Pattern = Pattern(site.Pattern, b.dt)

	if site.Region != "" {
		if ev.Region, err = b.region(site.Region); err != nil {
			return nil, err
		}
	}
	for _, item := range site.List {
		id, err := b.speciesID(item.Species)
		if err != nil {
			return nil, err
		}
		ev.List = append(ev.List, release.ListItem{
			Species:     id,
			Orientation: item.Orientation,
			Pos:         b.vec(item.Position),
		})
	}
	for _, item := range site.Initial {
		id, err := b.speciesID(item.Species)
		if err != nil {
			return nil, err
		}
		in := release.InitialItem{
			Species:     id,
			Orientation: item.Orientation,
			Density:     item.Density,
		}
		if item.Number != nil {
			in.Number, in.ByNumber = *item.Number, true
		}
		ev.Initial = append(ev.Initial, in)
	}
	return ev, nil
}

func (b *builder) clamps(sim *Simulation) error {
	for _, c := range b.m.Clamps {
		species, err := b.speciesID(c.Species)
		if err != nil {
			return fmt.Errorf("clamp %s: %w", c.Name, err)
		}
		class, err := b.speciesID(c.SurfaceClass)
		if err != nil {
			return fmt.Errorf("clamp %s: %w", c.Name, err)
		}
		ev := clamp.New(c.Name, species, class, c.Concentration, c.Orientation)
		if err := ev.Init(b.w); err != nil {
			return fmt.Errorf("clamp %s: %w", c.Name, err)
		}
		sim.Clamps = append(sim.Clamps, ev)
		b.sched.Schedule(ev)
	}
	return nil
}

func (b *builder) counts(sim *Simulation, sink count.Sink) error {
	for _, c := range b.m.Counts {
		items := make([]*count.Item, 0, len(c.Items))
		for k, it := range c.Items {
			item := &count.Item{Buffer: it.Buffer, Column: it.Column, Multiplier: it.Multiplier}
			for j, t := range it.Terms {
				term, err := b.term(t)
				if err != nil {
					return fmt.Errorf("count %s: item %d: term %d: %w", c.Name, k, j, err)
				}
				item.Terms = append(item.Terms, term)
			}
			items = append(items, item)
		}

		ev := count.New(c.Name, float64(c.Every), sink, items...)
		if err := ev.Init(b.w); err != nil {
			return fmt.Errorf("count %s: %w", c.Name, err)
		}
		sim.Counts = append(sim.Counts, ev)
		b.sched.Schedule(ev)
	}
	return nil
}

func (b *builder) term(t ir.CountTerm) (count.Term, error) {
	var term count.Term
	if t.Reaction != "" {
		id, ok := b.w.ReactionByName(t.Reaction)
		if !ok {
			return count.Term{}, fmt.Errorf("unknown reaction %q", t.Reaction)
		}
		term = count.Reactions(id)
	} else {
		id, err := b.speciesID(t.Species)
		if err != nil {
			return count.Term{}, err
		}
		term = count.Molecules(id)
	}
	term.Orientation = t.Orientation
	if t.Sign < 0 {
		term = term.Negated()
	}

	switch {
	case t.In != "":
		e, err := b.region(t.In)
		if err != nil {
			return count.Term{}, err
		}
		term = term.In(e)
	case t.On != "":
		e, err := b.region(t.On)
		if err != nil {
			return count.Term{}, err
		}
		term = term.On(e)
	}
	return term, nil
}
