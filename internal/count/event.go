package count

import (
	"context"
	"fmt"
	"io"

	"github.com/roach88/cellsim/internal/engine"
	"github.com/roach88/cellsim/internal/geom"
	"github.com/roach88/cellsim/internal/world"
)

// Event periodically counts its items and appends one row per item to the
// sink.
//
// Counting is a barrier: diffusion never runs past a pending count within
// an iteration. Each term keeps the snapshot of its previous firing and the
// item total moves only by the signed difference, so totals are cumulative
// and never recomputed from scratch.
type Event struct {
	engine.BaseEvent

	Items []*Item
	Sink  Sink

	terms       []termState
	initialized bool
}

type termState struct {
	item  *Item
	index int
	term  Term
	walls map[geom.WallID]bool
	// counted-volume id -> region match, filled lazily
	volumes map[world.CountedVolumeID]bool
}

// New creates a count event firing every `every` iterations from
// iteration 0. A zero interval counts once.
func New(name string, every float64, sink Sink, items ...*Item) *Event {
	return &Event{
		BaseEvent: engine.BaseEvent{
			Kind:        engine.EventTypeCount,
			Label:       name,
			Periodicity: every,
		},
		Items: items,
		Sink:  sink,
	}
}

// IsBarrier implements engine.Event.
func (c *Event) IsBarrier() bool { return true }

// Init validates terms against the world, flags counted reactions and
// resolves surface scopes to wall sets. An item with a zero multiplier
// gets 1.
func (c *Event) Init(w *world.World) error {
	if c.Periodicity < 0 {
		return engine.NewRuntimeError(engine.ErrCodeUnsupportedConfig,
			"count %q: negative periodicity %g", c.Label, c.Periodicity)
	}
	c.terms = c.terms[:0]
	for _, it := range c.Items {
		if it.Multiplier == 0 {
			it.Multiplier = 1
		}
		if len(it.Terms) == 0 {
			return engine.NewRuntimeError(engine.ErrCodeUnsupportedConfig,
				"count %q: item %s/%s has no terms", c.Label, it.Buffer, it.Column)
		}
		it.last = make([]float64, len(it.Terms))
		for k, t := range it.Terms {
			ts, err := c.resolve(w, it, k, t)
			if err != nil {
				return err
			}
			c.terms = append(c.terms, ts)
		}
	}
	c.initialized = true
	return nil
}

func (c *Event) resolve(w *world.World, it *Item, k int, t Term) (termState, error) {
	ts := termState{item: it, index: k, term: t}
	where := fmt.Sprintf("count %q: item %s/%s term %d", c.Label, it.Buffer, it.Column, k)

	if t.Sign != 1 && t.Sign != -1 {
		return ts, engine.NewRuntimeError(engine.ErrCodeUnsupportedConfig, "%s: sign must be +1 or -1", where)
	}
	if t.CountsReaction {
		if w.Reaction(t.Reaction) == nil {
			return ts, engine.NewRuntimeError(engine.ErrCodeUnsupportedConfig, "%s: unknown reaction %d", where, t.Reaction)
		}
		if err := w.MarkReactionCounted(t.Reaction); err != nil {
			return ts, err
		}
	} else {
		switch t.Species {
		case world.AllMoleculesSpecies, world.AllVolumeMoleculesSpecies, world.AllSurfaceMoleculesSpecies:
		default:
			s := w.Species(t.Species)
			if s == nil || s.SurfaceClass {
				return ts, engine.NewRuntimeError(engine.ErrCodeUnsupportedConfig,
					"%s: %s cannot be counted", where, w.SpeciesName(t.Species))
			}
		}
	}

	switch t.Scope {
	case EnclosedInWorld:
	case EnclosedInVolumeRegion:
		if !t.Region.IsVolume() {
			return ts, engine.NewRuntimeError(engine.ErrCodeInvalidRegionExpr,
				"%s: %q is not a volume expression", where, t.Region)
		}
		ts.volumes = make(map[world.CountedVolumeID]bool)
	case PresentOnSurfaceRegion:
		if !t.Region.IsSurface() {
			return ts, engine.NewRuntimeError(engine.ErrCodeInvalidRegionExpr,
				"%s: %q is not a surface expression", where, t.Region)
		}
		walls, err := t.Region.Walls(w.Geometry())
		if err != nil {
			return ts, &engine.RuntimeError{Code: engine.ErrCodeInvalidRegionExpr, Message: err.Error(), Cause: err}
		}
		ts.walls = make(map[geom.WallID]bool, len(walls))
		for _, wid := range walls {
			ts.walls[wid] = true
		}
	default:
		return ts, engine.NewRuntimeError(engine.ErrCodeUnsupportedConfig, "%s: unknown scope %s", where, t.Scope)
	}
	return ts, nil
}

// Step counts every term, folds the differences into the item totals and
// appends the scaled totals.
func (c *Event) Step(ctx context.Context, env *engine.Env) error {
	if !c.initialized {
		return engine.NewRuntimeError(engine.ErrCodeInvalidState, "count %q stepped before Init", c.Label)
	}
	w := env.World
	current := make([]float64, len(c.terms))

	var evalErr error
	w.Each(func(m *world.Molecule) bool {
		for i := range c.terms {
			ts := &c.terms[i]
			if ts.term.CountsReaction {
				continue
			}
			ok, err := ts.matchesMolecule(w, m)
			if err != nil {
				evalErr = err
				return false
			}
			if ok {
				current[i]++
			}
		}
		return true
	})
	if evalErr != nil {
		return evalErr
	}
	for i := range c.terms {
		ts := &c.terms[i]
		if !ts.term.CountsReaction {
			continue
		}
		n, err := ts.reactionCount(w)
		if err != nil {
			return err
		}
		current[i] = n
	}

	for i, ts := range c.terms {
		it := ts.item
		delta := current[i] - it.last[ts.index]
		it.total += float64(ts.term.Sign) * delta
		it.last[ts.index] = current[i]
	}

	rows := make([]Row, len(c.Items))
	for i, it := range c.Items {
		rows[i] = Row{
			Buffer:    it.Buffer,
			Column:    it.Column,
			Iteration: c.Time,
			Time:      c.Time * env.TimeStep(),
			Value:     it.Value(),
		}
	}
	env.Logger.Debug("count fired",
		"event", c.Label,
		"iteration", c.Time,
		"items", len(rows),
	)
	if c.Sink == nil {
		return nil
	}
	if err := c.Sink.AppendRows(ctx, rows); err != nil {
		return fmt.Errorf("count %q: append rows: %w", c.Label, err)
	}
	return nil
}

func (ts *termState) matchesMolecule(w *world.World, m *world.Molecule) (bool, error) {
	t := ts.term
	if !w.SpeciesMatches(t.Species, m.Species) {
		return false, nil
	}
	if t.Orientation != 0 && m.IsSurface() && m.Orientation != t.Orientation {
		return false, nil
	}
	switch t.Scope {
	case EnclosedInVolumeRegion:
		if m.IsSurface() {
			return false, nil
		}
		return ts.inVolume(w, w.MoleculeCountedVolume(m))
	case PresentOnSurfaceRegion:
		return m.IsSurface() && ts.walls[m.Wall], nil
	}
	return true, nil
}

func (ts *termState) inVolume(w *world.World, cv world.CountedVolumeID) (bool, error) {
	if ok, cached := ts.volumes[cv]; cached {
		return ok, nil
	}
	ok, err := ts.term.Region.ContainsVolume(func(o geom.ObjectID) bool {
		return w.CountedVolumeContains(cv, o)
	})
	if err != nil {
		return false, &engine.RuntimeError{Code: engine.ErrCodeInvalidRegionExpr, Message: err.Error(), Cause: err}
	}
	ts.volumes[cv] = ok
	return ok, nil
}

func (ts *termState) reactionCount(w *world.World) (float64, error) {
	occ := w.ReactionOccurrences(ts.term.Reaction)
	if occ == nil {
		return 0, nil
	}
	switch ts.term.Scope {
	case EnclosedInVolumeRegion:
		n := 0.0
		for cv, k := range occ.ByVolume {
			ok, err := ts.inVolume(w, cv)
			if err != nil {
				return 0, err
			}
			if ok {
				n += k
			}
		}
		return n, nil
	case PresentOnSurfaceRegion:
		n := 0.0
		for wid, k := range occ.ByWall {
			if ts.walls[wid] {
				n += k
			}
		}
		return n, nil
	}
	return occ.Total, nil
}

// Dump implements engine.Event.
func (c *Event) Dump(w io.Writer, indent string) {
	c.DumpBase(w, indent)
	in := indent + "  "
	for _, it := range c.Items {
		fmt.Fprintf(w, "%s%s/%s: total=%g multiplier=%g terms=%d\n",
			in, it.Buffer, it.Column, it.total, it.Multiplier, len(it.Terms))
	}
}

// ToCheckpoint implements engine.Event. Items carry their running totals
// and per-term snapshots so a restart continues the same accumulation.
func (c *Event) ToCheckpoint(timeStep float64) engine.Checkpoint {
	cp := c.BaseCheckpoint(timeStep)
	items := make([]map[string]any, len(c.Items))
	for i, it := range c.Items {
		items[i] = map[string]any{
			"buffer":     it.Buffer,
			"column":     it.Column,
			"multiplier": it.Multiplier,
			"total":      it.total,
			"snapshots":  append([]float64(nil), it.last...),
		}
	}
	cp.State["items"] = items
	return cp
}

// Describe renders an item's terms, for example "+A in cell -B".
func Describe(w *world.World, it *Item) string {
	s := ""
	for i, t := range it.Terms {
		if i > 0 {
			s += " "
		}
		s += t.describe(w)
	}
	return s
}
