package release

import (
	"github.com/roach88/cellsim/internal/engine"
	"github.com/roach88/cellsim/internal/geom"
	"github.com/roach88/cellsim/internal/world"
)

type tileRef struct {
	wall geom.WallID
	tile int
}

// Seeding groups the initial surface releases of one simulation. Density
// seeding draws from a single cumulative-probability table per wall built
// from every member covering that wall, so overlapping sites share tiles in
// proportion to their densities. The first member to fire seeds the density
// items of all members; each member then runs its own number items.
type Seeding struct {
	members []*Event
	done    bool
	placed  map[*Event]int
}

// NewSeeding creates an empty seeding group.
func NewSeeding() *Seeding {
	return &Seeding{placed: make(map[*Event]int)}
}

// Add makes r a member. r must be an initial surface release.
func (s *Seeding) Add(r *Event) {
	s.members = append(s.members, r)
	r.seeding = s
}

// Members returns the member events in the order they were added.
func (s *Seeding) Members() []*Event { return s.members }

func (s *Seeding) seed(env *engine.Env, r *Event) (int, error) {
	if s.done {
		return s.placed[r], nil
	}
	s.done = true
	err := seedByDensity(env, s.members, s.placed)
	return s.placed[r], err
}

// releaseInitialSurface seeds the region's walls once at simulation start.
// Density items are sampled once per free tile; number items then pick
// uniformly among the remaining free tiles.
func (r *Event) releaseInitialSurface(env *engine.Env) (int, error) {
	var (
		placed int
		err    error
	)
	if r.seeding != nil {
		placed, err = r.seeding.seed(env, r)
	} else {
		counts := make(map[*Event]int, 1)
		err = seedByDensity(env, []*Event{r}, counts)
		placed = counts[r]
	}
	if err != nil {
		return placed, err
	}
	more, err := r.seedByNumber(env)
	return placed + more, err
}

type densityItem struct {
	owner *Event
	item  InitialItem
}

// seedByDensity samples every free tile of the members' walls once against
// the combined table of the density items covering that wall. Placements
// are added to placed per owning event.
func seedByDensity(env *engine.Env, members []*Event, placed map[*Event]int) error {
	var walls []geom.WallID
	byWall := make(map[geom.WallID][]densityItem)
	for _, r := range members {
		for _, wid := range r.walls {
			for _, it := range r.Initial {
				if it.ByNumber || it.Density <= 0 {
					continue
				}
				if _, seen := byWall[wid]; !seen {
					walls = append(walls, wid)
				}
				byWall[wid] = append(byWall[wid], densityItem{owner: r, item: it})
			}
		}
	}

	g := env.World.Geometry()
	gridDensity := env.World.Config().GridDensity
	for _, wid := range walls {
		items := byWall[wid]
		w := g.Wall(wid)
		tiles := float64(w.Grid.TileCount())
		cum := make([]float64, len(items))
		total := 0.0
		for i, d := range items {
			total += w.Area * d.item.Density / (tiles * gridDensity)
			cum[i] = total
		}
		if total > 1 {
			if err := env.World.ReportPlacementFailure("initial surface density exceeds one molecule per tile",
				"event", items[0].owner.Label, "wall", int(wid), "probability", total); err != nil {
				return err
			}
		}

		for tile := 0; tile < w.Grid.TileCount(); tile++ {
			if !w.Grid.IsFree(tile) {
				continue
			}
			u := env.RNG.Uniform()
			pick := -1
			for i := range cum {
				if u < cum[i] {
					pick = i
					break
				}
			}
			if pick < 0 {
				continue
			}
			d := items[pick]
			r := d.owner
			id, err := env.World.AddSurfaceMolecule(d.item.Species, wid, tile,
				r.orientation(env, d.item.Orientation), r.state.actualReleaseTime, world.FlagScheduleUnimol)
			if err != nil {
				return err
			}
			r.track(env, id)
			placed[r]++
		}
	}
	return nil
}

func (r *Event) seedByNumber(env *engine.Env) (int, error) {
	var free []tileRef
	collected := false
	placed := 0
	for _, it := range r.Initial {
		if !it.ByNumber || it.Number == 0 {
			continue
		}
		if !collected {
			free = r.freeTiles(env.World.Geometry())
			collected = true
		}

		n := it.Number
		if n > len(free) {
			if err := env.World.ReportPlacementFailure("not enough free tiles for initial surface release",
				"event", r.Label,
				"species", env.World.SpeciesName(it.Species),
				"requested", n,
				"free", len(free),
			); err != nil {
				return placed, err
			}
			n = len(free)
		}
		for k := 0; k < n; k++ {
			j := k + env.RNG.Intn(len(free)-k)
			free[k], free[j] = free[j], free[k]
			ref := free[k]
			id, err := env.World.AddSurfaceMolecule(it.Species, ref.wall, ref.tile,
				r.orientation(env, it.Orientation), r.state.actualReleaseTime, world.FlagScheduleUnimol)
			if err != nil {
				return placed, err
			}
			r.track(env, id)
			placed++
		}
		free = free[n:]
	}
	return placed, nil
}

func (r *Event) freeTiles(g *geom.Geometry) []tileRef {
	var out []tileRef
	for _, wid := range r.walls {
		grid := g.Wall(wid).Grid
		for tile := 0; tile < grid.TileCount(); tile++ {
			if grid.IsFree(tile) {
				out = append(out, tileRef{wall: wid, tile: tile})
			}
		}
	}
	return out
}
