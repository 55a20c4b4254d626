package release

import (
	"math"

	"github.com/roach88/cellsim/internal/engine"
	"github.com/roach88/cellsim/internal/geom"
	"github.com/roach88/cellsim/internal/world"
)

// tooManyFailures is the slack allowed before random tile picking is
// compared against a deterministic scan.
const tooManyFailures = 10

// maxMissedDraws bounds consecutive rejected points of an exact-count
// volume release. A region that rejects this many in a row is treated as
// empty.
const maxMissedDraws = 100_000

func (r *Event) orientation(env *engine.Env, o int) int {
	if o != 0 {
		return o
	}
	return env.RNG.Sign()
}

// releaseEllipsoid places volume molecules uniformly in an ellipsoid, or on
// its surface for a spherical shell.
func (r *Event) releaseEllipsoid(env *engine.Env) (int, error) {
	n, err := r.CalculateNumberToRelease(env)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, unsupported("release %q: removal is only supported for region releases", r.Label)
	}
	placed := 0
	for i := 0; i < n; i++ {
		var p geom.Vec3
		for {
			p = geom.Vec3{
				X: env.RNG.Uniform() - 0.5,
				Y: env.RNG.Uniform() - 0.5,
				Z: env.RNG.Uniform() - 0.5,
			}
			if p.Len2() < 0.25 {
				break
			}
		}
		if r.Shape == ShapeSphericalShell {
			l := p.Len() * 2
			if l == 0 {
				p = geom.Vec3{Z: 0.5}
			} else {
				p = p.Scale(1 / l)
			}
		}
		pos := p.Mul(r.Diameter).Add(r.Location)
		id, err := env.World.AddVolumeMolecule(r.Species, pos, r.state.actualReleaseTime, world.FlagScheduleUnimol)
		if err != nil {
			return placed, err
		}
		r.track(env, id)
		placed++
	}
	return placed, nil
}

// releaseInsideRegions rejection-samples points in the region's bounding
// box. When the volume is only approximate every draw counts against the
// target, accepted or not.
func (r *Event) releaseInsideRegions(env *engine.Env) (int, error) {
	n, err := r.CalculateNumberToRelease(env)
	if err != nil {
		return 0, err
	}
	g := env.World.Geometry()
	if n < 0 {
		return r.vacuumInside(env, -n)
	}

	box, err := r.Region.Bounds(g)
	if err != nil {
		return 0, regionError(err)
	}
	if box.IsEmpty() || box.Volume() == 0 {
		if n == 0 {
			return 0, nil
		}
		return 0, env.World.ReportPlacementFailure("release region has no volume",
			"event", r.Label, "region", r.Region.String(), "requested", n)
	}
	size := box.Size()
	approx := r.approximateVolume()

	placed, missed := 0, 0
	for n > 0 {
		p := geom.Vec3{
			X: box.Min.X + env.RNG.Uniform()*size.X,
			Y: box.Min.Y + env.RNG.Uniform()*size.Y,
			Z: box.Min.Z + env.RNG.Uniform()*size.Z,
		}
		if approx {
			n--
		}
		inside, err := r.Region.ContainsPoint(g, p)
		if err != nil {
			return placed, regionError(err)
		}
		if !inside {
			missed++
			if !approx && missed >= maxMissedDraws {
				return placed, env.World.ReportPlacementFailure("release region rejected every draw",
					"event", r.Label,
					"region", r.Region.String(),
					"species", r.speciesName,
					"requested", placed+n,
					"placed", placed,
				)
			}
			continue
		}
		missed = 0
		id, err := env.World.AddVolumeMolecule(r.Species, p, r.state.actualReleaseTime, world.FlagScheduleUnimol)
		if err != nil {
			return placed, err
		}
		r.track(env, id)
		placed++
		if !approx {
			n--
		}
	}
	return placed, nil
}

func (r *Event) vacuumInside(env *engine.Env, n int) (int, error) {
	g := env.World.Geometry()
	var evalErr error
	matches := env.World.Matching(r.Species, func(m *world.Molecule) bool {
		if m.IsSurface() || evalErr != nil {
			return false
		}
		ok, err := r.Region.ContainsPoint(g, m.Pos)
		if err != nil {
			evalErr = err
		}
		return ok
	})
	if evalErr != nil {
		return 0, regionError(evalErr)
	}
	removed, err := removeRandom(env, matches, n)
	return -removed, err
}

// releaseOntoRegions places surface molecules on tiles of the region's
// walls, weighted by wall area.
func (r *Event) releaseOntoRegions(env *engine.Env) (int, error) {
	n, err := r.CalculateNumberToRelease(env)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return r.vacuumOnto(env, -n)
	}
	if n == 0 {
		return 0, nil
	}

	g := env.World.Geometry()
	totalTiles, freeTiles := 0, 0
	for _, wid := range r.walls {
		grid := g.Wall(wid).Grid
		totalTiles += grid.TileCount()
		freeTiles += grid.FreeTileCount()
	}
	// Under the error policy the free tiles are still filled before the
	// failure terminates the run.
	var shortage error
	if n > freeTiles {
		shortage = env.World.ReportPlacementFailure("not enough free surface tiles for release",
			"event", r.Label,
			"region", r.Region.String(),
			"species", r.speciesName,
			"requested", n,
			"free", freeTiles,
		)
		n = freeTiles
	}

	placed, failures := 0, 0
	for n > 0 {
		if failures > placed+tooManyFailures {
			// Expected draws to fill the rest at the current free fraction.
			seekCost := float64(n) * float64(totalTiles+1) / float64(freeTiles+1)
			if seekCost > float64(totalTiles) {
				more, err := r.scanFill(env, n)
				if err != nil {
					return placed + more, err
				}
				return placed + more, shortage
			}
		}

		wid, f := pickWall(g, r.walls, r.cumAreas, env.RNG.Uniform())
		grid := g.Wall(wid).Grid
		tile := grid.TileFromFraction(f)
		if !grid.IsFree(tile) {
			failures++
			continue
		}
		id, err := env.World.AddSurfaceMolecule(r.Species, wid, tile,
			r.orientation(env, r.Orientation), r.state.actualReleaseTime, world.FlagScheduleUnimol)
		if err != nil {
			return placed, err
		}
		r.track(env, id)
		placed++
		freeTiles--
		n--
	}
	return placed, shortage
}

// scanFill fills the first free tiles in wall order. It always terminates.
func (r *Event) scanFill(env *engine.Env, n int) (int, error) {
	g := env.World.Geometry()
	placed := 0
	for _, wid := range r.walls {
		grid := g.Wall(wid).Grid
		for tile := 0; tile < grid.TileCount() && placed < n; tile++ {
			if !grid.IsFree(tile) {
				continue
			}
			id, err := env.World.AddSurfaceMolecule(r.Species, wid, tile,
				r.orientation(env, r.Orientation), r.state.actualReleaseTime, world.FlagScheduleUnimol)
			if err != nil {
				return placed, err
			}
			r.track(env, id)
			placed++
		}
		if placed == n {
			break
		}
	}
	return placed, nil
}

func (r *Event) vacuumOnto(env *engine.Env, n int) (int, error) {
	inRegion := make(map[geom.WallID]bool, len(r.walls))
	for _, wid := range r.walls {
		inRegion[wid] = true
	}
	matches := env.World.Matching(r.Species, func(m *world.Molecule) bool {
		if !m.IsSurface() || !inRegion[m.Wall] {
			return false
		}
		return r.Orientation == 0 || m.Orientation == r.Orientation
	})
	removed, err := removeRandom(env, matches, n)
	return -removed, err
}

// removeRandom removes min(n, len(ids)) molecules chosen uniformly without
// replacement by a partial Fisher-Yates shuffle.
func removeRandom(env *engine.Env, ids []world.MoleculeID, n int) (int, error) {
	if n > len(ids) {
		n = len(ids)
	}
	for i := 0; i < n; i++ {
		j := i + env.RNG.Intn(len(ids)-i)
		ids[i], ids[j] = ids[j], ids[i]
		if err := env.World.RemoveMolecule(ids[i]); err != nil {
			return i, err
		}
	}
	return n, nil
}

// releaseList places each listed molecule. Surface molecules go to the
// nearest free tile within the site diameter; a zero diameter searches
// every wall.
func (r *Event) releaseList(env *engine.Env) (int, error) {
	g := env.World.Geometry()
	maxDist := r.Diameter.MaxAbs()
	if maxDist == 0 {
		maxDist = math.Inf(1)
	}
	placed := 0
	for i, it := range r.List {
		s := env.World.Species(it.Species)
		if !s.Surface {
			id, err := env.World.AddVolumeMolecule(it.Species, it.Pos, r.state.actualReleaseTime, world.FlagScheduleUnimol)
			if err != nil {
				return placed, err
			}
			r.track(env, id)
			placed++
			continue
		}

		wid, tile, ok := g.NearestFreeTile(it.Pos, maxDist)
		if !ok {
			if err := env.World.ReportPlacementFailure("could not place listed surface molecule",
				"event", r.Label,
				"item", i,
				"species", s.Name,
				"x", it.Pos.X, "y", it.Pos.Y, "z", it.Pos.Z,
			); err != nil {
				return placed, err
			}
			continue
		}
		id, err := env.World.AddSurfaceMolecule(it.Species, wid, tile,
			r.orientation(env, it.Orientation), r.state.actualReleaseTime, world.FlagScheduleUnimol)
		if err != nil {
			return placed, err
		}
		r.track(env, id)
		placed++
	}
	return placed, nil
}
