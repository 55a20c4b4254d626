package geom

import "math"

// WallID indexes a wall in its Geometry.
type WallID int

// NoWall marks a molecule that is not attached to a surface.
const NoWall WallID = -1

// Wall is one triangular surface element with its tile grid.
type Wall struct {
	ID      WallID
	Object  ObjectID
	Verts   [3]Vec3
	Normal  Vec3
	Area    float64
	Regions []RegionID
	Grid    *Grid
}

func newWall(id WallID, obj ObjectID, v0, v1, v2 Vec3) *Wall {
	n := v1.Sub(v0).Cross(v2.Sub(v0))
	area := n.Len() / 2
	return &Wall{
		ID:     id,
		Object: obj,
		Verts:  [3]Vec3{v0, v1, v2},
		Normal: n.Normalize(),
		Area:   area,
		Grid:   NewGrid(area),
	}
}

// InRegion reports whether the wall belongs to region r.
func (w *Wall) InRegion(r RegionID) bool {
	for _, id := range w.Regions {
		if id == r {
			return true
		}
	}
	return false
}

// LatticePoint returns v0 + s1(v1-v0) + s2(v2-v1). Any 0 <= s2 <= s1 <= 1
// lies on the triangle.
func (w *Wall) LatticePoint(s1, s2 float64) Vec3 {
	v0, v1, v2 := w.Verts[0], w.Verts[1], w.Verts[2]
	return v0.Add(v1.Sub(v0).Scale(s1)).Add(v2.Sub(v1).Scale(s2))
}

// UniformPoint maps two uniform draws to a point distributed uniformly
// over the triangle.
func (w *Wall) UniformPoint(u1, u2 float64) Vec3 {
	s1 := math.Sqrt(u1)
	return w.LatticePoint(s1, s1*u2)
}

// TilePosition returns the centroid of a grid tile.
func (w *Wall) TilePosition(tile int) Vec3 {
	a, b := w.Grid.tileLattice(tile)
	return w.LatticePoint(a, b)
}

// NearestFreeTile returns the free tile closest to p and its distance.
func (w *Wall) NearestFreeTile(p Vec3) (int, float64, bool) {
	best, bestD2 := -1, math.Inf(1)
	for t := 0; t < w.Grid.TileCount(); t++ {
		if !w.Grid.IsFree(t) {
			continue
		}
		d2 := w.TilePosition(t).Sub(p).Len2()
		if d2 < bestD2 {
			best, bestD2 = t, d2
		}
	}
	if best < 0 {
		return -1, 0, false
	}
	return best, math.Sqrt(bestD2), true
}

// intersectRay returns the ray parameter of a hit using Möller–Trumbore.
func (w *Wall) intersectRay(origin, dir Vec3) (float64, bool) {
	const eps = 1e-12
	e1 := w.Verts[1].Sub(w.Verts[0])
	e2 := w.Verts[2].Sub(w.Verts[0])
	p := dir.Cross(e2)
	det := e1.Dot(p)
	if math.Abs(det) < eps {
		return 0, false
	}
	inv := 1 / det
	s := origin.Sub(w.Verts[0])
	u := s.Dot(p) * inv
	if u < 0 || u > 1 {
		return 0, false
	}
	q := s.Cross(e1)
	v := dir.Dot(q) * inv
	if v < 0 || u+v > 1 {
		return 0, false
	}
	t := e2.Dot(q) * inv
	if t <= eps {
		return 0, false
	}
	return t, true
}
