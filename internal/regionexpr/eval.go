package regionexpr

import (
	"fmt"
	"sort"

	"github.com/roach88/cellsim/internal/geom"
)

// ContainsPoint evaluates the expression as a point set. Surface leaves are
// invalid here.
func (e Expr) ContainsPoint(g *geom.Geometry, p geom.Vec3) (bool, error) {
	if e.IsEmpty() {
		return false, fmt.Errorf("%w: empty expression", ErrInvalid)
	}
	return e.containsAt(g, e.root, p)
}

func (e Expr) containsAt(g *geom.Geometry, id NodeID, p geom.Vec3) (bool, error) {
	n := e.nodes[id]
	switch n.Kind {
	case KindObjectVolume:
		if g.Object(n.Object) == nil {
			return false, fmt.Errorf("%w: unknown object %q", ErrInvalid, n.Name)
		}
		return g.PointInObject(n.Object, p), nil
	case KindSurfaceRegion:
		return false, fmt.Errorf("%w: surface region %s cannot contain a point", ErrInvalid, n.Name)
	}

	l, err := e.containsAt(g, n.Left, p)
	if err != nil {
		return false, err
	}
	// The right side is always evaluated so that malformed trees fail
	// regardless of the point.
	r, err := e.containsAt(g, n.Right, p)
	if err != nil {
		return false, err
	}
	switch n.Kind {
	case KindUnion:
		return l || r, nil
	case KindIntersect:
		return l && r, nil
	case KindDifference:
		return l && !r, nil
	}
	return false, fmt.Errorf("%w: unknown node kind %s", ErrInvalid, n.Kind)
}

// ContainsVolume evaluates the expression against a set of enclosing
// objects instead of a point: an object leaf is true when enclosed reports
// its object. Counting uses it with a molecule's cached counted volume.
func (e Expr) ContainsVolume(enclosed func(geom.ObjectID) bool) (bool, error) {
	if e.IsEmpty() {
		return false, fmt.Errorf("%w: empty expression", ErrInvalid)
	}
	return e.volumeAt(e.root, enclosed)
}

func (e Expr) volumeAt(id NodeID, enclosed func(geom.ObjectID) bool) (bool, error) {
	n := e.nodes[id]
	switch n.Kind {
	case KindObjectVolume:
		return enclosed(n.Object), nil
	case KindSurfaceRegion:
		return false, fmt.Errorf("%w: surface region %s cannot enclose a volume", ErrInvalid, n.Name)
	}
	l, err := e.volumeAt(n.Left, enclosed)
	if err != nil {
		return false, err
	}
	r, err := e.volumeAt(n.Right, enclosed)
	if err != nil {
		return false, err
	}
	switch n.Kind {
	case KindUnion:
		return l || r, nil
	case KindIntersect:
		return l && r, nil
	case KindDifference:
		return l && !r, nil
	}
	return false, fmt.Errorf("%w: unknown node kind %s", ErrInvalid, n.Kind)
}

// Walls evaluates the expression as a wall set, ascending by wall id.
// Volume leaves are invalid here.
func (e Expr) Walls(g *geom.Geometry) ([]geom.WallID, error) {
	if e.IsEmpty() {
		return nil, fmt.Errorf("%w: empty expression", ErrInvalid)
	}
	return e.wallsAt(g, e.root)
}

func (e Expr) wallsAt(g *geom.Geometry, id NodeID) ([]geom.WallID, error) {
	n := e.nodes[id]
	switch n.Kind {
	case KindSurfaceRegion:
		if g.Region(n.Region) == nil {
			return nil, fmt.Errorf("%w: unknown region %q", ErrInvalid, n.Name)
		}
		walls := append([]geom.WallID(nil), g.RegionWalls(n.Region)...)
		sort.Slice(walls, func(i, j int) bool { return walls[i] < walls[j] })
		return dedup(walls), nil
	case KindObjectVolume:
		return nil, fmt.Errorf("%w: object volume %s has no walls in a surface expression", ErrInvalid, n.Name)
	}

	l, err := e.wallsAt(g, n.Left)
	if err != nil {
		return nil, err
	}
	r, err := e.wallsAt(g, n.Right)
	if err != nil {
		return nil, err
	}
	switch n.Kind {
	case KindUnion:
		return unionSorted(l, r), nil
	case KindIntersect:
		return intersectSorted(l, r), nil
	case KindDifference:
		return differenceSorted(l, r), nil
	}
	return nil, fmt.Errorf("%w: unknown node kind %s", ErrInvalid, n.Kind)
}

// Bounds returns a box containing the expression's point set (volume
// expressions) or wall set (surface expressions).
func (e Expr) Bounds(g *geom.Geometry) (geom.AABB, error) {
	if e.IsEmpty() {
		return geom.EmptyAABB(), fmt.Errorf("%w: empty expression", ErrInvalid)
	}
	return e.boundsAt(g, e.root)
}

func (e Expr) boundsAt(g *geom.Geometry, id NodeID) (geom.AABB, error) {
	n := e.nodes[id]
	switch n.Kind {
	case KindObjectVolume:
		if g.Object(n.Object) == nil {
			return geom.EmptyAABB(), fmt.Errorf("%w: unknown object %q", ErrInvalid, n.Name)
		}
		return g.ObjectBounds(n.Object), nil
	case KindSurfaceRegion:
		if g.Region(n.Region) == nil {
			return geom.EmptyAABB(), fmt.Errorf("%w: unknown region %q", ErrInvalid, n.Name)
		}
		b := geom.EmptyAABB()
		for _, wid := range g.RegionWalls(n.Region) {
			for _, v := range g.Wall(wid).Verts {
				b = b.Extend(v)
			}
		}
		return b, nil
	}

	l, err := e.boundsAt(g, n.Left)
	if err != nil {
		return l, err
	}
	r, err := e.boundsAt(g, n.Right)
	if err != nil {
		return r, err
	}
	switch n.Kind {
	case KindUnion:
		return l.Union(r), nil
	case KindIntersect:
		return l.Intersect(r), nil
	case KindDifference:
		return l, nil
	}
	return geom.EmptyAABB(), fmt.Errorf("%w: unknown node kind %s", ErrInvalid, n.Kind)
}

// Volume returns the enclosed volume in internal units. It is exact when the
// expression is a single closed object and the bounding-box volume
// otherwise.
func (e Expr) Volume(g *geom.Geometry) (vol float64, exact bool, err error) {
	if obj, ok := e.SingleObject(); ok {
		if v, closed := g.ObjectVolume(obj); closed {
			return v, true, nil
		}
	}
	if !e.IsVolume() {
		return 0, false, fmt.Errorf("%w: %s is not a volume expression", ErrInvalid, e)
	}
	b, err := e.Bounds(g)
	if err != nil {
		return 0, false, err
	}
	return b.Volume(), false, nil
}

func dedup(s []geom.WallID) []geom.WallID {
	if len(s) < 2 {
		return s
	}
	out := s[:1]
	for _, w := range s[1:] {
		if w != out[len(out)-1] {
			out = append(out, w)
		}
	}
	return out
}

func unionSorted(a, b []geom.WallID) []geom.WallID {
	out := make([]geom.WallID, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] < b[j]:
			out = append(out, a[i])
			i++
		case a[i] > b[j]:
			out = append(out, b[j])
			j++
		default:
			out = append(out, a[i])
			i++
			j++
		}
	}
	out = append(out, a[i:]...)
	return append(out, b[j:]...)
}

func intersectSorted(a, b []geom.WallID) []geom.WallID {
	var out []geom.WallID
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] < b[j]:
			i++
		case a[i] > b[j]:
			j++
		default:
			out = append(out, a[i])
			i++
			j++
		}
	}
	return out
}

func differenceSorted(a, b []geom.WallID) []geom.WallID {
	var out []geom.WallID
	j := 0
	for _, w := range a {
		for j < len(b) && b[j] < w {
			j++
		}
		if j < len(b) && b[j] == w {
			continue
		}
		out = append(out, w)
	}
	return out
}
