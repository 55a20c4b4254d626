package regionexpr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cellsim/internal/geom"
)

type fixture struct {
	g       *geom.Geometry
	a, b, c *geom.Object
}

// Three disjoint 2x2x2 boxes along x.
func newFixture(t *testing.T) fixture {
	t.Helper()
	g := geom.New()
	a, err := g.AddBox("A", geom.Vec3{}, geom.Vec3{X: 2, Y: 2, Z: 2})
	require.NoError(t, err)
	b, err := g.AddBox("B", geom.Vec3{X: 4}, geom.Vec3{X: 6, Y: 2, Z: 2})
	require.NoError(t, err)
	c, err := g.AddBox("C", geom.Vec3{X: 8}, geom.Vec3{X: 10, Y: 2, Z: 2})
	require.NoError(t, err)
	return fixture{g: g, a: a, b: b, c: c}
}

func samplePoints() []geom.Vec3 {
	var pts []geom.Vec3
	for x := -0.5; x < 11; x++ {
		for y := -0.5; y < 3; y++ {
			for z := -0.5; z < 3; z++ {
				pts = append(pts, geom.Vec3{X: x, Y: y, Z: z})
			}
		}
	}
	return pts
}

func contains(t *testing.T, e Expr, g *geom.Geometry, p geom.Vec3) bool {
	t.Helper()
	ok, err := e.ContainsPoint(g, p)
	require.NoError(t, err)
	return ok
}

func TestUnionIsCommutative(t *testing.T) {
	f := newFixture(t)
	va, vb := ObjectVolume(f.g, f.a.ID), ObjectVolume(f.g, f.b.ID)
	ab, ba := Union(va, vb), Union(vb, va)

	for _, p := range samplePoints() {
		assert.Equal(t, contains(t, ab, f.g, p), contains(t, ba, f.g, p), "point %v", p)
	}
}

func TestDifferenceOfUnionLeavesOnlyOtherOperand(t *testing.T) {
	f := newFixture(t)
	va, vb := ObjectVolume(f.g, f.a.ID), ObjectVolume(f.g, f.b.ID)
	e := Difference(Union(va, vb), va)

	inside := 0
	for _, p := range samplePoints() {
		if contains(t, e, f.g, p) {
			inside++
			assert.True(t, f.g.PointInObject(f.b.ID, p), "point %v must lie in B", p)
		}
		if f.g.PointInObject(f.b.ID, p) {
			assert.True(t, contains(t, e, f.g, p), "B point %v must be kept", p)
		}
	}
	assert.Equal(t, 8, inside)
}

func TestIntersect(t *testing.T) {
	f := newFixture(t)
	va, vb := ObjectVolume(f.g, f.a.ID), ObjectVolume(f.g, f.b.ID)
	disjoint := Intersect(va, vb)
	self := Intersect(va, va.Clone())

	for _, p := range samplePoints() {
		assert.False(t, contains(t, disjoint, f.g, p))
		assert.Equal(t, f.g.PointInObject(f.a.ID, p), contains(t, self, f.g, p))
	}
}

func TestCloneIsolation(t *testing.T) {
	f := newFixture(t)
	orig := Union(ObjectVolume(f.g, f.a.ID), ObjectVolume(f.g, f.b.ID))
	clone := orig.Clone()

	changed := clone.RebindObject(f.a.ID, f.c.ID, "C")
	require.Equal(t, 1, changed)

	inA := geom.Vec3{X: 1, Y: 1, Z: 1}
	inC := geom.Vec3{X: 9, Y: 1, Z: 1}
	assert.True(t, contains(t, orig, f.g, inA))
	assert.False(t, contains(t, orig, f.g, inC))
	assert.False(t, contains(t, clone, f.g, inA))
	assert.True(t, contains(t, clone, f.g, inC))
	assert.Equal(t, "(A + B)", orig.String())
	assert.Equal(t, "(C + B)", clone.String())
}

func TestCombinatorsCopyOperands(t *testing.T) {
	f := newFixture(t)
	va := ObjectVolume(f.g, f.a.ID)
	u := Union(va, ObjectVolume(f.g, f.b.ID))

	va.RebindObject(f.a.ID, f.c.ID, "C")
	assert.Equal(t, "(A + B)", u.String())
}

func TestContainsPoint_RejectsSurfaceLeaf(t *testing.T) {
	f := newFixture(t)
	top, ok := f.g.RegionByName(f.a.ID, "top")
	require.True(t, ok)
	e := Union(ObjectVolume(f.g, f.a.ID), SurfaceRegion(f.g, top.ID))

	// invalid even where the left side alone decides the answer
	_, err := e.ContainsPoint(f.g, geom.Vec3{X: 1, Y: 1, Z: 1})
	assert.True(t, errors.Is(err, ErrInvalid))
}

func TestContainsVolume(t *testing.T) {
	f := newFixture(t)
	a, b := ObjectVolume(f.g, f.a.ID), ObjectVolume(f.g, f.b.ID)
	in := func(ids ...geom.ObjectID) func(geom.ObjectID) bool {
		return func(o geom.ObjectID) bool {
			for _, id := range ids {
				if id == o {
					return true
				}
			}
			return false
		}
	}

	tests := []struct {
		name     string
		e        Expr
		enclosed func(geom.ObjectID) bool
		want     bool
	}{
		{"leaf hit", a, in(f.a.ID), true},
		{"leaf miss", a, in(f.b.ID), false},
		{"union", Union(a, b), in(f.b.ID), true},
		{"intersect needs both", Intersect(a, b), in(f.a.ID), false},
		{"nested objects", Intersect(a, b), in(f.a.ID, f.b.ID), true},
		{"difference", Difference(a, b), in(f.a.ID, f.b.ID), false},
		{"world only", Union(a, b), in(), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.e.ContainsVolume(tt.enclosed)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	top, ok := f.g.RegionByName(f.a.ID, "top")
	require.True(t, ok)
	_, err := SurfaceRegion(f.g, top.ID).ContainsVolume(in())
	assert.True(t, errors.Is(err, ErrInvalid))
}

func TestWalls(t *testing.T) {
	f := newFixture(t)
	reg := func(name string) Expr {
		r, ok := f.g.RegionByName(f.a.ID, name)
		require.True(t, ok)
		return SurfaceRegion(f.g, r.ID)
	}

	walls, err := Union(reg("top"), reg("left")).Walls(f.g)
	require.NoError(t, err)
	assert.Len(t, walls, 4)
	assert.IsIncreasing(t, walls)

	walls, err = Difference(reg(geom.AllRegionName), reg("top")).Walls(f.g)
	require.NoError(t, err)
	assert.Len(t, walls, 10)

	walls, err = Intersect(reg("top"), reg("bottom")).Walls(f.g)
	require.NoError(t, err)
	assert.Empty(t, walls)

	ab, err := Union(reg("top"), reg("left")).Walls(f.g)
	require.NoError(t, err)
	ba, err := Union(reg("left"), reg("top")).Walls(f.g)
	require.NoError(t, err)
	assert.Equal(t, ab, ba)

	_, err = Union(reg("top"), ObjectVolume(f.g, f.b.ID)).Walls(f.g)
	assert.True(t, errors.Is(err, ErrInvalid))
}

func TestBoundsAndVolume(t *testing.T) {
	f := newFixture(t)
	va, vb := ObjectVolume(f.g, f.a.ID), ObjectVolume(f.g, f.b.ID)

	v, exact, err := va.Volume(f.g)
	require.NoError(t, err)
	assert.True(t, exact)
	assert.InDelta(t, 8.0, v, 1e-9)

	v, exact, err = Union(va, vb).Volume(f.g)
	require.NoError(t, err)
	assert.False(t, exact)
	assert.InDelta(t, 24.0, v, 1e-9)

	b, err := Difference(Union(va, vb), va).Bounds(f.g)
	require.NoError(t, err)
	assert.Equal(t, geom.Vec3{X: 6, Y: 2, Z: 2}, b.Max)

	b, err = Intersect(va, vb).Bounds(f.g)
	require.NoError(t, err)
	assert.True(t, b.IsEmpty())
}

func TestParseAndString(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		src  string
		want string
	}{
		{"A", "A"},
		{"A[top]", "A[top]"},
		{"A + B", "(A + B)"},
		{"A + B - A", "((A + B) - A)"},
		{"A * (B + C)", "(A * (B + C))"},
		{"  (A[top] + A[bottom]) ", "(A[top] + A[bottom])"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			e, err := Parse(f.g, tt.src)
			require.NoError(t, err)
			assert.Equal(t, tt.want, e.String())

			again, err := Parse(f.g, e.String())
			require.NoError(t, err)
			assert.Equal(t, e.String(), again.String())
		})
	}
}

func TestParseErrors(t *testing.T) {
	f := newFixture(t)
	for _, src := range []string{"", "Z", "A[nope]", "(A + B", "A +", "A ? B", "A[top"} {
		_, err := Parse(f.g, src)
		assert.True(t, errors.Is(err, ErrInvalid), "src %q: %v", src, err)
	}
}

func TestKindPredicates(t *testing.T) {
	f := newFixture(t)
	top, _ := f.g.RegionByName(f.a.ID, "top")
	vol := ObjectVolume(f.g, f.a.ID)
	surf := SurfaceRegion(f.g, top.ID)

	assert.True(t, vol.IsVolume())
	assert.False(t, vol.IsSurface())
	assert.True(t, surf.IsSurface())
	assert.False(t, Union(vol, surf).IsVolume())
	assert.False(t, Union(vol, surf).IsSurface())

	obj, ok := vol.SingleObject()
	assert.True(t, ok)
	assert.Equal(t, f.a.ID, obj)
	_, ok = Union(vol, vol).SingleObject()
	assert.False(t, ok)

	reg, ok := surf.SingleRegion()
	assert.True(t, ok)
	assert.Equal(t, top.ID, reg)
}
