package geom

import (
	"fmt"
	"math"
	"sort"
)

// RegionID indexes a region in its Geometry.
type RegionID int

// ObjectID indexes a geometry object in its Geometry.
type ObjectID int

// NoSurfaceClass marks a region without a surface-class species.
const NoSurfaceClass = -1

// AllRegionName is the implicit region covering every wall of an object.
const AllRegionName = "ALL"

// Region is a named subset of an object's walls. The object's ALL region
// also stands for the object's enclosed volume.
type Region struct {
	ID           RegionID
	Name         string
	Object       ObjectID
	Walls        []WallID
	SurfaceClass int
}

// Object is a triangulated geometry object.
type Object struct {
	ID        ObjectID
	Name      string
	Walls     []WallID
	Regions   []RegionID
	AllRegion RegionID
	Closed    bool
	bounds    AABB
}

// Bounds returns the object's bounding box.
func (o *Object) Bounds() AABB { return o.bounds }

// Geometry owns walls, regions and objects. It is the reference
// implementation of the geometry collaborator: the scheduling core reads and
// writes wall grids but never owns them.
type Geometry struct {
	walls     []*Wall
	regions   []*Region
	objects   []*Object
	objByName map[string]ObjectID
}

// New returns an empty geometry.
func New() *Geometry {
	return &Geometry{objByName: make(map[string]ObjectID)}
}

// AddObject triangulates an object from vertices and index triples.
// Triangles must be wound so that normals face outward when closed is set.
func (g *Geometry) AddObject(name string, verts []Vec3, tris [][3]int, closed bool) (*Object, error) {
	if name == "" {
		return nil, fmt.Errorf("object name is required")
	}
	if _, dup := g.objByName[name]; dup {
		return nil, fmt.Errorf("duplicate object %q", name)
	}
	if len(tris) == 0 {
		return nil, fmt.Errorf("object %q has no triangles", name)
	}

	obj := &Object{
		ID:     ObjectID(len(g.objects)),
		Name:   name,
		Closed: closed,
		bounds: EmptyAABB(),
	}
	for i, t := range tris {
		for _, vi := range t {
			if vi < 0 || vi >= len(verts) {
				return nil, fmt.Errorf("object %q triangle %d: vertex %d out of range", name, i, vi)
			}
		}
		w := newWall(WallID(len(g.walls)), obj.ID, verts[t[0]], verts[t[1]], verts[t[2]])
		if w.Area == 0 {
			return nil, fmt.Errorf("object %q triangle %d is degenerate", name, i)
		}
		g.walls = append(g.walls, w)
		obj.Walls = append(obj.Walls, w.ID)
		for _, v := range w.Verts {
			obj.bounds = obj.bounds.Extend(v)
		}
	}
	g.objects = append(g.objects, obj)
	g.objByName[name] = obj.ID

	all, err := g.AddRegion(obj.ID, AllRegionName, obj.Walls, NoSurfaceClass)
	if err != nil {
		return nil, err
	}
	obj.AllRegion = all.ID
	return obj, nil
}

// BoxFaces names the six face regions created by AddBox, in -x,+x,-y,+y,-z,+z order.
var BoxFaces = [6]string{"left", "right", "front", "back", "bottom", "top"}

// AddBox adds a closed axis-aligned box with one region per face.
func (g *Geometry) AddBox(name string, min, max Vec3) (*Object, error) {
	if !(min.X < max.X && min.Y < max.Y && min.Z < max.Z) {
		return nil, fmt.Errorf("box %q: min %v must be below max %v", name, min, max)
	}
	verts := make([]Vec3, 8)
	for i := range verts {
		v := min
		if i&1 != 0 {
			v.X = max.X
		}
		if i&2 != 0 {
			v.Y = max.Y
		}
		if i&4 != 0 {
			v.Z = max.Z
		}
		verts[i] = v
	}
	tris := [][3]int{
		{0, 4, 6}, {0, 6, 2}, // left
		{1, 3, 7}, {1, 7, 5}, // right
		{0, 1, 5}, {0, 5, 4}, // front
		{2, 6, 7}, {2, 7, 3}, // back
		{0, 2, 3}, {0, 3, 1}, // bottom
		{4, 5, 7}, {4, 7, 6}, // top
	}
	obj, err := g.AddObject(name, verts, tris, true)
	if err != nil {
		return nil, err
	}
	for f, face := range BoxFaces {
		walls := []WallID{obj.Walls[2*f], obj.Walls[2*f+1]}
		if _, err := g.AddRegion(obj.ID, face, walls, NoSurfaceClass); err != nil {
			return nil, err
		}
	}
	return obj, nil
}

// AddRegion defines a named region over walls of one object.
func (g *Geometry) AddRegion(obj ObjectID, name string, walls []WallID, surfaceClass int) (*Region, error) {
	o := g.Object(obj)
	if o == nil {
		return nil, fmt.Errorf("region %q: unknown object %d", name, obj)
	}
	if _, ok := g.RegionByName(obj, name); ok {
		return nil, fmt.Errorf("duplicate region %s[%s]", o.Name, name)
	}
	ws := make([]WallID, len(walls))
	copy(ws, walls)
	sort.Slice(ws, func(i, j int) bool { return ws[i] < ws[j] })
	r := &Region{
		ID:           RegionID(len(g.regions)),
		Name:         name,
		Object:       obj,
		Walls:        ws,
		SurfaceClass: surfaceClass,
	}
	for _, wid := range ws {
		w := g.Wall(wid)
		if w == nil || w.Object != obj {
			return nil, fmt.Errorf("region %s[%s]: wall %d is not part of the object", o.Name, name, wid)
		}
		w.Regions = append(w.Regions, r.ID)
	}
	g.regions = append(g.regions, r)
	o.Regions = append(o.Regions, r.ID)
	return r, nil
}

// SetSurfaceClass attaches a surface-class species to a region.
func (g *Geometry) SetSurfaceClass(r RegionID, surfaceClass int) error {
	reg := g.Region(r)
	if reg == nil {
		return fmt.Errorf("unknown region %d", r)
	}
	reg.SurfaceClass = surfaceClass
	return nil
}

// Wall returns the wall or nil.
func (g *Geometry) Wall(id WallID) *Wall {
	if id < 0 || int(id) >= len(g.walls) {
		return nil
	}
	return g.walls[id]
}

// Walls returns all walls in id order.
func (g *Geometry) Walls() []*Wall { return g.walls }

// Region returns the region or nil.
func (g *Geometry) Region(id RegionID) *Region {
	if id < 0 || int(id) >= len(g.regions) {
		return nil
	}
	return g.regions[id]
}

// Regions returns all regions in id order.
func (g *Geometry) Regions() []*Region { return g.regions }

// Object returns the object or nil.
func (g *Geometry) Object(id ObjectID) *Object {
	if id < 0 || int(id) >= len(g.objects) {
		return nil
	}
	return g.objects[id]
}

// Objects returns all objects in id order.
func (g *Geometry) Objects() []*Object { return g.objects }

// ObjectByName looks up an object.
func (g *Geometry) ObjectByName(name string) (*Object, bool) {
	id, ok := g.objByName[name]
	if !ok {
		return nil, false
	}
	return g.objects[id], true
}

// RegionByName looks up a region of an object.
func (g *Geometry) RegionByName(obj ObjectID, name string) (*Region, bool) {
	o := g.Object(obj)
	if o == nil {
		return nil, false
	}
	for _, rid := range o.Regions {
		if g.regions[rid].Name == name {
			return g.regions[rid], true
		}
	}
	return nil, false
}

// RegionFullName renders a region as Object[region].
func (g *Geometry) RegionFullName(id RegionID) string {
	r := g.Region(id)
	if r == nil {
		return fmt.Sprintf("?[%d]", id)
	}
	return fmt.Sprintf("%s[%s]", g.objects[r.Object].Name, r.Name)
}

// RegionWalls returns the member walls of a region in ascending order.
func (g *Geometry) RegionWalls(id RegionID) []WallID {
	r := g.Region(id)
	if r == nil {
		return nil
	}
	return r.Walls
}

// ObjectBounds returns an object's bounding box.
func (g *Geometry) ObjectBounds(id ObjectID) AABB {
	o := g.Object(id)
	if o == nil {
		return EmptyAABB()
	}
	return o.bounds
}

// rayDir is deliberately off-axis so parity rays rarely graze edges.
var rayDir = Vec3{0.4137, 0.7391, 0.5318}.Normalize()

// PointInObject tests containment by ray parity. Open objects contain nothing.
func (g *Geometry) PointInObject(id ObjectID, p Vec3) bool {
	o := g.Object(id)
	if o == nil || !o.Closed || !o.bounds.Contains(p) {
		return false
	}
	hits := 0
	for _, wid := range o.Walls {
		if _, ok := g.walls[wid].intersectRay(p, rayDir); ok {
			hits++
		}
	}
	return hits%2 == 1
}

// ObjectVolume returns the enclosed volume and whether it is exact.
// Open objects report their bounding-box volume.
func (g *Geometry) ObjectVolume(id ObjectID) (float64, bool) {
	o := g.Object(id)
	if o == nil {
		return 0, false
	}
	if !o.Closed {
		return o.bounds.Volume(), false
	}
	var v float64
	for _, wid := range o.Walls {
		w := g.walls[wid]
		v += w.Verts[0].Dot(w.Verts[1].Cross(w.Verts[2]))
	}
	return math.Abs(v) / 6, true
}

// EnclosingObjects returns the closed objects containing p, ascending.
func (g *Geometry) EnclosingObjects(p Vec3) []ObjectID {
	var out []ObjectID
	for _, o := range g.objects {
		if g.PointInObject(o.ID, p) {
			out = append(out, o.ID)
		}
	}
	return out
}

// WallHasSurfaceClass reports whether any region on the wall carries the class.
func (g *Geometry) WallHasSurfaceClass(id WallID, surfaceClass int) bool {
	w := g.Wall(id)
	if w == nil || surfaceClass == NoSurfaceClass {
		return false
	}
	for _, rid := range w.Regions {
		if g.regions[rid].SurfaceClass == surfaceClass {
			return true
		}
	}
	return false
}

// NearestFreeTile searches every wall for the free tile closest to p
// within maxDist.
func (g *Geometry) NearestFreeTile(p Vec3, maxDist float64) (WallID, int, bool) {
	bestWall, bestTile, bestD := NoWall, -1, math.Inf(1)
	for _, w := range g.walls {
		t, d, ok := w.NearestFreeTile(p)
		if ok && d < bestD {
			bestWall, bestTile, bestD = w.ID, t, d
		}
	}
	if bestWall == NoWall || bestD > maxDist {
		return NoWall, -1, false
	}
	return bestWall, bestTile, true
}
