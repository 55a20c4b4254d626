// Package regionexpr implements the boolean algebra over geometric regions
// shared by releases and counts.
//
// An Expr is a binary tree stored in a node arena and referenced by index.
// Leaves name either a surface region (a set of walls) or the volume enclosed
// by a whole object. Exprs are values: combinators and Clone deep-copy the
// arena, so two expressions never share nodes.
package regionexpr

import (
	"errors"
	"fmt"

	"github.com/roach88/cellsim/internal/geom"
)

// ErrInvalid is wrapped by every evaluation error.
var ErrInvalid = errors.New("invalid region expression")

// Kind tags a node.
type Kind uint8

const (
	KindUnion Kind = iota
	KindIntersect
	KindDifference
	KindSurfaceRegion
	KindObjectVolume
)

func (k Kind) String() string {
	switch k {
	case KindUnion:
		return "union"
	case KindIntersect:
		return "intersect"
	case KindDifference:
		return "difference"
	case KindSurfaceRegion:
		return "surface_region"
	case KindObjectVolume:
		return "object_volume"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// IsLeaf reports whether the kind has no children.
func (k Kind) IsLeaf() bool { return k == KindSurfaceRegion || k == KindObjectVolume }

// NodeID indexes a node in its Expr's arena.
type NodeID int32

// NoNode marks a missing child.
const NoNode NodeID = -1

// Node is one arena entry. Left and Right are set for operators only.
// Region is set for surface leaves, Object for volume leaves.
type Node struct {
	Kind   Kind
	Left   NodeID
	Right  NodeID
	Region geom.RegionID
	Object geom.ObjectID
	Name   string
}

// Expr is a region expression. The zero value is empty.
type Expr struct {
	nodes []Node
	root  NodeID
}

// SurfaceRegion returns a leaf for the walls of region r.
func SurfaceRegion(g *geom.Geometry, r geom.RegionID) Expr {
	return Expr{
		nodes: []Node{{Kind: KindSurfaceRegion, Left: NoNode, Right: NoNode, Region: r, Object: -1, Name: g.RegionFullName(r)}},
		root:  0,
	}
}

// ObjectVolume returns a leaf for the volume enclosed by object o.
func ObjectVolume(g *geom.Geometry, o geom.ObjectID) Expr {
	name := fmt.Sprintf("object#%d", o)
	if obj := g.Object(o); obj != nil {
		name = obj.Name
	}
	return Expr{
		nodes: []Node{{Kind: KindObjectVolume, Left: NoNode, Right: NoNode, Region: -1, Object: o, Name: name}},
		root:  0,
	}
}

// Union returns a ∪ b.
func Union(a, b Expr) Expr { return combine(KindUnion, a, b) }

// Intersect returns a ∩ b.
func Intersect(a, b Expr) Expr { return combine(KindIntersect, a, b) }

// Difference returns a \ b.
func Difference(a, b Expr) Expr { return combine(KindDifference, a, b) }

func combine(k Kind, a, b Expr) Expr {
	out := Expr{nodes: make([]Node, 0, len(a.nodes)+len(b.nodes)+1)}
	l := out.graft(a)
	r := out.graft(b)
	out.nodes = append(out.nodes, Node{Kind: k, Left: l, Right: r, Region: -1, Object: -1})
	out.root = NodeID(len(out.nodes) - 1)
	return out
}

// graft copies src's arena into e and returns the new index of src's root.
func (e *Expr) graft(src Expr) NodeID {
	if src.IsEmpty() {
		return NoNode
	}
	off := NodeID(len(e.nodes))
	for _, n := range src.nodes {
		if n.Left != NoNode {
			n.Left += off
		}
		if n.Right != NoNode {
			n.Right += off
		}
		e.nodes = append(e.nodes, n)
	}
	return src.root + off
}

// Clone returns a deep copy.
func (e Expr) Clone() Expr {
	if e.IsEmpty() {
		return Expr{}
	}
	nodes := make([]Node, len(e.nodes))
	copy(nodes, e.nodes)
	return Expr{nodes: nodes, root: e.root}
}

// IsEmpty reports whether the expression has no nodes.
func (e Expr) IsEmpty() bool { return len(e.nodes) == 0 }

// Len returns the arena size.
func (e Expr) Len() int { return len(e.nodes) }

// Root returns the root node. It panics on an empty expression.
func (e Expr) Root() Node { return e.nodes[e.root] }

// Node returns an arena entry.
func (e Expr) Node(id NodeID) Node { return e.nodes[id] }

// RootID returns the index of the root node.
func (e Expr) RootID() NodeID { return e.root }

// RebindObject retargets every volume leaf naming from to to and returns the
// number of leaves changed. Only the receiver's arena is touched.
func (e *Expr) RebindObject(from, to geom.ObjectID, name string) int {
	n := 0
	for i := range e.nodes {
		if e.nodes[i].Kind == KindObjectVolume && e.nodes[i].Object == from {
			e.nodes[i].Object = to
			e.nodes[i].Name = name
			n++
		}
	}
	return n
}

// RebindRegion retargets every surface leaf naming from to to.
func (e *Expr) RebindRegion(from, to geom.RegionID, name string) int {
	n := 0
	for i := range e.nodes {
		if e.nodes[i].Kind == KindSurfaceRegion && e.nodes[i].Region == from {
			e.nodes[i].Region = to
			e.nodes[i].Name = name
			n++
		}
	}
	return n
}

// leafKinds reports which leaf kinds occur reachable from the root.
func (e Expr) leafKinds() (surface, volume bool) {
	for _, n := range e.nodes {
		switch n.Kind {
		case KindSurfaceRegion:
			surface = true
		case KindObjectVolume:
			volume = true
		}
	}
	return surface, volume
}

// IsVolume reports whether every leaf is an object volume.
func (e Expr) IsVolume() bool {
	s, v := e.leafKinds()
	return v && !s
}

// IsSurface reports whether every leaf is a surface region.
func (e Expr) IsSurface() bool {
	s, v := e.leafKinds()
	return s && !v
}

// SingleObject returns the object when the expression is exactly one
// volume leaf.
func (e Expr) SingleObject() (geom.ObjectID, bool) {
	if e.IsEmpty() || e.Root().Kind != KindObjectVolume {
		return -1, false
	}
	return e.Root().Object, true
}

// SingleRegion returns the region when the expression is exactly one
// surface leaf.
func (e Expr) SingleRegion() (geom.RegionID, bool) {
	if e.IsEmpty() || e.Root().Kind != KindSurfaceRegion {
		return -1, false
	}
	return e.Root().Region, true
}

// Objects returns the objects named by volume leaves, in arena order.
func (e Expr) Objects() []geom.ObjectID {
	var out []geom.ObjectID
	for _, n := range e.nodes {
		if n.Kind == KindObjectVolume {
			out = append(out, n.Object)
		}
	}
	return out
}
