package geom

import (
	"fmt"
	"math"
)

// EmptyTile is the occupant value of a free tile.
const EmptyTile int64 = 0

// Grid discretizes one wall into side² triangular tiles, each holding at
// most one surface molecule.
//
// Tiles are the sub-triangles of the lattice v0 + a(v1-v0) + b(v2-v1),
// 0 <= b <= a <= 1, indexed row by row starting at v0. Row r holds 2r+1
// tiles: even positions point away from v0, odd positions toward it.
type Grid struct {
	side     int
	tiles    []int64
	occupied int
}

// NewGrid sizes a grid for a wall of the given area (internal units).
func NewGrid(area float64) *Grid {
	side := int(math.Ceil(math.Sqrt(area)))
	if side < 1 {
		side = 1
	}
	return &Grid{
		side:  side,
		tiles: make([]int64, side*side),
	}
}

// Side returns the number of lattice rows.
func (g *Grid) Side() int { return g.side }

// TileCount returns the number of tiles.
func (g *Grid) TileCount() int { return len(g.tiles) }

// FreeTileCount returns the number of unoccupied tiles.
func (g *Grid) FreeTileCount() int { return len(g.tiles) - g.occupied }

// OccupiedCount returns the number of occupied tiles.
func (g *Grid) OccupiedCount() int { return g.occupied }

// MoleculeAt returns the molecule id on the tile, or EmptyTile.
func (g *Grid) MoleculeAt(tile int) int64 {
	if tile < 0 || tile >= len(g.tiles) {
		return EmptyTile
	}
	return g.tiles[tile]
}

// IsFree reports whether the tile is in range and unoccupied.
func (g *Grid) IsFree(tile int) bool {
	return tile >= 0 && tile < len(g.tiles) && g.tiles[tile] == EmptyTile
}

// Occupy places molecule id on the tile.
func (g *Grid) Occupy(tile int, id int64) error {
	if tile < 0 || tile >= len(g.tiles) {
		return fmt.Errorf("tile %d out of range [0,%d)", tile, len(g.tiles))
	}
	if id == EmptyTile {
		return fmt.Errorf("cannot occupy tile %d with the empty id", tile)
	}
	if g.tiles[tile] != EmptyTile {
		return fmt.Errorf("tile %d already holds molecule %d", tile, g.tiles[tile])
	}
	g.tiles[tile] = id
	g.occupied++
	return nil
}

// Vacate frees the tile and returns its previous occupant.
func (g *Grid) Vacate(tile int) int64 {
	if tile < 0 || tile >= len(g.tiles) || g.tiles[tile] == EmptyTile {
		return EmptyTile
	}
	id := g.tiles[tile]
	g.tiles[tile] = EmptyTile
	g.occupied--
	return id
}

// TileFromFraction maps f in [0,1) to a tile index.
func (g *Grid) TileFromFraction(f float64) int {
	t := int(f * float64(len(g.tiles)))
	if t < 0 {
		return 0
	}
	if t >= len(g.tiles) {
		return len(g.tiles) - 1
	}
	return t
}

// tileLattice returns the centroid of a tile in lattice coordinates
// scaled to [0,1].
func (g *Grid) tileLattice(tile int) (a, b float64) {
	r := int(math.Sqrt(float64(tile)))
	for r*r > tile {
		r--
	}
	for (r+1)*(r+1) <= tile {
		r++
	}
	j := tile - r*r
	s := float64(g.side)
	if j%2 == 0 {
		i := j / 2
		return (3*float64(r) + 2) / (3 * s), (3*float64(i) + 1) / (3 * s)
	}
	i := (j - 1) / 2
	return (3*float64(r) + 1) / (3 * s), (3*float64(i) + 2) / (3 * s)
}
