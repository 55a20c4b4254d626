package release

import "github.com/roach88/cellsim/internal/geom"

// CumulativeAreas returns the running sum of wall areas in wall order.
func CumulativeAreas(g *geom.Geometry, walls []geom.WallID) []float64 {
	cum := make([]float64, len(walls))
	total := 0.0
	for i, wid := range walls {
		total += g.Wall(wid).Area
		cum[i] = total
	}
	return cum
}

// CumAreaBisectHigh returns the index of the first entry of the ascending
// slice cum that exceeds x, by narrowing [low, high] until adjacent. Values
// at or beyond the last entry map to the last index.
func CumAreaBisectHigh(cum []float64, x float64) int {
	lo, hi := 0, len(cum)-1
	if hi < 0 {
		return -1
	}
	if cum[lo] > x {
		return lo
	}
	for hi-lo > 1 {
		mid := (lo + hi) / 2
		if cum[mid] > x {
			hi = mid
		} else {
			lo = mid
		}
	}
	return hi
}

// TotalArea returns the summed area of the release's wall table.
func (r *Event) TotalArea() float64 {
	if len(r.cumAreas) == 0 {
		return 0
	}
	return r.cumAreas[len(r.cumAreas)-1]
}

// Walls returns the cached wall table, in wall order.
func (r *Event) Walls() []geom.WallID { return r.walls }

// pickWall draws a wall weighted by area and returns it with the fraction
// of the way through that wall's share of the area.
func pickWall(g *geom.Geometry, walls []geom.WallID, cum []float64, u float64) (geom.WallID, float64) {
	x := u * cum[len(cum)-1]
	i := CumAreaBisectHigh(cum, x)
	lo := 0.0
	if i > 0 {
		lo = cum[i-1]
	}
	w := g.Wall(walls[i])
	f := (x - lo) / w.Area
	if f < 0 {
		f = 0
	}
	return walls[i], f
}
