// Package geom provides the triangular-mesh geometry used by releases and
// counts: walls with per-wall tile grids, named surface regions, and closed
// objects whose enclosed volume can be tested for point containment.
//
// Units are internal: one length unit is 1/sqrt(grid_density) µm, so a
// wall's area is approximately its tile count.
package geom
