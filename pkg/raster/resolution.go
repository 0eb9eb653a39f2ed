package raster

import (
	"math"

	"activity-heatmap/pkg/geomath"
)

// Resolution policy constants.  The base grid runs at a quarter of the
// output pixel budget — line work does not need pixel-perfect cells and
// the quarter grid keeps memory and SVG size in check.  Dense datasets
// earn finer cells up to the full pixel budget, never beyond it.
const (
	baseDivisor         = 4
	minGridSide         = 16
	targetPointsPerCell = 4.0
)

// Resolution picks grid dimensions for a geographic box, an output pixel
// budget, and the dataset's point count.  Guarantees: never returns less
// than 1×1, never divides by zero on a zero-extent box (a single-point
// dataset gets the minimum square grid, centered by the grid mapping),
// and never exceeds the pixel budget regardless of density.
func Resolution(box geomath.Bounds, targetW, targetH, pointCount int) (cols, rows int) {
	if targetW < 1 {
		targetW = 1
	}
	if targetH < 1 {
		targetH = 1
	}

	latSpan := box.LatSpan()
	lonSpan := box.LonSpan()
	if box.IsEmpty() || latSpan <= 0 || lonSpan <= 0 {
		return clampGrid(minGridSide, targetW), clampGrid(minGridSide, targetH)
	}

	// Fit the base grid to the data's aspect ratio, the same way the
	// output document preserves aspect: the longer geographic axis takes
	// the full quarter-budget and the other shrinks to match.
	aspect := lonSpan / latSpan
	cols = targetW / baseDivisor
	rows = targetH / baseDivisor
	if aspect > float64(targetW)/float64(targetH) {
		rows = int(float64(cols) / aspect)
	} else {
		cols = int(float64(rows) * aspect)
	}
	cols = clampGrid(cols, targetW)
	rows = clampGrid(rows, targetH)

	// Adaptive refinement: when points swamp the cells, scale both axes
	// by the square root of the overshoot so density lands back near the
	// target, capped by the pixel budget as the memory ceiling.
	if pointCount > 0 {
		density := float64(pointCount) / float64(cols*rows)
		if density > targetPointsPerCell {
			scale := math.Sqrt(density / targetPointsPerCell)
			cols = clampGrid(int(float64(cols)*scale), targetW)
			rows = clampGrid(int(float64(rows)*scale), targetH)
		}
	}
	return cols, rows
}

// clampGrid bounds a dimension to [1, ceiling] with the minimum side
// applied when the ceiling allows it.
func clampGrid(n, ceiling int) int {
	min := minGridSide
	if min > ceiling {
		min = ceiling
	}
	if min < 1 {
		min = 1
	}
	if n < min {
		return min
	}
	if n > ceiling {
		return ceiling
	}
	return n
}
