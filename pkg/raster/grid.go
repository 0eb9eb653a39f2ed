// Package raster converts filtered, projected track collections into a
// density grid.  Each consecutive point pair becomes an integer line
// traced with Bresenham's algorithm, incrementing a visit counter per
// touched cell, so a later stage can map counts to color intensity.
package raster

import (
	"fmt"

	"activity-heatmap/pkg/geomath"
)

// PlanarBounds is the projected rectangle a grid covers.  Units match
// whatever the projection emits; the grid never interprets them beyond
// linear interpolation.
type PlanarBounds struct {
	MinX, MaxX float64
	MinY, MaxY float64
}

// Width and Height return the planar extents.
func (b PlanarBounds) Width() float64  { return b.MaxX - b.MinX }
func (b PlanarBounds) Height() float64 { return b.MaxY - b.MinY }

// Grid is a width×height visit-count accumulator.  Counts only grow;
// a fresh grid is allocated per render and discarded with the document.
type Grid struct {
	Cols   int
	Rows   int
	Bounds PlanarBounds

	// cells holds Rows*Cols counters, row-major with row 0 at the top
	// (max Y) edge — image orientation, so the composer can map cells
	// to pixels without a sign flip.
	cells []uint32
}

// NewGrid allocates a zeroed grid.  Dimensions are clamped to at least
// 1×1 so a degenerate request can never divide by zero downstream.
func NewGrid(b PlanarBounds, cols, rows int) *Grid {
	if cols < 1 {
		cols = 1
	}
	if rows < 1 {
		rows = 1
	}
	return &Grid{Cols: cols, Rows: rows, Bounds: b, cells: make([]uint32, cols*rows)}
}

// At returns the visit count for a cell.  Out-of-range indexes return 0
// rather than panicking; the composer iterates its own dimensions, so
// this is purely defensive for tests.
func (g *Grid) At(col, row int) uint32 {
	if col < 0 || col >= g.Cols || row < 0 || row >= g.Rows {
		return 0
	}
	return g.cells[row*g.Cols+col]
}

// MaxCount returns the largest cell count, used to normalize opacity.
func (g *Grid) MaxCount() uint32 {
	var max uint32
	for _, c := range g.cells {
		if c > max {
			max = c
		}
	}
	return max
}

// Total returns the sum of all visit counts.
func (g *Grid) Total() uint64 {
	var total uint64
	for _, c := range g.cells {
		total += uint64(c)
	}
	return total
}

// increment bumps one cell.  Callers guarantee in-range indexes (the
// clipper runs first).
func (g *Grid) increment(col, row int) {
	g.cells[row*g.Cols+col]++
}

// Add bumps one cell, ignoring out-of-range indexes.
func (g *Grid) Add(col, row int) {
	if col < 0 || col >= g.Cols || row < 0 || row >= g.Rows {
		return
	}
	g.increment(col, row)
}

// cellOf maps a planar point to fractional cell coordinates: cell i
// covers the half-open interval [i, i+1), the same Cols/Rows division
// CellRect uses, so a point always lands in the cell whose rectangle
// contains it.  Column 0 sits at MinX, row 0 at MaxY; the inclusive far
// edge folds into the last cell.  A zero-extent axis maps everything to
// the grid center on that axis so single-point datasets land mid-grid.
func (g *Grid) cellOf(p geomath.Planar) (col, row float64) {
	w, h := g.Bounds.Width(), g.Bounds.Height()
	if w > 0 {
		col = (p.X - g.Bounds.MinX) / w * float64(g.Cols)
		if p.X == g.Bounds.MaxX {
			col = float64(g.Cols - 1)
		}
	} else {
		col = float64(g.Cols) / 2
	}
	if h > 0 {
		row = (g.Bounds.MaxY - p.Y) / h * float64(g.Rows)
		if p.Y == g.Bounds.MinY {
			row = float64(g.Rows - 1)
		}
	} else {
		row = float64(g.Rows) / 2
	}
	return col, row
}

// CellRect returns the planar rectangle covered by one cell, for the
// composer's heatmap rectangles.
func (g *Grid) CellRect(col, row int) PlanarBounds {
	cw := g.Bounds.Width() / float64(g.Cols)
	ch := g.Bounds.Height() / float64(g.Rows)
	return PlanarBounds{
		MinX: g.Bounds.MinX + float64(col)*cw,
		MaxX: g.Bounds.MinX + float64(col+1)*cw,
		MaxY: g.Bounds.MaxY - float64(row)*ch,
		MinY: g.Bounds.MaxY - float64(row+1)*ch,
	}
}

// PlanarBoundsOf approximates the projected extent of a geographic box
// by projecting samples along its perimeter.  Corners alone are not
// enough for the conic family, whose parallels bow outward between
// meridians.  Samples the projection rejects (out of zone on a padded
// box edge) are skipped; if every sample fails, the caller's region and
// projection disagree and that error is returned.
func PlanarBoundsOf(proj geomath.Projection, box geomath.Bounds) (PlanarBounds, error) {
	const samplesPerEdge = 8

	var (
		out     PlanarBounds
		seeded  bool
		lastErr error
	)
	extend := func(pt geomath.Point) {
		pl, err := proj.Project(pt)
		if err != nil {
			lastErr = err
			return
		}
		if !seeded {
			out = PlanarBounds{MinX: pl.X, MaxX: pl.X, MinY: pl.Y, MaxY: pl.Y}
			seeded = true
			return
		}
		if pl.X < out.MinX {
			out.MinX = pl.X
		}
		if pl.X > out.MaxX {
			out.MaxX = pl.X
		}
		if pl.Y < out.MinY {
			out.MinY = pl.Y
		}
		if pl.Y > out.MaxY {
			out.MaxY = pl.Y
		}
	}

	for i := 0; i <= samplesPerEdge; i++ {
		f := float64(i) / samplesPerEdge
		lat := box.MinLat + f*box.LatSpan()
		lon := box.MinLon + f*box.LonSpan()
		extend(geomath.Point{Lat: lat, Lon: box.MinLon})
		extend(geomath.Point{Lat: lat, Lon: box.MaxLon})
		extend(geomath.Point{Lat: box.MinLat, Lon: lon})
		extend(geomath.Point{Lat: box.MaxLat, Lon: lon})
	}
	if !seeded {
		return PlanarBounds{}, fmt.Errorf("project grid bounds: %w", lastErr)
	}
	return out, nil
}
