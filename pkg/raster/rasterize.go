package raster

import (
	"context"
	"fmt"
	"math"

	"activity-heatmap/pkg/dataset"
	"activity-heatmap/pkg/geomath"
)

// Rasterize projects every track in the collection and traces its
// segments into the grid.  The pass is a single synchronous loop;
// cancellation is checked between tracks so an interrupted render stops
// at a track boundary and its partial grid can simply be discarded.
//
// A projection failure aborts the whole render: it means the filter fed
// an out-of-domain point to a zoned projection, which is a bug upstream,
// not a data condition to paper over.
func Rasterize(ctx context.Context, c dataset.Collection, proj geomath.Projection, g *Grid) error {
	for _, track := range c.Tracks {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := rasterizeTrack(track, proj, g); err != nil {
			return fmt.Errorf("track %s: %w", track.ID, err)
		}
	}
	return nil
}

// rasterizeTrack walks consecutive point pairs.  Cells are counted once
// per actual visit: each segment skips its start cell when the previous
// segment already drew it, so a shared endpoint between adjacent
// segments is not double counted.  Segments leaving the grid are clipped
// to its edge; a segment entirely outside is skipped without error.
func rasterizeTrack(t dataset.Track, proj geomath.Projection, g *Grid) error {
	if len(t.Points) == 0 {
		return nil
	}

	cells := make([][2]int, 0, len(t.Points))
	for _, p := range t.Points {
		pl, err := proj.Project(p)
		if err != nil {
			return err
		}
		col, row := g.cellOf(pl)
		cells = append(cells, [2]int{int(math.Floor(col)), int(math.Floor(row))})
	}

	if len(cells) == 1 {
		// A single fix still marks its cell so the activity shows up as
		// a dot rather than vanishing.
		if c := cells[0]; g.inRange(c[0], c[1]) {
			g.increment(c[0], c[1])
		}
		return nil
	}

	// lastDrawn tracks the cell the previous segment finished on, so
	// the next segment can skip it.  It resets whenever a segment's end
	// was clipped away, because then the pen is no longer on the paper.
	var lastDrawn [2]int
	haveLast := false

	for i := 0; i+1 < len(cells); i++ {
		a, b := cells[i], cells[i+1]
		ca, cb, ok := clipSegment(a, b, g.Cols, g.Rows)
		if !ok {
			haveLast = false
			continue
		}
		skipFirst := haveLast && ca == lastDrawn
		traceLine(g, ca, cb, skipFirst)

		// Only an unclipped endpoint keeps the pen down for the next
		// segment.
		if cb == b {
			lastDrawn = b
			haveLast = true
		} else {
			haveLast = false
		}
	}
	return nil
}

// inRange reports whether a cell index is inside the grid.
func (g *Grid) inRange(col, row int) bool {
	return col >= 0 && col < g.Cols && row >= 0 && row < g.Rows
}

// traceLine runs Bresenham's algorithm between two in-grid cells,
// incrementing every visited cell.  The classic error-accumulator form:
// cost is the Chebyshev distance between the endpoints.
func traceLine(g *Grid, a, b [2]int, skipFirst bool) {
	x, y := a[0], a[1]
	dx := abs(b[0] - a[0])
	dy := abs(b[1] - a[1])
	sx := 1
	if b[0] < a[0] {
		sx = -1
	}
	sy := 1
	if b[1] < a[1] {
		sy = -1
	}
	err := dx - dy

	for {
		if !skipFirst {
			g.increment(x, y)
		}
		skipFirst = false
		if x == b[0] && y == b[1] {
			return
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x += sx
		}
		if e2 < dx {
			err += dx
			y += sy
		}
	}
}

// clipSegment clips an integer segment to the grid rectangle using
// Cohen–Sutherland outcodes.  Returns the clipped endpoints and whether
// any part of the segment survives.
func clipSegment(a, b [2]int, cols, rows int) (ca, cb [2]int, ok bool) {
	x0, y0 := float64(a[0]), float64(a[1])
	x1, y1 := float64(b[0]), float64(b[1])
	maxX, maxY := float64(cols-1), float64(rows-1)

	out0 := outcode(x0, y0, maxX, maxY)
	out1 := outcode(x1, y1, maxX, maxY)

	for {
		switch {
		case (out0 | out1) == 0:
			return [2]int{int(math.Round(x0)), int(math.Round(y0))},
				[2]int{int(math.Round(x1)), int(math.Round(y1))}, true
		case (out0 & out1) != 0:
			return ca, cb, false
		}

		pick := out0
		if pick == 0 {
			pick = out1
		}

		var x, y float64
		switch {
		case pick&clipTop != 0:
			x = x0 + (x1-x0)*(0-y0)/(y1-y0)
			y = 0
		case pick&clipBottom != 0:
			x = x0 + (x1-x0)*(maxY-y0)/(y1-y0)
			y = maxY
		case pick&clipRight != 0:
			y = y0 + (y1-y0)*(maxX-x0)/(x1-x0)
			x = maxX
		default: // clipLeft
			y = y0 + (y1-y0)*(0-x0)/(x1-x0)
			x = 0
		}

		if pick == out0 {
			x0, y0 = x, y
			out0 = outcode(x0, y0, maxX, maxY)
		} else {
			x1, y1 = x, y
			out1 = outcode(x1, y1, maxX, maxY)
		}
	}
}

const (
	clipLeft = 1 << iota
	clipRight
	clipTop
	clipBottom
)

// outcode classifies a point against the grid rectangle [0,maxX]×[0,maxY].
func outcode(x, y, maxX, maxY float64) int {
	code := 0
	if x < 0 {
		code |= clipLeft
	} else if x > maxX {
		code |= clipRight
	}
	if y < 0 {
		code |= clipTop
	} else if y > maxY {
		code |= clipBottom
	}
	return code
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
