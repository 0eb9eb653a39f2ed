// Package svgdoc assembles the final vector document: projected boundary
// geometry first, then the heatmap or raw track paths, then point
// markers on top.  The composer is a pure function of its inputs — all
// geometry arrives projected and filtered, styling arrives validated —
// so it performs no I/O beyond writing the finished document.
package svgdoc

import (
	"fmt"
	"io"
	"strings"

	"activity-heatmap/pkg/geomath"
	"activity-heatmap/pkg/raster"
)

// Style carries the stroke/fill attributes a layer draws with.
type Style struct {
	Color   string
	Width   float64
	Fill    string
	Opacity float64
}

// MarkerShape selects the small glyph drawn for one point of interest.
type MarkerShape string

const (
	ShapeCircle   MarkerShape = "circle"
	ShapeTriangle MarkerShape = "triangle"
	ShapeSquare   MarkerShape = "square"
)

// Marker is one point of interest with its tooltip label.
type Marker struct {
	Name  string
	At    geomath.Planar
	Shape MarkerShape
	Size  float64
	Color string
}

// TrackPath is one activity's projected polyline.
type TrackPath struct {
	ID     string
	Points []geomath.Planar
}

// Document accumulates SVG fragments in draw order and serializes them
// once.  Every projected coordinate passes through a single affine fit
// (uniform scale plus translate) computed from the planar extent, so all
// layers land in the same pixel frame.
type Document struct {
	Width  int
	Height int

	scale   float64
	centerX float64
	centerY float64

	body []string
}

// marginFactor leaves breathing room between the data and the frame.
const marginFactor = 0.9

// New computes the affine fit for the given planar extent.  The scale is
// uniform — aspect ratio is preserved and the shorter direction is
// centered.  A zero-extent dataset (single point) gets scale 1, which
// parks the point mid-frame.
func New(width, height int, extent raster.PlanarBounds) *Document {
	d := &Document{
		Width:   width,
		Height:  height,
		centerX: (extent.MinX + extent.MaxX) / 2,
		centerY: (extent.MinY + extent.MaxY) / 2,
	}
	scaleX, scaleY := 0.0, 0.0
	if extent.Width() > 0 {
		scaleX = float64(width) / extent.Width()
	}
	if extent.Height() > 0 {
		scaleY = float64(height) / extent.Height()
	}
	d.scale = scaleX
	if scaleY > 0 && (d.scale == 0 || scaleY < d.scale) {
		d.scale = scaleY
	}
	if d.scale == 0 {
		d.scale = 1
	}
	d.scale *= marginFactor
	return d
}

// ToPixel maps a planar coordinate into the output pixel frame.  Y flips
// here: planar Y grows north, pixel Y grows down.
func (d *Document) ToPixel(p geomath.Planar) (float64, float64) {
	x := (p.X-d.centerX)*d.scale + float64(d.Width)/2
	y := (d.centerY-p.Y)*d.scale + float64(d.Height)/2
	return x, y
}

// AddBoundaryLayer appends one layer's paths as a styled group.  An
// empty path set still emits the group element so the document structure
// reflects every planned layer, which keeps downstream diffing sane.
func (d *Document) AddBoundaryLayer(name string, style Style, paths [][]geomath.Planar) {
	var b strings.Builder
	fmt.Fprintf(&b, "  <g id=%q stroke=%q stroke-width=%q fill=%q>\n",
		"layer-"+name, style.Color, trimFloat(style.Width), fillOrNone(style.Fill))
	for _, path := range paths {
		if len(path) < 2 {
			continue
		}
		fmt.Fprintf(&b, "    <path d=%q/>\n", pathData(d, path, true))
	}
	b.WriteString("  </g>\n")
	d.body = append(d.body, b.String())
}

// AddHeatmap renders the density grid as filled cell rectangles.  Counts
// map to opacity against the grid maximum, so the hottest cell is fully
// opaque and a single visit stays faint but visible.
func (d *Document) AddHeatmap(g *raster.Grid, color string) {
	max := g.MaxCount()
	var b strings.Builder
	fmt.Fprintf(&b, "  <g id=\"heatmap\" fill=%q>\n", color)
	if max > 0 {
		for row := 0; row < g.Rows; row++ {
			for col := 0; col < g.Cols; col++ {
				count := g.At(col, row)
				if count == 0 {
					continue
				}
				rect := g.CellRect(col, row)
				x0, y0 := d.ToPixel(geomath.Planar{X: rect.MinX, Y: rect.MaxY})
				x1, y1 := d.ToPixel(geomath.Planar{X: rect.MaxX, Y: rect.MinY})
				opacity := 0.15 + 0.85*float64(count)/float64(max)
				fmt.Fprintf(&b, "    <rect x=\"%.2f\" y=\"%.2f\" width=\"%.2f\" height=\"%.2f\" fill-opacity=\"%.3f\"/>\n",
					x0, y0, x1-x0, y1-y0, opacity)
			}
		}
	}
	b.WriteString("  </g>\n")
	d.body = append(d.body, b.String())
}

// AddTracks renders activities as one path element each.  A track that
// cannot form a line (fewer than two points) draws as a dot instead of
// disappearing.
func (d *Document) AddTracks(tracks []TrackPath, style Style) {
	opacity := style.Opacity
	if opacity == 0 {
		opacity = 0.6
	}
	var b strings.Builder
	fmt.Fprintf(&b, "  <g id=\"tracks\" stroke=%q stroke-width=%q fill=\"none\" opacity=\"%.2f\" stroke-linecap=\"round\" stroke-linejoin=\"round\">\n",
		style.Color, trimFloat(style.Width), opacity)
	for _, t := range tracks {
		switch {
		case len(t.Points) >= 2:
			fmt.Fprintf(&b, "    <path d=%q/>\n", pathData(d, t.Points, false))
		case len(t.Points) == 1:
			x, y := d.ToPixel(t.Points[0])
			fmt.Fprintf(&b, "    <circle cx=\"%.2f\" cy=\"%.2f\" r=\"%s\" fill=%q stroke=\"none\"/>\n",
				x, y, trimFloat(style.Width+1), style.Color)
		}
	}
	b.WriteString("  </g>\n")
	d.body = append(d.body, b.String())
}

// AddMarkers appends a marker group.  Every marker carries its label as
// a <title> child, which browsers surface as a hover tooltip.
func (d *Document) AddMarkers(name string, markers []Marker) {
	var b strings.Builder
	fmt.Fprintf(&b, "  <g id=%q>\n", "markers-"+name)
	for _, m := range markers {
		x, y := d.ToPixel(m.At)
		size := m.Size
		if size <= 0 {
			size = 5
		}
		b.WriteString("    ")
		b.WriteString(markerShape(m.Shape, x, y, size, m.Color))
		fmt.Fprintf(&b, "<title>%s</title>", xmlEscape(m.Name))
		b.WriteString(markerShapeClose(m.Shape))
		b.WriteString("\n")
	}
	b.WriteString("  </g>\n")
	d.body = append(d.body, b.String())
}

// AddTitle centers a heading along the top edge.
func (d *Document) AddTitle(text string) {
	d.body = append(d.body, fmt.Sprintf(
		"  <text x=\"%.0f\" y=\"30\" text-anchor=\"middle\" font-family=\"Arial, sans-serif\" font-size=\"24\" font-weight=\"bold\" fill=\"#333\">%s</text>\n",
		float64(d.Width)/2, xmlEscape(text)))
}

// LegendEntry is one line in the legend box.
type LegendEntry struct {
	Label string
	Color string
}

// AddLegend draws a small keyed box in the bottom-right corner.
func (d *Document) AddLegend(entries []LegendEntry) {
	if len(entries) == 0 {
		return
	}
	height := 20*len(entries) + 20
	var b strings.Builder
	fmt.Fprintf(&b, "  <g id=\"legend\" transform=\"translate(%d, %d)\">\n",
		d.Width-160, d.Height-height-10)
	fmt.Fprintf(&b, "    <rect width=\"150\" height=\"%d\" fill=\"white\" stroke=\"#ccc\" stroke-width=\"1\" rx=\"5\"/>\n", height)
	for i, e := range entries {
		y := 20 + 20*i
		fmt.Fprintf(&b, "    <line x1=\"10\" y1=\"%d\" x2=\"30\" y2=\"%d\" stroke=%q stroke-width=\"2\"/>\n", y, y, e.Color)
		fmt.Fprintf(&b, "    <text x=\"35\" y=\"%d\" font-family=\"Arial, sans-serif\" font-size=\"12\" fill=\"#333\">%s</text>\n",
			y+4, xmlEscape(e.Label))
	}
	b.WriteString("  </g>\n")
	d.body = append(d.body, b.String())
}

// WriteTo serializes the document.  The root declares the configured
// pixel dimensions and a matching viewBox, with a light background rect
// before everything else.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	var total int64
	write := func(s string) error {
		n, err := io.WriteString(w, s)
		total += int64(n)
		return err
	}

	if err := write("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n"); err != nil {
		return total, err
	}
	if err := write(fmt.Sprintf(
		"<svg xmlns=\"http://www.w3.org/2000/svg\" width=\"%d\" height=\"%d\" viewBox=\"0 0 %d %d\">\n",
		d.Width, d.Height, d.Width, d.Height)); err != nil {
		return total, err
	}
	if err := write("  <rect width=\"100%\" height=\"100%\" fill=\"#f8f9fa\"/>\n"); err != nil {
		return total, err
	}
	for _, fragment := range d.body {
		if err := write(fragment); err != nil {
			return total, err
		}
	}
	if err := write("</svg>\n"); err != nil {
		return total, err
	}
	return total, nil
}

// pathData builds the M/L command string for a polyline.  closePath
// appends Z when the endpoints coincide, which turns polygon rings back
// into closed shapes.
func pathData(d *Document, points []geomath.Planar, closePath bool) string {
	var b strings.Builder
	for i, p := range points {
		x, y := d.ToPixel(p)
		if i == 0 {
			fmt.Fprintf(&b, "M %.2f %.2f", x, y)
		} else {
			fmt.Fprintf(&b, " L %.2f %.2f", x, y)
		}
	}
	if closePath && len(points) > 2 && points[0] == points[len(points)-1] {
		b.WriteString(" Z")
	}
	return b.String()
}

// markerShape emits the opening tag for a marker glyph centered on x,y.
func markerShape(shape MarkerShape, x, y, size float64, color string) string {
	switch shape {
	case ShapeSquare:
		return fmt.Sprintf("<rect x=\"%.2f\" y=\"%.2f\" width=\"%.2f\" height=\"%.2f\" fill=%q>",
			x-size/2, y-size/2, size, size, color)
	case ShapeTriangle:
		h := size * 0.866
		return fmt.Sprintf("<polygon points=\"%.2f,%.2f %.2f,%.2f %.2f,%.2f\" fill=%q>",
			x, y-h/2, x-size/2, y+h/2, x+size/2, y+h/2, color)
	default:
		return fmt.Sprintf("<circle cx=\"%.2f\" cy=\"%.2f\" r=\"%.2f\" fill=%q>", x, y, size/2, color)
	}
}

// markerShapeClose returns the matching closing tag.
func markerShapeClose(shape MarkerShape) string {
	switch shape {
	case ShapeSquare:
		return "</rect>"
	case ShapeTriangle:
		return "</polygon>"
	default:
		return "</circle>"
	}
}

// fillOrNone defaults an empty fill to "none" so boundary outlines do
// not flood-fill by accident.
func fillOrNone(fill string) string {
	if fill == "" {
		return "none"
	}
	return fill
}

// trimFloat formats a stroke width without trailing zero noise.
func trimFloat(v float64) string {
	return fmt.Sprintf("%g", v)
}

// xmlEscape escapes text destined for XML content or attributes.
func xmlEscape(s string) string {
	r := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
	)
	return r.Replace(s)
}
