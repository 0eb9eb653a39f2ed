// Package geomath provides the spherical-earth math the renderer is built
// on: great-circle distances, bounding boxes, and the map projections used
// to flatten GPS tracks before rasterization.  Everything here is a pure
// function of its inputs so callers can reason about renders as
// deterministic pipelines.
package geomath

import "math"

// EarthRadiusMeters is the mean earth radius used for all spherical
// calculations.  Keeping the constant public lets tests and callers agree
// on the same sphere.
const EarthRadiusMeters = 6371008.0

// Point is a geographic coordinate in degrees.  Latitude grows northward,
// longitude eastward.  Points are plain values and never mutated.
type Point struct {
	Lat float64
	Lon float64
}

// Valid reports whether the point lies inside the usual geographic range.
// NaN coordinates are rejected too so malformed upstream data cannot leak
// into projection math.
func (p Point) Valid() bool {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lon) {
		return false
	}
	if p.Lat < -90 || p.Lat > 90 {
		return false
	}
	if p.Lon < -180 || p.Lon > 180 {
		return false
	}
	return true
}

// Planar is a projected map coordinate.  Units depend on the projection:
// degrees for equirectangular, meters for the conformal and conic
// families.  The document composer only ever scales and translates these,
// so mixed units never meet on one map.
type Planar struct {
	X float64
	Y float64
}

// Bounds is a geographic bounding box.  MinLat <= MaxLat and
// MinLon <= MaxLon always hold for boxes built through Extend; boxes that
// cross the antimeridian are out of scope for this renderer.
type Bounds struct {
	MinLat float64
	MaxLat float64
	MinLon float64
	MaxLon float64
}

// Contains reports whether the point lies inside the box.  All four edges
// are inclusive so points exactly on a region border stay in the render.
func (b Bounds) Contains(p Point) bool {
	if p.Lat < b.MinLat || p.Lat > b.MaxLat {
		return false
	}
	if p.Lon < b.MinLon || p.Lon > b.MaxLon {
		return false
	}
	return true
}

// Intersects reports whether two boxes overlap, inclusive of shared
// edges.  Boundary filtering leans on this being a cheap approximation: a
// box overlap may admit a geometry whose actual segments miss the region,
// which only costs a harmless extra path in the output.
func (b Bounds) Intersects(o Bounds) bool {
	if b.MaxLat < o.MinLat || b.MinLat > o.MaxLat {
		return false
	}
	if b.MaxLon < o.MinLon || b.MinLon > o.MaxLon {
		return false
	}
	return true
}

// Extend grows the box to include the point.  A zero-value box adopts the
// first point it sees, flagged through the Empty field below.
func (b Bounds) Extend(p Point) Bounds {
	if b.IsEmpty() {
		return Bounds{MinLat: p.Lat, MaxLat: p.Lat, MinLon: p.Lon, MaxLon: p.Lon}
	}
	if p.Lat < b.MinLat {
		b.MinLat = p.Lat
	}
	if p.Lat > b.MaxLat {
		b.MaxLat = p.Lat
	}
	if p.Lon < b.MinLon {
		b.MinLon = p.Lon
	}
	if p.Lon > b.MaxLon {
		b.MaxLon = p.Lon
	}
	return b
}

// Union merges two boxes.  Empty operands are ignored so callers can fold
// over a slice without special-casing the seed value.
func (b Bounds) Union(o Bounds) Bounds {
	if b.IsEmpty() {
		return o
	}
	if o.IsEmpty() {
		return b
	}
	b = b.Extend(Point{Lat: o.MinLat, Lon: o.MinLon})
	return b.Extend(Point{Lat: o.MaxLat, Lon: o.MaxLon})
}

// IsEmpty reports whether the box is the zero value that has never been
// extended.  A genuine single-point box is not empty: its min and max
// coincide but are generally non-zero.
func (b Bounds) IsEmpty() bool {
	return b == Bounds{}
}

// Center returns the midpoint of the box.  Used to pick reference
// latitudes and projection parameters.
func (b Bounds) Center() Point {
	return Point{Lat: (b.MinLat + b.MaxLat) / 2, Lon: (b.MinLon + b.MaxLon) / 2}
}

// LatSpan returns the north-south extent in degrees.
func (b Bounds) LatSpan() float64 { return b.MaxLat - b.MinLat }

// LonSpan returns the east-west extent in degrees.
func (b Bounds) LonSpan() float64 { return b.MaxLon - b.MinLon }

// Pad grows the box by the given fraction of its span on every side, so a
// track hugging the data edge does not get clipped by the map frame.  A
// degenerate box (single point) is returned unchanged because a fraction
// of zero span is still zero.
func (b Bounds) Pad(fraction float64) Bounds {
	latPad := b.LatSpan() * fraction
	lonPad := b.LonSpan() * fraction
	b.MinLat -= latPad
	b.MaxLat += latPad
	b.MinLon -= lonPad
	b.MaxLon += lonPad
	return b
}

// HaversineDistance returns the great-circle distance between two points
// in meters on the spherical earth approximation.  It is symmetric and
// returns zero for identical points.
func HaversineDistance(a, b Point) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)
	h := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLon*sinLon
	if h > 1 {
		h = 1
	}
	return 2 * EarthRadiusMeters * math.Asin(math.Sqrt(h))
}
