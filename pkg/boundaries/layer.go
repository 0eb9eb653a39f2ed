// Package boundaries loads, caches, and geometrically filters the
// boundary and point-of-interest layers drawn under the user's tracks.
// Layers come from GeoJSON — fetched once into an on-disk cache, then
// read locally — and are filtered per render against the data's bounding
// box.  Parsing is lenient: a malformed feature is skipped, never fatal,
// because reference datasets in the wild routinely carry a few broken
// geometries.
package boundaries

import (
	"encoding/json"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"activity-heatmap/pkg/geomath"
)

// Tier classifies a layer in the boundary hierarchy.  The composer draws
// tiers in catalog order; the region policy table uses tiers only through
// layer names, so adding a tier is purely descriptive.
type Tier string

const (
	TierCountry     Tier = "country"
	TierSubdivision Tier = "subdivision"
	TierCity        Tier = "city"
	TierHydro       Tier = "hydrography"
	TierMarker      Tier = "marker"
)

// Feature is one named geometry in a layer: polyline/polygon paths,
// marker points, or both (GeoJSON geometry collections flatten into one
// feature).  Box caches the feature's own bounding box for the
// rectangle-overlap filter.
type Feature struct {
	Name    string
	Paths   [][]geomath.Point
	Markers []geomath.Point
	Box     geomath.Bounds
}

// Layer is a named, styleable set of features.  Filtering produces a new
// derived layer; the cached original is never mutated.
type Layer struct {
	Spec     LayerSpec
	Features []Feature

	// SkippedFeatures counts geometries dropped by the lenient parser,
	// reported so data problems stay visible in logs.
	SkippedFeatures int
}

// ParseGeoJSON decodes a feature collection leniently.  The envelope
// must be valid JSON, but each feature is decoded independently and
// malformed ones are skipped and counted rather than aborting the file.
func ParseGeoJSON(spec LayerSpec, data []byte) (Layer, error) {
	var envelope struct {
		Type     string            `json:"type"`
		Features []json.RawMessage `json:"features"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return Layer{}, fmt.Errorf("layer %s: parse envelope: %w", spec.Name, err)
	}

	layer := Layer{Spec: spec, Features: make([]Feature, 0, len(envelope.Features))}
	for _, raw := range envelope.Features {
		f, err := geojson.UnmarshalFeature(raw)
		if err != nil || f.Geometry == nil {
			layer.SkippedFeatures++
			continue
		}
		feat := flattenFeature(f)
		if len(feat.Paths) == 0 && len(feat.Markers) == 0 {
			layer.SkippedFeatures++
			continue
		}
		layer.Features = append(layer.Features, feat)
	}
	return layer, nil
}

// flattenFeature converts a GeoJSON feature into render-ready paths and
// marker points.  GeoJSON stores lon,lat order; everything downstream
// speaks lat,lon, so the swap happens exactly once, here.
func flattenFeature(f *geojson.Feature) Feature {
	feat := Feature{Name: featureName(f)}
	appendGeometry(&feat, f.Geometry)
	for _, path := range feat.Paths {
		for _, p := range path {
			feat.Box = feat.Box.Extend(p)
		}
	}
	for _, m := range feat.Markers {
		feat.Box = feat.Box.Extend(m)
	}
	return feat
}

// appendGeometry recurses through the orb geometry variants.  Multi
// variants flatten into additional paths on the same feature so styling
// and filtering treat them as one named object.
func appendGeometry(feat *Feature, g orb.Geometry) {
	switch geo := g.(type) {
	case orb.Point:
		feat.Markers = append(feat.Markers, toPoint(geo))
	case orb.MultiPoint:
		for _, p := range geo {
			feat.Markers = append(feat.Markers, toPoint(p))
		}
	case orb.LineString:
		feat.Paths = append(feat.Paths, toPath(geo))
	case orb.MultiLineString:
		for _, line := range geo {
			feat.Paths = append(feat.Paths, toPath(line))
		}
	case orb.Polygon:
		for _, ring := range geo {
			feat.Paths = append(feat.Paths, toPath(orb.LineString(ring)))
		}
	case orb.MultiPolygon:
		for _, poly := range geo {
			for _, ring := range poly {
				feat.Paths = append(feat.Paths, toPath(orb.LineString(ring)))
			}
		}
	case orb.Collection:
		for _, sub := range geo {
			appendGeometry(feat, sub)
		}
	}
}

func toPoint(p orb.Point) geomath.Point {
	return geomath.Point{Lat: p.Lat(), Lon: p.Lon()}
}

func toPath(line orb.LineString) []geomath.Point {
	path := make([]geomath.Point, 0, len(line))
	for _, p := range line {
		path = append(path, toPoint(p))
	}
	return path
}

// featureName digs the display name out of the property bag.  Datasets
// disagree on the key, so a small preference list covers the sources the
// built-in layer set uses.
func featureName(f *geojson.Feature) string {
	for _, key := range []string{"name", "NAME", "Name", "admin", "id"} {
		if v, ok := f.Properties[key].(string); ok && v != "" {
			return v
		}
	}
	if id, ok := f.ID.(string); ok {
		return id
	}
	return ""
}

// FilterToBounds returns a derived layer keeping only features whose own
// bounding box intersects the given box (inclusive).  This is a deliberate
// approximation — a feature's box can overlap the region while all its
// segments miss it — accepted because the overlay is visual: a false
// positive draws a harmless extra path and never touches the raster.
func FilterToBounds(layer Layer, box geomath.Bounds) Layer {
	out := Layer{Spec: layer.Spec, SkippedFeatures: layer.SkippedFeatures}
	for _, f := range layer.Features {
		if f.Box.Intersects(box) {
			out.Features = append(out.Features, f)
		}
	}
	return out
}

// ClipToBox returns a derived layer whose paths are split into runs of
// points inside the box, and whose markers are filtered to it.  Zoned
// conformal renders use this to honor the projection contract: the store
// must never hand an out-of-zone point to the projection, and a
// neighboring state's far edge can sit well outside the zone even when
// its bounding box overlaps the render.  Other projections skip this
// clip and keep the cheaper box-overlap behavior.
func ClipToBox(layer Layer, box geomath.Bounds) Layer {
	out := Layer{Spec: layer.Spec, SkippedFeatures: layer.SkippedFeatures}
	for _, f := range layer.Features {
		clipped := Feature{Name: f.Name}
		for _, path := range f.Paths {
			var run []geomath.Point
			for _, p := range path {
				if box.Contains(p) {
					run = append(run, p)
					continue
				}
				if len(run) > 1 {
					clipped.Paths = append(clipped.Paths, run)
				}
				run = nil
			}
			if len(run) > 1 {
				clipped.Paths = append(clipped.Paths, run)
			}
		}
		for _, m := range f.Markers {
			if box.Contains(m) {
				clipped.Markers = append(clipped.Markers, m)
			}
		}
		if len(clipped.Paths) == 0 && len(clipped.Markers) == 0 {
			continue
		}
		for _, path := range clipped.Paths {
			for _, p := range path {
				clipped.Box = clipped.Box.Extend(p)
			}
		}
		for _, m := range clipped.Markers {
			clipped.Box = clipped.Box.Extend(m)
		}
		out.Features = append(out.Features, clipped)
	}
	return out
}

// MarkerNames lists the named markers in a layer, for validating the
// per-marker enable map in the render configuration.
func (l Layer) MarkerNames() []string {
	var names []string
	for _, f := range l.Features {
		if len(f.Markers) > 0 && f.Name != "" {
			names = append(names, f.Name)
		}
	}
	return names
}
