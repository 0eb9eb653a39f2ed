// Package regions holds the static catalog of named render regions.  A
// region is a reusable geographic filter (bounding box or center+radius)
// paired with the projection family that suits its shape, plus the layer
// policy that keeps coarse and detailed boundaries from drawing twice.
// Adding a region is a catalog edit; nothing else in the renderer needs
// to change.
package regions

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"activity-heatmap/pkg/geomath"
)

// Kind distinguishes how a region filters points.
type Kind int

const (
	// KindAll is the universal pseudo-region: every point matches and
	// filtering is the identity.
	KindAll Kind = iota
	// KindBox matches points inside a bounding box, edges inclusive.
	KindBox
	// KindRadius matches points within a great-circle radius of a
	// center point.
	KindRadius
)

// Region is one catalog entry.  Immutable after construction; callers
// receive copies and the catalog itself is never exposed for mutation.
type Region struct {
	Name        string
	Description string
	Kind        Kind

	// Box is set for KindBox regions, and doubles as the projection
	// parameter source for every kind (radius regions derive a box from
	// center and radius).
	Box geomath.Bounds

	// Center and RadiusMeters define KindRadius regions.
	Center       geomath.Point
	RadiusMeters float64

	// Projection is the preferred family.  Parameters left zero are
	// derived from the region's extent by ProjectionFor.
	Projection geomath.Projection
}

// Contains reports whether a point satisfies the region predicate.
func (r Region) Contains(p geomath.Point) bool {
	switch r.Kind {
	case KindAll:
		return true
	case KindRadius:
		return geomath.HaversineDistance(r.Center, p) <= r.RadiusMeters
	default:
		return r.Box.Contains(p)
	}
}

// ErrUnknownRegion reports a region name missing from the catalog.  The
// caller treats this as a configuration error and fails before any
// filtering or rasterization work starts.
var ErrUnknownRegion = errors.New("unknown region")

// catalog is built once at init.  Boxes for the large regions follow the
// rough extents the boundary planner also uses, so a region render and
// its layer policy agree on geography.
var catalog = buildCatalog()

// buildCatalog assembles the region table.  Kept as a function returning
// a map so tests can call it directly and the package variable stays a
// one-liner.
func buildCatalog() map[string]Region {
	entries := []Region{
		{
			Name:        "all",
			Description: "every activity, no geographic filter",
			Kind:        KindAll,
			Projection:  geomath.Projection{Family: geomath.Equirectangular},
		},
		{
			Name:        "usa",
			Description: "contiguous United States",
			Kind:        KindBox,
			Box:         geomath.Bounds{MinLat: 24, MaxLat: 50, MinLon: -125, MaxLon: -66},
			// The classic US Albers parameters; hard-coded rather than
			// derived so output matches familiar US maps.
			Projection: geomath.Projection{
				Family:     geomath.ConicEqualArea,
				StdLat1:    29.5,
				StdLat2:    45.5,
				OriginLat:  37.5,
				CentralLon: -96,
			},
		},
		{
			Name:        "japan",
			Description: "Japanese archipelago",
			Kind:        KindBox,
			Box:         geomath.Bounds{MinLat: 24, MaxLat: 46, MinLon: 123, MaxLon: 146},
			Projection:  geomath.Projection{Family: geomath.ConicEqualArea},
		},
		{
			Name:        "minnesota",
			Description: "state of Minnesota",
			Kind:        KindBox,
			Box:         geomath.Bounds{MinLat: 43.5, MaxLat: 49.4, MinLon: -97.2, MaxLon: -89.5},
			Projection:  geomath.Projection{Family: geomath.ZonedConformal},
		},
		{
			Name:         "twin-cities",
			Description:  "Minneapolis / Saint Paul metro, 100 km radius",
			Kind:         KindRadius,
			Center:       geomath.Point{Lat: 44.9537, Lon: -93.0900},
			RadiusMeters: 100000,
			Projection:   geomath.Projection{Family: geomath.ZonedConformal},
		},
		{
			Name:         "duluth",
			Description:  "Duluth and the North Shore, 60 km radius",
			Kind:         KindRadius,
			Center:       geomath.Point{Lat: 46.7867, Lon: -92.1005},
			RadiusMeters: 60000,
			Projection:   geomath.Projection{Family: geomath.ZonedConformal},
		},
		{
			Name:         "tokyo",
			Description:  "greater Tokyo, 80 km radius",
			Kind:         KindRadius,
			Center:       geomath.Point{Lat: 35.6762, Lon: 139.6503},
			RadiusMeters: 80000,
			Projection:   geomath.Projection{Family: geomath.ZonedConformal},
		},
	}

	m := make(map[string]Region, len(entries))
	for _, r := range entries {
		m[r.Name] = r
	}
	return m
}

// superseded maps a region name to the boundary layers a finer enabled
// layer replaces there.  Policy lives in data, not rendering code: when a
// region lists a layer here, the boundary planner skips it even if the
// configuration enables it, because the region's detailed layers cover
// the same lines.
var superseded = map[string][]string{
	"usa":         {"world"},
	"minnesota":   {"world"},
	"twin-cities": {"world"},
	"duluth":      {"world"},
	"japan":       {"world"},
	"tokyo":       {"world"},
}

// Resolve looks a region up by name.  Matching is case-insensitive and
// tolerant of surrounding whitespace; a miss returns ErrUnknownRegion
// wrapped with the offending name and the list of valid keys so the CLI
// message is immediately actionable.
func Resolve(name string) (Region, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		key = "all"
	}
	r, ok := catalog[key]
	if !ok {
		return Region{}, fmt.Errorf("%w: %q (have: %s)", ErrUnknownRegion, name, strings.Join(Names(), ", "))
	}
	return r, nil
}

// Names returns the catalog keys sorted for stable help output.
func Names() []string {
	names := make([]string, 0, len(catalog))
	for name := range catalog {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns every catalog entry sorted by name, for -list-regions.
func All() []Region {
	out := make([]Region, 0, len(catalog))
	for _, name := range Names() {
		out = append(out, catalog[name])
	}
	return out
}

// SupersededLayers returns the layer names the region's policy table
// suppresses.  Unknown regions simply have no policy.
func SupersededLayers(regionName string) []string {
	return superseded[strings.ToLower(strings.TrimSpace(regionName))]
}

// EffectiveBounds returns the geographic box a region spans: the declared
// box for box regions, a derived box for radius regions, and the empty
// box for "all" (whose extent is the data's own bounds).
func EffectiveBounds(r Region) geomath.Bounds {
	switch r.Kind {
	case KindRadius:
		return radiusBounds(r.Center, r.RadiusMeters)
	case KindBox:
		return r.Box
	default:
		return geomath.Bounds{}
	}
}

// radiusBounds converts center+radius into the smallest enclosing box.
// The longitude span widens with latitude; near the poles the cosine
// collapses, so we clamp to a full hemisphere rather than divide by zero.
func radiusBounds(center geomath.Point, radiusMeters float64) geomath.Bounds {
	latDelta := radiusMeters / geomath.EarthRadiusMeters * 180 / math.Pi
	cos := math.Cos(center.Lat * math.Pi / 180)
	lonDelta := 180.0
	if cos > 1e-9 {
		lonDelta = latDelta / cos
	}
	b := geomath.Bounds{
		MinLat: center.Lat - latDelta,
		MaxLat: center.Lat + latDelta,
		MinLon: center.Lon - lonDelta,
		MaxLon: center.Lon + lonDelta,
	}
	if b.MinLat < -90 {
		b.MinLat = -90
	}
	if b.MaxLat > 90 {
		b.MaxLat = 90
	}
	if b.MinLon < -180 {
		b.MinLon = -180
	}
	if b.MaxLon > 180 {
		b.MaxLon = 180
	}
	return b
}

// ProjectionFor completes a region's preferred projection with concrete
// parameters derived from its extent.  dataBounds supplies the extent for
// the "all" pseudo-region, whose geography is whatever the dataset
// covers.
func ProjectionFor(r Region, dataBounds geomath.Bounds) geomath.Projection {
	extent := EffectiveBounds(r)
	if extent.IsEmpty() {
		extent = dataBounds
	}
	center := extent.Center()

	proj := r.Projection
	switch proj.Family {
	case geomath.ZonedConformal:
		if proj.Zone == 0 {
			proj.Zone = geomath.ZoneFor(center.Lon)
		}
		proj.South = center.Lat < 0
	case geomath.ConicEqualArea:
		if proj.StdLat1 == 0 && proj.StdLat2 == 0 {
			// One-sixth rule: standard parallels sit a sixth of the
			// latitude span in from each edge, the usual distortion
			// compromise for conic maps.
			span := extent.LatSpan()
			proj.StdLat1 = extent.MinLat + span/6
			proj.StdLat2 = extent.MaxLat - span/6
			proj.OriginLat = center.Lat
			proj.CentralLon = center.Lon
		}
	default:
		if proj.RefLat == 0 {
			proj.RefLat = center.Lat
		}
	}
	return proj
}
