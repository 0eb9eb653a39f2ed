package boundaries

import "activity-heatmap/pkg/geomath"

// LayerSpec describes one boundary layer: where its GeoJSON comes from,
// where it applies, and how it draws by default.  Specs are static
// catalog data; the render configuration can override style and the
// required flag per layer.
type LayerSpec struct {
	Name string
	Tier Tier

	// SourceURL is fetched on first use and cached.  Empty when Builtin
	// is set.
	SourceURL string

	// Builtin holds literal GeoJSON for layers that ship with the
	// binary instead of being fetched.  Written to the cache on first
	// load so every layer reads through the same path afterwards.
	Builtin []byte

	// ActiveWithin confines a layer to part of the world: the layer
	// only loads when the render's data bounds intersect this box.  Nil
	// means the layer applies everywhere.
	ActiveWithin *geomath.Bounds

	// Required escalates a load failure from a logged omission to a
	// fatal render error.
	Required bool

	// Default stroke styling, overridable per render.
	Color string
	Width float64
	Fill  string
}

// Rough activation extents, matching the region gates the original
// policy used.  Coarse on purpose: activation is about not fetching the
// Japan dataset for a Minnesota render, not about precise clipping.
var (
	usaExtent   = geomath.Bounds{MinLat: 24, MaxLat: 72, MinLon: -180, MaxLon: -66}
	japanExtent = geomath.Bounds{MinLat: 24, MaxLat: 46, MinLon: 123, MaxLon: 146}
	lakesExtent = geomath.Bounds{MinLat: 24, MaxLat: 72, MinLon: -180, MaxLon: 146}
)

// Catalog returns the built-in layer set in draw order: coarse outlines
// first, then subdivisions, hydrography, city boxes, and markers on top.
// Callers receive fresh copies and may adjust Required/style freely.
func Catalog() []LayerSpec {
	return []LayerSpec{
		{
			Name:      "world",
			Tier:      TierCountry,
			SourceURL: "https://raw.githubusercontent.com/holtzy/D3-graph-gallery/master/DATA/world.geojson",
			Color:     "#dee2e6",
			Width:     0.5,
		},
		{
			Name:         "us_states",
			Tier:         TierSubdivision,
			SourceURL:    "https://raw.githubusercontent.com/PublicaMundi/MappingAPI/master/data/geojson/us-states.json",
			ActiveWithin: &usaExtent,
			Color:        "#ced4da",
			Width:        0.6,
		},
		{
			Name:         "japan_prefectures",
			Tier:         TierSubdivision,
			SourceURL:    "https://raw.githubusercontent.com/dataofjapan/land/master/japan.geojson",
			ActiveWithin: &japanExtent,
			Color:        "#ced4da",
			Width:        0.6,
		},
		{
			Name:         "lakes",
			Tier:         TierHydro,
			SourceURL:    "https://raw.githubusercontent.com/nvkelso/natural-earth-vector/master/geojson/ne_50m_lakes.geojson",
			ActiveWithin: &lakesExtent,
			Color:        "#a5c9e3",
			Width:        0.4,
			Fill:         "#d6e9f5",
		},
		{
			Name:         "twin_cities",
			Tier:         TierCity,
			Builtin:      twinCitiesGeoJSON,
			ActiveWithin: &usaExtent,
			Color:        "#adb5bd",
			Width:        0.4,
		},
		{
			Name:         "landmarks",
			Tier:         TierMarker,
			Builtin:      landmarksGeoJSON,
			ActiveWithin: &usaExtent,
			Color:        "#2b8a3e",
		},
	}
}

// LayerNames lists every catalog layer in draw order.
func LayerNames() []string {
	specs := Catalog()
	names := make([]string, len(specs))
	for i, spec := range specs {
		names[i] = spec.Name
	}
	return names
}

// MarkerLayerNames lists the marker-tier catalog layers, the keys the
// configuration's per-layer marker styles may use.
func MarkerLayerNames() []string {
	var names []string
	for _, spec := range Catalog() {
		if spec.Tier == TierMarker {
			names = append(names, spec.Name)
		}
	}
	return names
}

// SpecByName resolves a catalog entry.  The second result follows the
// comma-ok convention so callers can treat unknown names as config
// errors with their own message.
func SpecByName(name string) (LayerSpec, bool) {
	for _, spec := range Catalog() {
		if spec.Name == name {
			return spec, true
		}
	}
	return LayerSpec{}, false
}

// twinCitiesGeoJSON carries approximate boundary boxes for the Twin
// Cities metro, generated once rather than fetched — no public dataset
// serves these at a useful size.
var twinCitiesGeoJSON = []byte(`{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "properties": {"name": "Minneapolis"}, "geometry": {"type": "Polygon", "coordinates": [[
      [-93.329, 44.901], [-93.329, 45.051], [-93.193, 45.051], [-93.193, 44.901], [-93.329, 44.901]]]}},
    {"type": "Feature", "properties": {"name": "Saint Paul"}, "geometry": {"type": "Polygon", "coordinates": [[
      [-93.193, 44.901], [-93.193, 44.975], [-93.063, 44.975], [-93.063, 44.901], [-93.193, 44.901]]]}},
    {"type": "Feature", "properties": {"name": "Bloomington"}, "geometry": {"type": "Polygon", "coordinates": [[
      [-93.329, 44.831], [-93.329, 44.901], [-93.230, 44.901], [-93.230, 44.831], [-93.329, 44.831]]]}},
    {"type": "Feature", "properties": {"name": "Plymouth"}, "geometry": {"type": "Polygon", "coordinates": [[
      [-93.455, 44.975], [-93.455, 45.051], [-93.329, 45.051], [-93.329, 44.975], [-93.455, 44.975]]]}}
  ]
}`)

// landmarksGeoJSON is the built-in point-of-interest marker set.  Each
// marker can be toggled individually through the render configuration's
// markers map, keyed by these names.
var landmarksGeoJSON = []byte(`{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "properties": {"name": "Minnehaha Falls"}, "geometry": {"type": "Point", "coordinates": [-93.2110, 44.9153]}},
    {"type": "Feature", "properties": {"name": "Lake Harriet"}, "geometry": {"type": "Point", "coordinates": [-93.3072, 44.9217]}},
    {"type": "Feature", "properties": {"name": "Como Park"}, "geometry": {"type": "Point", "coordinates": [-93.1450, 44.9817]}},
    {"type": "Feature", "properties": {"name": "Fort Snelling"}, "geometry": {"type": "Point", "coordinates": [-93.1808, 44.8928]}},
    {"type": "Feature", "properties": {"name": "Stone Arch Bridge"}, "geometry": {"type": "Point", "coordinates": [-93.2536, 44.9809]}}
  ]
}`)

// BuiltinMarkerNames lists every marker name the built-in catalog knows,
// for validating configuration at load time instead of silently
// accepting typos.
func BuiltinMarkerNames() []string {
	var names []string
	for _, spec := range Catalog() {
		if spec.Tier != TierMarker || spec.Builtin == nil {
			continue
		}
		layer, err := ParseGeoJSON(spec, spec.Builtin)
		if err != nil {
			continue
		}
		names = append(names, layer.MarkerNames()...)
	}
	return names
}
