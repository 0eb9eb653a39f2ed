package boundaries

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"activity-heatmap/pkg/geomath"
	"activity-heatmap/pkg/regions"
)

// fakeFetcher serves canned payloads and counts calls, standing in for
// the network in store tests.
type fakeFetcher struct {
	payloads map[string][]byte
	err      error
	calls    int
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) ([]byte, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	data, ok := f.payloads[url]
	if !ok {
		return nil, errors.New("no such url")
	}
	return data, nil
}

const sampleGeoJSON = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "properties": {"name": "Alpha"}, "geometry": {"type": "LineString", "coordinates": [[-93.0, 44.0], [-93.1, 44.5]]}},
    {"type": "Feature", "properties": {"name": "Broken"}, "geometry": {"type": "LineString", "coordinates": "garbage"}},
    {"type": "Feature", "properties": {"name": "Islands"}, "geometry": {"type": "MultiPolygon", "coordinates": [[[[139.0, 35.0], [139.5, 35.0], [139.5, 35.5], [139.0, 35.0]]]]}},
    {"type": "Feature", "properties": {"name": "Depot"}, "geometry": {"type": "Point", "coordinates": [-93.09, 44.95]}}
  ]
}`

// TestParseGeoJSONLenient ensures malformed features are skipped and
// counted while the rest of the file parses, and that lon,lat order is
// swapped into lat,lon exactly once.
func TestParseGeoJSONLenient(t *testing.T) {
	layer, err := ParseGeoJSON(LayerSpec{Name: "sample"}, []byte(sampleGeoJSON))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(layer.Features) != 3 {
		t.Fatalf("features = %d, want 3", len(layer.Features))
	}
	if layer.SkippedFeatures != 1 {
		t.Errorf("skipped = %d, want 1", layer.SkippedFeatures)
	}

	alpha := layer.Features[0]
	if alpha.Name != "Alpha" || len(alpha.Paths) != 1 {
		t.Fatalf("alpha = %+v, want one path named Alpha", alpha)
	}
	if p := alpha.Paths[0][0]; p.Lat != 44.0 || p.Lon != -93.0 {
		t.Errorf("coordinate order: got %+v, want lat 44 lon -93", p)
	}

	depot := layer.Features[2]
	if len(depot.Markers) != 1 || depot.Markers[0].Lat != 44.95 {
		t.Errorf("depot = %+v, want one marker at lat 44.95", depot)
	}

	if _, err := ParseGeoJSON(LayerSpec{Name: "bad"}, []byte("not json")); err == nil {
		t.Error("a broken envelope must error")
	}
}

// TestFilterToBounds checks the rectangle-overlap approximation: a Japan
// polygon drops from a Minnesota box, edge overlap is inclusive, and a
// fully filtered layer survives with zero features.
func TestFilterToBounds(t *testing.T) {
	layer, err := ParseGeoJSON(LayerSpec{Name: "sample"}, []byte(sampleGeoJSON))
	if err != nil {
		t.Fatal(err)
	}

	mn := geomath.Bounds{MinLat: 43.5, MaxLat: 49.4, MinLon: -97.2, MaxLon: -89.5}
	got := FilterToBounds(layer, mn)
	if len(got.Features) != 2 {
		t.Fatalf("kept %d features, want 2 (Alpha and Depot)", len(got.Features))
	}
	for _, f := range got.Features {
		if f.Name == "Islands" {
			t.Error("Japan geometry must not survive a Minnesota filter")
		}
	}

	nowhere := geomath.Bounds{MinLat: -60, MaxLat: -50, MinLon: 0, MaxLon: 10}
	if empty := FilterToBounds(layer, nowhere); len(empty.Features) != 0 {
		t.Errorf("kept %d features, want 0", len(empty.Features))
	}

	// Original layer untouched.
	if len(layer.Features) != 3 {
		t.Error("filtering must not mutate the source layer")
	}
}

// TestStoreCacheLifecycle covers the fetch-once contract: the first load
// fetches and writes the cache, later loads read the file, and refresh
// forces a refetch.
func TestStoreCacheLifecycle(t *testing.T) {
	dir := t.TempDir()
	spec := LayerSpec{Name: "sample", SourceURL: "https://example.test/sample.geojson"}
	fetcher := &fakeFetcher{payloads: map[string][]byte{spec.SourceURL: []byte(sampleGeoJSON)}}
	store := &Store{CacheDir: dir, Fetcher: fetcher}

	ctx := context.Background()
	if _, err := store.Load(ctx, spec, false); err != nil {
		t.Fatalf("first load: %v", err)
	}
	if fetcher.calls != 1 {
		t.Fatalf("fetch calls = %d, want 1", fetcher.calls)
	}
	if _, err := os.Stat(filepath.Join(dir, "sample.geojson")); err != nil {
		t.Fatalf("cache file not written: %v", err)
	}

	if _, err := store.Load(ctx, spec, false); err != nil {
		t.Fatalf("cached load: %v", err)
	}
	if fetcher.calls != 1 {
		t.Errorf("cached load fetched again: calls = %d", fetcher.calls)
	}

	if _, err := store.Load(ctx, spec, true); err != nil {
		t.Fatalf("refresh load: %v", err)
	}
	if fetcher.calls != 2 {
		t.Errorf("refresh did not refetch: calls = %d", fetcher.calls)
	}
}

// TestStoreBuiltinLayer ensures built-in layers materialize without any
// fetcher and still populate the cache.
func TestStoreBuiltinLayer(t *testing.T) {
	dir := t.TempDir()
	store := &Store{CacheDir: dir}
	spec, ok := SpecByName("landmarks")
	if !ok {
		t.Fatal("landmarks missing from catalog")
	}
	layer, err := store.Load(context.Background(), spec, false)
	if err != nil {
		t.Fatalf("load builtin: %v", err)
	}
	if len(layer.Features) == 0 {
		t.Fatal("builtin landmarks empty")
	}
	if _, err := os.Stat(filepath.Join(dir, "landmarks.geojson")); err != nil {
		t.Errorf("builtin layer not cached: %v", err)
	}
}

// TestComposeDegradation: an optional layer failure is omitted, a
// required one aborts with the sentinel.
func TestComposeDegradation(t *testing.T) {
	dir := t.TempDir()
	fetcher := &fakeFetcher{err: errors.New("network down")}
	store := &Store{CacheDir: dir, Fetcher: fetcher}
	bounds := geomath.Bounds{MinLat: 40, MaxLat: 50, MinLon: -100, MaxLon: -80}

	optional := LayerSpec{Name: "opt", SourceURL: "https://example.test/opt"}
	layers, err := store.Compose(context.Background(), []LayerSpec{optional}, bounds, false)
	if err != nil {
		t.Fatalf("optional failure must not abort: %v", err)
	}
	if len(layers) != 0 {
		t.Errorf("layers = %d, want 0 after omission", len(layers))
	}

	required := LayerSpec{Name: "req", SourceURL: "https://example.test/req", Required: true}
	_, err = store.Compose(context.Background(), []LayerSpec{required}, bounds, false)
	if !errors.Is(err, ErrRequiredLayer) {
		t.Fatalf("err = %v, want ErrRequiredLayer", err)
	}
}

// TestPlanPolicy verifies the data-driven layer policy: us_states
// supersedes world for Minnesota renders, world stays when nothing finer
// is enabled, geographic gating drops out-of-extent layers, and unknown
// names are configuration errors.
func TestPlanPolicy(t *testing.T) {
	mn, err := regions.Resolve("minnesota")
	if err != nil {
		t.Fatal(err)
	}
	mnBounds := regions.EffectiveBounds(mn)

	specs, err := Plan(mn, mnBounds, []string{"world", "us_states", "lakes"})
	if err != nil {
		t.Fatal(err)
	}
	names := specNames(specs)
	if len(names) != 2 || names[0] != "us_states" || names[1] != "lakes" {
		t.Errorf("plan = %v, want [us_states lakes]", names)
	}

	// With only world enabled, the policy must not strip the last layer.
	specs, err = Plan(mn, mnBounds, []string{"world"})
	if err != nil {
		t.Fatal(err)
	}
	if names := specNames(specs); len(names) != 1 || names[0] != "world" {
		t.Errorf("plan = %v, want [world]", names)
	}

	// An enabled finer layer outside the render extent does not count
	// as a replacement: world survives when the only finer layer is
	// half a planet away.
	specs, err = Plan(mn, mnBounds, []string{"world", "japan_prefectures"})
	if err != nil {
		t.Fatal(err)
	}
	if names := specNames(specs); len(names) != 1 || names[0] != "world" {
		t.Errorf("plan = %v, want [world]", names)
	}

	// Tokyo bounds exclude the US layers entirely.
	tokyo, err := regions.Resolve("tokyo")
	if err != nil {
		t.Fatal(err)
	}
	specs, err = Plan(tokyo, regions.EffectiveBounds(tokyo), []string{"world", "us_states", "japan_prefectures", "twin_cities"})
	if err != nil {
		t.Fatal(err)
	}
	if names := specNames(specs); len(names) != 1 || names[0] != "japan_prefectures" {
		t.Errorf("plan = %v, want [japan_prefectures]", names)
	}

	if _, err := Plan(mn, mnBounds, []string{"atlantis_districts"}); err == nil {
		t.Error("unknown layer name must be a configuration error")
	}
}

// TestBuiltinMarkerNames pins the marker catalog the config validator
// checks against.
func TestBuiltinMarkerNames(t *testing.T) {
	names := BuiltinMarkerNames()
	if len(names) != 5 {
		t.Fatalf("marker names = %v, want 5 entries", names)
	}
	found := false
	for _, n := range names {
		if n == "Minnehaha Falls" {
			found = true
		}
	}
	if !found {
		t.Error("expected Minnehaha Falls in the marker catalog")
	}
}

func specNames(specs []LayerSpec) []string {
	names := make([]string, 0, len(specs))
	for _, s := range specs {
		names = append(names, s.Name)
	}
	return names
}
