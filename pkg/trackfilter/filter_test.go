package trackfilter

import (
	"testing"

	"activity-heatmap/pkg/dataset"
	"activity-heatmap/pkg/geomath"
	"activity-heatmap/pkg/regions"
)

func collection(tracks ...dataset.Track) dataset.Collection {
	return dataset.Collection{Tracks: tracks}
}

// TestByRegionRadius replays the catalog example: within 100 km of Saint
// Paul, a Duluth-only track (~204 km out) is excluded while a track
// touching Minneapolis (~15 km) is kept — with all of its points, even
// the ones outside the radius.
func TestByRegionRadius(t *testing.T) {
	region, err := regions.Resolve("twin-cities")
	if err != nil {
		t.Fatal(err)
	}

	duluth := dataset.Track{ID: "d", Points: []geomath.Point{{Lat: 46.7867, Lon: -92.1005}}}
	metro := dataset.Track{ID: "m", Points: []geomath.Point{
		{Lat: 46.7867, Lon: -92.1005}, // out of radius
		{Lat: 44.9778, Lon: -93.2650}, // Minneapolis
	}}

	got := ByRegion(collection(duluth, metro), region)
	if len(got.Tracks) != 1 || got.Tracks[0].ID != "m" {
		t.Fatalf("kept %+v, want only track m", got.Tracks)
	}
	if len(got.Tracks[0].Points) != 2 {
		t.Errorf("retained track lost points: %d, want 2 (no point-level trimming)", len(got.Tracks[0].Points))
	}
}

// TestByRegionBox checks box filtering with inclusive edges.
func TestByRegionBox(t *testing.T) {
	region, err := regions.Resolve("minnesota")
	if err != nil {
		t.Fatal(err)
	}
	onEdge := dataset.Track{ID: "edge", Points: []geomath.Point{{Lat: 43.5, Lon: -97.2}}}
	outside := dataset.Track{ID: "out", Points: []geomath.Point{{Lat: 35.0, Lon: 139.0}}}

	got := ByRegion(collection(onEdge, outside), region)
	if len(got.Tracks) != 1 || got.Tracks[0].ID != "edge" {
		t.Fatalf("kept %+v, want only the edge track", got.Tracks)
	}
}

// TestByRegionAllIsIdentity ensures the universal region returns the
// very same collection, empty and degenerate tracks included.
func TestByRegionAllIsIdentity(t *testing.T) {
	region, err := regions.Resolve("all")
	if err != nil {
		t.Fatal(err)
	}
	in := collection(
		dataset.Track{ID: "empty"},
		dataset.Track{ID: "single", Points: []geomath.Point{{Lat: 1, Lon: 1}}},
	)
	got := ByRegion(in, region)
	if len(got.Tracks) != len(in.Tracks) {
		t.Fatalf("identity broken: %d tracks, want %d", len(got.Tracks), len(in.Tracks))
	}
	if &got.Tracks[0] != &in.Tracks[0] {
		t.Error("all region should not copy the collection")
	}
}

// TestClipToBounds splits a track at the box edge instead of joining
// the survivors with a false straight line: a metro loop with a Tokyo
// excursion in the middle comes back as two runs, and a track entirely
// outside vanishes.
func TestClipToBounds(t *testing.T) {
	box := geomath.Bounds{MinLat: 44, MaxLat: 46, MinLon: -94, MaxLon: -92}
	wandering := dataset.Track{ID: "w", Category: "Ride", Points: []geomath.Point{
		{Lat: 44.95, Lon: -93.09},
		{Lat: 44.96, Lon: -93.10},
		{Lat: 35.68, Lon: 139.65}, // out of the box
		{Lat: 44.97, Lon: -93.11},
	}}
	away := dataset.Track{ID: "a", Points: []geomath.Point{{Lat: 35.0, Lon: 139.0}}}

	got := ClipToBounds(collection(wandering, away), box)
	if len(got.Tracks) != 2 {
		t.Fatalf("runs = %d, want 2", len(got.Tracks))
	}
	if got.Tracks[0].ID != "w" || got.Tracks[1].ID != "w" {
		t.Errorf("runs lost their identity: %+v", got.Tracks)
	}
	if got.Tracks[0].Category != "Ride" {
		t.Errorf("runs lost their category: %+v", got.Tracks[0])
	}
	if len(got.Tracks[0].Points) != 2 || len(got.Tracks[1].Points) != 1 {
		t.Errorf("run lengths = %d and %d, want 2 and 1",
			len(got.Tracks[0].Points), len(got.Tracks[1].Points))
	}
}

// TestClipToBoundsKeepsProjectionDomain: after clipping to a zoned
// region's effective bounds, every surviving point projects without a
// domain error, for both render modes to rely on.
func TestClipToBoundsKeepsProjectionDomain(t *testing.T) {
	region, err := regions.Resolve("twin-cities")
	if err != nil {
		t.Fatal(err)
	}
	box := regions.EffectiveBounds(region)
	proj := regions.ProjectionFor(region, geomath.Bounds{})

	in := collection(dataset.Track{ID: "t", Points: []geomath.Point{
		{Lat: 44.95, Lon: -93.09},
		{Lat: 35.68, Lon: 139.65}, // far out of zone, kept by any-point retention
		{Lat: 44.96, Lon: -93.10},
	}})
	for _, track := range ClipToBounds(in, box).Tracks {
		for _, p := range track.Points {
			if _, err := proj.Project(p); err != nil {
				t.Fatalf("clipped point %+v still out of domain: %v", p, err)
			}
		}
	}
}

// TestByRegionCanEmpty confirms that filtering everything away is a
// valid, non-error outcome.
func TestByRegionCanEmpty(t *testing.T) {
	region, err := regions.Resolve("tokyo")
	if err != nil {
		t.Fatal(err)
	}
	got := ByRegion(collection(
		dataset.Track{ID: "mn", Points: []geomath.Point{{Lat: 44.95, Lon: -93.09}}},
	), region)
	if len(got.Tracks) != 0 {
		t.Fatalf("kept %+v, want none", got.Tracks)
	}
}
