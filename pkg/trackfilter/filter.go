// Package trackfilter reduces a track collection to the subset relevant
// to a selected region.  Filtering is track-granular: one in-region point
// keeps the whole track, and retained tracks keep every point so path
// continuity survives into rasterization (a route that dips out of the
// region box still draws as one unbroken line).
package trackfilter

import (
	"activity-heatmap/pkg/dataset"
	"activity-heatmap/pkg/geomath"
	"activity-heatmap/pkg/regions"
)

// ByRegion returns the tracks with at least one point satisfying the
// region predicate.  The universal region returns the input collection
// untouched, preserving the identity guarantee without an allocation.
// Degenerate tracks (zero or one point) pass through like any other —
// they simply contribute no segments downstream.
func ByRegion(c dataset.Collection, r regions.Region) dataset.Collection {
	if r.Kind == regions.KindAll {
		return c
	}

	kept := make([]dataset.Track, 0, len(c.Tracks))
	for _, track := range c.Tracks {
		if anyInRegion(track, r) {
			kept = append(kept, track)
		}
	}
	return dataset.Collection{Tracks: kept, DroppedPoints: c.DroppedPoints}
}

// ClipToBounds splits every track into runs of consecutive points
// inside the box, dropping the points outside.  Zoned and conic renders
// apply this before projection: retention is any-point, so a kept track
// may wander far outside the render box — beyond a zoned projection's
// validity band — and those excursions are outside the visible frame
// anyway.  Splitting at the box edge instead of skipping points keeps
// the re-entry from drawing as a false straight line across the map.
// Runs carry the source track's identity; a single surviving point
// still renders as a dot downstream.
func ClipToBounds(c dataset.Collection, box geomath.Bounds) dataset.Collection {
	out := dataset.Collection{DroppedPoints: c.DroppedPoints}
	for _, track := range c.Tracks {
		var run []geomath.Point
		flush := func() {
			if len(run) > 0 {
				out.Tracks = append(out.Tracks, dataset.Track{
					ID:       track.ID,
					Category: track.Category,
					Points:   run,
				})
				run = nil
			}
		}
		for _, p := range track.Points {
			if box.Contains(p) {
				run = append(run, p)
				continue
			}
			flush()
		}
		flush()
	}
	return out
}

// anyInRegion scans for the first matching point.  Early exit matters:
// region renders of a large archive reject most tracks on their first
// few points.
func anyInRegion(t dataset.Track, r regions.Region) bool {
	for _, p := range t.Points {
		if r.Contains(p) {
			return true
		}
	}
	return false
}
