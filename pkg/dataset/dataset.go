// Package dataset loads the consolidated GPS dataset the renderer
// consumes: a JSON mapping from activity identifier to an ordered list of
// [latitude, longitude] pairs.  Loading is deliberately lenient — a
// malformed point is dropped, not fatal — because a multi-year activity
// archive almost always contains a few bad fixes and one of them should
// never kill a render.
package dataset

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"activity-heatmap/pkg/geomath"
)

// Track is one activity's ordered point sequence.  Category is carried
// for upstream filtering of indoor activities; the renderer itself only
// reads Points.  Tracks are never mutated after loading.
type Track struct {
	ID       string
	Category string
	Points   []geomath.Point
}

// Collection is the in-memory dataset for one render.
type Collection struct {
	Tracks []Track

	// DroppedPoints counts coordinates rejected during load, surfaced
	// in progress output so silently shrinking data stays visible.
	DroppedPoints int
}

// Summary aggregates the figures the progress reporter prints before a
// render starts.
type Summary struct {
	Activities  int
	TotalPoints int
	Bounds      geomath.Bounds
}

// LoadFile reads a consolidated GPS JSON file.  The format is the flat
// contract produced by the consolidation step: {"12345": [[lat,lon],...]}.
func LoadFile(path string) (Collection, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Collection{}, fmt.Errorf("read gps data: %w", err)
	}
	var decoded map[string][][]float64
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return Collection{}, fmt.Errorf("parse gps data %s: %w", path, err)
	}
	return FromRaw(decoded), nil
}

// FromRaw converts the decoded JSON mapping into a Collection, dropping
// malformed points along the way.  A track that loses points still
// renders with whatever remains; even a single surviving point is kept so
// it can show up as a dot.  Tracks are sorted by identifier so renders
// are reproducible regardless of map iteration order.
func FromRaw(raw map[string][][]float64) Collection {
	var c Collection
	c.Tracks = make([]Track, 0, len(raw))
	for id, pairs := range raw {
		points := make([]geomath.Point, 0, len(pairs))
		for _, pair := range pairs {
			if len(pair) != 2 {
				c.DroppedPoints++
				continue
			}
			p := geomath.Point{Lat: pair[0], Lon: pair[1]}
			if !p.Valid() {
				c.DroppedPoints++
				continue
			}
			points = append(points, p)
		}
		c.Tracks = append(c.Tracks, Track{ID: id, Points: points})
	}
	sort.Slice(c.Tracks, func(i, j int) bool { return c.Tracks[i].ID < c.Tracks[j].ID })
	return c
}

// Summarize walks the collection once and returns its headline figures.
// An empty collection yields an empty bounds box, which downstream code
// treats as "nothing to render" rather than an error.
func (c Collection) Summarize() Summary {
	s := Summary{Activities: len(c.Tracks)}
	for _, t := range c.Tracks {
		s.TotalPoints += len(t.Points)
		for _, p := range t.Points {
			s.Bounds = s.Bounds.Extend(p)
		}
	}
	return s
}

// Bounds returns the dataset's geographic bounding box.
func (c Collection) Bounds() geomath.Bounds {
	return c.Summarize().Bounds
}
