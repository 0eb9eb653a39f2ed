package boundaries

import (
	"fmt"

	"activity-heatmap/pkg/geomath"
	"activity-heatmap/pkg/regions"
)

// Plan selects and orders the layers one render will draw.  Inputs are
// the selected region (for the superseded-layer policy), the render
// bounds (for ActiveWithin gating), and the enabled layer names from
// configuration, which also fix the draw order.
//
// Two rules prune the enabled set:
//   - the region's policy table: a finer layer enabled for this region
//     supersedes a coarser one (e.g. us_states replaces world), dropping
//     duplicate line work;
//   - ActiveWithin: a layer confined to a part of the world stays out of
//     renders whose bounds never touch it, so a Tokyo render does not
//     fetch US states.
//
// An enabled name missing from the catalog is a configuration error.
func Plan(region regions.Region, renderBounds geomath.Bounds, enabled []string) ([]LayerSpec, error) {
	suppressed := make(map[string]bool)
	for _, name := range regions.SupersededLayers(region.Name) {
		suppressed[name] = true
	}

	var specs []LayerSpec
	for _, name := range enabled {
		spec, ok := SpecByName(name)
		if !ok {
			return nil, fmt.Errorf("unknown boundary layer %q in configuration", name)
		}
		if suppressed[name] && anyFinerEnabled(spec, enabled, renderBounds) {
			continue
		}
		if spec.ActiveWithin != nil && !renderBounds.IsEmpty() && !spec.ActiveWithin.Intersects(renderBounds) {
			continue
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

// anyFinerEnabled reports whether some other enabled layer actually
// replaces the suppressed one.  The policy only skips a coarse layer
// when a finer enabled layer will draw in its place — suppressing world
// while nothing else is enabled would leave the map bare.  A finer
// layer the geographic gate will drop anyway does not count: enabling
// japan_prefectures for a Minnesota render must not blank the world
// outline.
func anyFinerEnabled(coarse LayerSpec, enabled []string, renderBounds geomath.Bounds) bool {
	for _, name := range enabled {
		if name == coarse.Name {
			continue
		}
		other, ok := SpecByName(name)
		if !ok {
			continue
		}
		if other.ActiveWithin != nil && !renderBounds.IsEmpty() && !other.ActiveWithin.Intersects(renderBounds) {
			continue
		}
		if other.Tier == TierSubdivision || other.Tier == TierCity {
			return true
		}
	}
	return false
}
