// Package detect matches a working extent against the registry's
// known regions so the right services can be suggested without the
// user browsing directories.
package detect

import (
	"math"
	"sort"

	"github.com/sells-group/geograb/internal/registry"
	"github.com/sells-group/geograb/internal/safety"
)

// Match is one region candidate, strongest first.
type Match struct {
	Key      string
	Region   registry.Region
	Score    float64 // intersection area over union area, 0..1
	Services []registry.Service
}

// Regions ranks the registry's regions by overlap with the extent.
// Regions with no overlap are omitted.
func Regions(reg *registry.Registry, extent safety.Extent) []Match {
	var matches []Match
	for key, region := range reg.Regions {
		score := overlapScore(extent, region.BBox)
		if score <= 0 {
			continue
		}
		matches = append(matches, Match{
			Key:      key,
			Region:   region,
			Score:    score,
			Services: reg.RegionServices(key),
		})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].Key < matches[j].Key
	})
	return matches
}

// overlapScore is intersection-over-union of two WGS84 rectangles.
func overlapScore(e safety.Extent, bbox [4]float64) float64 {
	ixmin := math.Max(e.XMin, bbox[0])
	iymin := math.Max(e.YMin, bbox[1])
	ixmax := math.Min(e.XMax, bbox[2])
	iymax := math.Min(e.YMax, bbox[3])

	if ixmin >= ixmax || iymin >= iymax {
		return 0
	}

	intersection := (ixmax - ixmin) * (iymax - iymin)
	extentArea := (e.XMax - e.XMin) * (e.YMax - e.YMin)
	regionArea := (bbox[2] - bbox[0]) * (bbox[3] - bbox[1])
	union := extentArea + regionArea - intersection
	if union <= 0 {
		return 0
	}
	return intersection / union
}
