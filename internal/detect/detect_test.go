package detect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/geograb/internal/registry"
	"github.com/sells-group/geograb/internal/safety"
)

func testRegistry() *registry.Registry {
	return &registry.Registry{
		Services: map[string]registry.Service{
			"richland_parcels": {Name: "Richland Parcels", URL: "https://r/parcels"},
			"lex_parcels":      {Name: "Lexington Parcels", URL: "https://l/parcels"},
		},
		Regions: map[string]registry.Region{
			"richland": {
				Name:     "Richland County, SC",
				BBox:     [4]float64{-81.4, 33.8, -80.6, 34.3},
				Services: []string{"richland_parcels"},
			},
			"lexington": {
				Name:     "Lexington County, SC",
				BBox:     [4]float64{-81.9, 33.7, -81.1, 34.2},
				Services: []string{"lex_parcels"},
			},
			"charleston": {
				Name: "Charleston County, SC",
				BBox: [4]float64{-80.4, 32.5, -79.5, 33.1},
			},
		},
	}
}

func TestRegions_RanksByOverlap(t *testing.T) {
	// An extent inside Richland that barely clips Lexington.
	extent := safety.Extent{XMin: -81.2, YMin: 33.9, XMax: -80.9, YMax: 34.1}

	matches := Regions(testRegistry(), extent)
	require.Len(t, matches, 2, "charleston has no overlap")

	assert.Equal(t, "richland", matches[0].Key)
	assert.Equal(t, "lexington", matches[1].Key)
	assert.Greater(t, matches[0].Score, matches[1].Score)

	require.Len(t, matches[0].Services, 1)
	assert.Equal(t, "https://r/parcels", matches[0].Services[0].URL)
}

func TestRegions_NoOverlap(t *testing.T) {
	extent := safety.Extent{XMin: 10, YMin: 10, XMax: 11, YMax: 11}
	assert.Empty(t, Regions(testRegistry(), extent))
}

func TestRegions_TieBreaksOnKey(t *testing.T) {
	reg := &registry.Registry{
		Services: map[string]registry.Service{},
		Regions: map[string]registry.Region{
			"b": {BBox: [4]float64{0, 0, 1, 1}},
			"a": {BBox: [4]float64{0, 0, 1, 1}},
		},
	}
	matches := Regions(reg, safety.Extent{XMin: 0, YMin: 0, XMax: 1, YMax: 1})

	require.Len(t, matches, 2)
	assert.Equal(t, "a", matches[0].Key)
	assert.InDelta(t, 1.0, matches[0].Score, 1e-9)
}

func TestOverlapScore(t *testing.T) {
	// Identical rectangles score 1.
	e := safety.Extent{XMin: 0, YMin: 0, XMax: 2, YMax: 2}
	assert.InDelta(t, 1.0, overlapScore(e, [4]float64{0, 0, 2, 2}), 1e-9)

	// Half-overlapping unit squares: intersection 0.5, union 1.5.
	e = safety.Extent{XMin: 0, YMin: 0, XMax: 1, YMax: 1}
	assert.InDelta(t, 1.0/3.0, overlapScore(e, [4]float64{0.5, 0, 1.5, 1}), 1e-9)

	// Touching edges do not count as overlap.
	assert.Zero(t, overlapScore(e, [4]float64{1, 0, 2, 1}))
}
