package convert

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/geograb/pkg/arcgis"
)

func f(v float64) *float64 { return &v }

func TestGeometry_Point(t *testing.T) {
	g, err := Geometry("esriGeometryPoint", &arcgis.Geometry{X: f(-104.9), Y: f(39.7)}, 4326)
	require.NoError(t, err)

	pt, ok := g.(*geom.Point)
	require.True(t, ok)
	assert.Equal(t, []float64{-104.9, 39.7}, pt.FlatCoords())
	assert.Equal(t, 4326, pt.SRID())
}

func TestGeometry_NilPayloadSkips(t *testing.T) {
	g, err := Geometry("esriGeometryPoint", nil, 4326)
	require.NoError(t, err)
	assert.Nil(t, g)

	// A point with missing coordinates is treated the same way.
	g, err = Geometry("esriGeometryPoint", &arcgis.Geometry{}, 4326)
	require.NoError(t, err)
	assert.Nil(t, g)
}

func TestGeometry_Multipoint(t *testing.T) {
	g, err := Geometry("esriGeometryMultipoint", &arcgis.Geometry{
		Points: [][]float64{{1, 2}, {3, 4}},
	}, 3857)
	require.NoError(t, err)

	mp, ok := g.(*geom.MultiPoint)
	require.True(t, ok)
	assert.Equal(t, 2, mp.NumPoints())
	assert.Equal(t, []float64{1, 2, 3, 4}, mp.FlatCoords())
}

func TestGeometry_PolylinePaths(t *testing.T) {
	g, err := Geometry("esriGeometryPolyline", &arcgis.Geometry{
		Paths: [][][]float64{
			{{0, 0}, {1, 1}, {2, 0}},
			{{5, 5}, {6, 6}},
		},
	}, 4326)
	require.NoError(t, err)

	mls, ok := g.(*geom.MultiLineString)
	require.True(t, ok)
	require.Equal(t, 2, mls.NumLineStrings())
	assert.Equal(t, 3, mls.LineString(0).NumCoords())
	assert.Equal(t, 2, mls.LineString(1).NumCoords())
}

func TestGeometry_PolygonVertexCountRoundTrip(t *testing.T) {
	// A closed ring of K vertices must survive conversion with
	// exactly K vertices.
	ring := [][]float64{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}}

	g, err := Geometry("esriGeometryPolygon", &arcgis.Geometry{
		Rings: [][][]float64{ring},
	}, 4326)
	require.NoError(t, err)

	mp, ok := g.(*geom.MultiPolygon)
	require.True(t, ok)
	require.Equal(t, 1, mp.NumPolygons())

	shell := mp.Polygon(0).LinearRing(0)
	assert.Equal(t, len(ring), shell.NumCoords())
	assert.Equal(t, geom.Coord{0, 0}, shell.Coord(0))
}

func TestGeometry_PolygonClosesOpenRing(t *testing.T) {
	g, err := Geometry("esriGeometryPolygon", &arcgis.Geometry{
		Rings: [][][]float64{{{0, 0}, {4, 0}, {4, 4}, {0, 4}}},
	}, 4326)
	require.NoError(t, err)

	mp := g.(*geom.MultiPolygon)
	shell := mp.Polygon(0).LinearRing(0)
	require.Equal(t, 5, shell.NumCoords())
	assert.Equal(t, shell.Coord(0), shell.Coord(4))
}

func TestGeometry_PolygonRingsBecomeSeparatePolygons(t *testing.T) {
	// Interior rings are not classified here; each ring stands alone
	// and winding is carried through untouched.
	outer := [][]float64{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}}
	hole := [][]float64{{2, 2}, {2, 4}, {4, 4}, {4, 2}, {2, 2}}

	g, err := Geometry("esriGeometryPolygon", &arcgis.Geometry{
		Rings: [][][]float64{outer, hole},
	}, 4326)
	require.NoError(t, err)

	mp := g.(*geom.MultiPolygon)
	assert.Equal(t, 2, mp.NumPolygons())
}

func TestGeometry_EmptyCoordinateSets(t *testing.T) {
	for _, tc := range []struct {
		esriType string
		geom     *arcgis.Geometry
	}{
		{"esriGeometryMultipoint", &arcgis.Geometry{}},
		{"esriGeometryPolyline", &arcgis.Geometry{}},
		{"esriGeometryPolygon", &arcgis.Geometry{}},
		{"esriGeometryPolygon", &arcgis.Geometry{Rings: [][][]float64{{{0, 0}, {1, 1}}}}},
	} {
		g, err := Geometry(tc.esriType, tc.geom, 4326)
		require.NoError(t, err)
		assert.Nil(t, g, tc.esriType)
	}
}

func TestGeometry_UnsupportedType(t *testing.T) {
	_, err := Geometry("esriGeometryEnvelope", &arcgis.Geometry{}, 4326)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported geometry type")
}
