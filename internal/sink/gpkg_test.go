package sink

import (
	"context"
	"database/sql"
	"encoding/binary"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkb"

	"github.com/sells-group/geograb/internal/convert"
)

func pointSet(name string) *convert.FeatureSet {
	return &convert.FeatureSet{
		Name:         name,
		SRID:         4326,
		GeometryType: "esriGeometryPoint",
		Fields: []convert.FieldDef{
			{Name: "OBJECTID", Type: convert.FieldInteger},
			{Name: "NAME", Type: convert.FieldText, Length: 64},
			{Name: "ACRES", Type: convert.FieldReal},
		},
		Records: []convert.Record{
			{
				Geometry:   geom.NewPointFlat(geom.XY, []float64{-81.03, 34.0}).SetSRID(4326),
				Attributes: map[string]any{"OBJECTID": int64(1), "NAME": "north", "ACRES": 2.5},
			},
			{
				Geometry:   geom.NewPointFlat(geom.XY, []float64{-81.01, 33.98}).SetSRID(4326),
				Attributes: map[string]any{"OBJECTID": int64(2), "NAME": "south", "ACRES": nil},
			},
		},
	}
}

func TestGeoPackage_WriteAndReadBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.gpkg")
	g := &GeoPackage{Path: path}

	require.NoError(t, g.Write(context.Background(), pointSet("Hydrants")))

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close() //nolint:errcheck

	var dataType, geomType string
	var srs int
	require.NoError(t, db.QueryRow(
		`SELECT data_type, srs_id FROM gpkg_contents WHERE table_name = 'Hydrants'`,
	).Scan(&dataType, &srs))
	assert.Equal(t, "features", dataType)
	assert.Equal(t, 4326, srs)

	require.NoError(t, db.QueryRow(
		`SELECT geometry_type_name FROM gpkg_geometry_columns WHERE table_name = 'Hydrants'`,
	).Scan(&geomType))
	assert.Equal(t, "POINT", geomType)

	rows, err := db.Query(`SELECT "OBJECTID", "NAME", "ACRES", geom FROM "Hydrants" ORDER BY fid`)
	require.NoError(t, err)
	defer rows.Close() //nolint:errcheck

	var got []struct {
		oid   int64
		name  string
		acres sql.NullFloat64
		blob  []byte
	}
	for rows.Next() {
		var r struct {
			oid   int64
			name  string
			acres sql.NullFloat64
			blob  []byte
		}
		require.NoError(t, rows.Scan(&r.oid, &r.name, &r.acres, &r.blob))
		got = append(got, r)
	}
	require.NoError(t, rows.Err())
	require.Len(t, got, 2)

	assert.Equal(t, int64(1), got[0].oid)
	assert.Equal(t, "north", got[0].name)
	assert.True(t, got[0].acres.Valid)
	assert.False(t, got[1].acres.Valid, "nil attribute stays NULL")

	// Blob layout: GP magic, version 0, flags 0x01, LE srid, then WKB.
	blob := got[0].blob
	require.Greater(t, len(blob), 8)
	assert.Equal(t, byte('G'), blob[0])
	assert.Equal(t, byte('P'), blob[1])
	assert.Equal(t, byte(0x00), blob[2])
	assert.Equal(t, byte(0x01), blob[3])
	assert.Equal(t, int32(4326), int32(binary.LittleEndian.Uint32(blob[4:8])))

	decoded, err := wkb.Unmarshal(blob[8:])
	require.NoError(t, err)
	pt, ok := decoded.(*geom.Point)
	require.True(t, ok)
	assert.Equal(t, []float64{-81.03, 34.0}, pt.FlatCoords())
}

func TestGeoPackage_ReplacesSameNamedLayer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.gpkg")
	g := &GeoPackage{Path: path}

	require.NoError(t, g.Write(context.Background(), pointSet("Hydrants")))

	smaller := pointSet("Hydrants")
	smaller.Records = smaller.Records[:1]
	require.NoError(t, g.Write(context.Background(), smaller))

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close() //nolint:errcheck

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM "Hydrants"`).Scan(&n))
	assert.Equal(t, 1, n)

	require.NoError(t, db.QueryRow(
		`SELECT COUNT(*) FROM gpkg_contents WHERE table_name = 'Hydrants'`,
	).Scan(&n))
	assert.Equal(t, 1, n, "replacement must not duplicate metadata rows")
}

func TestGeoPackage_PreservesOtherLayers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.gpkg")
	g := &GeoPackage{Path: path}

	require.NoError(t, g.Write(context.Background(), pointSet("Hydrants")))
	require.NoError(t, g.Write(context.Background(), pointSet("Valves")))

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close() //nolint:errcheck

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM gpkg_contents`).Scan(&n))
	assert.Equal(t, 2, n)

	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM "Hydrants"`).Scan(&n))
	assert.Equal(t, 2, n)
}

func TestGeoPackage_LayerNameOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.gpkg")
	g := &GeoPackage{Path: path, LayerName: "Water Hydrants (2026)"}

	require.NoError(t, g.Write(context.Background(), pointSet("ignored")))

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close() //nolint:errcheck

	var table string
	require.NoError(t, db.QueryRow(`SELECT table_name FROM gpkg_contents`).Scan(&table))
	assert.Equal(t, "Water_Hydrants_2026", table)
}

func TestSanitizeIdentifier(t *testing.T) {
	assert.Equal(t, "Parcels_2026", sanitizeIdentifier("Parcels 2026"))
	assert.Equal(t, "a_b_c", sanitizeIdentifier("a/b:c"))
	assert.Equal(t, "layer", sanitizeIdentifier("  layer  "))
	assert.Equal(t, "", sanitizeIdentifier("!!!"))
}

func TestGeometryTypeName(t *testing.T) {
	assert.Equal(t, "MULTIPOLYGON", geometryTypeName("esriGeometryPolygon"))
	assert.Equal(t, "MULTILINESTRING", geometryTypeName("esriGeometryPolyline"))
	assert.Equal(t, "GEOMETRY", geometryTypeName("esriGeometryEnvelope"))
}
