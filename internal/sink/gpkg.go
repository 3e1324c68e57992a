package sink

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkb"
	"go.uber.org/zap"
	_ "modernc.org/sqlite" // sqlite driver

	"github.com/sells-group/geograb/internal/convert"
)

// gpkgApplicationID is the GeoPackage magic stored in the SQLite
// header ("GPKG").
const gpkgApplicationID = 0x47504B47

// GeoPackage writes feature sets as layers of a GeoPackage file. A
// missing file is created with the required metadata tables; an
// existing file gets the layer added, and a layer with the same name
// is replaced while other layers are preserved.
type GeoPackage struct {
	Path      string
	LayerName string // defaults to the feature set name
}

// Write persists the feature set as one GeoPackage layer.
func (g *GeoPackage) Write(ctx context.Context, set *convert.FeatureSet) error {
	layer := g.LayerName
	if layer == "" {
		layer = set.Name
	}
	table := sanitizeIdentifier(layer)
	if table == "" {
		return eris.New("sink: empty layer name")
	}

	db, err := sql.Open("sqlite", g.Path)
	if err != nil {
		return eris.Wrap(err, "sink: open geopackage")
	}
	defer db.Close() //nolint:errcheck

	if err := initGeoPackage(ctx, db); err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sink: begin")
	}
	defer tx.Rollback() //nolint:errcheck

	if err := dropLayer(ctx, tx, table); err != nil {
		return err
	}
	if err := createLayer(ctx, tx, table, set); err != nil {
		return err
	}
	if err := insertRecords(ctx, tx, table, set); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return eris.Wrap(err, "sink: commit")
	}

	zap.L().Info("wrote geopackage layer",
		zap.String("component", "sink"),
		zap.String("path", g.Path),
		zap.String("layer", table),
		zap.Int("features", len(set.Records)),
	)
	return nil
}

// initGeoPackage creates the mandatory metadata tables when absent.
func initGeoPackage(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		fmt.Sprintf("PRAGMA application_id = %d", gpkgApplicationID),
		"PRAGMA user_version = 10300",
		`CREATE TABLE IF NOT EXISTS gpkg_spatial_ref_sys (
			srs_name TEXT NOT NULL,
			srs_id INTEGER NOT NULL PRIMARY KEY,
			organization TEXT NOT NULL,
			organization_coordsys_id INTEGER NOT NULL,
			definition TEXT NOT NULL,
			description TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS gpkg_contents (
			table_name TEXT NOT NULL PRIMARY KEY,
			data_type TEXT NOT NULL,
			identifier TEXT UNIQUE,
			description TEXT DEFAULT '',
			last_change DATETIME NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now')),
			min_x DOUBLE, min_y DOUBLE, max_x DOUBLE, max_y DOUBLE,
			srs_id INTEGER,
			CONSTRAINT fk_gc_r_srs_id FOREIGN KEY (srs_id) REFERENCES gpkg_spatial_ref_sys(srs_id)
		)`,
		`CREATE TABLE IF NOT EXISTS gpkg_geometry_columns (
			table_name TEXT NOT NULL,
			column_name TEXT NOT NULL,
			geometry_type_name TEXT NOT NULL,
			srs_id INTEGER NOT NULL,
			z TINYINT NOT NULL,
			m TINYINT NOT NULL,
			CONSTRAINT pk_geom_cols PRIMARY KEY (table_name, column_name)
		)`,
		// Required baseline spatial reference rows.
		`INSERT OR IGNORE INTO gpkg_spatial_ref_sys VALUES
			('Undefined cartesian SRS', -1, 'NONE', -1, 'undefined', NULL)`,
		`INSERT OR IGNORE INTO gpkg_spatial_ref_sys VALUES
			('Undefined geographic SRS', 0, 'NONE', 0, 'undefined', NULL)`,
		`INSERT OR IGNORE INTO gpkg_spatial_ref_sys VALUES
			('WGS 84 geodetic', 4326, 'EPSG', 4326,
			 'GEOGCS["WGS 84",DATUM["WGS_1984",SPHEROID["WGS 84",6378137,298.257223563]],PRIMEM["Greenwich",0],UNIT["degree",0.0174532925199433]]',
			 'longitude/latitude coordinates in decimal degrees on the WGS 84 spheroid')`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return eris.Wrap(err, "sink: init geopackage")
		}
	}
	return nil
}

func dropLayer(ctx context.Context, tx *sql.Tx, table string) error {
	for _, stmt := range []string{
		fmt.Sprintf(`DROP TABLE IF EXISTS %q`, table),
		`DELETE FROM gpkg_contents WHERE table_name = ?`,
		`DELETE FROM gpkg_geometry_columns WHERE table_name = ?`,
	} {
		var err error
		if strings.HasPrefix(stmt, "DROP") {
			_, err = tx.ExecContext(ctx, stmt)
		} else {
			_, err = tx.ExecContext(ctx, stmt, table)
		}
		if err != nil {
			return eris.Wrapf(err, "sink: drop layer %s", table)
		}
	}
	return nil
}

func createLayer(ctx context.Context, tx *sql.Tx, table string, set *convert.FeatureSet) error {
	cols := []string{"fid INTEGER PRIMARY KEY AUTOINCREMENT", "geom BLOB"}
	for _, f := range set.Fields {
		cols = append(cols, fmt.Sprintf("%q %s", sanitizeIdentifier(f.Name), sqlType(f.Type)))
	}

	create := fmt.Sprintf(`CREATE TABLE %q (%s)`, table, strings.Join(cols, ", "))
	if _, err := tx.ExecContext(ctx, create); err != nil {
		return eris.Wrapf(err, "sink: create layer %s", table)
	}

	srid := set.SRID
	if srid != 4326 {
		// Register a placeholder definition so the file stays valid;
		// full EPSG definitions are out of scope for a transfer file.
		insertSRS := `INSERT OR IGNORE INTO gpkg_spatial_ref_sys VALUES (?, ?, 'EPSG', ?, 'undefined', NULL)`
		if _, err := tx.ExecContext(ctx, insertSRS, fmt.Sprintf("EPSG:%d", srid), srid, srid); err != nil {
			return eris.Wrap(err, "sink: register srs")
		}
	}

	minX, minY, maxX, maxY := setBounds(set)
	contents := `INSERT INTO gpkg_contents
		(table_name, data_type, identifier, min_x, min_y, max_x, max_y, srs_id, last_change)
		VALUES (?, 'features', ?, ?, ?, ?, ?, ?, ?)`
	if _, err := tx.ExecContext(ctx, contents, table, table, minX, minY, maxX, maxY, srid,
		time.Now().UTC().Format("2006-01-02T15:04:05.000Z")); err != nil {
		return eris.Wrap(err, "sink: register contents")
	}

	geomCols := `INSERT INTO gpkg_geometry_columns VALUES (?, 'geom', ?, ?, 0, 0)`
	if _, err := tx.ExecContext(ctx, geomCols, table, geometryTypeName(set.GeometryType), srid); err != nil {
		return eris.Wrap(err, "sink: register geometry column")
	}

	return nil
}

func insertRecords(ctx context.Context, tx *sql.Tx, table string, set *convert.FeatureSet) error {
	colNames := make([]string, 0, len(set.Fields)+1)
	placeholders := make([]string, 0, len(set.Fields)+1)
	colNames = append(colNames, "geom")
	placeholders = append(placeholders, "?")
	for _, f := range set.Fields {
		colNames = append(colNames, fmt.Sprintf("%q", sanitizeIdentifier(f.Name)))
		placeholders = append(placeholders, "?")
	}

	insert := fmt.Sprintf(`INSERT INTO %q (%s) VALUES (%s)`,
		table, strings.Join(colNames, ", "), strings.Join(placeholders, ", "))
	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return eris.Wrap(err, "sink: prepare insert")
	}
	defer stmt.Close() //nolint:errcheck

	for _, rec := range set.Records {
		blob, err := geometryBlob(rec.Geometry, set.SRID)
		if err != nil {
			return eris.Wrap(err, "sink: encode geometry")
		}

		args := make([]any, 0, len(set.Fields)+1)
		args = append(args, blob)
		for _, f := range set.Fields {
			args = append(args, rec.Attributes[f.Name])
		}

		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return eris.Wrap(err, "sink: insert feature")
		}
	}

	return nil
}

// geometryBlob encodes a GeoPackage geometry blob: the "GP" header
// (version 0, little-endian flags, no envelope) followed by standard
// WKB.
func geometryBlob(g geom.T, srid int) ([]byte, error) {
	payload, err := wkb.Marshal(g, wkb.NDR)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.WriteByte('G')
	buf.WriteByte('P')
	buf.WriteByte(0x00) // version
	buf.WriteByte(0x01) // flags: little-endian header, no envelope
	if err := binary.Write(&buf, binary.LittleEndian, int32(srid)); err != nil {
		return nil, err
	}
	buf.Write(payload)
	return buf.Bytes(), nil
}

func setBounds(set *convert.FeatureSet) (minX, minY, maxX, maxY float64) {
	first := true
	for _, rec := range set.Records {
		b := rec.Geometry.Bounds()
		if first {
			minX, minY, maxX, maxY = b.Min(0), b.Min(1), b.Max(0), b.Max(1)
			first = false
			continue
		}
		if b.Min(0) < minX {
			minX = b.Min(0)
		}
		if b.Min(1) < minY {
			minY = b.Min(1)
		}
		if b.Max(0) > maxX {
			maxX = b.Max(0)
		}
		if b.Max(1) > maxY {
			maxY = b.Max(1)
		}
	}
	return minX, minY, maxX, maxY
}

func sqlType(t convert.FieldType) string {
	switch t {
	case convert.FieldInteger:
		return "INTEGER"
	case convert.FieldReal:
		return "REAL"
	default:
		return "TEXT"
	}
}

var identifierPattern = regexp.MustCompile(`[^A-Za-z0-9_]+`)

// sanitizeIdentifier makes a layer or column name safe to use as a
// SQLite identifier.
func sanitizeIdentifier(name string) string {
	name = identifierPattern.ReplaceAllString(strings.TrimSpace(name), "_")
	return strings.Trim(name, "_")
}
