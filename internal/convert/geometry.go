package convert

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/geograb/pkg/arcgis"
)

// Record is one decoded feature.
type Record struct {
	Geometry   geom.T
	Attributes map[string]any
}

// Geometry converts an ESRI JSON geometry payload into a go-geom
// geometry of the declared kind. A nil payload or an empty coordinate
// set returns (nil, nil); the enclosing feature is skipped by the
// caller.
func Geometry(esriType string, g *arcgis.Geometry, srid int) (geom.T, error) {
	if g == nil {
		return nil, nil
	}

	switch esriType {
	case "esriGeometryPoint":
		return pointGeometry(g, srid)
	case "esriGeometryMultipoint":
		return multipointGeometry(g, srid)
	case "esriGeometryPolyline":
		return polylineGeometry(g, srid)
	case "esriGeometryPolygon":
		return polygonGeometry(g, srid)
	default:
		return nil, eris.Errorf("convert: unsupported geometry type %q", esriType)
	}
}

func pointGeometry(g *arcgis.Geometry, srid int) (geom.T, error) {
	if g.X == nil || g.Y == nil {
		return nil, nil
	}
	return geom.NewPointFlat(geom.XY, []float64{*g.X, *g.Y}).SetSRID(srid), nil
}

func multipointGeometry(g *arcgis.Geometry, srid int) (geom.T, error) {
	if len(g.Points) == 0 {
		return nil, nil
	}
	flat := make([]float64, 0, len(g.Points)*2)
	for _, pt := range g.Points {
		if len(pt) < 2 {
			return nil, eris.New("convert: multipoint with short coordinate")
		}
		flat = append(flat, pt[0], pt[1])
	}
	return geom.NewMultiPointFlat(geom.XY, flat).SetSRID(srid), nil
}

// polylineGeometry maps each path to one line part of a
// MultiLineString.
func polylineGeometry(g *arcgis.Geometry, srid int) (geom.T, error) {
	if len(g.Paths) == 0 {
		return nil, nil
	}

	mls := geom.NewMultiLineString(geom.XY).SetSRID(srid)
	for _, path := range g.Paths {
		flat, err := flattenCoords(path)
		if err != nil {
			return nil, err
		}
		if len(flat) < 4 {
			continue
		}
		if err := mls.Push(geom.NewLineStringFlat(geom.XY, flat)); err != nil {
			return nil, eris.Wrap(err, "convert: push path")
		}
	}

	if mls.NumLineStrings() == 0 {
		return nil, nil
	}
	return mls, nil
}

// polygonGeometry maps each ring to one single-ring polygon of a
// MultiPolygon. Ring winding is carried through unchanged: holes are
// not detected here, the consumer's even-odd interpretation decides.
func polygonGeometry(g *arcgis.Geometry, srid int) (geom.T, error) {
	if len(g.Rings) == 0 {
		return nil, nil
	}

	mp := geom.NewMultiPolygon(geom.XY).SetSRID(srid)
	for _, ring := range g.Rings {
		flat, err := flattenCoords(ring)
		if err != nil {
			return nil, err
		}
		if len(flat) < 8 {
			// Fewer than four vertices cannot close a ring.
			continue
		}

		flat = closeRing(flat)
		poly := geom.NewPolygon(geom.XY)
		if err := poly.Push(geom.NewLinearRingFlat(geom.XY, flat)); err != nil {
			return nil, eris.Wrap(err, "convert: push ring")
		}
		if err := mp.Push(poly); err != nil {
			return nil, eris.Wrap(err, "convert: push polygon")
		}
	}

	if mp.NumPolygons() == 0 {
		return nil, nil
	}
	return mp, nil
}

func flattenCoords(coords [][]float64) ([]float64, error) {
	flat := make([]float64, 0, len(coords)*2)
	for _, pt := range coords {
		if len(pt) < 2 {
			return nil, eris.New("convert: short coordinate pair")
		}
		flat = append(flat, pt[0], pt[1])
	}
	return flat, nil
}

// closeRing appends the first vertex if the ring is not closed. Some
// servers omit the closing vertex on the wire.
func closeRing(flat []float64) []float64 {
	n := len(flat)
	if flat[0] == flat[n-2] && flat[1] == flat[n-1] {
		return flat
	}
	return append(flat, flat[0], flat[1])
}
