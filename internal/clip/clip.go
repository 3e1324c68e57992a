// Package clip resolves user-supplied spatial filter inputs — a bbox
// string, a GeoJSON polygon file, or a shapefile — into the geometry
// filter the query layer consumes.
package clip

import (
	"os"
	"strconv"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/rotisserie/eris"

	"github.com/sells-group/geograb/pkg/arcgis"
)

// ParseBBox parses "xmin,ymin,xmax,ymax" into an envelope filter.
func ParseBBox(s string, wkid int) (*arcgis.EnvelopeFilter, error) {
	parts := strings.Split(strings.TrimSpace(s), ",")
	if len(parts) != 4 {
		return nil, eris.Errorf("clip: bbox %q must be xmin,ymin,xmax,ymax", s)
	}

	vals := make([]float64, 4)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, eris.Wrapf(err, "clip: bbox component %q", p)
		}
		vals[i] = v
	}

	if vals[0] >= vals[2] || vals[1] >= vals[3] {
		return nil, eris.Errorf("clip: bbox %q has inverted or empty extent", s)
	}

	return &arcgis.EnvelopeFilter{
		XMin: vals[0], YMin: vals[1], XMax: vals[2], YMax: vals[3],
		WKID: wkid,
	}, nil
}

// FromGeoJSON reads the first Polygon or MultiPolygon feature of a
// GeoJSON file as a polygon filter.
func FromGeoJSON(path string, wkid int) (*arcgis.PolygonFilter, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "clip: read %s", path)
	}

	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		// Also accept a bare Feature or Geometry document.
		if f, ferr := geojson.UnmarshalFeature(data); ferr == nil {
			fc = geojson.NewFeatureCollection()
			fc.Append(f)
		} else {
			return nil, eris.Wrapf(err, "clip: parse %s", path)
		}
	}

	for _, f := range fc.Features {
		switch g := f.Geometry.(type) {
		case orb.Polygon:
			return &arcgis.PolygonFilter{Rings: polygonRings(g), WKID: wkid}, nil
		case orb.MultiPolygon:
			var rings [][][]float64
			for _, poly := range g {
				rings = append(rings, polygonRings(poly)...)
			}
			return &arcgis.PolygonFilter{Rings: rings, WKID: wkid}, nil
		}
	}

	return nil, eris.Errorf("clip: %s contains no polygon features", path)
}

func polygonRings(p orb.Polygon) [][][]float64 {
	rings := make([][][]float64, 0, len(p))
	for _, ring := range p {
		coords := make([][]float64, 0, len(ring))
		for _, pt := range ring {
			coords = append(coords, []float64{pt[0], pt[1]})
		}
		rings = append(rings, coords)
	}
	return rings
}

// FromShapefile reads the first polygon shape of a shapefile as a
// polygon filter.
func FromShapefile(path string, wkid int) (*arcgis.PolygonFilter, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "clip: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	for reader.Next() {
		_, shape := reader.Shape()
		poly, ok := shape.(*shp.Polygon)
		if !ok {
			continue
		}
		rings := shapefileRings(poly)
		if len(rings) == 0 {
			continue
		}
		return &arcgis.PolygonFilter{Rings: rings, WKID: wkid}, nil
	}

	return nil, eris.Errorf("clip: %s contains no polygon shapes", path)
}

func shapefileRings(p *shp.Polygon) [][][]float64 {
	if p == nil || p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	rings := make([][][]float64, 0, p.NumParts)
	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		end := int32(len(p.Points))
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		}

		coords := make([][]float64, 0, end-start)
		for j := start; j < end; j++ {
			coords = append(coords, []float64{p.Points[j].X, p.Points[j].Y})
		}
		rings = append(rings, coords)
	}
	return rings
}
