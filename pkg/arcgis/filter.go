package arcgis

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
)

// Filter is a spatial constraint attached to count, ID and batch
// queries. Exactly one concrete type is active per request; a nil
// Filter means the request is unbounded, which the safety gate refuses
// for bulk downloads.
type Filter interface {
	// Apply attaches the filter's query parameters, always paired with
	// an intersects spatial relation.
	Apply(v url.Values)

	// Bounds returns the filter's bounding rectangle in its own
	// coordinate system.
	Bounds() (xmin, ymin, xmax, ymax float64)
}

// EnvelopeFilter restricts queries to an axis-aligned rectangle.
type EnvelopeFilter struct {
	XMin, YMin, XMax, YMax float64
	WKID                   int
}

// Apply encodes the envelope as "xmin,ymin,xmax,ymax".
func (f *EnvelopeFilter) Apply(v url.Values) {
	v.Set("geometry", fmt.Sprintf("%g,%g,%g,%g", f.XMin, f.YMin, f.XMax, f.YMax))
	v.Set("geometryType", "esriGeometryEnvelope")
	v.Set("spatialRel", "esriSpatialRelIntersects")
	if f.WKID != 0 {
		v.Set("inSR", strconv.Itoa(f.WKID))
	}
}

// Bounds returns the envelope itself.
func (f *EnvelopeFilter) Bounds() (float64, float64, float64, float64) {
	return f.XMin, f.YMin, f.XMax, f.YMax
}

// PolygonFilter restricts queries to a polygon. Rings are listed in
// ESRI JSON order; the filter does not distinguish shells from holes.
type PolygonFilter struct {
	Rings [][][]float64
	WKID  int
}

type polygonGeometry struct {
	Rings            [][][]float64    `json:"rings"`
	SpatialReference spatialRefObject `json:"spatialReference"`
}

type spatialRefObject struct {
	WKID int `json:"wkid"`
}

// Apply encodes the polygon as a JSON rings object.
func (f *PolygonFilter) Apply(v url.Values) {
	wkid := f.WKID
	if wkid == 0 {
		wkid = 4326
	}
	geom, err := json.Marshal(polygonGeometry{
		Rings:            f.Rings,
		SpatialReference: spatialRefObject{WKID: wkid},
	})
	if err != nil {
		// Rings of float64 cannot fail to marshal.
		return
	}
	v.Set("geometry", string(geom))
	v.Set("geometryType", "esriGeometryPolygon")
	v.Set("spatialRel", "esriSpatialRelIntersects")
	if f.WKID != 0 {
		v.Set("inSR", strconv.Itoa(f.WKID))
	}
}

// Bounds returns the bounding rectangle of all rings.
func (f *PolygonFilter) Bounds() (xmin, ymin, xmax, ymax float64) {
	first := true
	for _, ring := range f.Rings {
		for _, pt := range ring {
			if len(pt) < 2 {
				continue
			}
			if first {
				xmin, ymin, xmax, ymax = pt[0], pt[1], pt[0], pt[1]
				first = false
				continue
			}
			if pt[0] < xmin {
				xmin = pt[0]
			}
			if pt[0] > xmax {
				xmax = pt[0]
			}
			if pt[1] < ymin {
				ymin = pt[1]
			}
			if pt[1] > ymax {
				ymax = pt[1]
			}
		}
	}
	return xmin, ymin, xmax, ymax
}
