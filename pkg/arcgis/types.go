package arcgis

import "encoding/json"

// ServiceEntry is one child service of a directory endpoint.
type ServiceEntry struct {
	Name        string // full name as declared, may include a folder prefix
	DisplayName string // folder prefix stripped
	URL         string // {directory}/{name}/{type}
	Type        string // "MapServer" or "FeatureServer"
}

// LayerRef is one layer as listed on a service root.
type LayerRef struct {
	ID                int
	Name              string
	Type              string
	ParentID          int
	SubLayerIDs       []int
	MinScale          float64
	MaxScale          float64
	DefaultVisibility bool
}

// Field is one attribute field of a layer schema.
type Field struct {
	Name   string `json:"name"`
	Type   string `json:"type"`
	Alias  string `json:"alias"`
	Length int    `json:"length"`
}

// SpatialReference identifies a coordinate system by WKID.
type SpatialReference struct {
	WKID       int `json:"wkid"`
	LatestWKID int `json:"latestWkid,omitempty"`
}

// ID returns the most specific WKID, defaulting to WGS84.
func (sr *SpatialReference) ID() int {
	if sr == nil {
		return 4326
	}
	if sr.LatestWKID != 0 {
		return sr.LatestWKID
	}
	if sr.WKID != 0 {
		return sr.WKID
	}
	return 4326
}

// Extent is a layer's declared bounding rectangle.
type Extent struct {
	XMin             float64           `json:"xmin"`
	YMin             float64           `json:"ymin"`
	XMax             float64           `json:"xmax"`
	YMax             float64           `json:"ymax"`
	SpatialReference *SpatialReference `json:"spatialReference"`
}

// LayerSchema is the detailed metadata of one layer.
type LayerSchema struct {
	ID               int               `json:"id"`
	Name             string            `json:"name"`
	GeometryType     string            `json:"geometryType"`
	Fields           []Field           `json:"fields"`
	SpatialReference *SpatialReference `json:"spatialReference"`
	Extent           *Extent           `json:"extent"`
	MaxRecordCount   int               `json:"maxRecordCount"`
}

// Geometry is the ESRI JSON geometry payload of one feature. Exactly
// one of the coordinate members is populated, matching the layer's
// declared geometry type.
type Geometry struct {
	X      *float64      `json:"x,omitempty"`
	Y      *float64      `json:"y,omitempty"`
	Points [][]float64   `json:"points,omitempty"`
	Paths  [][][]float64 `json:"paths,omitempty"`
	Rings  [][][]float64 `json:"rings,omitempty"`
}

// RawFeature is one undecoded feature from a batch query.
type RawFeature struct {
	Attributes map[string]any `json:"attributes"`
	Geometry   *Geometry      `json:"geometry"`
}

// BatchResult is the decoded body of one batch fetch.
type BatchResult struct {
	Features         []RawFeature      `json:"features"`
	SpatialReference *SpatialReference `json:"spatialReference"`
}

// Response shells for discovery endpoints.

type directoryResponse struct {
	Services []struct {
		Name string `json:"name"`
		Type string `json:"type"`
	} `json:"services"`
	Folders []string `json:"folders"`
}

type serviceResponse struct {
	Layers []struct {
		ID                int     `json:"id"`
		Name              string  `json:"name"`
		Type              string  `json:"type"`
		ParentLayerID     *int    `json:"parentLayerId"`
		SubLayerIDs       []int   `json:"subLayerIds"`
		MinScale          float64 `json:"minScale"`
		MaxScale          float64 `json:"maxScale"`
		DefaultVisibility *bool   `json:"defaultVisibility"`
	} `json:"layers"`
}

type countResponse struct {
	Count *int `json:"count"`
}

type objectIDsResponse struct {
	ObjectIDFieldName string  `json:"objectIdFieldName"`
	ObjectIDs         []int64 `json:"objectIds"`
}

// errorResponse is the in-band error envelope ArcGIS servers return
// with a 200 status.
type errorResponse struct {
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func inBandError(body json.RawMessage) (string, bool) {
	var er errorResponse
	if err := json.Unmarshal(body, &er); err != nil || er.Error == nil {
		return "", false
	}
	return er.Error.Message, true
}
