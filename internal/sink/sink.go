// Package sink persists converted feature sets into portable vector
// containers. Sinks receive the complete feature set after the
// download finishes; nothing here supports incremental mid-batch
// writes.
package sink

import (
	"context"

	"github.com/sells-group/geograb/internal/convert"
)

// Sink writes one named feature set to an output container.
type Sink interface {
	Write(ctx context.Context, set *convert.FeatureSet) error
}

// geometryTypeName maps the server-declared geometry type onto the
// container-level type name.
func geometryTypeName(esriType string) string {
	switch esriType {
	case "esriGeometryPoint":
		return "POINT"
	case "esriGeometryMultipoint":
		return "MULTIPOINT"
	case "esriGeometryPolyline":
		return "MULTILINESTRING"
	case "esriGeometryPolygon":
		return "MULTIPOLYGON"
	default:
		return "GEOMETRY"
	}
}
