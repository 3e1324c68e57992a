package sink

import (
	"context"
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"

	"github.com/sells-group/geograb/internal/convert"
)

// GeoJSON writes a feature set as a GeoJSON FeatureCollection file.
// Unlike the GeoPackage sink it holds a single layer; an existing file
// is overwritten.
type GeoJSON struct {
	Path string
}

// Write persists the feature set.
func (g *GeoJSON) Write(ctx context.Context, set *convert.FeatureSet) error {
	fc := geojson.FeatureCollection{
		Features: make([]*geojson.Feature, 0, len(set.Records)),
	}

	for _, rec := range set.Records {
		if err := ctx.Err(); err != nil {
			return eris.Wrap(err, "sink: geojson canceled")
		}
		fc.Features = append(fc.Features, &geojson.Feature{
			Geometry:   rec.Geometry,
			Properties: rec.Attributes,
		})
	}

	data, err := json.Marshal(&fc)
	if err != nil {
		return eris.Wrap(err, "sink: marshal geojson")
	}

	if err := os.WriteFile(g.Path, data, 0o644); err != nil {
		return eris.Wrap(err, "sink: write geojson")
	}

	zap.L().Info("wrote geojson file",
		zap.String("component", "sink"),
		zap.String("path", g.Path),
		zap.Int("features", len(fc.Features)),
	)
	return nil
}
