// Package download implements OID-paginated bulk feature retrieval:
// count, ID enumeration, then strictly sequential range-predicate
// batches. Batches are never fetched concurrently; the servers this
// tool targets are fragile and ordering of the output must be
// deterministic.
package download

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/geograb/pkg/arcgis"
)

// DefaultBatchSize is deliberately conservative: observed server-side
// record caps are as low as 1000.
const DefaultBatchSize = 500

// ProgressFunc reports pipeline progress. percent runs 0..100 against
// a fixed total of 100. It is invoked synchronously between batches
// and must not block.
type ProgressFunc func(percent, total int, message string)

// Request describes one bulk download.
type Request struct {
	ServiceURL string
	LayerID    int
	Filter     arcgis.Filter
	OutWKID    int // optional output spatial reference override
	BatchSize  int // defaults to DefaultBatchSize
	Progress   ProgressFunc
}

// Result is the complete feature list of one download. An empty layer
// yields empty Features and a nil SpatialRef; no batch queries are
// issued in that case.
type Result struct {
	Features   []arcgis.RawFeature
	SpatialRef *arcgis.SpatialReference
	IDField    string
	Total      int
}

// Run executes the pagination protocol. Any single batch failure
// aborts the whole download with no partial results and no automatic
// retry. The context is polled before every batch.
func Run(ctx context.Context, client arcgis.Client, req Request) (*Result, error) {
	jobID := uuid.NewString()
	log := zap.L().With(
		zap.String("component", "download"),
		zap.String("job_id", jobID),
		zap.String("service", req.ServiceURL),
		zap.Int("layer", req.LayerID),
	)

	batchSize := req.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	progress := req.Progress
	if progress == nil {
		progress = func(int, int, string) {}
	}

	progress(0, 100, "Querying feature count...")
	total, err := client.FeatureCount(ctx, req.ServiceURL, req.LayerID, req.Filter)
	if err != nil {
		return nil, eris.Wrap(err, "download: count")
	}
	if total == 0 {
		progress(100, 100, "No features found in query area.")
		log.Info("layer is empty under the active filter")
		return &Result{}, nil
	}

	progress(5, 100, fmt.Sprintf("Found %d features. Getting object IDs...", total))
	idField, oids, err := client.ObjectIDs(ctx, req.ServiceURL, req.LayerID, req.Filter)
	if err != nil {
		return nil, eris.Wrap(err, "download: object ids")
	}
	if len(oids) == 0 {
		// Inconsistent server: a non-zero count with no IDs is
		// reconciled down to an empty result.
		log.Warn("server reported features but returned no object ids", zap.Int("count", total))
		progress(100, 100, "No features found in query area.")
		return &Result{IDField: idField}, nil
	}

	batches := Partition(oids, batchSize)
	log.Info("starting batch download",
		zap.Int("features", total),
		zap.Int("ids", len(oids)),
		zap.Int("batches", len(batches)),
		zap.String("id_field", idField),
	)

	result := &Result{
		Features: make([]arcgis.RawFeature, 0, len(oids)),
		IDField:  idField,
		Total:    len(oids),
	}

	for i, batch := range batches {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "download: canceled")
		}

		pct := 10 + int(float64(i)/float64(len(batches))*85)
		progress(pct, 100, fmt.Sprintf("Batch %d/%d  (%d/%d)", i+1, len(batches), len(result.Features), total))

		where := fmt.Sprintf("%s >= %d AND %s <= %d", idField, batch.Min, idField, batch.Max)
		br, err := client.FetchBatch(ctx, req.ServiceURL, req.LayerID, where, req.Filter, req.OutWKID)
		if err != nil {
			return nil, eris.Wrapf(err, "download: batch %d/%d", i+1, len(batches))
		}

		result.Features = append(result.Features, br.Features...)
		if result.SpatialRef == nil && br.SpatialReference != nil {
			// First batch's spatial reference stands for the whole
			// result; batches are assumed homogeneous.
			result.SpatialRef = br.SpatialReference
		}
	}

	progress(100, 100, fmt.Sprintf("Downloaded %d features.", len(result.Features)))
	log.Info("download complete", zap.Int("features", len(result.Features)))

	return result, nil
}
