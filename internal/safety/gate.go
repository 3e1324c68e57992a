package safety

import (
	"context"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/geograb/pkg/arcgis"
)

// Counter is the one network dependency of the gate: an authoritative
// feature count under the active filter. Satisfied by arcgis.Client.
type Counter interface {
	FeatureCount(ctx context.Context, serviceURL string, layerID int, filter arcgis.Filter) (int, error)
}

// Extent is the query rectangle in WGS84 degrees.
type Extent struct {
	XMin, YMin, XMax, YMax float64
}

// Area returns width times height in square degrees.
func (e *Extent) Area() float64 {
	return math.Abs(e.XMax-e.XMin) * math.Abs(e.YMax-e.YMin)
}

// squareMiles is a rough conversion at mid-southern latitudes: one
// degree of latitude is ~69 miles, one degree of longitude ~58 miles
// around 33N.
func (e *Extent) squareMiles() float64 {
	return math.Abs(e.XMax-e.XMin) * 58 * math.Abs(e.YMax-e.YMin) * 69
}

// CheckRequest describes one prospective download.
type CheckRequest struct {
	ServiceURL string
	LayerID    int
	Filter     arcgis.Filter
	LayerType  string  // optional density hint, e.g. "parcels"
	Extent     *Extent // optional WGS84 extent for the area check
}

// Gate evaluates pre-flight checks against one immutable Config.
type Gate struct {
	cfg Config
}

// NewGate creates a gate. A zero-value Config is replaced with
// defaults.
func NewGate(cfg Config) *Gate {
	if cfg.BlockFeatureCount == 0 {
		cfg = DefaultConfig()
	}
	return &Gate{cfg: cfg}
}

// Check runs all pre-flight checks in order: extent area (no network),
// missing filter, then the authoritative count. The first conclusive
// block wins; warnings accumulate and can upgrade a would-be Proceed.
func (g *Gate) Check(ctx context.Context, counter Counter, req CheckRequest) *Verdict {
	cfg := g.cfg
	verdict := &Verdict{Details: map[string]any{}}

	// Extent area first: this check alone can veto without ever
	// consulting the server.
	if req.Extent != nil {
		area := req.Extent.Area()
		sqMiles := req.Extent.squareMiles()
		verdict.ExtentSqDeg = area
		verdict.Details["extent_area_sq_deg"] = area
		verdict.Details["extent_area_sq_miles"] = math.Round(sqMiles*10) / 10

		if area >= cfg.BlockExtentSqDeg {
			verdict.Action = Block
			verdict.Reasons = append(verdict.Reasons, fmt.Sprintf(
				"Query extent is extremely large: ~%.0f sq miles (%.3f sq degrees). "+
					"This would likely download hundreds of thousands of features. "+
					"Zoom in or use a clip layer.", sqMiles, area))
			return verdict
		}
		if area >= cfg.WarnExtentSqDeg {
			// Accumulate; the count check still runs.
			verdict.Reasons = append(verdict.Reasons, fmt.Sprintf(
				"Large query extent: ~%.0f sq miles. Consider using a clip layer for targeted results.", sqMiles))
		}
	}

	// An entire unfiltered layer may never be downloaded, independent
	// of its size.
	if req.Filter == nil {
		verdict.Action = Block
		verdict.Reasons = append(verdict.Reasons,
			"No spatial filter detected. Downloading an entire service layer "+
				"without a bounding box or clip polygon is not allowed. "+
				"Supply an extent or select a clip layer.")
		return verdict
	}

	count := g.featureCount(ctx, counter, req)
	verdict.FeatureCount = count
	verdict.Details["raw_count"] = count

	if count == UnknownCount {
		// Degrade to a cautious Warn, never a silent Proceed.
		verdict.Reasons = append(verdict.Reasons,
			"Could not determine feature count from the server. The dataset "+
				"may be very large or the server may be slow. Proceed with caution.")
		if verdict.Action != Block {
			verdict.Action = Warn
		}
		return verdict
	}

	estBytes := count * cfg.EstBytesPerFeat
	verdict.EstSizeMB = float64(estBytes) / (1024 * 1024)

	effectiveWarn := cfg.WarnFeatureCount
	effectiveBlock := cfg.BlockFeatureCount
	if cfg.isHighDensity(req.LayerType) && verdict.ExtentSqDeg > 0.1 {
		// Tighter limits for parcels/contours at broad extents.
		effectiveWarn = min(effectiveWarn, 5_000)
		effectiveBlock = min(effectiveBlock, 50_000)
		verdict.Details["density_adjusted"] = true
	}

	switch {
	case count >= effectiveBlock:
		verdict.Action = Block
		verdict.Reasons = append(verdict.Reasons, fmt.Sprintf(
			"Feature count (%s) exceeds the safety limit of %s. This would "+
				"produce a ~%.0f MB file and could take a very long time. "+
				"Zoom in or add a clip layer.",
			groupThousands(count), groupThousands(effectiveBlock), verdict.EstSizeMB))
	case count >= effectiveWarn:
		if verdict.Action != Block {
			verdict.Action = Warn
		}
		verdict.Reasons = append(verdict.Reasons, fmt.Sprintf(
			"This will download %s features (~%.0f MB estimated). This may take several minutes.",
			groupThousands(count), verdict.EstSizeMB))
	}

	// A surviving extent warning upgrades a would-be Proceed.
	if len(verdict.Reasons) > 0 && verdict.Action == Proceed {
		verdict.Action = Warn
	}

	zap.L().Debug("safety check complete",
		zap.String("component", "safety"),
		zap.String("verdict", verdict.Action.String()),
		zap.Int("count", count),
		zap.Float64("extent_sq_deg", verdict.ExtentSqDeg),
	)

	return verdict
}

// featureCount runs the count query under the shorter count timeout.
// The timeout lives in a derived context; the shared client and config
// are never mutated, so there is nothing to restore on failure.
func (g *Gate) featureCount(ctx context.Context, counter Counter, req CheckRequest) int {
	countCtx, cancel := context.WithTimeout(ctx, g.cfg.CountTimeout)
	defer cancel()

	count, err := counter.FeatureCount(countCtx, req.ServiceURL, req.LayerID, req.Filter)
	if err != nil {
		zap.L().Warn("safety count query failed",
			zap.String("component", "safety"),
			zap.String("service", req.ServiceURL),
			zap.Int("layer", req.LayerID),
			zap.Error(err),
		)
		return UnknownCount
	}
	return count
}

// FormatConfirmation builds the caller-facing confirmation text for a
// Warn or Block verdict.
func FormatConfirmation(v *Verdict) string {
	var lines []string

	if v.FeatureCount > 0 {
		lines = append(lines, fmt.Sprintf("Features to download: %s", groupThousands(v.FeatureCount)))
	}
	if v.EstSizeMB > 1 {
		lines = append(lines, fmt.Sprintf("Estimated file size: ~%.0f MB", v.EstSizeMB))
	}
	if miles, ok := v.Details["extent_area_sq_miles"].(float64); ok && miles > 10 {
		lines = append(lines, fmt.Sprintf("Query area: ~%.0f square miles", miles))
	}

	lines = append(lines, "")
	for _, r := range v.Reasons {
		lines = append(lines, "  "+r)
	}

	if v.NeedsConfirmation() {
		lines = append(lines, "", "Do you want to proceed with this download?")
	}

	return strings.Join(lines, "\n")
}
