package safety

import (
	"context"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/geograb/pkg/arcgis"
)

// stubCounter returns a fixed count or error and records whether it
// was consulted at all.
type stubCounter struct {
	count  int
	err    error
	called bool
	ctx    context.Context
}

func (s *stubCounter) FeatureCount(ctx context.Context, serviceURL string, layerID int, filter arcgis.Filter) (int, error) {
	s.called = true
	s.ctx = ctx
	if s.err != nil {
		return 0, s.err
	}
	return s.count, nil
}

func smallEnvelope() *arcgis.EnvelopeFilter {
	return &arcgis.EnvelopeFilter{XMin: -81.1, YMin: 33.9, XMax: -81.0, YMax: 34.0, WKID: 4326}
}

func extentOf(area float64) *Extent {
	// A 1-degree-tall strip with the requested area.
	return &Extent{XMin: 0, YMin: 0, XMax: area, YMax: 1}
}

func TestCheck_NilFilterAlwaysBlocks(t *testing.T) {
	gate := NewGate(Config{})
	counter := &stubCounter{count: 1}

	v := gate.Check(context.Background(), counter, CheckRequest{
		ServiceURL: "https://gis.example/arcgis/rest/services/Parcels/MapServer",
		LayerID:    0,
	})

	assert.True(t, v.Blocked())
	require.NotEmpty(t, v.Reasons)
	assert.Contains(t, v.Reasons[0], "No spatial filter detected")
	assert.False(t, counter.called, "blocked requests must not touch the network")
}

func TestCheck_HugeExtentBlocksBeforeCounting(t *testing.T) {
	gate := NewGate(DefaultConfig())
	counter := &stubCounter{count: 3} // tiny count must not matter

	v := gate.Check(context.Background(), counter, CheckRequest{
		Filter: smallEnvelope(),
		Extent: &Extent{XMin: -83, YMin: 32, XMax: -80, YMax: 35}, // 9 sq deg
	})

	assert.True(t, v.Blocked())
	assert.Contains(t, v.Reasons[0], "extremely large")
	assert.False(t, counter.called)
	assert.InDelta(t, 9.0, v.ExtentSqDeg, 1e-9)
}

func TestCheck_CountThresholdBoundaries(t *testing.T) {
	cfg := DefaultConfig()
	gate := NewGate(cfg)

	tests := []struct {
		name  string
		count int
		want  Action
	}{
		{"below warn proceeds", cfg.WarnFeatureCount - 1, Proceed},
		{"exactly warn warns", cfg.WarnFeatureCount, Warn},
		{"exactly block blocks", cfg.BlockFeatureCount, Block},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			counter := &stubCounter{count: tc.count}
			v := gate.Check(context.Background(), counter, CheckRequest{Filter: smallEnvelope()})

			assert.Equal(t, tc.want, v.Action)
			assert.Equal(t, tc.count, v.FeatureCount)
		})
	}
}

func TestCheck_DensityTighteningAtBroadExtent(t *testing.T) {
	gate := NewGate(DefaultConfig())

	// 6,000 parcels is under the default warn threshold but over the
	// tightened 5,000 that applies past 0.1 sq deg.
	counter := &stubCounter{count: 6_000}
	v := gate.Check(context.Background(), counter, CheckRequest{
		Filter:    smallEnvelope(),
		LayerType: "parcels",
		Extent:    extentOf(0.2),
	})

	assert.True(t, v.NeedsConfirmation())
	assert.Equal(t, true, v.Details["density_adjusted"])

	// 60,000 clears the default block threshold only after tightening.
	counter = &stubCounter{count: 60_000}
	v = gate.Check(context.Background(), counter, CheckRequest{
		Filter:    smallEnvelope(),
		LayerType: "parcels",
		Extent:    extentOf(0.2),
	})
	assert.True(t, v.Blocked())
}

func TestCheck_DensityTighteningNeedsBothConditions(t *testing.T) {
	gate := NewGate(DefaultConfig())

	// Small extent: no tightening even for parcels.
	counter := &stubCounter{count: 6_000}
	v := gate.Check(context.Background(), counter, CheckRequest{
		Filter:    smallEnvelope(),
		LayerType: "parcels",
		Extent:    extentOf(0.05),
	})
	require.True(t, v.Safe())
	assert.NotContains(t, v.Details, "density_adjusted")

	// Broad extent but a layer type outside the high-density list.
	v = gate.Check(context.Background(), &stubCounter{count: 6_000}, CheckRequest{
		Filter:    smallEnvelope(),
		LayerType: "zoning",
		Extent:    extentOf(0.2),
	})
	assert.NotContains(t, v.Details, "density_adjusted")
}

func TestCheck_CountFailureDegradesToWarn(t *testing.T) {
	gate := NewGate(DefaultConfig())
	counter := &stubCounter{err: eris.New("server timeout")}

	v := gate.Check(context.Background(), counter, CheckRequest{Filter: smallEnvelope()})

	assert.True(t, v.NeedsConfirmation())
	assert.Equal(t, UnknownCount, v.FeatureCount)
	assert.Contains(t, v.Reasons[0], "Could not determine feature count")
}

func TestCheck_CountRunsUnderDerivedTimeout(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CountTimeout = 5 * time.Second
	gate := NewGate(cfg)

	counter := &stubCounter{count: 10}
	gate.Check(context.Background(), counter, CheckRequest{Filter: smallEnvelope()})

	require.NotNil(t, counter.ctx)
	deadline, ok := counter.ctx.Deadline()
	require.True(t, ok, "count query must carry a deadline")
	assert.WithinDuration(t, time.Now().Add(cfg.CountTimeout), deadline, time.Second)
}

func TestCheck_ExtentWarningUpgradesProceed(t *testing.T) {
	gate := NewGate(DefaultConfig())

	// Count alone would proceed; the surviving extent warning upgrades
	// the verdict.
	counter := &stubCounter{count: 100}
	v := gate.Check(context.Background(), counter, CheckRequest{
		Filter: smallEnvelope(),
		Extent: extentOf(0.5),
	})

	assert.True(t, v.NeedsConfirmation())
	require.Len(t, v.Reasons, 1)
	assert.Contains(t, v.Reasons[0], "Large query extent")
}

func TestCheck_ParcelCountyScenario(t *testing.T) {
	// 12,000 parcels under a site-scale extent: over the warn line,
	// well under the block line, so the caller must confirm.
	gate := NewGate(DefaultConfig())
	counter := &stubCounter{count: 12_000}

	v := gate.Check(context.Background(), counter, CheckRequest{
		ServiceURL: "https://gis.example/arcgis/rest/services/Parcels/MapServer",
		LayerID:    2,
		Filter:     smallEnvelope(),
		LayerType:  "parcels",
		Extent:     extentOf(0.05),
	})

	require.True(t, v.NeedsConfirmation())
	assert.Equal(t, 12_000, v.FeatureCount)
	assert.Contains(t, v.Reasons[0], "12,000 features")
	assert.Greater(t, v.EstSizeMB, 20.0)

	text := FormatConfirmation(v)
	assert.Contains(t, text, "Features to download: 12,000")
	assert.Contains(t, text, "Do you want to proceed")
}

func TestVerdictSummary(t *testing.T) {
	v := &Verdict{Action: Warn, FeatureCount: 12_000, EstSizeMB: 22.9, ExtentSqDeg: 0.05}
	s := v.Summary()
	assert.Contains(t, s, "WARN: 12,000 features")
	assert.Contains(t, s, "~22.9 MB est.")
	assert.Contains(t, s, "extent 0.0500 sq deg")

	unknown := &Verdict{Action: Warn, FeatureCount: UnknownCount}
	assert.Contains(t, unknown.Summary(), "unknown")
}

func TestBlockedError(t *testing.T) {
	err := &BlockedError{Verdict: &Verdict{Action: Block, Reasons: []string{"too big"}}}
	assert.Contains(t, err.Error(), "too big")
}

func TestGroupThousands(t *testing.T) {
	assert.Equal(t, "0", groupThousands(0))
	assert.Equal(t, "999", groupThousands(999))
	assert.Equal(t, "1,000", groupThousands(1_000))
	assert.Equal(t, "123,456,789", groupThousands(123_456_789))
}
