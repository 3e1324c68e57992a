// Package safety implements the pre-flight gate that runs before any
// bulk download: extent-area, missing-filter and authoritative-count
// checks against configurable thresholds. The design rule is that the
// tool never silently downloads more than the user visibly intends.
package safety

import (
	"fmt"
	"strings"
	"time"
)

// Config holds the gate's thresholds. A Config is provided once per
// session and never mutated during a check; per-call variations (the
// shorter count timeout) are expressed as derived contexts, not field
// writes.
type Config struct {
	WarnFeatureCount  int           `mapstructure:"warn_feature_count"`
	BlockFeatureCount int           `mapstructure:"block_feature_count"`
	WarnExtentSqDeg   float64       `mapstructure:"warn_extent_sq_deg"`
	BlockExtentSqDeg  float64       `mapstructure:"block_extent_sq_deg"`
	EstBytesPerFeat   int           `mapstructure:"est_bytes_per_feature"`
	CountTimeout      time.Duration `mapstructure:"count_timeout"`

	// HighDensityLayerTypes are layer-type hints known to be very
	// large at broad extents; they tighten the count thresholds.
	HighDensityLayerTypes []string `mapstructure:"high_density_layer_types"`
}

// DefaultConfig returns thresholds tuned for site-scale county work,
// not statewide bulk downloads.
func DefaultConfig() Config {
	return Config{
		WarnFeatureCount:  10_000,
		BlockFeatureCount: 100_000,
		// ~0.01 sq deg is roughly a small municipality, ~0.25 a full
		// county, ~1.0 multi-county territory.
		WarnExtentSqDeg:  0.25,
		BlockExtentSqDeg: 2.0,
		EstBytesPerFeat:  2_000,
		CountTimeout:     30 * time.Second,
		HighDensityLayerTypes: []string{
			"parcels", "address_points", "building_footprints",
			"contours", "flood_zones",
		},
	}
}

func (c Config) isHighDensity(layerType string) bool {
	lt := strings.ToLower(layerType)
	for _, t := range c.HighDensityLayerTypes {
		if lt == t {
			return true
		}
	}
	return false
}

// Action is the gate's decision.
type Action int

const (
	Proceed Action = iota
	Warn
	Block
)

func (a Action) String() string {
	switch a {
	case Warn:
		return "warn"
	case Block:
		return "block"
	default:
		return "proceed"
	}
}

// UnknownCount marks a count query that failed or timed out.
const UnknownCount = -1

// Verdict is the result of one pre-flight check. A Block verdict
// always carries at least one reason; a Proceed verdict carries none.
type Verdict struct {
	Action       Action
	FeatureCount int // UnknownCount when the count query failed
	EstSizeMB    float64
	ExtentSqDeg  float64
	Reasons      []string
	Details      map[string]any
}

// Safe reports whether the download may run without confirmation.
func (v *Verdict) Safe() bool { return v.Action == Proceed }

// NeedsConfirmation reports whether the caller must confirm first.
func (v *Verdict) NeedsConfirmation() bool { return v.Action == Warn }

// Blocked reports whether the download is refused outright.
func (v *Verdict) Blocked() bool { return v.Action == Block }

// Summary is a single-line form for log output.
func (v *Verdict) Summary() string {
	parts := []string{fmt.Sprintf("%s: %s features", strings.ToUpper(v.Action.String()), formatCount(v.FeatureCount))}
	if v.EstSizeMB > 0 {
		parts = append(parts, fmt.Sprintf("~%.1f MB est.", v.EstSizeMB))
	}
	if v.ExtentSqDeg > 0 {
		parts = append(parts, fmt.Sprintf("extent %.4f sq deg", v.ExtentSqDeg))
	}
	return strings.Join(parts, " | ")
}

func formatCount(n int) string {
	if n == UnknownCount {
		return "unknown"
	}
	return groupThousands(n)
}

func groupThousands(n int) string {
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

// BlockedError is the refusal surfaced when a caller tries to proceed
// past a Block verdict. It carries the human-readable reasons; the
// caller must narrow the filter before re-attempting.
type BlockedError struct {
	Verdict *Verdict
}

func (e *BlockedError) Error() string {
	return "safety: download blocked: " + strings.Join(e.Verdict.Reasons, " ")
}
