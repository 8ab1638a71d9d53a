package regime

import (
	"github.com/pulsedeck/scanner/internal/features"
)

// VolRegime is the discretized volatility bucket derived from the VIX level.
type VolRegime string

const (
	Low     VolRegime = "low"
	Medium  VolRegime = "medium"
	High    VolRegime = "high"
	Extreme VolRegime = "extreme"
)

// Classify buckets a raw volatility index value. Intervals are half-open;
// a boundary value belongs to the higher bucket (15.0 is medium, 25.0 is
// high, 35.0 is extreme).
func Classify(vix float64) VolRegime {
	switch {
	case vix < 15:
		return Low
	case vix < 25:
		return Medium
	case vix < 35:
		return High
	default:
		return Extreme
	}
}

// ClassifySnapshot classifies from a feature snapshot, defaulting to Medium
// when the VIX reading is missing. The missing reading still costs the
// signal through the confidence discount; Medium keeps gating neutral.
func ClassifySnapshot(snap *features.Snapshot) VolRegime {
	if !features.ValidPositive(snap.Pattern.VIX) {
		return Medium
	}
	return Classify(*snap.Pattern.VIX)
}
