package detect

import (
	"github.com/pulsedeck/scanner/internal/features"
	"github.com/pulsedeck/scanner/internal/market"
	"github.com/pulsedeck/scanner/internal/options"
)

// CapitulationReversal triggers on a deeply oversold flush with climactic
// volume near a prior swing low, the spot where forced selling exhausts.
type CapitulationReversal struct{}

func (CapitulationReversal) TypeID() string { return "capitulation_reversal" }
func (CapitulationReversal) Direction() Direction { return Long }
func (CapitulationReversal) Scope() market.AssetClass { return market.ClassAny }
func (CapitulationReversal) RequiresOptions() bool { return false }
func (CapitulationReversal) IdealTimeframe() string { return "5m" }

func (CapitulationReversal) Detect(snap *features.Snapshot, _ *options.ChainSummary) bool {
	rsi := snap.Technical.RSI
	if !features.Valid(rsi) || *rsi >= 25 {
		return false
	}
	return features.ValidPositive(snap.Volume.Relative) && *snap.Volume.Relative >= 2.0
}

func (CapitulationReversal) Factors() []ScoreFactor {
	return []ScoreFactor{
		{Name: "oversold_depth", Weight: 0.30, Eval: func(snap *features.Snapshot, _ *options.ChainSummary) (float64, error) {
			rsi, err := need(snap.Technical.RSI, "rsi")
			if err != nil {
				return 0, err
			}
			return invRamp(rsi, 5, 25), nil
		}},
		{Name: "volume_climax", Weight: 0.30, Eval: func(snap *features.Snapshot, _ *options.ChainSummary) (float64, error) {
			rv, err := needPositive(snap.Volume.Relative, "relative_volume")
			if err != nil {
				return 0, err
			}
			return ramp(rv, 2.0, 5.0), nil
		}},
		{Name: "vwap_stretch", Weight: 0.20, Eval: func(snap *features.Snapshot, _ *options.ChainSummary) (float64, error) {
			dist, err := need(snap.Technical.VWAPDistancePct, "vwap_distance")
			if err != nil {
				return 0, err
			}
			// Further below VWAP means a bigger snap-back target.
			return ramp(-dist, 1.0, 4.0), nil
		}},
		{Name: "swing_low_test", Weight: 0.20, Eval: func(snap *features.Snapshot, _ *options.ChainSummary) (float64, error) {
			price, err := needPositive(snap.Price.Current, "price")
			if err != nil {
				return 0, err
			}
			swingLow, err := needPositive(snap.Pattern.SwingLow, "swing_low")
			if err != nil {
				return 0, err
			}
			units, err := atrUnits(snap, price-swingLow)
			if err != nil {
				return 0, err
			}
			// Scores highest right at the level, fading either side.
			if units < 0 {
				units = -units
			}
			return invRamp(units, 0, 1.5), nil
		}},
	}
}

// DefaultDetectors is the full strategy menu registered at startup.
func DefaultDetectors() []Detector {
	return []Detector{
		BreakoutBullish{},
		BreakoutBearish{},
		VWAPReclaim{},
		VWAPFade{},
		TrendContinuationBullish{},
		FlowMomentumBullish(),
		FlowMomentumBearish(),
		GammaSqueeze{},
		CapitulationReversal{},
	}
}
