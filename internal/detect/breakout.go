package detect

import (
	"github.com/pulsedeck/scanner/internal/features"
	"github.com/pulsedeck/scanner/internal/market"
	"github.com/pulsedeck/scanner/internal/options"
)

// BreakoutBullish triggers when price clears the opening-range high on
// expanded volume while holding above VWAP.
type BreakoutBullish struct{}

func (BreakoutBullish) TypeID() string { return "breakout_bullish" }
func (BreakoutBullish) Direction() Direction { return Long }
func (BreakoutBullish) Scope() market.AssetClass { return market.ClassAny }
func (BreakoutBullish) RequiresOptions() bool { return false }
func (BreakoutBullish) IdealTimeframe() string { return "5m" }

func (BreakoutBullish) Detect(snap *features.Snapshot, _ *options.ChainSummary) bool {
	price := snap.Price.Current
	orbHigh := snap.Pattern.ORBHigh
	if !features.ValidPositive(price) || !features.ValidPositive(orbHigh) {
		return false
	}
	if *price <= *orbHigh {
		return false
	}
	if !features.ValidPositive(snap.Volume.Relative) || *snap.Volume.Relative < 1.5 {
		return false
	}
	return !features.ValidPositive(snap.Technical.VWAP) || *price > *snap.Technical.VWAP
}

func (BreakoutBullish) Factors() []ScoreFactor {
	return []ScoreFactor{
		{Name: "range_break_strength", Weight: 0.30, Eval: func(snap *features.Snapshot, _ *options.ChainSummary) (float64, error) {
			price, err := needPositive(snap.Price.Current, "price")
			if err != nil {
				return 0, err
			}
			orbHigh, err := needPositive(snap.Pattern.ORBHigh, "orb_high")
			if err != nil {
				return 0, err
			}
			units, err := atrUnits(snap, price-orbHigh)
			if err != nil {
				return 0, err
			}
			// Half an ATR beyond the range is a decisive break.
			return ramp(units, 0, 0.5), nil
		}},
		{Name: "relative_volume", Weight: 0.25, Eval: func(snap *features.Snapshot, _ *options.ChainSummary) (float64, error) {
			rv, err := needPositive(snap.Volume.Relative, "relative_volume")
			if err != nil {
				return 0, err
			}
			return ramp(rv, 1.0, 3.0), nil
		}},
		{Name: "vwap_posture", Weight: 0.20, Eval: func(snap *features.Snapshot, _ *options.ChainSummary) (float64, error) {
			dist, err := need(snap.Technical.VWAPDistancePct, "vwap_distance")
			if err != nil {
				return 0, err
			}
			return ramp(dist, 0, 1.5), nil
		}},
		{Name: "flow_alignment", Weight: 0.15, Eval: func(snap *features.Snapshot, _ *options.ChainSummary) (float64, error) {
			if snap.Flow.Bias == nil {
				return 0, errMissing("flow_bias")
			}
			score := features.Float(snap.Flow.Score, 50)
			switch *snap.Flow.Bias {
			case features.BiasBullish:
				return score, nil
			case features.BiasNeutral:
				return 50, nil
			default:
				return invRamp(score, 0, 100), nil
			}
		}},
		{Name: "multi_frame_confirm", Weight: 0.10, Eval: func(snap *features.Snapshot, _ *options.ChainSummary) (float64, error) {
			frames := []*features.FrameSnapshot{snap.Frames.M5, snap.Frames.M15, snap.Frames.M60}
			confirming := 0
			for _, f := range frames {
				if frameAboveEMA9(f) {
					confirming++
				}
			}
			return float64(confirming) / float64(len(frames)) * 100, nil
		}},
	}
}

// BreakoutBearish is the short-side mirror: a break of the opening-range low
// on expanded volume below VWAP.
type BreakoutBearish struct{}

func (BreakoutBearish) TypeID() string { return "breakout_bearish" }
func (BreakoutBearish) Direction() Direction { return Short }
func (BreakoutBearish) Scope() market.AssetClass { return market.ClassAny }
func (BreakoutBearish) RequiresOptions() bool { return false }
func (BreakoutBearish) IdealTimeframe() string { return "5m" }

func (BreakoutBearish) Detect(snap *features.Snapshot, _ *options.ChainSummary) bool {
	price := snap.Price.Current
	orbLow := snap.Pattern.ORBLow
	if !features.ValidPositive(price) || !features.ValidPositive(orbLow) {
		return false
	}
	if *price >= *orbLow {
		return false
	}
	if !features.ValidPositive(snap.Volume.Relative) || *snap.Volume.Relative < 1.5 {
		return false
	}
	return !features.ValidPositive(snap.Technical.VWAP) || *price < *snap.Technical.VWAP
}

func (BreakoutBearish) Factors() []ScoreFactor {
	return []ScoreFactor{
		{Name: "range_break_strength", Weight: 0.30, Eval: func(snap *features.Snapshot, _ *options.ChainSummary) (float64, error) {
			price, err := needPositive(snap.Price.Current, "price")
			if err != nil {
				return 0, err
			}
			orbLow, err := needPositive(snap.Pattern.ORBLow, "orb_low")
			if err != nil {
				return 0, err
			}
			units, err := atrUnits(snap, orbLow-price)
			if err != nil {
				return 0, err
			}
			return ramp(units, 0, 0.5), nil
		}},
		{Name: "relative_volume", Weight: 0.25, Eval: func(snap *features.Snapshot, _ *options.ChainSummary) (float64, error) {
			rv, err := needPositive(snap.Volume.Relative, "relative_volume")
			if err != nil {
				return 0, err
			}
			return ramp(rv, 1.0, 3.0), nil
		}},
		{Name: "vwap_posture", Weight: 0.20, Eval: func(snap *features.Snapshot, _ *options.ChainSummary) (float64, error) {
			dist, err := need(snap.Technical.VWAPDistancePct, "vwap_distance")
			if err != nil {
				return 0, err
			}
			return ramp(-dist, 0, 1.5), nil
		}},
		{Name: "flow_alignment", Weight: 0.15, Eval: func(snap *features.Snapshot, _ *options.ChainSummary) (float64, error) {
			if snap.Flow.Bias == nil {
				return 0, errMissing("flow_bias")
			}
			score := features.Float(snap.Flow.Score, 50)
			switch *snap.Flow.Bias {
			case features.BiasBearish:
				return score, nil
			case features.BiasNeutral:
				return 50, nil
			default:
				return invRamp(score, 0, 100), nil
			}
		}},
		{Name: "multi_frame_confirm", Weight: 0.10, Eval: func(snap *features.Snapshot, _ *options.ChainSummary) (float64, error) {
			frames := []*features.FrameSnapshot{snap.Frames.M5, snap.Frames.M15, snap.Frames.M60}
			confirming := 0
			for _, f := range frames {
				if frameBelowEMA9(f) {
					confirming++
				}
			}
			return float64(confirming) / float64(len(frames)) * 100, nil
		}},
	}
}
