package detect

import (
	"github.com/pulsedeck/scanner/internal/features"
	"github.com/pulsedeck/scanner/internal/market"
	"github.com/pulsedeck/scanner/internal/options"
)

// TrendContinuationBullish triggers on a stacked EMA structure with a
// healthy (not overbought) RSI, looking for the next leg of an established
// intraday trend.
type TrendContinuationBullish struct{}

func (TrendContinuationBullish) TypeID() string { return "trend_continuation_bullish" }
func (TrendContinuationBullish) Direction() Direction { return Long }
func (TrendContinuationBullish) Scope() market.AssetClass { return market.ClassAny }
func (TrendContinuationBullish) RequiresOptions() bool { return false }
func (TrendContinuationBullish) IdealTimeframe() string { return "15m" }

func (TrendContinuationBullish) Detect(snap *features.Snapshot, _ *options.ChainSummary) bool {
	price := snap.Price.Current
	ema9 := snap.Technical.EMA9
	ema20 := snap.Technical.EMA20
	if !features.ValidPositive(price) || !features.ValidPositive(ema9) || !features.ValidPositive(ema20) {
		return false
	}
	if !(*price > *ema9 && *ema9 > *ema20) {
		return false
	}
	rsi := snap.Technical.RSI
	return !features.Valid(rsi) || (*rsi >= 50 && *rsi <= 75)
}

func (TrendContinuationBullish) Factors() []ScoreFactor {
	return []ScoreFactor{
		{Name: "ema_stack_quality", Weight: 0.30, Eval: func(snap *features.Snapshot, _ *options.ChainSummary) (float64, error) {
			ema9, err := needPositive(snap.Technical.EMA9, "ema9")
			if err != nil {
				return 0, err
			}
			ema20, err := needPositive(snap.Technical.EMA20, "ema20")
			if err != nil {
				return 0, err
			}
			spreadPct := 100 * (ema9 - ema20) / ema20
			return ramp(spreadPct, 0, 0.8), nil
		}},
		{Name: "rsi_posture", Weight: 0.20, Eval: func(snap *features.Snapshot, _ *options.ChainSummary) (float64, error) {
			rsi, err := need(snap.Technical.RSI, "rsi")
			if err != nil {
				return 0, err
			}
			// Sweet spot around 60: trending but not exhausted.
			if rsi <= 60 {
				return ramp(rsi, 45, 60), nil
			}
			return invRamp(rsi, 60, 80), nil
		}},
		{Name: "higher_frame_trend", Weight: 0.25, Eval: func(snap *features.Snapshot, _ *options.ChainSummary) (float64, error) {
			frames := []*features.FrameSnapshot{snap.Frames.M15, snap.Frames.M60}
			confirming := 0
			for _, f := range frames {
				if frameAboveEMA9(f) {
					confirming++
				}
			}
			return float64(confirming) / float64(len(frames)) * 100, nil
		}},
		{Name: "participation", Weight: 0.15, Eval: func(snap *features.Snapshot, _ *options.ChainSummary) (float64, error) {
			rv, err := needPositive(snap.Volume.Relative, "relative_volume")
			if err != nil {
				return 0, err
			}
			return ramp(rv, 0.8, 2.0), nil
		}},
		{Name: "vwap_posture", Weight: 0.10, Eval: func(snap *features.Snapshot, _ *options.ChainSummary) (float64, error) {
			dist, err := need(snap.Technical.VWAPDistancePct, "vwap_distance")
			if err != nil {
				return 0, err
			}
			return ramp(dist, 0, 1.0), nil
		}},
	}
}

// flowMomentum is the shared implementation of the flow-confirmed momentum
// pair. These are the only detectors the gating matrix admits at the
// extreme volatility regime, and they refuse to trigger without a live
// directional flow read.
type flowMomentum struct {
	typeID    string
	direction Direction
	bias      features.Bias
}

// FlowMomentumBullish is flow-confirmed upside momentum.
func FlowMomentumBullish() Detector {
	return flowMomentum{typeID: "flow_momentum_bullish", direction: Long, bias: features.BiasBullish}
}

// FlowMomentumBearish is flow-confirmed downside momentum.
func FlowMomentumBearish() Detector {
	return flowMomentum{typeID: "flow_momentum_bearish", direction: Short, bias: features.BiasBearish}
}

func (d flowMomentum) TypeID() string { return d.typeID }
func (d flowMomentum) Direction() Direction { return d.direction }
func (d flowMomentum) Scope() market.AssetClass { return market.ClassAny }
func (d flowMomentum) RequiresOptions() bool { return false }
func (d flowMomentum) IdealTimeframe() string { return "1m" }

func (d flowMomentum) Detect(snap *features.Snapshot, _ *options.ChainSummary) bool {
	if snap.Flow.Bias == nil || *snap.Flow.Bias != d.bias {
		return false
	}
	if !features.Valid(snap.Flow.Score) || *snap.Flow.Score < 60 {
		return false
	}
	price := snap.Price.Current
	prev := snap.Price.Previous
	if !features.ValidPositive(price) || !features.ValidPositive(prev) {
		return false
	}
	if d.direction == Long {
		return *price > *prev
	}
	return *price < *prev
}

func (d flowMomentum) Factors() []ScoreFactor {
	return []ScoreFactor{
		{Name: "flow_intensity", Weight: 0.35, Eval: func(snap *features.Snapshot, _ *options.ChainSummary) (float64, error) {
			score, err := need(snap.Flow.Score, "flow_score")
			if err != nil {
				return 0, err
			}
			return ramp(score, 60, 95), nil
		}},
		{Name: "price_thrust", Weight: 0.25, Eval: func(snap *features.Snapshot, _ *options.ChainSummary) (float64, error) {
			price, err := needPositive(snap.Price.Current, "price")
			if err != nil {
				return 0, err
			}
			prev, err := needPositive(snap.Price.Previous, "previous_price")
			if err != nil {
				return 0, err
			}
			move := price - prev
			if d.direction == Short {
				move = -move
			}
			units, err := atrUnits(snap, move)
			if err != nil {
				return 0, err
			}
			return ramp(units, 0, 0.6), nil
		}},
		{Name: "relative_volume", Weight: 0.20, Eval: func(snap *features.Snapshot, _ *options.ChainSummary) (float64, error) {
			rv, err := needPositive(snap.Volume.Relative, "relative_volume")
			if err != nil {
				return 0, err
			}
			return ramp(rv, 1.0, 3.5), nil
		}},
		{Name: "vwap_posture", Weight: 0.20, Eval: func(snap *features.Snapshot, _ *options.ChainSummary) (float64, error) {
			dist, err := need(snap.Technical.VWAPDistancePct, "vwap_distance")
			if err != nil {
				return 0, err
			}
			if d.direction == Short {
				dist = -dist
			}
			return ramp(dist, 0, 1.5), nil
		}},
	}
}
