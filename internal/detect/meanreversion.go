package detect

import (
	"github.com/pulsedeck/scanner/internal/features"
	"github.com/pulsedeck/scanner/internal/market"
	"github.com/pulsedeck/scanner/internal/options"
)

// VWAPReclaim triggers when price crosses back above VWAP from below with
// room left on the RSI, a classic intraday mean-reversion long.
type VWAPReclaim struct{}

func (VWAPReclaim) TypeID() string { return "vwap_reclaim" }
func (VWAPReclaim) Direction() Direction { return Long }
func (VWAPReclaim) Scope() market.AssetClass { return market.ClassAny }
func (VWAPReclaim) RequiresOptions() bool { return false }
func (VWAPReclaim) IdealTimeframe() string { return "5m" }

func (VWAPReclaim) Detect(snap *features.Snapshot, _ *options.ChainSummary) bool {
	price := snap.Price.Current
	prev := snap.Price.Previous
	vwap := snap.Technical.VWAP
	if !features.ValidPositive(price) || !features.ValidPositive(prev) || !features.ValidPositive(vwap) {
		return false
	}
	crossedUp := *prev < *vwap && *price > *vwap
	if !crossedUp {
		return false
	}
	return !features.Valid(snap.Technical.RSI) || *snap.Technical.RSI < 60
}

func (VWAPReclaim) Factors() []ScoreFactor {
	return []ScoreFactor{
		{Name: "reclaim_decisiveness", Weight: 0.30, Eval: func(snap *features.Snapshot, _ *options.ChainSummary) (float64, error) {
			price, err := needPositive(snap.Price.Current, "price")
			if err != nil {
				return 0, err
			}
			vwap, err := needPositive(snap.Technical.VWAP, "vwap")
			if err != nil {
				return 0, err
			}
			units, err := atrUnits(snap, price-vwap)
			if err != nil {
				return 0, err
			}
			return ramp(units, 0, 0.4), nil
		}},
		{Name: "rsi_recovery_room", Weight: 0.25, Eval: func(snap *features.Snapshot, _ *options.ChainSummary) (float64, error) {
			rsi, err := need(snap.Technical.RSI, "rsi")
			if err != nil {
				return 0, err
			}
			// More room below 60 means more reversion left to capture.
			return invRamp(rsi, 30, 60), nil
		}},
		{Name: "volume_confirmation", Weight: 0.25, Eval: func(snap *features.Snapshot, _ *options.ChainSummary) (float64, error) {
			rv, err := needPositive(snap.Volume.Relative, "relative_volume")
			if err != nil {
				return 0, err
			}
			return ramp(rv, 0.8, 2.0), nil
		}},
		{Name: "base_above_swing_low", Weight: 0.20, Eval: func(snap *features.Snapshot, _ *options.ChainSummary) (float64, error) {
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
			// A defended swing low within ~2 ATRs anchors the risk.
			return ramp(units, 0, 2.0), nil
		}},
	}
}

// VWAPFade triggers when price is stretched well above VWAP with an
// overbought RSI, the short-side reversion setup.
type VWAPFade struct{}

func (VWAPFade) TypeID() string { return "vwap_fade" }
func (VWAPFade) Direction() Direction { return Short }
func (VWAPFade) Scope() market.AssetClass { return market.ClassAny }
func (VWAPFade) RequiresOptions() bool { return false }
func (VWAPFade) IdealTimeframe() string { return "5m" }

func (VWAPFade) Detect(snap *features.Snapshot, _ *options.ChainSummary) bool {
	dist := snap.Technical.VWAPDistancePct
	rsi := snap.Technical.RSI
	if !features.Valid(dist) || !features.Valid(rsi) {
		return false
	}
	return *dist >= 1.5 && *rsi >= 65
}

func (VWAPFade) Factors() []ScoreFactor {
	return []ScoreFactor{
		{Name: "overextension", Weight: 0.35, Eval: func(snap *features.Snapshot, _ *options.ChainSummary) (float64, error) {
			dist, err := need(snap.Technical.VWAPDistancePct, "vwap_distance")
			if err != nil {
				return 0, err
			}
			return ramp(dist, 1.5, 4.0), nil
		}},
		{Name: "rsi_overbought", Weight: 0.25, Eval: func(snap *features.Snapshot, _ *options.ChainSummary) (float64, error) {
			rsi, err := need(snap.Technical.RSI, "rsi")
			if err != nil {
				return 0, err
			}
			return ramp(rsi, 65, 85), nil
		}},
		{Name: "exhaustion_volume", Weight: 0.20, Eval: func(snap *features.Snapshot, _ *options.ChainSummary) (float64, error) {
			rv, err := needPositive(snap.Volume.Relative, "relative_volume")
			if err != nil {
				return 0, err
			}
			// Fading works best once the chase tapers off.
			return invRamp(rv, 1.0, 3.0), nil
		}},
		{Name: "swing_high_proximity", Weight: 0.20, Eval: func(snap *features.Snapshot, _ *options.ChainSummary) (float64, error) {
			price, err := needPositive(snap.Price.Current, "price")
			if err != nil {
				return 0, err
			}
			swingHigh, err := needPositive(snap.Pattern.SwingHigh, "swing_high")
			if err != nil {
				return 0, err
			}
			units, err := atrUnits(snap, swingHigh-price)
			if err != nil {
				return 0, err
			}
			// Closer to overhead resistance scores higher.
			return invRamp(units, 0, 2.0), nil
		}},
	}
}
