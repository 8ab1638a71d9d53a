package detect

import (
	"github.com/pulsedeck/scanner/internal/features"
	"github.com/pulsedeck/scanner/internal/market"
	"github.com/pulsedeck/scanner/internal/options"
)

// GammaSqueeze triggers when dealers are short gamma while call buying
// outpaces puts on expanded volume: dealer hedging then chases price higher.
// Requires chain data; without it the detector never fires. Scoped to the
// liquid index/ETF complex where the dealer-positioning read is meaningful.
type GammaSqueeze struct{}

func (GammaSqueeze) TypeID() string { return "gamma_squeeze" }
func (GammaSqueeze) Direction() Direction { return Long }
func (GammaSqueeze) Scope() market.AssetClass { return market.ClassAny }
func (GammaSqueeze) RequiresOptions() bool { return true }
func (GammaSqueeze) IdealTimeframe() string { return "5m" }

func (GammaSqueeze) Detect(snap *features.Snapshot, chain *options.ChainSummary) bool {
	if chain == nil {
		return false
	}
	if chain.GammaExposure >= 0 {
		return false
	}
	if chain.CallVolume <= chain.PutVolume {
		return false
	}
	return features.ValidPositive(snap.Volume.Relative) && *snap.Volume.Relative >= 1.3
}

func (GammaSqueeze) Factors() []ScoreFactor {
	return []ScoreFactor{
		{Name: "negative_gamma_pressure", Weight: 0.35, Eval: func(_ *features.Snapshot, chain *options.ChainSummary) (float64, error) {
			if chain == nil {
				return 0, errMissing("chain")
			}
			// Deeper short-gamma positioning forces more dealer chasing.
			return ramp(-chain.GammaExposure, 0, 2_000_000), nil
		}},
		{Name: "call_skew", Weight: 0.25, Eval: func(_ *features.Snapshot, chain *options.ChainSummary) (float64, error) {
			if chain == nil || chain.PutVolume <= 0 {
				return 0, errMissing("chain volume")
			}
			return ramp(chain.CallVolume/chain.PutVolume, 1.0, 3.0), nil
		}},
		{Name: "iv_expansion_room", Weight: 0.15, Eval: func(_ *features.Snapshot, chain *options.ChainSummary) (float64, error) {
			if chain == nil {
				return 0, errMissing("chain")
			}
			// Low IV rank leaves room for the squeeze to reprice vol.
			return invRamp(chain.IVRank, 20, 90), nil
		}},
		{Name: "price_momentum", Weight: 0.25, Eval: func(snap *features.Snapshot, _ *options.ChainSummary) (float64, error) {
			price, err := needPositive(snap.Price.Current, "price")
			if err != nil {
				return 0, err
			}
			prev, err := needPositive(snap.Price.Previous, "previous_price")
			if err != nil {
				return 0, err
			}
			units, err := atrUnits(snap, price-prev)
			if err != nil {
				return 0, err
			}
			return ramp(units, 0, 0.5), nil
		}},
	}
}
