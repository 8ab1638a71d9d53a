package regime

import (
	"github.com/pulsedeck/scanner/internal/features"
)

// Detector type ids referenced by the gating matrix. The detect package owns
// the implementations; the matrix only needs the names.
const (
	TypeBreakoutBullish      = "breakout_bullish"
	TypeBreakoutBearish      = "breakout_bearish"
	TypeVWAPReclaim          = "vwap_reclaim"
	TypeVWAPFade             = "vwap_fade"
	TypeTrendContinuation    = "trend_continuation_bullish"
	TypeFlowMomentumBullish  = "flow_momentum_bullish"
	TypeFlowMomentumBearish  = "flow_momentum_bearish"
	TypeGammaSqueeze         = "gamma_squeeze"
	TypeCapitulationReversal = "capitulation_reversal"
)

// GatePolicy describes which detector types may run in a volatility regime.
// An empty Enabled list with EnableAll set means everything runs unless
// denied; the deny list always wins over the allow list.
type GatePolicy struct {
	EnableAll bool     `json:"enable_all"`
	Enabled   []string `json:"enabled,omitempty"`
	Disabled  []string `json:"disabled,omitempty"`
	Rationale string   `json:"rationale"`

	// RequireFlowBias demands a non-nil directional flow bias before any
	// allowed detector may run. Used at the extreme regime, where absence
	// of flow data is a hard block rather than a soft penalty.
	RequireFlowBias bool `json:"require_flow_bias"`
}

// gatingMatrix is static configuration loaded once at init; no write path
// exists after that.
var gatingMatrix = map[VolRegime]GatePolicy{
	Low: {
		EnableAll: true,
		Disabled:  []string{TypeCapitulationReversal},
		Rationale: "calm tape: reversal plays need volatility expansion to work",
	},
	Medium: {
		EnableAll: true,
		Rationale: "normal tape: full strategy menu",
	},
	High: {
		Enabled: []string{
			TypeBreakoutBullish, TypeBreakoutBearish,
			TypeFlowMomentumBullish, TypeFlowMomentumBearish,
			TypeVWAPFade, TypeCapitulationReversal,
		},
		Disabled:  []string{TypeTrendContinuation, TypeGammaSqueeze},
		Rationale: "elevated vol: trend-following and gamma plays whipsaw, favor fast setups",
	},
	Extreme: {
		Enabled:         []string{TypeFlowMomentumBullish, TypeFlowMomentumBearish},
		RequireFlowBias: true,
		Rationale:       "extreme vol: only flow-confirmed momentum, and only with a live directional read",
	},
}

// Decision is the outcome of a gating check with its reason, kept
// machine-readable for scan observability.
type Decision struct {
	Allowed bool
	Reason  string
}

// ShouldRun decides whether a detector type may run in the given regime.
// flowBias may be nil; at regimes requiring flow confirmation that is a
// hard block.
func ShouldRun(detectorType string, reg VolRegime, flowBias *features.Bias) Decision {
	policy, ok := gatingMatrix[reg]
	if !ok {
		return Decision{Allowed: false, Reason: "unknown_regime"}
	}

	for _, denied := range policy.Disabled {
		if denied == detectorType {
			return Decision{Allowed: false, Reason: "regime_denied:" + string(reg)}
		}
	}

	allowed := policy.EnableAll
	if !allowed {
		for _, name := range policy.Enabled {
			if name == detectorType {
				allowed = true
				break
			}
		}
	}
	if !allowed {
		return Decision{Allowed: false, Reason: "regime_not_allowed:" + string(reg)}
	}

	if policy.RequireFlowBias && flowBias == nil {
		return Decision{Allowed: false, Reason: "flow_bias_required:" + string(reg)}
	}

	return Decision{Allowed: true, Reason: "regime_ok"}
}

// PolicyFor exposes the matrix entry for a regime, for the ops surface.
func PolicyFor(reg VolRegime) (GatePolicy, bool) {
	p, ok := gatingMatrix[reg]
	return p, ok
}
