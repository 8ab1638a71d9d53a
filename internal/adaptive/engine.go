package adaptive

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/pulsedeck/scanner/internal/features"
	"github.com/pulsedeck/scanner/internal/regime"
)

// StrategyCategory groups detector types for the market-regime table.
type StrategyCategory string

const (
	CategoryBreakout          StrategyCategory = "breakout"
	CategoryMeanReversion     StrategyCategory = "mean_reversion"
	CategoryTrendContinuation StrategyCategory = "trend_continuation"
	CategoryGamma             StrategyCategory = "gamma"
	CategoryReversal          StrategyCategory = "reversal"
	CategoryDefault           StrategyCategory = "default"
)

// Categorize buckets a detector type id by substring match, most specific
// first. Unrecognized ids fall into the catch-all category.
func Categorize(detectorType string) StrategyCategory {
	t := strings.ToLower(detectorType)
	switch {
	case strings.Contains(t, "gamma"):
		return CategoryGamma
	case strings.Contains(t, "breakout"):
		return CategoryBreakout
	case strings.Contains(t, "vwap") || strings.Contains(t, "mean_rev"):
		return CategoryMeanReversion
	case strings.Contains(t, "trend") || strings.Contains(t, "continuation"):
		return CategoryTrendContinuation
	case strings.Contains(t, "reversal") || strings.Contains(t, "capitulation"):
		return CategoryReversal
	default:
		return CategoryDefault
	}
}

// VIXAdjustment is the volatility-regime contribution: additive threshold
// deltas plus a multiplicative size factor.
type VIXAdjustment struct {
	BaseDelta  float64 `json:"base_delta"`
	StyleDelta float64 `json:"style_delta"`
	RRDelta    float64 `json:"rr_delta"`
	SizeFactor float64 `json:"size_factor"`
}

var vixAdjustments = map[regime.VolRegime]VIXAdjustment{
	regime.Low:     {BaseDelta: -2, StyleDelta: -2, RRDelta: -0.1, SizeFactor: 1.1},
	regime.Medium:  {BaseDelta: 0, StyleDelta: 0, RRDelta: 0, SizeFactor: 1.0},
	regime.High:    {BaseDelta: 5, StyleDelta: 4, RRDelta: 0.3, SizeFactor: 0.75},
	regime.Extreme: {BaseDelta: 12, StyleDelta: 10, RRDelta: 0.5, SizeFactor: 0.5},
}

// RegimeRule is one cell of the market-regime x strategy-category table.
type RegimeRule struct {
	MinBase       float64 `json:"min_base"`
	MinRiskReward float64 `json:"min_risk_reward"`
	Enabled       bool    `json:"enabled"`
	Rationale     string  `json:"rationale"`
}

// regimeRules keys the table by market-regime label then strategy category.
// Static configuration: loaded once, never written after init.
var regimeRules = map[features.MarketRegime]map[StrategyCategory]RegimeRule{
	features.RegimeTrending: {
		CategoryBreakout:          {MinBase: 70, MinRiskReward: 1.5, Enabled: true, Rationale: "breakouts follow through in trends"},
		CategoryMeanReversion:     {MinBase: 78, MinRiskReward: 2.0, Enabled: false, Rationale: "fading a trend is fighting the tape"},
		CategoryTrendContinuation: {MinBase: 68, MinRiskReward: 1.4, Enabled: true, Rationale: "continuation is the trend's home game"},
		CategoryGamma:             {MinBase: 72, MinRiskReward: 1.6, Enabled: true, Rationale: "dealer positioning amplifies trends"},
		CategoryReversal:          {MinBase: 80, MinRiskReward: 2.5, Enabled: false, Rationale: "calling tops/bottoms in a trend is low odds"},
		CategoryDefault:           {MinBase: 72, MinRiskReward: 1.6, Enabled: true, Rationale: "uncategorized: neutral trending defaults"},
	},
	features.RegimeChoppy: {
		CategoryBreakout:          {MinBase: 78, MinRiskReward: 2.0, Enabled: false, Rationale: "chop kills breakouts with false starts"},
		CategoryMeanReversion:     {MinBase: 68, MinRiskReward: 1.4, Enabled: true, Rationale: "range edges revert reliably in chop"},
		CategoryTrendContinuation: {MinBase: 78, MinRiskReward: 2.0, Enabled: false, Rationale: "no trend to continue"},
		CategoryGamma:             {MinBase: 74, MinRiskReward: 1.8, Enabled: true, Rationale: "pinning dynamics still tradeable"},
		CategoryReversal:          {MinBase: 72, MinRiskReward: 1.6, Enabled: true, Rationale: "range extremes are reversal territory"},
		CategoryDefault:           {MinBase: 75, MinRiskReward: 1.8, Enabled: true, Rationale: "uncategorized: cautious chop defaults"},
	},
	features.RegimeVolatile: {
		CategoryBreakout:          {MinBase: 74, MinRiskReward: 1.8, Enabled: true, Rationale: "real moves start as breakouts when vol expands"},
		CategoryMeanReversion:     {MinBase: 80, MinRiskReward: 2.2, Enabled: false, Rationale: "reversion stops get run in fast tape"},
		CategoryTrendContinuation: {MinBase: 76, MinRiskReward: 2.0, Enabled: true, Rationale: "strong impulses extend, with tighter bar"},
		CategoryGamma:             {MinBase: 78, MinRiskReward: 2.0, Enabled: false, Rationale: "dealer hedging is unstable in fast tape"},
		CategoryReversal:          {MinBase: 74, MinRiskReward: 2.0, Enabled: true, Rationale: "capitulation extremes mark turns"},
		CategoryDefault:           {MinBase: 78, MinRiskReward: 2.0, Enabled: true, Rationale: "uncategorized: conservative volatile defaults"},
	},
	features.RegimeQuiet: {
		CategoryBreakout:          {MinBase: 76, MinRiskReward: 1.8, Enabled: true, Rationale: "quiet-tape breakouts need extra conviction"},
		CategoryMeanReversion:     {MinBase: 70, MinRiskReward: 1.5, Enabled: true, Rationale: "low vol favors fading small stretches"},
		CategoryTrendContinuation: {MinBase: 74, MinRiskReward: 1.6, Enabled: true, Rationale: "slow grinds continue, slowly"},
		CategoryGamma:             {MinBase: 70, MinRiskReward: 1.5, Enabled: true, Rationale: "pinning strongest in quiet tape"},
		CategoryReversal:          {MinBase: 80, MinRiskReward: 2.5, Enabled: false, Rationale: "nothing to reverse"},
		CategoryDefault:           {MinBase: 74, MinRiskReward: 1.7, Enabled: true, Rationale: "uncategorized: quiet defaults"},
	},
}

// disabledPenalty is added on top of the regime floor when the strategy is
// flagged disabled for the regime. The caller still decides the hard reject
// from StrategyEnabled; the penalty only guarantees the floor is higher.
const disabledPenalty = 10.0

// Result is the composed adaptive threshold set. Every contribution is
// retained so a rejected signal can be audited after the fact.
type Result struct {
	Window          Window                `json:"window"`
	VolRegime       regime.VolRegime      `json:"vol_regime"`
	VIX             VIXAdjustment         `json:"vix_adjustment"`
	MarketRegime    features.MarketRegime `json:"market_regime"`
	Category        StrategyCategory      `json:"category"`
	RegimeRule      RegimeRule            `json:"regime_rule"`
	StrategyEnabled bool                  `json:"strategy_enabled"`

	MinBase       float64 `json:"min_base"`
	MinStyle      float64 `json:"min_style"`
	MinRiskReward float64 `json:"min_risk_reward"`
	SizeMult      float64 `json:"size_mult"`

	Warnings []string `json:"warnings,omitempty"`
}

// Engine composes the three orthogonal adjustments into one threshold set.
// It is stateless; results are recomputed per evaluation because they depend
// on wall-clock time.
type Engine struct{}

// NewEngine returns the adaptive threshold engine.
func NewEngine() *Engine { return &Engine{} }

// Resolve computes the adaptive thresholds for a detector type at an instant.
func (e *Engine) Resolve(at time.Time, volRegime regime.VolRegime, marketRegime features.MarketRegime, detectorType string) Result {
	window := ClassifyWindow(at)

	vix, ok := vixAdjustments[volRegime]
	if !ok {
		vix = vixAdjustments[regime.Medium]
	}

	category := Categorize(detectorType)

	rules, ok := regimeRules[marketRegime]
	if !ok {
		rules = regimeRules[features.RegimeChoppy]
	}
	rule, ok := rules[category]
	if !ok {
		rule = rules[CategoryDefault]
	}

	res := Result{
		Window:          window,
		VolRegime:       volRegime,
		VIX:             vix,
		MarketRegime:    marketRegime,
		Category:        category,
		RegimeRule:      rule,
		StrategyEnabled: rule.Enabled,
	}

	regimeFloor := rule.MinBase
	if !rule.Enabled {
		regimeFloor += disabledPenalty
		res.Warnings = append(res.Warnings,
			fmt.Sprintf("%s disabled in %s regime: %s", category, marketRegime, rule.Rationale))
	}

	// The regime table is never weaker than the time+VIX combination.
	res.MinBase = math.Max(window.MinBase+vix.BaseDelta, regimeFloor)
	res.MinStyle = window.MinStyle + vix.StyleDelta
	res.MinRiskReward = math.Max(window.MinRiskReward+vix.RRDelta, rule.MinRiskReward)
	res.SizeMult = window.SizeMult * vix.SizeFactor

	if window.SizeMult == 0 {
		res.Warnings = append(res.Warnings, "advisory window: signals are sized to zero")
	}

	return res
}
