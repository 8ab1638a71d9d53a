package features

import (
	"math"
	"time"
)

// Bias is the directional lean reported by the options-flow pipeline.
type Bias string

const (
	BiasBullish Bias = "bullish"
	BiasBearish Bias = "bearish"
	BiasNeutral Bias = "neutral"
)

// MarketRegime is the upstream pipeline's label for overall tape character.
// It is distinct from the volatility regime, which this engine derives from
// the VIX level itself.
type MarketRegime string

const (
	RegimeTrending MarketRegime = "trending"
	RegimeChoppy   MarketRegime = "choppy"
	RegimeVolatile MarketRegime = "volatile"
	RegimeQuiet    MarketRegime = "quiet"
)

// Snapshot is the per-symbol, per-bar feature bundle produced by the market
// feature pipeline. It is read-only to the scanning engine: nothing in this
// repository mutates a snapshot after it is handed in. Optional fields are
// pointers; a nil pointer means the upstream pipeline could not compute the
// value, which the confidence scorer absorbs as a completeness discount.
type Snapshot struct {
	Symbol  string    `json:"symbol"`
	BarTime time.Time `json:"bar_time"`

	Price     PriceBlock     `json:"price"`
	Volume    VolumeBlock    `json:"volume"`
	Technical TechnicalBlock `json:"technical"`
	Frames    TimeframeSet   `json:"frames"`
	Flow      FlowBlock      `json:"flow"`
	Pattern   PatternBlock   `json:"pattern"`
	Session   SessionBlock   `json:"session"`
}

// PriceBlock holds the current and reference prices for the bar.
type PriceBlock struct {
	Current       *float64 `json:"current,omitempty"`
	Previous      *float64 `json:"previous,omitempty"`
	PreviousClose *float64 `json:"previous_close,omitempty"`
	SpreadPct     *float64 `json:"spread_pct,omitempty"` // bid/ask spread as % of mid, when quoted
}

// VolumeBlock holds raw and relative volume readings.
type VolumeBlock struct {
	Current  *float64 `json:"current,omitempty"`
	Average  *float64 `json:"average,omitempty"`  // trailing average for the timeframe
	Relative *float64 `json:"relative,omitempty"` // current / average
}

// TechnicalBlock holds indicator values computed upstream.
type TechnicalBlock struct {
	VWAP            *float64 `json:"vwap,omitempty"`
	VWAPDistancePct *float64 `json:"vwap_distance_pct,omitempty"` // signed % of price above/below VWAP
	RSI             *float64 `json:"rsi,omitempty"`
	EMA9            *float64 `json:"ema9,omitempty"`
	EMA20           *float64 `json:"ema20,omitempty"`
	ATR             *float64 `json:"atr,omitempty"`
}

// FrameSnapshot is the compact per-timeframe mirror carried for
// multi-timeframe confirmation.
type FrameSnapshot struct {
	Close  *float64 `json:"close,omitempty"`
	High   *float64 `json:"high,omitempty"`
	Low    *float64 `json:"low,omitempty"`
	Volume *float64 `json:"volume,omitempty"`
	RSI    *float64 `json:"rsi,omitempty"`
	EMA9   *float64 `json:"ema9,omitempty"`
}

// TimeframeSet carries the 1m/5m/15m/60m mirrors.
type TimeframeSet struct {
	M1  *FrameSnapshot `json:"1m,omitempty"`
	M5  *FrameSnapshot `json:"5m,omitempty"`
	M15 *FrameSnapshot `json:"15m,omitempty"`
	M60 *FrameSnapshot `json:"60m,omitempty"`
}

// FlowBlock holds options-flow derived readings.
type FlowBlock struct {
	Score *float64 `json:"score,omitempty"` // 0-100 aggressiveness score
	Bias  *Bias    `json:"bias,omitempty"`
}

// PatternBlock holds structural levels and regime labels.
type PatternBlock struct {
	ORBHigh      *float64     `json:"orb_high,omitempty"` // opening-range high
	ORBLow       *float64     `json:"orb_low,omitempty"`
	SwingHigh    *float64     `json:"swing_high,omitempty"`
	SwingLow     *float64     `json:"swing_low,omitempty"`
	VIX          *float64     `json:"vix,omitempty"`
	MarketRegime MarketRegime `json:"market_regime,omitempty"`
}

// SessionBlock describes where in the trading session the bar falls.
type SessionBlock struct {
	RegularHours     bool `json:"regular_hours"`
	MinutesSinceOpen int  `json:"minutes_since_open"`
}

// Valid reports whether an optional numeric field is present and usable.
// NaN and Inf readings from upstream are treated the same as missing.
func Valid(v *float64) bool {
	return v != nil && !math.IsNaN(*v) && !math.IsInf(*v, 0)
}

// ValidPositive is Valid with a strictly-positive requirement, used for
// fields like price and volume where zero means "no data".
func ValidPositive(v *float64) bool {
	return Valid(v) && *v > 0
}

// Float returns the value of an optional field, or fallback when missing.
func Float(v *float64, fallback float64) float64 {
	if Valid(v) {
		return *v
	}
	return fallback
}

// Ptr is a convenience for building snapshots in tests and adapters.
func Ptr(v float64) *float64 { return &v }

// BiasPtr is a convenience for building snapshots in tests and adapters.
func BiasPtr(b Bias) *Bias { return &b }
