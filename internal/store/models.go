package store

import (
	"fmt"
	"time"

	"github.com/pulsedeck/scanner/internal/market"
)

// Horizon is the inferred trade duration class of a strategy, used to key
// per-horizon confidence threshold overrides.
type Horizon string

const (
	HorizonScalp Horizon = "scalp"
	HorizonDay   Horizon = "day"
	HorizonSwing Horizon = "swing"
	HorizonLeap  Horizon = "leap"
)

// InferHorizon maps a bar timeframe to its trade horizon.
func InferHorizon(timeframe string) Horizon {
	switch timeframe {
	case "1m":
		return HorizonScalp
	case "5m", "15m":
		return HorizonDay
	case "60m", "1h", "4h", "D":
		return HorizonSwing
	default:
		return HorizonLeap
	}
}

// ConfidencePair is a min/ready threshold pair. Min gates emission; ready
// marks the signal fit for immediate action.
type ConfidencePair struct {
	Min   *float64 `json:"min,omitempty" yaml:"min,omitempty"`
	Ready *float64 `json:"ready,omitempty" yaml:"ready,omitempty"`
}

// ConfidenceOverrides is a strategy's confidence-threshold override block,
// optionally split by trade horizon.
type ConfidenceOverrides struct {
	ConfidencePair `yaml:",inline"`
	ByHorizon      map[Horizon]ConfidencePair `json:"by_horizon,omitempty" yaml:"by_horizon,omitempty"`
}

// StrategyDefinition is a configured, enabled instance of a detector type.
// Owned by configuration storage; read-only to the engine.
type StrategyDefinition struct {
	ID              string              `json:"id" db:"id" yaml:"id"`
	Slug            string              `json:"slug" db:"slug" yaml:"slug"`
	Owner           string              `json:"owner" db:"owner" yaml:"owner"`
	TypeID          string              `json:"type_id" db:"type_id" yaml:"type_id"`
	AssetScope      market.AssetClass   `json:"asset_scope" db:"asset_scope" yaml:"asset_scope"`
	Timeframe       string              `json:"timeframe" db:"timeframe" yaml:"timeframe"`
	CooldownMinutes int                 `json:"cooldown_minutes" db:"cooldown_minutes" yaml:"cooldown_minutes"`
	OncePerSession  bool                `json:"once_per_session" db:"once_per_session" yaml:"once_per_session"`
	Enabled         bool                `json:"enabled" db:"enabled" yaml:"enabled"`
	Confidence      ConfidenceOverrides `json:"confidence" yaml:"confidence"`
}

// Cooldown returns the strategy's cooldown window as a duration.
func (s StrategyDefinition) Cooldown() time.Duration {
	return time.Duration(s.CooldownMinutes) * time.Minute
}

// Horizon is the strategy's inferred trade horizon.
func (s StrategyDefinition) Horizon() Horizon {
	return InferHorizon(s.Timeframe)
}

// ConfidenceFor resolves the effective min/ready pair for the strategy,
// layering the horizon-specific block over the flat overrides over the
// given defaults.
func (s StrategyDefinition) ConfidenceFor(defaultMin, defaultReady float64) (min, ready float64) {
	min, ready = defaultMin, defaultReady
	if s.Confidence.Min != nil {
		min = *s.Confidence.Min
	}
	if s.Confidence.Ready != nil {
		ready = *s.Confidence.Ready
	}
	if pair, ok := s.Confidence.ByHorizon[s.Horizon()]; ok {
		if pair.Min != nil {
			min = *pair.Min
		}
		if pair.Ready != nil {
			ready = *pair.Ready
		}
	}
	return min, ready
}

// Validate fails loud on malformed definitions at load time. A ready
// threshold below the min threshold is a configuration error, never
// resolved implicitly.
func (s StrategyDefinition) Validate() error {
	if s.ID == "" || s.TypeID == "" {
		return fmt.Errorf("strategy %q: id and type_id are required", s.Slug)
	}
	if s.CooldownMinutes < 0 {
		return fmt.Errorf("strategy %s: negative cooldown", s.Slug)
	}
	check := func(scope string, p ConfidencePair) error {
		if p.Min != nil && p.Ready != nil && *p.Ready < *p.Min {
			return fmt.Errorf("strategy %s: %s ready threshold %.0f below min %.0f", s.Slug, scope, *p.Ready, *p.Min)
		}
		return nil
	}
	if err := check("base", s.Confidence.ConfidencePair); err != nil {
		return err
	}
	for horizon, pair := range s.Confidence.ByHorizon {
		if err := check(string(horizon), pair); err != nil {
			return err
		}
	}
	return nil
}

// SignalStatus is the lifecycle state of an emitted signal. The engine only
// ever writes StatusActive; later transitions belong to downstream
// consumers.
type SignalStatus string

const (
	StatusActive SignalStatus = "active"
)

// SignalPayload is the resolved context attached to a signal at emission.
// Explicit optional fields, not an open map, so downstream consumers and
// the scoring code share one known shape.
type SignalPayload struct {
	Time            time.Time `json:"time"`
	Price           *float64  `json:"price,omitempty"`
	Confidence      float64   `json:"confidence"`
	ConfidenceReady bool      `json:"confidence_ready"`
	BaseScore       float64   `json:"base_score"`
	AdjustedScore   float64   `json:"adjusted_score"`
	SizeMult        float64   `json:"size_mult"`
	Rationale       string    `json:"rationale,omitempty"`
}

// Signal is an emitted trade signal. Immutable to the engine after
// creation; downstream consumers own status transitions.
type Signal struct {
	ID              string        `json:"id" db:"id"`
	Owner           string        `json:"owner" db:"owner"`
	StrategyID      string        `json:"strategy_id" db:"strategy_id"`
	Symbol          string        `json:"symbol" db:"symbol"`
	Direction       string        `json:"direction" db:"direction"`
	Confidence      float64       `json:"confidence" db:"confidence"`
	ConfidenceReady bool          `json:"confidence_ready" db:"confidence_ready"`
	Status          SignalStatus  `json:"status" db:"status"`
	BarTimeKey      string        `json:"bar_time_key" db:"bar_time_key"`
	SignalTime      time.Time     `json:"signal_time" db:"signal_time"`
	Payload         SignalPayload `json:"payload"`
	CreatedAt       time.Time     `json:"created_at" db:"created_at"`
}

// BarTimeKey builds the deterministic idempotency key for a signal: the
// feature bar timestamp combined with the strategy's bar timeframe. Two
// scans over the same bar always produce the same key.
func BarTimeKey(barTime time.Time, timeframe string) string {
	return fmt.Sprintf("%d-%s", barTime.Unix(), timeframe)
}
