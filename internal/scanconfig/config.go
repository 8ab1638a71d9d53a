package scanconfig

import (
	"fmt"
	"os"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/pulsedeck/scanner/internal/market"
)

// Thresholds is one fully-resolved threshold set.
type Thresholds struct {
	MinBase                    float64 `yaml:"min_base" json:"min_base"`
	MinStyle                   float64 `yaml:"min_style" json:"min_style"`
	MinRiskReward              float64 `yaml:"min_risk_reward" json:"min_risk_reward"`
	MaxSignalsPerSymbolPerHour int     `yaml:"max_signals_per_symbol_per_hour" json:"max_signals_per_symbol_per_hour"`
	CooldownMinutes            int     `yaml:"cooldown_minutes" json:"cooldown_minutes"`
}

// Override is a partial threshold set. Nil fields inherit from the previous
// layer of the precedence chain; set fields win.
type Override struct {
	MinBase                    *float64 `yaml:"min_base,omitempty"`
	MinStyle                   *float64 `yaml:"min_style,omitempty"`
	MinRiskReward              *float64 `yaml:"min_risk_reward,omitempty"`
	MaxSignalsPerSymbolPerHour *int     `yaml:"max_signals_per_symbol_per_hour,omitempty"`
	CooldownMinutes            *int     `yaml:"cooldown_minutes,omitempty"`
}

func (t Thresholds) apply(o Override) Thresholds {
	if o.MinBase != nil {
		t.MinBase = *o.MinBase
	}
	if o.MinStyle != nil {
		t.MinStyle = *o.MinStyle
	}
	if o.MinRiskReward != nil {
		t.MinRiskReward = *o.MinRiskReward
	}
	if o.MaxSignalsPerSymbolPerHour != nil {
		t.MaxSignalsPerSymbolPerHour = *o.MaxSignalsPerSymbolPerHour
	}
	if o.CooldownMinutes != nil {
		t.CooldownMinutes = *o.CooldownMinutes
	}
	return t
}

// PreFilters are the universal symbol filters run before any detector.
type PreFilters struct {
	Blacklist          []string `yaml:"blacklist"`
	RequireMarketHours bool     `yaml:"require_market_hours" default:"true"`
	MinRelativeVolume  float64  `yaml:"min_relative_volume" default:"0.3"`
	MaxSpreadPct       float64  `yaml:"max_spread_pct" default:"1.0"`
	MinAvgVolume       float64  `yaml:"min_avg_volume" default:"0"`
	RequireAvgVolume   bool     `yaml:"require_avg_volume"`
}

// Config is the scanner configuration: defaults plus the two override axes
// of the precedence chain (asset class, then strategy type), the universal
// pre-filters, and the confidence floor pair.
type Config struct {
	Owner string `yaml:"owner" validate:"required"`

	Defaults Thresholds `yaml:"defaults"`

	// AssetClassOverrides merges over Defaults, keyed by asset class.
	AssetClassOverrides map[market.AssetClass]Override `yaml:"asset_class_overrides"`

	// StrategyTypeOverrides merges last, keyed by detector type id.
	StrategyTypeOverrides map[string]Override `yaml:"strategy_type_overrides"`

	PreFilters PreFilters `yaml:"pre_filters"`

	// Confidence floor pair applied when a strategy carries no override.
	MinConfidence   float64 `yaml:"min_confidence" default:"40" validate:"gte=0,lte=100"`
	ReadyConfidence float64 `yaml:"ready_confidence" default:"70" validate:"gte=0,lte=100"`
}

// Default returns the built-in configuration used by tests and as the base
// for file loading.
func Default() Config {
	cfg := Config{
		Owner: "core",
		Defaults: Thresholds{
			MinBase:                    65,
			MinStyle:                   60,
			MinRiskReward:              1.5,
			MaxSignalsPerSymbolPerHour: 4,
			CooldownMinutes:            5,
		},
	}
	_ = defaults.Set(&cfg)
	return cfg
}

// Load reads, defaults, and validates a YAML configuration file.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read scanner config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse scanner config %s: %w", path, err)
	}
	if err := defaults.Set(&cfg); err != nil {
		return cfg, fmt.Errorf("apply config defaults: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid scanner config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate fails loud on malformed configuration at load time.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}
	if c.ReadyConfidence < c.MinConfidence {
		return fmt.Errorf("ready_confidence %.0f below min_confidence %.0f", c.ReadyConfidence, c.MinConfidence)
	}
	if c.Defaults.MinBase < 0 || c.Defaults.MinBase > 100 {
		return fmt.Errorf("defaults.min_base %.1f out of range", c.Defaults.MinBase)
	}
	return nil
}

// Resolve walks the precedence chain default -> asset-class -> strategy-type
// into one effective threshold set.
func (c Config) Resolve(class market.AssetClass, strategyType string) Thresholds {
	eff := c.Defaults
	if o, ok := c.AssetClassOverrides[class]; ok {
		eff = eff.apply(o)
	}
	if o, ok := c.StrategyTypeOverrides[strategyType]; ok {
		eff = eff.apply(o)
	}
	return eff
}
