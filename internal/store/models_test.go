package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fptr(v float64) *float64 { return &v }

func TestBarTimeKeyDeterministic(t *testing.T) {
	at := time.Date(2026, 1, 6, 15, 15, 0, 0, time.UTC)

	key := BarTimeKey(at, "5m")
	assert.Equal(t, "1767712500-5m", key)

	// Same instant in another zone yields the same key.
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	assert.Equal(t, key, BarTimeKey(at.In(loc), "5m"))

	assert.NotEqual(t, key, BarTimeKey(at, "15m"))
	assert.NotEqual(t, key, BarTimeKey(at.Add(5*time.Minute), "5m"))
}

func TestInferHorizon(t *testing.T) {
	assert.Equal(t, HorizonScalp, InferHorizon("1m"))
	assert.Equal(t, HorizonDay, InferHorizon("5m"))
	assert.Equal(t, HorizonDay, InferHorizon("15m"))
	assert.Equal(t, HorizonSwing, InferHorizon("60m"))
	assert.Equal(t, HorizonSwing, InferHorizon("D"))
	assert.Equal(t, HorizonLeap, InferHorizon("W"))
}

func TestConfidenceForLayering(t *testing.T) {
	strat := StrategyDefinition{Timeframe: "5m"}

	// No overrides: engine defaults pass through.
	min, ready := strat.ConfidenceFor(40, 70)
	assert.Equal(t, 40.0, min)
	assert.Equal(t, 70.0, ready)

	// Flat override replaces only the fields it sets.
	strat.Confidence.Min = fptr(50)
	min, ready = strat.ConfidenceFor(40, 70)
	assert.Equal(t, 50.0, min)
	assert.Equal(t, 70.0, ready)

	// Horizon-specific block wins over the flat override.
	strat.Confidence.ByHorizon = map[Horizon]ConfidencePair{
		HorizonDay: {Min: fptr(55), Ready: fptr(80)},
	}
	min, ready = strat.ConfidenceFor(40, 70)
	assert.Equal(t, 55.0, min)
	assert.Equal(t, 80.0, ready)

	// A different horizon's block is ignored.
	strat.Timeframe = "1m"
	min, ready = strat.ConfidenceFor(40, 70)
	assert.Equal(t, 50.0, min)
	assert.Equal(t, 70.0, ready)
}

func TestStrategyValidate(t *testing.T) {
	strat := StrategyDefinition{
		ID:        "a2b3c4d5-1111-2222-3333-444455556666",
		Slug:      "orb-breakout-long",
		TypeID:    "breakout_bullish",
		Timeframe: "5m",
	}
	require.NoError(t, strat.Validate())

	missing := strat
	missing.ID = ""
	assert.Error(t, missing.Validate())

	negative := strat
	negative.CooldownMinutes = -1
	assert.Error(t, negative.Validate())
}

func TestStrategyValidateReadyBelowMin(t *testing.T) {
	strat := StrategyDefinition{
		ID:     "a2b3c4d5-1111-2222-3333-444455556666",
		Slug:   "orb-breakout-long",
		TypeID: "breakout_bullish",
	}
	strat.Confidence.Min = fptr(70)
	strat.Confidence.Ready = fptr(60)

	err := strat.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ready threshold 60 below min 70")

	// Same rule applies inside a horizon block.
	strat.Confidence.Min, strat.Confidence.Ready = nil, nil
	strat.Confidence.ByHorizon = map[Horizon]ConfidencePair{
		HorizonScalp: {Min: fptr(80), Ready: fptr(50)},
	}
	assert.Error(t, strat.Validate())
}

func TestCooldownDuration(t *testing.T) {
	strat := StrategyDefinition{CooldownMinutes: 5}
	assert.Equal(t, 5*time.Minute, strat.Cooldown())
	assert.Zero(t, StrategyDefinition{}.Cooldown())
}
