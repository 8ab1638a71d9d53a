package confidence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsedeck/scanner/internal/features"
)

// weekdayBar is a Tuesday during regular hours, so the live-session weight
// table applies.
var weekdayBar = time.Date(2026, 1, 6, 10, 15, 0, 0, time.UTC)

func fullSnapshot() *features.Snapshot {
	return &features.Snapshot{
		Symbol:  "SPY",
		BarTime: weekdayBar,
		Price: features.PriceBlock{
			Current:       features.Ptr(502.10),
			Previous:      features.Ptr(501.40),
			PreviousClose: features.Ptr(498.75),
		},
		Volume: features.VolumeBlock{
			Current:  features.Ptr(1_850_000),
			Average:  features.Ptr(925_000),
			Relative: features.Ptr(2.0),
		},
		Technical: features.TechnicalBlock{
			VWAP:            features.Ptr(500.20),
			VWAPDistancePct: features.Ptr(0.38),
			RSI:             features.Ptr(58.0),
			EMA9:            features.Ptr(501.10),
			EMA20:           features.Ptr(499.80),
			ATR:             features.Ptr(2.4),
		},
		Frames: features.TimeframeSet{
			M1:  &features.FrameSnapshot{Close: features.Ptr(502.05)},
			M5:  &features.FrameSnapshot{Close: features.Ptr(501.90)},
			M15: &features.FrameSnapshot{Close: features.Ptr(501.20)},
			M60: &features.FrameSnapshot{Close: features.Ptr(500.10)},
		},
		Flow: features.FlowBlock{
			Score: features.Ptr(72.0),
			Bias:  features.BiasPtr(features.BiasBullish),
		},
		Pattern: features.PatternBlock{
			ORBHigh:      features.Ptr(501.80),
			ORBLow:       features.Ptr(499.10),
			SwingHigh:    features.Ptr(503.50),
			SwingLow:     features.Ptr(497.90),
			VIX:          features.Ptr(18.0),
			MarketRegime: features.RegimeTrending,
		},
		Session: features.SessionBlock{RegularHours: true, MinutesSinceOpen: 45},
	}
}

func TestScoreAllFieldsPresent(t *testing.T) {
	sc := NewScorer()
	res := sc.Score(fullSnapshot())

	assert.Equal(t, 100.0, res.DataCompletenessScore)
	assert.Equal(t, 100.0, res.BaseConfidence)
	// 90%+ completeness earns the +5 bonus, clamped at 100.
	assert.Equal(t, 100.0, res.AdjustedConfidence)
	assert.Equal(t, LevelHigh, res.Level)
	assert.Empty(t, res.MissingCritical)
	assert.Empty(t, res.Warnings)
	assert.False(t, res.WeekendTable)
	assert.True(t, sc.Passes(res))
}

func TestScoreMissingCriticalsDropsBelowFifty(t *testing.T) {
	snap := fullSnapshot()
	snap.Price.Current = nil
	snap.Volume.Current = nil

	res := NewScorer().Score(snap)

	require.Len(t, res.MissingCritical, 2)
	assert.Contains(t, res.MissingCritical, "price")
	assert.Contains(t, res.MissingCritical, "volume")

	// Two missing criticals cap base confidence at 70 via stacked min().
	assert.Equal(t, 70.0, res.BaseConfidence)
	assert.Less(t, res.AdjustedConfidence, 50.0)
	assert.NotEmpty(t, res.Warnings)
}

func TestScoreSingleMissingCriticalCapsAt85(t *testing.T) {
	snap := fullSnapshot()
	snap.Technical.RSI = nil

	res := NewScorer().Score(snap)

	require.Equal(t, []string{"rsi"}, res.MissingCritical)
	assert.Equal(t, 85.0, res.BaseConfidence)
}

func TestScoreNaNCountsAsMissing(t *testing.T) {
	snap := fullSnapshot()
	nan := 0.0
	nan /= nan
	snap.Technical.VWAP = &nan

	res := NewScorer().Score(snap)
	assert.Contains(t, res.MissingCritical, "vwap")
}

func TestScoreMissingOptionalFieldsOnlyDiscountsCompleteness(t *testing.T) {
	snap := fullSnapshot()
	snap.Frames.M60 = nil
	snap.Pattern.SwingHigh = nil

	res := NewScorer().Score(snap)

	assert.Empty(t, res.MissingCritical)
	assert.Equal(t, 100.0, res.BaseConfidence)
	assert.Less(t, res.DataCompletenessScore, 100.0)
	assert.Contains(t, res.MissingMinor, "frames_60m")
	assert.Contains(t, res.MissingMinor, "swing_high")
}

func TestScoreWeekendUsesRelaxedTable(t *testing.T) {
	snap := fullSnapshot()
	snap.BarTime = time.Date(2026, 1, 10, 15, 0, 0, 0, time.UTC) // Saturday
	snap.Volume.Current = nil
	snap.Flow.Score = nil
	snap.Flow.Bias = nil

	res := NewScorer().Score(snap)

	assert.True(t, res.WeekendTable)
	// Volume loses its critical flag off-hours, so no base cap applies.
	assert.Empty(t, res.MissingCritical)
	assert.Equal(t, 100.0, res.BaseConfidence)
}

func TestLevelFor(t *testing.T) {
	assert.Equal(t, LevelHigh, LevelFor(90))
	assert.Equal(t, LevelHigh, LevelFor(80))
	assert.Equal(t, LevelMedium, LevelFor(70))
	assert.Equal(t, LevelLow, LevelFor(50))
	assert.Equal(t, LevelVeryLow, LevelFor(30))
}

func TestTierAdjustment(t *testing.T) {
	assert.Equal(t, -20.0, tierAdjustment(49.9))
	assert.Equal(t, -10.0, tierAdjustment(50))
	assert.Equal(t, -10.0, tierAdjustment(69.9))
	assert.Equal(t, 0.0, tierAdjustment(70))
	assert.Equal(t, 0.0, tierAdjustment(89.9))
	assert.Equal(t, 5.0, tierAdjustment(90))
}

func TestPassesRespectsConfiguredFloor(t *testing.T) {
	snap := fullSnapshot()
	snap.Price.Current = nil
	snap.Volume.Current = nil

	res := NewScorer().Score(snap)
	require.Less(t, res.AdjustedConfidence, 50.0)

	assert.False(t, NewScorer().Passes(res))
	assert.True(t, NewScorerWithMin(20).Passes(res))
}

func TestApplyToScore(t *testing.T) {
	res := Result{AdjustedConfidence: 89, Multiplier: 0.89, Level: LevelHigh, DataCompletenessScore: 89}

	adjusted, rationale := ApplyToScore(82, res)
	assert.Equal(t, 73.0, adjusted)
	assert.Contains(t, rationale, "base 82")
	assert.Contains(t, rationale, "confidence 89%")
}

func TestWeekendTableDerivedFromStandard(t *testing.T) {
	std := StandardWeights()
	wk := WeekendWeights()
	require.Len(t, wk, len(std))

	byName := map[string]FieldWeight{}
	for _, fw := range wk {
		byName[fw.Name] = fw
	}
	assert.False(t, byName["volume"].Critical)
	assert.False(t, byName["vwap"].Critical)
	assert.True(t, byName["price"].Critical)
	assert.Greater(t, byName["previous_close"].Weight, byName["flow_score"].Weight)
}
