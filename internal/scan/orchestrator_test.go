package scan

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsedeck/scanner/internal/detect"
	"github.com/pulsedeck/scanner/internal/features"
	"github.com/pulsedeck/scanner/internal/market"
	"github.com/pulsedeck/scanner/internal/scanconfig"
	"github.com/pulsedeck/scanner/internal/store"
)

type fakeStrategyRepo struct {
	defs []store.StrategyDefinition
	err  error
}

func (f *fakeStrategyRepo) ListEnabled(context.Context, string) ([]store.StrategyDefinition, error) {
	return f.defs, f.err
}

// fakeSignalRepo enforces the same bar-time-key uniqueness the Postgres
// schema does, so the idempotency path is exercised for real.
type fakeSignalRepo struct {
	signals   []store.Signal
	insertErr error
	latestErr error
	countErr  error
}

func dedupKey(owner, strategyID, symbol, barTimeKey string) string {
	return owner + "|" + strategyID + "|" + symbol + "|" + barTimeKey
}

func (f *fakeSignalRepo) Insert(_ context.Context, sig store.Signal) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	key := dedupKey(sig.Owner, sig.StrategyID, sig.Symbol, sig.BarTimeKey)
	for _, existing := range f.signals {
		if dedupKey(existing.Owner, existing.StrategyID, existing.Symbol, existing.BarTimeKey) == key {
			return store.ErrDuplicateSignal
		}
	}
	f.signals = append(f.signals, sig)
	return nil
}

func (f *fakeSignalRepo) Latest(_ context.Context, owner, strategyID, symbol string) (*store.Signal, error) {
	if f.latestErr != nil {
		return nil, f.latestErr
	}
	matches := []store.Signal{}
	for _, sig := range f.signals {
		if sig.Owner == owner && sig.StrategyID == strategyID && sig.Symbol == symbol {
			matches = append(matches, sig)
		}
	}
	if len(matches) == 0 {
		return nil, nil
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].SignalTime.After(matches[j].SignalTime) })
	return &matches[0], nil
}

func (f *fakeSignalRepo) CountSince(_ context.Context, owner, symbol string, since time.Time) (int, error) {
	if f.countErr != nil {
		return 0, f.countErr
	}
	count := 0
	for _, sig := range f.signals {
		if sig.Owner == owner && sig.Symbol == symbol && sig.SignalTime.After(since) {
			count++
		}
	}
	return count, nil
}

// fakeCooldownCache is an in-memory store.CooldownCache that records writes.
type fakeCooldownCache struct {
	times map[string]time.Time
	sets  int
	err   error
}

func newFakeCooldownCache() *fakeCooldownCache {
	return &fakeCooldownCache{times: map[string]time.Time{}}
}

func (f *fakeCooldownCache) LastSignalTime(_ context.Context, owner, strategyID, symbol string) (time.Time, bool, error) {
	if f.err != nil {
		return time.Time{}, false, f.err
	}
	at, ok := f.times[dedupKey(owner, strategyID, symbol, "")]
	return at, ok, nil
}

func (f *fakeCooldownCache) SetLastSignalTime(_ context.Context, owner, strategyID, symbol string, at time.Time, _ time.Duration) error {
	f.sets++
	f.times[dedupKey(owner, strategyID, symbol, "")] = at
	return nil
}

// barTime is 10:15 in New York on a winter Tuesday: mid_morning window.
var barTime = time.Date(2026, 1, 6, 15, 15, 0, 0, time.UTC)

func scanSnapshot() *features.Snapshot {
	return &features.Snapshot{
		Symbol:  "SPY",
		BarTime: barTime,
		Price: features.PriceBlock{
			Current:       features.Ptr(503.00),
			Previous:      features.Ptr(501.40),
			PreviousClose: features.Ptr(498.75),
		},
		Volume: features.VolumeBlock{
			Current:  features.Ptr(2_700_000),
			Average:  features.Ptr(900_000),
			Relative: features.Ptr(3.0),
		},
		Technical: features.TechnicalBlock{
			VWAP:            features.Ptr(497.00),
			VWAPDistancePct: features.Ptr(1.2),
			RSI:             features.Ptr(62.0),
			EMA9:            features.Ptr(501.10),
			EMA20:           features.Ptr(499.80),
			ATR:             features.Ptr(2.0),
		},
		Frames: features.TimeframeSet{
			M1:  &features.FrameSnapshot{Close: features.Ptr(502.90), EMA9: features.Ptr(501.90)},
			M5:  &features.FrameSnapshot{Close: features.Ptr(502.70), EMA9: features.Ptr(501.60)},
			M15: &features.FrameSnapshot{Close: features.Ptr(502.10), EMA9: features.Ptr(501.00)},
			M60: &features.FrameSnapshot{Close: features.Ptr(501.50), EMA9: features.Ptr(500.40)},
		},
		Flow: features.FlowBlock{
			Score: features.Ptr(90.0),
			Bias:  features.BiasPtr(features.BiasBullish),
		},
		Pattern: features.PatternBlock{
			ORBHigh:      features.Ptr(501.80),
			ORBLow:       features.Ptr(499.10),
			SwingHigh:    features.Ptr(505.00),
			SwingLow:     features.Ptr(497.00),
			VIX:          features.Ptr(18.0),
			MarketRegime: features.RegimeTrending,
		},
		Session: features.SessionBlock{RegularHours: true, MinutesSinceOpen: 45},
	}
}

func breakoutStrategy() store.StrategyDefinition {
	return store.StrategyDefinition{
		ID:              "6f1f9e2a-4c46-4be0-9d2c-0f2f9a6f1101",
		Slug:            "orb-breakout-long",
		Owner:           "core",
		TypeID:          "breakout_bullish",
		AssetScope:      market.ClassETF,
		Timeframe:       "5m",
		CooldownMinutes: 5,
		Enabled:         true,
	}
}

func newTestOrchestrator(cfg scanconfig.Config, strategies *fakeStrategyRepo, signals *fakeSignalRepo, opts ...Option) *Orchestrator {
	registry := detect.MustNewRegistry(detect.DefaultDetectors()...)
	return NewOrchestrator(cfg, registry, strategies, signals, opts...)
}

func TestScanEmitsBreakoutSignal(t *testing.T) {
	signals := &fakeSignalRepo{}
	o := newTestOrchestrator(scanconfig.Default(),
		&fakeStrategyRepo{defs: []store.StrategyDefinition{breakoutStrategy()}}, signals)

	summary, err := o.Scan(context.Background(), map[string]*features.Snapshot{"SPY": scanSnapshot()})
	require.NoError(t, err)

	require.Len(t, summary.Emitted, 1)
	sig := summary.Emitted[0]
	assert.Equal(t, "SPY", sig.Symbol)
	assert.Equal(t, "LONG", sig.Direction)
	assert.Equal(t, "core", sig.Owner)
	assert.Equal(t, store.StatusActive, sig.Status)
	assert.Equal(t, store.BarTimeKey(barTime, "5m"), sig.BarTimeKey)
	assert.Equal(t, barTime, sig.SignalTime)
	assert.NotEmpty(t, sig.ID)

	// Complete data: full confidence, ready for action, full size in the
	// mid-morning window at medium vol.
	assert.Equal(t, 100.0, sig.Confidence)
	assert.True(t, sig.ConfidenceReady)
	assert.Equal(t, 1.0, sig.Payload.SizeMult)
	assert.GreaterOrEqual(t, sig.Payload.AdjustedScore, 72.0)
	assert.NotEmpty(t, sig.Payload.Rationale)

	require.Len(t, signals.signals, 1)
}

func TestScanIsIdempotentAcrossInvocations(t *testing.T) {
	cfg := scanconfig.Default()
	cfg.Defaults.CooldownMinutes = 0
	strat := breakoutStrategy()
	strat.CooldownMinutes = 0

	signals := &fakeSignalRepo{}
	o := newTestOrchestrator(cfg, &fakeStrategyRepo{defs: []store.StrategyDefinition{strat}}, signals)

	snaps := map[string]*features.Snapshot{"SPY": scanSnapshot()}

	first, err := o.Scan(context.Background(), snaps)
	require.NoError(t, err)
	require.Len(t, first.Emitted, 1)

	second, err := o.Scan(context.Background(), snaps)
	require.NoError(t, err)
	assert.Empty(t, second.Emitted)
	assert.Equal(t, 1, second.Rejections[ReasonDuplicateBar])

	assert.Len(t, signals.signals, 1, "identical inputs must persist exactly one signal")
}

func TestScanCooldownBlocksRecentRepeat(t *testing.T) {
	strat := breakoutStrategy() // 5 minute cooldown
	prior := store.Signal{
		ID: "prior", Owner: "core", StrategyID: strat.ID, Symbol: "SPY",
		BarTimeKey: store.BarTimeKey(barTime.Add(-4*time.Minute), "5m"),
		SignalTime: barTime.Add(-4 * time.Minute),
	}
	signals := &fakeSignalRepo{signals: []store.Signal{prior}}
	o := newTestOrchestrator(scanconfig.Default(), &fakeStrategyRepo{defs: []store.StrategyDefinition{strat}}, signals)

	summary, err := o.Scan(context.Background(), map[string]*features.Snapshot{"SPY": scanSnapshot()})
	require.NoError(t, err)

	assert.Empty(t, summary.Emitted)
	assert.Equal(t, 1, summary.Rejections[ReasonCooldownActive])
}

func TestScanCooldownExpiryBoundary(t *testing.T) {
	// A prior signal exactly one cooldown window ago no longer blocks:
	// the window is half-open.
	strat := breakoutStrategy()
	prior := store.Signal{
		ID: "prior", Owner: "core", StrategyID: strat.ID, Symbol: "SPY",
		BarTimeKey: store.BarTimeKey(barTime.Add(-5*time.Minute), "5m"),
		SignalTime: barTime.Add(-5 * time.Minute),
	}
	signals := &fakeSignalRepo{signals: []store.Signal{prior}}
	o := newTestOrchestrator(scanconfig.Default(), &fakeStrategyRepo{defs: []store.StrategyDefinition{strat}}, signals)

	summary, err := o.Scan(context.Background(), map[string]*features.Snapshot{"SPY": scanSnapshot()})
	require.NoError(t, err)

	assert.Len(t, summary.Emitted, 1)
	assert.Zero(t, summary.Rejections[ReasonCooldownActive])
}

func TestScanOncePerSession(t *testing.T) {
	strat := breakoutStrategy()
	strat.OncePerSession = true
	// Hours past cooldown, but still the same New York trading day.
	prior := store.Signal{
		ID: "prior", Owner: "core", StrategyID: strat.ID, Symbol: "SPY",
		BarTimeKey: store.BarTimeKey(barTime.Add(-6*time.Hour), "5m"),
		SignalTime: barTime.Add(-6 * time.Hour),
	}
	signals := &fakeSignalRepo{signals: []store.Signal{prior}}
	o := newTestOrchestrator(scanconfig.Default(), &fakeStrategyRepo{defs: []store.StrategyDefinition{strat}}, signals)

	summary, err := o.Scan(context.Background(), map[string]*features.Snapshot{"SPY": scanSnapshot()})
	require.NoError(t, err)

	assert.Empty(t, summary.Emitted)
	assert.Equal(t, 1, summary.Rejections[ReasonOncePerSession])
}

func TestScanFailedCooldownLookupSkipsStrategy(t *testing.T) {
	signals := &fakeSignalRepo{latestErr: errors.New("db down")}
	o := newTestOrchestrator(scanconfig.Default(),
		&fakeStrategyRepo{defs: []store.StrategyDefinition{breakoutStrategy()}}, signals)

	summary, err := o.Scan(context.Background(), map[string]*features.Snapshot{"SPY": scanSnapshot()})
	require.NoError(t, err)

	// Never emit on an unverifiable cooldown.
	assert.Empty(t, summary.Emitted)
	assert.Equal(t, 1, summary.Rejections[ReasonLookupFailed])
}

func TestScanHourlyCap(t *testing.T) {
	cfg := scanconfig.Default() // cap of 4 per symbol per hour
	cfg.Defaults.CooldownMinutes = 0
	strat := breakoutStrategy()
	strat.CooldownMinutes = 0

	signals := &fakeSignalRepo{}
	for i := 0; i < 4; i++ {
		signals.signals = append(signals.signals, store.Signal{
			ID: "prior", Owner: "core", StrategyID: "other-strategy",
			Symbol:     "SPY",
			BarTimeKey: store.BarTimeKey(barTime.Add(time.Duration(-i-1)*5*time.Minute), "5m"),
			SignalTime: barTime.Add(time.Duration(-i-1) * 5 * time.Minute),
		})
	}
	o := newTestOrchestrator(cfg, &fakeStrategyRepo{defs: []store.StrategyDefinition{strat}}, signals)

	summary, err := o.Scan(context.Background(), map[string]*features.Snapshot{"SPY": scanSnapshot()})
	require.NoError(t, err)

	assert.Empty(t, summary.Emitted)
	assert.Equal(t, 1, summary.Rejections[ReasonHourlyCap])
}

func TestScanPrefilterSkipsSymbolBeforeStrategies(t *testing.T) {
	snap := scanSnapshot()
	snap.Session.RegularHours = false

	o := newTestOrchestrator(scanconfig.Default(),
		&fakeStrategyRepo{defs: []store.StrategyDefinition{breakoutStrategy()}}, &fakeSignalRepo{})

	summary, err := o.Scan(context.Background(), map[string]*features.Snapshot{"SPY": snap})
	require.NoError(t, err)

	assert.Zero(t, summary.Evaluated)
	assert.Equal(t, 1, summary.Rejections[ReasonPrefiltered+":outside_market_hours"])
}

func TestScanOutOfScopeStrategy(t *testing.T) {
	strat := breakoutStrategy()
	strat.AssetScope = market.ClassSPX // SPY is not in the SPX complex

	o := newTestOrchestrator(scanconfig.Default(),
		&fakeStrategyRepo{defs: []store.StrategyDefinition{strat}}, &fakeSignalRepo{})

	summary, err := o.Scan(context.Background(), map[string]*features.Snapshot{"SPY": scanSnapshot()})
	require.NoError(t, err)

	assert.Empty(t, summary.Emitted)
	assert.Equal(t, 1, summary.Rejections[ReasonOutOfScope])
}

func TestScanVolatilityRegimeBlocks(t *testing.T) {
	snap := scanSnapshot()
	snap.Pattern.VIX = features.Ptr(40.0) // extreme: breakouts gated off

	o := newTestOrchestrator(scanconfig.Default(),
		&fakeStrategyRepo{defs: []store.StrategyDefinition{breakoutStrategy()}}, &fakeSignalRepo{})

	summary, err := o.Scan(context.Background(), map[string]*features.Snapshot{"SPY": snap})
	require.NoError(t, err)

	assert.Empty(t, summary.Emitted)
	assert.Equal(t, 1, summary.Rejections[ReasonRegimeBlocked+":regime_not_allowed:extreme"])
}

func TestScanMarketRegimeDisablesCategory(t *testing.T) {
	snap := scanSnapshot()
	snap.Pattern.MarketRegime = features.RegimeChoppy // breakouts disabled

	o := newTestOrchestrator(scanconfig.Default(),
		&fakeStrategyRepo{defs: []store.StrategyDefinition{breakoutStrategy()}}, &fakeSignalRepo{})

	summary, err := o.Scan(context.Background(), map[string]*features.Snapshot{"SPY": snap})
	require.NoError(t, err)

	assert.Empty(t, summary.Emitted)
	assert.Equal(t, 1, summary.Rejections[ReasonRegimeDisabled])
}

func TestScanOptionsDependentDetectorWithoutProvider(t *testing.T) {
	strat := breakoutStrategy()
	strat.TypeID = "gamma_squeeze"
	strat.Slug = "gamma-squeeze"

	o := newTestOrchestrator(scanconfig.Default(),
		&fakeStrategyRepo{defs: []store.StrategyDefinition{strat}}, &fakeSignalRepo{})

	summary, err := o.Scan(context.Background(), map[string]*features.Snapshot{"SPY": scanSnapshot()})
	require.NoError(t, err)

	assert.Empty(t, summary.Emitted)
	assert.Equal(t, 1, summary.Rejections[ReasonOptionsUnavailable])
}

func TestScanNotDetected(t *testing.T) {
	snap := scanSnapshot()
	snap.Price.Current = features.Ptr(500.50) // inside the opening range

	o := newTestOrchestrator(scanconfig.Default(),
		&fakeStrategyRepo{defs: []store.StrategyDefinition{breakoutStrategy()}}, &fakeSignalRepo{})

	summary, err := o.Scan(context.Background(), map[string]*features.Snapshot{"SPY": snap})
	require.NoError(t, err)

	assert.Empty(t, summary.Emitted)
	assert.Equal(t, 1, summary.Rejections[ReasonNotDetected])
}

func TestScanCooldownCacheFastPath(t *testing.T) {
	strat := breakoutStrategy()
	cache := newFakeCooldownCache()
	cache.times[dedupKey("core", strat.ID, "SPY", "")] = barTime.Add(-2 * time.Minute)

	// Latest would error; a cache hit must answer the cooldown check
	// without touching the store.
	signals := &fakeSignalRepo{latestErr: errors.New("db down")}
	o := newTestOrchestrator(scanconfig.Default(),
		&fakeStrategyRepo{defs: []store.StrategyDefinition{strat}}, signals,
		WithCooldownCache(cache))

	summary, err := o.Scan(context.Background(), map[string]*features.Snapshot{"SPY": scanSnapshot()})
	require.NoError(t, err)

	assert.Empty(t, summary.Emitted)
	assert.Equal(t, 1, summary.Rejections[ReasonCooldownActive])
}

func TestScanUpdatesCooldownCacheOnEmit(t *testing.T) {
	cache := newFakeCooldownCache()
	o := newTestOrchestrator(scanconfig.Default(),
		&fakeStrategyRepo{defs: []store.StrategyDefinition{breakoutStrategy()}}, &fakeSignalRepo{},
		WithCooldownCache(cache))

	summary, err := o.Scan(context.Background(), map[string]*features.Snapshot{"SPY": scanSnapshot()})
	require.NoError(t, err)

	require.Len(t, summary.Emitted, 1)
	assert.Equal(t, 1, cache.sets)
}

func TestScanAbortsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	o := newTestOrchestrator(scanconfig.Default(),
		&fakeStrategyRepo{defs: []store.StrategyDefinition{breakoutStrategy()}}, &fakeSignalRepo{})

	_, err := o.Scan(ctx, map[string]*features.Snapshot{"SPY": scanSnapshot()})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestScanStrategyListFailure(t *testing.T) {
	o := newTestOrchestrator(scanconfig.Default(),
		&fakeStrategyRepo{err: errors.New("db down")}, &fakeSignalRepo{})

	_, err := o.Scan(context.Background(), map[string]*features.Snapshot{"SPY": scanSnapshot()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list enabled strategies")
}
