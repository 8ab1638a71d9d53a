package scan

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/pulsedeck/scanner/internal/adaptive"
	"github.com/pulsedeck/scanner/internal/confidence"
	"github.com/pulsedeck/scanner/internal/detect"
	"github.com/pulsedeck/scanner/internal/features"
	"github.com/pulsedeck/scanner/internal/market"
	"github.com/pulsedeck/scanner/internal/options"
	"github.com/pulsedeck/scanner/internal/regime"
	"github.com/pulsedeck/scanner/internal/scanconfig"
	"github.com/pulsedeck/scanner/internal/store"
)

// Rejection reasons surfaced in summaries and metrics. Gating rejections
// are values, never errors: one symbol's problem must not abort the scan.
const (
	ReasonPrefiltered        = "prefiltered"
	ReasonOutOfScope         = "asset_scope"
	ReasonUnknownDetector    = "unknown_detector"
	ReasonRegimeBlocked      = "regime_blocked"
	ReasonOptionsUnavailable = "options_unavailable"
	ReasonNotDetected        = "not_detected"
	ReasonLowConfidence      = "confidence_below_min"
	ReasonBelowThreshold     = "score_below_threshold"
	ReasonRegimeDisabled     = "market_regime_disabled"
	ReasonCooldownActive     = "cooldown_active"
	ReasonOncePerSession     = "once_per_session"
	ReasonHourlyCap          = "hourly_cap"
	ReasonDuplicateBar       = "duplicate_bar"
	ReasonLookupFailed       = "cooldown_lookup_failed"
	ReasonInsertFailed       = "insert_failed"
)

// Summary aggregates one scan invocation for logging and the ops surface.
type Summary struct {
	StartedAt  time.Time      `json:"started_at"`
	Duration   time.Duration  `json:"duration"`
	Symbols    int            `json:"symbols"`
	Strategies int            `json:"strategies"`
	Evaluated  int            `json:"evaluated"`
	Emitted    []store.Signal `json:"emitted"`
	Rejections map[string]int `json:"rejections"`
}

// Orchestrator drives one synchronous evaluation pass over a snapshot set.
// All persistence writes go through the idempotent insert; the unique
// bar-time-key constraint is what makes concurrent invocations safe, not
// anything the orchestrator serializes in process.
type Orchestrator struct {
	cfg        scanconfig.Config
	registry   *detect.Registry
	scorer     *confidence.Scorer
	engine     *adaptive.Engine
	strategies store.StrategyRepo
	signals    store.SignalRepo
	cooldowns  store.CooldownCache // optional
	chains     options.Provider    // optional
}

// Option configures optional orchestrator collaborators.
type Option func(*Orchestrator)

// WithCooldownCache installs the fast-path cooldown cache.
func WithCooldownCache(cache store.CooldownCache) Option {
	return func(o *Orchestrator) { o.cooldowns = cache }
}

// WithOptionsProvider installs the options-chain provider.
func WithOptionsProvider(p options.Provider) Option {
	return func(o *Orchestrator) { o.chains = p }
}

// NewOrchestrator wires a scan orchestrator.
func NewOrchestrator(cfg scanconfig.Config, registry *detect.Registry, strategies store.StrategyRepo, signals store.SignalRepo, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		cfg:        cfg,
		registry:   registry,
		scorer:     confidence.NewScorerWithMin(cfg.MinConfidence),
		engine:     adaptive.NewEngine(),
		strategies: strategies,
		signals:    signals,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Scan evaluates every (symbol, enabled strategy) pair. It is abortable
// between symbol iterations: each insert is independently idempotent, so
// cancellation never leaves partial state worth cleaning up.
func (o *Orchestrator) Scan(ctx context.Context, snapshots map[string]*features.Snapshot) (*Summary, error) {
	start := time.Now()
	summary := &Summary{
		StartedAt:  start,
		Symbols:    len(snapshots),
		Rejections: make(map[string]int),
		Emitted:    []store.Signal{},
	}
	defer func() {
		summary.Duration = time.Since(start)
		scanDuration.Observe(summary.Duration.Seconds())
	}()

	strategies, err := o.strategies.ListEnabled(ctx, o.cfg.Owner)
	if err != nil {
		return nil, fmt.Errorf("list enabled strategies: %w", err)
	}
	summary.Strategies = len(strategies)

	symbols := make([]string, 0, len(snapshots))
	for sym := range snapshots {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	for _, symbol := range symbols {
		if err := ctx.Err(); err != nil {
			return summary, fmt.Errorf("scan aborted: %w", err)
		}
		symbolsScanned.Inc()

		snap := snapshots[symbol]
		if decision := o.cfg.PreFilters.CheckSymbol(snap); !decision.Passed {
			o.reject(summary, symbol, "", ReasonPrefiltered+":"+decision.Reason)
			continue
		}

		for _, strat := range strategies {
			summary.Evaluated++
			o.evaluatePair(ctx, summary, snap, strat)
		}
	}

	log.Info().
		Int("symbols", summary.Symbols).
		Int("strategies", summary.Strategies).
		Int("emitted", len(summary.Emitted)).
		Dur("duration", time.Since(start)).
		Msg("scan complete")

	return summary, nil
}

func (o *Orchestrator) evaluatePair(ctx context.Context, summary *Summary, snap *features.Snapshot, strat store.StrategyDefinition) {
	symbol := snap.Symbol

	if !market.InScope(symbol, strat.AssetScope) {
		o.reject(summary, symbol, strat.Slug, ReasonOutOfScope)
		return
	}

	detector, ok := o.registry.Get(strat.TypeID)
	if !ok {
		o.reject(summary, symbol, strat.Slug, ReasonUnknownDetector)
		return
	}
	if !market.InScope(symbol, detector.Scope()) {
		o.reject(summary, symbol, strat.Slug, ReasonOutOfScope)
		return
	}

	volRegime := regime.ClassifySnapshot(snap)
	if decision := regime.ShouldRun(strat.TypeID, volRegime, snap.Flow.Bias); !decision.Allowed {
		o.reject(summary, symbol, strat.Slug, ReasonRegimeBlocked+":"+decision.Reason)
		return
	}

	var chain *options.ChainSummary
	if detector.RequiresOptions() {
		if o.chains == nil {
			o.reject(summary, symbol, strat.Slug, ReasonOptionsUnavailable)
			return
		}
		var err error
		chain, err = o.chains.GetChainSummary(ctx, symbol)
		if err != nil {
			log.Warn().Err(err).Str("symbol", symbol).Str("strategy", strat.Slug).
				Msg("options chain unavailable, skipping options-dependent detector")
			o.reject(summary, symbol, strat.Slug, ReasonOptionsUnavailable)
			return
		}
	}

	result := detect.Evaluate(detector, snap, chain)
	if !result.Detected {
		o.reject(summary, symbol, strat.Slug, ReasonNotDetected)
		return
	}

	conf := o.scorer.Score(snap)
	minConf, readyConf := strat.ConfidenceFor(o.cfg.MinConfidence, o.cfg.ReadyConfidence)
	if conf.AdjustedConfidence < minConf {
		o.reject(summary, symbol, strat.Slug, ReasonLowConfidence)
		return
	}

	adjusted, rationale := confidence.ApplyToScore(result.BaseScore, conf)

	adaptiveRes := o.engine.Resolve(snap.BarTime, volRegime, snap.Pattern.MarketRegime, strat.TypeID)
	if !adaptiveRes.StrategyEnabled {
		o.reject(summary, symbol, strat.Slug, ReasonRegimeDisabled)
		return
	}

	resolved := o.cfg.Resolve(market.Classify(symbol), strat.TypeID)

	// The static chain and the adaptive engine compose by max: the
	// effective gate is never weaker than either source.
	minBase := math.Max(resolved.MinBase, adaptiveRes.MinBase)
	if adjusted < minBase {
		o.reject(summary, symbol, strat.Slug, ReasonBelowThreshold)
		return
	}

	cooldown := strat.Cooldown()
	if resolved.CooldownMinutes > strat.CooldownMinutes {
		cooldown = time.Duration(resolved.CooldownMinutes) * time.Minute
	}

	if cooldown > 0 || strat.OncePerSession {
		lastTime, found, err := o.lastSignalTime(ctx, strat, symbol)
		if err != nil {
			// A failed lookup must not be treated as cooldown-free.
			log.Error().Err(err).Str("symbol", symbol).Str("strategy", strat.Slug).
				Msg("cooldown lookup failed, skipping strategy")
			o.reject(summary, symbol, strat.Slug, ReasonLookupFailed)
			return
		}
		if found {
			// Cooldown runs on feature-snapshot time, not wall clock.
			if cooldown > 0 && snap.BarTime.Sub(lastTime) < cooldown {
				o.reject(summary, symbol, strat.Slug, ReasonCooldownActive)
				return
			}
			if strat.OncePerSession && sameMarketDay(lastTime, snap.BarTime) {
				o.reject(summary, symbol, strat.Slug, ReasonOncePerSession)
				return
			}
		}
	}

	if resolved.MaxSignalsPerSymbolPerHour > 0 {
		count, err := o.signals.CountSince(ctx, o.cfg.Owner, symbol, snap.BarTime.Add(-time.Hour))
		if err != nil {
			log.Error().Err(err).Str("symbol", symbol).Str("strategy", strat.Slug).
				Msg("hourly-cap lookup failed, skipping strategy")
			o.reject(summary, symbol, strat.Slug, ReasonLookupFailed)
			return
		}
		if count >= resolved.MaxSignalsPerSymbolPerHour {
			o.reject(summary, symbol, strat.Slug, ReasonHourlyCap)
			return
		}
	}

	ready := conf.AdjustedConfidence >= readyConf && adjusted >= adaptiveRes.MinStyle

	sig := store.Signal{
		ID:              uuid.NewString(),
		Owner:           o.cfg.Owner,
		StrategyID:      strat.ID,
		Symbol:          symbol,
		Direction:       string(detector.Direction()),
		Confidence:      conf.AdjustedConfidence,
		ConfidenceReady: ready,
		Status:          store.StatusActive,
		BarTimeKey:      store.BarTimeKey(snap.BarTime, strat.Timeframe),
		SignalTime:      snap.BarTime,
		Payload: store.SignalPayload{
			Time:            snap.BarTime,
			Price:           snap.Price.Current,
			Confidence:      conf.AdjustedConfidence,
			ConfidenceReady: ready,
			BaseScore:       result.BaseScore,
			AdjustedScore:   adjusted,
			SizeMult:        adaptiveRes.SizeMult,
			Rationale:       rationale,
		},
	}

	if err := o.signals.Insert(ctx, sig); err != nil {
		if errors.Is(err, store.ErrDuplicateSignal) {
			// Already emitted for this bar: the idempotency path, not an error.
			o.reject(summary, symbol, strat.Slug, ReasonDuplicateBar)
			return
		}
		log.Error().Err(err).Str("symbol", symbol).Str("strategy", strat.Slug).
			Msg("signal insert failed")
		o.reject(summary, symbol, strat.Slug, ReasonInsertFailed)
		return
	}

	if o.cooldowns != nil && cooldown > 0 {
		if err := o.cooldowns.SetLastSignalTime(ctx, o.cfg.Owner, strat.ID, symbol, snap.BarTime, cooldown); err != nil {
			log.Warn().Err(err).Str("symbol", symbol).Msg("cooldown cache update failed")
		}
	}

	summary.Emitted = append(summary.Emitted, sig)
	signalsEmitted.WithLabelValues(strat.TypeID).Inc()

	log.Info().
		Str("symbol", symbol).
		Str("strategy", strat.Slug).
		Float64("base_score", result.BaseScore).
		Float64("adjusted", adjusted).
		Float64("confidence", conf.AdjustedConfidence).
		Bool("ready", ready).
		Msg("signal emitted")
}

// lastSignalTime checks the cooldown cache first, then the signal store. A
// cache error degrades to the store; a store error propagates so the caller
// can skip the strategy rather than assume no cooldown.
func (o *Orchestrator) lastSignalTime(ctx context.Context, strat store.StrategyDefinition, symbol string) (time.Time, bool, error) {
	if o.cooldowns != nil {
		at, ok, err := o.cooldowns.LastSignalTime(ctx, o.cfg.Owner, strat.ID, symbol)
		if err != nil {
			log.Warn().Err(err).Str("symbol", symbol).Msg("cooldown cache read failed, falling back to store")
		} else if ok {
			return at, true, nil
		}
	}

	prior, err := o.signals.Latest(ctx, o.cfg.Owner, strat.ID, symbol)
	if err != nil {
		return time.Time{}, false, err
	}
	if prior == nil {
		return time.Time{}, false, nil
	}
	return prior.SignalTime, true, nil
}

func (o *Orchestrator) reject(summary *Summary, symbol, strategy, reason string) {
	summary.Rejections[reason]++
	rejections.WithLabelValues(reason).Inc()
	log.Debug().Str("symbol", symbol).Str("strategy", strategy).Str("reason", reason).Msg("skipped")
}

func sameMarketDay(a, b time.Time) bool {
	la, lb := adaptive.InMarketTime(a), adaptive.InMarketTime(b)
	ya, ma, da := la.Date()
	yb, mb, db := lb.Date()
	return ya == yb && ma == mb && da == db
}
