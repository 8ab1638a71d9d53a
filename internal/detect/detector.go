package detect

import (
	"fmt"
	"math"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/pulsedeck/scanner/internal/features"
	"github.com/pulsedeck/scanner/internal/market"
	"github.com/pulsedeck/scanner/internal/options"
)

// Direction is the trade side a detector looks for.
type Direction string

const (
	Long  Direction = "LONG"
	Short Direction = "SHORT"
)

// ScoreFactor is one weighted component of a detector's composite score.
// Eval returns a raw factor score; values outside [0,100] are clamped, and
// an error (or NaN) scores the factor as 0 with its weight retained, so a
// broken factor drags the composite down instead of silently inflating it.
type ScoreFactor struct {
	Name   string
	Weight float64
	Eval   func(snap *features.Snapshot, chain *options.ChainSummary) (float64, error)
}

// Detector is a single strategy's opportunity test. Implementations are
// pure: no side effects, no stored state between evaluations.
type Detector interface {
	// TypeID is the stable strategy-type identifier (e.g. breakout_bullish).
	TypeID() string
	// Direction is the trade side this detector signals.
	Direction() Direction
	// Scope is the asset-class applicability of the detector.
	Scope() market.AssetClass
	// RequiresOptions reports whether chain data must be present to detect.
	RequiresOptions() bool
	// IdealTimeframe is the preferred bar timeframe, empty when agnostic.
	IdealTimeframe() string
	// Detect is the boolean setup predicate. When it returns false the
	// factors are never evaluated.
	Detect(snap *features.Snapshot, chain *options.ChainSummary) bool
	// Factors is the ordered weighted factor set for composite scoring.
	Factors() []ScoreFactor
}

// Result is the ephemeral outcome of one detector evaluation.
type Result struct {
	TypeID       string             `json:"type_id"`
	Detected     bool               `json:"detected"`
	BaseScore    float64            `json:"base_score"` // 0-100
	FactorScores map[string]float64 `json:"factor_scores,omitempty"`
}

// weightTolerance bounds the acceptable drift of a factor set's total
// weight from 1.0 at registration time.
const weightTolerance = 0.05

// Registry holds the static detector table, built once at startup.
type Registry struct {
	detectors map[string]Detector
}

// NewRegistry validates and indexes the given detectors. Weight sets that
// do not sum to ~1.0 and duplicate type ids fail loudly here, at load time,
// rather than per scan.
func NewRegistry(detectors ...Detector) (*Registry, error) {
	reg := &Registry{detectors: make(map[string]Detector, len(detectors))}
	for _, d := range detectors {
		if _, dup := reg.detectors[d.TypeID()]; dup {
			return nil, fmt.Errorf("duplicate detector type %q", d.TypeID())
		}
		if err := validateFactors(d); err != nil {
			return nil, fmt.Errorf("detector %q: %w", d.TypeID(), err)
		}
		reg.detectors[d.TypeID()] = d
	}
	return reg, nil
}

// MustNewRegistry is NewRegistry for startup paths where a bad factor set
// means the binary should not come up.
func MustNewRegistry(detectors ...Detector) *Registry {
	reg, err := NewRegistry(detectors...)
	if err != nil {
		log.Fatal().Err(err).Msg("detector registry validation failed")
	}
	return reg
}

func validateFactors(d Detector) error {
	factors := d.Factors()
	if len(factors) == 0 {
		return fmt.Errorf("no score factors declared")
	}
	total := 0.0
	for _, f := range factors {
		if f.Weight <= 0 {
			return fmt.Errorf("factor %q has non-positive weight %.3f", f.Name, f.Weight)
		}
		if f.Eval == nil {
			return fmt.Errorf("factor %q has no evaluator", f.Name)
		}
		total += f.Weight
	}
	if math.Abs(total-1.0) > weightTolerance {
		return fmt.Errorf("factor weights sum to %.3f, expected ~1.0", total)
	}
	return nil
}

// Get returns the detector for a strategy type id.
func (r *Registry) Get(typeID string) (Detector, bool) {
	d, ok := r.detectors[typeID]
	return d, ok
}

// TypeIDs lists registered detector types in stable order.
func (r *Registry) TypeIDs() []string {
	ids := make([]string, 0, len(r.detectors))
	for id := range r.detectors {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Evaluate runs a detector against a snapshot: the boolean predicate first,
// then the weighted composite only when the setup is present. The divide by
// total weight is mandatory -- weights are validated to ~1.0, not exactly
// 1.0.
func Evaluate(d Detector, snap *features.Snapshot, chain *options.ChainSummary) Result {
	res := Result{TypeID: d.TypeID()}

	if !d.Detect(snap, chain) {
		return res
	}
	res.Detected = true
	res.FactorScores = make(map[string]float64)

	var weightedSum, totalWeight float64
	for _, f := range d.Factors() {
		score, err := f.Eval(snap, chain)
		if err != nil || math.IsNaN(score) {
			if err != nil {
				log.Debug().Str("detector", d.TypeID()).Str("factor", f.Name).
					Err(err).Msg("factor evaluation failed, scoring 0")
			}
			score = 0
		}
		score = clamp(score, 0, 100)
		res.FactorScores[f.Name] = score
		weightedSum += score * f.Weight
		totalWeight += f.Weight
	}

	res.BaseScore = clamp(weightedSum/totalWeight, 0, 100)
	return res
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
