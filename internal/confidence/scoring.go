package confidence

import (
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/pulsedeck/scanner/internal/features"
)

// Level buckets an adjusted confidence value for display and alert routing.
// Boundaries are inclusive-low at each multiple of 20.
type Level string

const (
	LevelHigh    Level = "high"
	LevelMedium  Level = "medium"
	LevelLow     Level = "low"
	LevelVeryLow Level = "very_low"
)

// LevelFor maps an adjusted confidence to its bucket.
func LevelFor(adjusted float64) Level {
	switch {
	case adjusted >= 80:
		return LevelHigh
	case adjusted >= 60:
		return LevelMedium
	case adjusted >= 40:
		return LevelLow
	default:
		return LevelVeryLow
	}
}

// Missing-critical fields cap base confidence in 15-point steps: one missing
// critical caps at 85, two at 70, and so on. Caps stack via min(), not
// subtraction.
const criticalCapStep = 15.0

// DefaultMinConfidence is the floor below which a signal is filtered
// entirely, before any threshold comparison.
const DefaultMinConfidence = 40.0

// Result is the outcome of a completeness evaluation for one snapshot.
type Result struct {
	DataCompletenessScore float64            `json:"data_completeness_score"` // 0-100
	BaseConfidence        float64            `json:"base_confidence"`
	AdjustedConfidence    float64            `json:"adjusted_confidence"`
	Multiplier            float64            `json:"confidence_multiplier"` // 0-1
	Level                 Level              `json:"level"`
	MissingCritical       []string           `json:"missing_critical"`
	MissingImportant      []string           `json:"missing_important"` // weight >= 5, non-critical
	MissingMinor          []string           `json:"missing_minor"`
	CategoryCompleteness  map[string]float64 `json:"category_completeness"`
	Warnings              []string           `json:"warnings,omitempty"`
	WeekendTable          bool               `json:"weekend_table"`
}

// Scorer evaluates data completeness and derives the confidence multiplier
// applied to raw detector scores.
type Scorer struct {
	minConfidence float64
}

// NewScorer returns a scorer with the default minimum confidence of 40.
func NewScorer() *Scorer {
	return &Scorer{minConfidence: DefaultMinConfidence}
}

// NewScorerWithMin overrides the filtering floor.
func NewScorerWithMin(minConfidence float64) *Scorer {
	return &Scorer{minConfidence: minConfidence}
}

// MinConfidence returns the filtering floor.
func (sc *Scorer) MinConfidence() float64 { return sc.minConfidence }

// Score runs the completeness algorithm against the live-session table, or
// the relaxed weekend table when the bar falls on a Saturday/Sunday.
func (sc *Scorer) Score(snap *features.Snapshot) Result {
	weekend := isWeekend(snap.BarTime)
	table := standardWeights
	if weekend {
		table = weekendWeights
	}
	res := scoreWithTable(snap, table)
	res.WeekendTable = weekend
	return res
}

// ScoreWithTable runs the algorithm against an explicit weight table.
func (sc *Scorer) ScoreWithTable(snap *features.Snapshot, table []FieldWeight) Result {
	return scoreWithTable(snap, table)
}

func scoreWithTable(snap *features.Snapshot, table []FieldWeight) Result {
	var (
		totalWeight     float64
		availableWeight float64
		catTotal        = map[string]float64{}
		catAvailable    = map[string]float64{}
	)

	res := Result{
		MissingCritical:      []string{},
		MissingImportant:     []string{},
		MissingMinor:         []string{},
		CategoryCompleteness: map[string]float64{},
	}

	for _, fw := range table {
		totalWeight += fw.Weight
		catTotal[fw.Category] += fw.Weight

		if fw.available(snap) {
			availableWeight += fw.Weight
			catAvailable[fw.Category] += fw.Weight
			continue
		}

		switch {
		case fw.Critical:
			res.MissingCritical = append(res.MissingCritical, fw.Name)
		case fw.Weight >= 5:
			res.MissingImportant = append(res.MissingImportant, fw.Name)
		default:
			res.MissingMinor = append(res.MissingMinor, fw.Name)
		}
	}

	res.DataCompletenessScore = math.Round(100 * availableWeight / totalWeight)
	for cat, total := range catTotal {
		res.CategoryCompleteness[cat] = math.Round(100 * catAvailable[cat] / total)
	}

	// Base confidence starts at 100 and is capped 15 points lower for each
	// missing critical field.
	res.BaseConfidence = 100
	for i := range res.MissingCritical {
		ceiling := 100 - criticalCapStep*float64(i+1)
		res.BaseConfidence = math.Min(res.BaseConfidence, ceiling)
	}

	adjustment := tierAdjustment(res.DataCompletenessScore)
	res.AdjustedConfidence = clamp(res.BaseConfidence*res.DataCompletenessScore/100+adjustment, 0, 100)
	res.Multiplier = res.AdjustedConfidence / 100
	res.Level = LevelFor(res.AdjustedConfidence)

	if len(res.MissingCritical) > 0 {
		res.Warnings = append(res.Warnings,
			fmt.Sprintf("%d critical field(s) missing: confidence capped at %.0f", len(res.MissingCritical), res.BaseConfidence))
	}
	if res.DataCompletenessScore < 50 {
		res.Warnings = append(res.Warnings,
			fmt.Sprintf("data completeness %.0f%% is below 50%%", res.DataCompletenessScore))
	}

	return res
}

// tierAdjustment applies the completeness-tier bonus/penalty. The 50-70 band
// is half-open on the top side; exactly 70% falls in the neutral band.
func tierAdjustment(completeness float64) float64 {
	switch {
	case completeness < 50:
		return -20
	case completeness < 70:
		return -10
	case completeness >= 90:
		return 5
	default:
		return 0
	}
}

// Passes reports whether a result clears the scorer's filtering floor.
func (sc *Scorer) Passes(res Result) bool {
	return res.AdjustedConfidence >= sc.minConfidence
}

// ApplyToScore discounts a raw detector score by the confidence multiplier
// and reports the before/after rationale.
func ApplyToScore(raw float64, res Result) (float64, string) {
	adjusted := math.Round(raw * res.Multiplier)
	rationale := fmt.Sprintf("base %.0f x confidence %.0f%% = %.0f (%s, completeness %.0f%%)",
		raw, res.AdjustedConfidence, adjusted, res.Level, res.DataCompletenessScore)
	if len(res.MissingCritical) > 0 {
		rationale += fmt.Sprintf(", missing critical: %v", res.MissingCritical)
	}
	return adjusted, rationale
}

func isWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func init() {
	// The table totals feed every completeness division; a zero total would
	// be a programming error worth failing loudly on.
	for _, table := range [][]FieldWeight{standardWeights, weekendWeights} {
		total := 0.0
		for _, fw := range table {
			total += fw.Weight
		}
		if total <= 0 {
			log.Fatal().Msg("confidence weight table has non-positive total weight")
		}
	}
}
