package confidence

import (
	"github.com/pulsedeck/scanner/internal/features"
)

// FieldWeight describes one entry of the data-completeness weight table.
type FieldWeight struct {
	Name     string  `json:"name"`
	Weight   float64 `json:"weight"` // 0-20
	Critical bool    `json:"critical"`
	Category string  `json:"category"`

	// available extracts the field's availability from a snapshot. A field
	// counts as available only when present and numerically valid.
	available func(s *features.Snapshot) bool
}

// Field categories used for per-category completeness reporting.
const (
	CategoryPrice     = "price"
	CategoryVolume    = "volume"
	CategoryTechnical = "technical"
	CategoryFrames    = "multi_timeframe"
	CategoryFlow      = "flow"
	CategoryPattern   = "pattern"
)

func frameAvailable(f *features.FrameSnapshot) bool {
	return f != nil && features.Valid(f.Close)
}

// standardWeights is the live-session weight table. Weights are relative;
// the completeness score normalizes by the table total, so the absolute
// scale only sets the resolution of individual fields.
var standardWeights = []FieldWeight{
	{Name: "price", Weight: 20, Critical: true, Category: CategoryPrice,
		available: func(s *features.Snapshot) bool { return features.ValidPositive(s.Price.Current) }},
	{Name: "previous_price", Weight: 4, Category: CategoryPrice,
		available: func(s *features.Snapshot) bool { return features.ValidPositive(s.Price.Previous) }},
	{Name: "previous_close", Weight: 4, Category: CategoryPrice,
		available: func(s *features.Snapshot) bool { return features.ValidPositive(s.Price.PreviousClose) }},

	{Name: "volume", Weight: 20, Critical: true, Category: CategoryVolume,
		available: func(s *features.Snapshot) bool { return features.ValidPositive(s.Volume.Current) }},
	{Name: "avg_volume", Weight: 6, Category: CategoryVolume,
		available: func(s *features.Snapshot) bool { return features.ValidPositive(s.Volume.Average) }},
	{Name: "relative_volume", Weight: 6, Category: CategoryVolume,
		available: func(s *features.Snapshot) bool { return features.ValidPositive(s.Volume.Relative) }},

	{Name: "vwap", Weight: 12, Critical: true, Category: CategoryTechnical,
		available: func(s *features.Snapshot) bool { return features.ValidPositive(s.Technical.VWAP) }},
	{Name: "vwap_distance", Weight: 3, Category: CategoryTechnical,
		available: func(s *features.Snapshot) bool { return features.Valid(s.Technical.VWAPDistancePct) }},
	{Name: "rsi", Weight: 8, Critical: true, Category: CategoryTechnical,
		available: func(s *features.Snapshot) bool { return features.Valid(s.Technical.RSI) }},
	{Name: "ema9", Weight: 3, Category: CategoryTechnical,
		available: func(s *features.Snapshot) bool { return features.ValidPositive(s.Technical.EMA9) }},
	{Name: "ema20", Weight: 3, Category: CategoryTechnical,
		available: func(s *features.Snapshot) bool { return features.ValidPositive(s.Technical.EMA20) }},
	{Name: "atr", Weight: 5, Category: CategoryTechnical,
		available: func(s *features.Snapshot) bool { return features.ValidPositive(s.Technical.ATR) }},

	{Name: "frames_1m", Weight: 3, Category: CategoryFrames,
		available: func(s *features.Snapshot) bool { return frameAvailable(s.Frames.M1) }},
	{Name: "frames_5m", Weight: 4, Category: CategoryFrames,
		available: func(s *features.Snapshot) bool { return frameAvailable(s.Frames.M5) }},
	{Name: "frames_15m", Weight: 3, Category: CategoryFrames,
		available: func(s *features.Snapshot) bool { return frameAvailable(s.Frames.M15) }},
	{Name: "frames_60m", Weight: 2, Category: CategoryFrames,
		available: func(s *features.Snapshot) bool { return frameAvailable(s.Frames.M60) }},

	{Name: "flow_score", Weight: 5, Category: CategoryFlow,
		available: func(s *features.Snapshot) bool { return features.Valid(s.Flow.Score) }},
	{Name: "flow_bias", Weight: 3, Category: CategoryFlow,
		available: func(s *features.Snapshot) bool { return s.Flow.Bias != nil }},

	{Name: "orb_high", Weight: 3, Category: CategoryPattern,
		available: func(s *features.Snapshot) bool { return features.ValidPositive(s.Pattern.ORBHigh) }},
	{Name: "orb_low", Weight: 3, Category: CategoryPattern,
		available: func(s *features.Snapshot) bool { return features.ValidPositive(s.Pattern.ORBLow) }},
	{Name: "swing_high", Weight: 2, Category: CategoryPattern,
		available: func(s *features.Snapshot) bool { return features.ValidPositive(s.Pattern.SwingHigh) }},
	{Name: "swing_low", Weight: 2, Category: CategoryPattern,
		available: func(s *features.Snapshot) bool { return features.ValidPositive(s.Pattern.SwingLow) }},
	{Name: "vix_level", Weight: 4, Category: CategoryPattern,
		available: func(s *features.Snapshot) bool { return features.ValidPositive(s.Pattern.VIX) }},
}

// weekendWeights is the relaxed off-hours table: live-tape fields (volume,
// flow, intraday frames) are de-weighted and lose their critical flag, while
// historical structure levels are up-weighted. Same scoring algorithm, the
// table is the only thing that changes.
var weekendWeights = buildWeekendWeights()

func buildWeekendWeights() []FieldWeight {
	out := make([]FieldWeight, len(standardWeights))
	copy(out, standardWeights)
	for i := range out {
		switch out[i].Name {
		case "volume":
			out[i].Weight, out[i].Critical = 6, false
		case "avg_volume", "relative_volume":
			out[i].Weight = 3
		case "vwap":
			out[i].Weight, out[i].Critical = 6, false
		case "vwap_distance":
			out[i].Weight = 1
		case "flow_score", "flow_bias":
			out[i].Weight = 1
		case "frames_1m", "frames_5m":
			out[i].Weight = 1
		case "previous_close":
			out[i].Weight = 10
		case "swing_high", "swing_low":
			out[i].Weight = 8
		case "orb_high", "orb_low":
			out[i].Weight = 5
		case "vix_level":
			out[i].Weight = 6
		}
	}
	return out
}

// StandardWeights returns the live-session weight table.
func StandardWeights() []FieldWeight { return standardWeights }

// WeekendWeights returns the relaxed off-hours weight table.
func WeekendWeights() []FieldWeight { return weekendWeights }
