package adaptive

import (
	"time"

	"github.com/rs/zerolog/log"
)

// Window is a named time-of-day band with its base threshold set. Bands are
// half-open over minute-of-day in the market timezone.
type Window struct {
	Name          string  `json:"name"`
	StartMinute   int     `json:"start_minute"` // inclusive
	EndMinute     int     `json:"end_minute"`   // exclusive
	MinBase       float64 `json:"min_base"`
	MinStyle      float64 `json:"min_style"`
	MinRiskReward float64 `json:"min_risk_reward"`
	SizeMult      float64 `json:"size_mult"`
}

// marketTZ is the fixed market timezone for window classification.
var marketTZ *time.Location

func init() {
	var err error
	marketTZ, err = time.LoadLocation("America/New_York")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load market timezone")
	}
}

// The nine session windows. After-hours wraps midnight, so it appears twice
// in the table; classification still yields a single window by name.
var sessionWindows = []Window{
	{Name: "after_hours", StartMinute: 0, EndMinute: 240, MinBase: 85, MinStyle: 80, MinRiskReward: 2.5, SizeMult: 0.3},
	{Name: "pre_market", StartMinute: 240, EndMinute: 570, MinBase: 80, MinStyle: 75, MinRiskReward: 2.0, SizeMult: 0.5},
	{Name: "opening_drive", StartMinute: 570, EndMinute: 600, MinBase: 75, MinStyle: 72, MinRiskReward: 1.5, SizeMult: 1.0},
	{Name: "mid_morning", StartMinute: 600, EndMinute: 645, MinBase: 72, MinStyle: 70, MinRiskReward: 1.5, SizeMult: 1.0},
	{Name: "late_morning", StartMinute: 645, EndMinute: 690, MinBase: 74, MinStyle: 71, MinRiskReward: 1.6, SizeMult: 0.9},
	{Name: "lunch_chop", StartMinute: 690, EndMinute: 810, MinBase: 80, MinStyle: 76, MinRiskReward: 2.0, SizeMult: 0.6},
	{Name: "early_afternoon", StartMinute: 810, EndMinute: 870, MinBase: 76, MinStyle: 73, MinRiskReward: 1.7, SizeMult: 0.8},
	{Name: "afternoon", StartMinute: 870, EndMinute: 900, MinBase: 74, MinStyle: 72, MinRiskReward: 1.6, SizeMult: 0.9},
	{Name: "power_hour", StartMinute: 900, EndMinute: 960, MinBase: 73, MinStyle: 70, MinRiskReward: 1.5, SizeMult: 1.0},
	{Name: "after_hours", StartMinute: 960, EndMinute: 1440, MinBase: 85, MinStyle: 80, MinRiskReward: 2.5, SizeMult: 0.3},
}

// weekendWindow is the fixed advisory threshold set used when the evaluation
// time falls on a weekend. Size multiplier is zero: weekend signals are
// logged for review, never sized.
var weekendWindow = Window{
	Name:          "weekend",
	MinBase:       90,
	MinStyle:      85,
	MinRiskReward: 3.0,
	SizeMult:      0.0,
}

// ClassifyWindow maps a wall-clock instant to its session window in the
// market timezone. Weekends classify to the advisory weekend window.
func ClassifyWindow(t time.Time) Window {
	local := t.In(marketTZ)
	if wd := local.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return weekendWindow
	}

	minute := local.Hour()*60 + local.Minute()
	for _, w := range sessionWindows {
		if minute >= w.StartMinute && minute < w.EndMinute {
			return w
		}
	}
	// Unreachable: the table covers every minute of the day.
	return weekendWindow
}

// Windows returns the session window table for the ops surface.
func Windows() []Window { return sessionWindows }

// InMarketTime converts an instant to the fixed market timezone, shared by
// callers that need calendar-day comparisons consistent with window
// classification.
func InMarketTime(t time.Time) time.Time { return t.In(marketTZ) }
