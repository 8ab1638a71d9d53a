package scanconfig

import (
	"strings"

	"github.com/pulsedeck/scanner/internal/features"
)

// FilterDecision is the outcome of a pre-filter pass with a machine-readable
// reason for the first failing check.
type FilterDecision struct {
	Passed bool
	Reason string
}

// CheckSymbol runs the universal pre-filters against a snapshot. Filters
// run before, and independently of, any detector: a filtered symbol never
// reaches scoring. Checks that need optional data pass when the data is
// absent -- absence is the confidence scorer's concern, not the filter's.
func (p PreFilters) CheckSymbol(snap *features.Snapshot) FilterDecision {
	symbol := strings.ToUpper(snap.Symbol)
	for _, blocked := range p.Blacklist {
		if strings.ToUpper(blocked) == symbol {
			return FilterDecision{Reason: "blacklisted"}
		}
	}

	if p.RequireMarketHours && !snap.Session.RegularHours {
		return FilterDecision{Reason: "outside_market_hours"}
	}

	if p.MinRelativeVolume > 0 && features.ValidPositive(snap.Volume.Relative) &&
		*snap.Volume.Relative < p.MinRelativeVolume {
		return FilterDecision{Reason: "relative_volume_below_min"}
	}

	if p.MaxSpreadPct > 0 && features.Valid(snap.Price.SpreadPct) &&
		*snap.Price.SpreadPct > p.MaxSpreadPct {
		return FilterDecision{Reason: "spread_above_max"}
	}

	if p.RequireAvgVolume && p.MinAvgVolume > 0 {
		if !features.ValidPositive(snap.Volume.Average) || *snap.Volume.Average < p.MinAvgVolume {
			return FilterDecision{Reason: "avg_volume_below_min"}
		}
	}

	return FilterDecision{Passed: true, Reason: "ok"}
}
