package detect

import (
	"fmt"

	"github.com/pulsedeck/scanner/internal/features"
)

// ramp maps v linearly onto [0,100] over [lo,hi]. Values below lo score 0,
// above hi score 100. Used by factor evaluators to turn raw readings into
// factor scores without per-factor clamping code.
func ramp(v, lo, hi float64) float64 {
	if hi == lo {
		return 0
	}
	return clamp(100*(v-lo)/(hi-lo), 0, 100)
}

// invRamp is ramp with the scale reversed: lo scores 100, hi scores 0.
func invRamp(v, lo, hi float64) float64 {
	return 100 - ramp(v, lo, hi)
}

// errMissing is the uniform "factor input unavailable" error. The framework
// scores such factors 0; the error only feeds debug logging.
func errMissing(field string) error {
	return fmt.Errorf("missing field %s", field)
}

// need unwraps an optional snapshot field or reports it missing.
func need(v *float64, field string) (float64, error) {
	if !features.Valid(v) {
		return 0, errMissing(field)
	}
	return *v, nil
}

// needPositive is need for fields where zero means no data.
func needPositive(v *float64, field string) (float64, error) {
	if !features.ValidPositive(v) {
		return 0, errMissing(field)
	}
	return *v, nil
}

// atrUnits expresses a price distance in ATR multiples, falling back to a
// percentage-of-price scale when ATR is unavailable.
func atrUnits(snap *features.Snapshot, distance float64) (float64, error) {
	if features.ValidPositive(snap.Technical.ATR) {
		return distance / *snap.Technical.ATR, nil
	}
	price, err := needPositive(snap.Price.Current, "price")
	if err != nil {
		return 0, err
	}
	// 0.5% of price as a stand-in ATR keeps the scale comparable.
	return distance / (price * 0.005), nil
}

// frameAboveEMA9 reports whether a timeframe mirror closed above its EMA9.
func frameAboveEMA9(f *features.FrameSnapshot) bool {
	return f != nil && features.Valid(f.Close) && features.Valid(f.EMA9) && *f.Close > *f.EMA9
}

// frameBelowEMA9 is the bearish mirror of frameAboveEMA9.
func frameBelowEMA9(f *features.FrameSnapshot) bool {
	return f != nil && features.Valid(f.Close) && features.Valid(f.EMA9) && *f.Close < *f.EMA9
}
