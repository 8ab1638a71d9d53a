package options

import (
	"context"
	"time"
)

// ChainSummary is the aggregate options-chain view consumed by detectors
// that need positioning data. Produced by the external chain provider; the
// engine never fetches or computes raw chains itself.
type ChainSummary struct {
	Symbol        string    `json:"symbol"`
	AsOf          time.Time `json:"as_of"`
	CallVolume    float64   `json:"call_volume"`
	PutVolume     float64   `json:"put_volume"`
	CallOI        float64   `json:"call_oi"`
	PutOI         float64   `json:"put_oi"`
	PutCallRatio  float64   `json:"put_call_ratio"`
	GammaExposure float64   `json:"gamma_exposure"` // net dealer gamma, $ per 1% move
	IVRank        float64   `json:"iv_rank"`        // 0-100 percentile of 52w IV range
}

// Provider supplies chain summaries. Absence of data is an error, never a
// (nil, nil) return, so callers can skip options-dependent detectors with a
// concrete reason.
type Provider interface {
	GetChainSummary(ctx context.Context, symbol string) (*ChainSummary, error)
}
