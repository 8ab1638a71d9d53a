package scan

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	signalsEmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scanner",
		Name:      "signals_emitted_total",
		Help:      "Signals emitted, by strategy type",
	}, []string{"strategy_type"})

	rejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scanner",
		Name:      "rejections_total",
		Help:      "Symbol/strategy evaluations rejected, by reason",
	}, []string{"reason"})

	symbolsScanned = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "scanner",
		Name:      "symbols_scanned_total",
		Help:      "Symbols processed across all scan invocations",
	})

	scanDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "scanner",
		Name:      "scan_duration_seconds",
		Help:      "Wall time of a full scan invocation",
		Buckets:   prometheus.DefBuckets,
	})
)
