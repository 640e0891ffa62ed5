// Package metrics is the ambient observability surface: cycle timing and
// gate rejection counts, exported for Prometheus scraping.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "trendrunner",
		Name:      "cycle_duration_seconds",
		Help:      "Wall-clock duration of one selection+gates+execution cycle.",
		Buckets:   prometheus.DefBuckets,
	})

	GateRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "trendrunner",
		Name:      "gate_rejections_total",
		Help:      "Count of candidates rejected, by machine reason code.",
	}, []string{"reason"})

	BuysExecuted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "trendrunner",
		Name:      "buys_executed_total",
		Help:      "Count of BUY trades dispatched, PAPER or LIVE.",
	})

	AutosellTriggers = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "trendrunner",
		Name:      "autosell_triggers_total",
		Help:      "Count of autosell exits, by threshold (sl|tp1|tp2).",
	}, []string{"threshold"})

	OpenPositions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "trendrunner",
		Name:      "open_positions",
		Help:      "Current count of OPEN or PARTIAL positions.",
	})

	SentinelHealthFactor = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "trendrunner",
		Name:      "sentinel_health_factor",
		Help:      "Most recently observed lending pool health factor.",
	})

	SentinelNetAPY = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "trendrunner",
		Name:      "sentinel_net_apy",
		Help:      "Weighted net APY (supply yield minus borrow cost) on pool equity.",
	})
)
