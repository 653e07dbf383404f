package feeds

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	loadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feedreader_loads_total",
		Help: "Total number of feed loads by outcome",
	}, []string{"status"})

	loadDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "feedreader_load_duration_seconds",
		Help:    "Time from starting a feed load until its completion",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~20s
	})

	entriesRendered = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "feedreader_entries_rendered",
		Help: "Number of entries in the feed container after the last render",
	})

	fetchRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "feedreader_fetch_retries_total",
		Help: "Total number of retried feed fetches",
	})
)

// Load outcomes used as the status label
const (
	statusRendered = "rendered"
	statusStale    = "stale"
	statusCached   = "cached"
	statusFailed   = "failed"
)
