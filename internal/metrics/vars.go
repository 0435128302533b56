package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	ScanCycles = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "arb_scan_cycles_total",
		Help: "Number of completed scan cycles",
	})

	ScanCycleDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "arb_scan_cycle_seconds",
		Help:    "Wall time of one scan cycle",
		Buckets: prometheus.DefBuckets,
	})

	OpportunitiesFound = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "arb_opportunities_total",
		Help: "Number of opportunities emitted",
	})

	LastCycleOpportunities = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "arb_last_cycle_opportunities",
		Help: "Opportunities emitted by the most recent cycle",
	})

	ProviderErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "arb_provider_errors_total",
		Help: "Number of market data provider failures",
	})

	CacheHits = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "arb_cache_hits_total",
		Help: "Market data cache hits within TTL",
	})

	CacheMisses = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "arb_cache_misses_total",
		Help: "Market data cache misses or stale entries",
	})

	CacheFallbacks = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "arb_cache_fallbacks_total",
		Help: "Synthetic fallback snapshots served",
	})
)

func init() {
	prometheus.MustRegister(
		ScanCycles,
		ScanCycleDuration,
		OpportunitiesFound,
		LastCycleOpportunities,
		ProviderErrors,
		CacheHits,
		CacheMisses,
		CacheFallbacks,
	)
}
