package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Quote metrics
	QuoteRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hyperdex_quote_requests_total",
			Help: "Total number of quote requests",
		},
		[]string{"side", "status"},
	)

	QuoteDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hyperdex_quote_duration_seconds",
			Help:    "Quote request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"side"},
	)

	TwoHopQuotesSelected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hyperdex_two_hop_quotes_selected_total",
		Help: "Total number of quotes settled through an intermediate token",
	})

	// Sampler metrics
	SamplerBatchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "hyperdex_sampler_batch_duration_seconds",
		Help:    "Duration of aggregated sampler eth_call round trips",
		Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	})

	SamplerBatchSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "hyperdex_sampler_batch_size",
		Help:    "Number of top level operations per sampler batch",
		Buckets: []float64{1, 5, 10, 25, 50, 100, 200},
	})

	SamplerBatchErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hyperdex_sampler_batch_errors_total",
		Help: "Total number of failed sampler round trips",
	})

	SamplerOperationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hyperdex_sampler_operation_failures_total",
			Help: "Total number of reverted or undecodable sampling operations",
		},
		[]string{"source"},
	)

	// Optimizer metrics
	OptimizerDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "hyperdex_optimizer_duration_seconds",
		Help:    "Path optimization duration in seconds",
		Buckets: []float64{0.0005, 0.001, 0.002, 0.005, 0.01, 0.02, 0.05, 0.1},
	})

	OptimizerMergeSteps = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "hyperdex_optimizer_merge_steps",
		Help:    "Search steps spent merging fill chains per quote",
		Buckets: []float64{0, 32, 64, 128, 256, 384, 512},
	})

	FillChains = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "hyperdex_fill_chains",
		Help:    "Number of fill chains built per quote",
		Buckets: []float64{0, 1, 2, 5, 10, 20, 50},
	})

	// Pool cache metrics
	PoolCacheSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "hyperdex_pool_cache_size",
			Help: "Current number of token pairs cached per source",
		},
		[]string{"source"},
	)

	PoolCacheRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hyperdex_pool_cache_refreshes_total",
			Help: "Total number of pool fetches per source and outcome",
		},
		[]string{"source", "status"},
	)

	PoolCacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hyperdex_pool_cache_misses_total",
			Help: "Total number of pool cache lookups that found nothing",
		},
		[]string{"source"},
	)

	// Chain metrics
	GasPriceGwei = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hyperdex_gas_price_gwei",
		Help: "Last observed network gas price in gwei",
	})

	// HTTP metrics
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hyperdex_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hyperdex_http_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)
