package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "fablab"

// Search pipeline Prometheus metrics.
var (
	ProviderRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_requests_total",
			Help:      "Total number of job provider calls by outcome",
		},
		[]string{"provider", "status"}, // "ok" / "skipped" / "degraded"
	)

	ProviderRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_request_duration_seconds",
			Help:      "Job provider call duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"provider"},
	)

	ProviderJobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_jobs_total",
			Help:      "Jobs returned by providers before filtering",
		},
		[]string{"provider"},
	)

	SearchCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_cache_total",
			Help:      "Search cache lookups by result",
		},
		[]string{"result"}, // "hit" / "miss" / "bypass"
	)

	RateLimitedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Search requests rejected by the per-client rate limiter",
		},
	)

	RelevanceFilteredTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relevance_filtered_total",
			Help:      "External jobs seen by the relevance filter",
		},
		[]string{"result"}, // "kept" / "dropped"
	)

	VocabularyRefreshTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "vocabulary_refresh_total",
			Help:      "Relevance vocabulary refreshes by outcome",
		},
		[]string{"result"}, // "ok" / "fallback"
	)

	VocabularyGeneration = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "vocabulary_generation",
			Help:      "Current relevance vocabulary generation",
		},
	)

	RateLimitClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rate_limit_clients",
			Help:      "Clients tracked by the rate limiter after the last sweep",
		},
	)

	CuratedErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "curated_errors_total",
			Help:      "Curated store reads that failed and were absorbed",
		},
	)
)

var searchMetricsRegistered bool

// RegisterSearchMetrics registers Prometheus search metrics. Must be called once from main.
func RegisterSearchMetrics() {
	if searchMetricsRegistered {
		return
	}
	prometheus.MustRegister(ProviderRequestsTotal)
	prometheus.MustRegister(ProviderRequestDuration)
	prometheus.MustRegister(ProviderJobsTotal)
	prometheus.MustRegister(SearchCacheTotal)
	prometheus.MustRegister(RateLimitedTotal)
	prometheus.MustRegister(RelevanceFilteredTotal)
	prometheus.MustRegister(VocabularyRefreshTotal)
	prometheus.MustRegister(VocabularyGeneration)
	prometheus.MustRegister(CuratedErrorsTotal)
	prometheus.MustRegister(RateLimitClients)
	searchMetricsRegistered = true
}
