// Momentum - Market Momentum Video Ranking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/momentum

package metrics

import (
	"runtime"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: []float64{.005, .01, .05, .1, .5, 1, 5, 15, 30, 60, 120},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Number of active API requests",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"endpoint"},
	)

	// Ranking Metrics
	RankDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rank_duration_seconds",
			Help:    "End-to-end duration of rank requests",
			Buckets: []float64{.01, .1, .5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"market", "cache"}, // cache: "hit", "miss"
	)

	RankResults = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rank_results",
			Help:    "Number of results returned per rank request",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100},
		},
		[]string{"market"},
	)

	RankErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rank_errors_total",
			Help: "Total number of failed rank requests",
		},
		[]string{"market", "reason"},
	)

	GuaranteeThreshold = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "guarantee_threshold_used",
			Help:    "Relevance threshold at which the result guarantee was satisfied",
			Buckets: []float64{0, 0.05, 0.1, 0.15, 0.25, 0.4},
		},
		[]string{"market"},
	)

	GuaranteeFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guarantee_fallbacks_total",
			Help: "Total number of times the guarantee widened collection",
		},
		[]string{"market"},
	)

	// Collection Metrics
	CollectionItems = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "collection_items",
			Help:    "Unique items gathered per collection",
			Buckets: []float64{0, 10, 25, 50, 100, 150, 200},
		},
		[]string{"market", "phase"}, // phase: "primary", "fallback"
	)

	ContentAPICalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "content_api_calls_total",
			Help: "Total number of content source API calls",
		},
		[]string{"operation", "result"}, // operation: "search", "details", "trending"
	)

	ContentAPIDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "content_api_duration_seconds",
			Help:    "Duration of content source API calls",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// Signal Metrics
	SignalFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signal_fetches_total",
			Help: "Total number of trend signal fetch outcomes",
		},
		[]string{"market", "outcome"}, // outcome: "success", "rate_limited", "blocked", "network", "unknown", "circuit_open", "cache_hit"
	)

	SignalDelaySeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "signal_adaptive_delay_seconds",
			Help:    "Adaptive delay applied before signal retries",
			Buckets: []float64{0.5, 1, 2, 3, 5, 10, 20, 30},
		},
	)

	SignalSuccessRate = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "signal_success_rate",
			Help: "Recent success rate of signal requests (sliding window)",
		},
	)

	// Scorer Metrics
	ScorerTokens = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scorer_tokens_total",
			Help: "Total number of tokens consumed by the relevance scorer",
		},
		[]string{"direction"}, // "input", "output"
	)

	ScorerCostDollars = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "scorer_cost_dollars_total",
			Help: "Total spend of the relevance scorer in dollars",
		},
	)

	ScorerBudgetRefusals = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scorer_budget_refusals_total",
			Help: "Total number of batches refused by the budget gate",
		},
		[]string{"policy"},
	)

	ScorerBudgetUsage = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "scorer_budget_usage_ratio",
			Help: "Fraction of the monthly scorer budget spent",
		},
		[]string{"period"}, // "month", "day"
	)

	ScorerBatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scorer_batch_duration_seconds",
			Help:    "Duration of relevance scorer batch calls",
			Buckets: []float64{.1, .5, 1, 2.5, 5, 10, 20, 30},
		},
		[]string{"result"},
	)

	ScorerItems = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scorer_items_total",
			Help: "Items assessed by source",
		},
		[]string{"source"}, // "cache", "store", "model", "default"
	)

	// Cache Metrics (General)
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"cache_type"}, // "fast", "memory", "durable", "response"
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"cache_type"},
	)

	CacheSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cache_entries",
			Help: "Current number of cached entries",
		},
		[]string{"cache_type"},
	)

	CacheEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_evictions_total",
			Help: "Total number of cache evictions (capacity or TTL expiry)",
		},
		[]string{"cache_type"},
	)

	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_errors_total",
			Help: "Total number of cache tier errors",
		},
		[]string{"cache_type", "operation"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerConsecutiveFailures = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_consecutive_failures",
			Help: "Current number of consecutive failures",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Maintenance Metrics
	MaintenanceRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "maintenance_runs_total",
			Help: "Total number of maintenance job runs",
		},
		[]string{"job", "result"},
	)

	// System Metrics
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_info",
			Help: "Application version and build information",
		},
		[]string{"version", "go_version"},
	)

	AppUptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "app_uptime_seconds",
			Help: "Application uptime in seconds",
		},
	)
)

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordRank records a completed rank request.
func RecordRank(market string, cacheHit bool, results int, duration time.Duration) {
	cache := "miss"
	if cacheHit {
		cache = "hit"
	}
	RankDuration.WithLabelValues(market, cache).Observe(duration.Seconds())
	RankResults.WithLabelValues(market).Observe(float64(results))
}

// RecordContentCall records one content source call.
func RecordContentCall(operation string, duration time.Duration, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	ContentAPICalls.WithLabelValues(operation, result).Inc()
	ContentAPIDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordScorerUsage records tokens and spend for one scorer call.
func RecordScorerUsage(inputTokens, outputTokens int, costDollars float64) {
	ScorerTokens.WithLabelValues("input").Add(float64(inputTokens))
	ScorerTokens.WithLabelValues("output").Add(float64(outputTokens))
	ScorerCostDollars.Add(costDollars)
}

// UpdateBudgetUsage sets the budget usage gauges. A zero budget reports 0.
func UpdateBudgetUsage(monthSpent, daySpent, monthlyBudget float64) {
	if monthlyBudget <= 0 {
		ScorerBudgetUsage.WithLabelValues("month").Set(0)
		ScorerBudgetUsage.WithLabelValues("day").Set(0)
		return
	}
	ScorerBudgetUsage.WithLabelValues("month").Set(monthSpent / monthlyBudget)
	ScorerBudgetUsage.WithLabelValues("day").Set(daySpent / monthlyBudget)
}

// RecordMaintenance records the outcome of a scheduled job.
func RecordMaintenance(job string, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	MaintenanceRuns.WithLabelValues(job, result).Inc()
}

// SetAppInfo publishes the build version.
func SetAppInfo(version string) {
	AppInfo.WithLabelValues(version, runtime.Version()).Set(1)
}

// StatusLabel formats an HTTP status code as a label value.
func StatusLabel(code int) string {
	return strconv.Itoa(code)
}
