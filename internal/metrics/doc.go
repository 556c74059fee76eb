// Momentum - Market Momentum Video Ranking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/momentum

/*
Package metrics provides Prometheus metrics collection and export for observability.

All collectors are registered with the default registry through promauto and
exposed at /metrics:

	curl http://localhost:8000/metrics

# Available Metrics

API:
  - api_requests_total, api_request_duration_seconds, api_active_requests
  - api_rate_limit_hits_total

Ranking pipeline:
  - rank_duration_seconds (labels: market, cache), rank_results, rank_errors_total
  - guarantee_threshold_used, guarantee_fallbacks_total
  - collection_items (labels: market, phase)
  - content_api_calls_total, content_api_duration_seconds

Signal client:
  - signal_fetches_total (labels: market, outcome)
  - signal_adaptive_delay_seconds, signal_success_rate

Relevance scorer:
  - scorer_tokens_total, scorer_cost_dollars_total
  - scorer_budget_refusals_total, scorer_budget_usage_ratio
  - scorer_batch_duration_seconds, scorer_items_total

Caches (label cache_type: fast, memory, durable, response):
  - cache_hits_total, cache_misses_total, cache_entries
  - cache_evictions_total, cache_errors_total

Circuit breakers (label name):
  - circuit_breaker_state (0=closed, 1=half-open, 2=open)
  - circuit_breaker_requests_total, circuit_breaker_consecutive_failures
  - circuit_breaker_state_transitions_total

# Thread Safety

All recording helpers are safe for concurrent use.
*/
package metrics
