// Momentum - Market Momentum Video Ranking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/momentum

package content

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/momentum/internal/logging"
	"github.com/tomtom215/momentum/internal/metrics"
)

// SourceBreakerName labels the content source breaker in metrics.
const SourceBreakerName = "youtube-api"

// CircuitBreakerSource wraps a Source with a circuit breaker so that a
// failing content API is not hammered by every concurrent search.
//
// Circuit breaker configuration:
//   - Max 3 concurrent requests in half-open state
//   - 1 minute measurement window
//   - 2 minute timeout before attempting recovery
//   - Opens after 60% failure rate with minimum 10 requests
//
// Quota exhaustion trips immediately: nothing succeeds until the quota
// resets, so further calls are pointless.
type CircuitBreakerSource struct {
	source Source
	cb     *gobreaker.CircuitBreaker[interface{}]
	name   string
}

// NewCircuitBreakerSource decorates source.
func NewCircuitBreakerSource(source Source) *CircuitBreakerSource {
	cbName := SourceBreakerName

	metrics.CircuitBreakerState.WithLabelValues(cbName).Set(0)
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(cbName).Set(0)

	var quotaHit atomic.Bool
	cb := gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        cbName,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if quotaHit.Swap(false) {
				logging.Warn().Msg("[CIRCUIT BREAKER] Content quota exhausted, opening circuit")
				return true
			}
			if counts.Requests < 10 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			shouldTrip := failureRatio >= 0.6
			if shouldTrip {
				logging.Warn().Uint32("failures", counts.TotalFailures).Float64("failure_rate", failureRatio*100).Msg("[CIRCUIT BREAKER] Opening circuit")
			}
			return shouldTrip
		},

		IsSuccessful: func(err error) bool {
			if errors.Is(err, ErrQuotaExceeded) {
				quotaHit.Store(true)
				return false
			}
			return err == nil || errors.Is(err, context.Canceled)
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr := stateToString(from)
			toStr := stateToString(to)
			logging.Info().Str("breaker", name).Str("from", fromStr).Str("to", toStr).Msg("[CIRCUIT BREAKER] State transition")

			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()
			if to == gobreaker.StateClosed {
				metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(name).Set(0)
			}
		},
	})

	return &CircuitBreakerSource{source: source, cb: cb, name: cbName}
}

// execute runs fn under the breaker and records the outcome.
func (s *CircuitBreakerSource) execute(fn func() (interface{}, error)) (interface{}, error) {
	result, err := s.cb.Execute(fn)
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.CircuitBreakerRequests.WithLabelValues(s.name, "rejected").Inc()
		} else {
			metrics.CircuitBreakerRequests.WithLabelValues(s.name, "failure").Inc()
			metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(s.name).Set(float64(s.cb.Counts().ConsecutiveFailures))
		}
		return nil, err
	}
	metrics.CircuitBreakerRequests.WithLabelValues(s.name, "success").Inc()
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(s.name).Set(0)
	return result, nil
}

// castResult type-asserts a breaker result.
func castResult[T any](result interface{}, err error) (T, error) {
	var zero T
	if err != nil {
		return zero, err
	}
	if result == nil {
		return zero, nil
	}
	typed, ok := result.(T)
	if !ok {
		return zero, fmt.Errorf("circuit breaker: unexpected result type %T", result)
	}
	return typed, nil
}

// Search implements Source.
func (s *CircuitBreakerSource) Search(ctx context.Context, term, market string, maxResults int, publishedAfter time.Time) ([]Item, error) {
	return castResult[[]Item](s.execute(func() (interface{}, error) {
		return s.source.Search(ctx, term, market, maxResults, publishedAfter)
	}))
}

// Details implements Source.
func (s *CircuitBreakerSource) Details(ctx context.Context, ids []string) (map[string]Item, error) {
	return castResult[map[string]Item](s.execute(func() (interface{}, error) {
		return s.source.Details(ctx, ids)
	}))
}

// Trending implements Source.
func (s *CircuitBreakerSource) Trending(ctx context.Context, market string, maxResults int) ([]Item, error) {
	return castResult[[]Item](s.execute(func() (interface{}, error) {
		return s.source.Trending(ctx, market, maxResults)
	}))
}

// State returns the breaker state name.
func (s *CircuitBreakerSource) State() string {
	return stateToString(s.cb.State())
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}
