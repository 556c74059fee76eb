// Momentum - Market Momentum Video Ranking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/momentum

package signal

import (
	"context"
	"errors"
	"sync"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/momentum/internal/logging"
	"github.com/tomtom215/momentum/internal/metrics"
)

// Breaker guards the trend endpoint. It opens after threshold consecutive
// failures, stays open for cooldown, then admits a single trial request whose
// outcome closes or re-opens it.
//
// Caller cancellation does not count as a failure.
type Breaker struct {
	cb   *gobreaker.CircuitBreaker[struct{}]
	name string

	mu          sync.Mutex
	lastFailure time.Time
}

// BreakerSnapshot is a point-in-time view for status endpoints.
type BreakerSnapshot struct {
	Name                string    `json:"name"`
	State               string    `json:"state"`
	ConsecutiveFailures uint32    `json:"consecutive_failures"`
	TotalFailures       uint32    `json:"total_failures"`
	LastFailure         time.Time `json:"last_failure,omitempty"`
}

// NewBreaker creates a breaker. Metrics are labelled with name.
func NewBreaker(name string, threshold uint32, cooldown time.Duration) *Breaker {
	if threshold == 0 {
		threshold = 5
	}
	b := &Breaker{name: name}

	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(name).Set(0)

	b.cb = gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			trip := counts.ConsecutiveFailures >= threshold
			if trip {
				logging.Warn().Str("breaker", name).Uint32("failures", counts.ConsecutiveFailures).Msg("[CIRCUIT BREAKER] Opening circuit")
			}
			return trip
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().Str("breaker", name).Str("from", stateName(from)).Str("to", stateName(to)).Msg("[CIRCUIT BREAKER] State transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateValue(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, stateName(from), stateName(to)).Inc()
			if to == gobreaker.StateClosed {
				metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(name).Set(0)
			}
		},
	})
	return b
}

// Execute runs fn when the breaker admits it. A rejection returns an error
// classified as KindCircuitOpen without calling fn.
func (b *Breaker) Execute(fn func() error) error {
	_, err := b.cb.Execute(func() (struct{}, error) {
		return struct{}{}, fn()
	})

	switch {
	case err == nil:
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "success").Inc()
		metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(b.name).Set(0)
	case errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "rejected").Inc()
	default:
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "failure").Inc()
		metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(b.name).Set(float64(b.cb.Counts().ConsecutiveFailures))
		if !errors.Is(err, context.Canceled) {
			b.mu.Lock()
			b.lastFailure = time.Now()
			b.mu.Unlock()
		}
	}
	return err
}

// Open reports whether calls are currently rejected outright. A breaker
// whose cooldown has elapsed reports half-open, not open.
func (b *Breaker) Open() bool {
	return b.cb.State() == gobreaker.StateOpen
}

// State returns "closed", "open" or "half-open".
func (b *Breaker) State() string {
	return stateName(b.cb.State())
}

// Snapshot returns the current counters.
func (b *Breaker) Snapshot() BreakerSnapshot {
	counts := b.cb.Counts()
	b.mu.Lock()
	last := b.lastFailure
	b.mu.Unlock()
	return BreakerSnapshot{
		Name:                b.name,
		State:               b.State(),
		ConsecutiveFailures: counts.ConsecutiveFailures,
		TotalFailures:       counts.TotalFailures,
		LastFailure:         last,
	}
}

func stateValue(state gobreaker.State) float64 {
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

func stateName(state gobreaker.State) string {
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
