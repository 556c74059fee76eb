// Momentum - Market Momentum Video Ranking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/momentum

package signal

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/tomtom215/momentum/internal/cache"
	"github.com/tomtom215/momentum/internal/metrics"
)

// ErrBudgetExhausted is returned by Wait when the next request could not
// start before the context deadline.
var ErrBudgetExhausted = errors.New("signal fetch budget exhausted")

// Pacer spaces out requests to the trend endpoint. Each call waits for the
// shared rate limiter and then for an adaptive delay:
//
//	base × human[0.8, 1.6] × 1.5^(attempt-1) × slowdown × (1 ± 0.3), capped at max
//
// where slowdown is 3 when the recent success rate is below 0.3 and 2 below 0.6.
type Pacer struct {
	base    time.Duration
	max     time.Duration
	window  *cache.OutcomeWindow
	limiter *rate.Limiter

	mu    sync.Mutex
	float func() float64
	sleep func(ctx context.Context, d time.Duration) error
}

// NewPacer builds a pacer. requestsPerMinute <= 0 disables the limiter.
func NewPacer(base, maxDelay time.Duration, requestsPerMinute int, window *cache.OutcomeWindow) *Pacer {
	limit := rate.Inf
	if requestsPerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(requestsPerMinute))
	}
	return &Pacer{
		base:    base,
		max:     maxDelay,
		window:  window,
		limiter: rate.NewLimiter(limit, 1),
		float:   rand.Float64,
		sleep:   sleepCtx,
	}
}

// Delay computes the delay before attempt (1-based).
func (p *Pacer) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	p.mu.Lock()
	human := 0.8 + 0.8*p.float()
	jitter := -0.3 + 0.6*p.float()
	p.mu.Unlock()

	success := p.window.Rate()
	metrics.SignalSuccessRate.Set(success)

	d := float64(p.base) * human * math.Pow(1.5, float64(attempt-1))
	switch {
	case success < 0.3:
		d *= 3
	case success < 0.6:
		d *= 2
	}
	d *= 1 + jitter

	if p.max > 0 && d > float64(p.max) {
		d = float64(p.max)
	}
	return time.Duration(d)
}

// Wait blocks for the limiter and the adaptive delay, or until ctx ends. It
// returns ErrBudgetExhausted without sleeping when the delay would reach the
// context deadline.
func (p *Pacer) Wait(ctx context.Context, attempt int) error {
	if err := p.limiter.Wait(ctx); err != nil {
		if ctx.Err() == nil {
			return ErrBudgetExhausted
		}
		return err
	}
	d := p.Delay(attempt)
	if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) <= d {
		return ErrBudgetExhausted
	}
	metrics.SignalDelaySeconds.Observe(d.Seconds())
	return p.sleep(ctx, d)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
