// Momentum - Market Momentum Video Ranking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/momentum

package signal

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tomtom215/momentum/internal/cache"
)

func fixedFloat(v float64) func() float64 { return func() float64 { return v } }

func TestPacer_Delay(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name      string
		float     float64
		attempt   int
		successes int
		failures  int
		want      time.Duration
	}{
		// float 0.5: human 1.2, jitter 0.
		{"first attempt", 0.5, 1, 0, 0, 3600 * time.Millisecond},
		{"second attempt backs off", 0.5, 2, 0, 0, 5400 * time.Millisecond},
		{"low success triples", 0.5, 1, 1, 9, 10800 * time.Millisecond},
		{"middling success doubles", 0.5, 1, 1, 1, 7200 * time.Millisecond},
		{"capped", 0.5, 7, 0, 0, 30 * time.Second},
		// float 0: human 0.8, jitter -0.3.
		{"minimum factors", 0, 1, 0, 0, 1680 * time.Millisecond},
		// float 1: human 1.6, jitter +0.3.
		{"maximum factors", 1, 1, 0, 0, 6240 * time.Millisecond},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			w := cache.NewOutcomeWindow(5*time.Minute, 10)
			for i := 0; i < tt.successes; i++ {
				w.Record(true)
			}
			for i := 0; i < tt.failures; i++ {
				w.Record(false)
			}
			p := NewPacer(3*time.Second, 30*time.Second, 0, w)
			p.float = fixedFloat(tt.float)

			got := p.Delay(tt.attempt)
			if diff := got - tt.want; diff > time.Millisecond || diff < -time.Millisecond {
				t.Errorf("Delay(%d) = %v, want %v", tt.attempt, got, tt.want)
			}
		})
	}
}

func TestPacer_WaitHonoursContext(t *testing.T) {
	t.Parallel()
	p := NewPacer(time.Hour, time.Hour, 0, cache.NewOutcomeWindow(time.Minute, 6))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	if err := p.Wait(ctx, 1); err == nil {
		t.Fatal("expected context error")
	}
	if time.Since(start) > time.Second {
		t.Error("Wait ignored cancellation")
	}
}

func TestPacer_ZeroBaseDoesNotSleep(t *testing.T) {
	t.Parallel()
	p := NewPacer(0, 0, 0, cache.NewOutcomeWindow(time.Minute, 6))
	if err := p.Wait(context.Background(), 3); err != nil {
		t.Errorf("Wait: %v", err)
	}
}

func TestPacer_WaitStopsBeforeDeadline(t *testing.T) {
	t.Parallel()
	p := NewPacer(time.Second, 10*time.Second, 0, cache.NewOutcomeWindow(time.Minute, 6))
	p.float = fixedFloat(0.5)
	slept := false
	p.sleep = func(context.Context, time.Duration) error {
		slept = true
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	if err := p.Wait(ctx, 1); !errors.Is(err, ErrBudgetExhausted) {
		t.Fatalf("Wait() = %v, want ErrBudgetExhausted", err)
	}
	if slept {
		t.Error("Wait slept although the delay outlasts the deadline")
	}
	if err := p.Wait(context.Background(), 1); err != nil || !slept {
		t.Errorf("Wait() without deadline = %v, slept %v", err, slept)
	}
}
