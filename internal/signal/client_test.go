// Momentum - Market Momentum Video Ranking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/momentum

package signal

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/momentum/internal/cache"
	"github.com/tomtom215/momentum/internal/config"
	"github.com/tomtom215/momentum/internal/market"
)

// fakeTransport answers per property and counts calls.
type fakeTransport struct {
	mu       sync.Mutex
	interest map[Property]func() ([]float64, error)
	related  map[Property]func() (*Related, error)
	calls    int
	seen     []*Identity
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		interest: map[Property]func() ([]float64, error){
			PropertyWeb:     func() ([]float64, error) { return []float64{20, 40, 80, 100, 90}, nil },
			PropertyYouTube: func() ([]float64, error) { return []float64{10, 50, 70, 80}, nil },
		},
		related: map[Property]func() (*Related, error){
			PropertyWeb: func() (*Related, error) {
				return &Related{TopTopics: []string{"Bundesliga - Topic"}, TopQueries: []string{"ignored web query"}}, nil
			},
			PropertyYouTube: func() (*Related, error) {
				return &Related{TopQueries: []string{"bayern highlights", "bvb"}, RisingQueries: []string{"kane"}}, nil
			},
		},
	}
}

func (f *fakeTransport) Interest(_ context.Context, id *Identity, q Query) ([]float64, error) {
	f.mu.Lock()
	f.calls++
	f.seen = append(f.seen, id)
	fn := f.interest[q.Property]
	f.mu.Unlock()
	return fn()
}

func (f *fakeTransport) Related(_ context.Context, id *Identity, q Query) (*Related, error) {
	f.mu.Lock()
	f.calls++
	f.seen = append(f.seen, id)
	fn := f.related[q.Property]
	f.mu.Unlock()
	return fn()
}

func (f *fakeTransport) set(p Property, fn func() ([]float64, error)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.interest[p] = fn
}

func (f *fakeTransport) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func testClient(t *testing.T, ft *fakeTransport, mutate func(*config.SignalConfig)) *Client {
	t.Helper()
	cfg := config.SignalConfig{
		Timeout:          time.Second,
		FailureThreshold: 5,
		Cooldown:         time.Minute,
		MaxRetries:       3,
		PoolSize:         2,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	tiered := cache.NewTiered(cache.Layer{Tier: cache.NewMemoryTier(100), TTL: time.Hour})
	c := NewClient(cfg, config.CacheConfig{TermsTTL: 2 * time.Hour}, ft, tiered)
	c.pacer.sleep = func(context.Context, time.Duration) error { return nil }
	return c
}

func TestClient_FetchSignal(t *testing.T) {
	t.Parallel()
	ft := newFakeTransport()
	c := testClient(t, ft, nil)

	entry, err := c.FetchSignal(context.Background(), "Bundesliga", "DE", market.Timeframe24h)
	if err != nil {
		t.Fatalf("FetchSignal: %v", err)
	}
	if !entry.IsTrending || !entry.YouTubeTrending {
		t.Errorf("expected both series trending: %+v", entry)
	}
	if entry.Alignment != AlignmentStrong || entry.Boost <= 0 || entry.Boost > maxBoost {
		t.Errorf("alignment %q boost %v", entry.Alignment, entry.Boost)
	}
	if entry.DataPoints != 5 || entry.CacheTier != "" {
		t.Errorf("data points %d tier %q", entry.DataPoints, entry.CacheTier)
	}
	if !reflect.DeepEqual(entry.Related.TopTopics, []string{"Bundesliga - Topic"}) ||
		!reflect.DeepEqual(entry.Related.TopQueries, []string{"bayern highlights", "bvb"}) {
		t.Errorf("related = %+v", entry.Related)
	}
	if ft.count() != 4 {
		t.Errorf("transport calls = %d, want 4", ft.count())
	}

	again, err := c.FetchSignal(context.Background(), "Bundesliga", "DE", market.Timeframe24h)
	if err != nil {
		t.Fatalf("second FetchSignal: %v", err)
	}
	if again.CacheTier != cache.TierMemory {
		t.Errorf("second fetch tier = %q, want memory", again.CacheTier)
	}
	if ft.count() != 4 {
		t.Error("cached fetch reached the transport")
	}
}

func TestClient_IncompleteEntryNotCached(t *testing.T) {
	t.Parallel()
	ft := newFakeTransport()
	ft.set(PropertyYouTube, func() ([]float64, error) { return nil, errors.New("decode widget: bad json") })
	c := testClient(t, ft, func(cfg *config.SignalConfig) { cfg.MaxRetries = 1 })

	entry, err := c.FetchSignal(context.Background(), "q", "US", market.Timeframe48h)
	if err != nil {
		t.Fatalf("FetchSignal: %v", err)
	}
	if entry.YouTubeTrending || entry.Alignment != AlignmentModerate {
		t.Errorf("entry = %+v", entry)
	}

	before := ft.count()
	if _, err := c.FetchSignal(context.Background(), "q", "US", market.Timeframe48h); err != nil {
		t.Fatal(err)
	}
	if ft.count() == before {
		t.Error("incomplete entry was served from cache")
	}
}

func TestClient_RetriesNetworkErrors(t *testing.T) {
	t.Parallel()
	ft := newFakeTransport()
	ft.set(PropertyWeb, func() ([]float64, error) { return nil, errors.New("connection reset by peer") })
	c := testClient(t, ft, nil)

	_, err := c.FetchSignal(context.Background(), "q", "US", market.Timeframe24h)
	if KindOf(err) != KindNetwork || !Unavailable(err) {
		t.Fatalf("err = %v", err)
	}
	if ft.count() != 3 {
		t.Errorf("attempts = %d, want 3", ft.count())
	}
	if st := c.Stats(); st.Requests != 3 || st.SuccessRate != 0 {
		t.Errorf("stats = %+v", st)
	}
}

func TestClient_RetriesStopWithinFetchBudget(t *testing.T) {
	t.Parallel()
	ft := newFakeTransport()
	ft.set(PropertyWeb, func() ([]float64, error) { return nil, errors.New("connection reset by peer") })
	c := testClient(t, ft, func(cfg *config.SignalConfig) {
		cfg.MaxRetries = 5
		cfg.BaseDelay = 100 * time.Millisecond
		cfg.MaxDelay = 10 * time.Second
		cfg.FetchBudget = 300 * time.Millisecond
	})
	c.pacer.float = fixedFloat(0.5)

	_, err := c.FetchSignal(context.Background(), "q", "US", market.Timeframe24h)
	if KindOf(err) != KindNetwork || !Unavailable(err) {
		t.Fatalf("err = %v", err)
	}
	if errors.Is(err, ErrBudgetExhausted) {
		t.Error("budget stop hid the upstream failure")
	}
	// 120ms fits the budget, the 540ms backoff after a failure does not.
	if ft.count() != 1 {
		t.Errorf("attempts = %d, want 1", ft.count())
	}
}

func TestClient_SlowTransportBoundedByFetchBudget(t *testing.T) {
	t.Parallel()
	ft := newFakeTransport()
	ft.set(PropertyWeb, func() ([]float64, error) {
		time.Sleep(40 * time.Millisecond)
		return nil, &HTTPError{Status: 502}
	})
	c := testClient(t, ft, func(cfg *config.SignalConfig) {
		cfg.MaxRetries = 50
		cfg.FailureThreshold = 100
		cfg.FetchBudget = 150 * time.Millisecond
	})

	start := time.Now()
	_, err := c.FetchSignal(context.Background(), "q", "US", market.Timeframe24h)
	if !Unavailable(err) {
		t.Fatalf("err = %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("FetchSignal took %v with a 150ms budget", elapsed)
	}
	if n := ft.count(); n >= 50 {
		t.Errorf("attempts = %d, budget did not stop the retries", n)
	}
}

func TestClient_RateLimitRotatesIdentity(t *testing.T) {
	t.Parallel()
	ft := newFakeTransport()
	ft.set(PropertyWeb, func() ([]float64, error) { return nil, &HTTPError{Status: 429} })
	c := testClient(t, ft, nil)

	_, err := c.FetchSignal(context.Background(), "q", "US", market.Timeframe24h)
	if KindOf(err) != KindRateLimited {
		t.Fatalf("err = %v", err)
	}
	if ft.count() != 1 {
		t.Errorf("rate-limited call retried %d times", ft.count()-1)
	}

	used := ft.seen[0]
	for i := 0; i < c.pool.Size(); i++ {
		if c.pool.Next() == used {
			t.Error("rate-limited identity still in rotation")
		}
	}
}

func TestClient_OpenBreakerSkipsTransport(t *testing.T) {
	t.Parallel()
	ft := newFakeTransport()
	ft.set(PropertyWeb, func() ([]float64, error) { return nil, errors.New("connection refused") })
	c := testClient(t, ft, func(cfg *config.SignalConfig) {
		cfg.FailureThreshold = 2
		cfg.MaxRetries = 1
	})

	for i := 0; i < 2; i++ {
		_, _ = c.FetchSignal(context.Background(), "q", "US", market.Timeframe24h)
	}
	calls := ft.count()

	start := time.Now()
	_, err := c.FetchSignal(context.Background(), "q", "US", market.Timeframe24h)
	if KindOf(err) != KindCircuitOpen {
		t.Fatalf("err = %v, want circuit_open", err)
	}
	if ft.count() != calls {
		t.Error("open breaker reached the transport")
	}
	if time.Since(start) > 100*time.Millisecond {
		t.Error("open breaker should fail fast")
	}
	if c.Healthy() {
		t.Error("client with open breaker reported healthy")
	}
}

func TestClient_CancellationDoesNotTrip(t *testing.T) {
	t.Parallel()
	ft := newFakeTransport()
	c := testClient(t, ft, func(cfg *config.SignalConfig) { cfg.FailureThreshold = 1 })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.FetchSignal(ctx, "q", "US", market.Timeframe24h)
	if !Unavailable(err) {
		t.Fatalf("err = %v", err)
	}
	if c.breaker.Open() {
		t.Error("cancelled request opened the breaker")
	}
}

func TestClient_EnhancedTerms(t *testing.T) {
	t.Parallel()
	ft := newFakeTransport()
	c := testClient(t, ft, nil)

	terms := c.EnhancedTerms(context.Background(), "Bundesliga", "DE", market.Timeframe24h)
	want := []string{"Bundesliga", "bayern highlights", "bvb", "kane"}
	if !reflect.DeepEqual(terms, want) {
		t.Errorf("terms = %q, want %q", terms, want)
	}

	calls := ft.count()
	if got := c.EnhancedTerms(context.Background(), "Bundesliga", "DE", market.Timeframe24h); !reflect.DeepEqual(got, want) {
		t.Errorf("cached terms = %q", got)
	}
	if ft.count() != calls {
		t.Error("cached terms reached the transport")
	}
}

func TestClient_EnhancedTermsFallback(t *testing.T) {
	t.Parallel()
	ft := newFakeTransport()
	ft.set(PropertyWeb, func() ([]float64, error) { return nil, &HTTPError{Status: 403} })
	c := testClient(t, ft, nil)

	terms := c.EnhancedTerms(context.Background(), "Bundesliga", "DE", market.Timeframe24h)
	profile, err := market.Lookup("DE")
	if err != nil {
		t.Fatal(err)
	}
	want := dedupeTerms(profile.LocalVariants("Bundesliga"), maxTerms)
	if !reflect.DeepEqual(terms, want) {
		t.Errorf("fallback terms = %q, want %q", terms, want)
	}
	if terms[0] != "Bundesliga" {
		t.Errorf("query should come first, got %q", terms[0])
	}

	if got := fallbackTerms("x", "ZZ"); !reflect.DeepEqual(got, []string{"x"}) {
		t.Errorf("unknown market fallback = %q", got)
	}
}
