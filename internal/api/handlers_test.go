// Momentum - Market Momentum Video Ranking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/momentum

package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/momentum/internal/cache"
	"github.com/tomtom215/momentum/internal/content"
	"github.com/tomtom215/momentum/internal/market"
	"github.com/tomtom215/momentum/internal/middleware"
	"github.com/tomtom215/momentum/internal/momentum"
	"github.com/tomtom215/momentum/internal/relevance"
	"github.com/tomtom215/momentum/internal/signal"
)

type fakeRanker struct {
	mu          sync.Mutex
	resp        *momentum.Response
	err         error
	last        momentum.Request
	invalidated []string
	deleted     int
}

func (f *fakeRanker) Rank(_ context.Context, req momentum.Request) (*momentum.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.last = req
	return f.resp, f.err
}

func (f *fakeRanker) Invalidate(_ context.Context, mkt, query string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invalidated = append(f.invalidated, mkt+"|"+query)
	return f.deleted, nil
}

func (f *fakeRanker) Markets() []string { return []string{"DE", "FR", "US"} }

type fakeSignals struct {
	entry *signal.Entry
	err   error
	terms []string
}

func (f *fakeSignals) FetchSignal(context.Context, string, string, market.Timeframe) (*signal.Entry, error) {
	return f.entry, f.err
}

func (f *fakeSignals) EnhancedTerms(context.Context, string, string, market.Timeframe) []string {
	return f.terms
}

func (f *fakeSignals) Stats() signal.Stats { return signal.Stats{SuccessRate: 1, PoolSize: 3} }
func (f *fakeSignals) Healthy() bool       { return f.err == nil }

type fakeBudget struct{}

func (fakeBudget) Snapshot() relevance.LedgerSnapshot {
	return relevance.LedgerSnapshot{Month: "2026-10", MonthlyCost: 1.5, MonthlyBudget: 50, Remaining: 48.5}
}

type fakeUsage struct {
	mu   sync.Mutex
	days []int
	err  error
}

func (f *fakeUsage) Usage(_ context.Context, days int, now time.Time) (*relevance.UsageReport, error) {
	f.mu.Lock()
	f.days = append(f.days, days)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return &relevance.UsageReport{
		Days:   days,
		Since:  now.AddDate(0, 0, -days),
		Totals: relevance.UsageTotals{Requests: 12, CostDollars: 0.42},
		Markets: []relevance.MarketUsage{
			{Market: "DE", Requests: 12, CostDollars: 0.42},
		},
	}, nil
}

type fakeCacheStats struct{}

func (fakeCacheStats) Stats() cache.Stats {
	return cache.Stats{
		Lookups: 4,
		Hits:    3,
		Misses:  1,
		HitRate: 0.75,
		Tiers:   []cache.TierStats{{Tier: cache.TierMemory, Hits: 3, Misses: 1, HitRate: 0.75}},
	}
}

type fakeFeed struct {
	items []content.Item
	err   error
}

func (f *fakeFeed) Search(context.Context, string, string, int, time.Time) ([]content.Item, error) {
	return nil, nil
}

func (f *fakeFeed) Details(context.Context, []string) (map[string]content.Item, error) {
	return nil, nil
}

func (f *fakeFeed) Trending(_ context.Context, _ string, maxResults int) ([]content.Item, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.items[:min(maxResults, len(f.items))], nil
}

func newTestServer(t *testing.T, deps Deps) (http.Handler, *fakeRanker) {
	t.Helper()
	ranker, ok := deps.Ranker.(*fakeRanker)
	if !ok || ranker == nil {
		ranker = &fakeRanker{resp: &momentum.Response{Success: true, Query: "gaming", Market: "DE"}}
		deps.Ranker = ranker
	}
	if deps.Signals == nil {
		deps.Signals = &fakeSignals{entry: &signal.Entry{TrendScore: 42}, terms: []string{"gaming news"}}
	}
	cfg := DefaultChiMiddlewareConfig()
	cfg.RateLimitDisabled = true
	return NewRouter(NewHandler(deps), NewChiMiddleware(cfg)).SetupChi(), ranker
}

func do(t *testing.T, h http.Handler, method, target string) (*httptest.ResponseRecorder, APIResponse) {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(method, target, nil))
	var resp APIResponse
	if w.Header().Get("Content-Type") == "application/json" {
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode %s: %v", target, err)
		}
	}
	return w, resp
}

func TestTrending(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		target   string
		err      error
		wantCode int
		wantErr  string
	}{
		{"success", "/api/v1/trending?query=gaming&country=de&limit=5", nil, http.StatusOK, ""},
		{"alias params", "/api/v1/trending?q=gaming&market=DE", nil, http.StatusOK, ""},
		{"bad limit", "/api/v1/trending?query=gaming&country=DE&limit=ten", nil, http.StatusBadRequest, ErrCodeBadRequest},
		{"invalid request", "/api/v1/trending?query=x&country=DE", &momentum.RequestError{Reason: "query too short"}, http.StatusBadRequest, ErrCodeValidation},
		{"timeout", "/api/v1/trending?query=gaming&country=DE", context.DeadlineExceeded, http.StatusGatewayTimeout, ErrCodeTimeout},
		{"pipeline failure", "/api/v1/trending?query=gaming&country=DE", errors.New("collect: quota"), http.StatusInternalServerError, ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ranker := &fakeRanker{resp: &momentum.Response{Success: true, Query: "gaming", Market: "DE"}, err: tt.err}
			h, _ := newTestServer(t, Deps{Ranker: ranker})

			w, resp := do(t, h, http.MethodGet, tt.target)
			if w.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d: %s", w.Code, tt.wantCode, w.Body.String())
			}
			if tt.wantErr == "" {
				if resp.Status != "success" {
					t.Errorf("status field = %q", resp.Status)
				}
				return
			}
			if resp.Error == nil || resp.Error.Code != tt.wantErr {
				t.Errorf("error = %+v, want code %s", resp.Error, tt.wantErr)
			}
		})
	}
}

func TestTrending_PassesParameters(t *testing.T) {
	t.Parallel()

	h, ranker := newTestServer(t, Deps{})
	w, _ := do(t, h, http.MethodGet, "/api/v1/trending?query=+gaming+&country=fr&timeframe=7d&limit=7")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	want := momentum.Request{Query: "gaming", Market: "FR", Timeframe: "7d", Limit: 7}
	if ranker.last != want {
		t.Errorf("request = %+v, want %+v", ranker.last, want)
	}
	if w.Header().Get(middleware.RequestIDHeader) == "" {
		t.Error("missing request id header")
	}
}

func TestSearchTerms(t *testing.T) {
	t.Parallel()

	h, _ := newTestServer(t, Deps{})

	w, resp := do(t, h, http.MethodGet, "/api/v1/search-terms?query=gaming&country=DE")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	data, ok := resp.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("data = %T", resp.Data)
	}
	if data["country"] != "DE" || data["timeframe"] != "48h" {
		t.Errorf("data = %v", data)
	}

	for _, target := range []string{
		"/api/v1/search-terms?query=gaming",
		"/api/v1/search-terms?query=gaming&country=DE&timeframe=1y",
		"/api/v1/search-terms?query=gaming&country=JP",
	} {
		if w, _ := do(t, h, http.MethodGet, target); w.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", target, w.Code)
		}
	}
}

func TestSignal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		wantCode int
		wantKind string
	}{
		{"available", nil, http.StatusOK, ""},
		{"rate limited", &signal.Error{Kind: signal.KindRateLimited, Op: "interest", Status: 429, Err: errors.New("too many")}, http.StatusServiceUnavailable, "rate_limited"},
		{"network", &signal.Error{Kind: signal.KindNetwork, Op: "interest", Err: errors.New("reset")}, http.StatusBadGateway, "network"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			h, _ := newTestServer(t, Deps{Signals: &fakeSignals{entry: &signal.Entry{TrendScore: 55}, err: tt.err}})

			w, resp := do(t, h, http.MethodGet, "/api/v1/signal?query=gaming&country=DE&timeframe=24h")
			if w.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantCode)
			}
			if tt.wantKind != "" {
				if resp.Error == nil || resp.Error.Details["kind"] != tt.wantKind {
					t.Errorf("error = %+v, want kind %s", resp.Error, tt.wantKind)
				}
			}
		})
	}
}

func TestFeed(t *testing.T) {
	t.Parallel()

	items := []content.Item{{ID: "a"}, {ID: "b"}, {ID: "c"}}

	t.Run("limit applied", func(t *testing.T) {
		t.Parallel()
		h, _ := newTestServer(t, Deps{Feed: &fakeFeed{items: items}})
		w, resp := do(t, h, http.MethodGet, "/api/v1/feeds/de?limit=2")
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d: %s", w.Code, w.Body.String())
		}
		data := resp.Data.(map[string]interface{})
		if data["total_videos"] != float64(2) || data["country"] != "DE" {
			t.Errorf("data = %v", data)
		}
	})

	t.Run("limit out of range", func(t *testing.T) {
		t.Parallel()
		h, _ := newTestServer(t, Deps{Feed: &fakeFeed{items: items}})
		if w, _ := do(t, h, http.MethodGet, "/api/v1/feeds/DE?limit=500"); w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", w.Code)
		}
	})

	t.Run("upstream failure", func(t *testing.T) {
		t.Parallel()
		h, _ := newTestServer(t, Deps{Feed: &fakeFeed{err: errors.New("quota exceeded")}})
		if w, _ := do(t, h, http.MethodGet, "/api/v1/feeds/DE"); w.Code != http.StatusBadGateway {
			t.Errorf("status = %d, want 502", w.Code)
		}
	})

	t.Run("not configured", func(t *testing.T) {
		t.Parallel()
		h, _ := newTestServer(t, Deps{})
		if w, _ := do(t, h, http.MethodGet, "/api/v1/feeds/DE"); w.Code != http.StatusServiceUnavailable {
			t.Errorf("status = %d, want 503", w.Code)
		}
	})
}

func TestMarketsAndBudget(t *testing.T) {
	t.Parallel()

	h, _ := newTestServer(t, Deps{Budget: fakeBudget{}})

	_, resp := do(t, h, http.MethodGet, "/api/v1/markets")
	list, ok := resp.Data.([]interface{})
	if !ok || len(list) != 3 {
		t.Fatalf("markets = %v", resp.Data)
	}
	first := list[0].(map[string]interface{})
	if first["code"] != "DE" || first["timezone"] == "" {
		t.Errorf("first market = %v", first)
	}

	w, resp := do(t, h, http.MethodGet, "/api/v1/budget")
	if w.Code != http.StatusOK {
		t.Fatalf("budget status = %d", w.Code)
	}
	if data := resp.Data.(map[string]interface{}); data["monthly_budget"] != float64(50) {
		t.Errorf("budget = %v", data)
	}

	h, _ = newTestServer(t, Deps{})
	if w, _ := do(t, h, http.MethodGet, "/api/v1/budget"); w.Code != http.StatusServiceUnavailable {
		t.Errorf("budget without ledger status = %d, want 503", w.Code)
	}
}

func TestLLMCosts(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		target   string
		err      error
		wantCode int
		wantDays int
	}{
		{"default window", "/api/v1/analytics/llm-costs", nil, http.StatusOK, 7},
		{"explicit days", "/api/v1/analytics/llm-costs?days=14", nil, http.StatusOK, 14},
		{"clamped high", "/api/v1/analytics/llm-costs?days=90", nil, http.StatusOK, 30},
		{"clamped low", "/api/v1/analytics/llm-costs?days=-5", nil, http.StatusOK, 1},
		{"not a number", "/api/v1/analytics/llm-costs?days=week", nil, http.StatusBadRequest, 0},
		{"query failure", "/api/v1/analytics/llm-costs", errors.New("connection reset"), http.StatusInternalServerError, 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			usage := &fakeUsage{err: tt.err}
			h, _ := newTestServer(t, Deps{Usage: usage})

			w, resp := do(t, h, http.MethodGet, tt.target)
			if w.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d: %s", w.Code, tt.wantCode, w.Body.String())
			}
			if tt.wantDays == 0 {
				if len(usage.days) != 0 {
					t.Errorf("usage queried for a rejected request: %v", usage.days)
				}
				return
			}
			if len(usage.days) != 1 || usage.days[0] != tt.wantDays {
				t.Errorf("queried days = %v, want [%d]", usage.days, tt.wantDays)
			}
			if tt.err != nil {
				return
			}
			data := resp.Data.(map[string]interface{})
			if data["days"] != float64(tt.wantDays) {
				t.Errorf("days = %v, want %d", data["days"], tt.wantDays)
			}
			totals := data["totals"].(map[string]interface{})
			if totals["cost_dollars"] != 0.42 {
				t.Errorf("totals = %v", totals)
			}
		})
	}

	h, _ := newTestServer(t, Deps{})
	if w, _ := do(t, h, http.MethodGet, "/api/v1/analytics/llm-costs"); w.Code != http.StatusServiceUnavailable {
		t.Errorf("without usage database status = %d, want 503", w.Code)
	}
}

func TestCacheStats(t *testing.T) {
	t.Parallel()

	h, _ := newTestServer(t, Deps{Cache: fakeCacheStats{}})
	w, resp := do(t, h, http.MethodGet, "/api/v1/cache/stats")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	data := resp.Data.(map[string]interface{})
	if data["hits"] != float64(3) || data["hit_rate"] != 0.75 {
		t.Errorf("stats = %v", data)
	}
	tiers, ok := data["tiers"].([]interface{})
	if !ok || len(tiers) != 1 || tiers[0].(map[string]interface{})["tier"] != cache.TierMemory {
		t.Errorf("tiers = %v", data["tiers"])
	}

	h, _ = newTestServer(t, Deps{})
	if w, _ := do(t, h, http.MethodGet, "/api/v1/cache/stats"); w.Code != http.StatusServiceUnavailable {
		t.Errorf("without cache status = %d, want 503", w.Code)
	}
}

func TestCacheInvalidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		method   string
		target   string
		wantCode int
		wantCall string
	}{
		{"all", http.MethodPost, "/api/v1/cache/invalidate", http.StatusOK, "|"},
		{"market", http.MethodPost, "/api/v1/cache/invalidate?country=de", http.StatusOK, "DE|"},
		{"query", http.MethodPost, "/api/v1/cache/invalidate?country=DE&query=gaming", http.StatusOK, "DE|gaming"},
		{"query without market", http.MethodPost, "/api/v1/cache/invalidate?query=gaming", http.StatusBadRequest, ""},
		{"unknown market", http.MethodPost, "/api/v1/cache/invalidate?country=XX", http.StatusBadRequest, ""},
		{"get not allowed", http.MethodGet, "/api/v1/cache/invalidate", http.StatusMethodNotAllowed, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ranker := &fakeRanker{deleted: 4}
			h, _ := newTestServer(t, Deps{Ranker: ranker})

			w, resp := do(t, h, tt.method, tt.target)
			if w.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantCode)
			}
			if tt.wantCall == "" {
				if len(ranker.invalidated) != 0 {
					t.Errorf("unexpected invalidation %v", ranker.invalidated)
				}
				return
			}
			if len(ranker.invalidated) != 1 || ranker.invalidated[0] != tt.wantCall {
				t.Errorf("invalidated = %v, want %s", ranker.invalidated, tt.wantCall)
			}
			if data := resp.Data.(map[string]interface{}); data["entries_deleted"] != float64(4) {
				t.Errorf("data = %v", data)
			}
		})
	}
}

func TestHealth(t *testing.T) {
	t.Parallel()

	failing := func(context.Context) error { return errors.New("down") }
	passing := func(context.Context) error { return nil }

	tests := []struct {
		name      string
		checks    []ReadinessCheck
		wantReady int
		wantState string
	}{
		{"no checks", nil, http.StatusOK, "healthy"},
		{"all passing", []ReadinessCheck{{Name: "badger", Check: passing}}, http.StatusOK, "healthy"},
		{"optional failing", []ReadinessCheck{{Name: "badger", Check: passing}, {Name: "redis", Check: failing, Optional: true}}, http.StatusOK, "healthy"},
		{"required failing", []ReadinessCheck{{Name: "badger", Check: failing}}, http.StatusServiceUnavailable, "degraded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			h, _ := newTestServer(t, Deps{Checks: tt.checks, Version: "test"})

			if w, _ := do(t, h, http.MethodGet, "/api/v1/health/live"); w.Code != http.StatusOK {
				t.Errorf("live status = %d", w.Code)
			}
			if w, _ := do(t, h, http.MethodGet, "/api/v1/health/ready"); w.Code != tt.wantReady {
				t.Errorf("ready status = %d, want %d", w.Code, tt.wantReady)
			}
			w, resp := do(t, h, http.MethodGet, "/api/v1/health/")
			if w.Code != http.StatusOK {
				t.Fatalf("health status = %d", w.Code)
			}
			if data := resp.Data.(map[string]interface{}); data["status"] != tt.wantState {
				t.Errorf("health = %v, want %s", data["status"], tt.wantState)
			}
		})
	}
}

func TestPerformanceStats(t *testing.T) {
	t.Parallel()

	pm := middleware.NewPerformanceMonitor(100, time.Minute)
	h, _ := newTestServer(t, Deps{PerfMon: pm})

	do(t, h, http.MethodGet, "/api/v1/markets")
	do(t, h, http.MethodGet, "/api/v1/markets")

	w, resp := do(t, h, http.MethodGet, "/api/v1/stats/performance")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	endpoints := resp.Data.(map[string]interface{})["endpoints"].([]interface{})
	if len(endpoints) == 0 {
		t.Fatal("no endpoint stats recorded")
	}

	h, _ = newTestServer(t, Deps{})
	if w, _ := do(t, h, http.MethodGet, "/api/v1/stats/performance"); w.Code != http.StatusNotFound {
		t.Errorf("without monitor status = %d, want 404", w.Code)
	}
}

func TestRateLimitRank(t *testing.T) {
	t.Parallel()

	ranker := &fakeRanker{resp: &momentum.Response{Success: true}}
	cfg := DefaultChiMiddlewareConfig()
	h := NewRouter(NewHandler(Deps{Ranker: ranker, Signals: &fakeSignals{}}), NewChiMiddleware(cfg)).SetupChi()

	var limited bool
	for range RateLimitRankConfig.Requests + 1 {
		w, resp := do(t, h, http.MethodGet, "/api/v1/trending?query=gaming&country=DE")
		if w.Code == http.StatusTooManyRequests {
			limited = resp.Error != nil && resp.Error.Code == ErrCodeTooManyRequests
		}
	}
	if !limited {
		t.Error("expected a JSON 429 after exceeding the ranking limit")
	}
}
