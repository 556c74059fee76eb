// Momentum - Market Momentum Video Ranking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/momentum

package momentum

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tomtom215/momentum/internal/cache"
	"github.com/tomtom215/momentum/internal/collect"
	"github.com/tomtom215/momentum/internal/config"
	"github.com/tomtom215/momentum/internal/content"
	"github.com/tomtom215/momentum/internal/market"
	"github.com/tomtom215/momentum/internal/relevance"
	"github.com/tomtom215/momentum/internal/signal"
)

type fakeCollector struct {
	items    []content.Item
	fallback []content.Item
	err      error
	gate     chan struct{}
	terms    collect.TermSource

	calls         atomic.Int32
	fallbackCalls atomic.Int32
}

func (f *fakeCollector) Collect(ctx context.Context, query, mkt string, tf market.Timeframe) ([]content.Item, collect.Stats, error) {
	f.calls.Add(1)
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, collect.Stats{}, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, collect.Stats{}, f.err
	}
	enhanced := []string{query}
	if f.terms != nil {
		enhanced = f.terms.EnhancedTerms(ctx, query, mkt, tf)
		if err := ctx.Err(); err != nil {
			return nil, collect.Stats{}, err
		}
	}
	stats := collect.Stats{EnhancedTerms: enhanced, Final: len(f.items)}
	return append([]content.Item(nil), f.items...), stats, nil
}

func (f *fakeCollector) CollectFallback(_ context.Context, _ string, _ market.Timeframe, exclude map[string]struct{}) ([]content.Item, collect.Stats, error) {
	f.fallbackCalls.Add(1)
	var out []content.Item
	for _, it := range f.fallback {
		if _, skip := exclude[it.ID]; !skip {
			out = append(out, it)
		}
	}
	return out, collect.Stats{Final: len(out)}, nil
}

type fakeScorer struct {
	scores   map[string]float64
	fallback float64
	exceeded bool
	err      error

	calls atomic.Int32
}

func (f *fakeScorer) ScoreBatch(_ context.Context, items []content.Item, mkt, _ string) (*relevance.BatchResult, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	res := &relevance.BatchResult{
		Assessments:    make(map[string]relevance.Assessment, len(items)),
		CostCents:      0.5,
		BudgetExceeded: f.exceeded,
		ModelCalls:     1,
	}
	for _, it := range items {
		score, ok := f.scores[it.ID]
		if !ok {
			score = f.fallback
		}
		res.Assessments[it.ID] = relevance.Assessment{
			VideoID:    it.ID,
			Market:     mkt,
			Score:      score,
			Confidence: 0.9,
			Reasoning:  "test",
			Origin:     mkt,
			Defaulted:  f.exceeded,
		}
		res.Scored++
	}
	return res, nil
}

type fakeSignals struct {
	entry *signal.Entry
	err   error
	terms []string
}

func (f *fakeSignals) FetchSignal(_ context.Context, query, mkt string, tf market.Timeframe) (*signal.Entry, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.entry, nil
}

func (f *fakeSignals) EnhancedTerms(_ context.Context, query, _ string, _ market.Timeframe) []string {
	if f.terms == nil {
		return []string{query}
	}
	return f.terms
}

func makeItems(prefix string, n int) []content.Item {
	now := time.Now()
	items := make([]content.Item, n)
	for i := range items {
		items[i] = content.Item{
			ID:           fmt.Sprintf("%s%02d", prefix, i),
			Title:        fmt.Sprintf("Video %d", i),
			ChannelTitle: "Channel",
			Views:        int64(1000 * (i + 1)),
			Likes:        int64(10 * (i + 1)),
			Comments:     int64(i),
			PublishedAt:  now.Add(-10 * time.Hour),
		}
	}
	return items
}

func testConfig() *config.Config {
	return &config.Config{
		Markets: []string{"DE", "US", "FR", "JP"},
		Cache:   config.CacheConfig{ResponseTTL: time.Hour},
		Ranking: config.RankingConfig{
			VelocityWeight:   0.6,
			EngagementWeight: 0.3,
			DecayWeight:      0.1,
			DecayHours:       24,
			RelevanceFloor:   0.5,
			RelevanceSpread:  1.5,
			TrendingBoost:    1.5,
			NormalizeScale:   10000,
		},
	}
}

type fixture struct {
	svc       *Service
	collector *fakeCollector
	scorer    *fakeScorer
	signals   *fakeSignals
}

func newFixture(items []content.Item, withCache bool) *fixture {
	return newFixtureWithConfig(testConfig(), items, withCache)
}

func newFixtureWithConfig(cfg *config.Config, items []content.Item, withCache bool) *fixture {
	f := &fixture{
		collector: &fakeCollector{items: items},
		scorer:    &fakeScorer{fallback: 0.8},
		signals:   &fakeSignals{entry: &signal.Entry{TrendScore: 60, IsTrending: true, Boost: 0.2, Alignment: "strong"}},
	}
	deps := Deps{Collector: f.collector, Scorer: f.scorer, Signals: f.signals}
	if withCache {
		deps.Cache = cache.NewTiered(cache.Layer{Tier: cache.NewMemoryTier(100), TTL: time.Hour})
	}
	f.svc = NewService(cfg, deps)
	return f
}

func TestRank_InvalidRequests(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		req  Request
	}{
		{"empty query", Request{Query: "", Market: "DE"}},
		{"blank query", Request{Query: "   ", Market: "DE"}},
		{"one character", Request{Query: "a", Market: "DE"}},
		{"query too long", Request{Query: strings.Repeat("x", 101), Market: "DE"}},
		{"unknown market", Request{Query: "gaming", Market: "XX"}},
		{"malformed market", Request{Query: "gaming", Market: "GER"}},
		{"bad timeframe", Request{Query: "gaming", Market: "DE", Timeframe: "3d"}},
		{"limit too high", Request{Query: "gaming", Market: "DE", Limit: 51}},
		{"negative limit", Request{Query: "gaming", Market: "DE", Limit: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(makeItems("v", 3), false)

			_, err := f.svc.Rank(context.Background(), tt.req)
			if !errors.Is(err, ErrInvalidRequest) {
				t.Fatalf("Rank() error = %v, want ErrInvalidRequest", err)
			}
			var rerr *RequestError
			if !errors.As(err, &rerr) {
				t.Fatalf("Rank() error type = %T, want *RequestError", err)
			}
			if got := rerr.APIError().Code; got != "VALIDATION_ERROR" {
				t.Errorf("APIError().Code = %q, want VALIDATION_ERROR", got)
			}
			if n := f.collector.calls.Load(); n != 0 {
				t.Errorf("collector called %d times for an invalid request", n)
			}
		})
	}
}

func TestRank_DisabledMarket(t *testing.T) {
	t.Parallel()
	cfg := testConfig()
	cfg.Markets = []string{"DE"}
	svc := NewService(cfg, Deps{
		Collector: &fakeCollector{items: makeItems("v", 3)},
		Scorer:    &fakeScorer{},
		Signals:   &fakeSignals{},
	})

	if _, err := svc.Rank(context.Background(), Request{Query: "gaming", Market: "US"}); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("Rank(US) error = %v, want ErrInvalidRequest", err)
	}
	if got := svc.Markets(); len(got) != 1 || got[0] != "DE" {
		t.Errorf("Markets() = %v, want [DE]", got)
	}
}

func TestRank_NormalizesRequest(t *testing.T) {
	t.Parallel()
	f := newFixture(makeItems("v", 15), false)

	resp, err := f.svc.Rank(context.Background(), Request{Query: "  retro   gaming ", Market: "de", Timeframe: "2d"})
	if err != nil {
		t.Fatalf("Rank() error = %v", err)
	}
	if resp.Query != "retro gaming" || resp.Market != "DE" || resp.Timeframe != "48h" {
		t.Errorf("normalized = (%q, %q, %q), want (retro gaming, DE, 48h)", resp.Query, resp.Market, resp.Timeframe)
	}
	if len(resp.Results) != DefaultLimit {
		t.Errorf("len(Results) = %d, want default limit %d", len(resp.Results), DefaultLimit)
	}
}

func TestRank_Pipeline(t *testing.T) {
	t.Parallel()
	items := makeItems("v", 12)
	items[3].InTrendingFeed = true
	f := newFixture(items, false)

	resp, err := f.svc.Rank(context.Background(), Request{Query: "gaming", Market: "DE", Timeframe: "24h", Limit: 5})
	if err != nil {
		t.Fatalf("Rank() error = %v", err)
	}
	if !resp.Success {
		t.Error("Success = false")
	}
	if len(resp.Results) != 5 {
		t.Fatalf("len(Results) = %d, want 5", len(resp.Results))
	}
	for i, v := range resp.Results {
		if v.Rank != i+1 {
			t.Errorf("Results[%d].Rank = %d, want %d", i, v.Rank, i+1)
		}
		if i > 0 && v.TrendingScore > resp.Results[i-1].TrendingScore {
			t.Errorf("Results[%d] score %v above previous %v", i, v.TrendingScore, resp.Results[i-1].TrendingScore)
		}
		if v.Relevance != 0.8 {
			t.Errorf("Results[%d].Relevance = %v, want 0.8", i, v.Relevance)
		}
		if v.URL != "https://youtube.com/watch?v="+v.VideoID {
			t.Errorf("Results[%d].URL = %q", i, v.URL)
		}
	}

	md := resp.Metadata
	if md.TotalAnalyzed != 12 || md.LLMAnalyzed != 12 {
		t.Errorf("analyzed = (%d, %d), want (12, 12)", md.TotalAnalyzed, md.LLMAnalyzed)
	}
	if md.CacheHit {
		t.Error("CacheHit = true on first request")
	}
	if md.Algorithm != Algorithm {
		t.Errorf("Algorithm = %q", md.Algorithm)
	}
	if !md.Signal.Available || md.Signal.Boost != 0.2 || md.Signal.Alignment != "strong" {
		t.Errorf("Signal = %+v", md.Signal)
	}
	if md.Guarantee == nil || md.Guarantee.Threshold != 0.4 || md.Guarantee.FallbackUsed {
		t.Errorf("Guarantee = %+v, want threshold 0.4 without fallback", md.Guarantee)
	}
	if md.BudgetCostCents != 0.5 {
		t.Errorf("BudgetCostCents = %v, want 0.5", md.BudgetCostCents)
	}
	if md.CollectionStats == nil || md.CollectionStats.Final != 12 {
		t.Errorf("CollectionStats = %+v", md.CollectionStats)
	}
	if len(md.TermsUsed) != 1 || md.TermsUsed[0] != "gaming" {
		t.Errorf("TermsUsed = %v, want [gaming]", md.TermsUsed)
	}
	matches := 0
	for _, v := range resp.Results {
		if v.InTrendingFeed {
			matches++
		}
	}
	if md.TrendingFeedMatches != matches {
		t.Errorf("TrendingFeedMatches = %d, counted %d", md.TrendingFeedMatches, matches)
	}
}

func TestRank_EmptyCollection(t *testing.T) {
	t.Parallel()
	f := newFixture(nil, true)

	resp, err := f.svc.Rank(context.Background(), Request{Query: "nothing here", Market: "JP"})
	if err != nil {
		t.Fatalf("Rank() error = %v", err)
	}
	if !resp.Success || resp.Metadata.Message != MessageNoVideos {
		t.Errorf("response = success %v message %q, want success with %q", resp.Success, resp.Metadata.Message, MessageNoVideos)
	}
	if resp.Results == nil || len(resp.Results) != 0 {
		t.Errorf("Results = %v, want empty non-nil slice", resp.Results)
	}
	if n := f.scorer.calls.Load(); n != 0 {
		t.Errorf("scorer called %d times for an empty collection", n)
	}
}

func TestRank_ResponseCache(t *testing.T) {
	t.Parallel()
	f := newFixture(makeItems("v", 12), true)
	ctx := context.Background()
	req := Request{Query: "Gaming", Market: "FR", Timeframe: "7d", Limit: 5}

	first, err := f.svc.Rank(ctx, req)
	if err != nil {
		t.Fatalf("first Rank() error = %v", err)
	}
	req.Query = "gaming"
	second, err := f.svc.Rank(ctx, req)
	if err != nil {
		t.Fatalf("second Rank() error = %v", err)
	}

	if first.Metadata.CacheHit || !second.Metadata.CacheHit {
		t.Errorf("CacheHit = (%v, %v), want (false, true)", first.Metadata.CacheHit, second.Metadata.CacheHit)
	}
	if second.Metadata.CacheTier != "memory" {
		t.Errorf("CacheTier = %q, want memory", second.Metadata.CacheTier)
	}
	if f.scorer.calls.Load() != 1 || f.collector.calls.Load() != 1 {
		t.Errorf("calls = (scorer %d, collector %d), want (1, 1)", f.scorer.calls.Load(), f.collector.calls.Load())
	}
	if len(second.Results) != len(first.Results) || second.Results[0].VideoID != first.Results[0].VideoID {
		t.Error("cached results differ from the computed ones")
	}

	if n, err := f.svc.Invalidate(ctx, "DE", "gaming"); err != nil || n != 0 {
		t.Fatalf("Invalidate(DE, gaming) = %d, %v, want 0, nil", n, err)
	}
	n, err := f.svc.Invalidate(ctx, "fr", "  GAMING ")
	if err != nil || n != 1 {
		t.Fatalf("Invalidate(fr, GAMING) = %d, %v, want 1, nil", n, err)
	}
	if _, err := f.svc.Rank(ctx, req); err != nil {
		t.Fatalf("Rank() after invalidate error = %v", err)
	}
	if n := f.scorer.calls.Load(); n != 2 {
		t.Errorf("scorer calls after invalidate = %d, want 2", n)
	}
}

func TestRank_ConcurrentIdenticalRequestsScoreOnce(t *testing.T) {
	t.Parallel()
	f := newFixture(makeItems("v", 12), true)
	f.collector.gate = make(chan struct{})

	const callers = 8
	var wg sync.WaitGroup
	resps := make(chan *Response, callers)
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := f.svc.Rank(context.Background(), Request{Query: "gaming", Market: "DE", Limit: 5})
			if err != nil {
				errs <- err
				return
			}
			resps <- resp
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(f.collector.gate)
	wg.Wait()
	close(errs)
	close(resps)

	for err := range errs {
		t.Errorf("Rank() error = %v", err)
	}
	if n := f.scorer.calls.Load(); n != 1 {
		t.Errorf("scorer calls = %d, want 1", n)
	}
	computed, hits := 0, 0
	for resp := range resps {
		if resp.Metadata.CacheHit {
			hits++
		} else {
			computed++
		}
	}
	if computed != 1 || hits != callers-1 {
		t.Errorf("CacheHit=false on %d responses and true on %d, want 1 and %d", computed, hits, callers-1)
	}
}

func TestRank_CallerCancelDoesNotAbortSharedRun(t *testing.T) {
	t.Parallel()
	f := newFixture(makeItems("v", 12), true)
	f.collector.gate = make(chan struct{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := f.svc.Rank(ctx, Request{Query: "gaming", Market: "DE"})
		done <- err
	}()
	time.Sleep(10 * time.Millisecond)
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("cancelled Rank() error = %v, want context.Canceled", err)
	}

	close(f.collector.gate)
	resp, err := f.svc.Rank(context.Background(), Request{Query: "gaming", Market: "DE"})
	if err != nil {
		t.Fatalf("Rank() error = %v", err)
	}
	if len(resp.Results) == 0 {
		t.Error("no results after the shared run completed")
	}
	if n := f.scorer.calls.Load(); n != 1 {
		t.Errorf("scorer calls = %d, want 1", n)
	}
}

func TestRank_SignalUnavailable(t *testing.T) {
	t.Parallel()
	f := newFixture(makeItems("v", 12), false)
	f.signals.err = &signal.Error{Kind: signal.KindRateLimited, Op: "interest", Status: 429, Err: errors.New("too many requests")}

	resp, err := f.svc.Rank(context.Background(), Request{Query: "gaming", Market: "US", Limit: 5})
	if err != nil {
		t.Fatalf("Rank() error = %v", err)
	}
	if resp.Metadata.Signal.Available {
		t.Error("Signal.Available = true, want false")
	}
	if got := resp.Metadata.Signal.ErrorKind; got != string(signal.KindRateLimited) {
		t.Errorf("Signal.ErrorKind = %q, want rate_limited", got)
	}
	if len(resp.Results) != 5 {
		t.Errorf("len(Results) = %d, want 5", len(resp.Results))
	}
}

// failingTransport fails every trend request after a delay, like an upstream
// that times out behind a proxy.
type failingTransport struct {
	delay time.Duration
	calls atomic.Int32
}

func (f *failingTransport) wait(ctx context.Context) error {
	f.calls.Add(1)
	select {
	case <-time.After(f.delay):
		return &signal.HTTPError{Status: 503}
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *failingTransport) Interest(ctx context.Context, _ *signal.Identity, _ signal.Query) ([]float64, error) {
	return nil, f.wait(ctx)
}

func (f *failingTransport) Related(ctx context.Context, _ *signal.Identity, _ signal.Query) (*signal.Related, error) {
	return nil, f.wait(ctx)
}

func TestRank_FailingSignalUpstreamStaysWithinPipelineTimeout(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Collection.PipelineTimeout = time.Second
	transport := &failingTransport{delay: 50 * time.Millisecond}
	client := signal.NewClient(config.SignalConfig{
		Timeout:          time.Second,
		FailureThreshold: 1000,
		Cooldown:         time.Minute,
		MaxRetries:       50,
		PoolSize:         1,
		FetchBudget:      100 * time.Millisecond,
	}, config.CacheConfig{TermsTTL: time.Hour}, transport,
		cache.NewTiered(cache.Layer{Tier: cache.NewMemoryTier(100), TTL: time.Hour}))

	collector := &fakeCollector{items: makeItems("v", 12), terms: client}
	svc := NewService(cfg, Deps{
		Collector: collector,
		Scorer:    &fakeScorer{fallback: 0.8},
		Signals:   client,
	})

	start := time.Now()
	resp, err := svc.Rank(context.Background(), Request{Query: "bundesliga", Market: "DE", Limit: 5})
	if err != nil {
		t.Fatalf("Rank() error = %v, want a degraded response", err)
	}
	if elapsed := time.Since(start); elapsed >= time.Second {
		t.Errorf("Rank() took %v, want well under the pipeline timeout", elapsed)
	}
	if resp.Metadata.Signal.Available {
		t.Error("Signal.Available = true with a failing upstream")
	}
	if got := resp.Metadata.Signal.ErrorKind; got != string(signal.KindNetwork) {
		t.Errorf("Signal.ErrorKind = %q, want network", got)
	}
	if len(resp.Results) != 5 {
		t.Errorf("len(Results) = %d, want 5", len(resp.Results))
	}
	if transport.calls.Load() == 0 {
		t.Error("signal upstream never called")
	}
}

func TestRank_GuaranteeFallback(t *testing.T) {
	t.Parallel()
	f := newFixture(makeItems("low", 3), false)
	f.scorer.fallback = 0.9
	f.scorer.scores = map[string]float64{"low00": 0, "low01": 0, "low02": 0}
	f.collector.fallback = append(makeItems("low", 1), makeItems("fb", 4)...)

	resp, err := f.svc.Rank(context.Background(), Request{Query: "gaming", Market: "DE", Limit: 5})
	if err != nil {
		t.Fatalf("Rank() error = %v", err)
	}
	md := resp.Metadata
	if md.Guarantee == nil || !md.Guarantee.FallbackUsed {
		t.Fatalf("Guarantee = %+v, want fallback used", md.Guarantee)
	}
	if len(resp.Results) != 5 {
		t.Errorf("len(Results) = %d, want 5", len(resp.Results))
	}
	if md.TotalAnalyzed != 7 {
		t.Errorf("TotalAnalyzed = %d, want 7 (3 primary + 4 fallback)", md.TotalAnalyzed)
	}
	if md.BudgetCostCents != 1 {
		t.Errorf("BudgetCostCents = %v, want 1 across both batches", md.BudgetCostCents)
	}
	if n := f.collector.fallbackCalls.Load(); n != 1 {
		t.Errorf("fallback calls = %d, want 1", n)
	}
	if !strings.HasPrefix(resp.Results[0].VideoID, "fb") {
		t.Errorf("top result %q, want a relevant fallback item", resp.Results[0].VideoID)
	}
}

func TestRank_Underfilled(t *testing.T) {
	t.Parallel()
	f := newFixture(makeItems("v", 4), false)
	f.scorer.fallback = 0.05

	resp, err := f.svc.Rank(context.Background(), Request{Query: "gaming", Market: "DE", Limit: 10})
	if err != nil {
		t.Fatalf("Rank() error = %v", err)
	}
	g := resp.Metadata.Guarantee
	if g == nil || !g.Underfilled || g.Shortfall != 6 {
		t.Fatalf("Guarantee = %+v, want underfilled by 6", g)
	}
	if len(resp.Results) != 4 {
		t.Errorf("len(Results) = %d, want 4", len(resp.Results))
	}
	if resp.Metadata.Message == "" {
		t.Error("Message empty for an underfilled response")
	}
}

func TestRank_BudgetExceededNotCached(t *testing.T) {
	t.Parallel()
	f := newFixture(makeItems("v", 12), true)
	f.scorer.exceeded = true
	ctx := context.Background()
	req := Request{Query: "gaming", Market: "DE", Limit: 5}

	resp, err := f.svc.Rank(ctx, req)
	if err != nil {
		t.Fatalf("Rank() error = %v", err)
	}
	if !resp.Metadata.BudgetExceeded {
		t.Error("BudgetExceeded = false")
	}
	if resp.Metadata.LLMAnalyzed != 0 {
		t.Errorf("LLMAnalyzed = %d, want 0 for defaulted assessments", resp.Metadata.LLMAnalyzed)
	}
	if _, err := f.svc.Rank(ctx, req); err != nil {
		t.Fatalf("second Rank() error = %v", err)
	}
	if n := f.scorer.calls.Load(); n != 2 {
		t.Errorf("scorer calls = %d, want 2 (degraded response not cached)", n)
	}
}

func TestRank_PipelineErrors(t *testing.T) {
	t.Parallel()

	collectErr := errors.New("collector down")
	scoreErr := errors.New("scorer down")

	tests := []struct {
		name    string
		setup   func(f *fixture)
		wantErr error
	}{
		{"collect", func(f *fixture) { f.collector.err = collectErr }, collectErr},
		{"score", func(f *fixture) { f.scorer.err = scoreErr }, scoreErr},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(makeItems("v", 5), true)
			tt.setup(f)

			_, err := f.svc.Rank(context.Background(), Request{Query: "gaming", Market: "DE"})
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Rank() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestInvalidate_Scopes(t *testing.T) {
	t.Parallel()
	f := newFixture(makeItems("v", 12), true)
	ctx := context.Background()

	for _, req := range []Request{
		{Query: "gaming", Market: "DE", Timeframe: "24h"},
		{Query: "gaming", Market: "DE", Timeframe: "7d"},
		{Query: "music", Market: "DE"},
		{Query: "music", Market: "US"},
	} {
		if _, err := f.svc.Rank(ctx, req); err != nil {
			t.Fatalf("Rank(%+v) error = %v", req, err)
		}
	}

	if n, err := f.svc.Invalidate(ctx, "de", ""); err != nil || n != 3 {
		t.Errorf("Invalidate(de) = %d, %v, want 3, nil", n, err)
	}
	if n, err := f.svc.Invalidate(ctx, "", ""); err != nil || n != 1 {
		t.Errorf("Invalidate(all) = %d, %v, want 1, nil", n, err)
	}
	if n, _ := f.svc.Invalidate(ctx, "", ""); n != 0 {
		t.Errorf("second Invalidate(all) = %d, want 0", n)
	}
}

func TestRank_DegradedResponsesUseShortTTL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		setup     func(f *fixture)
		items     int
		limit     int
		wantCalls int32
	}{
		{"healthy response stays cached", func(*fixture) {}, 12, 5, 1},
		{"signal unavailable expires", func(f *fixture) {
			f.signals.err = &signal.Error{Kind: signal.KindNetwork, Op: "interest_web", Err: errors.New("timeout")}
		}, 12, 5, 2},
		{"underfilled expires", func(*fixture) {}, 4, 10, 2},
		{"empty collection never cached", func(*fixture) {}, 0, 5, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := testConfig()
			cfg.Cache.DegradedTTL = 40 * time.Millisecond
			f := newFixtureWithConfig(cfg, makeItems("v", tt.items), true)
			tt.setup(f)
			ctx := context.Background()
			req := Request{Query: "gaming", Market: "DE", Limit: tt.limit}

			if _, err := f.svc.Rank(ctx, req); err != nil {
				t.Fatalf("first Rank() error = %v", err)
			}
			time.Sleep(100 * time.Millisecond)
			resp, err := f.svc.Rank(ctx, req)
			if err != nil {
				t.Fatalf("second Rank() error = %v", err)
			}
			if n := f.collector.calls.Load(); n != tt.wantCalls {
				t.Errorf("collector calls = %d, want %d", n, tt.wantCalls)
			}
			if wantHit := tt.wantCalls == 1; resp.Metadata.CacheHit != wantHit {
				t.Errorf("second CacheHit = %v, want %v", resp.Metadata.CacheHit, wantHit)
			}
		})
	}
}

func TestInvalidate_QueryWildcardsAreLiteral(t *testing.T) {
	t.Parallel()
	f := newFixture(makeItems("v", 12), true)
	ctx := context.Background()

	for _, q := range []string{"gaming", "gaming pc", "gam*", "gam?ng"} {
		if _, err := f.svc.Rank(ctx, Request{Query: q, Market: "DE", Limit: 5}); err != nil {
			t.Fatalf("Rank(%q) error = %v", q, err)
		}
	}

	for _, q := range []string{"gam*", "gam?ng"} {
		if n, err := f.svc.Invalidate(ctx, "DE", q); err != nil || n != 1 {
			t.Errorf("Invalidate(DE, %q) = %d, %v, want 1, nil", q, n, err)
		}
	}

	before := f.collector.calls.Load()
	for _, q := range []string{"gaming", "gaming pc"} {
		resp, err := f.svc.Rank(ctx, Request{Query: q, Market: "DE", Limit: 5})
		if err != nil {
			t.Fatalf("Rank(%q) error = %v", q, err)
		}
		if !resp.Metadata.CacheHit {
			t.Errorf("%q was evicted by a wildcard query", q)
		}
	}
	if n := f.collector.calls.Load(); n != before {
		t.Errorf("collector calls = %d after re-reading survivors, want %d", n, before)
	}
}
