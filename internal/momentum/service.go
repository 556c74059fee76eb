// Momentum - Market Momentum Video Ranking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/momentum

package momentum

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/tomtom215/momentum/internal/cache"
	"github.com/tomtom215/momentum/internal/collect"
	"github.com/tomtom215/momentum/internal/config"
	"github.com/tomtom215/momentum/internal/content"
	"github.com/tomtom215/momentum/internal/guarantee"
	"github.com/tomtom215/momentum/internal/logging"
	"github.com/tomtom215/momentum/internal/market"
	"github.com/tomtom215/momentum/internal/metrics"
	"github.com/tomtom215/momentum/internal/ranking"
	"github.com/tomtom215/momentum/internal/relevance"
	"github.com/tomtom215/momentum/internal/signal"
	"github.com/tomtom215/momentum/internal/tracing"
)

const defaultPipelineTimeout = 2 * time.Minute

// Collector gathers candidate items. Implemented by *collect.Orchestrator.
type Collector interface {
	Collect(ctx context.Context, query, mkt string, tf market.Timeframe) ([]content.Item, collect.Stats, error)
	CollectFallback(ctx context.Context, mkt string, tf market.Timeframe, exclude map[string]struct{}) ([]content.Item, collect.Stats, error)
}

// Scorer assesses market relevance. Implemented by *relevance.Scorer.
type Scorer interface {
	ScoreBatch(ctx context.Context, items []content.Item, mkt, query string) (*relevance.BatchResult, error)
}

// Signals supplies the trend signal. Implemented by *signal.Client.
type Signals interface {
	collect.TermSource
	FetchSignal(ctx context.Context, query, mkt string, tf market.Timeframe) (*signal.Entry, error)
}

// Deps are the pipeline collaborators of a Service.
type Deps struct {
	Collector Collector
	Scorer    Scorer
	Signals   Signals
	// Cache stores finished responses; nil disables response caching.
	Cache *cache.Tiered
}

// Service answers ranking requests end to end.
type Service struct {
	collector Collector
	scorer    Scorer
	signals   Signals
	cache     *cache.Tiered

	weights     ranking.Weights
	guarantor   *guarantee.Guarantor
	ttl         time.Duration
	degradedTTL time.Duration
	timeout     time.Duration
	markets     map[string]struct{}

	flight singleflight.Group
	now    func() time.Time
}

// NewService creates a Service from cfg and deps.
func NewService(cfg *config.Config, deps Deps) *Service {
	s := &Service{
		collector: deps.Collector,
		scorer:    deps.Scorer,
		signals:   deps.Signals,
		cache:     deps.Cache,
		weights:   ranking.WeightsFromConfig(cfg.Ranking),
		guarantor: guarantee.New(cfg.Guarantee),
		ttl:       cfg.Cache.ResponseTTL,
		timeout:   cfg.Collection.PipelineTimeout,
		now:       time.Now,
	}
	if s.ttl <= 0 {
		s.ttl = time.Hour
	}
	s.degradedTTL = min(s.ttl, 5*time.Minute)
	if d := cfg.Cache.DegradedTTL; d > 0 && d < s.ttl {
		s.degradedTTL = d
	}
	if s.timeout <= 0 {
		s.timeout = defaultPipelineTimeout
	}
	if len(cfg.Markets) > 0 {
		s.markets = make(map[string]struct{}, len(cfg.Markets))
		for _, m := range cfg.Markets {
			s.markets[m] = struct{}{}
		}
	}
	return s
}

// Markets returns the enabled market codes, sorted.
func (s *Service) Markets() []string {
	if s.markets == nil {
		return market.Codes()
	}
	return slices.Sorted(maps.Keys(s.markets))
}

// Rank validates req, then serves it from the response cache or runs the
// pipeline. Concurrent identical requests share one pipeline run; a caller
// whose ctx ends stops waiting without cancelling the shared run. Only the
// caller that ran the pipeline sees CacheHit=false.
func (s *Service) Rank(ctx context.Context, req Request) (*Response, error) {
	start := s.now()

	req, tf, err := normalize(req, s.markets)
	if err != nil {
		metrics.RankErrors.WithLabelValues("invalid", "invalid_request").Inc()
		return nil, err
	}
	ctx = logging.ContextWithMarket(ctx, req.Market)
	key := cache.ResponseKey(req.Market, req.Query, req.Timeframe)

	if resp, ok := s.cached(ctx, key); ok {
		resp.Metadata.ProcessingTimeMs = s.now().Sub(start).Milliseconds()
		metrics.RecordRank(req.Market, true, len(resp.Results), s.now().Sub(start))
		return resp, nil
	}

	// ran is written by the shared call only when this caller started it;
	// the channel receive below orders the read after the write.
	ran := false
	ch := s.flight.DoChan(key, func() (interface{}, error) {
		runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()
		if resp, ok := s.cached(runCtx, key); ok {
			return resp, nil
		}
		ran = true
		return s.run(runCtx, req, tf, key)
	})

	select {
	case <-ctx.Done():
		metrics.RankErrors.WithLabelValues(req.Market, "canceled").Inc()
		return nil, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			metrics.RankErrors.WithLabelValues(req.Market, "pipeline").Inc()
			return nil, r.Err
		}
		resp := r.Val.(*Response).clone()
		if !ran {
			resp.Metadata.CacheHit = true
		}
		metrics.RecordRank(req.Market, resp.Metadata.CacheHit, len(resp.Results), s.now().Sub(start))
		return resp, nil
	}
}

// Invalidate drops cached responses. With mkt and query set it removes that
// query in every timeframe; with only mkt, the whole market; with neither,
// every cached response. It returns the number of keys removed.
func (s *Service) Invalidate(ctx context.Context, mkt, query string) (int, error) {
	if s.cache == nil {
		return 0, nil
	}
	mkt = strings.ToUpper(strings.TrimSpace(mkt))
	query = strings.Join(strings.Fields(query), " ")

	switch {
	case mkt != "" && query != "":
		var (
			total int
			errs  []error
		)
		for _, tf := range []market.Timeframe{market.Timeframe24h, market.Timeframe48h, market.Timeframe7d} {
			n, err := s.cache.DeletePattern(ctx, cache.EscapeGlob(cache.ResponseKey(mkt, query, tf.String())))
			total += n
			if err != nil {
				errs = append(errs, err)
			}
		}
		return total, errors.Join(errs...)
	default:
		return s.cache.DeletePattern(ctx, cache.MarketPattern(cache.PrefixResponse, mkt))
	}
}

func (s *Service) cached(ctx context.Context, key string) (*Response, bool) {
	if s.cache == nil {
		return nil, false
	}
	var resp Response
	tier, err := s.cache.GetJSON(ctx, key, &resp)
	if err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			logging.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("Response cache read failed")
		}
		return nil, false
	}
	resp.Metadata.CacheHit = true
	resp.Metadata.CacheTier = tier
	return &resp, true
}

// run executes collect, score/signal, rank and guarantee for one request.
func (s *Service) run(ctx context.Context, req Request, tf market.Timeframe, key string) (_ *Response, err error) {
	start := s.now()
	ctx, end := tracing.StartSpan(ctx, "momentum.Rank",
		attribute.String("market", req.Market),
		attribute.String("timeframe", req.Timeframe),
		attribute.Int("limit", req.Limit),
	)
	defer func() { end(err) }()
	log := logging.Ctx(ctx)

	items, stats, err := s.collector.Collect(ctx, req.Query, req.Market, tf)
	if err != nil {
		return nil, fmt.Errorf("collect: %w", err)
	}

	resp := &Response{
		Success:   true,
		Query:     req.Query,
		Market:    req.Market,
		Timeframe: req.Timeframe,
		Results:   []Video{},
		Metadata: Metadata{
			TermsUsed:       stats.TermsUsed(),
			CollectionStats: &stats,
			Algorithm:       Algorithm,
		},
	}
	if len(items) == 0 {
		resp.Metadata.Message = MessageNoVideos
		resp.Metadata.ProcessingTimeMs = s.now().Sub(start).Milliseconds()
		log.Info().Str("query", req.Query).Msg("Collection returned no videos")
		return resp, nil
	}

	var (
		batch     *relevance.BatchResult
		entry     *signal.Entry
		signalErr error
		enhanced  []string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		b, err := s.scorer.ScoreBatch(gctx, items, req.Market, req.Query)
		if err != nil {
			return fmt.Errorf("score: %w", err)
		}
		batch = b
		return nil
	})
	g.Go(func() error {
		entry, signalErr = s.signals.FetchSignal(gctx, req.Query, req.Market, tf)
		return nil
	})
	g.Go(func() error {
		enhanced = s.signals.EnhancedTerms(gctx, req.Query, req.Market, tf)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if signalErr != nil {
		log.Warn().Err(signalErr).Str("kind", string(signal.KindOf(signalErr))).Msg("Trend signal unavailable, ranking without boost")
	}
	if len(enhanced) > 0 {
		resp.Metadata.TermsUsed = enhanced
	}

	now := s.now()
	ranker := ranking.New(s.weights, tf)
	assessments := maps.Clone(batch.Assessments)
	pool := scoreItems(ranker, items, assessments, entry, now)

	analyzed := len(items)
	costCents := batch.CostCents
	exceeded := batch.BudgetExceeded

	fallback := func(ctx context.Context, exclude map[string]struct{}) ([]ranking.Result, error) {
		extra, _, err := s.collector.CollectFallback(ctx, req.Market, tf, exclude)
		if err != nil {
			return nil, fmt.Errorf("fallback collect: %w", err)
		}
		if len(extra) == 0 {
			return nil, nil
		}
		fb, err := s.scorer.ScoreBatch(ctx, extra, req.Market, req.Query)
		if err != nil {
			return nil, fmt.Errorf("fallback score: %w", err)
		}
		analyzed += len(extra)
		costCents += fb.CostCents
		exceeded = exceeded || fb.BudgetExceeded
		maps.Copy(assessments, fb.Assessments)
		return scoreItems(ranker, extra, fb.Assessments, entry, now), nil
	}

	outcome := s.guarantor.Guarantee(ctx, pool, req.Limit, fallback)
	if outcome.Threshold != guarantee.NoThreshold {
		metrics.GuaranteeThreshold.WithLabelValues(req.Market).Observe(outcome.Threshold)
	}
	if outcome.FallbackUsed {
		metrics.GuaranteeFallbacks.WithLabelValues(req.Market).Inc()
	}

	final := ranking.Rank(outcome.Items, req.Limit)
	resp.Results = make([]Video, 0, len(final))
	for i := range final {
		v := toVideo(&final[i], assessments[final[i].Item.ID])
		if v.InTrendingFeed {
			resp.Metadata.TrendingFeedMatches++
		}
		resp.Results = append(resp.Results, v)
	}

	summary := outcome
	summary.Items = nil
	md := &resp.Metadata
	md.TotalAnalyzed = analyzed
	md.LLMAnalyzed = modelAssessed(assessments)
	md.BudgetCostCents = round(costCents, 4)
	md.BudgetExceeded = exceeded
	md.Signal = summarize(entry, signalErr)
	md.Guarantee = &summary
	if outcome.Underfilled {
		md.Message = fmt.Sprintf("Only %d of %d requested videos found", len(resp.Results), req.Limit)
	}
	md.ProcessingTimeMs = s.now().Sub(start).Milliseconds()

	log.Info().
		Str("query", req.Query).
		Int("analyzed", analyzed).
		Int("results", len(resp.Results)).
		Float64("threshold", outcome.Threshold).
		Bool("fallback", outcome.FallbackUsed).
		Float64("cost_cents", md.BudgetCostCents).
		Int64("duration_ms", md.ProcessingTimeMs).
		Msg("Ranking complete")

	// Budget-defaulted responses are never cached. Under-filled or
	// signal-less responses are kept only for the degraded TTL.
	if s.cache != nil && !exceeded && len(resp.Results) > 0 {
		ttl := s.ttl
		if outcome.Underfilled || signalErr != nil {
			ttl = s.degradedTTL
		}
		if err := s.cache.SetJSONWithTTL(ctx, key, resp, ttl); err != nil {
			log.Warn().Err(err).Msg("Response cache write failed")
		}
	}
	return resp, nil
}

func scoreItems(r ranking.Ranker, items []content.Item, assessments map[string]relevance.Assessment, entry *signal.Entry, now time.Time) []ranking.Result {
	out := make([]ranking.Result, 0, len(items))
	for i := range items {
		a := assessments[items[i].ID]
		out = append(out, r.Score(&items[i], a.Score, items[i].InTrendingFeed, entry, now))
	}
	return out
}

func modelAssessed(assessments map[string]relevance.Assessment) int {
	n := 0
	for _, a := range assessments {
		if !a.Defaulted {
			n++
		}
	}
	return n
}

func (r *Response) clone() *Response {
	c := *r
	c.Results = slices.Clone(r.Results)
	return &c
}
