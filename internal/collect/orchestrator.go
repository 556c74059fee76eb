// Momentum - Market Momentum Video Ranking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/momentum

package collect

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/momentum/internal/config"
	"github.com/tomtom215/momentum/internal/content"
	"github.com/tomtom215/momentum/internal/logging"
	"github.com/tomtom215/momentum/internal/market"
	"github.com/tomtom215/momentum/internal/metrics"
	"github.com/tomtom215/momentum/internal/tracing"
)

// Collection phases, used as the phase metric label.
const (
	PhasePrimary  = "primary"
	PhaseFallback = "fallback"
)

// TermSource expands a query into signal-backed search terms.
// *signal.Client implements it.
type TermSource interface {
	EnhancedTerms(ctx context.Context, query, mkt string, tf market.Timeframe) []string
}

// Orchestrator gathers candidate videos for a query from tiered searches
// and the market's trending feed, then enriches them with full details.
//
// Thread Safety: safe for concurrent use.
type Orchestrator struct {
	source content.Source
	terms  TermSource
	cfg    config.CollectionConfig
	now    func() time.Time
}

// NewOrchestrator creates an orchestrator. terms may be nil, in which case
// the first tier is empty.
func NewOrchestrator(cfg config.CollectionConfig, source content.Source, terms TermSource) *Orchestrator {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.DetailsBatch <= 0 || cfg.DetailsBatch > 50 {
		cfg.DetailsBatch = 50
	}
	return &Orchestrator{source: source, terms: terms, cfg: cfg, now: time.Now}
}

// tier is one group of search terms sharing a per-term result count.
type tier struct {
	name    string
	terms   []string
	results int
}

// Collect gathers items for query in mkt within tf. Failed searches are
// logged and skipped; an empty result is valid. Only an unsupported market
// or a cancelled context is an error.
func (o *Orchestrator) Collect(ctx context.Context, query, mkt string, tf market.Timeframe) ([]content.Item, Stats, error) {
	profile, err := market.Lookup(mkt)
	if err != nil {
		return nil, Stats{}, err
	}
	ctx, end := tracing.StartSpan(ctx, "collect.Collect",
		attribute.String("market", profile.Code),
		attribute.String("timeframe", tf.String()),
	)
	var spanErr error
	defer func() { end(spanErr) }()

	start := o.now()
	since := tf.Since(start)
	stats := Stats{}

	// The trending feed does not depend on term expansion.
	feed := o.fetchFeed(ctx, profile.Code, o.cfg.TrendingResults)

	seen := make(map[string]struct{})
	var enhanced []string
	if o.terms != nil {
		enhanced = pickTerms(o.terms.EnhancedTerms(ctx, query, profile.Code, tf), seen, o.cfg.EnhancedCap)
	}
	category := pickTerms(profile.LocalVariants(query), seen, o.cfg.CategoryCap)
	generic := pickTerms(profile.GenericTerms, seen, o.cfg.GenericCap)
	stats.EnhancedTerms, stats.CategoryTerms, stats.GenericTerms = enhanced, category, generic

	tiers := []tier{
		{name: "enhanced", terms: enhanced, results: o.cfg.EnhancedResults},
		{name: "category", terms: category, results: o.cfg.CategoryResults},
		{name: "generic", terms: generic, results: o.cfg.CategoryResults},
	}

	pool := newPool()
	for _, t := range tiers {
		if pool.size() >= o.cfg.TargetSize {
			break
		}
		o.search(ctx, t, profile.Code, since, pool, &stats)
	}

	feedItems, feedErr := feed()
	if err := ctx.Err(); err != nil {
		spanErr = err
		return nil, stats, err
	}
	if feedErr != nil {
		logging.Ctx(ctx).Warn().Err(feedErr).Msg("Trending feed unavailable")
		stats.FeedFailed = true
	}
	stats.TrendingFetched = len(feedItems)
	stats.TrendingMatches = pool.mergeFeed(feedItems, since, false)

	items, err := o.finish(ctx, pool, nil, &stats)
	if err != nil {
		spanErr = err
		return nil, stats, err
	}
	stats.Duration = o.now().Sub(start)

	metrics.CollectionItems.WithLabelValues(profile.Code, PhasePrimary).Observe(float64(len(items)))
	logging.Ctx(ctx).Info().
		Int("items", len(items)).
		Int("searches", stats.Searches).
		Int("failed_searches", stats.FailedSearches).
		Int("trending_matches", stats.TrendingMatches).
		Dur("duration", stats.Duration).
		Msg("Collection finished")
	return items, stats, nil
}

// CollectFallback widens collection for mkt: every generic market term and
// a larger trending slice, whether or not feed items fall inside tf. Items
// whose ids are in exclude are dropped.
func (o *Orchestrator) CollectFallback(ctx context.Context, mkt string, tf market.Timeframe, exclude map[string]struct{}) ([]content.Item, Stats, error) {
	profile, err := market.Lookup(mkt)
	if err != nil {
		return nil, Stats{}, err
	}
	ctx, end := tracing.StartSpan(ctx, "collect.CollectFallback", attribute.String("market", profile.Code))
	var spanErr error
	defer func() { end(spanErr) }()

	start := o.now()
	since := tf.Since(start)
	stats := Stats{}
	generic := pickTerms(profile.GenericTerms, make(map[string]struct{}), 0)
	stats.GenericTerms = generic

	pool := newPool()
	feed := o.fetchFeed(ctx, profile.Code, o.cfg.FallbackTrending)
	o.search(ctx, tier{name: "generic", terms: generic, results: o.cfg.CategoryResults}, profile.Code, since, pool, &stats)

	feedItems, feedErr := feed()
	if err := ctx.Err(); err != nil {
		spanErr = err
		return nil, stats, err
	}
	if feedErr != nil {
		logging.Ctx(ctx).Warn().Err(feedErr).Msg("Fallback trending feed unavailable")
		stats.FeedFailed = true
	}
	stats.TrendingFetched = len(feedItems)
	stats.TrendingMatches = pool.mergeFeed(feedItems, since, true)

	items, err := o.finish(ctx, pool, exclude, &stats)
	if err != nil {
		spanErr = err
		return nil, stats, err
	}
	stats.Duration = o.now().Sub(start)

	metrics.CollectionItems.WithLabelValues(profile.Code, PhaseFallback).Observe(float64(len(items)))
	logging.Ctx(ctx).Info().Int("items", len(items)).Msg("Fallback collection finished")
	return items, stats, nil
}

// fetchFeed starts the trending fetch and returns a func that waits for it.
func (o *Orchestrator) fetchFeed(ctx context.Context, mkt string, n int) func() ([]content.Item, error) {
	var (
		items []content.Item
		err   error
	)
	done := make(chan struct{})
	go func() {
		defer close(done)
		items, err = o.source.Trending(ctx, mkt, n)
	}()
	return func() ([]content.Item, error) {
		<-done
		return items, err
	}
}

// search runs one tier's terms with bounded concurrency, skipping terms
// that start after the pool reached the target size.
func (o *Orchestrator) search(ctx context.Context, t tier, mkt string, since time.Time, pool *pool, stats *Stats) {
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.Concurrency)
	for _, term := range t.terms {
		g.Go(func() error {
			if o.cfg.TargetSize > 0 && pool.size() >= o.cfg.TargetSize {
				return nil
			}
			items, err := o.source.Search(gctx, term, mkt, t.results, since)

			mu.Lock()
			defer mu.Unlock()
			stats.Searches++
			if err != nil {
				stats.FailedSearches++
				logging.Ctx(ctx).Warn().Err(err).Str("term", term).Str("tier", t.name).Msg("Search failed, skipping term")
				return nil
			}
			stats.SearchResults += len(items)
			stats.Duplicates += pool.add(items, term)
			return nil
		})
	}
	_ = g.Wait()
}

// finish caps the pool, drops excluded ids and enriches details.
func (o *Orchestrator) finish(ctx context.Context, p *pool, exclude map[string]struct{}, stats *Stats) ([]content.Item, error) {
	items := p.items(exclude)
	if o.cfg.MaxUnique > 0 && len(items) > o.cfg.MaxUnique {
		stats.Capped = len(items) - o.cfg.MaxUnique
		items = items[:o.cfg.MaxUnique]
	}
	stats.Unique = len(items)

	items, err := o.enrich(ctx, items, stats)
	if err != nil {
		return nil, err
	}
	stats.Final = len(items)
	return items, nil
}

// enrich replaces search snippets with full details in sub-batches. Items
// in a failed batch keep their snippet data; items a successful batch does
// not return are no longer available and are dropped.
func (o *Orchestrator) enrich(ctx context.Context, items []content.Item, stats *Stats) ([]content.Item, error) {
	if len(items) == 0 {
		return items, nil
	}

	type batchResult struct {
		details map[string]content.Item
		err     error
	}
	size := o.cfg.DetailsBatch
	results := make([]batchResult, (len(items)+size-1)/size)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.Concurrency)
	for b := range results {
		lo := b * size
		hi := min(lo+size, len(items))
		ids := make([]string, 0, hi-lo)
		for i := lo; i < hi; i++ {
			ids = append(ids, items[i].ID)
		}
		g.Go(func() error {
			details, err := o.source.Details(gctx, ids)
			results[b] = batchResult{details: details, err: err}
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([]content.Item, 0, len(items))
	for b, r := range results {
		lo := b * size
		hi := min(lo+size, len(items))
		if r.err != nil {
			stats.DetailsFailures++
			logging.Ctx(ctx).Warn().Err(r.err).Int("batch", b).Msg("Details batch failed, keeping snippets")
			out = append(out, items[lo:hi]...)
			continue
		}
		for i := lo; i < hi; i++ {
			d, ok := r.details[items[i].ID]
			if !ok {
				stats.Unavailable++
				continue
			}
			out = append(out, items[i].WithDetails(&d))
		}
	}
	return out, nil
}

// pickTerms returns up to limit terms not yet in seen (case-insensitive),
// recording them in seen. limit <= 0 means no limit.
func pickTerms(terms []string, seen map[string]struct{}, limit int) []string {
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		t = strings.TrimSpace(t)
		key := strings.ToLower(t)
		if t == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		if limit > 0 && len(out) == limit {
			break
		}
		seen[key] = struct{}{}
		out = append(out, t)
	}
	return out
}
