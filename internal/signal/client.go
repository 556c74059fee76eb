// Momentum - Market Momentum Video Ranking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/momentum

package signal

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/singleflight"

	"github.com/tomtom215/momentum/internal/cache"
	"github.com/tomtom215/momentum/internal/config"
	"github.com/tomtom215/momentum/internal/logging"
	"github.com/tomtom215/momentum/internal/market"
	"github.com/tomtom215/momentum/internal/metrics"
	"github.com/tomtom215/momentum/internal/tracing"
)

// BreakerName labels the trend endpoint breaker in metrics and logs.
const BreakerName = "trends-api"

// maxTerms caps EnhancedTerms.
const maxTerms = 7

// Client fetches trend signals through a breaker, a rotating identity pool,
// adaptive pacing and the tiered cache.
type Client struct {
	transport Transport
	cache     *cache.Tiered
	breaker   *Breaker
	pool      *Pool
	pacer     *Pacer
	window    *cache.OutcomeWindow

	maxRetries  int
	fetchBudget time.Duration
	termsTTL    time.Duration
	maxAge      time.Duration

	flight singleflight.Group
	now    func() time.Time
}

// NewClient builds a client. tiered may have no layers; fetches then always
// go upstream.
func NewClient(cfg config.SignalConfig, cacheCfg config.CacheConfig, transport Transport, tiered *cache.Tiered) *Client {
	window := cache.NewOutcomeWindow(5*time.Minute, 10)
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 1
	}
	return &Client{
		transport:   transport,
		cache:       tiered,
		breaker:     NewBreaker(BreakerName, cfg.FailureThreshold, cfg.Cooldown),
		pool:        NewPool(cfg.PoolSize, tracing.Transport(http.DefaultTransport), cfg.Timeout),
		pacer:       NewPacer(cfg.BaseDelay, cfg.MaxDelay, cfg.RequestsPerMinute, window),
		window:      window,
		maxRetries:  maxRetries,
		fetchBudget: cfg.FetchBudget,
		termsTTL:    cacheCfg.TermsTTL,
		maxAge:      longestTTL(tiered),
		now:         time.Now,
	}
}

func longestTTL(tiered *cache.Tiered) time.Duration {
	var longest time.Duration
	for _, l := range tiered.Layers() {
		if l.TTL > longest {
			longest = l.TTL
		}
	}
	return longest
}

// FetchSignal returns the trend signal for query in mkt over tf. Errors are
// always *Error; Unavailable(err) is true for all of them. An upstream fetch,
// retries and pacing included, never outlasts the configured fetch budget.
func (c *Client) FetchSignal(ctx context.Context, query, mkt string, tf market.Timeframe) (*Entry, error) {
	key := cache.SignalKey(mkt, query, tf.String())

	var cached Entry
	if tier, err := c.cache.GetJSON(ctx, key, &cached); err == nil {
		metrics.SignalFetches.WithLabelValues(mkt, "cache_hit").Inc()
		cached.CacheTier = tier
		return &cached, nil
	}

	v, err, _ := c.flight.Do(key, func() (interface{}, error) {
		fetchCtx := ctx
		if c.fetchBudget > 0 {
			var cancel context.CancelFunc
			fetchCtx, cancel = context.WithTimeout(ctx, c.fetchBudget)
			defer cancel()
		}
		return c.fetch(fetchCtx, key, query, mkt, tf)
	})
	if err != nil {
		metrics.SignalFetches.WithLabelValues(mkt, string(KindOf(err))).Inc()
		return nil, err
	}
	metrics.SignalFetches.WithLabelValues(mkt, "success").Inc()
	entry := *v.(*Entry)
	return &entry, nil
}

func (c *Client) fetch(ctx context.Context, key, query, mkt string, tf market.Timeframe) (_ *Entry, err error) {
	ctx, end := tracing.StartSpan(ctx, "signal.fetch",
		attribute.String("market", mkt),
		attribute.String("timeframe", tf.String()),
	)
	defer func() { end(err) }()

	web := Query{Term: query, Geo: mkt, Range: tf.TrendsRange(), Property: PropertyWeb}
	yt := web
	yt.Property = PropertyYouTube

	var webValues []float64
	if err := c.call(ctx, "interest_web", func(ctx context.Context, id *Identity) error {
		var callErr error
		webValues, callErr = c.transport.Interest(ctx, id, web)
		return callErr
	}); err != nil {
		return nil, err
	}

	// The remaining calls enrich the entry; their failures degrade it.
	complete := true
	log := logging.Ctx(ctx)

	var ytValues []float64
	if err := c.call(ctx, "interest_youtube", func(ctx context.Context, id *Identity) error {
		var callErr error
		ytValues, callErr = c.transport.Interest(ctx, id, yt)
		return callErr
	}); err != nil {
		complete = false
		log.Warn().Err(err).Str("query", query).Msg("YouTube interest unavailable")
	}

	var related Related
	if err := c.call(ctx, "related_web", func(ctx context.Context, id *Identity) error {
		rel, callErr := c.transport.Related(ctx, id, web)
		if callErr == nil {
			related.TopTopics = rel.TopTopics
		}
		return callErr
	}); err != nil {
		complete = false
		log.Warn().Err(err).Str("query", query).Msg("Related topics unavailable")
	}
	if err := c.call(ctx, "related_youtube", func(ctx context.Context, id *Identity) error {
		rel, callErr := c.transport.Related(ctx, id, yt)
		if callErr == nil {
			related.TopQueries = rel.TopQueries
			related.RisingQueries = rel.RisingQueries
		}
		return callErr
	}); err != nil {
		complete = false
		log.Warn().Err(err).Str("query", query).Msg("Related queries unavailable")
	}

	entry := c.buildEntry(query, mkt, tf, webValues, ytValues, related)

	if complete && entry.DataPoints > 0 {
		if err := c.cache.SetJSON(ctx, key, entry); err != nil {
			log.Warn().Err(err).Msg("Failed to cache signal entry")
		}
	}
	log.Info().
		Str("query", query).
		Float64("trend_score", entry.TrendScore).
		Bool("trending", entry.IsTrending).
		Str("alignment", entry.Alignment).
		Bool("complete", complete).
		Msg("Trend signal fetched")
	return entry, nil
}

func (c *Client) buildEntry(query, mkt string, tf market.Timeframe, webValues, ytValues []float64, related Related) *Entry {
	webStats := analyzeSeries(webValues)
	ytStats := analyzeSeries(ytValues)
	validation, alignment := crossPlatform(webStats.trending, ytStats.trending, webStats.score)

	now := c.now().UTC()
	return &Entry{
		Query:           query,
		Market:          mkt,
		Timeframe:       tf.String(),
		TrendScore:      webStats.score,
		PeakInterest:    webStats.peak,
		AverageInterest: webStats.average,
		RecentInterest:  webStats.recent,
		IsTrending:      webStats.trending,
		DataPoints:      webStats.points,
		YouTubeTrending: ytStats.trending,
		YouTubeScore:    ytStats.score,
		Validation:      validation,
		Boost:           boostFor(validation),
		Alignment:       alignment,
		Related:         related,
		FetchedAt:       now,
		ExpiresAt:       now.Add(c.maxAge),
	}
}

// call runs fn under the breaker with pacing, identity rotation and retries.
func (c *Client) call(ctx context.Context, op string, fn func(ctx context.Context, id *Identity) error) error {
	var last *Error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		if c.breaker.Open() {
			return &Error{Kind: KindCircuitOpen, Op: op, Err: errors.New("circuit breaker is open")}
		}
		if err := c.pacer.Wait(ctx, attempt); err != nil {
			if last != nil {
				logging.Ctx(ctx).Debug().Err(err).Str("op", op).Int("attempt", attempt).Msg("Signal retries stopped")
				return last
			}
			return &Error{Kind: KindNetwork, Op: op, Err: err}
		}

		id := c.pool.Next()
		err := c.breaker.Execute(func() error { return fn(ctx, id) })
		if err == nil {
			c.window.Record(true)
			return nil
		}

		kind := Classify(err)
		serr := &Error{Kind: kind, Op: op, Status: statusOf(err), Err: err}
		if kind == KindCircuitOpen {
			return serr
		}
		if ctx.Err() != nil {
			return &Error{Kind: KindNetwork, Op: op, Err: ctx.Err()}
		}

		c.window.Record(false)
		logging.Ctx(ctx).Warn().Err(err).Str("op", op).Str("kind", string(kind)).Int("attempt", attempt).Msg("Signal request failed")

		if kind == KindRateLimited || kind == KindBlocked {
			c.pool.Invalidate(id)
			return serr
		}
		last = serr
	}
	if last == nil {
		return &Error{Kind: KindUnknown, Op: op, Err: errors.New("no attempts made")}
	}
	return last
}

// EnhancedTerms expands query with the top web topic and related YouTube
// searches. When no signal is available it falls back to the market's
// local search variants.
func (c *Client) EnhancedTerms(ctx context.Context, query, mkt string, tf market.Timeframe) []string {
	key := cache.TermsKey(mkt, query, tf.String())

	var terms []string
	if _, err := c.cache.GetJSON(ctx, key, &terms); err == nil && len(terms) > 0 {
		return terms
	}

	entry, err := c.FetchSignal(ctx, query, mkt, tf)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("query", query).Msg("Enhanced terms unavailable, using local variants")
		return fallbackTerms(query, mkt)
	}

	terms = buildTerms(query, entry.Related, maxTerms)
	if c.termsTTL > 0 {
		if err := c.cache.SetJSONWithTTL(ctx, key, terms, c.termsTTL); err != nil {
			logging.Ctx(ctx).Debug().Err(err).Msg("Failed to cache enhanced terms")
		}
	}
	return terms
}

func fallbackTerms(query, mkt string) []string {
	profile, err := market.Lookup(mkt)
	if err != nil {
		return []string{query}
	}
	return dedupeTerms(profile.LocalVariants(query), maxTerms)
}

// Stats is a status snapshot of the client.
type Stats struct {
	Breaker     BreakerSnapshot `json:"breaker"`
	SuccessRate float64         `json:"success_rate_5m"`
	Requests    int64           `json:"requests_5m"`
	PoolSize    int             `json:"pool_size"`
}

// Stats returns breaker, success-rate and pool state.
func (c *Client) Stats() Stats {
	_, total := c.window.Counts()
	return Stats{
		Breaker:     c.breaker.Snapshot(),
		SuccessRate: c.window.Rate(),
		Requests:    total,
		PoolSize:    c.pool.Size(),
	}
}

// Healthy reports whether the breaker is closed and recent calls mostly succeed.
func (c *Client) Healthy() bool {
	return c.breaker.State() == "closed" && c.window.Rate() > 0.3
}
