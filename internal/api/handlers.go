// Momentum - Market Momentum Video Ranking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/momentum

package api

import (
	"context"
	"time"

	"github.com/tomtom215/momentum/internal/cache"
	"github.com/tomtom215/momentum/internal/content"
	"github.com/tomtom215/momentum/internal/market"
	"github.com/tomtom215/momentum/internal/middleware"
	"github.com/tomtom215/momentum/internal/momentum"
	"github.com/tomtom215/momentum/internal/relevance"
	"github.com/tomtom215/momentum/internal/signal"
)

// RankService answers ranking requests. Implemented by *momentum.Service.
type RankService interface {
	Rank(ctx context.Context, req momentum.Request) (*momentum.Response, error)
	Invalidate(ctx context.Context, mkt, query string) (int, error)
	Markets() []string
}

// SignalService exposes the trend-signal client. Implemented by *signal.Client.
type SignalService interface {
	FetchSignal(ctx context.Context, query, mkt string, tf market.Timeframe) (*signal.Entry, error)
	EnhancedTerms(ctx context.Context, query, mkt string, tf market.Timeframe) []string
	Stats() signal.Stats
	Healthy() bool
}

// BudgetSource reports scorer spend. Implemented by *relevance.Ledger.
type BudgetSource interface {
	Snapshot() relevance.LedgerSnapshot
}

// UsageAnalytics aggregates the scorer usage log. Implemented by
// *relevance.PostgresRecorder.
type UsageAnalytics interface {
	Usage(ctx context.Context, days int, now time.Time) (*relevance.UsageReport, error)
}

// CacheStats reports tiered cache counters. Implemented by *cache.Tiered.
type CacheStats interface {
	Stats() cache.Stats
}

// ReadinessCheck is one dependency checked by /health/ready.
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
	// Optional checks report their state without failing readiness.
	Optional bool
}

// Deps are the collaborators of a Handler. Budget, Usage, Cache, Feed and
// PerfMon may be nil.
type Deps struct {
	Ranker  RankService
	Signals SignalService
	Budget  BudgetSource
	Usage   UsageAnalytics
	Cache   CacheStats
	Feed    content.Source
	PerfMon *middleware.PerformanceMonitor
	Checks  []ReadinessCheck
	Version string
}

// Handler serves the HTTP API.
//
// Handler methods are split across files:
//   - handlers.go: Handler struct and constructor
//   - handlers_trending.go: ranking, terms, feeds and cache endpoints
//   - handlers_stats.go: budget, usage, cache, signal and performance endpoints
//   - handlers_health.go: liveness and readiness checks
type Handler struct {
	ranker    RankService
	signals   SignalService
	budget    BudgetSource
	usage     UsageAnalytics
	cache     CacheStats
	feed      content.Source
	perfMon   *middleware.PerformanceMonitor
	checks    []ReadinessCheck
	version   string
	startTime time.Time
}

// NewHandler creates a Handler.
func NewHandler(deps Deps) *Handler {
	return &Handler{
		ranker:    deps.Ranker,
		signals:   deps.Signals,
		budget:    deps.Budget,
		usage:     deps.Usage,
		cache:     deps.Cache,
		feed:      deps.Feed,
		perfMon:   deps.PerfMon,
		checks:    deps.Checks,
		version:   deps.Version,
		startTime: time.Now(),
	}
}
