// Momentum - Market Momentum Video Ranking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/momentum

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/momentum/internal/middleware"
)

// Router wires handlers and middleware into a chi mux.
type Router struct {
	handler       *Handler
	chiMiddleware *ChiMiddleware
}

// NewRouter creates a Router; nil mw uses the default middleware config.
func NewRouter(handler *Handler, mw *ChiMiddleware) *Router {
	if mw == nil {
		mw = NewChiMiddleware(nil)
	}
	return &Router{handler: handler, chiMiddleware: mw}
}

// chiMiddleware adapts http.HandlerFunc middleware to chi's r.Use.
func chiMiddleware(mw func(http.HandlerFunc) http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return mw(next.ServeHTTP)
	}
}

// SetupChi builds the route tree.
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware(middleware.RequestID))
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS()) // global so OPTIONS preflight is answered

	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitHealth())
		r.Use(APISecurityHeaders())
		r.Get("/live", router.handler.HealthLive)
		r.Get("/ready", router.handler.HealthReady)
		r.Get("/", router.handler.Health)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(APISecurityHeaders())
		r.Use(chiMiddleware(middleware.PrometheusMetrics))
		r.Use(chiMiddleware(middleware.Compression))
		if pm := router.handler.perfMon; pm != nil {
			r.Use(pm.Middleware)
		}

		r.With(router.chiMiddleware.RateLimitRank()).Get("/trending", router.handler.Trending)
		r.Get("/search-terms", router.handler.SearchTerms)
		r.Get("/signal", router.handler.Signal)
		r.Get("/signal/stats", router.handler.SignalStats)
		r.Get("/budget", router.handler.Budget)
		r.Get("/analytics/llm-costs", router.handler.LLMCosts)
		r.Get("/cache/stats", router.handler.CacheStats)
		r.Get("/markets", router.handler.Markets)
		r.Get("/feeds/{country}", router.handler.Feed)
		r.Get("/stats/performance", router.handler.Performance)

		r.With(router.chiMiddleware.RateLimitAdmin()).Post("/cache/invalidate", router.handler.CacheInvalidate)
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}
