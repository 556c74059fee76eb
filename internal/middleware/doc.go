// Momentum - Market Momentum Video Ranking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/momentum

/*
Package middleware provides HTTP middleware for the ranking API.

Key Components:

  - RequestID: X-Request-ID propagation into logging.Ctx
  - PrometheusMetrics: request count, latency and in-flight gauges labelled
    by chi route pattern
  - Compression: gzhttp wrapper for JSON responses above CompressMinSize
  - PerformanceMonitor: sliding-window latency percentiles served at
    /api/v1/stats/performance

The func(http.HandlerFunc) http.HandlerFunc middleware here is adapted to
chi's r.Use in the api package:

	r.Use(chiMiddleware(middleware.RequestID))
	r.Use(chiMiddleware(middleware.PrometheusMetrics))
	r.Use(perfMon.Middleware)

All components are safe for concurrent use.
*/
package middleware
