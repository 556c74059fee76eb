// Momentum - Market Momentum Video Ranking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/momentum

/*
Package api exposes the ranking pipeline over HTTP using the chi router.

Every JSON endpoint answers with the APIResponse envelope. Validation
failures carry per-field details under error.details.

Endpoints:

	GET  /api/v1/trending           ranked videos for query, country, timeframe, limit
	GET  /api/v1/search-terms       terms collection would search for a query
	GET  /api/v1/signal             raw trend signal for a query
	GET  /api/v1/signal/stats       signal client breaker and success rate
	GET  /api/v1/budget             scorer spend against the monthly budget
	GET  /api/v1/markets            enabled markets and their prime-time windows
	GET  /api/v1/feeds/{country}    official trending chart of a market
	GET  /api/v1/stats/performance  per-endpoint latency percentiles
	POST /api/v1/cache/invalidate   drop cached ranking responses
	GET  /api/v1/health[/live|/ready]
	GET  /metrics                   Prometheus exposition

Usage:

	handler := api.NewHandler(api.Deps{Ranker: svc, Signals: sig, Budget: ledger})
	router := api.NewRouter(handler, api.NewChiMiddleware(cfg))
	srv := &http.Server{Addr: addr, Handler: router.SetupChi()}
*/
package api
