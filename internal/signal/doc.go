// Momentum - Market Momentum Video Ranking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/momentum

/*
Package signal fetches market trend signals from a Google-Trends style
endpoint and turns them into cross-platform validation scores and
expanded search terms.

The endpoint throttles aggressively, so every request passes through
four layers:

  - Breaker: a gobreaker circuit breaker that opens after a run of
    consecutive failures and admits one trial request after its cooldown
  - Pool: a small set of client identities (headers, timezone, cookie
    jar) rotated per request; rate-limited or blocked identities are
    replaced
  - Pacer: a shared rate limiter plus an adaptive, jittered delay that
    grows with the attempt number and with the recent failure rate
  - cache.Tiered: fast, memory and durable tiers in front of the client

Usage:

	client := signal.NewClient(cfg.Signal, cfg.Cache, signal.NewTrendsAPI(cfg.Signal.BaseURL), tiered)
	entry, err := client.FetchSignal(ctx, "Bundesliga", "DE", market.Timeframe24h)
	if signal.Unavailable(err) {
	    // rank without a cross-platform boost
	}

	terms := client.EnhancedTerms(ctx, "Bundesliga", "DE", market.Timeframe24h)

Every error returned by Client is a *Error carrying a Kind
(circuit_open, rate_limited, blocked, network, unknown). Callers treat
all of them as "signal unavailable" and continue.
*/
package signal
