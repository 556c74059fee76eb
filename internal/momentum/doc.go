// Momentum - Market Momentum Video Ranking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/momentum

/*
Package momentum answers "what is gaining momentum in this market right now"
for a free-text query.

A Rank call runs the full pipeline:

 1. collect candidates (enhanced, category and generic search tiers plus the
    market's trending feed)
 2. score market relevance, fetch the trend signal and the enhanced terms
    concurrently
 3. compute composite scores
 4. relax the relevance threshold until enough results qualify, widening
    collection once when needed
 5. truncate to the requested limit

Finished responses are cached under trending:{MARKET}:{query}:{timeframe}
and identical in-flight requests share a single pipeline run.

Usage:

	svc := momentum.NewService(cfg, momentum.Deps{
	    Collector: orchestrator,
	    Scorer:    scorer,
	    Signals:   signalClient,
	    Cache:     tiered,
	})
	resp, err := svc.Rank(ctx, momentum.Request{Query: "gaming", Market: "DE", Timeframe: "48h"})
	if errors.Is(err, momentum.ErrInvalidRequest) {
	    // 400
	}
*/
package momentum
