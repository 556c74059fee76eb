// Momentum - Market Momentum Video Ranking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/momentum

/*
Package relevance scores how relevant videos are to a target market using a
generative model, under a monthly spend ceiling.

# Read-through

ScoreBatch consults two layers before calling the model:

  - Store: per (video, market) assessments in badger, fresh for 24h
  - Fingerprint cache: the whole id set under llm:{MARKET}:{fp16} in the
    tiered cache, fresh for 6h

Only items found in neither are sent to the model, in batches of at most
BatchSize with bounded concurrency. Concurrent calls for the same id set
share one computation.

# Budget

The Ledger reserves the projected cost of each batch before the call and
settles it with the reported token usage afterwards:

	projected = (input + input/2) * pricePerMillion / 1e6

Under the hard policy a batch that would push the month past the ceiling
is refused and its items receive default assessments; BatchResult reports
BudgetExceeded. The advisory policy logs the overshoot and proceeds.

# Degradation

Model failures never fail a ScoreBatch call. Affected items get a score of
0 and a confidence of 0.1, are not persisted, and are retried by the next
request. Malformed model output is handled by ParseResponse, which clamps
every score and confidence to [0, 1].

# Usage log

Every call produces a UsageRecord. LogRecorder writes it to the structured
log; PostgresRecorder appends it to llm_usage_log; MultiRecorder fans out.

Example:

	ledger := relevance.NewLedger(cfg.Scorer)
	scorer := relevance.NewScorer(cfg.Scorer, relevance.Options{
	    Model:    relevance.NewGeminiClient(cfg.Scorer),
	    Ledger:   ledger,
	    Store:    relevance.NewStore(db, cfg.Scorer.StoreTTL),
	    Cache:    tiered,
	    Recorder: relevance.LogRecorder{},
	})
	res, err := scorer.ScoreBatch(ctx, items, "DE", "bundesliga")
*/
package relevance
