// Momentum - Market Momentum Video Ranking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/momentum

/*
Package collect gathers the candidate videos for a ranking request.

Collection searches three tiers of terms in order, stopping once the pool
reaches the target size:

 1. Enhanced terms from the trend signal (up to 7, 25 results each)
 2. The market's local variants of the query (up to 3, 15 results each)
 3. Generic market trending terms (up to 2, 15 results each)

The official trending feed is always fetched alongside. Feed items
published within the timeframe join the pool tagged InTrendingFeed. The
pool is deduplicated by id, capped, and enriched with full details in
batches of at most 50 ids.

CollectFallback is the wider pass used when too few relevant items were
found: every generic term plus a larger feed slice, excluding ids already
collected.
*/
package collect
