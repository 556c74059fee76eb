// Momentum - Market Momentum Video Ranking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/momentum

/*
Package content provides the video source used by collection: search by
term, batched detail lookups and the per-market trending feed.

Source is the interface the pipeline depends on. YouTubeClient implements
it against the YouTube Data API v3; CircuitBreakerSource and
FeedCachingSource decorate any Source:

	yt := content.NewYouTubeClient(cfg.YouTube)
	src := content.NewFeedCachingSource(content.NewCircuitBreakerSource(yt), tiered, cfg.Cache.FeedTTL)

Items returned by a Source are plain values; callers copy them freely.
*/
package content
