// Momentum - Market Momentum Video Ranking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/momentum

package content

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/tomtom215/momentum/internal/cache"
	"github.com/tomtom215/momentum/internal/logging"
)

// FeedCachingSource caches Trending results in the tiered cache. Search
// and Details pass through.
type FeedCachingSource struct {
	Source
	cache  *cache.Tiered
	ttl    time.Duration
	flight singleflight.Group
}

// NewFeedCachingSource decorates source. ttl <= 0 disables caching.
func NewFeedCachingSource(source Source, tiered *cache.Tiered, ttl time.Duration) *FeedCachingSource {
	return &FeedCachingSource{Source: source, cache: tiered, ttl: ttl}
}

// Trending serves the feed from cache when present.
func (s *FeedCachingSource) Trending(ctx context.Context, market string, maxResults int) ([]Item, error) {
	if s.ttl <= 0 {
		return s.Source.Trending(ctx, market, maxResults)
	}
	key := cache.FeedKey(market, maxResults)

	var cached []Item
	if _, err := s.cache.GetJSON(ctx, key, &cached); err == nil {
		return cached, nil
	}

	v, err, _ := s.flight.Do(key, func() (interface{}, error) {
		items, err := s.Source.Trending(ctx, market, maxResults)
		if err != nil {
			return nil, err
		}
		if len(items) > 0 {
			if err := s.cache.SetJSONWithTTL(ctx, key, items, s.ttl); err != nil {
				logging.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("Failed to cache trending feed")
			}
		}
		return items, nil
	})
	if err != nil {
		return nil, err
	}
	items := v.([]Item)
	out := make([]Item, len(items))
	copy(out, items)
	return out, nil
}
