// Momentum - Market Momentum Video Ranking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/momentum

package cache

import (
	"context"
	"time"

	"github.com/tomtom215/momentum/internal/metrics"
)

// MemoryTier is the in-process tier backed by LRUCache.
type MemoryTier struct {
	lru *LRUCache
}

// NewMemoryTier creates an in-process tier holding at most size entries.
func NewMemoryTier(size int) *MemoryTier {
	return &MemoryTier{lru: NewLRUCache(size)}
}

// Name implements Tier.
func (m *MemoryTier) Name() string { return TierMemory }

// Get implements Tier.
func (m *MemoryTier) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := m.lru.Get(key)
	if !ok {
		return nil, ErrMiss
	}
	return v, nil
}

// Set implements Tier.
func (m *MemoryTier) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.lru.Set(key, value, ttl)
	metrics.CacheSize.WithLabelValues(TierMemory).Set(float64(m.lru.Len()))
	return nil
}

// Delete implements Tier.
func (m *MemoryTier) Delete(_ context.Context, key string) error {
	m.lru.Remove(key)
	return nil
}

// DeletePattern implements Tier.
func (m *MemoryTier) DeletePattern(_ context.Context, pattern string) (int, error) {
	n := m.lru.RemoveMatching(func(key string) bool { return MatchGlob(pattern, key) })
	metrics.CacheSize.WithLabelValues(TierMemory).Set(float64(m.lru.Len()))
	return n, nil
}

// Sweep drops expired entries and returns how many were removed.
func (m *MemoryTier) Sweep() int {
	n := m.lru.CleanupExpired()
	if n > 0 {
		metrics.CacheEvictions.WithLabelValues(TierMemory).Add(float64(n))
	}
	metrics.CacheSize.WithLabelValues(TierMemory).Set(float64(m.lru.Len()))
	return n
}

// Len returns the number of entries held.
func (m *MemoryTier) Len() int { return m.lru.Len() }
