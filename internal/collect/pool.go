// Momentum - Market Momentum Video Ranking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/momentum

package collect

import (
	"sync"
	"time"

	"github.com/tomtom215/momentum/internal/content"
)

// pool accumulates items deduplicated by id, in first-seen order.
type pool struct {
	mu    sync.Mutex
	order []string
	byID  map[string]content.Item
}

func newPool() *pool {
	return &pool{byID: make(map[string]content.Item)}
}

func (p *pool) size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.order)
}

// add inserts items found by term and returns the number of duplicates.
func (p *pool) add(items []content.Item, term string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	dups := 0
	for _, it := range items {
		if it.ID == "" {
			continue
		}
		if _, ok := p.byID[it.ID]; ok {
			dups++
			continue
		}
		if it.SearchTerm == "" {
			it.SearchTerm = term
		}
		p.byID[it.ID] = it
		p.order = append(p.order, it.ID)
	}
	return dups
}

// mergeFeed folds the trending feed into the pool. Feed items published at
// or after since are marked InTrendingFeed, including ones already found
// by search. Older feed items are added only when keepStale is set.
// It returns the number of feed members inside the window.
func (p *pool) mergeFeed(feed []content.Item, since time.Time, keepStale bool) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	matches := 0
	for _, it := range feed {
		if it.ID == "" {
			continue
		}
		fresh := !it.PublishedAt.Before(since)
		if fresh {
			matches++
		}
		if existing, ok := p.byID[it.ID]; ok {
			if fresh {
				existing.InTrendingFeed = true
				existing.TrendingRank = it.TrendingRank
				p.byID[it.ID] = existing
			}
			continue
		}
		if !fresh && !keepStale {
			continue
		}
		it.InTrendingFeed = fresh
		p.byID[it.ID] = it
		p.order = append(p.order, it.ID)
	}
	return matches
}

// items returns the pooled items in insertion order, minus exclude.
func (p *pool) items(exclude map[string]struct{}) []content.Item {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]content.Item, 0, len(p.order))
	for _, id := range p.order {
		if _, skip := exclude[id]; skip {
			continue
		}
		out = append(out, p.byID[id])
	}
	return out
}
