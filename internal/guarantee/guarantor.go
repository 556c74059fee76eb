// Momentum - Market Momentum Video Ranking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/momentum

// Package guarantee relaxes the relevance cutoff step by step, and widens
// collection when needed, so a ranking request returns enough results.
package guarantee

import (
	"context"
	"slices"
	"sort"

	"github.com/tomtom215/momentum/internal/config"
	"github.com/tomtom215/momentum/internal/logging"
	"github.com/tomtom215/momentum/internal/ranking"
)

// NoThreshold is Outcome.Threshold when no threshold was accepted.
const NoThreshold = -1.0

// DefaultThresholds is the relaxation sequence.
var DefaultThresholds = []float64{0.4, 0.25, 0.15, 0.1, 0.05, 0.0}

// Fallback collects, scores and ranks additional items, skipping ids in
// exclude.
type Fallback func(ctx context.Context, exclude map[string]struct{}) ([]ranking.Result, error)

// Outcome is the guaranteed result set.
type Outcome struct {
	// Items are sorted by descending score; at most 2×minCount when a
	// threshold was accepted.
	Items []ranking.Result `json:"-"`
	// Threshold is the accepted relevance cutoff, or NoThreshold.
	Threshold float64 `json:"threshold"`
	// LowestTried is the last cutoff evaluated.
	LowestTried   float64 `json:"lowest_tried"`
	FallbackUsed  bool    `json:"fallback_used"`
	FallbackAdded int     `json:"fallback_added"`
	FallbackError string  `json:"fallback_error,omitempty"`
	Underfilled   bool    `json:"underfilled"`
	Shortfall     int     `json:"shortfall"`
}

// Guarantor applies the threshold sequence.
type Guarantor struct {
	thresholds []float64
}

// New creates a Guarantor from cfg. An empty threshold list uses
// DefaultThresholds; thresholds are tried in descending order.
func New(cfg config.GuaranteeConfig) *Guarantor {
	th := slices.Clone(cfg.Thresholds)
	if len(th) == 0 {
		th = slices.Clone(DefaultThresholds)
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(th)))
	return &Guarantor{thresholds: th}
}

// Thresholds returns the relaxation sequence.
func (g *Guarantor) Thresholds() []float64 {
	return slices.Clone(g.thresholds)
}

// Guarantee returns at least min(minCount, available) items from pool. When
// no threshold admits minCount items, fallback (if non-nil) is run once and
// its items merged by id before the thresholds are retried. Running short
// is reported in the outcome, never as an error.
func (g *Guarantor) Guarantee(ctx context.Context, pool []ranking.Result, minCount int, fallback Fallback) Outcome {
	if minCount < 1 {
		minCount = 1
	}
	pool = sortByScore(slices.Clone(pool))

	if out, ok := g.accept(pool, minCount); ok {
		return out
	}

	out := Outcome{Threshold: NoThreshold, LowestTried: g.lowest()}
	if fallback != nil {
		out.FallbackUsed = true
		exclude := make(map[string]struct{}, len(pool))
		for i := range pool {
			exclude[pool[i].Item.ID] = struct{}{}
		}

		extra, err := fallback(ctx, exclude)
		if err != nil {
			out.FallbackError = err.Error()
			logging.Ctx(ctx).Warn().Err(err).Msg("Fallback collection failed")
		}
		added := 0
		for i := range extra {
			id := extra[i].Item.ID
			if _, dup := exclude[id]; dup {
				continue
			}
			exclude[id] = struct{}{}
			pool = append(pool, extra[i])
			added++
		}
		out.FallbackAdded = added
		pool = sortByScore(pool)
		logging.Ctx(ctx).Info().Int("added", added).Int("pool", len(pool)).Msg("Fallback collection merged")

		if accepted, ok := g.accept(pool, minCount); ok {
			accepted.FallbackUsed = true
			accepted.FallbackAdded = added
			accepted.FallbackError = out.FallbackError
			return accepted
		}
	}

	out.Items = pool
	if len(pool) < minCount {
		out.Underfilled = true
		out.Shortfall = minCount - len(pool)
	} else if len(pool) > 2*minCount {
		out.Items = pool[:2*minCount]
	}
	return out
}

// accept returns the first threshold admitting minCount items.
func (g *Guarantor) accept(pool []ranking.Result, minCount int) (Outcome, bool) {
	for _, th := range g.thresholds {
		kept := make([]ranking.Result, 0, len(pool))
		for i := range pool {
			if pool[i].Relevance >= th {
				kept = append(kept, pool[i])
			}
		}
		if len(kept) >= minCount {
			if len(kept) > 2*minCount {
				kept = kept[:2*minCount]
			}
			return Outcome{Items: kept, Threshold: th, LowestTried: th}, true
		}
	}
	return Outcome{}, false
}

func (g *Guarantor) lowest() float64 {
	return g.thresholds[len(g.thresholds)-1]
}

func sortByScore(results []ranking.Result) []ranking.Result {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Item.ID < results[j].Item.ID
	})
	return results
}
