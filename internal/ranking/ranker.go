// Momentum - Market Momentum Video Ranking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/momentum

// Package ranking computes the composite momentum score of collected videos.
package ranking

import (
	"math"
	"sort"
	"time"

	"github.com/tomtom215/momentum/internal/config"
	"github.com/tomtom215/momentum/internal/content"
	"github.com/tomtom215/momentum/internal/market"
	"github.com/tomtom215/momentum/internal/signal"
)

// maxNormalized is the top of the display scale.
const maxNormalized = 10.0

// Weights are the tunable constants of the composite score.
type Weights struct {
	Velocity        float64
	Engagement      float64
	Decay           float64
	DecayHours      float64
	RelevanceFloor  float64
	RelevanceSpread float64
	TrendingBoost   float64
	NormalizeScale  float64
}

// DefaultWeights returns the production weights.
func DefaultWeights() Weights {
	return Weights{
		Velocity:        0.6,
		Engagement:      0.3,
		Decay:           0.1,
		DecayHours:      24,
		RelevanceFloor:  0.5,
		RelevanceSpread: 1.5,
		TrendingBoost:   1.5,
		NormalizeScale:  10000,
	}
}

// WeightsFromConfig maps the ranking config section. Zero scale constants
// fall back to their defaults.
func WeightsFromConfig(cfg config.RankingConfig) Weights {
	d := DefaultWeights()
	w := Weights{
		Velocity:        cfg.VelocityWeight,
		Engagement:      cfg.EngagementWeight,
		Decay:           cfg.DecayWeight,
		DecayHours:      cfg.DecayHours,
		RelevanceFloor:  cfg.RelevanceFloor,
		RelevanceSpread: cfg.RelevanceSpread,
		TrendingBoost:   cfg.TrendingBoost,
		NormalizeScale:  cfg.NormalizeScale,
	}
	if w.DecayHours <= 0 {
		w.DecayHours = d.DecayHours
	}
	if w.NormalizeScale <= 0 {
		w.NormalizeScale = d.NormalizeScale
	}
	if w.TrendingBoost <= 0 {
		w.TrendingBoost = d.TrendingBoost
	}
	return w
}

// Result is one scored video with its score components.
type Result struct {
	Item content.Item `json:"item"`
	Rank int          `json:"rank"`

	Relevance          float64 `json:"country_relevance_score"`
	TrendingFeedMember bool    `json:"is_in_trending_feed"`

	AgeHours            float64 `json:"age_hours"`
	Velocity            float64 `json:"views_per_hour"`
	Engagement          float64 `json:"engagement_rate"`
	Decay               float64 `json:"time_decay"`
	BaseMomentum        float64 `json:"base_momentum"`
	RelevanceMultiplier float64 `json:"country_multiplier"`
	TrendingBoost       float64 `json:"trending_boost"`
	CrossPlatformBoost  float64 `json:"cross_platform_boost"`
	Score               float64 `json:"trending_score"`
	Normalized          float64 `json:"normalized_score"`
	ViewsInTimeframe    int64   `json:"views_in_timeframe"`
}

// Ranker scores items for one timeframe. It holds no mutable state.
//
// For an item of age a hours (tf = timeframe hours, r = relevance):
//
//	velocity   = views / max(min(a, tf), 1)
//	engagement = (likes + comments) / max(views, 1)
//	decay      = exp(-a / DecayHours)
//	base       = Wv*velocity + We*engagement*views + Wd*views*decay
//	final      = base * (floor + spread*r) * trendingBoost * (1 + signal boost)
//	normalized = min(final / scale * 10, 10)
type Ranker struct {
	w  Weights
	tf market.Timeframe
}

// New creates a Ranker for tf.
func New(w Weights, tf market.Timeframe) Ranker {
	return Ranker{w: w, tf: tf}
}

// Score computes the composite score of item. relevance is clamped to
// [0, 1]; a nil entry gives a neutral cross-platform boost.
func (r Ranker) Score(item *content.Item, relevance float64, trendingFeedMember bool, entry *signal.Entry, now time.Time) Result {
	relevance = clamp01(relevance)
	views := float64(max(item.Views, 0))
	interactions := float64(max(item.Likes, 0) + max(item.Comments, 0))

	age := item.AgeHours(now)
	tfHours := float64(r.tf.Hours())
	velocity := views / math.Max(math.Min(age, tfHours), 1)
	engagement := interactions / math.Max(views, 1)
	decay := math.Exp(-age / r.w.DecayHours)

	base := r.w.Velocity*velocity + r.w.Engagement*engagement*views + r.w.Decay*views*decay

	multiplier := r.w.RelevanceFloor + r.w.RelevanceSpread*relevance
	trending := 1.0
	if trendingFeedMember {
		trending = r.w.TrendingBoost
	}
	cross := 1.0
	if entry != nil {
		cross += entry.Boost
	}
	final := base * multiplier * trending * cross

	return Result{
		Item:                *item,
		Relevance:           relevance,
		TrendingFeedMember:  trendingFeedMember,
		AgeHours:            age,
		Velocity:            velocity,
		Engagement:          engagement,
		Decay:               decay,
		BaseMomentum:        base,
		RelevanceMultiplier: multiplier,
		TrendingBoost:       trending,
		CrossPlatformBoost:  cross,
		Score:               final,
		Normalized:          math.Min(final/r.w.NormalizeScale*maxNormalized, maxNormalized),
		ViewsInTimeframe:    int64(velocity * tfHours),
	}
}

// Rank sorts results by descending score, assigns 1-based rank positions
// and truncates to limit (limit <= 0 keeps all). Equal scores are ordered
// by video id. The input slice is reordered in place.
func Rank(results []Result, limit int) []Result {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Item.ID < results[j].Item.ID
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	for i := range results {
		results[i].Rank = i + 1
	}
	return results
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
