// Momentum - Market Momentum Video Ranking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/momentum

package signal

import (
	"math"
	"strings"
	"time"
)

// Alignment labels for cross-platform validation.
const (
	AlignmentStrong   = "strong"
	AlignmentModerate = "moderate"
	AlignmentWeak     = "weak"
	AlignmentNone     = "none"
)

// maxBoost caps the cross-platform boost.
const maxBoost = 0.3

// Entry is the trend signal for one (query, market, timeframe).
type Entry struct {
	Query     string `json:"query"`
	Market    string `json:"market"`
	Timeframe string `json:"timeframe"`

	TrendScore      float64 `json:"trend_score"`
	PeakInterest    float64 `json:"peak_interest"`
	AverageInterest float64 `json:"average_interest"`
	RecentInterest  float64 `json:"recent_interest"`
	IsTrending      bool    `json:"is_trending"`
	DataPoints      int     `json:"data_points"`

	YouTubeTrending bool    `json:"youtube_trending"`
	YouTubeScore    float64 `json:"youtube_score"`
	Validation      float64 `json:"validation_score"`
	Boost           float64 `json:"cross_platform_boost"`
	Alignment       string  `json:"platform_alignment"`

	Related Related `json:"related"`

	FetchedAt time.Time `json:"fetched_at"`
	ExpiresAt time.Time `json:"expires_at"`

	// CacheTier names the tier that served the entry; empty when fresh.
	CacheTier string `json:"-"`
}

// seriesStats summarises an interest series on the 0-100 scale.
type seriesStats struct {
	peak, average, recent, score float64
	trending                     bool
	points                       int
}

// analyzeSeries computes peak, mean, the mean of the last three points,
// score = min((peak+recent)/200, 1) and trending = recent > 0.6 × peak.
func analyzeSeries(values []float64) seriesStats {
	if len(values) == 0 {
		return seriesStats{}
	}
	var sum float64
	peak := math.Inf(-1)
	for _, v := range values {
		sum += v
		if v > peak {
			peak = v
		}
	}

	tail := values
	if len(tail) > 3 {
		tail = tail[len(tail)-3:]
	}
	var tailSum float64
	for _, v := range tail {
		tailSum += v
	}
	recent := tailSum / float64(len(tail))

	return seriesStats{
		peak:     peak,
		average:  sum / float64(len(values)),
		recent:   recent,
		score:    math.Min((peak+recent)/200, 1),
		trending: recent > 0.6*peak,
		points:   len(values),
	}
}

// crossPlatform scores agreement between web and YouTube trend activity.
// g is the web trend score.
func crossPlatform(webTrending, youtubeTrending bool, g float64) (validation float64, alignment string) {
	switch {
	case webTrending && youtubeTrending:
		return math.Min(0.8+0.2*g, 1), AlignmentStrong
	case webTrending || youtubeTrending:
		return 0.4 + 0.4*g, AlignmentModerate
	case g > 0.3:
		return 0.6 * g, AlignmentWeak
	default:
		return 0, AlignmentNone
	}
}

func boostFor(validation float64) float64 {
	return math.Min(validation*maxBoost, maxBoost)
}

// topicSuffixes are appended by the trend endpoint to topic titles.
var topicSuffixes = []string{" - Topic", " - Thema"}

func cleanTopic(title string) string {
	title = strings.TrimSpace(title)
	for _, suffix := range topicSuffixes {
		title = strings.TrimSuffix(title, suffix)
	}
	return strings.TrimSpace(title)
}

// buildTerms assembles query, top web topic and up to five related queries
// (top first), de-duplicated case-insensitively and capped at limit.
func buildTerms(query string, rel Related, limit int) []string {
	candidates := []string{query}
	if len(rel.TopTopics) > 0 {
		candidates = append(candidates, cleanTopic(rel.TopTopics[0]))
	}
	related := make([]string, 0, len(rel.TopQueries)+len(rel.RisingQueries))
	related = append(related, rel.TopQueries...)
	related = append(related, rel.RisingQueries...)
	if len(related) > 5 {
		related = related[:5]
	}
	candidates = append(candidates, related...)
	return dedupeTerms(candidates, limit)
}

func dedupeTerms(terms []string, limit int) []string {
	seen := make(map[string]struct{}, len(terms))
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		t = strings.TrimSpace(t)
		key := strings.ToLower(t)
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, t)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}
