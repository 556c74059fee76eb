// Momentum - Market Momentum Video Ranking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/momentum

package momentum

import (
	"math"
	"time"

	"github.com/tomtom215/momentum/internal/collect"
	"github.com/tomtom215/momentum/internal/guarantee"
	"github.com/tomtom215/momentum/internal/ranking"
	"github.com/tomtom215/momentum/internal/relevance"
	"github.com/tomtom215/momentum/internal/signal"
)

// Algorithm names the ranking pipeline version reported with every response.
const Algorithm = "MVP-LLM-Enhanced"

// MessageNoVideos is reported when collection found nothing.
const MessageNoVideos = "No videos found"

// Response is a ranked result list.
type Response struct {
	Success   bool     `json:"success"`
	Query     string   `json:"query"`
	Market    string   `json:"country"`
	Timeframe string   `json:"timeframe"`
	Results   []Video  `json:"results"`
	Metadata  Metadata `json:"metadata"`
}

// Metadata describes how a response was produced.
type Metadata struct {
	TotalAnalyzed int  `json:"total_analyzed"`
	LLMAnalyzed   int  `json:"llm_analyzed"`
	CacheHit      bool `json:"cache_hit"`
	// CacheTier names the tier that served a cached response.
	CacheTier string `json:"cache_tier,omitempty"`

	TermsUsed       []string       `json:"search_terms_used"`
	CollectionStats *collect.Stats `json:"collection_stats,omitempty"`

	BudgetCostCents float64 `json:"llm_cost_cents"`
	BudgetExceeded  bool    `json:"budget_exceeded"`

	Signal    SignalSummary      `json:"google_trends"`
	Guarantee *guarantee.Outcome `json:"guarantee,omitempty"`

	TrendingFeedMatches int    `json:"trending_feed_matches"`
	ProcessingTimeMs    int64  `json:"processing_time_ms"`
	Algorithm           string `json:"algorithm"`
	Message             string `json:"message,omitempty"`
}

// SignalSummary condenses the trend signal used for boosting.
type SignalSummary struct {
	Available  bool    `json:"available"`
	TrendScore float64 `json:"trend_score"`
	IsTrending bool    `json:"is_trending"`
	Validation float64 `json:"validation_score"`
	Alignment  string  `json:"platform_alignment,omitempty"`
	Boost      float64 `json:"cross_platform_boost"`
	ErrorKind  string  `json:"error_kind,omitempty"`
}

// Video is the display form of one ranked result.
type Video struct {
	Rank             int        `json:"rank"`
	VideoID          string     `json:"video_id"`
	Title            string     `json:"title"`
	Channel          string     `json:"channel"`
	ChannelCountry   string     `json:"channel_country"`
	Views            int64      `json:"views"`
	ViewsInTimeframe int64      `json:"views_in_timeframe"`
	Likes            int64      `json:"likes"`
	Comments         int64      `json:"comments"`
	TrendingScore    float64    `json:"trending_score"`
	NormalizedScore  float64    `json:"normalized_score"`
	Relevance        float64    `json:"country_relevance_score"`
	Confidence       float64    `json:"confidence"`
	Reasoning        string     `json:"reasoning"`
	Origin           string     `json:"origin_country,omitempty"`
	InTrendingFeed   bool       `json:"is_in_trending_feed"`
	URL              string     `json:"url"`
	Thumbnail        string     `json:"thumbnail"`
	UploadDate       *time.Time `json:"upload_date"`
	AgeHours         float64    `json:"age_hours"`
	EngagementRate   float64    `json:"engagement_rate"`
	SearchTerm       string     `json:"search_term,omitempty"`
}

func summarize(entry *signal.Entry, err error) SignalSummary {
	if entry == nil {
		s := SignalSummary{}
		if err != nil {
			s.ErrorKind = string(signal.KindOf(err))
		}
		return s
	}
	return SignalSummary{
		Available:  true,
		TrendScore: entry.TrendScore,
		IsTrending: entry.IsTrending,
		Validation: entry.Validation,
		Alignment:  entry.Alignment,
		Boost:      entry.Boost,
	}
}

func toVideo(r *ranking.Result, a relevance.Assessment) Video {
	v := Video{
		Rank:             r.Rank,
		VideoID:          r.Item.ID,
		Title:            r.Item.Title,
		Channel:          r.Item.ChannelTitle,
		ChannelCountry:   r.Item.Country,
		Views:            r.Item.Views,
		ViewsInTimeframe: r.ViewsInTimeframe,
		Likes:            r.Item.Likes,
		Comments:         r.Item.Comments,
		TrendingScore:    round(r.Score, 2),
		NormalizedScore:  round(r.Normalized, 2),
		Relevance:        round(r.Relevance, 3),
		Confidence:       round(a.Confidence, 2),
		Reasoning:        a.Reasoning,
		Origin:           a.Origin,
		InTrendingFeed:   r.TrendingFeedMember,
		URL:              r.Item.URL(),
		Thumbnail:        r.Item.Thumbnail,
		AgeHours:         round(r.AgeHours, 1),
		EngagementRate:   round(r.Engagement*100, 2),
		SearchTerm:       r.Item.SearchTerm,
	}
	if !r.Item.PublishedAt.IsZero() {
		t := r.Item.PublishedAt.UTC()
		v.UploadDate = &t
	}
	return v
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
