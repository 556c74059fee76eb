// Momentum - Market Momentum Video Ranking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/momentum

package content

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Item is one video as reported by a content source. Items are values and
// are not mutated once a request has collected them.
type Item struct {
	ID           string        `json:"video_id"`
	Title        string        `json:"title"`
	Description  string        `json:"description"`
	ChannelTitle string        `json:"channel"`
	ChannelID    string        `json:"channel_id"`
	Country      string        `json:"channel_country,omitempty"`
	Views        int64         `json:"views"`
	Likes        int64         `json:"likes"`
	Comments     int64         `json:"comments"`
	PublishedAt  time.Time     `json:"upload_date"`
	Duration     time.Duration `json:"duration"`
	Tags         []string      `json:"tags,omitempty"`
	CategoryID   string        `json:"category_id,omitempty"`
	Thumbnail    string        `json:"thumbnail"`
	TrendingRank int           `json:"trending_rank,omitempty"`
	SearchTerm   string        `json:"search_term,omitempty"`

	// InTrendingFeed marks items from the official feed published within
	// the requested timeframe.
	InTrendingFeed bool `json:"is_in_trending_feed"`
}

// URL is the public watch URL.
func (i *Item) URL() string {
	return "https://youtube.com/watch?v=" + i.ID
}

// AgeHours is the time since publication in hours, never negative.
func (i *Item) AgeHours(now time.Time) float64 {
	h := now.Sub(i.PublishedAt).Hours()
	if h < 0 {
		return 0
	}
	return h
}

// WithDetails returns i updated with the statistics and metadata of d.
// Fields d leaves empty keep their value from i; SearchTerm, TrendingRank
// and InTrendingFeed always stay with i.
func (i Item) WithDetails(d *Item) Item {
	out := i
	if d.Title != "" {
		out.Title = d.Title
	}
	if d.Description != "" {
		out.Description = d.Description
	}
	if d.ChannelTitle != "" {
		out.ChannelTitle = d.ChannelTitle
	}
	if d.ChannelID != "" {
		out.ChannelID = d.ChannelID
	}
	if d.Country != "" {
		out.Country = d.Country
	}
	if !d.PublishedAt.IsZero() {
		out.PublishedAt = d.PublishedAt
	}
	if d.Thumbnail != "" {
		out.Thumbnail = d.Thumbnail
	}
	if len(d.Tags) > 0 {
		out.Tags = d.Tags
	}
	if d.CategoryID != "" {
		out.CategoryID = d.CategoryID
	}
	out.Views = d.Views
	out.Likes = d.Likes
	out.Comments = d.Comments
	out.Duration = d.Duration
	return out
}

// Source is a video search and metadata provider.
type Source interface {
	// Search returns up to maxResults videos matching term in market,
	// published after publishedAfter. Statistics are not populated.
	Search(ctx context.Context, term, market string, maxResults int, publishedAfter time.Time) ([]Item, error)
	// Details returns full metadata and statistics keyed by id. Unknown ids
	// are absent from the result.
	Details(ctx context.Context, ids []string) (map[string]Item, error)
	// Trending returns the market's most-popular chart, TrendingRank set
	// from 1.
	Trending(ctx context.Context, market string, maxResults int) ([]Item, error)
}

// ParseISODuration parses ISO-8601 durations of the form PnDTnHnMnS as
// used by the YouTube Data API ("PT4M13S", "P1DT2H").
func ParseISODuration(s string) (time.Duration, error) {
	if !strings.HasPrefix(s, "P") {
		return 0, fmt.Errorf("invalid ISO-8601 duration %q", s)
	}
	rest := s[1:]
	var total time.Duration
	inTime := false
	num := ""
	for _, r := range rest {
		switch {
		case r == 'T':
			inTime = true
		case r >= '0' && r <= '9':
			num += string(r)
		default:
			if num == "" {
				return 0, fmt.Errorf("invalid ISO-8601 duration %q", s)
			}
			n, err := strconv.Atoi(num)
			if err != nil {
				return 0, fmt.Errorf("invalid ISO-8601 duration %q: %w", s, err)
			}
			num = ""
			unit, ok := durationUnit(r, inTime)
			if !ok {
				return 0, fmt.Errorf("invalid ISO-8601 duration %q", s)
			}
			total += time.Duration(n) * unit
		}
	}
	if num != "" {
		return 0, fmt.Errorf("invalid ISO-8601 duration %q", s)
	}
	return total, nil
}

func durationUnit(r rune, inTime bool) (time.Duration, bool) {
	if inTime {
		switch r {
		case 'H':
			return time.Hour, true
		case 'M':
			return time.Minute, true
		case 'S':
			return time.Second, true
		}
		return 0, false
	}
	switch r {
	case 'D':
		return 24 * time.Hour, true
	case 'W':
		return 7 * 24 * time.Hour, true
	}
	return 0, false
}
