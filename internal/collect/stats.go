// Momentum - Market Momentum Video Ranking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/momentum

package collect

import "time"

// Stats describes one collection run.
type Stats struct {
	EnhancedTerms []string `json:"enhanced_terms"`
	CategoryTerms []string `json:"category_terms"`
	GenericTerms  []string `json:"generic_terms"`

	Searches        int  `json:"searches"`
	FailedSearches  int  `json:"failed_searches"`
	SearchResults   int  `json:"search_results"`
	TrendingFetched int  `json:"trending_fetched"`
	TrendingMatches int  `json:"trending_matches"`
	FeedFailed      bool `json:"feed_failed,omitempty"`

	Duplicates      int `json:"duplicates_removed"`
	Capped          int `json:"capped"`
	Unique          int `json:"unique"`
	DetailsFailures int `json:"details_failures"`
	Unavailable     int `json:"unavailable"`
	Final           int `json:"final"`

	Duration time.Duration `json:"duration_ns"`
}

// TermsUsed returns every search term in tier order.
func (s *Stats) TermsUsed() []string {
	out := make([]string, 0, len(s.EnhancedTerms)+len(s.CategoryTerms)+len(s.GenericTerms))
	out = append(out, s.EnhancedTerms...)
	out = append(out, s.CategoryTerms...)
	return append(out, s.GenericTerms...)
}
