// Momentum - Market Momentum Video Ranking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/momentum

package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// Key prefixes. DeletePattern callers build globs from these.
const (
	PrefixResponse  = "trending"
	PrefixSignal    = "trends"
	PrefixTerms     = "terms"
	PrefixRelevance = "llm"
	PrefixFeed      = "feed"
)

// ResponseKey identifies a finished ranking response.
func ResponseKey(market, query, timeframe string) string {
	return fmt.Sprintf("%s:%s:%s:%s", PrefixResponse, strings.ToUpper(market), strings.ToLower(strings.TrimSpace(query)), timeframe)
}

// SignalKey identifies a trend signal for one query.
func SignalKey(market, query, timeframe string) string {
	return fmt.Sprintf("%s:%s:%s:%s", PrefixSignal, strings.ToUpper(market), strings.ToLower(strings.TrimSpace(query)), timeframe)
}

// TermsKey identifies an expanded search-term list.
func TermsKey(market, query, timeframe string) string {
	return fmt.Sprintf("%s:%s:%s:%s", PrefixTerms, strings.ToUpper(market), strings.ToLower(strings.TrimSpace(query)), timeframe)
}

// FeedKey identifies a market's cached trending feed of size n.
func FeedKey(market string, n int) string {
	return fmt.Sprintf("%s:%s:%d", PrefixFeed, strings.ToUpper(market), n)
}

// Fingerprint hashes a set of item IDs for a market. Input order does not
// matter; the result is the first 16 hex characters of the digest.
func Fingerprint(market string, ids []string) string {
	sorted := make([]string, len(ids))
	copy(sorted, ids)
	sort.Strings(sorted)

	sum := sha256.Sum256([]byte(strings.Join(sorted, ",") + ":" + strings.ToUpper(market)))
	return hex.EncodeToString(sum[:])[:16]
}

// RelevanceKey identifies a scored batch.
func RelevanceKey(market string, ids []string) string {
	return fmt.Sprintf("%s:%s:%s", PrefixRelevance, strings.ToUpper(market), Fingerprint(market, ids))
}

// MarketPattern returns a glob matching every key under prefix for market.
// An empty market matches all markets.
func MarketPattern(prefix, market string) string {
	if market == "" {
		return prefix + ":*"
	}
	return fmt.Sprintf("%s:%s:*", prefix, EscapeGlob(strings.ToUpper(market)))
}
