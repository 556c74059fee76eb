// Momentum - Market Momentum Video Ranking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/momentum

package api

import (
	"net/http"
	"strconv"
	"strings"
)

// SearchTermsRequest holds the validated parameters of /search-terms.
type SearchTermsRequest struct {
	Query     string `json:"query" validate:"required,notblank,min=2,max=100"`
	Market    string `json:"country" validate:"required,market"`
	Timeframe string `json:"timeframe" validate:"required,timeframe"`
}

// SignalRequest holds the validated parameters of /signal.
type SignalRequest struct {
	Query     string `json:"query" validate:"required,notblank,min=2,max=100"`
	Market    string `json:"country" validate:"required,market"`
	Timeframe string `json:"timeframe" validate:"required,timeframe"`
}

// FeedRequest holds the validated parameters of /feeds/{country}.
type FeedRequest struct {
	Market string `json:"country" validate:"required,market"`
	Limit  int    `json:"limit" validate:"min=1,max=50"`
}

// marketParam reads country, accepting market as an alias.
func marketParam(r *http.Request) string {
	q := r.URL.Query()
	v := q.Get("country")
	if v == "" {
		v = q.Get("market")
	}
	return strings.ToUpper(strings.TrimSpace(v))
}

// queryParam reads query, accepting q as an alias.
func queryParam(r *http.Request) string {
	q := r.URL.Query()
	v := q.Get("query")
	if v == "" {
		v = q.Get("q")
	}
	return strings.TrimSpace(v)
}

// getIntParam returns the integer parameter name, def when absent, and ok
// false when present but not an integer.
func getIntParam(r *http.Request, name string, def int) (int, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}
