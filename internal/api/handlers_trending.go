// Momentum - Market Momentum Video Ranking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/momentum

package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/momentum/internal/content"
	"github.com/tomtom215/momentum/internal/logging"
	"github.com/tomtom215/momentum/internal/market"
	"github.com/tomtom215/momentum/internal/momentum"
	"github.com/tomtom215/momentum/internal/validation"
)

const defaultFeedLimit = 50

// Trending ranks videos for a query in one market.
//
//	GET /api/v1/trending?query=gaming&country=DE&timeframe=48h&limit=10
func (h *Handler) Trending(w http.ResponseWriter, r *http.Request) {
	limit, ok := getIntParam(r, "limit", 0)
	if !ok {
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "limit must be an integer", nil)
		return
	}

	resp, err := h.ranker.Rank(r.Context(), momentum.Request{
		Query:     queryParam(r),
		Market:    marketParam(r),
		Timeframe: r.URL.Query().Get("timeframe"),
		Limit:     limit,
	})
	if err != nil {
		h.rankError(w, r, err)
		return
	}

	respondSuccess(w, r, resp, Metadata{
		QueryTimeMS: resp.Metadata.ProcessingTimeMs,
		Cached:      resp.Metadata.CacheHit,
	})
}

func (h *Handler) rankError(w http.ResponseWriter, r *http.Request, err error) {
	var rerr *momentum.RequestError
	switch {
	case errors.As(err, &rerr):
		respondValidation(w, r, rerr.APIError())
	case errors.Is(err, context.DeadlineExceeded):
		respondError(w, r, http.StatusGatewayTimeout, ErrCodeTimeout, "Ranking timed out", err)
	case errors.Is(err, context.Canceled):
		logging.Ctx(r.Context()).Debug().Msg("Client went away before ranking finished")
	default:
		respondError(w, r, http.StatusInternalServerError, ErrCodeInternal, "Ranking failed", err)
	}
}

// SearchTerms lists the search terms collection would use for a query.
//
//	GET /api/v1/search-terms?query=gaming&country=DE
func (h *Handler) SearchTerms(w http.ResponseWriter, r *http.Request) {
	tf, ok := timeframeParam(w, r)
	if !ok {
		return
	}
	req := SearchTermsRequest{Query: queryParam(r), Market: marketParam(r), Timeframe: tf.String()}
	if verr := validation.ValidateStruct(&req); verr != nil {
		respondValidation(w, r, verr.ToAPIError())
		return
	}
	profile, ok := h.profile(w, r, req.Market)
	if !ok {
		return
	}

	enhanced := h.signals.EnhancedTerms(r.Context(), req.Query, profile.Code, tf)
	variants := profile.LocalVariants(req.Query)

	respondSuccess(w, r, map[string]interface{}{
		"original_query": req.Query,
		"country":        profile.Code,
		"country_name":   profile.CountryName,
		"timeframe":      tf.String(),
		"enhanced_terms": enhanced,
		"local_variants": variants,
		"generic_terms":  profile.GenericTerms,
		"total_terms":    len(enhanced) + len(variants) + len(profile.GenericTerms),
	}, Metadata{})
}

// Feed returns a market's official trending chart.
//
//	GET /api/v1/feeds/{country}?limit=50
func (h *Handler) Feed(w http.ResponseWriter, r *http.Request) {
	if h.feed == nil {
		respondError(w, r, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "Trending feed is not configured", nil)
		return
	}
	limit, ok := getIntParam(r, "limit", defaultFeedLimit)
	if !ok {
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "limit must be an integer", nil)
		return
	}
	req := FeedRequest{Market: strings.ToUpper(chi.URLParam(r, "country")), Limit: limit}
	if verr := validation.ValidateStruct(&req); verr != nil {
		respondValidation(w, r, verr.ToAPIError())
		return
	}
	profile, ok := h.profile(w, r, req.Market)
	if !ok {
		return
	}

	start := time.Now()
	items, err := h.feed.Trending(r.Context(), profile.Code, req.Limit)
	if err != nil {
		respondError(w, r, http.StatusBadGateway, ErrCodeUpstream, "Trending feed unavailable", err)
		return
	}
	if items == nil {
		items = []content.Item{}
	}

	respondSuccess(w, r, map[string]interface{}{
		"country":         profile.Code,
		"country_name":    profile.CountryName,
		"total_videos":    len(items),
		"trending_videos": items,
	}, Metadata{QueryTimeMS: time.Since(start).Milliseconds()})
}

// Markets lists the enabled markets.
//
//	GET /api/v1/markets
func (h *Handler) Markets(w http.ResponseWriter, r *http.Request) {
	codes := h.ranker.Markets()
	out := make([]map[string]interface{}, 0, len(codes))
	for _, code := range codes {
		p, err := market.Lookup(code)
		if err != nil {
			continue
		}
		out = append(out, map[string]interface{}{
			"code":          p.Code,
			"country_name":  p.CountryName,
			"timezone":      p.Timezone,
			"prime_time":    fmt.Sprintf("%02d:00-%02d:00", p.PrimeTime[0], p.PrimeTime[1]),
			"is_prime_time": p.IsPrimeTime(time.Now()),
		})
	}
	respondSuccess(w, r, out, Metadata{})
}

// CacheInvalidate drops cached ranking responses.
//
//	POST /api/v1/cache/invalidate?country=DE&query=gaming
func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	mkt := marketParam(r)
	query := queryParam(r)
	if query != "" && mkt == "" {
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "query requires country", nil)
		return
	}
	if mkt != "" {
		if _, ok := h.profile(w, r, mkt); !ok {
			return
		}
	}

	n, err := h.ranker.Invalidate(r.Context(), mkt, query)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, ErrCodeInternal, "Cache invalidation failed", err)
		return
	}

	var message string
	switch {
	case query != "":
		message = fmt.Sprintf("Invalidated cache for query %q in %s", query, mkt)
	case mkt != "":
		message = "Invalidated all cache entries for " + mkt
	default:
		message = "Invalidated all ranking cache entries"
	}
	logging.Ctx(r.Context()).Info().Str("market", mkt).Int("deleted", n).Msg("Response cache invalidated")

	respondSuccess(w, r, map[string]interface{}{
		"message":         message,
		"entries_deleted": n,
	}, Metadata{})
}

// profile resolves an enabled market or writes a 400.
func (h *Handler) profile(w http.ResponseWriter, r *http.Request, code string) (*market.Profile, bool) {
	p, err := market.Lookup(code)
	if err != nil || !slices.Contains(h.ranker.Markets(), p.Code) {
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest,
			fmt.Sprintf("Unsupported country code %q, supported: %s", code, strings.Join(h.ranker.Markets(), ", ")), nil)
		return nil, false
	}
	return p, true
}

// timeframeParam parses timeframe, defaulting to 48h, or writes a 400.
func timeframeParam(w http.ResponseWriter, r *http.Request) (market.Timeframe, bool) {
	raw := r.URL.Query().Get("timeframe")
	if strings.TrimSpace(raw) == "" {
		return momentum.DefaultTimeframe, true
	}
	tf, err := market.ParseTimeframe(raw)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, err.Error(), nil)
		return "", false
	}
	return tf, true
}
