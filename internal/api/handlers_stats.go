// Momentum - Market Momentum Video Ranking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/momentum

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/momentum/internal/logging"
	"github.com/tomtom215/momentum/internal/relevance"
	"github.com/tomtom215/momentum/internal/signal"
	"github.com/tomtom215/momentum/internal/validation"
)

// Budget reports scorer spend against the monthly budget.
//
//	GET /api/v1/budget
func (h *Handler) Budget(w http.ResponseWriter, r *http.Request) {
	if h.budget == nil {
		respondError(w, r, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "Scorer budget is not configured", nil)
		return
	}
	respondSuccess(w, r, h.budget.Snapshot(), Metadata{})
}

// LLMCosts aggregates recorded scorer usage by day, market and cache-hit
// value. days is clamped to [1, 30].
//
//	GET /api/v1/analytics/llm-costs?days=7
func (h *Handler) LLMCosts(w http.ResponseWriter, r *http.Request) {
	if h.usage == nil {
		respondError(w, r, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "Usage database is not configured", nil)
		return
	}
	days, ok := getIntParam(r, "days", relevance.DefaultUsageDays)
	if !ok {
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "days must be an integer", nil)
		return
	}

	start := time.Now()
	report, err := h.usage.Usage(r.Context(), relevance.ClampUsageDays(days), start)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, ErrCodeInternal, "Usage query failed", err)
		return
	}
	respondSuccess(w, r, report, Metadata{QueryTimeMS: time.Since(start).Milliseconds()})
}

// CacheStats reports lookups, hits and misses of the tiered cache.
//
//	GET /api/v1/cache/stats
func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		respondError(w, r, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "Cache is not configured", nil)
		return
	}
	respondSuccess(w, r, h.cache.Stats(), Metadata{})
}

// Signal returns the raw trend signal for a query.
//
//	GET /api/v1/signal?query=gaming&country=DE&timeframe=7d
func (h *Handler) Signal(w http.ResponseWriter, r *http.Request) {
	tf, ok := timeframeParam(w, r)
	if !ok {
		return
	}
	req := SignalRequest{Query: queryParam(r), Market: marketParam(r), Timeframe: tf.String()}
	if verr := validation.ValidateStruct(&req); verr != nil {
		respondValidation(w, r, verr.ToAPIError())
		return
	}
	if _, ok := h.profile(w, r, req.Market); !ok {
		return
	}

	start := time.Now()
	entry, err := h.signals.FetchSignal(r.Context(), req.Query, req.Market, tf)
	if err != nil {
		status := http.StatusBadGateway
		if kind := signal.KindOf(err); kind == signal.KindCircuitOpen || kind == signal.KindRateLimited {
			status = http.StatusServiceUnavailable
		}
		respondJSON(w, status, &APIResponse{
			Status:   "error",
			Metadata: Metadata{Timestamp: time.Now().UTC(), RequestID: logging.RequestIDFromContext(r.Context())},
			Error: &APIError{
				Code:    ErrCodeUpstream,
				Message: "Trend signal unavailable",
				Details: map[string]interface{}{"kind": string(signal.KindOf(err))},
			},
		})
		return
	}

	respondSuccess(w, r, entry, Metadata{
		QueryTimeMS: time.Since(start).Milliseconds(),
		Cached:      entry.CacheTier != "",
	})
}

// SignalStats reports breaker and success-rate state of the signal client.
//
//	GET /api/v1/signal/stats
func (h *Handler) SignalStats(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, r, map[string]interface{}{
		"healthy": h.signals.Healthy(),
		"stats":   h.signals.Stats(),
	}, Metadata{})
}

// Performance returns per-endpoint latency percentiles.
//
//	GET /api/v1/stats/performance
func (h *Handler) Performance(w http.ResponseWriter, r *http.Request) {
	if h.perfMon == nil {
		respondError(w, r, http.StatusNotFound, ErrCodeNotFound, "Performance monitoring is disabled", nil)
		return
	}
	respondSuccess(w, r, map[string]interface{}{
		"endpoints": h.perfMon.GetStats(),
		"recent":    h.perfMon.GetRecentMetrics(20),
	}, Metadata{})
}
