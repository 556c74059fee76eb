// Momentum - Market Momentum Video Ranking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/momentum

package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/tomtom215/momentum/internal/logging"
)

const readinessTimeout = 3 * time.Second

// CheckResult is the outcome of one readiness check.
type CheckResult struct {
	Name     string `json:"name"`
	OK       bool   `json:"ok"`
	Optional bool   `json:"optional,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Health reports overall status, version and uptime. It is always 200;
// status is "degraded" when a required check fails.
//
//	GET /api/v1/health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	results, ready := h.runChecks(r.Context())

	status := "healthy"
	if !ready {
		status = "degraded"
	}

	respondSuccess(w, r, map[string]interface{}{
		"status":         status,
		"version":        h.version,
		"uptime":         time.Since(h.startTime).Seconds(),
		"markets":        h.ranker.Markets(),
		"signal_healthy": h.signals.Healthy(),
		"checks":         results,
	}, Metadata{})
}

// HealthLive answers liveness checks regardless of dependencies.
//
//	GET /api/v1/health/live
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, r, map[string]interface{}{
		"alive":  true,
		"uptime": time.Since(h.startTime).Seconds(),
	}, Metadata{})
}

// HealthReady answers readiness checks: 503 until every required check
// passes.
//
//	GET /api/v1/health/ready
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	results, ready := h.runChecks(r.Context())

	statusCode := http.StatusOK
	status := "ready"
	if !ready {
		statusCode = http.StatusServiceUnavailable
		status = "not_ready"
	}

	respondJSON(w, statusCode, &APIResponse{
		Status: status,
		Data: map[string]interface{}{
			"ready_to_serve": ready,
			"checks":         results,
			"uptime":         time.Since(h.startTime).Seconds(),
		},
		Metadata: Metadata{
			Timestamp: time.Now().UTC(),
			RequestID: logging.RequestIDFromContext(r.Context()),
		},
	})
}

// runChecks checks every dependency concurrently under readinessTimeout.
func (h *Handler) runChecks(ctx context.Context) ([]CheckResult, bool) {
	ctx, cancel := context.WithTimeout(ctx, readinessTimeout)
	defer cancel()

	results := make([]CheckResult, len(h.checks))
	var wg sync.WaitGroup
	for i, c := range h.checks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res := CheckResult{Name: c.Name, OK: true, Optional: c.Optional}
			if err := c.Check(ctx); err != nil {
				res.OK = false
				res.Error = err.Error()
			}
			results[i] = res
		}()
	}
	wg.Wait()

	ready := true
	for _, res := range results {
		if !res.OK && !res.Optional {
			ready = false
			logging.Ctx(ctx).Warn().Str("check", res.Name).Str("error", res.Error).Msg("Readiness check failed")
		}
	}
	return results, ready
}
