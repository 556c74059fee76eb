// Momentum - Market Momentum Video Ranking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/momentum

package middleware

import (
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

func TestRequestID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		incoming string
		keep     bool
	}{
		{"generates when absent", "", false},
		{"keeps upstream id", "edge-4711", true},
		{"replaces id with spaces", "bad id", false},
		{"replaces oversized id", strings.Repeat("a", 200), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var captured string
			handler := RequestID(func(w http.ResponseWriter, r *http.Request) {
				captured = GetRequestID(r.Context())
			})

			req := httptest.NewRequest(http.MethodGet, "/api/v1/trending", nil)
			if tt.incoming != "" {
				req.Header.Set(RequestIDHeader, tt.incoming)
			}
			rec := httptest.NewRecorder()
			handler(rec, req)

			got := rec.Header().Get(RequestIDHeader)
			if got != captured {
				t.Errorf("header %q != context %q", got, captured)
			}
			if tt.keep {
				if got != tt.incoming {
					t.Errorf("request id = %q, want %q", got, tt.incoming)
				}
				return
			}
			if _, err := uuid.Parse(got); err != nil {
				t.Errorf("generated id %q is not a UUID: %v", got, err)
			}
		})
	}
}

func TestPrometheusMetrics_StatusPassthrough(t *testing.T) {
	t.Parallel()

	for _, status := range []int{http.StatusOK, http.StatusBadRequest, http.StatusInternalServerError} {
		handler := PrometheusMetrics(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		})
		rec := httptest.NewRecorder()
		handler(rec, httptest.NewRequest(http.MethodGet, "/api/v1/trending", nil))
		if rec.Code != status {
			t.Errorf("status = %d, want %d", rec.Code, status)
		}
	}
}

func TestRoutePattern(t *testing.T) {
	t.Parallel()

	var pattern string
	r := chi.NewRouter()
	r.Get("/api/v1/feeds/{country}", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		pattern = RoutePattern(req)
	})
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/feeds/DE", nil))

	if pattern != "/api/v1/feeds/{country}" {
		t.Errorf("RoutePattern() = %q, want the chi pattern", pattern)
	}
	if got := RoutePattern(httptest.NewRequest(http.MethodGet, "/plain", nil)); got != "/plain" {
		t.Errorf("RoutePattern() outside chi = %q, want /plain", got)
	}
}

func TestCompression(t *testing.T) {
	t.Parallel()
	body := strings.Repeat(`{"video_id":"abc"}`, 100)
	handler := Compression(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, body)
	})

	t.Run("gzip accepted", func(t *testing.T) {
		t.Parallel()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/trending", nil)
		req.Header.Set("Accept-Encoding", "gzip, deflate")
		rec := httptest.NewRecorder()
		handler(rec, req)

		if rec.Header().Get("Content-Encoding") != "gzip" {
			t.Fatal("Content-Encoding not gzip")
		}
		zr, err := gzip.NewReader(rec.Body)
		if err != nil {
			t.Fatalf("gzip.NewReader() error = %v", err)
		}
		plain, err := io.ReadAll(zr)
		if err != nil {
			t.Fatalf("read gzip body: %v", err)
		}
		if string(plain) != body {
			t.Error("decompressed body differs")
		}
	})

	t.Run("identity", func(t *testing.T) {
		t.Parallel()
		rec := httptest.NewRecorder()
		handler(rec, httptest.NewRequest(http.MethodGet, "/api/v1/trending", nil))

		if rec.Header().Get("Content-Encoding") != "" {
			t.Error("Content-Encoding set without Accept-Encoding")
		}
		if rec.Body.String() != body {
			t.Error("body altered")
		}
	})
}

func TestCompression_SkipsSmallAndNonJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		contentType string
		body        string
	}{
		{"small json", "application/json", `{"status":"healthy"}`},
		{"large text", "text/plain; charset=utf-8", strings.Repeat("momentum ", 300)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			handler := Compression(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", tt.contentType)
				_, _ = io.WriteString(w, tt.body)
			})
			req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
			req.Header.Set("Accept-Encoding", "gzip")
			rec := httptest.NewRecorder()
			handler(rec, req)

			if got := rec.Header().Get("Content-Encoding"); got != "" {
				t.Errorf("Content-Encoding = %q, want none", got)
			}
			if got := rec.Header().Get("Vary"); got != "Accept-Encoding" {
				t.Errorf("Vary = %q, want Accept-Encoding", got)
			}
			if rec.Body.String() != tt.body {
				t.Error("body altered")
			}
		})
	}
}

func TestPerformanceMonitor_Window(t *testing.T) {
	t.Parallel()
	pm := NewPerformanceMonitor(3, time.Second)

	for i := 1; i <= 5; i++ {
		pm.RecordRequest(&RequestMetrics{Route: "/api/v1/trending", Method: http.MethodGet, DurationMS: int64(i * 10), StatusCode: http.StatusOK})
	}

	recent := pm.GetRecentMetrics(10)
	if len(recent) != 3 {
		t.Fatalf("len(recent) = %d, want window size 3", len(recent))
	}
	if recent[0].DurationMS != 30 || recent[2].DurationMS != 50 {
		t.Errorf("window = %d..%d ms, want 30..50", recent[0].DurationMS, recent[2].DurationMS)
	}
	if got := pm.GetRecentMetrics(-1); len(got) != 0 {
		t.Errorf("GetRecentMetrics(-1) = %d samples, want 0", len(got))
	}
}

func TestPerformanceMonitor_Stats(t *testing.T) {
	t.Parallel()
	pm := NewPerformanceMonitor(100, time.Second)

	for i := 1; i <= 10; i++ {
		pm.RecordRequest(&RequestMetrics{Route: "/api/v1/trending", Method: http.MethodGet, DurationMS: int64(i * 100), StatusCode: http.StatusOK})
	}
	pm.RecordRequest(&RequestMetrics{Route: "/api/v1/budget", Method: http.MethodGet, DurationMS: 5, StatusCode: http.StatusInternalServerError})

	stats := pm.GetStats()
	if len(stats) != 2 {
		t.Fatalf("len(stats) = %d, want 2", len(stats))
	}
	top := stats[0]
	if top.Endpoint != "GET /api/v1/trending" || top.RequestCount != 10 {
		t.Errorf("top = %+v, want trending with 10 requests", top)
	}
	if top.AvgDuration != 550 || top.P50Duration != 500 || top.MaxDuration != 1000 {
		t.Errorf("durations = avg %v p50 %d max %d", top.AvgDuration, top.P50Duration, top.MaxDuration)
	}
	if stats[1].ErrorCount != 1 {
		t.Errorf("budget ErrorCount = %d, want 1", stats[1].ErrorCount)
	}
}

func TestPerformanceMonitor_Middleware(t *testing.T) {
	t.Parallel()
	pm := NewPerformanceMonitor(10, time.Hour)
	handler := pm.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/v1/cache/invalidate", nil))

	recent := pm.GetRecentMetrics(1)
	if len(recent) != 1 {
		t.Fatalf("recorded %d samples, want 1", len(recent))
	}
	if recent[0].StatusCode != http.StatusTeapot || recent[0].Method != http.MethodPost {
		t.Errorf("sample = %+v", recent[0])
	}
}
