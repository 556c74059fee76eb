// Momentum - Market Momentum Video Ranking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/momentum

package testinfra

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
)

// Capture is one request received by an Upstream.
type Capture struct {
	Method string
	Path   string
	Query  string
	Header http.Header
	Body   []byte
}

// Upstream is an httptest server standing in for a third-party API. Routes
// are chi patterns; every request is captured before its handler runs.
//
//	up := testinfra.NewUpstream(t)
//	up.Handle(http.MethodGet, "/search", func(w http.ResponseWriter, r *http.Request) {
//	    w.Write([]byte(`{"items":[]}`))
//	})
//	cfg.BaseURL = up.URL()
type Upstream struct {
	server *httptest.Server
	router chi.Router

	mu       sync.Mutex
	captures []Capture
}

// NewUpstream starts an Upstream closed automatically at test end.
// Unrouted requests get 404.
func NewUpstream(t testing.TB) *Upstream {
	t.Helper()

	u := &Upstream{router: chi.NewRouter()}
	u.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body []byte
		if r.Body != nil {
			body, _ = io.ReadAll(r.Body)
			r.Body.Close()
		}
		u.mu.Lock()
		u.captures = append(u.captures, Capture{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.RawQuery,
			Header: r.Header.Clone(),
			Body:   body,
		})
		u.mu.Unlock()

		r.Body = io.NopCloser(bytes.NewReader(body))
		u.router.ServeHTTP(w, r)
	}))
	t.Cleanup(u.server.Close)
	return u
}

// Handle registers h for method and chi pattern.
func (u *Upstream) Handle(method, pattern string, h http.HandlerFunc) {
	u.router.MethodFunc(method, pattern, h)
}

// JSON registers a route that always answers status with body.
func (u *Upstream) JSON(method, pattern string, status int, body string) {
	u.Handle(method, pattern, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		io.WriteString(w, body) //nolint:errcheck
	})
}

// URL returns the base URL of the server.
func (u *Upstream) URL() string {
	return u.server.URL
}

// Client returns a client that talks to the server.
func (u *Upstream) Client() *http.Client {
	return u.server.Client()
}

// Captures returns a copy of every request received so far.
func (u *Upstream) Captures() []Capture {
	u.mu.Lock()
	defer u.mu.Unlock()
	out := make([]Capture, len(u.captures))
	copy(out, u.captures)
	return out
}

// Count returns how many requests hit path.
func (u *Upstream) Count(path string) int {
	u.mu.Lock()
	defer u.mu.Unlock()
	n := 0
	for _, c := range u.captures {
		if c.Path == path {
			n++
		}
	}
	return n
}

// WaitFor polls until at least n requests were captured or timeout passes.
func (u *Upstream) WaitFor(n int, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		u.mu.Lock()
		got := len(u.captures)
		u.mu.Unlock()
		if got >= n {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}
