// Momentum - Market Momentum Video Ranking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/momentum

package signal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	gobreaker "github.com/sony/gobreaker/v2"
)

// Kind classifies a failed signal request.
type Kind string

// Failure kinds. They double as the outcome label of signal metrics.
const (
	KindCircuitOpen Kind = "circuit_open"
	KindRateLimited Kind = "rate_limited"
	KindBlocked     Kind = "blocked"
	KindNetwork     Kind = "network"
	KindUnknown     Kind = "unknown"
)

// Error is returned by Client for every failed fetch.
type Error struct {
	Kind   Kind
	Op     string
	Status int
	Err    error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("signal %s: %s (status %d): %v", e.Op, e.Kind, e.Status, e.Err)
	}
	return fmt.Sprintf("signal %s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// HTTPError is a non-2xx response from the trend endpoint.
type HTTPError struct {
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.Status, e.Body)
}

// Unavailable reports whether err means "no signal for this request".
// Callers continue without a cross-platform boost.
func Unavailable(err error) bool {
	var serr *Error
	return errors.As(err, &serr)
}

// KindOf returns the Kind of a signal error, or "" for other errors.
func KindOf(err error) Kind {
	var serr *Error
	if errors.As(err, &serr) {
		return serr.Kind
	}
	return ""
}

// Classify maps a transport or breaker error to a Kind.
func Classify(err error) Kind {
	if err == nil {
		return ""
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return KindCircuitOpen
	}

	var herr *HTTPError
	if errors.As(err, &herr) {
		switch herr.Status {
		case http.StatusTooManyRequests:
			return KindRateLimited
		case http.StatusForbidden:
			return KindBlocked
		}
		if herr.Status >= 500 {
			return KindNetwork
		}
		return KindUnknown
	}

	var nerr net.Error
	if errors.As(err, &nerr) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, io.EOF) {
		return KindNetwork
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "429") || strings.Contains(msg, "too many requests"):
		return KindRateLimited
	case strings.Contains(msg, "403") || strings.Contains(msg, "forbidden") || strings.Contains(msg, "blocked"):
		return KindBlocked
	case strings.Contains(msg, "network") || strings.Contains(msg, "connection") || strings.Contains(msg, "timeout"):
		return KindNetwork
	default:
		return KindUnknown
	}
}

func statusOf(err error) int {
	var herr *HTTPError
	if errors.As(err, &herr) {
		return herr.Status
	}
	return 0
}
