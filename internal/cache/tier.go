// Momentum - Market Momentum Video Ranking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/momentum

package cache

import (
	"context"
	"errors"
	"strings"
	"time"
)

// ErrMiss is returned by Tier.Get when the key is absent or expired.
var ErrMiss = errors.New("cache miss")

// Tier is one storage level of the tiered cache. Implementations store whole
// serialized values per key and never return an expired value.
type Tier interface {
	// Name identifies the tier in logs and metrics ("fast", "memory", "durable").
	Name() string
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// DeletePattern removes keys matching a glob with * and ? wildcards.
	DeletePattern(ctx context.Context, pattern string) (int, error)
}

// Tier names used as the cache_type metric label.
const (
	TierFast    = "fast"
	TierMemory  = "memory"
	TierDurable = "durable"
)

// MatchGlob reports whether key matches pattern, where * matches any run of
// characters (including none), ? matches exactly one and a backslash makes
// the next character literal. Unlike path.Match, '/' is an ordinary
// character, as in Redis key patterns.
func MatchGlob(pattern, key string) bool {
	p, k := []rune(pattern), []rune(key)
	pi, ki := 0, 0
	starP, starK := -1, 0
	for ki < len(k) {
		if pi < len(p) {
			switch c := p[pi]; {
			case c == '*':
				starP, starK = pi, ki
				pi++
				continue
			case c == '\\' && pi+1 < len(p):
				if p[pi+1] == k[ki] {
					pi += 2
					ki++
					continue
				}
			case c == '?' || c == k[ki]:
				pi++
				ki++
				continue
			}
		}
		if starP < 0 {
			return false
		}
		pi = starP + 1
		starK++
		ki = starK
	}
	for pi < len(p) && p[pi] == '*' {
		pi++
	}
	return pi == len(p)
}

// EscapeGlob quotes the pattern metacharacters in s so a pattern built from
// it only matches s literally.
func EscapeGlob(s string) string {
	if !strings.ContainsAny(s, `*?[]\`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 4)
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// literalPrefix returns the unescaped part of pattern before its first
// wildcard.
func literalPrefix(pattern string) string {
	var b strings.Builder
	escaped := false
	for _, r := range pattern {
		switch {
		case escaped:
			escaped = false
		case r == '\\':
			escaped = true
			continue
		case r == '*' || r == '?':
			return b.String()
		}
		b.WriteRune(r)
	}
	return b.String()
}
