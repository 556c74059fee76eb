// Momentum - Market Momentum Video Ranking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/momentum

package cache

import (
	"strings"
	"testing"
)

func TestFingerprint(t *testing.T) {
	t.Parallel()

	a := Fingerprint("DE", []string{"v1", "v2", "v3"})
	b := Fingerprint("DE", []string{"v3", "v1", "v2"})
	if a != b {
		t.Errorf("fingerprint depends on order: %s vs %s", a, b)
	}
	if len(a) != 16 {
		t.Errorf("fingerprint length = %d, want 16", len(a))
	}
	if a == Fingerprint("US", []string{"v1", "v2", "v3"}) {
		t.Error("fingerprint must differ across markets")
	}
	if a == Fingerprint("DE", []string{"v1", "v2"}) {
		t.Error("fingerprint must differ across id sets")
	}
}

func TestFingerprint_DoesNotMutateInput(t *testing.T) {
	t.Parallel()
	ids := []string{"z", "a"}
	Fingerprint("DE", ids)
	if ids[0] != "z" {
		t.Errorf("input reordered: %v", ids)
	}
}

func TestKeys(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"response", ResponseKey("de", " Bundesliga ", "24h"), "trending:DE:bundesliga:24h"},
		{"signal", SignalKey("US", "NFL", "7d"), "trends:US:nfl:7d"},
		{"terms", TermsKey("fr", "Ligue 1", "48h"), "terms:FR:ligue 1:48h"},
		{"feed", FeedKey("jp", 50), "feed:JP:50"},
		{"market pattern", MarketPattern(PrefixResponse, "jp"), "trending:JP:*"},
		{"all markets", MarketPattern(PrefixSignal, ""), "trends:*"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}

	if k := RelevanceKey("de", []string{"a"}); !strings.HasPrefix(k, "llm:DE:") {
		t.Errorf("RelevanceKey = %q", k)
	}
}
