// Momentum - Market Momentum Video Ranking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/momentum

package relevance

import (
	"testing"
	"time"
)

var parseNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func TestParseResponse_Fields(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		text       string
		wantScore  float64
		wantConf   float64
		wantOrigin string
		wantReason string
	}{
		{
			name:       "well formed",
			text:       "VIDEO_ID: a1\nSCORE: 0.85\nREASONING: German creator\nCONFIDENCE: 0.9\nORIGIN: DE\n",
			wantScore:  0.85,
			wantConf:   0.9,
			wantOrigin: "DE",
			wantReason: "German creator",
		},
		{
			name:       "score above range is clamped",
			text:       "VIDEO_ID: a1\nSCORE: 1.7\nCONFIDENCE: 3\nORIGIN: us",
			wantScore:  1,
			wantConf:   1,
			wantOrigin: "US",
			wantReason: ReasonNotProvided,
		},
		{
			name:       "negative values are clamped",
			text:       "VIDEO_ID: a1\nSCORE: -0.4\nCONFIDENCE: -1",
			wantScore:  0,
			wantConf:   0,
			wantOrigin: OriginUnknown,
			wantReason: ReasonNotProvided,
		},
		{
			name:       "unparseable values fall back",
			text:       "VIDEO_ID: a1\nSCORE: high\nCONFIDENCE: sure\nORIGIN: Germany",
			wantScore:  0,
			wantConf:   0.5,
			wantOrigin: OriginUnknown,
			wantReason: ReasonNotProvided,
		},
		{
			name:       "NaN and Inf fall back",
			text:       "VIDEO_ID: a1\nSCORE: NaN\nCONFIDENCE: +Inf",
			wantScore:  0,
			wantConf:   0.5,
			wantOrigin: OriginUnknown,
			wantReason: ReasonNotProvided,
		},
		{
			name:       "markdown emphasis",
			text:       "**VIDEO_ID:** a1\n**SCORE:** 0.6\n- **REASONING:** French audio\n**ORIGIN:** **FR**",
			wantScore:  0.6,
			wantConf:   0.5,
			wantOrigin: "FR",
			wantReason: "French audio",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := ParseResponse(tt.text, []string{"a1"}, "DE", "m", parseNow)
			a, ok := got["a1"]
			if !ok {
				t.Fatal("missing assessment for a1")
			}
			if a.Score != tt.wantScore {
				t.Errorf("Score = %v, want %v", a.Score, tt.wantScore)
			}
			if a.Confidence != tt.wantConf {
				t.Errorf("Confidence = %v, want %v", a.Confidence, tt.wantConf)
			}
			if a.Origin != tt.wantOrigin {
				t.Errorf("Origin = %q, want %q", a.Origin, tt.wantOrigin)
			}
			if a.Reasoning != tt.wantReason {
				t.Errorf("Reasoning = %q, want %q", a.Reasoning, tt.wantReason)
			}
			if a.Defaulted {
				t.Error("parsed assessment marked as defaulted")
			}
		})
	}
}

func TestParseResponse_IDSet(t *testing.T) {
	t.Parallel()

	text := `Here is the analysis.

VIDEO_ID: a1
SCORE: 0.9
CONFIDENCE: 0.8

VIDEO_ID: stranger
SCORE: 1.0

VIDEO_ID: a1
SCORE: 0.1
`
	got := ParseResponse(text, []string{"a1", "b2"}, "DE", "gemini", parseNow)

	if len(got) != 2 {
		t.Fatalf("len = %d, want 2 (one per requested id)", len(got))
	}
	if _, ok := got["stranger"]; ok {
		t.Error("id outside the request was kept")
	}
	if got["a1"].Score != 0.9 {
		t.Errorf("a1 score = %v, want first block's 0.9", got["a1"].Score)
	}

	b := got["b2"]
	if !b.Defaulted || b.Score != 0 || b.Confidence != 0.1 || b.Reasoning != ReasonMissing || b.Origin != OriginUnknown {
		t.Errorf("b2 default = %+v", b)
	}
	for id, a := range got {
		if a.Market != "DE" || a.Model != "gemini" || !a.AssessedAt.Equal(parseNow) {
			t.Errorf("%s metadata = %q %q %v", id, a.Market, a.Model, a.AssessedAt)
		}
	}
}

func TestParseResponse_Garbage(t *testing.T) {
	t.Parallel()

	inputs := []string{"", "no blocks at all", "VIDEO_ID:\nSCORE: 0.5", "VIDEO_ID: a1 SCORE 0.5"}
	for _, text := range inputs {
		got := ParseResponse(text, []string{"a1", "b2"}, "US", "m", parseNow)
		if len(got) != 2 {
			t.Fatalf("%q: len = %d, want 2", text, len(got))
		}
		for id, a := range got {
			if a.Score < 0 || a.Score > 1 || a.Confidence < 0 || a.Confidence > 1 {
				t.Errorf("%q: %s out of range: %+v", text, id, a)
			}
		}
	}
}
