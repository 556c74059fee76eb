// Momentum - Market Momentum Video Ranking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/momentum

package relevance

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// Field labels of the model's response blocks.
const (
	fieldVideoID    = "VIDEO_ID:"
	fieldScore      = "SCORE:"
	fieldReasoning  = "REASONING:"
	fieldConfidence = "CONFIDENCE:"
	fieldOrigin     = "ORIGIN:"
)

// ParseResponse reads the model's block-formatted answer:
//
//	VIDEO_ID: <id>
//	SCORE: <0.0-1.0>
//	REASONING: <text>
//	CONFIDENCE: <0.0-1.0>
//	ORIGIN: <DE|US|FR|JP|UNKNOWN>
//
// Every id in ids gets exactly one assessment. Blocks for ids outside ids
// are ignored; ids without a block get a default assessment. The first
// block for an id wins. Field values that do not parse fall back to the
// documented defaults, and scores and confidences are clamped to [0, 1].
func ParseResponse(text string, ids []string, market, model string, now time.Time) map[string]Assessment {
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}

	out := make(map[string]Assessment, len(ids))
	blocks := strings.Split(text, fieldVideoID)
	for _, block := range blocks[1:] {
		a, ok := parseBlock(block)
		if !ok {
			continue
		}
		if _, expected := want[a.VideoID]; !expected {
			continue
		}
		if _, dup := out[a.VideoID]; dup {
			continue
		}
		a.Market = market
		a.Model = model
		a.AssessedAt = now
		out[a.VideoID] = a
	}

	for _, id := range ids {
		if _, ok := out[id]; !ok {
			out[id] = defaultAssessment(id, market, model, ReasonMissing, now)
		}
	}
	return out
}

func parseBlock(block string) (Assessment, bool) {
	lines := strings.Split(strings.TrimSpace(block), "\n")
	id := cleanValue(lines[0])
	if id == "" {
		return Assessment{}, false
	}

	a := Assessment{
		VideoID:    id,
		Score:      0,
		Confidence: defaultConfidence,
		Reasoning:  ReasonNotProvided,
		Origin:     OriginUnknown,
	}
	for _, line := range lines[1:] {
		line = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "*- "))
		switch {
		case strings.HasPrefix(line, fieldScore):
			a.Score = parseUnit(line[len(fieldScore):], 0)
		case strings.HasPrefix(line, fieldReasoning):
			if r := strings.TrimSpace(strings.TrimLeft(line[len(fieldReasoning):], "*")); r != "" {
				a.Reasoning = r
			}
		case strings.HasPrefix(line, fieldConfidence):
			a.Confidence = parseUnit(line[len(fieldConfidence):], defaultConfidence)
		case strings.HasPrefix(line, fieldOrigin):
			origin := strings.ToUpper(cleanValue(line[len(fieldOrigin):]))
			if _, ok := origins[origin]; ok {
				a.Origin = origin
			}
		}
	}
	return a, true
}

// parseUnit parses a float clamped to [0, 1], or returns fallback.
func parseUnit(s string, fallback float64) float64 {
	v, err := strconv.ParseFloat(cleanValue(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return fallback
	}
	return clamp01(v)
}

// cleanValue trims whitespace and markdown emphasis around a field value.
func cleanValue(s string) string {
	return strings.Trim(strings.TrimSpace(s), "*`\"' ")
}
