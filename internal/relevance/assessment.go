// Momentum - Market Momentum Video Ranking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/momentum

package relevance

import (
	"math"
	"time"
)

// OriginUnknown is used when the model names no supported origin.
const OriginUnknown = "UNKNOWN"

// Default reasonings for assessments the model did not produce.
const (
	ReasonNotProvided  = "No reasoning provided"
	ReasonMissing      = "Analysis failed or not provided"
	ReasonModelError   = "Relevance model call failed"
	ReasonBudget       = "Monthly scorer budget exhausted"
	ReasonUnconfigured = "Relevance scorer not configured"
)

// Default confidences.
const (
	defaultConfidence = 0.5
	missingConfidence = 0.1
)

// Assessment is the relevance of one video to one market.
type Assessment struct {
	VideoID    string    `json:"video_id"`
	Market     string    `json:"market"`
	Score      float64   `json:"relevance_score"`
	Confidence float64   `json:"confidence_score"`
	Reasoning  string    `json:"reasoning"`
	Origin     string    `json:"origin_country"`
	Model      string    `json:"llm_model"`
	AssessedAt time.Time `json:"analyzed_at"`
	// Defaulted marks assessments filled in without a model answer.
	Defaulted bool `json:"defaulted,omitempty"`
}

// defaultAssessment is the zero-relevance, low-confidence fallback.
func defaultAssessment(id, market, model, reason string, now time.Time) Assessment {
	return Assessment{
		VideoID:    id,
		Market:     market,
		Score:      0,
		Confidence: missingConfidence,
		Reasoning:  reason,
		Origin:     OriginUnknown,
		Model:      model,
		AssessedAt: now,
		Defaulted:  true,
	}
}

// clamp01 limits v to [0, 1]. NaN maps to 0.
func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

var origins = map[string]struct{}{"DE": {}, "US": {}, "FR": {}, "JP": {}}
