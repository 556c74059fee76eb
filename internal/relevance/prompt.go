// Momentum - Market Momentum Video Ranking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/momentum

package relevance

import (
	"fmt"
	"strings"
	"time"

	"github.com/tomtom215/momentum/internal/content"
	"github.com/tomtom215/momentum/internal/market"
)

const descriptionLimit = 200

// BuildPrompt renders the scoring prompt for one batch.
func BuildPrompt(items []content.Item, profile *market.Profile) string {
	blocks := make([]string, 0, len(items))
	for i := range items {
		blocks = append(blocks, describeItem(&items[i]))
	}

	code := profile.Code
	var b strings.Builder
	fmt.Fprintf(&b, "\nAnalyze these YouTube videos for %s trending relevance. ", code)
	fmt.Fprintf(&b, "Rate each video's relevance to %s on a scale from 0.0 to 1.0.\n\n", code)
	b.WriteString(profile.Criteria)
	b.WriteString("\n\nVideos to analyze:\n")
	b.WriteString(strings.Join(blocks, "\n---\n"))
	b.WriteString(`

For each video, provide your analysis in this EXACT format:
VIDEO_ID: <video_id>
SCORE: <score between 0.0 and 1.0>
REASONING: <brief explanation why this score was given>
CONFIDENCE: <confidence in analysis between 0.0 and 1.0>
ORIGIN: <estimated video origin country: DE/US/FR/JP/UNKNOWN>

Rules:
- Be precise with scores (use decimals like 0.85, 0.23, etc.)
- Keep reasoning under 100 words
- Consider language, cultural context, creator origin, and audience engagement patterns
`)
	fmt.Fprintf(&b, "- A score of 0.0 means completely irrelevant to %s\n", code)
	fmt.Fprintf(&b, "- A score of 1.0 means highly relevant and likely to trend specifically in %s\n", code)
	b.WriteString(`- ORIGIN should be the likely origin country of the video/channel (DE/US/FR/JP/UNKNOWN)
- Provide analysis for ALL videos, even if some data is missing

Begin analysis:
`)
	return b.String()
}

func describeItem(it *content.Item) string {
	desc := it.Description
	if r := []rune(desc); len(r) > descriptionLimit {
		desc = string(r[:descriptionLimit]) + "..."
	}
	uploaded := "N/A"
	if !it.PublishedAt.IsZero() {
		uploaded = it.PublishedAt.UTC().Format(time.RFC3339)
	}
	return fmt.Sprintf("\nVideo ID: %s\nTitle: %s\nChannel: %s\nDescription: %s\nViews: %d\nUpload Date: %s\n",
		it.ID, orNA(it.Title), orNA(it.ChannelTitle), desc, it.Views, uploaded)
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
