// Momentum - Market Momentum Video Ranking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/momentum

package relevance

import "context"

// Generation is one model completion with its usage metadata.
// Token counts are zero when the model did not report them.
type Generation struct {
	Text         string
	InputTokens  int
	OutputTokens int
}

// Model is a generative text model.
type Model interface {
	Generate(ctx context.Context, prompt string) (Generation, error)
	CountTokens(ctx context.Context, prompt string) (int, error)
	Name() string
}

// estimateTokens approximates a token count at four characters per token.
func estimateTokens(text string) int {
	return len(text) / 4
}
