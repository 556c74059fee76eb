// Momentum - Market Momentum Video Ranking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/momentum

package relevance

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/goccy/go-json"

	"github.com/tomtom215/momentum/internal/config"
	"github.com/tomtom215/momentum/internal/tracing"
)

// DefaultGeminiBaseURL is the public Generative Language API endpoint.
const DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com"

const maxErrorBodySize = 4 * 1024

// ErrEmptyCompletion is returned when the model answers without text.
var ErrEmptyCompletion = errors.New("gemini: empty completion")

// GeminiError is a non-2xx response from the Generative Language API.
type GeminiError struct {
	StatusCode int
	Status     string
	Message    string
}

func (e *GeminiError) Error() string {
	return fmt.Sprintf("gemini: status %d (%s): %s", e.StatusCode, e.Status, e.Message)
}

// GeminiClient implements Model over the Generative Language REST API.
//
// Thread Safety: safe for concurrent use.
type GeminiClient struct {
	baseURL         string
	apiKey          string
	model           string
	temperature     float64
	maxOutputTokens int
	client          *http.Client
}

// NewGeminiClient creates a client from cfg.
func NewGeminiClient(cfg config.ScorerConfig) *GeminiClient {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultGeminiBaseURL
	}
	return &GeminiClient{
		baseURL:         base,
		apiKey:          cfg.APIKey,
		model:           cfg.Model,
		temperature:     cfg.Temperature,
		maxOutputTokens: cfg.MaxOutputTokens,
		client: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: tracing.Transport(http.DefaultTransport),
		},
	}
}

// Name returns the model identifier.
func (c *GeminiClient) Name() string { return c.model }

type part struct {
	Text string `json:"text"`
}

type contentBlock struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type generateRequest struct {
	Contents         []contentBlock   `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content      contentBlock `json:"content"`
		FinishReason string       `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
	} `json:"usageMetadata"`
}

type countRequest struct {
	Contents []contentBlock `json:"contents"`
}

type countResponse struct {
	TotalTokens int `json:"totalTokens"`
}

func userContent(prompt string) []contentBlock {
	return []contentBlock{{Role: "user", Parts: []part{{Text: prompt}}}}
}

// Generate runs one completion.
func (c *GeminiClient) Generate(ctx context.Context, prompt string) (Generation, error) {
	req := generateRequest{
		Contents: userContent(prompt),
		GenerationConfig: generationConfig{
			Temperature:     c.temperature,
			MaxOutputTokens: c.maxOutputTokens,
		},
	}
	var resp generateResponse
	if err := c.post(ctx, "generateContent", req, &resp); err != nil {
		return Generation{}, err
	}

	var b strings.Builder
	if len(resp.Candidates) > 0 {
		for _, p := range resp.Candidates[0].Content.Parts {
			b.WriteString(p.Text)
		}
	}
	if b.Len() == 0 {
		return Generation{}, ErrEmptyCompletion
	}
	return Generation{
		Text:         b.String(),
		InputTokens:  resp.UsageMetadata.PromptTokenCount,
		OutputTokens: resp.UsageMetadata.CandidatesTokenCount,
	}, nil
}

// CountTokens asks the API for the prompt's input token count.
func (c *GeminiClient) CountTokens(ctx context.Context, prompt string) (int, error) {
	var resp countResponse
	if err := c.post(ctx, "countTokens", countRequest{Contents: userContent(prompt)}, &resp); err != nil {
		return 0, err
	}
	return resp.TotalTokens, nil
}

func (c *GeminiClient) post(ctx context.Context, method string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("gemini: encode %s request: %w", method, err)
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:%s", c.baseURL, url.PathEscape(c.model), method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("gemini: build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("gemini: %s: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeGeminiError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("gemini: decode %s response: %w", method, err)
	}
	return nil
}

func decodeGeminiError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
	gerr := &GeminiError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body))}

	var envelope struct {
		Error struct {
			Message string `json:"message"`
			Status  string `json:"status"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &envelope) == nil && envelope.Error.Message != "" {
		gerr.Message = envelope.Error.Message
		gerr.Status = envelope.Error.Status
	}
	if gerr.Status == "" {
		gerr.Status = http.StatusText(resp.StatusCode)
	}
	return gerr
}
