// Momentum - Market Momentum Video Ranking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/momentum

/*
youtube.go - YouTube Data API v3 Client

YouTubeClient implements Source on top of three endpoints:
  - search.list: term search per market (100 quota units per call)
  - videos.list by id: statistics and metadata, at most 50 ids per call
  - videos.list chart=mostPopular: the market's trending feed, paged

Resilience Mechanisms:
  - Quota pacing: a token-bucket limiter shared by all calls
  - Retries: exponential backoff (1s, 2s, 4s) on HTTP 429 and 5xx
  - Context: every call honours cancellation, including backoff waits

Quota exhaustion (403 quotaExceeded) is reported as ErrQuotaExceeded and
is never retried.
*/

//nolint:staticcheck // File documentation, not package doc
package content

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/tomtom215/momentum/internal/config"
	"github.com/tomtom215/momentum/internal/logging"
	"github.com/tomtom215/momentum/internal/metrics"
	"github.com/tomtom215/momentum/internal/tracing"
)

// maxIDsPerCall is the videos.list id limit.
const maxIDsPerCall = 50

// maxErrorBodySize bounds error bodies kept for diagnostics.
const maxErrorBodySize = 4 * 1024

var (
	// ErrNoAPIKey is returned when the client has no API key.
	ErrNoAPIKey = errors.New("youtube: api key not configured")

	// ErrQuotaExceeded is returned when the daily quota is spent.
	ErrQuotaExceeded = errors.New("youtube: quota exceeded")
)

// APIError is a non-2xx response from the Data API.
type APIError struct {
	Status  int
	Reason  string
	Message string
}

func (e *APIError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("youtube: status %d (%s): %s", e.Status, e.Reason, e.Message)
	}
	return fmt.Sprintf("youtube: status %d: %s", e.Status, e.Message)
}

// Is matches ErrQuotaExceeded for quota reasons.
func (e *APIError) Is(target error) bool {
	return target == ErrQuotaExceeded && (e.Reason == "quotaExceeded" || e.Reason == "dailyLimitExceeded")
}

func (e *APIError) retryable() bool {
	return e.Status == http.StatusTooManyRequests || e.Status >= 500
}

// YouTubeClient talks to the YouTube Data API v3.
//
// Thread Safety: safe for concurrent use.
type YouTubeClient struct {
	baseURL        string
	apiKey         string
	client         *http.Client
	limiter        *rate.Limiter
	maxRetries     int
	retryBaseDelay time.Duration
}

// NewYouTubeClient creates a client from cfg. RequestsPerSecond <= 0
// disables local pacing.
func NewYouTubeClient(cfg config.YouTubeConfig) *YouTubeClient {
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	return &YouTubeClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		client: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: tracing.Transport(http.DefaultTransport),
		},
		limiter:        rate.NewLimiter(limit, 1),
		maxRetries:     3,
		retryBaseDelay: time.Second,
	}
}

type thumbnail struct {
	URL string `json:"url"`
}

type snippet struct {
	PublishedAt          string               `json:"publishedAt"`
	ChannelID            string               `json:"channelId"`
	Title                string               `json:"title"`
	Description          string               `json:"description"`
	ChannelTitle         string               `json:"channelTitle"`
	Tags                 []string             `json:"tags"`
	CategoryID           string               `json:"categoryId"`
	DefaultLanguage      string               `json:"defaultLanguage"`
	DefaultAudioLanguage string               `json:"defaultAudioLanguage"`
	Thumbnails           map[string]thumbnail `json:"thumbnails"`
}

type statistics struct {
	ViewCount    string `json:"viewCount"`
	LikeCount    string `json:"likeCount"`
	CommentCount string `json:"commentCount"`
}

type contentDetails struct {
	Duration string `json:"duration"`
}

type videoResource struct {
	ID             string         `json:"id"`
	Snippet        snippet        `json:"snippet"`
	Statistics     statistics     `json:"statistics"`
	ContentDetails contentDetails `json:"contentDetails"`
}

type videoListResponse struct {
	Items         []videoResource `json:"items"`
	NextPageToken string          `json:"nextPageToken"`
}

type searchResponse struct {
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
		Snippet snippet `json:"snippet"`
	} `json:"items"`
}

type errorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Errors  []struct {
			Reason string `json:"reason"`
		} `json:"errors"`
	} `json:"error"`
}

// Search implements Source.
func (c *YouTubeClient) Search(ctx context.Context, term, market string, maxResults int, publishedAfter time.Time) (items []Item, err error) {
	start := time.Now()
	defer func() { metrics.RecordContentCall("search", time.Since(start), err) }()

	params := url.Values{}
	params.Set("part", "id,snippet")
	params.Set("q", term)
	params.Set("type", "video")
	params.Set("regionCode", strings.ToUpper(market))
	params.Set("maxResults", strconv.Itoa(clampResults(maxResults)))
	params.Set("order", "relevance")
	params.Set("videoDuration", "any")
	params.Set("videoEmbeddable", "true")
	if !publishedAfter.IsZero() {
		params.Set("publishedAfter", publishedAfter.UTC().Format(time.RFC3339))
	}

	var resp searchResponse
	if err := c.get(ctx, "/search", params, &resp); err != nil {
		return nil, fmt.Errorf("search %q: %w", term, err)
	}

	items = make([]Item, 0, len(resp.Items))
	for _, r := range resp.Items {
		if r.ID.VideoID == "" {
			continue
		}
		it := fromSnippet(r.ID.VideoID, &r.Snippet)
		it.SearchTerm = term
		items = append(items, it)
	}
	logging.Ctx(ctx).Debug().Str("term", term).Int("results", len(items)).Msg("YouTube search finished")
	return items, nil
}

// Details implements Source. ids beyond the per-call limit are fetched in
// sequential chunks.
func (c *YouTubeClient) Details(ctx context.Context, ids []string) (out map[string]Item, err error) {
	start := time.Now()
	defer func() { metrics.RecordContentCall("details", time.Since(start), err) }()

	out = make(map[string]Item, len(ids))
	for lo := 0; lo < len(ids); lo += maxIDsPerCall {
		hi := lo + maxIDsPerCall
		if hi > len(ids) {
			hi = len(ids)
		}
		params := url.Values{}
		params.Set("part", "snippet,statistics,contentDetails,status")
		params.Set("id", strings.Join(ids[lo:hi], ","))
		params.Set("maxResults", strconv.Itoa(maxIDsPerCall))

		var resp videoListResponse
		if err := c.get(ctx, "/videos", params, &resp); err != nil {
			return out, fmt.Errorf("details: %w", err)
		}
		for i := range resp.Items {
			it := fromVideo(ctx, &resp.Items[i])
			out[it.ID] = it
		}
	}
	return out, nil
}

// Trending implements Source. Results beyond one page are fetched with
// page tokens.
func (c *YouTubeClient) Trending(ctx context.Context, market string, maxResults int) (items []Item, err error) {
	start := time.Now()
	defer func() { metrics.RecordContentCall("trending", time.Since(start), err) }()

	if maxResults <= 0 {
		return nil, nil
	}
	pageToken := ""
	for len(items) < maxResults {
		params := url.Values{}
		params.Set("part", "snippet,statistics,contentDetails")
		params.Set("chart", "mostPopular")
		params.Set("regionCode", strings.ToUpper(market))
		params.Set("maxResults", strconv.Itoa(clampResults(maxResults-len(items))))
		if pageToken != "" {
			params.Set("pageToken", pageToken)
		}

		var resp videoListResponse
		if err := c.get(ctx, "/videos", params, &resp); err != nil {
			return nil, fmt.Errorf("trending %s: %w", market, err)
		}
		for i := range resp.Items {
			if len(items) == maxResults {
				break
			}
			it := fromVideo(ctx, &resp.Items[i])
			it.TrendingRank = len(items) + 1
			items = append(items, it)
		}
		if resp.NextPageToken == "" || len(resp.Items) == 0 {
			break
		}
		pageToken = resp.NextPageToken
	}
	return items, nil
}

func clampResults(n int) int {
	switch {
	case n < 1:
		return 1
	case n > maxIDsPerCall:
		return maxIDsPerCall
	default:
		return n
	}
}

// get performs a GET with pacing and retries and decodes the JSON body.
func (c *YouTubeClient) get(ctx context.Context, path string, params url.Values, out interface{}) error {
	if c.apiKey == "" {
		return ErrNoAPIKey
	}
	params.Set("key", c.apiKey)
	reqURL := c.baseURL + path + "?" + params.Encode()

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := c.retryBaseDelay * time.Duration(1<<(attempt-1))
			logging.Ctx(ctx).Warn().Err(lastErr).Dur("backoff", backoff).Int("attempt", attempt).Msg("YouTube request failed, retrying")
			if err := sleep(ctx, backoff); err != nil {
				return err
			}
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		err := c.do(ctx, reqURL, out)
		if err == nil {
			return nil
		}
		var apiErr *APIError
		if !errors.As(err, &apiErr) || !apiErr.retryable() {
			return err
		}
		lastErr = err
	}
	return fmt.Errorf("max retries (%d) exceeded: %w", c.maxRetries, lastErr)
}

func (c *YouTubeClient) do(ctx context.Context, reqURL string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decodeAPIError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
	apiErr := &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(body))}

	var er errorResponse
	if json.Unmarshal(body, &er) == nil && er.Error.Message != "" {
		apiErr.Message = er.Error.Message
		if len(er.Error.Errors) > 0 {
			apiErr.Reason = er.Error.Errors[0].Reason
		}
	}
	return apiErr
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func fromSnippet(id string, s *snippet) Item {
	it := Item{
		ID:           id,
		Title:        s.Title,
		Description:  s.Description,
		ChannelTitle: s.ChannelTitle,
		ChannelID:    s.ChannelID,
		Country:      languageCountry(s.DefaultLanguage, s.DefaultAudioLanguage),
		Tags:         s.Tags,
		CategoryID:   s.CategoryID,
		Thumbnail:    bestThumbnail(s.Thumbnails),
	}
	if t, err := time.Parse(time.RFC3339, s.PublishedAt); err == nil {
		it.PublishedAt = t.UTC()
	}
	return it
}

func fromVideo(ctx context.Context, v *videoResource) Item {
	it := fromSnippet(v.ID, &v.Snippet)
	it.Views = parseCount(v.Statistics.ViewCount)
	it.Likes = parseCount(v.Statistics.LikeCount)
	it.Comments = parseCount(v.Statistics.CommentCount)
	if v.ContentDetails.Duration != "" {
		d, err := ParseISODuration(v.ContentDetails.Duration)
		if err != nil {
			logging.Ctx(ctx).Debug().Err(err).Str("video_id", v.ID).Msg("Unparseable video duration")
		}
		it.Duration = d
	}
	return it
}

// parseCount reads a decimal statistics string; hidden counts are 0.
func parseCount(s string) int64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// languageCountry derives a two-letter origin hint from a BCP-47 tag
// ("de", "en-US" -> "DE", "EN").
func languageCountry(tags ...string) string {
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if len(tag) >= 2 {
			return strings.ToUpper(tag[:2])
		}
	}
	return ""
}

func bestThumbnail(thumbs map[string]thumbnail) string {
	for _, size := range []string{"high", "medium", "default"} {
		if t, ok := thumbs[size]; ok && t.URL != "" {
			return t.URL
		}
	}
	return ""
}
