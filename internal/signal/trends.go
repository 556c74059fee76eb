// Momentum - Market Momentum Video Ranking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/momentum

package signal

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/goccy/go-json"
)

// Property selects the search property a query is measured on.
type Property string

// Search properties.
const (
	PropertyWeb     Property = ""
	PropertyYouTube Property = "youtube"
)

// Query is one trend request.
type Query struct {
	Term     string
	Geo      string
	Range    string // "now 1-d", "now 2-d", "now 7-d"
	Property Property
}

// Related holds ranked related searches and topics.
type Related struct {
	TopQueries    []string `json:"top_queries,omitempty"`
	RisingQueries []string `json:"rising_queries,omitempty"`
	TopTopics     []string `json:"top_topics,omitempty"`
}

// Transport fetches raw trend data. Implementations must return
// *HTTPError for non-2xx responses so failures classify correctly.
type Transport interface {
	Interest(ctx context.Context, id *Identity, q Query) ([]float64, error)
	Related(ctx context.Context, id *Identity, q Query) (*Related, error)
}

// Widget IDs returned by explore.
const (
	widgetTimeseries     = "TIMESERIES"
	widgetRelatedQueries = "RELATED_QUERIES"
	widgetRelatedTopics  = "RELATED_TOPICS"
)

// xssiPrefix guards every trend response body.
const xssiPrefix = ")]}'"

// maxErrorBody bounds how much of an error body is kept.
const maxErrorBody = 256

// TrendsAPI talks to a Google-Trends style endpoint: explore hands out
// widget tokens, widgetdata endpoints return the series and related lists.
type TrendsAPI struct {
	baseURL string
}

// NewTrendsAPI creates a transport rooted at baseURL.
func NewTrendsAPI(baseURL string) *TrendsAPI {
	return &TrendsAPI{baseURL: strings.TrimRight(baseURL, "/")}
}

type widget struct {
	ID      string          `json:"id"`
	Token   string          `json:"token"`
	Request json.RawMessage `json:"request"`
}

type exploreResponse struct {
	Widgets []widget `json:"widgets"`
}

type timelineResponse struct {
	Default struct {
		TimelineData []struct {
			Value   []float64 `json:"value"`
			HasData []bool    `json:"hasData"`
		} `json:"timelineData"`
	} `json:"default"`
}

type rankedKeyword struct {
	Query string `json:"query"`
	Topic struct {
		Title string `json:"title"`
		Type  string `json:"type"`
	} `json:"topic"`
	Value float64 `json:"value"`
}

type relatedResponse struct {
	Default struct {
		RankedList []struct {
			RankedKeyword []rankedKeyword `json:"rankedKeyword"`
		} `json:"rankedList"`
	} `json:"default"`
}

// Interest implements Transport.
func (t *TrendsAPI) Interest(ctx context.Context, id *Identity, q Query) ([]float64, error) {
	w, err := t.widget(ctx, id, q, widgetTimeseries)
	if err != nil {
		return nil, err
	}
	var resp timelineResponse
	if err := t.widgetData(ctx, id, "multiline", w, &resp); err != nil {
		return nil, err
	}

	values := make([]float64, 0, len(resp.Default.TimelineData))
	for _, point := range resp.Default.TimelineData {
		if len(point.Value) == 0 {
			continue
		}
		values = append(values, point.Value[0])
	}
	return values, nil
}

// Related implements Transport. Web queries fill TopTopics from the topics
// widget; all properties fill the query lists.
func (t *TrendsAPI) Related(ctx context.Context, id *Identity, q Query) (*Related, error) {
	widgets, err := t.explore(ctx, id, q)
	if err != nil {
		return nil, err
	}

	out := &Related{}
	if w, ok := findWidget(widgets, widgetRelatedQueries); ok {
		var resp relatedResponse
		if err := t.widgetData(ctx, id, "relatedsearches", w, &resp); err != nil {
			return nil, err
		}
		lists := resp.Default.RankedList
		if len(lists) > 0 {
			out.TopQueries = keywordQueries(lists[0].RankedKeyword)
		}
		if len(lists) > 1 {
			out.RisingQueries = keywordQueries(lists[1].RankedKeyword)
		}
	}

	if q.Property == PropertyWeb {
		if w, ok := findWidget(widgets, widgetRelatedTopics); ok {
			var resp relatedResponse
			if err := t.widgetData(ctx, id, "relatedsearches", w, &resp); err != nil {
				return nil, err
			}
			if lists := resp.Default.RankedList; len(lists) > 0 {
				for _, kw := range lists[0].RankedKeyword {
					if kw.Topic.Title != "" {
						out.TopTopics = append(out.TopTopics, kw.Topic.Title)
					}
				}
			}
		}
	}
	return out, nil
}

func keywordQueries(kws []rankedKeyword) []string {
	out := make([]string, 0, len(kws))
	for _, kw := range kws {
		if kw.Query != "" {
			out = append(out, kw.Query)
		}
	}
	return out
}

func findWidget(widgets []widget, id string) (widget, bool) {
	for _, w := range widgets {
		if w.ID == id {
			return w, true
		}
	}
	return widget{}, false
}

func (t *TrendsAPI) widget(ctx context.Context, id *Identity, q Query, widgetID string) (widget, error) {
	widgets, err := t.explore(ctx, id, q)
	if err != nil {
		return widget{}, err
	}
	w, ok := findWidget(widgets, widgetID)
	if !ok {
		return widget{}, fmt.Errorf("explore returned no %s widget", widgetID)
	}
	return w, nil
}

func (t *TrendsAPI) explore(ctx context.Context, id *Identity, q Query) ([]widget, error) {
	if err := t.warm(ctx, id, q.Geo); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(map[string]interface{}{
		"comparisonItem": []map[string]string{{
			"keyword": q.Term,
			"geo":     q.Geo,
			"time":    q.Range,
		}},
		"category": 0,
		"property": string(q.Property),
	})
	if err != nil {
		return nil, fmt.Errorf("encode explore request: %w", err)
	}

	params := url.Values{}
	params.Set("hl", id.HL())
	params.Set("tz", id.TZ())
	params.Set("req", string(payload))

	var resp exploreResponse
	if err := t.do(ctx, id, http.MethodPost, "/trends/api/explore", params, &resp); err != nil {
		return nil, err
	}
	return resp.Widgets, nil
}

func (t *TrendsAPI) widgetData(ctx context.Context, id *Identity, kind string, w widget, out interface{}) error {
	params := url.Values{}
	params.Set("hl", id.HL())
	params.Set("tz", id.TZ())
	params.Set("req", string(w.Request))
	params.Set("token", w.Token)
	return t.do(ctx, id, http.MethodGet, "/trends/api/widgetdata/"+kind, params, out)
}

// warm fetches the landing page once per identity so its jar holds the
// session cookies explore expects.
func (t *TrendsAPI) warm(ctx context.Context, id *Identity, geo string) error {
	if id.warmed.Load() {
		return nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+"/?geo="+url.QueryEscape(geo), http.NoBody)
	if err != nil {
		return err
	}
	id.Apply(req)
	resp, err := id.Client().Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= 400 {
		return &HTTPError{Status: resp.StatusCode}
	}
	id.warmed.Store(true)
	return nil
}

func (t *TrendsAPI) do(ctx context.Context, id *Identity, method, path string, params url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, t.baseURL+path+"?"+params.Encode(), http.NoBody)
	if err != nil {
		return err
	}
	id.Apply(req)

	resp, err := id.Client().Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		return &HTTPError{Status: resp.StatusCode, Body: string(body)}
	}

	if err := json.Unmarshal(stripXSSI(body), out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// stripXSSI removes the ")]}'" guard and the separator that may follow it.
func stripXSSI(body []byte) []byte {
	body = bytes.TrimLeft(body, " \t\r\n")
	if bytes.HasPrefix(body, []byte(xssiPrefix)) {
		body = body[len(xssiPrefix):]
		body = bytes.TrimLeft(body, ", \t\r\n")
	}
	return body
}
