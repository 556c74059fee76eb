// Momentum - Market Momentum Video Ranking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/momentum

package validation

import (
	"strings"
	"sync"
	"testing"
)

type rankRequest struct {
	Query     string `json:"query" validate:"required,notblank,max=200"`
	Market    string `json:"market" validate:"required,market"`
	Timeframe string `json:"timeframe" validate:"required,timeframe"`
	Limit     int    `json:"limit" validate:"min=1,max=50"`
}

func TestGetValidator_Singleton(t *testing.T) {
	t.Parallel()
	var wg sync.WaitGroup
	results := make(chan interface{}, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- GetValidator()
		}()
	}
	wg.Wait()
	close(results)

	first := GetValidator()
	for v := range results {
		if v != first {
			t.Fatal("GetValidator returned different instances")
		}
	}
}

func TestValidateStruct(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		req       rankRequest
		wantField string
		wantTag   string
	}{
		{"valid", rankRequest{"tech", "DE", "24h", 10}, "", ""},
		{"valid 7d max limit", rankRequest{"kochen", "FR", "7d", 50}, "", ""},
		{"missing query", rankRequest{"", "DE", "24h", 10}, "query", "required"},
		{"blank query", rankRequest{"   ", "DE", "24h", 10}, "query", "notblank"},
		{"query too long", rankRequest{strings.Repeat("a", 201), "DE", "24h", 10}, "query", "max"},
		{"lowercase market", rankRequest{"tech", "de", "24h", 10}, "market", "market"},
		{"three letter market", rankRequest{"tech", "DEU", "24h", 10}, "market", "market"},
		{"bad timeframe", rankRequest{"tech", "US", "12h", 10}, "timeframe", "timeframe"},
		{"limit zero", rankRequest{"tech", "US", "48h", 0}, "limit", "min"},
		{"limit too high", rankRequest{"tech", "US", "48h", 51}, "limit", "max"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			verr := ValidateStruct(&tt.req)
			if tt.wantField == "" {
				if verr != nil {
					t.Fatalf("ValidateStruct() = %v, want nil", verr)
				}
				return
			}
			if verr == nil {
				t.Fatalf("ValidateStruct() = nil, want %s/%s error", tt.wantField, tt.wantTag)
			}
			errs := verr.Errors()
			if len(errs) != 1 {
				t.Fatalf("got %d errors, want 1: %v", len(errs), verr)
			}
			if errs[0].Field() != tt.wantField || errs[0].Tag() != tt.wantTag {
				t.Errorf("error = %s/%s, want %s/%s", errs[0].Field(), errs[0].Tag(), tt.wantField, tt.wantTag)
			}
		})
	}
}

func TestToAPIError_SingleError(t *testing.T) {
	t.Parallel()
	verr := ValidateStruct(&rankRequest{"tech", "DE", "1y", 10})
	if verr == nil {
		t.Fatal("expected validation error")
	}
	apiErr := verr.ToAPIError()
	if apiErr.Code != "VALIDATION_ERROR" {
		t.Errorf("Code = %q, want VALIDATION_ERROR", apiErr.Code)
	}
	if apiErr.Message != "timeframe must be one of: 24h, 48h, 7d" {
		t.Errorf("Message = %q", apiErr.Message)
	}
	if apiErr.Details["field"] != "timeframe" {
		t.Errorf("Details[field] = %v", apiErr.Details["field"])
	}
}

func TestToAPIError_MultipleErrors(t *testing.T) {
	t.Parallel()
	verr := ValidateStruct(&rankRequest{"", "x", "1y", 0})
	if verr == nil {
		t.Fatal("expected validation error")
	}
	if len(verr.Errors()) != 4 {
		t.Fatalf("got %d errors, want 4", len(verr.Errors()))
	}
	apiErr := verr.ToAPIError()
	fields, ok := apiErr.Details["fields"].([]map[string]interface{})
	if !ok || len(fields) != 4 {
		t.Fatalf("Details[fields] = %v", apiErr.Details["fields"])
	}
	if !strings.Contains(apiErr.Message, "market: market must be a two-letter uppercase market code") {
		t.Errorf("Message = %q", apiErr.Message)
	}
}

func TestToAPIError_Empty(t *testing.T) {
	t.Parallel()
	apiErr := (&RequestValidationError{}).ToAPIError()
	if apiErr.Message != "Validation failed" {
		t.Errorf("Message = %q", apiErr.Message)
	}
}

func TestErrorMessages(t *testing.T) {
	t.Parallel()
	tests := []struct {
		req  rankRequest
		want string
	}{
		{rankRequest{"", "DE", "24h", 10}, "query is required"},
		{rankRequest{" ", "DE", "24h", 10}, "query must not be blank"},
		{rankRequest{strings.Repeat("q", 201), "DE", "24h", 10}, "query must be at most 200 characters"},
		{rankRequest{"q", "DE", "24h", 0}, "limit must be at least 1"},
		{rankRequest{"q", "DE", "24h", 99}, "limit must be at most 50"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			t.Parallel()
			verr := ValidateStruct(&tt.req)
			if verr == nil {
				t.Fatal("expected validation error")
			}
			if verr.Error() != tt.want {
				t.Errorf("Error() = %q, want %q", verr.Error(), tt.want)
			}
		})
	}
}
