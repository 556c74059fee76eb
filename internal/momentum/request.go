// Momentum - Market Momentum Video Ranking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/momentum

package momentum

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tomtom215/momentum/internal/market"
	"github.com/tomtom215/momentum/internal/validation"
)

// Request limits.
const (
	DefaultLimit     = 10
	MaxLimit         = 50
	DefaultTimeframe = market.Timeframe48h
)

// ErrInvalidRequest is returned for any request that fails validation.
var ErrInvalidRequest = errors.New("invalid request")

// Request is one ranking query.
type Request struct {
	Query     string `json:"query" validate:"required,notblank,min=2,max=100"`
	Market    string `json:"country" validate:"required,market"`
	Timeframe string `json:"timeframe" validate:"required,timeframe"`
	Limit     int    `json:"limit" validate:"min=1,max=50"`
}

// RequestError carries the field-level details of a rejected request.
// errors.Is(err, ErrInvalidRequest) holds for every RequestError.
type RequestError struct {
	Validation *validation.RequestValidationError
	Reason     string
}

func (e *RequestError) Error() string {
	if e.Validation != nil {
		return fmt.Sprintf("%s: %s", ErrInvalidRequest, e.Validation.Error())
	}
	return fmt.Sprintf("%s: %s", ErrInvalidRequest, e.Reason)
}

// Is matches ErrInvalidRequest.
func (e *RequestError) Is(target error) bool { return target == ErrInvalidRequest }

// APIError returns the VALIDATION_ERROR envelope for the HTTP layer.
func (e *RequestError) APIError() *validation.APIError {
	if e.Validation != nil {
		return e.Validation.ToAPIError()
	}
	return &validation.APIError{Code: "VALIDATION_ERROR", Message: e.Reason}
}

// normalize trims and canonicalizes req, fills defaults and validates the
// result. supported restricts the market list; nil allows every profile.
func normalize(req Request, supported map[string]struct{}) (Request, market.Timeframe, error) {
	req.Query = strings.Join(strings.Fields(req.Query), " ")
	req.Market = strings.ToUpper(strings.TrimSpace(req.Market))
	if req.Limit == 0 {
		req.Limit = DefaultLimit
	}

	tf := DefaultTimeframe
	if strings.TrimSpace(req.Timeframe) != "" {
		parsed, err := market.ParseTimeframe(req.Timeframe)
		if err != nil {
			return req, "", &RequestError{Reason: err.Error()}
		}
		tf = parsed
	}
	req.Timeframe = tf.String()

	if verr := validation.ValidateStruct(&req); verr != nil {
		return req, "", &RequestError{Validation: verr}
	}

	if _, err := market.Lookup(req.Market); err != nil {
		return req, "", &RequestError{Reason: err.Error()}
	}
	if supported != nil {
		if _, ok := supported[req.Market]; !ok {
			return req, "", &RequestError{Reason: fmt.Sprintf("market %q is not enabled", req.Market)}
		}
	}
	return req, tf, nil
}
