// Momentum - Market Momentum Video Ranking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/momentum

package middleware

import (
	"net/http"

	"github.com/klauspost/compress/gzhttp"
)

// CompressMinSize is the smallest body Compression gzips. Health answers
// and error envelopes stay below it.
const CompressMinSize = 1024

var gzipJSON = func() func(http.Handler) http.HandlerFunc {
	wrap, err := gzhttp.NewWrapper(
		gzhttp.MinSize(CompressMinSize),
		gzhttp.ContentTypes([]string{"application/json"}),
	)
	if err != nil {
		panic("middleware: invalid gzip options: " + err.Error())
	}
	return wrap
}()

// Compression gzips JSON bodies of at least CompressMinSize bytes for
// clients that accept it and sets Vary: Accept-Encoding.
func Compression(next http.HandlerFunc) http.HandlerFunc {
	return gzipJSON(next)
}
