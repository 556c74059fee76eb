// Momentum - Market Momentum Video Ranking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/momentum

// Package testinfra provides test doubles and containers for the services
// the ranking pipeline talks to.
//
// # Upstream stubs
//
// Upstream is an httptest server with chi routing and request capture. The
// content source, trend-signal and generative scorer clients are tested
// against it with canned payloads:
//
//	up := testinfra.NewUpstream(t)
//	up.JSON(http.MethodPost, "/v1beta/models/{model}:generateContent", http.StatusOK, body)
//
// # Containers
//
// Under the integration build tag, RedisContainer and PostgresContainer
// start real services through testcontainers-go for the fast cache tier
// and the scorer usage log:
//
//	func TestRedisTier(t *testing.T) {
//	    testinfra.SkipIfNoDocker(t)
//	    rc, err := testinfra.NewRedisContainer(ctx)
//	    if err != nil {
//	        t.Fatal(err)
//	    }
//	    defer testinfra.CleanupContainer(t, ctx, rc.Container)
//	}
//
// Container tests are skipped when Docker is unavailable.
package testinfra
