// Momentum - Market Momentum Video Ranking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/momentum

package cache

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/tomtom215/momentum/internal/config"
)

// redisTierForTest connects to REDIS_TEST_ADDR or skips.
func redisTierForTest(t *testing.T) *RedisTier {
	t.Helper()
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	client, err := NewRedisClient(config.RedisConfig{Addr: addr})
	if err != nil {
		t.Fatalf("NewRedisClient: %v", err)
	}
	tier := NewRedisTier(client, "momentum-test:"+t.Name()+":")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := tier.Ping(ctx); err != nil {
		t.Skipf("redis at %s unreachable: %v", addr, err)
	}
	t.Cleanup(func() {
		_, _ = tier.DeletePattern(context.Background(), "*")
		_ = tier.Close()
	})
	return tier
}

func exerciseRedisTier(t *testing.T, tier *RedisTier) {
	t.Helper()
	ctx := context.Background()

	if _, err := tier.Get(ctx, "absent"); !errors.Is(err, ErrMiss) {
		t.Errorf("Get(absent) err = %v, want ErrMiss", err)
	}
	if err := tier.Set(ctx, "trending:DE:a:24h", []byte("v1"), time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := tier.Set(ctx, "trending:US:a:24h", []byte("v2"), time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := tier.Get(ctx, "trending:DE:a:24h")
	if err != nil || string(got) != "v1" {
		t.Errorf("Get = %q, %v", got, err)
	}

	n, err := tier.DeletePattern(ctx, "trending:DE:*")
	if err != nil || n != 1 {
		t.Errorf("DeletePattern = %d, %v; want 1", n, err)
	}
	if _, err := tier.Get(ctx, "trending:US:a:24h"); err != nil {
		t.Errorf("US key removed: %v", err)
	}
	if err := tier.Delete(ctx, "trending:US:a:24h"); err != nil {
		t.Errorf("Delete: %v", err)
	}
}

func TestRedisTier(t *testing.T) {
	exerciseRedisTier(t, redisTierForTest(t))
}

func TestNewRedisClient_URL(t *testing.T) {
	t.Parallel()
	client, err := NewRedisClient(config.RedisConfig{URL: "redis://:secret@cache.internal:6380/2"})
	if err != nil {
		t.Fatalf("NewRedisClient: %v", err)
	}
	defer client.Close()

	opts := client.Options()
	if opts.Addr != "cache.internal:6380" || opts.DB != 2 || opts.Password != "secret" {
		t.Errorf("options = addr %q db %d", opts.Addr, opts.DB)
	}

	if _, err := NewRedisClient(config.RedisConfig{URL: "http://nope"}); err == nil {
		t.Error("expected error for non-redis scheme")
	}
}
