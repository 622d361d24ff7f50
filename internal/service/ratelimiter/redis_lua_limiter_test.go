package ratelimiter

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedisLuaLimiter(t *testing.T) (*RedisLuaLimiter, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})
	return NewRedisLuaLimiter(rdb, nil), mr
}

func TestAllow_NilLimiter_FailOpen(t *testing.T) {
	var limiter *RedisLuaLimiter
	allowed, retryAfter, err := limiter.Allow(context.Background(), "submit:any", 1)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !allowed || retryAfter != 0 {
		t.Fatalf("expected allow with zero retryAfter, got %v %v", allowed, retryAfter)
	}
	if NewRedisLuaLimiter(nil, nil) != nil {
		t.Fatalf("expected nil limiter for nil client")
	}
}

func TestAllow_NoBucketConfig_FailOpen(t *testing.T) {
	limiter, _ := newTestRedisLuaLimiter(t)
	allowed, retryAfter, err := limiter.Allow(context.Background(), "unknown:bucket", 1)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !allowed || retryAfter != 0 {
		t.Fatalf("expected allow when no bucket config is present")
	}
}

func TestAllow_WithBucket_RespectsCapacityAndRetryAfter(t *testing.T) {
	ctx := context.Background()
	limiter, mr := newTestRedisLuaLimiter(t)
	limiter.SetBucketConfig("submit", BucketConfig{Capacity: 3, RefillRate: 0.001})

	for i := 0; i < 3; i++ {
		allowed, retryAfter, err := limiter.Allow(ctx, "submit:user-1", 1)
		if err != nil {
			t.Fatalf("unexpected error on call %d: %v", i, err)
		}
		if !allowed || retryAfter != 0 {
			t.Fatalf("expected allowed on call %d, got %v %v", i, allowed, retryAfter)
		}
	}

	allowed, retryAfter, err := limiter.Allow(ctx, "submit:user-1", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if allowed {
		t.Fatalf("expected limiter to deny once capacity exhausted")
	}
	if retryAfter < 900*time.Second {
		t.Fatalf("expected retryAfter near 1000s, got %v", retryAfter)
	}
	if ttl := mr.TTL("rate:submit:user-1"); ttl <= 0 {
		t.Fatalf("expected bucket key to carry a TTL, got %v", ttl)
	}

	// A different subject in the same class has its own bucket.
	allowed, _, err = limiter.Allow(ctx, "submit:user-2", 1)
	if err != nil || !allowed {
		t.Fatalf("expected independent bucket for second subject, got %v %v", allowed, err)
	}
}

func TestAllow_RedisDown_FailOpenWithError(t *testing.T) {
	limiter, mr := newTestRedisLuaLimiter(t)
	limiter.SetBucketConfig("submit", NewBucketConfigFromPerMinute(1))
	mr.Close()
	allowed, _, err := limiter.Allow(context.Background(), "submit:x", 1)
	if err == nil {
		t.Fatalf("expected error when redis is unavailable")
	}
	if !allowed {
		t.Fatalf("expected fail-open on redis error")
	}
}

func TestNewBucketConfigFromPerMinute(t *testing.T) {
	cfg := NewBucketConfigFromPerMinute(60)
	if cfg.Capacity != 60 || cfg.RefillRate != 1.0 {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if zero := NewBucketConfigFromPerMinute(0); zero != (BucketConfig{}) {
		t.Fatalf("expected zero config for non-positive perMinute, got %+v", zero)
	}
}

func TestBucketClass(t *testing.T) {
	if got := bucketClass("submit:a:b"); got != "submit" {
		t.Fatalf("got %q", got)
	}
	if got := bucketClass("plain"); got != "plain" {
		t.Fatalf("got %q", got)
	}
}

func TestSetBucketConfigNilSafe(_ *testing.T) {
	var limiter *RedisLuaLimiter
	limiter.SetBucketConfig("key", BucketConfig{Capacity: 1, RefillRate: 1})
}
