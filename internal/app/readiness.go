package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"

	"github.com/fairyhunter13/interview-feedback/internal/config"
)

// Pinger is anything with a context-aware Ping: the pgx pool, the broker producer.
type Pinger interface{ Ping(ctx context.Context) error }

// RedisPingResult is the minimal return type of a Redis client's Ping.
type RedisPingResult interface{ Err() error }

// RedisClient is the minimal interface for a Redis client needed for readiness.
type RedisClient interface {
	Ping(ctx context.Context) RedisPingResult
}

type redisPinger struct{ rdb redis.UniversalClient }

func (p redisPinger) Ping(ctx context.Context) RedisPingResult { return p.rdb.Ping(ctx) }

// NewRedisPinger adapts a go-redis client to RedisClient.
func NewRedisPinger(rdb redis.UniversalClient) RedisClient {
	if rdb == nil {
		return nil
	}
	return redisPinger{rdb: rdb}
}

// Check is a named readiness probe.
type Check struct {
	Name string
	Fn   func(ctx context.Context) error
}

// BuildReadinessChecks returns the db, redis and queue probes.
func BuildReadinessChecks(pool Pinger, rdb RedisClient, queue Pinger) (dbCheck, redisCheck, queueCheck func(ctx context.Context) error) {
	dbCheck = func(ctx context.Context) error {
		if pool == nil {
			return errors.New("db not configured")
		}
		return pool.Ping(ctx)
	}
	redisCheck = func(ctx context.Context) error {
		if rdb == nil {
			return errors.New("redis not configured")
		}
		return rdb.Ping(ctx).Err()
	}
	queueCheck = func(ctx context.Context) error {
		if queue == nil {
			return errors.New("queue not configured")
		}
		return queue.Ping(ctx)
	}
	return dbCheck, redisCheck, queueCheck
}

// WaitForDependencies retries every check with exponential backoff until
// all pass or the startup budget from cfg is spent.
func WaitForDependencies(ctx context.Context, cfg config.Config, checks ...Check) error {
	maxElapsed, initial, maxInterval, multiplier := cfg.GetStartupBackoffConfig()
	for _, c := range checks {
		if c.Fn == nil {
			continue
		}
		expo := backoff.NewExponentialBackOff()
		expo.InitialInterval = initial
		expo.MaxInterval = maxInterval
		expo.Multiplier = multiplier
		expo.MaxElapsedTime = maxElapsed

		attempt := 0
		op := func() error {
			attempt++
			pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			err := c.Fn(pingCtx)
			if err != nil {
				slog.Warn("dependency not ready", slog.String("dependency", c.Name), slog.Int("attempt", attempt), slog.Any("error", err))
			}
			return err
		}
		if err := backoff.Retry(op, backoff.WithContext(expo, ctx)); err != nil {
			return fmt.Errorf("op=app.wait_dependencies: %s: %w", c.Name, err)
		}
		slog.Info("dependency ready", slog.String("dependency", c.Name), slog.Int("attempts", attempt))
	}
	return nil
}
