// Package main provides the worker application entry point.
// The worker consumes feedback jobs from Redpanda, runs the model and
// persists the parsed aggregate.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	ai "github.com/fairyhunter13/interview-feedback/internal/adapter/ai"
	"github.com/fairyhunter13/interview-feedback/internal/adapter/ai/tokencount"
	"github.com/fairyhunter13/interview-feedback/internal/adapter/observability"
	"github.com/fairyhunter13/interview-feedback/internal/adapter/queue/redpanda"
	"github.com/fairyhunter13/interview-feedback/internal/adapter/repo/postgres"
	"github.com/fairyhunter13/interview-feedback/internal/adapter/status/redisstore"
	"github.com/fairyhunter13/interview-feedback/internal/app"
	"github.com/fairyhunter13/interview-feedback/internal/config"
	"github.com/fairyhunter13/interview-feedback/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.SetupLogger(cfg, "worker")
	slog.SetDefault(logger)
	observability.InitMetrics()

	shutdownTracer, err := observability.SetupTracing(cfg)
	if err != nil {
		slog.Error("failed to setup tracing", slog.Any("error", err))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slog.Info("starting worker", slog.String("env", cfg.AppEnv), slog.Int("concurrency", cfg.ConsumerMaxConcurrency))

	pool, err := postgres.NewPool(ctx, cfg.DBURL)
	if err != nil {
		slog.Error("database connection failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		slog.Error("invalid REDIS_URL", slog.Any("error", err))
		os.Exit(1)
	}
	rdb := redis.NewClient(redisOpts)
	defer func() { _ = rdb.Close() }()

	if err := app.WaitForDependencies(ctx, cfg,
		app.Check{Name: "postgres", Fn: pool.Ping},
		app.Check{Name: "redis", Fn: func(ctx context.Context) error { return rdb.Ping(ctx).Err() }},
	); err != nil {
		slog.Error("dependencies not ready", slog.Any("error", err))
		os.Exit(1)
	}
	if err := postgres.EnsureSchema(ctx, pool); err != nil {
		slog.Error("schema setup failed", slog.Any("error", err))
		os.Exit(1)
	}

	completion, closeAI, err := ai.NewCompletionClient(ctx, cfg, "feedback", ai.FeedbackGeneration(cfg))
	if err != nil {
		slog.Error("ai client init failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() { _ = closeAI() }()

	statusStore := redisstore.New(rdb, cfg.StatusTTL)
	processor := usecase.NewFeedbackProcessor(statusStore, postgres.NewFeedbackRepo(pool), completion, cfg.CompletionTimeout)
	processor.Counter = tokencount.DefaultCounter
	processor.Model = cfg.FeedbackModel

	consumer, err := redpanda.NewConsumer(ctx, redpanda.ConsumerConfig{
		Brokers:        cfg.KafkaBrokers,
		Group:          cfg.ConsumerGroup,
		Topic:          cfg.FeedbackTopic,
		MaxConcurrency: cfg.ConsumerMaxConcurrency,
	}, processor)
	if err != nil {
		slog.Error("redpanda consumer init failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() { _ = consumer.Close() }()

	sweeper := app.NewStuckJobSweeper(statusStore, statusStore, cfg.StuckJobMaxAge, cfg.StuckJobSweepInterval)
	auditor := postgres.NewOrphanAuditor(pool, cfg.OrphanGracePeriod)

	metricsSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.MetricsPort),
		Handler:           app.MetricsMux(consumer.Healthy),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := consumer.Start(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		sweeper.Run(gctx)
		return nil
	})
	g.Go(func() error {
		auditor.RunPeriodic(gctx, cfg.OrphanAuditInterval)
		return nil
	})
	g.Go(func() error {
		slog.Info("worker metrics server starting", slog.Int("port", cfg.MetricsPort))
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return metricsSrv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		slog.Error("worker stopped with error", slog.Any("error", err))
		os.Exit(1)
	}
	slog.Info("worker stopped")
}
