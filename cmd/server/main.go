// Command server starts the interview feedback HTTP API.
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

	ai "github.com/fairyhunter13/interview-feedback/internal/adapter/ai"
	"github.com/fairyhunter13/interview-feedback/internal/adapter/ai/tokencount"
	httpserver "github.com/fairyhunter13/interview-feedback/internal/adapter/httpserver"
	"github.com/fairyhunter13/interview-feedback/internal/adapter/observability"
	"github.com/fairyhunter13/interview-feedback/internal/adapter/queue/redpanda"
	"github.com/fairyhunter13/interview-feedback/internal/adapter/repo/postgres"
	"github.com/fairyhunter13/interview-feedback/internal/adapter/status/redisstore"
	"github.com/fairyhunter13/interview-feedback/internal/app"
	"github.com/fairyhunter13/interview-feedback/internal/config"
	"github.com/fairyhunter13/interview-feedback/internal/service/ratelimiter"
	"github.com/fairyhunter13/interview-feedback/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.SetupLogger(cfg, "server")
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

	// Infra: DB pool and Redis
	pool, err := postgres.NewPool(ctx, cfg.DBURL)
	if err != nil {
		slog.Error("db connect failed", slog.Any("error", err))
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

	producer, err := redpanda.NewProducer(ctx, cfg.KafkaBrokers, cfg.FeedbackTopic)
	if err != nil {
		slog.Error("redpanda producer connect failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := producer.Close(); err != nil {
			slog.Error("failed to close queue client", slog.Any("error", err))
		}
	}()

	// Question generation clients. Sampling parameters differ per kind, so
	// each kind has its own client.
	presets, err := config.LoadQuestionPresets(cfg.QuestionPresetsPath)
	if err != nil {
		slog.Error("question presets load failed", slog.Any("error", err))
		os.Exit(1)
	}
	customAI, closeCustom, err := ai.NewCompletionClient(ctx, cfg, "questions_custom", ai.QuestionGeneration(cfg, presets.Custom))
	if err != nil {
		slog.Error("ai client init failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() { _ = closeCustom() }()
	personalAI, closePersonal, err := ai.NewCompletionClient(ctx, cfg, "questions_personal", ai.QuestionGeneration(cfg, presets.Personal))
	if err != nil {
		slog.Error("ai client init failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() { _ = closePersonal() }()

	// Repositories and stores
	usersRepo := postgres.NewUsersRepo(pool)
	interviewsRepo := postgres.NewInterviewsRepo(pool)
	feedbackRepo := postgres.NewFeedbackRepo(pool)
	statusStore := redisstore.New(rdb, cfg.StatusTTL)
	limiter := ratelimiter.NewRedisLuaLimiter(rdb, map[string]ratelimiter.BucketConfig{
		"submit": ratelimiter.NewBucketConfigFromPerMinute(cfg.SubmitRatePerMin),
	})

	// Usecases
	feedbackSvc := usecase.NewFeedbackService(statusStore, producer, usersRepo, interviewsRepo)
	feedbackSvc.Limiter = limiter
	feedbackSvc.Counter = tokencount.DefaultCounter
	feedbackSvc.Model = cfg.FeedbackModel
	feedbackSvc.MaxTurns = cfg.MaxTranscriptTurns
	feedbackSvc.MaxPromptTokens = cfg.MaxPromptTokens

	resultSvc := usecase.NewResultService(interviewsRepo, feedbackRepo)
	questionSvc := usecase.QuestionService{
		Custom:     customAI,
		Personal:   personalAI,
		Presets:    presets,
		Interviews: interviewsRepo,
		Provider:   cfg.AIProvider,
		Timeout:    cfg.CompletionTimeout,
	}

	dbCheck, redisCheck, queueCheck := app.BuildReadinessChecks(pool, app.NewRedisPinger(rdb), producer)
	srv := httpserver.NewServer(cfg, feedbackSvc, resultSvc, questionSvc, dbCheck, redisCheck, queueCheck)
	handler := app.BuildRouter(cfg, srv)

	srvHTTP := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadTimeout:       cfg.HTTPReadTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPIdleTimeout,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server starting", slog.Int("port", cfg.Port), slog.String("ai_provider", cfg.AIProvider))
		errCh <- srvHTTP.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", slog.Any("error", err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ServerShutdownTimeout)
	defer cancel()
	if err := srvHTTP.Shutdown(shutdownCtx); err != nil {
		slog.Error("graceful shutdown failed", slog.Any("error", err))
	}
}
