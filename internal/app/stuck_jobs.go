package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/fairyhunter13/interview-feedback/internal/adapter/observability"
	"github.com/fairyhunter13/interview-feedback/internal/domain"
)

// StaleLister lists processing entries older than a cutoff.
type StaleLister interface {
	ListProcessing(ctx domain.Context, olderThan time.Duration) ([]domain.StaleJob, error)
}

// StuckJobSweeper fails status entries left in processing by a worker that
// died mid-job. A worker that finishes after the sweep gets ErrConflict from
// the store and the failed status stands.
type StuckJobSweeper struct {
	lister           StaleLister
	status           domain.StatusStore
	maxProcessingAge time.Duration
	interval         time.Duration
}

func NewStuckJobSweeper(lister StaleLister, status domain.StatusStore, maxProcessingAge, interval time.Duration) *StuckJobSweeper {
	if lister == nil || status == nil {
		return nil
	}
	if maxProcessingAge <= 0 {
		maxProcessingAge = 10 * time.Minute
	}
	if interval <= 0 {
		interval = time.Minute
	}
	return &StuckJobSweeper{
		lister:           lister,
		status:           status,
		maxProcessingAge: maxProcessingAge,
		interval:         interval,
	}
}

func (s *StuckJobSweeper) Run(ctx context.Context) {
	if s == nil {
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.sweepOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			slog.Info("stuck job sweeper stopping")
			return
		case <-ticker.C:
			s.sweepOnce(ctx)
		}
	}
}

// sweepOnce returns the number of entries it moved to failed.
func (s *StuckJobSweeper) sweepOnce(ctx context.Context) int {
	tracer := otel.Tracer("jobs.sweeper")
	ctx, span := tracer.Start(ctx, "StuckJobSweeper.sweepOnce")
	defer span.End()
	span.SetAttributes(attribute.Float64("jobs.max_processing_age_seconds", s.maxProcessingAge.Seconds()))

	stale, err := s.lister.ListProcessing(ctx, s.maxProcessingAge)
	if err != nil {
		span.RecordError(err)
		slog.Error("stuck job sweep failed to list jobs", slog.Any("error", err))
		if len(stale) == 0 {
			return 0
		}
	}

	failed := 0
	for _, j := range stale {
		jobCtx, jobSpan := tracer.Start(ctx, "StuckJobSweeper.markFailed")
		jobSpan.SetAttributes(attribute.String("interview.id", j.InterviewID))
		msg := fmt.Sprintf("timeout: job still processing after %s; marked failed by sweeper", s.maxProcessingAge)
		switch err := s.status.Fail(jobCtx, j.InterviewID, msg); {
		case err == nil:
			failed++
			observability.StuckJobsFailedTotal.Inc()
			slog.Warn("stuck job marked failed", slog.String("interview_id", j.InterviewID), slog.Time("updated_at", j.UpdatedAt))
		case errors.Is(err, domain.ErrConflict), errors.Is(err, domain.ErrNotFound):
			slog.Debug("stuck job settled before sweep", slog.String("interview_id", j.InterviewID))
		default:
			jobSpan.RecordError(err)
			slog.Error("stuck job sweep failed to update status", slog.String("interview_id", j.InterviewID), slog.Any("error", err))
		}
		jobSpan.End()
	}

	span.SetAttributes(
		attribute.Int("jobs.total_checked", len(stale)),
		attribute.Int("jobs.total_marked_failed", failed),
	)
	return failed
}
