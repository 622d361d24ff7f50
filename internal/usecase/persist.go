package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/fairyhunter13/interview-feedback/internal/adapter/observability"
	"github.com/fairyhunter13/interview-feedback/internal/domain"
	obsctx "github.com/fairyhunter13/interview-feedback/internal/observability"
)

const (
	defaultCompensationTimeout = 10 * time.Second
	defaultInsertParallelism   = 8
)

// PersistenceCoordinator writes one aggregate as a parent detail row plus its
// children. The store has no multi-table transaction, so a failed child insert
// is undone by deleting the parent, which cascades to the children.
type PersistenceCoordinator struct {
	Store               domain.FeedbackStore
	CompensationTimeout time.Duration
	Parallelism         int
}

// NewPersistenceCoordinator constructs a coordinator over store.
func NewPersistenceCoordinator(store domain.FeedbackStore) PersistenceCoordinator {
	return PersistenceCoordinator{Store: store, CompensationTimeout: defaultCompensationTimeout, Parallelism: defaultInsertParallelism}
}

// Commit persists agg for interviewID and returns the detail row id. Any
// failure is a *domain.PersistenceError.
func (c PersistenceCoordinator) Commit(ctx domain.Context, interviewID string, agg domain.FeedbackAggregate) (string, error) {
	tracer := otel.Tracer("usecase.persist")
	ctx, span := tracer.Start(ctx, "persist.Commit")
	defer span.End()
	span.SetAttributes(attribute.String("interview.id", interviewID), attribute.Int("items", len(agg.Feedback)))
	lg := obsctx.LoggerFromContext(ctx)

	detailID, err := c.Store.InsertDetail(ctx, interviewID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert detail")
		return "", &domain.PersistenceError{Stage: domain.StageInterviewDetail, Cause: err}
	}

	if stage, err := c.insertChildren(ctx, detailID, agg); err != nil {
		perr := &domain.PersistenceError{Stage: stage, Cause: err}
		perr.CompensationErr = c.compensate(ctx, detailID)
		span.RecordError(perr)
		span.SetStatus(codes.Error, string(stage))
		if perr.Orphaned() {
			observability.PersistenceCompensationsTotal.WithLabelValues("failed").Inc()
			lg.Error("compensating delete failed, aggregate left orphaned",
				slog.String("detail_id", detailID),
				slog.String("stage", string(stage)),
				slog.Any("cause", err),
				slog.Any("compensation_error", perr.CompensationErr))
		} else {
			observability.PersistenceCompensationsTotal.WithLabelValues("ok").Inc()
			lg.Warn("aggregate write rolled back", slog.String("detail_id", detailID), slog.String("stage", string(stage)), slog.Any("cause", err))
		}
		return "", perr
	}
	return detailID, nil
}

func (c PersistenceCoordinator) insertChildren(ctx context.Context, detailID string, agg domain.FeedbackAggregate) (domain.PersistenceStage, error) {
	g, gctx := errgroup.WithContext(ctx)
	limit := c.Parallelism
	if limit <= 0 {
		limit = defaultInsertParallelism
	}
	g.SetLimit(limit)
	for i, item := range agg.Feedback {
		g.Go(func() error {
			if err := c.Store.InsertFeedbackItem(gctx, detailID, i, item); err != nil {
				return fmt.Errorf("item %d: %w", i, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return domain.StageFeedbackItem, err
	}

	summary := domain.InterviewSummary{Score: "0"}
	if agg.Summary != nil {
		summary = *agg.Summary
	}
	if err := c.Store.InsertSummary(ctx, detailID, summary); err != nil {
		return domain.StageSummary, err
	}
	return "", nil
}

// compensate runs even when ctx is already cancelled; the delete must not be
// skipped because the job deadline passed mid-write.
func (c PersistenceCoordinator) compensate(ctx context.Context, detailID string) error {
	timeout := c.CompensationTimeout
	if timeout <= 0 {
		timeout = defaultCompensationTimeout
	}
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()
	return c.Store.DeleteDetail(cctx, detailID)
}
