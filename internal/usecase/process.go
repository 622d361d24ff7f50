package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/fairyhunter13/interview-feedback/internal/adapter/observability"
	"github.com/fairyhunter13/interview-feedback/internal/domain"
	"github.com/fairyhunter13/interview-feedback/internal/feedback"
	obsctx "github.com/fairyhunter13/interview-feedback/internal/observability"
	"github.com/fairyhunter13/interview-feedback/pkg/textx"
)

// Failure codes label the jobs_failed_total metric.
const (
	FailureTimeout     = "timeout"
	FailureModel       = "model"
	FailurePersistence = "persistence"
	FailureInternal    = "internal"
)

const maxStatusErrorLen = 512

// FeedbackProcessor runs one feedback job end to end: prompt, completion,
// parse, persist and the terminal status update.
type FeedbackProcessor struct {
	Tracker   domain.StatusStore
	Persister PersistenceCoordinator
	AI        domain.CompletionClient
	Counter   TokenCounter
	Model     string
	Timeout   time.Duration
}

// NewFeedbackProcessor constructs a FeedbackProcessor.
func NewFeedbackProcessor(tracker domain.StatusStore, store domain.FeedbackStore, ai domain.CompletionClient, timeout time.Duration) FeedbackProcessor {
	return FeedbackProcessor{Tracker: tracker, Persister: NewPersistenceCoordinator(store), AI: ai, Timeout: timeout}
}

// Process handles one job. Every failure is recorded as a failed status
// before it is returned, and panics are converted into failures.
func (p FeedbackProcessor) Process(ctx domain.Context, payload domain.FeedbackJobPayload) (err error) {
	ctx, lg := obsctx.WithJob(ctx, nil, payload.InterviewID, payload.RequestID)
	tracer := otel.Tracer("usecase.process")
	ctx, span := tracer.Start(ctx, "feedback.Process")
	defer span.End()
	span.SetAttributes(attribute.String("interview.id", payload.InterviewID), attribute.Int("exchanges", len(payload.Transcript)))

	id := payload.InterviewID
	// A record swept to failed while queued, or redelivered after completion,
	// must not spend a completion or persist a second aggregate.
	st, rerr := p.Tracker.Read(ctx, id)
	switch {
	case rerr == nil && st.Status.Terminal():
		lg.Info("skipping job that is no longer processing", slog.String("status", string(st.Status)))
		span.SetAttributes(attribute.String("job.skipped_status", string(st.Status)))
		return nil
	case rerr != nil && !errors.Is(rerr, domain.ErrNotFound):
		lg.Warn("status pre-check failed, processing anyway", slog.Any("error", rerr))
	}

	observability.StartProcessingJob(observability.JobTypeFeedback)
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			lg.Error("panic while processing feedback job", slog.Any("panic", r))
			err = fmt.Errorf("%w: panic: %v", domain.ErrInternal, r)
			p.fail(ctx, id, FailureInternal, "internal: processing panicked")
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	prompt := feedback.BuildPrompt(payload.Transcript)
	if p.Counter != nil {
		observability.PromptTokens.WithLabelValues("feedback").Observe(float64(p.Counter.CountOrEstimate(prompt, p.Model)))
	}

	text, err := p.complete(ctx, prompt)
	if err != nil {
		if isTimeout(err) {
			p.fail(ctx, id, FailureTimeout, fmt.Sprintf("timeout: completion did not finish within %s", p.Timeout))
		} else {
			p.fail(ctx, id, FailureModel, textx.Truncate(err.Error(), maxStatusErrorLen))
		}
		lg.Error("completion failed", slog.Any("error", err))
		return err
	}

	agg, report := feedback.Parse(text)
	degraded := report.Degraded()
	score, scoreOK := 0, false
	if agg.Summary != nil {
		score, scoreOK = agg.Summary.ScoreValue()
	}
	observability.ObserveFeedback(len(agg.Feedback), score, scoreOK, degraded)
	lvl := slog.LevelInfo
	if len(degraded) > 0 {
		lvl = slog.LevelWarn
	}
	lg.Log(ctx, lvl, "feedback parsed",
		slog.Int("items", report.Items),
		slog.Bool("summary_present", report.SummaryPresent),
		slog.Any("anomalies", report.Anomalies),
		slog.Int("ignored_paragraphs", report.IgnoredParagraphs),
		slog.Any("degraded", degraded))

	detailID, err := p.Persister.Commit(ctx, id, agg)
	if err != nil {
		p.fail(ctx, id, FailurePersistence, textx.Truncate(err.Error(), maxStatusErrorLen))
		return err
	}

	if err := p.Tracker.Complete(ctx, id, agg); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			// The sweeper already failed this entry; the stored aggregate stays readable.
			lg.Warn("job was no longer processing at completion", slog.String("detail_id", detailID))
			observability.CompleteJob(observability.JobTypeFeedback)
			return nil
		}
		lg.Error("failed to mark job completed", slog.Any("error", err))
		observability.FailJob(observability.JobTypeFeedback, FailureInternal)
		return fmt.Errorf("op=feedback.complete: %w", err)
	}
	observability.CompleteJob(observability.JobTypeFeedback)
	lg.Info("feedback job completed",
		slog.String("detail_id", detailID),
		slog.Int("items", len(agg.Feedback)),
		slog.Duration("elapsed", time.Since(start)))
	return nil
}

func (p FeedbackProcessor) complete(ctx context.Context, prompt string) (string, error) {
	if p.Timeout <= 0 {
		return p.AI.Complete(ctx, prompt)
	}
	cctx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()
	return p.AI.Complete(cctx, prompt)
}

// fail records a terminal failure. A conflict means another writer already
// finished the job, which is not an error here.
func (p FeedbackProcessor) fail(ctx context.Context, interviewID, code, msg string) {
	observability.FailJob(observability.JobTypeFeedback, code)
	if err := p.Tracker.Fail(context.WithoutCancel(ctx), interviewID, msg); err != nil {
		lg := obsctx.LoggerFromContext(ctx)
		if errors.Is(err, domain.ErrConflict) {
			lg.Warn("job was no longer processing at failure", slog.String("code", code))
			return
		}
		lg.Error("failed to mark job failed", slog.String("code", code), slog.Any("error", err))
	}
}

func isTimeout(err error) bool {
	return errors.Is(err, domain.ErrUpstreamTimeout) || errors.Is(err, context.DeadlineExceeded)
}
