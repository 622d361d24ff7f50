// Package usecase contains application business logic services.
package usecase

import (
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/fairyhunter13/interview-feedback/internal/adapter/observability"
	"github.com/fairyhunter13/interview-feedback/internal/domain"
	"github.com/fairyhunter13/interview-feedback/internal/feedback"
	obsctx "github.com/fairyhunter13/interview-feedback/internal/observability"
	"github.com/fairyhunter13/interview-feedback/internal/service/ratelimiter"
)

var interviewIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,100}$`)

// TokenCounter sizes a rendered prompt for the configured model.
type TokenCounter interface {
	CountOrEstimate(text, model string) int
}

// RateLimitError rejects a submission whose bucket is empty.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
}

func (e *RateLimitError) Is(target error) bool { return target == domain.ErrRateLimited }

// SplitJobID splits "<interviewId>&<authId>" on the first '&'. authID is ""
// when the job id carries no user part.
func SplitJobID(jobID string) (interviewID, authID string) {
	interviewID, authID, _ = strings.Cut(strings.TrimSpace(jobID), "&")
	return strings.TrimSpace(interviewID), strings.TrimSpace(authID)
}

// SubmitResult is returned once a job is registered and published.
type SubmitResult struct {
	InterviewID string           `json:"interviewId"`
	Status      domain.JobStatus `json:"status"`
}

// FeedbackService validates submissions, registers them in the status
// tracker and publishes them for the worker. Users, Interviews, Limiter and
// Counter are optional.
type FeedbackService struct {
	Tracker    domain.StatusStore
	Queue      domain.Queue
	Users      domain.UserRepository
	Interviews domain.InterviewRepository
	Limiter    ratelimiter.Limiter
	Counter    TokenCounter

	Model           string
	MaxTurns        int
	MaxPromptTokens int

	now func() time.Time
}

// NewFeedbackService constructs a FeedbackService with its dependencies.
func NewFeedbackService(s domain.StatusStore, q domain.Queue, u domain.UserRepository, i domain.InterviewRepository) FeedbackService {
	return FeedbackService{Tracker: s, Queue: q, Users: u, Interviews: i, now: time.Now}
}

// Submit registers a feedback job for jobID and enqueues it.
func (s FeedbackService) Submit(ctx domain.Context, jobID string, turns []domain.Turn) (SubmitResult, error) {
	lg := obsctx.LoggerFromContext(ctx)
	interviewID, authID := SplitJobID(jobID)
	if !interviewIDPattern.MatchString(interviewID) {
		return SubmitResult{}, reject(domain.Invalid("jobId", "interview id must be 1-100 characters of letters, digits, '_' or '-'"))
	}
	if len(turns) == 0 {
		return SubmitResult{}, reject(domain.Invalid("transcript", "transcript is required"))
	}
	if s.MaxTurns > 0 && len(turns) > s.MaxTurns {
		return SubmitResult{}, reject(domain.Invalid("transcript", fmt.Sprintf("transcript has %d turns, limit is %d", len(turns), s.MaxTurns)))
	}

	exchanges := feedback.Normalize(turns)
	if s.Counter != nil && s.MaxPromptTokens > 0 {
		n := s.Counter.CountOrEstimate(feedback.BuildPrompt(exchanges), s.Model)
		if n > s.MaxPromptTokens {
			return SubmitResult{}, reject(domain.Invalid("transcript", fmt.Sprintf("transcript renders to %d prompt tokens, limit is %d", n, s.MaxPromptTokens)))
		}
	}

	if authID != "" && s.Users != nil {
		if _, err := s.Users.GetByAuthID(ctx, authID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return SubmitResult{}, reject(domain.UnknownReference("authId", "USER_NOT_FOUND", "User not found"))
			}
			return SubmitResult{}, fmt.Errorf("op=feedback.submit: %w", err)
		}
	}
	if s.Interviews != nil {
		if _, err := s.Interviews.Get(ctx, interviewID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return SubmitResult{}, reject(domain.UnknownReference("interviewId", "INTERVIEW_NOT_FOUND", "Interview not found"))
			}
			return SubmitResult{}, fmt.Errorf("op=feedback.submit: %w", err)
		}
	}

	if s.Limiter != nil {
		subject := authID
		if subject == "" {
			subject = interviewID
		}
		allowed, retryAfter, err := s.Limiter.Allow(ctx, "submit:"+subject, 1)
		if err != nil {
			lg.Warn("submission limiter unavailable", slog.Any("error", err))
		}
		if !allowed {
			observability.SubmissionsRejectedTotal.WithLabelValues("RATE_LIMITED").Inc()
			return SubmitResult{}, &RateLimitError{RetryAfter: retryAfter}
		}
	}

	if err := s.Tracker.Begin(ctx, interviewID); err != nil {
		return SubmitResult{}, fmt.Errorf("op=feedback.submit: %w", err)
	}

	payload := domain.FeedbackJobPayload{
		InterviewID: interviewID,
		Transcript:  exchanges,
		RequestID:   obsctx.RequestIDFromContext(ctx),
		SubmittedAt: s.clock().UTC(),
	}
	if _, err := s.Queue.EnqueueFeedback(ctx, payload); err != nil {
		if ferr := s.Tracker.Fail(ctx, interviewID, "enqueue failed: "+err.Error()); ferr != nil {
			lg.Error("failed to mark job failed after enqueue error", slog.String("interview_id", interviewID), slog.Any("error", ferr))
		}
		return SubmitResult{}, fmt.Errorf("op=feedback.enqueue: %w", err)
	}
	observability.EnqueueJob(observability.JobTypeFeedback)
	lg.Info("feedback job submitted", slog.String("interview_id", interviewID), slog.Int("exchanges", len(exchanges)))
	return SubmitResult{InterviewID: interviewID, Status: domain.JobProcessing}, nil
}

// Status returns the tracked state for an interview. The id may carry an
// "&<authId>" suffix, which is ignored.
func (s FeedbackService) Status(ctx domain.Context, jobID string) (domain.JobState, error) {
	interviewID, _ := SplitJobID(jobID)
	if interviewID == "" {
		return domain.JobState{}, domain.Invalid("interviewId", "Interview ID is required")
	}
	return s.Tracker.Read(ctx, interviewID)
}

func (s FeedbackService) clock() time.Time {
	if s.now == nil {
		return time.Now()
	}
	return s.now()
}

func reject(v *domain.ValidationError) error {
	observability.SubmissionsRejectedTotal.WithLabelValues(v.Code).Inc()
	return v
}
