package usecase

import (
	"fmt"

	"github.com/fairyhunter13/interview-feedback/internal/domain"
)

// InterviewFeedbackView is the read-back shape of one interview's feedback.
type InterviewFeedbackView struct {
	InterviewData     domain.Interview    `json:"interviewData"`
	InterviewFeedback FeedbackPayloadView `json:"interviewFeedback"`
	VideoLink         string              `json:"videoLink"`
}

// FeedbackPayloadView always carries a summary; a missing one renders as
// empty strings with score "0".
type FeedbackPayloadView struct {
	Feedback   []domain.FeedbackItem   `json:"feedback"`
	Summary    domain.InterviewSummary `json:"summary"`
	ScoreValue int                     `json:"scoreValue"`
	CreatedAt  string                  `json:"createdAt"`
}

// ResultService reads persisted aggregates back by interview id.
type ResultService struct {
	Interviews domain.InterviewRepository
	Feedback   domain.FeedbackStore
}

// NewResultService constructs a ResultService with the given repositories.
func NewResultService(i domain.InterviewRepository, f domain.FeedbackStore) ResultService {
	return ResultService{Interviews: i, Feedback: f}
}

// Fetch returns the interview with its latest stored aggregate.
func (s ResultService) Fetch(ctx domain.Context, interviewID string) (InterviewFeedbackView, error) {
	if interviewID == "" || !interviewIDPattern.MatchString(interviewID) {
		return InterviewFeedbackView{}, domain.Invalid("interviewId", "Interview ID is required")
	}
	iv, err := s.Interviews.Get(ctx, interviewID)
	if err != nil {
		return InterviewFeedbackView{}, fmt.Errorf("op=result.interview: %w", err)
	}
	stored, err := s.Feedback.GetByInterviewID(ctx, interviewID)
	if err != nil {
		return InterviewFeedbackView{}, fmt.Errorf("op=result.feedback: %w", err)
	}

	view := FeedbackPayloadView{
		Feedback:  stored.Aggregate.Feedback,
		Summary:   domain.InterviewSummary{Score: "0"},
		CreatedAt: stored.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
	if view.Feedback == nil {
		view.Feedback = []domain.FeedbackItem{}
	}
	if stored.Aggregate.Summary != nil {
		view.Summary = *stored.Aggregate.Summary
		if view.Summary.Score == "" {
			view.Summary.Score = "0"
		}
	}
	view.ScoreValue, _ = view.Summary.ScoreValue()
	if iv.Questions == nil {
		iv.Questions = []string{}
	}
	if iv.Skills == nil {
		iv.Skills = []string{}
	}
	return InterviewFeedbackView{InterviewData: iv, InterviewFeedback: view, VideoLink: stored.Video}, nil
}
