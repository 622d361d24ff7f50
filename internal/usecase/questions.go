package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/fairyhunter13/interview-feedback/internal/config"
	"github.com/fairyhunter13/interview-feedback/internal/domain"
	obsctx "github.com/fairyhunter13/interview-feedback/internal/observability"
	"github.com/fairyhunter13/interview-feedback/internal/questions"
)

// QuestionRequest carries the inputs of one question generation call.
type QuestionRequest struct {
	Kind           domain.QuestionKind
	Skills         []string
	JobDescription string
	Experience     []domain.Experience
	Projects       []domain.Project
}

// QuestionService generates interview questions and renders the stored
// question list as model context. Each kind has its own client because
// sampling parameters are fixed per client.
type QuestionService struct {
	Custom     domain.CompletionClient
	Personal   domain.CompletionClient
	Presets    config.QuestionPresets
	Interviews domain.InterviewRepository
	Provider   string
	Timeout    time.Duration
}

// Generate asks the model for questions and extracts the list from its reply.
func (s QuestionService) Generate(ctx domain.Context, req QuestionRequest) ([]string, error) {
	var (
		client domain.CompletionClient
		prompt string
		count  int
	)
	switch req.Kind {
	case domain.QuestionsCustom:
		if strings.TrimSpace(req.JobDescription) == "" && len(req.Skills) == 0 {
			return nil, domain.Invalid("jobDescription", "job description or skills are required")
		}
		client, count = s.Custom, s.Presets.Custom.Count
		prompt = questions.CustomPrompt(req.JobDescription, req.Skills, count)
	case domain.QuestionsPersonal:
		if len(req.Experience) == 0 && len(req.Projects) == 0 && len(req.Skills) == 0 {
			return nil, domain.Invalid("experience", "experience, projects or skills are required")
		}
		client, count = s.Personal, s.Presets.Personal.Count
		prompt = questions.PersonalPrompt(req.Experience, req.Projects, req.Skills, count)
	default:
		return nil, domain.Invalid("type", "type must be CUSTOM or PERSONAL")
	}
	if client == nil {
		return nil, fmt.Errorf("%w: no completion client for %s questions", domain.ErrInternal, req.Kind)
	}

	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}
	reply, err := client.Complete(ctx, prompt)
	if err != nil {
		return nil, err
	}
	qs, err := questions.Extract(reply)
	if err != nil {
		obsctx.LoggerFromContext(ctx).Warn("question reply had no array", slog.String("kind", string(req.Kind)), slog.Int("reply_len", len(reply)))
		return nil, &domain.ModelError{Provider: s.Provider, Cause: domain.ModelCauseMalformed, Err: err}
	}
	if count > 0 && len(qs) > count {
		qs = qs[:count]
	}
	return qs, nil
}

// Context renders the stored questions of an interview as a numbered list.
func (s QuestionService) Context(ctx domain.Context, interviewID string) (string, error) {
	if interviewID == "" {
		return "", domain.Invalid("interview_id", "interview id is required")
	}
	iv, err := s.Interviews.Get(ctx, interviewID)
	if err != nil {
		return "", fmt.Errorf("op=questions.context: %w", err)
	}
	if len(iv.Questions) == 0 {
		return "", fmt.Errorf("op=questions.context: %w", domain.ErrNotFound)
	}
	return questions.Context(iv.Questions), nil
}
