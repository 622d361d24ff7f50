package httpserver

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fairyhunter13/interview-feedback/internal/config"
	"github.com/fairyhunter13/interview-feedback/internal/domain"
	"github.com/fairyhunter13/interview-feedback/internal/usecase"
)

// FeedbackAPI submits feedback jobs and reports their status.
type FeedbackAPI interface {
	Submit(ctx domain.Context, jobID string, turns []domain.Turn) (usecase.SubmitResult, error)
	Status(ctx domain.Context, jobID string) (domain.JobState, error)
}

// ResultAPI reads persisted feedback back.
type ResultAPI interface {
	Fetch(ctx domain.Context, interviewID string) (usecase.InterviewFeedbackView, error)
}

// QuestionAPI generates interview questions.
type QuestionAPI interface {
	Generate(ctx domain.Context, req usecase.QuestionRequest) ([]string, error)
	Context(ctx domain.Context, interviewID string) (string, error)
}

// Server aggregates handler dependencies.
type Server struct {
	Cfg        config.Config
	Feedback   FeedbackAPI
	Results    ResultAPI
	Questions  QuestionAPI
	DBCheck    func(ctx context.Context) error
	RedisCheck func(ctx context.Context) error
	QueueCheck func(ctx context.Context) error
}

// NewServer constructs an HTTP server with all handlers and checks wired.
func NewServer(cfg config.Config, feedback FeedbackAPI, results ResultAPI, questions QuestionAPI, dbCheck, redisCheck, queueCheck func(context.Context) error) *Server {
	return &Server{
		Cfg:        cfg,
		Feedback:   feedback,
		Results:    results,
		Questions:  questions,
		DBCheck:    dbCheck,
		RedisCheck: redisCheck,
		QueueCheck: queueCheck,
	}
}

// SubmitFeedbackHandler registers a feedback job and publishes it.
func (s *Server) SubmitFeedbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req feedbackRequest
		if err := decodeBody(w, r, &req); err != nil {
			writeError(w, r, err, "")
			return
		}
		res, err := s.Feedback.Submit(r.Context(), req.jobID(), req.turns())
		if err != nil {
			writeError(w, r, err, "")
			return
		}
		writeOK(w, "Feedback generation started", res)
	}
}

// FeedbackStatusHandler returns the job status for ?interviewId= (or ?jobId=).
func (s *Server) FeedbackStatusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		id := strings.TrimSpace(q.Get("interviewId"))
		if id == "" {
			id = strings.TrimSpace(q.Get("jobId"))
		}
		if id == "" {
			writeJSON(w, http.StatusBadRequest, envelope{Message: "Interview ID is required", Error: codeInvalidArgument})
			return
		}
		st, err := s.Feedback.Status(r.Context(), id)
		if err != nil {
			writeError(w, r, err, "No processing status found for this interview")
			return
		}
		writeOK(w, "", st)
	}
}

// InterviewFeedbackHandler returns the interview with its persisted feedback.
func (s *Server) InterviewFeedbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view, err := s.Results.Fetch(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, r, err, "Feedback not found for this interview")
			return
		}
		writeOK(w, "", view)
	}
}

// GenerateQuestionsHandler generates CUSTOM or PERSONAL interview questions.
func (s *Server) GenerateQuestionsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req questionsRequest
		if err := decodeBody(w, r, &req); err != nil {
			writeError(w, r, err, "")
			return
		}
		qs, err := s.Questions.Generate(r.Context(), usecase.QuestionRequest{
			Kind:           domain.QuestionKind(req.Type),
			Skills:         req.Skills,
			JobDescription: req.JobDescription,
			Experience:     req.Experience,
			Projects:       req.Projects,
		})
		if err != nil {
			writeError(w, r, err, "")
			return
		}
		writeOK(w, "", map[string][]string{"questions": qs})
	}
}

// QuestionContextHandler renders an interview's stored questions for the
// conversational agent. The body is a bare {context} object.
func (s *Server) QuestionContextHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		text, err := s.Questions.Context(r.Context(), r.URL.Query().Get("interview_id"))
		if err != nil {
			writeError(w, r, err, "Interview questions not found!")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"context": text})
	}
}

// ReadyzHandler probes the database, Redis and the broker.
func (s *Server) ReadyzHandler() http.HandlerFunc {
	type check struct {
		Name    string `json:"name"`
		OK      bool   `json:"ok"`
		Details string `json:"details,omitempty"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		probes := []struct {
			name string
			fn   func(context.Context) error
		}{
			{"db", s.DBCheck},
			{"redis", s.RedisCheck},
			{"queue", s.QueueCheck},
		}
		checks := make([]check, 0, len(probes))
		ok := true
		for _, p := range probes {
			if p.fn == nil {
				continue
			}
			c := check{Name: p.name, OK: true}
			if err := p.fn(ctx); err != nil {
				c.OK, c.Details, ok = false, err.Error(), false
			}
			checks = append(checks, c)
		}
		st := http.StatusOK
		if !ok {
			st = http.StatusServiceUnavailable
		}
		writeJSON(w, st, envelope{Status: ok, Data: map[string]any{"checks": checks}})
	}
}
