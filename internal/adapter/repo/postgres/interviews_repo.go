package postgres

import (
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"

	"github.com/fairyhunter13/interview-feedback/internal/domain"
)

// InterviewsRepo reads interview definitions.
type InterviewsRepo struct{ Pool PgxPool }

// NewInterviewsRepo constructs an InterviewsRepo with the given pool.
func NewInterviewsRepo(p PgxPool) *InterviewsRepo { return &InterviewsRepo{Pool: p} }

// Get loads an interview by id.
func (r *InterviewsRepo) Get(ctx domain.Context, id string) (domain.Interview, error) {
	tracer := otel.Tracer("repo.interviews")
	ctx, span := tracer.Start(ctx, "interviews.Get")
	defer span.End()

	var iv domain.Interview
	var userID *string
	q := `SELECT id, fk_user_id, name, type, questions, skills, job_description, created_at FROM interviews WHERE id=$1`
	err := r.Pool.QueryRow(ctx, q, id).Scan(&iv.ID, &userID, &iv.Name, &iv.Type, &iv.Questions, &iv.Skills, &iv.JobDescription, &iv.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Interview{}, fmt.Errorf("op=interviews.get: %w", domain.ErrNotFound)
		}
		return domain.Interview{}, fmt.Errorf("op=interviews.get: %w", err)
	}
	if userID != nil {
		iv.UserID = *userID
	}
	return iv, nil
}

// Create inserts an interview definition.
func (r *InterviewsRepo) Create(ctx domain.Context, iv domain.Interview) error {
	tracer := otel.Tracer("repo.interviews")
	ctx, span := tracer.Start(ctx, "interviews.Create")
	defer span.End()

	var userID *string
	if iv.UserID != "" {
		userID = &iv.UserID
	}
	if iv.Questions == nil {
		iv.Questions = []string{}
	}
	if iv.Skills == nil {
		iv.Skills = []string{}
	}
	q := `INSERT INTO interviews (id, fk_user_id, name, type, questions, skills, job_description, created_at) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`
	if _, err := r.Pool.Exec(ctx, q, iv.ID, userID, iv.Name, iv.Type, iv.Questions, iv.Skills, iv.JobDescription, time.Now().UTC()); err != nil {
		return fmt.Errorf("op=interviews.create: %w", err)
	}
	return nil
}
