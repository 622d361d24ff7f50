package postgres

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/fairyhunter13/interview-feedback/internal/domain"
)

// FeedbackRepo implements domain.FeedbackStore. Every method is a single
// autocommit statement.
type FeedbackRepo struct{ Pool PgxPool }

// NewFeedbackRepo constructs a FeedbackRepo with the given pool.
func NewFeedbackRepo(p PgxPool) *FeedbackRepo { return &FeedbackRepo{Pool: p} }

// InsertDetail inserts the parent row with an empty video placeholder.
func (r *FeedbackRepo) InsertDetail(ctx domain.Context, interviewID string) (string, error) {
	tracer := otel.Tracer("repo.feedback")
	ctx, span := tracer.Start(ctx, "feedback.InsertDetail")
	defer span.End()
	span.SetAttributes(attribute.String("db.system", "postgresql"), attribute.String("interview.id", interviewID))

	id := uuid.New().String()
	q := `INSERT INTO interview_details (id, fk_interview_id, video, created_at) VALUES ($1,$2,'',$3)`
	if _, err := r.Pool.Exec(ctx, q, id, interviewID, time.Now().UTC()); err != nil {
		return "", fmt.Errorf("op=feedback.insert_detail: %w", err)
	}
	return id, nil
}

// InsertFeedbackItem inserts one child feedback row.
func (r *FeedbackRepo) InsertFeedbackItem(ctx domain.Context, detailID string, position int, item domain.FeedbackItem) error {
	tracer := otel.Tracer("repo.feedback")
	ctx, span := tracer.Start(ctx, "feedback.InsertFeedbackItem")
	defer span.End()
	span.SetAttributes(attribute.String("db.system", "postgresql"), attribute.Int("position", position))

	q := `INSERT INTO feedback (id, fk_interview_details_id, position, label, question, answer, feedback, category, suggesstion_for_improvement)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`
	_, err := r.Pool.Exec(ctx, q, uuid.New().String(), detailID, position, string(item.Label), item.Question, item.YourAnswer, item.Feedback, item.Category, item.SuggestionsForImprovement)
	if err != nil {
		return fmt.Errorf("op=feedback.insert_item: %w", err)
	}
	return nil
}

// InsertSummary inserts the single summary row of an aggregate.
func (r *FeedbackRepo) InsertSummary(ctx domain.Context, detailID string, s domain.InterviewSummary) error {
	tracer := otel.Tracer("repo.feedback")
	ctx, span := tracer.Start(ctx, "feedback.InsertSummary")
	defer span.End()

	q := `INSERT INTO summaries (id, fk_interview_details_id, relevant_responses, clarity_and_structure, professional_language, initial_ideas, additional_notable_aspects, score)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`
	_, err := r.Pool.Exec(ctx, q, uuid.New().String(), detailID, s.RelevantResponses, s.ClarityAndStructure, s.ProfessionalLanguage, s.InitialIdeas, s.AdditionalNotableAspects, s.Score)
	if err != nil {
		return fmt.Errorf("op=feedback.insert_summary: %w", err)
	}
	return nil
}

// DeleteDetail removes the parent row; feedback and summary rows cascade.
func (r *FeedbackRepo) DeleteDetail(ctx domain.Context, detailID string) error {
	tracer := otel.Tracer("repo.feedback")
	ctx, span := tracer.Start(ctx, "feedback.DeleteDetail")
	defer span.End()

	tag, err := r.Pool.Exec(ctx, `DELETE FROM interview_details WHERE id=$1`, detailID)
	if err != nil {
		return fmt.Errorf("op=feedback.delete_detail: %w", err)
	}
	span.SetAttributes(attribute.Int64("rows", tag.RowsAffected()))
	return nil
}

// GetByInterviewID loads the most recent complete aggregate for an interview.
// Detail rows without a summary are in flight or orphaned and never returned.
func (r *FeedbackRepo) GetByInterviewID(ctx domain.Context, interviewID string) (domain.StoredFeedback, error) {
	tracer := otel.Tracer("repo.feedback")
	ctx, span := tracer.Start(ctx, "feedback.GetByInterviewID")
	defer span.End()

	var out domain.StoredFeedback
	var sum domain.InterviewSummary
	q := `SELECT d.id, d.fk_interview_id, d.video, d.created_at,
			s.relevant_responses, s.clarity_and_structure, s.professional_language, s.initial_ideas, s.additional_notable_aspects, s.score
		FROM interview_details d
		JOIN summaries s ON s.fk_interview_details_id = d.id
		WHERE d.fk_interview_id=$1
		ORDER BY d.created_at DESC
		LIMIT 1`
	err := r.Pool.QueryRow(ctx, q, interviewID).Scan(&out.DetailID, &out.InterviewID, &out.Video, &out.CreatedAt,
		&sum.RelevantResponses, &sum.ClarityAndStructure, &sum.ProfessionalLanguage, &sum.InitialIdeas, &sum.AdditionalNotableAspects, &sum.Score)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.StoredFeedback{}, fmt.Errorf("op=feedback.get: %w", domain.ErrNotFound)
		}
		return domain.StoredFeedback{}, fmt.Errorf("op=feedback.get: %w", err)
	}
	out.Aggregate.Summary = &sum

	rows, err := r.Pool.Query(ctx, `SELECT label, question, answer, feedback, category, suggesstion_for_improvement
		FROM feedback WHERE fk_interview_details_id=$1 ORDER BY position`, out.DetailID)
	if err != nil {
		return domain.StoredFeedback{}, fmt.Errorf("op=feedback.get_items: %w", err)
	}
	defer rows.Close()
	out.Aggregate.Feedback = []domain.FeedbackItem{}
	for rows.Next() {
		var it domain.FeedbackItem
		var label string
		if err := rows.Scan(&label, &it.Question, &it.YourAnswer, &it.Feedback, &it.Category, &it.SuggestionsForImprovement); err != nil {
			return domain.StoredFeedback{}, fmt.Errorf("op=feedback.get_items: %w", err)
		}
		it.Label = domain.Label(label)
		out.Aggregate.Feedback = append(out.Aggregate.Feedback, it)
	}
	if err := rows.Err(); err != nil {
		return domain.StoredFeedback{}, fmt.Errorf("op=feedback.get_items: %w", err)
	}
	span.SetAttributes(attribute.Int("items", len(out.Aggregate.Feedback)))
	return out, nil
}
