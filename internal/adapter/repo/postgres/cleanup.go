package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fairyhunter13/interview-feedback/internal/adapter/observability"
)

// OrphanAuditor reports interview_details rows that never received a summary.
// Such rows are left behind when both a child insert and the compensating
// delete failed. It only reports; removal is an operator decision.
type OrphanAuditor struct {
	Pool        PgxPool
	GracePeriod time.Duration
	Limit       int
	now         func() time.Time
}

// NewOrphanAuditor creates an auditor. Rows younger than grace are skipped so
// in-flight writes are not reported.
func NewOrphanAuditor(pool PgxPool, grace time.Duration) *OrphanAuditor {
	if grace <= 0 {
		grace = 10 * time.Minute
	}
	return &OrphanAuditor{Pool: pool, GracePeriod: grace, Limit: 100, now: time.Now}
}

// Orphan is a detail row without a summary.
type Orphan struct {
	DetailID    string
	InterviewID string
	CreatedAt   time.Time
}

// Audit lists orphaned detail rows older than the grace period and publishes
// their count.
func (s *OrphanAuditor) Audit(ctx context.Context) ([]Orphan, error) {
	cutoff := s.now().UTC().Add(-s.GracePeriod)
	rows, err := s.Pool.Query(ctx, `
		SELECT d.id, d.fk_interview_id, d.created_at
		FROM interview_details d
		LEFT JOIN summaries s ON s.fk_interview_details_id = d.id
		WHERE s.id IS NULL AND d.created_at < $1
		ORDER BY d.created_at
		LIMIT $2
	`, cutoff, s.Limit)
	if err != nil {
		return nil, fmt.Errorf("op=orphan.audit: %w", err)
	}
	defer rows.Close()

	var out []Orphan
	for rows.Next() {
		var o Orphan
		if err := rows.Scan(&o.DetailID, &o.InterviewID, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("op=orphan.audit: %w", err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("op=orphan.audit: %w", err)
	}

	observability.OrphanedAggregates.Set(float64(len(out)))
	for _, o := range out {
		slog.Error("orphaned aggregate",
			slog.String("detail_id", o.DetailID),
			slog.String("interview_id", o.InterviewID),
			slog.Time("created_at", o.CreatedAt),
		)
	}
	return out, nil
}

// RunPeriodic audits on every tick until ctx is done.
func (s *OrphanAuditor) RunPeriodic(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 15 * time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	if _, err := s.Audit(ctx); err != nil {
		slog.Error("initial orphan audit failed", slog.Any("error", err))
	}

	for {
		select {
		case <-ctx.Done():
			slog.Info("orphan auditor stopping")
			return
		case <-ticker.C:
			if _, err := s.Audit(ctx); err != nil {
				slog.Error("periodic orphan audit failed", slog.Any("error", err))
			}
		}
	}
}
