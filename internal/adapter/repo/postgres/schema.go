package postgres

import (
	"context"
	"fmt"
)

// schemaStatements are idempotent and applied in order at startup.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id          TEXT PRIMARY KEY,
		auth_id     TEXT NOT NULL UNIQUE,
		name        TEXT NOT NULL DEFAULT '',
		email       TEXT NOT NULL DEFAULT '',
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS interviews (
		id               TEXT PRIMARY KEY,
		fk_user_id       TEXT REFERENCES users(id) ON DELETE SET NULL,
		name             TEXT NOT NULL DEFAULT '',
		type             TEXT NOT NULL DEFAULT '',
		questions        TEXT[] NOT NULL DEFAULT '{}',
		skills           TEXT[] NOT NULL DEFAULT '{}',
		job_description  TEXT NOT NULL DEFAULT '',
		created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS interview_details (
		id               UUID PRIMARY KEY,
		fk_interview_id  TEXT NOT NULL REFERENCES interviews(id) ON DELETE CASCADE,
		video            TEXT NOT NULL DEFAULT '',
		created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS interview_details_interview_idx ON interview_details (fk_interview_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS feedback (
		id                           UUID PRIMARY KEY,
		fk_interview_details_id      UUID NOT NULL REFERENCES interview_details(id) ON DELETE CASCADE,
		position                     INT NOT NULL DEFAULT 0,
		label                        TEXT NOT NULL DEFAULT '',
		question                     TEXT NOT NULL DEFAULT '',
		answer                       TEXT NOT NULL DEFAULT '',
		feedback                     TEXT NOT NULL DEFAULT '',
		category                     TEXT,
		suggesstion_for_improvement  TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS feedback_detail_idx ON feedback (fk_interview_details_id, position)`,
	`CREATE TABLE IF NOT EXISTS summaries (
		id                          UUID PRIMARY KEY,
		fk_interview_details_id     UUID NOT NULL UNIQUE REFERENCES interview_details(id) ON DELETE CASCADE,
		relevant_responses          TEXT NOT NULL DEFAULT '',
		clarity_and_structure       TEXT NOT NULL DEFAULT '',
		professional_language       TEXT NOT NULL DEFAULT '',
		initial_ideas               TEXT NOT NULL DEFAULT '',
		additional_notable_aspects  TEXT NOT NULL DEFAULT '',
		score                       TEXT NOT NULL DEFAULT '0'
	)`,
}

// EnsureSchema creates the tables and indexes when missing.
func EnsureSchema(ctx context.Context, pool PgxPool) error {
	for i, stmt := range schemaStatements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("op=postgres.EnsureSchema: statement %d: %w", i, err)
		}
	}
	return nil
}
