package postgres

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"

	"github.com/fairyhunter13/interview-feedback/internal/domain"
)

// UsersRepo reads users provisioned by the identity system.
type UsersRepo struct{ Pool PgxPool }

// NewUsersRepo constructs a UsersRepo with the given pool.
func NewUsersRepo(p PgxPool) *UsersRepo { return &UsersRepo{Pool: p} }

// GetByAuthID loads the user linked to an identity-system id.
func (r *UsersRepo) GetByAuthID(ctx domain.Context, authID string) (domain.User, error) {
	tracer := otel.Tracer("repo.users")
	ctx, span := tracer.Start(ctx, "users.GetByAuthID")
	defer span.End()

	var u domain.User
	q := `SELECT id, auth_id, name, email, created_at FROM users WHERE auth_id=$1`
	if err := r.Pool.QueryRow(ctx, q, authID).Scan(&u.ID, &u.AuthID, &u.Name, &u.Email, &u.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, fmt.Errorf("op=users.get_by_auth_id: %w", domain.ErrNotFound)
		}
		return domain.User{}, fmt.Errorf("op=users.get_by_auth_id: %w", err)
	}
	return u, nil
}

// Upsert stores a user keyed by auth id and returns its row id.
func (r *UsersRepo) Upsert(ctx domain.Context, u domain.User) (string, error) {
	tracer := otel.Tracer("repo.users")
	ctx, span := tracer.Start(ctx, "users.Upsert")
	defer span.End()

	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	var id string
	q := `INSERT INTO users (id, auth_id, name, email, created_at) VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (auth_id) DO UPDATE SET name=EXCLUDED.name, email=EXCLUDED.email
		RETURNING id`
	if err := r.Pool.QueryRow(ctx, q, u.ID, u.AuthID, u.Name, u.Email, time.Now().UTC()).Scan(&id); err != nil {
		return "", fmt.Errorf("op=users.upsert: %w", err)
	}
	return id, nil
}
