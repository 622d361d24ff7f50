package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/interview-feedback/internal/adapter/repo/postgres"
	"github.com/fairyhunter13/interview-feedback/internal/domain"
)

func TestInterviewsRepo_Get(t *testing.T) {
	uid := "u-1"
	now := time.Now().UTC()
	p := &poolStub{row: rowValues("iv-1", &uid, "Backend", "CUSTOM", []string{"q1"}, []string{"go"}, "jd", now)}
	iv, err := postgres.NewInterviewsRepo(p).Get(context.Background(), "iv-1")
	require.NoError(t, err)
	assert.Equal(t, "u-1", iv.UserID)
	assert.Equal(t, []string{"q1"}, iv.Questions)
	assert.Equal(t, "CUSTOM", iv.Type)
}

func TestInterviewsRepo_Get_DetachedUser(t *testing.T) {
	p := &poolStub{row: rowValues("iv-1", nil, "Backend", "PERSONAL", []string{}, []string{}, "", time.Now())}
	iv, err := postgres.NewInterviewsRepo(p).Get(context.Background(), "iv-1")
	require.NoError(t, err)
	assert.Empty(t, iv.UserID)
}

func TestInterviewsRepo_Get_NotFound(t *testing.T) {
	p := &poolStub{row: rowStub{scan: func(_ ...any) error { return pgx.ErrNoRows }}}
	_, err := postgres.NewInterviewsRepo(p).Get(context.Background(), "nope")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestInterviewsRepo_Create_DefaultsArrays(t *testing.T) {
	p := &poolStub{}
	require.NoError(t, postgres.NewInterviewsRepo(p).Create(context.Background(), domain.Interview{ID: "iv-2", Name: "n", Type: "CUSTOM"}))
	require.Len(t, p.execs, 1)
	assert.Nil(t, p.execs[0].args[1].(*string))
	assert.Equal(t, []string{}, p.execs[0].args[4])
}
