package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewPool_InvalidDSN(t *testing.T) {
	_, err := NewPool(context.Background(), "://bad")
	require.Error(t, err)
	require.Contains(t, err.Error(), "op=postgres.NewPool")
}
