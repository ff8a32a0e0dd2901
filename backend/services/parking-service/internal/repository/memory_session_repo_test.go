package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parkingsystem/backend/services/parking-service/internal/models"
)

func TestMemorySessionRepositoryContract(t *testing.T) {
	runRepositoryContract(t, NewMemorySessionRepository())
}

func TestMemoryLayoutRepositoryContract(t *testing.T) {
	runLayoutContract(t, NewMemoryLayoutRepository())
}

func TestMemorySessionRepositoryReturnsCopies(t *testing.T) {
	repo := NewMemorySessionRepository()
	ctx := context.Background()

	s := newOpenSession("59X-00001", models.CategoryBicycle, time.Now().UTC())
	require.NoError(t, repo.Create(ctx, s))

	got, err := repo.FindByID(ctx, s.ID)
	require.NoError(t, err)
	got.LicensePlate = "CHANGED"

	again, err := repo.FindByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "59X-00001", again.LicensePlate)
}
