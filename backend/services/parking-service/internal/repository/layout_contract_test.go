package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parkingsystem/backend/services/parking-service/internal/models"
)

// runLayoutContract exercises behaviour every LayoutRepository must share.
// The repository must be empty when passed in.
func runLayoutContract(t *testing.T, repo LayoutRepository) {
	ctx := context.Background()

	t.Run("empty layout", func(t *testing.T) {
		blocks, err := repo.ListBlocks(ctx)
		require.NoError(t, err)
		assert.Empty(t, blocks)

		total, err := repo.TotalSlots(ctx)
		require.NoError(t, err)
		assert.Zero(t, total)
	})

	t.Run("blocks ordered by floor and summed", func(t *testing.T) {
		for _, b := range []models.Block{
			{Name: "Floor 2", Floor: 2, Slots: 250},
			{Name: "Floor 1", Floor: 1, Slots: 200},
			{Name: "Floor 1 annex", Floor: 1, Slots: 30},
		} {
			b := b
			require.NoError(t, repo.CreateBlock(ctx, &b))
			assert.NotZero(t, b.ID)
			assert.False(t, b.CreatedAt.IsZero())
		}

		blocks, err := repo.ListBlocks(ctx)
		require.NoError(t, err)
		require.Len(t, blocks, 3)
		assert.Equal(t, "Floor 1", blocks[0].Name)
		assert.Equal(t, "Floor 1 annex", blocks[1].Name)
		assert.Equal(t, "Floor 2", blocks[2].Name)

		total, err := repo.TotalSlots(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(480), total)
	})

	t.Run("duplicate block name", func(t *testing.T) {
		err := repo.CreateBlock(ctx, &models.Block{Name: "Floor 2", Floor: 5, Slots: 10})
		assert.ErrorIs(t, err, ErrBlockExists)

		total, err := repo.TotalSlots(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(480), total)
	})

	t.Run("lanes in creation order", func(t *testing.T) {
		entry := models.Lane{Direction: models.LaneEntry, Camera: "cam-in-1"}
		exit := models.Lane{Direction: models.LaneExit, Camera: "cam-out-1"}
		require.NoError(t, repo.CreateLane(ctx, &entry))
		require.NoError(t, repo.CreateLane(ctx, &exit))

		lanes, err := repo.ListLanes(ctx)
		require.NoError(t, err)
		require.Len(t, lanes, 2)
		assert.Equal(t, entry.ID, lanes[0].ID)
		assert.Equal(t, models.LaneEntry, lanes[0].Direction)
		assert.Equal(t, "cam-out-1", lanes[1].Camera)
	})
}
