package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"parkingsystem/backend/services/parking-service/internal/models"
)

// MemoryLayoutRepository keeps blocks and lanes in process memory.
type MemoryLayoutRepository struct {
	mu     sync.RWMutex
	blocks []models.Block
	lanes  []models.Lane
	nextID int64
	now    func() time.Time
}

// NewMemoryLayoutRepository returns an empty store.
func NewMemoryLayoutRepository() *MemoryLayoutRepository {
	return &MemoryLayoutRepository{now: func() time.Time { return time.Now().UTC() }}
}

// ListBlocks returns blocks ordered by floor, then id.
func (r *MemoryLayoutRepository) ListBlocks(_ context.Context) ([]models.Block, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.blocks) == 0 {
		return nil, nil
	}
	out := append([]models.Block(nil), r.blocks...)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Floor == out[j].Floor {
			return out[i].ID < out[j].ID
		}
		return out[i].Floor < out[j].Floor
	})
	return out, nil
}

// CreateBlock stores a block with a fresh id.
func (r *MemoryLayoutRepository) CreateBlock(_ context.Context, block *models.Block) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, b := range r.blocks {
		if b.Name == block.Name {
			return fmt.Errorf("%w: %s", ErrBlockExists, block.Name)
		}
	}
	r.nextID++
	block.ID = r.nextID
	block.CreatedAt = r.now()
	r.blocks = append(r.blocks, *block)
	return nil
}

// TotalSlots sums slots over all blocks.
func (r *MemoryLayoutRepository) TotalSlots(_ context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var total int64
	for _, b := range r.blocks {
		total += b.Slots
	}
	return total, nil
}

// ListLanes returns lanes in creation order.
func (r *MemoryLayoutRepository) ListLanes(_ context.Context) ([]models.Lane, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.lanes) == 0 {
		return nil, nil
	}
	return append([]models.Lane(nil), r.lanes...), nil
}

// CreateLane stores a lane with a fresh id.
func (r *MemoryLayoutRepository) CreateLane(_ context.Context, lane *models.Lane) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	lane.ID = r.nextID
	lane.CreatedAt = r.now()
	r.lanes = append(r.lanes, *lane)
	return nil
}
