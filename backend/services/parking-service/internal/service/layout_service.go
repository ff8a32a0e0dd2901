package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"parkingsystem/backend/services/parking-service/internal/models"
	"parkingsystem/backend/services/parking-service/internal/repository"
)

// BlockInput describes a block to register.
type BlockInput struct {
	Name  string
	Floor int64
	Slots int64
}

// LaneInput describes a lane to register. Direction is ENTRY or EXIT in any case.
type LaneInput struct {
	Direction string
	Camera    string
}

// LayoutService manages the facility layout. When no capacity is configured the
// dashboard uses the slot total of all blocks.
type LayoutService struct {
	repo   repository.LayoutRepository
	logger *zap.Logger
}

// NewLayoutService builds service.
func NewLayoutService(repo repository.LayoutRepository, logger *zap.Logger) *LayoutService {
	return &LayoutService{repo: repo, logger: logger}
}

// Blocks lists blocks ordered by floor.
func (s *LayoutService) Blocks(ctx context.Context) ([]models.Block, error) {
	return s.repo.ListBlocks(ctx)
}

// CreateBlock registers a block.
func (s *LayoutService) CreateBlock(ctx context.Context, input BlockInput) (*models.Block, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" || input.Floor < 0 || input.Slots <= 0 {
		return nil, fmt.Errorf("%w: name %q, floor %d, slots %d", ErrInvalidBlock, name, input.Floor, input.Slots)
	}

	block := &models.Block{Name: name, Floor: input.Floor, Slots: input.Slots}
	if err := s.repo.CreateBlock(ctx, block); err != nil {
		if errors.Is(err, repository.ErrBlockExists) {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateBlock, name)
		}
		return nil, err
	}
	s.logger.Info("facility block added",
		zap.Int64("block_id", block.ID),
		zap.String("name", name),
		zap.Int64("floor", block.Floor),
		zap.Int64("slots", block.Slots),
	)
	return block, nil
}

// Lanes lists lanes in creation order.
func (s *LayoutService) Lanes(ctx context.Context) ([]models.Lane, error) {
	return s.repo.ListLanes(ctx)
}

// CreateLane registers a lane.
func (s *LayoutService) CreateLane(ctx context.Context, input LaneInput) (*models.Lane, error) {
	direction, ok := models.ParseLaneDirection(input.Direction)
	camera := strings.TrimSpace(input.Camera)
	if !ok || camera == "" {
		return nil, fmt.Errorf("%w: type %q, camera %q", ErrInvalidLane, input.Direction, camera)
	}

	lane := &models.Lane{Direction: direction, Camera: camera}
	if err := s.repo.CreateLane(ctx, lane); err != nil {
		return nil, err
	}
	s.logger.Info("facility lane added",
		zap.Int64("lane_id", lane.ID),
		zap.String("type", string(direction)),
		zap.String("camera", camera),
	)
	return lane, nil
}

// Capacity implements CapacitySource as the slot total of all blocks.
func (s *LayoutService) Capacity(ctx context.Context) (int64, error) {
	return s.repo.TotalSlots(ctx)
}

// SeedBlocks creates one block per floor when the layout is still empty.
func (s *LayoutService) SeedBlocks(ctx context.Context, floors, slotsPerFloor int64) error {
	existing, err := s.repo.ListBlocks(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 || floors <= 0 || slotsPerFloor <= 0 {
		return nil
	}

	for floor := int64(1); floor <= floors; floor++ {
		block := &models.Block{Name: fmt.Sprintf("Floor %d", floor), Floor: floor, Slots: slotsPerFloor}
		if err := s.repo.CreateBlock(ctx, block); err != nil {
			return fmt.Errorf("seed block %q: %w", block.Name, err)
		}
	}
	s.logger.Info("seeded facility layout",
		zap.Int64("floors", floors),
		zap.Int64("slots_per_floor", slotsPerFloor),
	)
	return nil
}
