package repository

import (
	"context"
	"errors"

	"parkingsystem/backend/services/parking-service/internal/models"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

var (
	// ErrNotFound indicates that no session matched.
	ErrNotFound = errors.New("repository: session not found")
	// ErrOpenSessionExists indicates the plate already has an open session.
	ErrOpenSessionExists = errors.New("repository: open session already exists for plate")
	// ErrAlreadyClosed indicates a conditional close found the session already closed.
	ErrAlreadyClosed = errors.New("repository: session already closed")
	// ErrBlockExists indicates another block already uses the name.
	ErrBlockExists = errors.New("repository: block name already exists")
)

// SessionRepository persists parking sessions.
type SessionRepository interface {
	// FindOpenByPlate returns open sessions for plate, newest entry first.
	FindOpenByPlate(ctx context.Context, plate string) ([]models.ParkingSession, error)
	// Create stores a new open session and fills bookkeeping timestamps.
	Create(ctx context.Context, session *models.ParkingSession) error
	// Close writes exit time, duration and fee if the session is still open.
	Close(ctx context.Context, session *models.ParkingSession) error
	FindByID(ctx context.Context, id string) (*models.ParkingSession, error)
	List(ctx context.Context, filter ListFilter) ([]models.ParkingSession, error)
	Counts(ctx context.Context) (SessionCounts, error)
}

// ListFilter narrows List results. A nil Open returns both open and closed sessions.
type ListFilter struct {
	Open  *bool
	Plate string
	Limit int
}

func (f ListFilter) limit() int {
	switch {
	case f.Limit <= 0:
		return defaultListLimit
	case f.Limit > maxListLimit:
		return maxListLimit
	default:
		return f.Limit
	}
}

// SessionCounts aggregates session totals.
type SessionCounts struct {
	Total          int64
	Open           int64
	OpenByCategory map[models.VehicleCategory]int64
}

// LayoutRepository persists the facility layout: blocks of slots and the lanes cameras watch.
type LayoutRepository interface {
	// ListBlocks returns blocks ordered by floor, then id.
	ListBlocks(ctx context.Context) ([]models.Block, error)
	// CreateBlock assigns ID and CreatedAt.
	CreateBlock(ctx context.Context, block *models.Block) error
	// TotalSlots sums slots over all blocks.
	TotalSlots(ctx context.Context) (int64, error)
	ListLanes(ctx context.Context) ([]models.Lane, error)
	CreateLane(ctx context.Context, lane *models.Lane) error
}
