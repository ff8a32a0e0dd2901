package service

import (
	"context"

	"parkingsystem/backend/services/parking-service/internal/models"
	"parkingsystem/backend/services/parking-service/internal/repository"
)

// SessionCounter exposes aggregate session counts.
type SessionCounter interface {
	Counts(ctx context.Context) (repository.SessionCounts, error)
}

// CapacitySource reports how many vehicles the facility holds.
type CapacitySource interface {
	Capacity(ctx context.Context) (int64, error)
}

// FixedCapacity is a configured capacity that ignores the block layout.
type FixedCapacity int64

// Capacity implements CapacitySource.
func (c FixedCapacity) Capacity(context.Context) (int64, error) {
	return int64(c), nil
}

// Statistics summarizes facility occupancy.
type Statistics struct {
	TotalVehicles   int64                            `json:"totalVehicles"`
	CurrentlyParked int64                            `json:"currentlyParked"`
	AvailableSpots  int64                            `json:"availableSpots"`
	OccupancyRate   float64                          `json:"occupancyRate"`
	VehicleTypes    map[models.VehicleCategory]int64 `json:"vehicleTypes"`
	Capacity        int64                            `json:"capacity"`
}

// DashboardService computes occupancy figures from session counts.
type DashboardService struct {
	counter  SessionCounter
	capacity CapacitySource
}

// NewDashboardService builds service.
func NewDashboardService(counter SessionCounter, capacity CapacitySource) *DashboardService {
	return &DashboardService{counter: counter, capacity: capacity}
}

// Statistics returns the current occupancy snapshot.
func (s *DashboardService) Statistics(ctx context.Context) (*Statistics, error) {
	counts, err := s.counter.Counts(ctx)
	if err != nil {
		return nil, err
	}
	capacity, err := s.capacity.Capacity(ctx)
	if err != nil {
		return nil, err
	}

	types := make(map[models.VehicleCategory]int64, len(models.Categories()))
	for _, c := range models.Categories() {
		types[c] = 0
	}
	for c, n := range counts.OpenByCategory {
		types[c] += n
	}

	stats := &Statistics{
		TotalVehicles:   counts.Total,
		CurrentlyParked: counts.Open,
		VehicleTypes:    types,
		Capacity:        capacity,
	}
	if available := capacity - counts.Open; available > 0 {
		stats.AvailableSpots = available
	}
	if capacity > 0 {
		stats.OccupancyRate = float64(counts.Open) * 100 / float64(capacity)
	}
	return stats, nil
}
