package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"parkingsystem/backend/services/parking-service/internal/models"
)

// MemorySessionRepository keeps sessions in process memory. It enforces the same
// one-open-session-per-plate constraint as the SQL stores.
type MemorySessionRepository struct {
	mu       sync.RWMutex
	sessions map[string]models.ParkingSession
	now      func() time.Time
}

// NewMemorySessionRepository returns an empty store.
func NewMemorySessionRepository() *MemorySessionRepository {
	return &MemorySessionRepository{
		sessions: make(map[string]models.ParkingSession),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// FindOpenByPlate returns open sessions for plate ordered by entry time desc.
func (r *MemorySessionRepository) FindOpenByPlate(_ context.Context, plate string) ([]models.ParkingSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.filterLocked(func(s models.ParkingSession) bool {
		return s.LicensePlate == plate && s.IsOpen()
	}, 0), nil
}

// Create inserts a new open session.
func (r *MemorySessionRepository) Create(_ context.Context, session *models.ParkingSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[session.ID]; exists {
		return fmt.Errorf("repository: duplicate session id %s", session.ID)
	}
	for _, existing := range r.sessions {
		if existing.LicensePlate == session.LicensePlate && existing.IsOpen() {
			return fmt.Errorf("%w: %s", ErrOpenSessionExists, session.LicensePlate)
		}
	}

	now := r.now()
	session.CreatedAt = now
	session.UpdatedAt = now
	r.sessions[session.ID] = *session
	return nil
}

// Close finalizes the session only while it is still open.
func (r *MemorySessionRepository) Close(_ context.Context, session *models.ParkingSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.sessions[session.ID]
	if !ok {
		return ErrNotFound
	}
	if !stored.IsOpen() {
		return ErrAlreadyClosed
	}

	stored.ExitTime = session.ExitTime
	stored.DurationMinutes = session.DurationMinutes
	stored.Fee = session.Fee
	stored.UpdatedAt = r.now()
	r.sessions[session.ID] = stored
	session.UpdatedAt = stored.UpdatedAt
	return nil
}

// FindByID loads a single session.
func (r *MemorySessionRepository) FindByID(_ context.Context, id string) (*models.ParkingSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &s, nil
}

// List returns sessions matching filter, newest entry first.
func (r *MemorySessionRepository) List(_ context.Context, filter ListFilter) ([]models.ParkingSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.filterLocked(func(s models.ParkingSession) bool {
		if filter.Open != nil && s.IsOpen() != *filter.Open {
			return false
		}
		return filter.Plate == "" || s.LicensePlate == filter.Plate
	}, filter.limit()), nil
}

// Counts returns totals and open sessions per category.
func (r *MemorySessionRepository) Counts(_ context.Context) (SessionCounts, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := SessionCounts{
		Total:          int64(len(r.sessions)),
		OpenByCategory: make(map[models.VehicleCategory]int64),
	}
	for _, s := range r.sessions {
		if s.IsOpen() {
			counts.Open++
			counts.OpenByCategory[s.VehicleType]++
		}
	}
	return counts, nil
}

func (r *MemorySessionRepository) filterLocked(keep func(models.ParkingSession) bool, limit int) []models.ParkingSession {
	var out []models.ParkingSession
	for _, s := range r.sessions {
		if keep(s) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].EntryTime.Equal(out[j].EntryTime) {
			return out[i].ID > out[j].ID
		}
		return out[i].EntryTime.After(out[j].EntryTime)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
