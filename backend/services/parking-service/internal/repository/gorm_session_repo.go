package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gopkg.in/guregu/null.v4"
	"gorm.io/gorm"

	"parkingsystem/backend/services/parking-service/internal/models"
)

const sqliteOpenPlateIndex = `CREATE UNIQUE INDEX IF NOT EXISTS parking_sessions_open_plate_uidx
	ON parking_sessions (license_plate) WHERE exit_time IS NULL`

type sessionRecord struct {
	ID              string     `gorm:"primaryKey;type:text"`
	LicensePlate    string     `gorm:"not null;index:parking_sessions_plate_entry_idx,priority:1"`
	VehicleType     string     `gorm:"not null"`
	EntryTime       time.Time  `gorm:"not null;index:parking_sessions_plate_entry_idx,priority:2"`
	ExitTime        *time.Time
	DurationMinutes *int64
	Fee             *int64
	Floor           *int64
	Slot            *int64
	Confidence      *float64
	DetectionMethod *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (sessionRecord) TableName() string {
	return "parking_sessions"
}

func toRecord(s *models.ParkingSession) sessionRecord {
	return sessionRecord{
		ID:              s.ID,
		LicensePlate:    s.LicensePlate,
		VehicleType:     string(s.VehicleType),
		EntryTime:       s.EntryTime.UTC(),
		ExitTime:        s.ExitTime.Ptr(),
		DurationMinutes: s.DurationMinutes.Ptr(),
		Fee:             s.Fee.Ptr(),
		Floor:           s.Floor.Ptr(),
		Slot:            s.Slot.Ptr(),
		Confidence:      s.Confidence.Ptr(),
		DetectionMethod: s.DetectionMethod.Ptr(),
	}
}

func (r sessionRecord) toModel() models.ParkingSession {
	return models.ParkingSession{
		ID:              r.ID,
		LicensePlate:    r.LicensePlate,
		VehicleType:     models.VehicleCategory(r.VehicleType),
		EntryTime:       r.EntryTime.UTC(),
		ExitTime:        null.TimeFromPtr(utcPtr(r.ExitTime)),
		DurationMinutes: null.IntFromPtr(r.DurationMinutes),
		Fee:             null.IntFromPtr(r.Fee),
		Floor:           null.IntFromPtr(r.Floor),
		Slot:            null.IntFromPtr(r.Slot),
		Confidence:      null.FloatFromPtr(r.Confidence),
		DetectionMethod: null.StringFromPtr(r.DetectionMethod),
		CreatedAt:       r.CreatedAt.UTC(),
		UpdatedAt:       r.UpdatedAt.UTC(),
	}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

// GormSessionRepository stores sessions in an embedded SQLite database through GORM.
type GormSessionRepository struct {
	db *gorm.DB
}

// NewGormSessionRepository returns repository.
func NewGormSessionRepository(db *gorm.DB) *GormSessionRepository {
	return &GormSessionRepository{db: db}
}

// Migrate creates the table, the lookup index and the partial unique index on open plates.
func (r *GormSessionRepository) Migrate(ctx context.Context) error {
	db := r.db.WithContext(ctx)
	if err := db.AutoMigrate(&sessionRecord{}); err != nil {
		return fmt.Errorf("repository: migrate: %w", err)
	}
	if err := db.Exec(sqliteOpenPlateIndex).Error; err != nil {
		return fmt.Errorf("repository: migrate: %w", err)
	}
	return nil
}

// FindOpenByPlate returns open sessions for plate ordered by entry time desc.
func (r *GormSessionRepository) FindOpenByPlate(ctx context.Context, plate string) ([]models.ParkingSession, error) {
	var records []sessionRecord
	err := r.db.WithContext(ctx).
		Where("license_plate = ? AND exit_time IS NULL", plate).
		Order("entry_time DESC").Order("id DESC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return toModels(records), nil
}

// Create inserts a new open session.
func (r *GormSessionRepository) Create(ctx context.Context, session *models.ParkingSession) error {
	record := toRecord(session)
	if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrOpenSessionExists, session.LicensePlate)
		}
		return err
	}
	session.CreatedAt = record.CreatedAt.UTC()
	session.UpdatedAt = record.UpdatedAt.UTC()
	return nil
}

// Close finalizes the session only while it is still open.
func (r *GormSessionRepository) Close(ctx context.Context, session *models.ParkingSession) error {
	updatedAt := time.Now().UTC()
	result := r.db.WithContext(ctx).
		Model(&sessionRecord{}).
		Where("id = ? AND exit_time IS NULL", session.ID).
		Updates(map[string]interface{}{
			"exit_time":        session.ExitTime.Ptr(),
			"duration_minutes": session.DurationMinutes.Ptr(),
			"fee":              session.Fee.Ptr(),
			"updated_at":       updatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		var n int64
		if err := r.db.WithContext(ctx).Model(&sessionRecord{}).Where("id = ?", session.ID).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return ErrAlreadyClosed
		}
		return ErrNotFound
	}
	session.UpdatedAt = updatedAt
	return nil
}

// FindByID loads a single session.
func (r *GormSessionRepository) FindByID(ctx context.Context, id string) (*models.ParkingSession, error) {
	var record sessionRecord
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	s := record.toModel()
	return &s, nil
}

// List returns sessions matching filter, newest entry first.
func (r *GormSessionRepository) List(ctx context.Context, filter ListFilter) ([]models.ParkingSession, error) {
	q := r.db.WithContext(ctx).Model(&sessionRecord{})
	if filter.Open != nil {
		if *filter.Open {
			q = q.Where("exit_time IS NULL")
		} else {
			q = q.Where("exit_time IS NOT NULL")
		}
	}
	if filter.Plate != "" {
		q = q.Where("license_plate = ?", filter.Plate)
	}

	var records []sessionRecord
	if err := q.Order("entry_time DESC").Order("id DESC").Limit(filter.limit()).Find(&records).Error; err != nil {
		return nil, err
	}
	return toModels(records), nil
}

// Counts returns totals and open sessions per category.
func (r *GormSessionRepository) Counts(ctx context.Context) (SessionCounts, error) {
	db := r.db.WithContext(ctx)
	counts := SessionCounts{OpenByCategory: make(map[models.VehicleCategory]int64)}

	if err := db.Model(&sessionRecord{}).Count(&counts.Total).Error; err != nil {
		return SessionCounts{}, err
	}
	if err := db.Model(&sessionRecord{}).Where("exit_time IS NULL").Count(&counts.Open).Error; err != nil {
		return SessionCounts{}, err
	}

	var groups []struct {
		VehicleType string
		Total       int64
	}
	err := db.Model(&sessionRecord{}).
		Select("vehicle_type, COUNT(*) AS total").
		Where("exit_time IS NULL").
		Group("vehicle_type").
		Scan(&groups).Error
	if err != nil {
		return SessionCounts{}, err
	}
	for _, g := range groups {
		counts.OpenByCategory[models.VehicleCategory(g.VehicleType)] = g.Total
	}
	return counts, nil
}

func toModels(records []sessionRecord) []models.ParkingSession {
	if len(records) == 0 {
		return nil
	}
	out := make([]models.ParkingSession, 0, len(records))
	for _, rec := range records {
		out = append(out, rec.toModel())
	}
	return out
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
