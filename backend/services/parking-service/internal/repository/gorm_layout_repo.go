package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"parkingsystem/backend/services/parking-service/internal/models"
)

type blockRecord struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	Name      string `gorm:"not null;uniqueIndex:parking_blocks_name_uidx"`
	Floor     int64  `gorm:"not null"`
	Slots     int64  `gorm:"not null"`
	CreatedAt time.Time
}

func (blockRecord) TableName() string {
	return "parking_blocks"
}

func (r blockRecord) toModel() models.Block {
	return models.Block{ID: r.ID, Name: r.Name, Floor: r.Floor, Slots: r.Slots, CreatedAt: r.CreatedAt.UTC()}
}

type laneRecord struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	Direction string `gorm:"not null"`
	Camera    string `gorm:"not null"`
	CreatedAt time.Time
}

func (laneRecord) TableName() string {
	return "parking_lanes"
}

func (r laneRecord) toModel() models.Lane {
	return models.Lane{ID: r.ID, Direction: models.LaneDirection(r.Direction), Camera: r.Camera, CreatedAt: r.CreatedAt.UTC()}
}

// GormLayoutRepository stores the facility layout in SQLite through GORM.
type GormLayoutRepository struct {
	db *gorm.DB
}

// NewGormLayoutRepository returns repository.
func NewGormLayoutRepository(db *gorm.DB) *GormLayoutRepository {
	return &GormLayoutRepository{db: db}
}

// Migrate creates the block and lane tables.
func (r *GormLayoutRepository) Migrate(ctx context.Context) error {
	if err := r.db.WithContext(ctx).AutoMigrate(&blockRecord{}, &laneRecord{}); err != nil {
		return fmt.Errorf("repository: migrate layout: %w", err)
	}
	return nil
}

// ListBlocks returns blocks ordered by floor, then id.
func (r *GormLayoutRepository) ListBlocks(ctx context.Context) ([]models.Block, error) {
	var records []blockRecord
	if err := r.db.WithContext(ctx).Order("floor").Order("id").Find(&records).Error; err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	out := make([]models.Block, 0, len(records))
	for _, rec := range records {
		out = append(out, rec.toModel())
	}
	return out, nil
}

// CreateBlock inserts a block.
func (r *GormLayoutRepository) CreateBlock(ctx context.Context, block *models.Block) error {
	record := blockRecord{Name: block.Name, Floor: block.Floor, Slots: block.Slots}
	if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrBlockExists, block.Name)
		}
		return err
	}
	block.ID = record.ID
	block.CreatedAt = record.CreatedAt.UTC()
	return nil
}

// TotalSlots sums slots over all blocks.
func (r *GormLayoutRepository) TotalSlots(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&blockRecord{}).Select("COALESCE(SUM(slots), 0)").Scan(&total).Error
	return total, err
}

// ListLanes returns lanes in creation order.
func (r *GormLayoutRepository) ListLanes(ctx context.Context) ([]models.Lane, error) {
	var records []laneRecord
	if err := r.db.WithContext(ctx).Order("id").Find(&records).Error; err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	out := make([]models.Lane, 0, len(records))
	for _, rec := range records {
		out = append(out, rec.toModel())
	}
	return out, nil
}

// CreateLane inserts a lane.
func (r *GormLayoutRepository) CreateLane(ctx context.Context, lane *models.Lane) error {
	record := laneRecord{Direction: string(lane.Direction), Camera: lane.Camera}
	if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
		return err
	}
	lane.ID = record.ID
	lane.CreatedAt = record.CreatedAt.UTC()
	return nil
}
