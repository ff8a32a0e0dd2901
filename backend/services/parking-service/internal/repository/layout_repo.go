package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"parkingsystem/backend/services/parking-service/internal/models"
)

var postgresLayoutSchema = []string{
	`CREATE TABLE IF NOT EXISTS parking_blocks (
		id         BIGSERIAL PRIMARY KEY,
		name       TEXT NOT NULL,
		floor      BIGINT NOT NULL,
		slots      BIGINT NOT NULL CHECK (slots > 0),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS parking_blocks_name_uidx ON parking_blocks (name)`,
	`CREATE TABLE IF NOT EXISTS parking_lanes (
		id         BIGSERIAL PRIMARY KEY,
		direction  TEXT NOT NULL,
		camera     TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

// PostgresLayoutRepository stores the facility layout in Postgres.
type PostgresLayoutRepository struct {
	db *sql.DB
}

// NewPostgresLayoutRepository returns repository.
func NewPostgresLayoutRepository(db *sql.DB) *PostgresLayoutRepository {
	return &PostgresLayoutRepository{db: db}
}

// Migrate creates the block and lane tables when missing.
func (r *PostgresLayoutRepository) Migrate(ctx context.Context) error {
	for _, stmt := range postgresLayoutSchema {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("repository: migrate layout: %w", err)
		}
	}
	return nil
}

// ListBlocks returns blocks ordered by floor, then id.
func (r *PostgresLayoutRepository) ListBlocks(ctx context.Context) ([]models.Block, error) {
	const query = `SELECT id, name, floor, slots, created_at FROM parking_blocks ORDER BY floor, id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var blocks []models.Block
	for rows.Next() {
		var b models.Block
		if err := rows.Scan(&b.ID, &b.Name, &b.Floor, &b.Slots, &b.CreatedAt); err != nil {
			return nil, err
		}
		blocks = append(blocks, b)
	}
	return blocks, rows.Err()
}

// CreateBlock inserts a block.
func (r *PostgresLayoutRepository) CreateBlock(ctx context.Context, block *models.Block) error {
	const query = `
		INSERT INTO parking_blocks (name, floor, slots)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`
	err := r.db.QueryRowContext(ctx, query, block.Name, block.Floor, block.Slots).Scan(&block.ID, &block.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return fmt.Errorf("%w: %s", ErrBlockExists, block.Name)
		}
		return err
	}
	return nil
}

// TotalSlots sums slots over all blocks.
func (r *PostgresLayoutRepository) TotalSlots(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(slots), 0) FROM parking_blocks`).Scan(&total)
	return total, err
}

// ListLanes returns lanes in creation order.
func (r *PostgresLayoutRepository) ListLanes(ctx context.Context) ([]models.Lane, error) {
	const query = `SELECT id, direction, camera, created_at FROM parking_lanes ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lanes []models.Lane
	for rows.Next() {
		var (
			l         models.Lane
			direction string
		)
		if err := rows.Scan(&l.ID, &direction, &l.Camera, &l.CreatedAt); err != nil {
			return nil, err
		}
		l.Direction = models.LaneDirection(direction)
		lanes = append(lanes, l)
	}
	return lanes, rows.Err()
}

// CreateLane inserts a lane.
func (r *PostgresLayoutRepository) CreateLane(ctx context.Context, lane *models.Lane) error {
	const query = `
		INSERT INTO parking_lanes (direction, camera)
		VALUES ($1, $2)
		RETURNING id, created_at
	`
	return r.db.QueryRowContext(ctx, query, string(lane.Direction), lane.Camera).Scan(&lane.ID, &lane.CreatedAt)
}
