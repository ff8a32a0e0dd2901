package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"parkingsystem/backend/services/parking-service/internal/models"
)

const pgUniqueViolation = "23505"

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS parking_sessions (
		id               TEXT PRIMARY KEY,
		license_plate    TEXT NOT NULL,
		vehicle_type     TEXT NOT NULL,
		entry_time       TIMESTAMPTZ NOT NULL,
		exit_time        TIMESTAMPTZ NULL,
		duration_minutes BIGINT NULL,
		fee              BIGINT NULL,
		floor            INTEGER NULL,
		slot             INTEGER NULL,
		confidence       DOUBLE PRECISION NULL,
		detection_method TEXT NULL,
		created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT parking_sessions_interval_chk CHECK (exit_time IS NULL OR exit_time >= entry_time)
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS parking_sessions_open_plate_uidx
		ON parking_sessions (license_plate) WHERE exit_time IS NULL`,
	`CREATE INDEX IF NOT EXISTS parking_sessions_plate_entry_idx
		ON parking_sessions (license_plate, entry_time DESC)`,
}

const sessionColumns = `id, license_plate, vehicle_type, entry_time, exit_time, duration_minutes, fee,
	floor, slot, confidence, detection_method, created_at, updated_at`

// PostgresSessionRepository stores sessions in Postgres through database/sql.
type PostgresSessionRepository struct {
	db *sql.DB
}

// NewPostgresSessionRepository returns repository.
func NewPostgresSessionRepository(db *sql.DB) *PostgresSessionRepository {
	return &PostgresSessionRepository{db: db}
}

// Migrate creates the table and indexes when missing.
func (r *PostgresSessionRepository) Migrate(ctx context.Context) error {
	for _, stmt := range postgresSchema {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("repository: migrate: %w", err)
		}
	}
	return nil
}

// FindOpenByPlate returns open sessions for plate ordered by entry time desc.
func (r *PostgresSessionRepository) FindOpenByPlate(ctx context.Context, plate string) ([]models.ParkingSession, error) {
	const query = `
		SELECT ` + sessionColumns + `
		FROM parking_sessions
		WHERE license_plate = $1 AND exit_time IS NULL
		ORDER BY entry_time DESC, id DESC
	`
	return r.querySessions(ctx, query, plate)
}

// Create inserts a new open session.
func (r *PostgresSessionRepository) Create(ctx context.Context, session *models.ParkingSession) error {
	const query = `
		INSERT INTO parking_sessions (id, license_plate, vehicle_type, entry_time, floor, slot, confidence, detection_method, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		session.ID,
		session.LicensePlate,
		string(session.VehicleType),
		session.EntryTime,
		session.Floor,
		session.Slot,
		session.Confidence,
		session.DetectionMethod,
	).Scan(&session.CreatedAt, &session.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return fmt.Errorf("%w: %s", ErrOpenSessionExists, session.LicensePlate)
		}
		return err
	}
	return nil
}

// Close finalizes the session only while it is still open.
func (r *PostgresSessionRepository) Close(ctx context.Context, session *models.ParkingSession) error {
	const query = `
		UPDATE parking_sessions
		SET exit_time = $2,
		    duration_minutes = $3,
		    fee = $4,
		    updated_at = NOW()
		WHERE id = $1 AND exit_time IS NULL
		RETURNING updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		session.ID,
		session.ExitTime,
		session.DurationMinutes,
		session.Fee,
	).Scan(&session.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return r.missingOrClosed(ctx, session.ID)
	}
	return err
}

func (r *PostgresSessionRepository) missingOrClosed(ctx context.Context, id string) error {
	const query = `SELECT EXISTS (SELECT 1 FROM parking_sessions WHERE id = $1)`
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&exists); err != nil {
		return err
	}
	if exists {
		return ErrAlreadyClosed
	}
	return ErrNotFound
}

// FindByID loads a single session.
func (r *PostgresSessionRepository) FindByID(ctx context.Context, id string) (*models.ParkingSession, error) {
	const query = `SELECT ` + sessionColumns + ` FROM parking_sessions WHERE id = $1`
	session, err := scanSession(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// List returns sessions matching filter, newest entry first.
func (r *PostgresSessionRepository) List(ctx context.Context, filter ListFilter) ([]models.ParkingSession, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter.Open != nil {
		if *filter.Open {
			where = append(where, "exit_time IS NULL")
		} else {
			where = append(where, "exit_time IS NOT NULL")
		}
	}
	if filter.Plate != "" {
		args = append(args, filter.Plate)
		where = append(where, fmt.Sprintf("license_plate = $%d", len(args)))
	}
	args = append(args, filter.limit())

	var b strings.Builder
	b.WriteString("SELECT " + sessionColumns + " FROM parking_sessions")
	if len(where) > 0 {
		b.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	fmt.Fprintf(&b, " ORDER BY entry_time DESC, id DESC LIMIT $%d", len(args))

	return r.querySessions(ctx, b.String(), args...)
}

// Counts returns totals and open sessions per category.
func (r *PostgresSessionRepository) Counts(ctx context.Context) (SessionCounts, error) {
	const totals = `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE exit_time IS NULL)
		FROM parking_sessions
	`
	const byCategory = `
		SELECT vehicle_type, COUNT(*)
		FROM parking_sessions
		WHERE exit_time IS NULL
		GROUP BY vehicle_type
	`

	counts := SessionCounts{OpenByCategory: make(map[models.VehicleCategory]int64)}
	if err := r.db.QueryRowContext(ctx, totals).Scan(&counts.Total, &counts.Open); err != nil {
		return SessionCounts{}, err
	}

	rows, err := r.db.QueryContext(ctx, byCategory)
	if err != nil {
		return SessionCounts{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			category string
			n        int64
		)
		if err := rows.Scan(&category, &n); err != nil {
			return SessionCounts{}, err
		}
		counts.OpenByCategory[models.VehicleCategory(category)] = n
	}
	if err := rows.Err(); err != nil {
		return SessionCounts{}, err
	}
	return counts, nil
}

func (r *PostgresSessionRepository) querySessions(ctx context.Context, query string, args ...interface{}) ([]models.ParkingSession, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []models.ParkingSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sessions, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSession(row rowScanner) (models.ParkingSession, error) {
	var (
		s        models.ParkingSession
		category string
	)
	err := row.Scan(
		&s.ID,
		&s.LicensePlate,
		&category,
		&s.EntryTime,
		&s.ExitTime,
		&s.DurationMinutes,
		&s.Fee,
		&s.Floor,
		&s.Slot,
		&s.Confidence,
		&s.DetectionMethod,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	s.VehicleType = models.VehicleCategory(category)
	return s, err
}
