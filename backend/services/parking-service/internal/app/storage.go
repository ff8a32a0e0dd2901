package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	libdb "parkingsystem/backend/libs/db"
	"parkingsystem/backend/services/parking-service/internal/config"
	"parkingsystem/backend/services/parking-service/internal/repository"
)

type migrator interface {
	Migrate(ctx context.Context) error
}

// storage is the opened session and layout repositories plus the handle that must be
// released with them.
type storage struct {
	repo   repository.SessionRepository
	layout repository.LayoutRepository
	close  func() error
}

func (s *storage) migrate(ctx context.Context) error {
	for _, r := range []interface{}{s.repo, s.layout} {
		if m, ok := r.(migrator); ok {
			if err := m.Migrate(ctx); err != nil {
				return err
			}
		}
	}
	return nil
}

func openStorage(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*storage, error) {
	switch cfg.Storage.Driver {
	case config.StoragePostgres:
		sqlDB, err := libdb.NewPostgresDB(ctx, cfg.Database.DSN, "parking-service", libdb.DefaultPoolOptions())
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		logger.Info("using postgres storage")
		return &storage{
			repo:   repository.NewPostgresSessionRepository(sqlDB),
			layout: repository.NewPostgresLayoutRepository(sqlDB),
			close:  sqlDB.Close,
		}, nil
	case config.StorageSQLite:
		gdb, err := libdb.NewSQLiteDB(cfg.SQLite.Path)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		sqlDB, err := gdb.DB()
		if err != nil {
			return nil, err
		}
		logger.Info("using sqlite storage", zap.String("path", cfg.SQLite.Path))
		return &storage{
			repo:   repository.NewGormSessionRepository(gdb),
			layout: repository.NewGormLayoutRepository(gdb),
			close:  sqlDB.Close,
		}, nil
	case config.StorageMemory:
		logger.Warn("using in-memory storage, sessions are lost on restart")
		return &storage{
			repo:   repository.NewMemorySessionRepository(),
			layout: repository.NewMemoryLayoutRepository(),
			close:  func() error { return nil },
		}, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

// Migrate applies the session and layout schema for the configured storage driver.
func Migrate(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	store, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return err
	}
	return migrateAndClose(ctx, store, cfg.Storage.Driver, logger)
}

func migrateAndClose(ctx context.Context, store *storage, driver string, logger *zap.Logger) error {
	defer func() {
		if err := store.close(); err != nil {
			logger.Warn("failed to close storage", zap.Error(err))
		}
	}()

	if err := store.migrate(ctx); err != nil {
		return fmt.Errorf("migrate %s: %w", driver, err)
	}
	logger.Info("schema migrated", zap.String("driver", driver))
	return nil
}
