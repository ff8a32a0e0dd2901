package app

import (
	"context"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	libredis "parkingsystem/backend/libs/redis"
	"parkingsystem/backend/services/parking-service/internal/billing"
	"parkingsystem/backend/services/parking-service/internal/clients"
	"parkingsystem/backend/services/parking-service/internal/config"
	"parkingsystem/backend/services/parking-service/internal/events"
	httpserver "parkingsystem/backend/services/parking-service/internal/http"
	"parkingsystem/backend/services/parking-service/internal/http/handlers"
	"parkingsystem/backend/services/parking-service/internal/http/middleware"
	"parkingsystem/backend/services/parking-service/internal/rates"
	redisstore "parkingsystem/backend/services/parking-service/internal/redis"
	"parkingsystem/backend/services/parking-service/internal/service"
	"parkingsystem/backend/services/parking-service/internal/ws"
)

const wsWriteTimeout = 10 * time.Second

// App wires parking-service dependencies.
type App struct {
	server      *httpserver.Server
	handler     http.Handler
	hub         *ws.Manager
	storage     *storage
	redisClient *redis.Client
	kafka       *events.KafkaPublisher
	cache       *clients.CachedDetector
	logger      *zap.Logger
}

// New constructs the application graph and applies the storage schema.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (_ *App, err error) {
	a := &App{logger: logger}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	a.storage, err = openStorage(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	if err = a.storage.migrate(ctx); err != nil {
		return nil, err
	}

	var locker service.PlateLocker = service.NewKeyedLocker()
	if cfg.DistributedLocks() {
		a.redisClient, err = libredis.NewRedisClient(ctx, libredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, err
		}
		locker = redisstore.NewPlateLocker(a.redisClient, cfg.LockTTL(), logger)
	}

	table, err := rates.NewTable(cfg.RateOverrides())
	if err != nil {
		return nil, err
	}

	a.hub = ws.NewManager(logger)
	publishers := events.Multi{a.hub}
	if len(cfg.Kafka.Brokers) > 0 {
		a.kafka, err = events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			return nil, err
		}
		publishers = append(publishers, a.kafka)
	}

	detector, health, err := a.newDetector(ctx, cfg)
	if err != nil {
		return nil, err
	}

	sessionsService := service.NewSessionsService(a.storage.repo, billing.NewEngine(table), locker, logger,
		service.WithPublisher(publishers),
		service.WithLockWait(cfg.LockWait()),
	)
	layoutService := service.NewLayoutService(a.storage.layout, logger)
	if err = layoutService.SeedBlocks(ctx, cfg.Facility.Floors, cfg.Facility.SlotsPerFloor); err != nil {
		return nil, err
	}
	var capacity service.CapacitySource = layoutService
	if cfg.Facility.Capacity > 0 {
		capacity = service.FixedCapacity(cfg.Facility.Capacity)
	}
	dashboardService := service.NewDashboardService(a.storage.repo, capacity)

	sessionsHandler := handlers.NewSessionsHandler(sessionsService, logger)
	cameraHandler := handlers.NewCameraHandler(sessionsHandler, detector, health, logger)
	layoutHandler := handlers.NewLayoutHandler(layoutService, logger)
	wsServer := ws.NewServer(a.hub, wsWriteTimeout, logger)

	routes := httpserver.Routes{
		OpenSession:    sessionsHandler.HandleOpen,
		ListSessions:   sessionsHandler.HandleList,
		GetSession:     sessionsHandler.HandleGet,
		ExitByPlate:    sessionsHandler.HandleExitByPlate,
		ExitByID:       sessionsHandler.HandleExitByID,
		Statistics:     handlers.NewStatisticsHandler(dashboardService, logger),
		CurrentParking: handlers.NewCurrentParkingHandler(sessionsService, logger),
		CameraDetect:   cameraHandler.HandleDetect,
		CameraEntry:    cameraHandler.HandleEntry,
		CameraExit:     cameraHandler.HandleExit,
		AIHealth:       cameraHandler.HandleAIHealth,
		SessionsFeed:   wsServer.HandleWS,
		ListBlocks:     layoutHandler.HandleListBlocks,
		CreateBlock:    layoutHandler.HandleCreateBlock,
		ListLanes:      layoutHandler.HandleListLanes,
		CreateLane:     layoutHandler.HandleCreateLane,
		Health:         handlers.NewHealthHandler(),
	}

	a.handler = middleware.Chain(httpserver.NewRouter(routes),
		middleware.RequestID(),
		middleware.Logging(logger),
		middleware.Recovery(logger),
	)
	a.server = httpserver.NewServer(cfg.HTTPAddress(), a.handler, logger)

	logger.Info("parking service configured",
		zap.String("storage", cfg.Storage.Driver),
		zap.Bool("distributed_locks", cfg.DistributedLocks()),
		zap.String("recognition", cfg.Recognition.Provider),
		zap.Int64("configured_capacity", cfg.Facility.Capacity),
		zap.Strings("kafka_brokers", cfg.Kafka.Brokers),
	)
	return a, nil
}

func (a *App) newDetector(ctx context.Context, cfg *config.Config) (clients.PlateDetector, clients.HealthChecker, error) {
	var (
		detector clients.PlateDetector
		health   clients.HealthChecker
	)
	switch cfg.Recognition.Provider {
	case config.RecognitionHTTP:
		base := clients.NewBaseClient(cfg.Recognition.URL, clients.NewHTTPClient(cfg.RecognitionTimeout()))
		client := clients.NewRecognitionClient(base)
		detector, health = client, client
	case config.RecognitionRekognition:
		rek, err := clients.NewRekognitionDetector(ctx, cfg.Recognition.AWSRegion, cfg.Recognition.MinConfidence)
		if err != nil {
			return nil, nil, err
		}
		detector = rek
	default:
		return clients.DisabledDetector{}, nil, nil
	}

	if ttl := cfg.RecognitionCacheTTL(); ttl > 0 {
		cached, err := clients.NewCachedDetector(ctx, detector, ttl, a.logger)
		if err != nil {
			return nil, nil, err
		}
		a.cache = cached
		detector = cached
	}
	return detector, health, nil
}

// Handler exposes the fully wrapped HTTP handler.
func (a *App) Handler() http.Handler {
	return a.handler
}

// Run starts the HTTP server and websocket hub and blocks until ctx is done or either fails.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.hub.Run(ctx) })
	g.Go(func() error { return a.server.Run(ctx) })
	return g.Wait()
}

// Close releases resources.
func (a *App) Close() {
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.logger.Warn("failed to close detection cache", zap.Error(err))
		}
	}
	if a.kafka != nil {
		if err := a.kafka.Close(); err != nil {
			a.logger.Warn("failed to close kafka writer", zap.Error(err))
		}
	}
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warn("failed to close redis", zap.Error(err))
		}
	}
	if a.storage != nil {
		if err := a.storage.close(); err != nil {
			a.logger.Warn("failed to close storage", zap.Error(err))
		}
	}
}
