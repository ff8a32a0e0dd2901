package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"parkingsystem/backend/services/parking-service/internal/models"
)

const defaultWriteTimeout = 10 * time.Second

// Server upgrades HTTP requests to live feed subscriptions. A `plate` query parameter
// narrows the feed to one vehicle.
type Server struct {
	manager      *Manager
	logger       *zap.Logger
	writeTimeout time.Duration
	upgrader     websocket.Upgrader
}

// NewServer builds ws server.
func NewServer(manager *Manager, writeTimeout time.Duration, logger *zap.Logger) *Server {
	if writeTimeout <= 0 {
		writeTimeout = defaultWriteTimeout
	}
	return &Server{
		manager:      manager,
		logger:       logger,
		writeTimeout: writeTimeout,
		upgrader: websocket.Upgrader{
			ReadBufferSize:    512,
			WriteBufferSize:   4096,
			EnableCompression: true,
			// Dashboards are served from other origins.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// HandleWS handles GET /ws/sessions.
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	plate := models.NormalizePlate(r.URL.Query().Get("plate"))

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("live feed upgrade failed", zap.String("remote", r.RemoteAddr), zap.Error(err))
		return
	}

	// Hijacked connections outlive the request context.
	ctx, cancel := context.WithCancel(context.Background())
	conn := NewConnection(uuid.New().String(), ws, s.writeTimeout, s.logger, func(id string) {
		s.manager.Remove(id)
		cancel()
	})
	conn.plate = plate
	s.manager.Add(conn)
	go conn.Start(ctx)

	s.logger.Info("live feed subscriber connected",
		zap.String("conn_id", conn.ID()),
		zap.String("plate_filter", plate),
		zap.Int("subscribers", s.manager.Count()),
	)
}
