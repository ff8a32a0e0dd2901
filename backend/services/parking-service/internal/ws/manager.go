package ws

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"parkingsystem/backend/services/parking-service/internal/events"
)

// Manager tracks live feed subscribers and fans session events out to them.
type Manager struct {
	mu          sync.RWMutex
	connections map[string]*Connection
	logger      *zap.Logger
}

// NewManager builds connection manager.
func NewManager(logger *zap.Logger) *Manager {
	return &Manager{
		connections: make(map[string]*Connection),
		logger:      logger,
	}
}

// Add registers new connection.
func (m *Manager) Add(conn *Connection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connections[conn.ID()] = conn
}

// Remove removes connection.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.connections, id)
}

// Count returns number of subscribers.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.connections)
}

// Publish implements events.Publisher. Slow subscribers drop messages.
func (m *Manager) Publish(_ context.Context, event events.SessionEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, conn := range m.connections {
		if conn.Wants(event.Session.LicensePlate) {
			conn.Send(payload)
		}
	}
	return nil
}

// Run blocks until ctx is done and then disconnects every subscriber.
func (m *Manager) Run(ctx context.Context) error {
	<-ctx.Done()

	m.mu.RLock()
	conns := make([]*Connection, 0, len(m.connections))
	for _, conn := range m.connections {
		conns = append(conns, conn)
	}
	m.mu.RUnlock()

	for _, conn := range conns {
		conn.Close()
	}
	m.logger.Info("live feed stopped", zap.Int("disconnected", len(conns)))
	return nil
}
