package events

import (
	"context"
	"errors"
	"time"

	"parkingsystem/backend/services/parking-service/internal/models"
)

// Type names a session lifecycle event.
type Type string

// Lifecycle event types.
const (
	SessionOpened Type = "session.opened"
	SessionClosed Type = "session.closed"
)

// SessionEvent is emitted after a session is opened or closed.
type SessionEvent struct {
	Type          Type                  `json:"type"`
	Session       models.ParkingSession `json:"session"`
	BillableHours int64                 `json:"billableHours,omitempty"`
	OccurredAt    time.Time             `json:"occurredAt"`
}

// Publisher delivers session events to a downstream consumer.
type Publisher interface {
	Publish(ctx context.Context, event SessionEvent) error
}

// Multi fans an event out to every publisher and joins their errors.
type Multi []Publisher

// Publish implements Publisher.
func (m Multi) Publish(ctx context.Context, event SessionEvent) error {
	var errs []error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Nop discards events.
type Nop struct{}

// Publish implements Publisher.
func (Nop) Publish(context.Context, SessionEvent) error { return nil }
