package service

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"parkingsystem/backend/services/parking-service/internal/billing"
	"parkingsystem/backend/services/parking-service/internal/events"
	"parkingsystem/backend/services/parking-service/internal/models"
	"parkingsystem/backend/services/parking-service/internal/rates"
	"parkingsystem/backend/services/parking-service/internal/repository"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(t time.Time) *fakeClock {
	return &fakeClock{now: t}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

func newEngine(t *testing.T) *billing.Engine {
	t.Helper()
	table, err := rates.NewTable(nil)
	require.NoError(t, err)
	return billing.NewEngine(table)
}

func newObservedLogger() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return zap.New(core), logs
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.SessionEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, event events.SessionEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) types() []events.Type {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.Type, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

// looseRepo stores sessions without enforcing plate uniqueness, so tests can
// reproduce states that only arise from legacy data.
type looseRepo struct {
	mu        sync.Mutex
	sessions  map[string]models.ParkingSession
	createErr error
	closeErr  error
}

func newLooseRepo(seed ...models.ParkingSession) *looseRepo {
	r := &looseRepo{sessions: make(map[string]models.ParkingSession)}
	for _, s := range seed {
		r.sessions[s.ID] = s
	}
	return r
}

func (r *looseRepo) FindOpenByPlate(_ context.Context, plate string) ([]models.ParkingSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.ParkingSession
	for _, s := range r.sessions {
		if s.LicensePlate == plate && s.IsOpen() {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EntryTime.After(out[j].EntryTime) })
	return out, nil
}

func (r *looseRepo) Create(_ context.Context, s *models.ParkingSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	r.sessions[s.ID] = *s
	return nil
}

func (r *looseRepo) Close(_ context.Context, s *models.ParkingSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closeErr != nil {
		return r.closeErr
	}
	r.sessions[s.ID] = *s
	return nil
}

func (r *looseRepo) FindByID(_ context.Context, id string) (*models.ParkingSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &s, nil
}

func (r *looseRepo) List(context.Context, repository.ListFilter) ([]models.ParkingSession, error) {
	return nil, nil
}

func (r *looseRepo) Counts(context.Context) (repository.SessionCounts, error) {
	return repository.SessionCounts{}, nil
}

func (r *looseRepo) get(id string) models.ParkingSession {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions[id]
}

// stallingPublisher blocks every Publish until unblock is called.
type stallingPublisher struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func newStallingPublisher(t *testing.T) *stallingPublisher {
	p := &stallingPublisher{entered: make(chan struct{}, 1), release: make(chan struct{})}
	t.Cleanup(p.unblock)
	return p
}

func (p *stallingPublisher) Publish(ctx context.Context, _ events.SessionEvent) error {
	select {
	case p.entered <- struct{}{}:
	default:
	}
	select {
	case <-p.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *stallingPublisher) waitEntered(t *testing.T) {
	t.Helper()
	select {
	case <-p.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("publish was never reached")
	}
}

func (p *stallingPublisher) unblock() {
	p.once.Do(func() { close(p.release) })
}
