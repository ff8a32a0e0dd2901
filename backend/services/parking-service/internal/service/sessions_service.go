package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gopkg.in/guregu/null.v4"

	"parkingsystem/backend/services/parking-service/internal/billing"
	"parkingsystem/backend/services/parking-service/internal/events"
	"parkingsystem/backend/services/parking-service/internal/models"
	"parkingsystem/backend/services/parking-service/internal/repository"
)

const defaultLockWait = 5 * time.Second

// FeeCalculator prices a finished stay.
type FeeCalculator interface {
	Compute(entry, exit time.Time, category models.VehicleCategory) (billing.Result, error)
}

// SessionsService owns the parking session lifecycle: at most one open session per plate,
// a single terminal close, and the fee computed at that close.
type SessionsService struct {
	repo      repository.SessionRepository
	fees      FeeCalculator
	locker    PlateLocker
	publisher events.Publisher
	logger    *zap.Logger
	lockWait  time.Duration
	now       func() time.Time
	newID     func() string
}

// Option customizes SessionsService.
type Option func(*SessionsService)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *SessionsService) { s.now = now }
}

// WithPublisher sets where lifecycle events go.
func WithPublisher(p events.Publisher) Option {
	return func(s *SessionsService) { s.publisher = p }
}

// WithLockWait bounds how long an operation waits for the plate lock.
func WithLockWait(d time.Duration) Option {
	return func(s *SessionsService) {
		if d > 0 {
			s.lockWait = d
		}
	}
}

// OpenSessionInput describes a vehicle entering the facility.
type OpenSessionInput struct {
	Plate           string
	Category        models.VehicleCategory
	Floor           null.Int
	Slot            null.Int
	Confidence      null.Float
	DetectionMethod null.String
}

// CloseResult is returned by a successful close.
type CloseResult struct {
	Session models.ParkingSession
	Billing billing.Result
	// Anomalies lists ids of other open sessions for the same plate that were left open.
	Anomalies []string
}

// NewSessionsService builds service.
func NewSessionsService(
	repo repository.SessionRepository,
	fees FeeCalculator,
	locker PlateLocker,
	logger *zap.Logger,
	opts ...Option,
) *SessionsService {
	s := &SessionsService{
		repo:      repo,
		fees:      fees,
		locker:    locker,
		publisher: events.Nop{},
		logger:    logger,
		lockWait:  defaultLockWait,
		now:       func() time.Time { return time.Now().UTC() },
		newID:     func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open registers a vehicle entry.
func (s *SessionsService) Open(ctx context.Context, input OpenSessionInput) (*models.ParkingSession, error) {
	plate := models.NormalizePlate(input.Plate)
	if plate == "" {
		return nil, ErrInvalidPlate
	}
	category := input.Category
	if !category.Valid() {
		s.logger.Warn("unknown vehicle category, using default",
			zap.String("plate", plate),
			zap.String("category", string(input.Category)),
			zap.String("default", string(models.DefaultCategory)),
		)
		category = models.DefaultCategory
	}

	session, err := s.create(ctx, plate, category, input)
	if err != nil {
		return nil, err
	}

	s.logger.Info("parking session opened",
		zap.String("session_id", session.ID),
		zap.String("plate", plate),
		zap.String("category", string(category)),
	)
	s.publish(ctx, events.SessionEvent{Type: events.SessionOpened, Session: *session, OccurredAt: session.EntryTime})
	return session, nil
}

// create runs the duplicate check and insert under the plate lock. Events are published
// by the caller once the lock is released.
func (s *SessionsService) create(
	ctx context.Context,
	plate string,
	category models.VehicleCategory,
	input OpenSessionInput,
) (*models.ParkingSession, error) {
	unlock, err := s.lockPlate(ctx, plate)
	if err != nil {
		return nil, err
	}
	defer unlock()

	open, err := s.repo.FindOpenByPlate(ctx, plate)
	if err != nil {
		return nil, err
	}
	if len(open) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateSession, plate)
	}

	session := &models.ParkingSession{
		ID:              s.newID(),
		LicensePlate:    plate,
		VehicleType:     category,
		EntryTime:       s.now().UTC(),
		Floor:           input.Floor,
		Slot:            input.Slot,
		Confidence:      input.Confidence,
		DetectionMethod: input.DetectionMethod,
	}
	if err := s.repo.Create(ctx, session); err != nil {
		if errors.Is(err, repository.ErrOpenSessionExists) {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateSession, plate)
		}
		return nil, err
	}
	return session, nil
}

// Close registers the exit of the vehicle with the given plate. When several sessions are
// open for the plate only the most recent one is closed and the rest are reported.
func (s *SessionsService) Close(ctx context.Context, plate string) (*CloseResult, error) {
	plate = models.NormalizePlate(plate)
	if plate == "" {
		return nil, ErrInvalidPlate
	}

	result, err := s.closeLatest(ctx, plate)
	if err != nil {
		return nil, err
	}
	s.publishClosed(ctx, result)
	return result, nil
}

// CloseByID closes one specific open session.
func (s *SessionsService) CloseByID(ctx context.Context, id string) (*CloseResult, error) {
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: id %s", ErrSessionNotFound, id)
		}
		return nil, err
	}

	result, err := s.closeOne(ctx, existing.LicensePlate, id)
	if err != nil {
		return nil, err
	}
	s.publishClosed(ctx, result)
	return result, nil
}

func (s *SessionsService) closeLatest(ctx context.Context, plate string) (*CloseResult, error) {
	unlock, err := s.lockPlate(ctx, plate)
	if err != nil {
		return nil, err
	}
	defer unlock()

	open, err := s.repo.FindOpenByPlate(ctx, plate)
	if err != nil {
		return nil, err
	}
	if len(open) == 0 {
		return nil, fmt.Errorf("%w: plate %s", ErrSessionNotFound, plate)
	}

	var anomalies []string
	if len(open) > 1 {
		for _, other := range open[1:] {
			anomalies = append(anomalies, other.ID)
		}
		s.logger.Warn("multiple open sessions for plate, closing most recent",
			zap.String("plate", plate),
			zap.String("closing_session_id", open[0].ID),
			zap.Strings("left_open", anomalies),
		)
	}

	result, err := s.finish(ctx, open[0])
	if err != nil {
		return nil, err
	}
	result.Anomalies = anomalies
	return result, nil
}

// closeOne re-reads the session under the plate lock so a concurrent close is seen.
func (s *SessionsService) closeOne(ctx context.Context, plate, id string) (*CloseResult, error) {
	unlock, err := s.lockPlate(ctx, plate)
	if err != nil {
		return nil, err
	}
	defer unlock()

	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: id %s", ErrSessionNotFound, id)
		}
		return nil, err
	}
	if !current.IsOpen() {
		return nil, fmt.Errorf("%w: id %s already closed", ErrSessionNotFound, id)
	}
	return s.finish(ctx, *current)
}

// Get returns one session by id.
func (s *SessionsService) Get(ctx context.Context, id string) (*models.ParkingSession, error) {
	session, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: id %s", ErrSessionNotFound, id)
	}
	return session, err
}

// List returns sessions matching filter.
func (s *SessionsService) List(ctx context.Context, filter repository.ListFilter) ([]models.ParkingSession, error) {
	filter.Plate = models.NormalizePlate(filter.Plate)
	return s.repo.List(ctx, filter)
}

// CurrentlyParked returns open sessions, newest first.
func (s *SessionsService) CurrentlyParked(ctx context.Context, limit int) ([]models.ParkingSession, error) {
	open := true
	return s.repo.List(ctx, repository.ListFilter{Open: &open, Limit: limit})
}

func (s *SessionsService) finish(ctx context.Context, session models.ParkingSession) (*CloseResult, error) {
	exit := s.now().UTC()
	bill, err := s.fees.Compute(session.EntryTime, exit, session.VehicleType)
	if err != nil {
		s.logger.Error("refusing to bill session with invalid interval",
			zap.String("session_id", session.ID),
			zap.String("plate", session.LicensePlate),
			zap.Time("entry_time", session.EntryTime),
			zap.Time("exit_time", exit),
			zap.Error(err),
		)
		return nil, err
	}

	session.ExitTime = null.TimeFrom(exit)
	session.DurationMinutes = null.IntFrom(bill.DurationMinutes)
	session.Fee = null.IntFrom(bill.Fee)

	if err := s.repo.Close(ctx, &session); err != nil {
		if errors.Is(err, repository.ErrAlreadyClosed) || errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: id %s", ErrSessionNotFound, session.ID)
		}
		return nil, err
	}

	s.logger.Info("parking session closed",
		zap.String("session_id", session.ID),
		zap.String("plate", session.LicensePlate),
		zap.Int64("duration_minutes", bill.DurationMinutes),
		zap.Int64("billable_hours", bill.BillableHours),
		zap.Int64("fee", bill.Fee),
	)
	return &CloseResult{Session: session, Billing: bill}, nil
}

func (s *SessionsService) publishClosed(ctx context.Context, result *CloseResult) {
	s.publish(ctx, events.SessionEvent{
		Type:          events.SessionClosed,
		Session:       result.Session,
		BillableHours: result.Billing.BillableHours,
		OccurredAt:    result.Session.ExitTime.Time,
	})
}

func (s *SessionsService) lockPlate(ctx context.Context, plate string) (func(), error) {
	lockCtx, cancel := context.WithTimeout(ctx, s.lockWait)
	defer cancel()

	unlock, err := s.locker.Lock(lockCtx, plate)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %s", ErrPlateBusy, plate)
		}
		return nil, err
	}
	return unlock, nil
}

func (s *SessionsService) publish(ctx context.Context, event events.SessionEvent) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish session event",
			zap.String("type", string(event.Type)),
			zap.String("session_id", event.Session.ID),
			zap.Error(err),
		)
	}
}
