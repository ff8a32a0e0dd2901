package service

import (
	"errors"

	"parkingsystem/backend/services/parking-service/internal/billing"
)

var (
	// ErrInvalidPlate is returned when the plate is empty after normalisation.
	ErrInvalidPlate = errors.New("sessions: license plate is required")
	// ErrDuplicateSession is returned when the plate already has an open session.
	ErrDuplicateSession = errors.New("sessions: vehicle already parked")
	// ErrSessionNotFound is returned when no open session matches.
	ErrSessionNotFound = errors.New("sessions: no open session found")
	// ErrPlateBusy is returned when the plate lock could not be acquired in time.
	ErrPlateBusy = errors.New("sessions: plate is locked by another request")
	// ErrInvalidInterval mirrors the billing defect so callers can match on one package.
	ErrInvalidInterval = billing.ErrInvalidInterval

	// ErrInvalidBlock is returned for a block without a name, with a negative floor or without slots.
	ErrInvalidBlock = errors.New("layout: invalid block")
	// ErrDuplicateBlock is returned when the block name is already taken.
	ErrDuplicateBlock = errors.New("layout: block name already in use")
	// ErrInvalidLane is returned for a lane without a camera or with an unknown direction.
	ErrInvalidLane = errors.New("layout: invalid lane")
)
