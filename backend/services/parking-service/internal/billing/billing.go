package billing

import (
	"errors"
	"fmt"
	"time"

	"parkingsystem/backend/services/parking-service/internal/models"
)

const minutesPerHour = 60

var (
	// ErrInvalidInterval is returned when exit precedes entry.
	ErrInvalidInterval = errors.New("billing: exit time precedes entry time")
	// ErrMissingExitTime is returned when no exit time was supplied.
	ErrMissingExitTime = errors.New("billing: exit time missing")
)

// RateLookup resolves the hourly rate for a category.
type RateLookup interface {
	HourlyRate(category models.VehicleCategory) int64
}

// Result is the outcome of a fee computation.
type Result struct {
	DurationMinutes int64 `json:"durationMinutes"`
	BillableHours   int64 `json:"billableHours"`
	HourlyRate      int64 `json:"hourlyRate"`
	Fee             int64 `json:"fee"`
}

// Engine computes parking fees. Every started hour is billed, with a minimum of one hour.
type Engine struct {
	rates RateLookup
}

// NewEngine returns an engine over the given rates.
func NewEngine(rates RateLookup) *Engine {
	return &Engine{rates: rates}
}

// Compute returns duration and fee for a stay. Partial minutes are dropped before
// hours are rounded up.
func (e *Engine) Compute(entry, exit time.Time, category models.VehicleCategory) (Result, error) {
	if exit.IsZero() {
		return Result{}, ErrMissingExitTime
	}
	if exit.Before(entry) {
		return Result{}, fmt.Errorf("%w: entry=%s exit=%s", ErrInvalidInterval,
			entry.Format(time.RFC3339), exit.Format(time.RFC3339))
	}

	minutes := int64(exit.Sub(entry) / time.Minute)
	hours := BillableHours(minutes)
	rate := e.rates.HourlyRate(category)

	return Result{
		DurationMinutes: minutes,
		BillableHours:   hours,
		HourlyRate:      rate,
		Fee:             hours * rate,
	}, nil
}

// BillableHours rounds minutes up to whole hours, never less than one.
func BillableHours(minutes int64) int64 {
	hours := minutes / minutesPerHour
	if minutes%minutesPerHour > 0 {
		hours++
	}
	if hours < 1 {
		hours = 1
	}
	return hours
}
