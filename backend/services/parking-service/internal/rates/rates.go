package rates

import (
	"errors"
	"fmt"

	"parkingsystem/backend/services/parking-service/internal/models"
)

// Default hourly rates in VND.
const (
	DefaultCarRate        int64 = 10000
	DefaultMotorcycleRate int64 = 5000
	DefaultBicycleRate    int64 = 2000
	DefaultTruckRate      int64 = 15000
)

var (
	// ErrInvalidRate is returned when a configured rate is zero or negative.
	ErrInvalidRate = errors.New("rates: hourly rate must be positive")
	// ErrUnknownCategory is returned when a rate is configured for a category outside the closed set.
	ErrUnknownCategory = errors.New("rates: unknown vehicle category")
)

// Table maps vehicle categories to hourly rates. It is immutable once built.
type Table struct {
	rates map[models.VehicleCategory]int64
}

// Defaults returns the standard rate set.
func Defaults() map[models.VehicleCategory]int64 {
	return map[models.VehicleCategory]int64{
		models.CategoryCar:        DefaultCarRate,
		models.CategoryMotorcycle: DefaultMotorcycleRate,
		models.CategoryBicycle:    DefaultBicycleRate,
		models.CategoryTruck:      DefaultTruckRate,
	}
}

// NewTable builds a table from overrides layered on top of Defaults.
func NewTable(overrides map[models.VehicleCategory]int64) (*Table, error) {
	rates := Defaults()
	for category, rate := range overrides {
		if !category.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrUnknownCategory, category)
		}
		if rate <= 0 {
			return nil, fmt.Errorf("%w: %s=%d", ErrInvalidRate, category, rate)
		}
		rates[category] = rate
	}
	return &Table{rates: rates}, nil
}

// HourlyRate returns the rate for category, falling back to the car rate.
func (t *Table) HourlyRate(category models.VehicleCategory) int64 {
	if rate, ok := t.rates[category]; ok {
		return rate
	}
	return t.rates[models.DefaultCategory]
}

// All returns a copy of every configured rate.
func (t *Table) All() map[models.VehicleCategory]int64 {
	out := make(map[models.VehicleCategory]int64, len(t.rates))
	for k, v := range t.rates {
		out[k] = v
	}
	return out
}
