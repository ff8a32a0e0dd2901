package models

import (
	"strings"
	"time"

	"gopkg.in/guregu/null.v4"
)

// ParkingSession is one stay of a vehicle in the facility. An empty ExitTime means
// the vehicle is still parked.
type ParkingSession struct {
	ID              string          `db:"id" json:"id"`
	LicensePlate    string          `db:"license_plate" json:"licensePlate"`
	VehicleType     VehicleCategory `db:"vehicle_type" json:"vehicleType"`
	EntryTime       time.Time       `db:"entry_time" json:"entryTime"`
	ExitTime        null.Time       `db:"exit_time" json:"exitTime"`
	DurationMinutes null.Int        `db:"duration_minutes" json:"durationMinutes"`
	Fee             null.Int        `db:"fee" json:"fee"`
	Floor           null.Int        `db:"floor" json:"floor"`
	Slot            null.Int        `db:"slot" json:"slot"`
	Confidence      null.Float      `db:"confidence" json:"confidence"`
	DetectionMethod null.String     `db:"detection_method" json:"detectionMethod"`
	CreatedAt       time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updatedAt"`
}

// IsOpen reports whether the session has not been closed yet.
func (s ParkingSession) IsOpen() bool {
	return !s.ExitTime.Valid
}

// NormalizePlate trims and upper-cases a license plate.
func NormalizePlate(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}
