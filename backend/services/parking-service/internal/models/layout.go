package models

import (
	"strings"
	"time"
)

// Block is a named area of the facility, usually one floor, with a fixed number of slots.
type Block struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Floor     int64     `db:"floor" json:"floor"`
	Slots     int64     `db:"slots" json:"slots"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// LaneDirection says whether a lane admits or releases vehicles.
type LaneDirection string

// Lane directions.
const (
	LaneEntry LaneDirection = "ENTRY"
	LaneExit  LaneDirection = "EXIT"
)

// ParseLaneDirection accepts either direction case-insensitively.
func ParseLaneDirection(raw string) (LaneDirection, bool) {
	d := LaneDirection(strings.ToUpper(strings.TrimSpace(raw)))
	switch d {
	case LaneEntry, LaneExit:
		return d, true
	}
	return "", false
}

// Lane is a gate with the camera that watches it.
type Lane struct {
	ID        int64         `db:"id" json:"id"`
	Direction LaneDirection `db:"direction" json:"type"`
	Camera    string        `db:"camera" json:"camera"`
	CreatedAt time.Time     `db:"created_at" json:"createdAt"`
}
