package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/guregu/null.v4"
)

func TestParseVehicleCategory(t *testing.T) {
	cases := []struct {
		raw  string
		want VehicleCategory
		ok   bool
	}{
		{"car", CategoryCar, true},
		{" Motorcycle ", CategoryMotorcycle, true},
		{"BICYCLE", CategoryBicycle, true},
		{"truck", CategoryTruck, true},
		{"", CategoryCar, false},
		{"bus", CategoryCar, false},
	}
	for _, tc := range cases {
		got, ok := ParseVehicleCategory(tc.raw)
		assert.Equal(t, tc.want, got, tc.raw)
		assert.Equal(t, tc.ok, ok, tc.raw)
	}
}

func TestNormalizePlate(t *testing.T) {
	assert.Equal(t, "51F-12345", NormalizePlate("  51f-12345\n"))
	assert.Equal(t, "", NormalizePlate("   "))
}

func TestParkingSessionJSONShape(t *testing.T) {
	entry := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	s := ParkingSession{
		ID:           "abc",
		LicensePlate: "51F-12345",
		VehicleType:  CategoryMotorcycle,
		EntryTime:    entry,
		Floor:        null.IntFrom(2),
	}
	assert.True(t, s.IsOpen())

	raw, err := json.Marshal(s)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "51F-12345", decoded["licensePlate"])
	assert.Equal(t, "MOTORCYCLE", decoded["vehicleType"])
	assert.Nil(t, decoded["exitTime"])
	assert.Nil(t, decoded["fee"])
	assert.EqualValues(t, 2, decoded["floor"])

	s.ExitTime = null.TimeFrom(entry.Add(time.Hour))
	assert.False(t, s.IsOpen())
}

func TestIsOpenOnStoredValues(t *testing.T) {
	byID := map[string]ParkingSession{
		"open":   {ID: "open"},
		"closed": {ID: "closed", ExitTime: null.TimeFrom(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC))},
	}
	assert.True(t, byID["open"].IsOpen())
	assert.False(t, byID["closed"].IsOpen())
}

func TestParseLaneDirection(t *testing.T) {
	d, ok := ParseLaneDirection(" entry ")
	assert.True(t, ok)
	assert.Equal(t, LaneEntry, d)

	d, ok = ParseLaneDirection("EXIT")
	assert.True(t, ok)
	assert.Equal(t, LaneExit, d)

	_, ok = ParseLaneDirection("sideways")
	assert.False(t, ok)
}
