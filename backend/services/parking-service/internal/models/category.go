package models

import "strings"

// VehicleCategory classifies a vehicle for billing.
type VehicleCategory string

// Supported vehicle categories.
const (
	CategoryCar        VehicleCategory = "CAR"
	CategoryMotorcycle VehicleCategory = "MOTORCYCLE"
	CategoryBicycle    VehicleCategory = "BICYCLE"
	CategoryTruck      VehicleCategory = "TRUCK"
)

// DefaultCategory is used when a caller sends nothing or something unrecognised.
const DefaultCategory = CategoryCar

// Categories returns every supported category in a stable order.
func Categories() []VehicleCategory {
	return []VehicleCategory{CategoryCar, CategoryMotorcycle, CategoryBicycle, CategoryTruck}
}

// Valid reports whether c belongs to the closed category set.
func (c VehicleCategory) Valid() bool {
	switch c {
	case CategoryCar, CategoryMotorcycle, CategoryBicycle, CategoryTruck:
		return true
	}
	return false
}

// ParseVehicleCategory maps free-form input onto a category, case-insensitively.
// Unknown or empty input yields DefaultCategory with ok=false.
func ParseVehicleCategory(raw string) (VehicleCategory, bool) {
	c := VehicleCategory(strings.ToUpper(strings.TrimSpace(raw)))
	if !c.Valid() {
		return DefaultCategory, false
	}
	return c, true
}
