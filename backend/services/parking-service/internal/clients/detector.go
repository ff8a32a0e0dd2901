package clients

import (
	"context"
	"errors"
)

var (
	// ErrUpstreamUnavailable is returned when the recognition backend cannot be reached or fails.
	ErrUpstreamUnavailable = errors.New("recognition: upstream unavailable")
	// ErrPlateNotDetected is returned when the image held no readable plate.
	ErrPlateNotDetected = errors.New("recognition: license plate not detected")
	// ErrRecognitionDisabled is returned when no recognition provider is configured.
	ErrRecognitionDisabled = errors.New("recognition: not configured")
)

// Detection is a recognised plate.
type Detection struct {
	Plate      string  `json:"licensePlate"`
	Confidence float64 `json:"confidence"`
	Method     string  `json:"method"`
}

// PlateDetector reads a license plate from an image.
type PlateDetector interface {
	Detect(ctx context.Context, image []byte, filename string) (*Detection, error)
}

// HealthChecker reports the health of a recognition backend as status and raw body.
type HealthChecker interface {
	Health(ctx context.Context) (int, []byte, error)
}

// DisabledDetector rejects every request.
type DisabledDetector struct{}

// Detect implements PlateDetector.
func (DisabledDetector) Detect(context.Context, []byte, string) (*Detection, error) {
	return nil, ErrRecognitionDisabled
}
