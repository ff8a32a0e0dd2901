package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

const defaultUploadName = "capture.jpg"

type detectResponse struct {
	Success      bool    `json:"success"`
	LicensePlate string  `json:"license_plate"`
	Confidence   float64 `json:"confidence"`
	Method       string  `json:"method"`
	Error        string  `json:"error"`
}

// RecognitionClient calls the plate recognition HTTP service.
type RecognitionClient struct {
	base *BaseClient
}

// NewRecognitionClient returns client.
func NewRecognitionClient(base *BaseClient) *RecognitionClient {
	return &RecognitionClient{base: base}
}

// Detect uploads the image as multipart field "file" to /detect-file.
func (c *RecognitionClient) Detect(ctx context.Context, image []byte, filename string) (*Detection, error) {
	if strings.TrimSpace(filename) == "" {
		filename = defaultUploadName
	}

	res, err := c.base.PostFile(ctx, "/detect-file", "file", filename, image)
	if err != nil {
		return nil, err
	}

	var resp detectResponse
	if len(res.Body) > 0 {
		if err := json.Unmarshal(res.Body, &resp); err != nil && !res.ServerError() {
			return nil, fmt.Errorf("%w: decode response: %v", ErrUpstreamUnavailable, err)
		}
	}

	switch {
	case res.Status == http.StatusOK && resp.Success && strings.TrimSpace(resp.LicensePlate) != "":
		return &Detection{
			Plate:      strings.TrimSpace(resp.LicensePlate),
			Confidence: resp.Confidence,
			Method:     resp.Method,
		}, nil
	case res.ServerError():
		return nil, fmt.Errorf("%w: status %d: %s", ErrUpstreamUnavailable, res.Status, resp.Error)
	default:
		return nil, fmt.Errorf("%w: %s", ErrPlateNotDetected, resp.Error)
	}
}

// Health proxies GET /health.
func (c *RecognitionClient) Health(ctx context.Context) (int, []byte, error) {
	res, err := c.base.Get(ctx, "/health")
	if err != nil {
		return 0, nil, err
	}
	return res.Status, res.Body, nil
}
