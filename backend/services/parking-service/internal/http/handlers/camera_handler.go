package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"go.uber.org/zap"

	"parkingsystem/backend/services/parking-service/internal/clients"
)

const maxImageSize = 10 << 20

// CameraHandler serves the camera integration endpoints.
type CameraHandler struct {
	sessions *SessionsHandler
	detector clients.PlateDetector
	health   clients.HealthChecker
	logger   *zap.Logger
}

// NewCameraHandler builds handler set. health may be nil when the provider has no health endpoint.
func NewCameraHandler(
	sessions *SessionsHandler,
	detector clients.PlateDetector,
	health clients.HealthChecker,
	logger *zap.Logger,
) *CameraHandler {
	if detector == nil {
		detector = clients.DisabledDetector{}
	}
	return &CameraHandler{sessions: sessions, detector: detector, health: health, logger: logger}
}

type detectResponse struct {
	Success      bool    `json:"success"`
	LicensePlate string  `json:"licensePlate"`
	Confidence   float64 `json:"confidence"`
	Method       string  `json:"method"`
}

type cameraExitRequest struct {
	LicensePlate string `json:"licensePlate"`
}

// HandleDetect handles POST /camera/detect.
func (h *CameraHandler) HandleDetect(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImageSize)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_upload", "multipart field file is required")
		return
	}
	defer file.Close()

	image, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_upload", "failed to read uploaded image")
		return
	}
	if len(image) == 0 {
		writeError(w, http.StatusBadRequest, "invalid_upload", "uploaded image is empty")
		return
	}

	detection, err := h.detector.Detect(r.Context(), image, header.Filename)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	h.logger.Info("plate detected",
		zap.String("plate", detection.Plate),
		zap.Float64("confidence", detection.Confidence),
		zap.String("method", detection.Method),
	)
	writeJSON(w, http.StatusOK, detectResponse{
		Success:      true,
		LicensePlate: detection.Plate,
		Confidence:   detection.Confidence,
		Method:       detection.Method,
	})
}

// HandleEntry handles POST /camera/entry.
func (h *CameraHandler) HandleEntry(w http.ResponseWriter, r *http.Request) {
	var req openSessionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid json")
		return
	}
	if req.Method == "" && req.DetectionMethod == "" {
		req.Method = "camera"
	}
	h.sessions.open(w, r, req)
}

// HandleExit handles POST /camera/exit.
func (h *CameraHandler) HandleExit(w http.ResponseWriter, r *http.Request) {
	var req cameraExitRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid json")
		return
	}
	result, err := h.sessions.svc.Close(r.Context(), req.LicensePlate)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, newExitResponse(result))
}

// HandleAIHealth handles GET /camera/ai-health by relaying the recognition backend status.
func (h *CameraHandler) HandleAIHealth(w http.ResponseWriter, r *http.Request) {
	if h.health == nil {
		writeError(w, http.StatusServiceUnavailable, "recognition_disabled", clients.ErrRecognitionDisabled.Error())
		return
	}
	status, body, err := h.health.Health(r.Context())
	if err != nil {
		h.logger.Warn("recognition health check failed", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "ai_unavailable", "recognition service unavailable")
		return
	}
	if !json.Valid(body) {
		writeJSON(w, status, map[string]string{"status": string(body)})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
