package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"parkingsystem/backend/services/parking-service/internal/billing"
	"parkingsystem/backend/services/parking-service/internal/clients"
	"parkingsystem/backend/services/parking-service/internal/service"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: message, Code: code})
}

// writeServiceError maps domain errors onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, logger *zap.Logger, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidPlate):
		writeError(w, http.StatusBadRequest, "invalid_plate", err.Error())
	case errors.Is(err, service.ErrDuplicateSession):
		writeError(w, http.StatusConflict, "duplicate_session", err.Error())
	case errors.Is(err, service.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, "session_not_found", err.Error())
	case errors.Is(err, billing.ErrInvalidInterval), errors.Is(err, billing.ErrMissingExitTime):
		writeError(w, http.StatusUnprocessableEntity, "invalid_interval", err.Error())
	case errors.Is(err, service.ErrInvalidBlock):
		writeError(w, http.StatusBadRequest, "invalid_block", err.Error())
	case errors.Is(err, service.ErrDuplicateBlock):
		writeError(w, http.StatusConflict, "duplicate_block", err.Error())
	case errors.Is(err, service.ErrInvalidLane):
		writeError(w, http.StatusBadRequest, "invalid_lane", err.Error())
	case errors.Is(err, service.ErrPlateBusy):
		writeError(w, http.StatusServiceUnavailable, "plate_busy", err.Error())
	case errors.Is(err, clients.ErrPlateNotDetected):
		writeError(w, http.StatusUnprocessableEntity, "plate_not_detected", err.Error())
	case errors.Is(err, clients.ErrRecognitionDisabled):
		writeError(w, http.StatusServiceUnavailable, "recognition_disabled", err.Error())
	case errors.Is(err, clients.ErrUpstreamUnavailable):
		logger.Warn("recognition upstream failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "upstream_unavailable", err.Error())
	case errors.Is(err, context.Canceled):
		writeError(w, http.StatusServiceUnavailable, "request_canceled", "request canceled")
	default:
		logger.Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

const maxJSONBody = 1 << 20

func decodeJSON(w http.ResponseWriter, r *http.Request, target interface{}) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody)).Decode(target)
}
