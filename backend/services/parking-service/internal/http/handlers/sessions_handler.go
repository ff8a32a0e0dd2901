package handlers

import (
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"
	"gopkg.in/guregu/null.v4"

	"parkingsystem/backend/services/parking-service/internal/models"
	"parkingsystem/backend/services/parking-service/internal/repository"
	"parkingsystem/backend/services/parking-service/internal/service"
)

// SessionsHandler serves the parking session endpoints.
type SessionsHandler struct {
	svc    *service.SessionsService
	logger *zap.Logger
}

// NewSessionsHandler builds handler set.
func NewSessionsHandler(svc *service.SessionsService, logger *zap.Logger) *SessionsHandler {
	return &SessionsHandler{svc: svc, logger: logger}
}

type openSessionRequest struct {
	LicensePlate    string   `json:"licensePlate"`
	VehicleType     string   `json:"vehicleType"`
	Floor           *int64   `json:"floor"`
	Slot            *int64   `json:"slot"`
	Confidence      *float64 `json:"confidence"`
	DetectionMethod string   `json:"detectionMethod"`
	// Method is the field name camera integrations send.
	Method string `json:"method"`
}

type exitResponse struct {
	ID              string                 `json:"id"`
	LicensePlate    string                 `json:"licensePlate"`
	VehicleType     models.VehicleCategory `json:"vehicleType"`
	EntryTime       time.Time              `json:"entryTime"`
	ExitTime        time.Time              `json:"exitTime"`
	DurationMinutes int64                  `json:"durationMinutes"`
	BillableHours   int64                  `json:"billableHours"`
	HourlyRate      int64                  `json:"hourlyRate"`
	Fee             int64                  `json:"fee"`
	Anomalies       []string               `json:"anomalies,omitempty"`
}

// HandleOpen handles POST /sessions.
func (h *SessionsHandler) HandleOpen(w http.ResponseWriter, r *http.Request) {
	var req openSessionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid json")
		return
	}
	h.open(w, r, req)
}

func (h *SessionsHandler) open(w http.ResponseWriter, r *http.Request, req openSessionRequest) {
	category, ok := models.ParseVehicleCategory(req.VehicleType)
	if !ok && req.VehicleType != "" {
		h.logger.Warn("unknown vehicle type, using default",
			zap.String("plate", req.LicensePlate),
			zap.String("vehicle_type", req.VehicleType),
		)
	}
	method := req.DetectionMethod
	if method == "" {
		method = req.Method
	}

	session, err := h.svc.Open(r.Context(), service.OpenSessionInput{
		Plate:           req.LicensePlate,
		Category:        category,
		Floor:           null.IntFromPtr(req.Floor),
		Slot:            null.IntFromPtr(req.Slot),
		Confidence:      null.FloatFromPtr(req.Confidence),
		DetectionMethod: null.NewString(method, method != ""),
	})
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

// HandleExitByPlate handles POST /sessions/{plate}/exit.
func (h *SessionsHandler) HandleExitByPlate(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.Close(r.Context(), r.PathValue("plate"))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, newExitResponse(result))
}

// HandleExitByID handles POST /sessions/by-id/{id}/exit.
func (h *SessionsHandler) HandleExitByID(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.CloseByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, newExitResponse(result))
}

// HandleList handles GET /sessions.
func (h *SessionsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := repository.ListFilter{Plate: query.Get("plate")}

	if raw := query.Get("open"); raw != "" {
		open, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_query", "open must be true or false")
			return
		}
		filter.Open = &open
	}
	limit, ok := parseLimit(query.Get("limit"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_query", "limit must be a positive integer")
		return
	}
	filter.Limit = limit

	sessions, err := h.svc.List(r.Context(), filter)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(sessions))
}

// HandleGet handles GET /sessions/{id}.
func (h *SessionsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	session, err := h.svc.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func newExitResponse(result *service.CloseResult) exitResponse {
	return exitResponse{
		ID:              result.Session.ID,
		LicensePlate:    result.Session.LicensePlate,
		VehicleType:     result.Session.VehicleType,
		EntryTime:       result.Session.EntryTime,
		ExitTime:        result.Session.ExitTime.Time,
		DurationMinutes: result.Billing.DurationMinutes,
		BillableHours:   result.Billing.BillableHours,
		HourlyRate:      result.Billing.HourlyRate,
		Fee:             result.Billing.Fee,
		Anomalies:       result.Anomalies,
	}
}

func parseLimit(raw string) (int, bool) {
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

func nonNil(sessions []models.ParkingSession) []models.ParkingSession {
	if sessions == nil {
		return []models.ParkingSession{}
	}
	return sessions
}
