package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"parkingsystem/backend/services/parking-service/internal/service"
)

// NewStatisticsHandler returns GET /dashboard/statistics handler.
func NewStatisticsHandler(svc *service.DashboardService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := svc.Statistics(r.Context())
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, stats)
	}
}

// NewCurrentParkingHandler returns GET /dashboard/current-parking handler.
func NewCurrentParkingHandler(svc *service.SessionsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, ok := parseLimit(r.URL.Query().Get("limit"))
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_query", "limit must be a positive integer")
			return
		}
		sessions, err := svc.CurrentlyParked(r.Context(), limit)
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, nonNil(sessions))
	}
}
