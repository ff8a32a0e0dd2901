package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"parkingsystem/backend/services/parking-service/internal/models"
	"parkingsystem/backend/services/parking-service/internal/service"
)

// LayoutHandler serves the facility block and lane registry.
type LayoutHandler struct {
	svc    *service.LayoutService
	logger *zap.Logger
}

// NewLayoutHandler builds handler.
func NewLayoutHandler(svc *service.LayoutService, logger *zap.Logger) *LayoutHandler {
	return &LayoutHandler{svc: svc, logger: logger}
}

type createBlockRequest struct {
	Name  string `json:"name"`
	Floor int64  `json:"floor"`
	Slots int64  `json:"slots"`
}

type createLaneRequest struct {
	Type   string `json:"type"`
	Camera string `json:"camera"`
}

// HandleListBlocks handles GET /blocks.
func (h *LayoutHandler) HandleListBlocks(w http.ResponseWriter, r *http.Request) {
	blocks, err := h.svc.Blocks(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	if blocks == nil {
		blocks = []models.Block{}
	}
	writeJSON(w, http.StatusOK, blocks)
}

// HandleCreateBlock handles POST /blocks.
func (h *LayoutHandler) HandleCreateBlock(w http.ResponseWriter, r *http.Request) {
	var req createBlockRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid json")
		return
	}
	block, err := h.svc.CreateBlock(r.Context(), service.BlockInput{Name: req.Name, Floor: req.Floor, Slots: req.Slots})
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, block)
}

// HandleListLanes handles GET /lanes.
func (h *LayoutHandler) HandleListLanes(w http.ResponseWriter, r *http.Request) {
	lanes, err := h.svc.Lanes(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	if lanes == nil {
		lanes = []models.Lane{}
	}
	writeJSON(w, http.StatusOK, lanes)
}

// HandleCreateLane handles POST /lanes.
func (h *LayoutHandler) HandleCreateLane(w http.ResponseWriter, r *http.Request) {
	var req createLaneRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid json")
		return
	}
	lane, err := h.svc.CreateLane(r.Context(), service.LaneInput{Direction: req.Type, Camera: req.Camera})
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, lane)
}
