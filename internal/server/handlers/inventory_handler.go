package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/anilytics/agriwarehouse/internal/domain/models"
)

// InventoryService is the inventory API surface.
type InventoryService interface {
	CreateLog(ctx context.Context, req models.NewInventoryLogRequest) (models.InventoryLog, error)
	ListLogs(ctx context.Context, filter models.InventoryLogFilter) ([]models.InventoryLog, error)
	GetLog(ctx context.Context, id int64) (models.InventoryLog, error)
	UpdateLog(ctx context.Context, id int64, update models.InventoryLogUpdate) (models.InventoryLog, error)
	Summary(ctx context.Context) (models.InventorySummary, error)
	StorageCapacity(ctx context.Context) (models.StorageCapacity, error)
}

// InventoryHandler serves /api/inventory.
type InventoryHandler struct {
	svc    InventoryService
	logger *zap.Logger
}

// NewInventoryHandler constructs the inventory HTTP adapter.
func NewInventoryHandler(svc InventoryService, logger *zap.Logger) *InventoryHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InventoryHandler{svc: svc, logger: logger}
}

// ListLogs filters by batch_id, action, startDate and endDate.
func (h *InventoryHandler) ListLogs(c *gin.Context) {
	filter, err := logFilter(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	logs, err := h.svc.ListLogs(c.Request.Context(), filter)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, logs)
}

func logFilter(c *gin.Context) (models.InventoryLogFilter, error) {
	filter := models.InventoryLogFilter{Action: models.InventoryAction(c.Query("action"))}

	if raw := c.Query("batch_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return filter, &models.ValidationError{Field: "batch_id", Value: raw, Reason: "must be an integer"}
		}
		filter.BatchID = &id
	}
	if raw := c.Query("startDate"); raw != "" {
		start, err := parseDate(raw)
		if err != nil {
			return filter, &models.ValidationError{Field: "startDate", Value: raw, Reason: "expected YYYY-MM-DD"}
		}
		filter.StartDate = &start
	}
	if raw := c.Query("endDate"); raw != "" {
		end, err := parseDate(raw)
		if err != nil {
			return filter, &models.ValidationError{Field: "endDate", Value: raw, Reason: "expected YYYY-MM-DD"}
		}
		filter.EndDate = &end
	}
	return filter, nil
}

// CreateLog records a movement.
func (h *InventoryHandler) CreateLog(c *gin.Context) {
	var req models.NewInventoryLogRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}
	if req.PerformedBy == "" {
		req.PerformedBy = c.GetHeader(performedByHeader)
	}

	entry, err := h.svc.CreateLog(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusCreated, entry)
}

// GetLog returns one log entry.
func (h *InventoryHandler) GetLog(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	entry, err := h.svc.GetLog(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, entry)
}

// UpdateLog corrects reason or notes.
func (h *InventoryHandler) UpdateLog(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var update models.InventoryLogUpdate
	if !bindJSON(c, h.logger, &update) {
		return
	}

	entry, err := h.svc.UpdateLog(c.Request.Context(), id, update)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, entry)
}

// Summary returns the inventory dashboard.
func (h *InventoryHandler) Summary(c *gin.Context) {
	summary, err := h.svc.Summary(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, summary)
}

// StorageCapacity returns zone occupancy.
func (h *InventoryHandler) StorageCapacity(c *gin.Context) {
	capacity, err := h.svc.StorageCapacity(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, capacity)
}
