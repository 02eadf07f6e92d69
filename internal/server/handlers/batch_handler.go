package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/anilytics/agriwarehouse/internal/domain/models"
)

const performedByHeader = "X-Performed-By"

// BatchService is the batch API surface.
type BatchService interface {
	Create(ctx context.Context, req models.NewBatchRequest) (models.Batch, error)
	Get(ctx context.Context, id int64) (models.Batch, error)
	List(ctx context.Context, filter models.BatchFilter) ([]models.Batch, error)
	Update(ctx context.Context, id int64, update models.BatchUpdate, performedBy string) (models.Batch, error)
	Delete(ctx context.Context, id int64) error
	MarkForDistribution(ctx context.Context, id int64, req models.ShipmentRequest) (models.Batch, models.Shipment, error)
	AtRisk(ctx context.Context, days int) ([]models.Batch, error)
}

// BatchHandler serves /api/batches.
type BatchHandler struct {
	svc    BatchService
	logger *zap.Logger
}

// NewBatchHandler constructs the batch HTTP adapter.
func NewBatchHandler(svc BatchService, logger *zap.Logger) *BatchHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BatchHandler{svc: svc, logger: logger}
}

// List returns batches filtered by status, location, daysUntilExpiry, variety and quality_grade.
func (h *BatchHandler) List(c *gin.Context) {
	days, err := queryInt(c, "daysUntilExpiry", "days_until_expiry")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	filter := models.BatchFilter{
		Status:          models.BatchStatus(c.Query("status")),
		Location:        c.Query("location"),
		DaysUntilExpiry: days,
		Variety:         c.Query("variety"),
		QualityGrade:    c.Query("quality_grade"),
	}

	list, err := h.svc.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, list)
}

// Create registers a new batch.
func (h *BatchHandler) Create(c *gin.Context) {
	var req models.NewBatchRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}

	batch, err := h.svc.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusCreated, batch)
}

// Get returns one batch.
func (h *BatchHandler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	batch, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, batch)
}

// Update applies a partial update.
func (h *BatchHandler) Update(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var update models.BatchUpdate
	if !bindJSON(c, h.logger, &update) {
		return
	}

	batch, err := h.svc.Update(c.Request.Context(), id, update, c.GetHeader(performedByHeader))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, batch)
}

// Delete removes a batch and its logs.
func (h *BatchHandler) Delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondMessage(c, http.StatusOK, "Batch deleted successfully")
}

type distributionRequest struct {
	Destination          string `json:"destination"`
	TransportationType   string `json:"transportation_type"`
	ExpectedDeliveryDate string `json:"expected_delivery_date"`
}

// MarkForDistribution schedules a shipment for the batch.
func (h *BatchHandler) MarkForDistribution(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var body distributionRequest
	if !bindJSON(c, h.logger, &body) {
		return
	}

	req := models.ShipmentRequest{
		Destination:        body.Destination,
		TransportationType: body.TransportationType,
	}
	if raw := strings.TrimSpace(body.ExpectedDeliveryDate); raw != "" {
		date, err := parseDate(raw)
		if err != nil {
			respondError(c, h.logger, &models.ValidationError{Field: "expected_delivery_date", Value: raw, Reason: "expected YYYY-MM-DD or RFC 3339"})
			return
		}
		req.ExpectedDeliveryDate = &date
	}

	batch, shipment, err := h.svc.MarkForDistribution(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"batch": batch, "shipment": shipment})
}

// AtRisk lists batches expiring within ?days (default 3) or already at medium/high risk.
func (h *BatchHandler) AtRisk(c *gin.Context) {
	days, err := queryInt(c, "days")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	window := models.DefaultAtRiskWindowDays
	if days != nil {
		window = *days
	}

	list, err := h.svc.AtRisk(c.Request.Context(), window)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, list)
}

func parseDate(raw string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, raw)
}
