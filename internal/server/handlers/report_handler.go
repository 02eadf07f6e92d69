package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/anilytics/agriwarehouse/internal/domain/models"
)

// ReportService is the reporting API surface.
type ReportService interface {
	SpoilageForecast(ctx context.Context) (models.SpoilageForecast, error)
	DistributionRecommendations(ctx context.Context) (models.DistributionResponse, error)
	DistributionHistory(ctx context.Context, limit int) ([]models.DistributionReport, error)
	DistributionReport(ctx context.Context, id string) (models.DistributionReport, error)
	StorageRecommendations(ctx context.Context) (models.StorageReport, error)
	InventoryAnalytics(ctx context.Context) (models.InventoryAnalytics, error)
	ShipmentAnalytics(ctx context.Context) (models.ShipmentAnalytics, error)
}

// ReportHandler serves /api/reports.
type ReportHandler struct {
	svc    ReportService
	logger *zap.Logger
}

// NewReportHandler constructs the report HTTP adapter.
func NewReportHandler(svc ReportService, logger *zap.Logger) *ReportHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportHandler{svc: svc, logger: logger}
}

func serve[T any](h *ReportHandler, build func(context.Context) (T, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		data, err := build(c.Request.Context())
		if err != nil {
			respondError(c, h.logger, err)
			return
		}
		respond(c, http.StatusOK, data)
	}
}

// SpoilageForecast serves the spoilage forecast.
func (h *ReportHandler) SpoilageForecast() gin.HandlerFunc {
	return serve(h, h.svc.SpoilageForecast)
}

// DistributionRecommendations serves a fresh distribution plan.
func (h *ReportHandler) DistributionRecommendations() gin.HandlerFunc {
	return serve(h, h.svc.DistributionRecommendations)
}

// StorageRecommendations serves the storage advice.
func (h *ReportHandler) StorageRecommendations() gin.HandlerFunc {
	return serve(h, h.svc.StorageRecommendations)
}

// InventoryAnalytics serves the inventory analytics.
func (h *ReportHandler) InventoryAnalytics() gin.HandlerFunc {
	return serve(h, h.svc.InventoryAnalytics)
}

// ShipmentAnalytics serves the shipment analytics.
func (h *ReportHandler) ShipmentAnalytics() gin.HandlerFunc {
	return serve(h, h.svc.ShipmentAnalytics)
}

// DistributionHistory lists archived plans; ?limit bounds the result.
func (h *ReportHandler) DistributionHistory(c *gin.Context) {
	limit, err := queryInt(c, "limit")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	n := 0
	if limit != nil {
		n = *limit
	}

	reports, err := h.svc.DistributionHistory(c.Request.Context(), n)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, reports)
}

// DistributionReport returns one archived plan.
func (h *ReportHandler) DistributionReport(c *gin.Context) {
	report, err := h.svc.DistributionReport(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, report)
}
