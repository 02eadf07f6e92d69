package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/anilytics/agriwarehouse/internal/domain/allocation"
	"github.com/anilytics/agriwarehouse/internal/domain/models"
	"github.com/anilytics/agriwarehouse/internal/domain/risk"
)

// SimulationHandler exposes the scorer and the allocator without touching storage.
type SimulationHandler struct {
	scorer    *risk.Scorer
	allocator *allocation.Allocator
	channels  models.ChannelTable
	logger    *zap.Logger
}

// NewSimulationHandler constructs the simulation HTTP adapter. channels is the
// table used when a request does not bring its own.
func NewSimulationHandler(scorer *risk.Scorer, allocator *allocation.Allocator, channels models.ChannelTable, logger *zap.Logger) *SimulationHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(channels) == 0 {
		channels = models.DefaultChannelTable()
	}
	return &SimulationHandler{scorer: scorer, allocator: allocator, channels: channels, logger: logger}
}

type scoreRequest struct {
	TemperatureRequirement string   `json:"temperature_requirement"`
	HumidityRequirement    string   `json:"humidity_requirement"`
	TemperatureActual      *float64 `json:"temperature_actual"`
	HumidityActual         *float64 `json:"humidity_actual"`
	DaysRemaining          int      `json:"days_remaining"`
	SpoilageRisk           string   `json:"spoilage_risk"`
}

func (r scoreRequest) toBatch() (models.Batch, error) {
	tempRaw, humidRaw := r.TemperatureRequirement, r.HumidityRequirement
	if tempRaw == "" {
		tempRaw = models.DefaultTemperatureRange
	}
	if humidRaw == "" {
		humidRaw = models.DefaultHumidityRange
	}

	tempRange, err := models.ParseRange("temperature_requirement", tempRaw)
	if err != nil {
		return models.Batch{}, err
	}
	humidRange, err := models.ParseRange("humidity_requirement", humidRaw)
	if err != nil {
		return models.Batch{}, err
	}

	level := models.RiskLow
	if r.SpoilageRisk != "" {
		if level, err = models.ParseRiskLevel(r.SpoilageRisk); err != nil {
			return models.Batch{}, err
		}
	}

	return models.Batch{
		TemperatureRequirement: tempRange,
		HumidityRequirement:    humidRange,
		TemperatureActual:      r.TemperatureActual,
		HumidityActual:         r.HumidityActual,
		DaysRemaining:          r.DaysRemaining,
		SpoilageRisk:           level,
	}, nil
}

// Score runs the risk scorer over a posted batch snapshot.
func (h *SimulationHandler) Score(c *gin.Context) {
	var req scoreRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}

	batch, err := req.toBatch()
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	assessment, err := h.scorer.Score(batch)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, assessment)
}

type simulateRequest struct {
	Batches  []allocation.Candidate `json:"batches" binding:"required"`
	Channels models.ChannelTable    `json:"channels"`
}

type simulateResponse struct {
	allocation.Result
	Summary string `json:"summary"`
}

// Simulate runs the allocator over posted candidates and an optional channel table.
func (h *SimulationHandler) Simulate(c *gin.Context) {
	var req simulateRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}
	channels := req.Channels
	if len(channels) == 0 {
		channels = h.channels.Clone()
	}

	result, err := h.allocator.Allocate(req.Batches, channels)
	if len(req.Channels) > 0 && errors.Is(err, allocation.ErrUnknownChannel) {
		respondMessage(c, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, simulateResponse{Result: result, Summary: result.Summary()})
}
