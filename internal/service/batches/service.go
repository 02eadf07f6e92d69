// Package batches manages the batch lifecycle: registration, edits, risk
// rescoring and hand-off to distribution.
package batches

import (
	"context"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/anilytics/agriwarehouse/internal/domain/models"
	"github.com/anilytics/agriwarehouse/internal/domain/risk"
)

// Store is the persistence the batch service relies on.
type Store interface {
	CreateBatch(ctx context.Context, b models.Batch) (models.Batch, error)
	GetBatch(ctx context.Context, id int64) (models.Batch, error)
	ListBatches(ctx context.Context, filter models.BatchFilter) ([]models.Batch, error)
	ListByStatus(ctx context.Context, statuses ...models.BatchStatus) ([]models.Batch, error)
	AtRiskBatches(ctx context.Context, days int) ([]models.Batch, error)
	UpdateBatch(ctx context.Context, id int64, performedBy string, prepare models.BatchUpdateFunc) (models.Batch, models.Batch, error)
	UpdateRisk(ctx context.Context, id int64, level models.RiskLevel) error
	DeleteBatch(ctx context.Context, id int64) error
	MarkForDistribution(ctx context.Context, id int64, req models.ShipmentRequest) (models.Batch, models.Shipment, error)
}

// Alerter is notified when a batch escalates to high risk.
type Alerter interface {
	SpoilageAlert(ctx context.Context, batch models.Batch) error
}

// Service implements the batch operations.
type Service struct {
	store   Store
	scorer  *risk.Scorer
	alerter Alerter
	logger  *zap.Logger
}

// NewService wires a batch service. A nil scorer uses default parameters.
func NewService(store Store, scorer *risk.Scorer, alerter Alerter, logger *zap.Logger) *Service {
	if scorer == nil {
		scorer = risk.NewScorer(risk.DefaultParams())
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, scorer: scorer, alerter: alerter, logger: logger}
}

// Create registers a batch after applying Cavendish defaults.
func (s *Service) Create(ctx context.Context, req models.NewBatchRequest) (models.Batch, error) {
	batch, err := req.ToBatch()
	if err != nil {
		return models.Batch{}, err
	}

	created, err := s.store.CreateBatch(ctx, batch)
	if err != nil {
		return models.Batch{}, err
	}

	s.logger.Info("batch registered",
		zap.Int64("batch_id", created.ID),
		zap.String("variety", created.Variety),
		zap.Float64("quantity_kg", created.QuantityKg),
		zap.String("storage_location", created.StorageLocation),
	)
	return created, nil
}

// Get loads one batch.
func (s *Service) Get(ctx context.Context, id int64) (models.Batch, error) {
	return s.store.GetBatch(ctx, id)
}

// List returns batches matching filter.
func (s *Service) List(ctx context.Context, filter models.BatchFilter) ([]models.Batch, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, &models.ValidationError{Field: "status", Value: string(filter.Status), Reason: "unknown status"}
	}
	return s.store.ListBatches(ctx, filter)
}

// Delete removes a batch.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.store.DeleteBatch(ctx, id); err != nil {
		return err
	}
	s.logger.Info("batch deleted", zap.Int64("batch_id", id))
	return nil
}

// Update applies field changes. New readings are rescored against the batch as
// locked by the store and the refined category is persisted with them;
// escalation to high risk raises an alert.
func (s *Service) Update(ctx context.Context, id int64, update models.BatchUpdate, performedBy string) (models.Batch, error) {
	if err := validateUpdate(update); err != nil {
		return models.Batch{}, err
	}
	update.SpoilageRisk = nil

	previous, updated, err := s.store.UpdateBatch(ctx, id, performedBy, func(current models.Batch) (models.BatchUpdate, error) {
		return s.rescoreUpdate(current, update)
	})
	if err != nil {
		return models.Batch{}, err
	}

	s.notifyEscalation(ctx, previous.SpoilageRisk, updated)
	return updated, nil
}

// rescoreUpdate merges new readings into current and attaches the refined risk.
func (s *Service) rescoreUpdate(current models.Batch, update models.BatchUpdate) (models.BatchUpdate, error) {
	if !update.HasReadings() {
		return update, nil
	}

	merged := current
	if update.TemperatureActual != nil {
		merged.TemperatureActual = update.TemperatureActual
	}
	if update.HumidityActual != nil {
		merged.HumidityActual = update.HumidityActual
	}

	assessment, err := s.scorer.Score(merged)
	if err != nil {
		return models.BatchUpdate{}, fmt.Errorf("score batch %d: %w", current.ID, err)
	}
	if assessment.Refined {
		level := assessment.Risk
		update.SpoilageRisk = &level
		s.logger.Debug("batch rescored",
			zap.Int64("batch_id", current.ID),
			zap.Float64("risk_factor", assessment.RiskFactor),
			zap.String("risk", string(level)),
		)
	}
	return update, nil
}

// MarkForDistribution schedules a shipment for the batch.
func (s *Service) MarkForDistribution(ctx context.Context, id int64, req models.ShipmentRequest) (models.Batch, models.Shipment, error) {
	req.Destination = strings.TrimSpace(req.Destination)
	req.TransportationType = strings.TrimSpace(req.TransportationType)
	if req.Destination == "" {
		return models.Batch{}, models.Shipment{}, &models.ValidationError{Field: "destination", Reason: "required"}
	}
	if req.TransportationType == "" {
		return models.Batch{}, models.Shipment{}, &models.ValidationError{Field: "transportation_type", Reason: "required"}
	}

	batch, shipment, err := s.store.MarkForDistribution(ctx, id, req)
	if err != nil {
		return models.Batch{}, models.Shipment{}, err
	}

	s.logger.Info("batch marked for distribution",
		zap.Int64("batch_id", id),
		zap.Int64("shipment_id", shipment.ID),
		zap.String("destination", req.Destination),
	)
	return batch, shipment, nil
}

// AtRisk lists batches expiring within days (default 3) or already at medium
// or high risk.
func (s *Service) AtRisk(ctx context.Context, days int) ([]models.Batch, error) {
	if days <= 0 {
		days = models.DefaultAtRiskWindowDays
	}
	return s.store.AtRiskBatches(ctx, days)
}

// RescoreSummary reports the outcome of a rescoring sweep.
type RescoreSummary struct {
	Scanned   int `json:"scanned"`
	Scored    int `json:"scored"`
	Changed   int `json:"changed"`
	Escalated int `json:"escalated"`
	Failed    int `json:"failed"`
}

// RescoreAll re-evaluates every stored batch that has readings and persists
// categories that changed. Per-batch failures are logged and counted.
func (s *Service) RescoreAll(ctx context.Context) (RescoreSummary, error) {
	stored, err := s.store.ListByStatus(ctx, models.StatusInStorage)
	if err != nil {
		return RescoreSummary{}, err
	}

	summary := RescoreSummary{Scanned: len(stored)}
	for _, batch := range stored {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		if !batch.HasReadings() {
			continue
		}

		assessment, err := s.scorer.Score(batch)
		if err != nil {
			summary.Failed++
			s.logger.Warn("cannot score batch", zap.Int64("batch_id", batch.ID), zap.Error(err))
			continue
		}
		summary.Scored++

		if assessment.Risk == batch.SpoilageRisk {
			continue
		}
		if err := s.store.UpdateRisk(ctx, batch.ID, assessment.Risk); err != nil {
			summary.Failed++
			s.logger.Error("failed to persist risk", zap.Int64("batch_id", batch.ID), zap.Error(err))
			continue
		}
		summary.Changed++

		previous := batch.SpoilageRisk
		batch.SpoilageRisk = assessment.Risk
		if s.notifyEscalation(ctx, previous, batch) {
			summary.Escalated++
		}
	}

	s.logger.Info("rescore completed",
		zap.Int("scanned", summary.Scanned),
		zap.Int("scored", summary.Scored),
		zap.Int("changed", summary.Changed),
		zap.Int("escalated", summary.Escalated),
		zap.Int("failed", summary.Failed),
	)
	return summary, nil
}

func (s *Service) notifyEscalation(ctx context.Context, previous models.RiskLevel, batch models.Batch) bool {
	if batch.SpoilageRisk != models.RiskHigh || previous == models.RiskHigh {
		return false
	}
	if s.alerter == nil {
		return true
	}
	if err := s.alerter.SpoilageAlert(ctx, batch); err != nil {
		s.logger.Error("failed to send spoilage alert", zap.Int64("batch_id", batch.ID), zap.Error(err))
	}
	return true
}

func validateUpdate(u models.BatchUpdate) error {
	if u.QuantityKg != nil && (*u.QuantityKg < 0 || math.IsNaN(*u.QuantityKg) || math.IsInf(*u.QuantityKg, 0)) {
		return &models.ValidationError{Field: "quantity_kg", Value: fmt.Sprint(*u.QuantityKg), Reason: "must not be negative"}
	}
	if u.Status != nil && !u.Status.Valid() {
		return &models.ValidationError{Field: "status", Value: string(*u.Status), Reason: "unknown status"}
	}
	if u.StorageLocation != nil && strings.TrimSpace(*u.StorageLocation) == "" {
		return &models.ValidationError{Field: "storage_location", Reason: "must not be empty"}
	}
	for field, v := range map[string]*float64{"temperature_actual": u.TemperatureActual, "humidity_actual": u.HumidityActual} {
		if v != nil && (math.IsNaN(*v) || math.IsInf(*v, 0)) {
			return &models.ValidationError{Field: field, Value: fmt.Sprint(*v), Reason: "must be a finite number"}
		}
	}
	return nil
}
