// Package inventory records stock movements and reports warehouse occupancy.
package inventory

import (
	"context"
	"math"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/anilytics/agriwarehouse/internal/domain/models"
)

const recentMovementsLimit = 5

// Store is the persistence the inventory service relies on.
type Store interface {
	RecordMovement(ctx context.Context, entry models.InventoryLog) (models.InventoryLog, error)
	ListLogs(ctx context.Context, filter models.InventoryLogFilter) ([]models.InventoryLog, error)
	RecentLogs(ctx context.Context, limit int) ([]models.InventoryLog, error)
	GetLog(ctx context.Context, id int64) (models.InventoryLog, error)
	UpdateLog(ctx context.Context, id int64, update models.InventoryLogUpdate) (models.InventoryLog, error)
	InventoryTotals(ctx context.Context) (models.InventoryTotals, error)
	LocationBreakdown(ctx context.Context) ([]models.LocationStock, error)
	UsageByLocation(ctx context.Context) (map[string]float64, error)
}

// Service implements inventory logging and summaries.
type Service struct {
	store  Store
	zones  []models.StorageZone
	logger *zap.Logger
}

// NewService wires an inventory service. Empty zones fall back to the default layout.
func NewService(store Store, zones []models.StorageZone, logger *zap.Logger) *Service {
	if len(zones) == 0 {
		zones = models.DefaultStorageZones()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, zones: zones, logger: logger}
}

// CreateLog records a movement. Additions and removals change the batch
// quantity; a removal larger than the stock fails with ErrInsufficientStock.
func (s *Service) CreateLog(ctx context.Context, req models.NewInventoryLogRequest) (models.InventoryLog, error) {
	if err := req.Validate(); err != nil {
		return models.InventoryLog{}, err
	}

	performedBy := strings.TrimSpace(req.PerformedBy)
	if performedBy == "" {
		performedBy = "system"
	}

	entry, err := s.store.RecordMovement(ctx, models.InventoryLog{
		BatchID:     req.BatchID,
		Action:      req.Action,
		QuantityKg:  req.QuantityKg,
		Reason:      strings.TrimSpace(req.Reason),
		PerformedBy: performedBy,
	})
	if err != nil {
		return models.InventoryLog{}, err
	}

	s.logger.Info("inventory movement recorded",
		zap.Int64("log_id", entry.ID),
		zap.Int64("batch_id", entry.BatchID),
		zap.String("action", string(entry.Action)),
		zap.Float64("quantity_kg", entry.QuantityKg),
	)
	return entry, nil
}

// ListLogs returns entries matching filter, newest first.
func (s *Service) ListLogs(ctx context.Context, filter models.InventoryLogFilter) ([]models.InventoryLog, error) {
	if filter.Action != "" && !filter.Action.Valid() {
		return nil, &models.ValidationError{Field: "action", Value: string(filter.Action), Reason: "unknown action"}
	}
	if filter.StartDate != nil && filter.EndDate != nil && filter.EndDate.Before(*filter.StartDate) {
		return nil, &models.ValidationError{Field: "endDate", Value: filter.EndDate.Format("2006-01-02"), Reason: "must not precede startDate"}
	}
	return s.store.ListLogs(ctx, filter)
}

// GetLog loads one entry.
func (s *Service) GetLog(ctx context.Context, id int64) (models.InventoryLog, error) {
	return s.store.GetLog(ctx, id)
}

// UpdateLog corrects the reason or notes of an entry.
func (s *Service) UpdateLog(ctx context.Context, id int64, update models.InventoryLogUpdate) (models.InventoryLog, error) {
	if update.Reason != nil && strings.TrimSpace(*update.Reason) == "" {
		return models.InventoryLog{}, &models.ValidationError{Field: "reason", Reason: "must not be empty"}
	}
	return s.store.UpdateLog(ctx, id, update)
}

// Summary builds the inventory dashboard.
func (s *Service) Summary(ctx context.Context) (models.InventorySummary, error) {
	totals, err := s.store.InventoryTotals(ctx)
	if err != nil {
		return models.InventorySummary{}, err
	}
	breakdown, err := s.store.LocationBreakdown(ctx)
	if err != nil {
		return models.InventorySummary{}, err
	}
	recent, err := s.store.RecentLogs(ctx, recentMovementsLimit)
	if err != nil {
		return models.InventorySummary{}, err
	}

	return models.InventorySummary{
		Summary:           totals,
		LocationBreakdown: breakdown,
		RecentMovements:   recent,
	}, nil
}

// StorageCapacity reports occupancy for every configured zone plus any other
// location currently holding stock.
func (s *Service) StorageCapacity(ctx context.Context) (models.StorageCapacity, error) {
	usage, err := s.store.UsageByLocation(ctx)
	if err != nil {
		return models.StorageCapacity{}, err
	}
	return BuildCapacity(s.zones, usage), nil
}

// BuildCapacity merges configured zones with current usage.
func BuildCapacity(zones []models.StorageZone, usage map[string]float64) models.StorageCapacity {
	report := models.StorageCapacity{Zones: make([]models.ZoneUsage, 0, len(zones)+len(usage))}
	known := make(map[string]struct{}, len(zones))

	for _, z := range zones {
		known[z.Location] = struct{}{}
		report.Zones = append(report.Zones, zoneUsage(z.Location, z.CapacityKg, usage[z.Location]))
	}

	extra := make([]string, 0)
	for location := range usage {
		if _, ok := known[location]; !ok {
			extra = append(extra, location)
		}
	}
	sort.Strings(extra)
	for _, location := range extra {
		report.Zones = append(report.Zones, zoneUsage(location, models.DefaultZoneCapacityKg, usage[location]))
	}

	for _, z := range report.Zones {
		report.TotalCapacityKg += z.CapacityKg
		report.TotalUsageKg += z.CurrentUsageKg
	}
	return report
}

func zoneUsage(location string, capacityKg, usedKg float64) models.ZoneUsage {
	percent := 0.0
	if capacityKg > 0 {
		percent = usedKg / capacityKg * 100
	}

	z := models.ZoneUsage{
		Location:       location,
		CapacityKg:     capacityKg,
		CurrentUsageKg: usedKg,
		AvailableKg:    capacityKg - usedKg,
		UsagePercent:   math.Round(percent),
		Status:         models.ZoneAvailable,
	}

	switch {
	case percent > 90:
		z.Status = models.ZoneCritical
		z.Recommendation = "Urgent: Schedule shipment to free up space"
	case percent > 75:
		z.Status = models.ZoneWarning
		z.Recommendation = "Plan for shipment in the next few days"
	case percent < 20:
		z.Status = models.ZoneUnderutilized
		z.Recommendation = "Consider consolidating with other storage areas"
	}
	return z
}
