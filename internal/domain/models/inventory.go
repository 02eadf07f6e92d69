package models

import "time"

// InventoryAction enumerates inventory log movements.
type InventoryAction string

const (
	ActionAddition     InventoryAction = "addition"
	ActionRemoval      InventoryAction = "removal"
	ActionQualityCheck InventoryAction = "quality_check"
	ActionTransfer     InventoryAction = "transfer"
)

// Valid reports whether the action is one of the supported movements.
func (a InventoryAction) Valid() bool {
	switch a {
	case ActionAddition, ActionRemoval, ActionQualityCheck, ActionTransfer:
		return true
	default:
		return false
	}
}

// InventoryLog is an audit entry for a batch quantity movement or check.
type InventoryLog struct {
	ID          int64           `json:"id"`
	BatchID     int64           `json:"batch_id"`
	Action      InventoryAction `json:"action"`
	QuantityKg  float64         `json:"quantity_kg"`
	Reason      string          `json:"reason"`
	PerformedBy string          `json:"performed_by"`
	Notes       *string         `json:"notes,omitempty"`
	Variety     *string         `json:"variety,omitempty"`
	SourceFarm  *string         `json:"source_farm,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// NewInventoryLogRequest is the payload for recording a movement.
type NewInventoryLogRequest struct {
	BatchID     int64           `json:"batch_id" binding:"required"`
	Action      InventoryAction `json:"action" binding:"required"`
	QuantityKg  float64         `json:"quantity_kg" binding:"required"`
	Reason      string          `json:"reason" binding:"required"`
	PerformedBy string          `json:"performed_by"`
}

// InventoryLogUpdate only allows corrections to free-text fields.
type InventoryLogUpdate struct {
	Reason *string `json:"reason"`
	Notes  *string `json:"notes"`
}

// InventoryLogFilter narrows log listings. Zero values are ignored.
type InventoryLogFilter struct {
	BatchID   *int64
	Action    InventoryAction
	StartDate *time.Time
	EndDate   *time.Time
}

// InventoryTotals aggregates the active warehouse stock.
type InventoryTotals struct {
	TotalKg                float64 `json:"total_kg"`
	TotalBatches           int     `json:"total_batches"`
	BatchesInStorage       int     `json:"batches_in_storage"`
	BatchesPendingShipment int     `json:"batches_pending_shipment"`
	HighRiskBatches        int     `json:"high_risk_batches"`
	MediumRiskBatches      int     `json:"medium_risk_batches"`
	AvgDaysRemaining       float64 `json:"avg_days_remaining"`
}

// LocationStock summarises the stock held at one storage location.
type LocationStock struct {
	StorageLocation  string  `json:"storage_location"`
	BatchCount       int     `json:"batch_count"`
	TotalKg          float64 `json:"total_kg"`
	AvgDaysRemaining float64 `json:"avg_days_remaining"`
	HighRiskBatches  int     `json:"high_risk_batches"`
}

// InventorySummary is the inventory dashboard payload.
type InventorySummary struct {
	Summary           InventoryTotals `json:"summary"`
	LocationBreakdown []LocationStock `json:"location_breakdown"`
	RecentMovements   []InventoryLog  `json:"recent_movements"`
}

// StorageZone is a configured storage area and its nominal capacity.
type StorageZone struct {
	Location   string  `json:"location"`
	CapacityKg float64 `json:"capacity_kg"`
}

// DefaultZoneCapacityKg applies to storage locations that are not configured.
const DefaultZoneCapacityKg = 10000

// DefaultStorageZones returns the built-in warehouse layout.
func DefaultStorageZones() []StorageZone {
	return []StorageZone{
		{Location: "Zone A", CapacityKg: 10000},
		{Location: "Zone B", CapacityKg: 10000},
		{Location: "Zone C", CapacityKg: 10000},
		{Location: "Cold Storage 1", CapacityKg: 5000},
		{Location: "Cold Storage 2", CapacityKg: 5000},
	}
}

// Zone usage statuses.
const (
	ZoneCritical      = "critical"
	ZoneWarning       = "warning"
	ZoneUnderutilized = "underutilized"
	ZoneAvailable     = "available"
)

// ZoneUsage reports how full a storage zone currently is.
type ZoneUsage struct {
	Location       string  `json:"location"`
	CapacityKg     float64 `json:"capacity_kg"`
	CurrentUsageKg float64 `json:"current_usage_kg"`
	AvailableKg    float64 `json:"available_kg"`
	UsagePercent   float64 `json:"usage_percent"`
	Status         string  `json:"status"`
	Recommendation string  `json:"recommendation"`
}

// StorageCapacity is the capacity report across all zones.
type StorageCapacity struct {
	Zones           []ZoneUsage `json:"zones"`
	TotalCapacityKg float64     `json:"total_capacity"`
	TotalUsageKg    float64     `json:"total_usage"`
}
