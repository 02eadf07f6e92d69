package models

import "time"

// AllocationRecommendation describes how one risk tier should be distributed.
type AllocationRecommendation struct {
	Priority    string             `json:"priority" bson:"priority"`
	Description string             `json:"description" bson:"description"`
	Allocation  map[string]float64 `json:"allocation" bson:"allocation"`
	Batches     []int64            `json:"batches" bson:"batches"`
	Reason      string             `json:"reason" bson:"reason"`
}

// Plan sources.
const (
	PlanSourceRules = "rules"
	PlanSourceAI    = "ai"
)

// DistributionPlan is the outcome of a distribution-recommendation request.
type DistributionPlan struct {
	Source          string                     `json:"source" bson:"source"`
	Recommendations []AllocationRecommendation `json:"recommendations" bson:"recommendations"`
	TotalRevenue    float64                    `json:"total_potential_revenue_php" bson:"total_potential_revenue_php"`
	Summary         string                     `json:"summary" bson:"summary"`
	GeneratedAt     time.Time                  `json:"generated_at" bson:"generated_at"`
}

// DistributionReport is an archived distribution plan.
type DistributionReport struct {
	ID         string            `json:"id" bson:"_id"`
	Plan       DistributionPlan  `json:"plan" bson:"plan"`
	Channels   ChannelTable      `json:"demand_data" bson:"demand_data"`
	BatchCount int               `json:"batch_count" bson:"batch_count"`
	TotalKg    float64           `json:"total_kg" bson:"total_kg"`
	RulesPlan  *DistributionPlan `json:"rules_plan,omitempty" bson:"rules_plan,omitempty"`
	CreatedAt  time.Time         `json:"created_at" bson:"created_at"`
}

// DistributionResponse is the payload of the distribution-recommendations report.
type DistributionResponse struct {
	Batches    []Batch          `json:"batches"`
	DemandData ChannelTable     `json:"demand_data"`
	Plan       DistributionPlan `json:"recommendations"`
	ReportID   string           `json:"report_id,omitempty"`
}

// ForecastBatch is a batch enriched with a fresh risk evaluation.
type ForecastBatch struct {
	Batch
	AdjustedRisk   RiskLevel `json:"adjusted_risk"`
	RiskFactor     float64   `json:"risk_factor"`
	EstimatedValue float64   `json:"estimated_value"`
}

// ForecastSummary aggregates the spoilage forecast.
type ForecastSummary struct {
	TotalAtRiskBatches    int     `json:"total_at_risk_batches"`
	TotalAtRiskQuantityKg float64 `json:"total_at_risk_quantity_kg"`
	HighRiskQuantityKg    float64 `json:"high_risk_quantity_kg"`
	PotentialLossHighRisk float64 `json:"potential_loss_high_risk_php"`
	PotentialLossTotal    float64 `json:"potential_loss_total_php"`
	AverageDaysRemaining  float64 `json:"average_days_remaining"`
}

// SpoilageForecast is the spoilage forecast report.
type SpoilageForecast struct {
	AtRiskBatches []ForecastBatch `json:"at_risk_batches"`
	Summary       ForecastSummary `json:"summary"`
}

// OptimalBand is the target band and ideal value for one storage condition.
type OptimalBand struct {
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Ideal float64 `json:"ideal"`
	Unit  string  `json:"unit"`
}

// OptimalConditions are the target storage conditions for the produce.
type OptimalConditions struct {
	Temperature OptimalBand `json:"temperature"`
	Humidity    OptimalBand `json:"humidity"`
}

// LocationConditions are averaged readings for one storage location.
type LocationConditions struct {
	StorageLocation string  `json:"storage_location"`
	AvgTemperature  float64 `json:"avg_temperature"`
	AvgHumidity     float64 `json:"avg_humidity"`
	BatchCount      int     `json:"batch_count"`
	TotalKg         float64 `json:"total_kg"`
}

// ConditionPair holds a temperature and a humidity value.
type ConditionPair struct {
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
}

// AdvicePair holds temperature and humidity advice.
type AdvicePair struct {
	Temperature string `json:"temperature"`
	Humidity    string `json:"humidity"`
}

// StorageRecommendation is the advice generated for one storage location.
type StorageRecommendation struct {
	StorageLocation     string        `json:"storage_location"`
	CurrentConditions   ConditionPair `json:"current_conditions"`
	Deviations          ConditionPair `json:"deviations"`
	Recommendations     AdvicePair    `json:"recommendations"`
	RiskLevel           RiskLevel     `json:"risk_level"`
	AffectedInventoryKg float64       `json:"affected_inventory_kg"`
}

// StorageReport is the storage-recommendations report.
type StorageReport struct {
	StorageRecommendations []StorageRecommendation `json:"storage_recommendations"`
	OptimalConditions      OptimalConditions       `json:"optimal_conditions"`
	Summary                string                  `json:"summary"`
}

// TrendPoint is one day of inventory movement.
type TrendPoint struct {
	Date      time.Time `json:"date"`
	Additions float64   `json:"additions"`
	Removals  float64   `json:"removals"`
	Balance   float64   `json:"balance"`
}

// GroupTotal is a batch count and quantity grouped by some key.
type GroupTotal struct {
	Key        string  `json:"key"`
	BatchCount int     `json:"count"`
	TotalKg    float64 `json:"total_kg"`
}

// InventoryAnalytics is the inventory-analytics report.
type InventoryAnalytics struct {
	InventoryTrends       []TrendPoint `json:"inventory_trends"`
	InventoryByGrade      []GroupTotal `json:"inventory_by_grade"`
	SpoilageDistribution  []GroupTotal `json:"spoilage_distribution"`
	ShelfLifeDistribution []GroupTotal `json:"shelf_life_distribution"`
}

// RecentShipment is a shipment joined with its batch.
type RecentShipment struct {
	Shipment
	Variety      string  `json:"variety"`
	QuantityKg   float64 `json:"quantity_kg"`
	QualityGrade string  `json:"quality_grade"`
}

// ShipmentAnalytics is the shipment-analytics report.
type ShipmentAnalytics struct {
	ShipmentSummary         []GroupTotal     `json:"shipment_summary"`
	DestinationDistribution []GroupTotal     `json:"destination_distribution"`
	RecentShipments         []RecentShipment `json:"recent_shipments"`
	TransportationTypes     []GroupTotal     `json:"transportation_types"`
}
