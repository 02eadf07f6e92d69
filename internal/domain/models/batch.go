package models

import (
	"fmt"
	"strings"
	"time"
)

// RiskLevel is the categorical spoilage risk of a batch.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// ParseRiskLevel accepts the three known categories, case-insensitively.
func ParseRiskLevel(raw string) (RiskLevel, error) {
	switch RiskLevel(strings.ToLower(strings.TrimSpace(raw))) {
	case RiskLow:
		return RiskLow, nil
	case RiskMedium:
		return RiskMedium, nil
	case RiskHigh:
		return RiskHigh, nil
	default:
		return "", &ValidationError{Field: "spoilage_risk", Value: raw, Reason: "must be one of low, medium, high"}
	}
}

// Valid reports whether the level is one of the known categories.
func (r RiskLevel) Valid() bool {
	return r == RiskLow || r == RiskMedium || r == RiskHigh
}

// BatchStatus tracks where a batch is in the warehouse lifecycle.
type BatchStatus string

const (
	StatusInStorage       BatchStatus = "in_storage"
	StatusPendingShipment BatchStatus = "pending_shipment"
	StatusShipped         BatchStatus = "shipped"
)

// Valid reports whether the status is a known lifecycle state.
func (s BatchStatus) Valid() bool {
	return s == StatusInStorage || s == StatusPendingShipment || s == StatusShipped
}

// Cavendish defaults applied when a batch is created without explicit values.
const (
	DefaultShelfLifeDays    = 14
	DefaultQualityGrade     = "A"
	DefaultTemperatureRange = "13-15"
	DefaultHumidityRange    = "90-95"
	DefaultAtRiskWindowDays = 3
	harvestDateLayout       = "2006-01-02"
)

// Batch is a tracked quantity of produce sharing harvest date, variety and storage.
type Batch struct {
	ID                     int64       `json:"id"`
	Variety                string      `json:"variety"`
	QuantityKg             float64     `json:"quantity_kg"`
	HarvestDate            time.Time   `json:"harvest_date"`
	SourceFarm             string      `json:"source_farm"`
	StorageLocation        string      `json:"storage_location"`
	EstimatedShelfLifeDays int         `json:"estimated_shelf_life"`
	QualityGrade           string      `json:"quality_grade"`
	TemperatureRequirement Range       `json:"temperature_requirement"`
	HumidityRequirement    Range       `json:"humidity_requirement"`
	TemperatureActual      *float64    `json:"temperature_actual"`
	HumidityActual         *float64    `json:"humidity_actual"`
	Status                 BatchStatus `json:"status"`
	SpoilageRisk           RiskLevel   `json:"spoilage_risk"`
	DaysRemaining          int         `json:"days_remaining"`
	Destination            *string     `json:"destination,omitempty"`
	TransportationType     *string     `json:"transportation_type,omitempty"`
	ExpectedDeliveryDate   *time.Time  `json:"expected_delivery_date,omitempty"`
	CreatedAt              time.Time   `json:"created_at"`
	UpdatedAt              time.Time   `json:"updated_at"`
}

// HasReadings reports whether both environmental readings are present.
func (b Batch) HasReadings() bool {
	return b.TemperatureActual != nil && b.HumidityActual != nil
}

// NewBatchRequest is the payload accepted when registering a batch.
type NewBatchRequest struct {
	Variety                string  `json:"variety" binding:"required"`
	QuantityKg             float64 `json:"quantity_kg" binding:"required"`
	HarvestDate            string  `json:"harvest_date" binding:"required"`
	SourceFarm             string  `json:"source_farm" binding:"required"`
	StorageLocation        string  `json:"storage_location" binding:"required"`
	EstimatedShelfLifeDays int     `json:"estimated_shelf_life"`
	QualityGrade           string  `json:"quality_grade"`
	TemperatureRequirement string  `json:"temperature_requirement"`
	HumidityRequirement    string  `json:"humidity_requirement"`
}

// ToBatch validates the request and fills Cavendish defaults.
func (r NewBatchRequest) ToBatch() (Batch, error) {
	if strings.TrimSpace(r.Variety) == "" {
		return Batch{}, &ValidationError{Field: "variety", Reason: "required"}
	}
	if r.QuantityKg <= 0 {
		return Batch{}, &ValidationError{Field: "quantity_kg", Value: fmt.Sprint(r.QuantityKg), Reason: "must be positive"}
	}
	if strings.TrimSpace(r.SourceFarm) == "" {
		return Batch{}, &ValidationError{Field: "source_farm", Reason: "required"}
	}
	if strings.TrimSpace(r.StorageLocation) == "" {
		return Batch{}, &ValidationError{Field: "storage_location", Reason: "required"}
	}

	harvest, err := time.Parse(harvestDateLayout, strings.TrimSpace(r.HarvestDate))
	if err != nil {
		return Batch{}, &ValidationError{Field: "harvest_date", Value: r.HarvestDate, Reason: "expected YYYY-MM-DD"}
	}

	tempRaw := withDefault(r.TemperatureRequirement, DefaultTemperatureRange)
	tempRange, err := ParseRange("temperature_requirement", tempRaw)
	if err != nil {
		return Batch{}, err
	}
	humidRaw := withDefault(r.HumidityRequirement, DefaultHumidityRange)
	humidRange, err := ParseRange("humidity_requirement", humidRaw)
	if err != nil {
		return Batch{}, err
	}

	shelfLife := r.EstimatedShelfLifeDays
	if shelfLife <= 0 {
		shelfLife = DefaultShelfLifeDays
	}

	return Batch{
		Variety:                strings.TrimSpace(r.Variety),
		QuantityKg:             r.QuantityKg,
		HarvestDate:            harvest,
		SourceFarm:             strings.TrimSpace(r.SourceFarm),
		StorageLocation:        strings.TrimSpace(r.StorageLocation),
		EstimatedShelfLifeDays: shelfLife,
		QualityGrade:           withDefault(r.QualityGrade, DefaultQualityGrade),
		TemperatureRequirement: tempRange,
		HumidityRequirement:    humidRange,
		Status:                 StatusInStorage,
		SpoilageRisk:           RiskLow,
	}, nil
}

// BatchUpdate carries optional field changes; nil means "keep current value".
type BatchUpdate struct {
	QuantityKg        *float64     `json:"quantity_kg"`
	StorageLocation   *string      `json:"storage_location"`
	Status            *BatchStatus `json:"status"`
	QualityGrade      *string      `json:"quality_grade"`
	TemperatureActual *float64     `json:"temperature_actual"`
	HumidityActual    *float64     `json:"humidity_actual"`
	SpoilageRisk      *RiskLevel   `json:"-"`
}

// BatchUpdateFunc derives the update to apply from the batch as currently
// stored. Stores call it while the batch row is locked.
type BatchUpdateFunc func(current Batch) (BatchUpdate, error)

// HasReadings reports whether the update touches environmental readings.
func (u BatchUpdate) HasReadings() bool {
	return u.TemperatureActual != nil || u.HumidityActual != nil
}

// BatchFilter narrows batch listings. Zero values are ignored.
type BatchFilter struct {
	Status          BatchStatus
	Location        string
	DaysUntilExpiry *int
	Variety         string
	QualityGrade    string
}

// ShipmentRequest marks a batch for distribution.
type ShipmentRequest struct {
	Destination          string     `json:"destination" binding:"required"`
	TransportationType   string     `json:"transportation_type" binding:"required"`
	ExpectedDeliveryDate *time.Time `json:"expected_delivery_date"`
}

func withDefault(value, fallback string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return fallback
}
