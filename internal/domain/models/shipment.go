package models

import "time"

// ShipmentStatus tracks a shipment through delivery.
type ShipmentStatus string

const (
	ShipmentScheduled ShipmentStatus = "scheduled"
	ShipmentInTransit ShipmentStatus = "in_transit"
	ShipmentDelivered ShipmentStatus = "delivered"
	ShipmentCancelled ShipmentStatus = "cancelled"
)

// Shipment records a batch leaving the warehouse.
type Shipment struct {
	ID                   int64          `json:"id"`
	BatchID              int64          `json:"batch_id"`
	Destination          string         `json:"destination"`
	TransportationType   string         `json:"transportation_type"`
	ExpectedDeliveryDate *time.Time     `json:"expected_delivery_date,omitempty"`
	ActualDeliveryDate   *time.Time     `json:"actual_delivery_date,omitempty"`
	Status               ShipmentStatus `json:"status"`
	Notes                *string        `json:"notes,omitempty"`
	CreatedAt            time.Time      `json:"created_at"`
	UpdatedAt            time.Time      `json:"updated_at"`
}
