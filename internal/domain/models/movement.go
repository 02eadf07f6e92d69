package models

import (
	"fmt"
	"math"
	"strings"
)

// ManualAdjustmentReason is recorded when a batch quantity is edited directly.
const ManualAdjustmentReason = "Manual adjustment"

// Validate checks a movement request before it touches storage.
func (r NewInventoryLogRequest) Validate() error {
	if r.BatchID <= 0 {
		return &ValidationError{Field: "batch_id", Value: fmt.Sprint(r.BatchID), Reason: "required"}
	}
	if !r.Action.Valid() {
		return &ValidationError{Field: "action", Value: string(r.Action), Reason: "must be one of addition, removal, quality_check, transfer"}
	}
	if r.QuantityKg <= 0 || math.IsNaN(r.QuantityKg) || math.IsInf(r.QuantityKg, 0) {
		return &ValidationError{Field: "quantity_kg", Value: fmt.Sprint(r.QuantityKg), Reason: "must be positive"}
	}
	if strings.TrimSpace(r.Reason) == "" {
		return &ValidationError{Field: "reason", Reason: "required"}
	}
	return nil
}

// ApplyMovement returns the batch quantity after the action. Only additions and
// removals change stock.
func ApplyMovement(current float64, action InventoryAction, quantityKg float64) (float64, error) {
	switch action {
	case ActionAddition:
		return current + quantityKg, nil
	case ActionRemoval:
		next := current - quantityKg
		if next < 0 {
			return current, ErrInsufficientStock
		}
		return next, nil
	default:
		return current, nil
	}
}

// AdjustmentLog builds the audit entry for a direct quantity edit, or nil when
// the quantity is unchanged.
func AdjustmentLog(current Batch, update BatchUpdate, performedBy string) *InventoryLog {
	if update.QuantityKg == nil || *update.QuantityKg == current.QuantityKg {
		return nil
	}

	delta := *update.QuantityKg - current.QuantityKg
	action := ActionAddition
	if delta < 0 {
		action = ActionRemoval
	}
	if performedBy == "" {
		performedBy = "system"
	}

	return &InventoryLog{
		BatchID:     current.ID,
		Action:      action,
		QuantityKg:  math.Abs(delta),
		Reason:      ManualAdjustmentReason,
		PerformedBy: performedBy,
	}
}
