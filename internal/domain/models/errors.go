package models

import "errors"

var (
	// ErrBatchNotFound is returned when no batch matches the requested id.
	ErrBatchNotFound = errors.New("batch not found")
	// ErrInventoryLogNotFound is returned when no inventory log matches the requested id.
	ErrInventoryLogNotFound = errors.New("inventory log not found")
	// ErrInsufficientStock is returned when a removal exceeds the batch quantity.
	ErrInsufficientStock = errors.New("cannot remove more than available quantity")
)
