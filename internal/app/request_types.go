package app

import "github.com/google/uuid"

// ConsumeStockRequest is the input for a direct stock consumption (write-off, damage).
type ConsumeStockRequest struct {
	ProductID uuid.UUID
	Qty       int64
	Reason    string
}
