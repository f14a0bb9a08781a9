package app

import (
	"github.com/shopspring/decimal"

	"inventory-ledger/internal/core"
)

// PurchaseReturnResult is returned by CreatePurchaseReturn.
type PurchaseReturnResult struct {
	Return *core.PurchaseReturn `json:"purchase_return"`
	Entry  *core.JournalEntry   `json:"journal_entry"`
}

// ConsumptionResult is returned by ConsumeStock.
type ConsumptionResult struct {
	Batches []core.BatchConsumption `json:"batches"`
	Qty     int64                   `json:"qty"`
	Cost    decimal.Decimal         `json:"cost"`
}
