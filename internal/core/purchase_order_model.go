package core

import (
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type POStatus string

const (
	POStatusDraft     POStatus = "draft"
	POStatusConfirmed POStatus = "confirmed"
	POStatusPartial   POStatus = "partial"
	POStatusCompleted POStatus = "completed"
	POStatusCancelled POStatus = "cancelled"
)

type POLineStatus string

const (
	POLinePending  POLineStatus = "pending"
	POLinePartial  POLineStatus = "partial"
	POLineReceived POLineStatus = "received"
)

// PurchaseOrderLine tracks ordered against received quantity for one product.
// QtyReceived never decreases.
type PurchaseOrderLine struct {
	ProductID   uuid.UUID       `json:"product_id"`
	QtyOrdered  int64           `json:"qty_ordered"`
	QtyReceived int64           `json:"qty_received"`
	Cost        decimal.Decimal `json:"cost"`
	Tax         decimal.Decimal `json:"tax"`
	Status      POLineStatus    `json:"status"`
}

// PurchaseOrder is never deleted; it only moves between statuses.
type PurchaseOrder struct {
	ID          uuid.UUID           `json:"id"`
	PONumber    string              `json:"po_number"`
	SupplierID  uuid.UUID           `json:"supplier_id"`
	Items       []PurchaseOrderLine `json:"items"`
	Status      POStatus            `json:"status"`
	TotalAmount decimal.Decimal     `json:"total_amount"`
	Notes       string              `json:"notes,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
	ConfirmedAt *time.Time          `json:"confirmed_at,omitempty"`
	CancelledAt *time.Time          `json:"cancelled_at,omitempty"`
}

// PurchaseOrderLineInput holds the fields required to create a purchase order line.
type PurchaseOrderLineInput struct {
	ProductID  uuid.UUID
	QtyOrdered int64
	Cost       decimal.Decimal
	Tax        decimal.Decimal
}

func (po *PurchaseOrder) Clone() *PurchaseOrder {
	c := *po
	c.Items = append([]PurchaseOrderLine(nil), po.Items...)
	return &c
}

// Confirm moves a draft order to confirmed. Confirming a confirmed order is a no-op.
func (po *PurchaseOrder) Confirm(now time.Time) error {
	switch po.Status {
	case POStatusConfirmed:
		return nil
	case POStatusDraft:
		po.Status = POStatusConfirmed
		po.ConfirmedAt = &now
		po.UpdatedAt = now
		return nil
	}
	return &InvalidTransitionError{Entity: "purchase order " + po.PONumber, From: string(po.Status), To: string(POStatusConfirmed)}
}

// Cancel is allowed from draft or confirmed only. Cancelled is terminal.
func (po *PurchaseOrder) Cancel(now time.Time) error {
	switch po.Status {
	case POStatusCancelled:
		return nil
	case POStatusDraft, POStatusConfirmed:
		po.Status = POStatusCancelled
		po.CancelledAt = &now
		po.UpdatedAt = now
		return nil
	}
	return &InvalidTransitionError{Entity: "purchase order " + po.PONumber, From: string(po.Status), To: string(POStatusCancelled)}
}

// CheckReceivable rejects goods receipts against a cancelled order.
func (po *PurchaseOrder) CheckReceivable() error {
	if po.Status == POStatusCancelled {
		return &InvalidTransitionError{Entity: "purchase order " + po.PONumber, From: string(po.Status), To: "receive goods"}
	}
	return nil
}

// RecordReceipt adds qty to the first line for productID that still has quantity
// outstanding, or to the first matching line if all are received. It reports
// whether any line matched.
func (po *PurchaseOrder) RecordReceipt(productID uuid.UUID, qty int64) (bool, error) {
	idx := -1
	for i, l := range po.Items {
		if l.ProductID != productID {
			continue
		}
		if idx < 0 {
			idx = i
		}
		if l.QtyReceived < l.QtyOrdered {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false, nil
	}
	line := &po.Items[idx]
	if qty > math.MaxInt64-line.QtyReceived {
		return false, invalid("qty", "%d more units would overflow the %d received on %s", qty, line.QtyReceived, po.PONumber)
	}
	line.QtyReceived += qty
	line.Status = lineStatus(line.QtyReceived, line.QtyOrdered)
	return true, nil
}

// RefreshStatus recomputes the aggregate status after receipts:
// completed when every line is received, partial otherwise.
func (po *PurchaseOrder) RefreshStatus(now time.Time) {
	status := POStatusCompleted
	for _, l := range po.Items {
		if l.Status != POLineReceived {
			status = POStatusPartial
			break
		}
	}
	po.Status = status
	po.UpdatedAt = now
}

func lineStatus(received, ordered int64) POLineStatus {
	switch {
	case received >= ordered:
		return POLineReceived
	case received > 0:
		return POLinePartial
	}
	return POLinePending
}
