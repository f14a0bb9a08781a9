package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// PurchaseOrderService covers the order side of the procurement cycle. Receipts
// against an order go through GoodsReceiptService.
type PurchaseOrderService interface {
	// CreatePurchaseOrder creates a draft order with a generated PO number.
	CreatePurchaseOrder(ctx context.Context, input PurchaseOrderInput) (*PurchaseOrder, error)
	// ConfirmPO moves a draft order to confirmed. Confirming a confirmed order is a no-op.
	ConfirmPO(ctx context.Context, id uuid.UUID) (*PurchaseOrder, error)
	// CancelPO cancels a draft or confirmed order. Cancelled orders accept no receipts.
	CancelPO(ctx context.Context, id uuid.UUID) (*PurchaseOrder, error)
	GetPO(ctx context.Context, id uuid.UUID) (*PurchaseOrder, error)
	ListPOs(ctx context.Context, f PurchaseOrderFilter) ([]PurchaseOrder, error)
}

type PurchaseOrderInput struct {
	SupplierID uuid.UUID
	Items      []PurchaseOrderLineInput
	Notes      string
}

type purchaseOrderService struct {
	coord  *Coordinator
	logger *logrus.Logger
}

// NewPurchaseOrderService constructs a PurchaseOrderService over the coordinator's store.
func NewPurchaseOrderService(coord *Coordinator, logger *logrus.Logger) PurchaseOrderService {
	return &purchaseOrderService{coord: coord, logger: logger}
}

func (s *purchaseOrderService) CreatePurchaseOrder(ctx context.Context, input PurchaseOrderInput) (*PurchaseOrder, error) {
	if input.SupplierID == uuid.Nil {
		return nil, invalid("supplier_id", "is required")
	}
	if len(input.Items) == 0 {
		return nil, invalid("items", "purchase order must have at least one line")
	}

	total := decimal.Zero
	lines := make([]PurchaseOrderLine, 0, len(input.Items))
	for i, it := range input.Items {
		field := fmt.Sprintf("items[%d]", i)
		if it.ProductID == uuid.Nil {
			return nil, invalid(field, "product is required")
		}
		if it.QtyOrdered <= 0 {
			return nil, invalid(field, "qty_ordered must be positive, got %d", it.QtyOrdered)
		}
		if it.Cost.IsNegative() || it.Tax.IsNegative() {
			return nil, invalid(field, "cost and tax cannot be negative")
		}
		lines = append(lines, PurchaseOrderLine{
			ProductID:  it.ProductID,
			QtyOrdered: it.QtyOrdered,
			Cost:       it.Cost,
			Tax:        it.Tax,
			Status:     POLinePending,
		})
		total = total.Add(it.Cost.Mul(decimal.NewFromInt(it.QtyOrdered))).Add(it.Tax)
	}

	now := s.coord.Now()
	po := &PurchaseOrder{
		ID:          uuid.New(),
		SupplierID:  input.SupplierID,
		Items:       lines,
		Status:      POStatusDraft,
		TotalAmount: total,
		Notes:       strings.TrimSpace(input.Notes),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := s.coord.Atomic(ctx, "create purchase order", func(ctx context.Context, tx Tx) error {
		if _, err := tx.Suppliers().Get(ctx, po.SupplierID); err != nil {
			return err
		}
		for _, l := range po.Items {
			if _, err := tx.Products().Get(ctx, l.ProductID); err != nil {
				return err
			}
		}
		no, err := nextDocumentNumber(ctx, tx, DocPurchaseOrder, now)
		if err != nil {
			return err
		}
		po.PONumber = no
		return tx.PurchaseOrders().Create(ctx, po)
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"po_id":       po.ID,
		"po_number":   po.PONumber,
		"supplier_id": po.SupplierID,
		"total":       po.TotalAmount.String(),
	}).Info("purchase order created")
	return po, nil
}

func (s *purchaseOrderService) ConfirmPO(ctx context.Context, id uuid.UUID) (*PurchaseOrder, error) {
	return s.transition(ctx, "confirm purchase order", id, (*PurchaseOrder).Confirm)
}

func (s *purchaseOrderService) CancelPO(ctx context.Context, id uuid.UUID) (*PurchaseOrder, error) {
	return s.transition(ctx, "cancel purchase order", id, (*PurchaseOrder).Cancel)
}

func (s *purchaseOrderService) transition(ctx context.Context, op string, id uuid.UUID, apply func(*PurchaseOrder, time.Time) error) (*PurchaseOrder, error) {
	var po *PurchaseOrder
	var from POStatus
	err := s.coord.Atomic(ctx, op, func(ctx context.Context, tx Tx) error {
		var err error
		po, err = tx.PurchaseOrders().GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		from = po.Status
		if err := apply(po, s.coord.Now()); err != nil {
			return err
		}
		if po.Status == from {
			return nil
		}
		return tx.PurchaseOrders().Save(ctx, po)
	})
	if err != nil {
		return nil, err
	}

	if po.Status != from {
		s.logger.WithFields(logrus.Fields{
			"po_id":     po.ID,
			"po_number": po.PONumber,
			"from":      from,
			"to":        po.Status,
		}).Info("purchase order status changed")
	}
	return po, nil
}

func (s *purchaseOrderService) GetPO(ctx context.Context, id uuid.UUID) (*PurchaseOrder, error) {
	var po *PurchaseOrder
	err := s.coord.View(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		po, err = tx.PurchaseOrders().Get(ctx, id)
		return err
	})
	return po, err
}

func (s *purchaseOrderService) ListPOs(ctx context.Context, f PurchaseOrderFilter) ([]PurchaseOrder, error) {
	var pos []PurchaseOrder
	err := s.coord.View(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		pos, err = tx.PurchaseOrders().List(ctx, f)
		return err
	})
	return pos, err
}
