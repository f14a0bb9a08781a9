package core

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// GoodsReceiptService records goods receipt notes. A receipt adds stock lots to every
// product it names and, when linked to a purchase order, advances that order's
// received quantities, all in one transaction.
type GoodsReceiptService interface {
	ReceiveGoods(ctx context.Context, req ReceiveGoodsRequest) (*GRN, error)
	GetGRN(ctx context.Context, id uuid.UUID) (*GRN, error)
	ListGRNs(ctx context.Context, f GRNFilter) ([]GRN, error)
}

type ReceiveGoodsRequest struct {
	SupplierID      uuid.UUID
	PurchaseOrderID *uuid.UUID
	Items           []GRNItemInput
}

// GRNItemInput is one received line. An empty BatchNo is generated.
type GRNItemInput struct {
	ProductID   uuid.UUID
	ReceivedQty int64
	Cost        decimal.Decimal
	BatchNo     string
	Expiry      *time.Time
}

type goodsReceiptService struct {
	coord   *Coordinator
	metrics *Metrics
	logger  *logrus.Logger
}

func NewGoodsReceiptService(coord *Coordinator, metrics *Metrics, logger *logrus.Logger) GoodsReceiptService {
	return &goodsReceiptService{coord: coord, metrics: metrics, logger: logger}
}

func (s *goodsReceiptService) ReceiveGoods(ctx context.Context, req ReceiveGoodsRequest) (*GRN, error) {
	if err := validateReceipt(req); err != nil {
		return nil, err
	}

	var grn *GRN
	err := s.coord.Atomic(ctx, "receive goods", func(ctx context.Context, tx Tx) error {
		var err error
		grn, err = s.receive(ctx, tx, req)
		return err
	})
	if err != nil {
		return nil, err
	}

	var units int64
	for _, it := range grn.Items {
		units += it.ReceivedQty
	}
	s.metrics.grnReceived(units)

	fields := logrus.Fields{
		"grn_no":      grn.GRNNo,
		"supplier_id": grn.SupplierID,
		"items":       len(grn.Items),
		"total_cost":  grn.TotalCost().String(),
	}
	if grn.PurchaseOrderID != nil {
		fields["po_id"] = *grn.PurchaseOrderID
	}
	s.logger.WithFields(fields).Info("goods received")
	return grn, nil
}

func (s *goodsReceiptService) receive(ctx context.Context, tx Tx, req ReceiveGoodsRequest) (*GRN, error) {
	now := s.coord.Now()

	if _, err := tx.Suppliers().Get(ctx, req.SupplierID); err != nil {
		return nil, err
	}

	var po *PurchaseOrder
	if req.PurchaseOrderID != nil {
		var err error
		po, err = tx.PurchaseOrders().GetForUpdate(ctx, *req.PurchaseOrderID)
		if err != nil {
			return nil, err
		}
		if err := po.CheckReceivable(); err != nil {
			return nil, err
		}
		if po.SupplierID != req.SupplierID {
			return nil, invalid("supplier_id", "purchase order %s belongs to another supplier", po.PONumber)
		}
	}

	ids := make([]uuid.UUID, 0, len(req.Items))
	for _, it := range req.Items {
		ids = append(ids, it.ProductID)
	}
	products, err := lockProducts(ctx, tx, ids)
	if err != nil {
		return nil, err
	}

	supplierID := req.SupplierID
	items := make([]GRNItem, 0, len(req.Items))
	matched := false
	for _, it := range req.Items {
		p := products[it.ProductID]
		b, err := p.AddBatch(BatchReceipt{
			BatchNo:    it.BatchNo,
			Qty:        it.ReceivedQty,
			Cost:       it.Cost,
			Expiry:     it.Expiry,
			ReceivedAt: now,
			SupplierID: &supplierID,
		}, now)
		if err != nil {
			return nil, fmt.Errorf("product %s: %w", p.SKU, err)
		}
		items = append(items, GRNItem{
			ProductID:   it.ProductID,
			ReceivedQty: it.ReceivedQty,
			Cost:        it.Cost,
			BatchNo:     b.BatchNo,
			Expiry:      it.Expiry,
		})

		if po == nil {
			continue
		}
		ok, err := po.RecordReceipt(it.ProductID, it.ReceivedQty)
		if err != nil {
			return nil, err
		}
		if !ok {
			s.logger.WithFields(logrus.Fields{
				"po_id":      po.ID,
				"po_number":  po.PONumber,
				"product_id": it.ProductID,
			}).Warn("received product is not on the purchase order")
			continue
		}
		matched = true
	}

	for _, p := range products {
		if err := tx.Products().Save(ctx, p); err != nil {
			return nil, err
		}
	}

	// A receipt with no line on the order leaves its status alone.
	if matched {
		po.RefreshStatus(now)
		if err := tx.PurchaseOrders().Save(ctx, po); err != nil {
			return nil, fmt.Errorf("update purchase order %s: %w", po.PONumber, err)
		}
	}

	no, err := nextDocumentNumber(ctx, tx, DocGoodsReceipt, now)
	if err != nil {
		return nil, err
	}
	grn := &GRN{
		ID:              uuid.New(),
		GRNNo:           no,
		PurchaseOrderID: req.PurchaseOrderID,
		SupplierID:      req.SupplierID,
		Items:           items,
		Status:          GRNStatusReceived,
		ReceivedAt:      now,
		CreatedAt:       now,
	}
	if err := tx.GRNs().Create(ctx, grn); err != nil {
		return nil, err
	}
	return grn, nil
}

func (s *goodsReceiptService) GetGRN(ctx context.Context, id uuid.UUID) (*GRN, error) {
	var grn *GRN
	err := s.coord.View(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		grn, err = tx.GRNs().Get(ctx, id)
		return err
	})
	return grn, err
}

func (s *goodsReceiptService) ListGRNs(ctx context.Context, f GRNFilter) ([]GRN, error) {
	var grns []GRN
	err := s.coord.View(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		grns, err = tx.GRNs().List(ctx, f)
		return err
	})
	return grns, err
}

func validateReceipt(req ReceiveGoodsRequest) error {
	if len(req.Items) == 0 {
		return invalid("items", "a goods receipt needs at least one item")
	}
	if req.SupplierID == uuid.Nil {
		return invalid("supplier_id", "is required")
	}
	for i, it := range req.Items {
		field := fmt.Sprintf("items[%d]", i)
		if it.ProductID == uuid.Nil {
			return invalid(field, "product is required")
		}
		if it.ReceivedQty <= 0 {
			return invalid(field, "received_qty must be positive, got %d", it.ReceivedQty)
		}
		if it.Cost.IsNegative() {
			return invalid(field, "cost cannot be negative")
		}
	}
	return nil
}
