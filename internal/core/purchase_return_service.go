package core

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// PurchaseReturnService sends stock back to suppliers. Each return consumes batches
// oldest-first and posts a compensating journal entry in the same transaction.
type PurchaseReturnService interface {
	CreatePurchaseReturn(ctx context.Context, req CreatePurchaseReturnRequest) (*PurchaseReturn, *JournalEntry, error)
	GetPurchaseReturn(ctx context.Context, id uuid.UUID) (*PurchaseReturn, error)
	ListPurchaseReturns(ctx context.Context, f PurchaseReturnFilter) ([]PurchaseReturn, error)
}

type CreatePurchaseReturnRequest struct {
	SupplierID uuid.UUID
	// PurchaseID optionally references the goods receipt the stock came in on.
	PurchaseID *uuid.UUID
	Items      []PurchaseReturnItemInput
}

type PurchaseReturnItemInput struct {
	ProductID uuid.UUID
	Qty       int64
	Rate      decimal.Decimal
	Tax       decimal.Decimal
}

type purchaseReturnService struct {
	coord   *Coordinator
	ledger  LedgerService
	rules   AccountRules
	metrics *Metrics
	logger  *logrus.Logger
}

func NewPurchaseReturnService(coord *Coordinator, ledger LedgerService, rules AccountRules, metrics *Metrics, logger *logrus.Logger) PurchaseReturnService {
	return &purchaseReturnService{coord: coord, ledger: ledger, rules: rules, metrics: metrics, logger: logger}
}

func (s *purchaseReturnService) CreatePurchaseReturn(ctx context.Context, req CreatePurchaseReturnRequest) (*PurchaseReturn, *JournalEntry, error) {
	if err := validateReturn(req); err != nil {
		return nil, nil, err
	}

	var ret *PurchaseReturn
	var entry *JournalEntry
	err := s.coord.Atomic(ctx, "create purchase return", func(ctx context.Context, tx Tx) error {
		var err error
		ret, entry, err = s.create(ctx, tx, req)
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	var units int64
	for _, it := range ret.Items {
		units += it.Qty
	}
	s.metrics.returnCreated(units)
	s.metrics.entryPosted(entry.RefType)
	s.logger.WithFields(logrus.Fields{
		"return_no":   ret.ReturnNo,
		"supplier_id": ret.SupplierID,
		"total":       ret.TotalAmount.String(),
		"voucher_no":  entry.VoucherNo,
	}).Info("purchase return created")
	return ret, entry, nil
}

func (s *purchaseReturnService) create(ctx context.Context, tx Tx, req CreatePurchaseReturnRequest) (*PurchaseReturn, *JournalEntry, error) {
	now := s.coord.Now()

	supplier, err := tx.Suppliers().Get(ctx, req.SupplierID)
	if err != nil {
		return nil, nil, err
	}
	if req.PurchaseID != nil {
		grn, err := tx.GRNs().Get(ctx, *req.PurchaseID)
		if err != nil {
			return nil, nil, err
		}
		if grn.SupplierID != supplier.ID {
			return nil, nil, invalid("purchase_id", "goods receipt %s belongs to another supplier", grn.GRNNo)
		}
	}

	ids := make([]uuid.UUID, 0, len(req.Items))
	for _, it := range req.Items {
		ids = append(ids, it.ProductID)
	}
	products, err := lockProducts(ctx, tx, ids)
	if err != nil {
		return nil, nil, err
	}

	total := decimal.Zero
	items := make([]PurchaseReturnItem, 0, len(req.Items))
	for _, it := range req.Items {
		p := products[it.ProductID]
		consumed, err := p.ConsumeFIFO(it.Qty, now)
		if err != nil {
			return nil, nil, fmt.Errorf("product %s: %w", p.SKU, err)
		}
		items = append(items, PurchaseReturnItem{
			ProductID:       it.ProductID,
			Qty:             it.Qty,
			Rate:            it.Rate,
			Tax:             it.Tax,
			ConsumedBatches: consumed,
		})
		total = total.Add(it.Rate.Mul(decimal.NewFromInt(it.Qty)))
	}
	for _, p := range products {
		if err := tx.Products().Save(ctx, p); err != nil {
			return nil, nil, err
		}
	}

	payable, err := s.ledger.GetOrCreateAccountTx(ctx, tx, s.rules.SupplierPayable(supplier))
	if err != nil {
		return nil, nil, err
	}
	returns, err := s.ledger.GetOrCreateAccountTx(ctx, tx, s.rules.PurchaseReturns)
	if err != nil {
		return nil, nil, err
	}

	no, err := nextDocumentNumber(ctx, tx, DocPurchaseReturn, now)
	if err != nil {
		return nil, nil, err
	}
	ret := &PurchaseReturn{
		ID:          uuid.New(),
		ReturnNo:    no,
		SupplierID:  supplier.ID,
		PurchaseID:  req.PurchaseID,
		Items:       items,
		TotalAmount: total,
		ReturnDate:  now,
		CreatedAt:   now,
	}

	narration := fmt.Sprintf("Purchase return %s to %s", ret.ReturnNo, supplier.Name)
	entry, err := s.ledger.PostEntryTx(ctx, tx, PostEntryRequest{
		Date: now,
		Lines: []JournalLine{
			{AccountID: returns.ID, Debit: total, Narration: narration},
			{AccountID: payable.ID, Credit: total, Narration: narration},
		},
		RefType: RefPurchaseReturn,
		RefID:   &ret.ID,
	})
	if err != nil {
		return nil, nil, err
	}

	ret.JournalEntryID = entry.ID
	if err := tx.PurchaseReturns().Create(ctx, ret); err != nil {
		return nil, nil, err
	}
	return ret, entry, nil
}

func (s *purchaseReturnService) GetPurchaseReturn(ctx context.Context, id uuid.UUID) (*PurchaseReturn, error) {
	var ret *PurchaseReturn
	err := s.coord.View(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		ret, err = tx.PurchaseReturns().Get(ctx, id)
		return err
	})
	return ret, err
}

func (s *purchaseReturnService) ListPurchaseReturns(ctx context.Context, f PurchaseReturnFilter) ([]PurchaseReturn, error) {
	var rets []PurchaseReturn
	err := s.coord.View(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		rets, err = tx.PurchaseReturns().List(ctx, f)
		return err
	})
	return rets, err
}

func validateReturn(req CreatePurchaseReturnRequest) error {
	if req.SupplierID == uuid.Nil {
		return invalid("supplier_id", "is required")
	}
	if len(req.Items) == 0 {
		return invalid("items", "a purchase return needs at least one item")
	}
	for i, it := range req.Items {
		field := fmt.Sprintf("items[%d]", i)
		if it.ProductID == uuid.Nil {
			return invalid(field, "product is required")
		}
		if it.Qty <= 0 {
			return invalid(field, "qty must be positive, got %d", it.Qty)
		}
		if !it.Rate.IsPositive() {
			return invalid(field, "rate must be positive, got %s", it.Rate)
		}
		if it.Tax.IsNegative() {
			return invalid(field, "tax cannot be negative")
		}
	}
	return nil
}
