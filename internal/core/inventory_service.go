package core

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// InventoryService manages products and their batch ledgers.
type InventoryService interface {
	CreateProduct(ctx context.Context, input ProductInput) (*Product, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*Product, error)
	ListProducts(ctx context.Context) ([]*Product, error)

	// AddBatch receives a stock lot outside of a goods receipt (opening stock, corrections).
	AddBatch(ctx context.Context, productID uuid.UUID, r BatchReceipt) (*Product, error)
	// AddBatchTx locks the product, appends the batch and persists it inside tx.
	AddBatchTx(ctx context.Context, tx Tx, productID uuid.UUID, r BatchReceipt) (Batch, error)

	// ConsumeStock draws qty units oldest-first (write-off, sale) and returns the breakdown.
	ConsumeStock(ctx context.Context, productID uuid.UUID, qty int64, reason string) ([]BatchConsumption, error)
	// ConsumeFIFOTx consumes inside tx. The product must already be locked by the caller
	// or it is locked here.
	ConsumeFIFOTx(ctx context.Context, tx Tx, productID uuid.UUID, qty int64) ([]BatchConsumption, error)

	// GetStockValuation returns sum(qty * cost) over the product's batches.
	GetStockValuation(ctx context.Context, productID uuid.UUID) (decimal.Decimal, error)
	GetInventoryValuation(ctx context.Context) (*InventoryValuation, error)
}

// ProductInput holds the fields required to create a product.
type ProductInput struct {
	SKU     string
	Barcode string
	Name    string
}

type inventoryService struct {
	coord  *Coordinator
	logger *logrus.Logger
}

func NewInventoryService(coord *Coordinator, logger *logrus.Logger) InventoryService {
	return &inventoryService{coord: coord, logger: logger}
}

func (s *inventoryService) CreateProduct(ctx context.Context, input ProductInput) (*Product, error) {
	input.SKU = strings.TrimSpace(input.SKU)
	input.Name = strings.TrimSpace(input.Name)
	if input.SKU == "" {
		return nil, invalid("sku", "is required")
	}
	if input.Name == "" {
		return nil, invalid("name", "is required")
	}

	p := NewProduct(input.SKU, strings.TrimSpace(input.Barcode), input.Name, s.coord.Now())
	err := s.coord.Atomic(ctx, "create product", func(ctx context.Context, tx Tx) error {
		return tx.Products().Create(ctx, p)
	})
	if err != nil {
		return nil, err
	}
	s.logger.WithFields(logrus.Fields{"product_id": p.ID, "sku": p.SKU}).Info("product created")
	return p, nil
}

func (s *inventoryService) GetProduct(ctx context.Context, id uuid.UUID) (*Product, error) {
	var p *Product
	err := s.coord.View(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		p, err = tx.Products().Get(ctx, id)
		return err
	})
	return p, err
}

func (s *inventoryService) ListProducts(ctx context.Context) ([]*Product, error) {
	var products []*Product
	err := s.coord.View(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		products, err = tx.Products().List(ctx)
		return err
	})
	return products, err
}

func (s *inventoryService) AddBatch(ctx context.Context, productID uuid.UUID, r BatchReceipt) (*Product, error) {
	if r.Qty <= 0 {
		return nil, invalid("qty", "must be positive, got %d", r.Qty)
	}
	if r.Cost.IsNegative() {
		return nil, invalid("cost", "cannot be negative, got %s", r.Cost)
	}

	var product *Product
	err := s.coord.Atomic(ctx, "add batch", func(ctx context.Context, tx Tx) error {
		if _, err := s.AddBatchTx(ctx, tx, productID, r); err != nil {
			return err
		}
		var err error
		product, err = tx.Products().Get(ctx, productID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.WithFields(logrus.Fields{
		"product_id": productID,
		"qty":        r.Qty,
		"stock":      product.Stock(),
		"cost_price": product.CostPrice().String(),
	}).Info("batch added")
	return product, nil
}

func (s *inventoryService) AddBatchTx(ctx context.Context, tx Tx, productID uuid.UUID, r BatchReceipt) (Batch, error) {
	p, err := tx.Products().GetForUpdate(ctx, productID)
	if err != nil {
		return Batch{}, err
	}
	b, err := p.AddBatch(r, s.coord.Now())
	if err != nil {
		return Batch{}, err
	}
	if err := tx.Products().Save(ctx, p); err != nil {
		return Batch{}, err
	}
	return b, nil
}

func (s *inventoryService) ConsumeStock(ctx context.Context, productID uuid.UUID, qty int64, reason string) ([]BatchConsumption, error) {
	if qty <= 0 {
		return nil, invalid("qty", "must be positive, got %d", qty)
	}

	var consumed []BatchConsumption
	err := s.coord.Atomic(ctx, "consume stock", func(ctx context.Context, tx Tx) error {
		var err error
		consumed, err = s.ConsumeFIFOTx(ctx, tx, productID, qty)
		return err
	})
	if err != nil {
		return nil, err
	}

	_, cost := ConsumptionTotal(consumed)
	s.logger.WithFields(logrus.Fields{
		"product_id": productID,
		"qty":        qty,
		"cost":       cost.String(),
		"reason":     reason,
	}).Info("stock consumed")
	return consumed, nil
}

func (s *inventoryService) ConsumeFIFOTx(ctx context.Context, tx Tx, productID uuid.UUID, qty int64) ([]BatchConsumption, error) {
	p, err := tx.Products().GetForUpdate(ctx, productID)
	if err != nil {
		return nil, err
	}
	consumed, err := p.ConsumeFIFO(qty, s.coord.Now())
	if err != nil {
		return nil, err
	}
	if err := tx.Products().Save(ctx, p); err != nil {
		return nil, err
	}
	return consumed, nil
}

func (s *inventoryService) GetStockValuation(ctx context.Context, productID uuid.UUID) (decimal.Decimal, error) {
	p, err := s.GetProduct(ctx, productID)
	if err != nil {
		return decimal.Zero, err
	}
	return p.Valuation(), nil
}

func (s *inventoryService) GetInventoryValuation(ctx context.Context) (*InventoryValuation, error) {
	products, err := s.ListProducts(ctx)
	if err != nil {
		return nil, err
	}

	report := &InventoryValuation{Products: make([]ProductValuation, 0, len(products)), Total: decimal.Zero}
	for _, p := range products {
		v := p.Valuation()
		report.Products = append(report.Products, ProductValuation{
			ProductID: p.ID,
			SKU:       p.SKU,
			Name:      p.Name,
			Stock:     p.Stock(),
			CostPrice: p.CostPrice(),
			Value:     v,
		})
		report.Total = report.Total.Add(v)
	}
	return report, nil
}
