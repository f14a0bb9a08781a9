package core

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Batch is one stock lot of a product. It is owned by its Product and only ever
// copied out, never referenced by identity.
type Batch struct {
	BatchNo    string          `json:"batch_no"`
	Qty        int64           `json:"qty"`
	Cost       decimal.Decimal `json:"cost"`
	Expiry     *time.Time      `json:"expiry,omitempty"`
	ReceivedAt time.Time       `json:"received_at"`
	SupplierID *uuid.UUID      `json:"supplier_id,omitempty"`
}

// BatchReceipt is the input to Product.AddBatch.
type BatchReceipt struct {
	BatchNo    string
	Qty        int64
	Cost       decimal.Decimal
	Expiry     *time.Time
	ReceivedAt time.Time // zero means "now"
	SupplierID *uuid.UUID
}

// BatchConsumption is one slice of a FIFO consumption: how many units were drawn
// from which batch, at that batch's unit cost.
type BatchConsumption struct {
	BatchNo     string          `json:"batch_no"`
	ConsumedQty int64           `json:"consumed_qty"`
	Cost        decimal.Decimal `json:"cost"`
}

// ConsumptionTotal sums consumed quantity and cost over a breakdown.
func ConsumptionTotal(cs []BatchConsumption) (qty int64, cost decimal.Decimal) {
	cost = decimal.Zero
	for _, c := range cs {
		qty += c.ConsumedQty
		cost = cost.Add(c.Cost.Mul(decimal.NewFromInt(c.ConsumedQty)))
	}
	return qty, cost
}

// Product is the inventory aggregate. Stock and CostPrice are derived from the
// batch list and can only change through AddBatch and ConsumeFIFO.
type Product struct {
	ID        uuid.UUID
	SKU       string
	Barcode   string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time

	stock     int64
	costPrice decimal.Decimal
	batches   []Batch
}

// ProductState is the persisted shape of a Product, used by stores to rebuild it.
type ProductState struct {
	ID        uuid.UUID
	SKU       string
	Barcode   string
	Name      string
	CostPrice decimal.Decimal
	Batches   []Batch
	CreatedAt time.Time
	UpdatedAt time.Time
}

func NewProduct(sku, barcode, name string, now time.Time) *Product {
	return &Product{
		ID:        uuid.New(),
		SKU:       sku,
		Barcode:   barcode,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
		costPrice: decimal.Zero,
	}
}

// RestoreProduct rebuilds a Product from storage. Stock is recomputed from the
// batches; the stored cost price is kept only when no stock remains.
func RestoreProduct(s ProductState) *Product {
	p := &Product{
		ID:        s.ID,
		SKU:       s.SKU,
		Barcode:   s.Barcode,
		Name:      s.Name,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
		costPrice: s.CostPrice,
	}
	for _, b := range s.Batches {
		if b.Qty > 0 {
			p.batches = append(p.batches, b)
		}
	}
	p.recalculate()
	return p
}

func (p *Product) Stock() int64 { return p.stock }
func (p *Product) CostPrice() decimal.Decimal { return p.costPrice }
func (p *Product) Batches() []Batch { return append([]Batch(nil), p.batches...) }

func (p *Product) State() ProductState {
	return ProductState{
		ID:        p.ID,
		SKU:       p.SKU,
		Barcode:   p.Barcode,
		Name:      p.Name,
		CostPrice: p.costPrice,
		Batches:   p.Batches(),
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

func (p *Product) Clone() *Product {
	c := *p
	c.batches = p.Batches()
	return &c
}

func (p *Product) MarshalJSON() ([]byte, error) {
	batches := p.batches
	if batches == nil {
		batches = []Batch{}
	}
	return json.Marshal(struct {
		ID        uuid.UUID       `json:"id"`
		SKU       string          `json:"sku"`
		Barcode   string          `json:"barcode,omitempty"`
		Name      string          `json:"name"`
		Stock     int64           `json:"stock"`
		CostPrice decimal.Decimal `json:"cost_price"`
		Batches   []Batch         `json:"batches"`
		CreatedAt time.Time       `json:"created_at"`
		UpdatedAt time.Time       `json:"updated_at"`
	}{p.ID, p.SKU, p.Barcode, p.Name, p.stock, p.costPrice, batches, p.CreatedAt, p.UpdatedAt})
}

// ProductValuation is one row of the inventory valuation report.
type ProductValuation struct {
	ProductID uuid.UUID       `json:"product_id"`
	SKU       string          `json:"sku"`
	Name      string          `json:"name"`
	Stock     int64           `json:"stock"`
	CostPrice decimal.Decimal `json:"cost_price"`
	Value     decimal.Decimal `json:"value"`
}

type InventoryValuation struct {
	Products []ProductValuation `json:"products"`
	Total    decimal.Decimal    `json:"total"`
}
