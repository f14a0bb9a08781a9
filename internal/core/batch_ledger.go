package core

import (
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// AddBatch appends a new stock lot, increases stock by its quantity and recomputes
// the weighted-average cost over every batch on hand.
func (p *Product) AddBatch(r BatchReceipt, now time.Time) (Batch, error) {
	if r.Qty <= 0 {
		return Batch{}, invalid("qty", "must be positive, got %d", r.Qty)
	}
	if r.Qty > math.MaxInt64-p.stock {
		return Batch{}, invalid("qty", "%d more units would overflow stock of %d", r.Qty, p.stock)
	}
	if r.Cost.IsNegative() {
		return Batch{}, invalid("cost", "cannot be negative, got %s", r.Cost)
	}

	batchNo := strings.TrimSpace(r.BatchNo)
	if batchNo == "" {
		batchNo = p.nextBatchNo(now)
	} else if p.hasBatch(batchNo) {
		return Batch{}, &DuplicateError{Entity: "batch", Key: fmt.Sprintf("%s on product %s", batchNo, p.SKU)}
	}

	receivedAt := r.ReceivedAt
	if receivedAt.IsZero() {
		receivedAt = now
	}

	b := Batch{
		BatchNo:    batchNo,
		Qty:        r.Qty,
		Cost:       r.Cost,
		Expiry:     r.Expiry,
		ReceivedAt: receivedAt,
		SupplierID: r.SupplierID,
	}
	p.batches = append(p.batches, b)
	p.recalculate()
	p.UpdatedAt = now
	return b, nil
}

// ConsumeFIFO draws qty units from the oldest batches first (by ReceivedAt, not
// insertion order) and drops batches that reach zero. It fails without mutating
// anything when qty exceeds the stock on hand.
func (p *Product) ConsumeFIFO(qty int64, now time.Time) ([]BatchConsumption, error) {
	if qty <= 0 {
		return nil, invalid("qty", "must be positive, got %d", qty)
	}
	if qty > p.stock {
		return nil, &InsufficientStockError{ProductID: p.ID, Requested: qty, Available: p.stock}
	}

	slices.SortStableFunc(p.batches, func(a, b Batch) int {
		return a.ReceivedAt.Compare(b.ReceivedAt)
	})

	remaining := qty
	var consumed []BatchConsumption
	for i := range p.batches {
		if remaining == 0 {
			break
		}
		b := &p.batches[i]
		take := min(b.Qty, remaining)
		if take == 0 {
			continue
		}
		b.Qty -= take
		remaining -= take
		consumed = append(consumed, BatchConsumption{BatchNo: b.BatchNo, ConsumedQty: take, Cost: b.Cost})
	}

	p.batches = slices.DeleteFunc(p.batches, func(b Batch) bool { return b.Qty == 0 })
	p.recalculate()
	p.UpdatedAt = now
	return consumed, nil
}

// Valuation is the sum of qty * cost over all batches.
func (p *Product) Valuation() decimal.Decimal {
	total := decimal.Zero
	for _, b := range p.batches {
		total = total.Add(b.Cost.Mul(decimal.NewFromInt(b.Qty)))
	}
	return total
}

// recalculate restores stock == sum(qty) and costPrice == valuation / stock.
// With nothing on hand the last cost price is kept.
func (p *Product) recalculate() {
	var stock int64
	for _, b := range p.batches {
		stock += b.Qty
	}
	p.stock = stock
	if stock > 0 {
		p.costPrice = p.Valuation().Div(decimal.NewFromInt(stock))
	}
}

func (p *Product) hasBatch(batchNo string) bool {
	return slices.ContainsFunc(p.batches, func(b Batch) bool { return b.BatchNo == batchNo })
}

func (p *Product) nextBatchNo(now time.Time) string {
	base := fmt.Sprintf("B-%d", now.UnixMilli())
	candidate := base
	for n := 2; p.hasBatch(candidate); n++ {
		candidate = fmt.Sprintf("%s-%d", base, n)
	}
	return candidate
}
