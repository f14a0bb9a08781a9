package core_test

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inventory-ledger/internal/core"
)

var (
	t1 = time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC)
	t2 = time.Date(2026, 1, 20, 8, 0, 0, 0, time.UTC)
	t3 = time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)
)

func TestProduct_ConsumeFIFO_OldestFirst(t *testing.T) {
	p := core.NewProduct("SKU-1", "", "Widget", t1)
	_, err := p.AddBatch(core.BatchReceipt{BatchNo: "A", Qty: 5, Cost: dec("10"), ReceivedAt: t1}, t1)
	require.NoError(t, err)
	_, err = p.AddBatch(core.BatchReceipt{BatchNo: "B", Qty: 5, Cost: dec("12"), ReceivedAt: t2}, t2)
	require.NoError(t, err)

	consumed, err := p.ConsumeFIFO(7, t3)
	require.NoError(t, err)
	require.Len(t, consumed, 2)
	assert.Equal(t, "A", consumed[0].BatchNo)
	assert.EqualValues(t, 5, consumed[0].ConsumedQty)
	assertDecimal(t, "10", consumed[0].Cost)
	assert.Equal(t, "B", consumed[1].BatchNo)
	assert.EqualValues(t, 2, consumed[1].ConsumedQty)
	assertDecimal(t, "12", consumed[1].Cost)

	remaining := p.Batches()
	require.Len(t, remaining, 1, "exhausted batches are dropped")
	assert.Equal(t, "B", remaining[0].BatchNo)
	assert.EqualValues(t, 3, remaining[0].Qty)
	assert.EqualValues(t, 3, p.Stock())
	assertDecimal(t, "12", p.CostPrice())

	qty, cost := core.ConsumptionTotal(consumed)
	assert.EqualValues(t, 7, qty)
	assertDecimal(t, "74", cost)
}

func TestProduct_ConsumeFIFO_OrdersByReceivedAtNotInsertion(t *testing.T) {
	p := core.NewProduct("SKU-2", "", "Gadget", t3)
	_, err := p.AddBatch(core.BatchReceipt{BatchNo: "LATE", Qty: 4, Cost: dec("9"), ReceivedAt: t2}, t3)
	require.NoError(t, err)
	_, err = p.AddBatch(core.BatchReceipt{BatchNo: "EARLY", Qty: 4, Cost: dec("7"), ReceivedAt: t1}, t3)
	require.NoError(t, err)

	consumed, err := p.ConsumeFIFO(2, t3)
	require.NoError(t, err)
	require.Len(t, consumed, 1)
	assert.Equal(t, "EARLY", consumed[0].BatchNo)
}

func TestProduct_AddBatch_WeightedAverage(t *testing.T) {
	p := core.NewProduct("SKU-3", "", "Bolt", t1)
	_, err := p.AddBatch(core.BatchReceipt{Qty: 10, Cost: dec("20"), ReceivedAt: t1}, t1)
	require.NoError(t, err)
	_, err = p.AddBatch(core.BatchReceipt{Qty: 10, Cost: dec("30"), ReceivedAt: t2}, t2)
	require.NoError(t, err)

	assert.EqualValues(t, 20, p.Stock())
	assertDecimal(t, "25", p.CostPrice())
	assertDecimal(t, "500", p.Valuation())
}

func TestProduct_ConsumeFIFO_Oversell(t *testing.T) {
	p := core.NewProduct("SKU-4", "", "Nut", t1)
	_, err := p.AddBatch(core.BatchReceipt{BatchNo: "A", Qty: 3, Cost: dec("5"), ReceivedAt: t1}, t1)
	require.NoError(t, err)

	_, err = p.ConsumeFIFO(4, t2)
	var stockErr *core.InsufficientStockError
	require.True(t, errors.As(err, &stockErr), "got %v", err)
	assert.EqualValues(t, 4, stockErr.Requested)
	assert.EqualValues(t, 3, stockErr.Available)

	assert.EqualValues(t, 3, p.Stock(), "a failed consumption leaves stock untouched")
	require.Len(t, p.Batches(), 1)
	assert.EqualValues(t, 3, p.Batches()[0].Qty)
}

func TestProduct_BatchValidation(t *testing.T) {
	p := core.NewProduct("SKU-5", "", "Washer", t1)

	_, err := p.AddBatch(core.BatchReceipt{Qty: 0, Cost: dec("1")}, t1)
	var vErr *core.ValidationError
	assert.True(t, errors.As(err, &vErr))

	_, err = p.AddBatch(core.BatchReceipt{Qty: 1, Cost: dec("-1")}, t1)
	assert.True(t, errors.As(err, &vErr))

	_, err = p.ConsumeFIFO(0, t1)
	assert.True(t, errors.As(err, &vErr))

	_, err = p.AddBatch(core.BatchReceipt{BatchNo: "X", Qty: 1, Cost: dec("1")}, t1)
	require.NoError(t, err)
	_, err = p.AddBatch(core.BatchReceipt{BatchNo: "X", Qty: 1, Cost: dec("1")}, t1)
	var dupErr *core.DuplicateError
	assert.True(t, errors.As(err, &dupErr))
}

func TestProduct_GeneratedBatchNumbersAreUnique(t *testing.T) {
	p := core.NewProduct("SKU-6", "", "Clip", t1)
	a, err := p.AddBatch(core.BatchReceipt{Qty: 1, Cost: dec("1")}, t1)
	require.NoError(t, err)
	b, err := p.AddBatch(core.BatchReceipt{Qty: 1, Cost: dec("1")}, t1)
	require.NoError(t, err)
	assert.NotEmpty(t, a.BatchNo)
	assert.NotEqual(t, a.BatchNo, b.BatchNo)
}

func TestProduct_EmptyStockKeepsLastCostPrice(t *testing.T) {
	p := core.NewProduct("SKU-7", "", "Pin", t1)
	_, err := p.AddBatch(core.BatchReceipt{Qty: 2, Cost: dec("8"), ReceivedAt: t1}, t1)
	require.NoError(t, err)
	_, err = p.ConsumeFIFO(2, t2)
	require.NoError(t, err)

	assert.EqualValues(t, 0, p.Stock())
	assert.Empty(t, p.Batches())
	assertDecimal(t, "8", p.CostPrice())
	assertDecimal(t, "0", p.Valuation())
}

func TestProduct_AddBatch_RejectsStockOverflow(t *testing.T) {
	p := core.NewProduct("SKU-8", "", "Rivet", t1)
	_, err := p.AddBatch(core.BatchReceipt{BatchNo: "BIG", Qty: math.MaxInt64, Cost: dec("1"), ReceivedAt: t1}, t1)
	require.NoError(t, err)

	_, err = p.AddBatch(core.BatchReceipt{BatchNo: "ONE", Qty: 1, Cost: dec("1"), ReceivedAt: t2}, t2)
	var vErr *core.ValidationError
	require.True(t, errors.As(err, &vErr), "got %v", err)
	assert.Equal(t, "qty", vErr.Field)

	assert.EqualValues(t, int64(math.MaxInt64), p.Stock())
	require.Len(t, p.Batches(), 1)
	assert.Equal(t, "BIG", p.Batches()[0].BatchNo)
}

func TestPurchaseOrder_RecordReceipt_RejectsOverflow(t *testing.T) {
	productID := uuid.New()
	po := &core.PurchaseOrder{
		PONumber: "PO-2026-00001",
		Items: []core.PurchaseOrderLine{
			{ProductID: productID, QtyOrdered: 10, QtyReceived: math.MaxInt64, Status: core.POLineReceived},
		},
	}

	matched, err := po.RecordReceipt(productID, 1)
	var vErr *core.ValidationError
	require.True(t, errors.As(err, &vErr), "got %v", err)
	assert.False(t, matched)
	assert.EqualValues(t, int64(math.MaxInt64), po.Items[0].QtyReceived)

	matched, err = po.RecordReceipt(uuid.New(), 1)
	require.NoError(t, err)
	assert.False(t, matched, "a product not on the order matches no line")
}
