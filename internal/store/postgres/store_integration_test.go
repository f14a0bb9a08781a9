package postgres_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"inventory-ledger/internal/app"
	"inventory-ledger/internal/core"
	"inventory-ledger/internal/db"
	"inventory-ledger/internal/logging"
	"inventory-ledger/internal/store/postgres"
)

func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	_ = godotenv.Load("../../../.env")

	// Use a dedicated TEST database: every table is truncated.
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping integration test")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, dbURL)
	if err != nil {
		t.Fatalf("connect to test database: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := db.Migrate(ctx, pool, logging.Discard()); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}
	_, err = pool.Exec(ctx, `
		TRUNCATE TABLE purchase_return_consumptions, purchase_return_items, purchase_returns,
			journal_lines, journal_entries, accounts,
			grn_items, grns, purchase_order_lines, purchase_orders,
			product_batches, products, suppliers, document_sequences CASCADE;
	`)
	if err != nil {
		t.Fatalf("clean test database: %v", err)
	}
	return pool
}

func newService(pool *pgxpool.Pool) app.ApplicationService {
	return app.New(postgres.New(pool), app.Options{
		TxTimeout: 10 * time.Second,
		Rules:     core.DefaultAccountRules(),
		Logger:    logging.Discard(),
	})
}

func TestPostgres_ReceiveAndReturn(t *testing.T) {
	pool := setupTestDB(t)
	svc := newService(pool)
	ctx := context.Background()

	sup, err := svc.CreateSupplier(ctx, core.SupplierInput{Code: "ACME", Name: "Acme"})
	if err != nil {
		t.Fatalf("create supplier: %v", err)
	}
	prod, err := svc.CreateProduct(ctx, core.ProductInput{SKU: "WID-1", Name: "Widget"})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	po, err := svc.CreatePurchaseOrder(ctx, core.PurchaseOrderInput{
		SupplierID: sup.ID,
		Items:      []core.PurchaseOrderLineInput{{ProductID: prod.ID, QtyOrdered: 10, Cost: decimal.NewFromInt(10)}},
	})
	if err != nil {
		t.Fatalf("create purchase order: %v", err)
	}
	if _, err := svc.ConfirmPurchaseOrder(ctx, po.ID); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	for i, cost := range []int64{10, 12} {
		_, err := svc.ReceiveGoods(ctx, core.ReceiveGoodsRequest{
			SupplierID:      sup.ID,
			PurchaseOrderID: &po.ID,
			Items:           []core.GRNItemInput{{ProductID: prod.ID, ReceivedQty: 5, Cost: decimal.NewFromInt(cost)}},
		})
		if err != nil {
			t.Fatalf("receive %d: %v", i, err)
		}
	}

	got, err := svc.GetPurchaseOrder(ctx, po.ID)
	if err != nil {
		t.Fatalf("get purchase order: %v", err)
	}
	if got.Status != core.POStatusCompleted {
		t.Errorf("PO status = %s, want completed", got.Status)
	}

	res, err := svc.CreatePurchaseReturn(ctx, core.CreatePurchaseReturnRequest{
		SupplierID: sup.ID,
		Items:      []core.PurchaseReturnItemInput{{ProductID: prod.ID, Qty: 7, Rate: decimal.NewFromInt(11)}},
	})
	if err != nil {
		t.Fatalf("create purchase return: %v", err)
	}
	if n := len(res.Return.Items[0].ConsumedBatches); n != 2 {
		t.Errorf("consumed from %d batches, want 2", n)
	}
	debit, credit := res.Entry.Totals()
	if !debit.Equal(credit) || !debit.Equal(decimal.NewFromInt(77)) {
		t.Errorf("journal totals = %s/%s, want 77/77", debit, credit)
	}

	stored, err := svc.GetPurchaseReturn(ctx, res.Return.ID)
	if err != nil {
		t.Fatalf("reload purchase return: %v", err)
	}
	if len(stored.Items) != 1 || len(stored.Items[0].ConsumedBatches) != 2 {
		t.Errorf("stored return lost its consumption breakdown: %+v", stored.Items)
	}

	p, err := svc.GetProduct(ctx, prod.ID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if p.Stock() != 3 {
		t.Errorf("stock = %d, want 3", p.Stock())
	}
	if !p.CostPrice().Equal(decimal.NewFromInt(12)) {
		t.Errorf("cost price = %s, want 12", p.CostPrice())
	}
}

func TestPostgres_OversellRollsBack(t *testing.T) {
	pool := setupTestDB(t)
	svc := newService(pool)
	ctx := context.Background()

	sup, err := svc.CreateSupplier(ctx, core.SupplierInput{Code: "ACME", Name: "Acme"})
	if err != nil {
		t.Fatalf("create supplier: %v", err)
	}
	prod, err := svc.CreateProduct(ctx, core.ProductInput{SKU: "WID-1", Name: "Widget"})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	if _, err := svc.AddBatch(ctx, prod.ID, core.BatchReceipt{Qty: 2, Cost: decimal.NewFromInt(5)}); err != nil {
		t.Fatalf("add batch: %v", err)
	}

	_, err = svc.CreatePurchaseReturn(ctx, core.CreatePurchaseReturnRequest{
		SupplierID: sup.ID,
		Items:      []core.PurchaseReturnItemInput{{ProductID: prod.ID, Qty: 3, Rate: decimal.NewFromInt(5)}},
	})
	var stockErr *core.InsufficientStockError
	if !errors.As(err, &stockErr) {
		t.Fatalf("expected InsufficientStockError, got %v", err)
	}

	var entries int
	if err := pool.QueryRow(ctx, `SELECT count(*) FROM journal_entries`).Scan(&entries); err != nil {
		t.Fatal(err)
	}
	if entries != 0 {
		t.Errorf("journal_entries = %d after rollback, want 0", entries)
	}
	p, err := svc.GetProduct(ctx, prod.ID)
	if err != nil {
		t.Fatal(err)
	}
	if p.Stock() != 2 {
		t.Errorf("stock = %d, want 2", p.Stock())
	}
}

func TestPostgres_GetOrCreateAccountIsIdempotent(t *testing.T) {
	pool := setupTestDB(t)
	svc := newService(pool)
	ctx := context.Background()

	a, err := svc.GetOrCreateAccount(ctx, core.AccountSpec{Code: "1400", Name: "Inventory", Type: core.Asset})
	if err != nil {
		t.Fatal(err)
	}
	b, err := svc.GetOrCreateAccount(ctx, core.AccountSpec{Code: "1400", Name: "Inventory", Type: core.Asset})
	if err != nil {
		t.Fatal(err)
	}
	if a.ID != b.ID {
		t.Errorf("second lookup created a new account: %s != %s", a.ID, b.ID)
	}
}

func TestPostgres_ConcurrentReceiptsAndReturns(t *testing.T) {
	pool := setupTestDB(t)
	svc := newService(pool)
	ctx := context.Background()

	sup, err := svc.CreateSupplier(ctx, core.SupplierInput{Code: "ACME", Name: "Acme"})
	if err != nil {
		t.Fatalf("create supplier: %v", err)
	}
	prod, err := svc.CreateProduct(ctx, core.ProductInput{SKU: "WID-1", Name: "Widget"})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	_, err = svc.ReceiveGoods(ctx, core.ReceiveGoodsRequest{
		SupplierID: sup.ID,
		Items:      []core.GRNItemInput{{ProductID: prod.ID, ReceivedQty: 50, Cost: decimal.NewFromInt(10)}},
	})
	if err != nil {
		t.Fatalf("seed stock: %v", err)
	}

	const workers = 10
	var wg sync.WaitGroup
	errs := make(chan error, 2*workers)
	for i := 0; i < workers; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := svc.ReceiveGoods(ctx, core.ReceiveGoodsRequest{
				SupplierID: sup.ID,
				Items:      []core.GRNItemInput{{ProductID: prod.ID, ReceivedQty: 5, Cost: decimal.NewFromInt(12)}},
			})
			errs <- err
		}()
		go func() {
			defer wg.Done()
			_, err := svc.CreatePurchaseReturn(ctx, core.CreatePurchaseReturnRequest{
				SupplierID: sup.ID,
				Items:      []core.PurchaseReturnItemInput{{ProductID: prod.ID, Qty: 3, Rate: decimal.NewFromInt(10)}},
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent operation: %v", err)
		}
	}

	p, err := svc.GetProduct(ctx, prod.ID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if want := int64(50 + workers*5 - workers*3); p.Stock() != want {
		t.Errorf("stock = %d, want %d", p.Stock(), want)
	}
	var batched int64
	for _, b := range p.Batches() {
		batched += b.Qty
	}
	if batched != p.Stock() {
		t.Errorf("batch quantities sum to %d, stock is %d", batched, p.Stock())
	}

	var stored int64
	if err := pool.QueryRow(ctx, `SELECT coalesce(sum(qty), 0) FROM product_batches WHERE product_id = $1`, prod.ID).Scan(&stored); err != nil {
		t.Fatal(err)
	}
	if stored != p.Stock() {
		t.Errorf("stored batch rows sum to %d, stock is %d", stored, p.Stock())
	}

	grns, err := svc.ListGRNs(ctx, core.GRNFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(grns) != workers+1 {
		t.Errorf("GRNs = %d, want %d", len(grns), workers+1)
	}
	returns, err := svc.ListPurchaseReturns(ctx, core.PurchaseReturnFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(returns) != workers {
		t.Errorf("returns = %d, want %d", len(returns), workers)
	}

	tb, err := svc.GetTrialBalance(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !tb.IsBalanced || !tb.InSync {
		t.Errorf("trial balance balanced=%v in_sync=%v", tb.IsBalanced, tb.InSync)
	}
}

func TestPostgres_SameTimestampBatchesKeepReceiptOrder(t *testing.T) {
	pool := setupTestDB(t)
	svc := newService(pool)
	ctx := context.Background()

	sup, err := svc.CreateSupplier(ctx, core.SupplierInput{Code: "ACME", Name: "Acme"})
	if err != nil {
		t.Fatalf("create supplier: %v", err)
	}
	prod, err := svc.CreateProduct(ctx, core.ProductInput{SKU: "WID-1", Name: "Widget"})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	// Both batches share the receipt timestamp; "LOT-10" sorts before "LOT-2" as text.
	_, err = svc.ReceiveGoods(ctx, core.ReceiveGoodsRequest{
		SupplierID: sup.ID,
		Items: []core.GRNItemInput{
			{ProductID: prod.ID, ReceivedQty: 2, Cost: decimal.NewFromInt(5), BatchNo: "LOT-2"},
			{ProductID: prod.ID, ReceivedQty: 2, Cost: decimal.NewFromInt(6), BatchNo: "LOT-10"},
		},
	})
	if err != nil {
		t.Fatalf("receive: %v", err)
	}

	p, err := svc.GetProduct(ctx, prod.ID)
	if err != nil {
		t.Fatal(err)
	}
	if b := p.Batches(); len(b) != 2 || b[0].BatchNo != "LOT-2" || b[1].BatchNo != "LOT-10" {
		t.Errorf("batches loaded out of receipt order: %+v", b)
	}

	res, err := svc.CreatePurchaseReturn(ctx, core.CreatePurchaseReturnRequest{
		SupplierID: sup.ID,
		Items:      []core.PurchaseReturnItemInput{{ProductID: prod.ID, Qty: 1, Rate: decimal.NewFromInt(5)}},
	})
	if err != nil {
		t.Fatalf("create purchase return: %v", err)
	}
	if got := res.Return.Items[0].ConsumedBatches[0].BatchNo; got != "LOT-2" {
		t.Errorf("consumed %s first, want LOT-2", got)
	}
}

func TestPostgres_ReceiptSupplierMustMatchOrder(t *testing.T) {
	pool := setupTestDB(t)
	svc := newService(pool)
	ctx := context.Background()

	acme, err := svc.CreateSupplier(ctx, core.SupplierInput{Code: "ACME", Name: "Acme"})
	if err != nil {
		t.Fatal(err)
	}
	other, err := svc.CreateSupplier(ctx, core.SupplierInput{Code: "OTHER", Name: "Other"})
	if err != nil {
		t.Fatal(err)
	}
	prod, err := svc.CreateProduct(ctx, core.ProductInput{SKU: "WID-1", Name: "Widget"})
	if err != nil {
		t.Fatal(err)
	}
	po, err := svc.CreatePurchaseOrder(ctx, core.PurchaseOrderInput{
		SupplierID: acme.ID,
		Items:      []core.PurchaseOrderLineInput{{ProductID: prod.ID, QtyOrdered: 4, Cost: decimal.NewFromInt(10)}},
	})
	if err != nil {
		t.Fatal(err)
	}

	_, err = svc.ReceiveGoods(ctx, core.ReceiveGoodsRequest{
		SupplierID:      other.ID,
		PurchaseOrderID: &po.ID,
		Items:           []core.GRNItemInput{{ProductID: prod.ID, ReceivedQty: 4, Cost: decimal.NewFromInt(10)}},
	})
	var vErr *core.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	var batches int
	if err := pool.QueryRow(ctx, `SELECT count(*) FROM product_batches`).Scan(&batches); err != nil {
		t.Fatal(err)
	}
	if batches != 0 {
		t.Errorf("product_batches = %d after rejected receipt, want 0", batches)
	}
}
