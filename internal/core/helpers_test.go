package core_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"inventory-ledger/internal/core"
	"inventory-ledger/internal/logging"
	"inventory-ledger/internal/store/memory"
)

// testEnv wires every service over one store with a clock that advances a
// minute per reading, so receipts made one after another have distinct times.
type testEnv struct {
	ctx       context.Context
	store     core.Store
	coord     *core.Coordinator
	registry  *prometheus.Registry
	ledger    *core.Ledger
	inventory core.InventoryService
	suppliers core.SupplierService
	orders    core.PurchaseOrderService
	receipts  core.GoodsReceiptService
	returns   core.PurchaseReturnService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithStore(t, memory.New())
}

func newTestEnvWithStore(t *testing.T, store core.Store) *testEnv {
	t.Helper()
	reg := prometheus.NewRegistry()
	metrics := core.NewMetrics(reg)
	logger := logging.Discard()

	coord := core.NewCoordinator(store, 5*time.Second, metrics)
	clock := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	coord.Clock = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}

	ledger := core.NewLedger(coord, metrics, logger)
	return &testEnv{
		ctx:       context.Background(),
		store:     store,
		coord:     coord,
		registry:  reg,
		ledger:    ledger,
		inventory: core.NewInventoryService(coord, logger),
		suppliers: core.NewSupplierService(coord, logger),
		orders:    core.NewPurchaseOrderService(coord, logger),
		receipts:  core.NewGoodsReceiptService(coord, metrics, logger),
		returns:   core.NewPurchaseReturnService(coord, ledger, core.DefaultAccountRules(), metrics, logger),
	}
}

func (e *testEnv) supplier(t *testing.T, code string) *core.Supplier {
	t.Helper()
	s, err := e.suppliers.CreateSupplier(e.ctx, core.SupplierInput{Code: code, Name: code + " Trading"})
	require.NoError(t, err)
	return s
}

func (e *testEnv) product(t *testing.T, sku string) *core.Product {
	t.Helper()
	p, err := e.inventory.CreateProduct(e.ctx, core.ProductInput{SKU: sku, Name: sku})
	require.NoError(t, err)
	return p
}

func (e *testEnv) reload(t *testing.T, id uuid.UUID) *core.Product {
	t.Helper()
	p, err := e.inventory.GetProduct(e.ctx, id)
	require.NoError(t, err)
	return p
}

// metricValue sums every series of a counter family in the test registry.
func metricValue(t *testing.T, e *testEnv, name string) float64 {
	t.Helper()
	families, err := e.registry.Gather()
	require.NoError(t, err)
	var total float64
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			total += m.GetCounter().GetValue()
		}
	}
	return total
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// assertDecimal compares by value so 25 and 25.000 are equal.
func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.Truef(t, dec(want).Equal(got), "want %s, got %s", want, got)
}

var errInjected = errors.New("injected failure")

// faultyStore delegates to a real store but fails purchase order saves, which the
// goods receipt flow performs after it has already changed stock.
type faultyStore struct {
	core.Store
}

func (s faultyStore) InTx(ctx context.Context, fn func(ctx context.Context, tx core.Tx) error) error {
	return s.Store.InTx(ctx, func(ctx context.Context, tx core.Tx) error {
		return fn(ctx, faultyTx{tx})
	})
}

type faultyTx struct {
	core.Tx
}

func (t faultyTx) PurchaseOrders() core.PurchaseOrderRepository {
	return faultyOrders{t.Tx.PurchaseOrders()}
}

type faultyOrders struct {
	core.PurchaseOrderRepository
}

func (faultyOrders) Save(context.Context, *core.PurchaseOrder) error { return errInjected }
