package app

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"inventory-ledger/internal/core"
)

// Options configures the services built by New.
type Options struct {
	TxTimeout time.Duration
	Rules     core.AccountRules
	Metrics   *core.Metrics
	Logger    *logrus.Logger
}

type appService struct {
	ledger    core.LedgerService
	inventory core.InventoryService
	suppliers core.SupplierService
	orders    core.PurchaseOrderService
	receipts  core.GoodsReceiptService
	returns   core.PurchaseReturnService
	reports   core.ReportingService
	rules     core.AccountRules
}

// New wires every core service over store and returns them behind ApplicationService.
func New(store core.Store, opts Options) ApplicationService {
	coord := core.NewCoordinator(store, opts.TxTimeout, opts.Metrics)
	ledger := core.NewLedger(coord, opts.Metrics, opts.Logger)
	return NewAppService(
		ledger,
		core.NewInventoryService(coord, opts.Logger),
		core.NewSupplierService(coord, opts.Logger),
		core.NewPurchaseOrderService(coord, opts.Logger),
		core.NewGoodsReceiptService(coord, opts.Metrics, opts.Logger),
		core.NewPurchaseReturnService(coord, ledger, opts.Rules, opts.Metrics, opts.Logger),
		core.NewReportingService(coord),
		opts.Rules,
	)
}

// NewAppService constructs an appService that satisfies ApplicationService.
func NewAppService(
	ledger core.LedgerService,
	inventory core.InventoryService,
	suppliers core.SupplierService,
	orders core.PurchaseOrderService,
	receipts core.GoodsReceiptService,
	returns core.PurchaseReturnService,
	reports core.ReportingService,
	rules core.AccountRules,
) ApplicationService {
	return &appService{
		ledger:    ledger,
		inventory: inventory,
		suppliers: suppliers,
		orders:    orders,
		receipts:  receipts,
		returns:   returns,
		reports:   reports,
		rules:     rules,
	}
}

func (s *appService) CreateSupplier(ctx context.Context, input core.SupplierInput) (*core.Supplier, error) {
	return s.suppliers.CreateSupplier(ctx, input)
}

func (s *appService) GetSupplier(ctx context.Context, id uuid.UUID) (*core.Supplier, error) {
	return s.suppliers.GetSupplier(ctx, id)
}

func (s *appService) ListSuppliers(ctx context.Context) ([]core.Supplier, error) {
	return s.suppliers.ListSuppliers(ctx)
}

func (s *appService) CreateProduct(ctx context.Context, input core.ProductInput) (*core.Product, error) {
	return s.inventory.CreateProduct(ctx, input)
}

func (s *appService) GetProduct(ctx context.Context, id uuid.UUID) (*core.Product, error) {
	return s.inventory.GetProduct(ctx, id)
}

func (s *appService) ListProducts(ctx context.Context) ([]*core.Product, error) {
	return s.inventory.ListProducts(ctx)
}

func (s *appService) AddBatch(ctx context.Context, productID uuid.UUID, receipt core.BatchReceipt) (*core.Product, error) {
	return s.inventory.AddBatch(ctx, productID, receipt)
}

func (s *appService) ConsumeStock(ctx context.Context, req ConsumeStockRequest) (*ConsumptionResult, error) {
	batches, err := s.inventory.ConsumeStock(ctx, req.ProductID, req.Qty, req.Reason)
	if err != nil {
		return nil, err
	}
	qty, cost := core.ConsumptionTotal(batches)
	return &ConsumptionResult{Batches: batches, Qty: qty, Cost: cost}, nil
}

func (s *appService) GetStockValuation(ctx context.Context, productID uuid.UUID) (decimal.Decimal, error) {
	return s.inventory.GetStockValuation(ctx, productID)
}

func (s *appService) GetInventoryValuation(ctx context.Context) (*core.InventoryValuation, error) {
	return s.inventory.GetInventoryValuation(ctx)
}

func (s *appService) CreatePurchaseOrder(ctx context.Context, input core.PurchaseOrderInput) (*core.PurchaseOrder, error) {
	return s.orders.CreatePurchaseOrder(ctx, input)
}

func (s *appService) ConfirmPurchaseOrder(ctx context.Context, id uuid.UUID) (*core.PurchaseOrder, error) {
	return s.orders.ConfirmPO(ctx, id)
}

func (s *appService) CancelPurchaseOrder(ctx context.Context, id uuid.UUID) (*core.PurchaseOrder, error) {
	return s.orders.CancelPO(ctx, id)
}

func (s *appService) GetPurchaseOrder(ctx context.Context, id uuid.UUID) (*core.PurchaseOrder, error) {
	return s.orders.GetPO(ctx, id)
}

func (s *appService) ListPurchaseOrders(ctx context.Context, f core.PurchaseOrderFilter) ([]core.PurchaseOrder, error) {
	return s.orders.ListPOs(ctx, f)
}

func (s *appService) ReceiveGoods(ctx context.Context, req core.ReceiveGoodsRequest) (*core.GRN, error) {
	return s.receipts.ReceiveGoods(ctx, req)
}

func (s *appService) GetGRN(ctx context.Context, id uuid.UUID) (*core.GRN, error) {
	return s.receipts.GetGRN(ctx, id)
}

func (s *appService) ListGRNs(ctx context.Context, f core.GRNFilter) ([]core.GRN, error) {
	return s.receipts.ListGRNs(ctx, f)
}

func (s *appService) CreatePurchaseReturn(ctx context.Context, req core.CreatePurchaseReturnRequest) (*PurchaseReturnResult, error) {
	ret, entry, err := s.returns.CreatePurchaseReturn(ctx, req)
	if err != nil {
		return nil, err
	}
	return &PurchaseReturnResult{Return: ret, Entry: entry}, nil
}

func (s *appService) GetPurchaseReturn(ctx context.Context, id uuid.UUID) (*core.PurchaseReturn, error) {
	return s.returns.GetPurchaseReturn(ctx, id)
}

func (s *appService) ListPurchaseReturns(ctx context.Context, f core.PurchaseReturnFilter) ([]core.PurchaseReturn, error) {
	return s.returns.ListPurchaseReturns(ctx, f)
}

func (s *appService) GetOrCreateAccount(ctx context.Context, spec core.AccountSpec) (*core.Account, error) {
	return s.ledger.GetOrCreateAccount(ctx, spec)
}

func (s *appService) ListAccounts(ctx context.Context) ([]core.Account, error) {
	return s.ledger.ListAccounts(ctx)
}

func (s *appService) PostJournalEntry(ctx context.Context, req core.PostEntryRequest) (*core.JournalEntry, error) {
	return s.ledger.PostEntry(ctx, req)
}

func (s *appService) GetJournalEntry(ctx context.Context, id uuid.UUID) (*core.JournalEntry, error) {
	return s.ledger.GetEntry(ctx, id)
}

func (s *appService) ListJournalEntries(ctx context.Context, f core.JournalFilter) ([]core.JournalEntry, error) {
	return s.ledger.ListEntries(ctx, f)
}

func (s *appService) GetTrialBalance(ctx context.Context) (*core.TrialBalance, error) {
	return s.reports.GetTrialBalance(ctx)
}

func (s *appService) GetAccountStatement(ctx context.Context, accountCode string, from, to *time.Time) ([]core.StatementLine, error) {
	return s.reports.GetAccountStatement(ctx, accountCode, from, to)
}

func (s *appService) EnsureDefaultAccounts(ctx context.Context) ([]core.Account, error) {
	acct, err := s.ledger.GetOrCreateAccount(ctx, s.rules.PurchaseReturns)
	if err != nil {
		return nil, err
	}
	return []core.Account{*acct}, nil
}
