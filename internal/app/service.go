package app

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"inventory-ledger/internal/core"
)

// ApplicationService is the single interface the HTTP adapter calls. It decouples
// transport from business logic and carries no presentation concerns.
type ApplicationService interface {
	// ── Master data ──

	CreateSupplier(ctx context.Context, input core.SupplierInput) (*core.Supplier, error)
	GetSupplier(ctx context.Context, id uuid.UUID) (*core.Supplier, error)
	ListSuppliers(ctx context.Context) ([]core.Supplier, error)

	CreateProduct(ctx context.Context, input core.ProductInput) (*core.Product, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*core.Product, error)
	ListProducts(ctx context.Context) ([]*core.Product, error)

	// ── Batch ledger ──

	// AddBatch receives a stock lot directly (opening balances, corrections).
	AddBatch(ctx context.Context, productID uuid.UUID, receipt core.BatchReceipt) (*core.Product, error)
	// ConsumeStock draws units oldest-first and returns the batches they came from.
	ConsumeStock(ctx context.Context, req ConsumeStockRequest) (*ConsumptionResult, error)
	// GetStockValuation returns sum(qty * cost) over one product's batches.
	GetStockValuation(ctx context.Context, productID uuid.UUID) (decimal.Decimal, error)
	GetInventoryValuation(ctx context.Context) (*core.InventoryValuation, error)

	// ── Purchasing ──

	// CreatePurchaseOrder creates a draft purchase order with a generated PO number.
	CreatePurchaseOrder(ctx context.Context, input core.PurchaseOrderInput) (*core.PurchaseOrder, error)
	ConfirmPurchaseOrder(ctx context.Context, id uuid.UUID) (*core.PurchaseOrder, error)
	CancelPurchaseOrder(ctx context.Context, id uuid.UUID) (*core.PurchaseOrder, error)
	GetPurchaseOrder(ctx context.Context, id uuid.UUID) (*core.PurchaseOrder, error)
	ListPurchaseOrders(ctx context.Context, f core.PurchaseOrderFilter) ([]core.PurchaseOrder, error)

	// ReceiveGoods records a goods receipt note, adding stock lots and advancing the
	// linked purchase order in one transaction.
	ReceiveGoods(ctx context.Context, req core.ReceiveGoodsRequest) (*core.GRN, error)
	GetGRN(ctx context.Context, id uuid.UUID) (*core.GRN, error)
	ListGRNs(ctx context.Context, f core.GRNFilter) ([]core.GRN, error)

	// CreatePurchaseReturn consumes the returned stock oldest-first and posts the
	// compensating journal entry in one transaction.
	CreatePurchaseReturn(ctx context.Context, req core.CreatePurchaseReturnRequest) (*PurchaseReturnResult, error)
	GetPurchaseReturn(ctx context.Context, id uuid.UUID) (*core.PurchaseReturn, error)
	ListPurchaseReturns(ctx context.Context, f core.PurchaseReturnFilter) ([]core.PurchaseReturn, error)

	// ── Journal ──

	GetOrCreateAccount(ctx context.Context, spec core.AccountSpec) (*core.Account, error)
	ListAccounts(ctx context.Context) ([]core.Account, error)
	// PostJournalEntry validates balance and posts a manual or referenced entry.
	PostJournalEntry(ctx context.Context, req core.PostEntryRequest) (*core.JournalEntry, error)
	GetJournalEntry(ctx context.Context, id uuid.UUID) (*core.JournalEntry, error)
	ListJournalEntries(ctx context.Context, f core.JournalFilter) ([]core.JournalEntry, error)

	// ── Reporting ──

	// GetTrialBalance lists every account with its cached and journal-derived balance.
	GetTrialBalance(ctx context.Context) (*core.TrialBalance, error)
	GetAccountStatement(ctx context.Context, accountCode string, from, to *time.Time) ([]core.StatementLine, error)

	// EnsureDefaultAccounts creates the accounts the posting rules depend on.
	EnsureDefaultAccounts(ctx context.Context) ([]core.Account, error)
}
