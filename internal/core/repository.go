package core

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repositories return *NotFoundError for missing records and *DuplicateError for
// uniqueness violations. Returned values are copies; changes only persist through
// the repository's Save/Create methods.

type ProductRepository interface {
	Create(ctx context.Context, p *Product) error
	Get(ctx context.Context, id uuid.UUID) (*Product, error)
	// GetForUpdate loads the product and locks it until the transaction ends.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*Product, error)
	Save(ctx context.Context, p *Product) error
	List(ctx context.Context) ([]*Product, error)
}

type SupplierRepository interface {
	Create(ctx context.Context, s *Supplier) error
	Get(ctx context.Context, id uuid.UUID) (*Supplier, error)
	List(ctx context.Context) ([]Supplier, error)
}

type PurchaseOrderFilter struct {
	SupplierID *uuid.UUID
	Status     POStatus
}

type PurchaseOrderRepository interface {
	Create(ctx context.Context, po *PurchaseOrder) error
	Get(ctx context.Context, id uuid.UUID) (*PurchaseOrder, error)
	GetForUpdate(ctx context.Context, id uuid.UUID) (*PurchaseOrder, error)
	Save(ctx context.Context, po *PurchaseOrder) error
	List(ctx context.Context, f PurchaseOrderFilter) ([]PurchaseOrder, error)
}

type GRNFilter struct {
	SupplierID      *uuid.UUID
	PurchaseOrderID *uuid.UUID
	From, To        *time.Time
}

type GRNRepository interface {
	Create(ctx context.Context, g *GRN) error
	Get(ctx context.Context, id uuid.UUID) (*GRN, error)
	List(ctx context.Context, f GRNFilter) ([]GRN, error)
}

type PurchaseReturnFilter struct {
	SupplierID *uuid.UUID
}

type PurchaseReturnRepository interface {
	Create(ctx context.Context, r *PurchaseReturn) error
	Get(ctx context.Context, id uuid.UUID) (*PurchaseReturn, error)
	List(ctx context.Context, f PurchaseReturnFilter) ([]PurchaseReturn, error)
}

type AccountRepository interface {
	// Create inserts the account. If another transaction created the same code
	// first, the existing account is returned instead.
	Create(ctx context.Context, a *Account) (*Account, error)
	Get(ctx context.Context, id uuid.UUID) (*Account, error)
	GetByCode(ctx context.Context, code string) (*Account, error)
	GetForUpdate(ctx context.Context, id uuid.UUID) (*Account, error)
	Save(ctx context.Context, a *Account) error
	List(ctx context.Context) ([]Account, error)
}

// JournalFilter narrows a journal listing. AccountID keeps entries with at least one
// line on that account; From and To bound the entry date inclusively.
type JournalFilter struct {
	RefType   RefType
	RefID     *uuid.UUID
	AccountID *uuid.UUID
	From      *time.Time
	To        *time.Time
}

type JournalRepository interface {
	Create(ctx context.Context, e *JournalEntry) error
	Get(ctx context.Context, id uuid.UUID) (*JournalEntry, error)
	List(ctx context.Context, f JournalFilter) ([]JournalEntry, error)
}

// SequenceRepository hands out gapless per-type, per-year document numbers.
type SequenceRepository interface {
	Next(ctx context.Context, docType string, year int) (int64, error)
}

// Tx is the unit of work every repository call in one atomic operation registers against.
type Tx interface {
	Products() ProductRepository
	Suppliers() SupplierRepository
	PurchaseOrders() PurchaseOrderRepository
	GRNs() GRNRepository
	PurchaseReturns() PurchaseReturnRepository
	Accounts() AccountRepository
	Journal() JournalRepository
	Sequences() SequenceRepository
}

// Store opens units of work. InTx commits when fn returns nil and rolls back every
// write otherwise. View runs fn against a read-only snapshot.
type Store interface {
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	View(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}
