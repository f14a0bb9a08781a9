// Package memory is an in-process core.Store. Each transaction works on a private
// copy of the data and swaps it in on commit, so a failed operation leaves nothing
// behind. Transactions are serialized by a single mutex.
package memory

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sync"

	"github.com/google/uuid"

	"inventory-ledger/internal/core"
)

var errReadOnly = errors.New("memory store: write in read-only transaction")

type data struct {
	products  map[uuid.UUID]core.ProductState
	suppliers map[uuid.UUID]core.Supplier
	orders    map[uuid.UUID]*core.PurchaseOrder
	grns      map[uuid.UUID]*core.GRN
	returns   map[uuid.UUID]*core.PurchaseReturn
	accounts  map[uuid.UUID]core.Account
	entries   map[uuid.UUID]*core.JournalEntry
	sequences map[string]int64
}

func newData() *data {
	return &data{
		products:  map[uuid.UUID]core.ProductState{},
		suppliers: map[uuid.UUID]core.Supplier{},
		orders:    map[uuid.UUID]*core.PurchaseOrder{},
		grns:      map[uuid.UUID]*core.GRN{},
		returns:   map[uuid.UUID]*core.PurchaseReturn{},
		accounts:  map[uuid.UUID]core.Account{},
		entries:   map[uuid.UUID]*core.JournalEntry{},
		sequences: map[string]int64{},
	}
}

// clone copies the maps. Stored values are replaced on write, never mutated in
// place, so sharing them between the copies is safe.
func (d *data) clone() *data {
	return &data{
		products:  maps.Clone(d.products),
		suppliers: maps.Clone(d.suppliers),
		orders:    maps.Clone(d.orders),
		grns:      maps.Clone(d.grns),
		returns:   maps.Clone(d.returns),
		accounts:  maps.Clone(d.accounts),
		entries:   maps.Clone(d.entries),
		sequences: maps.Clone(d.sequences),
	}
}

// Store implements core.Store in memory.
type Store struct {
	mu   sync.RWMutex
	data *data
}

func New() *Store {
	return &Store{data: newData()}
}

func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx core.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	work := s.data.clone()
	if err := fn(ctx, &tx{d: work}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	s.data = work
	return nil
}

func (s *Store) View(ctx context.Context, fn func(ctx context.Context, tx core.Tx) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(ctx, &tx{d: s.data, readOnly: true})
}

type tx struct {
	d        *data
	readOnly bool
}

func (t *tx) Products() core.ProductRepository { return productRepo{t} }
func (t *tx) Suppliers() core.SupplierRepository { return supplierRepo{t} }
func (t *tx) PurchaseOrders() core.PurchaseOrderRepository { return orderRepo{t} }
func (t *tx) GRNs() core.GRNRepository { return grnRepo{t} }
func (t *tx) PurchaseReturns() core.PurchaseReturnRepository { return returnRepo{t} }
func (t *tx) Accounts() core.AccountRepository { return accountRepo{t} }
func (t *tx) Journal() core.JournalRepository { return journalRepo{t} }
func (t *tx) Sequences() core.SequenceRepository { return sequenceRepo{t} }

func (t *tx) writable() error {
	if t.readOnly {
		return errReadOnly
	}
	return nil
}
