package memory

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"

	"inventory-ledger/internal/core"
)

// ── Products ──────────────────────────────────────────────────────────────────

type productRepo struct{ *tx }

func (r productRepo) Create(_ context.Context, p *core.Product) error {
	if err := r.writable(); err != nil {
		return err
	}
	for _, existing := range r.d.products {
		if existing.SKU == p.SKU {
			return &core.DuplicateError{Entity: "product", Key: p.SKU}
		}
	}
	r.d.products[p.ID] = p.State()
	return nil
}

func (r productRepo) Get(_ context.Context, id uuid.UUID) (*core.Product, error) {
	st, ok := r.d.products[id]
	if !ok {
		return nil, core.NewNotFoundError("product", id)
	}
	return core.RestoreProduct(st), nil
}

// GetForUpdate needs no lock of its own: the transaction already holds the store mutex.
func (r productRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*core.Product, error) {
	return r.Get(ctx, id)
}

func (r productRepo) Save(_ context.Context, p *core.Product) error {
	if err := r.writable(); err != nil {
		return err
	}
	if _, ok := r.d.products[p.ID]; !ok {
		return core.NewNotFoundError("product", p.ID)
	}
	r.d.products[p.ID] = p.State()
	return nil
}

func (r productRepo) List(_ context.Context) ([]*core.Product, error) {
	out := make([]*core.Product, 0, len(r.d.products))
	for _, st := range r.d.products {
		out = append(out, core.RestoreProduct(st))
	}
	slices.SortFunc(out, func(a, b *core.Product) int { return strings.Compare(a.SKU, b.SKU) })
	return out, nil
}

// ── Suppliers ─────────────────────────────────────────────────────────────────

type supplierRepo struct{ *tx }

func (r supplierRepo) Create(_ context.Context, s *core.Supplier) error {
	if err := r.writable(); err != nil {
		return err
	}
	for _, existing := range r.d.suppliers {
		if existing.Code == s.Code {
			return &core.DuplicateError{Entity: "supplier", Key: s.Code}
		}
	}
	r.d.suppliers[s.ID] = *s
	return nil
}

func (r supplierRepo) Get(_ context.Context, id uuid.UUID) (*core.Supplier, error) {
	s, ok := r.d.suppliers[id]
	if !ok {
		return nil, core.NewNotFoundError("supplier", id)
	}
	return &s, nil
}

func (r supplierRepo) List(_ context.Context) ([]core.Supplier, error) {
	out := make([]core.Supplier, 0, len(r.d.suppliers))
	for _, s := range r.d.suppliers {
		out = append(out, s)
	}
	slices.SortFunc(out, func(a, b core.Supplier) int { return strings.Compare(a.Code, b.Code) })
	return out, nil
}

// ── Purchase orders ───────────────────────────────────────────────────────────

type orderRepo struct{ *tx }

func (r orderRepo) Create(_ context.Context, po *core.PurchaseOrder) error {
	if err := r.writable(); err != nil {
		return err
	}
	for _, existing := range r.d.orders {
		if existing.PONumber == po.PONumber {
			return &core.DuplicateError{Entity: "purchase order", Key: po.PONumber}
		}
	}
	r.d.orders[po.ID] = po.Clone()
	return nil
}

func (r orderRepo) Get(_ context.Context, id uuid.UUID) (*core.PurchaseOrder, error) {
	po, ok := r.d.orders[id]
	if !ok {
		return nil, core.NewNotFoundError("purchase order", id)
	}
	return po.Clone(), nil
}

func (r orderRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*core.PurchaseOrder, error) {
	return r.Get(ctx, id)
}

func (r orderRepo) Save(_ context.Context, po *core.PurchaseOrder) error {
	if err := r.writable(); err != nil {
		return err
	}
	if _, ok := r.d.orders[po.ID]; !ok {
		return core.NewNotFoundError("purchase order", po.ID)
	}
	r.d.orders[po.ID] = po.Clone()
	return nil
}

func (r orderRepo) List(_ context.Context, f core.PurchaseOrderFilter) ([]core.PurchaseOrder, error) {
	var out []core.PurchaseOrder
	for _, po := range r.d.orders {
		if f.SupplierID != nil && po.SupplierID != *f.SupplierID {
			continue
		}
		if f.Status != "" && po.Status != f.Status {
			continue
		}
		out = append(out, *po.Clone())
	}
	slices.SortFunc(out, func(a, b core.PurchaseOrder) int { return strings.Compare(a.PONumber, b.PONumber) })
	return out, nil
}

// ── Goods receipts ────────────────────────────────────────────────────────────

type grnRepo struct{ *tx }

func (r grnRepo) Create(_ context.Context, g *core.GRN) error {
	if err := r.writable(); err != nil {
		return err
	}
	for _, existing := range r.d.grns {
		if existing.GRNNo == g.GRNNo {
			return &core.DuplicateError{Entity: "goods receipt", Key: g.GRNNo}
		}
	}
	r.d.grns[g.ID] = g.Clone()
	return nil
}

func (r grnRepo) Get(_ context.Context, id uuid.UUID) (*core.GRN, error) {
	g, ok := r.d.grns[id]
	if !ok {
		return nil, core.NewNotFoundError("goods receipt", id)
	}
	return g.Clone(), nil
}

func (r grnRepo) List(_ context.Context, f core.GRNFilter) ([]core.GRN, error) {
	var out []core.GRN
	for _, g := range r.d.grns {
		if f.SupplierID != nil && g.SupplierID != *f.SupplierID {
			continue
		}
		if f.PurchaseOrderID != nil && (g.PurchaseOrderID == nil || *g.PurchaseOrderID != *f.PurchaseOrderID) {
			continue
		}
		if f.From != nil && g.ReceivedAt.Before(*f.From) {
			continue
		}
		if f.To != nil && g.ReceivedAt.After(*f.To) {
			continue
		}
		out = append(out, *g.Clone())
	}
	slices.SortFunc(out, func(a, b core.GRN) int { return strings.Compare(a.GRNNo, b.GRNNo) })
	return out, nil
}

// ── Purchase returns ──────────────────────────────────────────────────────────

type returnRepo struct{ *tx }

func (r returnRepo) Create(_ context.Context, pr *core.PurchaseReturn) error {
	if err := r.writable(); err != nil {
		return err
	}
	for _, existing := range r.d.returns {
		if existing.ReturnNo == pr.ReturnNo {
			return &core.DuplicateError{Entity: "purchase return", Key: pr.ReturnNo}
		}
	}
	r.d.returns[pr.ID] = pr.Clone()
	return nil
}

func (r returnRepo) Get(_ context.Context, id uuid.UUID) (*core.PurchaseReturn, error) {
	pr, ok := r.d.returns[id]
	if !ok {
		return nil, core.NewNotFoundError("purchase return", id)
	}
	return pr.Clone(), nil
}

func (r returnRepo) List(_ context.Context, f core.PurchaseReturnFilter) ([]core.PurchaseReturn, error) {
	var out []core.PurchaseReturn
	for _, pr := range r.d.returns {
		if f.SupplierID != nil && pr.SupplierID != *f.SupplierID {
			continue
		}
		out = append(out, *pr.Clone())
	}
	slices.SortFunc(out, func(a, b core.PurchaseReturn) int { return strings.Compare(a.ReturnNo, b.ReturnNo) })
	return out, nil
}

// ── Accounts ──────────────────────────────────────────────────────────────────

type accountRepo struct{ *tx }

func (r accountRepo) Create(_ context.Context, a *core.Account) (*core.Account, error) {
	if err := r.writable(); err != nil {
		return nil, err
	}
	for _, existing := range r.d.accounts {
		if existing.Code == a.Code {
			return &existing, nil
		}
	}
	r.d.accounts[a.ID] = *a
	created := *a
	return &created, nil
}

func (r accountRepo) Get(_ context.Context, id uuid.UUID) (*core.Account, error) {
	a, ok := r.d.accounts[id]
	if !ok {
		return nil, core.NewNotFoundError("account", id)
	}
	return &a, nil
}

func (r accountRepo) GetByCode(_ context.Context, code string) (*core.Account, error) {
	for _, a := range r.d.accounts {
		if a.Code == code {
			return &a, nil
		}
	}
	return nil, &core.NotFoundError{Entity: "account", Key: code}
}

func (r accountRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*core.Account, error) {
	return r.Get(ctx, id)
}

func (r accountRepo) Save(_ context.Context, a *core.Account) error {
	if err := r.writable(); err != nil {
		return err
	}
	if _, ok := r.d.accounts[a.ID]; !ok {
		return core.NewNotFoundError("account", a.ID)
	}
	r.d.accounts[a.ID] = *a
	return nil
}

func (r accountRepo) List(_ context.Context) ([]core.Account, error) {
	out := make([]core.Account, 0, len(r.d.accounts))
	for _, a := range r.d.accounts {
		out = append(out, a)
	}
	slices.SortFunc(out, func(a, b core.Account) int { return strings.Compare(a.Code, b.Code) })
	return out, nil
}

// ── Journal ───────────────────────────────────────────────────────────────────

type journalRepo struct{ *tx }

func (r journalRepo) Create(_ context.Context, e *core.JournalEntry) error {
	if err := r.writable(); err != nil {
		return err
	}
	for _, existing := range r.d.entries {
		if existing.VoucherNo == e.VoucherNo {
			return &core.DuplicateError{Entity: "journal entry", Key: e.VoucherNo}
		}
	}
	r.d.entries[e.ID] = e.Clone()
	return nil
}

func (r journalRepo) Get(_ context.Context, id uuid.UUID) (*core.JournalEntry, error) {
	e, ok := r.d.entries[id]
	if !ok {
		return nil, core.NewNotFoundError("journal entry", id)
	}
	return e.Clone(), nil
}

func (r journalRepo) List(_ context.Context, f core.JournalFilter) ([]core.JournalEntry, error) {
	var out []core.JournalEntry
	for _, e := range r.d.entries {
		if f.RefType != "" && e.RefType != f.RefType {
			continue
		}
		if f.RefID != nil && (e.RefID == nil || *e.RefID != *f.RefID) {
			continue
		}
		if f.AccountID != nil && !slices.ContainsFunc(e.Lines, func(l core.JournalLine) bool { return l.AccountID == *f.AccountID }) {
			continue
		}
		if f.From != nil && e.Date.Before(*f.From) {
			continue
		}
		if f.To != nil && e.Date.After(*f.To) {
			continue
		}
		out = append(out, *e.Clone())
	}
	slices.SortFunc(out, func(a, b core.JournalEntry) int {
		if c := a.Date.Compare(b.Date); c != 0 {
			return c
		}
		return strings.Compare(a.VoucherNo, b.VoucherNo)
	})
	return out, nil
}

// ── Sequences ─────────────────────────────────────────────────────────────────

type sequenceRepo struct{ *tx }

func (r sequenceRepo) Next(_ context.Context, docType string, year int) (int64, error) {
	if err := r.writable(); err != nil {
		return 0, err
	}
	key := fmt.Sprintf("%s/%d", docType, year)
	r.d.sequences[key]++
	return r.d.sequences[key], nil
}
