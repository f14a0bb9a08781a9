package core

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type AccountType string

const (
	Asset     AccountType = "asset"
	Liability AccountType = "liability"
	Income    AccountType = "income"
	Expense   AccountType = "expense"
)

func (t AccountType) Valid() bool {
	switch t {
	case Asset, Liability, Income, Expense:
		return true
	}
	return false
}

// Account is a named ledger account. Balance is a cached running total of
// debit minus credit over every journal line posted to it.
type Account struct {
	ID        uuid.UUID       `json:"id"`
	Code      string          `json:"code"`
	Name      string          `json:"name"`
	Type      AccountType     `json:"type"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt time.Time       `json:"created_at"`
}

// AccountSpec identifies an account for lookup-or-create.
type AccountSpec struct {
	Code string      `json:"code"`
	Name string      `json:"name"`
	Type AccountType `json:"type"`
}

// RefType tags the business document a journal entry originates from.
type RefType string

const (
	RefGRN            RefType = "GRN"
	RefPurchaseReturn RefType = "PurchaseReturn"
	RefSale           RefType = "Sale"
	RefPurchase       RefType = "Purchase"
	RefExpense        RefType = "Expense"
	RefPayment        RefType = "Payment"
	RefManual         RefType = "Manual"
)

func (r RefType) Valid() bool {
	switch r {
	case RefGRN, RefPurchaseReturn, RefSale, RefPurchase, RefExpense, RefPayment, RefManual:
		return true
	}
	return false
}

type JournalLine struct {
	AccountID uuid.UUID       `json:"account_id"`
	Debit     decimal.Decimal `json:"debit"`
	Credit    decimal.Decimal `json:"credit"`
	Narration string          `json:"narration,omitempty"`
}

type JournalEntry struct {
	ID        uuid.UUID     `json:"id"`
	VoucherNo string        `json:"voucher_no"`
	Date      time.Time     `json:"date"`
	Lines     []JournalLine `json:"lines"`
	RefType   RefType       `json:"ref_type"`
	RefID     *uuid.UUID    `json:"ref_id,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
}

func (e *JournalEntry) Clone() *JournalEntry {
	c := *e
	c.Lines = append([]JournalLine(nil), e.Lines...)
	if e.RefID != nil {
		id := *e.RefID
		c.RefID = &id
	}
	return &c
}

// Supplier is stored as-is; the only behaviour attached to it is the payable account
// purchase returns are credited to.
type Supplier struct {
	ID                 uuid.UUID `json:"id"`
	Code               string    `json:"code"`
	Name               string    `json:"name"`
	PayableAccountCode string    `json:"payable_account_code,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
}

type GRNStatus string

const GRNStatusReceived GRNStatus = "received"

type GRNItem struct {
	ProductID   uuid.UUID       `json:"product_id"`
	ReceivedQty int64           `json:"received_qty"`
	Cost        decimal.Decimal `json:"cost"`
	BatchNo     string          `json:"batch_no"`
	Expiry      *time.Time      `json:"expiry,omitempty"`
}

// GRN (goods receipt note) is immutable once created.
type GRN struct {
	ID              uuid.UUID  `json:"id"`
	GRNNo           string     `json:"grn_no"`
	PurchaseOrderID *uuid.UUID `json:"purchase_order_id,omitempty"`
	SupplierID      uuid.UUID  `json:"supplier_id"`
	Items           []GRNItem  `json:"items"`
	Status          GRNStatus  `json:"status"`
	ReceivedAt      time.Time  `json:"received_at"`
	CreatedAt       time.Time  `json:"created_at"`
}

// TotalCost is the sum of receivedQty * cost over all items.
func (g *GRN) TotalCost() decimal.Decimal {
	total := decimal.Zero
	for _, it := range g.Items {
		total = total.Add(it.Cost.Mul(decimal.NewFromInt(it.ReceivedQty)))
	}
	return total
}

func (g *GRN) Clone() *GRN {
	c := *g
	c.Items = append([]GRNItem(nil), g.Items...)
	return &c
}

type PurchaseReturnItem struct {
	ProductID       uuid.UUID          `json:"product_id"`
	Qty             int64              `json:"qty"`
	Rate            decimal.Decimal    `json:"rate"`
	Tax             decimal.Decimal    `json:"tax"`
	ConsumedBatches []BatchConsumption `json:"consumed_batches"`
}

// PurchaseReturn records stock sent back to a supplier, with the batches it was drawn from.
type PurchaseReturn struct {
	ID             uuid.UUID            `json:"id"`
	ReturnNo       string               `json:"return_no"`
	SupplierID     uuid.UUID            `json:"supplier_id"`
	PurchaseID     *uuid.UUID           `json:"purchase_id,omitempty"`
	Items          []PurchaseReturnItem `json:"items"`
	TotalAmount    decimal.Decimal      `json:"total_amount"`
	JournalEntryID uuid.UUID            `json:"journal_entry_id"`
	ReturnDate     time.Time            `json:"return_date"`
	CreatedAt      time.Time            `json:"created_at"`
}

func (r *PurchaseReturn) Clone() *PurchaseReturn {
	c := *r
	c.Items = make([]PurchaseReturnItem, len(r.Items))
	for i, it := range r.Items {
		it.ConsumedBatches = append([]BatchConsumption(nil), it.ConsumedBatches...)
		c.Items[i] = it
	}
	return &c
}
