package core

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BalanceTolerance is the largest debit/credit difference accepted as balanced.
var BalanceTolerance = decimal.New(1, -4)

// Totals returns the sum of debits and the sum of credits over all lines.
func (e *JournalEntry) Totals() (debit, credit decimal.Decimal) {
	debit, credit = decimal.Zero, decimal.Zero
	for _, l := range e.Lines {
		debit = debit.Add(l.Debit)
		credit = credit.Add(l.Credit)
	}
	return debit, credit
}

// Validate enforces the structural rules on an entry and then the balance rule.
// Structural problems are ValidationErrors; a debit/credit mismatch beyond
// BalanceTolerance is an UnbalancedEntryError.
func (e *JournalEntry) Validate() error {
	if strings.TrimSpace(e.VoucherNo) == "" {
		return invalid("voucher_no", "is required")
	}
	if e.Date.IsZero() {
		return invalid("date", "is required")
	}
	if !e.RefType.Valid() {
		return invalid("ref_type", "unknown reference type %q", e.RefType)
	}
	if len(e.Lines) < 2 {
		return invalid("lines", "an entry needs at least 2 lines, got %d", len(e.Lines))
	}

	for i, l := range e.Lines {
		field := fmt.Sprintf("lines[%d]", i)
		if l.AccountID == uuid.Nil {
			return invalid(field, "account is required")
		}
		if l.Debit.IsNegative() || l.Credit.IsNegative() {
			return invalid(field, "amounts cannot be negative")
		}
		if l.Debit.IsZero() == l.Credit.IsZero() {
			return invalid(field, "exactly one of debit or credit must be non-zero")
		}
	}

	debit, credit := e.Totals()
	if debit.Sub(credit).Abs().GreaterThan(BalanceTolerance) {
		return &UnbalancedEntryError{VoucherNo: e.VoucherNo, Debit: debit, Credit: credit}
	}
	return nil
}

// Post applies one journal line to the account's cached balance (+debit - credit).
func (a *Account) Post(l JournalLine) {
	a.Balance = a.Balance.Add(l.Debit).Sub(l.Credit)
}
