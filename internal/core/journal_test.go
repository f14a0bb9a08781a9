package core_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inventory-ledger/internal/core"
)

func TestJournalEntry_Validate(t *testing.T) {
	cash, sales := uuid.New(), uuid.New()
	date := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		lines     []core.JournalLine
		voucher   string
		refType   core.RefType
		wantValid bool
		wantUnbal bool
	}{
		{
			name: "balanced",
			lines: []core.JournalLine{
				{AccountID: cash, Debit: dec("200.00")},
				{AccountID: sales, Credit: dec("200.00")},
			},
		},
		{
			name: "within tolerance",
			lines: []core.JournalLine{
				{AccountID: cash, Debit: dec("100.00005")},
				{AccountID: sales, Credit: dec("100")},
			},
		},
		{
			name: "unbalanced",
			lines: []core.JournalLine{
				{AccountID: cash, Debit: dec("100")},
				{AccountID: sales, Credit: dec("90")},
			},
			wantUnbal: true,
		},
		{
			name:      "single line",
			lines:     []core.JournalLine{{AccountID: cash, Debit: dec("1")}},
			wantValid: true,
		},
		{
			name: "both sides on one line",
			lines: []core.JournalLine{
				{AccountID: cash, Debit: dec("1"), Credit: dec("1")},
				{AccountID: sales, Credit: dec("0")},
			},
			wantValid: true,
		},
		{
			name: "negative amount",
			lines: []core.JournalLine{
				{AccountID: cash, Debit: dec("-5")},
				{AccountID: sales, Credit: dec("-5")},
			},
			wantValid: true,
		},
		{
			name: "missing account",
			lines: []core.JournalLine{
				{Debit: dec("5")},
				{AccountID: sales, Credit: dec("5")},
			},
			wantValid: true,
		},
		{
			name:    "unknown ref type",
			refType: "Invoice",
			lines: []core.JournalLine{
				{AccountID: cash, Debit: dec("5")},
				{AccountID: sales, Credit: dec("5")},
			},
			wantValid: true,
		},
		{
			name:    "blank voucher",
			voucher: " ",
			lines: []core.JournalLine{
				{AccountID: cash, Debit: dec("5")},
				{AccountID: sales, Credit: dec("5")},
			},
			wantValid: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := core.JournalEntry{
				VoucherNo: "JV-2026-00001",
				Date:      date,
				Lines:     tt.lines,
				RefType:   core.RefManual,
			}
			if tt.voucher != "" {
				e.VoucherNo = tt.voucher
			}
			if tt.refType != "" {
				e.RefType = tt.refType
			}

			err := e.Validate()
			var vErr *core.ValidationError
			var uErr *core.UnbalancedEntryError
			switch {
			case tt.wantValid:
				assert.True(t, errors.As(err, &vErr), "want ValidationError, got %v", err)
			case tt.wantUnbal:
				require.True(t, errors.As(err, &uErr), "want UnbalancedEntryError, got %v", err)
				assertDecimal(t, "100", uErr.Debit)
				assertDecimal(t, "90", uErr.Credit)
			default:
				assert.NoError(t, err)
			}
		})
	}
}

func TestLedger_GetOrCreateAccount_SameAccountWithinOneTransaction(t *testing.T) {
	env := newTestEnv(t)
	spec := core.AccountSpec{Code: "1400", Name: "Inventory", Type: core.Asset}

	var first, second *core.Account
	err := env.coord.Atomic(env.ctx, "test", func(ctx context.Context, tx core.Tx) error {
		var err error
		if first, err = env.ledger.GetOrCreateAccountTx(ctx, tx, spec); err != nil {
			return err
		}
		second, err = env.ledger.GetOrCreateAccountTx(ctx, tx, core.AccountSpec{Code: "1400", Name: "Renamed", Type: core.Asset})
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Inventory", second.Name, "lookup never rewrites an existing account")

	accounts, err := env.ledger.ListAccounts(env.ctx)
	require.NoError(t, err)
	assert.Len(t, accounts, 1)
}

func TestLedger_GetOrCreateAccount_RejectsBadSpec(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.ledger.GetOrCreateAccount(env.ctx, core.AccountSpec{Code: "", Type: core.Asset})
	var vErr *core.ValidationError
	assert.True(t, errors.As(err, &vErr))

	_, err = env.ledger.GetOrCreateAccount(env.ctx, core.AccountSpec{Code: "9999", Type: "equity"})
	assert.True(t, errors.As(err, &vErr))
}

func TestLedger_PostEntry(t *testing.T) {
	env := newTestEnv(t)
	cash, err := env.ledger.GetOrCreateAccount(env.ctx, core.AccountSpec{Code: "1000", Name: "Cash", Type: core.Asset})
	require.NoError(t, err)
	sales, err := env.ledger.GetOrCreateAccount(env.ctx, core.AccountSpec{Code: "4000", Name: "Sales", Type: core.Income})
	require.NoError(t, err)

	entry, err := env.ledger.PostEntry(env.ctx, core.PostEntryRequest{
		Lines: []core.JournalLine{
			{AccountID: cash.ID, Debit: dec("150")},
			{AccountID: sales.ID, Credit: dec("150")},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "JV-2026-00001", entry.VoucherNo)
	assert.Equal(t, core.RefManual, entry.RefType)

	accounts, err := env.ledger.ListAccounts(env.ctx)
	require.NoError(t, err)
	balances := map[string]string{}
	for _, a := range accounts {
		balances[a.Code] = a.Balance.String()
	}
	assert.Equal(t, "150", balances["1000"])
	assert.Equal(t, "-150", balances["4000"])

	got, err := env.ledger.GetEntry(env.ctx, entry.ID)
	require.NoError(t, err)
	assert.Len(t, got.Lines, 2)
	assert.Equal(t, 1.0, metricValue(t, env, "ledger_journal_entries_posted_total"))
}

func TestLedger_PostEntry_UnbalancedIsNotPersisted(t *testing.T) {
	env := newTestEnv(t)
	cash, err := env.ledger.GetOrCreateAccount(env.ctx, core.AccountSpec{Code: "1000", Name: "Cash", Type: core.Asset})
	require.NoError(t, err)
	sales, err := env.ledger.GetOrCreateAccount(env.ctx, core.AccountSpec{Code: "4000", Name: "Sales", Type: core.Income})
	require.NoError(t, err)

	_, err = env.ledger.PostEntry(env.ctx, core.PostEntryRequest{
		VoucherNo: "JV-MANUAL-1",
		Lines: []core.JournalLine{
			{AccountID: cash.ID, Debit: dec("100")},
			{AccountID: sales.ID, Credit: dec("90")},
		},
	})
	var uErr *core.UnbalancedEntryError
	require.True(t, errors.As(err, &uErr), "got %v", err)

	entries, err := env.ledger.ListEntries(env.ctx, core.JournalFilter{})
	require.NoError(t, err)
	assert.Empty(t, entries)

	accounts, err := env.ledger.ListAccounts(env.ctx)
	require.NoError(t, err)
	for _, a := range accounts {
		assert.True(t, a.Balance.IsZero(), "balance of %s changed", a.Code)
	}

	assert.Equal(t, 1.0, metricValue(t, env, "ledger_journal_entries_unbalanced_total"))
}

func TestLedger_PostEntry_UnknownAccountRollsBack(t *testing.T) {
	env := newTestEnv(t)
	cash, err := env.ledger.GetOrCreateAccount(env.ctx, core.AccountSpec{Code: "1000", Name: "Cash", Type: core.Asset})
	require.NoError(t, err)

	_, err = env.ledger.PostEntry(env.ctx, core.PostEntryRequest{
		Lines: []core.JournalLine{
			{AccountID: cash.ID, Debit: dec("10")},
			{AccountID: uuid.New(), Credit: dec("10")},
		},
	})
	assert.True(t, core.IsNotFound(err), "got %v", err)
	var abort *core.TransactionAbortError
	assert.True(t, errors.As(err, &abort))

	reloaded, err := env.ledger.ListAccounts(env.ctx)
	require.NoError(t, err)
	require.Len(t, reloaded, 1)
	assert.True(t, reloaded[0].Balance.IsZero())
}
