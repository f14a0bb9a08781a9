package core_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inventory-ledger/internal/core"
)

func TestReporting_TrialBalanceAfterReturn(t *testing.T) {
	env := newTestEnv(t)
	reports := core.NewReportingService(env.coord)
	sup := env.supplier(t, "ACME")
	p := env.product(t, "WID-1")

	_, err := env.receipts.ReceiveGoods(env.ctx, core.ReceiveGoodsRequest{
		SupplierID: sup.ID,
		Items:      []core.GRNItemInput{{ProductID: p.ID, ReceivedQty: 10, Cost: dec("8")}},
	})
	require.NoError(t, err)
	_, _, err = env.returns.CreatePurchaseReturn(env.ctx, core.CreatePurchaseReturnRequest{
		SupplierID: sup.ID,
		Items:      []core.PurchaseReturnItemInput{{ProductID: p.ID, Qty: 4, Rate: dec("8")}},
	})
	require.NoError(t, err)

	tb, err := reports.GetTrialBalance(env.ctx)
	require.NoError(t, err)
	assert.True(t, tb.IsBalanced)
	assert.True(t, tb.InSync)
	assertDecimal(t, "32", tb.TotalDebit)
	assertDecimal(t, "32", tb.TotalCredit)
	require.Len(t, tb.Accounts, 2)
	for _, line := range tb.Accounts {
		assert.True(t, line.Balance.Equal(line.DerivedBalance), "account %s", line.Code)
	}
}

func TestReporting_AccountStatement(t *testing.T) {
	env := newTestEnv(t)
	reports := core.NewReportingService(env.coord)
	cash, err := env.ledger.GetOrCreateAccount(env.ctx, core.AccountSpec{Code: "1000", Name: "Cash", Type: core.Asset})
	require.NoError(t, err)
	sales, err := env.ledger.GetOrCreateAccount(env.ctx, core.AccountSpec{Code: "4000", Name: "Sales", Type: core.Income})
	require.NoError(t, err)

	day1 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	day2 := day1.AddDate(0, 0, 1)
	post := func(date time.Time, debit, credit string) {
		t.Helper()
		_, err := env.ledger.PostEntry(env.ctx, core.PostEntryRequest{
			Date: date,
			Lines: []core.JournalLine{
				{AccountID: cash.ID, Debit: dec(debit), Credit: dec(credit)},
				{AccountID: sales.ID, Debit: dec(credit), Credit: dec(debit)},
			},
		})
		require.NoError(t, err)
	}
	post(day1, "100", "0")
	post(day2, "0", "30")

	lines, err := reports.GetAccountStatement(env.ctx, "1000", nil, nil)
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assertDecimal(t, "100", lines[0].RunningBalance)
	assertDecimal(t, "70", lines[1].RunningBalance)

	lines, err = reports.GetAccountStatement(env.ctx, "1000", &day2, nil)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assertDecimal(t, "-30", lines[0].RunningBalance)

	_, err = reports.GetAccountStatement(env.ctx, "1000", &day2, &day1)
	assert.Error(t, err)

	_, err = reports.GetAccountStatement(env.ctx, "missing", nil, nil)
	assert.True(t, core.IsNotFound(err))
}
