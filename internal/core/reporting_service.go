package core

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ── Report types ──────────────────────────────────────────────────────────────

// StatementLine is one journal line in an account statement.
// RunningBalance is the cumulative net-debit position after this line
// (positive = net debit, negative = net credit).
type StatementLine struct {
	Date           time.Time       `json:"date"`
	VoucherNo      string          `json:"voucher_no"`
	RefType        RefType         `json:"ref_type"`
	RefID          *uuid.UUID      `json:"ref_id,omitempty"`
	Narration      string          `json:"narration,omitempty"`
	Debit          decimal.Decimal `json:"debit"`
	Credit         decimal.Decimal `json:"credit"`
	RunningBalance decimal.Decimal `json:"running_balance"`
}

// TrialBalanceLine compares an account's cached balance with the balance derived
// from its journal lines. The two differ only if a posting bypassed the ledger.
type TrialBalanceLine struct {
	Code           string          `json:"code"`
	Name           string          `json:"name"`
	Type           AccountType     `json:"type"`
	Balance        decimal.Decimal `json:"balance"`
	DerivedBalance decimal.Decimal `json:"derived_balance"`
	InSync         bool            `json:"in_sync"`
}

// TrialBalance lists every account. IsBalanced is true when net debits equal net
// credits across the whole ledger, which holds for any correctly posted set of entries.
type TrialBalance struct {
	Accounts    []TrialBalanceLine `json:"accounts"`
	TotalDebit  decimal.Decimal    `json:"total_debit"`
	TotalCredit decimal.Decimal    `json:"total_credit"`
	IsBalanced  bool               `json:"is_balanced"`
	InSync      bool               `json:"in_sync"`
}

// ── Interface ─────────────────────────────────────────────────────────────────

// ReportingService provides read-only queries over the ledger.
type ReportingService interface {
	// GetAccountStatement returns every line posted to the account, ordered by entry
	// date then voucher number. from and to are optional inclusive bounds.
	GetAccountStatement(ctx context.Context, accountCode string, from, to *time.Time) ([]StatementLine, error)

	// GetTrialBalance returns cached and derived balances for every account.
	GetTrialBalance(ctx context.Context) (*TrialBalance, error)
}

// ── Implementation ────────────────────────────────────────────────────────────

type reportingService struct {
	coord *Coordinator
}

func NewReportingService(coord *Coordinator) ReportingService {
	return &reportingService{coord: coord}
}

// ── GetAccountStatement ───────────────────────────────────────────────────────

func (s *reportingService) GetAccountStatement(ctx context.Context, accountCode string, from, to *time.Time) ([]StatementLine, error) {
	if from != nil && to != nil && to.Before(*from) {
		return nil, invalid("to", "must not be before from")
	}

	var lines []StatementLine
	err := s.coord.View(ctx, func(ctx context.Context, tx Tx) error {
		acct, err := tx.Accounts().GetByCode(ctx, accountCode)
		if err != nil {
			return err
		}
		entries, err := tx.Journal().List(ctx, JournalFilter{AccountID: &acct.ID, From: from, To: to})
		if err != nil {
			return fmt.Errorf("failed to list entries for account %s: %w", accountCode, err)
		}

		running := decimal.Zero
		for _, e := range entries {
			for _, l := range e.Lines {
				if l.AccountID != acct.ID {
					continue
				}
				running = running.Add(l.Debit).Sub(l.Credit)
				lines = append(lines, StatementLine{
					Date:           e.Date,
					VoucherNo:      e.VoucherNo,
					RefType:        e.RefType,
					RefID:          e.RefID,
					Narration:      l.Narration,
					Debit:          l.Debit,
					Credit:         l.Credit,
					RunningBalance: running,
				})
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return lines, nil
}

// ── GetTrialBalance ───────────────────────────────────────────────────────────

func (s *reportingService) GetTrialBalance(ctx context.Context) (*TrialBalance, error) {
	tb := &TrialBalance{TotalDebit: decimal.Zero, TotalCredit: decimal.Zero, InSync: true}
	err := s.coord.View(ctx, func(ctx context.Context, tx Tx) error {
		accounts, err := tx.Accounts().List(ctx)
		if err != nil {
			return err
		}
		entries, err := tx.Journal().List(ctx, JournalFilter{})
		if err != nil {
			return fmt.Errorf("failed to list journal entries: %w", err)
		}

		derived := make(map[uuid.UUID]decimal.Decimal, len(accounts))
		for _, e := range entries {
			for _, l := range e.Lines {
				derived[l.AccountID] = derived[l.AccountID].Add(l.Debit).Sub(l.Credit)
			}
		}

		for _, a := range accounts {
			d := derived[a.ID]
			line := TrialBalanceLine{
				Code:           a.Code,
				Name:           a.Name,
				Type:           a.Type,
				Balance:        a.Balance,
				DerivedBalance: d,
				InSync:         a.Balance.Equal(d),
			}
			tb.InSync = tb.InSync && line.InSync
			if a.Balance.IsPositive() {
				tb.TotalDebit = tb.TotalDebit.Add(a.Balance)
			} else {
				tb.TotalCredit = tb.TotalCredit.Sub(a.Balance)
			}
			tb.Accounts = append(tb.Accounts, line)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	tb.IsBalanced = tb.TotalDebit.Sub(tb.TotalCredit).Abs().LessThanOrEqual(BalanceTolerance)
	return tb, nil
}
