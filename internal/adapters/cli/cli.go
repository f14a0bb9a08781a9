package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"inventory-ledger/internal/app"
	"inventory-ledger/internal/core"
)

// Usage lists the commands Run accepts.
const Usage = `Usage: ledger <command> [args]

Commands:
  balances                          trial balance with cached and derived balances
  statement <code> [from] [to]      account statement, dates as YYYY-MM-DD
  valuation                         inventory valuation per product
  post                              post a journal entry read as JSON from stdin
  seed                              create the default accounts`

// Run executes a one-shot CLI command. args[0] is the subcommand name.
func Run(ctx context.Context, svc app.ApplicationService, args []string, in io.Reader, out io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("missing command\n%s", Usage)
	}

	switch args[0] {
	case "balances", "bal", "tb":
		tb, err := svc.GetTrialBalance(ctx)
		if err != nil {
			return fmt.Errorf("failed to get trial balance: %w", err)
		}
		printTrialBalance(out, tb)
		if !tb.IsBalanced || !tb.InSync {
			return errors.New("ledger integrity check failed")
		}
		return nil

	case "statement", "stmt", "s":
		if len(args) < 2 {
			return errors.New("usage: ledger statement <account code> [from] [to]")
		}
		from, err := parseDate(args, 2, false)
		if err != nil {
			return err
		}
		to, err := parseDate(args, 3, true)
		if err != nil {
			return err
		}
		lines, err := svc.GetAccountStatement(ctx, args[1], from, to)
		if err != nil {
			return fmt.Errorf("failed to get statement: %w", err)
		}
		printStatement(out, args[1], lines)
		return nil

	case "valuation", "val", "v":
		v, err := svc.GetInventoryValuation(ctx)
		if err != nil {
			return fmt.Errorf("failed to get valuation: %w", err)
		}
		printValuation(out, v)
		return nil

	case "post", "p":
		var req core.PostEntryRequest
		if err := json.NewDecoder(in).Decode(&req); err != nil {
			return fmt.Errorf("invalid JSON: %w", err)
		}
		entry, err := svc.PostJournalEntry(ctx, req)
		if err != nil {
			return fmt.Errorf("post failed: %w", err)
		}
		fmt.Fprintf(out, "Posted %s (%d lines).\n", entry.VoucherNo, len(entry.Lines))
		return nil

	case "seed":
		accounts, err := svc.EnsureDefaultAccounts(ctx)
		if err != nil {
			return fmt.Errorf("failed to seed accounts: %w", err)
		}
		for _, a := range accounts {
			fmt.Fprintf(out, "  %-12s %-30s %s\n", a.Code, a.Name, a.Type)
		}
		return nil

	default:
		return fmt.Errorf("unknown command: %s\n%s", args[0], Usage)
	}
}

// parseDate reads an optional YYYY-MM-DD argument. An end date covers the whole day.
func parseDate(args []string, i int, end bool) (*time.Time, error) {
	if len(args) <= i {
		return nil, nil
	}
	t, err := time.Parse(time.DateOnly, args[i])
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", args[i])
	}
	if end {
		t = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	return &t, nil
}

func printTrialBalance(out io.Writer, tb *core.TrialBalance) {
	fmt.Fprintln(out)
	fmt.Fprintln(out, strings.Repeat("=", 72))
	fmt.Fprintf(out, "  %-68s\n", "TRIAL BALANCE")
	fmt.Fprintln(out, strings.Repeat("=", 72))
	fmt.Fprintf(out, "  %-12s %-30s %15s %8s\n", "CODE", "NAME", "BALANCE", "")
	fmt.Fprintln(out, strings.Repeat("-", 72))
	for _, a := range tb.Accounts {
		flag := ""
		if !a.InSync {
			flag = "DRIFT"
		}
		fmt.Fprintf(out, "  %-12s %-30s %15s %8s\n", a.Code, a.Name, a.Balance.StringFixed(2), flag)
	}
	fmt.Fprintln(out, strings.Repeat("-", 72))
	fmt.Fprintf(out, "  %-43s %15s\n", "Total debit", tb.TotalDebit.StringFixed(2))
	fmt.Fprintf(out, "  %-43s %15s\n", "Total credit", tb.TotalCredit.StringFixed(2))
	fmt.Fprintln(out, strings.Repeat("=", 72))
}

func printStatement(out io.Writer, code string, lines []core.StatementLine) {
	fmt.Fprintf(out, "\nSTATEMENT %s\n", code)
	fmt.Fprintln(out, strings.Repeat("-", 80))
	fmt.Fprintf(out, "  %-10s %-16s %-14s %10s %10s %12s\n", "DATE", "VOUCHER", "REF", "DEBIT", "CREDIT", "BALANCE")
	for _, l := range lines {
		fmt.Fprintf(out, "  %-10s %-16s %-14s %10s %10s %12s\n",
			l.Date.Format(time.DateOnly), l.VoucherNo, l.RefType,
			l.Debit.StringFixed(2), l.Credit.StringFixed(2), l.RunningBalance.StringFixed(2))
	}
	if len(lines) == 0 {
		fmt.Fprintln(out, "  (no postings)")
	}
}

func printValuation(out io.Writer, v *core.InventoryValuation) {
	fmt.Fprintf(out, "\n  %-16s %-30s %8s %12s %14s\n", "SKU", "NAME", "STOCK", "COST", "VALUE")
	fmt.Fprintln(out, strings.Repeat("-", 86))
	for _, p := range v.Products {
		fmt.Fprintf(out, "  %-16s %-30s %8d %12s %14s\n", p.SKU, p.Name, p.Stock, p.CostPrice.StringFixed(2), p.Value.StringFixed(2))
	}
	fmt.Fprintln(out, strings.Repeat("-", 86))
	fmt.Fprintf(out, "  %-70s %14s\n", "Total", v.Total.StringFixed(2))
}
