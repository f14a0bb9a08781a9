package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"inventory-ledger/internal/core"
)

// ── Accounts ──────────────────────────────────────────────────────────────────

type accountRepo struct{ tx pgx.Tx }

const accountColumns = `id, code, name, type, balance, created_at`

func scanAccount(row pgx.Row, a *core.Account) error {
	return row.Scan(&a.ID, &a.Code, &a.Name, &a.Type, &a.Balance, &a.CreatedAt)
}

// Create inserts the account unless its code already exists. Under READ COMMITTED
// the insert waits for a concurrent creator to finish, so the fallback lookup sees it.
func (r accountRepo) Create(ctx context.Context, a *core.Account) (*core.Account, error) {
	created := &core.Account{}
	err := scanAccount(r.tx.QueryRow(ctx, `
		INSERT INTO accounts (id, code, name, type, balance, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (code) DO NOTHING
		RETURNING `+accountColumns,
		a.ID, a.Code, a.Name, a.Type, a.Balance, a.CreatedAt,
	), created)
	if errors.Is(err, pgx.ErrNoRows) {
		return r.GetByCode(ctx, a.Code)
	}
	if err != nil {
		return nil, translate(err, "account", a.Code)
	}
	return created, nil
}

func (r accountRepo) Get(ctx context.Context, id uuid.UUID) (*core.Account, error) {
	return r.load(ctx, id, false)
}

func (r accountRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*core.Account, error) {
	return r.load(ctx, id, true)
}

func (r accountRepo) load(ctx context.Context, id uuid.UUID, forUpdate bool) (*core.Account, error) {
	a := &core.Account{}
	row := r.tx.QueryRow(ctx, "SELECT "+accountColumns+" FROM accounts WHERE id = $1"+lockClause(forUpdate), id)
	if err := scanAccount(row, a); err != nil {
		return nil, translate(err, "account", id.String())
	}
	return a, nil
}

func (r accountRepo) GetByCode(ctx context.Context, code string) (*core.Account, error) {
	a := &core.Account{}
	if err := scanAccount(r.tx.QueryRow(ctx, "SELECT "+accountColumns+" FROM accounts WHERE code = $1", code), a); err != nil {
		return nil, translate(err, "account", code)
	}
	return a, nil
}

func (r accountRepo) Save(ctx context.Context, a *core.Account) error {
	tag, err := r.tx.Exec(ctx, "UPDATE accounts SET name = $2, balance = $3 WHERE id = $1", a.ID, a.Name, a.Balance)
	if err != nil {
		return translate(err, "account", a.Code)
	}
	if tag.RowsAffected() == 0 {
		return core.NewNotFoundError("account", a.ID)
	}
	return nil
}

func (r accountRepo) List(ctx context.Context) ([]core.Account, error) {
	rows, err := r.tx.Query(ctx, "SELECT "+accountColumns+" FROM accounts ORDER BY code")
	if err != nil {
		return nil, translate(err, "accounts", "list")
	}
	defer rows.Close()

	var accounts []core.Account
	for rows.Next() {
		var a core.Account
		if err := scanAccount(rows, &a); err != nil {
			return nil, translate(err, "account", "scan")
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// ── Journal ───────────────────────────────────────────────────────────────────

type journalRepo struct{ tx pgx.Tx }

const entryColumns = `id, voucher_no, entry_date, ref_type, ref_id, created_at`

func scanEntry(row pgx.Row, e *core.JournalEntry) error {
	return row.Scan(&e.ID, &e.VoucherNo, &e.Date, &e.RefType, &e.RefID, &e.CreatedAt)
}

func (r journalRepo) Create(ctx context.Context, e *core.JournalEntry) error {
	_, err := r.tx.Exec(ctx, `
		INSERT INTO journal_entries (id, voucher_no, entry_date, ref_type, ref_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		e.ID, e.VoucherNo, e.Date, e.RefType, e.RefID, e.CreatedAt,
	)
	if err != nil {
		return translate(err, "journal entry", e.VoucherNo)
	}

	b := &pgx.Batch{}
	for i, l := range e.Lines {
		b.Queue(`
			INSERT INTO journal_lines (entry_id, line_number, account_id, debit, credit, narration)
			VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''))`,
			e.ID, i+1, l.AccountID, l.Debit, l.Credit, l.Narration,
		)
	}
	if err := sendBatch(ctx, r.tx, b); err != nil {
		return translate(err, "journal line", e.VoucherNo)
	}
	return nil
}

func (r journalRepo) Get(ctx context.Context, id uuid.UUID) (*core.JournalEntry, error) {
	e := &core.JournalEntry{}
	if err := scanEntry(r.tx.QueryRow(ctx, "SELECT "+entryColumns+" FROM journal_entries WHERE id = $1", id), e); err != nil {
		return nil, translate(err, "journal entry", id.String())
	}
	lines, err := r.fetchLines(ctx, e.ID)
	if err != nil {
		return nil, err
	}
	e.Lines = lines
	return e, nil
}

func (r journalRepo) List(ctx context.Context, f core.JournalFilter) ([]core.JournalEntry, error) {
	var w filter
	if f.RefType != "" {
		w.add("ref_type = $%d", f.RefType)
	}
	if f.RefID != nil {
		w.add("ref_id = $%d", *f.RefID)
	}
	if f.AccountID != nil {
		w.add("id IN (SELECT entry_id FROM journal_lines WHERE account_id = $%d)", *f.AccountID)
	}
	if f.From != nil {
		w.add("entry_date >= $%d", *f.From)
	}
	if f.To != nil {
		w.add("entry_date <= $%d", *f.To)
	}

	rows, err := r.tx.Query(ctx, "SELECT "+entryColumns+" FROM journal_entries"+w.where()+" ORDER BY entry_date, voucher_no", w.args...)
	if err != nil {
		return nil, translate(err, "journal entries", "list")
	}
	var entries []core.JournalEntry
	for rows.Next() {
		var e core.JournalEntry
		if err := scanEntry(rows, &e); err != nil {
			rows.Close()
			return nil, translate(err, "journal entry", "scan")
		}
		entries = append(entries, e)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, translate(err, "journal entries", "list")
	}

	for i := range entries {
		lines, err := r.fetchLines(ctx, entries[i].ID)
		if err != nil {
			return nil, err
		}
		entries[i].Lines = lines
	}
	return entries, nil
}

func (r journalRepo) fetchLines(ctx context.Context, entryID uuid.UUID) ([]core.JournalLine, error) {
	rows, err := r.tx.Query(ctx, `
		SELECT account_id, debit, credit, COALESCE(narration, '')
		FROM journal_lines
		WHERE entry_id = $1
		ORDER BY line_number`, entryID)
	if err != nil {
		return nil, translate(err, "journal lines", entryID.String())
	}
	defer rows.Close()

	var lines []core.JournalLine
	for rows.Next() {
		var l core.JournalLine
		if err := rows.Scan(&l.AccountID, &l.Debit, &l.Credit, &l.Narration); err != nil {
			return nil, translate(err, "journal line", entryID.String())
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

// ── Sequences ─────────────────────────────────────────────────────────────────

type sequenceRepo struct{ tx pgx.Tx }

// Next increments the per-type, per-year counter. The upsert holds the row lock
// until commit, so concurrent callers receive consecutive numbers.
func (r sequenceRepo) Next(ctx context.Context, docType string, year int) (int64, error) {
	var n int64
	err := r.tx.QueryRow(ctx, `
		INSERT INTO document_sequences (document_type, year, last_number)
		VALUES ($1, $2, 1)
		ON CONFLICT (document_type, year)
		DO UPDATE SET last_number = document_sequences.last_number + 1
		RETURNING last_number`,
		docType, year,
	).Scan(&n)
	if err != nil {
		return 0, translate(err, "document sequence", docType)
	}
	return n, nil
}
