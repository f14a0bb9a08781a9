// Package postgres implements core.Store on PostgreSQL through pgx. Row locks
// (SELECT ... FOR UPDATE) taken by GetForUpdate are held until the unit of work
// commits or rolls back.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"inventory-ledger/internal/core"
)

type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx core.Tx) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(ctx, &unitOfWork{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// View reads from one snapshot so multi-query reads (header plus lines) are consistent.
func (s *Store) View(ctx context.Context, fn func(ctx context.Context, tx core.Tx) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return fmt.Errorf("begin read transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	return fn(ctx, &unitOfWork{tx: tx})
}

type unitOfWork struct {
	tx pgx.Tx
}

func (u *unitOfWork) Products() core.ProductRepository { return productRepo{u.tx} }
func (u *unitOfWork) Suppliers() core.SupplierRepository { return supplierRepo{u.tx} }
func (u *unitOfWork) PurchaseOrders() core.PurchaseOrderRepository { return orderRepo{u.tx} }
func (u *unitOfWork) GRNs() core.GRNRepository { return grnRepo{u.tx} }
func (u *unitOfWork) PurchaseReturns() core.PurchaseReturnRepository { return returnRepo{u.tx} }
func (u *unitOfWork) Accounts() core.AccountRepository { return accountRepo{u.tx} }
func (u *unitOfWork) Journal() core.JournalRepository { return journalRepo{u.tx} }
func (u *unitOfWork) Sequences() core.SequenceRepository { return sequenceRepo{u.tx} }

// translate maps driver errors onto the core error taxonomy.
func translate(err error, entity, key string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return &core.NotFoundError{Entity: entity, Key: key}
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return &core.DuplicateError{Entity: entity, Key: key}
		case "23503":
			return fmt.Errorf("%s %s references a missing record (%s): %w",
				entity, key, pgErr.ConstraintName, &core.NotFoundError{Entity: "referenced record", Key: pgErr.Detail})
		}
	}
	return fmt.Errorf("%s %s: %w", entity, key, err)
}

// sendBatch executes every queued statement and reports the first failure.
func sendBatch(ctx context.Context, tx pgx.Tx, b *pgx.Batch) error {
	if b.Len() == 0 {
		return nil
	}
	br := tx.SendBatch(ctx, b)
	for i := 0; i < b.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return err
		}
	}
	return br.Close()
}

// filter accumulates WHERE conditions with positional arguments.
type filter struct {
	conds []string
	args  []any
}

// add appends cond, whose single %d is replaced with the argument's position.
func (f *filter) add(cond string, arg any) {
	f.args = append(f.args, arg)
	f.conds = append(f.conds, fmt.Sprintf(cond, len(f.args)))
}

func (f *filter) where() string {
	if len(f.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(f.conds, " AND ")
}

func lockClause(forUpdate bool) string {
	if forUpdate {
		return " FOR UPDATE"
	}
	return ""
}
