package core

import (
	"bytes"
	"context"
	"slices"
	"time"

	"github.com/google/uuid"
)

// Coordinator runs multi-step operations as one unit of work. Every write made
// through the Tx handed to fn commits together or not at all, bounded by the
// configured timeout.
type Coordinator struct {
	store   Store
	timeout time.Duration
	metrics *Metrics

	// Clock is used for every timestamp the services write. Defaults to time.Now.
	Clock func() time.Time
}

func NewCoordinator(store Store, timeout time.Duration, metrics *Metrics) *Coordinator {
	return &Coordinator{store: store, timeout: timeout, metrics: metrics, Clock: time.Now}
}

func (c *Coordinator) Now() time.Time {
	return c.Clock().UTC()
}

// Atomic runs fn in a transaction. Any failure is returned as a *TransactionAbortError
// wrapping the cause, after the store has rolled back.
func (c *Coordinator) Atomic(ctx context.Context, op string, fn func(ctx context.Context, tx Tx) error) error {
	ctx, cancel := c.bound(ctx)
	defer cancel()

	start := time.Now()
	err := c.store.InTx(ctx, fn)
	c.metrics.txFinished(op, start, err)
	if err != nil {
		return &TransactionAbortError{Op: op, Err: err}
	}
	return nil
}

// View runs fn against a read-only snapshot.
func (c *Coordinator) View(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	ctx, cancel := c.bound(ctx)
	defer cancel()
	return c.store.View(ctx, fn)
}

func (c *Coordinator) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

// lockProducts takes row locks on the given products in ascending id order so two
// operations touching the same products cannot deadlock.
func lockProducts(ctx context.Context, tx Tx, ids []uuid.UUID) (map[uuid.UUID]*Product, error) {
	sorted := slices.Clone(ids)
	slices.SortFunc(sorted, func(a, b uuid.UUID) int { return bytes.Compare(a[:], b[:]) })
	sorted = slices.Compact(sorted)

	locked := make(map[uuid.UUID]*Product, len(sorted))
	for _, id := range sorted {
		p, err := tx.Products().GetForUpdate(ctx, id)
		if err != nil {
			return nil, err
		}
		locked[id] = p
	}
	return locked, nil
}
