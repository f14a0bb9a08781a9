package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"inventory-ledger/internal/core"
)

type productRepo struct{ tx pgx.Tx }

func (r productRepo) Create(ctx context.Context, p *core.Product) error {
	_, err := r.tx.Exec(ctx, `
		INSERT INTO products (id, sku, barcode, name, stock, cost_price, created_at, updated_at)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, $8)`,
		p.ID, p.SKU, p.Barcode, p.Name, p.Stock(), p.CostPrice(), p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return translate(err, "product", p.SKU)
	}
	return r.insertBatches(ctx, p)
}

func (r productRepo) Get(ctx context.Context, id uuid.UUID) (*core.Product, error) {
	return r.load(ctx, id, false)
}

func (r productRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*core.Product, error) {
	return r.load(ctx, id, true)
}

func (r productRepo) load(ctx context.Context, id uuid.UUID, forUpdate bool) (*core.Product, error) {
	var st core.ProductState
	err := r.tx.QueryRow(ctx, `
		SELECT id, sku, COALESCE(barcode, ''), name, cost_price, created_at, updated_at
		FROM products
		WHERE id = $1`+lockClause(forUpdate), id,
	).Scan(&st.ID, &st.SKU, &st.Barcode, &st.Name, &st.CostPrice, &st.CreatedAt, &st.UpdatedAt)
	if err != nil {
		return nil, translate(err, "product", id.String())
	}

	rows, err := r.tx.Query(ctx, `
		SELECT batch_no, qty, cost, expiry, received_at, supplier_id
		FROM product_batches
		WHERE product_id = $1
		ORDER BY ordinal, received_at, batch_no`, id)
	if err != nil {
		return nil, translate(err, "product batches", id.String())
	}
	defer rows.Close()

	for rows.Next() {
		var b core.Batch
		if err := rows.Scan(&b.BatchNo, &b.Qty, &b.Cost, &b.Expiry, &b.ReceivedAt, &b.SupplierID); err != nil {
			return nil, translate(err, "product batch", id.String())
		}
		st.Batches = append(st.Batches, b)
	}
	if err := rows.Err(); err != nil {
		return nil, translate(err, "product batches", id.String())
	}
	return core.RestoreProduct(st), nil
}

// Save rewrites the product row and its full batch list.
func (r productRepo) Save(ctx context.Context, p *core.Product) error {
	tag, err := r.tx.Exec(ctx, `
		UPDATE products
		SET sku = $2, barcode = NULLIF($3, ''), name = $4, stock = $5, cost_price = $6, updated_at = $7
		WHERE id = $1`,
		p.ID, p.SKU, p.Barcode, p.Name, p.Stock(), p.CostPrice(), p.UpdatedAt,
	)
	if err != nil {
		return translate(err, "product", p.SKU)
	}
	if tag.RowsAffected() == 0 {
		return core.NewNotFoundError("product", p.ID)
	}

	if _, err := r.tx.Exec(ctx, "DELETE FROM product_batches WHERE product_id = $1", p.ID); err != nil {
		return translate(err, "product batches", p.SKU)
	}
	return r.insertBatches(ctx, p)
}

func (r productRepo) insertBatches(ctx context.Context, p *core.Product) error {
	b := &pgx.Batch{}
	for i, lot := range p.Batches() {
		b.Queue(`
			INSERT INTO product_batches (product_id, batch_no, qty, cost, expiry, received_at, supplier_id, ordinal)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			p.ID, lot.BatchNo, lot.Qty, lot.Cost, lot.Expiry, lot.ReceivedAt, lot.SupplierID, i,
		)
	}
	if err := sendBatch(ctx, r.tx, b); err != nil {
		return translate(err, "product batch", p.SKU)
	}
	return nil
}

func (r productRepo) List(ctx context.Context) ([]*core.Product, error) {
	rows, err := r.tx.Query(ctx, `
		SELECT id, sku, COALESCE(barcode, ''), name, cost_price, created_at, updated_at
		FROM products
		ORDER BY sku`)
	if err != nil {
		return nil, translate(err, "products", "list")
	}
	var states []core.ProductState
	index := map[uuid.UUID]int{}
	for rows.Next() {
		var st core.ProductState
		if err := rows.Scan(&st.ID, &st.SKU, &st.Barcode, &st.Name, &st.CostPrice, &st.CreatedAt, &st.UpdatedAt); err != nil {
			rows.Close()
			return nil, translate(err, "product", "scan")
		}
		index[st.ID] = len(states)
		states = append(states, st)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, translate(err, "products", "list")
	}

	batchRows, err := r.tx.Query(ctx, `
		SELECT product_id, batch_no, qty, cost, expiry, received_at, supplier_id
		FROM product_batches
		ORDER BY product_id, ordinal, received_at, batch_no`)
	if err != nil {
		return nil, translate(err, "product batches", "list")
	}
	defer batchRows.Close()
	for batchRows.Next() {
		var productID uuid.UUID
		var b core.Batch
		if err := batchRows.Scan(&productID, &b.BatchNo, &b.Qty, &b.Cost, &b.Expiry, &b.ReceivedAt, &b.SupplierID); err != nil {
			return nil, translate(err, "product batch", "scan")
		}
		if i, ok := index[productID]; ok {
			states[i].Batches = append(states[i].Batches, b)
		}
	}
	if err := batchRows.Err(); err != nil {
		return nil, translate(err, "product batches", "list")
	}

	products := make([]*core.Product, 0, len(states))
	for _, st := range states {
		products = append(products, core.RestoreProduct(st))
	}
	return products, nil
}
