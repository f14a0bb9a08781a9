package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"inventory-ledger/internal/core"
)

// ── Suppliers ─────────────────────────────────────────────────────────────────

type supplierRepo struct{ tx pgx.Tx }

func (r supplierRepo) Create(ctx context.Context, s *core.Supplier) error {
	_, err := r.tx.Exec(ctx, `
		INSERT INTO suppliers (id, code, name, payable_account_code, created_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5)`,
		s.ID, s.Code, s.Name, s.PayableAccountCode, s.CreatedAt,
	)
	return translate(err, "supplier", s.Code)
}

func (r supplierRepo) Get(ctx context.Context, id uuid.UUID) (*core.Supplier, error) {
	s := &core.Supplier{}
	err := r.tx.QueryRow(ctx, `
		SELECT id, code, name, COALESCE(payable_account_code, ''), created_at
		FROM suppliers
		WHERE id = $1`, id,
	).Scan(&s.ID, &s.Code, &s.Name, &s.PayableAccountCode, &s.CreatedAt)
	if err != nil {
		return nil, translate(err, "supplier", id.String())
	}
	return s, nil
}

func (r supplierRepo) List(ctx context.Context) ([]core.Supplier, error) {
	rows, err := r.tx.Query(ctx, `
		SELECT id, code, name, COALESCE(payable_account_code, ''), created_at
		FROM suppliers
		ORDER BY code`)
	if err != nil {
		return nil, translate(err, "suppliers", "list")
	}
	defer rows.Close()

	var suppliers []core.Supplier
	for rows.Next() {
		var s core.Supplier
		if err := rows.Scan(&s.ID, &s.Code, &s.Name, &s.PayableAccountCode, &s.CreatedAt); err != nil {
			return nil, translate(err, "supplier", "scan")
		}
		suppliers = append(suppliers, s)
	}
	return suppliers, rows.Err()
}

// ── Purchase orders ───────────────────────────────────────────────────────────

type orderRepo struct{ tx pgx.Tx }

const orderColumns = `id, po_number, supplier_id, status, total_amount, COALESCE(notes, ''),
	created_at, updated_at, confirmed_at, cancelled_at`

func scanOrder(row pgx.Row, po *core.PurchaseOrder) error {
	return row.Scan(&po.ID, &po.PONumber, &po.SupplierID, &po.Status, &po.TotalAmount, &po.Notes,
		&po.CreatedAt, &po.UpdatedAt, &po.ConfirmedAt, &po.CancelledAt)
}

func (r orderRepo) Create(ctx context.Context, po *core.PurchaseOrder) error {
	_, err := r.tx.Exec(ctx, `
		INSERT INTO purchase_orders (id, po_number, supplier_id, status, total_amount, notes,
		                             created_at, updated_at, confirmed_at, cancelled_at)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8, $9, $10)`,
		po.ID, po.PONumber, po.SupplierID, po.Status, po.TotalAmount, po.Notes,
		po.CreatedAt, po.UpdatedAt, po.ConfirmedAt, po.CancelledAt,
	)
	if err != nil {
		return translate(err, "purchase order", po.PONumber)
	}

	b := &pgx.Batch{}
	for i, l := range po.Items {
		b.Queue(`
			INSERT INTO purchase_order_lines (order_id, line_number, product_id, qty_ordered, qty_received, cost, tax, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			po.ID, i+1, l.ProductID, l.QtyOrdered, l.QtyReceived, l.Cost, l.Tax, l.Status,
		)
	}
	if err := sendBatch(ctx, r.tx, b); err != nil {
		return translate(err, "purchase order line", po.PONumber)
	}
	return nil
}

func (r orderRepo) Get(ctx context.Context, id uuid.UUID) (*core.PurchaseOrder, error) {
	return r.load(ctx, id, false)
}

func (r orderRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*core.PurchaseOrder, error) {
	return r.load(ctx, id, true)
}

func (r orderRepo) load(ctx context.Context, id uuid.UUID, forUpdate bool) (*core.PurchaseOrder, error) {
	po := &core.PurchaseOrder{}
	row := r.tx.QueryRow(ctx, "SELECT "+orderColumns+" FROM purchase_orders WHERE id = $1"+lockClause(forUpdate), id)
	if err := scanOrder(row, po); err != nil {
		return nil, translate(err, "purchase order", id.String())
	}
	lines, err := r.fetchLines(ctx, po.ID)
	if err != nil {
		return nil, err
	}
	po.Items = lines
	return po, nil
}

// Save persists status changes and received quantities. Lines themselves are fixed
// at creation, so only their progress columns are updated.
func (r orderRepo) Save(ctx context.Context, po *core.PurchaseOrder) error {
	tag, err := r.tx.Exec(ctx, `
		UPDATE purchase_orders
		SET status = $2, total_amount = $3, notes = NULLIF($4, ''), updated_at = $5,
		    confirmed_at = $6, cancelled_at = $7
		WHERE id = $1`,
		po.ID, po.Status, po.TotalAmount, po.Notes, po.UpdatedAt, po.ConfirmedAt, po.CancelledAt,
	)
	if err != nil {
		return translate(err, "purchase order", po.PONumber)
	}
	if tag.RowsAffected() == 0 {
		return core.NewNotFoundError("purchase order", po.ID)
	}

	b := &pgx.Batch{}
	for i, l := range po.Items {
		b.Queue(`
			UPDATE purchase_order_lines
			SET qty_received = $3, status = $4
			WHERE order_id = $1 AND line_number = $2`,
			po.ID, i+1, l.QtyReceived, l.Status,
		)
	}
	if err := sendBatch(ctx, r.tx, b); err != nil {
		return translate(err, "purchase order line", po.PONumber)
	}
	return nil
}

func (r orderRepo) List(ctx context.Context, f core.PurchaseOrderFilter) ([]core.PurchaseOrder, error) {
	var w filter
	if f.SupplierID != nil {
		w.add("supplier_id = $%d", *f.SupplierID)
	}
	if f.Status != "" {
		w.add("status = $%d", f.Status)
	}

	rows, err := r.tx.Query(ctx, "SELECT "+orderColumns+" FROM purchase_orders"+w.where()+" ORDER BY po_number", w.args...)
	if err != nil {
		return nil, translate(err, "purchase orders", "list")
	}
	var orders []core.PurchaseOrder
	for rows.Next() {
		var po core.PurchaseOrder
		if err := scanOrder(rows, &po); err != nil {
			rows.Close()
			return nil, translate(err, "purchase order", "scan")
		}
		orders = append(orders, po)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, translate(err, "purchase orders", "list")
	}

	for i := range orders {
		lines, err := r.fetchLines(ctx, orders[i].ID)
		if err != nil {
			return nil, err
		}
		orders[i].Items = lines
	}
	return orders, nil
}

func (r orderRepo) fetchLines(ctx context.Context, orderID uuid.UUID) ([]core.PurchaseOrderLine, error) {
	rows, err := r.tx.Query(ctx, `
		SELECT product_id, qty_ordered, qty_received, cost, tax, status
		FROM purchase_order_lines
		WHERE order_id = $1
		ORDER BY line_number`, orderID)
	if err != nil {
		return nil, translate(err, "purchase order lines", orderID.String())
	}
	defer rows.Close()

	var lines []core.PurchaseOrderLine
	for rows.Next() {
		var l core.PurchaseOrderLine
		if err := rows.Scan(&l.ProductID, &l.QtyOrdered, &l.QtyReceived, &l.Cost, &l.Tax, &l.Status); err != nil {
			return nil, translate(err, "purchase order line", orderID.String())
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

// ── Goods receipts ────────────────────────────────────────────────────────────

type grnRepo struct{ tx pgx.Tx }

const grnColumns = `id, grn_no, purchase_order_id, supplier_id, status, received_at, created_at`

func scanGRN(row pgx.Row, g *core.GRN) error {
	return row.Scan(&g.ID, &g.GRNNo, &g.PurchaseOrderID, &g.SupplierID, &g.Status, &g.ReceivedAt, &g.CreatedAt)
}

func (r grnRepo) Create(ctx context.Context, g *core.GRN) error {
	_, err := r.tx.Exec(ctx, `
		INSERT INTO grns (id, grn_no, purchase_order_id, supplier_id, status, received_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		g.ID, g.GRNNo, g.PurchaseOrderID, g.SupplierID, g.Status, g.ReceivedAt, g.CreatedAt,
	)
	if err != nil {
		return translate(err, "goods receipt", g.GRNNo)
	}

	b := &pgx.Batch{}
	for i, it := range g.Items {
		b.Queue(`
			INSERT INTO grn_items (grn_id, line_number, product_id, received_qty, cost, batch_no, expiry)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			g.ID, i+1, it.ProductID, it.ReceivedQty, it.Cost, it.BatchNo, it.Expiry,
		)
	}
	if err := sendBatch(ctx, r.tx, b); err != nil {
		return translate(err, "goods receipt item", g.GRNNo)
	}
	return nil
}

func (r grnRepo) Get(ctx context.Context, id uuid.UUID) (*core.GRN, error) {
	g := &core.GRN{}
	if err := scanGRN(r.tx.QueryRow(ctx, "SELECT "+grnColumns+" FROM grns WHERE id = $1", id), g); err != nil {
		return nil, translate(err, "goods receipt", id.String())
	}
	items, err := r.fetchItems(ctx, g.ID)
	if err != nil {
		return nil, err
	}
	g.Items = items
	return g, nil
}

func (r grnRepo) List(ctx context.Context, f core.GRNFilter) ([]core.GRN, error) {
	var w filter
	if f.SupplierID != nil {
		w.add("supplier_id = $%d", *f.SupplierID)
	}
	if f.PurchaseOrderID != nil {
		w.add("purchase_order_id = $%d", *f.PurchaseOrderID)
	}
	if f.From != nil {
		w.add("received_at >= $%d", *f.From)
	}
	if f.To != nil {
		w.add("received_at <= $%d", *f.To)
	}

	rows, err := r.tx.Query(ctx, "SELECT "+grnColumns+" FROM grns"+w.where()+" ORDER BY grn_no", w.args...)
	if err != nil {
		return nil, translate(err, "goods receipts", "list")
	}
	var grns []core.GRN
	for rows.Next() {
		var g core.GRN
		if err := scanGRN(rows, &g); err != nil {
			rows.Close()
			return nil, translate(err, "goods receipt", "scan")
		}
		grns = append(grns, g)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, translate(err, "goods receipts", "list")
	}

	for i := range grns {
		items, err := r.fetchItems(ctx, grns[i].ID)
		if err != nil {
			return nil, err
		}
		grns[i].Items = items
	}
	return grns, nil
}

func (r grnRepo) fetchItems(ctx context.Context, grnID uuid.UUID) ([]core.GRNItem, error) {
	rows, err := r.tx.Query(ctx, `
		SELECT product_id, received_qty, cost, batch_no, expiry
		FROM grn_items
		WHERE grn_id = $1
		ORDER BY line_number`, grnID)
	if err != nil {
		return nil, translate(err, "goods receipt items", grnID.String())
	}
	defer rows.Close()

	var items []core.GRNItem
	for rows.Next() {
		var it core.GRNItem
		if err := rows.Scan(&it.ProductID, &it.ReceivedQty, &it.Cost, &it.BatchNo, &it.Expiry); err != nil {
			return nil, translate(err, "goods receipt item", grnID.String())
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// ── Purchase returns ──────────────────────────────────────────────────────────

type returnRepo struct{ tx pgx.Tx }

const returnColumns = `id, return_no, supplier_id, purchase_id, total_amount, journal_entry_id, return_date, created_at`

func scanReturn(row pgx.Row, pr *core.PurchaseReturn) error {
	return row.Scan(&pr.ID, &pr.ReturnNo, &pr.SupplierID, &pr.PurchaseID, &pr.TotalAmount,
		&pr.JournalEntryID, &pr.ReturnDate, &pr.CreatedAt)
}

func (r returnRepo) Create(ctx context.Context, pr *core.PurchaseReturn) error {
	_, err := r.tx.Exec(ctx, `
		INSERT INTO purchase_returns (id, return_no, supplier_id, purchase_id, total_amount,
		                              journal_entry_id, return_date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		pr.ID, pr.ReturnNo, pr.SupplierID, pr.PurchaseID, pr.TotalAmount,
		pr.JournalEntryID, pr.ReturnDate, pr.CreatedAt,
	)
	if err != nil {
		return translate(err, "purchase return", pr.ReturnNo)
	}

	b := &pgx.Batch{}
	for i, it := range pr.Items {
		b.Queue(`
			INSERT INTO purchase_return_items (return_id, line_number, product_id, qty, rate, tax)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			pr.ID, i+1, it.ProductID, it.Qty, it.Rate, it.Tax,
		)
		for j, c := range it.ConsumedBatches {
			b.Queue(`
				INSERT INTO purchase_return_consumptions (return_id, line_number, seq, batch_no, consumed_qty, cost)
				VALUES ($1, $2, $3, $4, $5, $6)`,
				pr.ID, i+1, j+1, c.BatchNo, c.ConsumedQty, c.Cost,
			)
		}
	}
	if err := sendBatch(ctx, r.tx, b); err != nil {
		return translate(err, "purchase return item", pr.ReturnNo)
	}
	return nil
}

func (r returnRepo) Get(ctx context.Context, id uuid.UUID) (*core.PurchaseReturn, error) {
	pr := &core.PurchaseReturn{}
	if err := scanReturn(r.tx.QueryRow(ctx, "SELECT "+returnColumns+" FROM purchase_returns WHERE id = $1", id), pr); err != nil {
		return nil, translate(err, "purchase return", id.String())
	}
	items, err := r.fetchItems(ctx, pr.ID)
	if err != nil {
		return nil, err
	}
	pr.Items = items
	return pr, nil
}

func (r returnRepo) List(ctx context.Context, f core.PurchaseReturnFilter) ([]core.PurchaseReturn, error) {
	var w filter
	if f.SupplierID != nil {
		w.add("supplier_id = $%d", *f.SupplierID)
	}

	rows, err := r.tx.Query(ctx, "SELECT "+returnColumns+" FROM purchase_returns"+w.where()+" ORDER BY return_no", w.args...)
	if err != nil {
		return nil, translate(err, "purchase returns", "list")
	}
	var returns []core.PurchaseReturn
	for rows.Next() {
		var pr core.PurchaseReturn
		if err := scanReturn(rows, &pr); err != nil {
			rows.Close()
			return nil, translate(err, "purchase return", "scan")
		}
		returns = append(returns, pr)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, translate(err, "purchase returns", "list")
	}

	for i := range returns {
		items, err := r.fetchItems(ctx, returns[i].ID)
		if err != nil {
			return nil, err
		}
		returns[i].Items = items
	}
	return returns, nil
}

func (r returnRepo) fetchItems(ctx context.Context, returnID uuid.UUID) ([]core.PurchaseReturnItem, error) {
	rows, err := r.tx.Query(ctx, `
		SELECT line_number, product_id, qty, rate, tax
		FROM purchase_return_items
		WHERE return_id = $1
		ORDER BY line_number`, returnID)
	if err != nil {
		return nil, translate(err, "purchase return items", returnID.String())
	}
	var items []core.PurchaseReturnItem
	var lineNumbers []int
	for rows.Next() {
		var ln int
		var it core.PurchaseReturnItem
		if err := rows.Scan(&ln, &it.ProductID, &it.Qty, &it.Rate, &it.Tax); err != nil {
			rows.Close()
			return nil, translate(err, "purchase return item", returnID.String())
		}
		items = append(items, it)
		lineNumbers = append(lineNumbers, ln)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, translate(err, "purchase return items", returnID.String())
	}

	crows, err := r.tx.Query(ctx, `
		SELECT line_number, batch_no, consumed_qty, cost
		FROM purchase_return_consumptions
		WHERE return_id = $1
		ORDER BY line_number, seq`, returnID)
	if err != nil {
		return nil, translate(err, "purchase return consumptions", returnID.String())
	}
	defer crows.Close()

	byLine := make(map[int]int, len(lineNumbers))
	for i, ln := range lineNumbers {
		byLine[ln] = i
	}
	for crows.Next() {
		var ln int
		var c core.BatchConsumption
		if err := crows.Scan(&ln, &c.BatchNo, &c.ConsumedQty, &c.Cost); err != nil {
			return nil, translate(err, "purchase return consumption", returnID.String())
		}
		if i, ok := byLine[ln]; ok {
			items[i].ConsumedBatches = append(items[i].ConsumedBatches, c)
		}
	}
	return items, crows.Err()
}
