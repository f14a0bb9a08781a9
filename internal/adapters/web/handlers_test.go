package web_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inventory-ledger/internal/adapters/web"
	"inventory-ledger/internal/app"
	"inventory-ledger/internal/core"
	"inventory-ledger/internal/idempotency"
	"inventory-ledger/internal/logging"
	"inventory-ledger/internal/store/memory"
)

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()
	svc := app.New(memory.New(), app.Options{
		TxTimeout: 5 * time.Second,
		Rules:     core.DefaultAccountRules(),
		Logger:    logging.Discard(),
	})
	return web.NewHandler(svc, web.Options{
		Logger:      logging.Discard(),
		Idempotency: idempotency.NewMemoryStore(time.Hour),
	})
}

func do(t *testing.T, h http.Handler, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

type idBody struct {
	ID string `json:"id"`
}

type errBody struct {
	Error  string            `json:"error"`
	Code   string            `json:"code"`
	Fields map[string]string `json:"fields"`
}

func createSupplierAndProduct(t *testing.T, h http.Handler) (supplierID, productID string) {
	t.Helper()
	rec := do(t, h, http.MethodPost, "/api/suppliers", map[string]any{"code": "ACME", "name": "Acme Supplies"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	supplierID = decode[idBody](t, rec).ID

	rec = do(t, h, http.MethodPost, "/api/products", map[string]any{"sku": "WID-1", "name": "Widget"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	productID = decode[idBody](t, rec).ID
	return supplierID, productID
}

func TestHealth(t *testing.T) {
	h := newTestHandler(t)
	rec := do(t, h, http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.Equal(t, "ok", decode[map[string]any](t, rec)["status"])
}

func TestPurchaseFlow(t *testing.T) {
	h := newTestHandler(t)
	supplierID, productID := createSupplierAndProduct(t, h)

	rec := do(t, h, http.MethodPost, "/api/purchase-orders", map[string]any{
		"supplier_id": supplierID,
		"items":       []map[string]any{{"product_id": productID, "qty_ordered": 5, "cost": "10"}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	poID := decode[idBody](t, rec).ID

	rec = do(t, h, http.MethodPost, "/api/purchase-orders/"+poID+"/confirm", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodPost, "/api/grns", map[string]any{
		"supplier_id":       supplierID,
		"purchase_order_id": poID,
		"items":             []map[string]any{{"product_id": productID, "received_qty": 5, "cost": "10"}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	grn := decode[struct {
		ID    string `json:"id"`
		GRNNo string `json:"grn_no"`
	}](t, rec)
	assert.NotEmpty(t, grn.GRNNo)

	rec = do(t, h, http.MethodGet, "/api/purchase-orders/"+poID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "completed", decode[map[string]any](t, rec)["status"])

	rec = do(t, h, http.MethodPost, "/api/purchase-returns", map[string]any{
		"supplier_id": supplierID,
		"purchase_id": grn.ID,
		"items":       []map[string]any{{"product_id": productID, "qty": 2, "rate": "10"}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	result := decode[app.PurchaseReturnResult](t, rec)
	require.NotNil(t, result.Return)
	require.NotNil(t, result.Entry)
	assert.True(t, result.Return.TotalAmount.Equal(decimal.NewFromInt(20)))
	assert.Equal(t, result.Entry.ID, result.Return.JournalEntryID)
	debit, credit := result.Entry.Totals()
	assert.True(t, debit.Equal(credit))

	rec = do(t, h, http.MethodGet, "/api/products/"+productID+"/valuation", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	valuation := decode[struct {
		Value decimal.Decimal `json:"value"`
	}](t, rec)
	assert.True(t, valuation.Value.Equal(decimal.NewFromInt(30)), valuation.Value.String())

	rec = do(t, h, http.MethodGet, "/api/journal-entries?ref_type=PurchaseReturn", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]core.JournalEntry](t, rec), 1)
}

func TestErrorMapping(t *testing.T) {
	h := newTestHandler(t)
	_, productID := createSupplierAndProduct(t, h)

	t.Run("unknown product is 404", func(t *testing.T) {
		rec := do(t, h, http.MethodGet, "/api/products/7f1c2c4e-8a55-4c3e-9d1e-2b7d4c1f0a11", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "NOT_FOUND", decode[errBody](t, rec).Code)
	})

	t.Run("malformed id is 400", func(t *testing.T) {
		rec := do(t, h, http.MethodGet, "/api/products/not-a-uuid", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("oversell is 409", func(t *testing.T) {
		rec := do(t, h, http.MethodPost, "/api/products/"+productID+"/consume", map[string]any{"qty": 1, "reason": "damaged"})
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "INSUFFICIENT_STOCK", decode[errBody](t, rec).Code)
	})

	t.Run("struct validation lists fields", func(t *testing.T) {
		rec := do(t, h, http.MethodPost, "/api/products", map[string]any{"name": "No SKU"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		body := decode[errBody](t, rec)
		assert.Equal(t, "VALIDATION_FAILED", body.Code)
		assert.Contains(t, body.Fields, "sku")
	})

	t.Run("unbalanced entry is 422", func(t *testing.T) {
		cash := decode[idBody](t, do(t, h, http.MethodPost, "/api/accounts", map[string]any{"code": "1000", "name": "Cash", "type": "asset"}))
		sales := decode[idBody](t, do(t, h, http.MethodPost, "/api/accounts", map[string]any{"code": "4000", "name": "Sales", "type": "income"}))

		rec := do(t, h, http.MethodPost, "/api/journal-entries", map[string]any{
			"lines": []map[string]any{
				{"account_id": cash.ID, "debit": "100"},
				{"account_id": sales.ID, "credit": "90"},
			},
		})
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Equal(t, "UNBALANCED_ENTRY", decode[errBody](t, rec).Code)

		rec = do(t, h, http.MethodGet, "/api/journal-entries", nil)
		assert.Empty(t, decode[[]core.JournalEntry](t, rec))
	})

	t.Run("duplicate SKU is 409", func(t *testing.T) {
		rec := do(t, h, http.MethodPost, "/api/products", map[string]any{"sku": "WID-1", "name": "Again"})
		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}

func TestAccountGetOrCreateIsIdempotent(t *testing.T) {
	h := newTestHandler(t)
	first := decode[idBody](t, do(t, h, http.MethodPost, "/api/accounts", map[string]any{"code": "1400", "name": "Inventory", "type": "asset"}))
	second := decode[idBody](t, do(t, h, http.MethodPost, "/api/accounts", map[string]any{"code": "1400", "name": "Other", "type": "asset"}))
	assert.Equal(t, first.ID, second.ID)
}

func TestIdempotencyKey(t *testing.T) {
	h := newTestHandler(t)
	body := map[string]any{"code": "ACME", "name": "Acme Supplies"}

	first := do(t, h, http.MethodPost, "/api/suppliers", body, web.IdempotencyKeyHeader, "key-1")
	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())

	second := do(t, h, http.MethodPost, "/api/suppliers", body, web.IdempotencyKeyHeader, "key-1")
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, "true", second.Header().Get("Idempotent-Replayed"))
	assert.JSONEq(t, first.Body.String(), second.Body.String())

	rec := do(t, h, http.MethodGet, "/api/suppliers", nil)
	assert.Len(t, decode[[]core.Supplier](t, rec), 1)

	reused := do(t, h, http.MethodPost, "/api/products", map[string]any{"sku": "X", "name": "X"}, web.IdempotencyKeyHeader, "key-1")
	assert.Equal(t, http.StatusUnprocessableEntity, reused.Code)
	assert.Equal(t, "IDEMPOTENCY_KEY_REUSED", decode[errBody](t, reused).Code)

	changed := do(t, h, http.MethodPost, "/api/suppliers", map[string]any{"code": "OTHER", "name": "Other Supplies"}, web.IdempotencyKeyHeader, "key-1")
	assert.Equal(t, http.StatusUnprocessableEntity, changed.Code)
	assert.Equal(t, "IDEMPOTENCY_KEY_REUSED", decode[errBody](t, changed).Code)

	rec = do(t, h, http.MethodGet, "/api/suppliers", nil)
	assert.Len(t, decode[[]core.Supplier](t, rec), 1, "a different body under the same key must not create a supplier")
}

func TestReports(t *testing.T) {
	h := newTestHandler(t)
	cash := decode[idBody](t, do(t, h, http.MethodPost, "/api/accounts", map[string]any{"code": "1000", "name": "Cash", "type": "asset"}))
	sales := decode[idBody](t, do(t, h, http.MethodPost, "/api/accounts", map[string]any{"code": "4000", "name": "Sales", "type": "income"}))

	for _, amount := range []string{"100", "40"} {
		rec := do(t, h, http.MethodPost, "/api/journal-entries", map[string]any{
			"date": "2026-03-01T10:00:00Z",
			"lines": []map[string]any{
				{"account_id": cash.ID, "debit": amount},
				{"account_id": sales.ID, "credit": amount},
			},
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	rec := do(t, h, http.MethodGet, "/api/reports/trial-balance", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	tb := decode[core.TrialBalance](t, rec)
	assert.True(t, tb.IsBalanced)
	assert.True(t, tb.InSync)
	assert.True(t, tb.TotalDebit.Equal(decimal.NewFromInt(140)), tb.TotalDebit.String())

	rec = do(t, h, http.MethodGet, "/api/reports/account-statement/1000?to=2026-03-01", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	stmt := decode[struct {
		Lines []core.StatementLine `json:"lines"`
	}](t, rec)
	require.Len(t, stmt.Lines, 2)
	assert.True(t, stmt.Lines[1].RunningBalance.Equal(decimal.NewFromInt(140)))

	rec = do(t, h, http.MethodGet, "/api/reports/account-statement/1000?from=2026-03-02", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[struct {
		Lines []core.StatementLine `json:"lines"`
	}](t, rec).Lines)

	rec = do(t, h, http.MethodGet, "/api/reports/account-statement/9999", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGoodsReceiptItemBody(t *testing.T) {
	h := newTestHandler(t)
	supplierID, productID := createSupplierAndProduct(t, h)

	t.Run("rate is accepted as the unit cost", func(t *testing.T) {
		rec := do(t, h, http.MethodPost, "/api/grns", map[string]any{
			"supplier_id": supplierID,
			"items":       []map[string]any{{"product_id": productID, "received_qty": 2, "rate": "7.50"}},
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		grn := decode[struct {
			Items []struct {
				Cost decimal.Decimal `json:"cost"`
			} `json:"items"`
		}](t, rec)
		require.Len(t, grn.Items, 1)
		assert.True(t, decimal.RequireFromString("7.5").Equal(grn.Items[0].Cost), "cost = %s", grn.Items[0].Cost)
	})

	t.Run("missing cost and rate is 400", func(t *testing.T) {
		rec := do(t, h, http.MethodPost, "/api/grns", map[string]any{
			"supplier_id": supplierID,
			"items":       []map[string]any{{"product_id": productID, "received_qty": 2}},
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		body := decode[errBody](t, rec)
		assert.Equal(t, "VALIDATION_FAILED", body.Code)
		assert.Contains(t, body.Fields, "items[0].cost")
	})

	t.Run("quantity above the limit is 400", func(t *testing.T) {
		rec := do(t, h, http.MethodPost, "/api/grns", map[string]any{
			"supplier_id": supplierID,
			"items":       []map[string]any{{"product_id": productID, "received_qty": 2000000000, "cost": "1"}},
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		body := decode[errBody](t, rec)
		assert.Equal(t, "lte", body.Fields["items[0].received_qty"])
	})

	rec := do(t, h, http.MethodGet, "/api/products/"+productID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 2, decode[map[string]any](t, rec)["stock"])
}
