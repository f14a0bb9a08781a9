package web

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"inventory-ledger/internal/app"
	"inventory-ledger/internal/core"
)

func (h *Handler) apiListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.svc.ListProducts(r.Context())
	if err != nil {
		h.writeServiceError(w, r, "apiListProducts", err)
		return
	}
	writeJSON(w, products)
}

func (h *Handler) apiCreateProduct(w http.ResponseWriter, r *http.Request) {
	var body struct {
		SKU     string `json:"sku" validate:"required,max=64"`
		Barcode string `json:"barcode" validate:"omitempty,max=64"`
		Name    string `json:"name" validate:"required"`
	}
	if !h.decodeJSON(w, r, &body) {
		return
	}

	product, err := h.svc.CreateProduct(r.Context(), core.ProductInput{
		SKU:     body.SKU,
		Barcode: body.Barcode,
		Name:    body.Name,
	})
	if err != nil {
		h.writeServiceError(w, r, "apiCreateProduct", err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, product)
}

func (h *Handler) apiGetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	product, err := h.svc.GetProduct(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, "apiGetProduct", err)
		return
	}
	writeJSON(w, product)
}

// apiAddBatch handles POST /api/products/{id}/batches: a direct stock receipt
// outside any goods receipt note, used for opening balances.
func (h *Handler) apiAddBatch(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var body struct {
		BatchNo string          `json:"batch_no" validate:"omitempty,max=64"`
		Qty     int64           `json:"qty" validate:"gt=0,lte=1000000000"`
		Cost    decimal.Decimal `json:"cost"`
		Expiry  *time.Time      `json:"expiry"`
	}
	if !h.decodeJSON(w, r, &body) {
		return
	}

	product, err := h.svc.AddBatch(r.Context(), id, core.BatchReceipt{
		BatchNo: body.BatchNo,
		Qty:     body.Qty,
		Cost:    body.Cost,
		Expiry:  body.Expiry,
	})
	if err != nil {
		h.writeServiceError(w, r, "apiAddBatch", err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, product)
}

func (h *Handler) apiConsumeStock(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var body struct {
		Qty    int64  `json:"qty" validate:"gt=0,lte=1000000000"`
		Reason string `json:"reason" validate:"required"`
	}
	if !h.decodeJSON(w, r, &body) {
		return
	}

	result, err := h.svc.ConsumeStock(r.Context(), app.ConsumeStockRequest{
		ProductID: id,
		Qty:       body.Qty,
		Reason:    body.Reason,
	})
	if err != nil {
		h.writeServiceError(w, r, "apiConsumeStock", err)
		return
	}
	writeJSON(w, result)
}

func (h *Handler) apiStockValuation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	value, err := h.svc.GetStockValuation(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, "apiStockValuation", err)
		return
	}
	type response struct {
		ProductID string          `json:"product_id"`
		Value     decimal.Decimal `json:"value"`
	}
	writeJSON(w, response{ProductID: id.String(), Value: value})
}

func (h *Handler) apiInventoryValuation(w http.ResponseWriter, r *http.Request) {
	valuation, err := h.svc.GetInventoryValuation(r.Context())
	if err != nil {
		h.writeServiceError(w, r, "apiInventoryValuation", err)
		return
	}
	writeJSON(w, valuation)
}
