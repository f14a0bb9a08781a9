package web

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"inventory-ledger/internal/core"
)

// ── Suppliers ─────────────────────────────────────────────────────────────────

func (h *Handler) apiListSuppliers(w http.ResponseWriter, r *http.Request) {
	suppliers, err := h.svc.ListSuppliers(r.Context())
	if err != nil {
		h.writeServiceError(w, r, "apiListSuppliers", err)
		return
	}
	writeJSON(w, suppliers)
}

func (h *Handler) apiCreateSupplier(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Code               string `json:"code" validate:"required,max=32"`
		Name               string `json:"name" validate:"required"`
		PayableAccountCode string `json:"payable_account_code" validate:"omitempty,max=32"`
	}
	if !h.decodeJSON(w, r, &body) {
		return
	}

	supplier, err := h.svc.CreateSupplier(r.Context(), core.SupplierInput{
		Code:               body.Code,
		Name:               body.Name,
		PayableAccountCode: body.PayableAccountCode,
	})
	if err != nil {
		h.writeServiceError(w, r, "apiCreateSupplier", err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, supplier)
}

func (h *Handler) apiGetSupplier(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	supplier, err := h.svc.GetSupplier(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, "apiGetSupplier", err)
		return
	}
	writeJSON(w, supplier)
}

// ── Purchase orders ───────────────────────────────────────────────────────────

func (h *Handler) apiListPurchaseOrders(w http.ResponseWriter, r *http.Request) {
	supplierID, ok := queryID(w, r, "supplier_id")
	if !ok {
		return
	}
	orders, err := h.svc.ListPurchaseOrders(r.Context(), core.PurchaseOrderFilter{
		SupplierID: supplierID,
		Status:     core.POStatus(r.URL.Query().Get("status")),
	})
	if err != nil {
		h.writeServiceError(w, r, "apiListPurchaseOrders", err)
		return
	}
	writeJSON(w, orders)
}

type purchaseOrderLineBody struct {
	ProductID  uuid.UUID       `json:"product_id" validate:"required"`
	QtyOrdered int64           `json:"qty_ordered" validate:"gt=0,lte=1000000000"`
	Cost       decimal.Decimal `json:"cost"`
	Tax        decimal.Decimal `json:"tax"`
}

func (h *Handler) apiCreatePurchaseOrder(w http.ResponseWriter, r *http.Request) {
	var body struct {
		SupplierID uuid.UUID               `json:"supplier_id" validate:"required"`
		Items      []purchaseOrderLineBody `json:"items" validate:"required,min=1,dive"`
		Notes      string                  `json:"notes"`
	}
	if !h.decodeJSON(w, r, &body) {
		return
	}

	items := make([]core.PurchaseOrderLineInput, len(body.Items))
	for i, it := range body.Items {
		items[i] = core.PurchaseOrderLineInput{
			ProductID:  it.ProductID,
			QtyOrdered: it.QtyOrdered,
			Cost:       it.Cost,
			Tax:        it.Tax,
		}
	}
	po, err := h.svc.CreatePurchaseOrder(r.Context(), core.PurchaseOrderInput{
		SupplierID: body.SupplierID,
		Items:      items,
		Notes:      body.Notes,
	})
	if err != nil {
		h.writeServiceError(w, r, "apiCreatePurchaseOrder", err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, po)
}

func (h *Handler) apiGetPurchaseOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	po, err := h.svc.GetPurchaseOrder(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, "apiGetPurchaseOrder", err)
		return
	}
	writeJSON(w, po)
}

func (h *Handler) apiConfirmPurchaseOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	po, err := h.svc.ConfirmPurchaseOrder(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, "apiConfirmPurchaseOrder", err)
		return
	}
	writeJSON(w, po)
}

func (h *Handler) apiCancelPurchaseOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	po, err := h.svc.CancelPurchaseOrder(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, "apiCancelPurchaseOrder", err)
		return
	}
	writeJSON(w, po)
}

// ── Goods receipt notes ───────────────────────────────────────────────────────

func (h *Handler) apiListGRNs(w http.ResponseWriter, r *http.Request) {
	supplierID, ok := queryID(w, r, "supplier_id")
	if !ok {
		return
	}
	orderID, ok := queryID(w, r, "purchase_order_id")
	if !ok {
		return
	}
	from, to, ok := queryRange(w, r)
	if !ok {
		return
	}
	grns, err := h.svc.ListGRNs(r.Context(), core.GRNFilter{
		SupplierID:      supplierID,
		PurchaseOrderID: orderID,
		From:            from,
		To:              to,
	})
	if err != nil {
		h.writeServiceError(w, r, "apiListGRNs", err)
		return
	}
	writeJSON(w, grns)
}

// grnItemBody takes the unit cost as "cost" or "rate". One of them is required.
type grnItemBody struct {
	ProductID   uuid.UUID        `json:"product_id" validate:"required"`
	ReceivedQty int64            `json:"received_qty" validate:"gt=0,lte=1000000000"`
	Cost        *decimal.Decimal `json:"cost"`
	Rate        *decimal.Decimal `json:"rate"`
	BatchNo     string           `json:"batch_no" validate:"omitempty,max=64"`
	Expiry      *time.Time       `json:"expiry"`
}

func (b grnItemBody) unitCost() decimal.Decimal {
	if b.Cost != nil {
		return *b.Cost
	}
	return *b.Rate
}

func validateGRNItem(sl validator.StructLevel) {
	it := sl.Current().Interface().(grnItemBody)
	if it.Cost == nil && it.Rate == nil {
		sl.ReportError(it.Cost, "cost", "Cost", "required_without", "rate")
	}
}

func (h *Handler) apiReceiveGoods(w http.ResponseWriter, r *http.Request) {
	var body struct {
		SupplierID      uuid.UUID     `json:"supplier_id" validate:"required"`
		PurchaseOrderID *uuid.UUID    `json:"purchase_order_id"`
		Items           []grnItemBody `json:"items" validate:"required,min=1,dive"`
	}
	if !h.decodeJSON(w, r, &body) {
		return
	}

	items := make([]core.GRNItemInput, len(body.Items))
	for i, it := range body.Items {
		items[i] = core.GRNItemInput{
			ProductID:   it.ProductID,
			ReceivedQty: it.ReceivedQty,
			Cost:        it.unitCost(),
			BatchNo:     it.BatchNo,
			Expiry:      it.Expiry,
		}
	}
	grn, err := h.svc.ReceiveGoods(r.Context(), core.ReceiveGoodsRequest{
		SupplierID:      body.SupplierID,
		PurchaseOrderID: body.PurchaseOrderID,
		Items:           items,
	})
	if err != nil {
		h.writeServiceError(w, r, "apiReceiveGoods", err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, grn)
}

func (h *Handler) apiGetGRN(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	grn, err := h.svc.GetGRN(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, "apiGetGRN", err)
		return
	}
	writeJSON(w, grn)
}

// ── Purchase returns ──────────────────────────────────────────────────────────

func (h *Handler) apiListPurchaseReturns(w http.ResponseWriter, r *http.Request) {
	supplierID, ok := queryID(w, r, "supplier_id")
	if !ok {
		return
	}
	returns, err := h.svc.ListPurchaseReturns(r.Context(), core.PurchaseReturnFilter{SupplierID: supplierID})
	if err != nil {
		h.writeServiceError(w, r, "apiListPurchaseReturns", err)
		return
	}
	writeJSON(w, returns)
}

type purchaseReturnItemBody struct {
	ProductID uuid.UUID       `json:"product_id" validate:"required"`
	Qty       int64           `json:"qty" validate:"gt=0,lte=1000000000"`
	Rate      decimal.Decimal `json:"rate"`
	Tax       decimal.Decimal `json:"tax"`
}

func (h *Handler) apiCreatePurchaseReturn(w http.ResponseWriter, r *http.Request) {
	var body struct {
		SupplierID uuid.UUID                `json:"supplier_id" validate:"required"`
		PurchaseID *uuid.UUID               `json:"purchase_id"`
		Items      []purchaseReturnItemBody `json:"items" validate:"required,min=1,dive"`
	}
	if !h.decodeJSON(w, r, &body) {
		return
	}

	items := make([]core.PurchaseReturnItemInput, len(body.Items))
	for i, it := range body.Items {
		items[i] = core.PurchaseReturnItemInput{
			ProductID: it.ProductID,
			Qty:       it.Qty,
			Rate:      it.Rate,
			Tax:       it.Tax,
		}
	}
	result, err := h.svc.CreatePurchaseReturn(r.Context(), core.CreatePurchaseReturnRequest{
		SupplierID: body.SupplierID,
		PurchaseID: body.PurchaseID,
		Items:      items,
	})
	if err != nil {
		h.writeServiceError(w, r, "apiCreatePurchaseReturn", err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, result)
}

func (h *Handler) apiGetPurchaseReturn(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	ret, err := h.svc.GetPurchaseReturn(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, "apiGetPurchaseReturn", err)
		return
	}
	writeJSON(w, ret)
}
