package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"inventory-ledger/internal/app"
	"inventory-ledger/internal/idempotency"
	"inventory-ledger/internal/logging"
)

// Handler holds the application service and the HTTP router.
type Handler struct {
	svc      app.ApplicationService
	logger   *logrus.Logger
	validate *validator.Validate
	router   http.Handler
}

// Options configures NewHandler. Only the service is required.
type Options struct {
	Logger         *logrus.Logger
	Idempotency    idempotency.Store
	AllowedOrigins []string
	// MetricsHandler is mounted at /metrics when set.
	MetricsHandler http.Handler
}

// NewHandler wires all routes and middleware and returns the root http.Handler.
func NewHandler(svc app.ApplicationService, opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	h := &Handler{
		svc:      svc,
		logger:   logger,
		validate: newValidator(),
	}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Logger(logger))
	r.Use(Recoverer(logger))
	r.Use(CORS(opts.AllowedOrigins))

	r.Get("/api/health", h.health)
	if opts.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", opts.MetricsHandler)
	}

	r.Group(func(r chi.Router) {
		r.Use(RequestBodyLimit(1 << 20))
		r.Use(Idempotency(opts.Idempotency, logger))

		// ── Suppliers ─────────────────────────────────────────────────────────
		r.Get("/api/suppliers", h.apiListSuppliers)
		r.Post("/api/suppliers", h.apiCreateSupplier)
		r.Get("/api/suppliers/{id}", h.apiGetSupplier)

		// ── Products and batches ──────────────────────────────────────────────
		r.Get("/api/products", h.apiListProducts)
		r.Post("/api/products", h.apiCreateProduct)
		r.Get("/api/products/{id}", h.apiGetProduct)
		r.Post("/api/products/{id}/batches", h.apiAddBatch)
		r.Post("/api/products/{id}/consume", h.apiConsumeStock)
		r.Get("/api/products/{id}/valuation", h.apiStockValuation)
		r.Get("/api/inventory/valuation", h.apiInventoryValuation)

		// ── Purchasing ────────────────────────────────────────────────────────
		r.Get("/api/purchase-orders", h.apiListPurchaseOrders)
		r.Post("/api/purchase-orders", h.apiCreatePurchaseOrder)
		r.Get("/api/purchase-orders/{id}", h.apiGetPurchaseOrder)
		r.Post("/api/purchase-orders/{id}/confirm", h.apiConfirmPurchaseOrder)
		r.Post("/api/purchase-orders/{id}/cancel", h.apiCancelPurchaseOrder)

		r.Get("/api/grns", h.apiListGRNs)
		r.Post("/api/grns", h.apiReceiveGoods)
		r.Get("/api/grns/{id}", h.apiGetGRN)

		r.Get("/api/purchase-returns", h.apiListPurchaseReturns)
		r.Post("/api/purchase-returns", h.apiCreatePurchaseReturn)
		r.Get("/api/purchase-returns/{id}", h.apiGetPurchaseReturn)

		// ── Ledger ────────────────────────────────────────────────────────────
		r.Get("/api/accounts", h.apiListAccounts)
		r.Post("/api/accounts", h.apiGetOrCreateAccount)
		r.Get("/api/journal-entries", h.apiListJournalEntries)
		r.Post("/api/journal-entries", h.apiPostJournalEntry)
		r.Get("/api/journal-entries/{id}", h.apiGetJournalEntry)

		r.Get("/api/reports/trial-balance", h.apiTrialBalance)
		r.Get("/api/reports/account-statement/{code}", h.apiAccountStatement)
	})

	h.router = r
	return r
}

// health returns service status.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	type response struct {
		Status string    `json:"status"`
		Time   time.Time `json:"time"`
	}
	writeJSON(w, response{Status: "ok", Time: time.Now().UTC()})
}

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterStructValidation(validateGRNItem, grnItemBody{})
	return v
}

// decodeJSON decodes the request body into v and validates its struct tags. It returns
// false and writes an error response on failure: 413 when the body exceeds the limit set
// by RequestBodyLimit, 400 for malformed JSON or failed validation.
func (h *Handler) decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, r, "request body too large", "REQUEST_TOO_LARGE", http.StatusRequestEntityTooLarge)
			return false
		}
		writeError(w, r, "invalid JSON body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return false
	}
	if err := h.validate.Struct(v); err != nil {
		writeValidationError(w, r, err)
		return false
	}
	return true
}

// pathID parses the {id} URL parameter.
func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, "invalid id", "BAD_REQUEST", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

// queryID parses an optional UUID query parameter. A missing parameter yields nil.
func queryID(w http.ResponseWriter, r *http.Request, name string) (*uuid.UUID, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		writeError(w, r, "invalid "+name, "BAD_REQUEST", http.StatusBadRequest)
		return nil, false
	}
	return &id, true
}

// queryTime parses an optional RFC 3339 or YYYY-MM-DD query parameter.
func queryTime(w http.ResponseWriter, r *http.Request, name string) (*time.Time, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, true
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t, true
		}
	}
	writeError(w, r, "invalid "+name+": expected RFC 3339 or YYYY-MM-DD", "BAD_REQUEST", http.StatusBadRequest)
	return nil, false
}
