package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"inventory-ledger/internal/core"
	"inventory-ledger/internal/logging"
)

type errorResponse struct {
	Error     string            `json:"error"`
	Code      string            `json:"code"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

// writeError writes a structured JSON error response.
func writeError(w http.ResponseWriter, r *http.Request, message, code string, status int) {
	writeJSONStatus(w, status, errorResponse{
		Error:     message,
		Code:      code,
		RequestID: requestIDFromContext(r.Context()),
	})
}

// writeJSON writes a JSON response with status 200.
func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeValidationError reports struct tag failures field by field.
func writeValidationError(w http.ResponseWriter, r *http.Request, err error) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		writeError(w, r, err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	fields := make(map[string]string, len(verrs))
	names := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		// Drop the request struct's own name: "items[0].qty", not "body.items[0].qty".
		ns := fe.Namespace()
		if _, rest, ok := strings.Cut(ns, "."); ok {
			ns = rest
		}
		fields[ns] = fe.Tag()
		names = append(names, ns)
	}
	writeJSONStatus(w, http.StatusBadRequest, errorResponse{
		Error:     "invalid request: " + strings.Join(names, ", "),
		Code:      "VALIDATION_FAILED",
		Fields:    fields,
		RequestID: requestIDFromContext(r.Context()),
	})
}

// writeServiceError maps a service error onto an HTTP status by its type.
// Anything unrecognised is logged and reported as a 500 without internals.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, funcName string, err error) {
	var (
		validation *core.ValidationError
		notFound   *core.NotFoundError
		duplicate  *core.DuplicateError
		unbalanced *core.UnbalancedEntryError
		stock      *core.InsufficientStockError
		transition *core.InvalidTransitionError
	)
	switch {
	case errors.As(err, &validation):
		writeError(w, r, validation.Error(), "VALIDATION_FAILED", http.StatusBadRequest)
	case errors.As(err, &notFound):
		writeError(w, r, notFound.Error(), "NOT_FOUND", http.StatusNotFound)
	case errors.As(err, &duplicate):
		writeError(w, r, duplicate.Error(), "DUPLICATE", http.StatusConflict)
	case errors.As(err, &stock):
		writeError(w, r, stock.Error(), "INSUFFICIENT_STOCK", http.StatusConflict)
	case errors.As(err, &transition):
		writeError(w, r, transition.Error(), "INVALID_TRANSITION", http.StatusConflict)
	case errors.As(err, &unbalanced):
		writeError(w, r, unbalanced.Error(), "UNBALANCED_ENTRY", http.StatusUnprocessableEntity)
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, r, "transaction timed out", "TIMEOUT", http.StatusGatewayTimeout)
	case r.Context().Err() != nil:
		writeError(w, r, "request cancelled", "CANCELLED", http.StatusServiceUnavailable)
	default:
		logging.LogError(h.logger, "web", funcName, "service call failed",
			logrus.Fields{"request_id": requestIDFromContext(r.Context()), "path": r.URL.Path}, err)
		writeError(w, r, "internal server error", "INTERNAL_ERROR", http.StatusInternalServerError)
	}
}
