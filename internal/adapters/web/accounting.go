package web

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"inventory-ledger/internal/core"
)

func (h *Handler) apiListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.svc.ListAccounts(r.Context())
	if err != nil {
		h.writeServiceError(w, r, "apiListAccounts", err)
		return
	}
	writeJSON(w, accounts)
}

// apiGetOrCreateAccount handles POST /api/accounts. Posting an existing code
// returns that account unchanged.
func (h *Handler) apiGetOrCreateAccount(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Code string `json:"code" validate:"required,max=32"`
		Name string `json:"name"`
		Type string `json:"type" validate:"required,oneof=asset liability income expense"`
	}
	if !h.decodeJSON(w, r, &body) {
		return
	}

	acct, err := h.svc.GetOrCreateAccount(r.Context(), core.AccountSpec{
		Code: body.Code,
		Name: body.Name,
		Type: core.AccountType(body.Type),
	})
	if err != nil {
		h.writeServiceError(w, r, "apiGetOrCreateAccount", err)
		return
	}
	writeJSON(w, acct)
}

func (h *Handler) apiListJournalEntries(w http.ResponseWriter, r *http.Request) {
	refID, ok := queryID(w, r, "ref_id")
	if !ok {
		return
	}
	accountID, ok := queryID(w, r, "account_id")
	if !ok {
		return
	}
	from, to, ok := queryRange(w, r)
	if !ok {
		return
	}
	entries, err := h.svc.ListJournalEntries(r.Context(), core.JournalFilter{
		RefType:   core.RefType(r.URL.Query().Get("ref_type")),
		RefID:     refID,
		AccountID: accountID,
		From:      from,
		To:        to,
	})
	if err != nil {
		h.writeServiceError(w, r, "apiListJournalEntries", err)
		return
	}
	writeJSON(w, entries)
}

type journalLineBody struct {
	AccountID uuid.UUID       `json:"account_id" validate:"required"`
	Debit     decimal.Decimal `json:"debit"`
	Credit    decimal.Decimal `json:"credit"`
	Narration string          `json:"narration"`
}

// apiPostJournalEntry handles POST /api/journal-entries. Unbalanced entries are
// rejected with 422 and nothing is persisted.
func (h *Handler) apiPostJournalEntry(w http.ResponseWriter, r *http.Request) {
	var body struct {
		VoucherNo string            `json:"voucher_no" validate:"omitempty,max=64"`
		Date      time.Time         `json:"date"`
		Lines     []journalLineBody `json:"lines" validate:"required,min=2,dive"`
		RefType   string            `json:"ref_type"`
		RefID     *uuid.UUID        `json:"ref_id"`
	}
	if !h.decodeJSON(w, r, &body) {
		return
	}

	lines := make([]core.JournalLine, len(body.Lines))
	for i, l := range body.Lines {
		lines[i] = core.JournalLine{
			AccountID: l.AccountID,
			Debit:     l.Debit,
			Credit:    l.Credit,
			Narration: l.Narration,
		}
	}
	entry, err := h.svc.PostJournalEntry(r.Context(), core.PostEntryRequest{
		VoucherNo: body.VoucherNo,
		Date:      body.Date,
		Lines:     lines,
		RefType:   core.RefType(body.RefType),
		RefID:     body.RefID,
	})
	if err != nil {
		h.writeServiceError(w, r, "apiPostJournalEntry", err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, entry)
}

func (h *Handler) apiGetJournalEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	entry, err := h.svc.GetJournalEntry(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, "apiGetJournalEntry", err)
		return
	}
	writeJSON(w, entry)
}

// ── Reports ───────────────────────────────────────────────────────────────────

func (h *Handler) apiTrialBalance(w http.ResponseWriter, r *http.Request) {
	tb, err := h.svc.GetTrialBalance(r.Context())
	if err != nil {
		h.writeServiceError(w, r, "apiTrialBalance", err)
		return
	}
	writeJSON(w, tb)
}

// apiAccountStatement handles GET /api/reports/account-statement/{code}?from=&to=.
func (h *Handler) apiAccountStatement(w http.ResponseWriter, r *http.Request) {
	from, to, ok := queryRange(w, r)
	if !ok {
		return
	}
	code := chi.URLParam(r, "code")
	lines, err := h.svc.GetAccountStatement(r.Context(), code, from, to)
	if err != nil {
		h.writeServiceError(w, r, "apiAccountStatement", err)
		return
	}
	writeJSON(w, map[string]any{"account_code": code, "lines": lines})
}

// queryRange reads the optional from/to parameters. A date-only "to" covers the
// whole of that day.
func queryRange(w http.ResponseWriter, r *http.Request) (from, to *time.Time, ok bool) {
	if from, ok = queryTime(w, r, "from"); !ok {
		return nil, nil, false
	}
	if to, ok = queryTime(w, r, "to"); !ok {
		return nil, nil, false
	}
	if to != nil && len(r.URL.Query().Get("to")) == len(time.DateOnly) {
		end := to.AddDate(0, 0, 1).Add(-time.Nanosecond)
		to = &end
	}
	return from, to, true
}
