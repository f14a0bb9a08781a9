package core

import (
	"bytes"
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// LedgerService is the journal engine: named accounts and balanced double-entry postings.
type LedgerService interface {
	// GetOrCreateAccount looks an account up by code and creates it if absent.
	GetOrCreateAccount(ctx context.Context, spec AccountSpec) (*Account, error)
	// GetOrCreateAccountTx does the same inside the caller's unit of work, so repeated
	// calls with one code in one transaction return the same account.
	GetOrCreateAccountTx(ctx context.Context, tx Tx, spec AccountSpec) (*Account, error)

	// PostEntry validates and persists a journal entry in its own transaction and
	// applies every line to its account's cached balance.
	PostEntry(ctx context.Context, req PostEntryRequest) (*JournalEntry, error)
	// PostEntryTx posts within the caller's unit of work. The caller commits.
	PostEntryTx(ctx context.Context, tx Tx, req PostEntryRequest) (*JournalEntry, error)

	GetEntry(ctx context.Context, id uuid.UUID) (*JournalEntry, error)
	ListEntries(ctx context.Context, f JournalFilter) ([]JournalEntry, error)
	ListAccounts(ctx context.Context) ([]Account, error)
}

// PostEntryRequest is the input for posting a journal entry. An empty VoucherNo is
// filled with the next JV number; a zero Date means today; an empty RefType means Manual.
type PostEntryRequest struct {
	VoucherNo string        `json:"voucher_no"`
	Date      time.Time     `json:"date"`
	Lines     []JournalLine `json:"lines"`
	RefType   RefType       `json:"ref_type"`
	RefID     *uuid.UUID    `json:"ref_id"`
}

type Ledger struct {
	coord   *Coordinator
	metrics *Metrics
	logger  *logrus.Logger
}

func NewLedger(coord *Coordinator, metrics *Metrics, logger *logrus.Logger) *Ledger {
	return &Ledger{coord: coord, metrics: metrics, logger: logger}
}

func (l *Ledger) GetOrCreateAccount(ctx context.Context, spec AccountSpec) (*Account, error) {
	if err := validateAccountSpec(&spec); err != nil {
		return nil, err
	}
	var acct *Account
	err := l.coord.Atomic(ctx, "get or create account", func(ctx context.Context, tx Tx) error {
		a, err := l.GetOrCreateAccountTx(ctx, tx, spec)
		acct = a
		return err
	})
	if err != nil {
		return nil, err
	}
	return acct, nil
}

func (l *Ledger) GetOrCreateAccountTx(ctx context.Context, tx Tx, spec AccountSpec) (*Account, error) {
	if err := validateAccountSpec(&spec); err != nil {
		return nil, err
	}

	existing, err := tx.Accounts().GetByCode(ctx, spec.Code)
	if err == nil {
		return existing, nil
	}
	if !IsNotFound(err) {
		return nil, err
	}

	acct := &Account{
		ID:        uuid.New(),
		Code:      spec.Code,
		Name:      spec.Name,
		Type:      spec.Type,
		CreatedAt: l.coord.Now(),
	}
	created, err := tx.Accounts().Create(ctx, acct)
	if err != nil {
		return nil, err
	}
	if created.ID == acct.ID {
		l.logger.WithFields(logrus.Fields{"account_code": spec.Code, "account_type": spec.Type}).Info("account created")
	}
	return created, nil
}

func (l *Ledger) PostEntry(ctx context.Context, req PostEntryRequest) (*JournalEntry, error) {
	// Reject malformed or unbalanced input before opening a transaction.
	draft := l.buildEntry(req)
	if draft.VoucherNo == "" {
		draft.VoucherNo = "pending"
	}
	if err := l.validate(draft); err != nil {
		return nil, err
	}

	var posted *JournalEntry
	err := l.coord.Atomic(ctx, "post journal entry", func(ctx context.Context, tx Tx) error {
		e, err := l.PostEntryTx(ctx, tx, req)
		posted = e
		return err
	})
	if err != nil {
		return nil, err
	}

	l.metrics.entryPosted(posted.RefType)
	l.logger.WithFields(logrus.Fields{
		"voucher_no": posted.VoucherNo,
		"ref_type":   posted.RefType,
		"lines":      len(posted.Lines),
	}).Info("journal entry posted")
	return posted, nil
}

func (l *Ledger) PostEntryTx(ctx context.Context, tx Tx, req PostEntryRequest) (*JournalEntry, error) {
	entry := l.buildEntry(req)
	if entry.VoucherNo == "" {
		no, err := nextDocumentNumber(ctx, tx, DocJournalVoucher, entry.Date)
		if err != nil {
			return nil, err
		}
		entry.VoucherNo = no
	}
	if err := l.validate(entry); err != nil {
		return nil, err
	}

	// Lock every referenced account in a fixed order before touching balances.
	ids := make([]uuid.UUID, 0, len(entry.Lines))
	for _, line := range entry.Lines {
		ids = append(ids, line.AccountID)
	}
	slices.SortFunc(ids, func(a, b uuid.UUID) int { return bytes.Compare(a[:], b[:]) })
	ids = slices.Compact(ids)

	accounts := make(map[uuid.UUID]*Account, len(ids))
	for _, id := range ids {
		a, err := tx.Accounts().GetForUpdate(ctx, id)
		if err != nil {
			return nil, err
		}
		accounts[id] = a
	}

	for _, line := range entry.Lines {
		accounts[line.AccountID].Post(line)
	}
	for _, id := range ids {
		if err := tx.Accounts().Save(ctx, accounts[id]); err != nil {
			return nil, err
		}
	}

	if err := tx.Journal().Create(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

func (l *Ledger) GetEntry(ctx context.Context, id uuid.UUID) (*JournalEntry, error) {
	var entry *JournalEntry
	err := l.coord.View(ctx, func(ctx context.Context, tx Tx) error {
		e, err := tx.Journal().Get(ctx, id)
		entry = e
		return err
	})
	return entry, err
}

func (l *Ledger) ListEntries(ctx context.Context, f JournalFilter) ([]JournalEntry, error) {
	var entries []JournalEntry
	err := l.coord.View(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		entries, err = tx.Journal().List(ctx, f)
		return err
	})
	return entries, err
}

func (l *Ledger) ListAccounts(ctx context.Context) ([]Account, error) {
	var accounts []Account
	err := l.coord.View(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		accounts, err = tx.Accounts().List(ctx)
		return err
	})
	return accounts, err
}

func (l *Ledger) buildEntry(req PostEntryRequest) *JournalEntry {
	now := l.coord.Now()
	date := req.Date
	if date.IsZero() {
		date = now
	}
	refType := req.RefType
	if refType == "" {
		refType = RefManual
	}
	return &JournalEntry{
		ID:        uuid.New(),
		VoucherNo: strings.TrimSpace(req.VoucherNo),
		Date:      date,
		Lines:     slices.Clone(req.Lines),
		RefType:   refType,
		RefID:     req.RefID,
		CreatedAt: now,
	}
}

func (l *Ledger) validate(e *JournalEntry) error {
	err := e.Validate()
	var unbalanced *UnbalancedEntryError
	if errors.As(err, &unbalanced) {
		l.metrics.entryUnbalanced()
		l.logger.WithFields(logrus.Fields{
			"voucher_no": e.VoucherNo,
			"debit":      unbalanced.Debit.String(),
			"credit":     unbalanced.Credit.String(),
		}).Warn("rejected unbalanced journal entry")
	}
	return err
}

func validateAccountSpec(spec *AccountSpec) error {
	spec.Code = strings.TrimSpace(spec.Code)
	spec.Name = strings.TrimSpace(spec.Name)
	if spec.Code == "" {
		return invalid("code", "is required")
	}
	if !spec.Type.Valid() {
		return invalid("type", "must be one of asset, liability, income, expense; got %q", spec.Type)
	}
	if spec.Name == "" {
		spec.Name = spec.Code
	}
	return nil
}
