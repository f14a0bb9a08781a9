package core

import (
	"context"
	"fmt"
	"time"
)

// Document type prefixes used for generated numbers.
const (
	DocPurchaseOrder  = "PO"
	DocGoodsReceipt   = "GRN"
	DocPurchaseReturn = "PR"
	DocJournalVoucher = "JV"
)

// FormatDocumentNumber renders e.g. GRN-2026-00042.
func FormatDocumentNumber(docType string, year int, n int64) string {
	return fmt.Sprintf("%s-%d-%05d", docType, year, n)
}

// nextDocumentNumber draws the next number for docType inside tx. Because the
// sequence row is updated in the same transaction, a rolled-back operation
// leaves no gap.
func nextDocumentNumber(ctx context.Context, tx Tx, docType string, at time.Time) (string, error) {
	year := at.Year()
	n, err := tx.Sequences().Next(ctx, docType, year)
	if err != nil {
		return "", fmt.Errorf("generate %s number: %w", docType, err)
	}
	return FormatDocumentNumber(docType, year, n), nil
}
