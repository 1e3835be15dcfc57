// Package numbering issues daily-reset document sequence numbers for
// billing documents. Each series ("invoice", "joborder") counts up from
// 1 per local calendar day; formatted numbers look like 2025-0817-0012.
package numbering

import (
	"fmt"
	"time"
)

// Known series names. The store accepts any series string; these are the
// two the billing module uses.
const (
	SeriesInvoice  = "invoice"
	SeriesJobOrder = "joborder"
)

// DateKey buckets a timestamp into its local calendar day as an 8-digit
// YYYYMMDD string. The timestamp is converted to the process's local
// zone first, so the same instant always yields the same key no matter
// what offset the caller's time.Time happens to carry: "today" means
// the clinic's today, not the client's and not UTC's.
func DateKey(at time.Time) string {
	return at.In(time.Local).Format("20060102")
}

// PadSequence renders a sequence value zero-padded to 4 digits. Values
// beyond 9999 widen the field instead of failing; uniqueness is what
// matters, the fixed width is only a display convention.
func PadSequence(seq int64) string {
	return fmt.Sprintf("%04d", seq)
}

// FormatNumber combines an 8-digit date key and a padded sequence into
// the display form YYYY-MMDD-####.
func FormatNumber(dateKey, paddedSeq string) string {
	return fmt.Sprintf("%s-%s-%s", dateKey[:4], dateKey[4:], paddedSeq)
}

// Preview reports what the next allocation for each series would return,
// without consuming a number.
type Preview struct {
	InvoiceNumber  string `json:"invoiceNumber"`
	JobOrderNumber string `json:"jobOrderNumber"`
}
