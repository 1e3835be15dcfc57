// Package billing manages clinic invoices: creation with daily-reset
// invoice and job order numbers, line total computation, and retrieval.
package billing

import (
	"time"
)

// Invoice model. InvoiceNumber and JobOrderNumber are assigned exactly
// once, at creation, and never change afterwards. DateKey is the
// calendar day the numbers were allocated for; it is written once at
// creation so queries never re-derive the day from InvoiceDate (which
// would depend on the database session timezone).
type Invoice struct {
	ID             int64
	InvoiceNumber  string
	JobOrderNumber string
	PatientID      int64
	PatientName    string
	InvoiceDate    time.Time
	DateKey        string
	Items          []InvoiceItem
	TotalAmount    float64
	Notes          string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// InvoiceItem is a single billed line. LineTotal is derived and
// recomputed on save, never trusted from input.
type InvoiceItem struct {
	ID          int64
	InvoiceID   int64
	Description string
	Quantity    float64
	UnitPrice   float64
	Discount    float64
	LineTotal   float64
}

// LineTotal computes a line's charge. The discount is an absolute
// amount, and a discount larger than the gross clamps to zero rather
// than producing a negative line.
func LineTotal(quantity, unitPrice, discount float64) float64 {
	total := quantity*unitPrice - discount
	if total < 0 {
		return 0
	}
	return total
}
