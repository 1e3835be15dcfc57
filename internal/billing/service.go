package billing

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/meridian-clinic/meridian/internal/numbering"
)

// RepositoryPort defines data access methods for billing.
type RepositoryPort interface {
	CreateInvoice(ctx context.Context, inv *Invoice) error
	GetInvoice(ctx context.Context, id int64) (*Invoice, error)
	ListInvoices(ctx context.Context, req ListInvoicesRequest) ([]Invoice, error)
	CountInvoicesForDay(ctx context.Context, dateKey string) (int64, error)
}

// NumberSource mints display-formatted document numbers for a series.
type NumberSource interface {
	AllocateNumber(ctx context.Context, series string, at time.Time) (string, error)
}

// Service handles billing business logic.
type Service struct {
	repo    RepositoryPort
	numbers NumberSource
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, numbers NumberSource) *Service {
	return &Service{repo: repo, numbers: numbers}
}

// CreateInvoice is the single entry point for minting an invoice. The
// ordering contract:
//
//  1. The invoice date defaults to now, and that one timestamp feeds
//     both series' allocations so the two numbers always agree on the
//     calendar day.
//  2. Both numbers are allocated (skipped per field when supplied
//     explicitly); if either allocation fails the whole creation fails —
//     there is never a persisted invoice with only one number.
//  3. Line totals and the invoice total are recomputed from quantities,
//     unit prices and discounts; client-sent totals are ignored.
//  4. The invoice is persisted with all fields populated.
//
// A failed creation may have burned sequence numbers; retries simply
// allocate fresh ones. Uniqueness, not density, is the guarantee.
func (s *Service) CreateInvoice(ctx context.Context, req CreateInvoiceRequest) (*Invoice, error) {
	invoiceDate := time.Now()
	if req.InvoiceDate != nil && !req.InvoiceDate.IsZero() {
		invoiceDate = *req.InvoiceDate
	}

	inv := &Invoice{
		PatientID:   req.PatientID,
		PatientName: req.PatientName,
		InvoiceDate: invoiceDate,
		DateKey:     numbering.DateKey(invoiceDate),
	}
	if req.Notes != nil {
		inv.Notes = *req.Notes
	}
	if req.InvoiceNumber != nil {
		inv.InvoiceNumber = *req.InvoiceNumber
	}
	if req.JobOrderNumber != nil {
		inv.JobOrderNumber = *req.JobOrderNumber
	}

	// The two series are independent, so the allocations may run
	// concurrently; both use the pinned invoiceDate.
	g, gctx := errgroup.WithContext(ctx)
	if inv.InvoiceNumber == "" {
		g.Go(func() error {
			number, err := s.numbers.AllocateNumber(gctx, numbering.SeriesInvoice, invoiceDate)
			if err != nil {
				return err
			}
			inv.InvoiceNumber = number
			return nil
		})
	}
	if inv.JobOrderNumber == "" {
		g.Go(func() error {
			number, err := s.numbers.AllocateNumber(gctx, numbering.SeriesJobOrder, invoiceDate)
			if err != nil {
				return err
			}
			inv.JobOrderNumber = number
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	inv.Items = make([]InvoiceItem, 0, len(req.Items))
	var total float64
	for _, item := range req.Items {
		lineTotal := LineTotal(item.Quantity, item.UnitPrice, item.Discount)
		inv.Items = append(inv.Items, InvoiceItem{
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Discount:    item.Discount,
			LineTotal:   lineTotal,
		})
		total += lineTotal
	}
	inv.TotalAmount = total

	if err := s.repo.CreateInvoice(ctx, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

// GetInvoice returns one invoice with items.
func (s *Service) GetInvoice(ctx context.Context, id int64) (*Invoice, error) {
	return s.repo.GetInvoice(ctx, id)
}

// ListInvoices returns invoices matching the filter.
func (s *Service) ListInvoices(ctx context.Context, req ListInvoicesRequest) ([]Invoice, error) {
	return s.repo.ListInvoices(ctx, req)
}
