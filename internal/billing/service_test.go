package billing

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/meridian-clinic/meridian/internal/numbering"
)

type memoryBillingRepo struct {
	invoices map[int64]*Invoice
	nextID   int64
	failNext bool
}

func newMemoryBillingRepo() *memoryBillingRepo {
	return &memoryBillingRepo{invoices: make(map[int64]*Invoice)}
}

func (r *memoryBillingRepo) CreateInvoice(ctx context.Context, inv *Invoice) error {
	if r.failNext {
		return errors.New("insert failed")
	}
	for _, existing := range r.invoices {
		if existing.InvoiceNumber == inv.InvoiceNumber || existing.JobOrderNumber == inv.JobOrderNumber {
			return ErrDuplicateNumber
		}
	}
	r.nextID++
	inv.ID = r.nextID
	inv.CreatedAt = time.Now()
	inv.UpdatedAt = inv.CreatedAt
	stored := *inv
	r.invoices[inv.ID] = &stored
	return nil
}

func (r *memoryBillingRepo) GetInvoice(ctx context.Context, id int64) (*Invoice, error) {
	inv, ok := r.invoices[id]
	if !ok {
		return nil, ErrNotFound
	}
	return inv, nil
}

func (r *memoryBillingRepo) ListInvoices(ctx context.Context, req ListInvoicesRequest) ([]Invoice, error) {
	var out []Invoice
	for _, inv := range r.invoices {
		if req.PatientID != 0 && inv.PatientID != req.PatientID {
			continue
		}
		if req.DateKey != "" && inv.DateKey != req.DateKey {
			continue
		}
		out = append(out, *inv)
	}
	return out, nil
}

func (r *memoryBillingRepo) CountInvoicesForDay(ctx context.Context, dateKey string) (int64, error) {
	var count int64
	for _, inv := range r.invoices {
		if inv.DateKey == dateKey {
			count++
		}
	}
	return count, nil
}

func newTestService(t *testing.T) (*Service, *memoryBillingRepo, *numbering.MemoryStore) {
	t.Helper()
	repo := newMemoryBillingRepo()
	store := numbering.NewMemoryStore()
	numbers := numbering.NewService(store, slog.Default(), nil)
	return NewService(repo, numbers), repo, store
}

func validRequest(at time.Time) CreateInvoiceRequest {
	date := at
	return CreateInvoiceRequest{
		PatientID:   42,
		PatientName: "Dana Whitfield",
		InvoiceDate: &date,
		Items: []CreateInvoiceItemRequest{
			{Description: "Frame fitting", Quantity: 1, UnitPrice: 150},
		},
	}
}

func TestCreateInvoiceAssignsBothNumbersFromOneDay(t *testing.T) {
	svc, repo, store := newTestService(t)
	at := time.Date(2025, 8, 17, 10, 0, 0, 0, time.Local)

	// Day already has 11 invoice numbers and 7 job order numbers issued.
	for i := 0; i < 11; i++ {
		_, err := store.Next(context.Background(), numbering.SeriesInvoice, "20250817")
		require.NoError(t, err)
	}
	for i := 0; i < 7; i++ {
		_, err := store.Next(context.Background(), numbering.SeriesJobOrder, "20250817")
		require.NoError(t, err)
	}

	inv, err := svc.CreateInvoice(context.Background(), validRequest(at))
	require.NoError(t, err)
	require.Equal(t, "2025-0817-0012", inv.InvoiceNumber)
	require.Equal(t, "2025-0817-0008", inv.JobOrderNumber)

	stored, err := repo.GetInvoice(context.Background(), inv.ID)
	require.NoError(t, err)
	require.Equal(t, inv.InvoiceNumber, stored.InvoiceNumber)
	require.Equal(t, inv.JobOrderNumber, stored.JobOrderNumber)
}

func TestCreateInvoiceStoresAllocatorDateKey(t *testing.T) {
	svc, repo, _ := newTestService(t)
	// Clients may send invoice_date with any offset; the stored date key
	// must be the same day the numbers were allocated for.
	at := time.Date(2025, 8, 18, 1, 0, 0, 0, time.FixedZone("JST", 9*3600))

	inv, err := svc.CreateInvoice(context.Background(), validRequest(at))
	require.NoError(t, err)

	wantKey := numbering.DateKey(at)
	require.Equal(t, wantKey, inv.DateKey)
	require.Equal(t, numbering.FormatNumber(wantKey, "0001"), inv.InvoiceNumber)

	count, err := repo.CountInvoicesForDay(context.Background(), wantKey)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)
}

func TestCreateInvoiceDefaultsInvoiceDateToNow(t *testing.T) {
	svc, _, _ := newTestService(t)

	req := validRequest(time.Now())
	req.InvoiceDate = nil

	inv, err := svc.CreateInvoice(context.Background(), req)
	require.NoError(t, err)
	require.False(t, inv.InvoiceDate.IsZero())
	require.WithinDuration(t, time.Now(), inv.InvoiceDate, time.Minute)
	require.Equal(t, numbering.FormatNumber(numbering.DateKey(inv.InvoiceDate), "0001"), inv.InvoiceNumber)
}

func TestCreateInvoiceSkipsAllocationForExplicitNumbers(t *testing.T) {
	svc, _, store := newTestService(t)
	at := time.Date(2025, 8, 17, 10, 0, 0, 0, time.Local)

	invoiceNumber := "2020-0101-0001"
	req := validRequest(at)
	req.InvoiceNumber = &invoiceNumber

	inv, err := svc.CreateInvoice(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, invoiceNumber, inv.InvoiceNumber)
	require.Equal(t, "2025-0817-0001", inv.JobOrderNumber)

	// Only the joborder series was consumed.
	seq, err := store.Peek(context.Background(), numbering.SeriesInvoice, "20250817")
	require.NoError(t, err)
	require.Equal(t, int64(0), seq)
}

func TestCreateInvoiceRecomputesLineTotals(t *testing.T) {
	svc, _, _ := newTestService(t)
	at := time.Date(2025, 8, 17, 10, 0, 0, 0, time.Local)

	req := validRequest(at)
	req.Items = []CreateInvoiceItemRequest{
		{Description: "Lens set", Quantity: 3, UnitPrice: 10, Discount: 5},
		{Description: "Lens set", Quantity: 3, UnitPrice: 10, Discount: 5},
	}

	inv, err := svc.CreateInvoice(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, inv.Items, 2)
	require.Equal(t, 25.0, inv.Items[0].LineTotal)
	require.Equal(t, 25.0, inv.Items[1].LineTotal)
	require.Equal(t, 50.0, inv.TotalAmount)
}

func TestCreateInvoiceClampsNegativeLineTotals(t *testing.T) {
	svc, _, _ := newTestService(t)
	at := time.Date(2025, 8, 17, 10, 0, 0, 0, time.Local)

	req := validRequest(at)
	req.Items = []CreateInvoiceItemRequest{
		{Description: "Courtesy visit", Quantity: 1, UnitPrice: 10, Discount: 50},
	}

	inv, err := svc.CreateInvoice(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, 0.0, inv.Items[0].LineTotal)
	require.Equal(t, 0.0, inv.TotalAmount)
}

type failingNumberSource struct {
	failSeries string
	fallback   NumberSource
}

func (f failingNumberSource) AllocateNumber(ctx context.Context, series string, at time.Time) (string, error) {
	if series == f.failSeries {
		return "", errors.New("store unavailable")
	}
	return f.fallback.AllocateNumber(ctx, series, at)
}

func TestCreateInvoiceFailsWholeWhenOneAllocationFails(t *testing.T) {
	repo := newMemoryBillingRepo()
	store := numbering.NewMemoryStore()
	numbers := numbering.NewService(store, slog.Default(), nil)
	svc := NewService(repo, failingNumberSource{failSeries: numbering.SeriesJobOrder, fallback: numbers})

	at := time.Date(2025, 8, 17, 10, 0, 0, 0, time.Local)
	_, err := svc.CreateInvoice(context.Background(), validRequest(at))
	require.Error(t, err)
	require.Empty(t, repo.invoices, "no partial invoice may be persisted")
}

func TestCreateInvoiceBurnsNumbersOnPersistFailure(t *testing.T) {
	svc, repo, store := newTestService(t)
	at := time.Date(2025, 8, 17, 10, 0, 0, 0, time.Local)

	repo.failNext = true
	_, err := svc.CreateInvoice(context.Background(), validRequest(at))
	require.Error(t, err)

	// The failed attempt consumed number 1; the retry gets 2. Gaps are
	// accepted, duplicates are not.
	repo.failNext = false
	inv, err := svc.CreateInvoice(context.Background(), validRequest(at))
	require.NoError(t, err)
	require.Equal(t, "2025-0817-0002", inv.InvoiceNumber)

	seq, err := store.Peek(context.Background(), numbering.SeriesInvoice, "20250817")
	require.NoError(t, err)
	require.Equal(t, int64(2), seq)
}
