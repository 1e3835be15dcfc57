package jobs

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/meridian-clinic/meridian/internal/numbering"
)

type fakeInvoiceCounter struct {
	counts map[string]int64
}

func (f fakeInvoiceCounter) CountInvoicesForDay(ctx context.Context, dateKey string) (int64, error) {
	return f.counts[dateKey], nil
}

func TestNumberingAuditRunReportsBurnedNumbers(t *testing.T) {
	store := numbering.NewMemoryStore()
	for i := 0; i < 5; i++ {
		_, err := store.Next(context.Background(), numbering.SeriesInvoice, "20250817")
		require.NoError(t, err)
	}

	auditor := NewNumberingAuditor(store, fakeInvoiceCounter{
		counts: map[string]int64{"20250817": 3},
	}, slog.Default(), nil)

	require.NoError(t, auditor.Run(context.Background(), "20250817"))
}

func TestNumberingAuditHandleTaskDefaultsToYesterday(t *testing.T) {
	auditor := NewNumberingAuditor(numbering.NewMemoryStore(), fakeInvoiceCounter{counts: map[string]int64{}}, slog.Default(), nil)

	task, err := NewNumberingAuditTask(NumberingAuditPayload{})
	require.NoError(t, err)
	require.NoError(t, auditor.HandleTask(context.Background(), task))
}

func TestNumberingAuditHandleTaskUsesPayloadDateKey(t *testing.T) {
	store := numbering.NewMemoryStore()
	_, err := store.Next(context.Background(), numbering.SeriesJobOrder, "20250101")
	require.NoError(t, err)

	auditor := NewNumberingAuditor(store, fakeInvoiceCounter{
		counts: map[string]int64{"20250101": 1},
	}, slog.Default(), nil)

	task, err := NewNumberingAuditTask(NumberingAuditPayload{DateKey: "20250101"})
	require.NoError(t, err)
	require.NoError(t, auditor.HandleTask(context.Background(), task))
}
