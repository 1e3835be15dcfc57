package numbering

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

func newTestRouter(store CounterStore) http.Handler {
	handler := NewHandler(slog.Default(), NewService(store, slog.Default(), nil))
	r := chi.NewRouter()
	r.Route("/billing/numbers", handler.MountRoutes)
	return r
}

func TestPreviewEndpointReturnsBothSeries(t *testing.T) {
	store := NewMemoryStore()
	for i := 0; i < 11; i++ {
		_, err := store.Next(context.Background(), SeriesInvoice, "20250817")
		require.NoError(t, err)
	}
	for i := 0; i < 7; i++ {
		_, err := store.Next(context.Background(), SeriesJobOrder, "20250817")
		require.NoError(t, err)
	}

	router := newTestRouter(store)
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/billing/numbers/preview?date=2025-08-17", nil)
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var preview Preview
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &preview))
	require.Equal(t, "2025-0817-0012", preview.InvoiceNumber)
	require.Equal(t, "2025-0817-0008", preview.JobOrderNumber)
}

func TestPreviewEndpointDoesNotConsumeNumbers(t *testing.T) {
	store := NewMemoryStore()
	router := newTestRouter(store)

	for i := 0; i < 3; i++ {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/billing/numbers/preview?date=2025-08-17", nil)
		router.ServeHTTP(rr, req)
		require.Equal(t, http.StatusOK, rr.Code)

		var preview Preview
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &preview))
		require.Equal(t, "2025-0817-0001", preview.InvoiceNumber)
	}

	seq, err := store.Peek(context.Background(), SeriesInvoice, "20250817")
	require.NoError(t, err)
	require.Equal(t, int64(0), seq)
}

func TestPreviewEndpointAcceptsRFC3339(t *testing.T) {
	router := newTestRouter(NewMemoryStore())

	ts := time.Date(2025, 8, 17, 10, 0, 0, 0, time.Local).Format(time.RFC3339)
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/billing/numbers/preview?date="+ts, nil)
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var preview Preview
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &preview))
	require.Equal(t, "2025-0817-0001", preview.InvoiceNumber)
}

func TestPreviewEndpointFallsBackToNowOnGarbage(t *testing.T) {
	router := newTestRouter(NewMemoryStore())

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/billing/numbers/preview?date=not-a-date", nil)
	router.ServeHTTP(rr, req)

	// Preview is advisory; garbage input degrades to "now" instead of
	// failing.
	require.Equal(t, http.StatusOK, rr.Code)

	var preview Preview
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &preview))
	wantKey := DateKey(time.Now())
	require.Equal(t, FormatNumber(wantKey, "0001"), preview.InvoiceNumber)
}
