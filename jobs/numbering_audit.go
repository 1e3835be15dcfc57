package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/meridian-clinic/meridian/internal/jobs"
	"github.com/meridian-clinic/meridian/internal/numbering"
)

// InvoiceCounter reports how many invoices were persisted for a date
// key.
type InvoiceCounter interface {
	CountInvoicesForDay(ctx context.Context, dateKey string) (int64, error)
}

// NumberingAuditor compares the sequence counters for a day against the
// invoices that actually exist. Allocation is at-least-once, so a failed
// or abandoned creation burns numbers; the audit makes those gaps
// visible without ever "repairing" a counter, since decrementing under
// concurrency is exactly what the numbering design forbids.
type NumberingAuditor struct {
	counters numbering.CounterStore
	invoices InvoiceCounter
	logger   *slog.Logger
	metrics  *jobmetrics.Metrics
}

// NewNumberingAuditor builds a NumberingAuditor. metrics may be nil.
func NewNumberingAuditor(counters numbering.CounterStore, invoices InvoiceCounter, logger *slog.Logger, metrics *jobmetrics.Metrics) *NumberingAuditor {
	return &NumberingAuditor{counters: counters, invoices: invoices, logger: logger, metrics: metrics}
}

// Run audits one calendar day identified by its date key.
func (a *NumberingAuditor) Run(ctx context.Context, dateKey string) error {
	issued, err := a.counters.Peek(ctx, numbering.SeriesInvoice, dateKey)
	if err != nil {
		return err
	}
	jobIssued, err := a.counters.Peek(ctx, numbering.SeriesJobOrder, dateKey)
	if err != nil {
		return err
	}
	persisted, err := a.invoices.CountInvoicesForDay(ctx, dateKey)
	if err != nil {
		return err
	}

	a.logger.Info("numbering audit",
		slog.String("date_key", dateKey),
		slog.Int64("invoice_issued", issued),
		slog.Int64("joborder_issued", jobIssued),
		slog.Int64("invoices_persisted", persisted))

	if issued > persisted {
		a.logger.Warn("sequence numbers burned by failed creations",
			slog.String("date_key", dateKey),
			slog.Int64("burned", issued-persisted))
	}
	return nil
}

// HandleTask processes TaskNumberingAudit tasks.
func (a *NumberingAuditor) HandleTask(ctx context.Context, t *asynq.Task) error {
	var payload NumberingAuditPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	dateKey := payload.DateKey
	if dateKey == "" {
		dateKey = numbering.DateKey(time.Now().AddDate(0, 0, -1))
	}
	tracker := a.metrics.Track("numbering_audit")
	return tracker.End(a.Run(ctx, dateKey))
}
