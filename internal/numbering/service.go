package numbering

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/meridian-clinic/meridian/internal/observability"
)

// Service allocates and previews sequence numbers on top of a
// CounterStore.
type Service struct {
	store   CounterStore
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewService builds a Service. metrics may be nil.
func NewService(store CounterStore, logger *slog.Logger, metrics *observability.Metrics) *Service {
	return &Service{store: store, logger: logger, metrics: metrics}
}

// AllocateNext consumes the next sequence value for series on the
// calendar day of at and returns it zero-padded. Every call performs a
// fresh atomic increment; there is no caching and no compensating
// decrement on downstream failure, so an abandoned allocation leaves a
// gap rather than risking a duplicate.
func (s *Service) AllocateNext(ctx context.Context, series string, at time.Time) (string, error) {
	dateKey := DateKey(at)
	seq, err := s.store.Next(ctx, series, dateKey)
	if err != nil {
		return "", fmt.Errorf("allocate %s: %w", series, err)
	}
	s.metrics.ObserveAllocation(series)
	s.logger.Debug("sequence allocated",
		slog.String("series", series),
		slog.String("date_key", dateKey),
		slog.Int64("seq", seq))
	return PadSequence(seq), nil
}

// AllocateNumber allocates the next value for series and returns it in
// the full display form YYYY-MMDD-####.
func (s *Service) AllocateNumber(ctx context.Context, series string, at time.Time) (string, error) {
	padded, err := s.AllocateNext(ctx, series, at)
	if err != nil {
		return "", err
	}
	return FormatNumber(DateKey(at), padded), nil
}

// PreviewNext reports the number each series would assign next without
// mutating either counter. The single at timestamp pins one date key for
// both series, so a preview taken at midnight cannot show an invoice
// number from one day and a job order number from the next.
func (s *Service) PreviewNext(ctx context.Context, at time.Time) (Preview, error) {
	dateKey := DateKey(at)

	invSeq, err := s.store.Peek(ctx, SeriesInvoice, dateKey)
	if err != nil {
		return Preview{}, fmt.Errorf("preview %s: %w", SeriesInvoice, err)
	}
	jobSeq, err := s.store.Peek(ctx, SeriesJobOrder, dateKey)
	if err != nil {
		return Preview{}, fmt.Errorf("preview %s: %w", SeriesJobOrder, err)
	}

	return Preview{
		InvoiceNumber:  FormatNumber(dateKey, PadSequence(invSeq+1)),
		JobOrderNumber: FormatNumber(dateKey, PadSequence(jobSeq+1)),
	}, nil
}
