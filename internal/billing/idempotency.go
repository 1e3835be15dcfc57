package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrIdempotencyConflict indicates a duplicate key: the same creation
// request was already processed, so the retry must not mint a second
// invoice.
var ErrIdempotencyConflict = errors.New("billing: request already processed")

// IdempotencyStore persists processed creation keys so client retries
// after a timeout do not double-create invoices.
type IdempotencyStore struct {
	pool *pgxpool.Pool
}

// NewIdempotencyStore constructs the store.
func NewIdempotencyStore(pool *pgxpool.Pool) *IdempotencyStore {
	return &IdempotencyStore{pool: pool}
}

// CheckAndInsert claims key, failing with ErrIdempotencyConflict when it
// was already claimed.
func (s *IdempotencyStore) CheckAndInsert(ctx context.Context, key string) error {
	if s == nil {
		return errors.New("billing: idempotency store not initialised")
	}
	if key == "" {
		return errors.New("billing: idempotency key required")
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO idempotency_keys (key, created_at) VALUES ($1, $2)`,
		key, time.Now())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrIdempotencyConflict
		}
		return fmt.Errorf("billing: claim idempotency key: %w", err)
	}
	return nil
}

// Delete removes a key, used to roll back a claim when the creation it
// guarded failed and should be retryable.
func (s *IdempotencyStore) Delete(ctx context.Context, key string) error {
	if s == nil {
		return nil
	}
	_, err := s.pool.Exec(ctx, `DELETE FROM idempotency_keys WHERE key = $1`, key)
	return err
}

// Cleanup removes entries older than retention.
func (s *IdempotencyStore) Cleanup(ctx context.Context, olderThan time.Duration) error {
	if s == nil {
		return nil
	}
	cutoff := time.Now().Add(-olderThan)
	_, err := s.pool.Exec(ctx, `DELETE FROM idempotency_keys WHERE created_at < $1`, cutoff)
	return err
}
