package numbering

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrSequenceConflict indicates the store's uniqueness constraint on
// (series, date_key) was violated. With the single upsert statement this
// should be structurally impossible; if it ever surfaces it must abort
// the caller rather than be papered over.
var ErrSequenceConflict = errors.New("numbering: sequence counter conflict")

// CounterStore is the persistence port for sequence counters. Next must
// be a single atomic increment-or-create at the storage layer; a
// read-modify-write pair is exactly the race this package exists to
// avoid.
type CounterStore interface {
	// Next increments the counter for (series, dateKey), creating it at 1
	// when absent, and returns the new value.
	Next(ctx context.Context, series, dateKey string) (int64, error)
	// Peek returns the current counter value without mutating it. A
	// missing counter reads as 0, meaning nothing issued yet that day.
	Peek(ctx context.Context, series, dateKey string) (int64, error)
}

// PostgresStore persists counters in the sequence_counters table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore constructs a PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Next performs the increment-or-create as one upsert statement, so
// concurrent callers serialize on the row inside the database.
func (s *PostgresStore) Next(ctx context.Context, series, dateKey string) (int64, error) {
	var seq int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO sequence_counters (series, date_key, counter)
		VALUES ($1, $2, 1)
		ON CONFLICT (series, date_key)
		DO UPDATE SET counter = sequence_counters.counter + 1
		RETURNING counter
	`, series, dateKey).Scan(&seq)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, ErrSequenceConflict
		}
		return 0, fmt.Errorf("numbering: increment %s/%s: %w", series, dateKey, err)
	}
	return seq, nil
}

// Peek reads the counter without touching it.
func (s *PostgresStore) Peek(ctx context.Context, series, dateKey string) (int64, error) {
	var seq int64
	err := s.pool.QueryRow(ctx, `
		SELECT COALESCE(
			(SELECT counter FROM sequence_counters WHERE series = $1 AND date_key = $2),
			0
		)
	`, series, dateKey).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("numbering: peek %s/%s: %w", series, dateKey, err)
	}
	return seq, nil
}

// MemoryStore is a mutex-guarded in-process CounterStore. It backs tests
// and single-process development runs; it honors the same contract as
// the database-backed stores.
type MemoryStore struct {
	mu       sync.Mutex
	counters map[string]int64
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{counters: make(map[string]int64)}
}

func counterKey(series, dateKey string) string {
	return series + ":" + dateKey
}

// Next increments under the lock, creating at 1 when absent.
func (s *MemoryStore) Next(ctx context.Context, series, dateKey string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := counterKey(series, dateKey)
	s.counters[key]++
	return s.counters[key], nil
}

// Peek returns the current value, 0 when the counter does not exist.
func (s *MemoryStore) Peek(ctx context.Context, series, dateKey string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counters[counterKey(series, dateKey)], nil
}
