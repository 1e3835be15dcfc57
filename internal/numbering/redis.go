package numbering

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps counters in Redis. INCR is atomic server-side, which
// gives the same increment-or-create guarantee as the Postgres upsert.
// Counters are intentionally never expired: the spec for the numbering
// scheme is that rows live forever, and a vanished counter would restart
// the day's sequence at 1.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore constructs a RedisStore.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func redisCounterKey(series, dateKey string) string {
	return fmt.Sprintf("numbering:%s:%s", series, dateKey)
}

// Next atomically increments the counter, creating it at 1 when absent.
func (s *RedisStore) Next(ctx context.Context, series, dateKey string) (int64, error) {
	seq, err := s.client.Incr(ctx, redisCounterKey(series, dateKey)).Result()
	if err != nil {
		return 0, fmt.Errorf("numbering: increment %s/%s: %w", series, dateKey, err)
	}
	return seq, nil
}

// Peek reads the counter; a missing key reads as 0.
func (s *RedisStore) Peek(ctx context.Context, series, dateKey string) (int64, error) {
	seq, err := s.client.Get(ctx, redisCounterKey(series, dateKey)).Int64()
	if err != nil {
		if err == redis.Nil {
			return 0, nil
		}
		return 0, fmt.Errorf("numbering: peek %s/%s: %w", series, dateKey, err)
	}
	return seq, nil
}
