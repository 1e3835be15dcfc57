package numbering

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newRedisTestStore(t *testing.T) *RedisStore {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client)
}

func TestRedisStoreNextCreatesAtOne(t *testing.T) {
	store := newRedisTestStore(t)

	seq, err := store.Next(context.Background(), SeriesInvoice, "20250817")
	require.NoError(t, err)
	require.Equal(t, int64(1), seq)

	seq, err = store.Next(context.Background(), SeriesInvoice, "20250817")
	require.NoError(t, err)
	require.Equal(t, int64(2), seq)
}

func TestRedisStorePeekMissingReadsZero(t *testing.T) {
	store := newRedisTestStore(t)

	seq, err := store.Peek(context.Background(), SeriesInvoice, "20250817")
	require.NoError(t, err)
	require.Equal(t, int64(0), seq)
}

func TestRedisStorePeekDoesNotMutate(t *testing.T) {
	store := newRedisTestStore(t)

	_, err := store.Next(context.Background(), SeriesJobOrder, "20250817")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		seq, err := store.Peek(context.Background(), SeriesJobOrder, "20250817")
		require.NoError(t, err)
		require.Equal(t, int64(1), seq)
	}
}

func TestRedisStoreKeysIsolateSeriesAndDay(t *testing.T) {
	store := newRedisTestStore(t)

	_, err := store.Next(context.Background(), SeriesInvoice, "20250817")
	require.NoError(t, err)

	seq, err := store.Next(context.Background(), SeriesJobOrder, "20250817")
	require.NoError(t, err)
	require.Equal(t, int64(1), seq)

	seq, err = store.Next(context.Background(), SeriesInvoice, "20250818")
	require.NoError(t, err)
	require.Equal(t, int64(1), seq)
}
