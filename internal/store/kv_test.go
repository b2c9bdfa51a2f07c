package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisKV(t *testing.T) (*miniredis.Miniredis, *RedisKVStore) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, NewRedisKVStore(client)
}

func TestRedisKVStore_GetSet(t *testing.T) {
	ctx := context.Background()
	_, kv := newRedisKV(t)

	_, err := kv.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, kv.Set(ctx, "k", "v", 0))
	got, err := kv.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)
}

func TestRedisLock_ExclusiveUntilReleased(t *testing.T) {
	ctx := context.Background()
	_, kv := newRedisKV(t)
	key := PayoutLockKey("comp-1")

	l1, err := Acquire(ctx, kv, key, time.Minute)
	require.NoError(t, err)

	_, err = Acquire(ctx, kv, key, time.Minute)
	assert.ErrorIs(t, err, ErrLockHeld)

	require.NoError(t, l1.Release(ctx))
	l2, err := Acquire(ctx, kv, key, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "payout:lock:comp-1", l2.Key())
}

func TestRedisLock_ExpiredHolderCannotReleaseNewOwner(t *testing.T) {
	ctx := context.Background()
	mr, kv := newRedisKV(t)
	key := PayoutLockKey("comp-1")

	stale, err := Acquire(ctx, kv, key, time.Second)
	require.NoError(t, err)
	mr.FastForward(2 * time.Second)

	fresh, err := Acquire(ctx, kv, key, time.Minute)
	require.NoError(t, err)

	require.NoError(t, stale.Release(ctx))
	assert.True(t, mr.Exists(key), "stale release must not drop the new holder's lock")

	require.NoError(t, fresh.Release(ctx))
	assert.False(t, mr.Exists(key))
}

func TestMemoryKVStore_TTLAndLock(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKVStore()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	kv.now = func() time.Time { return now }

	l, err := Acquire(ctx, kv, "lk", time.Minute)
	require.NoError(t, err)
	_, err = Acquire(ctx, kv, "lk", time.Minute)
	assert.ErrorIs(t, err, ErrLockHeld)

	now = now.Add(2 * time.Minute)
	_, err = kv.Get(ctx, "lk")
	assert.ErrorIs(t, err, ErrCacheMiss)

	_, err = Acquire(ctx, kv, "lk", time.Minute)
	require.NoError(t, err)
	require.NoError(t, l.Release(ctx))
	_, err = kv.Get(ctx, "lk")
	assert.NoError(t, err, "old token must not release the new lock")
}
