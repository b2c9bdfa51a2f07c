package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// ErrCacheMiss key does not exist (or has expired)
var ErrCacheMiss = errors.New("cache miss")

// KVStore small key-value surface used for run locks. Redis in production,
// MemoryKVStore when Redis is not configured and in unit tests.
type KVStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	// SetNX sets key only when absent and reports whether it did
	SetNX(ctx context.Context, key string, value string, ttl time.Duration) (bool, error)
	// DelIfValue deletes key only while it still holds value
	DelIfValue(ctx context.Context, key string, value string) (bool, error)
}

// RedisKVStore go-redis backed KVStore
type RedisKVStore struct {
	client *redis.Client
}

func NewRedisKVStore(client *redis.Client) *RedisKVStore {
	return &RedisKVStore{client: client}
}

var delIfValueScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

func (r *RedisKVStore) Get(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return "", ErrCacheMiss
		}
		return "", err
	}
	return val, nil
}

func (r *RedisKVStore) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

func (r *RedisKVStore) SetNX(ctx context.Context, key string, value string, ttl time.Duration) (bool, error) {
	return r.client.SetNX(ctx, key, value, ttl).Result()
}

func (r *RedisKVStore) DelIfValue(ctx context.Context, key string, value string) (bool, error) {
	n, err := delIfValueScript.Run(ctx, r.client, []string{key}, value).Int64()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// MemoryKVStore in-process KVStore with TTL
type MemoryKVStore struct {
	mu   sync.Mutex
	data map[string]memoryItem
	now  func() time.Time
}

type memoryItem struct {
	value   string
	expires time.Time // zero = no ttl
}

func NewMemoryKVStore() *MemoryKVStore {
	return &MemoryKVStore{data: map[string]memoryItem{}, now: time.Now}
}

// get returns the live item; caller holds mu
func (m *MemoryKVStore) get(key string) (memoryItem, bool) {
	item, ok := m.data[key]
	if !ok {
		return item, false
	}
	if !item.expires.IsZero() && m.now().After(item.expires) {
		delete(m.data, key)
		return item, false
	}
	return item, true
}

func (m *MemoryKVStore) put(key, value string, ttl time.Duration) {
	var exp time.Time
	if ttl > 0 {
		exp = m.now().Add(ttl)
	}
	m.data[key] = memoryItem{value: value, expires: exp}
}

func (m *MemoryKVStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.get(key)
	if !ok {
		return "", ErrCacheMiss
	}
	return item.value, nil
}

func (m *MemoryKVStore) Set(_ context.Context, key string, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.put(key, value, ttl)
	return nil
}

func (m *MemoryKVStore) SetNX(_ context.Context, key string, value string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.get(key); ok {
		return false, nil
	}
	m.put(key, value, ttl)
	return true, nil
}

func (m *MemoryKVStore) DelIfValue(_ context.Context, key string, value string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.get(key)
	if !ok || item.value != value {
		return false, nil
	}
	delete(m.data, key)
	return true, nil
}
