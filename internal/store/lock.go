package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrLockHeld another holder owns the lock
var ErrLockHeld = errors.New("lock held")

// Lock a TTL-bounded mutual exclusion token on a KVStore key. The TTL bounds
// how long a crashed holder can block others.
type Lock struct {
	kv    KVStore
	key   string
	token string
}

// Acquire takes key for ttl or fails with ErrLockHeld
func Acquire(ctx context.Context, kv KVStore, key string, ttl time.Duration) (*Lock, error) {
	token := uuid.NewString()
	ok, err := kv.SetNX(ctx, key, token, ttl)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLockHeld, key)
	}
	return &Lock{kv: kv, key: key, token: token}, nil
}

// Release drops the lock if this holder still owns it
func (l *Lock) Release(ctx context.Context) error {
	if _, err := l.kv.DelIfValue(ctx, l.key, l.token); err != nil {
		return fmt.Errorf("failed to release lock %s: %w", l.key, err)
	}
	return nil
}

// Key the locked key
func (l *Lock) Key() string {
	return l.key
}

// PayoutLockKey per-companion payout run lock key
func PayoutLockKey(companionID string) string {
	return "payout:lock:" + companionID
}
