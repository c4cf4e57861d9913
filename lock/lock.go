package lock

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/finchat-ai/coordination/store"
)

// ErrNotAcquired is returned by the scoped helpers when the lock or
// semaphore could not be acquired within the timeout.
var ErrNotAcquired = errors.New("lock: not acquired")

// releaseScript deletes the key only if it still holds the caller's token.
// This prevents a process from releasing a lock it no longer owns, e.g. after
// its TTL expired and another process acquired the key.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
    return redis.call("del", KEYS[1])
else
    return 0
end
`)

// MutexOptions configures a Mutex.
type MutexOptions struct {
	// TTL is the lock expiry. A holder that crashes without releasing frees
	// the key after this interval. Default: 30s.
	TTL time.Duration

	// RetryInterval is the poll interval while blocking on a held lock.
	// Default: 100ms.
	RetryInterval time.Duration

	// Logger overrides the store client's logger.
	Logger *slog.Logger
}

// Mutex is a distributed lock on a single key. Each Mutex instance carries
// its own owner token; create one instance per logical acquisition.
type Mutex struct {
	client        *store.Client
	key           string
	token         string
	ttl           time.Duration
	retryInterval time.Duration
	logger        *slog.Logger
}

// NewMutex creates a mutex for the given key. The key is namespaced under
// "lock:" in Redis.
func NewMutex(client *store.Client, key string, opts MutexOptions) *Mutex {
	if opts.TTL == 0 {
		opts.TTL = 30 * time.Second
	}
	if opts.RetryInterval == 0 {
		opts.RetryInterval = 100 * time.Millisecond
	}
	if opts.Logger == nil {
		opts.Logger = client.Logger()
	}

	return &Mutex{
		client:        client,
		key:           "lock:" + key,
		token:         uuid.NewString(),
		ttl:           opts.TTL,
		retryInterval: opts.RetryInterval,
		logger:        opts.Logger,
	}
}

// Acquire attempts to take the lock. When blocking is true it polls until the
// lock is free, the timeout elapses, or ctx is done; a timeout <= 0 means
// wait until ctx is done. It returns true if ownership was established.
//
// If the store is unreachable the result follows the client's FailMode.
func (m *Mutex) Acquire(ctx context.Context, blocking bool, timeout time.Duration) bool {
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}

	for {
		ok, err := m.client.Redis().SetNX(ctx, m.key, m.token, m.ttl).Result()
		if err != nil {
			return m.storeDown("lock acquire", err)
		}
		if ok {
			m.logger.Debug("lock acquired", "key", m.key)
			return true
		}

		if !blocking {
			return false
		}
		if !deadline.IsZero() && !time.Now().Before(deadline) {
			return false
		}

		select {
		case <-ctx.Done():
			return false
		case <-time.After(m.retryInterval):
		}
	}
}

// Release frees the lock if this Mutex still owns it. It returns false when
// the key holds another owner's token (the lock expired and was re-acquired)
// or the store is unreachable.
func (m *Mutex) Release(ctx context.Context) bool {
	deleted, err := releaseScript.Run(ctx, m.client.Redis(), []string{m.key}, m.token).Int()
	if err != nil {
		m.logger.Error("lock release failed", "key", m.key, "error", err)
		return false
	}
	if deleted == 0 {
		m.logger.Warn("lock release skipped, not owner", "key", m.key)
		return false
	}
	m.logger.Debug("lock released", "key", m.key)
	return true
}

// WithLock runs fn while holding the lock and always releases afterwards.
// If the lock cannot be acquired, fn does not run and ErrNotAcquired is
// returned.
func (m *Mutex) WithLock(ctx context.Context, blocking bool, timeout time.Duration, fn func(ctx context.Context) error) error {
	if !m.Acquire(ctx, blocking, timeout) {
		return ErrNotAcquired
	}
	defer m.Release(ctx)
	return fn(ctx)
}

// storeDown resolves an unreachable-store acquisition per the client FailMode.
func (m *Mutex) storeDown(op string, err error) bool {
	if m.client.FailMode() == store.FailOpen {
		m.logger.Warn("store unreachable, proceeding unlocked", "op", op, "key", m.key, "error", err)
		return true
	}
	m.logger.Warn("store unreachable, acquisition denied", "op", op, "key", m.key, "error", err)
	return false
}
