package lock

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/finchat-ai/coordination/store"
)

// SemaphoreOptions configures a Semaphore.
type SemaphoreOptions struct {
	// HoldTTL is the absolute expiry of the holder set. Crashed holders can
	// leak permits for at most this long. Default: 10m.
	HoldTTL time.Duration

	// RetryInterval is the poll interval while waiting for a free slot.
	// Default: 100ms.
	RetryInterval time.Duration

	// Logger overrides the store client's logger.
	Logger *slog.Logger
}

// Semaphore bounds the number of concurrent holders of a key. Holders are
// tracked in a sorted set scored by acquisition time; each Semaphore instance
// carries its own owner token.
//
// The count check and the insert are separate round trips, so the limit is a
// soft cap: concurrent acquirers racing the check can overshoot by a small
// bounded amount.
type Semaphore struct {
	client        *store.Client
	key           string
	token         string
	limit         int
	holdTTL       time.Duration
	retryInterval time.Duration
	logger        *slog.Logger
}

// NewSemaphore creates a semaphore for the given key and holder limit.
// The key is namespaced under "semaphore:" in Redis.
func NewSemaphore(client *store.Client, key string, limit int, opts SemaphoreOptions) *Semaphore {
	if opts.HoldTTL == 0 {
		opts.HoldTTL = 10 * time.Minute
	}
	if opts.RetryInterval == 0 {
		opts.RetryInterval = 100 * time.Millisecond
	}
	if opts.Logger == nil {
		opts.Logger = client.Logger()
	}

	return &Semaphore{
		client:        client,
		key:           "semaphore:" + key,
		token:         uuid.NewString(),
		limit:         limit,
		holdTTL:       opts.HoldTTL,
		retryInterval: opts.RetryInterval,
		logger:        opts.Logger,
	}
}

// Acquire takes a slot, polling until one frees up, the timeout elapses, or
// ctx is done. A timeout <= 0 means wait until ctx is done. Each successful
// acquisition renews the holder set's expiry.
//
// If the store is unreachable the result follows the client's FailMode.
func (s *Semaphore) Acquire(ctx context.Context, timeout time.Duration) bool {
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}

	rdb := s.client.Redis()
	for {
		current, err := rdb.ZCard(ctx, s.key).Result()
		if err != nil {
			return s.storeDown("semaphore acquire", err)
		}

		if current < int64(s.limit) {
			now := float64(time.Now().UnixNano()) / float64(time.Second)
			pipe := rdb.Pipeline()
			pipe.ZAdd(ctx, s.key, redis.Z{Score: now, Member: s.token})
			pipe.Expire(ctx, s.key, s.holdTTL)
			if _, err := pipe.Exec(ctx); err != nil {
				return s.storeDown("semaphore acquire", err)
			}
			s.logger.Debug("semaphore acquired", "key", s.key, "holders", current+1, "limit", s.limit)
			return true
		}

		if !deadline.IsZero() && !time.Now().Before(deadline) {
			return false
		}

		select {
		case <-ctx.Done():
			return false
		case <-time.After(s.retryInterval):
		}
	}
}

// Release removes this holder's token from the set. It returns false when the
// token was not present (already expired or released) or the store is
// unreachable.
func (s *Semaphore) Release(ctx context.Context) bool {
	removed, err := s.client.Redis().ZRem(ctx, s.key, s.token).Result()
	if err != nil {
		s.logger.Error("semaphore release failed", "key", s.key, "error", err)
		return false
	}
	if removed == 0 {
		return false
	}
	s.logger.Debug("semaphore released", "key", s.key)
	return true
}

// WithSemaphore runs fn while holding a slot and always releases afterwards.
// If no slot could be acquired, fn does not run and ErrNotAcquired is
// returned.
func (s *Semaphore) WithSemaphore(ctx context.Context, timeout time.Duration, fn func(ctx context.Context) error) error {
	if !s.Acquire(ctx, timeout) {
		return ErrNotAcquired
	}
	defer s.Release(ctx)
	return fn(ctx)
}

func (s *Semaphore) storeDown(op string, err error) bool {
	if s.client.FailMode() == store.FailOpen {
		s.logger.Warn("store unreachable, proceeding without permit", "op", op, "key", s.key, "error", err)
		return true
	}
	s.logger.Warn("store unreachable, acquisition denied", "op", op, "key", s.key, "error", err)
	return false
}
