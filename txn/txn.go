package txn

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/finchat-ai/coordination/store"
)

// Tx is a buffered write scope. It is only valid inside the function passed
// to Run and must not be retained after it returns.
type Tx struct {
	ctx       context.Context
	client    *store.Client
	pipe      redis.Pipeliner
	rollbacks []func(ctx context.Context) error
	logger    *slog.Logger
}

// Run executes fn inside a write scope. All buffered writes commit together
// when fn returns nil; on any error nothing is applied and the registered
// rollback closures run in reverse order. The original error is returned.
func Run(ctx context.Context, client *store.Client, fn func(tx *Tx) error) error {
	tx := &Tx{
		ctx:    ctx,
		client: client,
		pipe:   client.Redis().TxPipeline(),
		logger: client.Logger(),
	}

	if err := fn(tx); err != nil {
		tx.pipe.Discard()
		tx.rollback(ctx)
		return err
	}

	if _, err := tx.pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		tx.rollback(ctx)
		return fmt.Errorf("transaction commit failed: %w", err)
	}

	tx.logger.Debug("transaction committed", "ops", tx.pipe.Len())
	return nil
}

// Set buffers a SET of key to value.
func (t *Tx) Set(key string, value any) {
	t.pipe.Set(t.ctx, key, value, 0)
}

// SetWithTTL buffers a SET of key to value with an expiry.
func (t *Tx) SetWithTTL(key string, value any, ttl time.Duration) {
	t.pipe.Set(t.ctx, key, value, ttl)
}

// Delete buffers a DEL of the given keys.
func (t *Tx) Delete(keys ...string) {
	t.pipe.Del(t.ctx, keys...)
}

// Increment buffers an INCR of key.
func (t *Tx) Increment(key string) {
	t.pipe.Incr(t.ctx, key)
}

// Get reads key immediately, bypassing the buffer. A missing key returns an
// empty string and no error.
func (t *Tx) Get(key string) (string, error) {
	val, err := t.client.Redis().Get(t.ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("transaction read failed: %w", err)
	}
	return val, nil
}

// OnRollback registers a compensating closure to run if the scope fails.
// Closures run in reverse registration order.
func (t *Tx) OnRollback(fn func(ctx context.Context) error) {
	t.rollbacks = append(t.rollbacks, fn)
}

// rollback runs the registered compensations in reverse order. Failures are
// logged and do not stop the remaining compensations.
func (t *Tx) rollback(ctx context.Context) {
	for i := len(t.rollbacks) - 1; i >= 0; i-- {
		if err := t.rollbacks[i](ctx); err != nil {
			t.logger.Error("transaction rollback step failed", "step", i, "error", err)
		}
	}
	if len(t.rollbacks) > 0 {
		t.logger.Debug("transaction rolled back", "steps", len(t.rollbacks))
	}
}
