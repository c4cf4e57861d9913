package coordination

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finchat-ai/coordination/config"
	"github.com/finchat-ai/coordination/dlq"
	"github.com/finchat-ai/coordination/txn"
)

func setupTestCore(t *testing.T, cfg *config.Config) (*Core, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	if cfg == nil {
		cfg = &config.Config{}
	}
	if cfg.Store == nil {
		cfg.Store = &config.StoreConfig{}
	}
	cfg.Store.URL = fmt.Sprintf("redis://%s", mr.Addr())

	core, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = core.Close()
	})
	return core, mr
}

func TestNew(t *testing.T) {
	t.Run("connects and pings", func(t *testing.T) {
		core, _ := setupTestCore(t, nil)
		assert.NoError(t, core.Ping(context.Background()))
	})

	t.Run("unreachable store fails construction", func(t *testing.T) {
		_, err := New(&config.Config{
			Store: &config.StoreConfig{
				URL:            "redis://127.0.0.1:1/0",
				ConnectTimeout: "100ms",
			},
		})
		assert.ErrorIs(t, err, ErrStoreUnavailable)
	})

	t.Run("invalid fail mode is rejected", func(t *testing.T) {
		_, err := New(&config.Config{
			Store: &config.StoreConfig{FailMode: "maybe"},
		})
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("invalid dlq kind is rejected", func(t *testing.T) {
		mr := miniredis.RunT(t)
		_, err := New(&config.Config{
			Store: &config.StoreConfig{URL: fmt.Sprintf("redis://%s", mr.Addr())},
			DLQ:   &config.DLQConfig{Kind: "tape"},
		})
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})
}

func TestCorePrimitivesShareTheStore(t *testing.T) {
	core, _ := setupTestCore(t, nil)
	ctx := context.Background()

	t.Run("mutex round trip", func(t *testing.T) {
		mu := core.Mutex("invoice-42")
		require.True(t, mu.Acquire(ctx, false, 0))

		other := core.Mutex("invoice-42")
		assert.False(t, other.Acquire(ctx, false, 0))

		assert.True(t, mu.Release(ctx))
	})

	t.Run("semaphore respects its limit", func(t *testing.T) {
		first := core.Semaphore("gpu", 1)
		require.True(t, first.Acquire(ctx, 0))

		second := core.Semaphore("gpu", 1)
		assert.False(t, second.Acquire(ctx, 50*time.Millisecond))

		assert.True(t, first.Release(ctx))
	})

	t.Run("limiter admits up to the window budget", func(t *testing.T) {
		lim := core.Limiter("api", 2, time.Minute)

		allowed, _ := lim.Allow(ctx)
		assert.True(t, allowed)
		allowed, _ = lim.Allow(ctx)
		assert.True(t, allowed)
		allowed, remaining := lim.Allow(ctx)
		assert.False(t, allowed)
		assert.Equal(t, 0, remaining)
	})

	t.Run("queue and dlq are wired together", func(t *testing.T) {
		q := core.Queue()
		require.True(t, q.Enqueue(ctx, "chat:storage", map[string]any{"id": "m1"}))
		assert.Equal(t, 1, q.Length(ctx, "chat:storage"))

		n, err := core.DLQ().Count(ctx, "chat:storage")
		require.NoError(t, err)
		assert.Equal(t, 0, n)
	})
}

func TestCoreWorker(t *testing.T) {
	core, _ := setupTestCore(t, &config.Config{
		Worker: &config.WorkerConfig{
			MaxRetries:     2,
			BackoffBase:    "1ms",
			DequeueTimeout: "100ms",
		},
	})
	ctx := context.Background()

	require.True(t, core.Queue().Enqueue(ctx, "doomed", map[string]any{"id": "x"}))

	w, err := core.Worker("doomed", func(ctx context.Context, payload map[string]any) error {
		return fmt.Errorf("no handler for %v", payload["id"])
	})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool {
		n, err := core.DLQ().Count(ctx, "doomed")
		return err == nil && n == 1
	}, 5*time.Second, 20*time.Millisecond)

	w.Stop()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestCoreFileDLQ(t *testing.T) {
	mr := miniredis.RunT(t)
	dir := t.TempDir()

	core, err := New(&config.Config{
		Store: &config.StoreConfig{URL: fmt.Sprintf("redis://%s", mr.Addr())},
		DLQ:   &config.DLQConfig{Kind: "file", Dir: dir},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = core.Close() })

	_, ok := core.DLQ().(*dlq.FileSink)
	assert.True(t, ok)
}

func TestCoreTransaction(t *testing.T) {
	core, mr := setupTestCore(t, nil)
	ctx := context.Background()

	err := core.Transaction(ctx, func(tx *txn.Tx) error {
		tx.Set("balance", "100")
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "100", mustGet(t, mr, "balance"))
}

func mustGet(t *testing.T, mr *miniredis.Miniredis, key string) string {
	t.Helper()
	v, err := mr.Get(key)
	require.NoError(t, err)
	return v
}
