package coordination

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"os"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/finchat-ai/coordination/config"
	"github.com/finchat-ai/coordination/dlq"
	"github.com/finchat-ai/coordination/lock"
	"github.com/finchat-ai/coordination/queue"
	"github.com/finchat-ai/coordination/ratelimit"
	"github.com/finchat-ai/coordination/saga"
	"github.com/finchat-ai/coordination/store"
	"github.com/finchat-ai/coordination/txn"
	"github.com/finchat-ai/coordination/worker"
)

// Core is the shared entry point to the coordination primitives. It owns the
// store connection and hands out locks, semaphores, limiters, queues, sagas,
// and workers that all share it.
//
// Example:
//
//	core, err := coordination.New(cfg,
//	    coordination.WithLogger(logger),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer core.Close()
//
//	mu := core.Mutex("billing:invoice-42")
type Core struct {
	cfg    *config.Config
	client *store.Client
	queue  *queue.Queue
	sink   dlq.Sink
	logger *slog.Logger
	meter  metric.Meter
}

// New creates a Core from the given configuration. A nil cfg uses defaults
// throughout (local Redis, fail-closed, Redis-backed dead lettering).
func New(cfg *config.Config, opts ...Option) (*Core, error) {
	if cfg == nil {
		cfg = &config.Config{}
	}

	settings := &coreConfig{}
	for _, opt := range opts {
		opt(settings)
	}

	if settings.logger == nil {
		settings.logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	}

	failMode := store.FailClosed
	if cfg.Store != nil && cfg.Store.FailMode != "" {
		parsed, err := store.ParseFailMode(cfg.Store.FailMode)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
		failMode = parsed
	}

	var tlsConfig *tls.Config
	if cfg.Store != nil && cfg.Store.TLS {
		tlsConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	client, err := store.New(store.Options{
		URL:            cfg.Store.GetURL(),
		TLS:            tlsConfig,
		ConnectTimeout: cfg.Store.GetConnectTimeout(),
		FailMode:       failMode,
		Logger:         settings.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	q, err := queue.New(client, queue.Options{
		MaxLength:            cfg.Queue.GetMaxLength(),
		EnableCompression:    cfg.Queue.GetEnableCompression(),
		CompressionThreshold: cfg.Queue.GetCompressionThreshold(),
		Logger:               settings.logger,
		Meter:                settings.meter,
	})
	if err != nil {
		_ = client.Close()
		return nil, err
	}

	kind, err := dlq.ParseKind(cfg.DLQ.GetKind())
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	sink, err := dlq.NewSink(kind, client, cfg.DLQ.GetDir())
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	return &Core{
		cfg:    cfg,
		client: client,
		queue:  q,
		sink:   sink,
		logger: settings.logger,
		meter:  settings.meter,
	}, nil
}

// Store returns the shared store client for callers that need direct access.
func (c *Core) Store() *store.Client {
	return c.client
}

// Mutex returns a distributed lock on key. Each call returns a fresh
// instance with its own owner token.
func (c *Core) Mutex(key string) *lock.Mutex {
	return lock.NewMutex(c.client, key, lock.MutexOptions{Logger: c.logger})
}

// Semaphore returns a counting semaphore on key admitting at most limit
// concurrent holders.
func (c *Core) Semaphore(key string, limit int) *lock.Semaphore {
	return lock.NewSemaphore(c.client, key, limit, lock.SemaphoreOptions{Logger: c.logger})
}

// Limiter returns a fixed-window rate limiter admitting maxRequests per
// window for key.
func (c *Core) Limiter(key string, maxRequests int, window time.Duration) *ratelimit.Limiter {
	return ratelimit.New(c.client, key, maxRequests, window, ratelimit.Options{Logger: c.logger})
}

// Queue returns the shared bounded queue.
func (c *Core) Queue() *queue.Queue {
	return c.queue
}

// DLQ returns the configured dead-letter sink.
func (c *Core) DLQ() dlq.Sink {
	return c.sink
}

// Saga returns an empty saga ready for steps.
func (c *Core) Saga() *saga.Saga {
	return saga.New(saga.Options{Logger: c.logger})
}

// Transaction runs fn inside a buffered Redis transaction with rollback
// support.
func (c *Core) Transaction(ctx context.Context, fn func(*txn.Tx) error) error {
	return txn.Run(ctx, c.client, fn)
}

// Worker creates a consumer for queueName, wired to the shared queue and
// dead-letter sink with the configured retry and batch settings.
func (c *Core) Worker(queueName string, handler worker.Handler) (*worker.Worker, error) {
	return worker.New(c.queue, c.sink, handler, worker.Options{
		Queue:                queueName,
		BatchSize:            c.cfg.Worker.GetBatchSize(),
		MaxRetries:           c.cfg.Worker.GetMaxRetries(),
		BackoffBase:          c.cfg.Worker.GetBackoffBase(),
		DequeueTimeout:       c.cfg.Worker.GetDequeueTimeout(),
		MaxConsecutiveErrors: c.cfg.Worker.GetMaxConsecutiveErrors(),
		Logger:               c.logger,
		Meter:                c.meter,
	})
}

// Ping verifies store connectivity.
func (c *Core) Ping(ctx context.Context) error {
	return c.client.Ping(ctx)
}

// Close releases the store connection. Workers should be stopped first.
func (c *Core) Close() error {
	return c.client.Close()
}
