package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/metric"

	"github.com/finchat-ai/coordination/dlq"
	"github.com/finchat-ai/coordination/queue"
	"github.com/finchat-ai/coordination/retry"
)

// ErrTooManyFailures is returned by Run when the consecutive unexpected
// error threshold is reached.
var ErrTooManyFailures = errors.New("worker: too many consecutive errors")

// Handler processes one dequeued payload. A nil return acknowledges the
// item; an error (or a panic) triggers the retry path.
type Handler func(ctx context.Context, payload map[string]any) error

// Options configures a Worker.
type Options struct {
	// Queue is the name of the queue to drain. Required.
	Queue string

	// BatchSize selects atomic batch dequeue when > 1. Default: 1.
	BatchSize int

	// MaxRetries is the number of processing attempts per item before it is
	// dead-lettered. Default: 3.
	MaxRetries int

	// BackoffBase is the delay after the first failed attempt; doubles per
	// attempt. Default: 1s.
	BackoffBase time.Duration

	// BackoffCap bounds any single backoff delay. Default: 30s.
	BackoffCap time.Duration

	// DequeueTimeout bounds each blocking dequeue, and paces the loop when
	// a batch dequeue finds the queue empty. Default: 5s.
	DequeueTimeout time.Duration

	// MaxConsecutiveErrors is the self-termination threshold for unexpected
	// errors (distinct from per-item retries). Default: 10.
	MaxConsecutiveErrors int

	// MaxIterations bounds the number of loop iterations; 0 means run until
	// stopped. Useful for bounded drains in tests and operations.
	MaxIterations int

	// Logger overrides the default logger.
	Logger *slog.Logger

	// Meter enables OpenTelemetry metrics when set. Nil disables them.
	Meter metric.Meter
}

// Worker drains one queue with retry and dead-letter escalation. Run multiple
// Workers (in one process or many) against the same queue for parallelism;
// batch dequeue atomicity guarantees they never receive overlapping items.
type Worker struct {
	queue   *queue.Queue
	sink    dlq.Sink
	handler Handler
	opts    Options
	id      string
	logger  *slog.Logger
	metrics *otelMetrics
	stopped atomic.Bool
}

// New creates a Worker. The queue, dead-letter sink, handler, and queue name
// are all required.
func New(q *queue.Queue, sink dlq.Sink, handler Handler, opts Options) (*Worker, error) {
	if q == nil {
		return nil, fmt.Errorf("worker requires a queue")
	}
	if sink == nil {
		return nil, fmt.Errorf("worker requires a dead-letter sink")
	}
	if handler == nil {
		return nil, fmt.Errorf("worker requires a handler")
	}
	if opts.Queue == "" {
		return nil, fmt.Errorf("worker requires a queue name")
	}

	if opts.BatchSize <= 0 {
		opts.BatchSize = 1
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}
	if opts.BackoffBase <= 0 {
		opts.BackoffBase = time.Second
	}
	if opts.BackoffCap <= 0 {
		opts.BackoffCap = 30 * time.Second
	}
	if opts.DequeueTimeout <= 0 {
		opts.DequeueTimeout = 5 * time.Second
	}
	if opts.MaxConsecutiveErrors <= 0 {
		opts.MaxConsecutiveErrors = 10
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	w := &Worker{
		queue:   q,
		sink:    sink,
		handler: handler,
		opts:    opts,
		id:      workerID(),
	}
	w.logger = opts.Logger.With("worker_id", w.id, "queue", opts.Queue)

	if opts.Meter != nil {
		metrics, err := initOTelMetrics(opts.Meter)
		if err != nil {
			return nil, fmt.Errorf("create worker metrics: %w", err)
		}
		w.metrics = metrics
	}

	return w, nil
}

// Run drains the queue until Stop is called, ctx ends, MaxIterations is
// reached, or the consecutive-error threshold trips (ErrTooManyFailures).
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("worker started", "batch_size", w.opts.BatchSize, "max_retries", w.opts.MaxRetries)

	iterations := 0
	consecutive := 0

	for {
		if w.stopped.Load() {
			w.logger.Info("worker stopped")
			return nil
		}
		if ctx.Err() != nil {
			w.logger.Info("worker context ended")
			return nil
		}

		if err := w.poll(ctx); err != nil {
			consecutive++
			w.logger.Error("worker iteration failed", "consecutive", consecutive, "error", err)

			if consecutive >= w.opts.MaxConsecutiveErrors {
				w.logger.Error("too many consecutive errors, stopping worker",
					"threshold", w.opts.MaxConsecutiveErrors)
				return ErrTooManyFailures
			}

			w.pause(ctx, time.Second)
		} else {
			consecutive = 0
		}

		iterations++
		if w.opts.MaxIterations > 0 && iterations >= w.opts.MaxIterations {
			w.logger.Info("worker reached max iterations", "iterations", iterations)
			return nil
		}
	}
}

// Stop requests a cooperative shutdown. The flag is observed at the top of
// the next iteration; in-flight processing is never interrupted.
func (w *Worker) Stop() {
	w.stopped.Store(true)
}

// poll performs one dequeue-and-process round. An empty queue is a normal
// outcome, not an error.
func (w *Worker) poll(ctx context.Context) error {
	if w.opts.BatchSize > 1 {
		payloads := w.queue.DequeueBatch(ctx, w.opts.Queue, w.opts.BatchSize, w.opts.DequeueTimeout)
		if len(payloads) == 0 {
			// The batch script does not block; pace the loop instead of
			// spinning on an empty queue.
			w.pause(ctx, w.opts.DequeueTimeout)
			return nil
		}

		var firstErr error
		for _, payload := range payloads {
			if err := w.process(ctx, payload); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		return firstErr
	}

	payload := w.queue.Dequeue(ctx, w.opts.Queue, w.opts.DequeueTimeout)
	if payload == nil {
		return nil
	}
	return w.process(ctx, payload)
}

// process runs the handler with the retry budget and escalates exhausted
// items to the dead-letter sink. It returns an error only for unexpected
// machinery failures (the sink rejecting the entry), which feed the
// consecutive-error counter.
func (w *Worker) process(ctx context.Context, payload map[string]any) error {
	attempts := 0
	err := retry.Do(ctx, retry.Policy{
		MaxAttempts: w.opts.MaxRetries,
		Base:        w.opts.BackoffBase,
		Cap:         w.opts.BackoffCap,
	}, func(ctx context.Context) error {
		attempts++
		return w.handle(ctx, payload)
	})

	if attempts > 1 {
		w.metrics.recordRetries(ctx, w.opts.Queue, int64(attempts-1))
	}

	if err == nil {
		w.metrics.recordProcessed(ctx, w.opts.Queue, 1)
		w.logger.Debug("item processed", "attempts", attempts)
		return nil
	}

	w.logger.Error("retries exhausted, dead-lettering item",
		"attempts", attempts, "error", err)

	entry := dlq.Entry{
		Payload:    payload,
		FailedAt:   time.Now().UTC(),
		RetryCount: w.opts.MaxRetries,
	}
	if sinkErr := w.sink.Add(ctx, w.opts.Queue, entry); sinkErr != nil {
		return fmt.Errorf("failed to dead-letter item: %w", sinkErr)
	}

	w.metrics.recordDeadLettered(ctx, w.opts.Queue, 1)
	return nil
}

// handle invokes the handler, converting a panic into an error so a
// misbehaving handler burns its retry budget instead of killing the loop.
func (w *Worker) handle(ctx context.Context, payload map[string]any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()
	return w.handler(ctx, payload)
}

// pause sleeps for d or until ctx ends, whichever comes first.
func (w *Worker) pause(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

// workerID builds a unique identity for logs: hostname + PID + short UUID.
func workerID() string {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	return fmt.Sprintf("%s-%d-%s", hostname, os.Getpid(), uuid.NewString()[:8])
}
