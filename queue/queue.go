package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/metric"

	"github.com/finchat-ai/coordination/store"
)

// dequeueBatchScript measures the queue, reads up to batch_size of the oldest
// messages from the tail, and trims them off — all in one invocation, so
// concurrent consumers never receive overlapping messages and removal exactly
// matches what was returned.
var dequeueBatchScript = redis.NewScript(`
local queue_key = KEYS[1]
local batch_size = tonumber(ARGV[1])
local queue_len = redis.call('llen', queue_key)
local actual_size = math.min(batch_size, queue_len)
if actual_size == 0 then
    return {}
end
local messages = redis.call('lrange', queue_key, -actual_size, -1)
redis.call('ltrim', queue_key, 0, -(actual_size + 1))
return messages
`)

// Options configures a Queue.
type Options struct {
	// MaxLength is the backpressure ceiling per queue. Default: 1000.
	MaxLength int

	// EnableCompression turns on gzip compression of large payloads.
	EnableCompression bool

	// CompressionThreshold is the serialized size in bytes above which a
	// payload is compressed. Default: 1024.
	CompressionThreshold int

	// Logger overrides the store client's logger.
	Logger *slog.Logger

	// Meter enables OpenTelemetry metrics when set. Nil disables them.
	Meter metric.Meter
}

// Stats describes a queue's current occupancy for monitoring.
type Stats struct {
	// Length is the current number of queued messages.
	Length int `json:"length"`

	// MaxLength is the configured backpressure ceiling.
	MaxLength int `json:"max_length"`

	// UsagePercent is Length/MaxLength as a percentage.
	UsagePercent float64 `json:"usage_percent"`

	// Backpressure is true once usage reaches 90%.
	Backpressure bool `json:"backpressure"`
}

// Queue is a bounded FIFO message queue over Redis lists. It is safe for
// concurrent use by multiple goroutines and multiple processes.
type Queue struct {
	client               *store.Client
	maxLength            int
	enableCompression    bool
	compressionThreshold int
	logger               *slog.Logger
	metrics              *otelMetrics
}

// New creates a Queue with the given options.
func New(client *store.Client, opts Options) (*Queue, error) {
	if opts.MaxLength <= 0 {
		opts.MaxLength = 1000
	}
	if opts.CompressionThreshold <= 0 {
		opts.CompressionThreshold = 1024
	}
	if opts.Logger == nil {
		opts.Logger = client.Logger()
	}

	q := &Queue{
		client:               client,
		maxLength:            opts.MaxLength,
		enableCompression:    opts.EnableCompression,
		compressionThreshold: opts.CompressionThreshold,
		logger:               opts.Logger,
	}

	if opts.Meter != nil {
		metrics, err := initOTelMetrics(opts.Meter)
		if err != nil {
			return nil, fmt.Errorf("create queue metrics: %w", err)
		}
		q.metrics = metrics
	}

	return q, nil
}

func queueKey(name string) string {
	return "queue:" + name
}

// Enqueue appends a payload to the named queue. It returns false when the
// queue is at capacity (backpressure — the producer must retry later or
// drop), the payload cannot be serialized, or the store is unreachable.
func (q *Queue) Enqueue(ctx context.Context, name string, payload map[string]any) bool {
	key := queueKey(name)
	rdb := q.client.Redis()

	length, err := rdb.LLen(ctx, key).Result()
	if err != nil {
		q.logger.Warn("store unreachable, message not queued", "queue", name, "error", err)
		return false
	}
	if length >= int64(q.maxLength) {
		q.logger.Warn("queue full, message rejected",
			"queue", name, "length", length, "max_length", q.maxLength)
		q.metrics.recordRejected(ctx, name, 1)
		return false
	}

	msg, err := q.encode(payload)
	if err != nil {
		q.logger.Error("failed to encode message", "queue", name, "error", err)
		return false
	}

	if err := rdb.LPush(ctx, key, msg).Err(); err != nil {
		q.logger.Error("failed to enqueue message", "queue", name, "error", err)
		return false
	}

	q.metrics.recordEnqueued(ctx, name, 1)
	q.logger.Debug("message enqueued", "queue", name)
	return true
}

// EnqueueBatch appends up to len(payloads) messages, truncating the batch in
// arrival order to the queue's available capacity. The admitted subset is
// pushed as a single pipelined write. It returns the number of messages
// actually admitted.
func (q *Queue) EnqueueBatch(ctx context.Context, name string, payloads []map[string]any) int {
	if len(payloads) == 0 {
		return 0
	}

	key := queueKey(name)
	rdb := q.client.Redis()

	length, err := rdb.LLen(ctx, key).Result()
	if err != nil {
		q.logger.Warn("store unreachable, batch not queued", "queue", name, "error", err)
		return 0
	}

	available := q.maxLength - int(length)
	if available <= 0 {
		q.logger.Warn("queue full, batch rejected", "queue", name)
		q.metrics.recordRejected(ctx, name, int64(len(payloads)))
		return 0
	}

	admitted := min(len(payloads), available)
	pipe := rdb.Pipeline()
	for _, payload := range payloads[:admitted] {
		msg, err := q.encode(payload)
		if err != nil {
			q.logger.Error("failed to encode batch message", "queue", name, "error", err)
			return 0
		}
		pipe.LPush(ctx, key, msg)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		q.logger.Error("failed to enqueue batch", "queue", name, "error", err)
		return 0
	}

	if admitted < len(payloads) {
		q.metrics.recordRejected(ctx, name, int64(len(payloads)-admitted))
	}
	q.metrics.recordEnqueued(ctx, name, int64(admitted))
	q.logger.Debug("batch enqueued", "queue", name, "admitted", admitted, "offered", len(payloads))
	return admitted
}

// Dequeue removes and returns the oldest message, blocking up to timeout.
// It returns nil on timeout (an empty queue is not an error) or when the
// store is unreachable. A timeout <= 0 blocks until a message arrives or ctx
// is done.
func (q *Queue) Dequeue(ctx context.Context, name string, timeout time.Duration) map[string]any {
	if timeout < 0 {
		timeout = 0
	}

	result, err := q.client.Redis().BRPop(ctx, timeout, queueKey(name)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
			q.logger.Error("failed to dequeue message", "queue", name, "error", err)
		}
		return nil
	}
	if len(result) != 2 {
		q.logger.Error("unexpected BRPOP result", "queue", name, "len", len(result))
		return nil
	}

	q.metrics.recordDequeued(ctx, name, 1)
	return q.decode(name, result[1])
}

// DequeueBatch atomically removes and returns up to batchSize of the oldest
// messages, oldest first. It does not block: an empty queue yields an empty
// slice. If the store rejects the script, it falls back to repeated single
// dequeues bounded by timeout per message.
func (q *Queue) DequeueBatch(ctx context.Context, name string, batchSize int, timeout time.Duration) []map[string]any {
	if batchSize <= 0 {
		return nil
	}

	raw, err := dequeueBatchScript.Run(ctx, q.client.Redis(), []string{queueKey(name)}, batchSize).StringSlice()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		q.logger.Warn("batch dequeue script failed, using fallback", "queue", name, "error", err)
		return q.fallbackDequeueBatch(ctx, name, batchSize, timeout)
	}
	if len(raw) == 0 {
		return nil
	}

	messages := make([]map[string]any, 0, len(raw))
	for _, msg := range raw {
		messages = append(messages, q.decode(name, msg))
	}

	// The script reads from the tail, newest of the batch first. Reverse so
	// the caller sees the oldest message first.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	q.metrics.recordDequeued(ctx, name, int64(len(messages)))
	q.logger.Debug("batch dequeued", "queue", name, "count", len(messages))
	return messages
}

// fallbackDequeueBatch drains up to batchSize messages one at a time for
// stores with scripting disabled. FIFO order and exact removal still hold;
// only cross-consumer batch atomicity is lost.
func (q *Queue) fallbackDequeueBatch(ctx context.Context, name string, batchSize int, timeout time.Duration) []map[string]any {
	if timeout <= 0 {
		timeout = time.Second
	}

	var messages []map[string]any
	for i := 0; i < batchSize; i++ {
		msg := q.Dequeue(ctx, name, timeout)
		if msg == nil {
			break
		}
		messages = append(messages, msg)
	}
	return messages
}

// Length returns the current number of messages in the named queue, or 0 when
// the store is unreachable.
func (q *Queue) Length(ctx context.Context, name string) int {
	length, err := q.client.Redis().LLen(ctx, queueKey(name)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			q.logger.Error("failed to get queue length", "queue", name, "error", err)
		}
		return 0
	}
	return int(length)
}

// Clear removes the named queue and all of its messages.
func (q *Queue) Clear(ctx context.Context, name string) bool {
	if err := q.client.Redis().Del(ctx, queueKey(name)).Err(); err != nil {
		q.logger.Error("failed to clear queue", "queue", name, "error", err)
		return false
	}
	q.logger.Info("queue cleared", "queue", name)
	return true
}

// Stats reports the queue's occupancy for the monitoring surface.
func (q *Queue) Stats(ctx context.Context, name string) Stats {
	length := q.Length(ctx, name)
	usage := float64(length) / float64(q.maxLength) * 100

	return Stats{
		Length:       length,
		MaxLength:    q.maxLength,
		UsagePercent: usage,
		Backpressure: usage >= 90,
	}
}

// encode serializes a payload and compresses it when it crosses the
// threshold.
func (q *Queue) encode(payload map[string]any) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal payload: %w", err)
	}

	msg := string(data)
	if !q.enableCompression || len(data) < q.compressionThreshold {
		return msg, nil
	}

	compressed, err := compressMessage(msg)
	if err != nil {
		// Conservative: ship it uncompressed rather than lose it.
		q.logger.Warn("compression failed, using uncompressed", "error", err)
		return msg, nil
	}
	return compressed, nil
}

// decode reverses encode. A message that cannot be decompressed or parsed is
// delivered as {"raw": <message>} rather than dropped.
func (q *Queue) decode(name, msg string) map[string]any {
	decompressed, err := decompressMessage(msg)
	if err != nil {
		q.logger.Error("decompression failed, delivering raw message", "queue", name, "error", err)
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(decompressed), &payload); err != nil {
		q.logger.Error("failed to parse message, delivering raw", "queue", name, "error", err)
		return map[string]any{"raw": decompressed}
	}
	return payload
}
