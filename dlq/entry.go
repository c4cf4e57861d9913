package dlq

import (
	"context"
	"fmt"
	"time"

	"github.com/finchat-ai/coordination/store"
)

// Entry is a dead-lettered work item awaiting operator inspection.
type Entry struct {
	// Payload is the original message payload, unmodified.
	Payload map[string]any `json:"payload"`

	// FailedAt is when the final retry was exhausted.
	FailedAt time.Time `json:"failed_at"`

	// RetryCount is the number of processing attempts made.
	RetryCount int `json:"retry_count"`
}

// Sink persists dead-lettered entries, keyed by originating queue name.
type Sink interface {
	// Add appends an entry to the dead-letter storage for queueName.
	Add(ctx context.Context, queueName string, entry Entry) error

	// Count returns the number of dead-lettered entries for queueName.
	Count(ctx context.Context, queueName string) (int, error)
}

// Kind selects the dead-letter backend. The set is closed: config maps onto
// exactly one of these.
type Kind int

const (
	// KindRedis appends entries to a Redis list next to the work queues.
	KindRedis Kind = iota

	// KindFile appends entries to durable files on local disk.
	KindFile
)

// String returns the configuration name of the kind.
func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	default:
		return "redis"
	}
}

// ParseKind maps a configuration string to a Kind. Empty defaults to
// KindRedis.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "", "redis":
		return KindRedis, nil
	case "file":
		return KindFile, nil
	default:
		return KindRedis, fmt.Errorf("unknown dead-letter kind %q", s)
	}
}

// NewSink constructs the sink for the given kind. client is required for
// KindRedis, dir for KindFile.
func NewSink(kind Kind, client *store.Client, dir string) (Sink, error) {
	switch kind {
	case KindRedis:
		if client == nil {
			return nil, fmt.Errorf("redis dead-letter sink requires a store client")
		}
		return NewRedisSink(client), nil
	case KindFile:
		if dir == "" {
			return nil, fmt.Errorf("file dead-letter sink requires a directory")
		}
		return NewFileSink(dir), nil
	default:
		return nil, fmt.Errorf("unknown dead-letter kind %d", kind)
	}
}
