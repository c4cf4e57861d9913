package dlq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/finchat-ai/coordination/store"
)

// RedisSink stores dead-lettered entries in the list dlq:<queueName>.
type RedisSink struct {
	client *store.Client
}

// NewRedisSink creates a sink backed by the shared store client.
func NewRedisSink(client *store.Client) *RedisSink {
	return &RedisSink{client: client}
}

func dlqKey(queueName string) string {
	return "dlq:" + queueName
}

// Add appends the entry to the queue's dead-letter list. The list never
// expires; it is drained by an operator.
func (s *RedisSink) Add(ctx context.Context, queueName string, entry Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal dead-letter entry: %w", err)
	}

	if err := s.client.Redis().LPush(ctx, dlqKey(queueName), data).Err(); err != nil {
		return fmt.Errorf("failed to append dead-letter entry for %s: %w", queueName, err)
	}
	return nil
}

// Count returns the number of dead-lettered entries for queueName.
func (s *RedisSink) Count(ctx context.Context, queueName string) (int, error) {
	n, err := s.client.Redis().LLen(ctx, dlqKey(queueName)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count dead-letter entries for %s: %w", queueName, err)
	}
	return int(n), nil
}

// Drain removes and returns up to max entries, oldest first, for operator
// inspection.
func (s *RedisSink) Drain(ctx context.Context, queueName string, max int) ([]Entry, error) {
	var entries []Entry
	for i := 0; i < max; i++ {
		data, err := s.client.Redis().RPop(ctx, dlqKey(queueName)).Result()
		if errors.Is(err, redis.Nil) {
			break
		}
		if err != nil {
			return entries, fmt.Errorf("failed to drain dead-letter entry for %s: %w", queueName, err)
		}

		var entry Entry
		if err := json.Unmarshal([]byte(data), &entry); err != nil {
			return entries, fmt.Errorf("failed to parse dead-letter entry for %s: %w", queueName, err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
