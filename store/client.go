package store

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// FailMode selects how the lock and semaphore behave when Redis is
// unreachable.
type FailMode int

const (
	// FailClosed treats an unreachable store as "not acquired". This is the
	// default: correctness over availability.
	FailClosed FailMode = iota

	// FailOpen treats an unreachable store as "acquired" and logs a warning.
	// Callers trade mutual exclusion for availability.
	FailOpen
)

// String returns a human-readable name for the fail mode.
func (m FailMode) String() string {
	switch m {
	case FailOpen:
		return "fail-open"
	default:
		return "fail-closed"
	}
}

// ParseFailMode maps a configuration string to a FailMode.
// Accepts "fail-open"/"open" and "fail-closed"/"closed"; empty defaults to
// FailClosed.
func ParseFailMode(s string) (FailMode, error) {
	switch s {
	case "", "fail-closed", "closed":
		return FailClosed, nil
	case "fail-open", "open":
		return FailOpen, nil
	default:
		return FailClosed, fmt.Errorf("unknown fail mode %q", s)
	}
}

// Options configures the Redis connection.
type Options struct {
	// URL is the Redis connection string (e.g., "redis://localhost:6379")
	URL string

	// TLS configuration for secure connections
	TLS *tls.Config

	// ConnectTimeout is the maximum time to wait for connection establishment
	ConnectTimeout time.Duration

	// ReadTimeout is the maximum time to wait for read operations
	ReadTimeout time.Duration

	// WriteTimeout is the maximum time to wait for write operations
	WriteTimeout time.Duration

	// PoolSize is the maximum number of socket connections.
	// Zero keeps the go-redis default (10 per CPU).
	PoolSize int

	// FailMode selects the lock/semaphore behavior when the store is
	// unreachable. Defaults to FailClosed.
	FailMode FailMode

	// Logger is the structured logger for connection lifecycle events.
	// If nil, slog.Default() is used.
	Logger *slog.Logger
}

// Client is the shared handle to the coordination store. It is safe for
// concurrent use by multiple goroutines and is intended to be constructed once
// and injected into every primitive.
type Client struct {
	rdb      *redis.Client
	failMode FailMode
	logger   *slog.Logger
}

// New creates a Client and verifies connectivity with a ping.
func New(opts Options) (*Client, error) {
	if opts.URL == "" {
		opts.URL = "redis://localhost:6379"
	}
	if opts.ConnectTimeout == 0 {
		opts.ConnectTimeout = 5 * time.Second
	}
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = 30 * time.Second
	}
	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = 5 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	redisOpts, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	redisOpts.TLSConfig = opts.TLS
	redisOpts.DialTimeout = opts.ConnectTimeout
	redisOpts.ReadTimeout = opts.ReadTimeout
	redisOpts.WriteTimeout = opts.WriteTimeout
	if opts.PoolSize > 0 {
		redisOpts.PoolSize = opts.PoolSize
	}

	rdb := redis.NewClient(redisOpts)

	ctx, cancel := context.WithTimeout(context.Background(), opts.ConnectTimeout)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	opts.Logger.Debug("store connected", "url", opts.URL, "fail_mode", opts.FailMode.String())

	return &Client{
		rdb:      rdb,
		failMode: opts.FailMode,
		logger:   opts.Logger,
	}, nil
}

// Redis exposes the underlying go-redis client for the primitives in this
// module. Application code should use the primitive packages instead.
func (c *Client) Redis() *redis.Client {
	return c.rdb
}

// FailMode reports the configured behavior for lock/semaphore acquisition
// when the store is unreachable.
func (c *Client) FailMode() FailMode {
	return c.failMode
}

// Logger returns the logger the client was constructed with.
func (c *Client) Logger() *slog.Logger {
	return c.logger
}

// Ping probes the store and returns the round-trip error, if any.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("store ping failed: %w", err)
	}
	return nil
}

// Available reports whether the store currently answers a ping.
func (c *Client) Available(ctx context.Context) bool {
	return c.rdb.Ping(ctx).Err() == nil
}

// Close releases the underlying connection pool.
func (c *Client) Close() error {
	return c.rdb.Close()
}
