package ratelimit

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/finchat-ai/coordination/store"
)

// allowScript buckets the current time into a fixed window, increments the
// bucket counter, arms its expiry, and compares against the limit — one
// atomic round trip. Returns {allowed, remaining}.
var allowScript = redis.NewScript(`
local key = KEYS[1]
local window = tonumber(ARGV[1])
local max_requests = tonumber(ARGV[2])
local current_time = tonumber(ARGV[3])

local window_start = current_time - (current_time % window)
local window_key = key .. ":" .. window_start

local count = redis.call("INCR", window_key)
redis.call("EXPIRE", window_key, window)

if count <= max_requests then
    return {1, max_requests - count}
else
    return {0, 0}
end
`)

// Options configures a Limiter.
type Options struct {
	// Logger overrides the store client's logger.
	Logger *slog.Logger
}

// Limiter admits at most MaxRequests calls per Window for its key.
type Limiter struct {
	client      *store.Client
	key         string
	maxRequests int
	window      time.Duration
	logger      *slog.Logger

	// now is overridable for tests.
	now func() time.Time
}

// New creates a limiter for the given key. The key is namespaced under
// "ratelimit:" in Redis; each window gets its own counter suffixed with the
// window start time.
func New(client *store.Client, key string, maxRequests int, window time.Duration, opts Options) *Limiter {
	if opts.Logger == nil {
		opts.Logger = client.Logger()
	}

	return &Limiter{
		client:      client,
		key:         "ratelimit:" + key,
		maxRequests: maxRequests,
		window:      window,
		logger:      opts.Logger,
		now:         time.Now,
	}
}

// Allow reports whether the current request is admitted and how many requests
// remain in the window. When the store is unreachable the limiter fails open
// and remaining is -1 (unknown).
func (l *Limiter) Allow(ctx context.Context) (bool, int) {
	windowSecs := int64(l.window / time.Second)
	if windowSecs < 1 {
		windowSecs = 1
	}

	result, err := allowScript.Run(ctx, l.client.Redis(),
		[]string{l.key},
		windowSecs, l.maxRequests, l.now().Unix(),
	).Int64Slice()
	if err != nil {
		l.logger.Error("rate limit check failed, failing open", "key", l.key, "error", err)
		return true, -1
	}
	if len(result) < 2 {
		l.logger.Error("rate limit script returned malformed result, failing open", "key", l.key)
		return true, -1
	}

	return result[0] == 1, int(result[1])
}

// Check reports only whether the current request is admitted.
func (l *Limiter) Check(ctx context.Context) bool {
	allowed, _ := l.Allow(ctx)
	return allowed
}
