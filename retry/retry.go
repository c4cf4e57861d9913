package retry

import (
	"context"
	"time"
)

// Policy bounds the retry budget and shapes the backoff curve.
type Policy struct {
	// MaxAttempts is the total number of invocations, including the first.
	// Default: 3.
	MaxAttempts int

	// Base is the delay after the first failed attempt; each subsequent
	// delay doubles. Default: 1s.
	Base time.Duration

	// Cap is the upper bound on any single delay. Default: 30s.
	Cap time.Duration
}

func (p Policy) withDefaults() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 3
	}
	if p.Base <= 0 {
		p.Base = time.Second
	}
	if p.Cap <= 0 {
		p.Cap = 30 * time.Second
	}
	return p
}

// Delay returns the backoff before attempt+1, i.e. after the given 1-based
// attempt failed: Base × 2^(attempt−1), capped.
func (p Policy) Delay(attempt int) time.Duration {
	p = p.withDefaults()
	if attempt < 1 {
		attempt = 1
	}

	delay := p.Base
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= p.Cap {
			return p.Cap
		}
	}
	if delay > p.Cap {
		return p.Cap
	}
	return delay
}

// Do invokes fn up to p.MaxAttempts times, backing off between attempts.
// It returns nil on the first success, the last error once the budget is
// exhausted, or ctx.Err() if the context ends during a backoff sleep.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context) error) error {
	p = p.withDefaults()

	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err := fn(ctx); err == nil {
			return nil
		} else {
			lastErr = err
		}

		if attempt == p.MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.Delay(attempt)):
		}
	}
	return lastErr
}
