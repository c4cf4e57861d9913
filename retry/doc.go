// Package retry provides a higher-order retry wrapper with capped exponential
// backoff.
//
// Do wraps any call site: it invokes the function up to MaxAttempts times,
// sleeping Base × 2^(attempt−1) between attempts, capped at Cap, and honoring
// context cancellation during the sleep. The last error is returned when the
// budget is exhausted. Wrap once, apply everywhere — call sites keep their
// own success/failure contract.
package retry
