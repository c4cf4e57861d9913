// Package ratelimit provides fixed-window request admission control backed by
// Redis.
//
// Requests are counted in discrete, non-overlapping time buckets of the
// configured window length. The increment, expiry, and limit comparison run
// in a single server-side script, so concurrent callers across processes
// never over-admit within a window. Counters self-expire one window after
// their bucket starts; no cleanup is needed.
//
// Window boundaries are not sliding: a burst straddling two adjacent windows
// can reach twice the per-window limit. This is an accepted tradeoff for O(1)
// state per key and must not be "fixed" to a sliding window without a
// requirements change.
//
// If Redis is unreachable the limiter fails open: every request is admitted
// and the error is logged. Admission control is a protective layer, not a
// correctness boundary.
package ratelimit
