// Package lock provides Redis-backed mutual exclusion primitives that hold
// across process and machine boundaries.
//
// Two primitives are provided:
//
// Mutex: at most one holder per key at any instant. Acquisition is a single
// atomic SET NX EX storing a process-unique owner token; release is an atomic
// compare-and-delete that only succeeds for the current owner, so a process
// whose lock expired cannot release a lock someone else now holds. The TTL is
// a fail-safe against crashed holders.
//
// Semaphore: a bounded set of concurrent holders per key, backed by a sorted
// set keyed by owner token with the acquisition time as score. The acquire
// path checks the holder count and then inserts, which is a check-then-act
// sequence: under adversarial concurrent timing the limit is a soft cap with
// small bounded overshoot. Callers that need a hard bound should treat the
// limit accordingly. The holder set carries a hard expiry so crashed holders
// cannot leak permits forever.
//
// Both primitives honor the store client's FailMode when Redis is
// unreachable: FailClosed reports "not acquired", FailOpen reports "acquired"
// with a logged warning.
//
// # Usage
//
//	mu := lock.NewMutex(client, "embedding:doc-42", lock.MutexOptions{})
//	err := mu.WithLock(ctx, true, 5*time.Second, func(ctx context.Context) error {
//		// at most one process runs this at a time
//		return reindex(ctx)
//	})
package lock
