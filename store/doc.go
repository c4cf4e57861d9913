// Package store provides the shared Redis client handle used by every
// coordination primitive in this module.
//
// The client is an explicitly constructed, injectable resource: it is created
// once at process startup, passed to each primitive's constructor, and closed
// at shutdown. There is no package-level singleton.
//
// # Failure Policy
//
// When Redis is unreachable, each primitive degrades rather than crashing the
// caller. For the lock and semaphore this is a genuine correctness-vs-availability
// tradeoff, so the policy is an explicit configuration choice:
//
//   - FailClosed (default): acquisition reports failure; guarded sections do
//     not run unprotected.
//   - FailOpen: acquisition reports success with a logged warning; work
//     proceeds without mutual exclusion.
//
// The rate limiter always fails open and the queue returns false/nil/empty,
// independent of this setting.
//
// # Usage
//
//	client, err := store.New(store.Options{URL: "redis://localhost:6379"})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close()
package store
