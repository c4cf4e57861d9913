// Package txn provides a buffered, all-or-nothing write scope over the
// coordination store.
//
// Run opens a scope in which Set, SetWithTTL, Delete, and Increment accumulate
// into a command buffer. When the scope function returns nil, the buffer is
// flushed as a single atomic MULTI/EXEC round trip; when it returns an error,
// the buffer is discarded and nothing is applied. Get is special-cased: reads
// execute immediately against the store, since buffering a read inside a write
// pipeline has no meaningful result to return.
//
// Callers may also register compensating closures with OnRollback. They run
// in reverse registration order whenever the scope fails — either because the
// scope function returned an error or the flush itself failed — and are
// best-effort: a compensation's failure is logged and does not stop the rest.
//
// # Usage
//
//	err := txn.Run(ctx, client, func(tx *txn.Tx) error {
//		tx.SetWithTTL("doc:42:status", "indexed", time.Hour)
//		tx.Increment("stats:indexed")
//		tx.OnRollback(func(ctx context.Context) error {
//			return markDirty(ctx, "doc:42")
//		})
//		return validate()
//	})
package txn
