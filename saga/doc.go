// Package saga provides a compensating-transaction coordinator for multi-step
// operations that must all succeed or all be undone.
//
// A saga is an ordered list of steps, each pairing an operation with an
// optional compensation. Execute runs the operations in the order the steps
// were added. On the first failure no further steps run; the compensations of
// all previously succeeded steps run in strict reverse order, each
// independently guarded so one compensation's failure never prevents the rest
// from attempting. The failing step's own compensation is never invoked —
// only completed steps are rolled back. The caller receives the failing
// step's original error.
//
// This approximates atomicity across systems that cannot share a single
// transaction, e.g. keeping the coordination store consistent with a vector
// store when an N-record upsert partially succeeds.
//
// # Usage
//
//	s := saga.New(saga.Options{})
//	s.AddStep(
//		func(ctx context.Context) (any, error) { return writeEmbeddings(ctx) },
//		func(ctx context.Context) error { return deleteEmbeddings(ctx) },
//		"write-embeddings",
//	)
//	s.AddStep(
//		func(ctx context.Context) (any, error) { return nil, confirm(ctx) },
//		nil, // non-reversible, skipped during rollback
//		"confirm",
//	)
//	results, err := s.Execute(ctx)
package saga
