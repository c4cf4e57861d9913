// Package coordination provides Redis-backed concurrency and queueing
// primitives for services that need to cooperate across processes.
//
// The module is organized around a handful of focused packages:
//
//   - lock: distributed mutexes and counting semaphores
//   - ratelimit: fixed-window rate limiting
//   - txn: buffered transactions with rollback hooks
//   - queue: bounded FIFO queues with compression and backpressure
//   - saga: multi-step operations with compensating rollback
//   - retry: exponential backoff retry policies
//   - worker: queue consumers with retry and dead-letter escalation
//   - dlq: dead-letter sinks (Redis or file backed)
//
// Each primitive takes a shared store.Client, so a process opens one Redis
// connection pool and every lock, queue, and worker reuses it. The Core type
// in this package wires that up from a single configuration file.
//
// # Getting Started
//
//	import "github.com/finchat-ai/coordination"
//
//	cfg, err := config.LoadFromCurrentDir()
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	core, err := coordination.New(cfg)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer core.Close()
//
//	mu := core.Mutex("billing:invoice-42")
//	if mu.Acquire(ctx, true, 10*time.Second) {
//		defer mu.Release(ctx)
//		// critical section
//	}
//
// # Failure Semantics
//
// Every primitive degrades deliberately when Redis is unreachable. Locks and
// semaphores follow the store's configured fail mode (closed by default),
// rate limiters fail open, and queue operations report failure without
// raising. See the individual package documentation for details.
package coordination
