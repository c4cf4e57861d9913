// Package queue provides a bounded, at-least-once FIFO message queue backed
// by Redis lists.
//
// Producers enqueue opaque JSON-serializable payloads; consumers drain them
// one at a time or in atomic batches. Delivery is at-least-once: idempotency
// is the caller's responsibility. Per-queue order is FIFO; no ordering is
// guaranteed between different queues.
//
// # Backpressure
//
// Every queue has a maximum length. Enqueue against a full queue returns
// false — the producer must retry later or drop; the queue never blocks and
// never silently discards. Batch enqueue truncates to the available capacity
// in arrival order and reports how many items were admitted.
//
// # Compression
//
// Payloads whose serialized form exceeds the configured threshold are
// gzip-compressed and base64-encoded with a distinguishing prefix, so the
// consumer detects and reverses the transform per message. Payloads below the
// threshold are stored verbatim. A message that fails to decompress is
// delivered raw rather than dropped.
//
// # Batch dequeue
//
// DequeueBatch measures, reads, and trims the queue in a single server-side
// script, so two concurrent consumers never receive overlapping messages and
// removal exactly matches what was returned. If the store rejects scripting,
// the call transparently falls back to repeated single dequeues.
//
// # Redis Key Schema
//
//   - queue:<name> - List holding the messages (LPUSH/BRPOP)
package queue
