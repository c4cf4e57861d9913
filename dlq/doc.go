// Package dlq provides dead-letter sinks for work items that permanently
// failed processing after exhausting their retry budget.
//
// Entries carry the original payload, the failure time, and the retry count.
// They are never auto-deleted: an operator drains or inspects them. Exactly
// one sink is configured per worker — either a Redis list alongside the work
// queues or durable append-only files — selected by Kind, never both.
//
// # Storage layout
//
// RedisSink appends JSON entries to the list dlq:<queueName>.
//
// FileSink appends one JSON record per line to <dir>/<queueName>.jsonl. The
// record format is an internal contract with the monitoring/ops tooling, not
// a public wire protocol.
package dlq
