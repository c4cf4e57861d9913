// Package worker provides the consumer loop that drains a queue, retries
// failed items, and escalates permanent failures to a dead-letter sink.
//
// Each dequeued payload is handed to a caller-supplied Handler. A failing
// handler is retried up to the configured budget with capped exponential
// backoff; once the budget is exhausted the payload — annotated with the
// failure time and retry count — goes to the dead-letter sink and the loop
// moves on. Handler panics count as failures.
//
// The loop separately tracks consecutive unexpected errors (dead-letter sink
// failures, not per-item handler failures) and self-terminates past a
// threshold so a broken deployment cannot spin silently forever. This is a
// liveness safeguard, not a correctness one.
//
// Stop is cooperative: a flag checked at the top of each iteration. In-flight
// items always complete or exhaust their own retry budget before the loop
// observes the flag; nothing is interrupted mid-item.
package worker
