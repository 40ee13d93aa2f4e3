// Package admission provides the bounded, priority-ordered executor behind
// server-side request handling.
//
// The queue separates the two scheduling domains of a node: the I/O front
// end (one goroutine per inbound HTTP request, owned by net/http) and the
// bounded back end where handler bodies actually run. The two meet at
// Submit, which hands back a Future the front end waits on with its own
// deadline.
//
// Three rules shape its behavior:
//
//   - Backpressure is immediate. MaxConcurrent caps queued plus running
//     tasks; Submit past the ceiling fails with ErrOverloaded instead of
//     queuing unboundedly, so the caller can surface a retryable condition.
//
//   - Priority, then arrival. The ready heap serves higher priority first
//     and first-submitted first among equals, so no equal-priority task is
//     starved by later arrivals.
//
//   - Timeouts stop the waiting, not the running. A waiter that gives up
//     simply abandons the Future; the worker finishes the handler, stays
//     reusable and resolves into a buffered channel nobody reads. Handler
//     panics are contained the same way, as a *PanicError resolution.
package admission
