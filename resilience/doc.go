// Package resilience holds the fault-tolerance primitives used by backend
// clients and the orchestrator: exponential backoff, retry, deadline-bounded
// polling, a circuit breaker and a bulkhead for bounding concurrent work.
package resilience
