// Package resource provides the cross-cutting resource governance layer:
// token-bucket rate limiting, bounded quotas, retry with exponential backoff,
// and a consecutive-failure circuit breaker.
//
// TokenBucket and Quota are process-wide shared objects: every concurrently
// dispatched actor task may touch them. TokenBucket delegates the refill
// arithmetic to golang.org/x/time/rate and adds denial accounting on top.
package resource
