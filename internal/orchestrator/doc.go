// Package orchestrator drives a simulation to completion.
//
// The run loop wraps every Environment step with the resource
// governance layer: token-bucket rate limiting, a step quota, bounded
// retries for transient failures, and a circuit breaker over
// consecutive step failures. Cancellation stops the loop between steps;
// an in-flight step always finishes, so committed history is preserved.
package orchestrator
