// Package env implements the simulation environment: a strict state machine
// that owns the simulation state and drives turns by composing the active
// rule's sub-policies.
//
// # State machine
//
// An environment moves through
//
//	initialized → processing → completed | error
//
// and never backwards. The turn counter increases by exactly one per
// completed step.
//
// # Step stages
//
// Step performs, in order: validate state, ask the order strategy for the
// next actors, refresh the visibility map when stale, render per-actor
// context descriptions, dispatch the selected turns concurrently under
// per-actor timeouts, pass the raw outcomes to the selector, commit accepted
// messages through the updater, then advance the turn counter and metrics.
//
// Per-actor failures are captured as tagged outcomes and never abort sibling
// turns. A failure in any stage sets the environment status to error and is
// returned as a *StepError carrying the turn and stage name; the environment
// itself never retries — that is the orchestrator's job.
package env
