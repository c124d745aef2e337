// Package order implements the turn-order strategies: sequential,
// priority-sequential with aging, concurrent/batched with adaptive sizing,
// seeded weighted random, and conditional routing between two strategies.
//
// Strategies own their cursor state exclusively; the environment only calls
// Next during the order stage of a step, never concurrently. "No candidates
// this turn" is signaled with an empty result, not an error.
package order
