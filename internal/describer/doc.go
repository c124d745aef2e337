// Package describer renders per-actor context strings for a turn.
//
// A describer sees only what its actor sees: recent history is filtered
// through the visibility map before rendering, and the memory-augmented
// variant adds relevant recalled messages from the actor's own memory.
package describer
