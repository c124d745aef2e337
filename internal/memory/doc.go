// Package memory provides the built-in Memory implementations.
//
// Two backends are available:
//
//   - Buffer: a bounded in-process ring of messages with substring search,
//     suitable for short simulations and tests.
//   - Vector: an embedded chromem-go vector store with similarity search,
//     suitable when actors need semantic recall over long histories.
//
// Both satisfy the actor.Memory interface consumed by the updater and the
// describers. Neither touches the network: the vector backend runs fully
// in-process with an injectable embedding function.
package memory
