// Package updater commits accepted messages to simulation history and
// to recipient memories.
//
// The Basic updater resolves broadcast and named receiver sets, routes
// tool-response payloads back to the originating actor's tool memory
// with bounded retries, and, when configured, commits a synthetic
// silence message on turns that produced no accepted output so every
// actor's memory stays turn-aligned.
package updater
