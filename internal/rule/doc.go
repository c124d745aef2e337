// Package rule builds policy bundles from declarative specifications.
//
// A Spec names one implementation kind per policy slot plus free-form
// parameters. Kinds resolve through an explicit Registry of factory
// functions; the registry has no package-level mutable state, so tests
// and embedders compose their own registries without global ordering
// concerns. Default returns a registry preloaded with the built-in
// policies.
package rule
