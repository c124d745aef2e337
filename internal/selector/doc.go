// Package selector filters and accepts actor outputs for a turn.
//
// The Basic selector runs every batch of turn outcomes through a fixed
// ordered pipeline of content filters, a strategy-specific acceptance
// step, deduplication, and a global selection cap. Failed outcomes are
// dropped before the pipeline runs. Each stage reports drop counts to
// Prometheus so filter behavior is observable in production.
package selector
