// Package reducex is the stateful core of the reconciliation engine: it
// turns a noisy, possibly-duplicated, possibly-out-of-order sequence of
// frames into a clean, monotonically-growing, idempotent list of UI actions.
//
// Three upstream quirks are absorbed here: exact duplicate frames (network
// retry), "delta" frames that are actually cumulative snapshots, and frames
// for runs that are no longer active. The [Diff] function resolves the
// snapshot-vs-delta ambiguity; the sequence gate and run isolation handle
// the rest.
package reducex
