// Package framex is the transport adapter: it consumes a byte/line stream
// from the network, assembles structured frames, and locally detects turn
// boundaries inside a single model response.
//
// Frames are tagged variants validated once at this boundary, so the reducer
// only ever sees well-formed events. Two frame shapes exist: fine-grained
// run events (run id, stream name, optional sequence number, payload) and a
// coarse state fallback (final vs delta) for backends without run events.
//
// Backends that expose a raw model stream instead of the structured protocol
// are adapted by the providers subpackages, which feed SDK events through a
// [TurnScanner] so tool reasoning surfaces as transient status rather than
// content.
package framex
