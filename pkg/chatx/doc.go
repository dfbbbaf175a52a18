// Package chatx composes the engine: one Session per conversation, owning a
// transport stream, a frame reducer, and a delivery throttle behind a single
// work loop. UI layers call Send/Cancel/Snapshot and watch Refresh; they
// never see frames.
package chatx
