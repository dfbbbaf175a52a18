package reducex

import "strings"

// Diff computes the delta to append when newChunk arrives against the
// stream's existing buffer. One rule uniformly handles upstreams that emit
// true deltas, upstreams that replay the full accumulated text on every
// frame, and retransmitted duplicates, without the caller knowing which
// behavior is in effect:
//
//  1. newChunk extends existing as an exact prefix: cumulative snapshot;
//     the suffix beyond the existing length is the delta.
//  2. newChunk equals existing, or existing already ends with newChunk:
//     duplicate or subsumed fragment; nothing to append.
//  3. otherwise it is a genuine incremental delta; append unchanged.
//
// A chunk that overlaps the buffer mid-way (neither prefix extension nor
// suffix match) falls into rule 3 and is appended verbatim, which can
// duplicate text. Known heuristic limitation, not a contract.
func Diff(newChunk, existing string) string {
	if newChunk == "" {
		return ""
	}

	if len(newChunk) > len(existing) && strings.HasPrefix(newChunk, existing) {
		return newChunk[len(existing):]
	}

	if newChunk == existing || strings.HasSuffix(existing, newChunk) {
		return ""
	}

	return newChunk
}
