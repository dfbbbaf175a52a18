package reducex_test

import (
	"testing"

	"github.com/Abraxas-365/tidal/pkg/reducex"
)

func TestDiff(t *testing.T) {
	cases := []struct {
		name     string
		newChunk string
		existing string
		want     string
	}{
		{"empty chunk", "", "Hello", ""},
		{"first chunk", "Hello", "", "Hello"},
		{"snapshot extends buffer", "Hello world", "Hello", " world"},
		{"exact duplicate", "Hello", "Hello", ""},
		{"suffix already applied", "world", "Hello world", ""},
		{"genuine delta", " there", "Hello", " there"},
		{"mid overlap appends verbatim", "lo world", "Hello", "lo world"},
		{"snapshot equal length not prefix", "Howdy", "Hello", "Howdy"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := reducex.Diff(tc.newChunk, tc.existing)
			if got != tc.want {
				t.Fatalf("Diff(%q, %q) = %q, want %q", tc.newChunk, tc.existing, got, tc.want)
			}
		})
	}
}

func TestDiff_SnapshotReplaySequence(t *testing.T) {
	// Upstream replays the full text on every frame; applying each diff
	// must rebuild the text exactly once.
	var buf string
	for _, snapshot := range []string{"H", "He", "Hel", "Hell", "Hello"} {
		buf += reducex.Diff(snapshot, buf)
	}
	if buf != "Hello" {
		t.Fatalf("expected %q, got %q", "Hello", buf)
	}
}

func TestDiff_Idempotent(t *testing.T) {
	buf := "Hello world"
	if d := reducex.Diff("Hello world", buf); d != "" {
		t.Fatalf("reapplying the full snapshot should be empty, got %q", d)
	}
	if d := reducex.Diff("world", buf); d != "" {
		t.Fatalf("reapplying the tail should be empty, got %q", d)
	}
}
