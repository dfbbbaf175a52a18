package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/Abraxas-365/tidal/pkg/framex"
	"github.com/Abraxas-365/tidal/pkg/ptrx"
)

// mockTransport scripts a realistic run for local development: an echoed
// user turn, a tool-status phase, cumulative snapshot replays (to exercise
// the diff path), a duplicate frame, a generated file, and a lifecycle end.
type mockTransport struct {
	delay time.Duration
}

func newMockTransport() *mockTransport {
	return &mockTransport{delay: 40 * time.Millisecond}
}

func (t *mockTransport) Stream(ctx context.Context, req framex.Request) (framex.Stream, error) {
	run := req.RunID
	payload := func(text string) framex.RunPayload { return framex.RunPayload{Text: text} }

	answer := fmt.Sprintf("You asked: %q. Here is a scripted answer that arrives in pieces.", req.Prompt)
	half := answer[:len(answer)/2]

	frames := []framex.Frame{
		framex.RunEvent(run, framex.StreamUser, ptrx.Ptr(uint64(1)), payload(req.Prompt)),
		framex.RunEvent(run, framex.StreamTool, ptrx.Ptr(uint64(1)), framex.RunPayload{Tool: "web_search"}),
		// Cumulative snapshots: each frame replays everything so far.
		framex.RunEvent(run, framex.StreamAssistant, ptrx.Ptr(uint64(1)), payload(half)),
		framex.RunEvent(run, framex.StreamAssistant, ptrx.Ptr(uint64(2)), payload(answer)),
		// Duplicate sequence number, silently dropped downstream.
		framex.RunEvent(run, framex.StreamAssistant, ptrx.Ptr(uint64(2)), payload(answer)),
		framex.RunEvent(run, framex.StreamFile, ptrx.Ptr(uint64(1)), framex.RunPayload{
			File: &framex.FileDescriptor{
				ID:   "mock-report",
				Name: "report.txt",
				MIME: "text/plain",
				URL:  "http://localhost:8080/files/mock-report",
			},
		}),
		framex.RunEvent(run, framex.StreamLifecycle, ptrx.Ptr(uint64(2)), framex.RunPayload{Phase: framex.PhaseEnd}),
	}

	return &mockStream{ctx: ctx, frames: frames, delay: t.delay}, nil
}

type mockStream struct {
	ctx    context.Context
	frames []framex.Frame
	delay  time.Duration
	next   int
}

func (s *mockStream) Next() (framex.Frame, error) {
	if s.next >= len(s.frames) {
		return framex.Frame{}, io.EOF
	}

	select {
	case <-s.ctx.Done():
		return framex.Frame{}, s.ctx.Err()
	case <-time.After(s.delay):
	}

	f := s.frames[s.next]
	s.next++
	return f, nil
}

func (s *mockStream) Close() error {
	s.next = len(s.frames)
	return nil
}
