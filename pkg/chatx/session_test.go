package chatx_test

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/Abraxas-365/tidal/pkg/chatx"
	"github.com/Abraxas-365/tidal/pkg/framex"
	"github.com/Abraxas-365/tidal/pkg/historyx/historymem"
	"github.com/Abraxas-365/tidal/pkg/kernel"
	"github.com/Abraxas-365/tidal/pkg/ptrx"
)

// scriptedTransport builds a frame script per request so tests control
// exactly what the "backend" emits.
type scriptedTransport struct {
	script   func(req framex.Request) []framex.Frame
	finalErr error // returned instead of io.EOF when set
	hang     bool  // block after the script until the context dies
}

func (t *scriptedTransport) Stream(ctx context.Context, req framex.Request) (framex.Stream, error) {
	return &scriptedStream{
		ctx:      ctx,
		frames:   t.script(req),
		finalErr: t.finalErr,
		hang:     t.hang,
	}, nil
}

type scriptedStream struct {
	ctx      context.Context
	frames   []framex.Frame
	finalErr error
	hang     bool
	next     int
}

func (s *scriptedStream) Next() (framex.Frame, error) {
	if s.next < len(s.frames) {
		f := s.frames[s.next]
		s.next++
		return f, nil
	}
	if s.hang {
		<-s.ctx.Done()
		return framex.Frame{}, s.ctx.Err()
	}
	if s.finalErr != nil {
		return framex.Frame{}, s.finalErr
	}
	return framex.Frame{}, io.EOF
}

func (s *scriptedStream) Close() error { return nil }

func newSession(t *testing.T, transport chatx.Transport, opts ...chatx.Option) *chatx.Session {
	t.Helper()
	opts = append([]chatx.Option{chatx.WithThrottleInterval(5 * time.Millisecond)}, opts...)
	s := chatx.New(kernel.NewSessionID("test-session"), transport, opts...)
	t.Cleanup(s.Close)
	return s
}

// waitFor polls the snapshot until cond is satisfied.
func waitFor(t *testing.T, s *chatx.Session, cond func([]chatx.Message) bool) []chatx.Message {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		msgs := s.Snapshot()
		if cond(msgs) {
			return msgs
		}
		select {
		case <-s.Refresh():
		case <-time.After(10 * time.Millisecond):
		case <-deadline:
			t.Fatalf("condition never met; snapshot: %+v", msgs)
		}
	}
}

func assistantDone(msgs []chatx.Message) bool {
	for _, m := range msgs {
		if m.Role == chatx.RoleAssistant && m.Done {
			return true
		}
	}
	return false
}

func lastAssistant(t *testing.T, msgs []chatx.Message) chatx.Message {
	t.Helper()
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == chatx.RoleAssistant {
			return msgs[i]
		}
	}
	t.Fatal("no assistant message in snapshot")
	return chatx.Message{}
}

func TestSession_HappyPath(t *testing.T) {
	transport := &scriptedTransport{script: func(req framex.Request) []framex.Frame {
		run := req.RunID
		return []framex.Frame{
			framex.RunEvent(run, framex.StreamUser, ptrx.Ptr(uint64(1)), framex.RunPayload{Text: req.Prompt}),
			framex.RunEvent(run, framex.StreamTool, ptrx.Ptr(uint64(1)), framex.RunPayload{Tool: "web_search"}),
			// Cumulative snapshots.
			framex.RunEvent(run, framex.StreamAssistant, ptrx.Ptr(uint64(1)), framex.RunPayload{Text: "The answer"}),
			framex.RunEvent(run, framex.StreamAssistant, ptrx.Ptr(uint64(2)), framex.RunPayload{Text: "The answer is 42."}),
			// Retransmitted duplicate.
			framex.RunEvent(run, framex.StreamAssistant, ptrx.Ptr(uint64(2)), framex.RunPayload{Text: "The answer is 42."}),
			framex.RunEvent(run, framex.StreamFile, ptrx.Ptr(uint64(1)), framex.RunPayload{
				File: &framex.FileDescriptor{ID: "f1", Name: "report.txt"},
			}),
			framex.RunEvent(run, framex.StreamLifecycle, ptrx.Ptr(uint64(2)), framex.RunPayload{Phase: framex.PhaseEnd}),
		}
	}}

	s := newSession(t, transport)

	runID, err := s.Send(context.Background(), "what is the answer?")
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if runID.IsEmpty() {
		t.Fatal("expected a run id")
	}

	msgs := waitFor(t, s, assistantDone)

	if len(msgs) != 2 {
		t.Fatalf("expected user+assistant, got %d messages", len(msgs))
	}
	if msgs[0].Role != chatx.RoleUser || msgs[0].Content != "what is the answer?" {
		t.Fatalf("unexpected user message: %+v", msgs[0])
	}
	if msgs[0].Pending {
		t.Fatal("user message should be confirmed")
	}

	asst := lastAssistant(t, msgs)
	if asst.Content != "The answer is 42." {
		t.Fatalf("expected reconciled content, got %q", asst.Content)
	}
	if asst.Status != "" {
		t.Fatalf("status must clear on finish, got %q", asst.Status)
	}
	if asst.Interrupted || asst.Errored {
		t.Fatalf("expected a clean finish, got %+v", asst)
	}
	if len(asst.Files) != 1 || asst.Files[0].ID != "f1" {
		t.Fatalf("expected the generated file, got %+v", asst.Files)
	}
}

func TestSession_CleanEOFWithoutLifecycleEnd(t *testing.T) {
	transport := &scriptedTransport{script: func(req framex.Request) []framex.Frame {
		return []framex.Frame{
			framex.RunEvent(req.RunID, framex.StreamAssistant, ptrx.Ptr(uint64(1)), framex.RunPayload{Text: "done"}),
		}
	}}

	s := newSession(t, transport)
	if _, err := s.Send(context.Background(), "hi"); err != nil {
		t.Fatalf("send failed: %v", err)
	}

	msgs := waitFor(t, s, assistantDone)
	asst := lastAssistant(t, msgs)
	if asst.Errored || asst.Interrupted {
		t.Fatalf("clean EOF must finish cleanly, got %+v", asst)
	}
	if asst.Content != "done" {
		t.Fatalf("expected content, got %q", asst.Content)
	}
}

func TestSession_TransportFailureMidRun(t *testing.T) {
	transport := &scriptedTransport{
		script: func(req framex.Request) []framex.Frame {
			return []framex.Frame{
				framex.RunEvent(req.RunID, framex.StreamAssistant, ptrx.Ptr(uint64(1)), framex.RunPayload{Text: "partial ans"}),
			}
		},
		finalErr: errors.New("connection reset"),
	}

	s := newSession(t, transport)
	if _, err := s.Send(context.Background(), "hi"); err != nil {
		t.Fatalf("send failed: %v", err)
	}

	msgs := waitFor(t, s, assistantDone)
	asst := lastAssistant(t, msgs)
	if !asst.Errored {
		t.Fatalf("expected errored assistant turn, got %+v", asst)
	}
	if !asst.Partial {
		t.Fatal("expected partial: content had landed before the failure")
	}
	if asst.Content != "partial ans" {
		t.Fatalf("partial content must be kept, got %q", asst.Content)
	}
}

func TestSession_Cancel(t *testing.T) {
	transport := &scriptedTransport{
		script: func(req framex.Request) []framex.Frame {
			return []framex.Frame{
				framex.RunEvent(req.RunID, framex.StreamAssistant, ptrx.Ptr(uint64(1)), framex.RunPayload{Text: "so far"}),
			}
		},
		hang: true,
	}

	s := newSession(t, transport)
	if _, err := s.Send(context.Background(), "hi"); err != nil {
		t.Fatalf("send failed: %v", err)
	}

	// Let the content land first.
	waitFor(t, s, func(msgs []chatx.Message) bool {
		for _, m := range msgs {
			if m.Role == chatx.RoleAssistant && m.Content != "" {
				return true
			}
		}
		return false
	})

	s.Cancel()

	msgs := waitFor(t, s, assistantDone)
	asst := lastAssistant(t, msgs)
	if !asst.Interrupted {
		t.Fatalf("expected interrupted turn, got %+v", asst)
	}
	if asst.Errored {
		t.Fatal("cancel is not an error")
	}
	if asst.Content != "so far\n\n[interrupted]" {
		t.Fatalf("content must survive the cancel with the marker appended, got %q", asst.Content)
	}
}

func TestSession_SnapshotDuringClose(t *testing.T) {
	transport := &scriptedTransport{script: func(req framex.Request) []framex.Frame { return nil }}

	// Snapshot must never block forever when Close races its enqueue.
	for range 500 {
		s := chatx.New(kernel.NewSessionID("race"), transport)

		done := make(chan struct{})
		go func() {
			for range 4 {
				s.Snapshot()
			}
			close(done)
		}()

		s.Close()

		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("snapshot hung across close")
		}
	}
}

func TestSession_SendAfterClose(t *testing.T) {
	transport := &scriptedTransport{script: func(req framex.Request) []framex.Frame { return nil }}
	s := chatx.New(kernel.NewSessionID("closed"), transport)
	s.Close()

	if _, err := s.Send(context.Background(), "hi"); err == nil {
		t.Fatal("expected an error sending after close")
	}
	if s.Snapshot() != nil {
		t.Fatal("expected a nil snapshot after close")
	}
}

func TestSession_RejectsConcurrentRuns(t *testing.T) {
	transport := &scriptedTransport{
		script: func(req framex.Request) []framex.Frame { return nil },
		hang:   true,
	}

	s := newSession(t, transport)
	if _, err := s.Send(context.Background(), "first"); err != nil {
		t.Fatalf("send failed: %v", err)
	}

	if _, err := s.Send(context.Background(), "second"); err == nil {
		t.Fatal("expected the second send to fail while a run is active")
	}

	s.Cancel()
	waitFor(t, s, assistantDone)

	// After the run finished a new send is accepted.
	if _, err := s.Send(context.Background(), "third"); err != nil {
		t.Fatalf("send after finish failed: %v", err)
	}
}

func TestSession_EmptyPromptRejected(t *testing.T) {
	transport := &scriptedTransport{script: func(req framex.Request) []framex.Frame { return nil }}
	s := newSession(t, transport)

	if _, err := s.Send(context.Background(), ""); err == nil {
		t.Fatal("expected an error for an empty prompt")
	}
}

func TestSession_IdleTimeoutDisconnects(t *testing.T) {
	transport := &scriptedTransport{
		script: func(req framex.Request) []framex.Frame {
			return []framex.Frame{
				framex.RunEvent(req.RunID, framex.StreamAssistant, ptrx.Ptr(uint64(1)), framex.RunPayload{Text: "stalled"}),
			}
		},
		hang: true,
	}

	s := newSession(t, transport, chatx.WithIdleTimeout(50*time.Millisecond))
	if _, err := s.Send(context.Background(), "hi"); err != nil {
		t.Fatalf("send failed: %v", err)
	}

	msgs := waitFor(t, s, assistantDone)
	asst := lastAssistant(t, msgs)
	if !asst.Errored || !asst.Partial {
		t.Fatalf("expected partial error finish after idle timeout, got %+v", asst)
	}
}

func TestSession_ArchivesHistory(t *testing.T) {
	transport := &scriptedTransport{script: func(req framex.Request) []framex.Frame {
		return []framex.Frame{
			framex.RunEvent(req.RunID, framex.StreamAssistant, ptrx.Ptr(uint64(1)), framex.RunPayload{Text: "archived answer"}),
			framex.RunEvent(req.RunID, framex.StreamLifecycle, ptrx.Ptr(uint64(2)), framex.RunPayload{Phase: framex.PhaseEnd}),
		}
	}}

	store := historymem.NewMemoryStore()
	s := newSession(t, transport, chatx.WithHistory(store))

	if _, err := s.Send(context.Background(), "archive me"); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	waitFor(t, s, assistantDone)

	// Archiving is fire-and-forget; poll briefly.
	deadline := time.After(5 * time.Second)
	for {
		conv, err := store.GetBySession(context.Background(), kernel.NewSessionID("test-session"))
		if err == nil {
			if len(conv.Entries) != 2 {
				t.Fatalf("expected 2 entries, got %d", len(conv.Entries))
			}
			if conv.Entries[0].Role != "user" || conv.Entries[1].Content != "archived answer" {
				t.Fatalf("unexpected transcript: %+v", conv.Entries)
			}
			return
		}
		select {
		case <-deadline:
			t.Fatal("conversation was never archived")
		case <-time.After(10 * time.Millisecond):
		}
	}
}
