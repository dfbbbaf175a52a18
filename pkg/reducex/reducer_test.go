package reducex_test

import (
	"testing"

	"github.com/Abraxas-365/tidal/pkg/framex"
	"github.com/Abraxas-365/tidal/pkg/kernel"
	"github.com/Abraxas-365/tidal/pkg/ptrx"
	"github.com/Abraxas-365/tidal/pkg/reducex"
)

func assistantFrame(run kernel.RunID, seq uint64, text string) framex.Frame {
	return framex.RunEvent(run, framex.StreamAssistant, ptrx.Ptr(seq), framex.RunPayload{Text: text})
}

func TestReducer_ContentDeltas(t *testing.T) {
	r := reducex.New()
	run := kernel.NewRunID("run-1")

	actions := r.Reduce(assistantFrame(run, 1, "Hello"))
	if len(actions) != 1 || actions[0].Type != reducex.ActionUpdateContent {
		t.Fatalf("expected one content action, got %+v", actions)
	}
	if actions[0].Delta != "Hello" {
		t.Fatalf("expected delta %q, got %q", "Hello", actions[0].Delta)
	}

	// Cumulative snapshot: only the new tail comes out.
	actions = r.Reduce(assistantFrame(run, 2, "Hello world"))
	if len(actions) != 1 || actions[0].Delta != " world" {
		t.Fatalf("expected delta %q, got %+v", " world", actions)
	}

	if r.Content() != "Hello world" {
		t.Fatalf("expected buffer %q, got %q", "Hello world", r.Content())
	}
}

func TestReducer_SequenceGate(t *testing.T) {
	r := reducex.New()
	run := kernel.NewRunID("run-1")

	seqs := []uint64{1, 2, 2, 3}
	texts := []string{"a", "ab", "ab", "abc"}
	var applied int
	for i := range seqs {
		if actions := r.Reduce(assistantFrame(run, seqs[i], texts[i])); len(actions) > 0 {
			applied++
		}
	}

	if applied != 3 {
		t.Fatalf("expected 3 applied frames, got %d", applied)
	}
	if r.Content() != "abc" {
		t.Fatalf("expected %q, got %q", "abc", r.Content())
	}
}

func TestReducer_SequenceGatePerStream(t *testing.T) {
	r := reducex.New()
	run := kernel.NewRunID("run-1")

	r.Reduce(assistantFrame(run, 3, "text"))

	// The tool stream has its own counter; seq 1 is not stale there.
	actions := r.Reduce(framex.RunEvent(run, framex.StreamTool, ptrx.Ptr(uint64(1)),
		framex.RunPayload{Tool: "web_search"}))
	if len(actions) != 1 || actions[0].Type != reducex.ActionUpdateStatus {
		t.Fatalf("expected status action, got %+v", actions)
	}
}

func TestReducer_RunIsolation(t *testing.T) {
	r := reducex.New()

	// First run id seen is adopted.
	r.Reduce(assistantFrame(kernel.NewRunID("current"), 1, "keep"))
	if r.ActiveRun() != "current" {
		t.Fatalf("expected adopted run id, got %q", r.ActiveRun())
	}

	actions := r.Reduce(assistantFrame(kernel.NewRunID("stale"), 9, "drop"))
	if len(actions) != 0 {
		t.Fatalf("foreign-run frame must be dropped, got %+v", actions)
	}
	if r.Content() != "keep" {
		t.Fatalf("expected %q, got %q", "keep", r.Content())
	}
}

func TestReducer_ClientAssignedRun(t *testing.T) {
	r := reducex.New()
	r.SetActiveRun(kernel.NewRunID("assigned"))

	if actions := r.Reduce(assistantFrame(kernel.NewRunID("other"), 1, "x")); len(actions) != 0 {
		t.Fatalf("frame for a different run must be dropped before adoption, got %+v", actions)
	}
	if actions := r.Reduce(assistantFrame(kernel.NewRunID("assigned"), 1, "x")); len(actions) != 1 {
		t.Fatalf("frame for the assigned run must apply, got %+v", actions)
	}
}

func TestReducer_ToolStatus(t *testing.T) {
	r := reducex.New()
	run := kernel.NewRunID("run-1")

	actions := r.Reduce(framex.RunEvent(run, framex.StreamTool, nil,
		framex.RunPayload{Tool: "web_search"}))
	if len(actions) != 1 || actions[0].Status != "Searching the web..." {
		t.Fatalf("expected web search status, got %+v", actions)
	}

	actions = r.Reduce(framex.RunEvent(run, framex.StreamTool, nil,
		framex.RunPayload{Tool: "some_custom_tool"}))
	if len(actions) != 1 || actions[0].Status != "Working..." {
		t.Fatalf("expected generic status, got %+v", actions)
	}
}

func TestReducer_LifecycleEndFinishes(t *testing.T) {
	r := reducex.New()
	run := kernel.NewRunID("run-1")

	r.Reduce(assistantFrame(run, 1, "answer"))
	actions := r.Reduce(framex.RunEvent(run, framex.StreamLifecycle, nil,
		framex.RunPayload{Phase: framex.PhaseEnd}))
	if len(actions) != 1 || actions[0].Type != reducex.ActionFinish || actions[0].Interrupted {
		t.Fatalf("expected clean finish, got %+v", actions)
	}

	// Everything after a terminal event is inert.
	if actions := r.Reduce(assistantFrame(run, 2, "answer more")); len(actions) != 0 {
		t.Fatalf("post-finish frame must be inert, got %+v", actions)
	}
	if actions := r.Disconnect(); len(actions) != 0 {
		t.Fatalf("disconnect after finish must be a no-op, got %+v", actions)
	}
}

func TestReducer_UserAndFileFrames(t *testing.T) {
	r := reducex.New()
	run := kernel.NewRunID("run-1")

	actions := r.Reduce(framex.RunEvent(run, framex.StreamUser, nil,
		framex.RunPayload{Text: "question"}))
	if len(actions) != 1 || actions[0].Type != reducex.ActionAppendUserTurn || actions[0].Text != "question" {
		t.Fatalf("expected user-turn action, got %+v", actions)
	}

	fd := &framex.FileDescriptor{ID: "f1", Name: "report.txt"}
	actions = r.Reduce(framex.RunEvent(run, framex.StreamFile, nil, framex.RunPayload{File: fd}))
	if len(actions) != 1 || actions[0].Type != reducex.ActionAppendFile || actions[0].File.ID != "f1" {
		t.Fatalf("expected file action, got %+v", actions)
	}
}

func TestReducer_UnknownStreamDropped(t *testing.T) {
	r := reducex.New()
	actions := r.Reduce(framex.RunEvent("run-1", framex.StreamName("telemetry"), nil,
		framex.RunPayload{Text: "ignored"}))
	if len(actions) != 0 {
		t.Fatalf("unknown stream must produce no actions, got %+v", actions)
	}
}

func TestReducer_DisconnectPartial(t *testing.T) {
	r := reducex.New()
	run := kernel.NewRunID("run-1")

	r.Reduce(assistantFrame(run, 1, "half an ans"))
	actions := r.Disconnect()
	if len(actions) != 1 || actions[0].Type != reducex.ActionErrorFinish {
		t.Fatalf("expected error finish, got %+v", actions)
	}
	if !actions[0].Partial {
		t.Fatal("expected partial to be true after buffered content")
	}

	// Second disconnect is idempotent.
	if actions := r.Disconnect(); len(actions) != 0 {
		t.Fatalf("expected no actions, got %+v", actions)
	}
}

func TestReducer_DisconnectWithoutContent(t *testing.T) {
	r := reducex.New()
	r.SetActiveRun("run-1")

	actions := r.Disconnect()
	if len(actions) != 1 || actions[0].Partial {
		t.Fatalf("expected non-partial error finish, got %+v", actions)
	}
}

func TestReducer_Cancel(t *testing.T) {
	r := reducex.New()
	r.Reduce(assistantFrame("run-1", 1, "some text"))

	actions := r.Cancel()
	if len(actions) != 1 || actions[0].Type != reducex.ActionFinish || !actions[0].Interrupted {
		t.Fatalf("expected interrupted finish, got %+v", actions)
	}
	if actions := r.Cancel(); len(actions) != 0 {
		t.Fatalf("cancel must be idempotent, got %+v", actions)
	}
}

func TestReducer_StateFallback(t *testing.T) {
	r := reducex.New()

	actions := r.Reduce(framex.StateEvent(framex.StateDelta, "Hel"))
	if len(actions) != 1 || actions[0].Delta != "Hel" {
		t.Fatalf("expected delta, got %+v", actions)
	}

	// Final carries the full text; the new tail lands before the finish.
	actions = r.Reduce(framex.StateEvent(framex.StateFinal, "Hello"))
	if len(actions) != 2 {
		t.Fatalf("expected content+finish, got %+v", actions)
	}
	if actions[0].Delta != "lo" || actions[1].Type != reducex.ActionFinish {
		t.Fatalf("unexpected actions %+v", actions)
	}
	if r.Content() != "Hello" {
		t.Fatalf("expected %q, got %q", "Hello", r.Content())
	}
}

func TestReducer_ResetRunClearsState(t *testing.T) {
	r := reducex.New()
	r.Reduce(assistantFrame("run-1", 5, "old"))
	r.ResetRun()

	if r.ActiveRun() != "" {
		t.Fatalf("expected empty active run, got %q", r.ActiveRun())
	}
	if r.Content() != "" {
		t.Fatalf("expected empty buffer, got %q", r.Content())
	}

	// Old sequence numbers are valid again for the new run.
	if actions := r.Reduce(assistantFrame("run-2", 1, "new")); len(actions) != 1 {
		t.Fatalf("expected frame to apply after reset, got %+v", actions)
	}
}
