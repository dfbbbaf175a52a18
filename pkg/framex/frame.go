package framex

import (
	"github.com/Abraxas-365/tidal/pkg/kernel"
)

// Type discriminates between frame variants.
type Type string

const (
	// TypeRun is a fine-grained run event carrying an explicit run id,
	// stream name, optional sequence number, and payload.
	TypeRun Type = "run"

	// TypeState is a coarse fallback event used by backends that do not
	// emit fine-grained run events. It only distinguishes "final" from
	// "delta" and carries text.
	TypeState Type = "state"
)

// StreamName names a sub-channel within a run.
type StreamName string

const (
	// StreamAssistant carries the run's primary content.
	StreamAssistant StreamName = "assistant"

	// StreamTool carries tool-invocation status.
	StreamTool StreamName = "tool"

	// StreamLifecycle carries run control events.
	StreamLifecycle StreamName = "lifecycle"

	// StreamUser echoes the user turn that started the run.
	StreamUser StreamName = "user"

	// StreamFile announces a generated artifact.
	StreamFile StreamName = "file"
)

// Lifecycle phases carried on StreamLifecycle.
const (
	PhaseEnd = "end"
)

// State values carried by TypeState frames.
type State string

const (
	StateDelta State = "delta"
	StateFinal State = "final"
)

// FileDescriptor describes a generated artifact referenced by a frame.
type FileDescriptor struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	MIME string `json:"mime,omitempty"`
	URL  string `json:"url,omitempty"`
	Size int64  `json:"size,omitempty"`
}

// RunPayload is the typed payload of a fine-grained run frame. Which fields
// are meaningful depends on the stream the frame arrived on.
type RunPayload struct {
	// Text is the incremental (or cumulative, the reducer's diff decides)
	// content chunk for StreamAssistant, or the echoed text for StreamUser.
	Text string

	// Tool is the invocation name for StreamTool.
	Tool string

	// Phase is the lifecycle phase for StreamLifecycle.
	Phase string

	// File is the artifact descriptor for StreamFile.
	File *FileDescriptor
}

// RunFrame is a fine-grained run event.
type RunFrame struct {
	RunID  kernel.RunID
	Stream StreamName

	// Seq is the per-(run, stream) sequence number. Nil when the upstream
	// does not number frames; such frames bypass the reducer's sequence
	// gate and rely on content diffing alone.
	Seq *uint64

	Payload RunPayload
}

// StateFrame is a coarse fallback event.
type StateFrame struct {
	State State
	Text  string
}

// Frame is one decoded unit from the transport, represented as a tagged
// variant: exactly one of Run or State is set, according to Type. Frames are
// transient: consumed by the reducer and discarded.
type Frame struct {
	Type  Type
	Run   *RunFrame
	State *StateFrame
}

// RunEvent builds a fine-grained run frame.
func RunEvent(runID kernel.RunID, stream StreamName, seq *uint64, payload RunPayload) Frame {
	return Frame{
		Type: TypeRun,
		Run: &RunFrame{
			RunID:   runID,
			Stream:  stream,
			Seq:     seq,
			Payload: payload,
		},
	}
}

// StateEvent builds a coarse state frame.
func StateEvent(state State, text string) Frame {
	return Frame{
		Type:  TypeState,
		State: &StateFrame{State: state, Text: text},
	}
}
