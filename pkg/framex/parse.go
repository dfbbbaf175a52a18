package framex

import (
	"encoding/json"

	"github.com/Abraxas-365/tidal/pkg/kernel"
)

// envelope is the raw wire shape of a frame. Every field is optional at the
// JSON level; validation happens once, here, so downstream code only ever
// sees well-formed tagged variants.
type envelope struct {
	Type   string          `json:"type"`
	RunID  string          `json:"run_id,omitempty"`
	Stream string          `json:"stream,omitempty"`
	Seq    *uint64         `json:"seq,omitempty"`
	Text   string          `json:"text,omitempty"`
	Tool   string          `json:"tool,omitempty"`
	Phase  string          `json:"phase,omitempty"`
	File   *FileDescriptor `json:"file,omitempty"`
	State  string          `json:"state,omitempty"`
}

// Parse decodes one wire payload into a Frame. It returns ErrMalformedFrame
// for unparseable data or a frame missing a required field; callers skip
// such frames without side effects.
func Parse(data []byte) (Frame, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Frame{}, errorRegistry.NewWithCause(ErrMalformedFrame, err)
	}

	switch Type(env.Type) {
	case TypeRun:
		return parseRun(env)
	case TypeState:
		return parseState(env)
	default:
		return Frame{}, errorRegistry.New(ErrMalformedFrame).
			WithDetail("type", env.Type)
	}
}

func parseRun(env envelope) (Frame, error) {
	stream := StreamName(env.Stream)
	switch stream {
	case StreamAssistant, StreamUser:
		// Text may legitimately be empty (keep-alive); nothing to check.
	case StreamTool:
		if env.Tool == "" {
			return Frame{}, errorRegistry.New(ErrMalformedFrame).
				WithDetail("missing", "tool")
		}
	case StreamLifecycle:
		if env.Phase == "" {
			return Frame{}, errorRegistry.New(ErrMalformedFrame).
				WithDetail("missing", "phase")
		}
	case StreamFile:
		if env.File == nil {
			return Frame{}, errorRegistry.New(ErrMalformedFrame).
				WithDetail("missing", "file")
		}
	default:
		// Unknown streams pass through; the reducer discards them. This
		// keeps forward compatibility with newer backends.
	}

	return RunEvent(kernel.RunID(env.RunID), stream, env.Seq, RunPayload{
		Text:  env.Text,
		Tool:  env.Tool,
		Phase: env.Phase,
		File:  env.File,
	}), nil
}

func parseState(env envelope) (Frame, error) {
	state := State(env.State)
	if state != StateFinal {
		// Anything that is not an explicit final is treated as a delta.
		state = StateDelta
	}
	return StateEvent(state, env.Text), nil
}

// Encode serializes a Frame back to its wire form. Used by backends (and the
// mock server) that speak this protocol natively.
func Encode(f Frame) ([]byte, error) {
	var env envelope
	switch f.Type {
	case TypeRun:
		env = envelope{
			Type:   string(TypeRun),
			RunID:  f.Run.RunID.String(),
			Stream: string(f.Run.Stream),
			Seq:    f.Run.Seq,
			Text:   f.Run.Payload.Text,
			Tool:   f.Run.Payload.Tool,
			Phase:  f.Run.Payload.Phase,
			File:   f.Run.Payload.File,
		}
	case TypeState:
		env = envelope{
			Type:  string(TypeState),
			State: string(f.State.State),
			Text:  f.State.Text,
		}
	default:
		return nil, errorRegistry.New(ErrMalformedFrame).
			WithDetail("type", string(f.Type))
	}
	return json.Marshal(env)
}
