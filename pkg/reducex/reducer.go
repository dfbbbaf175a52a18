package reducex

import (
	"strings"

	"github.com/Abraxas-365/tidal/pkg/framex"
	"github.com/Abraxas-365/tidal/pkg/kernel"
	"github.com/Abraxas-365/tidal/pkg/logx"
)

// seqKey isolates sequence counters per (run, stream).
type seqKey struct {
	run    kernel.RunID
	stream framex.StreamName
}

// Reducer applies per-(run, stream) isolation, sequence-based dedup, and
// content diffing to inbound frames, and emits the minimal correct set of
// UI actions.
//
// The reducer is a pure, synchronous, non-blocking transformation with no
// internal locking: all calls must come from the session's single mutation
// owner. Frames are reduced in arrival order.
type Reducer struct {
	activeRun kernel.RunID
	finished  bool

	seqs    map[seqKey]uint64
	buffers map[framex.StreamName]*strings.Builder
}

// New creates an empty reducer with no active run.
func New() *Reducer {
	r := &Reducer{}
	r.ResetRun()
	return r
}

// ActiveRun returns the id of the run currently being reduced, if any.
func (r *Reducer) ActiveRun() kernel.RunID {
	return r.activeRun
}

// SetActiveRun records a client-assigned run id before any frames arrive,
// so frames for older runs are rejected from the first moment of the run.
func (r *Reducer) SetActiveRun(id kernel.RunID) {
	r.activeRun = id
}

// ResetRun clears the active run id, all per-stream sequence counters, and
// all content buffers. Callers invoke it exactly once per new user turn,
// before any frames for that turn are reduced.
func (r *Reducer) ResetRun() {
	r.activeRun = ""
	r.finished = false
	r.seqs = make(map[seqKey]uint64)
	r.buffers = make(map[framex.StreamName]*strings.Builder)
}

// Reduce applies one frame and returns the resulting UI actions, which may
// be empty. Duplicate, stale, foreign-run, and unrecognized frames are
// discarded without side effects.
func (r *Reducer) Reduce(f framex.Frame) []Action {
	switch f.Type {
	case framex.TypeRun:
		return r.reduceRun(f.Run)
	case framex.TypeState:
		return r.reduceState(f.State)
	default:
		return nil
	}
}

func (r *Reducer) reduceRun(f *framex.RunFrame) []Action {
	// Run isolation: adopt the first run id seen; drop frames for any
	// other run. Once a run is finished, further frames for it are inert.
	if !f.RunID.IsEmpty() {
		if r.activeRun.IsEmpty() {
			r.activeRun = f.RunID
		} else if f.RunID != r.activeRun {
			logx.WithField("run_id", f.RunID.String()).Debug("dropping foreign-run frame")
			return nil
		}
	}
	if r.finished {
		return nil
	}

	// Sequence gate: only strictly increasing numbers are applied; an
	// equal-or-lower number is a duplicate or stale retry.
	if f.Seq != nil {
		key := seqKey{run: r.activeRun, stream: f.Stream}
		if last, seen := r.seqs[key]; seen && *f.Seq <= last {
			return nil
		}
		r.seqs[key] = *f.Seq
	}

	switch f.Stream {
	case framex.StreamAssistant:
		delta := Diff(f.Payload.Text, r.buffer(f.Stream).String())
		if delta == "" {
			return nil
		}
		r.buffer(f.Stream).WriteString(delta)
		return []Action{contentAction(delta)}

	case framex.StreamTool:
		return []Action{statusAction(framex.StatusForTool(f.Payload.Tool))}

	case framex.StreamLifecycle:
		if f.Payload.Phase != framex.PhaseEnd {
			return nil
		}
		r.finished = true
		return []Action{finishAction(false)}

	case framex.StreamUser:
		if f.Payload.Text == "" {
			return nil
		}
		return []Action{{Type: ActionAppendUserTurn, Text: f.Payload.Text}}

	case framex.StreamFile:
		if f.Payload.File == nil {
			return nil
		}
		return []Action{{Type: ActionAppendFile, File: f.Payload.File}}

	default:
		return nil
	}
}

// reduceState is the fallback path for backends without fine-grained run
// events: "final" terminates the run with whatever new text the frame
// carries, anything else is an incremental delta.
func (r *Reducer) reduceState(f *framex.StateFrame) []Action {
	if r.finished {
		return nil
	}

	var actions []Action

	delta := Diff(f.Text, r.buffer(framex.StreamAssistant).String())
	if delta != "" {
		r.buffer(framex.StreamAssistant).WriteString(delta)
		actions = append(actions, contentAction(delta))
	}

	if f.State == framex.StateFinal {
		r.finished = true
		actions = append(actions, finishAction(false))
	}

	return actions
}

// Cancel handles a user interruption: the run finishes cleanly but the
// message is marked interrupted. Idempotent.
func (r *Reducer) Cancel() []Action {
	if r.finished {
		return nil
	}
	r.finished = true
	return []Action{finishAction(true)}
}

// Disconnect handles a transport failure or idle timeout. If the run has
// not already received a terminal event it is aborted with errorFinish;
// partial is true iff any content had been buffered. Idempotent.
func (r *Reducer) Disconnect() []Action {
	if r.finished {
		return nil
	}
	r.finished = true

	partial := r.buffer(framex.StreamAssistant).Len() > 0
	return []Action{errorFinishAction(partial)}
}

// Finished reports whether the active run has reached a terminal state.
func (r *Reducer) Finished() bool {
	return r.finished
}

// Content returns the accumulated assistant content buffer for the active
// run. Useful for snapshot-style assertions; the UI applies actions instead.
func (r *Reducer) Content() string {
	return r.buffer(framex.StreamAssistant).String()
}

func (r *Reducer) buffer(stream framex.StreamName) *strings.Builder {
	b, ok := r.buffers[stream]
	if !ok {
		b = &strings.Builder{}
		r.buffers[stream] = b
	}
	return b
}
