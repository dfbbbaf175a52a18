package framex

import (
	"strings"

	"github.com/Abraxas-365/tidal/pkg/kernel"
)

// Reason is the terminal reason code attached to an upstream chunk.
type Reason string

const (
	// ReasonNone means the chunk carries no terminal marker.
	ReasonNone Reason = ""

	// ReasonToolSegment ends a tool-reasoning segment: the text that
	// preceded it was reasoning, not an answer.
	ReasonToolSegment Reason = "tool_segment"

	// ReasonFinal ends the response with a finalized answer.
	ReasonFinal Reason = "final"
)

// Chunk is one decoded unit from a raw model stream: an incremental text
// fragment, a list of named tool invocations, and an optional terminal
// reason code.
type Chunk struct {
	Text   string
	Tools  []string
	Reason Reason
}

// turnSeparator is appended between a flushed tool turn and the text that
// follows it.
const turnSeparator = "\n\n"

// TurnScanner detects turn boundaries inside a single model response. Some
// upstream transports do not separate tool reasoning from the final answer
// at the protocol level (only a trailing marker does), so the scanner keeps
// a per-response text accumulator and decides, marker by marker, what is
// content and what was reasoning.
//
// The scanner is the only place that knows about transport-specific markers;
// the reducer and throttle treat the emitted frames purely as deltas and
// finals.
type TurnScanner struct {
	runID      kernel.RunID
	acc        strings.Builder
	seenTools  map[string]struct{}
	statusSeen bool
	flushed    bool
	done       bool
}

// NewTurnScanner creates a scanner for one model response belonging to runID.
func NewTurnScanner(runID kernel.RunID) *TurnScanner {
	return &TurnScanner{
		runID:     runID,
		seenTools: make(map[string]struct{}),
	}
}

// Push consumes one decoded chunk and returns zero or more frames.
func (s *TurnScanner) Push(c Chunk) []Frame {
	if s.done {
		return nil
	}

	var frames []Frame

	if c.Text != "" {
		s.acc.WriteString(c.Text)
	}

	for _, name := range c.Tools {
		if _, seen := s.seenTools[name]; seen {
			continue
		}
		s.seenTools[name] = struct{}{}

		// The first status emission flushes the clean prior text as
		// content before switching into status mode.
		if !s.statusSeen {
			s.statusSeen = true
			frames = append(frames, s.flushContent()...)
		}

		frames = append(frames, RunEvent(s.runID, StreamTool, nil, RunPayload{Tool: name}))
	}

	switch c.Reason {
	case ReasonToolSegment:
		// The accumulated text was reasoning, not an answer.
		s.acc.Reset()
		if s.flushed {
			s.acc.WriteString(turnSeparator)
		}

	case ReasonFinal:
		frames = append(frames, s.flushContent()...)
		frames = append(frames, s.endFrame())
	}

	return frames
}

// Finish signals end of stream. If no final marker was seen, whatever
// remains in the accumulator is flushed as content.
func (s *TurnScanner) Finish() []Frame {
	if s.done {
		return nil
	}
	frames := s.flushContent()
	return append(frames, s.endFrame())
}

func (s *TurnScanner) flushContent() []Frame {
	text := s.acc.String()
	s.acc.Reset()
	if strings.TrimSpace(text) == "" {
		return nil
	}
	s.flushed = true
	return []Frame{RunEvent(s.runID, StreamAssistant, nil, RunPayload{Text: text})}
}

func (s *TurnScanner) endFrame() Frame {
	s.done = true
	return RunEvent(s.runID, StreamLifecycle, nil, RunPayload{Phase: PhaseEnd})
}
