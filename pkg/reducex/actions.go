package reducex

import "github.com/Abraxas-365/tidal/pkg/framex"

// ActionType identifies what kind of UI action is being emitted.
type ActionType string

const (
	// ActionAppendUserTurn appends an echoed user turn to the conversation.
	ActionAppendUserTurn ActionType = "append_user_turn"

	// ActionUpdateContent appends a content delta to the assistant message.
	ActionUpdateContent ActionType = "update_assistant_content"

	// ActionUpdateStatus replaces the assistant message's transient status.
	ActionUpdateStatus ActionType = "update_assistant_status"

	// ActionAppendFile attaches a generated artifact to the assistant message.
	ActionAppendFile ActionType = "append_generated_file"

	// ActionFinish terminates the run cleanly.
	ActionFinish ActionType = "finish"

	// ActionErrorFinish terminates the run after a transport failure.
	ActionErrorFinish ActionType = "error_finish"
)

// Action is one immutable instruction for the UI layer, consumed once.
// Each action is the sole source of truth for its increment.
type Action struct {
	Type ActionType

	// Delta is the content to append for ActionUpdateContent.
	Delta string

	// Status is the phrase for ActionUpdateStatus.
	Status string

	// Text is the echoed user turn for ActionAppendUserTurn.
	Text string

	// File is the artifact for ActionAppendFile.
	File *framex.FileDescriptor

	// Interrupted is set on ActionFinish when the user cancelled the run.
	Interrupted bool

	// Partial is set on ActionErrorFinish when content had already been
	// applied before the failure.
	Partial bool
}

func contentAction(delta string) Action {
	return Action{Type: ActionUpdateContent, Delta: delta}
}

func statusAction(text string) Action {
	return Action{Type: ActionUpdateStatus, Status: text}
}

func finishAction(interrupted bool) Action {
	return Action{Type: ActionFinish, Interrupted: interrupted}
}

func errorFinishAction(partial bool) Action {
	return Action{Type: ActionErrorFinish, Partial: partial}
}
