package chatx

import (
	"github.com/Abraxas-365/tidal/pkg/framex"
)

// Role identifies who a message belongs to.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one rendered turn of the session. The reconciliation loop is
// the only writer; readers get copies via Session.Snapshot.
type Message struct {
	Role    Role
	Content string

	// Status is the transient activity phrase shown while the assistant is
	// working. Cleared as soon as content lands.
	Status string

	// Pending marks an optimistic placeholder the backend has not
	// acknowledged yet.
	Pending bool

	// Files are artifacts generated during the turn.
	Files []framex.FileDescriptor

	// Terminal flags. Done is set exactly once per assistant turn.
	Done        bool
	Interrupted bool
	Errored     bool
	Partial     bool
}

func (m *Message) clone() Message {
	cp := *m
	cp.Files = append([]framex.FileDescriptor(nil), m.Files...)
	return cp
}
