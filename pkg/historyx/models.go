package historyx

import (
	"time"

	"github.com/google/uuid"

	"github.com/Abraxas-365/tidal/pkg/framex"
	"github.com/Abraxas-365/tidal/pkg/kernel"
)

// Role identifies who produced an entry.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Entry is one archived turn of a conversation.
type Entry struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`

	// Interrupted marks an assistant turn the user cancelled mid-stream.
	Interrupted bool `json:"interrupted,omitempty"`

	// Errored marks an assistant turn that ended on a transport failure;
	// Partial says whether any content had landed before the failure.
	Errored bool `json:"errored,omitempty"`
	Partial bool `json:"partial,omitempty"`

	Files     []framex.FileDescriptor `json:"files,omitempty"`
	CreatedAt time.Time               `json:"created_at"`
}

// Conversation is the archived transcript of one session.
type Conversation struct {
	ID        string           `json:"id" db:"id"`
	SessionID kernel.SessionID `json:"session_id" db:"session_id"`
	Title     string           `json:"title" db:"title"`
	Entries   []Entry          `json:"entries" db:"-"`
	CreatedAt time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt time.Time        `json:"updated_at" db:"updated_at"`
}

// NewConversation starts an empty transcript for a session.
func NewConversation(sessionID kernel.SessionID, title string) *Conversation {
	now := time.Now().UTC()
	return &Conversation{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Append adds an entry and bumps the update time.
func (c *Conversation) Append(e Entry) {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	c.Entries = append(c.Entries, e)
	c.UpdatedAt = time.Now().UTC()
}
