package kernel

// SessionID identifies a conversation/topic. Stable for the lifetime of an
// open topic; owned by the UI layer.
type SessionID string

func NewSessionID(id string) SessionID { return SessionID(id) }
func (s SessionID) String() string     { return string(s) }
func (s SessionID) IsEmpty() bool      { return string(s) == "" }

// RunID identifies one user-turn/agent-response cycle within a session.
// Opaque: it may be client-assigned or adopted from the first frame seen.
type RunID string

func NewRunID(id string) RunID { return RunID(id) }
func (r RunID) String() string { return string(r) }
func (r RunID) IsEmpty() bool  { return string(r) == "" }
