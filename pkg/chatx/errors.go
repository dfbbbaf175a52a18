package chatx

import "github.com/Abraxas-365/tidal/pkg/errx"

var chatErrors = errx.NewRegistry("CHATX")

var (
	ErrRunActive     = chatErrors.Register("RUN_ACTIVE", errx.TypeConflict, 409, "A run is already in progress for this session")
	ErrSessionClosed = chatErrors.Register("SESSION_CLOSED", errx.TypeConflict, 409, "Session is closed")
	ErrEmptyPrompt   = chatErrors.Register("EMPTY_PROMPT", errx.TypeValidation, 400, "Prompt must not be empty")
)
