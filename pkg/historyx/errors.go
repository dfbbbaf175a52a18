package historyx

import "github.com/Abraxas-365/tidal/pkg/errx"

var historyErrors = errx.NewRegistry("HISTORYX")

var (
	ErrNotFound = historyErrors.Register("NOT_FOUND", errx.TypeNotFound, 404, "Conversation not found")
)

// NotFound builds the canonical not-found error for a conversation id.
func NotFound(id string) *errx.Error {
	return historyErrors.New(ErrNotFound).WithDetail("conversation_id", id)
}
