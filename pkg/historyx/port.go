package historyx

import (
	"context"

	"github.com/Abraxas-365/tidal/pkg/kernel"
)

// Store archives conversation transcripts.
type Store interface {
	Save(ctx context.Context, conv *Conversation) error
	Get(ctx context.Context, id string) (*Conversation, error)
	GetBySession(ctx context.Context, sessionID kernel.SessionID) (*Conversation, error)
	List(ctx context.Context, opts kernel.PaginationOptions) (kernel.Paginated[Conversation], error)
	Delete(ctx context.Context, id string) error
}
