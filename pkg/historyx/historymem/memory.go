package historymem

import (
	"context"
	"sort"
	"sync"

	"github.com/Abraxas-365/tidal/pkg/historyx"
	"github.com/Abraxas-365/tidal/pkg/kernel"
)

// MemoryStore implements historyx.Store in process memory. Used in tests and
// in deployments without a database.
type MemoryStore struct {
	mu    sync.RWMutex
	convs map[string]*historyx.Conversation
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{convs: make(map[string]*historyx.Conversation)}
}

func (s *MemoryStore) Save(ctx context.Context, conv *historyx.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *conv
	cp.Entries = append([]historyx.Entry(nil), conv.Entries...)
	s.convs[conv.ID] = &cp
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*historyx.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.convs[id]
	if !ok {
		return nil, historyx.NotFound(id)
	}
	cp := *conv
	cp.Entries = append([]historyx.Entry(nil), conv.Entries...)
	return &cp, nil
}

func (s *MemoryStore) GetBySession(ctx context.Context, sessionID kernel.SessionID) (*historyx.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, conv := range s.convs {
		if conv.SessionID == sessionID {
			cp := *conv
			cp.Entries = append([]historyx.Entry(nil), conv.Entries...)
			return &cp, nil
		}
	}
	return nil, historyx.NotFound(sessionID.String())
}

func (s *MemoryStore) List(ctx context.Context, opts kernel.PaginationOptions) (kernel.Paginated[historyx.Conversation], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]historyx.Conversation, 0, len(s.convs))
	for _, conv := range s.convs {
		all = append(all, *conv)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].UpdatedAt.After(all[j].UpdatedAt)
	})

	page, size := opts.Page, opts.PageSize
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 20
	}

	start := (page - 1) * size
	if start > len(all) {
		start = len(all)
	}
	end := start + size
	if end > len(all) {
		end = len(all)
	}

	return kernel.NewPaginated(all[start:end], page, size, len(all)), nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.convs[id]; !ok {
		return historyx.NotFound(id)
	}
	delete(s.convs, id)
	return nil
}
