package leads

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryStore is a simple in-process lead store for local/dev use.
type InMemoryStore struct {
	mu    sync.RWMutex
	items []Lead
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) SaveLead(_ context.Context, lead Lead) (Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if lead.ID == "" {
		lead.ID = uuid.NewString()
	}
	if lead.CreatedAt.IsZero() {
		lead.CreatedAt = time.Now().UTC()
	}
	s.items = append(s.items, lead)
	return lead, nil
}

func (s *InMemoryStore) ListLeads(_ context.Context, limit int) ([]Lead, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.items) == 0 {
		return nil, nil
	}
	if limit <= 0 || limit > len(s.items) {
		limit = len(s.items)
	}
	// Newest first.
	out := make([]Lead, 0, limit)
	for i := len(s.items) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.items[i])
	}
	return out, nil
}

func (s *InMemoryStore) Close() error { return nil }
