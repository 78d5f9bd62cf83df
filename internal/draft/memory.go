package draft

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps drafts in process memory. Entries expire after ttl; a
// zero ttl keeps them until deleted.
type MemoryStore struct {
	mu     sync.Mutex
	ttl    time.Duration
	now    func() time.Time
	drafts map[string]memoryEntry
}

type memoryEntry struct {
	draft     Draft
	expiresAt time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:    ttl,
		now:    time.Now,
		drafts: make(map[string]memoryEntry),
	}
}

func (s *MemoryStore) Get(_ context.Context, id string) (Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.drafts[id]
	if !ok {
		return Draft{}, ErrNotFound
	}
	if !entry.expiresAt.IsZero() && !s.now().Before(entry.expiresAt) {
		delete(s.drafts, id)
		return Draft{}, ErrNotFound
	}
	return entry.draft.clone(), nil
}

func (s *MemoryStore) Put(_ context.Context, d Draft) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := memoryEntry{draft: d.clone()}
	if s.ttl > 0 {
		entry.expiresAt = s.now().Add(s.ttl)
	}
	s.drafts[d.ID] = entry
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.drafts, id)
	return nil
}
