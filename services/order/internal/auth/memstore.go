package auth

import (
	"context"
	"sync"
	"time"
)

// MemoryCodeStore keeps challenges in process. It backs single instance
// deployments that run without redis.
type MemoryCodeStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	ch      Challenge
	expires time.Time
}

func NewMemoryCodeStore() *MemoryCodeStore {
	return &MemoryCodeStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (s *MemoryCodeStore) Put(ctx context.Context, phone string, ch Challenge, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ttl <= 0 {
		delete(s.entries, phone)
		return nil
	}
	s.entries[phone] = memoryEntry{ch: ch, expires: s.now().Add(ttl)}
	return nil
}

func (s *MemoryCodeStore) Get(ctx context.Context, phone string) (*Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[phone]
	if !ok {
		return nil, nil
	}
	if !s.now().Before(e.expires) {
		delete(s.entries, phone)
		return nil, nil
	}
	ch := e.ch
	return &ch, nil
}

func (s *MemoryCodeStore) Delete(ctx context.Context, phone string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, phone)
	return nil
}
