package ratelimit

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	count    int64
	windowAt time.Time
}

// MemoryStore keeps window counters in process memory. It backs tests and
// single-instance deployments where Redis is unreachable.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*entry
	now     func() time.Time
}

// NewMemoryStore builds an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]*entry), now: time.Now}
}

// Incr bumps the key's counter, lazily resetting an elapsed window.
func (s *MemoryStore) Incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	e, ok := s.entries[key]
	if !ok || now.After(e.windowAt) {
		e = &entry{windowAt: now.Add(window)}
		s.entries[key] = e
	}
	e.count++
	return e.count, e.windowAt.Sub(now), nil
}

// Cleanup removes expired entries. Callers run it on a ticker to keep the
// map bounded.
func (s *MemoryStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for key, e := range s.entries {
		if now.After(e.windowAt) {
			delete(s.entries, key)
		}
	}
}
