package ratelimit

import (
	"context"
	"sync"
	"time"
)

type windowEntry struct {
	count   int
	resetAt time.Time
}

// MemoryStore is a process-local counter store. Each Hit takes the store lock
// so increment-and-compare is atomic per key. State is not shared across
// processes; multi-instance deployments should use the Redis store instead.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*windowEntry

	now func() time.Time // injectable for tests
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]*windowEntry),
		now:     time.Now,
	}
}

func (s *MemoryStore) Hit(_ context.Context, key string, window time.Duration) (int, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	e, ok := s.entries[key]
	if !ok || !now.Before(e.resetAt) {
		// First hit for the key, or the previous window has rolled over.
		e = &windowEntry{count: 1, resetAt: now.Add(window)}
		s.entries[key] = e
		return e.count, e.resetAt, nil
	}

	e.count++
	return e.count, e.resetAt, nil
}

// Sweep drops entries whose window has elapsed, bounding memory under churn
// of ephemeral keys. Meant to be called periodically from a housekeeping loop.
func (s *MemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for key, e := range s.entries {
		if !now.Before(e.resetAt) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed
}

// Len reports the number of tracked keys.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
