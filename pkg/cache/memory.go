package cache

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryStore is a Store held in process memory, for serving without Redis
// and for tests. Runs do not survive a restart.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry

	// now is replaceable in tests.
	now func() time.Time
}

type memoryEntry struct {
	entry     Entry
	expiresAt time.Time
}

// NewMemoryStore creates an in-memory line cache.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// Get retrieves the entry for a run id.
func (s *MemoryStore) Get(ctx context.Context, runID string) (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[runID]
	if !ok {
		CacheMisses.Inc()
		return nil, ErrCacheMiss
	}
	if s.now().After(e.expiresAt) {
		delete(s.entries, runID)
		CacheMisses.Inc()
		return nil, ErrCacheMiss
	}

	CacheHits.WithLabelValues("memory").Inc()
	entry := e.entry
	return &entry, nil
}

// Set stores an entry under a run id for the given TTL.
func (s *MemoryStore) Set(ctx context.Context, runID string, entry *Entry, ttl time.Duration) error {
	if entry == nil {
		return fmt.Errorf("cache entry cannot be nil")
	}
	if ttl <= 0 {
		return fmt.Errorf("ttl must be positive")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[runID] = memoryEntry{
		entry:     *entry,
		expiresAt: s.now().Add(ttl),
	}
	return nil
}

// Delete removes the entry for a run id.
func (s *MemoryStore) Delete(ctx context.Context, runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, runID)
	return nil
}
