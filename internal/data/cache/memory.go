package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is the default in-process backend: a mutex-guarded map with
// per-entry expiry, LRU eviction at capacity, and a janitor goroutine that
// sweeps entries older than the longest configured TTL.
type MemoryStore struct {
	mu         sync.RWMutex
	entries    map[string]*memoryEntry
	maxEntries int
	stopCh     chan struct{}
	stopOnce   sync.Once
}

type memoryEntry struct {
	payload  []byte
	expires  time.Time
	accessed time.Time
}

// NewMemoryStore creates a memory backend holding at most maxEntries
// payloads, sweeping expired entries every janitorEvery.
func NewMemoryStore(maxEntries int, janitorEvery time.Duration) *MemoryStore {
	if maxEntries <= 0 {
		maxEntries = 10000
	}
	if janitorEvery <= 0 {
		janitorEvery = time.Minute
	}

	s := &MemoryStore{
		entries:    make(map[string]*memoryEntry),
		maxEntries: maxEntries,
		stopCh:     make(chan struct{}),
	}
	go s.janitor(janitorEvery)
	return s
}

// Get returns the payload if present and not expired.
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok {
		return nil, false, nil
	}
	if time.Now().After(entry.expires) {
		// Expired entries are swept by the janitor; never served.
		return nil, false, nil
	}
	entry.accessed = time.Now()
	return entry.payload, true, nil
}

// Set stores a payload with the given TTL, evicting the least recently
// accessed entry when at capacity.
func (s *MemoryStore) Set(_ context.Context, key string, payload []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[key]; !exists && len(s.entries) >= s.maxEntries {
		s.evictLRU()
	}

	now := time.Now()
	s.entries[key] = &memoryEntry{
		payload:  payload,
		expires:  now.Add(ttl),
		accessed: now,
	}
	return nil
}

// Len returns the current entry count, expired entries included until the
// next sweep.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Close stops the janitor goroutine.
func (s *MemoryStore) Close() error {
	s.stopOnce.Do(func() { close(s.stopCh) })
	return nil
}

// evictLRU removes the least recently accessed entry. Caller holds the
// write lock.
func (s *MemoryStore) evictLRU() {
	var oldestKey string
	oldestTime := time.Now()

	for key, entry := range s.entries {
		if entry.accessed.Before(oldestTime) {
			oldestTime = entry.accessed
			oldestKey = key
		}
	}
	if oldestKey != "" {
		delete(s.entries, oldestKey)
	}
}

func (s *MemoryStore) janitor(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.removeExpired()
		}
	}
}

func (s *MemoryStore) removeExpired() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for key, entry := range s.entries {
		if now.After(entry.expires) {
			delete(s.entries, key)
		}
	}
}
