package alerts

import (
	"sync"
	"time"
)

// AlertRecord pins a delivered alert so the same mint cannot alert again
// within the cooldown window.
type AlertRecord struct {
	ID        string    `json:"id" db:"id"`
	Mint      string    `json:"mint" db:"mint"`
	Symbol    string    `json:"symbol" db:"symbol"`
	Score     float64   `json:"score" db:"score"`
	AlertedAt time.Time `json:"alerted_at" db:"alerted_at"`
}

// ExpiredAt reports whether the record's cooldown has elapsed at the given
// instant.
func (r *AlertRecord) ExpiredAt(now time.Time, cooldown time.Duration) bool {
	return now.Sub(r.AlertedAt) >= cooldown
}

// Store persists alert records keyed by mint. Only get/put/iterate
// semantics are required; the default is in-memory, Postgres is opt-in.
type Store interface {
	Get(mint string) (*AlertRecord, bool)
	Put(record *AlertRecord)
	Delete(mint string)
	All() []*AlertRecord
}

// MemoryStore is the default in-process record store.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*AlertRecord
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*AlertRecord)}
}

func (s *MemoryStore) Get(mint string) (*AlertRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[mint]
	return rec, ok
}

func (s *MemoryStore) Put(record *AlertRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.Mint] = record
}

func (s *MemoryStore) Delete(mint string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, mint)
}

func (s *MemoryStore) All() []*AlertRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	records := make([]*AlertRecord, 0, len(s.records))
	for _, rec := range s.records {
		records = append(records, rec)
	}
	return records
}
