package scan

import (
	"sync"
	"time"

	"github.com/sawpanic/launchradar/internal/models"
)

// RegistryEntry is one tracked token: its latest merged record and the
// best score observed this session.
type RegistryEntry struct {
	Candidate *models.TokenCandidate `json:"candidate"`
	BestScore float64                `json:"best_score"`
	BestAt    time.Time              `json:"best_at"`
	Cycles    int                    `json:"cycles"`
}

// Registry is the rolling, session-scoped view of every token seen so far,
// keyed by mint. A token is updated in place, never duplicated, and its
// best score never regresses.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*RegistryEntry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*RegistryEntry)}
}

// Upsert folds a merged candidate into the registry. A known mint is
// merged into the stored record; a new mint is inserted. The caller gets a
// deep copy to work on: enrichment and scoring mutate that copy off-lock
// and fold results back through Commit, so concurrent Snapshot readers
// never observe a half-written record.
func (r *Registry) Upsert(cand *models.TokenCandidate) *models.TokenCandidate {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[cand.Mint]
	if !ok {
		entry = &RegistryEntry{Candidate: cand.Clone()}
		r.entries[cand.Mint] = entry
	} else {
		Merge(entry.Candidate, cand)
	}
	entry.Cycles++
	return entry.Candidate.Clone()
}

// Commit merges a worked copy back into the stored record. Unlike Upsert it
// does not count a cycle; it exists for the enrich/score stages to publish
// their results.
func (r *Registry) Commit(cand *models.TokenCandidate) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[cand.Mint]
	if !ok {
		return
	}
	Merge(entry.Candidate, cand)
	entry.Candidate.BaseScore = cand.BaseScore
}

// RecordScore stores a newly computed score, keeping the best seen so far.
// A later, lower-quality observation never regresses the recorded best.
func (r *Registry) RecordScore(mint string, score float64, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[mint]
	if !ok {
		return
	}
	if score > entry.BestScore {
		entry.BestScore = score
		entry.BestAt = at
	}
}

// Get returns the entry for a mint, if tracked.
func (r *Registry) Get(mint string) (*RegistryEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[mint]
	return entry, ok
}

// BestScore returns the best score recorded for a mint this session.
func (r *Registry) BestScore(mint string) float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if entry, ok := r.entries[mint]; ok {
		return entry.BestScore
	}
	return 0
}

// Len returns the number of tracked tokens.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Snapshot returns a copy of every entry for read-only consumers such as
// the HTTP interface.
func (r *Registry) Snapshot() map[string]RegistryEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snap := make(map[string]RegistryEntry, len(r.entries))
	for mint, entry := range r.entries {
		snap[mint] = RegistryEntry{
			Candidate: entry.Candidate.Clone(),
			BestScore: entry.BestScore,
			BestAt:    entry.BestAt,
			Cycles:    entry.Cycles,
		}
	}
	return snap
}
