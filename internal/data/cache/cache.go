package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Key identifies a cached upstream response by source and request
// fingerprint (path plus normalized query).
type Key struct {
	Source      string
	Fingerprint string
}

func (k Key) String() string {
	return k.Source + ":" + k.Fingerprint
}

// Backend stores payloads with per-entry TTL. Implementations must never
// return an entry whose age exceeds its TTL.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error
	Close() error
}

// Cache wraps a backend with fetch-on-miss semantics and hit/cost-savings
// accounting. Concurrent misses for the same key may fetch more than once;
// that is harmless because all fetchers compute the same value.
type Cache struct {
	backend Backend

	mu        sync.Mutex
	hits      int64
	misses    int64
	costSaved float64
	bySource  map[string]*SourceStats
}

// SourceStats tracks per-source cache accounting.
type SourceStats struct {
	Hits      int64   `json:"hits"`
	Misses    int64   `json:"misses"`
	CostSaved float64 `json:"cost_saved"`
}

// Stats is a snapshot of cumulative cache accounting.
type Stats struct {
	Hits      int64                   `json:"hits"`
	Misses    int64                   `json:"misses"`
	HitRatio  float64                 `json:"hit_ratio"`
	CostSaved float64                 `json:"cost_saved"`
	BySource  map[string]*SourceStats `json:"by_source"`
}

// New creates a cache over the given backend.
func New(backend Backend) *Cache {
	return &Cache{
		backend:  backend,
		bySource: make(map[string]*SourceStats),
	}
}

// GetOrFetch returns the cached payload when its age is within ttl,
// otherwise invokes fetch, stores the result, and returns it. cost is the
// estimated upstream credit cost of one fetch, credited to the savings
// counter on every hit.
func (c *Cache) GetOrFetch(ctx context.Context, key Key, ttl time.Duration, cost float64, fetch func(context.Context) ([]byte, error)) ([]byte, error) {
	if payload, ok, err := c.backend.Get(ctx, key.String()); err == nil && ok {
		c.record(key.Source, true, cost)
		return payload, nil
	} else if err != nil {
		log.Warn().Err(err).Str("key", key.String()).Msg("Cache backend read failed")
	}

	payload, err := fetch(ctx)
	if err != nil {
		return nil, err
	}
	c.record(key.Source, false, cost)

	if err := c.backend.Set(ctx, key.String(), payload, ttl); err != nil {
		log.Warn().Err(err).Str("key", key.String()).Msg("Cache backend write failed")
	}
	return payload, nil
}

// Stats returns cumulative accounting across all sources.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := c.hits + c.misses
	ratio := 0.0
	if total > 0 {
		ratio = float64(c.hits) / float64(total)
	}

	bySource := make(map[string]*SourceStats, len(c.bySource))
	for source, s := range c.bySource {
		cp := *s
		bySource[source] = &cp
	}

	return Stats{
		Hits:      c.hits,
		Misses:    c.misses,
		HitRatio:  ratio,
		CostSaved: c.costSaved,
		BySource:  bySource,
	}
}

// Close releases backend resources.
func (c *Cache) Close() error {
	return c.backend.Close()
}

func (c *Cache) record(source string, hit bool, cost float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.bySource[source]
	if !ok {
		s = &SourceStats{}
		c.bySource[source] = s
	}
	if hit {
		c.hits++
		s.Hits++
		c.costSaved += cost
		s.CostSaved += cost
	} else {
		c.misses++
		s.Misses++
	}
}

// Fingerprint builds a request fingerprint from path segments.
func Fingerprint(parts ...string) string {
	fp := ""
	for i, p := range parts {
		if i > 0 {
			fp += "|"
		}
		fp += p
	}
	return fp
}

// ErrBackendClosed is returned by backends after Close.
var ErrBackendClosed = fmt.Errorf("cache backend closed")
