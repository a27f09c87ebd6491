package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/time/rate"
)

// ErrQueueFull is returned when too many callers are already waiting for an
// upstream's quota window. Callers should treat it as a fail-fast signal,
// not retry immediately.
var ErrQueueFull = errors.New("rate limiter queue full")

// Limiter enforces a rolling per-minute quota for a single upstream using a
// token bucket. Callers suspend in Wait until the window admits the call,
// unless the waiter queue is already at its ceiling.
type Limiter struct {
	upstream string
	limiter  *rate.Limiter
	maxQueue int64
	waiting  int64 // Current waiter count (atomic)
	admitted int64 // Total admitted calls (atomic)
	rejected int64 // Total fail-fast rejections (atomic)
}

// NewLimiter creates a limiter admitting requestsPerMin calls per rolling
// minute with the given burst, failing fast once maxQueue callers wait.
func NewLimiter(upstream string, requestsPerMin, burst, maxQueue int) *Limiter {
	return &Limiter{
		upstream: upstream,
		limiter:  rate.NewLimiter(rate.Limit(float64(requestsPerMin)/60.0), burst),
		maxQueue: int64(maxQueue),
	}
}

// Allow reports whether a call is admitted right now without waiting.
func (l *Limiter) Allow() bool {
	if l.limiter.Allow() {
		atomic.AddInt64(&l.admitted, 1)
		return true
	}
	return false
}

// Wait blocks until the quota window admits a call or ctx is cancelled.
// When the waiter queue exceeds its ceiling it returns ErrQueueFull
// immediately instead of queueing.
func (l *Limiter) Wait(ctx context.Context) error {
	if atomic.AddInt64(&l.waiting, 1) > l.maxQueue {
		atomic.AddInt64(&l.waiting, -1)
		atomic.AddInt64(&l.rejected, 1)
		return fmt.Errorf("%w: upstream %s", ErrQueueFull, l.upstream)
	}
	defer atomic.AddInt64(&l.waiting, -1)

	if err := l.limiter.Wait(ctx); err != nil {
		return err
	}
	atomic.AddInt64(&l.admitted, 1)
	return nil
}

// Stats returns a snapshot of limiter state.
func (l *Limiter) Stats() Stats {
	return Stats{
		Upstream:        l.upstream,
		RequestsPerMin:  float64(l.limiter.Limit()) * 60.0,
		Burst:           l.limiter.Burst(),
		TokensAvailable: l.limiter.Tokens(),
		Waiting:         atomic.LoadInt64(&l.waiting),
		Admitted:        atomic.LoadInt64(&l.admitted),
		Rejected:        atomic.LoadInt64(&l.rejected),
	}
}

// Stats represents limiter statistics for one upstream.
type Stats struct {
	Upstream        string  `json:"upstream"`
	RequestsPerMin  float64 `json:"requests_per_min"`
	Burst           int     `json:"burst"`
	TokensAvailable float64 `json:"tokens_available"`
	Waiting         int64   `json:"waiting"`
	Admitted        int64   `json:"admitted"`
	Rejected        int64   `json:"rejected"`
}

// Manager holds one limiter per upstream feed.
type Manager struct {
	mu       sync.RWMutex
	limiters map[string]*Limiter
}

// NewManager creates an empty limiter manager.
func NewManager() *Manager {
	return &Manager{limiters: make(map[string]*Limiter)}
}

// AddUpstream registers a limiter for an upstream.
func (m *Manager) AddUpstream(upstream string, requestsPerMin, burst, maxQueue int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.limiters[upstream] = NewLimiter(upstream, requestsPerMin, burst, maxQueue)
}

// Get returns the limiter for an upstream, if registered.
func (m *Manager) Get(upstream string) (*Limiter, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	l, ok := m.limiters[upstream]
	return l, ok
}

// Wait blocks until the named upstream admits a call. Unregistered
// upstreams are admitted immediately.
func (m *Manager) Wait(ctx context.Context, upstream string) error {
	l, ok := m.Get(upstream)
	if !ok {
		return nil
	}
	return l.Wait(ctx)
}

// Stats returns statistics for every registered upstream.
func (m *Manager) Stats() map[string]Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := make(map[string]Stats, len(m.limiters))
	for name, l := range m.limiters {
		stats[name] = l.Stats()
	}
	return stats
}
