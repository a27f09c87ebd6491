package httpclient

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
)

// TransportError is a terminal transport failure after retries are
// exhausted. RateLimited upstream responses that never recovered end up
// here too, carrying the last HTTP status observed.
type TransportError struct {
	Upstream string
	URL      string
	Status   int
	Err      error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("transport error for %s: HTTP %d (%s)", e.Upstream, e.Status, e.URL)
	}
	return fmt.Sprintf("transport error for %s: %v", e.Upstream, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ClientConfig shapes a pool for one upstream.
type ClientConfig struct {
	Upstream       string
	MaxConcurrency int
	RequestTimeout time.Duration
	MaxRetries     int
	BackoffBase    time.Duration
	BackoffMax     time.Duration
	UserAgent      string
}

// ClientPool bounds concurrency with a semaphore, retries throttling and
// transient failures with exponential backoff, and trips a circuit breaker
// when an upstream fails repeatedly.
type ClientPool struct {
	config    ClientConfig
	semaphore chan struct{}
	client    *http.Client
	breaker   *gobreaker.CircuitBreaker
	mu        sync.Mutex
	stats     Stats
}

// Stats counts pool outcomes.
type Stats struct {
	TotalRequests   int64
	SuccessRequests int64
	FailedRequests  int64
	RetriedRequests int64
	BreakerRejected int64
}

// NewClientPool creates a pool for one upstream.
func NewClientPool(config ClientConfig) *ClientPool {
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = 1
	}
	if config.BackoffBase <= 0 {
		config.BackoffBase = 500 * time.Millisecond
	}
	if config.BackoffMax <= 0 {
		config.BackoffMax = 30 * time.Second
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    config.Upstream,
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().
				Str("upstream", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Circuit breaker state change")
		},
	})

	return &ClientPool{
		config:    config,
		semaphore: make(chan struct{}, config.MaxConcurrency),
		client: &http.Client{
			Timeout: config.RequestTimeout,
		},
		breaker: breaker,
	}
}

// Do executes the request with concurrency bounding, retries, and circuit
// breaking. The response body is open on success; callers must close it.
func (cp *ClientPool) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	select {
	case cp.semaphore <- struct{}{}:
		defer func() { <-cp.semaphore }()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if cp.config.UserAgent != "" {
		req.Header.Set("User-Agent", cp.config.UserAgent)
	}

	var lastErr error
	var lastStatus int

	for attempt := 0; attempt <= cp.config.MaxRetries; attempt++ {
		if attempt > 0 {
			cp.incr(func(s *Stats) { s.RetriedRequests++ })
			backoff := cp.backoffFor(attempt)
			log.Debug().
				Str("upstream", cp.config.Upstream).
				Dur("backoff", backoff).
				Int("attempt", attempt).
				Msg("Retrying upstream request")

			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		result, err := cp.breaker.Execute(func() (interface{}, error) {
			resp, err := cp.client.Do(req.WithContext(ctx))
			if err != nil {
				return nil, err
			}
			if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
				resp.Body.Close()
				return nil, &statusError{status: resp.StatusCode}
			}
			return resp, nil
		})

		if err == nil {
			cp.incr(func(s *Stats) { s.TotalRequests++; s.SuccessRequests++ })
			return result.(*http.Response), nil
		}

		lastErr = err
		var se *statusError
		if errors.As(err, &se) {
			lastStatus = se.status
		}

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			cp.incr(func(s *Stats) { s.TotalRequests++; s.BreakerRejected++ })
			break
		}
		if !isRetryable(err) {
			break
		}
	}

	cp.incr(func(s *Stats) { s.TotalRequests++; s.FailedRequests++ })
	return nil, &TransportError{
		Upstream: cp.config.Upstream,
		URL:      req.URL.String(),
		Status:   lastStatus,
		Err:      lastErr,
	}
}

// GetStats returns a snapshot of pool statistics.
func (cp *ClientPool) GetStats() Stats {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	return cp.stats
}

func (cp *ClientPool) incr(fn func(*Stats)) {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	fn(&cp.stats)
}

func (cp *ClientPool) backoffFor(attempt int) time.Duration {
	backoff := cp.config.BackoffBase * time.Duration(1<<uint(attempt-1))
	if backoff > cp.config.BackoffMax {
		backoff = cp.config.BackoffMax
	}
	// Up to 10% jitter so concurrent retries spread out
	jitter := time.Duration(rand.Float64() * 0.1 * float64(backoff))
	return backoff + jitter
}

type statusError struct {
	status int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("HTTP %d", e.status)
}

func isRetryable(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		switch se.status {
		case http.StatusTooManyRequests,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		}
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return errors.Is(err, context.DeadlineExceeded)
}
