package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sawpanic/launchradar/internal/config"
	"github.com/sawpanic/launchradar/internal/data/cache"
	"github.com/sawpanic/launchradar/internal/net/httpclient"
	"github.com/sawpanic/launchradar/internal/net/ratelimit"
)

// UpstreamDataError marks a malformed or unexpected upstream payload. The
// candidate proceeds with defaults; the connector logs and moves on.
type UpstreamDataError struct {
	Upstream string
	Reason   string
	Err      error
}

func (e *UpstreamDataError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("upstream data error from %s: %s: %v", e.Upstream, e.Reason, e.Err)
	}
	return fmt.Sprintf("upstream data error from %s: %s", e.Upstream, e.Reason)
}

func (e *UpstreamDataError) Unwrap() error { return e.Err }

// Transport is the rate-limited, cached call path every connector shares.
// Cache hits never consume rate-limiter tokens; only real upstream calls
// wait for the quota window.
type Transport struct {
	upstream string
	cfg      config.ProviderConfig
	limiters *ratelimit.Manager
	pool     *httpclient.ClientPool
	cache    *cache.Cache
}

// NewTransport wires one upstream into the shared limiter manager and
// cache, creating its bounded client pool.
func NewTransport(upstream string, cfg config.ProviderConfig, limiters *ratelimit.Manager, c *cache.Cache) *Transport {
	limiters.AddUpstream(upstream, cfg.RequestsPerMin, cfg.Burst, cfg.MaxQueueDepth)

	pool := httpclient.NewClientPool(httpclient.ClientConfig{
		Upstream:       upstream,
		MaxConcurrency: cfg.MaxConcurrency,
		RequestTimeout: cfg.RequestTimeout(),
		MaxRetries:     cfg.MaxRetries,
		BackoffBase:    cfg.BaseBackoff(),
		BackoffMax:     cfg.MaxBackoff(),
		UserAgent:      "launchradar/1.0",
	})

	return &Transport{
		upstream: upstream,
		cfg:      cfg,
		limiters: limiters,
		pool:     pool,
		cache:    c,
	}
}

// Upstream returns the upstream name this transport serves.
func (t *Transport) Upstream() string { return t.upstream }

// Config returns the provider configuration backing this transport.
func (t *Transport) Config() config.ProviderConfig { return t.cfg }

// GetJSON performs a cached, rate-limited GET and decodes the payload into
// out. ttl selects the cache class (discovery vs detail).
func (t *Transport) GetJSON(ctx context.Context, path string, query url.Values, headers map[string]string, ttl time.Duration, out interface{}) error {
	fingerprint := path
	if len(query) > 0 {
		fingerprint += "?" + query.Encode()
	}
	key := cache.Key{Source: t.upstream, Fingerprint: fingerprint}

	payload, err := t.cache.GetOrFetch(ctx, key, ttl, t.cfg.CostPerCall, func(ctx context.Context) ([]byte, error) {
		return t.fetch(ctx, path, query, headers)
	})
	if err != nil {
		return err
	}

	if err := json.Unmarshal(payload, out); err != nil {
		return &UpstreamDataError{Upstream: t.upstream, Reason: "malformed JSON payload", Err: err}
	}
	return nil
}

func (t *Transport) fetch(ctx context.Context, path string, query url.Values, headers map[string]string) ([]byte, error) {
	if err := t.limiters.Wait(ctx, t.upstream); err != nil {
		return nil, err
	}

	u := t.cfg.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequest(http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if apiKey := t.cfg.APIKey(); apiKey != "" {
		req.Header.Set("X-API-KEY", apiKey)
	}

	resp, err := t.pool.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &UpstreamDataError{
			Upstream: t.upstream,
			Reason:   fmt.Sprintf("HTTP %d for %s", resp.StatusCode, path),
		}
	}
	return io.ReadAll(resp.Body)
}

// PoolStats exposes the transport's client pool statistics.
func (t *Transport) PoolStats() httpclient.Stats {
	return t.pool.GetStats()
}
