package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Len(t, cfg.Providers, 5)
	assert.True(t, cfg.Providers["pumpfun"].Enabled)
	assert.Equal(t, "BIRDEYE_API_KEY", cfg.Providers["birdeye"].APIKeyEnv)
	assert.Equal(t, 70.0, cfg.Alerts.ScoreThreshold)
	assert.Equal(t, 168*time.Hour, cfg.Alerts.Cooldown())
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
scanner:
  cycle_interval_secs: 120
  cycle_budget_secs: 90
alerts:
  score_threshold: 80
  cooldown_hours: 24
cache:
  backend: redis
  redis_addr_env: REDIS_ADDR
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 120, cfg.Scanner.CycleIntervalSecs)
	assert.Equal(t, 2*time.Minute, cfg.Scanner.CycleInterval())
	assert.Equal(t, 80.0, cfg.Alerts.ScoreThreshold)
	assert.Equal(t, 24*time.Hour, cfg.Alerts.Cooldown())
	assert.Equal(t, "redis", cfg.Cache.Backend)

	// Untouched sections keep their defaults.
	assert.Equal(t, 3, cfg.Scanner.EnrichWorkers)
	assert.True(t, cfg.Providers["pumpfun"].Enabled)
}

func TestLoad_RejectsInvalidScanner(t *testing.T) {
	path := writeConfig(t, `
scanner:
  cycle_interval_secs: 60
  cycle_budget_secs: 90
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cycle_budget_secs")
}

func TestLoad_RejectsInvalidProvider(t *testing.T) {
	path := writeConfig(t, `
providers:
  pumpfun:
    base_url: ""
    enabled: true
`)

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config")
}

func TestProviderConfig_DurationHelpers(t *testing.T) {
	pc := ProviderConfig{
		TTLSecs:       30,
		DetailTTLSecs: 90,
		TimeoutMS:     2500,
		Backoff:       BackoffConfig{Base: 500, Max: 15000},
	}

	assert.Equal(t, 30*time.Second, pc.DiscoveryTTL())
	assert.Equal(t, 90*time.Second, pc.DetailTTL())
	assert.Equal(t, 2500*time.Millisecond, pc.RequestTimeout())
	assert.Equal(t, 500*time.Millisecond, pc.BaseBackoff())
	assert.Equal(t, 15*time.Second, pc.MaxBackoff())
}

func TestProviderConfig_APIKeyFromEnv(t *testing.T) {
	t.Setenv("TEST_PROVIDER_KEY", "secret-123")
	pc := ProviderConfig{APIKeyEnv: "TEST_PROVIDER_KEY"}
	assert.Equal(t, "secret-123", pc.APIKey())

	none := ProviderConfig{}
	assert.Empty(t, none.APIKey())
}
