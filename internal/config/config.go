package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete scanner configuration loaded from YAML. Secrets
// (API keys, bot tokens, DSNs) come from the environment, not the file.
type Config struct {
	Providers map[string]ProviderConfig `yaml:"providers"`
	Scanner   ScannerConfig             `yaml:"scanner"`
	Cache     CacheConfig               `yaml:"cache"`
	Alerts    AlertsConfig              `yaml:"alerts"`
	Stream    StreamConfig              `yaml:"stream"`
	Server    ServerConfig              `yaml:"server"`
}

// ProviderConfig configures one upstream feed.
type ProviderConfig struct {
	BaseURL        string        `yaml:"base_url"`
	RequestsPerMin int           `yaml:"requests_per_min"` // Rolling per-minute quota
	Burst          int           `yaml:"burst"`            // Token bucket burst capacity
	MaxConcurrency int           `yaml:"max_concurrency"`  // Concurrent in-flight requests
	MaxQueueDepth  int           `yaml:"max_queue_depth"`  // Waiters beyond this fail fast
	TTLSecs        int           `yaml:"ttl_secs"`         // Cache TTL for discovery payloads
	DetailTTLSecs  int           `yaml:"detail_ttl_secs"`  // Cache TTL for per-token detail
	TimeoutMS      int           `yaml:"timeout_ms"`       // Per-request timeout
	MaxRetries     int           `yaml:"max_retries"`
	CostPerCall    float64       `yaml:"cost_per_call"` // Estimated credit cost, for cache savings
	Enabled        bool          `yaml:"enabled"`
	APIKeyEnv      string        `yaml:"api_key_env"` // Env var holding the API key, if any
	Backoff        BackoffConfig `yaml:"backoff_ms"`
}

// BackoffConfig is the exponential backoff applied on upstream throttling.
type BackoffConfig struct {
	Base int `yaml:"base"`
	Max  int `yaml:"max"`
}

// ScannerConfig shapes one discovery cycle.
type ScannerConfig struct {
	CycleIntervalSecs  int `yaml:"cycle_interval_secs"`
	CycleBudgetSecs    int `yaml:"cycle_budget_secs"`    // Soft wall-clock budget per cycle
	EnrichWorkers      int `yaml:"enrich_workers"`       // Bounded enrichment pool
	EnrichTimeoutSecs  int `yaml:"enrich_timeout_secs"`  // Per-candidate enrichment timeout
	MaxCandidatesCycle int `yaml:"max_candidates_cycle"` // Cap on candidates scored per cycle
}

// CacheConfig selects the cache backend and eviction horizon.
type CacheConfig struct {
	Backend      string `yaml:"backend"` // "memory" or "redis"
	RedisAddrEnv string `yaml:"redis_addr_env"`
	MaxEntries   int    `yaml:"max_entries"`
	JanitorSecs  int    `yaml:"janitor_secs"`
}

// AlertsConfig governs the alert gate.
type AlertsConfig struct {
	ScoreThreshold  float64 `yaml:"score_threshold"`
	CooldownHours   int     `yaml:"cooldown_hours"`
	TelegramChatEnv string  `yaml:"telegram_chat_env"`
}

// StreamConfig configures the launch-event websocket feed.
type StreamConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
	BufferN int    `yaml:"buffer_n"`
}

// ServerConfig configures the operational HTTP endpoints.
type ServerConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

// Load reads and validates configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Default returns a configuration that works without a config file, using
// the public endpoints of the supported upstreams.
func Default() *Config {
	return &Config{
		Providers: map[string]ProviderConfig{
			"pumpfun": {
				BaseURL:        "https://frontend-api.pump.fun",
				RequestsPerMin: 60,
				Burst:          5,
				MaxConcurrency: 2,
				MaxQueueDepth:  32,
				TTLSecs:        30,
				DetailTTLSecs:  60,
				TimeoutMS:      8000,
				MaxRetries:     2,
				CostPerCall:    1,
				Enabled:        true,
				Backoff:        BackoffConfig{Base: 500, Max: 15000},
			},
			"graduated": {
				BaseURL:        "https://frontend-api.pump.fun",
				RequestsPerMin: 30,
				Burst:          3,
				MaxConcurrency: 1,
				MaxQueueDepth:  16,
				TTLSecs:        60,
				DetailTTLSecs:  120,
				TimeoutMS:      8000,
				MaxRetries:     2,
				CostPerCall:    1,
				Enabled:        true,
				Backoff:        BackoffConfig{Base: 500, Max: 15000},
			},
			"dexscreener": {
				BaseURL:        "https://api.dexscreener.com",
				RequestsPerMin: 300,
				Burst:          10,
				MaxConcurrency: 3,
				MaxQueueDepth:  64,
				TTLSecs:        30,
				DetailTTLSecs:  60,
				TimeoutMS:      8000,
				MaxRetries:     2,
				CostPerCall:    1,
				Enabled:        true,
				Backoff:        BackoffConfig{Base: 250, Max: 10000},
			},
			"raydium": {
				BaseURL:        "https://api-v3.raydium.io",
				RequestsPerMin: 60,
				Burst:          5,
				MaxConcurrency: 2,
				MaxQueueDepth:  32,
				TTLSecs:        60,
				DetailTTLSecs:  300,
				TimeoutMS:      8000,
				MaxRetries:     2,
				CostPerCall:    1,
				Enabled:        true,
				Backoff:        BackoffConfig{Base: 500, Max: 15000},
			},
			"birdeye": {
				BaseURL:        "https://public-api.birdeye.so",
				RequestsPerMin: 50,
				Burst:          2,
				MaxConcurrency: 2,
				MaxQueueDepth:  32,
				TTLSecs:        60,
				DetailTTLSecs:  300,
				TimeoutMS:      10000,
				MaxRetries:     3,
				CostPerCall:    3,
				Enabled:        true,
				APIKeyEnv:      "BIRDEYE_API_KEY",
				Backoff:        BackoffConfig{Base: 1000, Max: 30000},
			},
		},
		Scanner: ScannerConfig{
			CycleIntervalSecs:  60,
			CycleBudgetSecs:    45,
			EnrichWorkers:      3,
			EnrichTimeoutSecs:  10,
			MaxCandidatesCycle: 50,
		},
		Cache: CacheConfig{
			Backend:     "memory",
			MaxEntries:  10000,
			JanitorSecs: 60,
		},
		Alerts: AlertsConfig{
			ScoreThreshold:  70,
			CooldownHours:   168,
			TelegramChatEnv: "TELEGRAM_CHAT_ID",
		},
		Stream: StreamConfig{
			Enabled: false,
			URL:     "wss://pumpportal.fun/api/data",
			BufferN: 512,
		},
		Server: ServerConfig{
			Enabled: false,
			Listen:  ":8087",
		},
	}
}

// Validate ensures the configuration is consistent.
func (c *Config) Validate() error {
	enabled := 0
	for name, p := range c.Providers {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("provider %s: %w", name, err)
		}
		if p.Enabled {
			enabled++
		}
	}
	if enabled == 0 {
		return fmt.Errorf("no providers enabled")
	}
	if err := c.Scanner.Validate(); err != nil {
		return fmt.Errorf("scanner: %w", err)
	}
	if c.Cache.Backend != "memory" && c.Cache.Backend != "redis" {
		return fmt.Errorf("cache backend must be memory or redis, got %q", c.Cache.Backend)
	}
	if c.Cache.MaxEntries <= 0 {
		return fmt.Errorf("cache max_entries must be positive, got %d", c.Cache.MaxEntries)
	}
	if c.Alerts.ScoreThreshold <= 0 || c.Alerts.ScoreThreshold > 100 {
		return fmt.Errorf("alerts score_threshold must be in (0,100], got %f", c.Alerts.ScoreThreshold)
	}
	if c.Alerts.CooldownHours <= 0 {
		return fmt.Errorf("alerts cooldown_hours must be positive, got %d", c.Alerts.CooldownHours)
	}
	return nil
}

// Validate ensures a single provider configuration is usable.
func (p *ProviderConfig) Validate() error {
	if !p.Enabled {
		return nil
	}
	if p.BaseURL == "" {
		return fmt.Errorf("base_url cannot be empty")
	}
	if p.RequestsPerMin <= 0 {
		return fmt.Errorf("requests_per_min must be positive, got %d", p.RequestsPerMin)
	}
	if p.Burst <= 0 {
		return fmt.Errorf("burst must be positive, got %d", p.Burst)
	}
	if p.MaxConcurrency <= 0 {
		return fmt.Errorf("max_concurrency must be positive, got %d", p.MaxConcurrency)
	}
	if p.MaxQueueDepth <= 0 {
		return fmt.Errorf("max_queue_depth must be positive, got %d", p.MaxQueueDepth)
	}
	if p.TimeoutMS <= 0 {
		return fmt.Errorf("timeout_ms must be positive, got %d", p.TimeoutMS)
	}
	if p.Backoff.Base <= 0 || p.Backoff.Max <= p.Backoff.Base {
		return fmt.Errorf("backoff_ms base/max invalid: %d/%d", p.Backoff.Base, p.Backoff.Max)
	}
	return nil
}

// Validate ensures scanner settings are sane.
func (s *ScannerConfig) Validate() error {
	if s.CycleIntervalSecs <= 0 {
		return fmt.Errorf("cycle_interval_secs must be positive, got %d", s.CycleIntervalSecs)
	}
	if s.CycleBudgetSecs <= 0 || s.CycleBudgetSecs > s.CycleIntervalSecs {
		return fmt.Errorf("cycle_budget_secs must be in (0,%d], got %d", s.CycleIntervalSecs, s.CycleBudgetSecs)
	}
	if s.EnrichWorkers <= 0 {
		return fmt.Errorf("enrich_workers must be positive, got %d", s.EnrichWorkers)
	}
	if s.EnrichTimeoutSecs <= 0 {
		return fmt.Errorf("enrich_timeout_secs must be positive, got %d", s.EnrichTimeoutSecs)
	}
	return nil
}

// APIKey resolves the provider's API key from the environment.
func (p ProviderConfig) APIKey() string {
	if p.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(p.APIKeyEnv)
}

// RequestTimeout returns the per-request timeout as a duration.
func (p ProviderConfig) RequestTimeout() time.Duration {
	return time.Duration(p.TimeoutMS) * time.Millisecond
}

// DiscoveryTTL returns the cache TTL for discovery payloads.
func (p ProviderConfig) DiscoveryTTL() time.Duration {
	return time.Duration(p.TTLSecs) * time.Second
}

// DetailTTL returns the cache TTL for per-token detail payloads.
func (p ProviderConfig) DetailTTL() time.Duration {
	if p.DetailTTLSecs <= 0 {
		return p.DiscoveryTTL()
	}
	return time.Duration(p.DetailTTLSecs) * time.Second
}

// BaseBackoff returns the base backoff as a duration.
func (p ProviderConfig) BaseBackoff() time.Duration {
	return time.Duration(p.Backoff.Base) * time.Millisecond
}

// MaxBackoff returns the backoff ceiling as a duration.
func (p ProviderConfig) MaxBackoff() time.Duration {
	return time.Duration(p.Backoff.Max) * time.Millisecond
}

// CycleInterval returns the pause between scan cycle starts.
func (s *ScannerConfig) CycleInterval() time.Duration {
	return time.Duration(s.CycleIntervalSecs) * time.Second
}

// CycleBudget returns the soft wall-clock budget for one cycle.
func (s *ScannerConfig) CycleBudget() time.Duration {
	return time.Duration(s.CycleBudgetSecs) * time.Second
}

// EnrichTimeout returns the per-candidate enrichment timeout.
func (s *ScannerConfig) EnrichTimeout() time.Duration {
	return time.Duration(s.EnrichTimeoutSecs) * time.Second
}

// Cooldown returns the alert suppression window.
func (a *AlertsConfig) Cooldown() time.Duration {
	return time.Duration(a.CooldownHours) * time.Hour
}
