package main

import (
	"context"
	"fmt"
	"os"
	"time"

	redis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/launchradar/internal/alerts"
	"github.com/sawpanic/launchradar/internal/config"
	"github.com/sawpanic/launchradar/internal/data/cache"
	httpiface "github.com/sawpanic/launchradar/internal/interfaces/http"
	"github.com/sawpanic/launchradar/internal/metrics"
	"github.com/sawpanic/launchradar/internal/net/ratelimit"
	"github.com/sawpanic/launchradar/internal/notify"
	"github.com/sawpanic/launchradar/internal/persistence/postgres"
	"github.com/sawpanic/launchradar/internal/providers"
	"github.com/sawpanic/launchradar/internal/scan"
	"github.com/sawpanic/launchradar/internal/score"
	"github.com/sawpanic/launchradar/internal/stream"
)

// app holds the wired pipeline plus its optional side services.
type app struct {
	cfg      *config.Config
	cache    *cache.Cache
	pipeline *scan.Pipeline
	firehose *stream.Firehose
	server   *httpiface.Server
	store    *postgres.Store
	closers  []func()
}

// buildApp wires configuration into a runnable pipeline. Optional pieces
// (Redis, Postgres, Telegram, the stream, the HTTP server) attach only when
// configured; the core pipeline never depends on them.
func buildApp(cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg}

	backend, err := a.cacheBackend()
	if err != nil {
		return nil, err
	}
	a.cache = cache.New(backend)

	limiters := ratelimit.NewManager()
	transports := make(map[string]*providers.Transport, len(cfg.Providers))
	for name, pc := range cfg.Providers {
		if !pc.Enabled {
			log.Info().Str("upstream", name).Msg("Upstream disabled by config")
			continue
		}
		transports[name] = providers.NewTransport(name, pc, limiters, a.cache)
	}

	var connectors []providers.Connector
	if t, ok := transports["pumpfun"]; ok {
		connectors = append(connectors, providers.NewPumpFunConnector(t))
	}
	if t, ok := transports["graduated"]; ok {
		connectors = append(connectors, providers.NewGraduatedConnector(t))
	}
	if t, ok := transports["raydium"]; ok {
		connectors = append(connectors, providers.NewRaydiumConnector(t))
	}

	var enrichers []providers.Enricher
	if t, ok := transports["dexscreener"]; ok {
		dex := providers.NewDexScreenerConnector(t)
		connectors = append(connectors, dex)
		enrichers = append(enrichers, dex)
	}
	if t, ok := transports["birdeye"]; ok {
		enrichers = append(enrichers, providers.NewBirdeyeConnector(t))
	}
	if len(connectors) == 0 {
		return nil, fmt.Errorf("no discovery upstreams enabled")
	}

	if cfg.Stream.Enabled {
		a.firehose = stream.NewFirehose(cfg.Stream.URL, cfg.Stream.BufferN)
		connectors = append(connectors, a.firehose)
	}

	alertStore, err := a.alertStore()
	if err != nil {
		return nil, err
	}
	gate := alerts.NewGate(alertStore, a.notifiers(), cfg.Alerts.ScoreThreshold, cfg.Alerts.Cooldown())

	registry := scan.NewRegistry()
	enrichStage := scan.NewEnrichmentStage(enrichers, cfg.Scanner.EnrichWorkers, cfg.Scanner.EnrichTimeout())
	a.pipeline = scan.NewPipeline(
		scan.NewAggregator(connectors),
		registry,
		enrichStage,
		score.NewEngine(),
		gate,
		cfg.Scanner,
	)
	a.pipeline.SetObserver(metrics.NewTelemetry(
		metrics.NewCollector(prometheus.DefaultRegisterer),
		registry,
		a.cache,
		limiters,
	))

	if cfg.Server.Enabled {
		a.server = httpiface.NewServer(cfg.Server.Listen, registry, a.cache)
	}
	return a, nil
}

// cacheBackend selects memory or Redis per config.
func (a *app) cacheBackend() (cache.Backend, error) {
	cc := a.cfg.Cache
	if cc.Backend != "redis" {
		return cache.NewMemoryStore(cc.MaxEntries, time.Duration(cc.JanitorSecs)*time.Second), nil
	}

	addr := os.Getenv(cc.RedisAddrEnv)
	if addr == "" {
		return nil, fmt.Errorf("cache backend is redis but %s is not set", cc.RedisAddrEnv)
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	log.Info().Str("addr", addr).Msg("Redis cache backend connected")
	return cache.NewRedisStore(client, "launchradar"), nil
}

// alertStore prefers Postgres when DATABASE_URL is set so cooldowns survive
// restarts; otherwise cooldown state is session-scoped.
func (a *app) alertStore() (alerts.Store, error) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		return alerts.NewMemoryStore(), nil
	}
	store, err := postgres.Open(dsn)
	if err != nil {
		return nil, err
	}
	a.store = store
	a.closers = append(a.closers, func() { store.Close() })
	log.Info().Msg("Postgres persistence enabled")
	return store.Alerts(), nil
}

// notifiers builds the delivery fan-out: Telegram when configured, console
// always.
func (a *app) notifiers() []alerts.Notifier {
	out := []alerts.Notifier{notify.Console{}}
	if a.cfg.Alerts.TelegramChatEnv != "" {
		tg, err := notify.NewTelegramFromEnv(a.cfg.Alerts.TelegramChatEnv)
		if err != nil {
			log.Warn().Err(err).Msg("Telegram notifier unavailable, console only")
		} else {
			out = append(out, tg)
		}
	}
	return out
}

// snapshot persists the current registry when Postgres is attached.
func (a *app) snapshot(ctx context.Context) {
	if a.store == nil {
		return
	}
	snap := a.pipeline.Registry().Snapshot()
	entries := make(map[string]postgres.SnapshotEntry, len(snap))
	for mint, entry := range snap {
		entries[mint] = postgres.SnapshotEntry{
			Candidate: entry.Candidate,
			BestScore: entry.BestScore,
		}
	}
	if err := a.store.SaveSnapshot(ctx, time.Now(), entries); err != nil {
		log.Error().Err(err).Msg("Registry snapshot failed")
	}
}

// close tears down attached services.
func (a *app) close() {
	for _, fn := range a.closers {
		fn()
	}
	a.cache.Close()
}
