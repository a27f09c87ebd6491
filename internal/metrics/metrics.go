// Package metrics exports pipeline counters for Prometheus scraping.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/sawpanic/launchradar/internal/data/cache"
	"github.com/sawpanic/launchradar/internal/net/ratelimit"
	"github.com/sawpanic/launchradar/internal/scan"
)

// Collector implements scan.CycleObserver and exposes per-cycle pipeline
// stats. All metrics live under the launchradar namespace.
type Collector struct {
	cyclesTotal      prometheus.Counter
	cycleDuration    prometheus.Histogram
	discovered       prometheus.Counter
	unique           prometheus.Counter
	enriched         prometheus.Counter
	scored           prometheus.Counter
	alertsSent       prometheus.Counter
	alertsSuppressed prometheus.Counter
	failedConnectors prometheus.Counter
	trackedTokens    prometheus.Gauge
	cacheHitRatio    *prometheus.GaugeVec
	limiterRejected  *prometheus.CounterVec
}

// NewCollector registers the metric set on the given registerer. Pass
// prometheus.DefaultRegisterer for the standard /metrics endpoint.
func NewCollector(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)
	return &Collector{
		cyclesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "launchradar",
			Name:      "cycles_total",
			Help:      "Completed scan cycles.",
		}),
		cycleDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "launchradar",
			Name:      "cycle_duration_seconds",
			Help:      "Wall-clock duration of one scan cycle.",
			Buckets:   []float64{1, 2.5, 5, 10, 20, 30, 45, 60},
		}),
		discovered: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "launchradar",
			Name:      "candidates_discovered_total",
			Help:      "Raw candidates returned by connectors.",
		}),
		unique: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "launchradar",
			Name:      "candidates_unique_total",
			Help:      "Candidates remaining after cross-source correlation.",
		}),
		enriched: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "launchradar",
			Name:      "candidates_enriched_total",
			Help:      "Candidates fully enriched before scoring.",
		}),
		scored: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "launchradar",
			Name:      "candidates_scored_total",
			Help:      "Candidates passed through the scoring engine.",
		}),
		alertsSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "launchradar",
			Name:      "alerts_sent_total",
			Help:      "Alerts delivered to at least one notifier.",
		}),
		alertsSuppressed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "launchradar",
			Name:      "alerts_suppressed_total",
			Help:      "Alerts withheld by the cooldown window.",
		}),
		failedConnectors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "launchradar",
			Name:      "connector_failures_total",
			Help:      "Connector discovery calls that contributed nothing.",
		}),
		trackedTokens: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "launchradar",
			Name:      "tracked_tokens",
			Help:      "Tokens currently held in the session registry.",
		}),
		cacheHitRatio: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "launchradar",
			Name:      "cache_hit_ratio",
			Help:      "Cache hit ratio per upstream source.",
		}, []string{"source"}),
		limiterRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "launchradar",
			Name:      "limiter_rejected_total",
			Help:      "Requests rejected by the per-upstream queue ceiling.",
		}, []string{"upstream"}),
	}
}

// ObserveCycle folds one completed cycle into the counters.
func (c *Collector) ObserveCycle(result scan.CycleResult) {
	c.cyclesTotal.Inc()
	c.cycleDuration.Observe(result.Duration.Seconds())
	c.discovered.Add(float64(result.Discovered))
	c.unique.Add(float64(result.Unique))
	c.enriched.Add(float64(result.Enriched))
	c.scored.Add(float64(result.Scored))
	c.alertsSent.Add(float64(result.AlertsSent))
	c.alertsSuppressed.Add(float64(result.AlertsSuppressed))
	c.failedConnectors.Add(float64(result.FailedConnectors))
}

// SetTrackedTokens records the current registry size.
func (c *Collector) SetTrackedTokens(n int) {
	c.trackedTokens.Set(float64(n))
}

// SetCacheHitRatio records the hit ratio for one source.
func (c *Collector) SetCacheHitRatio(source string, ratio float64) {
	c.cacheHitRatio.WithLabelValues(source).Set(ratio)
}

// AddLimiterRejected counts queue-ceiling rejections for one upstream.
func (c *Collector) AddLimiterRejected(upstream string, n uint64) {
	c.limiterRejected.WithLabelValues(upstream).Add(float64(n))
}

// Telemetry implements scan.CycleObserver over a Collector, sampling the
// gauges that live outside the cycle result after every cycle: registry
// size, per-source cache hit ratios, and limiter rejections. Rejections are
// cumulative in the limiter, so only the delta since the last sample is
// added to the counter.
type Telemetry struct {
	collector *Collector
	registry  *scan.Registry
	cache     *cache.Cache
	limiters  *ratelimit.Manager

	lastRejected map[string]int64
}

// NewTelemetry wires a Collector to the pipeline's live components.
func NewTelemetry(collector *Collector, registry *scan.Registry, c *cache.Cache, limiters *ratelimit.Manager) *Telemetry {
	return &Telemetry{
		collector:    collector,
		registry:     registry,
		cache:        c,
		limiters:     limiters,
		lastRejected: make(map[string]int64),
	}
}

// ObserveCycle folds the cycle result into the counters and refreshes the
// sampled gauges. Cycles run one at a time, so the delta map needs no lock.
func (t *Telemetry) ObserveCycle(result scan.CycleResult) {
	t.collector.ObserveCycle(result)
	t.collector.SetTrackedTokens(t.registry.Len())

	for source, stats := range t.cache.Stats().BySource {
		total := stats.Hits + stats.Misses
		if total == 0 {
			continue
		}
		t.collector.SetCacheHitRatio(source, float64(stats.Hits)/float64(total))
	}

	for upstream, stats := range t.limiters.Stats() {
		if delta := stats.Rejected - t.lastRejected[upstream]; delta > 0 {
			t.collector.AddLimiterRejected(upstream, uint64(delta))
			t.lastRejected[upstream] = stats.Rejected
		}
	}
}
