package scan

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/launchradar/internal/alerts"
	"github.com/sawpanic/launchradar/internal/config"
	"github.com/sawpanic/launchradar/internal/models"
	"github.com/sawpanic/launchradar/internal/score"
)

// CycleError aborts a cycle that cannot produce meaningful output, such as
// every connector failing at once.
type CycleError struct {
	CycleID string
	Reason  string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("cycle %s aborted: %s", e.CycleID, e.Reason)
}

// CycleResult is the explicit per-cycle summary. Stats live here, not in
// global mutable counters.
type CycleResult struct {
	CycleID          string        `json:"cycle_id"`
	StartedAt        time.Time     `json:"started_at"`
	Duration         time.Duration `json:"duration"`
	Discovered       int           `json:"discovered"`
	Unique           int           `json:"unique"`
	Enriched         int           `json:"enriched"`
	Scored           int           `json:"scored"`
	AlertsSent       int           `json:"alerts_sent"`
	AlertsSuppressed int           `json:"alerts_suppressed"`
	FailedConnectors int           `json:"failed_connectors"`
}

// CycleObserver receives completed cycle summaries, e.g. for Prometheus
// export.
type CycleObserver interface {
	ObserveCycle(CycleResult)
}

// Pipeline runs the discover → correlate → enrich → score → gate sequence.
// Stages hand off complete slices at barriers; nothing downstream starts on
// partial upstream output.
type Pipeline struct {
	aggregator *Aggregator
	correlator *Correlator
	registry   *Registry
	enrichment *EnrichmentStage
	engine     *score.Engine
	gate       *alerts.Gate
	cfg        config.ScannerConfig
	observer   CycleObserver
}

// NewPipeline wires the stages together.
func NewPipeline(agg *Aggregator, reg *Registry, enrich *EnrichmentStage, engine *score.Engine, gate *alerts.Gate, cfg config.ScannerConfig) *Pipeline {
	return &Pipeline{
		aggregator: agg,
		correlator: NewCorrelator(),
		registry:   reg,
		enrichment: enrich,
		engine:     engine,
		gate:       gate,
		cfg:        cfg,
	}
}

// SetObserver attaches a cycle observer. Nil disables observation.
func (p *Pipeline) SetObserver(obs CycleObserver) {
	p.observer = obs
}

// Registry exposes the session registry for read-only consumers.
func (p *Pipeline) Registry() *Registry {
	return p.registry
}

// RunCycle executes one full scan cycle under the configured budget.
func (p *Pipeline) RunCycle(ctx context.Context) (CycleResult, error) {
	result := CycleResult{
		CycleID:   uuid.NewString(),
		StartedAt: time.Now(),
	}
	log.Info().Str("cycle_id", result.CycleID).Msg("Scan cycle started")

	cycleCtx, cancel := context.WithTimeout(ctx, p.cfg.CycleBudget())
	defer cancel()

	// Discovery: fan out, union whatever succeeds.
	discovered, failed := p.aggregator.Discover(cycleCtx)
	result.Discovered = len(discovered)
	result.FailedConnectors = failed
	if failed == p.aggregator.ConnectorCount() && p.aggregator.ConnectorCount() > 0 {
		result.Duration = time.Since(result.StartedAt)
		p.observe(result)
		return result, &CycleError{CycleID: result.CycleID, Reason: "all connectors failed"}
	}

	// Correlation collapses cross-source duplicates before any quota is
	// spent on enrichment.
	unique := p.correlator.Correlate(discovered)
	if max := p.cfg.MaxCandidatesCycle; max > 0 && len(unique) > max {
		log.Warn().
			Int("unique", len(unique)).
			Int("max", max).
			Msg("Candidate cap reached, truncating cycle")
		unique = unique[:max]
	}
	result.Unique = len(unique)

	// Registry upsert hands back private working copies; enrichment and
	// scoring mutate those off-lock and commit results afterwards, so
	// concurrent snapshot readers never see a record mid-mutation.
	tracked := make([]*models.TokenCandidate, 0, len(unique))
	for _, cand := range unique {
		tracked = append(tracked, p.registry.Upsert(cand))
	}

	result.Enriched = p.enrichment.EnrichAll(cycleCtx, tracked)

	now := time.Now()
	breakdowns := make([]score.Breakdown, len(tracked))
	for i, cand := range tracked {
		bd, err := p.engine.Score(cand, now)
		if err != nil {
			log.Warn().
				Err(err).
				Str("mint", cand.Mint).
				Msg("Scoring degraded to base score")
		}
		result.Scored++
		p.registry.Commit(cand)
		p.registry.RecordScore(cand.Mint, bd.Final, now)
		breakdowns[i] = bd
	}

	for i, cand := range tracked {
		outcome, err := p.gate.MaybeAlert(cycleCtx, cand, breakdowns[i])
		switch outcome {
		case alerts.OutcomeSent:
			result.AlertsSent++
		case alerts.OutcomeSuppressed:
			result.AlertsSuppressed++
		case alerts.OutcomeDeliveryFailed:
			log.Warn().Err(err).Str("mint", cand.Mint).Msg("Alert not committed this cycle")
		}
	}

	p.gate.Purge()

	result.Duration = time.Since(result.StartedAt)
	log.Info().
		Str("cycle_id", result.CycleID).
		Int("discovered", result.Discovered).
		Int("unique", result.Unique).
		Int("enriched", result.Enriched).
		Int("scored", result.Scored).
		Int("alerts", result.AlertsSent).
		Int("failed_connectors", result.FailedConnectors).
		Dur("duration", result.Duration).
		Msg("Scan cycle complete")
	p.observe(result)
	return result, nil
}

// Run loops cycles at the configured interval until the context ends. A
// failed cycle logs and waits for the next tick; it never stops the loop.
func (p *Pipeline) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.cfg.CycleInterval())
	defer ticker.Stop()

	for {
		if _, err := p.RunCycle(ctx); err != nil {
			log.Error().Err(err).Msg("Cycle failed, waiting for next tick")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (p *Pipeline) observe(result CycleResult) {
	if p.observer != nil {
		p.observer.ObserveCycle(result)
	}
}
