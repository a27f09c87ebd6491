package scan

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/launchradar/internal/models"
	"github.com/sawpanic/launchradar/internal/providers"
)

// EnrichmentStage fills supplemental attributes on correlated candidates
// through a bounded worker pool. Every call degrades gracefully: a failed
// or timed-out enrichment leaves neutral defaults in place and the
// candidate proceeds on the fast-track path.
type EnrichmentStage struct {
	enrichers []providers.Enricher
	workers   int
	timeout   time.Duration
}

// NewEnrichmentStage creates the stage with the given pool size and
// per-candidate timeout.
func NewEnrichmentStage(enrichers []providers.Enricher, workers int, timeout time.Duration) *EnrichmentStage {
	if workers <= 0 {
		workers = 3
	}
	return &EnrichmentStage{
		enrichers: enrichers,
		workers:   workers,
		timeout:   timeout,
	}
}

// EnrichAll processes candidates through the worker pool and returns how
// many ended up fully enriched. Candidate order is irrelevant: each writes
// only to itself and the registry merge is keyed by mint.
func (s *EnrichmentStage) EnrichAll(ctx context.Context, candidates []*models.TokenCandidate) int {
	work := make(chan *models.TokenCandidate)
	var wg sync.WaitGroup
	var mu sync.Mutex
	enriched := 0

	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for cand := range work {
				s.enrichOne(ctx, cand)
				if cand.Enriched {
					mu.Lock()
					enriched++
					mu.Unlock()
				}
			}
		}()
	}

	for _, cand := range candidates {
		select {
		case work <- cand:
		case <-ctx.Done():
			// Cycle budget spent: remaining candidates keep their
			// defaults and fast-track through scoring.
			close(work)
			wg.Wait()
			return enriched
		}
	}
	close(work)
	wg.Wait()
	return enriched
}

// enrichOne runs every enricher against one candidate under its own
// timeout. A single enricher failing never stops the rest.
func (s *EnrichmentStage) enrichOne(ctx context.Context, cand *models.TokenCandidate) {
	if !s.needsEnrichment(cand) {
		s.markEnriched(cand)
		return
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	for _, enricher := range s.enrichers {
		if callCtx.Err() != nil {
			log.Debug().
				Str("mint", cand.Mint).
				Msg("Enrichment timeout, proceeding with partial data")
			break
		}
		if err := enricher.Enrich(callCtx, cand); err != nil {
			log.Debug().
				Err(err).
				Str("mint", cand.Mint).
				Str("enricher", enricher.Name()).
				Msg("Enrichment call degraded")
		}
	}

	s.markEnriched(cand)
}

// needsEnrichment reports whether required attributes are still missing.
func (s *EnrichmentStage) needsEnrichment(c *models.TokenCandidate) bool {
	return c.LiquidityUSD == 0 ||
		(c.Volume1h == 0 && c.Volume24h == 0) ||
		c.HolderCount == 0 ||
		!c.SecurityChecked
}

// markEnriched sets the Enriched flag once the core required fields are
// populated. Security stays optional: an unreachable security upstream
// leaves the neutral default in place rather than forcing the fast-track
// path.
func (s *EnrichmentStage) markEnriched(c *models.TokenCandidate) {
	if c.LiquidityUSD > 0 && (c.Volume1h > 0 || c.Volume24h > 0) && c.HolderCount > 0 {
		c.Enriched = true
	}
}
