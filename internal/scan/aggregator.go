package scan

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/launchradar/internal/models"
	"github.com/sawpanic/launchradar/internal/providers"
)

// Aggregator fans discovery out to every connector and unions whatever
// succeeds. One connector failing, panicking, or timing out never blocks
// the others.
type Aggregator struct {
	connectors []providers.Connector
}

// NewAggregator creates an aggregator over the given connectors.
func NewAggregator(connectors []providers.Connector) *Aggregator {
	return &Aggregator{connectors: connectors}
}

// DiscoveryResult is one connector's contribution to a cycle.
type DiscoveryResult struct {
	Source     string
	Candidates []*models.TokenCandidate
	Err        error
}

// Discover runs all connectors concurrently and joins at a barrier. The
// returned slice holds every candidate from every successful connector;
// failed counts how many connectors contributed nothing.
func (a *Aggregator) Discover(ctx context.Context) (candidates []*models.TokenCandidate, failed int) {
	results := make(chan DiscoveryResult, len(a.connectors))
	var wg sync.WaitGroup

	for _, conn := range a.connectors {
		wg.Add(1)
		go func(conn providers.Connector) {
			defer wg.Done()
			results <- a.discoverOne(ctx, conn)
		}(conn)
	}
	wg.Wait()
	close(results)

	for res := range results {
		if res.Err != nil {
			failed++
			log.Warn().
				Err(res.Err).
				Str("source", res.Source).
				Msg("Connector discovery failed, continuing without it")
			continue
		}
		if len(res.Candidates) == 0 {
			log.Debug().Str("source", res.Source).Msg("Connector returned no candidates")
			continue
		}
		candidates = append(candidates, res.Candidates...)
	}
	return candidates, failed
}

// ConnectorCount returns how many connectors the aggregator fans out to.
func (a *Aggregator) ConnectorCount() int {
	return len(a.connectors)
}

// discoverOne isolates a single connector, converting panics into failed
// results so a misbehaving upstream mapper cannot take down the cycle.
func (a *Aggregator) discoverOne(ctx context.Context, conn providers.Connector) (res DiscoveryResult) {
	res.Source = conn.Name()
	defer func() {
		if r := recover(); r != nil {
			res.Candidates = nil
			res.Err = &providers.UpstreamDataError{
				Upstream: conn.Name(),
				Reason:   "connector panicked during discovery",
			}
			log.Error().
				Str("source", conn.Name()).
				Interface("cause", r).
				Msg("Connector panicked")
		}
	}()

	res.Candidates, res.Err = conn.Discover(ctx)
	return res
}
