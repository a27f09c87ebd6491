package scan

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/launchradar/internal/alerts"
	"github.com/sawpanic/launchradar/internal/config"
	"github.com/sawpanic/launchradar/internal/models"
	"github.com/sawpanic/launchradar/internal/providers"
	"github.com/sawpanic/launchradar/internal/score"
)

// stubEnricher fills the attributes a strong candidate needs, stalling on
// mints listed in slow until the per-candidate timeout fires.
type stubEnricher struct {
	slow map[string]bool

	mu    sync.Mutex
	calls int
}

func (s *stubEnricher) Name() string { return "stub" }

func (s *stubEnricher) Enrich(ctx context.Context, c *models.TokenCandidate) error {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()

	if s.slow[c.Mint] {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(5 * time.Second):
		}
	}

	c.Symbol = "TKN"
	c.Name = "Token"
	c.PriceUSD = 0.0005
	c.LiquidityUSD = 150000
	c.MarketCapUSD = 50000
	c.Volume1h = 3000
	c.Volume24h = 10000
	c.PriceChange5m = 4
	c.PriceChange1h = 22
	c.Trades1h = 400
	c.BuySellRatio = 2.5
	c.HolderCount = 600
	c.SecurityScore = 100
	c.SecurityChecked = true
	c.AddPlatform("dexscreener")
	c.AddPlatform("birdeye")
	c.LastUpdated = time.Now()
	return nil
}

type captureNotifier struct {
	mu   sync.Mutex
	sent []alerts.Payload
	fail bool
}

func (n *captureNotifier) Name() string { return "capture" }

func (n *captureNotifier) Send(_ context.Context, p alerts.Payload) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail {
		return fmt.Errorf("sink down")
	}
	n.sent = append(n.sent, p)
	return nil
}

func (n *captureNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

func scannerConfig() config.ScannerConfig {
	return config.ScannerConfig{
		CycleIntervalSecs:  60,
		CycleBudgetSecs:    45,
		EnrichWorkers:      3,
		EnrichTimeoutSecs:  1,
		MaxCandidatesCycle: 50,
	}
}

func newTestPipeline(connectors []providers.Connector, enricher providers.Enricher, notifier alerts.Notifier) *Pipeline {
	gate := alerts.NewGate(alerts.NewMemoryStore(), []alerts.Notifier{notifier}, 70, 168*time.Hour)
	cfg := scannerConfig()
	stage := NewEnrichmentStage([]providers.Enricher{enricher}, cfg.EnrichWorkers, cfg.EnrichTimeout())
	return NewPipeline(NewAggregator(connectors), NewRegistry(), stage, score.NewEngine(), gate, cfg)
}

func TestEnrichmentStage_OneSlowCandidateDegradesAlone(t *testing.T) {
	enricher := &stubEnricher{slow: map[string]bool{"SLOW": true}}
	stage := NewEnrichmentStage([]providers.Enricher{enricher}, 3, 100*time.Millisecond)

	candidates := make([]*models.TokenCandidate, 0, 5)
	for _, mint := range []string{"A", "B", "SLOW", "C", "D"} {
		candidates = append(candidates, newCandidate(mint, "pumpfun", 30*time.Minute))
	}

	enriched := stage.EnrichAll(context.Background(), candidates)
	assert.Equal(t, 4, enriched)

	for _, c := range candidates {
		if c.Mint == "SLOW" {
			assert.False(t, c.Enriched, "timed-out candidate proceeds with defaults")
			assert.Equal(t, 50.0, c.SecurityScore, "neutral security default untouched")
		} else {
			assert.True(t, c.Enriched, "candidate %s", c.Mint)
		}
	}
}

func TestEnrichmentStage_AlreadyCompleteSkipsUpstream(t *testing.T) {
	enricher := &stubEnricher{}
	stage := NewEnrichmentStage([]providers.Enricher{enricher}, 2, time.Second)

	full := newCandidate("FULL", "birdeye", time.Hour)
	full.LiquidityUSD = 50000
	full.Volume1h = 1000
	full.HolderCount = 200
	full.SecurityChecked = true

	enriched := stage.EnrichAll(context.Background(), []*models.TokenCandidate{full})
	assert.Equal(t, 1, enriched)
	assert.Zero(t, enricher.calls, "complete candidates spend no API quota")
}

func TestPipeline_CycleDiscoversScoresAndAlerts(t *testing.T) {
	conn := &stubConnector{name: "pumpfun", out: []*models.TokenCandidate{
		newCandidate("HOT1", "pumpfun", 30*time.Minute),
	}}
	notifier := &captureNotifier{}
	p := newTestPipeline([]providers.Connector{conn}, &stubEnricher{}, notifier)

	result, err := p.RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.Discovered)
	assert.Equal(t, 1, result.Unique)
	assert.Equal(t, 1, result.Enriched)
	assert.Equal(t, 1, result.Scored)
	assert.Equal(t, 1, result.AlertsSent)
	assert.NotEmpty(t, result.CycleID)
	require.Equal(t, 1, notifier.count())

	entry, ok := p.Registry().Get("HOT1")
	require.True(t, ok)
	assert.Greater(t, entry.BestScore, 70.0)
}

func TestPipeline_AllConnectorsFailedAbortsCycle(t *testing.T) {
	p := newTestPipeline([]providers.Connector{
		&stubConnector{name: "pumpfun", err: fmt.Errorf("down")},
		&stubConnector{name: "raydium", err: fmt.Errorf("down")},
	}, &stubEnricher{}, &captureNotifier{})

	result, err := p.RunCycle(context.Background())
	require.Error(t, err)

	var cycleErr *CycleError
	require.ErrorAs(t, err, &cycleErr)
	assert.Equal(t, result.CycleID, cycleErr.CycleID)
	assert.Equal(t, 2, result.FailedConnectors)
	assert.Zero(t, result.Scored)
}

func TestPipeline_RepeatCycleSuppressedByCooldown(t *testing.T) {
	conn := &stubConnector{name: "pumpfun", out: []*models.TokenCandidate{
		newCandidate("HOT1", "pumpfun", 30*time.Minute),
	}}
	notifier := &captureNotifier{}
	p := newTestPipeline([]providers.Connector{conn}, &stubEnricher{}, notifier)

	first, err := p.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, first.AlertsSent)

	conn.out = []*models.TokenCandidate{newCandidate("HOT1", "pumpfun", 35*time.Minute)}
	second, err := p.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Zero(t, second.AlertsSent)
	assert.Equal(t, 1, second.AlertsSuppressed)
	assert.Equal(t, 1, notifier.count(), "one delivered alert across both cycles")
}

func TestPipeline_DuplicateAcrossSourcesScoredOnce(t *testing.T) {
	now := time.Now()
	fromPump := models.NewTokenCandidate("DUP", "", "", "pumpfun", now.Add(-time.Hour))
	fromRay := models.NewTokenCandidate("DUP", "", "", "raydium", now.Add(-time.Hour))
	fromRay.LiquidityUSD = 30000
	fromRay.LastUpdated = now

	p := newTestPipeline([]providers.Connector{
		&stubConnector{name: "pumpfun", out: []*models.TokenCandidate{fromPump}},
		&stubConnector{name: "raydium", out: []*models.TokenCandidate{fromRay}},
	}, &stubEnricher{}, &captureNotifier{})

	result, err := p.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, result.Discovered)
	assert.Equal(t, 1, result.Unique)
	assert.Equal(t, 1, result.Scored)
	assert.Equal(t, 1, p.Registry().Len())
}

func TestPipeline_CandidateCapTruncates(t *testing.T) {
	out := make([]*models.TokenCandidate, 0, 10)
	for i := 0; i < 10; i++ {
		out = append(out, newCandidate(fmt.Sprintf("M%d", i), "pumpfun", time.Hour))
	}
	conn := &stubConnector{name: "pumpfun", out: out}

	notifier := &captureNotifier{}
	p := newTestPipeline([]providers.Connector{conn}, &stubEnricher{}, notifier)
	p.cfg.MaxCandidatesCycle = 4

	result, err := p.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 10, result.Discovered)
	assert.Equal(t, 4, result.Unique)
	assert.Equal(t, 4, result.Scored)
}

func TestPipeline_FailedDeliveryRetriesNextCycle(t *testing.T) {
	conn := &stubConnector{name: "pumpfun", out: []*models.TokenCandidate{
		newCandidate("HOT1", "pumpfun", 30*time.Minute),
	}}
	notifier := &captureNotifier{fail: true}
	p := newTestPipeline([]providers.Connector{conn}, &stubEnricher{}, notifier)

	first, err := p.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Zero(t, first.AlertsSent)

	notifier.fail = false
	conn.out = []*models.TokenCandidate{newCandidate("HOT1", "pumpfun", 35*time.Minute)}
	second, err := p.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, second.AlertsSent, "no cooldown committed on failed delivery")
}
