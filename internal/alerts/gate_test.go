package alerts

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/launchradar/internal/models"
	"github.com/sawpanic/launchradar/internal/score"
)

type fakeNotifier struct {
	name     string
	failures int
	sent     []Payload
}

func (f *fakeNotifier) Name() string { return f.name }

func (f *fakeNotifier) Send(_ context.Context, p Payload) error {
	if f.failures > 0 {
		f.failures--
		return fmt.Errorf("sink unavailable")
	}
	f.sent = append(f.sent, p)
	return nil
}

func alertWorthy(mint string) (*models.TokenCandidate, score.Breakdown) {
	cand := models.NewTokenCandidate(mint, "", "", "pumpfun", time.Now())
	cand.Symbol = "HOT"
	cand.Name = "Hot Token"
	bd := score.Breakdown{Final: 82.5, Tier: score.TierAlert}
	return cand, bd
}

func TestGate_SendsAboveThresholdAndCommitsCooldown(t *testing.T) {
	store := NewMemoryStore()
	sink := &fakeNotifier{name: "fake"}
	gate := NewGate(store, []Notifier{sink}, 70, 168*time.Hour)

	cand, bd := alertWorthy("MintAAA")
	outcome, err := gate.MaybeAlert(context.Background(), cand, bd)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSent, outcome)
	require.Len(t, sink.sent, 1)
	assert.Equal(t, "MintAAA", sink.sent[0].Mint)
	assert.Contains(t, sink.sent[0].Links.PumpFun, "pump.fun/MintAAA")

	rec, ok := store.Get("MintAAA")
	require.True(t, ok)
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, 82.5, rec.Score)
}

func TestGate_BelowThresholdNeverReachesNotifier(t *testing.T) {
	sink := &fakeNotifier{name: "fake"}
	gate := NewGate(NewMemoryStore(), []Notifier{sink}, 70, 168*time.Hour)

	cand, bd := alertWorthy("MintBBB")
	bd.Final = 69.9
	outcome, err := gate.MaybeAlert(context.Background(), cand, bd)
	require.NoError(t, err)
	assert.Equal(t, OutcomeBelowThreshold, outcome)
	assert.Empty(t, sink.sent)
}

func TestGate_CooldownSuppressesRepeatAlerts(t *testing.T) {
	store := NewMemoryStore()
	sink := &fakeNotifier{name: "fake"}
	gate := NewGate(store, []Notifier{sink}, 70, 168*time.Hour)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	gate.now = func() time.Time { return base }

	cand, bd := alertWorthy("MintCCC")
	outcome, err := gate.MaybeAlert(context.Background(), cand, bd)
	require.NoError(t, err)
	require.Equal(t, OutcomeSent, outcome)

	// Same token an hour later, even with a higher score: suppressed.
	gate.now = func() time.Time { return base.Add(time.Hour) }
	bd.Final = 95
	outcome, err = gate.MaybeAlert(context.Background(), cand, bd)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSuppressed, outcome)
	assert.Len(t, sink.sent, 1)

	// Past the cooldown window the token is eligible again.
	gate.now = func() time.Time { return base.Add(168*time.Hour + time.Minute) }
	outcome, err = gate.MaybeAlert(context.Background(), cand, bd)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSent, outcome)
	assert.Len(t, sink.sent, 2)
}

func TestGate_FailedDeliveryDoesNotCommitCooldown(t *testing.T) {
	store := NewMemoryStore()
	sink := &fakeNotifier{name: "fake", failures: 1}
	gate := NewGate(store, []Notifier{sink}, 70, 168*time.Hour)

	cand, bd := alertWorthy("MintDDD")
	outcome, err := gate.MaybeAlert(context.Background(), cand, bd)
	require.Error(t, err)
	assert.Equal(t, OutcomeDeliveryFailed, outcome)

	var deliveryErr *AlertDeliveryError
	require.ErrorAs(t, err, &deliveryErr)
	assert.Equal(t, "MintDDD", deliveryErr.Mint)

	_, ok := store.Get("MintDDD")
	assert.False(t, ok, "failed delivery must leave no cooldown record")

	// Next cycle the sink recovers and the alert goes out.
	outcome, err = gate.MaybeAlert(context.Background(), cand, bd)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSent, outcome)
}

func TestGate_PartialNotifierFailureStillCommits(t *testing.T) {
	store := NewMemoryStore()
	broken := &fakeNotifier{name: "broken", failures: 10}
	healthy := &fakeNotifier{name: "healthy"}
	gate := NewGate(store, []Notifier{broken, healthy}, 70, 168*time.Hour)

	cand, bd := alertWorthy("MintEEE")
	outcome, err := gate.MaybeAlert(context.Background(), cand, bd)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSent, outcome)
	assert.Len(t, healthy.sent, 1)

	_, ok := store.Get("MintEEE")
	assert.True(t, ok)
}

func TestGate_PurgeRemovesOnlyExpiredRecords(t *testing.T) {
	store := NewMemoryStore()
	gate := NewGate(store, nil, 70, time.Hour)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	gate.now = func() time.Time { return now }

	store.Put(&AlertRecord{ID: "1", Mint: "old", AlertedAt: now.Add(-2 * time.Hour)})
	store.Put(&AlertRecord{ID: "2", Mint: "fresh", AlertedAt: now.Add(-10 * time.Minute)})

	removed := gate.Purge()
	assert.Equal(t, 1, removed)
	_, ok := store.Get("old")
	assert.False(t, ok)
	_, ok = store.Get("fresh")
	assert.True(t, ok)
}

func TestPayload_TextIncludesExplorerLinks(t *testing.T) {
	cand, bd := alertWorthy("MintFFF")
	cand.RiskFactors = []string{"freeze_authority"}
	payload := BuildPayload(cand, bd, time.Now())

	text := payload.Text()
	assert.Contains(t, text, "HOT")
	assert.Contains(t, text, "https://pump.fun/MintFFF")
	assert.Contains(t, text, "https://dexscreener.com/solana/MintFFF")
	assert.Contains(t, text, "https://birdeye.so/token/MintFFF?chain=solana")
	assert.Contains(t, text, "freeze_authority")
}
