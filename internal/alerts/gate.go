package alerts

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/launchradar/internal/models"
	"github.com/sawpanic/launchradar/internal/score"
)

// AlertDeliveryError wraps a notifier failure. Delivery failures never
// commit a cooldown record: the token stays eligible for the next cycle.
type AlertDeliveryError struct {
	Mint string
	Err  error
}

func (e *AlertDeliveryError) Error() string {
	return fmt.Sprintf("alert delivery failed for %s: %v", e.Mint, e.Err)
}

func (e *AlertDeliveryError) Unwrap() error { return e.Err }

// Notifier delivers a rendered alert to an external sink.
type Notifier interface {
	Name() string
	Send(ctx context.Context, payload Payload) error
}

// Outcome classifies what the gate decided for one candidate.
type Outcome int

const (
	// OutcomeBelowThreshold means the score did not reach the alert bar.
	OutcomeBelowThreshold Outcome = iota
	// OutcomeSuppressed means a prior alert is still inside its cooldown.
	OutcomeSuppressed
	// OutcomeDeliveryFailed means the notifier errored; no cooldown was
	// committed.
	OutcomeDeliveryFailed
	// OutcomeSent means the alert was delivered and the cooldown recorded.
	OutcomeSent
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSent:
		return "sent"
	case OutcomeSuppressed:
		return "suppressed"
	case OutcomeDeliveryFailed:
		return "delivery_failed"
	default:
		return "below_threshold"
	}
}

// Gate decides whether a scored candidate becomes a delivered alert. The
// decision is threshold, then cooldown, then delivery; the cooldown record
// is written only after the notifier confirms delivery.
type Gate struct {
	store     Store
	notifiers []Notifier
	threshold float64
	cooldown  time.Duration
	now       func() time.Time
}

// NewGate creates a gate over the given record store and notifier fan-out.
func NewGate(store Store, notifiers []Notifier, threshold float64, cooldown time.Duration) *Gate {
	return &Gate{
		store:     store,
		notifiers: notifiers,
		threshold: threshold,
		cooldown:  cooldown,
		now:       time.Now,
	}
}

// MaybeAlert evaluates one scored candidate. Error is non-nil only for the
// delivery-failed outcome.
func (g *Gate) MaybeAlert(ctx context.Context, cand *models.TokenCandidate, bd score.Breakdown) (Outcome, error) {
	if bd.Final < g.threshold {
		return OutcomeBelowThreshold, nil
	}

	now := g.now()
	if rec, ok := g.store.Get(cand.Mint); ok && !rec.ExpiredAt(now, g.cooldown) {
		log.Debug().
			Str("mint", cand.Mint).
			Str("symbol", cand.Symbol).
			Time("last_alert", rec.AlertedAt).
			Msg("Alert suppressed by cooldown")
		return OutcomeSuppressed, nil
	}

	payload := BuildPayload(cand, bd, now)
	if err := g.deliver(ctx, payload); err != nil {
		log.Error().
			Err(err).
			Str("mint", cand.Mint).
			Msg("Alert delivery failed, token stays eligible")
		return OutcomeDeliveryFailed, err
	}

	g.store.Put(&AlertRecord{
		ID:        uuid.NewString(),
		Mint:      cand.Mint,
		Symbol:    cand.Symbol,
		Score:     bd.Final,
		AlertedAt: now,
	})
	log.Info().
		Str("mint", cand.Mint).
		Str("symbol", cand.Symbol).
		Float64("score", bd.Final).
		Str("tier", bd.Tier.String()).
		Msg("🚨 Alert sent")
	return OutcomeSent, nil
}

// deliver fans the payload out to every notifier. Success means at least
// one sink confirmed; total failure reports the first error.
func (g *Gate) deliver(ctx context.Context, payload Payload) error {
	if len(g.notifiers) == 0 {
		return &AlertDeliveryError{Mint: payload.Mint, Err: fmt.Errorf("no notifiers configured")}
	}

	var firstErr error
	delivered := 0
	for _, n := range g.notifiers {
		if err := n.Send(ctx, payload); err != nil {
			log.Warn().
				Err(err).
				Str("notifier", n.Name()).
				Str("mint", payload.Mint).
				Msg("Notifier send failed")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		delivered++
	}
	if delivered == 0 {
		return &AlertDeliveryError{Mint: payload.Mint, Err: firstErr}
	}
	return nil
}

// Purge drops expired cooldown records; part of the maintenance pass.
func (g *Gate) Purge() int {
	now := g.now()
	removed := 0
	for _, rec := range g.store.All() {
		if rec.ExpiredAt(now, g.cooldown) {
			g.store.Delete(rec.Mint)
			removed++
		}
	}
	if removed > 0 {
		log.Debug().Int("removed", removed).Msg("Expired alert records purged")
	}
	return removed
}
