package score

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/launchradar/internal/models"
)

// ScoringError marks a failed family computation. The candidate keeps its
// last-known base score instead of propagating the failure.
type ScoringError struct {
	Mint   string
	Family string
	Cause  interface{}
}

func (e *ScoringError) Error() string {
	return fmt.Sprintf("scoring failed for %s in family %s: %v", e.Mint, e.Family, e.Cause)
}

// Engine scores candidates: raw -> fast-tracked (partial data) or
// fully-scored (complete data) -> classified. Family functions are fields
// so tests can exercise the failure boundary.
type Engine struct {
	platform func(*models.TokenCandidate, time.Time) float64
	momentum func(*models.TokenCandidate) float64
	safety   func(*models.TokenCandidate) float64
	cross    func(*models.TokenCandidate) float64
}

// NewEngine creates a scoring engine with the standard family functions.
func NewEngine() *Engine {
	return &Engine{
		platform: platformScore,
		momentum: momentumScore,
		safety:   safetyScore,
		cross:    crossPlatformScore,
	}
}

// Score computes the breakdown for one candidate. A panic inside any
// family computation is recovered here; the candidate falls back to its
// last-known base score and the breakdown carries the Degraded marker
// alongside the returned ScoringError.
func (e *Engine) Score(c *models.TokenCandidate, now time.Time) (b Breakdown, err error) {
	family := "platform"
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Str("mint", c.Mint).
				Str("family", family).
				Interface("cause", r).
				Msg("Scoring family panicked, falling back to base score")

			b = Breakdown{
				Final:    clamp(c.BaseScore, 100),
				Tier:     TierFor(clamp(c.BaseScore, 100)),
				Degraded: true,
			}
			err = &ScoringError{Mint: c.Mint, Family: family, Cause: r}
		}
	}()

	if !c.Enriched {
		family = "fast_track"
		final := fastTrackScore(c, now)
		b = Breakdown{
			Final:       final,
			Tier:        TierFor(final),
			FastTracked: true,
		}
		c.BaseScore = final
		return b, nil
	}

	b.Platform = e.platform(c, now)
	family = "momentum"
	b.Momentum = e.momentum(c)
	family = "safety"
	b.Safety = e.safety(c)
	family = "cross_platform"
	b.CrossPlatform = e.cross(c)

	b.RawTotal = b.Platform + b.Momentum + b.Safety + b.CrossPlatform
	b.Final = normalize(b.RawTotal)
	b.Tier = TierFor(b.Final)

	c.BaseScore = b.Final
	return b, nil
}
