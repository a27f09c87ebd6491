package score

import (
	"time"

	"github.com/sawpanic/launchradar/internal/models"
)

// platformScore rewards very early discovery, a favorable graduation
// window, and per-hour value velocity. Clamped to CapPlatform.
func platformScore(c *models.TokenCandidate, now time.Time) float64 {
	total := 0.0

	// Early discovery
	age := c.AgeAt(now)
	switch {
	case age < time.Hour:
		total += 20
	case age < 6*time.Hour:
		total += 12
	case age < 24*time.Hour:
		total += 6
	}

	// Graduation window: the 60-90% stretch of the curve is where
	// momentum usually builds before the pool migration.
	if c.GraduationPct != nil {
		pct := *c.GraduationPct
		switch {
		case pct >= 60 && pct <= 90:
			total += 15
		case pct >= 40 && pct < 60, pct > 90 && pct < 100:
			total += 8
		case pct >= 100:
			total += 5
		}
	} else if c.Stage == models.StageGraduated {
		total += 5
	}

	// Market-cap velocity per hour of life
	if hours := age.Hours(); hours > 0 && c.MarketCapUSD > 0 {
		velocity := c.MarketCapUSD / hours
		switch {
		case velocity >= 50000:
			total += 15
		case velocity >= 10000:
			total += 10
		case velocity >= 2000:
			total += 5
		}
	}

	return clamp(total, CapPlatform)
}

// momentumScore rewards volume trend, price momentum, trading activity,
// buy pressure, holder base, and liquidity quality. The component sum can
// exceed the cap; clamping is the anti-stacking guarantee.
func momentumScore(c *models.TokenCandidate) float64 {
	total := 0.0

	// Volume trend: last hour versus the 24h hourly average
	if c.Volume24h > 0 && c.Volume1h > 0 {
		hourlyAvg := c.Volume24h / 24.0
		ratio := c.Volume1h / hourlyAvg
		switch {
		case ratio >= 3:
			total += 10
		case ratio >= 1.5:
			total += 6
		case ratio >= 1:
			total += 3
		}
	}

	// Price momentum across windows
	switch {
	case c.PriceChange1h > 0 && c.PriceChange5m > 0:
		total += 8
	case c.PriceChange1h > 0:
		total += 5
	case c.PriceChange24h > 0:
		total += 2
	}

	// Trading activity
	switch {
	case c.Trades1h >= 300:
		total += 8
	case c.Trades1h >= 100:
		total += 5
	case c.Trades1h >= 30:
		total += 2
	}

	// Buy pressure
	switch {
	case c.Trades1h > 0 && c.BuySellRatio >= 2:
		total += 6
	case c.Trades1h > 0 && c.BuySellRatio >= 1.2:
		total += 3
	}

	// Holder base
	switch {
	case c.HolderCount >= 500:
		total += 6
	case c.HolderCount >= 150:
		total += 4
	case c.HolderCount >= 50:
		total += 2
	}

	// Liquidity quality
	switch {
	case c.LiquidityUSD >= 100000:
		total += 6
	case c.LiquidityUSD >= 25000:
		total += 4
	case c.LiquidityUSD >= 10000:
		total += 2
	}

	return clamp(total, CapMomentum)
}

// safetyScore scales the upstream 0-100 security score down to the family
// cap and subtracts a fixed penalty per identified risk factor, floored at
// zero.
func safetyScore(c *models.TokenCandidate) float64 {
	base := c.SecurityScore * (CapSafety / 100.0)
	penalty := 5.0 * float64(len(c.RiskFactors))
	return clamp(base-penalty, CapSafety)
}

// crossPlatformScore scales with the number of distinct platforms that
// independently observed the token.
func crossPlatformScore(c *models.TokenCandidate) float64 {
	return clamp(4.0*float64(c.PlatformCount()), CapCrossPlatform)
}

// fastTrackScore is the reduced path for candidates without full
// enrichment, such as tokens that just left the bonding curve. Base score
// plus freshness, market-cap band, and graduation bonuses, capped
// independently; never summed with the full-path families.
func fastTrackScore(c *models.TokenCandidate, now time.Time) float64 {
	total := 30.0

	age := c.AgeAt(now)
	switch {
	case age < time.Hour:
		total += 10
	case age < 6*time.Hour:
		total += 5
	}

	switch {
	case c.MarketCapUSD >= 50000:
		total += 8
	case c.MarketCapUSD >= 20000:
		total += 5
	}

	if c.GraduationPct != nil && *c.GraduationPct >= 85 {
		total += 10
	} else if c.Stage == models.StageNearGraduation || c.Stage == models.StageGraduated {
		total += 8
	}

	return clamp(total, FastTrackCap)
}
