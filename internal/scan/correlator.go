package scan

import (
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/launchradar/internal/models"
	"github.com/sawpanic/launchradar/internal/providers"
)

// Correlator merges observations of the same mint from different sources
// into one record. One canonical rule settles disagreements: authority for
// identity fields, recency for numeric fields, reported liquidity size as
// the tie-break between equally fresh non-authoritative sources.
type Correlator struct{}

// NewCorrelator creates a correlator.
func NewCorrelator() *Correlator {
	return &Correlator{}
}

// Correlate groups candidates by mint and merges each group, preserving
// first-observation order of mints.
func (c *Correlator) Correlate(candidates []*models.TokenCandidate) []*models.TokenCandidate {
	merged := make(map[string]*models.TokenCandidate, len(candidates))
	order := make([]string, 0, len(candidates))

	for _, cand := range candidates {
		if cand == nil || cand.Mint == "" {
			continue
		}
		existing, ok := merged[cand.Mint]
		if !ok {
			merged[cand.Mint] = cand.Clone()
			order = append(order, cand.Mint)
			continue
		}
		Merge(existing, cand)
	}

	out := make([]*models.TokenCandidate, 0, len(order))
	for _, mint := range order {
		out = append(out, merged[mint])
	}

	if len(out) < len(candidates) {
		log.Debug().
			Int("observed", len(candidates)).
			Int("unique", len(out)).
			Msg("Cross-source observations merged")
	}
	return out
}

// Merge folds an incoming observation into the existing record in place.
// The platform set only grows; the mint never changes.
func Merge(existing, incoming *models.TokenCandidate) {
	for p := range incoming.Platforms {
		existing.AddPlatform(p)
	}

	mergeIdentity(existing, incoming)
	mergeNumeric(existing, incoming)
	mergeLifecycle(existing, incoming)
}

// mergeIdentity applies authority rules to symbol/name: a more
// authoritative source always wins, and any known symbol beats the
// placeholder regardless of authority.
func mergeIdentity(existing, incoming *models.TokenCandidate) {
	if !incoming.HasKnownSymbol() {
		return
	}
	if !existing.HasKnownSymbol() || providers.Authority(incoming.Source) >= providers.Authority(existing.Source) {
		existing.Symbol = incoming.Symbol
		existing.Name = incoming.Name
		existing.Source = incoming.Source
	}
}

// mergeNumeric prefers the most recently updated non-zero value; between
// equally fresh observations the source reporting the larger absolute
// liquidity wins.
func mergeNumeric(existing, incoming *models.TokenCandidate) {
	incomingWins := incoming.LastUpdated.After(existing.LastUpdated) ||
		(incoming.LastUpdated.Equal(existing.LastUpdated) && incoming.LiquidityUSD > existing.LiquidityUSD)

	take := func(dst *float64, src float64) {
		if src != 0 && (*dst == 0 || incomingWins) {
			*dst = src
		}
	}

	take(&existing.PriceUSD, incoming.PriceUSD)
	take(&existing.LiquidityUSD, incoming.LiquidityUSD)
	take(&existing.MarketCapUSD, incoming.MarketCapUSD)
	take(&existing.Volume5m, incoming.Volume5m)
	take(&existing.Volume1h, incoming.Volume1h)
	take(&existing.Volume24h, incoming.Volume24h)
	take(&existing.PriceChange5m, incoming.PriceChange5m)
	take(&existing.PriceChange1h, incoming.PriceChange1h)
	take(&existing.PriceChange24h, incoming.PriceChange24h)

	if incoming.HolderCount != 0 && (existing.HolderCount == 0 || incomingWins) {
		existing.HolderCount = incoming.HolderCount
	}
	if incoming.Trades1h != 0 && (existing.Trades1h == 0 || incomingWins) {
		existing.Trades1h = incoming.Trades1h
		existing.BuySellRatio = incoming.BuySellRatio
	}

	if incoming.SecurityChecked && (!existing.SecurityChecked || incomingWins) {
		existing.SecurityScore = incoming.SecurityScore
		existing.SecurityChecked = true
		existing.RiskFactors = append([]string(nil), incoming.RiskFactors...)
	}
}

// mergeLifecycle keeps the earliest first-seen, the latest update, the most
// advanced launch stage, and the freshest graduation progress.
func mergeLifecycle(existing, incoming *models.TokenCandidate) {
	if incoming.FirstSeen.Before(existing.FirstSeen) {
		existing.FirstSeen = incoming.FirstSeen
	}
	if incoming.LastUpdated.After(existing.LastUpdated) {
		existing.LastUpdated = incoming.LastUpdated
	}
	if incoming.Stage > existing.Stage {
		existing.Stage = incoming.Stage
	}
	if incoming.GraduationPct != nil {
		if existing.GraduationPct == nil || *incoming.GraduationPct > *existing.GraduationPct {
			pct := *incoming.GraduationPct
			existing.GraduationPct = &pct
		}
	}
	if incoming.Enriched {
		existing.Enriched = true
	}
}
