package providers

import (
	"context"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/launchradar/internal/models"
)

// BirdeyeConnector fills per-token detail: overview, holder count, trade
// activity, and security flags. It is the most authoritative source for
// symbol/name and numeric attributes but does not discover tokens itself.
type BirdeyeConnector struct {
	transport *Transport
}

// NewBirdeyeConnector creates the enrichment connector.
func NewBirdeyeConnector(transport *Transport) *BirdeyeConnector {
	return &BirdeyeConnector{transport: transport}
}

func (c *BirdeyeConnector) Name() string { return "birdeye" }

var birdeyeHeaders = map[string]string{"x-chain": "solana"}

type birdeyeOverviewResponse struct {
	Success bool `json:"success"`
	Data    struct {
		Symbol               string  `json:"symbol"`
		Name                 string  `json:"name"`
		Price                float64 `json:"price"`
		Liquidity            float64 `json:"liquidity"`
		MarketCap            float64 `json:"mc"`
		Holder               int     `json:"holder"`
		Volume1hUSD          float64 `json:"v1hUSD"`
		Volume24hUSD         float64 `json:"v24hUSD"`
		Trade1h              int     `json:"trade1h"`
		Buy1h                int     `json:"buy1h"`
		Sell1h               int     `json:"sell1h"`
		PriceChange1hPercent float64 `json:"priceChange1hPercent"`
		PriceChange24hPct    float64 `json:"priceChange24hPercent"`
	} `json:"data"`
}

type birdeyeSecurityResponse struct {
	Success bool `json:"success"`
	Data    struct {
		Top10HolderPercent float64 `json:"top10HolderPercent"`
		MutableMetadata    bool    `json:"mutableMetadata"`
		Freezeable         bool    `json:"freezeable"`
		CreatorPercentage  float64 `json:"creatorPercentage"`
	} `json:"data"`
}

// Enrich issues the overview and security calls independently. Either call
// failing leaves the corresponding attributes at their neutral defaults;
// an error is returned only when both fail.
func (c *BirdeyeConnector) Enrich(ctx context.Context, candidate *models.TokenCandidate) error {
	overviewErr := c.enrichOverview(ctx, candidate)
	securityErr := c.enrichSecurity(ctx, candidate)

	if overviewErr != nil {
		log.Debug().Err(overviewErr).Str("mint", candidate.Mint).Msg("Overview enrichment degraded")
	}
	if securityErr != nil {
		log.Debug().Err(securityErr).Str("mint", candidate.Mint).Msg("Security enrichment degraded")
	}
	if overviewErr != nil && securityErr != nil {
		return overviewErr
	}
	return nil
}

func (c *BirdeyeConnector) enrichOverview(ctx context.Context, candidate *models.TokenCandidate) error {
	query := url.Values{}
	query.Set("address", candidate.Mint)

	var resp birdeyeOverviewResponse
	if err := c.transport.GetJSON(ctx, "/defi/token_overview", query, birdeyeHeaders, c.transport.Config().DetailTTL(), &resp); err != nil {
		return err
	}
	if !resp.Success {
		return &UpstreamDataError{Upstream: c.Name(), Reason: "overview reported failure for " + candidate.Mint}
	}

	d := resp.Data
	if d.Price > 0 {
		candidate.PriceUSD = d.Price
	}
	if d.Liquidity > 0 {
		candidate.LiquidityUSD = d.Liquidity
	}
	if d.MarketCap > 0 {
		candidate.MarketCapUSD = d.MarketCap
	}
	if d.Holder > 0 {
		candidate.HolderCount = d.Holder
	}
	if d.Volume1hUSD > 0 {
		candidate.Volume1h = d.Volume1hUSD
	}
	if d.Volume24hUSD > 0 {
		candidate.Volume24h = d.Volume24hUSD
	}
	if d.Trade1h > 0 {
		candidate.Trades1h = d.Trade1h
		sells := d.Sell1h
		if sells == 0 {
			sells = 1
		}
		candidate.BuySellRatio = float64(d.Buy1h) / float64(sells)
	}
	candidate.PriceChange1h = d.PriceChange1hPercent
	candidate.PriceChange24h = d.PriceChange24hPct

	if d.Symbol != "" {
		candidate.Symbol = d.Symbol
		if d.Name != "" {
			candidate.Name = d.Name
		}
	}
	candidate.LastUpdated = time.Now()
	return nil
}

func (c *BirdeyeConnector) enrichSecurity(ctx context.Context, candidate *models.TokenCandidate) error {
	query := url.Values{}
	query.Set("address", candidate.Mint)

	var resp birdeyeSecurityResponse
	if err := c.transport.GetJSON(ctx, "/defi/token_security", query, birdeyeHeaders, c.transport.Config().DetailTTL(), &resp); err != nil {
		return err
	}
	if !resp.Success {
		return &UpstreamDataError{Upstream: c.Name(), Reason: "security reported failure for " + candidate.Mint}
	}

	d := resp.Data
	var risks []string
	if d.MutableMetadata {
		risks = append(risks, "mutable_metadata")
	}
	if d.Freezeable {
		risks = append(risks, "freeze_authority")
	}
	if d.Top10HolderPercent > 0.30 {
		risks = append(risks, "top10_concentration")
	}
	if d.CreatorPercentage > 0.05 {
		risks = append(risks, "creator_large_share")
	}

	score := 100.0 - 20.0*float64(len(risks))
	if score < 0 {
		score = 0
	}
	candidate.SecurityScore = score
	candidate.SecurityChecked = true
	candidate.RiskFactors = risks
	return nil
}
