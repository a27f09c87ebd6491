package providers

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/launchradar/internal/models"
)

// GraduatedConnector discovers tokens that recently completed the bonding
// curve and moved to pool trading. These arrive with partial data and
// typically take the fast-track scoring path until enrichment catches up.
type GraduatedConnector struct {
	transport *Transport
	pageSize  int
}

// NewGraduatedConnector creates the graduated-token connector.
func NewGraduatedConnector(transport *Transport) *GraduatedConnector {
	return &GraduatedConnector{transport: transport, pageSize: 30}
}

func (c *GraduatedConnector) Name() string { return "graduated" }

// Discover returns recently graduated tokens, newest first.
func (c *GraduatedConnector) Discover(ctx context.Context) ([]*models.TokenCandidate, error) {
	query := url.Values{}
	query.Set("offset", "0")
	query.Set("limit", strconv.Itoa(c.pageSize))
	query.Set("sort", "last_trade_timestamp")
	query.Set("order", "DESC")
	query.Set("complete", "true")
	query.Set("includeNsfw", "false")

	var coins []pumpFunCoin
	if err := c.transport.GetJSON(ctx, "/coins", query, nil, c.transport.Config().DiscoveryTTL(), &coins); err != nil {
		return nil, err
	}

	now := time.Now()
	candidates := make([]*models.TokenCandidate, 0, len(coins))
	for _, coin := range coins {
		if coin.Mint == "" {
			continue
		}
		cand := models.NewTokenCandidate(coin.Mint, coin.Symbol, coin.Name, c.Name(), now)
		cand.MarketCapUSD = coin.USDMarketCap
		cand.Stage = models.StageGraduated
		full := 100.0
		cand.GraduationPct = &full
		if coin.CreatedTimestamp > 0 {
			cand.FirstSeen = time.UnixMilli(coin.CreatedTimestamp)
		}
		candidates = append(candidates, cand)
	}

	log.Debug().
		Int("candidates", len(candidates)).
		Str("upstream", c.Name()).
		Msg("Graduated tokens discovered")
	return candidates, nil
}
