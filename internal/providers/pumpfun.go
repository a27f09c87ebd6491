package providers

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/launchradar/internal/models"
)

// GraduationTargetUSD is the market cap at which a pump.fun bonding-curve
// token graduates to a liquidity pool.
const GraduationTargetUSD = 69000.0

// PumpFunConnector discovers fresh bonding-curve launches from the pump.fun
// frontend API.
type PumpFunConnector struct {
	transport *Transport
	pageSize  int
}

// NewPumpFunConnector creates the bonding-curve launch connector.
func NewPumpFunConnector(transport *Transport) *PumpFunConnector {
	return &PumpFunConnector{transport: transport, pageSize: 50}
}

func (c *PumpFunConnector) Name() string { return "pumpfun" }

// pumpFunCoin is the upstream coin shape. Timestamps are unix millis.
type pumpFunCoin struct {
	Mint             string  `json:"mint"`
	Name             string  `json:"name"`
	Symbol           string  `json:"symbol"`
	CreatedTimestamp int64   `json:"created_timestamp"`
	USDMarketCap     float64 `json:"usd_market_cap"`
	Complete         bool    `json:"complete"`
}

// Discover returns the newest bonding-curve launches, classified by
// graduation progress toward the curve target.
func (c *PumpFunConnector) Discover(ctx context.Context) ([]*models.TokenCandidate, error) {
	query := url.Values{}
	query.Set("offset", "0")
	query.Set("limit", strconv.Itoa(c.pageSize))
	query.Set("sort", "created_timestamp")
	query.Set("order", "DESC")
	query.Set("includeNsfw", "false")

	var coins []pumpFunCoin
	if err := c.transport.GetJSON(ctx, "/coins", query, nil, c.transport.Config().DiscoveryTTL(), &coins); err != nil {
		return nil, err
	}

	now := time.Now()
	candidates := make([]*models.TokenCandidate, 0, len(coins))
	for _, coin := range coins {
		if coin.Mint == "" {
			log.Debug().Str("upstream", c.Name()).Msg("Skipping coin without mint")
			continue
		}
		candidates = append(candidates, c.mapCoin(coin, now))
	}

	log.Debug().
		Int("candidates", len(candidates)).
		Str("upstream", c.Name()).
		Msg("Bonding-curve launches discovered")
	return candidates, nil
}

func (c *PumpFunConnector) mapCoin(coin pumpFunCoin, now time.Time) *models.TokenCandidate {
	cand := models.NewTokenCandidate(coin.Mint, coin.Symbol, coin.Name, c.Name(), now)
	cand.MarketCapUSD = coin.USDMarketCap

	progress := coin.USDMarketCap / GraduationTargetUSD * 100
	if progress > 100 || coin.Complete {
		progress = 100
	}
	cand.GraduationPct = &progress
	cand.Stage = models.StageFromProgress(progress)

	if coin.CreatedTimestamp > 0 {
		cand.FirstSeen = time.UnixMilli(coin.CreatedTimestamp)
	}
	return cand
}
