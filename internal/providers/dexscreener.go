package providers

import (
	"context"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/launchradar/internal/models"
)

// DexScreenerConnector discovers freshly profiled Solana tokens and
// enriches candidates with aggregated pair data.
type DexScreenerConnector struct {
	transport *Transport
}

// NewDexScreenerConnector creates the aggregated market data connector.
func NewDexScreenerConnector(transport *Transport) *DexScreenerConnector {
	return &DexScreenerConnector{transport: transport}
}

func (c *DexScreenerConnector) Name() string { return "dexscreener" }

type dexProfile struct {
	ChainID      string `json:"chainId"`
	TokenAddress string `json:"tokenAddress"`
	Description  string `json:"description"`
}

type dexPairsResponse struct {
	Pairs []dexPair `json:"pairs"`
}

type dexPair struct {
	ChainID   string `json:"chainId"`
	DexID     string `json:"dexId"`
	PriceUSD  string `json:"priceUsd"`
	BaseToken struct {
		Address string `json:"address"`
		Name    string `json:"name"`
		Symbol  string `json:"symbol"`
	} `json:"baseToken"`
	Txns struct {
		H1 struct {
			Buys  int `json:"buys"`
			Sells int `json:"sells"`
		} `json:"h1"`
	} `json:"txns"`
	Volume struct {
		M5  float64 `json:"m5"`
		H1  float64 `json:"h1"`
		H24 float64 `json:"h24"`
	} `json:"volume"`
	PriceChange struct {
		M5  float64 `json:"m5"`
		H1  float64 `json:"h1"`
		H24 float64 `json:"h24"`
	} `json:"priceChange"`
	Liquidity struct {
		USD float64 `json:"usd"`
	} `json:"liquidity"`
	MarketCap     float64 `json:"marketCap"`
	PairCreatedAt int64   `json:"pairCreatedAt"`
}

// Discover returns tokens from the latest profile feed, Solana only. The
// feed carries no market data; symbols stay unknown until a more
// authoritative source or enrichment fills them.
func (c *DexScreenerConnector) Discover(ctx context.Context) ([]*models.TokenCandidate, error) {
	var profiles []dexProfile
	if err := c.transport.GetJSON(ctx, "/token-profiles/latest/v1", nil, nil, c.transport.Config().DiscoveryTTL(), &profiles); err != nil {
		return nil, err
	}

	now := time.Now()
	candidates := make([]*models.TokenCandidate, 0, len(profiles))
	for _, p := range profiles {
		if p.ChainID != "solana" || p.TokenAddress == "" {
			continue
		}
		cand := models.NewTokenCandidate(p.TokenAddress, "", "", c.Name(), now)
		cand.Stage = models.StageConfirmed
		candidates = append(candidates, cand)
	}

	log.Debug().
		Int("candidates", len(candidates)).
		Str("upstream", c.Name()).
		Msg("Token profiles discovered")
	return candidates, nil
}

// Enrich fills market attributes from the candidate's deepest pair.
func (c *DexScreenerConnector) Enrich(ctx context.Context, candidate *models.TokenCandidate) error {
	var resp dexPairsResponse
	path := "/latest/dex/tokens/" + candidate.Mint
	if err := c.transport.GetJSON(ctx, path, nil, nil, c.transport.Config().DetailTTL(), &resp); err != nil {
		return err
	}

	best := bestPair(resp.Pairs)
	if best == nil {
		return &UpstreamDataError{Upstream: c.Name(), Reason: "no pairs for " + candidate.Mint}
	}

	if price, err := strconv.ParseFloat(best.PriceUSD, 64); err == nil && price > 0 {
		candidate.PriceUSD = price
	}
	if best.Liquidity.USD > 0 {
		candidate.LiquidityUSD = best.Liquidity.USD
	}
	if best.MarketCap > 0 {
		candidate.MarketCapUSD = best.MarketCap
	}
	candidate.Volume5m = best.Volume.M5
	candidate.Volume1h = best.Volume.H1
	candidate.Volume24h = best.Volume.H24
	candidate.PriceChange5m = best.PriceChange.M5
	candidate.PriceChange1h = best.PriceChange.H1
	candidate.PriceChange24h = best.PriceChange.H24

	trades := best.Txns.H1.Buys + best.Txns.H1.Sells
	if trades > 0 {
		candidate.Trades1h = trades
		sells := best.Txns.H1.Sells
		if sells == 0 {
			sells = 1
		}
		candidate.BuySellRatio = float64(best.Txns.H1.Buys) / float64(sells)
	}

	if !candidate.HasKnownSymbol() && best.BaseToken.Symbol != "" {
		candidate.Symbol = best.BaseToken.Symbol
		candidate.Name = best.BaseToken.Name
	}
	candidate.LastUpdated = time.Now()
	return nil
}

// bestPair picks the Solana pair with the deepest liquidity.
func bestPair(pairs []dexPair) *dexPair {
	var best *dexPair
	for i := range pairs {
		p := &pairs[i]
		if p.ChainID != "solana" {
			continue
		}
		if best == nil || p.Liquidity.USD > best.Liquidity.USD {
			best = p
		}
	}
	return best
}
