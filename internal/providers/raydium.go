package providers

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/launchradar/internal/models"
)

// WrappedSOL is the canonical WSOL mint; pool candidates are the other side
// of a WSOL pair.
const WrappedSOL = "So11111111111111111111111111111111111111112"

// RaydiumConnector discovers tokens through fresh Raydium liquidity pools.
type RaydiumConnector struct {
	transport *Transport
	pageSize  int
}

// NewRaydiumConnector creates the pool liquidity connector.
func NewRaydiumConnector(transport *Transport) *RaydiumConnector {
	return &RaydiumConnector{transport: transport, pageSize: 50}
}

func (c *RaydiumConnector) Name() string { return "raydium" }

type raydiumPoolsResponse struct {
	Success bool `json:"success"`
	Data    struct {
		Count int           `json:"count"`
		Data  []raydiumPool `json:"data"`
	} `json:"data"`
}

type raydiumPool struct {
	ID    string      `json:"id"`
	MintA raydiumMint `json:"mintA"`
	MintB raydiumMint `json:"mintB"`
	TVL   float64     `json:"tvl"`
	Day   struct {
		Volume float64 `json:"volume"`
	} `json:"day"`
	OpenTime string `json:"openTime"`
}

type raydiumMint struct {
	Address string `json:"address"`
	Symbol  string `json:"symbol"`
	Name    string `json:"name"`
}

// Discover returns tokens from WSOL pools, liquidity and 24h volume
// attached. Everything here is past graduation by definition.
func (c *RaydiumConnector) Discover(ctx context.Context) ([]*models.TokenCandidate, error) {
	query := url.Values{}
	query.Set("poolType", "all")
	query.Set("poolSortField", "default")
	query.Set("sortType", "desc")
	query.Set("pageSize", strconv.Itoa(c.pageSize))
	query.Set("page", "1")

	var resp raydiumPoolsResponse
	if err := c.transport.GetJSON(ctx, "/pools/info/list", query, nil, c.transport.Config().DiscoveryTTL(), &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, &UpstreamDataError{Upstream: c.Name(), Reason: "pool list reported failure"}
	}

	now := time.Now()
	candidates := make([]*models.TokenCandidate, 0, len(resp.Data.Data))
	for _, pool := range resp.Data.Data {
		mint, ok := tokenSide(pool)
		if !ok {
			continue
		}
		cand := models.NewTokenCandidate(mint.Address, mint.Symbol, mint.Name, c.Name(), now)
		cand.LiquidityUSD = pool.TVL
		cand.Volume24h = pool.Day.Volume
		cand.Stage = models.StageGraduated
		candidates = append(candidates, cand)
	}

	log.Debug().
		Int("pools", len(resp.Data.Data)).
		Int("candidates", len(candidates)).
		Str("upstream", c.Name()).
		Msg("Raydium pools discovered")
	return candidates, nil
}

// tokenSide returns the non-WSOL side of a pool, skipping pools that do not
// pair against WSOL at all.
func tokenSide(pool raydiumPool) (raydiumMint, bool) {
	switch {
	case pool.MintA.Address == WrappedSOL && pool.MintB.Address != "":
		return pool.MintB, true
	case pool.MintB.Address == WrappedSOL && pool.MintA.Address != "":
		return pool.MintA, true
	default:
		return raydiumMint{}, false
	}
}
