package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/launchradar/internal/config"
	"github.com/sawpanic/launchradar/internal/data/cache"
	"github.com/sawpanic/launchradar/internal/models"
	"github.com/sawpanic/launchradar/internal/net/ratelimit"
)

func testTransport(t *testing.T, upstream, baseURL string) *Transport {
	t.Helper()
	store := NewTestStore(t)
	return NewTransport(upstream, config.ProviderConfig{
		BaseURL:        baseURL,
		RequestsPerMin: 6000,
		Burst:          100,
		MaxConcurrency: 4,
		MaxQueueDepth:  64,
		TTLSecs:        60,
		DetailTTLSecs:  60,
		TimeoutMS:      2000,
		MaxRetries:     0,
		CostPerCall:    1,
		Enabled:        true,
		Backoff:        config.BackoffConfig{Base: 1, Max: 100},
	}, ratelimit.NewManager(), store)
}

// NewTestStore builds a memory-backed cache torn down with the test.
func NewTestStore(t *testing.T) *cache.Cache {
	t.Helper()
	store := cache.NewMemoryStore(1000, time.Minute)
	c := cache.New(store)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestTransport_ConfigDurationsChain(t *testing.T) {
	// TTL helpers are called directly on the value Config() returns;
	// they must work on a non-addressable copy.
	tr := testTransport(t, "pumpfun", "http://example.invalid")

	assert.Equal(t, 60*time.Second, tr.Config().DiscoveryTTL())
	assert.Equal(t, 60*time.Second, tr.Config().DetailTTL())
	assert.Equal(t, 2*time.Second, tr.Config().RequestTimeout())
	assert.Equal(t, time.Millisecond, tr.Config().BaseBackoff())
	assert.Empty(t, tr.Config().APIKey())
}

func TestPumpFun_DiscoverClassifiesStage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/coins", r.URL.Path)
		w.Write([]byte(`[
			{"mint":"MintEarly","name":"Early","symbol":"ERL","created_timestamp":1700000000000,"usd_market_cap":10000,"complete":false},
			{"mint":"MintNear","name":"Near","symbol":"NGR","created_timestamp":1700000001000,"usd_market_cap":62000,"complete":false},
			{"mint":"MintDone","name":"Done","symbol":"DNE","created_timestamp":1700000002000,"usd_market_cap":80000,"complete":true},
			{"mint":"","name":"Broken","symbol":"BAD"}
		]`))
	}))
	defer srv.Close()

	conn := NewPumpFunConnector(testTransport(t, "pumpfun", srv.URL))
	candidates, err := conn.Discover(context.Background())
	require.NoError(t, err)
	require.Len(t, candidates, 3, "coin without mint must be skipped")

	byMint := map[string]*models.TokenCandidate{}
	for _, c := range candidates {
		byMint[c.Mint] = c
	}

	assert.Equal(t, models.StageEarly, byMint["MintEarly"].Stage)
	assert.Equal(t, models.StageNearGraduation, byMint["MintNear"].Stage)
	assert.Equal(t, models.StageGraduated, byMint["MintDone"].Stage)
	require.NotNil(t, byMint["MintNear"].GraduationPct)
	assert.InDelta(t, 89.9, *byMint["MintNear"].GraduationPct, 0.1)
	assert.Equal(t, 100.0, *byMint["MintDone"].GraduationPct)
	assert.Contains(t, byMint["MintEarly"].Platforms, "pumpfun")
}

func TestPumpFun_DiscoverUsesCache(t *testing.T) {
	var calls int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
		w.Write([]byte(`[{"mint":"M1","symbol":"A","name":"A","usd_market_cap":100}]`))
	}))
	defer srv.Close()

	conn := NewPumpFunConnector(testTransport(t, "pumpfun", srv.URL))

	_, err := conn.Discover(context.Background())
	require.NoError(t, err)
	_, err = conn.Discover(context.Background())
	require.NoError(t, err)

	assert.EqualValues(t, 1, atomic.LoadInt64(&calls), "second discover within TTL must hit the cache")
}

func TestGraduated_DiscoverMarksGraduated(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "true", r.URL.Query().Get("complete"))
		w.Write([]byte(`[{"mint":"Grad1","name":"Grad","symbol":"GRD","created_timestamp":1700000000000,"usd_market_cap":90000,"complete":true}]`))
	}))
	defer srv.Close()

	conn := NewGraduatedConnector(testTransport(t, "graduated", srv.URL))
	candidates, err := conn.Discover(context.Background())
	require.NoError(t, err)
	require.Len(t, candidates, 1)

	assert.Equal(t, models.StageGraduated, candidates[0].Stage)
	assert.Equal(t, 100.0, *candidates[0].GraduationPct)
}

func TestDexScreener_DiscoverFiltersChain(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[
			{"chainId":"solana","tokenAddress":"SolMint1"},
			{"chainId":"base","tokenAddress":"BaseMint"},
			{"chainId":"solana","tokenAddress":""}
		]`))
	}))
	defer srv.Close()

	conn := NewDexScreenerConnector(testTransport(t, "dexscreener", srv.URL))
	candidates, err := conn.Discover(context.Background())
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "SolMint1", candidates[0].Mint)
	assert.False(t, candidates[0].HasKnownSymbol(), "profile feed has no symbol")
}

func TestDexScreener_EnrichPicksDeepestPair(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"pairs":[
			{"chainId":"solana","priceUsd":"0.5","liquidity":{"usd":1000},"volume":{"h1":50},"baseToken":{"address":"M","symbol":"SHAL","name":"Shallow"}},
			{"chainId":"solana","priceUsd":"0.000012","liquidity":{"usd":25000},
			 "volume":{"m5":900,"h1":4000,"h24":60000},
			 "priceChange":{"m5":2.5,"h1":14,"h24":120},
			 "txns":{"h1":{"buys":60,"sells":20}},
			 "marketCap":150000,
			 "baseToken":{"address":"M","symbol":"DEEP","name":"Deep Token"}},
			{"chainId":"base","priceUsd":"9","liquidity":{"usd":99999999}}
		]}`))
	}))
	defer srv.Close()

	conn := NewDexScreenerConnector(testTransport(t, "dexscreener", srv.URL))
	cand := models.NewTokenCandidate("M", "", "", "dexscreener", time.Now())

	require.NoError(t, conn.Enrich(context.Background(), cand))

	assert.Equal(t, 0.000012, cand.PriceUSD)
	assert.Equal(t, 25000.0, cand.LiquidityUSD)
	assert.Equal(t, 150000.0, cand.MarketCapUSD)
	assert.Equal(t, 4000.0, cand.Volume1h)
	assert.Equal(t, 14.0, cand.PriceChange1h)
	assert.Equal(t, 80, cand.Trades1h)
	assert.Equal(t, 3.0, cand.BuySellRatio)
	assert.Equal(t, "DEEP", cand.Symbol, "non-solana pair must not win on liquidity")
}

func TestDexScreener_EnrichNoPairs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"pairs":[]}`))
	}))
	defer srv.Close()

	conn := NewDexScreenerConnector(testTransport(t, "dexscreener", srv.URL))
	cand := models.NewTokenCandidate("Nope", "", "", "dexscreener", time.Now())

	err := conn.Enrich(context.Background(), cand)
	require.Error(t, err)
	var ude *UpstreamDataError
	assert.ErrorAs(t, err, &ude)
}

func TestRaydium_DiscoverTakesTokenSideOfWSOLPools(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true,"data":{"count":3,"data":[
			{"id":"p1","mintA":{"address":"So11111111111111111111111111111111111111112","symbol":"WSOL","name":"Wrapped SOL"},
			 "mintB":{"address":"TokenB","symbol":"TKB","name":"Token B"},"tvl":42000,"day":{"volume":90000}},
			{"id":"p2","mintA":{"address":"TokenA","symbol":"TKA","name":"Token A"},
			 "mintB":{"address":"So11111111111111111111111111111111111111112","symbol":"WSOL","name":"Wrapped SOL"},"tvl":15000,"day":{"volume":1000}},
			{"id":"p3","mintA":{"address":"USDCMint","symbol":"USDC","name":"USD Coin"},
			 "mintB":{"address":"OtherMint","symbol":"OTR","name":"Other"},"tvl":99999,"day":{"volume":5}}
		]}}`))
	}))
	defer srv.Close()

	conn := NewRaydiumConnector(testTransport(t, "raydium", srv.URL))
	candidates, err := conn.Discover(context.Background())
	require.NoError(t, err)
	require.Len(t, candidates, 2, "non-WSOL pools are skipped")

	assert.Equal(t, "TokenB", candidates[0].Mint)
	assert.Equal(t, 42000.0, candidates[0].LiquidityUSD)
	assert.Equal(t, 90000.0, candidates[0].Volume24h)
	assert.Equal(t, models.StageGraduated, candidates[0].Stage)
	assert.Equal(t, "TokenA", candidates[1].Mint)
}

func TestBirdeye_EnrichFillsOverviewAndSecurity(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/defi/token_overview":
			w.Write([]byte(`{"success":true,"data":{
				"symbol":"NEW","name":"New Token","price":0.002,"liquidity":30000,"mc":200000,
				"holder":450,"v1hUSD":8000,"v24hUSD":95000,"trade1h":120,"buy1h":90,"sell1h":30,
				"priceChange1hPercent":22.5,"priceChange24hPercent":140}}`))
		case "/defi/token_security":
			w.Write([]byte(`{"success":true,"data":{
				"top10HolderPercent":0.45,"mutableMetadata":true,"freezeable":false,"creatorPercentage":0.01}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	conn := NewBirdeyeConnector(testTransport(t, "birdeye", srv.URL))
	cand := models.NewTokenCandidate("Mint1", "", "", "pumpfun", time.Now())

	require.NoError(t, conn.Enrich(context.Background(), cand))

	assert.Equal(t, "NEW", cand.Symbol)
	assert.Equal(t, 450, cand.HolderCount)
	assert.Equal(t, 120, cand.Trades1h)
	assert.Equal(t, 3.0, cand.BuySellRatio)
	assert.True(t, cand.SecurityChecked)
	assert.ElementsMatch(t, []string{"mutable_metadata", "top10_concentration"}, cand.RiskFactors)
	assert.Equal(t, 60.0, cand.SecurityScore)
}

func TestBirdeye_EnrichPartialFailureDegrades(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/defi/token_overview":
			w.Write([]byte(`{"success":true,"data":{"symbol":"OK","name":"Still OK","price":1,"liquidity":500,"mc":1000,"holder":10}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	conn := NewBirdeyeConnector(testTransport(t, "birdeye", srv.URL))
	cand := models.NewTokenCandidate("Mint2", "", "", "pumpfun", time.Now())

	// Security call fails but overview succeeds: no error, neutral
	// security defaults stay in place.
	require.NoError(t, conn.Enrich(context.Background(), cand))
	assert.Equal(t, "OK", cand.Symbol)
	assert.False(t, cand.SecurityChecked)
	assert.Equal(t, 50.0, cand.SecurityScore)
}
