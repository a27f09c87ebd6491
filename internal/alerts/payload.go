package alerts

import (
	"fmt"
	"strings"
	"time"

	"github.com/sawpanic/launchradar/internal/models"
	"github.com/sawpanic/launchradar/internal/score"
)

// Links are the explorer URLs attached to every alert.
type Links struct {
	PumpFun     string `json:"pump_fun"`
	DexScreener string `json:"dexscreener"`
	Birdeye     string `json:"birdeye"`
}

// Payload is the fully rendered alert handed to a notifier. It carries
// everything a consumer needs without reaching back into the registry.
type Payload struct {
	Mint         string          `json:"mint"`
	Symbol       string          `json:"symbol"`
	Name         string          `json:"name"`
	Score        float64         `json:"score"`
	Tier         string          `json:"tier"`
	Breakdown    score.Breakdown `json:"breakdown"`
	PriceUSD     float64         `json:"price_usd"`
	LiquidityUSD float64         `json:"liquidity_usd"`
	MarketCapUSD float64         `json:"market_cap_usd"`
	Stage        string          `json:"stage"`
	Platforms    []string        `json:"platforms"`
	RiskFactors  []string        `json:"risk_factors"`
	Age          time.Duration   `json:"age"`
	Links        Links           `json:"links"`
}

// BuildPayload renders a candidate plus its scoring breakdown into an alert
// payload.
func BuildPayload(c *models.TokenCandidate, bd score.Breakdown, now time.Time) Payload {
	return Payload{
		Mint:         c.Mint,
		Symbol:       c.Symbol,
		Name:         c.Name,
		Score:        bd.Final,
		Tier:         bd.Tier.String(),
		Breakdown:    bd,
		PriceUSD:     c.PriceUSD,
		LiquidityUSD: c.LiquidityUSD,
		MarketCapUSD: c.MarketCapUSD,
		Stage:        c.Stage.String(),
		Platforms:    c.PlatformList(),
		RiskFactors:  append([]string(nil), c.RiskFactors...),
		Age:          c.AgeAt(now),
		Links: Links{
			PumpFun:     "https://pump.fun/" + c.Mint,
			DexScreener: "https://dexscreener.com/solana/" + c.Mint,
			Birdeye:     "https://birdeye.so/token/" + c.Mint + "?chain=solana",
		},
	}
}

// Text renders the payload as a plain-text message for chat-style sinks.
func (p Payload) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "🚀 %s (%s) scored %.1f [%s]\n", p.Symbol, p.Name, p.Score, p.Tier)
	fmt.Fprintf(&b, "Stage: %s | Age: %s\n", p.Stage, p.Age.Round(time.Minute))
	fmt.Fprintf(&b, "Price: $%.8f | Liq: $%.0f | MCap: $%.0f\n", p.PriceUSD, p.LiquidityUSD, p.MarketCapUSD)
	fmt.Fprintf(&b, "Platforms: %s\n", strings.Join(p.Platforms, ", "))
	if len(p.RiskFactors) > 0 {
		fmt.Fprintf(&b, "⚠️ Risks: %s\n", strings.Join(p.RiskFactors, ", "))
	}
	fmt.Fprintf(&b, "pump.fun: %s\n", p.Links.PumpFun)
	fmt.Fprintf(&b, "DexScreener: %s\n", p.Links.DexScreener)
	fmt.Fprintf(&b, "Birdeye: %s", p.Links.Birdeye)
	return b.String()
}
