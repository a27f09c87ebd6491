package models

import (
	"sort"
	"time"
)

// UnknownSymbol is the placeholder used when an upstream does not report
// a symbol. Any real symbol from any source overrides it during merge.
const UnknownSymbol = "UNKNOWN"

// LaunchStage is a coarse progression marker for tokens still inside a
// bonding-curve mechanism prior to full exchange listing.
type LaunchStage int

const (
	StagePreLaunch LaunchStage = iota
	StageEarly
	StageConfirmed
	StageNearGraduation
	StageGraduated
)

func (s LaunchStage) String() string {
	switch s {
	case StagePreLaunch:
		return "pre_launch"
	case StageEarly:
		return "early"
	case StageConfirmed:
		return "confirmed"
	case StageNearGraduation:
		return "near_graduation"
	case StageGraduated:
		return "graduated"
	default:
		return "unknown"
	}
}

// StageFromProgress classifies launch stage from the bonding-curve
// graduation progress percentage (0-100).
func StageFromProgress(pct float64) LaunchStage {
	switch {
	case pct >= 100:
		return StageGraduated
	case pct >= 85:
		return StageNearGraduation
	case pct >= 40:
		return StageConfirmed
	case pct >= 10:
		return StageEarly
	default:
		return StagePreLaunch
	}
}

// TokenCandidate is a token under evaluation before an alert decision is
// made. The mint address is the merge key and never changes after
// construction; everything else is filled in by correlation and enrichment.
type TokenCandidate struct {
	Mint   string `json:"mint"`
	Symbol string `json:"symbol"`
	Name   string `json:"name"`

	// Source is the connector that produced this observation. After
	// correlation the merged record keeps the most authoritative source.
	Source    string              `json:"source"`
	Platforms map[string]struct{} `json:"-"`

	PriceUSD     float64 `json:"price_usd"`
	LiquidityUSD float64 `json:"liquidity_usd"`
	MarketCapUSD float64 `json:"market_cap_usd"`

	Volume5m  float64 `json:"volume_5m"`
	Volume1h  float64 `json:"volume_1h"`
	Volume24h float64 `json:"volume_24h"`

	PriceChange5m  float64 `json:"price_change_5m"`
	PriceChange1h  float64 `json:"price_change_1h"`
	PriceChange24h float64 `json:"price_change_24h"`

	HolderCount  int     `json:"holder_count"`
	Trades1h     int     `json:"trades_1h"`
	BuySellRatio float64 `json:"buy_sell_ratio"`

	// SecurityScore is 0-100 as reported by the security upstream.
	// Defaults to a neutral 50 until enrichment fills it.
	SecurityScore   float64  `json:"security_score"`
	SecurityChecked bool     `json:"security_checked"`
	RiskFactors     []string `json:"risk_factors,omitempty"`

	Stage         LaunchStage `json:"stage"`
	GraduationPct *float64    `json:"graduation_pct,omitempty"`

	FirstSeen   time.Time `json:"first_seen"`
	LastUpdated time.Time `json:"last_updated"`

	// Enriched is set once the core required fields (liquidity, volume,
	// holder count, security score) are populated. It gates the full
	// scoring path versus the fast-track path.
	Enriched bool `json:"enriched"`

	// BaseScore is the last score the candidate was known to carry. It is
	// the fallback when a scoring family computation fails.
	BaseScore float64 `json:"base_score"`
}

// NewTokenCandidate constructs a candidate observed by a single source with
// neutral defaults for optional attributes.
func NewTokenCandidate(mint, symbol, name, source string, now time.Time) *TokenCandidate {
	if symbol == "" {
		symbol = UnknownSymbol
	}
	if name == "" {
		name = symbol
	}
	c := &TokenCandidate{
		Mint:          mint,
		Symbol:        symbol,
		Name:          name,
		Source:        source,
		Platforms:     make(map[string]struct{}),
		BuySellRatio:  1.0,
		SecurityScore: 50,
		FirstSeen:     now,
		LastUpdated:   now,
	}
	if source != "" {
		c.Platforms[source] = struct{}{}
	}
	return c
}

// AddPlatform records a contributing platform. The set never shrinks.
func (c *TokenCandidate) AddPlatform(platform string) {
	if c.Platforms == nil {
		c.Platforms = make(map[string]struct{})
	}
	c.Platforms[platform] = struct{}{}
}

// PlatformCount returns the number of distinct contributing platforms.
func (c *TokenCandidate) PlatformCount() int {
	return len(c.Platforms)
}

// PlatformList returns contributing platforms in stable order.
func (c *TokenCandidate) PlatformList() []string {
	list := make([]string, 0, len(c.Platforms))
	for p := range c.Platforms {
		list = append(list, p)
	}
	sort.Strings(list)
	return list
}

// HasKnownSymbol reports whether the symbol is a real upstream value rather
// than the placeholder.
func (c *TokenCandidate) HasKnownSymbol() bool {
	return c.Symbol != "" && c.Symbol != UnknownSymbol
}

// AgeAt returns how long the candidate has been known at the given instant.
func (c *TokenCandidate) AgeAt(now time.Time) time.Duration {
	return now.Sub(c.FirstSeen)
}

// Clone returns a deep copy so connector output can be merged without
// aliasing the platform set or risk factor slice.
func (c *TokenCandidate) Clone() *TokenCandidate {
	cp := *c
	cp.Platforms = make(map[string]struct{}, len(c.Platforms))
	for p := range c.Platforms {
		cp.Platforms[p] = struct{}{}
	}
	if c.RiskFactors != nil {
		cp.RiskFactors = append([]string(nil), c.RiskFactors...)
	}
	if c.GraduationPct != nil {
		pct := *c.GraduationPct
		cp.GraduationPct = &pct
	}
	return &cp
}
