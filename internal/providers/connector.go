package providers

import (
	"context"

	"github.com/sawpanic/launchradar/internal/models"
)

// Connector is one upstream launch/liquidity feed normalized into the
// common candidate shape.
type Connector interface {
	Name() string
	Discover(ctx context.Context) ([]*models.TokenCandidate, error)
}

// Enricher fills supplemental per-token attributes on an existing
// candidate. Implementations mutate the candidate in place and report only
// hard failures; partially filled data is not an error.
type Enricher interface {
	Name() string
	Enrich(ctx context.Context, candidate *models.TokenCandidate) error
}

// Authority ranks sources for merge conflicts: a higher value overrides a
// lower one for symbol/name fields. Numeric conflicts are settled by
// recency and liquidity size, not authority.
func Authority(source string) int {
	switch source {
	case "birdeye":
		return 5
	case "dexscreener":
		return 4
	case "raydium":
		return 3
	case "graduated":
		return 2
	case "pumpfun", "stream":
		return 1
	default:
		return 0
	}
}
