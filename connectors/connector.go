// Package connectors integrates external market data providers. Day-ahead
// electricity prices drive the planner's cost objective; fetching them from
// the operator's market account is an offline concern handled by the CLI, not
// the control loop.
package connectors

import (
	"time"

	"github.com/Sukarth/wastewater-optimization/auth"
)

// ErrIncompatibleOption formats the error for an option applied to the wrong
// client type.
const ErrIncompatibleOption = "option %s does not apply to client %s"

// PricePoint is one settlement interval of the day-ahead auction.
type PricePoint struct {
	Start          time.Time `json:"start"`
	End            time.Time `json:"end"`
	PriceEURPerMWh float64   `json:"price_eur_per_mwh"`
}

// Option configures a PriceClient before a fetch.
type Option func(PriceClient) error

// PriceClient fetches day-ahead prices from an external market API.
type PriceClient interface {
	Fetch(authClient *auth.ClientCred, opts ...Option) (PriceResponse, error)
}

// PriceResponse exposes the fetched auction results.
type PriceResponse interface {
	Series() ([]PricePoint, error)
	PriceChartHTML() (string, error)
}
