package data

import (
	"context"
	"time"

	"github.com/quantlabs/defi-yield-backtester/src/models"
)

// Adapter is the read-side market data contract the backtest engine consumes.
// Price is mandatory for a tradeable tick; the other feeds are optional and
// return nil (not an error) when the venue simply does not publish them.
// Implementations return models.ErrDataUnavailable when a requested price is
// missing from the underlying source.
type Adapter interface {
	FetchPrice(ctx context.Context, asset string, at time.Time) (float64, error)
	FetchOHLCV(ctx context.Context, asset string, from, to time.Time, period time.Duration) (models.Candles, error)
	FetchFundingRate(ctx context.Context, asset string, at time.Time) (*models.FundingRate, error)
	FetchImpliedVolatility(ctx context.Context, asset string, at time.Time) (*models.ImpliedVolatility, error)
	FetchVolume(ctx context.Context, asset string, at time.Time) (*float64, error)
}
