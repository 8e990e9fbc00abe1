package data

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/quantlabs/defi-yield-backtester/src/models"
)

// FundingObservation is one point of a funding rate series.
type FundingObservation struct {
	At   time.Time
	Rate models.FundingRate
}

type ivPoint struct {
	At time.Time
	IV models.ImpliedVolatility
}

// MemoryAdapter serves candles and derivative quotes from in-process series.
// Lookups resolve to the most recent observation at or before the requested
// time, which is how a live feed would answer a point-in-time query.
type MemoryAdapter struct {
	candles map[string]models.Candles
	funding map[string][]FundingObservation
	iv      map[string][]ivPoint
}

func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{
		candles: make(map[string]models.Candles),
		funding: make(map[string][]FundingObservation),
		iv:      make(map[string][]ivPoint),
	}
}

func (a *MemoryAdapter) SetCandles(asset string, candles models.Candles) {
	a.candles[asset] = models.SortCandles(candles)
}

func (a *MemoryAdapter) SetFundingRate(asset string, at time.Time, rate models.FundingRate) {
	a.funding[asset] = append(a.funding[asset], FundingObservation{At: at, Rate: rate})
	sort.Slice(a.funding[asset], func(i, j int) bool {
		return a.funding[asset][i].At.Before(a.funding[asset][j].At)
	})
}

func (a *MemoryAdapter) SetImpliedVolatility(asset string, at time.Time, iv models.ImpliedVolatility) {
	a.iv[asset] = append(a.iv[asset], ivPoint{At: at, IV: iv})
	sort.Slice(a.iv[asset], func(i, j int) bool {
		return a.iv[asset][i].At.Before(a.iv[asset][j].At)
	})
}

// latestCandle returns the most recent candle at or before the requested
// time, or false when the series has not started yet.
func (a *MemoryAdapter) latestCandle(asset string, at time.Time) (models.Candle, bool) {
	series, ok := a.candles[asset]
	if !ok || len(series) == 0 {
		return models.Candle{}, false
	}

	idx := sort.Search(len(series), func(i int) bool {
		return series[i].Timestamp.After(at)
	})

	if idx == 0 {
		return models.Candle{}, false
	}

	return series[idx-1], true
}

func (a *MemoryAdapter) FetchPrice(_ context.Context, asset string, at time.Time) (float64, error) {
	candle, ok := a.latestCandle(asset, at)
	if !ok {
		return 0, fmt.Errorf("%w: no price for %s at %s", models.ErrDataUnavailable, asset, at)
	}

	return candle.Close, nil
}

func (a *MemoryAdapter) FetchOHLCV(_ context.Context, asset string, from, to time.Time, _ time.Duration) (models.Candles, error) {
	series, ok := a.candles[asset]
	if !ok || len(series) == 0 {
		return nil, fmt.Errorf("%w: no candles for %s", models.ErrDataUnavailable, asset)
	}

	var out models.Candles
	for _, candle := range series {
		if candle.Timestamp.Before(from) || candle.Timestamp.After(to) {
			continue
		}

		out = append(out, candle)
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no candles for %s between %s and %s", models.ErrDataUnavailable, asset, from, to)
	}

	return out, nil
}

func (a *MemoryAdapter) FetchFundingRate(_ context.Context, asset string, at time.Time) (*models.FundingRate, error) {
	points := a.funding[asset]

	idx := sort.Search(len(points), func(i int) bool {
		return points[i].At.After(at)
	})

	if idx == 0 {
		return nil, nil
	}

	rate := points[idx-1].Rate
	return &rate, nil
}

func (a *MemoryAdapter) FetchImpliedVolatility(_ context.Context, asset string, at time.Time) (*models.ImpliedVolatility, error) {
	points := a.iv[asset]

	idx := sort.Search(len(points), func(i int) bool {
		return points[i].At.After(at)
	})

	if idx == 0 {
		return nil, nil
	}

	iv := points[idx-1].IV
	return &iv, nil
}

func (a *MemoryAdapter) FetchVolume(_ context.Context, asset string, at time.Time) (*float64, error) {
	candle, ok := a.latestCandle(asset, at)
	if !ok {
		return nil, nil
	}

	volume := candle.Volume
	return &volume, nil
}
