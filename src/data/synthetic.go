package data

import (
	"math"
	"math/rand"
	"time"

	"github.com/quantlabs/defi-yield-backtester/src/models"
)

// Synthetic candle generators for backtest fixtures and dry runs. Each
// produces a close-driven series with degenerate OHLC (open=high=low=close),
// which is all the engine and the indicators need.

func syntheticCandle(at time.Time, price float64) models.Candle {
	return models.Candle{
		Timestamp: at,
		Open:      price,
		High:      price,
		Low:       price,
		Close:     price,
		Volume:    1_000_000,
	}
}

// FlatSeries holds the price constant.
func FlatSeries(start time.Time, period time.Duration, count int, price float64) models.Candles {
	candles := make(models.Candles, 0, count)
	for i := 0; i < count; i++ {
		candles = append(candles, syntheticCandle(start.Add(time.Duration(i)*period), price))
	}

	return candles
}

// TrendingSeries compounds a constant per-period return.
func TrendingSeries(start time.Time, period time.Duration, count int, price, perPeriodReturn float64) models.Candles {
	candles := make(models.Candles, 0, count)
	for i := 0; i < count; i++ {
		candles = append(candles, syntheticCandle(start.Add(time.Duration(i)*period), price))
		price *= 1 + perPeriodReturn
	}

	return candles
}

// SawtoothSeries oscillates between the base price and base*(1+amplitude),
// a stand-in for a strongly mean-reverting market.
func SawtoothSeries(start time.Time, period time.Duration, count int, price, amplitude float64) models.Candles {
	candles := make(models.Candles, 0, count)
	for i := 0; i < count; i++ {
		p := price
		if i%2 == 1 {
			p = price * (1 + amplitude)
		}

		candles = append(candles, syntheticCandle(start.Add(time.Duration(i)*period), p))
	}

	return candles
}

// RandomWalkSeries is a seeded geometric random walk; the same seed always
// reproduces the same path.
func RandomWalkSeries(start time.Time, period time.Duration, count int, price, perPeriodVol float64, seed int64) models.Candles {
	rng := rand.New(rand.NewSource(seed))

	candles := make(models.Candles, 0, count)
	for i := 0; i < count; i++ {
		candles = append(candles, syntheticCandle(start.Add(time.Duration(i)*period), price))
		price *= math.Exp(perPeriodVol * rng.NormFloat64())
	}

	return candles
}
