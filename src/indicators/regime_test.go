package indicators

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/quantlabs/defi-yield-backtester/src/models"
)

func candleSeries(t *testing.T, closes []float64, period time.Duration) models.Candles {
	t.Helper()

	start := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	candles := make(models.Candles, len(closes))
	for i, close := range closes {
		candles[i] = models.Candle{
			Timestamp: start.Add(time.Duration(i) * period),
			Open:      close,
			High:      close,
			Low:       close,
			Close:     close,
			Volume:    1000,
		}
	}

	return candles
}

func TestRegimeAnalyst(t *testing.T) {
	analyst := NewRegimeAnalyst()

	t.Run("fails below ten candles", func(t *testing.T) {
		closes := []float64{100, 101, 102, 103, 104}

		_, err := analyst.Analyze(candleSeries(t, closes, time.Hour))
		require.ErrorIs(t, err, models.ErrInsufficientData)
	})

	t.Run("monotonic trend yields hurst above 0.55", func(t *testing.T) {
		closes := make([]float64, 50)
		for i := range closes {
			closes[i] = 100 + 2*float64(i)
		}

		report, err := analyst.Analyze(candleSeries(t, closes, time.Hour))
		require.NoError(t, err)
		require.Greater(t, float64(report.Hurst), 0.55)
		require.True(t, report.Hurst.IsTrending())
	})

	t.Run("sawtooth yields hurst below 0.45", func(t *testing.T) {
		closes := make([]float64, 50)
		for i := range closes {
			if i%2 == 0 {
				closes[i] = 100
			} else {
				closes[i] = 110
			}
		}

		report, err := analyst.Analyze(candleSeries(t, closes, time.Hour))
		require.NoError(t, err)
		require.Less(t, float64(report.Hurst), 0.45)
		require.True(t, report.Hurst.IsMeanReverting())
	})

	t.Run("drift is capped at 20 percent annual magnitude", func(t *testing.T) {
		closes := make([]float64, 50)
		closes[0] = 100
		for i := 1; i < len(closes); i++ {
			closes[i] = closes[i-1] * 1.05
		}

		report, err := analyst.Analyze(candleSeries(t, closes, time.Hour))
		require.NoError(t, err)
		require.InDelta(t, models.MaxAnnualDrift, report.Drift.Abs(), 1e-9)
	})

	t.Run("flat series is a random walk with zero drift", func(t *testing.T) {
		closes := make([]float64, 50)
		for i := range closes {
			closes[i] = 100
		}

		report, err := analyst.Analyze(candleSeries(t, closes, time.Hour))
		require.NoError(t, err)
		require.InDelta(t, 0.5, float64(report.Hurst), 1e-9)
		require.Equal(t, 0.0, report.Drift.Abs())
		require.Equal(t, models.Volatility(0), report.Volatility)
	})
}

func TestComputeMACD(t *testing.T) {
	t.Run("neutral below 26 points", func(t *testing.T) {
		closes := make([]float64, 20)
		for i := range closes {
			closes[i] = 100 + float64(i)
		}

		require.True(t, ComputeMACD(closes).IsNeutral())
	})

	t.Run("positive histogram in an accelerating uptrend", func(t *testing.T) {
		closes := make([]float64, 60)
		closes[0] = 100
		for i := 1; i < len(closes); i++ {
			growth := 1.0 + 0.001*float64(i)/10
			closes[i] = closes[i-1] * growth
		}

		macd := ComputeMACD(closes)
		require.False(t, macd.IsNeutral())
		require.Greater(t, macd.Line, 0.0)
		require.True(t, macd.IsBullish())
	})

	t.Run("negative line in a downtrend", func(t *testing.T) {
		closes := make([]float64, 60)
		closes[0] = 100
		for i := 1; i < len(closes); i++ {
			closes[i] = closes[i-1] * 0.99
		}

		macd := ComputeMACD(closes)
		require.Less(t, macd.Line, 0.0)
	})
}
