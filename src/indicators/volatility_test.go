package indicators

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/quantlabs/defi-yield-backtester/src/models"
)

func TestGarchEstimator(t *testing.T) {
	estimator := NewGarchEstimator(365)

	t.Run("fails below the sample floor", func(t *testing.T) {
		returns := make([]float64, 20)

		_, err := estimator.Estimate(returns)
		require.ErrorIs(t, err, models.ErrInsufficientData)
	})

	t.Run("returns non-negative volatility on a real series", func(t *testing.T) {
		returns := make([]float64, 50)
		for i := range returns {
			returns[i] = 0.02 * math.Sin(float64(i)*0.7)
			if i%7 == 0 {
				returns[i] += 0.05
			}
		}

		vol, err := estimator.Estimate(returns)
		require.NoError(t, err)
		require.GreaterOrEqual(t, float64(vol), 0.0)
		require.Greater(t, float64(vol), 0.0)
	})

	t.Run("constant series yields zero volatility", func(t *testing.T) {
		returns := make([]float64, 40)

		vol, err := estimator.Estimate(returns)
		require.NoError(t, err)
		require.Equal(t, models.Volatility(0), vol)
	})

	t.Run("clustered series yields higher estimate than quiet tail alone", func(t *testing.T) {
		quiet := make([]float64, 60)
		for i := range quiet {
			quiet[i] = 0.001 * math.Sin(float64(i))
		}

		clustered := append([]float64{}, quiet...)
		for i := 30; i < 60; i++ {
			clustered[i] *= 40
		}

		quietVol, err := estimator.Estimate(quiet)
		require.NoError(t, err)

		clusteredVol, err := estimator.Estimate(clustered)
		require.NoError(t, err)

		require.Greater(t, float64(clusteredVol), float64(quietVol))
	})
}

func TestSimpleVolatility(t *testing.T) {
	t.Run("annualizes by sqrt of periods", func(t *testing.T) {
		returns := []float64{0.01, -0.01, 0.01, -0.01, 0.01, -0.01}

		daily, err := SimpleVolatility(returns, 365)
		require.NoError(t, err)

		hourly, err := SimpleVolatility(returns, 24*365)
		require.NoError(t, err)

		require.InDelta(t, math.Sqrt(24), float64(hourly)/float64(daily), 1e-9)
	})

	t.Run("fails with fewer than two returns", func(t *testing.T) {
		_, err := SimpleVolatility([]float64{0.01}, 365)
		require.ErrorIs(t, err, models.ErrInsufficientData)
	})
}
