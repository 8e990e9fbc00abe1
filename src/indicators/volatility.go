package indicators

import (
	"fmt"
	"math"

	"github.com/montanaflynn/stats"

	"github.com/quantlabs/defi-yield-backtester/src/models"
)

// MinGarchSamples is the floor below which a GARCH fit is refused. Callers
// are expected to catch models.ErrInsufficientData and fall back to
// SimpleVolatility instead of propagating the failure.
const MinGarchSamples = 30

// GarchEstimator fits a GARCH(1,1) variance-clustering model to a log-return
// series. The (alpha, beta) pair is chosen by maximizing the Gaussian
// quasi-likelihood over a coarse grid, with omega pinned by variance
// targeting; the returned figure is the annualized square root of the last
// filtered conditional variance.
type GarchEstimator struct {
	PeriodsPerYear float64
}

func NewGarchEstimator(periodsPerYear float64) *GarchEstimator {
	return &GarchEstimator{PeriodsPerYear: periodsPerYear}
}

func (g *GarchEstimator) Estimate(returns []float64) (models.Volatility, error) {
	if g.PeriodsPerYear <= 0 {
		return 0, fmt.Errorf("%w: periods per year must be positive", models.ErrInvalidConfig)
	}

	if len(returns) < MinGarchSamples {
		return 0, fmt.Errorf("%w: need at least %d returns, got %d", models.ErrInsufficientData, MinGarchSamples, len(returns))
	}

	sampleVariance, err := stats.Variance(returns)
	if err != nil {
		return 0, fmt.Errorf("failed to calculate sample variance: %v", err)
	}

	if sampleVariance <= 0 {
		// a constant series has no variance to cluster
		return models.NewVolatility(0)
	}

	bestAlpha, bestBeta := 0.05, 0.90
	bestLL := math.Inf(-1)

	for alpha := 0.02; alpha <= 0.20; alpha += 0.02 {
		for beta := 0.70; beta <= 0.97; beta += 0.03 {
			if alpha+beta >= 0.999 {
				continue
			}

			ll := garchLogLikelihood(returns, sampleVariance, alpha, beta)
			if ll > bestLL {
				bestLL = ll
				bestAlpha = alpha
				bestBeta = beta
			}
		}
	}

	variance := filterConditionalVariance(returns, sampleVariance, bestAlpha, bestBeta)

	return models.NewVolatility(math.Sqrt(variance * g.PeriodsPerYear))
}

func garchLogLikelihood(returns []float64, sampleVariance, alpha, beta float64) float64 {
	omega := sampleVariance * (1 - alpha - beta)

	ll := 0.0
	variance := sampleVariance
	for _, r := range returns {
		if variance <= 0 {
			return math.Inf(-1)
		}

		ll += -0.5 * (math.Log(variance) + r*r/variance)
		variance = omega + alpha*r*r + beta*variance
	}

	return ll
}

func filterConditionalVariance(returns []float64, sampleVariance, alpha, beta float64) float64 {
	omega := sampleVariance * (1 - alpha - beta)

	variance := sampleVariance
	for _, r := range returns {
		variance = omega + alpha*r*r + beta*variance
	}

	return variance
}

// SimpleVolatility is the fast historical-stdev fallback: sample standard
// deviation of the returns scaled by the square root of periods per year.
func SimpleVolatility(returns []float64, periodsPerYear float64) (models.Volatility, error) {
	if len(returns) < 2 {
		return 0, fmt.Errorf("%w: need at least 2 returns, got %d", models.ErrInsufficientData, len(returns))
	}

	sd, err := stats.StandardDeviationSample(returns)
	if err != nil {
		return 0, fmt.Errorf("failed to calculate the standard deviation: %v", err)
	}

	return models.NewVolatility(sd * math.Sqrt(periodsPerYear))
}
