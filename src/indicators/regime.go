package indicators

import (
	"fmt"
	"math"
	"time"

	"github.com/montanaflynn/stats"
	log "github.com/sirupsen/logrus"

	"github.com/quantlabs/defi-yield-backtester/src/models"
)

// MinRegimeCandles is the floor below which regime analysis is refused.
const MinRegimeCandles = 10

const hoursPerYear = 24 * 365

// RegimeReport is the full output of one analysis pass over a candle window.
type RegimeReport struct {
	Hurst      models.HurstExponent `json:"hurst"`
	Volatility models.Volatility    `json:"volatility"`
	Drift      models.DriftVelocity `json:"drift"`
	MACD       models.MACD          `json:"macd"`
}

// RegimeAnalyst computes trend persistence, drift and momentum from a
// rolling candle window. It prefers the GARCH estimator for volatility and
// falls back to the simple historical stdev when the window is too short.
type RegimeAnalyst struct{}

func NewRegimeAnalyst() *RegimeAnalyst {
	return &RegimeAnalyst{}
}

func (a *RegimeAnalyst) Analyze(candles models.Candles) (RegimeReport, error) {
	if len(candles) < MinRegimeCandles {
		return RegimeReport{}, fmt.Errorf("%w: need at least %d candles, got %d", models.ErrInsufficientData, MinRegimeCandles, len(candles))
	}

	period := candles.Period()
	if period <= 0 {
		period = 24 * time.Hour
	}

	periodsPerYear := float64(hoursPerYear) / period.Hours()
	returns := candles.LogReturns()

	volatility, err := NewGarchEstimator(periodsPerYear).Estimate(returns)
	if err != nil {
		log.Debugf("garch estimate unavailable, using simple stdev: %v", err)

		volatility, err = SimpleVolatility(returns, periodsPerYear)
		if err != nil {
			return RegimeReport{}, fmt.Errorf("volatility fallback failed: %w", err)
		}
	}

	hurst, err := HurstExponent(returns)
	if err != nil {
		return RegimeReport{}, fmt.Errorf("failed to calculate hurst exponent: %w", err)
	}

	drift := driftVelocity(returns, period)

	return RegimeReport{
		Hurst:      hurst,
		Volatility: volatility,
		Drift:      drift,
		MACD:       ComputeMACD(candles.Closes()),
	}, nil
}

// HurstExponent runs a rescaled-range analysis over the return series:
// the range of mean-adjusted cumulative deviations over the standard
// deviation, with H = log(R/S) / log(N).
func HurstExponent(returns []float64) (models.HurstExponent, error) {
	if len(returns) < 2 {
		return 0, fmt.Errorf("%w: need at least 2 returns", models.ErrInsufficientData)
	}

	mean, err := stats.Mean(returns)
	if err != nil {
		return 0, fmt.Errorf("failed to calculate mean: %v", err)
	}

	sd, err := stats.StandardDeviation(returns)
	if err != nil {
		return 0, fmt.Errorf("failed to calculate standard deviation: %v", err)
	}

	if sd == 0 {
		// a constant series carries no trend information
		return models.NewHurstExponent(0.5)
	}

	cumulative := 0.0
	minDev, maxDev := math.Inf(1), math.Inf(-1)
	for _, r := range returns {
		cumulative += r - mean
		if cumulative < minDev {
			minDev = cumulative
		}
		if cumulative > maxDev {
			maxDev = cumulative
		}
	}

	rs := (maxDev - minDev) / sd
	if rs <= 0 {
		return models.NewHurstExponent(0.5)
	}

	h := math.Log(rs) / math.Log(float64(len(returns)))

	// rescaled range on short windows can stray slightly outside [0, 1]
	h = math.Max(0, math.Min(1, h))

	return models.NewHurstExponent(h)
}

// driftVelocity is the average absolute per-period log return annualized,
// hard-capped by the DriftVelocity constructor.
func driftVelocity(returns []float64, period time.Duration) models.DriftVelocity {
	if len(returns) == 0 || period <= 0 {
		return models.NewDriftVelocity(0)
	}

	sumAbs := 0.0
	sum := 0.0
	for _, r := range returns {
		sumAbs += math.Abs(r)
		sum += r
	}

	perHour := (sumAbs / float64(len(returns))) / period.Hours()
	annualized := perHour * hoursPerYear

	// preserve the direction of the net move
	if sum < 0 {
		annualized = -annualized
	}

	return models.NewDriftVelocity(annualized)
}
