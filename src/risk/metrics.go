package risk

import (
	"fmt"
	"math"
	"sort"

	"github.com/montanaflynn/stats"

	"github.com/quantlabs/defi-yield-backtester/src/models"
)

// Metrics summarizes a backtest's return stream. Ratios are computed on the
// per-period returns and annualized by the caller-supplied periods per year.
type Metrics struct {
	TotalReturnPct   float64 `json:"totalReturnPct"`
	AnnualizedReturn float64 `json:"annualizedReturn"`
	SharpeRatio      float64 `json:"sharpeRatio"`
	SortinoRatio     float64 `json:"sortinoRatio"`
	MaxDrawdown      float64 `json:"maxDrawdown"`
	CurrentDrawdown  float64 `json:"currentDrawdown"`
	ValueAtRisk95    float64 `json:"valueAtRisk95"`
	Volatility       float64 `json:"volatility"`
	Periods          int     `json:"periods"`
}

// PeriodReturns converts an equity curve to simple per-period returns.
func PeriodReturns(values []float64) ([]float64, error) {
	if len(values) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 equity points, got %d", models.ErrInsufficientData, len(values))
	}

	returns := make([]float64, 0, len(values)-1)
	for i := 1; i < len(values); i++ {
		if values[i-1] <= 0 {
			return nil, fmt.Errorf("%w: equity must stay positive, got %v at index %d", models.ErrComputation, values[i-1], i-1)
		}

		returns = append(returns, values[i]/values[i-1]-1)
	}

	return returns, nil
}

// SharpeRatio is the annualized excess return over the full-sample return
// volatility. The risk-free rate is annual; it is de-annualized to the
// period before the excess is taken.
func SharpeRatio(returns []float64, riskFreeRate, periodsPerYear float64) (float64, error) {
	if len(returns) < 2 {
		return 0, fmt.Errorf("%w: need at least 2 returns for sharpe, got %d", models.ErrInsufficientData, len(returns))
	}

	if periodsPerYear <= 0 {
		return 0, fmt.Errorf("%w: periods per year must be positive", models.ErrInvalidConfig)
	}

	mean, err := stats.Mean(stats.Float64Data(returns))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", models.ErrComputation, err)
	}

	sd, err := stats.StandardDeviationSample(stats.Float64Data(returns))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", models.ErrComputation, err)
	}

	if sd == 0 {
		return 0, nil
	}

	excess := mean - riskFreeRate/periodsPerYear

	return excess / sd * math.Sqrt(periodsPerYear), nil
}

// SortinoRatio penalizes only downside deviation. The downside variance is
// taken over the full sample count, not just the losing periods. With no
// losing periods the ratio is +Inf for positive excess return, 0 otherwise.
func SortinoRatio(returns []float64, riskFreeRate, periodsPerYear float64) (float64, error) {
	if len(returns) < 2 {
		return 0, fmt.Errorf("%w: need at least 2 returns for sortino, got %d", models.ErrInsufficientData, len(returns))
	}

	if periodsPerYear <= 0 {
		return 0, fmt.Errorf("%w: periods per year must be positive", models.ErrInvalidConfig)
	}

	mean, err := stats.Mean(stats.Float64Data(returns))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", models.ErrComputation, err)
	}

	excess := mean - riskFreeRate/periodsPerYear

	downsideSumSq := 0.0
	for _, r := range returns {
		if r < 0 {
			downsideSumSq += r * r
		}
	}

	if downsideSumSq == 0 {
		if excess > 0 {
			return math.Inf(1), nil
		}

		return 0, nil
	}

	downsideDeviation := math.Sqrt(downsideSumSq / float64(len(returns)))

	return excess / downsideDeviation * math.Sqrt(periodsPerYear), nil
}

// MaxDrawdown is the deepest peak-to-trough decline of the equity curve, as
// a positive fraction.
func MaxDrawdown(values []float64) (float64, error) {
	if len(values) < 2 {
		return 0, fmt.Errorf("%w: need at least 2 equity points, got %d", models.ErrInsufficientData, len(values))
	}

	peak := values[0]
	maxDrawdown := 0.0

	for _, v := range values {
		if v > peak {
			peak = v
		}

		if peak > 0 {
			if dd := (peak - v) / peak; dd > maxDrawdown {
				maxDrawdown = dd
			}
		}
	}

	return maxDrawdown, nil
}

// CurrentDrawdown is the decline from the running peak to the final value.
func CurrentDrawdown(values []float64) (float64, error) {
	if len(values) < 1 {
		return 0, fmt.Errorf("%w: empty equity curve", models.ErrInsufficientData)
	}

	peak := values[0]
	for _, v := range values {
		if v > peak {
			peak = v
		}
	}

	if peak <= 0 {
		return 0, nil
	}

	return (peak - values[len(values)-1]) / peak, nil
}

// ValueAtRisk95 is the magnitude of the 5th-percentile per-period return,
// taken by floor index on the sorted sample. Zero when that percentile is a
// gain.
func ValueAtRisk95(returns []float64) (float64, error) {
	if len(returns) < 2 {
		return 0, fmt.Errorf("%w: need at least 2 returns for var, got %d", models.ErrInsufficientData, len(returns))
	}

	sorted := make([]float64, len(returns))
	copy(sorted, returns)
	sort.Float64s(sorted)

	idx := int(math.Floor(0.05 * float64(len(sorted))))
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}

	loss := sorted[idx]
	if loss >= 0 {
		return 0, nil
	}

	return -loss, nil
}

// Compute assembles the full metric set from an equity curve.
func Compute(values []float64, riskFreeRate, periodsPerYear float64) (Metrics, error) {
	returns, err := PeriodReturns(values)
	if err != nil {
		return Metrics{}, err
	}

	sharpe, err := SharpeRatio(returns, riskFreeRate, periodsPerYear)
	if err != nil {
		return Metrics{}, err
	}

	sortino, err := SortinoRatio(returns, riskFreeRate, periodsPerYear)
	if err != nil {
		return Metrics{}, err
	}

	maxDD, err := MaxDrawdown(values)
	if err != nil {
		return Metrics{}, err
	}

	currentDD, err := CurrentDrawdown(values)
	if err != nil {
		return Metrics{}, err
	}

	valueAtRisk, err := ValueAtRisk95(returns)
	if err != nil {
		return Metrics{}, err
	}

	sd, err := stats.StandardDeviationSample(stats.Float64Data(returns))
	if err != nil {
		return Metrics{}, fmt.Errorf("%w: %v", models.ErrComputation, err)
	}

	totalReturn := values[len(values)-1]/values[0] - 1
	years := float64(len(returns)) / periodsPerYear

	annualized := 0.0
	if years > 0 {
		annualized = math.Pow(1+totalReturn, 1/years) - 1
	}

	return Metrics{
		TotalReturnPct:   totalReturn * 100,
		AnnualizedReturn: annualized * 100,
		SharpeRatio:      sharpe,
		SortinoRatio:     sortino,
		MaxDrawdown:      maxDD,
		CurrentDrawdown:  currentDD,
		ValueAtRisk95:    valueAtRisk,
		Volatility:       sd * math.Sqrt(periodsPerYear),
		Periods:          len(returns),
	}, nil
}
