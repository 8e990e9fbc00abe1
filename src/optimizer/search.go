package optimizer

import (
	"fmt"
	"math"

	"github.com/quantlabs/defi-yield-backtester/src/models"
)

// DefaultGridSteps is the default search resolution. The objective is cheap
// and piecewise (not smooth), so an exhaustive grid is preferred over any
// method that assumes continuity.
const DefaultGridSteps = 100

// SearchConfig bounds and parameterizes a grid search. The returned width
// always lies within [MinWidth, MaxWidth].
type SearchConfig struct {
	MinWidth         float64
	MaxWidth         float64
	Steps            int
	TargetAPY        float64
	Yields           YieldComponents
	Volatility       models.Volatility
	TrendVelocity    models.DriftVelocity
	CostModel        *models.CostModel
	PositionValueUSD float64
}

func (c SearchConfig) validate() error {
	if c.MinWidth <= 0 {
		return fmt.Errorf("%w: min width must be positive", models.ErrInvalidConfig)
	}

	if c.MaxWidth < c.MinWidth {
		return fmt.Errorf("%w: max width %v is below min width %v", models.ErrInvalidConfig, c.MaxWidth, c.MinWidth)
	}

	return nil
}

func (c SearchConfig) steps() int {
	if c.Steps <= 0 {
		return DefaultGridSteps
	}

	return c.Steps
}

func (c SearchConfig) request(width float64) EstimateRequest {
	return EstimateRequest{
		Width:            width,
		Yields:           c.Yields,
		Volatility:       c.Volatility,
		TrendVelocity:    c.TrendVelocity,
		CostModel:        c.CostModel,
		PositionValueUSD: c.PositionValueUSD,
	}
}

// FindOptimalRange grid-searches for the width whose expected APY is closest
// to the configured target.
func (o *RangeOptimizer) FindOptimalRange(cfg SearchConfig) (RangeEstimate, error) {
	if err := cfg.validate(); err != nil {
		return RangeEstimate{}, err
	}

	var best RangeEstimate
	bestDistance := math.Inf(1)

	for _, width := range gridWidths(cfg.MinWidth, cfg.MaxWidth, cfg.steps()) {
		estimate, err := o.EstimateAPYForRange(cfg.request(width))
		if err != nil {
			return RangeEstimate{}, err
		}

		distance := math.Abs(estimate.ExpectedAPY - cfg.TargetAPY)
		if distance < bestDistance {
			bestDistance = distance
			best = estimate
		}
	}

	return best, nil
}

// FindOptimalNarrowestRange grid-searches for the width maximizing net APY
// after rebalance costs. Cost-aware search is meaningless without a positive
// position value, so that is an explicit failure, not a default.
func (o *RangeOptimizer) FindOptimalNarrowestRange(cfg SearchConfig) (RangeEstimate, error) {
	if err := cfg.validate(); err != nil {
		return RangeEstimate{}, err
	}

	if cfg.CostModel == nil {
		return RangeEstimate{}, fmt.Errorf("%w: cost-aware search requires a cost model", models.ErrComputation)
	}

	if cfg.PositionValueUSD <= 0 {
		return RangeEstimate{}, fmt.Errorf("%w: cost-aware search requires a positive position value, got %v", models.ErrComputation, cfg.PositionValueUSD)
	}

	var best RangeEstimate
	bestNet := math.Inf(-1)

	for _, width := range gridWidths(cfg.MinWidth, cfg.MaxWidth, cfg.steps()) {
		estimate, err := o.EstimateAPYForRange(cfg.request(width))
		if err != nil {
			return RangeEstimate{}, err
		}

		if estimate.NetAPY == nil {
			return RangeEstimate{}, fmt.Errorf("%w: estimate returned no net apy", models.ErrComputation)
		}

		// ties go to the narrower width, which the ascending grid visits first
		if *estimate.NetAPY > bestNet {
			bestNet = *estimate.NetAPY
			best = estimate
		}
	}

	return best, nil
}

func gridWidths(min, max float64, steps int) []float64 {
	if min == max || steps <= 1 {
		return []float64{min}
	}

	stepSize := (max - min) / float64(steps-1)
	widths := make([]float64, steps)
	for i := 0; i < steps; i++ {
		widths[i] = min + float64(i)*stepSize
	}

	// guard against floating point creep past the upper bound
	widths[steps-1] = max

	return widths
}
