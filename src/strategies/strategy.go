package strategies

import (
	"fmt"

	"github.com/quantlabs/defi-yield-backtester/src/models"
)

// Result is one strategy invocation's output. Positions is the full set the
// strategy wants open after this tick: the engine inserts new ids, replaces
// existing ones, and closes any position the strategy previously returned
// but now omits.
type Result struct {
	Trades          []*models.Trade
	Positions       []*models.Position
	ShouldRebalance bool
	RebalanceReason string
}

// Strategy is the polymorphic decision unit driven once per simulation tick.
// Execute must be a pure function of its inputs plus the strategy's own
// minimal internal state (e.g. the last rebalance reference price); no
// global state is shared across instances. ExpectedYield is a forward
// looking APR estimate in percent and must not mutate anything.
type Strategy interface {
	Name() string
	Validate() error
	Execute(portfolio *models.Portfolio, md models.MarketData) (Result, error)
	ExpectedYield(md models.MarketData) (float64, error)
}

// DefaultRebalanceThreshold triggers a rebalance before the position fully
// exits its range, not after.
const DefaultRebalanceThreshold = 0.9

// LPConfig is the shared configuration of the range-bound liquidity
// provision family.
type LPConfig struct {
	Asset              string  `yaml:"asset"`
	Allocation         float64 `yaml:"allocation"`
	RangeWidth         float64 `yaml:"rangeWidth"`
	RebalanceThreshold float64 `yaml:"rebalanceThreshold"`
	FeeAPR             float64 `yaml:"feeApr"`
	IncentiveAPR       float64 `yaml:"incentiveApr"`
}

func (c LPConfig) Validate() error {
	if c.Asset == "" {
		return fmt.Errorf("%w: asset not set", models.ErrInvalidConfig)
	}

	if c.Allocation <= 0 || c.Allocation > 1 {
		return fmt.Errorf("%w: allocation must be in (0, 1], got %v", models.ErrInvalidConfig, c.Allocation)
	}

	if c.RangeWidth <= 0 || c.RangeWidth > 1 {
		return fmt.Errorf("%w: range width must be in (0, 1], got %v", models.ErrInvalidConfig, c.RangeWidth)
	}

	if c.RebalanceThreshold < 0 || c.RebalanceThreshold > 1 {
		return fmt.Errorf("%w: rebalance threshold must be in [0, 1], got %v", models.ErrInvalidConfig, c.RebalanceThreshold)
	}

	if c.FeeAPR < 0 || c.IncentiveAPR < 0 {
		return fmt.Errorf("%w: apr components must be non-negative", models.ErrInvalidConfig)
	}

	return nil
}

func (c LPConfig) rebalanceThreshold() float64 {
	if c.RebalanceThreshold == 0 {
		return DefaultRebalanceThreshold
	}

	return c.RebalanceThreshold
}

// percentageChange is the signed relative move from reference to current.
func percentageChange(current, reference float64) float64 {
	if reference == 0 {
		return 0
	}

	return (current - reference) / reference
}
