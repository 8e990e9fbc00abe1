package strategies

import (
	"fmt"

	"github.com/quantlabs/defi-yield-backtester/src/models"
	"github.com/quantlabs/defi-yield-backtester/src/optimizer"
)

// maxStableRangeWidth rejects configurations too wide to be a stable-pair
// range; beyond this the volatile-pair variant is the right tool.
const maxStableRangeWidth = 0.02

// StablePairStrategy is the narrow-range variant for pegged pairs. It
// composes the volatile-pair mechanics rather than re-implementing them;
// only the width constraint differs.
type StablePairStrategy struct {
	inner *VolatilePairStrategy
}

func NewStablePairStrategy(name string, cfg LPConfig, opt *optimizer.RangeOptimizer) (*StablePairStrategy, error) {
	if cfg.RangeWidth > maxStableRangeWidth {
		return nil, fmt.Errorf("%w: stable pair range width %v exceeds %v", models.ErrInvalidConfig, cfg.RangeWidth, maxStableRangeWidth)
	}

	inner, err := NewVolatilePairStrategy(name, cfg, opt)
	if err != nil {
		return nil, err
	}

	return &StablePairStrategy{inner: inner}, nil
}

func (s *StablePairStrategy) Name() string {
	return s.inner.Name()
}

func (s *StablePairStrategy) Validate() error {
	return s.inner.Validate()
}

func (s *StablePairStrategy) Execute(portfolio *models.Portfolio, md models.MarketData) (Result, error) {
	return s.inner.Execute(portfolio, md)
}

func (s *StablePairStrategy) ExpectedYield(md models.MarketData) (float64, error) {
	return s.inner.ExpectedYield(md)
}

func (s *StablePairStrategy) RangeWidth() float64 {
	return s.inner.RangeWidth()
}
