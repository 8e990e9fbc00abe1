package strategies

import (
	"fmt"
	"math"

	"github.com/quantlabs/defi-yield-backtester/src/models"
)

// LeveragedLendingConfig parameterizes a recursive supply/borrow loop:
// supply the asset, borrow against it at the configured LTV, re-supply, for
// LoopCount iterations.
type LeveragedLendingConfig struct {
	Asset           string  `yaml:"asset"`
	Allocation      float64 `yaml:"allocation"`
	SupplyAPR       float64 `yaml:"supplyApr"`
	BorrowAPR       float64 `yaml:"borrowApr"`
	LTV             float64 `yaml:"ltv"`
	LoopCount       int     `yaml:"loopCount"`
	MinHealthFactor float64 `yaml:"minHealthFactor"`
}

func (c LeveragedLendingConfig) Validate() error {
	if c.Asset == "" {
		return fmt.Errorf("%w: asset not set", models.ErrInvalidConfig)
	}

	if c.Allocation <= 0 || c.Allocation > 1 {
		return fmt.Errorf("%w: allocation must be in (0, 1], got %v", models.ErrInvalidConfig, c.Allocation)
	}

	if c.SupplyAPR < 0 || c.BorrowAPR < 0 {
		return fmt.Errorf("%w: apr components must be non-negative", models.ErrInvalidConfig)
	}

	if c.LTV <= 0 || c.LTV >= 1 {
		return fmt.Errorf("%w: ltv must be in (0, 1), got %v", models.ErrInvalidConfig, c.LTV)
	}

	if c.LoopCount < 1 || c.LoopCount > 10 {
		return fmt.Errorf("%w: loop count must be between 1 and 10, got %d", models.ErrInvalidConfig, c.LoopCount)
	}

	if c.MinHealthFactor <= 1 {
		return fmt.Errorf("%w: min health factor must exceed 1, got %v", models.ErrInvalidConfig, c.MinHealthFactor)
	}

	return nil
}

// LeverageFactor is the total supplied exposure per unit of initial capital
// after all loops: 1 + ltv + ltv² + … + ltvⁿ.
func (c LeveragedLendingConfig) LeverageFactor() float64 {
	return (1 - math.Pow(c.LTV, float64(c.LoopCount)+1)) / (1 - c.LTV)
}

// NetAPR is the carry after borrow costs, in percent.
func (c LeveragedLendingConfig) NetAPR() float64 {
	leverage := c.LeverageFactor()
	return c.SupplyAPR*leverage - c.BorrowAPR*(leverage-1)
}

// LeveragedLendingStrategy builds the looped position once and then watches
// its health factor, requesting a deleveraging rebalance when it decays
// toward the configured floor.
type LeveragedLendingStrategy struct {
	name string
	cfg  LeveragedLendingConfig
}

func NewLeveragedLendingStrategy(name string, cfg LeveragedLendingConfig) (*LeveragedLendingStrategy, error) {
	s := &LeveragedLendingStrategy{name: name, cfg: cfg}
	if err := s.Validate(); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *LeveragedLendingStrategy) Name() string {
	return s.name
}

func (s *LeveragedLendingStrategy) Validate() error {
	if s.name == "" {
		return fmt.Errorf("%w: strategy name not set", models.ErrInvalidConfig)
	}

	return s.cfg.Validate()
}

func (s *LeveragedLendingStrategy) Execute(portfolio *models.Portfolio, md models.MarketData) (Result, error) {
	if err := s.Validate(); err != nil {
		return Result{}, err
	}

	if err := md.Validate(); err != nil {
		return Result{}, fmt.Errorf("%s: bad market data: %w", s.name, err)
	}

	if md.Asset != s.cfg.Asset {
		return Result{}, nil
	}

	if position, found := portfolio.FindPosition(s.name, s.cfg.Asset); found {
		hf, err := position.HealthFactor()
		if err != nil {
			return Result{}, fmt.Errorf("%s: %w", s.name, err)
		}

		if float64(hf) < s.cfg.MinHealthFactor {
			return Result{
				Positions:       []*models.Position{position},
				ShouldRebalance: true,
				RebalanceReason: fmt.Sprintf("health factor %.3f below minimum %.3f", float64(hf), s.cfg.MinHealthFactor),
			}, nil
		}

		return Result{Positions: []*models.Position{position}}, nil
	}

	capital := portfolio.TotalValue() * s.cfg.Allocation
	leverage := s.cfg.LeverageFactor()

	suppliedAmount := capital * leverage / md.Price
	borrowedUSD := capital * (leverage - 1)

	trade, err := models.NewTrade(s.name, s.cfg.Asset, models.TradeSideBuy, suppliedAmount, md.Price, md.Timestamp)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", s.name, err)
	}

	position, err := models.NewPosition(s.name, s.cfg.Asset, suppliedAmount, md.Price, md.Timestamp)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", s.name, err)
	}

	position.CollateralAmount = suppliedAmount
	position.BorrowedAmount = borrowedUSD

	return Result{
		Trades:    []*models.Trade{trade},
		Positions: []*models.Position{position},
	}, nil
}

// ExpectedYield is the loop's net carry; it does not depend on the tick.
func (s *LeveragedLendingStrategy) ExpectedYield(models.MarketData) (float64, error) {
	if err := s.Validate(); err != nil {
		return 0, err
	}

	return s.cfg.NetAPR(), nil
}
