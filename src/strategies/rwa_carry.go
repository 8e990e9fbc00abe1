package strategies

import (
	"fmt"

	"github.com/quantlabs/defi-yield-backtester/src/models"
)

// RWACarryConfig parameterizes a leveraged real-world-asset carry: hold a
// coupon-bearing token, borrow stables against it, and pocket the spread.
type RWACarryConfig struct {
	Asset           string  `yaml:"asset"`
	Allocation      float64 `yaml:"allocation"`
	CouponAPR       float64 `yaml:"couponApr"`
	BorrowAPR       float64 `yaml:"borrowApr"`
	Leverage        float64 `yaml:"leverage"`
	MinHealthFactor float64 `yaml:"minHealthFactor"`
}

func (c RWACarryConfig) Validate() error {
	if c.Asset == "" {
		return fmt.Errorf("%w: asset not set", models.ErrInvalidConfig)
	}

	if c.Allocation <= 0 || c.Allocation > 1 {
		return fmt.Errorf("%w: allocation must be in (0, 1], got %v", models.ErrInvalidConfig, c.Allocation)
	}

	if c.CouponAPR <= 0 {
		return fmt.Errorf("%w: coupon apr must be positive", models.ErrInvalidConfig)
	}

	if c.BorrowAPR < 0 {
		return fmt.Errorf("%w: borrow apr must be non-negative", models.ErrInvalidConfig)
	}

	if c.Leverage < 1 || c.Leverage > 5 {
		return fmt.Errorf("%w: leverage must be between 1 and 5, got %v", models.ErrInvalidConfig, c.Leverage)
	}

	if c.MinHealthFactor <= 1 {
		return fmt.Errorf("%w: min health factor must exceed 1, got %v", models.ErrInvalidConfig, c.MinHealthFactor)
	}

	return nil
}

// NetAPR is the leveraged coupon less borrow cost, in percent.
func (c RWACarryConfig) NetAPR() float64 {
	return c.CouponAPR*c.Leverage - c.BorrowAPR*(c.Leverage-1)
}

// RWACarryStrategy opens the leveraged carry once and watches its health
// factor; RWA marks move slowly, so there is no range to maintain.
type RWACarryStrategy struct {
	name string
	cfg  RWACarryConfig
}

func NewRWACarryStrategy(name string, cfg RWACarryConfig) (*RWACarryStrategy, error) {
	s := &RWACarryStrategy{name: name, cfg: cfg}
	if err := s.Validate(); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *RWACarryStrategy) Name() string {
	return s.name
}

func (s *RWACarryStrategy) Validate() error {
	if s.name == "" {
		return fmt.Errorf("%w: strategy name not set", models.ErrInvalidConfig)
	}

	return s.cfg.Validate()
}

func (s *RWACarryStrategy) Execute(portfolio *models.Portfolio, md models.MarketData) (Result, error) {
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

		if !hf.IsInfinite() && float64(hf) < s.cfg.MinHealthFactor {
			return Result{
				Positions:       []*models.Position{position},
				ShouldRebalance: true,
				RebalanceReason: fmt.Sprintf("health factor %.3f below minimum %.3f", float64(hf), s.cfg.MinHealthFactor),
			}, nil
		}

		return Result{Positions: []*models.Position{position}}, nil
	}

	capital := portfolio.TotalValue() * s.cfg.Allocation
	amount := capital * s.cfg.Leverage / md.Price

	trade, err := models.NewTrade(s.name, s.cfg.Asset, models.TradeSideBuy, amount, md.Price, md.Timestamp)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", s.name, err)
	}

	position, err := models.NewPosition(s.name, s.cfg.Asset, amount, md.Price, md.Timestamp)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", s.name, err)
	}

	position.CollateralAmount = amount
	position.BorrowedAmount = capital * (s.cfg.Leverage - 1)

	return Result{
		Trades:    []*models.Trade{trade},
		Positions: []*models.Position{position},
	}, nil
}

// ExpectedYield is the fixed carry spread; market data does not move it.
func (s *RWACarryStrategy) ExpectedYield(models.MarketData) (float64, error) {
	if err := s.Validate(); err != nil {
		return 0, err
	}

	return s.cfg.NetAPR(), nil
}
