package strategies

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/quantlabs/defi-yield-backtester/src/models"
)

// OptionsPremiumConfig parameterizes the covered-call overlay. The premium
// capture factor converts annualized implied volatility into a harvestable
// premium APR; 0.25 is a conservative at-the-money weekly-roll figure.
type OptionsPremiumConfig struct {
	Asset                string  `yaml:"asset"`
	Allocation           float64 `yaml:"allocation"`
	PremiumCaptureFactor float64 `yaml:"premiumCaptureFactor"`
}

func (c OptionsPremiumConfig) Validate() error {
	if c.Asset == "" {
		return fmt.Errorf("%w: asset not set", models.ErrInvalidConfig)
	}

	if c.Allocation <= 0 || c.Allocation > 1 {
		return fmt.Errorf("%w: allocation must be in (0, 1], got %v", models.ErrInvalidConfig, c.Allocation)
	}

	if c.PremiumCaptureFactor <= 0 || c.PremiumCaptureFactor > 1 {
		return fmt.Errorf("%w: premium capture factor must be in (0, 1], got %v", models.ErrInvalidConfig, c.PremiumCaptureFactor)
	}

	return nil
}

// OptionsPremiumStrategy holds the underlying and harvests option premium on
// top of it. Premium accrual is driven by implied volatility; ticks without
// an IV quote degrade to holding the underlying, they do not fail.
type OptionsPremiumStrategy struct {
	name string
	cfg  OptionsPremiumConfig
}

func NewOptionsPremiumStrategy(name string, cfg OptionsPremiumConfig) (*OptionsPremiumStrategy, error) {
	s := &OptionsPremiumStrategy{name: name, cfg: cfg}
	if err := s.Validate(); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *OptionsPremiumStrategy) Name() string {
	return s.name
}

func (s *OptionsPremiumStrategy) Validate() error {
	if s.name == "" {
		return fmt.Errorf("%w: strategy name not set", models.ErrInvalidConfig)
	}

	return s.cfg.Validate()
}

func (s *OptionsPremiumStrategy) Execute(portfolio *models.Portfolio, md models.MarketData) (Result, error) {
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
		if md.ImpliedVolatility == nil {
			log.Debugf("%s: no implied volatility at %s, premium accrual paused", s.name, md.Timestamp)
		}

		return Result{Positions: []*models.Position{position}}, nil
	}

	amount := portfolio.TotalValue() * s.cfg.Allocation / md.Price
	if amount <= 0 {
		return Result{}, nil
	}

	trade, err := models.NewTrade(s.name, s.cfg.Asset, models.TradeSideBuy, amount, md.Price, md.Timestamp)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", s.name, err)
	}

	position, err := models.NewPosition(s.name, s.cfg.Asset, amount, md.Price, md.Timestamp)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", s.name, err)
	}

	return Result{
		Trades:    []*models.Trade{trade},
		Positions: []*models.Position{position},
	}, nil
}

// ExpectedYield is the harvestable premium APR: implied volatility times the
// capture factor, in percent. Without an IV quote the overlay earns nothing.
func (s *OptionsPremiumStrategy) ExpectedYield(md models.MarketData) (float64, error) {
	if err := s.Validate(); err != nil {
		return 0, err
	}

	if md.ImpliedVolatility == nil {
		return 0, nil
	}

	return float64(*md.ImpliedVolatility) * s.cfg.PremiumCaptureFactor * 100, nil
}
