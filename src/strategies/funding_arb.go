package strategies

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/quantlabs/defi-yield-backtester/src/models"
)

// FundingArbConfig parameterizes delta-neutral funding capture: long spot,
// short an equal perpetual notional, collecting funding while it is paid to
// shorts.
type FundingArbConfig struct {
	Asset                 string  `yaml:"asset"`
	Allocation            float64 `yaml:"allocation"`
	FundingPeriodsPerYear float64 `yaml:"fundingPeriodsPerYear"`
	MinEntryAPR           float64 `yaml:"minEntryApr"`
	ExitAPR               float64 `yaml:"exitApr"`
}

func (c FundingArbConfig) Validate() error {
	if c.Asset == "" {
		return fmt.Errorf("%w: asset not set", models.ErrInvalidConfig)
	}

	if c.Allocation <= 0 || c.Allocation > 1 {
		return fmt.Errorf("%w: allocation must be in (0, 1], got %v", models.ErrInvalidConfig, c.Allocation)
	}

	if c.FundingPeriodsPerYear <= 0 {
		return fmt.Errorf("%w: funding periods per year must be positive", models.ErrInvalidConfig)
	}

	if c.ExitAPR > c.MinEntryAPR {
		return fmt.Errorf("%w: exit apr %v must not exceed entry apr %v", models.ErrInvalidConfig, c.ExitAPR, c.MinEntryAPR)
	}

	return nil
}

// FundingArbStrategy enters when the annualized funding rate clears the
// entry threshold and unwinds when it decays below the exit threshold. The
// hedged book is price-neutral; its carry is the funding stream. Ticks with
// no funding quote keep the book unchanged.
type FundingArbStrategy struct {
	name string
	cfg  FundingArbConfig
}

func NewFundingArbStrategy(name string, cfg FundingArbConfig) (*FundingArbStrategy, error) {
	s := &FundingArbStrategy{name: name, cfg: cfg}
	if err := s.Validate(); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *FundingArbStrategy) Name() string {
	return s.name
}

func (s *FundingArbStrategy) Validate() error {
	if s.name == "" {
		return fmt.Errorf("%w: strategy name not set", models.ErrInvalidConfig)
	}

	return s.cfg.Validate()
}

func (s *FundingArbStrategy) Execute(portfolio *models.Portfolio, md models.MarketData) (Result, error) {
	if err := s.Validate(); err != nil {
		return Result{}, err
	}

	if err := md.Validate(); err != nil {
		return Result{}, fmt.Errorf("%s: bad market data: %w", s.name, err)
	}

	if md.Asset != s.cfg.Asset {
		return Result{}, nil
	}

	position, holding := portfolio.FindPosition(s.name, s.cfg.Asset)

	if md.FundingRate == nil {
		// absence of a funding quote is valid: carry the book unchanged
		log.Debugf("%s: no funding rate at %s", s.name, md.Timestamp)
		if holding {
			return Result{Positions: []*models.Position{position}}, nil
		}

		return Result{}, nil
	}

	annualized := md.FundingRate.Annualized(s.cfg.FundingPeriodsPerYear) * 100

	if holding {
		if annualized < s.cfg.ExitAPR {
			sell, err := models.NewTrade(s.name, s.cfg.Asset, models.TradeSideSell, position.Amount, md.Price, md.Timestamp)
			if err != nil {
				return Result{}, fmt.Errorf("%s: %w", s.name, err)
			}

			// omitting the position signals closure to the engine
			return Result{
				Trades:          []*models.Trade{sell},
				ShouldRebalance: true,
				RebalanceReason: fmt.Sprintf("funding apr %.2f%% fell below exit threshold %.2f%%", annualized, s.cfg.ExitAPR),
			}, nil
		}

		return Result{Positions: []*models.Position{position}}, nil
	}

	if annualized < s.cfg.MinEntryAPR {
		return Result{}, nil
	}

	amount := portfolio.TotalValue() * s.cfg.Allocation / md.Price
	if amount <= 0 {
		return Result{}, nil
	}

	buy, err := models.NewTrade(s.name, s.cfg.Asset, models.TradeSideBuy, amount, md.Price, md.Timestamp)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", s.name, err)
	}

	opened, err := models.NewPosition(s.name, s.cfg.Asset, amount, md.Price, md.Timestamp)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", s.name, err)
	}

	return Result{
		Trades:    []*models.Trade{buy},
		Positions: []*models.Position{opened},
	}, nil
}

// ExpectedYield is the currently quoted funding stream, annualized, in
// percent. Zero when the venue publishes no funding rate.
func (s *FundingArbStrategy) ExpectedYield(md models.MarketData) (float64, error) {
	if err := s.Validate(); err != nil {
		return 0, err
	}

	if md.FundingRate == nil {
		return 0, nil
	}

	return md.FundingRate.Annualized(s.cfg.FundingPeriodsPerYear) * 100, nil
}
