package strategies

import (
	"fmt"
	"math"

	"github.com/quantlabs/defi-yield-backtester/src/models"
	"github.com/quantlabs/defi-yield-backtester/src/optimizer"
)

// fallbackVolatility is assumed when neither config nor market data supply
// one for the forward-looking yield estimate.
const fallbackVolatility = 0.6

// VolatilePairStrategy provides range-bound liquidity on a volatile pair.
// The rebalance anchor is the open position's entry price, which moves only
// on an actual rebalance; it re-centers when the price has consumed the
// configured fraction of the range width. Anchoring on the position keeps
// the trigger alive when another book inherits the position.
type VolatilePairStrategy struct {
	name string
	cfg  LPConfig
	opt  *optimizer.RangeOptimizer
}

func NewVolatilePairStrategy(name string, cfg LPConfig, opt *optimizer.RangeOptimizer) (*VolatilePairStrategy, error) {
	s := &VolatilePairStrategy{
		name: name,
		cfg:  cfg,
		opt:  opt,
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *VolatilePairStrategy) Name() string {
	return s.name
}

func (s *VolatilePairStrategy) Validate() error {
	if s.name == "" {
		return fmt.Errorf("%w: strategy name not set", models.ErrInvalidConfig)
	}

	if s.opt == nil {
		return fmt.Errorf("%w: range optimizer not set", models.ErrInvalidConfig)
	}

	return s.cfg.Validate()
}

func (s *VolatilePairStrategy) Execute(portfolio *models.Portfolio, md models.MarketData) (Result, error) {
	if err := s.Validate(); err != nil {
		return Result{}, err
	}

	if err := md.Validate(); err != nil {
		return Result{}, fmt.Errorf("%s: bad market data: %w", s.name, err)
	}

	if md.Asset != s.cfg.Asset {
		return Result{}, nil
	}

	position, found := portfolio.FindPosition(s.name, s.cfg.Asset)
	if !found {
		return s.open(portfolio, md)
	}

	move := percentageChange(md.Price, position.EntryPrice)
	trigger := s.cfg.RangeWidth * s.cfg.rebalanceThreshold()

	if math.Abs(move) >= trigger {
		return s.recenter(position, md, move)
	}

	return Result{Positions: []*models.Position{position}}, nil
}

// open enters the initial range position at the current price.
func (s *VolatilePairStrategy) open(portfolio *models.Portfolio, md models.MarketData) (Result, error) {
	notional := portfolio.TotalValue() * s.cfg.Allocation
	amount := notional / md.Price
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

// recenter closes the drifted position and reopens it around the current
// price. The rebalance anchor moves here and only here, carried by the
// reopened position's entry price.
func (s *VolatilePairStrategy) recenter(position *models.Position, md models.MarketData, move float64) (Result, error) {
	sell, err := models.NewTrade(s.name, s.cfg.Asset, models.TradeSideSell, math.Abs(position.Amount), md.Price, md.Timestamp)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", s.name, err)
	}

	value := math.Abs(position.Amount) * md.Price
	newAmount := value / md.Price

	buy, err := models.NewTrade(s.name, s.cfg.Asset, models.TradeSideBuy, newAmount, md.Price, md.Timestamp)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", s.name, err)
	}

	recentered, err := models.NewPosition(s.name, s.cfg.Asset, newAmount, md.Price, md.Timestamp)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", s.name, err)
	}

	reason := fmt.Sprintf("price moved %.2f%% against reference %.2f, range width %.2f%%", move*100, position.EntryPrice, s.cfg.RangeWidth*100)

	return Result{
		Trades:          []*models.Trade{sell, buy},
		Positions:       []*models.Position{recentered},
		ShouldRebalance: true,
		RebalanceReason: reason,
	}, nil
}

// ExpectedYield estimates the forward APR for the configured range at the
// current volatility. Idempotent; no state is touched.
func (s *VolatilePairStrategy) ExpectedYield(md models.MarketData) (float64, error) {
	if err := s.Validate(); err != nil {
		return 0, err
	}

	vol := fallbackVolatility
	if md.ImpliedVolatility != nil {
		vol = float64(*md.ImpliedVolatility)
	}

	estimate, err := s.opt.EstimateAPYForRange(optimizer.EstimateRequest{
		Width:      s.cfg.RangeWidth,
		Yields:     optimizer.YieldComponents{FeeAPR: s.cfg.FeeAPR, IncentiveAPR: s.cfg.IncentiveAPR},
		Volatility: models.Volatility(vol),
	})
	if err != nil {
		return 0, fmt.Errorf("%s: %w", s.name, err)
	}

	return estimate.ExpectedAPY, nil
}

// RangeWidth exposes the configured width for the position tracker.
func (s *VolatilePairStrategy) RangeWidth() float64 {
	return s.cfg.RangeWidth
}
