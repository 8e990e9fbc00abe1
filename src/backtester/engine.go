package backtester

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/quantlabs/defi-yield-backtester/src/costs"
	"github.com/quantlabs/defi-yield-backtester/src/data"
	"github.com/quantlabs/defi-yield-backtester/src/models"
	"github.com/quantlabs/defi-yield-backtester/src/risk"
	"github.com/quantlabs/defi-yield-backtester/src/strategies"
)

// Assignment binds one strategy instance to the asset whose ticks drive it.
// A positive RangeWidth enables per-position range tracking and impermanent
// loss accounting for the positions this strategy opens.
type Assignment struct {
	Strategy   strategies.Strategy
	Asset      string
	RangeWidth float64
	FeeAPR     float64
}

// RunConfig fully describes one backtest run.
type RunConfig struct {
	Start          time.Time
	End            time.Time
	Step           time.Duration
	InitialCapital float64
	RiskFreeRate   float64
	ApplyCosts     bool
	ApplyIL        bool
	CostModel      *models.CostModel
	Assignments    []Assignment
	Adapter        data.Adapter
	GasPriceSource costs.GasPriceSource
	RiskRules      *risk.RuleConfig
}

func (cfg RunConfig) Validate() error {
	if !cfg.Start.Before(cfg.End) {
		return fmt.Errorf("%w: start %s must precede end %s", models.ErrInvalidConfig, cfg.Start, cfg.End)
	}

	if cfg.Step <= 0 {
		return fmt.Errorf("%w: step must be positive, got %s", models.ErrInvalidConfig, cfg.Step)
	}

	if cfg.InitialCapital <= 0 {
		return fmt.Errorf("%w: initial capital must be positive, got %v", models.ErrInvalidConfig, cfg.InitialCapital)
	}

	if cfg.Adapter == nil {
		return fmt.Errorf("%w: data adapter not set", models.ErrInvalidConfig)
	}

	if len(cfg.Assignments) == 0 {
		return fmt.Errorf("%w: no strategy assignments", models.ErrInvalidConfig)
	}

	for i, a := range cfg.Assignments {
		if a.Strategy == nil {
			return fmt.Errorf("%w: assignment %d has no strategy", models.ErrInvalidConfig, i)
		}

		if a.Asset == "" {
			return fmt.Errorf("%w: assignment %d has no asset", models.ErrInvalidConfig, i)
		}

		if a.RangeWidth < 0 || a.RangeWidth > 1 {
			return fmt.Errorf("%w: assignment %d range width must be in [0, 1], got %v", models.ErrInvalidConfig, i, a.RangeWidth)
		}

		if err := a.Strategy.Validate(); err != nil {
			return fmt.Errorf("assignment %d: %w", i, err)
		}
	}

	if cfg.ApplyCosts {
		if cfg.CostModel == nil {
			return fmt.Errorf("%w: cost application enabled without a cost model", models.ErrInvalidConfig)
		}

		if err := cfg.CostModel.Validate(); err != nil {
			return err
		}
	}

	if cfg.RiskRules != nil {
		if err := cfg.RiskRules.Validate(); err != nil {
			return err
		}
	}

	return nil
}

// rangeWidthProvider is implemented by strategies that expose a live range
// width. The engine mirrors it into the position tracker every tick, so an
// adaptive strategy's widened range reaches the in/out-of-range bucketing.
type rangeWidthProvider interface {
	RangeWidth() float64
}

// assignmentState is the engine's bookkeeping for one assignment: which
// position ids the strategy currently owns, their as-opened amounts for the
// impermanent loss recomputation, and the range tracker if enabled.
type assignmentState struct {
	owned          map[uuid.UUID]bool
	initialAmounts map[uuid.UUID]float64
	tracker        *PositionTracker
}

// Engine drives the simulation clock over the configured window, feeding
// each strategy in registration order once per tick and settling the
// portfolio after every invocation. Runs with identical inputs produce
// identical outputs.
type Engine struct {
	cfg        RunConfig
	calculator *costs.Calculator
	rules      *risk.RuleEngine
}

func NewEngine(cfg RunConfig) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:        cfg,
		calculator: costs.NewCalculator(cfg.GasPriceSource),
	}

	if cfg.RiskRules != nil {
		rules, err := risk.NewRuleEngine(*cfg.RiskRules)
		if err != nil {
			return nil, err
		}

		e.rules = rules
	}

	return e, nil
}

func (e *Engine) Run(ctx context.Context) (*BacktestResult, error) {
	clock, err := NewClock(e.cfg.Start, e.cfg.End)
	if err != nil {
		return nil, err
	}

	if e.cfg.ApplyCosts && e.cfg.CostModel.Gas.Network != "" {
		e.calculator.PrimeGasPrice(ctx, e.cfg.CostModel.Gas.Network)
	}

	portfolio := models.NewPortfolio(e.cfg.InitialCapital)

	states := make([]*assignmentState, len(e.cfg.Assignments))
	for i := range states {
		states[i] = &assignmentState{
			owned:          make(map[uuid.UUID]bool),
			initialAmounts: make(map[uuid.UUID]float64),
		}
	}

	lastPrice := make(map[string]float64)
	costsPaid := make(map[string]float64)

	var (
		equity    []EquityPoint
		allTrades []*models.Trade
		advice    []RiskAdvice
	)

	runningPeak := 0.0

	for !clock.IsExpired() {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		now := clock.CurrentTime

		for i, a := range e.cfg.Assignments {
			st := states[i]
			name := a.Strategy.Name()

			price, ok := e.resolvePrice(ctx, a.Asset, now, lastPrice)
			if !ok {
				continue
			}

			e.markToMarket(portfolio, a.Asset, price)

			md := e.buildMarketData(ctx, a.Asset, now, price)

			result, err := a.Strategy.Execute(portfolio, md)
			if err != nil {
				return nil, fmt.Errorf("strategy %s failed at %s: %w", name, now, err)
			}

			paid := e.settle(portfolio, st, result, price)
			if paid > 0 {
				costsPaid[name] += paid
			}

			allTrades = append(allTrades, result.Trades...)

			if a.RangeWidth > 0 {
				if err := e.track(st, a, portfolio, result, now, price); err != nil {
					return nil, fmt.Errorf("strategy %s tracking failed at %s: %w", name, now, err)
				}
			}

			if result.ShouldRebalance && e.cfg.ApplyCosts {
				positionValue := 0.0
				if position, found := portfolio.FindPosition(name, a.Asset); found {
					positionValue = position.MarketValue()
				}

				cost := e.calculator.EstimateTotalRebalanceCost(*e.cfg.CostModel, positionValue)
				portfolio.Cash -= cost
				costsPaid[name] += cost
			}

			if e.cfg.ApplyIL && a.RangeWidth > 0 {
				e.applyImpermanentLoss(portfolio, st, price)
			}
		}

		value := portfolio.TotalValue()
		equity = append(equity, EquityPoint{Time: now, Value: value})

		if value > runningPeak {
			runningPeak = value
		}

		if e.rules != nil {
			drawdown := 0.0
			if runningPeak > 0 {
				drawdown = (runningPeak - value) / runningPeak
			}

			actions, err := e.rules.Evaluate(portfolio, drawdown)
			if err != nil {
				return nil, fmt.Errorf("risk evaluation failed at %s: %w", now, err)
			}

			if len(actions) > 0 {
				advice = append(advice, RiskAdvice{Time: now, Actions: actions})
			}
		}

		clock.Add(e.cfg.Step)
	}

	return e.assemble(portfolio, states, equity, allTrades, costsPaid, advice)
}

// resolvePrice fetches the tick price, carrying the last known price forward
// when the feed has a gap. A gap before the first observation skips the
// strategy for this tick.
func (e *Engine) resolvePrice(ctx context.Context, asset string, now time.Time, lastPrice map[string]float64) (float64, bool) {
	price, err := e.cfg.Adapter.FetchPrice(ctx, asset, now)
	if err != nil {
		if last, found := lastPrice[asset]; found {
			log.Warnf("no price for %s at %s, carrying forward %.6f: %v", asset, now, last, err)
			return last, true
		}

		log.Warnf("no price for %s at %s and no prior observation, skipping tick: %v", asset, now, err)
		return 0, false
	}

	lastPrice[asset] = price

	return price, true
}

func (e *Engine) markToMarket(portfolio *models.Portfolio, asset string, price float64) {
	for _, position := range portfolio.Positions {
		if position.Asset == asset {
			position.UpdatePrice(price)
		}
	}
}

// buildMarketData assembles the tick snapshot. The optional feeds degrade to
// absent on fetch errors; only the price is load-bearing.
func (e *Engine) buildMarketData(ctx context.Context, asset string, now time.Time, price float64) models.MarketData {
	md := models.MarketData{
		Timestamp: now,
		Asset:     asset,
		Price:     price,
	}

	funding, err := e.cfg.Adapter.FetchFundingRate(ctx, asset, now)
	if err != nil {
		log.Warnf("funding rate fetch failed for %s at %s: %v", asset, now, err)
	} else {
		md.FundingRate = funding
	}

	iv, err := e.cfg.Adapter.FetchImpliedVolatility(ctx, asset, now)
	if err != nil {
		log.Warnf("implied volatility fetch failed for %s at %s: %v", asset, now, err)
	} else {
		md.ImpliedVolatility = iv
	}

	volume, err := e.cfg.Adapter.FetchVolume(ctx, asset, now)
	if err != nil {
		log.Warnf("volume fetch failed for %s at %s: %v", asset, now, err)
	} else {
		md.Volume = volume
	}

	return md
}

// settle applies a strategy result to the portfolio: trade cash flows, loan
// proceeds on newly opened leveraged positions, position upserts, and the
// closure of positions the strategy no longer returns. Returns the slippage
// cost charged.
func (e *Engine) settle(portfolio *models.Portfolio, st *assignmentState, result strategies.Result, price float64) float64 {
	paid := 0.0

	soldAssets := make(map[string]bool)
	for _, trade := range result.Trades {
		switch trade.Side {
		case models.TradeSideBuy:
			portfolio.Cash -= trade.Notional()
		case models.TradeSideSell:
			portfolio.Cash += trade.Notional()
			soldAssets[trade.Asset] = true
		}

		if e.cfg.ApplyCosts {
			cost := e.calculator.TradeCost(*e.cfg.CostModel, trade)
			portfolio.Cash -= cost
			paid += cost
		}
	}

	returned := make(map[uuid.UUID]bool, len(result.Positions))
	for _, position := range result.Positions {
		returned[position.ID] = true

		if _, exists := portfolio.GetPosition(position.ID); !exists {
			// loan proceeds fund the gap between the buy notional and equity
			portfolio.Cash += position.BorrowedAmount
			st.initialAmounts[position.ID] = position.Amount
		}

		portfolio.SetPosition(position)
		st.owned[position.ID] = true
	}

	for id := range st.owned {
		if returned[id] {
			continue
		}

		if position, found := portfolio.GetPosition(id); found {
			if soldAssets[position.Asset] {
				// the emitted sell already credited the gross proceeds
				portfolio.Cash -= position.BorrowedAmount
			} else {
				portfolio.Cash += position.MarketValue() - position.BorrowedAmount
			}

			portfolio.RemovePosition(id)
		}

		delete(st.owned, id)
		delete(st.initialAmounts, id)
	}

	return paid
}

// track maintains the range tracker across the position's lifecycle: created
// on first open, observed every tick, re-anchored on rebalance.
func (e *Engine) track(st *assignmentState, a Assignment, portfolio *models.Portfolio, result strategies.Result, now time.Time, price float64) error {
	position, found := portfolio.FindPosition(a.Strategy.Name(), a.Asset)
	if !found {
		return nil
	}

	if st.tracker == nil {
		tracker, err := NewPositionTracker(now, position.EntryPrice, a.RangeWidth, a.FeeAPR)
		if err != nil {
			return err
		}

		st.tracker = tracker
	}

	if provider, ok := a.Strategy.(rangeWidthProvider); ok {
		if width := provider.RangeWidth(); width > 0 {
			if err := st.tracker.SetRangeWidth(width); err != nil {
				return err
			}
		}
	}

	if err := st.tracker.Record(now, price); err != nil {
		return err
	}

	if result.ShouldRebalance {
		return st.tracker.RecordRebalance(now, price, result.RebalanceReason)
	}

	return nil
}

// applyImpermanentLoss recomputes each tracked position's effective amount
// from its immutable entry price. The adjustment is idempotent within a
// tick: it always derives from the as-opened amount, never compounds.
func (e *Engine) applyImpermanentLoss(portfolio *models.Portfolio, st *assignmentState, price float64) {
	for id := range st.owned {
		position, found := portfolio.GetPosition(id)
		if !found {
			continue
		}

		initial, tracked := st.initialAmounts[id]
		if !tracked || position.EntryPrice <= 0 {
			continue
		}

		il := impermanentLoss(price / position.EntryPrice)
		position.Amount = initial * (1 + il)
	}
}

func (e *Engine) assemble(portfolio *models.Portfolio, states []*assignmentState, equity []EquityPoint, trades []*models.Trade, costsPaid map[string]float64, advice []RiskAdvice) (*BacktestResult, error) {
	if len(equity) < 2 {
		return nil, fmt.Errorf("%w: backtest produced %d equity points, need at least 2", models.ErrInsufficientData, len(equity))
	}

	values := make([]float64, len(equity))
	for i, point := range equity {
		values[i] = point.Value
	}

	periodsPerYear := hoursPerYear / e.cfg.Step.Hours()

	metrics, err := risk.Compute(values, e.cfg.RiskFreeRate, periodsPerYear)
	if err != nil {
		return nil, err
	}

	snapshots := make(map[string]PositionSnapshot)
	for i, st := range states {
		if st.tracker != nil {
			snapshots[e.cfg.Assignments[i].Strategy.Name()] = st.tracker.Snapshot()
		}
	}

	total := 0.0
	for _, paid := range costsPaid {
		total += paid
	}

	log.Infof("backtest complete: %d ticks, %d trades, final equity %.2f", len(equity), len(trades), values[len(values)-1])

	return &BacktestResult{
		Metrics:         metrics,
		EquityCurve:     equity,
		Trades:          trades,
		FinalPortfolio:  portfolio,
		PositionMetrics: snapshots,
		CostsPaidUSD:    costsPaid,
		TotalCostsUSD:   total,
		RiskAdvice:      advice,
	}, nil
}
