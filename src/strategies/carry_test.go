package strategies

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/quantlabs/defi-yield-backtester/src/models"
)

func TestLeveragedLendingStrategy(t *testing.T) {
	start := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

	cfg := LeveragedLendingConfig{
		Asset:           "wstETH",
		Allocation:      0.4,
		SupplyAPR:       4.0,
		BorrowAPR:       2.5,
		LTV:             0.7,
		LoopCount:       3,
		MinHealthFactor: 1.1,
	}

	t.Run("leverage factor is the ltv geometric sum", func(t *testing.T) {
		// 1 + 0.7 + 0.49 + 0.343
		require.InDelta(t, 2.533, cfg.LeverageFactor(), 1e-9)
	})

	t.Run("net apr is leveraged supply minus borrow on the loop", func(t *testing.T) {
		leverage := cfg.LeverageFactor()
		require.InDelta(t, 4.0*leverage-2.5*(leverage-1), cfg.NetAPR(), 1e-9)
	})

	t.Run("opens a leveraged position", func(t *testing.T) {
		s, err := NewLeveragedLendingStrategy("loop", cfg)
		require.NoError(t, err)

		portfolio := models.NewPortfolio(10000)
		result, err := s.Execute(portfolio, tick("wstETH", 2500, start))
		require.NoError(t, err)
		require.Len(t, result.Positions, 1)

		position := result.Positions[0]
		require.True(t, position.IsLeveraged())
		require.InDelta(t, 4000*cfg.LeverageFactor()/2500, position.Amount, 1e-9)
		require.InDelta(t, 4000*(cfg.LeverageFactor()-1), position.BorrowedAmount, 1e-9)
	})

	t.Run("requests a rebalance when health decays", func(t *testing.T) {
		s, err := NewLeveragedLendingStrategy("loop", cfg)
		require.NoError(t, err)

		portfolio := models.NewPortfolio(10000)
		result, err := s.Execute(portfolio, tick("wstETH", 2500, start))
		require.NoError(t, err)
		applyResult(portfolio, s.Name(), result)

		// a 40% drawdown pushes collateral value below the health floor
		position, found := portfolio.FindPosition("loop", "wstETH")
		require.True(t, found)
		position.UpdatePrice(1500)

		result, err = s.Execute(portfolio, tick("wstETH", 1500, start.AddDate(0, 0, 1)))
		require.NoError(t, err)
		require.True(t, result.ShouldRebalance)
		require.Contains(t, result.RebalanceReason, "health factor")
	})

	t.Run("rejects degenerate ltv", func(t *testing.T) {
		bad := cfg
		bad.LTV = 1.0
		_, err := NewLeveragedLendingStrategy("loop", bad)
		require.ErrorIs(t, err, models.ErrInvalidConfig)
	})
}

func TestFundingArbStrategy(t *testing.T) {
	start := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

	cfg := FundingArbConfig{
		Asset:                 "BTC-PERP",
		Allocation:            0.5,
		FundingPeriodsPerYear: 1095,
		MinEntryAPR:           8,
		ExitAPR:               2,
	}

	fundingTick := func(rate float64, at time.Time) models.MarketData {
		md := tick("BTC-PERP", 60000, at)
		f := models.FundingRate(rate)
		md.FundingRate = &f
		return md
	}

	t.Run("enters only above the entry threshold", func(t *testing.T) {
		s, err := NewFundingArbStrategy("funding", cfg)
		require.NoError(t, err)

		portfolio := models.NewPortfolio(100000)

		// 0.00005 per 8h is ~5.5% annual: below the 8% entry bar
		result, err := s.Execute(portfolio, fundingTick(0.00005, start))
		require.NoError(t, err)
		require.Empty(t, result.Positions)

		// 0.0001 per 8h is ~11% annual: enters
		result, err = s.Execute(portfolio, fundingTick(0.0001, start.AddDate(0, 0, 1)))
		require.NoError(t, err)
		require.Len(t, result.Positions, 1)
		require.Len(t, result.Trades, 1)
	})

	t.Run("unwinds when funding decays below the exit threshold", func(t *testing.T) {
		s, err := NewFundingArbStrategy("funding", cfg)
		require.NoError(t, err)

		portfolio := models.NewPortfolio(100000)
		result, err := s.Execute(portfolio, fundingTick(0.0001, start))
		require.NoError(t, err)
		applyResult(portfolio, s.Name(), result)
		require.Len(t, portfolio.Positions, 1)

		// ~1.1% annual: below the 2% exit bar, position is omitted
		result, err = s.Execute(portfolio, fundingTick(0.00001, start.AddDate(0, 0, 1)))
		require.NoError(t, err)
		require.Empty(t, result.Positions)
		require.True(t, result.ShouldRebalance)
		require.Len(t, result.Trades, 1)
		require.Equal(t, models.TradeSideSell, result.Trades[0].Side)

		applyResult(portfolio, s.Name(), result)
		require.Empty(t, portfolio.Positions)
	})

	t.Run("missing funding rate carries the book unchanged", func(t *testing.T) {
		s, err := NewFundingArbStrategy("funding", cfg)
		require.NoError(t, err)

		portfolio := models.NewPortfolio(100000)
		result, err := s.Execute(portfolio, fundingTick(0.0001, start))
		require.NoError(t, err)
		applyResult(portfolio, s.Name(), result)

		result, err = s.Execute(portfolio, tick("BTC-PERP", 60000, start.AddDate(0, 0, 1)))
		require.NoError(t, err)
		require.Len(t, result.Positions, 1)
		require.False(t, result.ShouldRebalance)
	})

	t.Run("expected yield reads the quoted funding stream", func(t *testing.T) {
		s, err := NewFundingArbStrategy("funding", cfg)
		require.NoError(t, err)

		apr, err := s.ExpectedYield(fundingTick(0.0001, start))
		require.NoError(t, err)
		require.InDelta(t, 0.0001*1095*100, apr, 1e-9)

		apr, err = s.ExpectedYield(tick("BTC-PERP", 60000, start))
		require.NoError(t, err)
		require.Equal(t, 0.0, apr)
	})
}

func TestOptionsPremiumStrategy(t *testing.T) {
	start := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

	cfg := OptionsPremiumConfig{
		Asset:                "ETH",
		Allocation:           0.3,
		PremiumCaptureFactor: 0.25,
	}

	t.Run("expected yield scales with implied volatility", func(t *testing.T) {
		s, err := NewOptionsPremiumStrategy("covered-call", cfg)
		require.NoError(t, err)

		apr, err := s.ExpectedYield(ivTick("ETH", 2000, 0.8, start))
		require.NoError(t, err)
		require.InDelta(t, 0.8*0.25*100, apr, 1e-9)

		apr, err = s.ExpectedYield(tick("ETH", 2000, start))
		require.NoError(t, err)
		require.Equal(t, 0.0, apr)
	})

	t.Run("holds the underlying through missing iv ticks", func(t *testing.T) {
		s, err := NewOptionsPremiumStrategy("covered-call", cfg)
		require.NoError(t, err)

		portfolio := models.NewPortfolio(10000)
		result, err := s.Execute(portfolio, ivTick("ETH", 2000, 0.8, start))
		require.NoError(t, err)
		require.Len(t, result.Positions, 1)
		applyResult(portfolio, s.Name(), result)

		result, err = s.Execute(portfolio, tick("ETH", 2000, start.AddDate(0, 0, 1)))
		require.NoError(t, err)
		require.Len(t, result.Positions, 1)
	})
}

func TestRWACarryStrategy(t *testing.T) {
	start := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

	cfg := RWACarryConfig{
		Asset:           "USDY",
		Allocation:      0.5,
		CouponAPR:       5.0,
		BorrowAPR:       3.0,
		Leverage:        2.0,
		MinHealthFactor: 1.2,
	}

	t.Run("net apr is the leveraged spread", func(t *testing.T) {
		require.InDelta(t, 5.0*2-3.0*1, cfg.NetAPR(), 1e-9)
	})

	t.Run("opens a leveraged carry position", func(t *testing.T) {
		s, err := NewRWACarryStrategy("rwa", cfg)
		require.NoError(t, err)

		portfolio := models.NewPortfolio(10000)
		result, err := s.Execute(portfolio, tick("USDY", 1.05, start))
		require.NoError(t, err)
		require.Len(t, result.Positions, 1)
		require.True(t, result.Positions[0].IsLeveraged())
		require.InDelta(t, 5000.0, result.Positions[0].BorrowedAmount, 1e-9)
	})
}

func TestTrendAwareStrategy(t *testing.T) {
	start := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

	newStrategy := func(t *testing.T) *TrendAwareStrategy {
		s, err := NewTrendAwareStrategy("trend", LPConfig{
			Asset:      "ETH-USDC",
			Allocation: 0.5,
			RangeWidth: 0.05,
			FeeAPR:     20,
		}, newTestRangeOptimizer(t))
		require.NoError(t, err)

		return s
	}

	t.Run("widens the range in a persistent trend", func(t *testing.T) {
		s := newStrategy(t)
		portfolio := models.NewPortfolio(10000)

		price := 2000.0
		for day := 0; day < 30; day++ {
			result, err := s.Execute(portfolio, tick("ETH-USDC", price, start.AddDate(0, 0, day)))
			require.NoError(t, err)
			applyResult(portfolio, s.Name(), result)
			price += 20
		}

		require.Greater(t, s.RangeWidth(), 0.05)
		require.LessOrEqual(t, s.RangeWidth(), 0.10)
	})

	t.Run("keeps the base width in a mean-reverting market", func(t *testing.T) {
		s := newStrategy(t)
		portfolio := models.NewPortfolio(10000)

		for day := 0; day < 30; day++ {
			price := 2000.0
			if day%2 == 1 {
				price = 2010.0
			}

			result, err := s.Execute(portfolio, tick("ETH-USDC", price, start.AddDate(0, 0, day)))
			require.NoError(t, err)
			applyResult(portfolio, s.Name(), result)
		}

		require.Equal(t, 0.05, s.RangeWidth())
	})
}
