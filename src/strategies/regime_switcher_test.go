package strategies

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/quantlabs/defi-yield-backtester/src/models"
)

func ivTick(asset string, price, iv float64, at time.Time) models.MarketData {
	md := tick(asset, price, at)
	value := models.ImpliedVolatility(iv)
	md.ImpliedVolatility = &value
	return md
}

func newSwitcher(t *testing.T, cfg RegimeSwitcherConfig) *RegimeSwitcherStrategy {
	t.Helper()

	opt := newTestRangeOptimizer(t)

	calm, err := NewVolatilePairStrategy("switcher", LPConfig{
		Asset:      "ETH-USDC",
		Allocation: 0.5,
		RangeWidth: 0.05,
		FeeAPR:     20,
	}, opt)
	require.NoError(t, err)

	stressed, err := NewVolatilePairStrategy("switcher", LPConfig{
		Asset:      "ETH-USDC",
		Allocation: 0.5,
		RangeWidth: 0.20,
		FeeAPR:     20,
	}, opt)
	require.NoError(t, err)

	s, err := NewRegimeSwitcherStrategy("switcher", cfg, calm, stressed)
	require.NoError(t, err)

	return s
}

func TestRegimeSwitcherStrategy(t *testing.T) {
	start := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

	cfg := RegimeSwitcherConfig{
		LowIV:       0.4,
		HighIV:      0.8,
		Hysteresis:  0.05,
		MinHoldDays: 3,
	}

	t.Run("classifies into three regimes", func(t *testing.T) {
		s := newSwitcher(t, cfg)
		portfolio := models.NewPortfolio(10000)

		_, err := s.Execute(portfolio, ivTick("ETH-USDC", 2000, 0.30, start))
		require.NoError(t, err)
		require.Equal(t, IVRegimeLow, s.Regime())

		_, err = s.Execute(portfolio, ivTick("ETH-USDC", 2000, 0.90, start.AddDate(0, 0, 4)))
		require.NoError(t, err)
		require.Equal(t, IVRegimeHigh, s.Regime())
	})

	t.Run("hysteresis suppresses chattering at the threshold", func(t *testing.T) {
		s := newSwitcher(t, cfg)
		portfolio := models.NewPortfolio(10000)

		_, err := s.Execute(portfolio, ivTick("ETH-USDC", 2000, 0.90, start))
		require.NoError(t, err)
		require.Equal(t, IVRegimeHigh, s.Regime())

		// just under the entry threshold but inside the band: still high
		_, err = s.Execute(portfolio, ivTick("ETH-USDC", 2000, 0.78, start.AddDate(0, 0, 4)))
		require.NoError(t, err)
		require.Equal(t, IVRegimeHigh, s.Regime())

		// below the lower edge of the band: leaves high
		_, err = s.Execute(portfolio, ivTick("ETH-USDC", 2000, 0.70, start.AddDate(0, 0, 8)))
		require.NoError(t, err)
		require.Equal(t, IVRegimeMid, s.Regime())
	})

	t.Run("candidate change within the hold period is suppressed", func(t *testing.T) {
		s := newSwitcher(t, cfg)
		portfolio := models.NewPortfolio(10000)

		_, err := s.Execute(portfolio, ivTick("ETH-USDC", 2000, 0.90, start))
		require.NoError(t, err)
		require.Equal(t, IVRegimeHigh, s.Regime())

		// one day later: a decisive low reading is still inside the hold
		_, err = s.Execute(portfolio, ivTick("ETH-USDC", 2000, 0.20, start.AddDate(0, 0, 1)))
		require.NoError(t, err)
		require.Equal(t, IVRegimeHigh, s.Regime())

		// after the hold expires the same reading switches
		_, err = s.Execute(portfolio, ivTick("ETH-USDC", 2000, 0.20, start.AddDate(0, 0, 4)))
		require.NoError(t, err)
		require.Equal(t, IVRegimeLow, s.Regime())
	})

	t.Run("missing iv keeps the prior regime", func(t *testing.T) {
		s := newSwitcher(t, cfg)
		portfolio := models.NewPortfolio(10000)

		_, err := s.Execute(portfolio, ivTick("ETH-USDC", 2000, 0.90, start))
		require.NoError(t, err)
		require.Equal(t, IVRegimeHigh, s.Regime())

		_, err = s.Execute(portfolio, tick("ETH-USDC", 2000, start.AddDate(0, 0, 10)))
		require.NoError(t, err)
		require.Equal(t, IVRegimeHigh, s.Regime())
	})

	t.Run("switching books reports a rebalance", func(t *testing.T) {
		s := newSwitcher(t, cfg)
		portfolio := models.NewPortfolio(10000)

		result, err := s.Execute(portfolio, ivTick("ETH-USDC", 2000, 0.30, start))
		require.NoError(t, err)
		applyResult(portfolio, s.Name(), result)

		result, err = s.Execute(portfolio, ivTick("ETH-USDC", 2000, 0.90, start.AddDate(0, 0, 4)))
		require.NoError(t, err)
		require.True(t, result.ShouldRebalance)
		require.Contains(t, result.RebalanceReason, "regime")
	})

	t.Run("inherited position keeps rebalancing after a switch", func(t *testing.T) {
		s := newSwitcher(t, cfg)
		portfolio := models.NewPortfolio(10000)

		// the calm book opens at 2000
		result, err := s.Execute(portfolio, ivTick("ETH-USDC", 2000, 0.30, start))
		require.NoError(t, err)
		applyResult(portfolio, s.Name(), result)

		// the stressed book inherits the open position
		result, err = s.Execute(portfolio, ivTick("ETH-USDC", 2000, 0.90, start.AddDate(0, 0, 4)))
		require.NoError(t, err)
		applyResult(portfolio, s.Name(), result)

		// a 50% move clears the stressed book's 18% trigger
		result, err = s.Execute(portfolio, ivTick("ETH-USDC", 3000, 0.90, start.AddDate(0, 0, 5)))
		require.NoError(t, err)
		require.True(t, result.ShouldRebalance)
		require.Contains(t, result.RebalanceReason, "price moved")
		applyResult(portfolio, s.Name(), result)

		// the recentered anchor serves a later switch back to the calm book
		position, found := portfolio.FindPosition("switcher", "ETH-USDC")
		require.True(t, found)
		require.Equal(t, 3000.0, position.EntryPrice)

		result, err = s.Execute(portfolio, ivTick("ETH-USDC", 3000, 0.30, start.AddDate(0, 0, 9)))
		require.NoError(t, err)
		applyResult(portfolio, s.Name(), result)

		// a 5% move clears the calm book's 4.5% trigger against the new anchor
		result, err = s.Execute(portfolio, ivTick("ETH-USDC", 3150, 0.30, start.AddDate(0, 0, 10)))
		require.NoError(t, err)
		require.True(t, result.ShouldRebalance)
		require.Contains(t, result.RebalanceReason, "price moved")
	})

	t.Run("rejects inverted thresholds", func(t *testing.T) {
		bad := cfg
		bad.HighIV = 0.3
		err := bad.Validate()
		require.ErrorIs(t, err, models.ErrInvalidConfig)
	})
}
