package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPosition(t *testing.T) {
	openedAt := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)

	t.Run("entry price is invariant under price updates", func(t *testing.T) {
		position, err := NewPosition("volatile-pair", "ETH-USDC", 10, 2000, openedAt)
		require.NoError(t, err)

		for _, price := range []float64{2100, 1900, 2500, 1500, 2000} {
			position.UpdatePrice(price)
			require.Equal(t, 2000.0, position.EntryPrice)
			require.Equal(t, price, position.CurrentPrice)
		}
	})

	t.Run("ignores non-positive price updates", func(t *testing.T) {
		position, err := NewPosition("volatile-pair", "ETH-USDC", 10, 2000, openedAt)
		require.NoError(t, err)

		position.UpdatePrice(-5)
		require.Equal(t, 2000.0, position.CurrentPrice)
	})

	t.Run("is leveraged iff borrowed amount is non zero", func(t *testing.T) {
		position, err := NewPosition("carry", "ETH", 1, 2000, openedAt)
		require.NoError(t, err)
		require.False(t, position.IsLeveraged())

		position.BorrowedAmount = 500
		require.True(t, position.IsLeveraged())
	})

	t.Run("rejects invalid construction", func(t *testing.T) {
		_, err := NewPosition("s", "ETH", 0, 2000, openedAt)
		require.ErrorIs(t, err, ErrPositionAmountZero)

		_, err = NewPosition("s", "ETH", 1, 0, openedAt)
		require.ErrorIs(t, err, ErrInvalidEntryPrice)

		_, err = NewPosition("", "ETH", 1, 2000, openedAt)
		require.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("restore round trip is behaviorally identical", func(t *testing.T) {
		original, err := NewPosition("funding-arb", "BTC", 0.5, 60000, openedAt)
		require.NoError(t, err)
		original.UpdatePrice(65000)
		original.CollateralAmount = 0.5
		original.BorrowedAmount = 10000

		restored, err := RestorePosition(original.ID, original.StrategyID, original.Asset, original.Amount, original.EntryPrice, original.CurrentPrice, original.CollateralAmount, original.BorrowedAmount, original.OpenedAt)
		require.NoError(t, err)

		require.Equal(t, original.MarketValue(), restored.MarketValue())
		require.Equal(t, original.UnrealizedPnL(), restored.UnrealizedPnL())
		require.Equal(t, original.IsLeveraged(), restored.IsLeveraged())

		hfOriginal, err := original.HealthFactor()
		require.NoError(t, err)
		hfRestored, err := restored.HealthFactor()
		require.NoError(t, err)
		require.Equal(t, hfOriginal, hfRestored)
	})

	t.Run("health factor is infinite when unleveraged", func(t *testing.T) {
		position, err := NewPosition("lp", "ETH", 1, 2000, openedAt)
		require.NoError(t, err)

		hf, err := position.HealthFactor()
		require.NoError(t, err)
		require.True(t, hf.IsInfinite())
		require.True(t, hf.IsHealthy())
	})
}

func TestPortfolio(t *testing.T) {
	openedAt := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)

	t.Run("total value is cash plus position market values", func(t *testing.T) {
		portfolio := NewPortfolio(10000)

		p1, err := NewPosition("a", "ETH", 2, 2000, openedAt)
		require.NoError(t, err)
		portfolio.SetPosition(p1)

		p2, err := NewPosition("b", "BTC", 0.1, 60000, openedAt)
		require.NoError(t, err)
		portfolio.SetPosition(p2)

		require.InDelta(t, 10000+4000+6000, portfolio.TotalValue(), 1e-9)

		portfolio.RemovePosition(p2.ID)
		require.InDelta(t, 10000+4000, portfolio.TotalValue(), 1e-9)
	})

	t.Run("finds position by strategy and asset", func(t *testing.T) {
		portfolio := NewPortfolio(1000)

		p1, err := NewPosition("a", "ETH", 2, 2000, openedAt)
		require.NoError(t, err)
		portfolio.SetPosition(p1)

		found, ok := portfolio.FindPosition("a", "ETH")
		require.True(t, ok)
		require.Equal(t, p1.ID, found.ID)

		_, ok = portfolio.FindPosition("a", "BTC")
		require.False(t, ok)
	})

	t.Run("leverage is 1 for an unleveraged book", func(t *testing.T) {
		portfolio := NewPortfolio(1000)
		require.Equal(t, 1.0, portfolio.Leverage())

		p1, err := NewPosition("a", "ETH", 1, 2000, openedAt)
		require.NoError(t, err)
		p1.BorrowedAmount = 1500
		portfolio.SetPosition(p1)

		require.Greater(t, portfolio.Leverage(), 1.0)
	})
}
