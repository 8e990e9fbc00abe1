package costs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/quantlabs/defi-yield-backtester/src/models"
)

func TestCalculator(t *testing.T) {
	gwei := 30.0
	model := models.CostModel{
		SlippageBps: 10,
		Gas: models.GasModel{
			GasUnitsPerRebalance: 300000,
			GasPriceGwei:         &gwei,
			NativeTokenPriceUSD:  2000,
		},
		PoolFeeTier: 0.003,
	}

	t.Run("slippage is notional times bps", func(t *testing.T) {
		calculator := NewCalculator(nil)
		require.InDelta(t, 10.0, calculator.SlippageCost(model, 10000), 1e-9)
	})

	t.Run("trade cost uses the trade notional", func(t *testing.T) {
		calculator := NewCalculator(nil)

		trade, err := models.NewTrade("s", "ETH", models.TradeSideBuy, 5, 2000, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
		require.NoError(t, err)

		require.InDelta(t, 10.0, calculator.TradeCost(model, trade), 1e-9)
	})

	t.Run("gas cost from explicit gwei", func(t *testing.T) {
		calculator := NewCalculator(nil)

		// 300000 * 30e-9 * 2000 = 18 USD
		require.InDelta(t, 18.0, calculator.GasCostUSD(model.Gas), 1e-9)
	})

	t.Run("pool fee approximates half the position as swap notional", func(t *testing.T) {
		calculator := NewCalculator(nil)
		require.InDelta(t, 15.0, calculator.PoolFeeCost(model, 10000), 1e-9)
	})

	t.Run("total rebalance cost sums gas and pool fee", func(t *testing.T) {
		calculator := NewCalculator(nil)
		require.InDelta(t, 33.0, calculator.EstimateTotalRebalanceCost(model, 10000), 1e-9)
	})

	t.Run("primed gas price wins over default", func(t *testing.T) {
		calculator := NewCalculator(StaticGasPriceSource{"arbitrum": 0.5})
		calculator.PrimeGasPrice(context.Background(), "arbitrum")

		gas := models.GasModel{
			GasUnitsPerRebalance: 1e9,
			Network:              "arbitrum",
			NativeTokenPriceUSD:  1,
		}

		require.InDelta(t, 0.5, calculator.GasCostUSD(gas), 1e-9)
	})

	t.Run("failed live fetch falls back to the network default", func(t *testing.T) {
		calculator := NewCalculator(StaticGasPriceSource{})
		calculator.PrimeGasPrice(context.Background(), "polygon")

		gas := models.GasModel{
			GasUnitsPerRebalance: 1e9,
			Network:              "polygon",
			NativeTokenPriceUSD:  1,
		}

		require.InDelta(t, DefaultGasPriceGwei["polygon"], calculator.GasCostUSD(gas), 1e-9)
	})

	t.Run("unknown network falls back to the ethereum default", func(t *testing.T) {
		calculator := NewCalculator(nil)

		gas := models.GasModel{
			GasUnitsPerRebalance: 1e9,
			Network:              "unknown-chain",
			NativeTokenPriceUSD:  1,
		}

		require.InDelta(t, DefaultGasPriceGwei["ethereum"], calculator.GasCostUSD(gas), 1e-9)
	})

	t.Run("clear cache forces a refetch", func(t *testing.T) {
		source := StaticGasPriceSource{"ethereum": 100}
		calculator := NewCalculator(source)

		calculator.PrimeGasPrice(context.Background(), "ethereum")
		source["ethereum"] = 200

		// still cached
		calculator.PrimeGasPrice(context.Background(), "ethereum")
		gas := models.GasModel{GasUnitsPerRebalance: 1e9, Network: "ethereum", NativeTokenPriceUSD: 1}
		require.InDelta(t, 100.0, calculator.GasCostUSD(gas), 1e-9)

		calculator.ClearGasPriceCache()
		calculator.PrimeGasPrice(context.Background(), "ethereum")
		require.InDelta(t, 200.0, calculator.GasCostUSD(gas), 1e-9)
	})
}
