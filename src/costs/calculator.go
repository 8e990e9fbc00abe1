package costs

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/quantlabs/defi-yield-backtester/src/models"
)

// Calculator translates trade and rebalance events into realized USD cost.
// Each call is stateless except for the gas price cache, which is filled at
// most once per network per run. The same cost function feeds the range
// optimizer, so optimizer and engine stay numerically consistent.
type Calculator struct {
	source GasPriceSource
	cache  map[string]float64
}

func NewCalculator(source GasPriceSource) *Calculator {
	return &Calculator{
		source: source,
		cache:  make(map[string]float64),
	}
}

// SlippageCost is trade notional times the configured basis points.
func (c *Calculator) SlippageCost(model models.CostModel, notionalUSD float64) float64 {
	return notionalUSD * model.SlippageBps / 10000.0
}

// TradeCost is the realized USD cost of a single trade.
func (c *Calculator) TradeCost(model models.CostModel, trade *models.Trade) float64 {
	return c.SlippageCost(model, trade.Notional())
}

// GasCostUSD derives one rebalance's gas cost. An explicit gas price wins;
// otherwise the cached per-network price is used, then the static default.
func (c *Calculator) GasCostUSD(model models.GasModel) float64 {
	gwei := c.gasPriceGwei(model)

	return model.GasUnitsPerRebalance * (gwei / 1e9) * model.NativeTokenPriceUSD
}

// PoolFeeCost approximates a rebalance's swap notional as half the position
// value times the pool fee tier.
func (c *Calculator) PoolFeeCost(model models.CostModel, positionValueUSD float64) float64 {
	return 0.5 * positionValueUSD * model.PoolFeeTier
}

// EstimateTotalRebalanceCost sums gas and pool-fee cost for one rebalance.
func (c *Calculator) EstimateTotalRebalanceCost(model models.CostModel, positionValueUSD float64) float64 {
	return c.GasCostUSD(model.Gas) + c.PoolFeeCost(model, positionValueUSD)
}

// PrimeGasPrice fetches and caches the live gas price for a network. A
// failed fetch falls back to the per-network default and never fails the
// run; the fallback is logged and cached so the lookup happens once.
func (c *Calculator) PrimeGasPrice(ctx context.Context, network string) {
	if network == "" {
		return
	}

	if _, found := c.cache[network]; found {
		return
	}

	if c.source != nil {
		price, err := c.source.FetchGasPriceGwei(ctx, network)
		if err == nil {
			c.cache[network] = price
			return
		}

		log.Warnf("live gas price fetch failed for %s, using default: %v", network, err)
	}

	c.cache[network] = defaultGasPrice(network)
}

// ClearGasPriceCache drops cached prices, forcing the next prime to fetch.
func (c *Calculator) ClearGasPriceCache() {
	c.cache = make(map[string]float64)
}

func (c *Calculator) gasPriceGwei(model models.GasModel) float64 {
	if model.GasPriceGwei != nil {
		return *model.GasPriceGwei
	}

	if price, found := c.cache[model.Network]; found {
		return price
	}

	return defaultGasPrice(model.Network)
}

func defaultGasPrice(network string) float64 {
	if price, found := DefaultGasPriceGwei[network]; found {
		return price
	}

	return DefaultGasPriceGwei["ethereum"]
}
