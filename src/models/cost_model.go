package models

import "fmt"

// GasModel describes how a rebalance's gas cost is derived. If GasPriceGwei
// is nil the calculator looks the price up live for Network and caches it
// for the remainder of the run.
type GasModel struct {
	GasUnitsPerRebalance float64  `json:"gasUnitsPerRebalance" yaml:"gasUnitsPerRebalance"`
	GasPriceGwei         *float64 `json:"gasPriceGwei,omitempty" yaml:"gasPriceGwei,omitempty"`
	Network              string   `json:"network,omitempty" yaml:"network,omitempty"`
	NativeTokenPriceUSD  float64  `json:"nativeTokenPriceUsd" yaml:"nativeTokenPriceUsd"`
}

// CostModel is pure configuration: slippage in basis points, the gas model
// and an optional pool fee tier (e.g. 0.003 for a 30bps pool).
type CostModel struct {
	SlippageBps float64  `json:"slippageBps" yaml:"slippageBps"`
	Gas         GasModel `json:"gas" yaml:"gas"`
	PoolFeeTier float64  `json:"poolFeeTier,omitempty" yaml:"poolFeeTier,omitempty"`
}

func (cm CostModel) Validate() error {
	if cm.SlippageBps < 0 {
		return fmt.Errorf("%w: slippage bps must be non-negative", ErrInvalidConfig)
	}

	if cm.Gas.GasUnitsPerRebalance < 0 {
		return fmt.Errorf("%w: gas units must be non-negative", ErrInvalidConfig)
	}

	if cm.Gas.GasPriceGwei != nil && *cm.Gas.GasPriceGwei < 0 {
		return fmt.Errorf("%w: gas price must be non-negative", ErrInvalidConfig)
	}

	if cm.Gas.NativeTokenPriceUSD < 0 {
		return fmt.Errorf("%w: native token price must be non-negative", ErrInvalidConfig)
	}

	if cm.PoolFeeTier < 0 || cm.PoolFeeTier > 0.1 {
		return fmt.Errorf("%w: pool fee tier must be between 0 and 0.1", ErrInvalidConfig)
	}

	return nil
}
