package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/quantlabs/defi-yield-backtester/src/models"
)

func writeFile(t *testing.T, dir, name, contents string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))

	return path
}

const candleCSV = `timestamp,open,high,low,close,volume
2024-01-01T00:00:00Z,2000,2050,1990,2020,1000000
2024-01-02T00:00:00Z,2020,2080,2010,2060,1200000
`

func TestLoadBacktestConfig(t *testing.T) {
	dir := t.TempDir()
	candlePath := writeFile(t, dir, "eth.csv", candleCSV)

	configPath := writeFile(t, dir, "run.yaml", `
start: 2024-01-01T00:00:00Z
end: 2024-03-31T00:00:00Z
stepHours: 24
initialCapital: 100000
riskFreeRate: 0.04
applyCosts: true
applyIl: true
costModel:
  slippageBps: 10
  gas:
    gasUnitsPerRebalance: 300000
    network: arbitrum
    nativeTokenPriceUsd: 2000
  poolFeeTier: 0.003
candleFiles:
  ETH-USDC: `+candlePath+`
strategies:
  - type: volatile-pair
    name: lp-eth
    lp:
      asset: ETH-USDC
      allocation: 0.5
      rangeWidth: 0.05
      feeApr: 20
  - type: leveraged-lending
    name: loop
    lending:
      asset: ETH-USDC
      allocation: 0.3
      supplyApr: 4
      borrowApr: 2.5
      ltv: 0.7
      loopCount: 3
      minHealthFactor: 1.1
`)

	cfg, err := LoadBacktestConfig(configPath)
	require.NoError(t, err)
	require.Equal(t, 100000.0, cfg.InitialCapital)
	require.Len(t, cfg.Strategies, 2)

	runCfg, err := cfg.BuildRunConfig()
	require.NoError(t, err)
	require.Equal(t, 24*time.Hour, runCfg.Step)
	require.Len(t, runCfg.Assignments, 2)
	require.Equal(t, "lp-eth", runCfg.Assignments[0].Strategy.Name())
	require.Equal(t, 0.05, runCfg.Assignments[0].RangeWidth)
	require.Equal(t, 0.0, runCfg.Assignments[1].RangeWidth)
	require.True(t, runCfg.ApplyCosts)
	require.NotNil(t, runCfg.CostModel)
	require.NoError(t, runCfg.Validate())
}

func TestBuildStrategyRejectsUnknownType(t *testing.T) {
	dir := t.TempDir()
	candlePath := writeFile(t, dir, "eth.csv", candleCSV)

	configPath := writeFile(t, dir, "run.yaml", `
start: 2024-01-01T00:00:00Z
end: 2024-03-31T00:00:00Z
initialCapital: 100000
candleFiles:
  ETH-USDC: `+candlePath+`
strategies:
  - type: martingale
    name: nope
`)

	cfg, err := LoadBacktestConfig(configPath)
	require.NoError(t, err)

	_, err = cfg.BuildRunConfig()
	require.ErrorIs(t, err, models.ErrInvalidConfig)
}

func TestStepHoursDefaultsToDaily(t *testing.T) {
	dir := t.TempDir()
	configPath := writeFile(t, dir, "run.yaml", `
start: 2024-01-01T00:00:00Z
end: 2024-03-31T00:00:00Z
initialCapital: 100000
`)

	cfg, err := LoadBacktestConfig(configPath)
	require.NoError(t, err)
	require.Equal(t, 24.0, cfg.StepHours)
}
