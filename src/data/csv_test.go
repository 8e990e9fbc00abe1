package data

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/quantlabs/defi-yield-backtester/src/models"
)

func writeCandleFile(t *testing.T, contents string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "candles.csv")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))

	return path
}

func TestLoadCandlesFromCSV(t *testing.T) {
	t.Run("parses and sorts a candle file", func(t *testing.T) {
		path := writeCandleFile(t, `timestamp,open,high,low,close,volume
2024-01-02T00:00:00Z,2020,2080,2010,2060,1200000
2024-01-01T00:00:00Z,2000,2050,1990,2020,1000000
`)

		candles, err := LoadCandlesFromCSV(path)
		require.NoError(t, err)
		require.Len(t, candles, 2)
		require.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), candles[0].Timestamp)
		require.Equal(t, 2020.0, candles[0].Close)
		require.Equal(t, 2060.0, candles[1].Close)
	})

	t.Run("rejects a candle with bad prices", func(t *testing.T) {
		path := writeCandleFile(t, `timestamp,open,high,low,close,volume
2024-01-01T00:00:00Z,2000,1990,2050,2020,1000000
`)

		_, err := LoadCandlesFromCSV(path)
		require.Error(t, err)
	})

	t.Run("rejects an empty file", func(t *testing.T) {
		path := writeCandleFile(t, "timestamp,open,high,low,close,volume\n")

		_, err := LoadCandlesFromCSV(path)
		require.ErrorIs(t, err, models.ErrDataUnavailable)
	})

	t.Run("missing file surfaces the open error", func(t *testing.T) {
		_, err := LoadCandlesFromCSV(filepath.Join(t.TempDir(), "absent.csv"))
		require.Error(t, err)
	})
}

func TestNewCSVAdapter(t *testing.T) {
	path := writeCandleFile(t, `timestamp,open,high,low,close,volume
2024-01-01T00:00:00Z,2000,2050,1990,2020,1000000
2024-01-02T00:00:00Z,2020,2080,2010,2060,1200000
`)

	fundingPath := writeCandleFile(t, `timestamp,rate
2024-01-01T00:00:00Z,0.0001
2024-01-02T00:00:00Z,0.0002
`)

	adapter, err := NewCSVAdapter(
		map[string]string{"ETH-USDC": path},
		map[string]string{"ETH-USDC": fundingPath},
	)
	require.NoError(t, err)

	price, err := adapter.FetchPrice(context.Background(), "ETH-USDC", time.Date(2024, 1, 2, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Equal(t, 2060.0, price)

	funding, err := adapter.FetchFundingRate(context.Background(), "ETH-USDC", time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.NotNil(t, funding)
	require.InDelta(t, 0.0001, float64(*funding), 1e-12)
}
