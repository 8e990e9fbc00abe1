package data

import (
	"fmt"
	"os"
	"time"

	"github.com/gocarina/gocsv"
	log "github.com/sirupsen/logrus"

	"github.com/quantlabs/defi-yield-backtester/src/models"
)

// LoadCandlesFromCSV reads a candle series from disk. The file layout follows
// the csv tags on models.Candle: timestamp,open,high,low,close,volume with
// RFC 3339 timestamps.
func LoadCandlesFromCSV(path string) (models.Candles, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open candle file %s: %w", path, err)
	}
	defer f.Close()

	var candles models.Candles
	if err := gocsv.UnmarshalFile(f, &candles); err != nil {
		return nil, fmt.Errorf("failed to parse candle file %s: %w", path, err)
	}

	for _, candle := range candles {
		if err := candle.Validate(); err != nil {
			return nil, fmt.Errorf("bad candle in %s: %w", path, err)
		}
	}

	if len(candles) == 0 {
		return nil, fmt.Errorf("%w: %s holds no candles", models.ErrDataUnavailable, path)
	}

	log.Debugf("loaded %d candles from %s", len(candles), path)

	return models.SortCandles(candles), nil
}

type fundingRateRow struct {
	Timestamp time.Time `csv:"timestamp"`
	Rate      float64   `csv:"rate"`
}

// LoadFundingRatesFromCSV reads a per-period funding rate series: a
// timestamp,rate file with RFC 3339 timestamps and raw per-period rates.
func LoadFundingRatesFromCSV(path string) ([]FundingObservation, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open funding file %s: %w", path, err)
	}
	defer f.Close()

	var rows []fundingRateRow
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		return nil, fmt.Errorf("failed to parse funding file %s: %w", path, err)
	}

	points := make([]FundingObservation, 0, len(rows))
	for _, row := range rows {
		if row.Timestamp.IsZero() {
			return nil, fmt.Errorf("bad funding row in %s: %w", path, models.ErrNoTimestamp)
		}

		points = append(points, FundingObservation{At: row.Timestamp, Rate: models.FundingRate(row.Rate)})
	}

	return points, nil
}

// NewCSVAdapter builds a memory adapter from per-asset candle files and
// optional per-asset funding rate files.
func NewCSVAdapter(candleFiles map[string]string, fundingFiles map[string]string) (*MemoryAdapter, error) {
	adapter := NewMemoryAdapter()

	for asset, path := range candleFiles {
		candles, err := LoadCandlesFromCSV(path)
		if err != nil {
			return nil, fmt.Errorf("asset %s: %w", asset, err)
		}

		adapter.SetCandles(asset, candles)
	}

	for asset, path := range fundingFiles {
		points, err := LoadFundingRatesFromCSV(path)
		if err != nil {
			return nil, fmt.Errorf("asset %s: %w", asset, err)
		}

		for _, point := range points {
			adapter.SetFundingRate(asset, point.At, point.Rate)
		}
	}

	return adapter, nil
}
