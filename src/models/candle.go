package models

import (
	"fmt"
	"math"
	"sort"
	"time"
)

type Candle struct {
	Timestamp time.Time `json:"timestamp" csv:"timestamp"`
	Open      float64   `json:"open" csv:"open"`
	High      float64   `json:"high" csv:"high"`
	Low       float64   `json:"low" csv:"low"`
	Close     float64   `json:"close" csv:"close"`
	Volume    float64   `json:"volume" csv:"volume"`
}

func (c Candle) Validate() error {
	if c.Timestamp.IsZero() {
		return ErrNoTimestamp
	}

	if c.Open <= 0 || c.High <= 0 || c.Low <= 0 || c.Close <= 0 {
		return fmt.Errorf("candle prices must be greater than 0")
	}

	if c.High < c.Low {
		return fmt.Errorf("candle high %.6f is below low %.6f", c.High, c.Low)
	}

	return nil
}

type Candles []Candle

// SortCandles returns the candles ordered by timestamp ascending, with
// duplicate timestamps collapsed to the last occurrence.
func SortCandles(candles Candles) Candles {
	byTime := map[time.Time]Candle{}
	for _, c := range candles {
		byTime[c.Timestamp] = c
	}

	out := make(Candles, 0, len(byTime))
	for _, c := range byTime {
		out = append(out, c)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})

	return out
}

// LogReturns derives the log-return series of the close prices. The result
// has length len(candles)-1.
func (cs Candles) LogReturns() []float64 {
	if len(cs) < 2 {
		return nil
	}

	returns := make([]float64, 0, len(cs)-1)
	for i := 1; i < len(cs); i++ {
		if cs[i-1].Close <= 0 || cs[i].Close <= 0 {
			continue
		}
		returns = append(returns, math.Log(cs[i].Close/cs[i-1].Close))
	}

	return returns
}

// Period returns the native candle period, derived from the first two
// timestamps. Zero if fewer than two candles.
func (cs Candles) Period() time.Duration {
	if len(cs) < 2 {
		return 0
	}

	return cs[1].Timestamp.Sub(cs[0].Timestamp)
}

func (cs Candles) Closes() []float64 {
	closes := make([]float64, len(cs))
	for i, c := range cs {
		closes[i] = c.Close
	}

	return closes
}
