package indicators

import "github.com/quantlabs/defi-yield-backtester/src/models"

const (
	macdFastPeriod   = 12
	macdSlowPeriod   = 26
	macdSignalPeriod = 9
)

// ComputeMACD derives the 12/26 MACD line, the 9-period signal line of the
// historical MACD series and the histogram. With fewer than 26 closes it
// returns the neutral all-zero MACD: degrading to "no signal" is acceptable
// where a hard failure is not.
func ComputeMACD(closes []float64) models.MACD {
	if len(closes) < macdSlowPeriod {
		return models.NeutralMACD()
	}

	fast := emaSeries(closes, macdFastPeriod)
	slow := emaSeries(closes, macdSlowPeriod)

	// align the fast series to the slow series' first defined point
	offset := len(fast) - len(slow)
	macdLine := make([]float64, len(slow))
	for i := range slow {
		macdLine[i] = fast[i+offset] - slow[i]
	}

	line := macdLine[len(macdLine)-1]

	signalSeries := emaSeries(macdLine, macdSignalPeriod)
	signal := line
	if len(signalSeries) > 0 {
		signal = signalSeries[len(signalSeries)-1]
	}

	return models.MACD{
		Line:      line,
		Signal:    signal,
		Histogram: line - signal,
	}
}
