package strategies

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/quantlabs/defi-yield-backtester/src/indicators"
	"github.com/quantlabs/defi-yield-backtester/src/models"
	"github.com/quantlabs/defi-yield-backtester/src/optimizer"
)

// trendWindowSize caps the rolling candle window fed to the regime analyst.
const trendWindowSize = 60

// TrendAwareStrategy adjusts a volatile-pair position's range width to the
// prevailing regime: a trending market gets a wider range (fewer forced
// rebalances along the trend), a mean-reverting one gets the base width.
type TrendAwareStrategy struct {
	inner     *VolatilePairStrategy
	analyst   *indicators.RegimeAnalyst
	baseWidth float64
	window    models.Candles
}

func NewTrendAwareStrategy(name string, cfg LPConfig, opt *optimizer.RangeOptimizer) (*TrendAwareStrategy, error) {
	inner, err := NewVolatilePairStrategy(name, cfg, opt)
	if err != nil {
		return nil, err
	}

	return &TrendAwareStrategy{
		inner:     inner,
		analyst:   indicators.NewRegimeAnalyst(),
		baseWidth: cfg.RangeWidth,
	}, nil
}

func (s *TrendAwareStrategy) Name() string {
	return s.inner.Name()
}

func (s *TrendAwareStrategy) Validate() error {
	return s.inner.Validate()
}

func (s *TrendAwareStrategy) Execute(portfolio *models.Portfolio, md models.MarketData) (Result, error) {
	if err := md.Validate(); err != nil {
		return Result{}, fmt.Errorf("%s: bad market data: %w", s.Name(), err)
	}

	s.observe(md)
	s.adjustWidth(md)

	return s.inner.Execute(portfolio, md)
}

func (s *TrendAwareStrategy) ExpectedYield(md models.MarketData) (float64, error) {
	return s.inner.ExpectedYield(md)
}

func (s *TrendAwareStrategy) RangeWidth() float64 {
	return s.inner.RangeWidth()
}

func (s *TrendAwareStrategy) observe(md models.MarketData) {
	volume := 0.0
	if md.Volume != nil {
		volume = *md.Volume
	}

	s.window = append(s.window, models.Candle{
		Timestamp: md.Timestamp,
		Open:      md.Price,
		High:      md.Price,
		Low:       md.Price,
		Close:     md.Price,
		Volume:    volume,
	})

	if len(s.window) > trendWindowSize {
		s.window = s.window[1:]
	}
}

func (s *TrendAwareStrategy) adjustWidth(md models.MarketData) {
	if len(s.window) < indicators.MinRegimeCandles {
		return
	}

	report, err := s.analyst.Analyze(s.window)
	if err != nil {
		log.Warnf("%s: regime analysis degraded, keeping width %.4f: %v", s.Name(), s.inner.cfg.RangeWidth, err)
		return
	}

	width := s.baseWidth
	if report.Hurst.IsTrending() {
		// widen proportionally to trend persistence, capped at double
		width = s.baseWidth * (1 + float64(report.Hurst))
		if width > 2*s.baseWidth {
			width = 2 * s.baseWidth
		}
	}

	if width > 1 {
		width = 1
	}

	s.inner.cfg.RangeWidth = width
}
