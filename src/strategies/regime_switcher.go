package strategies

import (
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/quantlabs/defi-yield-backtester/src/models"
)

type IVRegime string

const (
	IVRegimeLow  IVRegime = "low"
	IVRegimeMid  IVRegime = "mid"
	IVRegimeHigh IVRegime = "high"
)

// RegimeSwitcherConfig classifies implied volatility into low/mid/high with
// independent thresholds, a symmetric hysteresis band to avoid chattering,
// and a minimum hold period in days between switches.
type RegimeSwitcherConfig struct {
	LowIV       float64 `yaml:"lowIv"`
	HighIV      float64 `yaml:"highIv"`
	Hysteresis  float64 `yaml:"hysteresis"`
	MinHoldDays float64 `yaml:"minHoldDays"`
}

func (c RegimeSwitcherConfig) Validate() error {
	if c.LowIV <= 0 || c.HighIV <= c.LowIV {
		return fmt.Errorf("%w: thresholds must satisfy 0 < lowIv < highIv, got %v / %v", models.ErrInvalidConfig, c.LowIV, c.HighIV)
	}

	if c.Hysteresis < 0 || c.Hysteresis >= (c.HighIV-c.LowIV)/2 {
		return fmt.Errorf("%w: hysteresis %v must be non-negative and below half the threshold gap", models.ErrInvalidConfig, c.Hysteresis)
	}

	if c.MinHoldDays < 0 {
		return fmt.Errorf("%w: min hold days must be non-negative", models.ErrInvalidConfig)
	}

	return nil
}

// RegimeSwitcherStrategy is a composite that delegates each tick to one of
// two independently-testable sub-strategies: the calm book while implied
// volatility is low, the stressed book while it is high. The mid regime
// keeps whichever book is already active. A candidate regime change inside
// the hold period is suppressed and the prior regime persists.
type RegimeSwitcherStrategy struct {
	name       string
	cfg        RegimeSwitcherConfig
	calm       Strategy
	stressed   Strategy
	active     Strategy
	regime     IVRegime
	lastSwitch time.Time
}

func NewRegimeSwitcherStrategy(name string, cfg RegimeSwitcherConfig, calm, stressed Strategy) (*RegimeSwitcherStrategy, error) {
	s := &RegimeSwitcherStrategy{
		name:     name,
		cfg:      cfg,
		calm:     calm,
		stressed: stressed,
		active:   calm,
		regime:   IVRegimeMid,
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *RegimeSwitcherStrategy) Name() string {
	return s.name
}

func (s *RegimeSwitcherStrategy) Validate() error {
	if s.name == "" {
		return fmt.Errorf("%w: strategy name not set", models.ErrInvalidConfig)
	}

	if s.calm == nil || s.stressed == nil {
		return fmt.Errorf("%w: both sub-strategies must be set", models.ErrInvalidConfig)
	}

	if err := s.cfg.Validate(); err != nil {
		return err
	}

	if err := s.calm.Validate(); err != nil {
		return fmt.Errorf("calm sub-strategy: %w", err)
	}

	if err := s.stressed.Validate(); err != nil {
		return fmt.Errorf("stressed sub-strategy: %w", err)
	}

	return nil
}

func (s *RegimeSwitcherStrategy) Regime() IVRegime {
	return s.regime
}

func (s *RegimeSwitcherStrategy) Execute(portfolio *models.Portfolio, md models.MarketData) (Result, error) {
	if err := s.Validate(); err != nil {
		return Result{}, err
	}

	if err := md.Validate(); err != nil {
		return Result{}, fmt.Errorf("%s: bad market data: %w", s.name, err)
	}

	switched := s.observeRegime(md)

	result, err := s.active.Execute(portfolio, md)
	if err != nil {
		return Result{}, err
	}

	if switched {
		result.ShouldRebalance = true
		result.RebalanceReason = fmt.Sprintf("implied volatility regime changed to %s", s.regime)
	}

	return result, nil
}

// observeRegime reclassifies on each tick and reports whether the active
// book changed. Ticks without an IV quote keep the prior regime.
func (s *RegimeSwitcherStrategy) observeRegime(md models.MarketData) bool {
	if md.ImpliedVolatility == nil {
		return false
	}

	candidate := s.classify(float64(*md.ImpliedVolatility))
	if candidate == s.regime {
		return false
	}

	if !s.lastSwitch.IsZero() {
		heldFor := md.Timestamp.Sub(s.lastSwitch)
		if heldFor < time.Duration(s.cfg.MinHoldDays*24)*time.Hour {
			log.Debugf("%s: regime change to %s suppressed, held for %s of %v days", s.name, candidate, heldFor, s.cfg.MinHoldDays)
			return false
		}
	}

	s.regime = candidate
	s.lastSwitch = md.Timestamp

	previous := s.active
	switch candidate {
	case IVRegimeLow:
		s.active = s.calm
	case IVRegimeHigh:
		s.active = s.stressed
	default:
		// mid keeps the current book
	}

	return s.active != previous
}

// classify applies the thresholds with a symmetric hysteresis band around
// each: entering a regime requires clearing the band, leaving it requires
// crossing back through it.
func (s *RegimeSwitcherStrategy) classify(iv float64) IVRegime {
	h := s.cfg.Hysteresis

	switch s.regime {
	case IVRegimeHigh:
		if iv >= s.cfg.HighIV-h {
			return IVRegimeHigh
		}
		if iv <= s.cfg.LowIV-h {
			return IVRegimeLow
		}
		return IVRegimeMid

	case IVRegimeLow:
		if iv <= s.cfg.LowIV+h {
			return IVRegimeLow
		}
		if iv >= s.cfg.HighIV+h {
			return IVRegimeHigh
		}
		return IVRegimeMid

	default:
		if iv >= s.cfg.HighIV+h {
			return IVRegimeHigh
		}
		if iv <= s.cfg.LowIV-h {
			return IVRegimeLow
		}
		return IVRegimeMid
	}
}

// RangeWidth reports the active book's live range width, zero when the
// active book has none.
func (s *RegimeSwitcherStrategy) RangeWidth() float64 {
	if provider, ok := s.active.(interface{ RangeWidth() float64 }); ok {
		return provider.RangeWidth()
	}

	return 0
}

// ExpectedYield delegates to the currently active book.
func (s *RegimeSwitcherStrategy) ExpectedYield(md models.MarketData) (float64, error) {
	if err := s.Validate(); err != nil {
		return 0, err
	}

	return s.active.ExpectedYield(md)
}
