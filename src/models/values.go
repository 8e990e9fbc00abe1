package models

import (
	"fmt"
	"math"
)

// Volatility is an annualized volatility figure, e.g. 0.6 for 60% annual.
type Volatility float64

func NewVolatility(v float64) (Volatility, error) {
	if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: got %v", ErrInvalidVolatility, v)
	}

	return Volatility(v), nil
}

func (v Volatility) IsHigh() bool {
	return v >= 0.8
}

func (v Volatility) IsLow() bool {
	return v < 0.3
}

// HurstExponent classifies a series as trending (> 0.55), mean-reverting
// (< 0.45) or random-walk-like.
type HurstExponent float64

func NewHurstExponent(h float64) (HurstExponent, error) {
	if h < 0 || h > 1 || math.IsNaN(h) {
		return 0, fmt.Errorf("%w: got %v", ErrInvalidHurstExponent, h)
	}

	return HurstExponent(h), nil
}

func (h HurstExponent) IsTrending() bool {
	return h > 0.55
}

func (h HurstExponent) IsMeanReverting() bool {
	return h < 0.45
}

// DriftVelocity is an annualized directional drift rate. Construction caps
// the magnitude at MaxAnnualDrift: extrapolating a short noisy window to an
// annual rate must stay bounded.
type DriftVelocity float64

const MaxAnnualDrift = 0.20

func NewDriftVelocity(v float64) DriftVelocity {
	if v > MaxAnnualDrift {
		return DriftVelocity(MaxAnnualDrift)
	}

	if v < -MaxAnnualDrift {
		return DriftVelocity(-MaxAnnualDrift)
	}

	return DriftVelocity(v)
}

func (d DriftVelocity) Abs() float64 {
	return math.Abs(float64(d))
}

// MACD holds the 12/26 line, the 9-period signal and the histogram.
type MACD struct {
	Line      float64 `json:"line"`
	Signal    float64 `json:"signal"`
	Histogram float64 `json:"histogram"`
}

// NeutralMACD is the no-signal value returned when too few points exist.
func NeutralMACD() MACD {
	return MACD{}
}

func (m MACD) IsBullish() bool {
	return m.Histogram > 0
}

func (m MACD) IsBearish() bool {
	return m.Histogram < 0
}

func (m MACD) IsNeutral() bool {
	return m.Line == 0 && m.Signal == 0 && m.Histogram == 0
}

// HealthFactor is collateral value over debt value. Unleveraged positions
// carry an infinite health factor.
type HealthFactor float64

func NewHealthFactor(collateralValue, debtValue float64) (HealthFactor, error) {
	if collateralValue < 0 || debtValue < 0 {
		return 0, fmt.Errorf("%w: collateral %v, debt %v", ErrInvalidHealthFactor, collateralValue, debtValue)
	}

	if debtValue == 0 {
		return HealthFactor(math.Inf(1)), nil
	}

	hf := collateralValue / debtValue
	if hf <= 0 {
		return 0, fmt.Errorf("%w: got %v", ErrInvalidHealthFactor, hf)
	}

	return HealthFactor(hf), nil
}

func (h HealthFactor) IsHealthy() bool {
	return float64(h) > 1.0
}

func (h HealthFactor) IsInfinite() bool {
	return math.IsInf(float64(h), 1)
}

// FundingRate is a per-period perpetual funding rate, e.g. 0.0001 per 8h.
type FundingRate float64

func NewFundingRate(r float64) (FundingRate, error) {
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0, fmt.Errorf("invalid funding rate: %v", r)
	}

	return FundingRate(r), nil
}

// Annualized converts a per-period rate to a simple annual rate given the
// number of funding periods per year (e.g. 1095 for 8-hour funding).
func (f FundingRate) Annualized(periodsPerYear float64) float64 {
	return float64(f) * periodsPerYear
}

func (f FundingRate) IsPositive() bool {
	return f > 0
}

// ImpliedVolatility is an annualized option-implied volatility.
type ImpliedVolatility float64

func NewImpliedVolatility(iv float64) (ImpliedVolatility, error) {
	if iv < 0 || math.IsNaN(iv) || math.IsInf(iv, 0) {
		return 0, fmt.Errorf("%w: implied volatility %v", ErrInvalidVolatility, iv)
	}

	return ImpliedVolatility(iv), nil
}

// Delta is a position's price sensitivity, in [-1, 1] per unit of exposure.
type Delta float64

func NewDelta(d float64) (Delta, error) {
	if d < -1 || d > 1 || math.IsNaN(d) {
		return 0, fmt.Errorf("delta must be between -1 and 1: got %v", d)
	}

	return Delta(d), nil
}

func (d Delta) IsNeutral() bool {
	return math.Abs(float64(d)) < 0.05
}
