package optimizer

import (
	"fmt"

	"github.com/quantlabs/defi-yield-backtester/src/models"
)

// Calibration holds the tunable constants of the range model. The defaults
// were fitted against historical backtest runs; they are parameters, not
// truths, so every estimate routes through an explicit Calibration value.
type Calibration struct {
	// FeeDensityExponent controls how fast fees concentrate as the range
	// narrows relative to ReferenceWidth.
	FeeDensityExponent float64 `json:"feeDensityExponent" yaml:"feeDensityExponent"`

	// ReferenceWidth is the range width at which the fee density
	// multiplier equals 1.
	ReferenceWidth float64 `json:"referenceWidth" yaml:"referenceWidth"`

	// RebalanceScalar scales the quadratic diffusion term of the
	// rebalance-frequency model.
	RebalanceScalar float64 `json:"rebalanceScalar" yaml:"rebalanceScalar"`

	// EffectiveWidthFraction shrinks the nominal width before frequency
	// estimation, since rebalances trigger before the range is exited.
	EffectiveWidthFraction float64 `json:"effectiveWidthFraction" yaml:"effectiveWidthFraction"`
}

func DefaultCalibration() Calibration {
	return Calibration{
		FeeDensityExponent:     0.8,
		ReferenceWidth:         0.05,
		RebalanceScalar:        1.20,
		EffectiveWidthFraction: 0.95,
	}
}

func (c Calibration) Validate() error {
	if c.FeeDensityExponent <= 0 || c.FeeDensityExponent >= 2 {
		return fmt.Errorf("%w: fee density exponent must be in (0, 2)", models.ErrInvalidConfig)
	}

	if c.ReferenceWidth <= 0 {
		return fmt.Errorf("%w: reference width must be positive", models.ErrInvalidConfig)
	}

	if c.RebalanceScalar <= 0 {
		return fmt.Errorf("%w: rebalance scalar must be positive", models.ErrInvalidConfig)
	}

	if c.EffectiveWidthFraction <= 0 || c.EffectiveWidthFraction > 1 {
		return fmt.Errorf("%w: effective width fraction must be in (0, 1]", models.ErrInvalidConfig)
	}

	return nil
}
