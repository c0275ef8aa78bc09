package bondmm

import (
	"errors"

	"github.com/Schrodinger-Labs/BondMM-A/internal/fixedpoint"
)

// Bounds on administratively configurable parameters. Validation at the
// setter boundary rejects anything outside these ranges, the same role the
// lending engine's RiskParameters/BorrowCaps play for its own risk knobs.
var (
	MinMaturityFloor = int64(86400)       // >= 1 day
	MaxMaturityCeil  = int64(730 * 86400) // <= 730 days

	MinCollateralRatio = fixedpoint.MustFromString("1.00")
	MaxCollateralRatio = fixedpoint.MustFromString("3.00")

	MinSolvencyThreshold = fixedpoint.MustFromString("0.90")
	MaxSolvencyThreshold = fixedpoint.MustFromString("1.00")

	MinGracePeriod = int64(3600)      // >= 1 hour
	MaxGracePeriod = int64(7 * 86400) // <= 7 days

	MaxLiquidationPenalty = fixedpoint.MustFromString("0.20")
)

var (
	ErrParamOutOfBounds = errors.New("bondmm: parameter outside permitted bounds")
	ErrMinNotBelowMax   = errors.New("bondmm: min maturity must be below max maturity")
)

// Params groups the governance-controlled limits applied to pool operations.
// Defaults match the spec's recommended configuration.
type Params struct {
	MinMaturity        int64
	MaxMaturity        int64
	CollateralRatio    fixedpoint.Fixed // rho
	SolvencyThreshold  fixedpoint.Fixed // theta
	GracePeriod        int64
	LiquidationPenalty fixedpoint.Fixed
}

// DefaultParams returns the spec's default risk configuration.
func DefaultParams() Params {
	return Params{
		MinMaturity:        30 * 86400,
		MaxMaturity:        365 * 86400,
		CollateralRatio:    fixedpoint.MustFromString("1.50"),
		SolvencyThreshold:  fixedpoint.MustFromString("0.99"),
		GracePeriod:        24 * 3600,
		LiquidationPenalty: fixedpoint.MustFromString("0.05"),
	}
}

// Validate checks every field against its absolute bound and the
// min-below-max cross constraint.
func (p Params) Validate() error {
	if p.MinMaturity < MinMaturityFloor || p.MinMaturity >= p.MaxMaturity {
		return ErrMinNotBelowMax
	}
	if p.MaxMaturity > MaxMaturityCeil {
		return ErrParamOutOfBounds
	}
	if p.CollateralRatio.Cmp(MinCollateralRatio) < 0 || p.CollateralRatio.Cmp(MaxCollateralRatio) > 0 {
		return ErrParamOutOfBounds
	}
	if p.SolvencyThreshold.Cmp(MinSolvencyThreshold) < 0 || p.SolvencyThreshold.Cmp(MaxSolvencyThreshold) > 0 {
		return ErrParamOutOfBounds
	}
	if p.GracePeriod < MinGracePeriod || p.GracePeriod > MaxGracePeriod {
		return ErrParamOutOfBounds
	}
	if p.LiquidationPenalty.Sign() < 0 || p.LiquidationPenalty.Cmp(MaxLiquidationPenalty) > 0 {
		return ErrParamOutOfBounds
	}
	return nil
}

// ValidateMaturity checks a requested (maturity - now) horizon against the
// configured [MinMaturity, MaxMaturity] window.
func (p Params) ValidateMaturity(t int64) error {
	if t < p.MinMaturity || t > p.MaxMaturity {
		return ErrInvalidMaturity
	}
	return nil
}
