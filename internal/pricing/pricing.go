// Package pricing implements the pure, side-effect-free curve math behind
// the pool's invariant: K*x^alpha + y^alpha = C, the rate curve
// r = kappa*ln(X/y) + rStar, and the discount p = e^(-rt). Every function
// here is deterministic given its fixed-point inputs, mirroring the way the
// lending engine's interest model (BorrowAPR/Utilisation) kept rate math
// pure and separate from the stateful engine that calls it.
package pricing

import (
	"errors"

	"github.com/Schrodinger-Labs/BondMM-A/internal/fixedpoint"
)

var (
	// ErrTimeTooSmall is returned when a maturity horizon is below the
	// minimum the curve can price without numerical instability.
	ErrTimeTooSmall = errors.New("pricing: time horizon too small")
	// ErrInvalidTrade is returned when a requested delta would push the
	// invariant curve past a domain boundary (non-positive reserve or a
	// non-positive residual under the radical).
	ErrInvalidTrade = errors.New("pricing: trade would violate the invariant")
)

// MinTime is the minimum time-to-maturity accepted by Alpha, K, Invariant
// and the delta solvers. Price does not check it: it accepts any t and
// returns par at t == 0.
var MinTime = fixedpoint.FromInt(3600)

// SecondsPerYear is the year length used to annualize the curve's rates.
var SecondsPerYear = fixedpoint.FromInt(365 * 86400)

// Kappa is the fixed curve sensitivity constant; not configurable per spec.
var Kappa = fixedpoint.MustFromString("0.02")

// TradeSign selects which side of a reserve a trade moves.
type TradeSign int

const (
	// Increase grows the named reserve (cash in, or bonds in).
	Increase TradeSign = iota
	// Decrease shrinks the named reserve (cash out, or bonds out).
	Decrease
)

func yearFraction(t fixedpoint.Fixed) (fixedpoint.Fixed, error) {
	if t.Cmp(MinTime) < 0 {
		return fixedpoint.Fixed{}, ErrTimeTooSmall
	}
	return t.Div(SecondsPerYear)
}

// Alpha computes alpha(t) = 1 / (1 + kappa*t/Y).
func Alpha(t fixedpoint.Fixed) (fixedpoint.Fixed, error) {
	yf, err := yearFraction(t)
	if err != nil {
		return fixedpoint.Fixed{}, err
	}
	kt, err := Kappa.Mul(yf)
	if err != nil {
		return fixedpoint.Fixed{}, err
	}
	denom, err := fixedpoint.One().Add(kt)
	if err != nil {
		return fixedpoint.Fixed{}, err
	}
	return fixedpoint.One().Div(denom)
}

// K computes K(t, rStar) = e^(-t/Y * rStar * alpha(t)).
//
// The exponent is negative, and Fixed cannot represent negative numbers
// directly, so the contract's continuation formula is applied here:
// e^(-x) = 1/e^(x).
func K(t, rStar fixedpoint.Fixed) (fixedpoint.Fixed, error) {
	yf, err := yearFraction(t)
	if err != nil {
		return fixedpoint.Fixed{}, err
	}
	alpha, err := Alpha(t)
	if err != nil {
		return fixedpoint.Fixed{}, err
	}
	exponent, err := yf.Mul(rStar)
	if err != nil {
		return fixedpoint.Fixed{}, err
	}
	exponent, err = exponent.Mul(alpha)
	if err != nil {
		return fixedpoint.Fixed{}, err
	}
	positive, err := exponent.Exp()
	if err != nil {
		return fixedpoint.Fixed{}, err
	}
	return positive.Inv()
}

// Price computes the discount p(t, r) = e^(-r*t/Y), returning exactly 1.0
// when t == 0 (par at maturity).
func Price(t, r fixedpoint.Fixed) (fixedpoint.Fixed, error) {
	if t.IsZero() {
		return fixedpoint.One(), nil
	}
	frac, err := t.Div(SecondsPerYear)
	if err != nil {
		return fixedpoint.Fixed{}, err
	}
	exponent, err := r.Mul(frac)
	if err != nil {
		return fixedpoint.Fixed{}, err
	}
	positive, err := exponent.Exp()
	if err != nil {
		return fixedpoint.Fixed{}, err
	}
	return positive.Inv()
}

// Rate computes the pool's instantaneous short rate:
//
//	r = rStar + kappa*ln(X/y)   when X >= y
//	r = rStar - kappa*ln(y/X)   when X <  y
//
// Requires X > 0 and y > 0.
func Rate(X, y, rStar fixedpoint.Fixed) (fixedpoint.Fixed, error) {
	if X.Sign() <= 0 || y.Sign() <= 0 {
		return fixedpoint.Fixed{}, ErrInvalidTrade
	}
	if X.Cmp(y) >= 0 {
		ratio, err := X.Div(y)
		if err != nil {
			return fixedpoint.Fixed{}, err
		}
		ln, err := ratio.Ln()
		if err != nil {
			return fixedpoint.Fixed{}, err
		}
		adj, err := Kappa.Mul(ln)
		if err != nil {
			return fixedpoint.Fixed{}, err
		}
		return rStar.Add(adj)
	}
	ratio, err := y.Div(X)
	if err != nil {
		return fixedpoint.Fixed{}, err
	}
	ln, err := ratio.Ln()
	if err != nil {
		return fixedpoint.Fixed{}, err
	}
	adj, err := Kappa.Mul(ln)
	if err != nil {
		return fixedpoint.Fixed{}, err
	}
	return rStar.Sub(adj)
}

// Invariant computes C(X, y, t, rStar) = K(t,rStar)*X^alpha(t) + y^alpha(t).
func Invariant(X, y, t, rStar fixedpoint.Fixed) (fixedpoint.Fixed, error) {
	alpha, err := Alpha(t)
	if err != nil {
		return fixedpoint.Fixed{}, err
	}
	k, err := K(t, rStar)
	if err != nil {
		return fixedpoint.Fixed{}, err
	}
	xTerm, err := curvePow(X, alpha)
	if err != nil {
		return fixedpoint.Fixed{}, err
	}
	kxTerm, err := k.Mul(xTerm)
	if err != nil {
		return fixedpoint.Fixed{}, err
	}
	yTerm, err := curvePow(y, alpha)
	if err != nil {
		return fixedpoint.Fixed{}, err
	}
	return kxTerm.Add(yTerm)
}

// curvePow raises base to the (sub-unity) exponent alpha, applying the
// continuation formula base^a = 1/(1/base)^a when base < 1.0 so the Pow
// domain restriction (base >= 1.0) never blocks a legitimate reserve value.
func curvePow(base, alpha fixedpoint.Fixed) (fixedpoint.Fixed, error) {
	if base.Cmp(fixedpoint.One()) >= 0 {
		return base.Pow(alpha)
	}
	inv, err := base.Inv()
	if err != nil {
		return fixedpoint.Fixed{}, err
	}
	p, err := inv.Pow(alpha)
	if err != nil {
		return fixedpoint.Fixed{}, err
	}
	return p.Inv()
}

// DeltaY solves the invariant for the change in y implied by a requested
// change in x: with x' = X (+/-) deltaX, y' = (C - K*x'^alpha)^(1/alpha).
// Returns |y' - y|. Fails with ErrInvalidTrade if x' <= 0 or the residual
// under the radical is non-positive (no free trades at the curve boundary).
func DeltaY(deltaX, X, y, t, rStar fixedpoint.Fixed, sign TradeSign) (fixedpoint.Fixed, error) {
	alpha, err := Alpha(t)
	if err != nil {
		return fixedpoint.Fixed{}, err
	}
	k, err := K(t, rStar)
	if err != nil {
		return fixedpoint.Fixed{}, err
	}
	c, err := Invariant(X, y, t, rStar)
	if err != nil {
		return fixedpoint.Fixed{}, err
	}

	var xPrime fixedpoint.Fixed
	switch sign {
	case Increase:
		xPrime, err = X.Add(deltaX)
	case Decrease:
		xPrime, err = X.Sub(deltaX)
	}
	if err != nil || xPrime.Sign() <= 0 {
		return fixedpoint.Fixed{}, ErrInvalidTrade
	}

	xPrimeTerm, err := curvePow(xPrime, alpha)
	if err != nil {
		return fixedpoint.Fixed{}, err
	}
	kxPrime, err := k.Mul(xPrimeTerm)
	if err != nil {
		return fixedpoint.Fixed{}, err
	}
	residual, err := c.Sub(kxPrime)
	if err != nil || residual.Sign() <= 0 {
		return fixedpoint.Fixed{}, ErrInvalidTrade
	}

	invAlpha, err := fixedpoint.One().Div(alpha)
	if err != nil {
		return fixedpoint.Fixed{}, err
	}
	yPrime, err := curvePow(residual, invAlpha)
	if err != nil {
		return fixedpoint.Fixed{}, err
	}
	if yPrime.Sign() <= 0 {
		return fixedpoint.Fixed{}, ErrInvalidTrade
	}
	return absDiff(yPrime, y), nil
}

// DeltaX solves the invariant for the change in x implied by a requested
// change in y, the mirror image of DeltaY.
func DeltaX(deltaY, X, y, t, rStar fixedpoint.Fixed, sign TradeSign) (fixedpoint.Fixed, error) {
	alpha, err := Alpha(t)
	if err != nil {
		return fixedpoint.Fixed{}, err
	}
	k, err := K(t, rStar)
	if err != nil {
		return fixedpoint.Fixed{}, err
	}
	c, err := Invariant(X, y, t, rStar)
	if err != nil {
		return fixedpoint.Fixed{}, err
	}

	var yPrime fixedpoint.Fixed
	switch sign {
	case Increase:
		yPrime, err = y.Add(deltaY)
	case Decrease:
		yPrime, err = y.Sub(deltaY)
	}
	if err != nil || yPrime.Sign() <= 0 {
		return fixedpoint.Fixed{}, ErrInvalidTrade
	}

	invAlpha, err := fixedpoint.One().Div(alpha)
	if err != nil {
		return fixedpoint.Fixed{}, err
	}

	yPrimeTerm, err := curvePow(yPrime, alpha)
	if err != nil {
		return fixedpoint.Fixed{}, err
	}
	residual, err := c.Sub(yPrimeTerm)
	if err != nil || residual.Sign() <= 0 {
		return fixedpoint.Fixed{}, ErrInvalidTrade
	}
	residualOverK, err := residual.Div(k)
	if err != nil {
		return fixedpoint.Fixed{}, err
	}
	xPrime, err := curvePow(residualOverK, invAlpha)
	if err != nil {
		return fixedpoint.Fixed{}, err
	}
	if xPrime.Sign() <= 0 {
		return fixedpoint.Fixed{}, ErrInvalidTrade
	}
	return absDiff(xPrime, X), nil
}

func absDiff(a, b fixedpoint.Fixed) fixedpoint.Fixed {
	if a.Cmp(b) >= 0 {
		d, _ := a.Sub(b)
		return d
	}
	d, _ := b.Sub(a)
	return d
}
