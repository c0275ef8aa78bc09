// Package fixedpoint implements 60.18-decimal unsigned fixed-point
// arithmetic: every stored integer equals the represented real number
// multiplied by 1e18. It generalises the ray-scaled integer math the
// lending engine this module grew out of used inline (mul-then-divide by a
// fixed scale, floor rounding, saturation on overflow) into a standalone
// type with exp/ln support for the pricing curve.
//
// There is no third-party decimal library in reach that exposes exp/ln with
// an explicit rounding and overflow contract over a fixed 1e18 scale
// (shopspring/decimal has no transcendental functions; razorpay/go-financial
// is amortization-schedule tooling, not an arithmetic primitive) so the
// domain-specific parts of this package are built directly on math/big,
// matching how the lending engine already leaned on math/big throughout.
package fixedpoint

import (
	"errors"
	"math/big"
)

// Decimals is the number of fractional decimal digits represented.
const Decimals = 18

var (
	// ErrDivByZero is returned by Div when the divisor is zero.
	ErrDivByZero = errors.New("fixedpoint: division by zero")
	// ErrOverflow is returned when a result exceeds the representable range.
	ErrOverflow = errors.New("fixedpoint: overflow")
	// ErrDomain is returned when an argument falls outside a function's
	// supported domain (e.g. ln of a non-positive number).
	ErrDomain = errors.New("fixedpoint: argument out of domain")
)

// Scale is 10^18, the fixed-point unit.
var Scale = new(big.Int).Exp(big.NewInt(10), big.NewInt(Decimals), nil)

var half = new(big.Int).Rsh(Scale, 1)

// maxUint256 bounds the representable range; results exceeding it saturate
// into ErrOverflow rather than wrapping.
var maxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// expMax is the largest exponent Exp accepts: 192·ln(2) ≈ 133.084, so e^x
// stays below 2^192 and its 1e18-scaled form stays well below maxUint256.
var expMax = mustParse("133084258667509499440")

// Fixed is an unsigned 60.18-decimal fixed-point number.
type Fixed struct {
	v *big.Int
}

func wrap(v *big.Int) Fixed { return Fixed{v: v} }

// Raw returns the underlying scaled integer (real value * 1e18).
func (f Fixed) Raw() *big.Int {
	if f.v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(f.v)
}

// Zero is the additive identity.
func Zero() Fixed { return Fixed{v: big.NewInt(0)} }

// One is the multiplicative identity (1.0).
func One() Fixed { return Fixed{v: new(big.Int).Set(Scale)} }

// FromInt lifts an integer number of whole units into fixed-point.
func FromInt(n int64) Fixed {
	return Fixed{v: new(big.Int).Mul(big.NewInt(n), Scale)}
}

// FromRaw wraps an already-scaled integer (the caller asserts it is
// expressed in 1e18 units).
func FromRaw(v *big.Int) Fixed {
	if v == nil {
		return Zero()
	}
	return Fixed{v: new(big.Int).Set(v)}
}

// mustParse parses a base-10 scaled integer string, panicking on failure.
// Reserved for compile-time constants such as curve parameters.
func mustParse(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic("fixedpoint: invalid constant " + s)
	}
	return v
}

// MustFromString parses a decimal string ("0.05", "100000") into fixed-point.
func MustFromString(s string) Fixed {
	f, err := FromString(s)
	if err != nil {
		panic(err)
	}
	return f
}

// FromString parses a decimal string with up to 18 fractional digits.
func FromString(s string) (Fixed, error) {
	neg := false
	if len(s) > 0 && s[0] == '-' {
		neg = true
		s = s[1:]
	}
	intPart := s
	fracPart := ""
	for i, c := range s {
		if c == '.' {
			intPart = s[:i]
			fracPart = s[i+1:]
			break
		}
	}
	if intPart == "" {
		intPart = "0"
	}
	if len(fracPart) > Decimals {
		return Fixed{}, errors.New("fixedpoint: too many fractional digits")
	}
	for len(fracPart) < Decimals {
		fracPart += "0"
	}
	combined := intPart + fracPart
	v, ok := new(big.Int).SetString(combined, 10)
	if !ok {
		return Fixed{}, errors.New("fixedpoint: invalid decimal literal " + s)
	}
	if neg {
		v.Neg(v)
	}
	if v.Sign() < 0 {
		return Fixed{}, errors.New("fixedpoint: negative value not representable")
	}
	return Fixed{v: v}, nil
}

// String renders the value as a decimal with up to 18 fractional digits,
// trimming trailing zeros. It exists for logging and diagnostics; callers
// needing exact round-tripping should use Raw instead.
func (f Fixed) String() string {
	if f.v == nil {
		return "0"
	}
	v := new(big.Int).Set(f.v)
	intPart := new(big.Int)
	fracPart := new(big.Int)
	intPart.QuoRem(v, Scale, fracPart)
	fracStr := fracPart.String()
	for len(fracStr) < Decimals {
		fracStr = "0" + fracStr
	}
	for len(fracStr) > 0 && fracStr[len(fracStr)-1] == '0' {
		fracStr = fracStr[:len(fracStr)-1]
	}
	if fracStr == "" {
		return intPart.String()
	}
	return intPart.String() + "." + fracStr
}

func (f Fixed) checkOverflow() (Fixed, error) {
	if f.v.CmpAbs(maxUint256) > 0 {
		return Fixed{}, ErrOverflow
	}
	return f, nil
}

// Sign reports -1, 0 or 1 matching the sign of the stored value.
func (f Fixed) Sign() int {
	if f.v == nil {
		return 0
	}
	return f.v.Sign()
}

// Cmp compares two fixed-point values.
func (f Fixed) Cmp(o Fixed) int { return f.Raw().Cmp(o.Raw()) }

// IsZero reports whether the value is exactly zero.
func (f Fixed) IsZero() bool { return f.Sign() == 0 }

// Add returns f+o, failing with ErrOverflow if the result is unrepresentable.
func (f Fixed) Add(o Fixed) (Fixed, error) {
	return wrap(new(big.Int).Add(f.Raw(), o.Raw())).checkOverflow()
}

// Sub returns f-o. Fails with ErrOverflow (used here as "underflow") if the
// subtrahend exceeds the minuend, since Fixed is unsigned.
func (f Fixed) Sub(o Fixed) (Fixed, error) {
	r := new(big.Int).Sub(f.Raw(), o.Raw())
	if r.Sign() < 0 {
		return Fixed{}, ErrOverflow
	}
	return wrap(r), nil
}

// SatSub returns f-o floored at zero instead of failing. This mirrors the
// "saturate rather than underflow" bookkeeping rule used when releasing
// grown liabilities on position exit.
func (f Fixed) SatSub(o Fixed) Fixed {
	r := new(big.Int).Sub(f.Raw(), o.Raw())
	if r.Sign() < 0 {
		return Zero()
	}
	return wrap(r)
}

// Mul computes floor(f*o / 1e18).
func (f Fixed) Mul(o Fixed) (Fixed, error) {
	product := new(big.Int).Mul(f.Raw(), o.Raw())
	product.Quo(product, Scale)
	return wrap(product).checkOverflow()
}

// Div computes floor(f*1e18 / o), failing with ErrDivByZero when o is zero.
func (f Fixed) Div(o Fixed) (Fixed, error) {
	if o.Sign() == 0 {
		return Fixed{}, ErrDivByZero
	}
	numerator := new(big.Int).Mul(f.Raw(), Scale)
	numerator.Quo(numerator, o.Raw())
	return wrap(numerator).checkOverflow()
}

// DivCeil computes ceil(f*1e18 / o), failing with ErrDivByZero when o is
// zero. The pricing and engine packages do not call it: their trade math
// rounds down (Div, Mul) on both sides of a trade.
func (f Fixed) DivCeil(o Fixed) (Fixed, error) {
	if o.Sign() == 0 {
		return Fixed{}, ErrDivByZero
	}
	numerator := new(big.Int).Mul(f.Raw(), Scale)
	q, r := new(big.Int).QuoRem(numerator, o.Raw(), new(big.Int))
	if r.Sign() != 0 {
		q.Add(q, big.NewInt(1))
	}
	return wrap(q).checkOverflow()
}

// Exp computes e^x for x in [0, ~133.084]. Negative exponents are not
// representable directly (Fixed is unsigned); callers compute 1/Exp(|x|)
// themselves, per the contract.
func (f Fixed) Exp() (Fixed, error) {
	if f.Sign() < 0 {
		return Fixed{}, ErrDomain
	}
	if f.Raw().Cmp(expMax) > 0 {
		return Fixed{}, ErrOverflow
	}
	if f.IsZero() {
		return One(), nil
	}
	bf := new(big.Float).SetPrec(256).SetInt(f.Raw())
	bf.Quo(bf, new(big.Float).SetPrec(256).SetInt(Scale))
	result := bigExp(bf)
	return floatToFixed(result)
}

// Ln computes the natural logarithm for x >= 1.0 (argument scaled to
// Fixed's 1e18 unit). For x < 1.0 callers compute -Ln(1/x), per the
// contract — Fixed cannot represent the negative result directly.
func (f Fixed) Ln() (Fixed, error) {
	if f.Cmp(One()) < 0 {
		return Fixed{}, ErrDomain
	}
	if f.Cmp(One()) == 0 {
		return Zero(), nil
	}
	bf := new(big.Float).SetPrec(256).SetInt(f.Raw())
	bf.Quo(bf, new(big.Float).SetPrec(256).SetInt(Scale))
	result := bigLn(bf)
	return floatToFixed(result)
}

// Pow computes base^exponent = Exp(exponent * Ln(base)) for base >= 1.0.
// For base < 1.0, callers use the continuation formula
// base^e = 1 / (1/base)^e, per the contract, since Fixed only represents
// values derived from a positive base raised by a positive exponent here.
func (f Fixed) Pow(exponent Fixed) (Fixed, error) {
	if f.Cmp(One()) < 0 {
		return Fixed{}, ErrDomain
	}
	if exponent.IsZero() {
		return One(), nil
	}
	lnBase, err := f.Ln()
	if err != nil {
		return Fixed{}, err
	}
	product, err := lnBase.Mul(exponent)
	if err != nil {
		return Fixed{}, err
	}
	return product.Exp()
}

// Inv computes 1/f, used by callers implementing the negative-exponent and
// sub-unity continuation formulas documented on Exp/Pow.
func (f Fixed) Inv() (Fixed, error) {
	return One().Div(f)
}

func floatToFixed(bf *big.Float) (Fixed, error) {
	scaled := new(big.Float).SetPrec(256).Mul(bf, new(big.Float).SetPrec(256).SetInt(Scale))
	i, _ := scaled.Int(nil)
	if i.Sign() < 0 {
		i.SetInt64(0)
	}
	return wrap(i).checkOverflow()
}

// bigExp computes e^x for an arbitrary-precision float x >= 0 using
// argument reduction (x = k*ln2 + r) followed by a Taylor series on the
// small remainder r, which converges in a bounded number of terms.
func bigExp(x *big.Float) *big.Float {
	prec := uint(256)
	ln2 := bigLn2(prec)
	k := new(big.Float).SetPrec(prec).Quo(x, ln2)
	kInt, _ := k.Int(nil)
	kf := new(big.Float).SetPrec(prec).SetInt(kInt)
	r := new(big.Float).SetPrec(prec).Sub(x, new(big.Float).SetPrec(prec).Mul(kf, ln2))

	// Taylor series for e^r, r is now bounded in [0, ln2).
	term := new(big.Float).SetPrec(prec).SetInt64(1)
	sum := new(big.Float).SetPrec(prec).SetInt64(1)
	for n := int64(1); n <= 60; n++ {
		term.Mul(term, r)
		term.Quo(term, new(big.Float).SetPrec(prec).SetInt64(n))
		sum.Add(sum, term)
	}

	// Multiply back by 2^k.
	two := new(big.Float).SetPrec(prec).SetInt64(2)
	pow2 := new(big.Float).SetPrec(prec).SetInt64(1)
	kv := new(big.Int).Set(kInt)
	base := new(big.Float).SetPrec(prec).Set(two)
	for kv.Sign() > 0 {
		if kv.Bit(0) == 1 {
			pow2.Mul(pow2, base)
		}
		base.Mul(base, base)
		kv.Rsh(kv, 1)
	}
	sum.Mul(sum, pow2)
	return sum
}

func bigLn2(prec uint) *big.Float {
	// ln(2) computed once via the same Taylor approach used for bigLn,
	// evaluated at x=2 which the series below handles via its own
	// argument reduction against e, so we hardcode the constant instead
	// to avoid circular bootstrapping.
	v, _, _ := big.ParseFloat("0.69314718055994530941723212145817656807550013436025525412068", 10, prec, big.ToNearestEven)
	return v
}

// bigLn computes ln(x) for x >= 1 via repeated square-rooting to bring the
// argument close to 1 (where the series ln(1+u) converges quickly), undoing
// the reduction by multiplying the result by the same power of two.
func bigLn(x *big.Float) *big.Float {
	prec := uint(256)
	xv := new(big.Float).SetPrec(prec).Set(x)
	k := 0
	one := new(big.Float).SetPrec(prec).SetInt64(1)
	threshold := new(big.Float).SetPrec(prec).SetFloat64(1.0001)
	for xv.Cmp(threshold) > 0 {
		xv.Sqrt(xv)
		k++
	}
	u := new(big.Float).SetPrec(prec).Sub(xv, one)
	term := new(big.Float).SetPrec(prec).Set(u)
	sum := new(big.Float).SetPrec(prec).SetInt64(0)
	neg := false
	for n := int64(1); n <= 200; n++ {
		contrib := new(big.Float).SetPrec(prec).Quo(term, new(big.Float).SetPrec(prec).SetInt64(n))
		if neg {
			sum.Sub(sum, contrib)
		} else {
			sum.Add(sum, contrib)
		}
		neg = !neg
		term.Mul(term, u)
	}
	scale := new(big.Float).SetPrec(prec).SetInt64(1 << uint(k))
	sum.Mul(sum, scale)
	return sum
}
