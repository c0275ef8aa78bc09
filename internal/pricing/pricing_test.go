package pricing

import (
	"math/big"
	"testing"

	"github.com/Schrodinger-Labs/BondMM-A/internal/fixedpoint"
)

var ninetyDays = fixedpoint.FromInt(90 * 86400)

func TestParRedemptionAtZeroTime(t *testing.T) {
	r := fixedpoint.MustFromString("0.08")
	p, err := Price(fixedpoint.Zero(), r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Cmp(fixedpoint.One()) != 0 {
		t.Fatalf("expected p(0,r) == 1.0 exactly, got %s", p.Raw())
	}
}

func TestBalancedRateEqualsAnchor(t *testing.T) {
	rStar := fixedpoint.MustFromString("0.05")
	y := fixedpoint.FromInt(100_000)
	r, err := Rate(y, y, rStar)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if relDiff(r.Raw(), rStar.Raw()) > 1e-12 {
		t.Fatalf("expected r == rStar when X == y, got %s want %s", r.Raw(), rStar.Raw())
	}
}

func TestRateMonotonicInX(t *testing.T) {
	rStar := fixedpoint.MustFromString("0.05")
	y := fixedpoint.FromInt(100_000)
	low, err := Rate(fixedpoint.FromInt(90_000), y, rStar)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	high, err := Rate(fixedpoint.FromInt(110_000), y, rStar)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if high.Cmp(low) <= 0 {
		t.Fatalf("expected rate to rise with X: low=%s high=%s", low.Raw(), high.Raw())
	}
}

func TestAlphaMonotonicInTime(t *testing.T) {
	short, err := Alpha(ninetyDays)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	longT := fixedpoint.FromInt(365 * 86400)
	long, err := Alpha(longT)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if long.Cmp(short) >= 0 {
		t.Fatalf("expected alpha to fall as t grows: short=%s long=%s", short.Raw(), long.Raw())
	}
}

func TestPriceMonotonicInRateAndTime(t *testing.T) {
	lowR := fixedpoint.MustFromString("0.01")
	highR := fixedpoint.MustFromString("0.10")
	pLowR, err := Price(ninetyDays, lowR)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	pHighR, err := Price(ninetyDays, highR)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pHighR.Cmp(pLowR) >= 0 {
		t.Fatalf("expected price to fall as rate rises")
	}

	shortT := fixedpoint.FromInt(3600 * 2)
	pShort, err := Price(shortT, lowR)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	pLong, err := Price(ninetyDays, lowR)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pLong.Cmp(pShort) >= 0 {
		t.Fatalf("expected price to fall as time grows")
	}
}

func TestTimeTooSmallRejected(t *testing.T) {
	tooSmall := fixedpoint.FromInt(1800)
	rStar := fixedpoint.MustFromString("0.05")
	if _, err := Alpha(tooSmall); err != ErrTimeTooSmall {
		t.Fatalf("expected ErrTimeTooSmall, got %v", err)
	}
	if _, err := K(tooSmall, rStar); err != ErrTimeTooSmall {
		t.Fatalf("expected ErrTimeTooSmall, got %v", err)
	}
}

func TestRateRejectsZeroReserve(t *testing.T) {
	rStar := fixedpoint.MustFromString("0.05")
	if _, err := Rate(fixedpoint.Zero(), fixedpoint.FromInt(1), rStar); err != ErrInvalidTrade {
		t.Fatalf("expected ErrInvalidTrade for X=0, got %v", err)
	}
	if _, err := Rate(fixedpoint.FromInt(1), fixedpoint.Zero(), rStar); err != ErrInvalidTrade {
		t.Fatalf("expected ErrInvalidTrade for y=0, got %v", err)
	}
}

func TestInvariantPreservedAcrossSmallTrade(t *testing.T) {
	rStar := fixedpoint.MustFromString("0.05")
	X := fixedpoint.FromInt(100_000)
	y := fixedpoint.FromInt(100_000)

	before, err := Invariant(X, y, ninetyDays, rStar)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	deltaX, err := DeltaX(fixedpoint.FromInt(1_000), X, y, ninetyDays, rStar, Increase)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	newX, err := X.Sub(deltaX)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	newY, err := y.Add(fixedpoint.FromInt(1_000))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	after, err := Invariant(newX, newY, ninetyDays, rStar)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if relDiff(before.Raw(), after.Raw()) > 1e-3 {
		t.Fatalf("invariant drifted more than 0.1%%: before=%s after=%s", before.Raw(), after.Raw())
	}
}

func TestDeltaYRejectsBoundaryTrade(t *testing.T) {
	rStar := fixedpoint.MustFromString("0.05")
	X := fixedpoint.FromInt(100)
	y := fixedpoint.FromInt(100)
	// Withdrawing the entire bond reserve drives x' to zero, which must fail.
	if _, err := DeltaY(X, X, y, ninetyDays, rStar, Decrease); err != ErrInvalidTrade {
		t.Fatalf("expected ErrInvalidTrade at the boundary, got %v", err)
	}
}

func relDiff(a, b *big.Int) float64 {
	if b.Sign() == 0 {
		return 0
	}
	diff := new(big.Int).Sub(a, b)
	diff.Abs(diff)
	num := new(big.Float).SetInt(diff)
	den := new(big.Float).SetInt(b)
	ratio := new(big.Float).Quo(num, den)
	f, _ := ratio.Float64()
	return f
}
