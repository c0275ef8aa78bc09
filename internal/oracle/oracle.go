// Package oracle wraps an external anchor-rate source the same way the
// swap module's PriceOracle/TWAPOracle pair wraps external rate feeds:
// a thin adapter that adds a fail-closed accessor for origination paths and
// a fail-open accessor (with a bounded fallback) for exit paths that must
// survive a feed outage.
package oracle

import (
	"errors"

	"github.com/Schrodinger-Labs/BondMM-A/internal/fixedpoint"
)

// ErrStale is returned by CurrentRate when the underlying feed is stale.
// Origination paths (lend, borrow) must fail closed on this error.
var ErrStale = errors.New("oracle: anchor rate feed is stale")

// ErrFallbackRateBounds is returned when an administrative fallback rate
// update exceeds the permitted ceiling.
var ErrFallbackRateBounds = errors.New("oracle: fallback rate exceeds maximum")

// MaxFallbackRate bounds the administratively configured fallback rate.
var MaxFallbackRate = fixedpoint.MustFromString("0.20")

// RateSource is the external anchor-rate publisher collaborator: a TWAP
// source exposing the current rate and its own staleness verdict.
type RateSource interface {
	GetRate() (fixedpoint.Fixed, error)
	IsStale() (bool, error)
}

// FallbackObserver is notified whenever SafeRate falls back to the
// configured constant, so callers can emit a FallbackRateUsed event.
type FallbackObserver func(rate fixedpoint.Fixed)

// Adapter consumes a RateSource and exposes the two accessors PoolCore
// needs: a fail-closed reading for origination, and a fail-open reading
// (bounded fallback) for settlement paths that must never be blocked by an
// oracle outage.
type Adapter struct {
	source       RateSource
	fallbackRate fixedpoint.Fixed
	onFallback   FallbackObserver
}

// New constructs an adapter around the given rate source with an initial
// fallback rate. The fallback must already satisfy the administrative bound;
// use SetFallbackRate to change it later under the same validation.
func New(source RateSource, fallbackRate fixedpoint.Fixed) (*Adapter, error) {
	if source == nil {
		return nil, errors.New("oracle: rate source is required")
	}
	if fallbackRate.Cmp(MaxFallbackRate) > 0 {
		return nil, ErrFallbackRateBounds
	}
	return &Adapter{source: source, fallbackRate: fallbackRate}, nil
}

// SetFallbackObserver wires a callback invoked every time SafeRate falls
// back to the configured constant.
func (a *Adapter) SetFallbackObserver(fn FallbackObserver) {
	if a == nil {
		return
	}
	a.onFallback = fn
}

// SetFallbackRate updates the administratively configured fallback,
// enforcing the 20% ceiling.
func (a *Adapter) SetFallbackRate(rate fixedpoint.Fixed) error {
	if rate.Sign() < 0 || rate.Cmp(MaxFallbackRate) > 0 {
		return ErrFallbackRateBounds
	}
	a.fallbackRate = rate
	return nil
}

// FallbackRate returns the currently configured fallback rate.
func (a *Adapter) FallbackRate() fixedpoint.Fixed { return a.fallbackRate }

// CurrentRate returns the fresh anchor rate, failing with ErrStale when the
// feed is stale. Used exclusively by origination paths (lend, borrow),
// which must fail closed rather than price off of stale data.
func (a *Adapter) CurrentRate() (fixedpoint.Fixed, error) {
	stale, err := a.source.IsStale()
	if err != nil {
		return fixedpoint.Fixed{}, err
	}
	if stale {
		return fixedpoint.Fixed{}, ErrStale
	}
	return a.source.GetRate()
}

// SafeRate returns the fresh anchor rate when available, or the configured
// fallback constant when the feed is stale. Used by settlement paths
// (repay, liquidate) and liability accrual, which must never be blocked by
// an oracle outage.
func (a *Adapter) SafeRate() (fixedpoint.Fixed, error) {
	stale, err := a.source.IsStale()
	if err != nil {
		return fixedpoint.Fixed{}, err
	}
	if !stale {
		return a.source.GetRate()
	}
	if a.onFallback != nil {
		a.onFallback(a.fallbackRate)
	}
	return a.fallbackRate, nil
}

// IsStale reports the underlying feed's own staleness verdict.
func (a *Adapter) IsStale() (bool, error) {
	return a.source.IsStale()
}
