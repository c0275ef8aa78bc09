package bondmm

import (
	"time"

	"github.com/Schrodinger-Labs/BondMM-A/internal/fixedpoint"
	"github.com/Schrodinger-Labs/BondMM-A/internal/pricing"
)

// grownValue compounds initialPV forward over elapsedSeconds at rate,
// implementing the same continuous-growth formula accrue uses for
// liabilities: value*e^{rate*elapsed/Year}. Settlement paths use SafeRate
// rather than CurrentRate because an exit must be able to complete even
// against a stale oracle; the bounded fallback exists exactly for this.
func grownValue(initialPV, rate fixedpoint.Fixed, elapsedSeconds int64) (fixedpoint.Fixed, error) {
	if elapsedSeconds <= 0 {
		return initialPV, nil
	}
	elapsed := fixedpoint.FromInt(elapsedSeconds)
	exponent, err := rate.Mul(elapsed)
	if err != nil {
		return fixedpoint.Fixed{}, err
	}
	exponent, err = exponent.Div(pricing.SecondsPerYear)
	if err != nil {
		return fixedpoint.Fixed{}, err
	}
	growth, err := exponent.Exp()
	if err != nil {
		return fixedpoint.Fixed{}, err
	}
	return initialPV.Mul(growth)
}

// releaseGrowth computes the grown-liability figure a position contributes
// to L at exit, using avg_r = r(X, y, safe_rate()) as its average rate over
// the position's elapsed life, and subtracts it from liabilities, saturating
// at zero rather than underflowing when rounding drives the release slightly
// past what accrual actually added.
func (e *Engine) releaseGrowth(pos Position, asOf int64) (fixedpoint.Fixed, error) {
	anchor, err := e.oracle.SafeRate()
	if err != nil {
		return fixedpoint.Fixed{}, err
	}
	avgRate, err := pricing.Rate(e.x, e.y, anchor)
	if err != nil {
		return fixedpoint.Fixed{}, err
	}
	elapsed := asOf - pos.CreatedAt
	grown, err := grownValue(pos.InitialPV, avgRate, elapsed)
	if err != nil {
		return fixedpoint.Fixed{}, err
	}
	e.liabilities = e.liabilities.SatSub(grown)
	return grown, nil
}

// Redeem closes a matured lend position, paying the lender its face value
// at par. Exits never consult the origination pause switch; they are never
// pausable.
func (e *Engine) Redeem(ctx CallContext, positionID uint64) (err error) {
	start := time.Now()
	defer func() { e.observe("redeem", start, err) }()

	release, err := e.beginMutation(ctx, nil)
	if err != nil {
		return err
	}
	defer release()

	pos := e.store.Get(positionID)
	if !pos.IsActive {
		return ErrNotActive
	}
	if pos.IsBorrow {
		return ErrWrongPositionKind
	}
	if !pos.Owner.Equal(ctx.Caller) {
		return ErrNotOwner
	}
	if ctx.Timestamp < pos.Maturity {
		return ErrNotMature
	}

	if e.y.Cmp(pos.FaceValue) < 0 {
		return ErrInsufficientLiquidity
	}
	newY, err := e.y.Sub(pos.FaceValue)
	if err != nil {
		return err
	}
	newX, err := e.x.Add(pos.FaceValue)
	if err != nil {
		return err
	}
	if err := e.ledger.Transfer(pos.Owner, pos.FaceValue); err != nil {
		return ErrLedgerTransferFailed
	}
	e.y, e.x = newY, newX
	e.store.MarkInactive(positionID)
	e.events.Emit(Event{Kind: EventRedeem, PositionID: positionID, Owner: ctx.Caller, Amount: pos.FaceValue})
	return nil
}

// Repay closes a borrow position, either at par (at or after maturity) or
// at the curve's current discounted price (before maturity), and returns
// the full posted collateral. The matching share of net liabilities is
// released using the grown-liability formula, not the original initial_pv,
// so the sum of releases tracks the pool-level accrual it mirrors.
func (e *Engine) Repay(ctx CallContext, positionID uint64) (err error) {
	start := time.Now()
	defer func() { e.observe("repay", start, err) }()

	release, err := e.beginMutation(ctx, nil)
	if err != nil {
		return err
	}
	defer release()

	pos := e.store.Get(positionID)
	if !pos.IsActive {
		return ErrNotActive
	}
	if !pos.IsBorrow {
		return ErrWrongPositionKind
	}
	if !pos.Owner.Equal(ctx.Caller) {
		return ErrNotOwner
	}

	var repayAmount, currentPV fixedpoint.Fixed
	if ctx.Timestamp >= pos.Maturity {
		repayAmount = pos.FaceValue
		currentPV = pos.FaceValue
	} else {
		rate, err := e.oracle.SafeRate()
		if err != nil {
			return err
		}
		currentRate, err := pricing.Rate(e.x, e.y, rate)
		if err != nil {
			return err
		}
		t := fixedpoint.FromInt(pos.Maturity - ctx.Timestamp)
		price, err := pricing.Price(t, currentRate)
		if err != nil {
			return err
		}
		repayAmount, err = pos.FaceValue.Mul(price)
		if err != nil {
			return err
		}
		currentPV = repayAmount
	}

	if _, err := e.releaseGrowth(pos, ctx.Timestamp); err != nil {
		return err
	}
	if err := e.ledger.TransferFrom(ctx.Caller, e.pool, repayAmount); err != nil {
		return ErrLedgerTransferFailed
	}
	if err := e.ledger.Transfer(pos.Owner, pos.Collateral); err != nil {
		return ErrLedgerTransferFailed
	}
	newY, err := e.y.Add(repayAmount)
	if err != nil {
		return err
	}
	newX, err := e.x.Sub(currentPV)
	if err != nil {
		return err
	}
	e.y, e.x = newY, newX
	if err := e.checkSolvency(); err != nil {
		return err
	}
	e.store.MarkInactive(positionID)
	e.events.Emit(Event{Kind: EventRepay, PositionID: positionID, Owner: ctx.Caller, Amount: repayAmount})
	return nil
}

// Liquidate closes an overdue, unrepaid borrow position once maturity plus
// the configured grace period has elapsed. It is permissionless: any
// caller may invoke it. The pool seizes the full posted collateral into
// cash; there is no refund to the borrower and no payment from the
// liquidator, matching the grace-period backstop's role as a pool-capital
// recovery mechanism rather than a liquidator-incentive auction. The
// liquidation pause switch is independent from origination so governance
// can halt new positions without also freezing the mechanism that protects
// the pool from positions already open. A second call against the same
// position fails ErrNotActive, making liquidation idempotent from the
// caller's point of view.
func (e *Engine) Liquidate(ctx CallContext, positionID uint64) (err error) {
	start := time.Now()
	defer func() { e.observe("liquidate", start, err) }()

	release, err := e.beginMutation(ctx, &e.liquidationGuard)
	if err != nil {
		return err
	}
	defer release()

	pos := e.store.Get(positionID)
	if !pos.IsActive {
		return ErrNotActive
	}
	if !pos.IsBorrow {
		return ErrWrongPositionKind
	}
	if ctx.Timestamp <= pos.Maturity+e.params.GracePeriod {
		return ErrGraceNotExpired
	}

	penalty, err := e.params.LiquidationPenalty.Mul(pos.FaceValue)
	if err != nil {
		return err
	}

	if _, err := e.releaseGrowth(pos, ctx.Timestamp); err != nil {
		return err
	}
	newY, err := e.y.Add(pos.Collateral)
	if err != nil {
		return err
	}
	newX, err := e.x.Sub(pos.FaceValue)
	if err != nil {
		return err
	}
	e.y, e.x = newY, newX
	e.store.MarkInactive(positionID)
	e.events.Emit(Event{Kind: EventLiquidated, PositionID: positionID, Owner: ctx.Caller, Amount: penalty})
	return nil
}
