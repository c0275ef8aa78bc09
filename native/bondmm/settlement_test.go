package bondmm

import (
	"testing"

	"github.com/Schrodinger-Labs/BondMM-A/internal/fixedpoint"
)

func TestRedeemPaysLenderAtMaturity(t *testing.T) {
	eng, ledger, _ := newTestEngine(t)
	pool := mustAddr(t, 0x01)
	lender := mustAddr(t, 0x02)
	ledger.Credit(lender, fixedpoint.FromInt(100000))
	initCtx := CallContext{BlockHeight: 1, Timestamp: 1_700_000_000, Caller: pool}
	if err := eng.Initialize(initCtx, fixedpoint.FromInt(1_000_000), fixedpoint.FromInt(1_000_000)); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	maturityOffset := int64(90 * 86400)
	lendCtx := CallContext{BlockHeight: 2, Timestamp: initCtx.Timestamp + 3600, Caller: lender}
	id, err := eng.Lend(lendCtx, fixedpoint.FromInt(10000), maturityOffset)
	if err != nil {
		t.Fatalf("Lend: %v", err)
	}

	before, err := ledger.BalanceOf(lender)
	if err != nil {
		t.Fatalf("BalanceOf: %v", err)
	}
	redeemCtx := CallContext{BlockHeight: 3, Timestamp: lendCtx.Timestamp + maturityOffset, Caller: lender}
	if err := eng.Redeem(redeemCtx, id); err != nil {
		t.Fatalf("Redeem: %v", err)
	}
	after, err := ledger.BalanceOf(lender)
	if err != nil {
		t.Fatalf("BalanceOf: %v", err)
	}
	if after.Cmp(before) <= 0 {
		t.Fatal("lender balance did not increase after Redeem")
	}
	if eng.GetPosition(id).IsActive {
		t.Fatal("position still active after Redeem")
	}
}

func TestRedeemBeforeMaturityFails(t *testing.T) {
	eng, ledger, _ := newTestEngine(t)
	pool := mustAddr(t, 0x01)
	lender := mustAddr(t, 0x02)
	ledger.Credit(lender, fixedpoint.FromInt(100000))
	initCtx := CallContext{BlockHeight: 1, Timestamp: 1_700_000_000, Caller: pool}
	if err := eng.Initialize(initCtx, fixedpoint.FromInt(1_000_000), fixedpoint.FromInt(1_000_000)); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	lendCtx := CallContext{BlockHeight: 2, Timestamp: initCtx.Timestamp + 3600, Caller: lender}
	id, err := eng.Lend(lendCtx, fixedpoint.FromInt(10000), 90*86400)
	if err != nil {
		t.Fatalf("Lend: %v", err)
	}
	redeemCtx := CallContext{BlockHeight: 3, Timestamp: lendCtx.Timestamp + 86400, Caller: lender}
	if err := eng.Redeem(redeemCtx, id); err != ErrNotMature {
		t.Fatalf("Redeem before maturity = %v, want ErrNotMature", err)
	}
}

func TestRepayReturnsCollateral(t *testing.T) {
	eng, ledger, _ := newTestEngine(t)
	pool := mustAddr(t, 0x01)
	borrower := mustAddr(t, 0x03)
	ledger.Credit(borrower, fixedpoint.FromInt(100000))
	initCtx := CallContext{BlockHeight: 1, Timestamp: 1_700_000_000, Caller: pool}
	if err := eng.Initialize(initCtx, fixedpoint.FromInt(1_000_000), fixedpoint.FromInt(1_000_000)); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	borrowCtx := CallContext{BlockHeight: 2, Timestamp: initCtx.Timestamp + 3600, Caller: borrower}
	id, err := eng.Borrow(borrowCtx, fixedpoint.FromInt(10000), fixedpoint.FromInt(15000), 90*86400)
	if err != nil {
		t.Fatalf("Borrow: %v", err)
	}

	repayCtx := CallContext{BlockHeight: 3, Timestamp: borrowCtx.Timestamp + 45*86400, Caller: borrower}
	before, err := ledger.BalanceOf(borrower)
	if err != nil {
		t.Fatalf("BalanceOf: %v", err)
	}
	if err := eng.Repay(repayCtx, id); err != nil {
		t.Fatalf("Repay: %v", err)
	}
	after, err := ledger.BalanceOf(borrower)
	if err != nil {
		t.Fatalf("BalanceOf: %v", err)
	}
	if after.Cmp(before) <= 0 {
		t.Fatal("borrower balance did not increase from collateral release")
	}
	if eng.GetPosition(id).IsActive {
		t.Fatal("position still active after Repay")
	}
}

func TestRepayWrongOwnerFails(t *testing.T) {
	eng, ledger, _ := newTestEngine(t)
	pool := mustAddr(t, 0x01)
	borrower := mustAddr(t, 0x03)
	other := mustAddr(t, 0x04)
	ledger.Credit(borrower, fixedpoint.FromInt(100000))
	ledger.Credit(other, fixedpoint.FromInt(100000))
	initCtx := CallContext{BlockHeight: 1, Timestamp: 1_700_000_000, Caller: pool}
	if err := eng.Initialize(initCtx, fixedpoint.FromInt(1_000_000), fixedpoint.FromInt(1_000_000)); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	borrowCtx := CallContext{BlockHeight: 2, Timestamp: initCtx.Timestamp + 3600, Caller: borrower}
	id, err := eng.Borrow(borrowCtx, fixedpoint.FromInt(10000), fixedpoint.FromInt(15000), 90*86400)
	if err != nil {
		t.Fatalf("Borrow: %v", err)
	}
	repayCtx := CallContext{BlockHeight: 3, Timestamp: borrowCtx.Timestamp + 45*86400, Caller: other}
	if err := eng.Repay(repayCtx, id); err != ErrNotOwner {
		t.Fatalf("Repay by non-owner = %v, want ErrNotOwner", err)
	}
}

func TestLiquidateRequiresGraceExpiry(t *testing.T) {
	eng, ledger, _ := newTestEngine(t)
	pool := mustAddr(t, 0x01)
	borrower := mustAddr(t, 0x03)
	liquidator := mustAddr(t, 0x05)
	ledger.Credit(borrower, fixedpoint.FromInt(100000))
	ledger.Credit(liquidator, fixedpoint.FromInt(100000))
	initCtx := CallContext{BlockHeight: 1, Timestamp: 1_700_000_000, Caller: pool}
	if err := eng.Initialize(initCtx, fixedpoint.FromInt(1_000_000), fixedpoint.FromInt(1_000_000)); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	borrowCtx := CallContext{BlockHeight: 2, Timestamp: initCtx.Timestamp + 3600, Caller: borrower}
	id, err := eng.Borrow(borrowCtx, fixedpoint.FromInt(10000), fixedpoint.FromInt(15000), 90*86400)
	if err != nil {
		t.Fatalf("Borrow: %v", err)
	}
	maturity := eng.GetPosition(id).Maturity

	tooEarly := CallContext{BlockHeight: 3, Timestamp: maturity + 3600, Caller: liquidator}
	if err := eng.Liquidate(tooEarly, id); err != ErrGraceNotExpired {
		t.Fatalf("Liquidate before grace expiry = %v, want ErrGraceNotExpired", err)
	}

	afterGrace := CallContext{BlockHeight: 4, Timestamp: maturity + eng.GetParams().GracePeriod + 1, Caller: liquidator}
	if err := eng.Liquidate(afterGrace, id); err != nil {
		t.Fatalf("Liquidate after grace expiry: %v", err)
	}
	if eng.GetPosition(id).IsActive {
		t.Fatal("position still active after Liquidate")
	}

	second := CallContext{BlockHeight: 5, Timestamp: afterGrace.Timestamp + 1, Caller: liquidator}
	if err := eng.Liquidate(second, id); err != ErrNotActive {
		t.Fatalf("second Liquidate = %v, want ErrNotActive", err)
	}
}
