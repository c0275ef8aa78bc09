package bondmm_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Schrodinger-Labs/BondMM-A/internal/addr"
	"github.com/Schrodinger-Labs/BondMM-A/internal/fixedpoint"
	"github.com/Schrodinger-Labs/BondMM-A/internal/oracle"
	"github.com/Schrodinger-Labs/BondMM-A/native/bondmm"
)

type fixedRateSource struct {
	rate fixedpoint.Fixed
}

func (s fixedRateSource) GetRate() (fixedpoint.Fixed, error) { return s.rate, nil }
func (s fixedRateSource) IsStale() (bool, error)             { return false, nil }

func account(t *testing.T, b byte) addr.Address {
	t.Helper()
	buf := make([]byte, 20)
	buf[19] = b
	a, err := addr.New(addr.CashPrefix, buf)
	require.NoError(t, err)
	return a
}

// TestFullLifecycleScenario walks a pool through the sequence described for
// this curve: a balanced-reserve anchor check, a 90-day lend, a
// collateralized 90-day borrow, a redemption at maturity, an early repay,
// and a liquidation once the grace period has lapsed. A second liquidation
// attempt against the same position must fail.
func TestFullLifecycleScenario(t *testing.T) {
	pool := account(t, 0x01)
	ledger := bondmm.NewMemoryLedger(pool)
	source := fixedRateSource{rate: fixedpoint.MustFromString("0.05")}
	adapter, err := oracle.New(source, fixedpoint.MustFromString("0.08"))
	require.NoError(t, err)
	store := bondmm.NewPositionStore()
	events := &bondmm.RecordingSink{}
	engine := bondmm.NewEngine(pool, ledger, adapter, store, events, bondmm.DefaultParams())

	const day = int64(86400)
	genesis := int64(1_700_000_000)
	require.NoError(t, engine.Initialize(bondmm.CallContext{
		BlockHeight: 1, Timestamp: genesis, Caller: pool,
	}, fixedpoint.FromInt(1_000_000), fixedpoint.FromInt(1_000_000)))

	anchor, err := engine.AnchorRate()
	require.NoError(t, err)
	curveRate, err := engine.CurrentRate()
	require.NoError(t, err)
	require.Equal(t, anchor.Raw(), curveRate.Raw(), "balanced reserves must price at the anchor rate")

	lender := account(t, 0x02)
	ledger.Credit(lender, fixedpoint.FromInt(100_000))
	lendID, err := engine.Lend(bondmm.CallContext{
		BlockHeight: 2, Timestamp: genesis + 3600, Caller: lender,
	}, fixedpoint.FromInt(10_000), 90*day)
	require.NoError(t, err)
	require.True(t, engine.GetPosition(lendID).IsActive)

	borrower := account(t, 0x03)
	ledger.Credit(borrower, fixedpoint.FromInt(100_000))
	borrowID, err := engine.Borrow(bondmm.CallContext{
		BlockHeight: 3, Timestamp: genesis + 7200, Caller: borrower,
	}, fixedpoint.FromInt(10_000), fixedpoint.FromInt(15_000), 90*day)
	require.NoError(t, err)
	borrowPos := engine.GetPosition(borrowID)
	require.True(t, borrowPos.IsActive)

	lendMaturity := engine.GetPosition(lendID).Maturity
	require.NoError(t, engine.Redeem(bondmm.CallContext{
		BlockHeight: 4, Timestamp: lendMaturity, Caller: lender,
	}, lendID))
	require.False(t, engine.GetPosition(lendID).IsActive)

	require.NoError(t, engine.Repay(bondmm.CallContext{
		BlockHeight: 5, Timestamp: genesis + 7200 + 45*day, Caller: borrower,
	}, borrowID))
	require.False(t, engine.GetPosition(borrowID).IsActive)

	// A second borrow to exercise the liquidation path once the first is closed.
	liquidatable, err := engine.Borrow(bondmm.CallContext{
		BlockHeight: 6, Timestamp: genesis + 10800, Caller: borrower,
	}, fixedpoint.FromInt(5_000), fixedpoint.FromInt(8_000), 30*day)
	require.NoError(t, err)
	maturity := engine.GetPosition(liquidatable).Maturity
	grace := engine.GetParams().GracePeriod

	liquidator := account(t, 0x04)
	ledger.Credit(liquidator, fixedpoint.FromInt(100_000))
	require.NoError(t, engine.Liquidate(bondmm.CallContext{
		BlockHeight: 7, Timestamp: maturity + grace + 1, Caller: liquidator,
	}, liquidatable))
	require.False(t, engine.GetPosition(liquidatable).IsActive)

	err = engine.Liquidate(bondmm.CallContext{
		BlockHeight: 8, Timestamp: maturity + grace + 2, Caller: liquidator,
	}, liquidatable)
	require.ErrorIs(t, err, bondmm.ErrNotActive)

	require.NoError(t, engine.CheckSolvency())
	require.NotEmpty(t, events.Events)
}
