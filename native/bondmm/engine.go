package bondmm

import (
	"time"

	"github.com/Schrodinger-Labs/BondMM-A/internal/addr"
	"github.com/Schrodinger-Labs/BondMM-A/internal/fixedpoint"
	"github.com/Schrodinger-Labs/BondMM-A/internal/guard"
	"github.com/Schrodinger-Labs/BondMM-A/internal/oracle"
	"github.com/Schrodinger-Labs/BondMM-A/internal/pricing"
	"github.com/Schrodinger-Labs/BondMM-A/observability"
)

// CallContext carries the per-call host facts PoolCore needs but does not
// own: which block the call lands in, its timestamp, and the caller's
// address. The host is responsible for supplying consistent values; PoolCore
// never reads a clock or chain tip itself, the same separation the lending
// engine drew between itself and the block context it was invoked with.
type CallContext struct {
	BlockHeight int64
	Timestamp   int64
	Caller      addr.Address
}

// Engine is PoolCore: the single piece of mutable state behind BondMM-A. It
// holds the pool's cash and bond reserves, the accrued lender liability, and
// every position ever opened, wired to a Ledger, an oracle Adapter, and an
// EventSink the way the lending Engine wired itself to an account store, an
// interest model, and a risk engine. One Engine serves one pool; hosting
// several pools means constructing several Engines.
type Engine struct {
	pool   addr.Address
	ledger Ledger
	oracle *oracle.Adapter
	store  *PositionStore
	events EventSink
	params Params

	originationGuard guard.Switch
	liquidationGuard guard.Switch
	reentrancy       guard.Reentrancy
	lastMutationAt   map[string]int64

	initialized bool
	y           fixedpoint.Fixed // pool cash
	x           fixedpoint.Fixed // pool pv-bond reserve
	liabilities fixedpoint.Fixed // accrued net liability owed to lenders
	y0          fixedpoint.Fixed // cash at initialization, the solvency anchor
	tLast       int64            // unix seconds of the last accrual
}

// NewEngine wires an Engine against its collaborators. The pool starts
// uninitialized; Initialize must run before any other mutating call.
func NewEngine(pool addr.Address, ledger Ledger, oracleAdapter *oracle.Adapter, store *PositionStore, events EventSink, params Params) *Engine {
	if events == nil {
		events = NoopSink{}
	}
	return &Engine{
		pool:           pool,
		ledger:         ledger,
		oracle:         oracleAdapter,
		store:          store,
		events:         events,
		params:         params,
		lastMutationAt: make(map[string]int64),
	}
}

// SetEventSink replaces the observer wired at construction.
func (e *Engine) SetEventSink(sink EventSink) {
	if sink == nil {
		sink = NoopSink{}
	}
	e.events = sink
}

// SetOracle replaces the rate oracle wired at construction, used by
// governance to roll over to a new price feed.
func (e *Engine) SetOracle(ctx CallContext, o *oracle.Adapter) {
	e.oracle = o
	e.events.Emit(Event{Kind: EventOracleUpdated, Owner: ctx.Caller})
}

// observe records a completed mutating operation's outcome and latency
// against the shared pool metrics registry, and its sentinel error when it
// failed.
func (e *Engine) observe(operation string, start time.Time, err error) {
	metrics := observability.PoolMetrics()
	outcome := "ok"
	if err != nil {
		outcome = "error"
		metrics.ObserveFailure(operation, err.Error())
	}
	metrics.ObserveOperation(operation, outcome, time.Since(start).Seconds())
}

// Initialize seeds the pool with its starting cash and bond reserves. It may
// run exactly once.
func (e *Engine) Initialize(ctx CallContext, initialCash, initialBonds fixedpoint.Fixed) (err error) {
	start := time.Now()
	defer func() { e.observe("initialize", start, err) }()

	if e.initialized {
		return ErrAlreadyInitialized
	}
	if initialCash.Sign() <= 0 || initialBonds.Sign() <= 0 {
		return ErrInvalidAmount
	}
	e.y = initialCash
	e.x = initialBonds
	e.liabilities = fixedpoint.Zero()
	e.y0 = initialCash
	e.tLast = ctx.Timestamp
	e.initialized = true
	e.events.Emit(Event{Kind: EventInitialized, Owner: ctx.Caller, Amount: initialCash})
	return nil
}

// beginMutation runs the pre-phase every mutating entry point shares: it
// takes the reentrancy lock, checks initialization and the relevant pause
// switch, rejects a second mutation by the same caller within the same
// block, and accrues liabilities up to ctx.Timestamp. The returned func must
// be deferred to release the reentrancy lock.
func (e *Engine) beginMutation(ctx CallContext, gate *guard.Switch) (func(), error) {
	if err := e.reentrancy.Enter(); err != nil {
		return nil, err
	}
	if !e.initialized {
		e.reentrancy.Exit()
		return nil, ErrNotInitialized
	}
	if gate != nil {
		if err := gate.Check(); err != nil {
			e.reentrancy.Exit()
			return nil, ErrPaused
		}
	}
	key := ctx.Caller.String()
	if last, ok := e.lastMutationAt[key]; ok && last == ctx.BlockHeight {
		e.reentrancy.Exit()
		return nil, ErrFlashLoanDetected
	}
	if err := e.accrue(ctx); err != nil {
		e.reentrancy.Exit()
		return nil, err
	}
	e.lastMutationAt[key] = ctx.BlockHeight
	return e.reentrancy.Exit, nil
}

// accrue grows liabilities continuously at the pool's curve-implied rate:
// L <- L*e^{r*dt} where r = r(X, y, safe_rate()). Three branches: no time has
// passed, or L is already zero, in which case only t_last advances; the
// oracle reading is stale, in which case accrual is a no-op other than
// advancing t_last and emitting FallbackRateUsed — this is deliberate, it
// avoids bricking exits when the feed is down, rather than growing L against
// an administratively guessed rate; and the normal case, where the fresh
// reading is run through the curve before being used as the exponent.
func (e *Engine) accrue(ctx CallContext) error {
	dt := ctx.Timestamp - e.tLast
	if dt <= 0 {
		return nil
	}
	if e.liabilities.IsZero() {
		e.tLast = ctx.Timestamp
		return nil
	}
	stale, err := e.oracle.IsStale()
	if err != nil {
		return err
	}
	if stale {
		e.events.Emit(Event{Kind: EventFallbackRateUsed, Detail: "accrue"})
		e.tLast = ctx.Timestamp
		return nil
	}
	anchor, err := e.oracle.SafeRate()
	if err != nil {
		return err
	}
	rate, err := pricing.Rate(e.x, e.y, anchor)
	if err != nil {
		return err
	}
	elapsed := fixedpoint.FromInt(dt)
	exponent, err := rate.Mul(elapsed)
	if err != nil {
		return err
	}
	exponent, err = exponent.Div(pricing.SecondsPerYear)
	if err != nil {
		return err
	}
	growth, err := exponent.Exp()
	if err != nil {
		return err
	}
	grown, err := e.liabilities.Mul(growth)
	if err != nil {
		return err
	}
	e.liabilities = grown
	e.tLast = ctx.Timestamp
	return nil
}

// checkSolvency enforces y + L >= theta*y0, the pool's solvency floor. It
// must run after every state mutation that can move y or L.
func (e *Engine) checkSolvency() error {
	covered, err := e.y.Add(e.liabilities)
	if err != nil {
		return ErrInsolvent
	}
	floor, err := e.params.SolvencyThreshold.Mul(e.y0)
	if err != nil {
		return err
	}
	if covered.Cmp(floor) < 0 {
		return ErrInsolvent
	}
	return nil
}

// Lend opens a lend position: the caller pays cash now for a claim on
// faceValue at maturity. The claim's present value is struck against the
// curve at the oracle's current anchor rate, so a larger lend against a thin
// bond reserve pays a worse price, same as any AMM trade against a
// depleting side. CurrentRate is used rather than SafeRate: origination
// fails closed on a stale oracle instead of pricing a new position off a
// possibly unreliable fallback.
func (e *Engine) Lend(ctx CallContext, amount fixedpoint.Fixed, maturityOffset int64) (id uint64, err error) {
	start := time.Now()
	defer func() { e.observe("lend", start, err) }()

	release, err := e.beginMutation(ctx, &e.originationGuard)
	if err != nil {
		return 0, err
	}
	defer release()

	if amount.Sign() <= 0 {
		return 0, ErrInvalidAmount
	}
	if err := e.params.ValidateMaturity(maturityOffset); err != nil {
		return 0, err
	}
	rStar, err := e.oracle.CurrentRate()
	if err != nil {
		return 0, ErrOracleStale
	}
	t := fixedpoint.FromInt(maturityOffset)
	faceValue, err := pricing.DeltaX(amount, e.x, e.y, t, rStar, pricing.Increase)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	currentRate, err := pricing.Rate(e.x, e.y, rStar)
	if err != nil {
		return 0, err
	}
	price, err := pricing.Price(t, currentRate)
	if err != nil {
		return 0, err
	}
	deltaPV, err := faceValue.Mul(price)
	if err != nil {
		return 0, err
	}
	if err := e.ledger.TransferFrom(ctx.Caller, e.pool, amount); err != nil {
		return 0, ErrLedgerTransferFailed
	}
	newY, err := e.y.Add(amount)
	if err != nil {
		return 0, err
	}
	newX, err := e.x.Sub(deltaPV)
	if err != nil {
		return 0, err
	}
	e.y, e.x = newY, newX
	if err := e.checkSolvency(); err != nil {
		return 0, err
	}

	id = e.store.Allocate(Position{
		Owner:     ctx.Caller,
		FaceValue: faceValue,
		Maturity:  ctx.Timestamp + maturityOffset,
		InitialPV: deltaPV,
		CreatedAt: ctx.Timestamp,
		IsBorrow:  false,
		IsActive:  true,
	})
	e.events.Emit(Event{Kind: EventLend, PositionID: id, Owner: ctx.Caller, Amount: amount})
	return id, nil
}

// Borrow opens a borrow position: the caller posts collateral and receives
// cash now against a promise to repay faceValue at maturity. Required
// collateral is CollateralRatio times the borrowed cash amount.
func (e *Engine) Borrow(ctx CallContext, amount, collateral fixedpoint.Fixed, maturityOffset int64) (id uint64, err error) {
	start := time.Now()
	defer func() { e.observe("borrow", start, err) }()

	release, err := e.beginMutation(ctx, &e.originationGuard)
	if err != nil {
		return 0, err
	}
	defer release()

	if amount.Sign() <= 0 || collateral.Sign() <= 0 {
		return 0, ErrInvalidAmount
	}
	required, err := e.params.CollateralRatio.Mul(amount)
	if err != nil {
		return 0, err
	}
	if collateral.Cmp(required) < 0 {
		return 0, ErrInsufficientCollateral
	}
	if err := e.params.ValidateMaturity(maturityOffset); err != nil {
		return 0, err
	}
	if e.y.Cmp(amount) < 0 {
		return 0, ErrInsufficientLiquidity
	}
	rStar, err := e.oracle.CurrentRate()
	if err != nil {
		return 0, ErrOracleStale
	}
	t := fixedpoint.FromInt(maturityOffset)
	faceValue, err := pricing.DeltaX(amount, e.x, e.y, t, rStar, pricing.Decrease)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	currentRate, err := pricing.Rate(e.x, e.y, rStar)
	if err != nil {
		return 0, err
	}
	price, err := pricing.Price(t, currentRate)
	if err != nil {
		return 0, err
	}
	deltaPV, err := faceValue.Mul(price)
	if err != nil {
		return 0, err
	}
	if err := e.ledger.TransferFrom(ctx.Caller, e.pool, collateral); err != nil {
		return 0, ErrLedgerTransferFailed
	}
	if err := e.ledger.Transfer(ctx.Caller, amount); err != nil {
		return 0, ErrLedgerTransferFailed
	}
	newY, err := e.y.Sub(amount)
	if err != nil {
		return 0, err
	}
	newX, err := e.x.Add(deltaPV)
	if err != nil {
		return 0, err
	}
	newL, err := e.liabilities.Add(deltaPV)
	if err != nil {
		return 0, err
	}
	e.y, e.x, e.liabilities = newY, newX, newL
	if err := e.checkSolvency(); err != nil {
		return 0, err
	}

	id = e.store.Allocate(Position{
		Owner:      ctx.Caller,
		FaceValue:  faceValue,
		Maturity:   ctx.Timestamp + maturityOffset,
		Collateral: collateral,
		InitialPV:  deltaPV,
		CreatedAt:  ctx.Timestamp,
		IsBorrow:   true,
		IsActive:   true,
	})
	e.events.Emit(Event{Kind: EventBorrow, PositionID: id, Owner: ctx.Caller, Amount: amount})
	return id, nil
}

// Pause and Unpause gate origination (Lend/Borrow); exits (Redeem/Repay) are
// never pausable, matching the spec's treatment of withdrawal paths as
// always-available. Liquidation has its own independent switch since a
// governance pause of new positions should not also freeze the mechanism
// that protects the pool from positions already open.
func (e *Engine) Pause(ctx CallContext)              { e.originationGuard.Set(true); e.events.Emit(Event{Kind: EventPaused, Owner: ctx.Caller}) }
func (e *Engine) Unpause(ctx CallContext)            { e.originationGuard.Set(false); e.events.Emit(Event{Kind: EventUnpaused, Owner: ctx.Caller}) }
func (e *Engine) PauseLiquidation(ctx CallContext)   { e.liquidationGuard.Set(true) }
func (e *Engine) UnpauseLiquidation(ctx CallContext) { e.liquidationGuard.Set(false) }
func (e *Engine) IsPaused() bool                     { return e.originationGuard.Paused() }
func (e *Engine) IsLiquidationPaused() bool          { return e.liquidationGuard.Paused() }

// Administrative setters. Each validates the whole parameter set before
// committing, rejecting a change that would leave Params in a state
// Validate would refuse.
func (e *Engine) setParams(next Params, ctx CallContext, detail string) error {
	if err := next.Validate(); err != nil {
		return err
	}
	e.params = next
	e.events.Emit(Event{Kind: EventParamsUpdated, Owner: ctx.Caller, Detail: detail})
	return nil
}

func (e *Engine) SetMinMaturity(ctx CallContext, v int64) error {
	next := e.params
	next.MinMaturity = v
	return e.setParams(next, ctx, "min_maturity")
}

func (e *Engine) SetMaxMaturity(ctx CallContext, v int64) error {
	next := e.params
	next.MaxMaturity = v
	return e.setParams(next, ctx, "max_maturity")
}

func (e *Engine) SetCollateralRatio(ctx CallContext, v fixedpoint.Fixed) error {
	next := e.params
	next.CollateralRatio = v
	return e.setParams(next, ctx, "collateral_ratio")
}

func (e *Engine) SetSolvencyThreshold(ctx CallContext, v fixedpoint.Fixed) error {
	next := e.params
	next.SolvencyThreshold = v
	return e.setParams(next, ctx, "solvency_threshold")
}

func (e *Engine) SetGracePeriod(ctx CallContext, v int64) error {
	next := e.params
	next.GracePeriod = v
	return e.setParams(next, ctx, "grace_period")
}

func (e *Engine) SetLiquidationPenalty(ctx CallContext, v fixedpoint.Fixed) error {
	next := e.params
	next.LiquidationPenalty = v
	return e.setParams(next, ctx, "liquidation_penalty")
}

func (e *Engine) SetFallbackRate(ctx CallContext, v fixedpoint.Fixed) error {
	if err := e.oracle.SetFallbackRate(v); err != nil {
		return err
	}
	e.events.Emit(Event{Kind: EventFallbackRateSet, Owner: ctx.Caller, Amount: v})
	return nil
}

// Queries. None of these mutate state or run the pre-phase; they read the
// pool's current snapshot as of the last accrual.
func (e *Engine) Cash() fixedpoint.Fixed           { return e.y }
func (e *Engine) PVBonds() fixedpoint.Fixed        { return e.x }
func (e *Engine) NetLiabilities() fixedpoint.Fixed { return e.liabilities }
func (e *Engine) CheckSolvency() error             { return e.checkSolvency() }
func (e *Engine) GetPosition(id uint64) Position   { return e.store.Get(id) }
func (e *Engine) GetParams() Params                { return e.params }

// CurrentRate reports the pool's own curve-implied rate at the current
// reserves, distinct from the oracle's anchor rate.
func (e *Engine) CurrentRate() (fixedpoint.Fixed, error) {
	rStar, err := e.oracle.CurrentRate()
	if err != nil {
		return fixedpoint.Fixed{}, err
	}
	return pricing.Rate(e.x, e.y, rStar)
}

// AnchorRate reports the oracle's current anchor rate without touching the
// curve.
func (e *Engine) AnchorRate() (fixedpoint.Fixed, error) { return e.oracle.CurrentRate() }
