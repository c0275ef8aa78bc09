// Package bondmm implements the core state machine and pricing orchestration
// of BondMM-A: a pool of cash quoted against a bond inventory of arbitrary
// maturities. It mirrors the structure of the lending engine this module
// grew out of — a single Engine type wired to an external persistence
// interface, a ledger collaborator, and an oracle collaborator, with every
// mutating entry point running the same pre-phase (reentrancy guard,
// initialization check, pause check, flash-loan guard, liability accrual)
// before touching state.
package bondmm

import (
	"errors"

	"github.com/Schrodinger-Labs/BondMM-A/internal/addr"
	"github.com/Schrodinger-Labs/BondMM-A/internal/fixedpoint"
)

// Sentinel errors surfaced by PoolCore. Every mutating operation fails
// atomically into one of these; callers are expected to resubmit, nothing
// here retries internally.
var (
	ErrNotInitialized         = errors.New("bondmm: pool not initialized")
	ErrAlreadyInitialized     = errors.New("bondmm: pool already initialized")
	ErrPaused                 = errors.New("bondmm: operation paused")
	ErrFlashLoanDetected      = errors.New("bondmm: caller already mutated this block")
	ErrOracleStale            = errors.New("bondmm: oracle reading is stale")
	ErrInvalidMaturity        = errors.New("bondmm: maturity outside permitted window")
	ErrInvalidAmount          = errors.New("bondmm: amount must be positive")
	ErrInsufficientCollateral = errors.New("bondmm: collateral below required ratio")
	ErrInsufficientLiquidity  = errors.New("bondmm: insufficient pool liquidity")
	ErrNotOwner               = errors.New("bondmm: caller does not own the position")
	ErrWrongPositionKind      = errors.New("bondmm: position kind mismatch")
	ErrNotActive              = errors.New("bondmm: position is not active")
	ErrNotMature              = errors.New("bondmm: position has not matured")
	ErrGraceNotExpired        = errors.New("bondmm: grace period has not elapsed")
	ErrInsolvent              = errors.New("bondmm: operation would breach solvency floor")
	ErrLedgerTransferFailed   = errors.New("bondmm: ledger transfer failed")
)

// Position is a single lend or borrow obligation, immutable after creation
// except for the IsActive flag.
type Position struct {
	ID         uint64
	Owner      addr.Address
	FaceValue  fixedpoint.Fixed
	Maturity   int64
	Collateral fixedpoint.Fixed
	InitialPV  fixedpoint.Fixed
	CreatedAt  int64
	IsBorrow   bool
	IsActive   bool
}

// Clone returns a deep-enough copy for safe external handout; Position has
// no reference fields that need deep copying beyond the struct itself.
func (p Position) Clone() Position { return p }
