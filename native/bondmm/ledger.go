package bondmm

import (
	"errors"
	"sync"

	"github.com/Schrodinger-Labs/BondMM-A/internal/addr"
	"github.com/Schrodinger-Labs/BondMM-A/internal/fixedpoint"
)

// Ledger is the external value-transfer collaborator: transfer/approve/
// balance primitives over a stablecoin account system. Specifying the
// ledger itself is out of scope; PoolCore only ever calls these three
// methods, the same narrow surface the lending engine used against its
// own account store (GetAccount/PutAccount wrapped transfer semantics).
type Ledger interface {
	// TransferFrom moves amount from src to dst, failing if src's balance
	// is insufficient.
	TransferFrom(src, dst addr.Address, amount fixedpoint.Fixed) error
	// Transfer moves amount from the pool's own account to dst.
	Transfer(dst addr.Address, amount fixedpoint.Fixed) error
	// BalanceOf reports the current balance of addr.
	BalanceOf(a addr.Address) (fixedpoint.Fixed, error)
}

// ErrInsufficientBalance is returned by the in-memory reference ledger when
// a transfer exceeds the source account's balance.
var ErrInsufficientBalance = errors.New("bondmm: insufficient ledger balance")

// MemoryLedger is a reference Ledger implementation backed by an in-memory
// balance map. It exists for tests and for standalone demonstrations of the
// pool; production deployments wire a real settlement ledger instead.
type MemoryLedger struct {
	mu       sync.Mutex
	pool     addr.Address
	balances map[string]fixedpoint.Fixed
}

// NewMemoryLedger constructs a ledger whose "pool" account identity is used
// by Transfer (funds always leave from this account).
func NewMemoryLedger(pool addr.Address) *MemoryLedger {
	return &MemoryLedger{pool: pool, balances: make(map[string]fixedpoint.Fixed)}
}

// Credit seeds an account balance, used to fund test fixtures.
func (l *MemoryLedger) Credit(a addr.Address, amount fixedpoint.Fixed) {
	l.mu.Lock()
	defer l.mu.Unlock()
	cur := l.balances[a.String()]
	next, err := cur.Add(amount)
	if err != nil {
		next = cur
	}
	l.balances[a.String()] = next
}

func (l *MemoryLedger) TransferFrom(src, dst addr.Address, amount fixedpoint.Fixed) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	srcBal := l.balances[src.String()]
	if srcBal.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	newSrc, err := srcBal.Sub(amount)
	if err != nil {
		return err
	}
	dstBal := l.balances[dst.String()]
	newDst, err := dstBal.Add(amount)
	if err != nil {
		return err
	}
	l.balances[src.String()] = newSrc
	l.balances[dst.String()] = newDst
	return nil
}

func (l *MemoryLedger) Transfer(dst addr.Address, amount fixedpoint.Fixed) error {
	return l.TransferFrom(l.pool, dst, amount)
}

func (l *MemoryLedger) BalanceOf(a addr.Address) (fixedpoint.Fixed, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[a.String()], nil
}
