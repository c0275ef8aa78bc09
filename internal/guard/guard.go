// Package guard implements the small cross-cutting checks every mutating
// pool entry point runs before touching state: a pause switch and a
// reentrancy latch. It generalises the lending engine's nativecommon.Guard
// helper (a single IsPaused(module) check) into the two-state pause model
// this pool needs — origination and liquidation can be paused independently
// from exits, which per the invariants must always remain reachable.
package guard

import "errors"

// ErrPaused is returned when a guarded operation is blocked by the pause
// switch governing its class.
var ErrPaused = errors.New("guard: operation paused")

// ErrReentrant is returned when a mutating operation is invoked while
// another mutating operation on the same pool is already in flight.
var ErrReentrant = errors.New("guard: reentrant call rejected")

// Switch is a simple on/off pause latch. The zero value is unpaused.
type Switch struct {
	paused bool
}

// Set updates the pause state.
func (s *Switch) Set(paused bool) { s.paused = paused }

// Paused reports the current pause state.
func (s *Switch) Paused() bool { return s.paused }

// Check fails with ErrPaused when the switch is engaged.
func (s *Switch) Check() error {
	if s.Paused() {
		return ErrPaused
	}
	return nil
}

// Reentrancy is a single-slot lock: Enter fails if already held, Exit
// releases it. The host is documented as single-threaded per pool (no
// interleaving), so this is a plain flag rather than a mutex — it exists to
// reject a *nested* call within the same call stack, not to serialize
// concurrent goroutines.
type Reentrancy struct {
	entered bool
}

// Enter acquires the lock or fails with ErrReentrant if already held.
func (r *Reentrancy) Enter() error {
	if r.entered {
		return ErrReentrant
	}
	r.entered = true
	return nil
}

// Exit releases the lock. Safe to call even if Enter was never called.
func (r *Reentrancy) Exit() { r.entered = false }
