package bondmm

import (
	"github.com/Schrodinger-Labs/BondMM-A/internal/addr"
	"github.com/Schrodinger-Labs/BondMM-A/internal/fixedpoint"
)

// EventKind enumerates the observed side effects of a successful mutation.
// Event emission transport itself is out of scope — the sink below is the
// seam a host wires into whatever transport it runs.
type EventKind string

const (
	EventInitialized      EventKind = "Initialized"
	EventLend             EventKind = "Lend"
	EventBorrow           EventKind = "Borrow"
	EventRedeem           EventKind = "Redeem"
	EventRepay            EventKind = "Repay"
	EventLiquidated       EventKind = "Liquidated"
	EventFallbackRateUsed EventKind = "FallbackRateUsed"
	EventParamsUpdated    EventKind = "ParamsUpdated"
	EventPaused           EventKind = "Paused"
	EventUnpaused         EventKind = "Unpaused"
	EventOracleUpdated    EventKind = "OracleUpdated"
	EventFallbackRateSet  EventKind = "FallbackRateSet"
)

// Event is a single observed side effect of a pool mutation.
type Event struct {
	Kind       EventKind
	PositionID uint64
	Owner      addr.Address
	Amount     fixedpoint.Fixed
	Detail     string
}

// EventSink receives events as they are produced. Implementations must not
// block or fail the operation that produced the event.
type EventSink interface {
	Emit(Event)
}

// NoopSink discards every event. It is the Engine's default so wiring an
// observer is opt-in.
type NoopSink struct{}

// Emit implements EventSink.
func (NoopSink) Emit(Event) {}

// RecordingSink accumulates events in memory, used by tests that assert on
// the sequence of side effects a scenario produces.
type RecordingSink struct {
	Events []Event
}

// Emit implements EventSink.
func (s *RecordingSink) Emit(e Event) {
	s.Events = append(s.Events, e)
}
