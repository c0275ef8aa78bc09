package bondmm

import "testing"

func TestAllocateAssignsMonotonicIDs(t *testing.T) {
	s := NewPositionStore()
	first := s.Allocate(Position{IsActive: true})
	second := s.Allocate(Position{IsActive: true})
	if first != 1 || second != 2 {
		t.Fatalf("got ids %d, %d, want 1, 2", first, second)
	}
}

func TestGetUnknownIDReturnsInactiveZeroValue(t *testing.T) {
	s := NewPositionStore()
	got := s.Get(999)
	if got.IsActive {
		t.Fatal("unknown id reported active")
	}
	if got.ID != 0 {
		t.Fatalf("unknown id record had nonzero ID %d", got.ID)
	}
}

func TestMarkInactiveIsIdempotent(t *testing.T) {
	s := NewPositionStore()
	id := s.Allocate(Position{IsActive: true})
	s.MarkInactive(id)
	if s.Get(id).IsActive {
		t.Fatal("position still active after MarkInactive")
	}
	s.MarkInactive(id)
	if s.Get(id).IsActive {
		t.Fatal("second MarkInactive call changed active state")
	}
}

func TestMarkInactiveUnknownIDIsNoop(t *testing.T) {
	s := NewPositionStore()
	s.MarkInactive(42)
	if s.NextID() != 1 {
		t.Fatalf("marking an unknown id mutated allocation state: next=%d", s.NextID())
	}
}
