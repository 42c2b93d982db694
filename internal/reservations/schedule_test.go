package reservations

import (
	"errors"
	"testing"
	"time"
)

func TestSchedule_CommitAppliesBatch(t *testing.T) {
	clock := newMockClock()
	e := newTestEngine(t, clock)
	court := addTestCourt(t, e, clock)

	close1 := slotAt(court, clock, 1, 9)
	close2 := slotAt(court, clock, 1, 10)
	for _, ref := range []SlotRef{close1, close2} {
		if err := e.Schedule.Stage(court.ID, ref.Start, SlotClosed); err != nil {
			t.Fatalf("stage: %v", err)
		}
	}
	if got := len(e.Schedule.Pending(court.ID)); got != 2 {
		t.Fatalf("pending = %d, want 2", got)
	}

	if err := e.Schedule.Commit(t.Context(), court.ID); err != nil {
		t.Fatalf("commit: %v", err)
	}
	for _, ref := range []SlotRef{close1, close2} {
		if got := e.Index.Status(ref); got != SlotClosed {
			t.Errorf("slot %v = %s, want %s", ref.Start, got, SlotClosed)
		}
	}
	if got := len(e.Schedule.Pending(court.ID)); got != 0 {
		t.Errorf("pending after commit = %d, want 0", got)
	}
}

func TestSchedule_StageRejectsNonScheduleStatus(t *testing.T) {
	clock := newMockClock()
	e := newTestEngine(t, clock)
	court := addTestCourt(t, e, clock)

	if err := e.Schedule.Stage(court.ID, slotAt(court, clock, 1, 9).Start, SlotBooked); err == nil {
		t.Error("staging a booked status should be rejected")
	}
}

func TestSchedule_PastTargetRejectsWholeBatch(t *testing.T) {
	clock := newMockClock()
	e := newTestEngine(t, clock)
	court := addTestCourt(t, e, clock)

	future := slotAt(court, clock, 1, 9)
	past := slotAt(court, clock, 0, 9)
	for _, ref := range []SlotRef{future, past} {
		if err := e.Schedule.Stage(court.ID, ref.Start, SlotClosed); err != nil {
			t.Fatalf("stage: %v", err)
		}
	}

	err := e.Schedule.Commit(t.Context(), court.ID)
	if !errors.Is(err, ErrPastSlotImmutable) {
		t.Fatalf("expected ErrPastSlotImmutable, got %v", err)
	}
	var conflictErr *ConflictError
	if !errors.As(err, &conflictErr) {
		t.Fatal("rejection should itemize the offending slots")
	}
	if len(conflictErr.Slots) != 1 || !conflictErr.Slots[0].Start.Equal(past.Start) {
		t.Errorf("conflict slots = %+v, want the past slot only", conflictErr.Slots)
	}

	// The untainted future change must not have been applied.
	if got := e.Index.Status(future); got != SlotOpen {
		t.Errorf("future slot = %s after rejected batch, want %s", got, SlotOpen)
	}
	// The batch stays staged for correction.
	if got := len(e.Schedule.Pending(court.ID)); got != 2 {
		t.Errorf("pending after rejection = %d, want 2", got)
	}
}

func TestSchedule_ActiveTargetRejectsWholeBatch(t *testing.T) {
	clock := newMockClock()
	e := newTestEngine(t, clock)
	court := addTestCourt(t, e, clock)

	held := slotAt(court, clock, 1, 10)
	if _, err := e.Holds.Acquire(t.Context(), []SlotRef{held}, "user-a"); err != nil {
		t.Fatalf("acquire: %v", err)
	}

	plain := slotAt(court, clock, 1, 9)
	for _, ref := range []SlotRef{plain, held} {
		if err := e.Schedule.Stage(court.ID, ref.Start, SlotClosed); err != nil {
			t.Fatalf("stage: %v", err)
		}
	}

	err := e.Schedule.Commit(t.Context(), court.ID)
	if !errors.Is(err, ErrConflictingActiveSlot) {
		t.Fatalf("expected ErrConflictingActiveSlot, got %v", err)
	}
	var conflictErr *ConflictError
	if !errors.As(err, &conflictErr) {
		t.Fatal("rejection should itemize the offending slots")
	}
	if len(conflictErr.Slots) != 1 || !conflictErr.Slots[0].Start.Equal(held.Start) {
		t.Errorf("conflict slots = %+v, want the held slot only", conflictErr.Slots)
	}
	if got := e.Index.Status(plain); got != SlotOpen {
		t.Errorf("plain slot = %s after rejected batch, want %s", got, SlotOpen)
	}
}

func TestSchedule_ExpiredHoldNoLongerBlocks(t *testing.T) {
	clock := newMockClock()
	e := newTestEngine(t, clock)
	court := addTestCourt(t, e, clock)

	held := slotAt(court, clock, 1, 10)
	if _, err := e.Holds.Acquire(t.Context(), []SlotRef{held}, "user-a"); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if err := e.Schedule.Stage(court.ID, held.Start, SlotClosed); err != nil {
		t.Fatalf("stage: %v", err)
	}

	// Once the hold lapses the slot is fair game again, sweep or no sweep.
	clock.Advance(11 * time.Minute)
	if err := e.Schedule.Commit(t.Context(), court.ID); err != nil {
		t.Fatalf("commit after hold expiry: %v", err)
	}
	if got := e.Index.Status(held); got != SlotClosed {
		t.Errorf("slot = %s, want %s", got, SlotClosed)
	}
}

func TestSchedule_DiscardDropsBatch(t *testing.T) {
	clock := newMockClock()
	e := newTestEngine(t, clock)
	court := addTestCourt(t, e, clock)

	ref := slotAt(court, clock, 1, 9)
	if err := e.Schedule.Stage(court.ID, ref.Start, SlotClosed); err != nil {
		t.Fatalf("stage: %v", err)
	}
	e.Schedule.Discard(court.ID)

	if got := len(e.Schedule.Pending(court.ID)); got != 0 {
		t.Errorf("pending after discard = %d, want 0", got)
	}
	if err := e.Schedule.Commit(t.Context(), court.ID); err != nil {
		t.Fatalf("commit of empty batch should be a no-op, got %v", err)
	}
	if got := e.Index.Status(ref); got != SlotOpen {
		t.Errorf("slot = %s after discard, want %s", got, SlotOpen)
	}
}
