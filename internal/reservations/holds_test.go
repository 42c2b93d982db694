package reservations

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func TestAcquire_MultiSlotSuccess(t *testing.T) {
	clock := newMockClock()
	e := newTestEngine(t, clock)
	court := addTestCourt(t, e, clock)

	refs := []SlotRef{slotAt(court, clock, 1, 9), slotAt(court, clock, 1, 10)}
	hold, err := e.Holds.Acquire(t.Context(), refs, "user-a")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}

	if hold.PriceCents != 2*court.HourlyRateCents {
		t.Errorf("price = %d, want %d", hold.PriceCents, 2*court.HourlyRateCents)
	}
	if want := clock.Now().Add(10 * time.Minute); !hold.ExpiresAt.Equal(want) {
		t.Errorf("expiresAt = %v, want %v", hold.ExpiresAt, want)
	}
	for _, ref := range refs {
		if got := e.Index.Status(ref); got != SlotHeld {
			t.Errorf("slot %v = %s, want %s", ref.Start, got, SlotHeld)
		}
	}
}

func TestAcquire_OverlappingSecondCallerLoses(t *testing.T) {
	clock := newMockClock()
	e := newTestEngine(t, clock)
	court := addTestCourt(t, e, clock)

	both := []SlotRef{slotAt(court, clock, 1, 9), slotAt(court, clock, 1, 10)}
	if _, err := e.Holds.Acquire(t.Context(), both, "user-a"); err != nil {
		t.Fatalf("first acquire: %v", err)
	}

	_, err := e.Holds.Acquire(t.Context(), both[1:], "user-b")
	if !errors.Is(err, ErrSlotUnavailable) {
		t.Fatalf("second acquire should lose, got %v", err)
	}
}

func TestAcquire_AllOrNothing(t *testing.T) {
	clock := newMockClock()
	e := newTestEngine(t, clock)
	court := addTestCourt(t, e, clock)

	middle := slotAt(court, clock, 1, 10)
	if _, err := e.Holds.Acquire(t.Context(), []SlotRef{middle}, "user-a"); err != nil {
		t.Fatalf("seed acquire: %v", err)
	}

	refs := []SlotRef{slotAt(court, clock, 1, 9), middle, slotAt(court, clock, 1, 11)}
	_, err := e.Holds.Acquire(t.Context(), refs, "user-b")
	if !errors.Is(err, ErrSlotUnavailable) {
		t.Fatalf("acquire over held slot should fail, got %v", err)
	}

	// The slots around the conflict must not remain held.
	for _, ref := range []SlotRef{refs[0], refs[2]} {
		if got := e.Index.Status(ref); got != SlotOpen {
			t.Errorf("slot %v = %s after failed acquire, want %s", ref.Start, got, SlotOpen)
		}
	}
}

func TestAcquire_CrossCourtSelection(t *testing.T) {
	clock := newMockClock()
	e := newTestEngine(t, clock)
	court := addTestCourt(t, e, clock)

	refs := []SlotRef{slotAt(court, clock, 1, 9), {CourtID: court.ID + 1, Start: slotAt(court, clock, 1, 10).Start}}
	_, err := e.Holds.Acquire(t.Context(), refs, "user-a")
	if !errors.Is(err, ErrCrossCourtSelection) {
		t.Errorf("expected ErrCrossCourtSelection, got %v", err)
	}
}

func TestAcquire_EmptyAndAnonymousRejected(t *testing.T) {
	clock := newMockClock()
	e := newTestEngine(t, clock)
	court := addTestCourt(t, e, clock)

	if _, err := e.Holds.Acquire(t.Context(), nil, "user-a"); err == nil {
		t.Error("empty slot list should be rejected")
	}
	if _, err := e.Holds.Acquire(t.Context(), []SlotRef{slotAt(court, clock, 1, 9)}, ""); err == nil {
		t.Error("empty owner token should be rejected")
	}
}

func TestRelease_Idempotent(t *testing.T) {
	clock := newMockClock()
	e := newTestEngine(t, clock)
	court := addTestCourt(t, e, clock)

	ref := slotAt(court, clock, 1, 9)
	hold, err := e.Holds.Acquire(t.Context(), []SlotRef{ref}, "user-a")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}

	if err := e.Holds.Release(t.Context(), hold.ID); err != nil {
		t.Fatalf("first release: %v", err)
	}
	if got := e.Index.Status(ref); got != SlotOpen {
		t.Fatalf("slot = %s after release, want %s", got, SlotOpen)
	}

	// A new owner takes the slot; the stale second release must not free it.
	fresh, err := e.Holds.Acquire(t.Context(), []SlotRef{ref}, "user-b")
	if err != nil {
		t.Fatalf("reacquire: %v", err)
	}
	if err := e.Holds.Release(t.Context(), hold.ID); err != nil {
		t.Fatalf("second release should be a no-op, got %v", err)
	}
	if got := e.Index.Status(ref); got != SlotHeld {
		t.Errorf("slot = %s, want %s (still held by %s)", got, SlotHeld, fresh.ID)
	}
}

func TestRelease_AfterCommitIsNoOp(t *testing.T) {
	clock := newMockClock()
	e := newTestEngine(t, clock)
	court := addTestCourt(t, e, clock)

	ref := slotAt(court, clock, 1, 9)
	hold, err := e.Holds.Acquire(t.Context(), []SlotRef{ref}, "user-a")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if _, err := e.Bookings.Commit(t.Context(), hold.ID); err != nil {
		t.Fatalf("commit: %v", err)
	}

	if err := e.Holds.Release(t.Context(), hold.ID); err != nil {
		t.Fatalf("release after commit should be a no-op, got %v", err)
	}
	if got := e.Index.Status(ref); got != SlotBooked {
		t.Errorf("slot = %s after stale release, want %s", got, SlotBooked)
	}
}

func TestExpiredHold_SlotsReadOpenAndReacquirable(t *testing.T) {
	clock := newMockClock()
	e := newTestEngine(t, clock)
	court := addTestCourt(t, e, clock)

	ref := slotAt(court, clock, 1, 9)
	if _, err := e.Holds.Acquire(t.Context(), []SlotRef{ref}, "user-a"); err != nil {
		t.Fatalf("acquire: %v", err)
	}

	// TTL 10m; at t0+11m the slot reads open and can be taken again,
	// before any sweep has run.
	clock.Advance(11 * time.Minute)
	if got := e.Index.Status(ref); got != SlotOpen {
		t.Fatalf("slot = %s at t0+11m, want %s", got, SlotOpen)
	}
	if _, err := e.Holds.Acquire(t.Context(), []SlotRef{ref}, "user-b"); err != nil {
		t.Errorf("fresh acquire at t0+11m: %v", err)
	}
}

func TestSweepExpired_ReconcilesIndex(t *testing.T) {
	clock := newMockClock()
	e := newTestEngine(t, clock)
	court := addTestCourt(t, e, clock)

	if _, err := e.Holds.Acquire(t.Context(), []SlotRef{slotAt(court, clock, 1, 9)}, "user-a"); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	kept, err := e.Holds.Acquire(t.Context(), []SlotRef{slotAt(court, clock, 2, 9)}, "user-b")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}

	if swept := e.Holds.SweepExpired(t.Context()); swept != 0 {
		t.Errorf("nothing should be swept yet, got %d", swept)
	}

	clock.Advance(11 * time.Minute)
	if swept := e.Holds.SweepExpired(t.Context()); swept != 2 {
		t.Errorf("swept = %d, want 2", swept)
	}
	if _, err := e.Holds.Get(kept.ID); !errors.Is(err, ErrHoldNotFound) {
		t.Errorf("swept hold should be dropped from memory, got %v", err)
	}
}

func TestAcquire_ConcurrentOverlap_ExactlyOneWins(t *testing.T) {
	clock := newMockClock()
	e := newTestEngine(t, clock)
	court := addTestCourt(t, e, clock)

	contested := slotAt(court, clock, 1, 10)
	const goroutines = 50

	var wg sync.WaitGroup
	wins := make(chan *Hold, goroutines)
	losses := make(chan error, goroutines)

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			refs := []SlotRef{slotAt(court, clock, 1, 9+2*(n%2)), contested}
			hold, err := e.Holds.Acquire(t.Context(), refs, "user")
			if err != nil {
				losses <- err
				return
			}
			wins <- hold
		}(i)
	}
	wg.Wait()
	close(wins)
	close(losses)

	if len(wins) != 1 {
		t.Fatalf("winners = %d, want exactly 1", len(wins))
	}
	for err := range losses {
		if !errors.Is(err, ErrSlotUnavailable) {
			t.Errorf("loser error = %v, want ErrSlotUnavailable", err)
		}
	}
}
