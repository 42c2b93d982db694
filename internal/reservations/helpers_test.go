package reservations

import (
	"sync"
	"testing"
	"time"
)

// mockClock is a controllable clock for testing.
type mockClock struct {
	mu  sync.Mutex
	now time.Time
}

func newMockClock() *mockClock {
	return &mockClock{now: time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)}
}

func (c *mockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *mockClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// newTestEngine wires an engine against the mock clock with no persistence.
func newTestEngine(t *testing.T, clock *mockClock) *Engine {
	t.Helper()
	return NewEngine(Config{Clock: clock, HoldTTL: 10 * time.Minute})
}

// addTestCourt registers a court and opens slots for the next two days.
func addTestCourt(t *testing.T, e *Engine, clock *mockClock) *Court {
	t.Helper()

	court := &Court{
		Name:            "Court 1",
		FacilityID:      1,
		HourlyRateCents: 2500,
		OpensAt:         "08:00",
		ClosesAt:        "21:00",
		Timezone:        "UTC",
		Active:          true,
	}
	created, err := e.CreateCourt(t.Context(), court)
	if err != nil {
		t.Fatalf("create court: %v", err)
	}
	return created
}

// slotAt returns a slot reference on the given court for today at the given
// hour, relative to the mock clock's start date.
func slotAt(court *Court, clock *mockClock, dayOffset, hour int) SlotRef {
	base := clock.Now().Truncate(24 * time.Hour)
	return SlotRef{
		CourtID: court.ID,
		Start:   base.AddDate(0, 0, dayOffset).Add(time.Duration(hour) * time.Hour),
	}
}
