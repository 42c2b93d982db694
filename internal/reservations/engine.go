package reservations

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultWindowDays is the rolling window of slots generated ahead of time.
const DefaultWindowDays = 90

// Config wires an Engine.
type Config struct {
	Store      Store         // nil discards writes (tests only)
	Clock      Clock         // nil uses system time
	HoldTTL    time.Duration // non-positive uses DefaultHoldTTL
	WindowDays int           // non-positive uses DefaultWindowDays
}

// Engine ties the reservation components together behind one constructor.
// The availability index is the only shared mutable state; everything else
// operates through it.
type Engine struct {
	Courts   *Courts
	Index    *Index
	Calendar *Calendar
	Holds    *HoldManager
	Bookings *Committer
	Schedule *ScheduleEditor

	store      Store
	clock      Clock
	windowDays int
}

// NewEngine constructs a fully wired engine.
func NewEngine(cfg Config) *Engine {
	store := cfg.Store
	if store == nil {
		store = nopStore{}
	}
	clock := cfg.Clock
	if clock == nil {
		clock = realClock{}
	}
	windowDays := cfg.WindowDays
	if windowDays <= 0 {
		windowDays = DefaultWindowDays
	}

	index := NewIndex(clock)
	courts := NewCourts(store)
	holds := NewHoldManager(index, courts, store, clock, cfg.HoldTTL)

	return &Engine{
		Courts:     courts,
		Index:      index,
		Calendar:   NewCalendar(clock),
		Holds:      holds,
		Bookings:   NewCommitter(index, holds, store, clock),
		Schedule:   NewScheduleEditor(index, store, clock),
		store:      store,
		clock:      clock,
		windowDays: windowDays,
	}
}

// Restore rebuilds runtime state from a snapshot. Persisted slots carry only
// open, closed, or booked; holds that were in flight when the process died
// are gone from the index and therefore expired, exactly as required.
func (e *Engine) Restore(snap *Snapshot) {
	if snap == nil {
		return
	}
	for _, court := range snap.Courts {
		e.Courts.restore(court)
	}
	for _, slot := range snap.Slots {
		e.Index.SetSlot(SlotRef{CourtID: slot.CourtID, Start: slot.Start}, slot.Status)
	}
	for _, booking := range snap.Bookings {
		e.Bookings.restore(booking)
	}
	log.Info().
		Int("courts", len(snap.Courts)).
		Int("slots", len(snap.Slots)).
		Int("bookings", len(snap.Bookings)).
		Msg("Engine state restored")
}

// CreateCourt registers a court and generates its rolling slot window.
func (e *Engine) CreateCourt(ctx context.Context, court *Court) (*Court, error) {
	created, err := e.Courts.Create(ctx, court)
	if err != nil {
		return nil, err
	}
	if _, err := e.regenerate(ctx, created); err != nil {
		return nil, err
	}
	return created, nil
}

// UpdateCourt applies rate/hours edits and regenerates the slot window,
// returning any held or booked slots that now fall outside the new
// operating hours. Those are preserved and reported, never discarded.
func (e *Engine) UpdateCourt(ctx context.Context, court *Court) (*RegenerationResult, error) {
	if err := e.Courts.Update(ctx, court); err != nil {
		return nil, err
	}
	return e.regenerate(ctx, court)
}

func (e *Engine) regenerate(ctx context.Context, court *Court) (*RegenerationResult, error) {
	now := e.clock.Now()
	from := now
	if court.AvailableFrom.After(from) {
		from = court.AvailableFrom
	}
	to := now.AddDate(0, 0, e.windowDays)

	result, err := e.Calendar.Regenerate(e.Index, court, from, to)
	if err != nil {
		return nil, fmt.Errorf("regenerate slots: %w", err)
	}

	slots := e.Index.Query(court.ID, from, to)
	for i := range slots {
		// Held is volatile: a hold lost to a restart must come back open.
		if slots[i].Status == SlotHeld {
			slots[i].Status = SlotOpen
		}
	}
	if err := e.store.SaveSlots(ctx, court.ID, slots); err != nil {
		return nil, fmt.Errorf("persist slots: %w", err)
	}

	logger := log.Ctx(ctx).With().Int64("court_id", court.ID).Logger()
	logger.Info().
		Int("added", result.Added).
		Int("closed", result.Closed).
		Int("conflicts", len(result.Conflicts)).
		Msg("Court slot window regenerated")
	return result, nil
}
