package reservations

import (
	"context"

	"github.com/google/uuid"
)

// Store is the durable record of courts, slots, holds, and bookings. The
// in-memory index is authoritative at runtime; the engine writes through to
// the store so state survives restarts. Held status is deliberately not
// persisted: a hold that was in flight when the process died must be treated
// as expired on recovery.
type Store interface {
	SaveCourt(ctx context.Context, court *Court) error

	// SaveSlots upserts slot statuses for a court. Only open, closed, and
	// booked are ever written.
	SaveSlots(ctx context.Context, courtID int64, slots []Slot) error

	SaveHold(ctx context.Context, hold *Hold) error
	UpdateHoldState(ctx context.Context, id uuid.UUID, state HoldState) error

	SaveBooking(ctx context.Context, booking *Booking) error
	UpdateBookingStatus(ctx context.Context, id uuid.UUID, status BookingStatus) error
}

// Snapshot is the durable state loaded at startup to rebuild the engine.
type Snapshot struct {
	Courts   []*Court
	Slots    []Slot
	Bookings []*Booking
}

// nopStore discards writes. Used by tests that only exercise in-memory
// behavior.
type nopStore struct{}

func (nopStore) SaveCourt(context.Context, *Court) error         { return nil }
func (nopStore) SaveSlots(context.Context, int64, []Slot) error  { return nil }
func (nopStore) SaveHold(context.Context, *Hold) error           { return nil }

func (nopStore) UpdateHoldState(context.Context, uuid.UUID, HoldState) error { return nil }
func (nopStore) SaveBooking(context.Context, *Booking) error                 { return nil }

func (nopStore) UpdateBookingStatus(context.Context, uuid.UUID, BookingStatus) error { return nil }
