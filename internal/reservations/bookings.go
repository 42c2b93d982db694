package reservations

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Committer converts still-valid holds into bookings and applies the
// cancellation policy. Payment capture happens before Commit is called; the
// hold's price snapshot is the authoritative amount, so nothing here blocks
// on the payment collaborator.
type Committer struct {
	index *Index
	holds *HoldManager
	store Store
	clock Clock

	mu       sync.Mutex
	bookings map[uuid.UUID]*Booking
}

// NewCommitter creates a booking committer. A nil store discards writes; a
// nil clock uses system time.
func NewCommitter(index *Index, holds *HoldManager, store Store, clock Clock) *Committer {
	if store == nil {
		store = nopStore{}
	}
	if clock == nil {
		clock = realClock{}
	}
	return &Committer{
		index:    index,
		holds:    holds,
		store:    store,
		clock:    clock,
		bookings: make(map[uuid.UUID]*Booking),
	}
}

// Commit turns an active, unexpired hold into a confirmed booking,
// transitioning every held slot to booked. Expiry is re-checked here; caller
// timing is never trusted. A slot that is no longer owned by the hold means
// the exclusivity invariant broke, and the commit fails loudly instead of
// booking a subset.
func (c *Committer) Commit(ctx context.Context, holdID uuid.UUID) (*Booking, error) {
	now := c.clock.Now()

	hold, err := c.holds.take(holdID, now)
	if err != nil {
		return nil, err
	}

	if err := c.index.CommitHold(hold.CourtID, hold.Starts, hold.ID); err != nil {
		c.holds.untake(holdID)
		log.Ctx(ctx).Error().
			Err(err).
			Str("hold_id", holdID.String()).
			Int64("court_id", hold.CourtID).
			Msg("Hold slots were not committable; availability index inconsistency")
		return nil, err
	}

	booking := &Booking{
		ID:         uuid.New(),
		CourtID:    hold.CourtID,
		Starts:     hold.Starts,
		Owner:      hold.Owner,
		PriceCents: hold.PriceCents,
		Status:     BookingConfirmed,
		CreatedAt:  now,
	}

	c.mu.Lock()
	c.bookings[booking.ID] = booking
	c.mu.Unlock()

	if err := c.persistCommit(ctx, hold, booking); err != nil {
		log.Ctx(ctx).Error().Err(err).Str("booking_id", booking.ID.String()).Msg("Failed to persist booking")
		return nil, fmt.Errorf("persist booking: %w", err)
	}
	return booking, nil
}

func (c *Committer) persistCommit(ctx context.Context, hold *Hold, booking *Booking) error {
	if err := c.store.SaveBooking(ctx, booking); err != nil {
		return err
	}
	if err := c.store.UpdateHoldState(ctx, hold.ID, HoldCommitted); err != nil {
		return err
	}
	slots := make([]Slot, len(booking.Starts))
	for i, start := range booking.Starts {
		slots[i] = Slot{CourtID: booking.CourtID, Start: start, Status: SlotBooked}
	}
	return c.store.SaveSlots(ctx, booking.CourtID, slots)
}

// Cancel transitions a confirmed booking to cancelled when the first slot is
// still at least CancellationNotice away. The slots stay booked: within the
// two-hour window they are deliberately withheld from resale.
func (c *Committer) Cancel(ctx context.Context, bookingID uuid.UUID) error {
	now := c.clock.Now()

	c.mu.Lock()
	booking, ok := c.bookings[bookingID]
	if !ok {
		c.mu.Unlock()
		return ErrBookingNotFound
	}
	if booking.Status != BookingConfirmed {
		c.mu.Unlock()
		return ErrNotCancellable
	}
	if !Cancellable(booking.EarliestStart(), now) {
		c.mu.Unlock()
		return ErrNotCancellable
	}
	booking.Status = BookingCancelled
	booking.CancelledAt = now
	c.mu.Unlock()

	if err := c.store.UpdateBookingStatus(ctx, bookingID, BookingCancelled); err != nil {
		log.Ctx(ctx).Error().Err(err).Str("booking_id", bookingID.String()).Msg("Failed to persist cancellation")
		return fmt.Errorf("persist cancellation: %w", err)
	}
	return nil
}

// Get returns a copy of the booking with the given ID.
func (c *Committer) Get(id uuid.UUID) (*Booking, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	booking, ok := c.bookings[id]
	if !ok {
		return nil, ErrBookingNotFound
	}
	copied := *booking
	return &copied, nil
}

// ListByOwner returns the owner's bookings, newest first.
func (c *Committer) ListByOwner(owner string) []*Booking {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []*Booking
	for _, booking := range c.bookings {
		if booking.Owner != owner {
			continue
		}
		copied := *booking
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// restore registers a booking from a snapshot without writing back.
func (c *Committer) restore(booking *Booking) {
	c.mu.Lock()
	defer c.mu.Unlock()
	stored := *booking
	c.bookings[booking.ID] = &stored
}
