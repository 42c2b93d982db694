// Package reservations implements the court availability and reservation
// hold engine: hourly slot calendars, a compare-and-swap availability index,
// time-limited checkout holds, booking commits, and operator schedule edits.
package reservations

import (
	"time"

	"github.com/google/uuid"
)

// SlotStatus is the availability state of a single hourly slot.
type SlotStatus string

const (
	SlotOpen   SlotStatus = "open"
	SlotHeld   SlotStatus = "held"
	SlotBooked SlotStatus = "booked"
	SlotClosed SlotStatus = "closed"
)

// SlotDuration is fixed: courts are rented by the hour.
const SlotDuration = time.Hour

// Court is a bookable court belonging to a facility. Courts are deactivated
// rather than deleted while bookings still reference them.
type Court struct {
	ID              int64     `json:"id"`
	FacilityID      int64     `json:"facilityId"`
	Name            string    `json:"name"`
	HourlyRateCents int64     `json:"hourlyRateCents"`
	OpensAt         string    `json:"opensAt"`  // "HH:MM" local to Timezone
	ClosesAt        string    `json:"closesAt"` // "HH:MM" local to Timezone
	Timezone        string    `json:"timezone"`
	Active          bool      `json:"active"`
	AvailableFrom   time.Time `json:"availableFrom"`
}

// SlotRef identifies one hourly slot: a court plus the slot's start instant.
// The end instant is always start + SlotDuration.
type SlotRef struct {
	CourtID int64     `json:"courtId"`
	Start   time.Time `json:"start"`
}

// Slot is a slot reference together with its current status.
type Slot struct {
	CourtID int64      `json:"courtId"`
	Start   time.Time  `json:"start"`
	Status  SlotStatus `json:"status"`
}

// HoldState tracks the lifecycle of a hold after creation.
type HoldState string

const (
	HoldActive    HoldState = "active"
	HoldReleased  HoldState = "released"
	HoldCommitted HoldState = "committed"
	HoldExpired   HoldState = "expired"
)

// Hold is a short-lived exclusive claim on one or more slots of a single
// court while the owner completes checkout. Holds are never renewed; they
// end by commit, release, or TTL expiry.
type Hold struct {
	ID         uuid.UUID   `json:"id"`
	CourtID    int64       `json:"courtId"`
	Starts     []time.Time `json:"starts"`
	Owner      string      `json:"-"`
	PriceCents int64       `json:"priceCents"`
	CreatedAt  time.Time   `json:"createdAt"`
	ExpiresAt  time.Time   `json:"expiresAt"`
	State      HoldState   `json:"state"`
}

// ExpiredAt reports whether the hold's TTL has elapsed at the given instant.
func (h *Hold) ExpiredAt(now time.Time) bool {
	return !now.Before(h.ExpiresAt)
}

// BookingStatus is the lifecycle state of a confirmed reservation.
type BookingStatus string

const (
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
	BookingCompleted BookingStatus = "completed"
	BookingNoShow    BookingStatus = "no_show"
)

// Booking is a committed hold. PriceCents is the snapshot taken at hold time
// and is never recomputed.
type Booking struct {
	ID          uuid.UUID     `json:"id"`
	CourtID     int64         `json:"courtId"`
	Starts      []time.Time   `json:"starts"`
	Owner       string        `json:"-"`
	PriceCents  int64         `json:"priceCents"`
	Status      BookingStatus `json:"status"`
	CreatedAt   time.Time     `json:"createdAt"`
	CancelledAt time.Time     `json:"cancelledAt,omitempty"`
}

// EarliestStart returns the start of the booking's first slot.
func (b *Booking) EarliestStart() time.Time {
	earliest := b.Starts[0]
	for _, s := range b.Starts[1:] {
		if s.Before(earliest) {
			earliest = s
		}
	}
	return earliest
}

// ScheduleChange is one staged operator edit: open or close a single slot.
type ScheduleChange struct {
	CourtID int64      `json:"courtId"`
	Start   time.Time  `json:"start"`
	Desired SlotStatus `json:"desired"` // SlotOpen or SlotClosed only
}
