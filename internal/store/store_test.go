package store_test

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/courtbook/courtbook/internal/reservations"
	"github.com/courtbook/courtbook/internal/testutil"
)

func TestCourtRoundTrip(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := t.Context()

	court := &reservations.Court{
		ID:              1,
		FacilityID:      1,
		Name:            "Court 1",
		HourlyRateCents: 2500,
		OpensAt:         "08:00",
		ClosesAt:        "21:00",
		Timezone:        "America/Chicago",
		Active:          true,
		AvailableFrom:   time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := db.SaveCourt(ctx, court); err != nil {
		t.Fatalf("save court: %v", err)
	}

	// Upsert replaces on the second write.
	court.HourlyRateCents = 3000
	if err := db.SaveCourt(ctx, court); err != nil {
		t.Fatalf("resave court: %v", err)
	}

	snap, err := db.LoadSnapshot(ctx)
	if err != nil {
		t.Fatalf("load snapshot: %v", err)
	}
	if len(snap.Courts) != 1 {
		t.Fatalf("courts = %d, want 1", len(snap.Courts))
	}
	got := snap.Courts[0]
	if got.HourlyRateCents != 3000 {
		t.Errorf("rate = %d, want 3000", got.HourlyRateCents)
	}
	if got.Timezone != "America/Chicago" {
		t.Errorf("timezone = %q, want America/Chicago", got.Timezone)
	}
	if !got.AvailableFrom.Equal(court.AvailableFrom) {
		t.Errorf("availableFrom = %v, want %v", got.AvailableFrom, court.AvailableFrom)
	}
}

func TestSlotUpsert(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := t.Context()

	court := &reservations.Court{ID: 1, FacilityID: 1, Name: "Court 1", HourlyRateCents: 2500,
		OpensAt: "08:00", ClosesAt: "21:00", Timezone: "UTC", Active: true}
	if err := db.SaveCourt(ctx, court); err != nil {
		t.Fatalf("save court: %v", err)
	}

	start := time.Date(2026, 3, 3, 9, 0, 0, 0, time.UTC)
	slots := []reservations.Slot{
		{CourtID: 1, Start: start, Status: reservations.SlotOpen},
		{CourtID: 1, Start: start.Add(time.Hour), Status: reservations.SlotClosed},
	}
	if err := db.SaveSlots(ctx, 1, slots); err != nil {
		t.Fatalf("save slots: %v", err)
	}

	slots[0].Status = reservations.SlotBooked
	if err := db.SaveSlots(ctx, 1, slots[:1]); err != nil {
		t.Fatalf("resave slot: %v", err)
	}

	snap, err := db.LoadSnapshot(ctx)
	if err != nil {
		t.Fatalf("load snapshot: %v", err)
	}
	if len(snap.Slots) != 2 {
		t.Fatalf("slots = %d, want 2", len(snap.Slots))
	}
	if snap.Slots[0].Status != reservations.SlotBooked {
		t.Errorf("slot status = %s, want %s", snap.Slots[0].Status, reservations.SlotBooked)
	}
	if !snap.Slots[0].Start.Equal(start) {
		t.Errorf("slot start = %v, want %v", snap.Slots[0].Start, start)
	}
}

func TestLoadSnapshot_ExpiresInFlightHolds(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := t.Context()

	court := &reservations.Court{ID: 1, FacilityID: 1, Name: "Court 1", HourlyRateCents: 2500,
		OpensAt: "08:00", ClosesAt: "21:00", Timezone: "UTC", Active: true}
	if err := db.SaveCourt(ctx, court); err != nil {
		t.Fatalf("save court: %v", err)
	}

	now := time.Now().UTC().Truncate(time.Second)
	hold := &reservations.Hold{
		ID:         uuid.New(),
		CourtID:    1,
		Starts:     []time.Time{now.Add(2 * time.Hour)},
		Owner:      "user-a",
		PriceCents: 2500,
		CreatedAt:  now,
		ExpiresAt:  now.Add(10 * time.Minute),
		State:      reservations.HoldActive,
	}
	if err := db.SaveHold(ctx, hold); err != nil {
		t.Fatalf("save hold: %v", err)
	}

	if _, err := db.LoadSnapshot(ctx); err != nil {
		t.Fatalf("load snapshot: %v", err)
	}

	var state string
	if err := db.QueryRowContext(ctx,
		`SELECT state FROM holds WHERE id = ?`, hold.ID.String()).Scan(&state); err != nil {
		t.Fatalf("read hold state: %v", err)
	}
	if state != string(reservations.HoldExpired) {
		t.Errorf("hold state after recovery = %q, want %q", state, reservations.HoldExpired)
	}
}

func TestBookingRoundTrip(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := t.Context()

	court := &reservations.Court{ID: 1, FacilityID: 1, Name: "Court 1", HourlyRateCents: 2500,
		OpensAt: "08:00", ClosesAt: "21:00", Timezone: "UTC", Active: true}
	if err := db.SaveCourt(ctx, court); err != nil {
		t.Fatalf("save court: %v", err)
	}

	now := time.Now().UTC().Truncate(time.Second)
	starts := []time.Time{now.Add(2 * time.Hour), now.Add(3 * time.Hour)}
	booking := &reservations.Booking{
		ID:         uuid.New(),
		CourtID:    1,
		Owner:      "user-a",
		PriceCents: 5000,
		Status:     reservations.BookingConfirmed,
		CreatedAt:  now,
		Starts:     starts,
	}
	if err := db.SaveBooking(ctx, booking); err != nil {
		t.Fatalf("save booking: %v", err)
	}
	if err := db.UpdateBookingStatus(ctx, booking.ID, reservations.BookingCancelled); err != nil {
		t.Fatalf("cancel booking: %v", err)
	}

	snap, err := db.LoadSnapshot(ctx)
	if err != nil {
		t.Fatalf("load snapshot: %v", err)
	}
	if len(snap.Bookings) != 1 {
		t.Fatalf("bookings = %d, want 1", len(snap.Bookings))
	}
	got := snap.Bookings[0]
	if got.Status != reservations.BookingCancelled {
		t.Errorf("status = %s, want %s", got.Status, reservations.BookingCancelled)
	}
	if got.CancelledAt.IsZero() {
		t.Error("cancelledAt should be stamped")
	}
	if len(got.Starts) != 2 || !got.Starts[0].Equal(starts[0]) || !got.Starts[1].Equal(starts[1]) {
		t.Errorf("starts = %v, want %v", got.Starts, starts)
	}
	if got.PriceCents != 5000 {
		t.Errorf("price = %d, want 5000", got.PriceCents)
	}
}
