package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/courtbook/courtbook/internal/reservations"
)

// SaveCourt upserts a court row.
func (db *DB) SaveCourt(ctx context.Context, court *reservations.Court) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO courts (id, facility_id, name, hourly_rate_cents, opens_at, closes_at, timezone, active, available_from)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			facility_id = excluded.facility_id,
			name = excluded.name,
			hourly_rate_cents = excluded.hourly_rate_cents,
			opens_at = excluded.opens_at,
			closes_at = excluded.closes_at,
			timezone = excluded.timezone,
			active = excluded.active,
			available_from = excluded.available_from`,
		court.ID, court.FacilityID, court.Name, court.HourlyRateCents,
		court.OpensAt, court.ClosesAt, court.Timezone, court.Active, court.AvailableFrom.UTC(),
	)
	if err != nil {
		return fmt.Errorf("save court: %w", err)
	}
	return nil
}

// SaveSlots upserts slot statuses for a court in one transaction.
func (db *DB) SaveSlots(ctx context.Context, courtID int64, slots []reservations.Slot) error {
	if len(slots) == 0 {
		return nil
	}
	return db.RunInTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO slots (court_id, start_time, status)
			VALUES (?, ?, ?)
			ON CONFLICT(court_id, start_time) DO UPDATE SET status = excluded.status`)
		if err != nil {
			return fmt.Errorf("prepare slot upsert: %w", err)
		}
		defer stmt.Close()

		for _, slot := range slots {
			if _, err := stmt.ExecContext(ctx, courtID, slot.Start.UTC(), string(slot.Status)); err != nil {
				return fmt.Errorf("upsert slot %s: %w", slot.Start.Format(time.RFC3339), err)
			}
		}
		return nil
	})
}

// SaveHold inserts a hold audit row.
func (db *DB) SaveHold(ctx context.Context, hold *reservations.Hold) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO holds (id, court_id, owner_token, price_cents, created_at, expires_at, state)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		hold.ID.String(), hold.CourtID, hold.Owner, hold.PriceCents,
		hold.CreatedAt.UTC(), hold.ExpiresAt.UTC(), string(hold.State),
	)
	if err != nil {
		return fmt.Errorf("save hold: %w", err)
	}
	return nil
}

// UpdateHoldState transitions a hold audit row.
func (db *DB) UpdateHoldState(ctx context.Context, id uuid.UUID, state reservations.HoldState) error {
	_, err := db.ExecContext(ctx, `UPDATE holds SET state = ? WHERE id = ?`, string(state), id.String())
	if err != nil {
		return fmt.Errorf("update hold state: %w", err)
	}
	return nil
}

// SaveBooking inserts a booking and its slot references in one transaction.
func (db *DB) SaveBooking(ctx context.Context, booking *reservations.Booking) error {
	return db.RunInTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO bookings (id, court_id, owner_token, price_cents, status, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			booking.ID.String(), booking.CourtID, booking.Owner, booking.PriceCents,
			string(booking.Status), booking.CreatedAt.UTC(),
		)
		if err != nil {
			return fmt.Errorf("insert booking: %w", err)
		}
		for _, start := range booking.Starts {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO booking_slots (booking_id, start_time) VALUES (?, ?)`,
				booking.ID.String(), start.UTC(),
			); err != nil {
				return fmt.Errorf("insert booking slot: %w", err)
			}
		}
		return nil
	})
}

// UpdateBookingStatus transitions a booking row and stamps cancellations.
func (db *DB) UpdateBookingStatus(ctx context.Context, id uuid.UUID, status reservations.BookingStatus) error {
	var err error
	if status == reservations.BookingCancelled {
		_, err = db.ExecContext(ctx,
			`UPDATE bookings SET status = ?, cancelled_at = ? WHERE id = ?`,
			string(status), time.Now().UTC(), id.String())
	} else {
		_, err = db.ExecContext(ctx,
			`UPDATE bookings SET status = ? WHERE id = ?`, string(status), id.String())
	}
	if err != nil {
		return fmt.Errorf("update booking status: %w", err)
	}
	return nil
}

// LoadSnapshot reads the durable state used to rebuild the engine at
// startup. Any hold still marked active is flipped to expired first: a hold
// that did not survive the process must never be assumed valid.
func (db *DB) LoadSnapshot(ctx context.Context) (*reservations.Snapshot, error) {
	if _, err := db.ExecContext(ctx,
		`UPDATE holds SET state = 'expired' WHERE state = 'active'`); err != nil {
		return nil, fmt.Errorf("expire in-flight holds: %w", err)
	}

	snap := &reservations.Snapshot{}

	courts, err := db.loadCourts(ctx)
	if err != nil {
		return nil, err
	}
	snap.Courts = courts

	slots, err := db.loadSlots(ctx)
	if err != nil {
		return nil, err
	}
	snap.Slots = slots

	bookings, err := db.loadBookings(ctx)
	if err != nil {
		return nil, err
	}
	snap.Bookings = bookings

	return snap, nil
}

func (db *DB) loadCourts(ctx context.Context) ([]*reservations.Court, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, facility_id, name, hourly_rate_cents, opens_at, closes_at, timezone, active, available_from
		FROM courts ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("load courts: %w", err)
	}
	defer rows.Close()

	var courts []*reservations.Court
	for rows.Next() {
		var court reservations.Court
		var availableFrom sql.NullTime
		if err := rows.Scan(&court.ID, &court.FacilityID, &court.Name, &court.HourlyRateCents,
			&court.OpensAt, &court.ClosesAt, &court.Timezone, &court.Active, &availableFrom); err != nil {
			return nil, fmt.Errorf("scan court: %w", err)
		}
		if availableFrom.Valid {
			court.AvailableFrom = availableFrom.Time.UTC()
		}
		courts = append(courts, &court)
	}
	return courts, rows.Err()
}

func (db *DB) loadSlots(ctx context.Context) ([]reservations.Slot, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT court_id, start_time, status FROM slots ORDER BY court_id, start_time`)
	if err != nil {
		return nil, fmt.Errorf("load slots: %w", err)
	}
	defer rows.Close()

	var slots []reservations.Slot
	for rows.Next() {
		var slot reservations.Slot
		var status string
		if err := rows.Scan(&slot.CourtID, &slot.Start, &status); err != nil {
			return nil, fmt.Errorf("scan slot: %w", err)
		}
		slot.Start = slot.Start.UTC()
		slot.Status = reservations.SlotStatus(status)
		slots = append(slots, slot)
	}
	return slots, rows.Err()
}

func (db *DB) loadBookings(ctx context.Context) ([]*reservations.Booking, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, court_id, owner_token, price_cents, status, created_at, cancelled_at
		FROM bookings ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("load bookings: %w", err)
	}
	defer rows.Close()

	var bookings []*reservations.Booking
	byID := make(map[string]*reservations.Booking)
	for rows.Next() {
		var booking reservations.Booking
		var id, status string
		var cancelledAt sql.NullTime
		if err := rows.Scan(&id, &booking.CourtID, &booking.Owner, &booking.PriceCents,
			&status, &booking.CreatedAt, &cancelledAt); err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		booking.ID, err = uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("parse booking id %q: %w", id, err)
		}
		booking.Status = reservations.BookingStatus(status)
		booking.CreatedAt = booking.CreatedAt.UTC()
		if cancelledAt.Valid {
			booking.CancelledAt = cancelledAt.Time.UTC()
		}
		bookings = append(bookings, &booking)
		byID[id] = &booking
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	slotRows, err := db.QueryContext(ctx, `
		SELECT booking_id, start_time FROM booking_slots ORDER BY booking_id, start_time`)
	if err != nil {
		return nil, fmt.Errorf("load booking slots: %w", err)
	}
	defer slotRows.Close()

	for slotRows.Next() {
		var id string
		var start time.Time
		if err := slotRows.Scan(&id, &start); err != nil {
			return nil, fmt.Errorf("scan booking slot: %w", err)
		}
		if booking, ok := byID[id]; ok {
			booking.Starts = append(booking.Starts, start.UTC())
		}
	}
	return bookings, slotRows.Err()
}
