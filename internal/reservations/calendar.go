package reservations

import (
	"fmt"
	"time"
)

const hoursLayout = "15:04"

// Calendar derives bookable hourly slots from a court's operating hours.
type Calendar struct {
	clock Clock
}

// NewCalendar creates a calendar. A nil clock uses system time.
func NewCalendar(clock Clock) *Calendar {
	if clock == nil {
		clock = realClock{}
	}
	return &Calendar{clock: clock}
}

// Generate returns one slot per hour between the court's opening and closing
// time-of-day for each calendar day in [from, to), evaluated in the court's
// timezone. Starts are returned in UTC, ordered.
func (c *Calendar) Generate(court *Court, from, to time.Time) ([]SlotRef, error) {
	loc, err := time.LoadLocation(court.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load court timezone: %w", err)
	}
	opens, err := time.Parse(hoursLayout, court.OpensAt)
	if err != nil {
		return nil, fmt.Errorf("parse opening time: %w", err)
	}
	closes, err := time.Parse(hoursLayout, court.ClosesAt)
	if err != nil {
		return nil, fmt.Errorf("parse closing time: %w", err)
	}
	if !opens.Before(closes) {
		return nil, fmt.Errorf("opening time %q is not before closing time %q", court.OpensAt, court.ClosesAt)
	}

	var refs []SlotRef
	day := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, loc)
	for day.Before(to) {
		start := time.Date(day.Year(), day.Month(), day.Day(), opens.Hour(), opens.Minute(), 0, 0, loc)
		end := time.Date(day.Year(), day.Month(), day.Day(), closes.Hour(), closes.Minute(), 0, 0, loc)
		for !start.Add(SlotDuration).After(end) {
			utc := start.UTC()
			if !utc.Before(from) && utc.Before(to) {
				refs = append(refs, SlotRef{CourtID: court.ID, Start: utc})
			}
			start = start.Add(SlotDuration)
		}
		day = day.AddDate(0, 0, 1)
	}
	return refs, nil
}

// RegenerationResult reports what a regeneration pass did. Conflicts are
// held or booked slots that fell outside the new operating window; they are
// preserved, not overwritten, and need operator attention.
type RegenerationResult struct {
	Added     int
	Closed    int
	Conflicts []Slot
}

// Regenerate diffs a court's operating window against the live index over
// [from, to). Slots newly inside the window default to open unless already
// held or booked; open slots now outside the window become closed; held and
// booked slots outside the window are reported as conflicts and left alone.
// Slots whose start is in the past are never touched.
func (c *Calendar) Regenerate(ix *Index, court *Court, from, to time.Time) (*RegenerationResult, error) {
	refs, err := c.Generate(court, from, to)
	if err != nil {
		return nil, err
	}
	now := c.clock.Now()

	inWindow := make(map[int64]struct{}, len(refs))
	for _, ref := range refs {
		inWindow[ref.Start.Unix()] = struct{}{}
	}

	result := &RegenerationResult{}
	for _, slot := range ix.Query(court.ID, from, to) {
		if !slot.Start.After(now) {
			continue
		}
		if _, ok := inWindow[slot.Start.Unix()]; ok {
			continue
		}
		switch slot.Status {
		case SlotHeld, SlotBooked:
			result.Conflicts = append(result.Conflicts, slot)
		case SlotOpen:
			ref := SlotRef{CourtID: court.ID, Start: slot.Start}
			if err := ix.Transition(ref, SlotOpen, SlotClosed); err != nil {
				// Lost a race to a fresh hold; that slot is now a conflict.
				result.Conflicts = append(result.Conflicts, Slot{CourtID: court.ID, Start: slot.Start, Status: SlotHeld})
				continue
			}
			result.Closed++
		}
	}

	for _, ref := range refs {
		if !ref.Start.After(now) {
			continue
		}
		switch ix.Status(ref) {
		case SlotClosed:
			ix.SetSlot(ref, SlotOpen)
			result.Added++
		}
	}
	return result, nil
}
