package reservations

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// ScheduleEditor batches operator open/close edits to a court's calendar and
// commits them as one unit. Past slots are immutable, and slots someone is
// mid-checkout for (or has booked) can never be closed; any such target
// rejects the whole batch.
type ScheduleEditor struct {
	index *Index
	store Store
	clock Clock

	mu      sync.Mutex
	pending map[int64]map[int64]SlotStatus // courtID → slot start unix → desired
}

// NewScheduleEditor creates a schedule editor. A nil store discards writes;
// a nil clock uses system time.
func NewScheduleEditor(index *Index, store Store, clock Clock) *ScheduleEditor {
	if store == nil {
		store = nopStore{}
	}
	if clock == nil {
		clock = realClock{}
	}
	return &ScheduleEditor{
		index:   index,
		store:   store,
		clock:   clock,
		pending: make(map[int64]map[int64]SlotStatus),
	}
}

// Stage records a desired open/closed status for one slot. Nothing is
// applied until Commit.
func (e *ScheduleEditor) Stage(courtID int64, start time.Time, desired SlotStatus) error {
	if desired != SlotOpen && desired != SlotClosed {
		return fmt.Errorf("desired status must be %s or %s, got %s", SlotOpen, SlotClosed, desired)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	batch := e.pending[courtID]
	if batch == nil {
		batch = make(map[int64]SlotStatus)
		e.pending[courtID] = batch
	}
	batch[start.UTC().Unix()] = desired
	return nil
}

// Pending returns the staged changes for a court, ordered by slot start.
func (e *ScheduleEditor) Pending(courtID int64) []ScheduleChange {
	e.mu.Lock()
	defer e.mu.Unlock()

	var out []ScheduleChange
	for key, desired := range e.pending[courtID] {
		out = append(out, ScheduleChange{
			CourtID: courtID,
			Start:   time.Unix(key, 0).UTC(),
			Desired: desired,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}

// Discard drops a court's staged changes. Always legal, no side effects.
func (e *ScheduleEditor) Discard(courtID int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.pending, courtID)
}

// Commit validates and applies a court's staged batch atomically. A single
// past-slot target rejects the batch with ErrPastSlotImmutable; a single
// held or booked target rejects it with ErrConflictingActiveSlot. Both
// errors itemize the offending slots. On rejection the batch stays staged
// and no slot changes.
func (e *ScheduleEditor) Commit(ctx context.Context, courtID int64) error {
	e.mu.Lock()
	batch := e.pending[courtID]
	if len(batch) == 0 {
		e.mu.Unlock()
		return nil
	}
	changes := make(map[int64]SlotStatus, len(batch))
	for k, v := range batch {
		changes[k] = v
	}
	e.mu.Unlock()

	now := e.clock.Now()
	applied, err := e.index.applyScheduleBatch(courtID, changes, now)
	if err != nil {
		return err
	}

	e.mu.Lock()
	delete(e.pending, courtID)
	e.mu.Unlock()

	if err := e.store.SaveSlots(ctx, courtID, applied); err != nil {
		log.Ctx(ctx).Error().Err(err).Int64("court_id", courtID).Msg("Failed to persist schedule changes")
		return fmt.Errorf("persist schedule changes: %w", err)
	}
	log.Ctx(ctx).Info().Int64("court_id", courtID).Int("changes", len(applied)).Msg("Schedule batch committed")
	return nil
}

// applyScheduleBatch validates every change under the court lock, then
// applies them all. Either every change lands or none do.
func (ix *Index) applyScheduleBatch(courtID int64, changes map[int64]SlotStatus, now time.Time) ([]Slot, error) {
	ci := ix.court(courtID)

	ci.mu.Lock()
	defer ci.mu.Unlock()

	var past, active []SlotRef
	for key := range changes {
		start := time.Unix(key, 0).UTC()
		ref := SlotRef{CourtID: courtID, Start: start}
		if !start.After(now) {
			past = append(past, ref)
			continue
		}
		if st, ok := ci.slots[key]; ok {
			switch st.effective(now) {
			case SlotHeld, SlotBooked:
				active = append(active, ref)
			}
		}
	}
	if len(past) > 0 {
		sortRefs(past)
		return nil, conflict(ErrPastSlotImmutable, past...)
	}
	if len(active) > 0 {
		sortRefs(active)
		return nil, conflict(ErrConflictingActiveSlot, active...)
	}

	applied := make([]Slot, 0, len(changes))
	for key, desired := range changes {
		st, ok := ci.slots[key]
		if !ok {
			st = &slotState{status: SlotClosed}
			ci.slots[key] = st
		}
		st.status = desired
		applied = append(applied, Slot{CourtID: courtID, Start: time.Unix(key, 0).UTC(), Status: desired})
	}
	sortSlots(applied)
	return applied, nil
}

func sortRefs(refs []SlotRef) {
	sort.Slice(refs, func(i, j int) bool { return refs[i].Start.Before(refs[j].Start) })
}
