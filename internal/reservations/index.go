package reservations

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// slotState is the per-slot record inside the index. For held slots it also
// carries the owning hold and its expiry so reads can treat an expired hold
// as open without waiting for the sweep.
type slotState struct {
	status     SlotStatus
	holdID     uuid.UUID
	holdExpiry time.Time
}

// courtIndex holds all generated slots of one court behind one mutex.
// Operations on different courts never contend.
type courtIndex struct {
	mu    sync.Mutex
	slots map[int64]*slotState // keyed by slot start, unix seconds UTC
}

// Index is the availability source of truth. Every status change anywhere in
// the engine goes through its compare-and-swap transitions; no caller may
// set a status unconditionally. This is the single point that prevents
// double booking.
type Index struct {
	mu     sync.RWMutex
	courts map[int64]*courtIndex
	clock  Clock
}

// NewIndex creates an empty availability index. A nil clock uses system time.
func NewIndex(clock Clock) *Index {
	if clock == nil {
		clock = realClock{}
	}
	return &Index{
		courts: make(map[int64]*courtIndex),
		clock:  clock,
	}
}

func (ix *Index) court(courtID int64) *courtIndex {
	ix.mu.RLock()
	ci := ix.courts[courtID]
	ix.mu.RUnlock()
	if ci != nil {
		return ci
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ci = ix.courts[courtID]; ci == nil {
		ci = &courtIndex{slots: make(map[int64]*slotState)}
		ix.courts[courtID] = ci
	}
	return ci
}

// effective returns the slot's status after lazy expiry: a held slot whose
// hold has passed its expiry reads as open, regardless of whether the sweep
// has run. Must be called with the court mutex held.
func (st *slotState) effective(now time.Time) SlotStatus {
	if st.status == SlotHeld && !now.Before(st.holdExpiry) {
		st.status = SlotOpen
		st.holdID = uuid.Nil
		st.holdExpiry = time.Time{}
	}
	return st.status
}

// Status returns the current status of one slot. Slots that were never
// generated read as closed.
func (ix *Index) Status(ref SlotRef) SlotStatus {
	ci := ix.court(ref.CourtID)
	now := ix.clock.Now()

	ci.mu.Lock()
	defer ci.mu.Unlock()

	st, ok := ci.slots[ref.Start.Unix()]
	if !ok {
		return SlotClosed
	}
	return st.effective(now)
}

// Query returns every generated slot of a court with a start in [from, to),
// ordered by start.
func (ix *Index) Query(courtID int64, from, to time.Time) []Slot {
	ci := ix.court(courtID)
	now := ix.clock.Now()

	ci.mu.Lock()
	defer ci.mu.Unlock()

	var out []Slot
	for key, st := range ci.slots {
		start := time.Unix(key, 0).UTC()
		if start.Before(from) || !start.Before(to) {
			continue
		}
		out = append(out, Slot{CourtID: courtID, Start: start, Status: st.effective(now)})
	}
	sortSlots(out)
	return out
}

// Transition performs a compare-and-swap of a slot's status. It fails with
// ErrSlotUnavailable (wrapped in a ConflictError naming the slot) when the
// actual status does not match the expected prior status.
func (ix *Index) Transition(ref SlotRef, from, to SlotStatus) error {
	ci := ix.court(ref.CourtID)
	now := ix.clock.Now()

	ci.mu.Lock()
	defer ci.mu.Unlock()
	return ci.transitionLocked(ref, from, to, now)
}

func (ci *courtIndex) transitionLocked(ref SlotRef, from, to SlotStatus, now time.Time) error {
	st, ok := ci.slots[ref.Start.Unix()]
	if !ok {
		if from != SlotClosed {
			return conflict(ErrSlotUnavailable, ref)
		}
		st = &slotState{status: SlotClosed}
		ci.slots[ref.Start.Unix()] = st
	}
	if st.effective(now) != from {
		return conflict(ErrSlotUnavailable, ref)
	}
	st.status = to
	if to != SlotHeld {
		st.holdID = uuid.Nil
		st.holdExpiry = time.Time{}
	}
	return nil
}

// AcquireHold transitions open slots to held for the given hold, all under
// one court lock. On the first unavailable slot nothing is changed and the
// conflicting slot is reported; a partial hold is never left behind.
func (ix *Index) AcquireHold(courtID int64, starts []time.Time, holdID uuid.UUID, expiresAt time.Time) error {
	ci := ix.court(courtID)
	now := ix.clock.Now()

	ci.mu.Lock()
	defer ci.mu.Unlock()

	var taken []*slotState
	for _, start := range starts {
		st, ok := ci.slots[start.Unix()]
		if !ok || st.effective(now) != SlotOpen {
			// Roll back the transitions already made for this request.
			for _, t := range taken {
				t.status = SlotOpen
				t.holdID = uuid.Nil
				t.holdExpiry = time.Time{}
			}
			return conflict(ErrSlotUnavailable, SlotRef{CourtID: courtID, Start: start})
		}
		st.status = SlotHeld
		st.holdID = holdID
		st.holdExpiry = expiresAt
		taken = append(taken, st)
	}
	return nil
}

// ReleaseHold returns the hold's slots to open. Slots no longer owned by
// this hold (already committed, expired and reassigned, or never held) are
// skipped, which makes release idempotent.
func (ix *Index) ReleaseHold(courtID int64, starts []time.Time, holdID uuid.UUID) {
	ci := ix.court(courtID)

	ci.mu.Lock()
	defer ci.mu.Unlock()

	for _, start := range starts {
		st, ok := ci.slots[start.Unix()]
		if !ok || st.status != SlotHeld || st.holdID != holdID {
			continue
		}
		st.status = SlotOpen
		st.holdID = uuid.Nil
		st.holdExpiry = time.Time{}
	}
}

// CommitHold transitions the hold's slots held→booked. Every slot must still
// be owned by the hold and unexpired; anything else means the exclusivity
// invariant was violated and the whole commit fails with
// ErrInternalInconsistency, with prior transitions rolled back.
func (ix *Index) CommitHold(courtID int64, starts []time.Time, holdID uuid.UUID) error {
	ci := ix.court(courtID)
	now := ix.clock.Now()

	ci.mu.Lock()
	defer ci.mu.Unlock()

	var booked []*slotState
	for _, start := range starts {
		st, ok := ci.slots[start.Unix()]
		if !ok || st.effective(now) != SlotHeld || st.holdID != holdID {
			for _, b := range booked {
				b.status = SlotHeld
				b.holdID = holdID
			}
			return conflict(ErrInternalInconsistency, SlotRef{CourtID: courtID, Start: start})
		}
		st.status = SlotBooked
		st.holdID = uuid.Nil
		st.holdExpiry = time.Time{}
		booked = append(booked, st)
	}
	return nil
}

// SetSlot places a slot directly into the index. Used only when rebuilding
// from a snapshot and by the calendar when generating new slots; never for
// runtime mutation.
func (ix *Index) SetSlot(ref SlotRef, status SlotStatus) {
	ci := ix.court(ref.CourtID)

	ci.mu.Lock()
	defer ci.mu.Unlock()
	ci.slots[ref.Start.Unix()] = &slotState{status: status}
}

// sweepCourt releases every held slot of one court whose hold expiry has
// passed and returns the IDs of the holds that were swept.
func (ix *Index) sweepCourt(courtID int64, now time.Time) []uuid.UUID {
	ci := ix.court(courtID)

	ci.mu.Lock()
	defer ci.mu.Unlock()

	var swept []uuid.UUID
	seen := make(map[uuid.UUID]struct{})
	for _, st := range ci.slots {
		if st.status != SlotHeld || now.Before(st.holdExpiry) {
			continue
		}
		if _, ok := seen[st.holdID]; !ok {
			seen[st.holdID] = struct{}{}
			swept = append(swept, st.holdID)
		}
		st.status = SlotOpen
		st.holdID = uuid.Nil
		st.holdExpiry = time.Time{}
	}
	return swept
}

// courtIDs returns the IDs of all courts known to the index.
func (ix *Index) courtIDs() []int64 {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	ids := make([]int64, 0, len(ix.courts))
	for id := range ix.courts {
		ids = append(ids, id)
	}
	return ids
}

func sortSlots(slots []Slot) {
	sort.Slice(slots, func(i, j int) bool { return slots[i].Start.Before(slots[j].Start) })
}
