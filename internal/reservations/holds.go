package reservations

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// DefaultHoldTTL bounds how long an abandoned checkout can keep slots off
// the market. Holds are never renewed.
const DefaultHoldTTL = 10 * time.Minute

// HoldManager grants and releases time-limited exclusive holds over
// contiguous slots of one court. Expiry is enforced lazily at every read and
// commit; SweepExpired only tidies the index afterwards.
type HoldManager struct {
	index  *Index
	courts *Courts
	store  Store
	clock  Clock
	ttl    time.Duration

	mu    sync.Mutex
	holds map[uuid.UUID]*Hold
}

// NewHoldManager creates a hold manager. A nil store discards the audit
// trail; a nil clock uses system time; a non-positive ttl uses
// DefaultHoldTTL.
func NewHoldManager(index *Index, courts *Courts, store Store, clock Clock, ttl time.Duration) *HoldManager {
	if store == nil {
		store = nopStore{}
	}
	if clock == nil {
		clock = realClock{}
	}
	if ttl <= 0 {
		ttl = DefaultHoldTTL
	}
	return &HoldManager{
		index:  index,
		courts: courts,
		store:  store,
		clock:  clock,
		ttl:    ttl,
		holds:  make(map[uuid.UUID]*Hold),
	}
}

// TTL returns the fixed hold lifetime.
func (m *HoldManager) TTL() time.Duration { return m.ttl }

// Acquire claims every requested slot for the owner, or none of them. All
// slots must belong to the same active court. The returned hold carries a
// price snapshot of rate × hours taken now, not at commit time.
func (m *HoldManager) Acquire(ctx context.Context, refs []SlotRef, owner string) (*Hold, error) {
	if len(refs) == 0 {
		return nil, fmt.Errorf("no slots requested")
	}
	if owner == "" {
		return nil, fmt.Errorf("owner token is required")
	}
	courtID := refs[0].CourtID
	for _, ref := range refs[1:] {
		if ref.CourtID != courtID {
			return nil, ErrCrossCourtSelection
		}
	}

	court, err := m.courts.Get(courtID)
	if err != nil {
		return nil, err
	}
	if !court.Active {
		return nil, ErrCourtInactive
	}

	starts := make([]time.Time, len(refs))
	for i, ref := range refs {
		starts[i] = ref.Start.UTC()
	}
	sort.Slice(starts, func(i, j int) bool { return starts[i].Before(starts[j]) })
	for i, start := range starts[1:] {
		if start.Equal(starts[i]) {
			return nil, fmt.Errorf("duplicate slot start %s", start.Format(time.RFC3339))
		}
	}

	now := m.clock.Now()
	hold := &Hold{
		ID:         uuid.New(),
		CourtID:    courtID,
		Starts:     starts,
		Owner:      owner,
		PriceCents: court.HourlyRateCents * int64(len(starts)),
		CreatedAt:  now,
		ExpiresAt:  now.Add(m.ttl),
		State:      HoldActive,
	}

	if err := m.index.AcquireHold(courtID, starts, hold.ID, hold.ExpiresAt); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.holds[hold.ID] = hold
	m.mu.Unlock()

	if err := m.store.SaveHold(ctx, hold); err != nil {
		// The hold is live in the index either way; losing the audit row
		// does not affect exclusivity.
		log.Ctx(ctx).Error().Err(err).Str("hold_id", hold.ID.String()).Msg("Failed to persist hold")
	}
	return hold, nil
}

// Get returns the hold with the given ID.
func (m *HoldManager) Get(id uuid.UUID) (*Hold, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	hold, ok := m.holds[id]
	if !ok {
		return nil, ErrHoldNotFound
	}
	return hold, nil
}

// Release returns the hold's slots to open. Releasing an unknown, already
// released, expired, or committed hold is a no-op, never an error.
func (m *HoldManager) Release(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	hold, ok := m.holds[id]
	if !ok || hold.State != HoldActive {
		m.mu.Unlock()
		return nil
	}
	hold.State = HoldReleased
	m.mu.Unlock()

	m.index.ReleaseHold(hold.CourtID, hold.Starts, hold.ID)
	if err := m.store.UpdateHoldState(ctx, id, HoldReleased); err != nil {
		log.Ctx(ctx).Error().Err(err).Str("hold_id", id.String()).Msg("Failed to persist hold release")
	}
	return nil
}

// take hands an active, unexpired hold to the committer and marks it
// committed. The index transitions are the caller's responsibility.
func (m *HoldManager) take(id uuid.UUID, now time.Time) (*Hold, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	hold, ok := m.holds[id]
	if !ok {
		return nil, ErrHoldNotFound
	}
	switch hold.State {
	case HoldReleased, HoldExpired:
		return nil, ErrHoldExpired
	case HoldCommitted:
		return nil, ErrHoldExpired
	}
	if hold.ExpiredAt(now) {
		hold.State = HoldExpired
		return nil, ErrHoldExpired
	}
	hold.State = HoldCommitted
	return hold, nil
}

// untake reverts take after a failed commit so the hold stays usable for
// its remaining TTL.
func (m *HoldManager) untake(id uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if hold, ok := m.holds[id]; ok && hold.State == HoldCommitted {
		hold.State = HoldActive
	}
}

// SweepExpired walks every court, releases slots whose hold expiry has
// passed, and drops terminated holds from memory. It exists for tidiness;
// correctness never depends on it because reads and commits check expiry
// themselves.
func (m *HoldManager) SweepExpired(ctx context.Context) int {
	now := m.clock.Now()
	swept := 0
	for _, courtID := range m.index.courtIDs() {
		for _, holdID := range m.index.sweepCourt(courtID, now) {
			swept++
			m.mu.Lock()
			if hold, ok := m.holds[holdID]; ok && hold.State == HoldActive {
				hold.State = HoldExpired
			}
			m.mu.Unlock()
			if err := m.store.UpdateHoldState(ctx, holdID, HoldExpired); err != nil {
				log.Ctx(ctx).Error().Err(err).Str("hold_id", holdID.String()).Msg("Failed to persist hold expiry")
			}
		}
	}

	m.mu.Lock()
	for id, hold := range m.holds {
		if hold.State == HoldActive && hold.ExpiredAt(now) {
			hold.State = HoldExpired
		}
		if hold.State != HoldActive {
			delete(m.holds, id)
		}
	}
	m.mu.Unlock()

	if swept > 0 {
		log.Ctx(ctx).Info().Int("holds", swept).Msg("Swept expired holds")
	}
	return swept
}
