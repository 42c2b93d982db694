package reservations

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Courts is the in-memory registry of courts, loaded from the store at
// startup and written through on change.
type Courts struct {
	store Store

	mu     sync.RWMutex
	byID   map[int64]*Court
	nextID int64
}

// NewCourts creates an empty registry. A nil store discards writes.
func NewCourts(store Store) *Courts {
	if store == nil {
		store = nopStore{}
	}
	return &Courts{
		store:  store,
		byID:   make(map[int64]*Court),
		nextID: 1,
	}
}

// Create validates and registers a new court.
func (c *Courts) Create(ctx context.Context, court *Court) (*Court, error) {
	if err := validateCourt(court); err != nil {
		return nil, err
	}

	c.mu.Lock()
	if court.ID == 0 {
		court.ID = c.nextID
	}
	if court.ID >= c.nextID {
		c.nextID = court.ID + 1
	}
	stored := *court
	c.byID[court.ID] = &stored
	c.mu.Unlock()

	if err := c.store.SaveCourt(ctx, court); err != nil {
		return nil, fmt.Errorf("persist court: %w", err)
	}
	return court, nil
}

// Update replaces a court's mutable fields (rate, hours, active flag).
func (c *Courts) Update(ctx context.Context, court *Court) error {
	if err := validateCourt(court); err != nil {
		return err
	}

	c.mu.Lock()
	if _, ok := c.byID[court.ID]; !ok {
		c.mu.Unlock()
		return ErrCourtNotFound
	}
	stored := *court
	c.byID[court.ID] = &stored
	c.mu.Unlock()

	if err := c.store.SaveCourt(ctx, court); err != nil {
		return fmt.Errorf("persist court: %w", err)
	}
	return nil
}

// Get returns a copy of the court with the given ID.
func (c *Courts) Get(id int64) (*Court, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	court, ok := c.byID[id]
	if !ok {
		return nil, ErrCourtNotFound
	}
	copied := *court
	return &copied, nil
}

// List returns all courts ordered by ID.
func (c *Courts) List() []*Court {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]*Court, 0, len(c.byID))
	for _, court := range c.byID {
		copied := *court
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// restore registers a court from a snapshot without writing back.
func (c *Courts) restore(court *Court) {
	c.mu.Lock()
	defer c.mu.Unlock()
	stored := *court
	c.byID[court.ID] = &stored
	if court.ID >= c.nextID {
		c.nextID = court.ID + 1
	}
}

func validateCourt(court *Court) error {
	if court == nil {
		return fmt.Errorf("court is required")
	}
	if court.Name == "" {
		return fmt.Errorf("court name is required")
	}
	if court.HourlyRateCents <= 0 {
		return fmt.Errorf("hourly rate must be positive")
	}
	if court.Timezone == "" {
		court.Timezone = "UTC"
	}
	if _, err := time.LoadLocation(court.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", court.Timezone, err)
	}
	if _, err := time.Parse(hoursLayout, court.OpensAt); err != nil {
		return fmt.Errorf("invalid opening time %q", court.OpensAt)
	}
	if _, err := time.Parse(hoursLayout, court.ClosesAt); err != nil {
		return fmt.Errorf("invalid closing time %q", court.ClosesAt)
	}
	return nil
}
