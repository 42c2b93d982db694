package reservations

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrSlotUnavailable means another caller holds or booked a requested
	// slot. Recoverable: re-query availability and reselect.
	ErrSlotUnavailable = errors.New("slot unavailable")

	// ErrHoldExpired means the checkout took longer than the hold TTL.
	// Recoverable: restart the selection flow.
	ErrHoldExpired = errors.New("hold expired")

	// ErrCrossCourtSelection means a single hold request spanned slots of
	// more than one court. Not retryable without changing the input.
	ErrCrossCourtSelection = errors.New("slots span more than one court")

	// ErrPastSlotImmutable means a schedule edit targeted a slot whose
	// start is already in the past.
	ErrPastSlotImmutable = errors.New("past slots cannot be modified")

	// ErrConflictingActiveSlot means a schedule edit targeted a slot that
	// is currently held or booked.
	ErrConflictingActiveSlot = errors.New("slot is held or booked")

	ErrHoldNotFound    = errors.New("hold not found")
	ErrBookingNotFound = errors.New("booking not found")
	ErrCourtNotFound   = errors.New("court not found")
	ErrCourtInactive   = errors.New("court is not active")

	// ErrNotCancellable means the booking is outside the cancellation
	// window or not in the confirmed state.
	ErrNotCancellable = errors.New("booking cannot be cancelled")

	// ErrInternalInconsistency indicates a slot transition that must
	// always succeed failed. It is never recovered silently; the request
	// fails and the condition is logged for investigation.
	ErrInternalInconsistency = errors.New("availability index inconsistency")
)

// ConflictError carries the slots that caused a rejection so callers can
// itemize them for the operator or shopper.
type ConflictError struct {
	Err   error
	Slots []SlotRef
}

func (e *ConflictError) Error() string {
	if len(e.Slots) == 0 {
		return e.Err.Error()
	}
	starts := make([]string, len(e.Slots))
	for i, s := range e.Slots {
		starts[i] = s.Start.Format(time.RFC3339)
	}
	return fmt.Sprintf("%s: %s", e.Err.Error(), strings.Join(starts, ", "))
}

func (e *ConflictError) Unwrap() error { return e.Err }

func conflict(err error, slots ...SlotRef) *ConflictError {
	return &ConflictError{Err: err, Slots: slots}
}
