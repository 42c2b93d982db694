package apiutil

import (
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/courtbook/courtbook/internal/reservations"
)

type errorResponse struct {
	Error string   `json:"error"`
	Code  string   `json:"code"`
	Slots []string `json:"slots,omitempty"`
}

// WriteEngineError maps reservation engine errors to HTTP responses so the
// UI can distinguish "reselect", "restart checkout", and "fix your input"
// outcomes. Conflict errors itemize the offending slot starts.
func WriteEngineError(w http.ResponseWriter, r *http.Request, err error) {
	resp := errorResponse{Error: err.Error()}
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, reservations.ErrSlotUnavailable):
		status, resp.Code = http.StatusConflict, "slot_unavailable"
	case errors.Is(err, reservations.ErrHoldExpired):
		status, resp.Code = http.StatusGone, "hold_expired"
	case errors.Is(err, reservations.ErrCrossCourtSelection):
		status, resp.Code = http.StatusBadRequest, "cross_court_selection"
	case errors.Is(err, reservations.ErrPastSlotImmutable):
		status, resp.Code = http.StatusUnprocessableEntity, "past_slot_immutable"
	case errors.Is(err, reservations.ErrConflictingActiveSlot):
		status, resp.Code = http.StatusConflict, "conflicting_active_slot"
	case errors.Is(err, reservations.ErrNotCancellable):
		status, resp.Code = http.StatusUnprocessableEntity, "not_cancellable"
	case errors.Is(err, reservations.ErrHoldNotFound),
		errors.Is(err, reservations.ErrBookingNotFound),
		errors.Is(err, reservations.ErrCourtNotFound):
		status, resp.Code = http.StatusNotFound, "not_found"
	case errors.Is(err, reservations.ErrCourtInactive):
		status, resp.Code = http.StatusUnprocessableEntity, "court_inactive"
	case errors.Is(err, reservations.ErrInternalInconsistency):
		resp.Code = "internal_inconsistency"
		log.Ctx(r.Context()).Error().Err(err).Msg("Availability index inconsistency")
	default:
		resp.Code = "internal_error"
		resp.Error = "Internal Server Error"
		log.Ctx(r.Context()).Error().Err(err).Msg("Unhandled engine error")
	}

	var conflictErr *reservations.ConflictError
	if errors.As(err, &conflictErr) {
		for _, slot := range conflictErr.Slots {
			resp.Slots = append(resp.Slots, slot.Start.Format(time.RFC3339))
		}
	}

	if writeErr := WriteJSON(w, status, resp); writeErr != nil {
		log.Ctx(r.Context()).Error().Err(writeErr).Msg("Failed to write error response")
	}
}
