// internal/api/bookings/handlers.go
package bookings

import (
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/courtbook/courtbook/internal/api/apiutil"
	"github.com/courtbook/courtbook/internal/api/holds"
	"github.com/courtbook/courtbook/internal/reservations"
)

var (
	engine     *reservations.Engine
	engineOnce sync.Once
)

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(e *reservations.Engine) {
	if e == nil {
		return
	}
	engineOnce.Do(func() {
		engine = e
	})
}

type commitRequest struct {
	HoldID string `json:"holdId"`
}

// POST /api/v1/bookings
//
// Called by the payment collaborator after capture succeeds; the hold's
// price snapshot was the charged amount.
func HandleBookingCommit(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if engine == nil {
		logger.Error().Msg("Reservation engine not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	var req commitRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	holdID, err := uuid.Parse(req.HoldID)
	if err != nil {
		http.Error(w, "Invalid hold ID", http.StatusBadRequest)
		return
	}

	booking, err := engine.Bookings.Commit(r.Context(), holdID)
	if err != nil {
		apiutil.WriteEngineError(w, r, err)
		return
	}

	logger.Info().
		Str("booking_id", booking.ID.String()).
		Int64("court_id", booking.CourtID).
		Int64("price_cents", booking.PriceCents).
		Msg("Booking committed")
	if err := apiutil.WriteJSON(w, http.StatusCreated, booking); err != nil {
		logger.Error().Err(err).Str("booking_id", booking.ID.String()).Msg("Failed to write booking response")
	}
}

// POST /api/v1/bookings/{id}/cancel
func HandleBookingCancel(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if engine == nil {
		logger.Error().Msg("Reservation engine not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "Invalid booking ID", http.StatusBadRequest)
		return
	}

	if err := engine.Bookings.Cancel(r.Context(), id); err != nil {
		apiutil.WriteEngineError(w, r, err)
		return
	}

	logger.Info().Str("booking_id", id.String()).Msg("Booking cancelled")
	booking, err := engine.Bookings.Get(id)
	if err != nil {
		apiutil.WriteEngineError(w, r, err)
		return
	}
	if err := apiutil.WriteJSON(w, http.StatusOK, booking); err != nil {
		logger.Error().Err(err).Str("booking_id", id.String()).Msg("Failed to write booking response")
	}
}

// GET /api/v1/bookings/{id}
func HandleBookingGet(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if engine == nil {
		logger.Error().Msg("Reservation engine not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "Invalid booking ID", http.StatusBadRequest)
		return
	}

	booking, err := engine.Bookings.Get(id)
	if err != nil {
		apiutil.WriteEngineError(w, r, err)
		return
	}
	if err := apiutil.WriteJSON(w, http.StatusOK, booking); err != nil {
		logger.Error().Err(err).Str("booking_id", id.String()).Msg("Failed to write booking response")
	}
}

// GET /api/v1/bookings
//
// Lists the calling owner's bookings, newest first.
func HandleBookingsList(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if engine == nil {
		logger.Error().Msg("Reservation engine not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	owner := strings.TrimSpace(r.Header.Get(holds.OwnerTokenHeader))
	if owner == "" {
		http.Error(w, "Owner token is required", http.StatusBadRequest)
		return
	}

	list := engine.Bookings.ListByOwner(owner)
	if err := apiutil.WriteJSON(w, http.StatusOK, list); err != nil {
		logger.Error().Err(err).Msg("Failed to write bookings response")
	}
}
