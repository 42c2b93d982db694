// internal/api/courts/handlers.go
package courts

import (
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/courtbook/courtbook/internal/api/apiutil"
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

type courtRequest struct {
	FacilityID      int64  `json:"facilityId"`
	Name            string `json:"name"`
	HourlyRateCents int64  `json:"hourlyRateCents"`
	OpensAt         string `json:"opensAt"`
	ClosesAt        string `json:"closesAt"`
	Timezone        string `json:"timezone"`
	Active          *bool  `json:"active,omitempty"`
	AvailableFrom   string `json:"availableFrom,omitempty"`
}

func (req *courtRequest) toCourt(id int64) (*reservations.Court, error) {
	court := &reservations.Court{
		ID:              id,
		FacilityID:      req.FacilityID,
		Name:            req.Name,
		HourlyRateCents: req.HourlyRateCents,
		OpensAt:         req.OpensAt,
		ClosesAt:        req.ClosesAt,
		Timezone:        req.Timezone,
		Active:          true,
	}
	if req.Active != nil {
		court.Active = *req.Active
	}
	if req.AvailableFrom != "" {
		from, err := time.Parse(time.RFC3339, req.AvailableFrom)
		if err != nil {
			return nil, apiutil.FieldError{Field: "availableFrom", Reason: "must be RFC3339"}
		}
		court.AvailableFrom = from
	}
	return court, nil
}

// POST /api/v1/courts
func HandleCourtCreate(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if engine == nil {
		logger.Error().Msg("Reservation engine not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	var req courtRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	court, err := req.toCourt(0)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	created, err := engine.CreateCourt(r.Context(), court)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	logger.Info().Int64("court_id", created.ID).Str("name", created.Name).Msg("Court created")
	if err := apiutil.WriteJSON(w, http.StatusCreated, created); err != nil {
		logger.Error().Err(err).Int64("court_id", created.ID).Msg("Failed to write court response")
	}
}

// GET /api/v1/courts
func HandleCourtsList(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if engine == nil {
		logger.Error().Msg("Reservation engine not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, engine.Courts.List()); err != nil {
		logger.Error().Err(err).Msg("Failed to write courts response")
	}
}

type courtUpdateResponse struct {
	Court     *reservations.Court `json:"court"`
	Added     int                 `json:"added"`
	Closed    int                 `json:"closed"`
	Conflicts []reservations.Slot `json:"conflicts,omitempty"`
}

// PATCH /api/v1/courts/{id}
//
// Rate and hours edits regenerate the court's slot window. Held or booked
// slots that no longer fit the new hours come back as conflicts for the
// operator; they are never silently discarded.
func HandleCourtUpdate(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if engine == nil {
		logger.Error().Msg("Reservation engine not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	id, err := apiutil.ParseID(r.PathValue("id"))
	if err != nil {
		http.Error(w, "Invalid court ID", http.StatusBadRequest)
		return
	}
	if _, err := engine.Courts.Get(id); err != nil {
		apiutil.WriteEngineError(w, r, err)
		return
	}

	var req courtRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	court, err := req.toCourt(id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := engine.UpdateCourt(r.Context(), court)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	logger.Info().
		Int64("court_id", id).
		Int("conflicts", len(result.Conflicts)).
		Msg("Court updated")
	resp := courtUpdateResponse{Court: court, Added: result.Added, Closed: result.Closed, Conflicts: result.Conflicts}
	if err := apiutil.WriteJSON(w, http.StatusOK, resp); err != nil {
		logger.Error().Err(err).Int64("court_id", id).Msg("Failed to write court response")
	}
}
