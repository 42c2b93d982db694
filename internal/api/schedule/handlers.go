// internal/api/schedule/handlers.go
package schedule

import (
	"net/http"
	"strconv"
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

type stageRequest struct {
	CourtID   int64  `json:"courtId"`
	SlotStart string `json:"slotStart"`
	Status    string `json:"status"`
}

// POST /api/v1/schedule/changes
func HandleScheduleStage(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if engine == nil {
		logger.Error().Msg("Reservation engine not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	var req stageRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.CourtID <= 0 {
		http.Error(w, "Court ID is required", http.StatusBadRequest)
		return
	}
	start, err := time.Parse(time.RFC3339, req.SlotStart)
	if err != nil {
		http.Error(w, "Invalid slot start", http.StatusBadRequest)
		return
	}
	if _, err := engine.Courts.Get(req.CourtID); err != nil {
		apiutil.WriteEngineError(w, r, err)
		return
	}

	if err := engine.Schedule.Stage(req.CourtID, start, reservations.SlotStatus(req.Status)); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	pending := engine.Schedule.Pending(req.CourtID)
	if err := apiutil.WriteJSON(w, http.StatusOK, pending); err != nil {
		logger.Error().Err(err).Int64("court_id", req.CourtID).Msg("Failed to write pending changes response")
	}
}

type commitRequest struct {
	CourtID int64 `json:"courtId"`
}

// POST /api/v1/schedule/commit
//
// Applies the staged batch atomically. One past or held/booked target
// rejects the whole batch, itemizing the offending slots.
func HandleScheduleCommit(w http.ResponseWriter, r *http.Request) {
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
	if req.CourtID <= 0 {
		http.Error(w, "Court ID is required", http.StatusBadRequest)
		return
	}

	if err := engine.Schedule.Commit(r.Context(), req.CourtID); err != nil {
		apiutil.WriteEngineError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DELETE /api/v1/schedule/changes?court_id=...
func HandleScheduleDiscard(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if engine == nil {
		logger.Error().Msg("Reservation engine not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	courtID, err := strconv.ParseInt(r.URL.Query().Get("court_id"), 10, 64)
	if err != nil || courtID <= 0 {
		http.Error(w, "Court ID is required", http.StatusBadRequest)
		return
	}

	engine.Schedule.Discard(courtID)
	w.WriteHeader(http.StatusNoContent)
}
