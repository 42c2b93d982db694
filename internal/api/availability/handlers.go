// internal/api/availability/handlers.go
package availability

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

const defaultQueryWindow = 7 * 24 * time.Hour

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(e *reservations.Engine) {
	if e == nil {
		return
	}
	engineOnce.Do(func() {
		engine = e
	})
}

// GET /api/v1/availability?court_id=...&from=...&to=...
//
// Expired holds read as open here even if the sweep has not run yet.
func HandleAvailabilityQuery(w http.ResponseWriter, r *http.Request) {
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
	if _, err := engine.Courts.Get(courtID); err != nil {
		apiutil.WriteEngineError(w, r, err)
		return
	}

	from, to, err := parseRange(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	slots := engine.Index.Query(courtID, from, to)
	if err := apiutil.WriteJSON(w, http.StatusOK, slots); err != nil {
		logger.Error().Err(err).Int64("court_id", courtID).Msg("Failed to write availability response")
	}
}

func parseRange(r *http.Request) (time.Time, time.Time, error) {
	now := time.Now().UTC()
	from, to := now, now.Add(defaultQueryWindow)

	if raw := r.URL.Query().Get("from"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return time.Time{}, time.Time{}, apiutil.FieldError{Field: "from", Reason: "must be RFC3339"}
		}
		from = parsed
		to = from.Add(defaultQueryWindow)
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return time.Time{}, time.Time{}, apiutil.FieldError{Field: "to", Reason: "must be RFC3339"}
		}
		to = parsed
	}
	if !from.Before(to) {
		return time.Time{}, time.Time{}, apiutil.FieldError{Field: "to", Reason: "must be after from"}
	}
	return from, to, nil
}
