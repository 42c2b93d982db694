// internal/api/holds/handlers.go
package holds

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/courtbook/courtbook/internal/api/apiutil"
	"github.com/courtbook/courtbook/internal/ratelimit"
	"github.com/courtbook/courtbook/internal/reservations"
)

var (
	engine     *reservations.Engine
	limiter    *ratelimit.Limiter
	engineOnce sync.Once
)

// OwnerTokenHeader carries the opaque caller identity issued by the
// authentication collaborator. It is never validated here.
const OwnerTokenHeader = "X-Owner-Token"

// InitHandlers must be called during server startup before handling requests.
// A nil limiter disables acquisition throttling.
func InitHandlers(e *reservations.Engine, l *ratelimit.Limiter) {
	if e == nil {
		return
	}
	engineOnce.Do(func() {
		engine = e
		limiter = l
	})
}

type acquireRequest struct {
	CourtID    int64    `json:"courtId"`
	SlotStarts []string `json:"slotStarts"`
}

// POST /api/v1/holds
func HandleHoldAcquire(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if engine == nil {
		logger.Error().Msg("Reservation engine not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	owner := strings.TrimSpace(r.Header.Get(OwnerTokenHeader))
	if owner == "" {
		http.Error(w, "Owner token is required", http.StatusBadRequest)
		return
	}

	ip := ratelimit.GetClientIP(r, false)
	if limiter != nil {
		if res := limiter.CheckAcquire(owner, ip); !res.Allowed {
			ratelimit.LogRateLimitExceeded(owner, ip, res.Reason)
			w.Header().Set("Retry-After", strconv.Itoa(int(res.RetryAfter.Seconds())))
			http.Error(w, "Too many hold requests", http.StatusTooManyRequests)
			return
		}
	}

	var req acquireRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.CourtID <= 0 {
		http.Error(w, "Court ID is required", http.StatusBadRequest)
		return
	}
	if len(req.SlotStarts) == 0 {
		http.Error(w, "At least one slot is required", http.StatusBadRequest)
		return
	}

	refs := make([]reservations.SlotRef, len(req.SlotStarts))
	for i, raw := range req.SlotStarts {
		start, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			http.Error(w, "Invalid slot start: "+raw, http.StatusBadRequest)
			return
		}
		refs[i] = reservations.SlotRef{CourtID: req.CourtID, Start: start}
	}

	hold, err := engine.Holds.Acquire(r.Context(), refs, owner)
	if err != nil {
		apiutil.WriteEngineError(w, r, err)
		return
	}
	if limiter != nil {
		limiter.RecordAcquire(owner, ip)
	}

	logger.Info().
		Str("hold_id", hold.ID.String()).
		Int64("court_id", hold.CourtID).
		Int("slots", len(hold.Starts)).
		Time("expires_at", hold.ExpiresAt).
		Msg("Hold acquired")
	if err := apiutil.WriteJSON(w, http.StatusCreated, hold); err != nil {
		logger.Error().Err(err).Str("hold_id", hold.ID.String()).Msg("Failed to write hold response")
	}
}

// DELETE /api/v1/holds/{id}
func HandleHoldRelease(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if engine == nil {
		logger.Error().Msg("Reservation engine not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "Invalid hold ID", http.StatusBadRequest)
		return
	}

	// Release is idempotent; unknown and already-terminated holds are
	// no-ops by contract.
	if err := engine.Holds.Release(r.Context(), id); err != nil {
		apiutil.WriteEngineError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
