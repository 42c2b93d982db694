// cmd/server/server.go
package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/courtbook/courtbook/internal/api"
	"github.com/courtbook/courtbook/internal/api/availability"
	"github.com/courtbook/courtbook/internal/api/bookings"
	"github.com/courtbook/courtbook/internal/api/courts"
	"github.com/courtbook/courtbook/internal/api/holds"
	"github.com/courtbook/courtbook/internal/api/schedule"
	"github.com/courtbook/courtbook/internal/config"
	"github.com/courtbook/courtbook/internal/ratelimit"
	"github.com/courtbook/courtbook/internal/reservations"
)

func newServer(cfg *config.Config, engine *reservations.Engine, limiter *ratelimit.Limiter) *http.Server {
	router := http.NewServeMux()

	// Setup middleware chain
	handler := api.ChainMiddleware(
		router,
		api.WithLogging,
		api.WithRecovery,
		api.WithRequestID,
	)

	registerRoutes(router, engine, limiter)

	return &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func registerRoutes(mux *http.ServeMux, engine *reservations.Engine, limiter *ratelimit.Limiter) {
	courts.InitHandlers(engine)
	availability.InitHandlers(engine)
	holds.InitHandlers(engine, limiter)
	bookings.InitHandlers(engine)
	schedule.InitHandlers(engine)

	// Health check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Court management
	mux.HandleFunc("POST /api/v1/courts", courts.HandleCourtCreate)
	mux.HandleFunc("GET /api/v1/courts", courts.HandleCourtsList)
	mux.HandleFunc("PATCH /api/v1/courts/{id}", courts.HandleCourtUpdate)

	// Availability
	mux.HandleFunc("GET /api/v1/availability", availability.HandleAvailabilityQuery)

	// Checkout holds
	mux.HandleFunc("POST /api/v1/holds", holds.HandleHoldAcquire)
	mux.HandleFunc("DELETE /api/v1/holds/{id}", holds.HandleHoldRelease)

	// Bookings
	mux.HandleFunc("POST /api/v1/bookings", bookings.HandleBookingCommit)
	mux.HandleFunc("GET /api/v1/bookings", bookings.HandleBookingsList)
	mux.HandleFunc("GET /api/v1/bookings/{id}", bookings.HandleBookingGet)
	mux.HandleFunc("POST /api/v1/bookings/{id}/cancel", bookings.HandleBookingCancel)

	// Operator schedule edits
	mux.HandleFunc("POST /api/v1/schedule/changes", schedule.HandleScheduleStage)
	mux.HandleFunc("POST /api/v1/schedule/commit", schedule.HandleScheduleCommit)
	mux.HandleFunc("DELETE /api/v1/schedule/changes", schedule.HandleScheduleDiscard)
}
