// cmd/server/server.go
package main

import (
	"net/http"
	"strconv"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/codr1/Spinergy/internal/api"
	"github.com/codr1/Spinergy/internal/api/apiutil"
	"github.com/codr1/Spinergy/internal/api/bookings"
	"github.com/codr1/Spinergy/internal/api/operatinghours"
	apipricing "github.com/codr1/Spinergy/internal/api/pricing"
	"github.com/codr1/Spinergy/internal/api/resources"
	apislots "github.com/codr1/Spinergy/internal/api/slots"
	"github.com/codr1/Spinergy/internal/config"
)

type readyResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func newServer(cfg *config.Config, a *app) *http.Server {
	router := http.NewServeMux()

	// Setup middleware chain
	middleware := []api.Middleware{
		api.WithLogging,
		api.WithRecovery,
		api.WithRequestID,
		api.WithContentType,
	}
	if cfg.Features.EnableTracing {
		middleware = append(middleware, api.WithTracing(cfg.Tracing.ServiceName))
	}
	handler := api.ChainMiddleware(router, middleware...)

	initHandlers(cfg, a)

	// Register routes
	registerRoutes(router, a)

	return &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.App.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 45 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func initHandlers(cfg *config.Config, a *app) {
	clock := clockwork.NewRealClock()
	resources.InitHandlers(a.db)
	operatinghours.InitHandlers(a.resolver, clock)
	apislots.InitHandlers(a.guard)
	apipricing.InitHandlers(a.prices)
	bookings.InitHandlers(bookings.Config{
		Guard:        a.guard,
		Reservations: a.db,
		Limiter:      a.limiter,
		TrustProxy:   cfg.Booking.RateLimit.TrustProxy,
		Location:     a.resolver.Location(),
		Clock:        clock,
	})
}

func registerRoutes(mux *http.ServeMux, a *app) {
	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	mux.HandleFunc("GET /ready", handleReady(a))

	// Catalog routes
	mux.HandleFunc("GET /api/v1/resources", resources.HandleListResources)
	mux.HandleFunc("GET /api/v1/operating-hours", operatinghours.HandleOperatingHours)
	mux.HandleFunc("GET /api/v1/slots", apislots.HandleListSlots)
	mux.HandleFunc("GET /api/v1/pricing", apipricing.HandleQuote)

	// Booking routes
	mux.HandleFunc("POST /api/v1/bookings", bookings.HandleSubmit)
	mux.HandleFunc("GET /api/v1/bookings", bookings.HandleListByOwner)
	mux.HandleFunc("POST /api/v1/bookings/{id}/cancel", bookings.HandleCancel)

	// Admin routes
	mux.Handle("POST /api/v1/admin/pricing/invalidate", a.admin.Require(http.HandlerFunc(apipricing.HandleInvalidate)))
}

// GET /ready
func handleReady(a *app) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := a.checkReady(r.Context())
		resp := readyResponse{Status: "ok", Checks: checks}
		status := http.StatusOK
		for name, result := range checks {
			if result != "ok" {
				log.Ctx(r.Context()).Warn().Str("dependency", name).Str("error", result).Msg("Readiness check failed")
				resp.Status = "unavailable"
				status = http.StatusServiceUnavailable
			}
		}
		if err := apiutil.WriteJSON(w, status, resp); err != nil {
			log.Ctx(r.Context()).Error().Err(err).Msg("Failed to write readiness response")
		}
	}
}
