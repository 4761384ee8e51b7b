/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. RequestLogger: Structured request logging via zerolog
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for the registration front end

ROUTE GROUPS:
  /api/persons/*     Producer registrations, requests, effective area
  /api/properties/*  Parcels
  /api/leases/*      Lease declarations
  /api/programs/*    Program configuration and quota checks
  /api/evaluate      Benefit evaluation (optionally reserving)
  /api/requests/*    Request status workflow
  /api/scenarios/*   Demo data

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(h.Logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Producer routes
		r.Route("/persons", func(r chi.Router) {
			r.Get("/", h.ListPersons)
			r.Post("/", h.CreatePerson)
			r.Get("/{id}", h.GetPerson)
			r.Get("/{id}/requests", h.ListPersonRequests)
			r.Get("/{id}/effective-area", h.GetEffectiveArea)
			r.Post("/{id}/effective-area/recalculate", h.RecalculateEffectiveArea)
		})

		// Property routes
		r.Route("/properties", func(r chi.Router) {
			r.Post("/", h.CreateProperty)
			r.Get("/{id}", h.GetProperty)
		})

		// Lease routes
		r.Route("/leases", func(r chi.Router) {
			r.Post("/", h.CreateLease)
		})

		// Program routes
		r.Route("/programs", func(r chi.Router) {
			r.Get("/", h.ListPrograms)
			r.Post("/", h.CreateProgram)
			r.Get("/{id}", h.GetProgram)
			r.Get("/{id}/limit-check", h.CheckPeriodLimit)
		})

		// Evaluation
		r.Post("/evaluate", h.Evaluate)

		// Request workflow routes
		r.Route("/requests", func(r chi.Router) {
			r.Post("/{id}/status", h.UpdateRequestStatus)
		})

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Post("/load", h.LoadScenario)
			r.Post("/reset", h.ResetDatabase)
		})

		r.Get("/health", h.Health)
	})

	return r
}

// RequestLogger logs one structured line per request.
func RequestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			logger.Info().
				Str("request_id", middleware.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Msg("request")
		})
	}
}
