/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:     Unique ID per request for tracing
  2. RequestLogger: One log line per request, client address from a header
  3. Recoverer:     Panic recovery (500 instead of crash)
  4. Instrument:    Request count and latency per route pattern
  5. CORS:          Cross-origin requests for the frontend

ROUTE GROUPS:
  /api/scripts/*    Scripts, their role lists and raw script-role rows
  /api/roles/*      Roles
  /api/games/*      Games, their role lists and raw game-role rows
  /api/dump, /api/load, /api/stats
  /api/scenarios/*  Demo scenarios
  /healthz          Store ping
  /metrics          Prometheus

SECURITY NOTE:
  No authentication middleware. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/holocron/tracker/tracker"
)

// RouterOptions carries the request-level settings from config.
type RouterOptions struct {
	// RequestIPHeader names the header holding the client address.
	RequestIPHeader string
	CORSOrigins     []string
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	if len(opts.CORSOrigins) == 0 {
		opts.CORSOrigins = []string{"*"}
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(h.Log, opts.RequestIPHeader))
	r.Use(middleware.Recoverer)
	r.Use(Instrument(h.Metrics))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/healthz", h.Health)
	r.Method("GET", "/metrics", h.Metrics.Handler())

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Route("/scripts", func(r chi.Router) {
			r.Get("/", list(h, scriptResource))
			r.Post("/", create(h, scriptResource))
			r.Post("/bulk", createBulk(h, scriptResource))
			r.Post("/roles", h.CreateLink(tracker.OwnerScript))
			r.Post("/roles/bulk", h.CreateLinks(tracker.OwnerScript))
			r.Get("/{id}", get(h, scriptResource))
			r.Put("/{id}", update(h, scriptResource))
			r.Delete("/{id}", remove(h, scriptResource))
			r.Post("/{id}/roles", h.SetScriptRoles)
		})

		r.Route("/roles", func(r chi.Router) {
			r.Get("/", list(h, roleResource))
			r.Post("/", create(h, roleResource))
			r.Post("/bulk", createBulk(h, roleResource))
			r.Get("/{id}", get(h, roleResource))
			r.Put("/{id}", update(h, roleResource))
			r.Delete("/{id}", remove(h, roleResource))
		})

		r.Route("/games", func(r chi.Router) {
			r.Get("/", list(h, gameResource))
			r.Post("/", create(h, gameResource))
			r.Post("/bulk", createBulk(h, gameResource))
			r.Post("/roles", h.CreateLink(tracker.OwnerGame))
			r.Post("/roles/bulk", h.CreateLinks(tracker.OwnerGame))
			r.Get("/{id}", get(h, gameResource))
			r.Put("/{id}", update(h, gameResource))
			r.Delete("/{id}", remove(h, gameResource))
			r.Post("/{id}/roles", h.SetGameRoles)
		})

		r.Get("/dump", h.Dump)
		r.Post("/load", h.Load)
		r.Get("/stats", h.Stats)

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Post("/load", h.LoadScenario)
			r.Post("/reset", h.ResetDatabase)
		})
	})

	return r
}
