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
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/households/*     Household configuration and vision planning
  /api/periods/*        Monthly period workflow and reports
  /api/reports/*        Scheduled report history
  /api/scenarios/*      Demo scenarios

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Household routes
		r.Route("/households", func(r chi.Router) {
			r.Get("/", h.ListHouseholds)
			r.Post("/", h.CreateHousehold)
			r.Get("/{id}", h.GetHousehold)
			r.Get("/{id}/vision", h.GetVision)
			r.Get("/{id}/periods", h.ListPeriods)
			r.Post("/{id}/periods", h.CreatePeriod)
		})

		// Period routes
		r.Route("/periods", func(r chi.Router) {
			r.Get("/{id}", h.GetPeriod)
			r.Post("/{id}/care-entries", h.AddCareEntry)
			r.Post("/{id}/overrides", h.SetOverride)
			r.Post("/{id}/decisions", h.RecordDecision)
			r.Post("/{id}/amendments", h.RecordAmendment)
			r.Post("/{id}/lock", h.LockPeriod)
			r.Get("/{id}/report", h.GetReport)
		})

		// Report history routes
		r.Route("/reports", func(r chi.Router) {
			r.Get("/runs", h.ListReportRuns)
		})

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Post("/load", h.LoadScenario)
			r.Post("/reset", h.ResetDatabase)
		})
	})

	// Landing page listing the API surface, for anyone hitting the root.
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<!DOCTYPE html>
<html>
<head><title>Core Share Engine</title></head>
<body style="font-family: system-ui; max-width: 800px; margin: 50px auto; padding: 20px;">
<h1>Core Share Engine API</h1>
<h2>API Endpoints</h2>
<ul>
<li><a href="/api/households">/api/households</a> - List households</li>
<li><a href="/api/reports/runs">/api/reports/runs</a> - Scheduled report history</li>
<li><a href="/api/scenarios">/api/scenarios</a> - List demo scenarios</li>
</ul>
</body>
</html>`))
	})

	return r
}
