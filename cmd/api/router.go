// ============================================================================
// FILE: cmd/api/router.go
// PURPOSE: HTTP routes over the four public APIs
// ============================================================================
package main

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/IsaiahDupree/mediaposter/internal/middleware"
	"github.com/IsaiahDupree/mediaposter/pkg/response"
)

// NewRouter builds the chi router.
func NewRouter(c *Container) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestLogger(c.Logger))
	r.Use(middleware.APIRateLimit(120, time.Minute))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		response.Success(w, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	authMW := middleware.NewAuthMiddleware(c.AuthMiddleware.Tokens)

	r.Route("/api", func(r chi.Router) {
		r.Use(authMW.RequireWorkspace)

		r.Route("/scheduler", func(r chi.Router) {
			r.Get("/inventory", c.SchedulerHandler.GetInventory)
			r.Get("/plan", c.SchedulerHandler.GetPlan)
			r.Post("/auto", c.SchedulerHandler.AutoSchedule)
			r.Post("/update", c.SchedulerHandler.UpdateOnNewContent)
		})

		r.Route("/queue", func(r chi.Router) {
			r.Post("/", c.QueueHandler.Enqueue)
			r.Get("/due", c.QueueHandler.ListDue)
			r.Get("/stats", c.QueueHandler.Stats)
			r.Post("/{id}/cancel", c.QueueHandler.Cancel)
			r.Post("/{id}/reschedule", c.QueueHandler.Reschedule)
			r.Post("/{id}/retry", c.QueueHandler.Retry)
		})

		r.Route("/metrics", func(r chi.Router) {
			r.Post("/variants/{id}/poll", c.MetricsHandler.PollVariant)
			r.Get("/content/{id}/rollup", c.MetricsHandler.GetRollup)
			r.Post("/poll-recent", c.MetricsHandler.PollRecent)
		})

		r.Route("/people", func(r chi.Router) {
			r.Post("/events", c.PeopleHandler.IngestEvent)
			r.Get("/{id}", c.PeopleHandler.GetPerson)
			r.Get("/{id}/insights", c.PeopleHandler.GetInsights)
			r.Post("/lens/recompute", c.PeopleHandler.RecomputeLens)
		})
	})

	return r
}
