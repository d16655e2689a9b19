package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// SetupRoutes configures the router and all API routes.
func SetupRoutes(h *Handlers) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", h.HealthCheck)

	r.Route("/api", func(r chi.Router) {
		r.Post("/upload", h.Upload)
		r.Post("/filters", h.ApplyFilters)
		r.Post("/session/restore", h.Restore)

		r.Route("/research", func(r chi.Router) {
			r.Post("/start", h.StartResearch)
			r.Post("/stop", h.StopResearch)
			r.Get("/status", h.ResearchStatus)
		})

		r.Get("/recipients", h.Recipients)
		r.Post("/recipients/sync", h.SyncRecipients)

		r.Route("/campaign", func(r chi.Router) {
			r.Post("/start", h.StartCampaign)
			r.Post("/stop", h.StopCampaign)
			r.Get("/status", h.CampaignStatus)
		})

		r.Route("/campaigns", func(r chi.Router) {
			r.Get("/", h.Campaigns)
			r.Get("/{name}", h.CampaignSendHistory)
		})

		r.Get("/templates", h.Templates)
		r.Get("/export", h.Export)
	})

	return r
}
