package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/ignite/mailguard/internal/config"
)

// SetupRoutes configures the full route tree. The public surface (health,
// unsubscribe landing, provider webhooks) sits outside /api/v1; everything
// under /api/v1 requires the API key.
func SetupRoutes(h *Handlers, cfg config.ServerConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173", "http://localhost:8080"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-API-Key"},
		MaxAge:         300,
	}))

	r.Get("/health", h.HealthCheck)

	// recipient-facing unsubscribe, reachable without credentials because
	// the token itself is the credential
	r.Get("/unsubscribe/{token}", h.UnsubscribeLanding)
	r.Post("/unsubscribe/{token}", h.UnsubscribeOneClick)

	r.Route("/webhooks", func(r chi.Router) {
		r.Use(requireWebhookSecret(cfg.WebhookSecret))
		r.Post("/bounce", h.BounceWebhook)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(requireAPIKey(cfg.APIKey))

		r.Post("/evaluate", h.Evaluate)

		r.Route("/approvals", func(r chi.Router) {
			r.Get("/", h.ListApprovals)
			r.Get("/{id}", h.GetApproval)
			r.Post("/{id}/decision", h.DecideApproval)
			r.Post("/{id}/resume", h.ResumeApproval)
		})

		r.Get("/audit/decisions", h.ListDecisions)
		r.Get("/warmup/status", h.WarmupStatus)

		r.Route("/blacklist", func(r chi.Router) {
			r.Get("/", h.ListBlacklist)
			r.Delete("/{tenantID}/{recipient}", h.Unblacklist)
		})

		r.Route("/unsubscribes", func(r chi.Router) {
			r.Get("/", h.ListUnsubscribes)
			r.Delete("/{tenantID}/{recipient}", h.Resubscribe)
		})
	})

	return r
}
