package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/lulusspp/lulus-api/internal/auth"
	"github.com/lulusspp/lulus-api/internal/handlers"
	"github.com/lulusspp/lulus-api/internal/metrics"
	"github.com/lulusspp/lulus-api/internal/middleware"
	pkghttp "github.com/lulusspp/lulus-api/pkg/http"
)

// RegisterRoutes registers all application routes
func RegisterRoutes(
	router chi.Router,
	authHandler *handlers.AuthHandler,
	healthHandler *handlers.HealthHandler,
	gate *middleware.AdmissionGate,
	sessions auth.SessionVerifier,
	healthLimit middleware.RateLimitConfig,
) {
	// Outside the gate: probes and scrapers are not browser clients
	router.With(middleware.RateLimitByIP(healthLimit)).Get("/health", healthHandler.Health)
	router.With(auth.RequireAdmin(sessions)).Handle("/metrics", metrics.Handler())

	router.Route("/api", func(r chi.Router) {
		r.Use(gate.Handler)

		r.Post("/auth", authHandler.Login)
		r.Get("/auth", authHandler.Session)
		r.Delete("/auth", authHandler.Logout)

		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			pkghttp.WriteNotFound(w, r, "Not found.")
		})
		r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
			pkghttp.WriteError(w, r, http.StatusMethodNotAllowed, "Method not allowed.")
		})
	})
}
