package routers

import (
	"github.com/go-chi/chi/v5"

	"github.com/lettersontherocks/AI-Interview/internal/handlers"
	"github.com/lettersontherocks/AI-Interview/internal/metrics"
)

func HealthRoutes(router *chi.Mux, healthHandler *handlers.HealthHandler) {
	router.Get("/healthz", healthHandler.HealthzHandler)
	router.Get("/health", healthHandler.HealthzHandler)
	router.Get("/readyz", healthHandler.ReadyzHandler)
	router.Handle("/metrics", metrics.Handler())
}
