package routers

import (
	"github.com/go-chi/chi/v5"

	"github.com/lettersontherocks/AI-Interview/internal/handlers"
)

func CatalogRoutes(catalogHandler *handlers.CatalogHandler) func(chi.Router) {
	return func(r chi.Router) {
		r.Get("/positions", catalogHandler.PositionsHandler)
		r.Get("/positions/search", catalogHandler.SearchHandler)
		r.Get("/interviewer-styles", catalogHandler.StylesHandler)
	}
}
