package routers

import (
	"github.com/go-chi/chi/v5"
)

// APIRoutes mounts the business routes under /api/v1 and again at the root
// for clients that predate the prefix.
func APIRoutes(router *chi.Mux, register ...func(chi.Router)) {
	router.Route("/api/v1", func(r chi.Router) {
		for _, fn := range register {
			fn(r)
		}
	})
	for _, fn := range register {
		fn(router)
	}
}
