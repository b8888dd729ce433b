package routers

import (
	"github.com/go-chi/chi/v5"

	"github.com/lettersontherocks/AI-Interview/internal/handlers"
	"github.com/lettersontherocks/AI-Interview/internal/middleware"
	"github.com/lettersontherocks/AI-Interview/internal/models"
)

func UserRoutes(userHandler *handlers.UserHandler) func(chi.Router) {
	return func(r chi.Router) {
		r.With(middleware.ValidateRequest[*models.RegisterRequest]()).Post("/user/register", userHandler.RegisterHandler)
		r.With(middleware.ValidateRequest[*models.WxLoginRequest]()).Post("/user/wx-login", userHandler.WxLoginHandler)
		r.Get("/user/{user_id}", userHandler.GetUserHandler)
	}
}

// PaymentRoutes guards the payment callback with a shared secret header.
func PaymentRoutes(paymentHandler *handlers.PaymentHandler, secret string) func(chi.Router) {
	return func(r chi.Router) {
		r.With(
			middleware.RequireSecret("X-Payment-Secret", secret),
			middleware.ValidateRequest[*models.PurchaseRequest](),
		).Post("/payment/apply", paymentHandler.ApplyHandler)
	}
}
