package routers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lettersontherocks/AI-Interview/internal/handlers"
	"github.com/lettersontherocks/AI-Interview/internal/middleware"
	"github.com/lettersontherocks/AI-Interview/internal/models"
)

func InterviewRoutes(interviewHandler *handlers.InterviewHandler, auth func(http.Handler) http.Handler) func(chi.Router) {
	return func(router chi.Router) {
		router.Group(func(r chi.Router) {
			r.Use(auth)
			r.With(middleware.ValidateRequest[*models.StartInterviewRequest]()).Post("/interview/start", interviewHandler.StartHandler)
			r.With(middleware.ValidateRequest[*models.AnswerRequest]()).Post("/interview/answer", interviewHandler.AnswerHandler)
			r.Get("/interview/session/{session_id}", interviewHandler.SessionHandler)
			r.Get("/interview/report/{session_id}", interviewHandler.ReportHandler)
			r.Get("/user/{user_id}/history", interviewHandler.HistoryHandler)
		})
	}
}
