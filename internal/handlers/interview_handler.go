package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/lettersontherocks/AI-Interview/internal/entitlement"
	"github.com/lettersontherocks/AI-Interview/internal/middleware"
	"github.com/lettersontherocks/AI-Interview/internal/models"
	"github.com/lettersontherocks/AI-Interview/internal/session"
	"github.com/lettersontherocks/AI-Interview/internal/utils"
)

type InterviewHandler struct {
	orch         *session.Orchestrator
	authRequired bool
	logger       *zap.Logger
}

func NewInterviewHandler(orch *session.Orchestrator, authRequired bool, logger *zap.Logger) *InterviewHandler {
	return &InterviewHandler{orch: orch, authRequired: authRequired, logger: logger}
}

// authorizeUser checks that the caller acts as userID when auth is enforced.
func (h *InterviewHandler) authorizeUser(ctx context.Context, userID string) error {
	if !h.authRequired {
		return nil
	}
	caller, ok := middleware.UserIDFromContext(ctx)
	if !ok || caller != userID {
		return entitlement.ErrNotAuthenticated
	}
	return nil
}

func (h *InterviewHandler) authorizeSession(ctx context.Context, sessionID string) error {
	if !h.authRequired {
		return nil
	}
	owner, err := h.orch.SessionOwner(ctx, sessionID)
	if err != nil {
		return err
	}
	return h.authorizeUser(ctx, owner)
}

func (h *InterviewHandler) StartHandler(w http.ResponseWriter, r *http.Request) {
	req := middleware.GetValidatedRequest[*models.StartInterviewRequest](r)
	if err := h.authorizeUser(r.Context(), req.UserID); err != nil {
		utils.WriteError(w, h.logger, err)
		return
	}

	resp, err := h.orch.Start(r.Context(), req)
	if err != nil {
		utils.WriteError(w, h.logger, err)
		return
	}
	utils.JSON(w, http.StatusOK, resp)
}

func (h *InterviewHandler) AnswerHandler(w http.ResponseWriter, r *http.Request) {
	req := middleware.GetValidatedRequest[*models.AnswerRequest](r)
	if err := h.authorizeSession(r.Context(), req.SessionID); err != nil {
		utils.WriteError(w, h.logger, err)
		return
	}

	resp, err := h.orch.SubmitAnswer(r.Context(), req)
	if err != nil {
		utils.WriteError(w, h.logger, err)
		return
	}
	utils.JSON(w, http.StatusOK, resp)
}

func (h *InterviewHandler) SessionHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session_id")
	if err := h.authorizeSession(r.Context(), sessionID); err != nil {
		utils.WriteError(w, h.logger, err)
		return
	}

	snapshot, err := h.orch.Resume(r.Context(), sessionID)
	if err != nil {
		utils.WriteError(w, h.logger, err)
		return
	}
	utils.JSON(w, http.StatusOK, snapshot)
}

func (h *InterviewHandler) ReportHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session_id")
	if err := h.authorizeSession(r.Context(), sessionID); err != nil {
		utils.WriteError(w, h.logger, err)
		return
	}

	report, err := h.orch.Report(r.Context(), sessionID)
	if err != nil {
		utils.WriteError(w, h.logger, err)
		return
	}
	utils.JSON(w, http.StatusOK, report)
}

func (h *InterviewHandler) HistoryHandler(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "user_id")
	if err := h.authorizeUser(r.Context(), userID); err != nil {
		utils.WriteError(w, h.logger, err)
		return
	}

	items, err := h.orch.History(r.Context(), userID)
	if err != nil {
		utils.WriteError(w, h.logger, err)
		return
	}
	utils.JSON(w, http.StatusOK, items)
}
