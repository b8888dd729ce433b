package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/lettersontherocks/AI-Interview/internal/entitlement"
	"github.com/lettersontherocks/AI-Interview/internal/middleware"
	"github.com/lettersontherocks/AI-Interview/internal/models"
	"github.com/lettersontherocks/AI-Interview/internal/utils"
)

// PaymentHandler receives confirmed orders from the payment collaborator.
type PaymentHandler struct {
	purchases *entitlement.Purchases
	logger    *zap.Logger
}

func NewPaymentHandler(purchases *entitlement.Purchases, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{purchases: purchases, logger: logger}
}

func (h *PaymentHandler) ApplyHandler(w http.ResponseWriter, r *http.Request) {
	req := middleware.GetValidatedRequest[*models.PurchaseRequest](r)

	resp, err := h.purchases.Apply(r.Context(), req)
	if err != nil {
		utils.WriteError(w, h.logger, err)
		return
	}
	utils.JSON(w, http.StatusOK, resp)
}
