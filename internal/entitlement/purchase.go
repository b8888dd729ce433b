package entitlement

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/lettersontherocks/AI-Interview/internal/models"
	"github.com/lettersontherocks/AI-Interview/internal/repositories"
)

// Purchases applies payment deliveries to the ledger exactly once per order id.
type Purchases struct {
	ledger   *Ledger
	payments *repositories.PaymentRepository
	logger   *zap.Logger
}

func NewPurchases(ledger *Ledger, payments *repositories.PaymentRepository, logger *zap.Logger) *Purchases {
	return &Purchases{ledger: ledger, payments: payments, logger: logger}
}

func (p *Purchases) Apply(ctx context.Context, req *models.PurchaseRequest) (*models.PurchaseResponse, error) {
	tier, days, ok := models.ParsePaymentType(req.PaymentType)
	if !ok {
		return nil, fmt.Errorf("unsupported payment type %q", req.PaymentType)
	}

	if existing, err := p.payments.GetByOrderID(ctx, req.OrderID); err == nil {
		return p.response(ctx, existing)
	} else if !errors.Is(err, repositories.ErrPaymentNotFound) {
		return nil, err
	}

	status, err := p.ledger.Get(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	payment := &models.Payment{
		OrderID:     req.OrderID,
		UserID:      req.UserID,
		PaymentType: req.PaymentType,
		Amount:      req.Amount,
		Status:      models.PaymentPending,
		PaidAt:      p.ledger.now(),
	}
	if err := p.payments.Create(ctx, payment); err != nil {
		// a concurrent delivery of the same order won the insert
		if existing, getErr := p.payments.GetByOrderID(ctx, req.OrderID); getErr == nil {
			return p.response(ctx, existing)
		}
		return nil, err
	}

	if tier == "" {
		err = p.ledger.AddCredits(ctx, req.UserID, 1)
	} else {
		err = p.ledger.ApplyPurchase(ctx, req.UserID, tier, p.ledger.ExtendExpiry(status, tier, days))
	}
	if err != nil {
		if delErr := p.payments.Delete(ctx, req.OrderID); delErr != nil {
			p.logger.Error("Failed to roll back payment record",
				zap.String("order_id", req.OrderID),
				zap.Error(delErr))
		}
		return nil, err
	}

	if err := p.payments.UpdateStatus(ctx, req.OrderID, models.PaymentApplied); err != nil {
		return nil, err
	}
	payment.Status = models.PaymentApplied

	p.logger.Info("Purchase applied",
		zap.String("order_id", req.OrderID),
		zap.String("user_id", req.UserID),
		zap.String("payment_type", req.PaymentType))
	return p.response(ctx, payment)
}

func (p *Purchases) response(ctx context.Context, payment *models.Payment) (*models.PurchaseResponse, error) {
	status, err := p.ledger.Get(ctx, payment.UserID)
	if err != nil {
		return nil, err
	}
	return &models.PurchaseResponse{
		OrderID:       payment.OrderID,
		UserID:        payment.UserID,
		PaymentType:   payment.PaymentType,
		Status:        payment.Status,
		VipType:       status.Tier,
		VipExpireDate: status.VipExpireDate,
		ExtraCredits:  status.ExtraCredits,
	}, nil
}
