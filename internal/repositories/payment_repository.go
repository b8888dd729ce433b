package repositories

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/lettersontherocks/AI-Interview/internal/models"
)

var ErrPaymentNotFound = errors.New("payment not found")

type PaymentRepository struct {
	DB *gorm.DB
}

func (r *PaymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	return r.DB.WithContext(ctx).Create(payment).Error
}

func (r *PaymentRepository) GetByOrderID(ctx context.Context, orderID string) (*models.Payment, error) {
	var payment models.Payment
	err := r.DB.WithContext(ctx).First(&payment, "order_id = ?", orderID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPaymentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *PaymentRepository) UpdateStatus(ctx context.Context, orderID, status string) error {
	res := r.DB.WithContext(ctx).Model(&models.Payment{}).
		Where("order_id = ?", orderID).
		Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrPaymentNotFound
	}
	return nil
}

// Delete removes the row for good so the order id can be delivered again.
func (r *PaymentRepository) Delete(ctx context.Context, orderID string) error {
	return r.DB.WithContext(ctx).Unscoped().Where("order_id = ?", orderID).Delete(&models.Payment{}).Error
}
