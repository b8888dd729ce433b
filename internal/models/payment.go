package models

import (
	"time"

	"gorm.io/gorm"
)

// Payment is a purchase delivered by the payment collaborator.
type Payment struct {
	gorm.Model
	OrderID     string    `gorm:"uniqueIndex;not null" json:"order_id"`
	UserID      string    `gorm:"index;not null" json:"user_id"`
	PaymentType string    `gorm:"not null" json:"payment_type"`
	Amount      float64   `json:"amount"`
	Status      string    `gorm:"not null" json:"status"`
	PaidAt      time.Time `json:"paid_at"`
}
