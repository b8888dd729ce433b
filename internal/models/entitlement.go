package models

import "time"

// Entitlement is the per-user quota row owned by the ledger.
type Entitlement struct {
	UserID         string     `gorm:"primaryKey" json:"user_id"`
	VipTier        string     `gorm:"not null;default:none" json:"vip_type"`
	VipExpireDate  *time.Time `json:"vip_expire_date"`
	FreeCountToday int        `gorm:"not null;default:0" json:"free_count_today"`
	// LastResetDate is the ledger-local day (2006-01-02) FreeCountToday belongs to.
	LastResetDate string    `gorm:"not null" json:"-"`
	ExtraCredits  int       `gorm:"not null;default:0" json:"extra_credits"`
	CreatedAt     time.Time `json:"-"`
	UpdatedAt     time.Time `json:"-"`
}

// Reservation records one admitted start until it is committed or released.
type Reservation struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	UserID    string    `gorm:"index;not null" json:"user_id"`
	Source    string    `gorm:"not null" json:"source"`
	Status    string    `gorm:"index;not null" json:"status"`
	Day       string    `json:"day"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
