package models

import "gorm.io/gorm"

// User is an identity produced by register or wx-login.
type User struct {
	gorm.Model
	UserID   string `gorm:"uniqueIndex;not null" json:"user_id"`
	OpenID   string `gorm:"uniqueIndex;not null" json:"openid"`
	Nickname string `json:"nickname"`
	Avatar   string `json:"avatar"`
}
