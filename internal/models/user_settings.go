package models

import "time"

// UserSettings holds per-user studio preferences.
type UserSettings struct {
	UserID          uint      `gorm:"primaryKey" json:"-"`
	DefaultModelKey string    `gorm:"size:255" json:"defaultModelKey"`
	Locale          string    `gorm:"size:10;not null;default:bn" json:"locale"`
	UpdatedAt       time.Time `json:"updatedAt"`
}
