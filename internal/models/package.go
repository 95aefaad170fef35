package models

import "time"

// Package is a purchasable token bundle.
type Package struct {
	ID        string    `gorm:"primaryKey;size:64" json:"id" toml:"id"`
	Name      string    `gorm:"size:120;not null" json:"name" toml:"name"`
	Tokens    int       `gorm:"not null" json:"tokens" toml:"tokens"`
	Price     int       `gorm:"not null" json:"price" toml:"price"`
	IsPopular bool      `gorm:"not null;default:false" json:"isPopular" toml:"popular"`
	Icon      string    `gorm:"size:40" json:"icon" toml:"icon"`
	CreatedAt time.Time `json:"-" toml:"-"`
	UpdatedAt time.Time `json:"-" toml:"-"`
}
