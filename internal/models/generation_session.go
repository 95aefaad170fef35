package models

import "time"

// GenerationSession persists one user's studio project and conversation.
type GenerationSession struct {
	ID           uint   `gorm:"primaryKey"`
	UserID       uint   `gorm:"not null;uniqueIndex"`
	Provider     string `gorm:"size:50"`
	ModelKey     string `gorm:"size:255"`
	FilesJSON    string `gorm:"type:text"`
	MessagesJSON string `gorm:"type:text"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
