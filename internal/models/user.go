package models

import (
	"time"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// DefaultSignupTokens is the balance granted to every new account.
const DefaultSignupTokens = 10

type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"joinedAt"`
	UpdatedAt time.Time `json:"-"`

	Email        string `gorm:"size:320;not null;uniqueIndex" json:"email"`
	Name         string `gorm:"size:120" json:"name"`
	AvatarURL    string `gorm:"size:512" json:"avatarUrl"`
	PasswordHash string `gorm:"size:255;not null" json:"-"`
	Tokens       int    `gorm:"not null;default:10" json:"tokens"`
	Role         string `gorm:"size:20;not null;default:user" json:"role"`
}

func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}
