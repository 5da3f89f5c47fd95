package models

import "gorm.io/gorm"

// User represents a registered account in the system
type User struct {
	gorm.Model

	// Authentication fields
	Username      string `gorm:"uniqueIndex;not null" json:"username"`
	Email         string `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash  string `gorm:"not null" json:"-"`
	EmailVerified bool   `gorm:"default:false" json:"email_verified"`

	// Profile information
	AvatarURL *string `json:"avatar_url,omitempty"`

	// Account status
	Role         string `gorm:"default:'user'" json:"role"` // user, admin
	IsActive     bool   `gorm:"default:true" json:"is_active"`
	TokenVersion int    `gorm:"default:0" json:"-"`
}
