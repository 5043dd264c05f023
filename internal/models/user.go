package models

import (
	"time"

	"gorm.io/gorm"
)

type User struct {
	ID                uint           `gorm:"primarykey" json:"id"`
	FullName          string         `gorm:"not null" json:"full_name"`
	Email             string         `gorm:"uniqueIndex;not null" json:"email"`
	Password          string         `gorm:"not null" json:"-"`
	PhoneNumber       string         `json:"phone_number,omitempty"`
	PhoneVerified     bool           `gorm:"default:false" json:"phone_verified"`
	WalletBalance     int64          `gorm:"default:0" json:"wallet_balance"`
	GlobalTrustScore  float64        `gorm:"default:50" json:"global_trust_score"`
	CompletedTrades   int            `gorm:"default:0" json:"completed_trades"`
	VerificationLevel int            `gorm:"default:0" json:"verification_level"` // tier 0-4, gates listing limits
	Role              string         `gorm:"default:'user'" json:"role"`          // 'user' or 'admin'
	IsSuspended       bool           `gorm:"default:false" json:"is_suspended"`
	SuspendedAt       *time.Time     `json:"suspended_at,omitempty"`
	SuspendReason     string         `gorm:"type:text" json:"suspend_reason,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"-"`
}

func (User) TableName() string {
	return "users"
}

// BeforeCreate hook to set default role
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.Role == "" {
		u.Role = "user"
	}
	return nil
}

// IsAdmin checks if user has admin role
func (u *User) IsAdmin() bool {
	return u.Role == "admin"
}

// CanTrade checks if user may open or act on trades
func (u *User) CanTrade() bool {
	return !u.IsSuspended
}
