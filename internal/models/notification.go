package models

import (
	"time"
)

type NotificationType string

const (
	NotificationTradeCreated    NotificationType = "trade_created"
	NotificationTradeAccepted   NotificationType = "trade_accepted"
	NotificationTradeCancelled  NotificationType = "trade_cancelled"
	NotificationTradeCompleted  NotificationType = "trade_completed"
	NotificationStateChanged    NotificationType = "trade_state_changed"
	NotificationEscrowReleased  NotificationType = "escrow_released"
	NotificationEscrowRefunded  NotificationType = "escrow_refunded"
	NotificationDisputeRaised   NotificationType = "dispute_raised"
	NotificationDisputeResolved NotificationType = "dispute_resolved"
)

type Notification struct {
	ID        uint             `json:"id" gorm:"primaryKey"`
	UserID    uint             `json:"user_id" gorm:"not null;index"`
	Type      NotificationType `json:"type" gorm:"type:varchar(50);not null"`
	Title     string           `json:"title" gorm:"type:varchar(255);not null"`
	Message   string           `json:"message" gorm:"type:text;not null"`
	IsRead    bool             `json:"is_read" gorm:"default:false;index"`
	Data      string           `json:"data" gorm:"type:json"`
	CreatedAt time.Time        `json:"created_at"`
	ReadAt    *time.Time       `json:"read_at"`

	User User `json:"user,omitempty" gorm:"foreignKey:UserID"`
}

func (Notification) TableName() string {
	return "notifications"
}
