package models

import (
	"time"
)

// ReputationEvent records that a completed trade has been counted into
// both parties' reputation. The unique index on TradeID is the
// idempotency key: replaying the completion handler for the same trade
// is a no-op.
type ReputationEvent struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	TradeID   uint      `gorm:"not null;uniqueIndex" json:"trade_id"`
	BuyerID   uint      `gorm:"not null;index" json:"buyer_id"`
	SellerID  uint      `gorm:"not null;index" json:"seller_id"`
	Collusive bool      `gorm:"default:false" json:"collusive"`
	CreatedAt time.Time `json:"created_at"`
}

func (ReputationEvent) TableName() string {
	return "reputation_events"
}
