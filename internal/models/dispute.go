package models

import (
	"time"

	"gorm.io/gorm"
)

type DisputeStatus string
type DisputeReason string

const (
	DisputeOpen     DisputeStatus = "open"
	DisputeResolved DisputeStatus = "resolved"
	DisputeClosed   DisputeStatus = "closed"
)

const (
	ReasonNoShow         DisputeReason = "counterparty_no_show"
	ReasonNotAsDescribed DisputeReason = "item_not_as_described"
	ReasonDamaged        DisputeReason = "item_damaged"
	ReasonFeeDispute     DisputeReason = "brokerage_fee_dispute"
	ReasonOther          DisputeReason = "other"
)

type Dispute struct {
	ID          uint           `gorm:"primarykey" json:"id"`
	TradeID     uint           `gorm:"not null;index" json:"trade_id"`
	RaisedBy    uint           `gorm:"not null;index" json:"raised_by"`
	Reason      DisputeReason  `gorm:"type:varchar(50);not null" json:"reason"`
	Description string         `gorm:"type:text;not null" json:"description"`
	Status      DisputeStatus  `gorm:"type:varchar(20);not null;default:'open'" json:"status"`
	Resolution  string         `gorm:"type:text" json:"resolution,omitempty"`
	ResolvedBy  *uint          `gorm:"index" json:"resolved_by,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	ResolvedAt  *time.Time     `json:"resolved_at,omitempty"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	Trade Trade `gorm:"foreignKey:TradeID" json:"trade,omitempty"`
	User  User  `gorm:"foreignKey:RaisedBy" json:"user,omitempty"`
}

func (Dispute) TableName() string {
	return "disputes"
}
