package models

import (
	"time"

	"gorm.io/gorm"
)

type ListingCondition string
type AuthenticityStatus string
type ListingStatus string

const (
	ConditionNew  ListingCondition = "new"
	ConditionUsed ListingCondition = "used"
)

const (
	AuthenticityVerified        AuthenticityStatus = "verified"
	AuthenticityUnverified      AuthenticityStatus = "unverified"
	AuthenticityReplicaDeclared AuthenticityStatus = "replica_declared"
)

const (
	ListingActive  ListingStatus = "active"
	ListingExpired ListingStatus = "expired"
	ListingFlagged ListingStatus = "flagged"
)

type Listing struct {
	ID          uint   `gorm:"primarykey" json:"id"`
	SellerID    uint   `gorm:"not null;index" json:"seller_id"`
	Title       string `gorm:"not null" json:"title"`
	Description string `gorm:"type:text" json:"description"`

	// OriginalPrice is the seller-declared reference value. PriceVP is
	// computed once from it by the valuation policy at creation time and
	// never changes afterwards; trades reference the frozen price.
	OriginalPrice int64 `gorm:"not null" json:"original_price"`
	PriceVP       int64 `gorm:"not null" json:"price_vp"`

	Condition          ListingCondition   `gorm:"type:varchar(20);not null;default:'new'" json:"condition"`
	OriginType         string             `gorm:"type:varchar(30)" json:"origin_type,omitempty"`
	AuthenticityStatus AuthenticityStatus `gorm:"type:varchar(30);not null;default:'unverified'" json:"authenticity_status"`
	IsRefurbished      bool               `gorm:"default:false" json:"is_refurbished"`

	// EscrowPercentage of the offer is held as coordination escrow.
	EscrowPercentage int `gorm:"default:15" json:"escrow_percentage"`

	Status    ListingStatus  `gorm:"type:varchar(20);not null;default:'active'" json:"status"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Seller User `gorm:"foreignKey:SellerID" json:"seller,omitempty"`
}

func (Listing) TableName() string {
	return "listings"
}
