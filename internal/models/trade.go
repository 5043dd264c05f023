package models

import (
	"time"
)

type TradeState string
type ExchangeMode string

const (
	StateAwaitingFee    TradeState = "awaiting_fee" // cash mode entry, gated on fee verification
	StateOfferMade      TradeState = "offer_made"
	StateOfferAccepted  TradeState = "offer_accepted"
	StateItemsLocked    TradeState = "items_locked"
	StateTradeVerified  TradeState = "trade_verified"
	StateMeetupAgreed   TradeState = "meetup_agreed"
	StateTradeCompleted TradeState = "trade_completed"
	StateCancelled      TradeState = "cancelled"
)

const (
	ModeVP   ExchangeMode = "vp"
	ModeCash ExchangeMode = "cash"
)

// Trade carries no status column. Its state is whatever the latest
// timeline entry says; the timeline is append-only and is the single
// source of truth.
type Trade struct {
	ID        uint   `gorm:"primarykey" json:"id"`
	Reference string `gorm:"uniqueIndex;not null" json:"reference"`
	ListingID uint   `gorm:"not null;index" json:"listing_id"`
	BuyerID   uint   `gorm:"not null;index" json:"buyer_id"`
	SellerID  uint   `gorm:"not null;index" json:"seller_id"`

	OfferVP              int64        `gorm:"not null" json:"offer_vp"`
	CoordinationEscrowVP int64        `gorm:"not null" json:"coordination_escrow_vp"`
	ExchangeMode         ExchangeMode `gorm:"type:varchar(10);not null;default:'vp'" json:"exchange_mode"`

	// IntentAt is the soft-commitment flag. It is not a timeline state;
	// the disclosure gate and the UI consult it.
	IntentAt *time.Time `json:"intent_at,omitempty"`

	// Optional cash sweetener on top of the VP offer (minor units).
	CashOffer    int64  `gorm:"default:0" json:"cash_offer,omitempty"`
	CashCurrency string `gorm:"type:varchar(3)" json:"cash_currency,omitempty"`

	// Cash-mode brokerage fees, minor units, computed once at creation.
	PlatformFeeBuyer  int64 `gorm:"default:0" json:"platform_fee_buyer,omitempty"`
	PlatformFeeSeller int64 `gorm:"default:0" json:"platform_fee_seller,omitempty"`
	IsRealityChecked  bool  `gorm:"default:false" json:"is_reality_checked"`
	FeesVerified      bool  `gorm:"default:false" json:"fees_verified"`

	BuyerChecklistAt  *time.Time `json:"buyer_checklist_at,omitempty"`
	SellerChecklistAt *time.Time `json:"seller_checklist_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Listing  Listing         `gorm:"foreignKey:ListingID" json:"listing,omitempty"`
	Buyer    User            `gorm:"foreignKey:BuyerID" json:"buyer,omitempty"`
	Seller   User            `gorm:"foreignKey:SellerID" json:"seller,omitempty"`
	Timeline []TimelineEntry `gorm:"foreignKey:TradeID" json:"timeline,omitempty"`
}

func (Trade) TableName() string {
	return "trades"
}

// CurrentState derives the trade's state from a loaded timeline. The
// timeline must be preloaded ordered by seq.
func (t *Trade) CurrentState() TradeState {
	if len(t.Timeline) == 0 {
		return ""
	}
	return t.Timeline[len(t.Timeline)-1].State
}

// IsTerminal reports whether the trade can no longer move.
func (t *Trade) IsTerminal() bool {
	s := t.CurrentState()
	return s == StateTradeCompleted || s == StateCancelled
}

// IsParty reports whether userID is the buyer or the seller.
func (t *Trade) IsParty(userID uint) bool {
	return t.BuyerID == userID || t.SellerID == userID
}

// Counterparty returns the other side of the trade for a given party.
func (t *Trade) Counterparty(userID uint) uint {
	if userID == t.BuyerID {
		return t.SellerID
	}
	return t.BuyerID
}

// TimelineEntry is immutable once appended.
type TimelineEntry struct {
	ID        uint       `gorm:"primarykey" json:"id"`
	TradeID   uint       `gorm:"not null;index:idx_timeline_trade_seq,unique" json:"trade_id"`
	Seq       int        `gorm:"not null;index:idx_timeline_trade_seq,unique" json:"seq"`
	State     TradeState `gorm:"type:varchar(20);not null" json:"state"`
	ActorID   uint       `json:"actor_id"`
	CreatedAt time.Time  `json:"created_at"`
}

func (TimelineEntry) TableName() string {
	return "trade_timeline"
}
