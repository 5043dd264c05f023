package models

import (
	"time"
)

type LedgerEntryType string

const (
	LedgerCredit  LedgerEntryType = "credit"
	LedgerDebit   LedgerEntryType = "debit"
	LedgerHold    LedgerEntryType = "hold"
	LedgerRelease LedgerEntryType = "release"
	LedgerRefund  LedgerEntryType = "refund"
)

// EscrowHold is VP removed from a holder's wallet and parked against a
// trade. The unique index on TradeID means a trade can never be
// double-held; a hold is resolved exactly once, by release or refund,
// which deletes the row.
type EscrowHold struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	TradeID   uint      `gorm:"not null;uniqueIndex" json:"trade_id"`
	HolderID  uint      `gorm:"not null;index" json:"holder_id"`
	Amount    int64     `gorm:"not null" json:"amount"`
	CreatedAt time.Time `json:"created_at"`
}

func (EscrowHold) TableName() string {
	return "escrow_holds"
}

// LedgerEntry is the append-only audit record written alongside every
// successful balance mutation, in the same transaction. Failed
// attempts leave no entry. Entries are never updated or deleted.
type LedgerEntry struct {
	ID        uint            `gorm:"primarykey" json:"id"`
	Reference string          `gorm:"uniqueIndex;not null" json:"reference"`
	UserID    uint            `gorm:"not null;index" json:"user_id"`
	TradeID   *uint           `gorm:"index" json:"trade_id,omitempty"`
	Type      LedgerEntryType `gorm:"type:varchar(10);not null" json:"type"`
	Amount    int64           `gorm:"not null" json:"amount"`
	Reason    string          `gorm:"type:text" json:"reason"`
	CreatedAt time.Time       `json:"created_at"`
}

func (LedgerEntry) TableName() string {
	return "ledger_entries"
}
