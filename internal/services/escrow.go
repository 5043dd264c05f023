package services

import (
	"errors"

	"gorm.io/gorm"

	"meetbarter/internal/models"
)

// Cash-mode brokerage fee: 2.5% of the cash offer per side, with a
// floor of 100 minor units ($1).
const (
	brokerageFeeBP  = 250 // basis points
	brokerageFeeMin = 100
)

// EscrowCoordinator ties ledger holds to a specific trade and computes
// the cash-mode fee flow. Its invariant: a hold never outlives a
// terminal trade state, unused escrow is always returned.
type EscrowCoordinator struct {
	ledger *LedgerService
}

func NewEscrowCoordinator(ledger *LedgerService) *EscrowCoordinator {
	return &EscrowCoordinator{ledger: ledger}
}

// PlaceHold puts the trade's coordination escrow on hold against the
// buyer's wallet, inside the caller's transaction.
func (c *EscrowCoordinator) PlaceHold(tx *gorm.DB, trade *models.Trade) error {
	return c.ledger.holdTx(tx, trade.BuyerID, trade.ID, trade.CoordinationEscrowVP)
}

// ReleaseToSeller resolves the trade's hold in the seller's favour.
func (c *EscrowCoordinator) ReleaseToSeller(tx *gorm.DB, trade *models.Trade) error {
	return c.ledger.releaseTx(tx, trade.ID, trade.SellerID)
}

// RefundToBuyer returns the trade's hold to the buyer. Trades cancelled
// before acceptance have no hold; that is not an error here.
func (c *EscrowCoordinator) RefundToBuyer(tx *gorm.DB, trade *models.Trade) error {
	err := c.ledger.refundTx(tx, trade.ID)
	if errors.Is(err, ErrHoldNotFound) {
		return nil
	}
	return err
}

// HasHold reports whether an active hold exists for the trade, inside
// the caller's transaction.
func (c *EscrowCoordinator) HasHold(tx *gorm.DB, tradeID uint) bool {
	var count int64
	tx.Model(&models.EscrowHold{}).Where("trade_id = ?", tradeID).Count(&count)
	return count > 0
}

// ComputeEscrowVP derives the coordination escrow from the offer.
// Escrow is a percentage of the committed offer, not of the listing
// price, so a negotiated-down offer holds proportionally less. Small
// offers where the percentage rounds down to nothing still hold 1 VP;
// acceptance always carries a real commitment.
func ComputeEscrowVP(offerVP int64, escrowPercentage int) int64 {
	if escrowPercentage <= 0 {
		escrowPercentage = 15
	}
	escrow := offerVP * int64(escrowPercentage) / 100
	if escrow < 1 {
		escrow = 1
	}
	if escrow > offerVP {
		escrow = offerVP
	}
	return escrow
}

// ComputeBrokerageFee computes the per-side cash-mode platform fee in
// minor units.
func ComputeBrokerageFee(cashOffer int64) int64 {
	if cashOffer <= 0 {
		return brokerageFeeMin
	}
	fee := cashOffer * brokerageFeeBP / 10000
	if fee < brokerageFeeMin {
		fee = brokerageFeeMin
	}
	return fee
}
