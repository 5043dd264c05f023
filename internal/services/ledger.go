package services

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"meetbarter/internal/models"
)

// LedgerService owns all VP balance mutations. Every mutation runs in a
// transaction, serialized per user by keyed locks, and writes an
// append-only ledger entry on success. Failed attempts write nothing.
type LedgerService struct {
	db    *gorm.DB
	locks *keyedLocks
}

func NewLedgerService(db *gorm.DB) *LedgerService {
	return &LedgerService{db: db, locks: newKeyedLocks()}
}

// Credit increases a user's wallet balance.
func (s *LedgerService) Credit(userID uint, amount int64, reason string) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	unlock := s.locks.Lock(userKey(userID))
	defer unlock()

	return s.db.Transaction(func(tx *gorm.DB) error {
		return s.creditTx(tx, userID, nil, amount, models.LedgerCredit, reason)
	})
}

// Debit decreases a user's wallet balance.
func (s *LedgerService) Debit(userID uint, amount int64, reason string) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	unlock := s.locks.Lock(userKey(userID))
	defer unlock()

	return s.db.Transaction(func(tx *gorm.DB) error {
		return s.debitTx(tx, userID, nil, amount, models.LedgerDebit, reason)
	})
}

// Hold moves amount from the user's wallet into an escrow hold keyed by
// tradeID. A second hold for the same trade fails with
// ErrHoldAlreadyExists; a trade can never be double-held.
func (s *LedgerService) Hold(userID, tradeID uint, amount int64) error {
	unlock := s.locks.Lock(userKey(userID), tradeKey(tradeID))
	defer unlock()

	return s.db.Transaction(func(tx *gorm.DB) error {
		return s.holdTx(tx, userID, tradeID, amount)
	})
}

// Release resolves a hold in the seller's favour: the held amount is
// credited to toUserID and the hold is deleted.
func (s *LedgerService) Release(tradeID, toUserID uint) error {
	unlock := s.locks.Lock(userKey(toUserID), tradeKey(tradeID))
	defer unlock()

	return s.db.Transaction(func(tx *gorm.DB) error {
		return s.releaseTx(tx, tradeID, toUserID)
	})
}

// Refund resolves a hold in the holder's favour: the held amount goes
// back to the original holder and the hold is deleted.
func (s *LedgerService) Refund(tradeID uint) error {
	hold, err := s.HoldFor(tradeID)
	if err != nil {
		return err
	}

	unlock := s.locks.Lock(userKey(hold.HolderID), tradeKey(tradeID))
	defer unlock()

	return s.db.Transaction(func(tx *gorm.DB) error {
		return s.refundTx(tx, tradeID)
	})
}

// HoldFor returns the active hold for a trade, or ErrHoldNotFound.
func (s *LedgerService) HoldFor(tradeID uint) (*models.EscrowHold, error) {
	var hold models.EscrowHold
	if err := s.db.Where("trade_id = ?", tradeID).First(&hold).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrHoldNotFound
		}
		return nil, err
	}
	return &hold, nil
}

// Entries returns a user's ledger history, newest first.
func (s *LedgerService) Entries(userID uint, limit int) ([]models.LedgerEntry, error) {
	var entries []models.LedgerEntry
	q := s.db.Where("user_id = ?", userID).Order("created_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// --- tx-scoped primitives, used by the escrow coordinator inside the
// trade transition transaction. Callers are responsible for locking.

func (s *LedgerService) creditTx(tx *gorm.DB, userID uint, tradeID *uint, amount int64, entryType models.LedgerEntryType, reason string) error {
	var user models.User
	if err := tx.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}

	user.WalletBalance += amount
	if err := tx.Save(&user).Error; err != nil {
		return err
	}
	return s.appendEntry(tx, userID, tradeID, entryType, amount, reason)
}

func (s *LedgerService) debitTx(tx *gorm.DB, userID uint, tradeID *uint, amount int64, entryType models.LedgerEntryType, reason string) error {
	var user models.User
	if err := tx.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}

	if user.WalletBalance < amount {
		return ErrInsufficientFunds
	}
	user.WalletBalance -= amount
	if err := tx.Save(&user).Error; err != nil {
		return err
	}
	return s.appendEntry(tx, userID, tradeID, entryType, amount, reason)
}

func (s *LedgerService) holdTx(tx *gorm.DB, userID, tradeID uint, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}

	var existing models.EscrowHold
	err := tx.Where("trade_id = ?", tradeID).First(&existing).Error
	if err == nil {
		return ErrHoldAlreadyExists
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	if err := s.debitTx(tx, userID, &tradeID, amount, models.LedgerHold, fmt.Sprintf("Escrow hold for trade %d", tradeID)); err != nil {
		return err
	}

	hold := models.EscrowHold{
		TradeID:  tradeID,
		HolderID: userID,
		Amount:   amount,
	}
	return tx.Create(&hold).Error
}

func (s *LedgerService) releaseTx(tx *gorm.DB, tradeID, toUserID uint) error {
	var hold models.EscrowHold
	if err := tx.Where("trade_id = ?", tradeID).First(&hold).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrHoldNotFound
		}
		return err
	}

	if err := s.creditTx(tx, toUserID, &tradeID, hold.Amount, models.LedgerRelease, fmt.Sprintf("Escrow released for trade %d", tradeID)); err != nil {
		return err
	}
	return tx.Delete(&hold).Error
}

func (s *LedgerService) refundTx(tx *gorm.DB, tradeID uint) error {
	var hold models.EscrowHold
	if err := tx.Where("trade_id = ?", tradeID).First(&hold).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrHoldNotFound
		}
		return err
	}

	if err := s.creditTx(tx, hold.HolderID, &tradeID, hold.Amount, models.LedgerRefund, fmt.Sprintf("Escrow refunded for trade %d", tradeID)); err != nil {
		return err
	}
	return tx.Delete(&hold).Error
}

func (s *LedgerService) appendEntry(tx *gorm.DB, userID uint, tradeID *uint, entryType models.LedgerEntryType, amount int64, reason string) error {
	entry := models.LedgerEntry{
		Reference: uuid.NewString(),
		UserID:    userID,
		TradeID:   tradeID,
		Type:      entryType,
		Amount:    amount,
		Reason:    reason,
	}
	return tx.Create(&entry).Error
}
