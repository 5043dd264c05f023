package services

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"meetbarter/internal/models"
)

// successors is the state machine: a totally ordered progression with
// CANCELLED as the escape hatch from every non-terminal state. Cash
// trades enter at AWAITING_FEE and join the normal flow once the
// brokerage fee is admin-verified.
var successors = map[models.TradeState][]models.TradeState{
	models.StateAwaitingFee:   {models.StateOfferMade, models.StateCancelled},
	models.StateOfferMade:     {models.StateOfferAccepted, models.StateCancelled},
	models.StateOfferAccepted: {models.StateItemsLocked, models.StateCancelled},
	models.StateItemsLocked:   {models.StateTradeVerified, models.StateCancelled},
	models.StateTradeVerified: {models.StateMeetupAgreed, models.StateCancelled},
	models.StateMeetupAgreed:  {models.StateTradeCompleted, models.StateCancelled},
}

func canFollow(from, to models.TradeState) bool {
	for _, next := range successors[from] {
		if next == to {
			return true
		}
	}
	return false
}

// TradeService drives a trade through its lifecycle. Every transition
// runs in one transaction, appends exactly one timeline entry, and is
// serialized against other work on the same trade and the same users.
type TradeService struct {
	db         *gorm.DB
	ledger     *LedgerService
	escrow     *EscrowCoordinator
	reputation *ReputationService
	events     EventPublisher
}

func NewTradeService(db *gorm.DB, ledger *LedgerService, escrow *EscrowCoordinator, reputation *ReputationService, events EventPublisher) *TradeService {
	return &TradeService{
		db:         db,
		ledger:     ledger,
		escrow:     escrow,
		reputation: reputation,
		events:     events,
	}
}

// CreateTradeInput is the offer a buyer places against a listing.
type CreateTradeInput struct {
	ListingID    uint
	BuyerID      uint
	OfferVP      int64
	ExchangeMode models.ExchangeMode
	CashOffer    int64
	CashCurrency string
}

// CreateTrade opens a trade at OFFER_MADE, or AWAITING_FEE for cash
// trades, against the listing's frozen price.
func (s *TradeService) CreateTrade(in CreateTradeInput) (*models.Trade, error) {
	if in.OfferVP <= 0 {
		return nil, ErrInvalidAmount
	}

	var listing models.Listing
	if err := s.db.First(&listing, in.ListingID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if listing.Status != models.ListingActive {
		return nil, ErrInvalidTransition
	}
	if listing.SellerID == in.BuyerID {
		return nil, ErrUnauthorized
	}
	if in.OfferVP > listing.PriceVP {
		return nil, ErrPolicyViolation
	}

	mode := in.ExchangeMode
	if mode == "" {
		mode = models.ModeVP
	}

	trade := models.Trade{
		Reference:            uuid.NewString(),
		ListingID:            listing.ID,
		BuyerID:              in.BuyerID,
		SellerID:             listing.SellerID,
		OfferVP:              in.OfferVP,
		CoordinationEscrowVP: ComputeEscrowVP(in.OfferVP, listing.EscrowPercentage),
		ExchangeMode:         mode,
	}

	initial := models.StateOfferMade
	if mode == models.ModeCash {
		initial = models.StateAwaitingFee
		trade.CashOffer = in.CashOffer
		trade.CashCurrency = in.CashCurrency
		trade.PlatformFeeBuyer = ComputeBrokerageFee(in.CashOffer)
		trade.PlatformFeeSeller = ComputeBrokerageFee(in.CashOffer)
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&trade).Error; err != nil {
			return err
		}
		return s.appendState(tx, &trade, initial, in.BuyerID)
	})
	if err != nil {
		return nil, err
	}

	s.publishState(&trade, initial)
	return s.GetTrade(trade.ID)
}

// AcceptOffer is the seller's commitment: it places the coordination
// escrow hold on the buyer's wallet and advances to OFFER_ACCEPTED.
func (s *TradeService) AcceptOffer(tradeID, sellerID uint) (*models.Trade, error) {
	return s.transition(tradeID, func(tx *gorm.DB, trade *models.Trade) (models.TradeState, error) {
		if trade.SellerID != sellerID {
			return "", ErrUnauthorized
		}
		if trade.CurrentState() != models.StateOfferMade {
			return "", ErrInvalidTransition
		}
		if err := s.escrow.PlaceHold(tx, trade); err != nil {
			return "", err
		}
		return models.StateOfferAccepted, nil
	}, sellerID)
}

// RecordIntent sets the soft-commitment timestamp. Either party may set
// it once; re-setting is a no-op. It does not append a timeline state.
func (s *TradeService) RecordIntent(tradeID, userID uint) (*models.Trade, error) {
	unlock := s.ledger.locks.Lock(tradeKey(tradeID))
	defer unlock()

	err := s.db.Transaction(func(tx *gorm.DB) error {
		trade, err := s.loadTrade(tx, tradeID)
		if err != nil {
			return err
		}
		if !trade.IsParty(userID) {
			return ErrUnauthorized
		}
		state := trade.CurrentState()
		if state == models.StateAwaitingFee || trade.IsTerminal() {
			return ErrInvalidTransition
		}
		if trade.IntentAt != nil {
			return nil // already recorded
		}
		now := time.Now()
		return tx.Model(trade).Update("intent_at", &now).Error
	})
	if err != nil {
		return nil, err
	}
	return s.GetTrade(tradeID)
}

// LockItems is the seller confirming the items are set aside for this
// trade: OFFER_ACCEPTED -> ITEMS_LOCKED.
func (s *TradeService) LockItems(tradeID, sellerID uint) (*models.Trade, error) {
	return s.transition(tradeID, func(tx *gorm.DB, trade *models.Trade) (models.TradeState, error) {
		if trade.SellerID != sellerID {
			return "", ErrUnauthorized
		}
		if trade.CurrentState() != models.StateOfferAccepted {
			return "", ErrInvalidTransition
		}
		return models.StateItemsLocked, nil
	}, sellerID)
}

// VerifyTrade is the buyer confirming the item details:
// ITEMS_LOCKED -> TRADE_VERIFIED. Cash trades additionally require the
// admin reality check first.
func (s *TradeService) VerifyTrade(tradeID, buyerID uint) (*models.Trade, error) {
	return s.transition(tradeID, func(tx *gorm.DB, trade *models.Trade) (models.TradeState, error) {
		if trade.BuyerID != buyerID {
			return "", ErrUnauthorized
		}
		if trade.CurrentState() != models.StateItemsLocked {
			return "", ErrInvalidTransition
		}
		if trade.ExchangeMode == models.ModeCash && !trade.IsRealityChecked {
			return "", ErrInvalidTransition
		}
		return models.StateTradeVerified, nil
	}, buyerID)
}

// SubmitChecklist records a party's pre-trade checklist. Both parties
// must submit; the second submission advances to MEETUP_AGREED.
func (s *TradeService) SubmitChecklist(tradeID, userID uint, checklist string) (*models.Trade, error) {
	unlock := s.ledger.locks.Lock(tradeKey(tradeID))
	defer unlock()

	var agreed bool
	err := s.db.Transaction(func(tx *gorm.DB) error {
		trade, err := s.loadTrade(tx, tradeID)
		if err != nil {
			return err
		}
		if !trade.IsParty(userID) {
			return ErrUnauthorized
		}
		if trade.CurrentState() != models.StateTradeVerified {
			return ErrInvalidTransition
		}

		now := time.Now()
		updates := map[string]interface{}{}
		if userID == trade.BuyerID && trade.BuyerChecklistAt == nil {
			trade.BuyerChecklistAt = &now
			updates["buyer_checklist_at"] = &now
		}
		if userID == trade.SellerID && trade.SellerChecklistAt == nil {
			trade.SellerChecklistAt = &now
			updates["seller_checklist_at"] = &now
		}
		if len(updates) > 0 {
			if err := tx.Model(&models.Trade{}).Where("id = ?", trade.ID).Updates(updates).Error; err != nil {
				return err
			}
		}

		if trade.BuyerChecklistAt != nil && trade.SellerChecklistAt != nil {
			agreed = true
			return s.appendState(tx, trade, models.StateMeetupAgreed, userID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	trade, err := s.GetTrade(tradeID)
	if err != nil {
		return nil, err
	}
	if agreed {
		s.publishState(trade, models.StateMeetupAgreed)
	}
	return trade, nil
}

// ConfirmCompletion is the buyer confirming receipt at the meetup. It
// releases the escrow to the seller, closes the trade and fires the
// reputation update.
func (s *TradeService) ConfirmCompletion(tradeID, buyerID uint) (*models.Trade, error) {
	trade, err := s.transition(tradeID, func(tx *gorm.DB, t *models.Trade) (models.TradeState, error) {
		if t.BuyerID != buyerID {
			return "", ErrUnauthorized
		}
		if t.CurrentState() != models.StateMeetupAgreed {
			return "", ErrInvalidTransition
		}
		if err := s.escrow.ReleaseToSeller(tx, t); err != nil {
			return "", err
		}
		if err := s.reputation.Apply(tx, t); err != nil {
			return "", err
		}
		return models.StateTradeCompleted, nil
	}, buyerID)
	if err != nil {
		return nil, err
	}

	s.events.Publish("escrow.released", []uint{trade.BuyerID, trade.SellerID}, map[string]interface{}{
		"trade_id": trade.ID,
		"amount":   trade.CoordinationEscrowVP,
	})
	return trade, nil
}

// CancelTrade aborts the trade from any non-terminal state. If an
// escrow hold exists it is refunded to the buyer first; no VP is ever
// retained by the platform.
func (s *TradeService) CancelTrade(tradeID, userID uint) (*models.Trade, error) {
	var refunded bool
	trade, err := s.transition(tradeID, func(tx *gorm.DB, t *models.Trade) (models.TradeState, error) {
		if !t.IsParty(userID) {
			if admin, err := s.isAdmin(tx, userID); err != nil || !admin {
				return "", ErrUnauthorized
			}
		}
		if t.IsTerminal() {
			return "", ErrInvalidTransition
		}
		refunded = s.escrow.HasHold(tx, t.ID)
		if err := s.escrow.RefundToBuyer(tx, t); err != nil {
			return "", err
		}
		return models.StateCancelled, nil
	}, userID)
	if err != nil {
		return nil, err
	}

	if refunded {
		s.events.Publish("escrow.refunded", []uint{trade.BuyerID, trade.SellerID}, map[string]interface{}{
			"trade_id": trade.ID,
			"amount":   trade.CoordinationEscrowVP,
		})
	}
	return trade, nil
}

// AddCashSweetener attaches or raises a cash offer on top of the VP
// offer. Only the buyer, and only before the seller has accepted.
// Brokerage fees are recomputed for cash trades; a fee change on an
// already-verified trade clears the verification so an admin must
// confirm the new amount.
func (s *TradeService) AddCashSweetener(tradeID, buyerID uint, amount int64, currency string) (*models.Trade, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	unlock := s.ledger.locks.Lock(tradeKey(tradeID))
	defer unlock()

	err := s.db.Transaction(func(tx *gorm.DB) error {
		trade, err := s.loadTrade(tx, tradeID)
		if err != nil {
			return err
		}
		if trade.BuyerID != buyerID {
			return ErrUnauthorized
		}
		state := trade.CurrentState()
		if state != models.StateOfferMade && state != models.StateAwaitingFee {
			return ErrInvalidTransition
		}

		updates := map[string]interface{}{
			"cash_offer":    amount,
			"cash_currency": currency,
		}
		if trade.ExchangeMode == models.ModeCash {
			fee := ComputeBrokerageFee(amount)
			updates["platform_fee_buyer"] = fee
			updates["platform_fee_seller"] = fee
			if trade.FeesVerified && fee != trade.PlatformFeeBuyer {
				updates["fees_verified"] = false
			}
		}
		return tx.Model(&models.Trade{}).Where("id = ?", trade.ID).Updates(updates).Error
	})
	if err != nil {
		return nil, err
	}
	return s.GetTrade(tradeID)
}

// AdminRealityCheck marks a cash trade's item condition as verified by
// an admin. Idempotent.
func (s *TradeService) AdminRealityCheck(tradeID, adminID uint) (*models.Trade, error) {
	unlock := s.ledger.locks.Lock(tradeKey(tradeID))
	defer unlock()

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if admin, err := s.isAdmin(tx, adminID); err != nil {
			return err
		} else if !admin {
			return ErrUnauthorized
		}
		trade, err := s.loadTrade(tx, tradeID)
		if err != nil {
			return err
		}
		if trade.ExchangeMode != models.ModeCash {
			return ErrInvalidTransition
		}
		if trade.IsRealityChecked {
			return nil
		}
		return tx.Model(trade).Update("is_reality_checked", true).Error
	})
	if err != nil {
		return nil, err
	}
	return s.GetTrade(tradeID)
}

// AdminVerifyFees confirms the out-of-band brokerage fee payment on a
// cash trade. Idempotent; the first verification moves the trade from
// AWAITING_FEE into the normal flow and unlocks contact disclosure.
func (s *TradeService) AdminVerifyFees(tradeID, adminID uint) (*models.Trade, error) {
	unlock := s.ledger.locks.Lock(tradeKey(tradeID))
	defer unlock()

	var advanced bool
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if admin, err := s.isAdmin(tx, adminID); err != nil {
			return err
		} else if !admin {
			return ErrUnauthorized
		}
		trade, err := s.loadTrade(tx, tradeID)
		if err != nil {
			return err
		}
		if trade.ExchangeMode != models.ModeCash {
			return ErrInvalidTransition
		}
		if trade.FeesVerified {
			return nil
		}
		if err := tx.Model(trade).Update("fees_verified", true).Error; err != nil {
			return err
		}
		if trade.CurrentState() == models.StateAwaitingFee {
			advanced = true
			return s.appendState(tx, trade, models.StateOfferMade, adminID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	trade, err := s.GetTrade(tradeID)
	if err != nil {
		return nil, err
	}
	if advanced {
		s.publishState(trade, models.StateOfferMade)
	}
	return trade, nil
}

// ResolveTrade is the admin ruling on a disputed trade: the escrow goes
// to the winner and the trade is closed as cancelled.
func (s *TradeService) ResolveTrade(tradeID, adminID uint, winner string) (*models.Trade, error) {
	return s.transition(tradeID, func(tx *gorm.DB, trade *models.Trade) (models.TradeState, error) {
		if admin, err := s.isAdmin(tx, adminID); err != nil {
			return "", err
		} else if !admin {
			return "", ErrUnauthorized
		}
		if trade.IsTerminal() {
			return "", ErrInvalidTransition
		}

		if winner == "seller" && s.escrow.HasHold(tx, trade.ID) {
			if err := s.escrow.ReleaseToSeller(tx, trade); err != nil {
				return "", err
			}
		} else if err := s.escrow.RefundToBuyer(tx, trade); err != nil {
			return "", err
		}
		return models.StateCancelled, nil
	}, adminID)
}

// GetTrade loads a trade with its ordered timeline.
func (s *TradeService) GetTrade(tradeID uint) (*models.Trade, error) {
	trade, err := s.loadTrade(s.db, tradeID)
	if err != nil {
		return nil, err
	}
	return trade, nil
}

// TradesFor lists a user's trades, newest first, optionally filtered by
// role ("buyer" or "seller").
func (s *TradeService) TradesFor(userID uint, role string) ([]models.Trade, error) {
	q := s.db.Preload("Timeline", func(db *gorm.DB) *gorm.DB {
		return db.Order("seq ASC")
	}).Preload("Listing")

	switch role {
	case "buyer":
		q = q.Where("buyer_id = ?", userID)
	case "seller":
		q = q.Where("seller_id = ?", userID)
	default:
		q = q.Where("buyer_id = ? OR seller_id = ?", userID, userID)
	}

	var trades []models.Trade
	if err := q.Order("created_at DESC").Find(&trades).Error; err != nil {
		return nil, err
	}
	return trades, nil
}

// ContactCard is what the disclosure gate lets a viewer see about the
// counterparty. Evaluated fresh on every call.
type ContactCard struct {
	Revealed    bool   `json:"revealed"`
	FullName    string `json:"full_name"`
	PhoneNumber string `json:"phone_number,omitempty"`
}

// Contact applies the disclosure gate for this viewer.
func (s *TradeService) Contact(tradeID, viewerID uint) (*ContactCard, error) {
	trade, err := s.GetTrade(tradeID)
	if err != nil {
		return nil, err
	}
	if !trade.IsParty(viewerID) {
		return nil, ErrUnauthorized
	}

	var counterparty models.User
	if err := s.db.First(&counterparty, trade.Counterparty(viewerID)).Error; err != nil {
		return nil, err
	}

	card := &ContactCard{FullName: counterparty.FullName}
	if CanRevealContact(trade, &counterparty, viewerID) {
		card.Revealed = true
		card.PhoneNumber = counterparty.PhoneNumber
	}
	return card, nil
}

// --- internals

// transition runs a guarded transition: lock, load, guard, append one
// timeline entry, publish. The guard returns the target state.
func (s *TradeService) transition(tradeID uint, guard func(tx *gorm.DB, trade *models.Trade) (models.TradeState, error), actorID uint) (*models.Trade, error) {
	var ref models.Trade
	if err := s.db.Select("id", "buyer_id", "seller_id").First(&ref, tradeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	unlock := s.ledger.locks.Lock(tradeKey(tradeID), userKey(ref.BuyerID), userKey(ref.SellerID))
	defer unlock()

	var target models.TradeState
	err := s.db.Transaction(func(tx *gorm.DB) error {
		trade, err := s.loadTrade(tx, tradeID)
		if err != nil {
			return err
		}
		target, err = guard(tx, trade)
		if err != nil {
			return err
		}
		if !canFollow(trade.CurrentState(), target) {
			return ErrInvalidTransition
		}
		return s.appendState(tx, trade, target, actorID)
	})
	if err != nil {
		return nil, err
	}

	trade, err := s.GetTrade(tradeID)
	if err != nil {
		return nil, err
	}
	s.publishState(trade, target)
	return trade, nil
}

func (s *TradeService) loadTrade(db *gorm.DB, tradeID uint) (*models.Trade, error) {
	var trade models.Trade
	err := db.Preload("Timeline", func(db *gorm.DB) *gorm.DB {
		return db.Order("seq ASC")
	}).Preload("Listing").First(&trade, tradeID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &trade, nil
}

func (s *TradeService) appendState(tx *gorm.DB, trade *models.Trade, state models.TradeState, actorID uint) error {
	entry := models.TimelineEntry{
		TradeID: trade.ID,
		Seq:     len(trade.Timeline) + 1,
		State:   state,
		ActorID: actorID,
	}
	if err := tx.Create(&entry).Error; err != nil {
		return err
	}
	trade.Timeline = append(trade.Timeline, entry)
	return nil
}

func (s *TradeService) publishState(trade *models.Trade, state models.TradeState) {
	s.events.Publish("trade.stateChanged", []uint{trade.BuyerID, trade.SellerID}, map[string]interface{}{
		"trade_id": trade.ID,
		"state":    string(state),
	})
}

func (s *TradeService) isAdmin(tx *gorm.DB, userID uint) (bool, error) {
	var user models.User
	if err := tx.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, ErrUnauthorized
		}
		return false, err
	}
	return user.IsAdmin(), nil
}
