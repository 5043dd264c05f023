package services

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"meetbarter/internal/models"
)

// ScorePolicy computes a trust score from a user's completed-trade
// history. The policy is pluggable; the contract is that it is a
// deterministic function of the event set, so replaying the same
// history always yields the same score.
type ScorePolicy interface {
	Score(userID uint, events []models.ReputationEvent) float64
}

// Collusion detection: more than this many completed trades between the
// same pair inside the window marks further completions as collusive,
// which damps their score weight.
const (
	collusionWindow    = 30 * 24 * time.Hour
	collusionThreshold = 3
)

// MovingAverageScorePolicy is the default: an exponentially weighted
// moving average toward a perfect outcome, starting from a neutral 50.
// Collusive completions carry a fifth of the normal weight.
type MovingAverageScorePolicy struct{}

func (MovingAverageScorePolicy) Score(userID uint, events []models.ReputationEvent) float64 {
	const (
		base            = 50.0
		outcome         = 100.0
		weight          = 0.05
		collusiveWeight = 0.01
	)

	score := base
	for _, ev := range events {
		w := weight
		if ev.Collusive {
			w = collusiveWeight
		}
		score = score*(1-w) + outcome*w
	}
	return score
}

// ReputationService updates both parties' trust score and trade
// counters when a trade completes. Keyed by tradeID, so a replayed
// completion is a no-op.
type ReputationService struct {
	db     *gorm.DB
	policy ScorePolicy
}

func NewReputationService(db *gorm.DB, policy ScorePolicy) *ReputationService {
	if policy == nil {
		policy = MovingAverageScorePolicy{}
	}
	return &ReputationService{db: db, policy: policy}
}

// Apply records the completed trade into both parties' reputation,
// inside the caller's transaction. Callers hold both user locks.
func (s *ReputationService) Apply(tx *gorm.DB, trade *models.Trade) error {
	var existing models.ReputationEvent
	err := tx.Where("trade_id = ?", trade.ID).First(&existing).Error
	if err == nil {
		return nil // already counted
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	collusive, err := s.isCollusivePair(tx, trade.BuyerID, trade.SellerID)
	if err != nil {
		return err
	}

	event := models.ReputationEvent{
		TradeID:   trade.ID,
		BuyerID:   trade.BuyerID,
		SellerID:  trade.SellerID,
		Collusive: collusive,
	}
	if err := tx.Create(&event).Error; err != nil {
		return err
	}

	for _, userID := range []uint{trade.BuyerID, trade.SellerID} {
		if err := s.recompute(tx, userID); err != nil {
			return err
		}
	}
	return nil
}

// isCollusivePair flags pairs that complete trades with each other
// abnormally often inside the window.
func (s *ReputationService) isCollusivePair(tx *gorm.DB, buyerID, sellerID uint) (bool, error) {
	var count int64
	since := time.Now().Add(-collusionWindow)
	err := tx.Model(&models.ReputationEvent{}).
		Where("created_at >= ?", since).
		Where("(buyer_id = ? AND seller_id = ?) OR (buyer_id = ? AND seller_id = ?)",
			buyerID, sellerID, sellerID, buyerID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count >= collusionThreshold, nil
}

// recompute replays the user's full completion history through the
// score policy and refreshes the stored score and counter.
func (s *ReputationService) recompute(tx *gorm.DB, userID uint) error {
	var events []models.ReputationEvent
	if err := tx.Where("buyer_id = ? OR seller_id = ?", userID, userID).
		Order("id ASC").
		Find(&events).Error; err != nil {
		return err
	}

	return tx.Model(&models.User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"completed_trades":   len(events),
			"global_trust_score": s.policy.Score(userID, events),
		}).Error
}
