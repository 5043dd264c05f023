package services

import (
	"testing"

	"meetbarter/internal/models"
)

func TestReputationApplyIsIdempotentPerTrade(t *testing.T) {
	e := newTestEngine(t)
	buyer := e.createUser(t, "buyer", 0)
	seller := e.createUser(t, "seller", 0)
	reputation := NewReputationService(e.db, nil)

	trade := &models.Trade{ID: 77, BuyerID: buyer.ID, SellerID: seller.ID}

	if err := reputation.Apply(e.db, trade); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if err := reputation.Apply(e.db, trade); err != nil {
		t.Fatalf("replayed Apply: %v", err)
	}

	var b models.User
	e.db.First(&b, buyer.ID)
	if b.CompletedTrades != 1 {
		t.Fatalf("completed trades = %d after replay, want 1", b.CompletedTrades)
	}

	var events int64
	e.db.Model(&models.ReputationEvent{}).Where("trade_id = ?", trade.ID).Count(&events)
	if events != 1 {
		t.Fatalf("reputation events = %d, want 1", events)
	}
}

func TestScoreIsDeterministicReplayOfHistory(t *testing.T) {
	policy := MovingAverageScorePolicy{}
	events := []models.ReputationEvent{
		{TradeID: 1}, {TradeID: 2}, {TradeID: 3, Collusive: true},
	}

	first := policy.Score(1, events)
	second := policy.Score(1, events)
	if first != second {
		t.Fatalf("score not deterministic: %f != %f", first, second)
	}

	// More honest history means a higher score.
	if policy.Score(1, events[:1]) >= policy.Score(1, append(events[:2:2], models.ReputationEvent{TradeID: 4})) {
		t.Fatal("score did not grow with history")
	}
}

func TestCollusiveTradePairsAreDamped(t *testing.T) {
	e := newTestEngine(t)
	buyer := e.createUser(t, "buyer", 0)
	seller := e.createUser(t, "seller", 0)
	reputation := NewReputationService(e.db, nil)

	// Three recent completions between the same pair.
	for i := uint(1); i <= 3; i++ {
		if err := reputation.Apply(e.db, &models.Trade{ID: i, BuyerID: buyer.ID, SellerID: seller.ID}); err != nil {
			t.Fatalf("Apply %d: %v", i, err)
		}
	}

	// The fourth crosses the collusion threshold.
	if err := reputation.Apply(e.db, &models.Trade{ID: 4, BuyerID: seller.ID, SellerID: buyer.ID}); err != nil {
		t.Fatalf("Apply 4: %v", err)
	}

	var ev models.ReputationEvent
	if err := e.db.Where("trade_id = ?", 4).First(&ev).Error; err != nil {
		t.Fatalf("load event: %v", err)
	}
	if !ev.Collusive {
		t.Fatal("fourth same-pair trade not flagged collusive")
	}

	// A collusive completion moves the score less than an honest one.
	honest := MovingAverageScorePolicy{}.Score(1, []models.ReputationEvent{{}, {}, {}, {}})
	damped := MovingAverageScorePolicy{}.Score(1, []models.ReputationEvent{{}, {}, {}, {Collusive: true}})
	if damped >= honest {
		t.Fatalf("collusive weight not damped: %f >= %f", damped, honest)
	}
}
