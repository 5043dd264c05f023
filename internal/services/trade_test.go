package services

import (
	"errors"
	"testing"

	"meetbarter/internal/models"
)

// advanceToMeetup walks a trade from OFFER_MADE to MEETUP_AGREED.
func advanceToMeetup(t *testing.T, e *testEngine, tradeID, buyerID, sellerID uint) {
	t.Helper()
	if _, err := e.trades.AcceptOffer(tradeID, sellerID); err != nil {
		t.Fatalf("AcceptOffer: %v", err)
	}
	if _, err := e.trades.LockItems(tradeID, sellerID); err != nil {
		t.Fatalf("LockItems: %v", err)
	}
	if _, err := e.trades.VerifyTrade(tradeID, buyerID); err != nil {
		t.Fatalf("VerifyTrade: %v", err)
	}
	if _, err := e.trades.SubmitChecklist(tradeID, buyerID, "met-at-station"); err != nil {
		t.Fatalf("SubmitChecklist buyer: %v", err)
	}
	trade, err := e.trades.SubmitChecklist(tradeID, sellerID, "met-at-station")
	if err != nil {
		t.Fatalf("SubmitChecklist seller: %v", err)
	}
	if got := trade.CurrentState(); got != models.StateMeetupAgreed {
		t.Fatalf("state after both checklists = %s, want %s", got, models.StateMeetupAgreed)
	}
}

func TestCreateTradeClampsToListingPrice(t *testing.T) {
	e := newTestEngine(t)
	seller := e.createUser(t, "seller", 0)
	buyer := e.createUser(t, "buyer", 1000)
	listing := e.createListing(t, seller.ID, 200)

	if _, err := e.trades.CreateTrade(CreateTradeInput{
		ListingID: listing.ID, BuyerID: buyer.ID, OfferVP: 300,
	}); !errors.Is(err, ErrPolicyViolation) {
		t.Fatalf("over-price offer: got %v, want ErrPolicyViolation", err)
	}

	if _, err := e.trades.CreateTrade(CreateTradeInput{
		ListingID: listing.ID, BuyerID: seller.ID, OfferVP: 100,
	}); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("self-trade: got %v, want ErrUnauthorized", err)
	}

	trade, err := e.trades.CreateTrade(CreateTradeInput{
		ListingID: listing.ID, BuyerID: buyer.ID, OfferVP: 200,
	})
	if err != nil {
		t.Fatalf("CreateTrade: %v", err)
	}
	if got := trade.CurrentState(); got != models.StateOfferMade {
		t.Fatalf("initial state = %s, want %s", got, models.StateOfferMade)
	}
	if trade.CoordinationEscrowVP != 30 {
		t.Fatalf("escrow = %d, want 30 (15%% of offer)", trade.CoordinationEscrowVP)
	}
}

// The scenario from the product brief: buyer with 1000 VP offers 200 on
// a 15%-escrow listing, the seller accepts (30 VP held), and the buyer
// cancels before the meetup.
func TestOfferAcceptCancelRoundTrip(t *testing.T) {
	e := newTestEngine(t)
	seller := e.createUser(t, "seller", 0)
	buyer := e.createUser(t, "buyer", 1000)
	listing := e.createListing(t, seller.ID, 200)

	trade, err := e.trades.CreateTrade(CreateTradeInput{
		ListingID: listing.ID, BuyerID: buyer.ID, OfferVP: 200,
	})
	if err != nil {
		t.Fatalf("CreateTrade: %v", err)
	}

	trade, err = e.trades.AcceptOffer(trade.ID, seller.ID)
	if err != nil {
		t.Fatalf("AcceptOffer: %v", err)
	}
	if got := e.balance(t, buyer.ID); got != 970 {
		t.Fatalf("buyer balance after hold = %d, want 970", got)
	}

	trade, err = e.trades.CancelTrade(trade.ID, buyer.ID)
	if err != nil {
		t.Fatalf("CancelTrade: %v", err)
	}
	if got := trade.CurrentState(); got != models.StateCancelled {
		t.Fatalf("state = %s, want %s", got, models.StateCancelled)
	}
	if got := e.balance(t, buyer.ID); got != 1000 {
		t.Fatalf("buyer balance after refund = %d, want 1000", got)
	}

	// No stuck escrow on a terminal trade.
	var holds int64
	e.db.Model(&models.EscrowHold{}).Where("trade_id = ?", trade.ID).Count(&holds)
	if holds != 0 {
		t.Fatalf("%d escrow holds left on cancelled trade", holds)
	}
}

// A 15% escrow on a tiny offer rounds down to zero VP; acceptance must
// still hold something rather than wedging the trade at OFFER_MADE.
func TestSmallOfferStillHoldsEscrow(t *testing.T) {
	e := newTestEngine(t)
	seller := e.createUser(t, "seller", 0)
	buyer := e.createUser(t, "buyer", 1000)
	listing := e.createListing(t, seller.ID, 5)

	trade, err := e.trades.CreateTrade(CreateTradeInput{
		ListingID: listing.ID, BuyerID: buyer.ID, OfferVP: 5,
	})
	if err != nil {
		t.Fatalf("CreateTrade: %v", err)
	}
	if trade.CoordinationEscrowVP != 1 {
		t.Fatalf("escrow = %d, want floor of 1", trade.CoordinationEscrowVP)
	}

	trade, err = e.trades.AcceptOffer(trade.ID, seller.ID)
	if err != nil {
		t.Fatalf("AcceptOffer on small offer: %v", err)
	}
	if got := trade.CurrentState(); got != models.StateOfferAccepted {
		t.Fatalf("state = %s, want %s", got, models.StateOfferAccepted)
	}
	if got := e.balance(t, buyer.ID); got != 999 {
		t.Fatalf("buyer balance after hold = %d, want 999", got)
	}

	if _, err := e.trades.CancelTrade(trade.ID, buyer.ID); err != nil {
		t.Fatalf("CancelTrade: %v", err)
	}
	if got := e.balance(t, buyer.ID); got != 1000 {
		t.Fatalf("buyer balance after refund = %d, want 1000", got)
	}
}

func TestAcceptOfferGuards(t *testing.T) {
	e := newTestEngine(t)
	seller := e.createUser(t, "seller", 0)
	buyer := e.createUser(t, "buyer", 10) // cannot cover the 30 VP escrow
	listing := e.createListing(t, seller.ID, 200)

	trade, err := e.trades.CreateTrade(CreateTradeInput{
		ListingID: listing.ID, BuyerID: buyer.ID, OfferVP: 200,
	})
	if err != nil {
		t.Fatalf("CreateTrade: %v", err)
	}

	if _, err := e.trades.AcceptOffer(trade.ID, buyer.ID); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("buyer accepting: got %v, want ErrUnauthorized", err)
	}
	if _, err := e.trades.AcceptOffer(trade.ID, seller.ID); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("broke buyer: got %v, want ErrInsufficientFunds", err)
	}

	// Failed acceptance appends nothing.
	loaded, err := e.trades.GetTrade(trade.ID)
	if err != nil {
		t.Fatalf("GetTrade: %v", err)
	}
	if got := loaded.CurrentState(); got != models.StateOfferMade {
		t.Fatalf("state after failed accepts = %s, want %s", got, models.StateOfferMade)
	}
	if len(loaded.Timeline) != 1 {
		t.Fatalf("timeline grew on failed transitions: %d entries", len(loaded.Timeline))
	}
}

func TestCompletionReleasesEscrowAndUpdatesReputation(t *testing.T) {
	e := newTestEngine(t)
	seller := e.createUser(t, "seller", 0)
	buyer := e.createUser(t, "buyer", 1000)
	listing := e.createListing(t, seller.ID, 200)

	trade, err := e.trades.CreateTrade(CreateTradeInput{
		ListingID: listing.ID, BuyerID: buyer.ID, OfferVP: 200,
	})
	if err != nil {
		t.Fatalf("CreateTrade: %v", err)
	}
	advanceToMeetup(t, e, trade.ID, buyer.ID, seller.ID)

	trade, err = e.trades.ConfirmCompletion(trade.ID, buyer.ID)
	if err != nil {
		t.Fatalf("ConfirmCompletion: %v", err)
	}
	if got := trade.CurrentState(); got != models.StateTradeCompleted {
		t.Fatalf("state = %s, want %s", got, models.StateTradeCompleted)
	}

	// 30 VP escrow moved from buyer to seller.
	if got := e.balance(t, buyer.ID); got != 970 {
		t.Fatalf("buyer balance = %d, want 970", got)
	}
	if got := e.balance(t, seller.ID); got != 30 {
		t.Fatalf("seller balance = %d, want 30", got)
	}

	// Reputation counted once for each party.
	var b, s models.User
	e.db.First(&b, buyer.ID)
	e.db.First(&s, seller.ID)
	if b.CompletedTrades != 1 || s.CompletedTrades != 1 {
		t.Fatalf("completed trades = %d/%d, want 1/1", b.CompletedTrades, s.CompletedTrades)
	}
	if b.GlobalTrustScore <= 50 || s.GlobalTrustScore <= 50 {
		t.Fatalf("trust scores did not move up: %f/%f", b.GlobalTrustScore, s.GlobalTrustScore)
	}

	found := false
	for _, ev := range e.pub.events {
		if ev == "escrow.released" {
			found = true
		}
	}
	if !found {
		t.Fatalf("escrow.released not published; events: %v", e.pub.events)
	}
}

func TestCompletionIsIdempotent(t *testing.T) {
	e := newTestEngine(t)
	seller := e.createUser(t, "seller", 0)
	buyer := e.createUser(t, "buyer", 1000)
	listing := e.createListing(t, seller.ID, 200)

	trade, err := e.trades.CreateTrade(CreateTradeInput{
		ListingID: listing.ID, BuyerID: buyer.ID, OfferVP: 200,
	})
	if err != nil {
		t.Fatalf("CreateTrade: %v", err)
	}
	advanceToMeetup(t, e, trade.ID, buyer.ID, seller.ID)

	if _, err := e.trades.ConfirmCompletion(trade.ID, buyer.ID); err != nil {
		t.Fatalf("ConfirmCompletion: %v", err)
	}
	if _, err := e.trades.ConfirmCompletion(trade.ID, buyer.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("second completion: got %v, want ErrInvalidTransition", err)
	}

	// Balances and counters moved exactly once.
	if got := e.balance(t, seller.ID); got != 30 {
		t.Fatalf("seller balance = %d, want 30", got)
	}
	var s models.User
	e.db.First(&s, seller.ID)
	if s.CompletedTrades != 1 {
		t.Fatalf("completed trades = %d, want 1", s.CompletedTrades)
	}
}

func TestUnauthorizedCompletionAppendsNothing(t *testing.T) {
	e := newTestEngine(t)
	seller := e.createUser(t, "seller", 0)
	buyer := e.createUser(t, "buyer", 1000)
	listing := e.createListing(t, seller.ID, 200)

	trade, err := e.trades.CreateTrade(CreateTradeInput{
		ListingID: listing.ID, BuyerID: buyer.ID, OfferVP: 200,
	})
	if err != nil {
		t.Fatalf("CreateTrade: %v", err)
	}
	advanceToMeetup(t, e, trade.ID, buyer.ID, seller.ID)

	if _, err := e.trades.ConfirmCompletion(trade.ID, seller.ID); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("seller confirming: got %v, want ErrUnauthorized", err)
	}

	loaded, err := e.trades.GetTrade(trade.ID)
	if err != nil {
		t.Fatalf("GetTrade: %v", err)
	}
	if got := loaded.CurrentState(); got != models.StateMeetupAgreed {
		t.Fatalf("state = %s, want %s", got, models.StateMeetupAgreed)
	}
}

func TestCashTradeIsGatedOnFeeVerification(t *testing.T) {
	e := newTestEngine(t)
	seller := e.createUser(t, "seller", 0)
	buyer := e.createUser(t, "buyer", 1000)
	admin := e.createAdmin(t)
	listing := e.createListing(t, seller.ID, 200)

	trade, err := e.trades.CreateTrade(CreateTradeInput{
		ListingID: listing.ID, BuyerID: buyer.ID, OfferVP: 200,
		ExchangeMode: models.ModeCash, CashOffer: 5000, CashCurrency: "USD",
	})
	if err != nil {
		t.Fatalf("CreateTrade: %v", err)
	}
	if got := trade.CurrentState(); got != models.StateAwaitingFee {
		t.Fatalf("cash trade starts at %s, want %s", got, models.StateAwaitingFee)
	}
	if trade.PlatformFeeBuyer != 125 || trade.PlatformFeeSeller != 125 {
		t.Fatalf("fees = %d/%d, want 125/125 (2.5%% of 5000)", trade.PlatformFeeBuyer, trade.PlatformFeeSeller)
	}

	// The normal flow is locked until fees are verified.
	if _, err := e.trades.AcceptOffer(trade.ID, seller.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("accept before fee verification: got %v, want ErrInvalidTransition", err)
	}

	// Non-admins cannot verify fees.
	if _, err := e.trades.AdminVerifyFees(trade.ID, buyer.ID); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("buyer verifying fees: got %v, want ErrUnauthorized", err)
	}

	trade, err = e.trades.AdminVerifyFees(trade.ID, admin.ID)
	if err != nil {
		t.Fatalf("AdminVerifyFees: %v", err)
	}
	if got := trade.CurrentState(); got != models.StateOfferMade {
		t.Fatalf("state after fee verification = %s, want %s", got, models.StateOfferMade)
	}
	if !trade.FeesVerified {
		t.Fatal("FeesVerified not set")
	}

	// Verifying again is a no-op, not an error.
	again, err := e.trades.AdminVerifyFees(trade.ID, admin.ID)
	if err != nil {
		t.Fatalf("repeat AdminVerifyFees: %v", err)
	}
	if len(again.Timeline) != len(trade.Timeline) {
		t.Fatalf("repeat verification appended timeline entries")
	}

	// Cash verification also requires the admin reality check.
	if _, err := e.trades.AcceptOffer(trade.ID, seller.ID); err != nil {
		t.Fatalf("AcceptOffer: %v", err)
	}
	if _, err := e.trades.LockItems(trade.ID, seller.ID); err != nil {
		t.Fatalf("LockItems: %v", err)
	}
	if _, err := e.trades.VerifyTrade(trade.ID, buyer.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("verify before reality check: got %v, want ErrInvalidTransition", err)
	}
	if _, err := e.trades.AdminRealityCheck(trade.ID, admin.ID); err != nil {
		t.Fatalf("AdminRealityCheck: %v", err)
	}
	if _, err := e.trades.VerifyTrade(trade.ID, buyer.ID); err != nil {
		t.Fatalf("VerifyTrade after reality check: %v", err)
	}
}

// Raising the cash offer after the admin has verified the original fee
// changes the fee, so the verification must be cleared and re-done.
func TestSweetenerRaiseClearsFeeVerification(t *testing.T) {
	e := newTestEngine(t)
	seller := e.createUser(t, "seller", 0)
	buyer := e.createUser(t, "buyer", 1000)
	admin := e.createAdmin(t)
	listing := e.createListing(t, seller.ID, 200)

	trade, err := e.trades.CreateTrade(CreateTradeInput{
		ListingID: listing.ID, BuyerID: buyer.ID, OfferVP: 200,
		ExchangeMode: models.ModeCash, CashOffer: 5000, CashCurrency: "USD",
	})
	if err != nil {
		t.Fatalf("CreateTrade: %v", err)
	}
	if _, err := e.trades.AdminVerifyFees(trade.ID, admin.ID); err != nil {
		t.Fatalf("AdminVerifyFees: %v", err)
	}

	trade, err = e.trades.AddCashSweetener(trade.ID, buyer.ID, 20000, "USD")
	if err != nil {
		t.Fatalf("AddCashSweetener: %v", err)
	}
	if trade.PlatformFeeBuyer != 500 || trade.PlatformFeeSeller != 500 {
		t.Fatalf("fees = %d/%d, want 500/500 (2.5%% of 20000)", trade.PlatformFeeBuyer, trade.PlatformFeeSeller)
	}
	if trade.FeesVerified {
		t.Fatal("fee verification survived a fee change")
	}

	// The disclosure gate closes with the verification.
	card, err := e.trades.Contact(trade.ID, buyer.ID)
	if err != nil {
		t.Fatalf("Contact: %v", err)
	}
	if card.Revealed {
		t.Fatal("contact still revealed after fee re-gate")
	}

	// Re-verifying the new fee reopens it without touching the timeline.
	before := len(trade.Timeline)
	trade, err = e.trades.AdminVerifyFees(trade.ID, admin.ID)
	if err != nil {
		t.Fatalf("repeat AdminVerifyFees: %v", err)
	}
	if !trade.FeesVerified {
		t.Fatal("FeesVerified not set on re-verification")
	}
	if len(trade.Timeline) != before {
		t.Fatalf("re-verification appended timeline entries")
	}
}

func TestRecordIntentIsOneShot(t *testing.T) {
	e := newTestEngine(t)
	seller := e.createUser(t, "seller", 0)
	buyer := e.createUser(t, "buyer", 1000)
	listing := e.createListing(t, seller.ID, 200)

	trade, err := e.trades.CreateTrade(CreateTradeInput{
		ListingID: listing.ID, BuyerID: buyer.ID, OfferVP: 200,
	})
	if err != nil {
		t.Fatalf("CreateTrade: %v", err)
	}

	trade, err = e.trades.RecordIntent(trade.ID, buyer.ID)
	if err != nil {
		t.Fatalf("RecordIntent: %v", err)
	}
	if trade.IntentAt == nil {
		t.Fatal("IntentAt not set")
	}
	first := *trade.IntentAt

	// Re-recording is a no-op that keeps the original timestamp.
	trade, err = e.trades.RecordIntent(trade.ID, seller.ID)
	if err != nil {
		t.Fatalf("repeat RecordIntent: %v", err)
	}
	if !trade.IntentAt.Equal(first) {
		t.Fatalf("IntentAt changed on repeat: %v -> %v", first, trade.IntentAt)
	}

	// Outsiders cannot record intent.
	outsider := e.createUser(t, "outsider", 0)
	if _, err := e.trades.RecordIntent(trade.ID, outsider.ID); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("outsider intent: got %v, want ErrUnauthorized", err)
	}
}

func TestDisputeResolutionClosesEscrow(t *testing.T) {
	e := newTestEngine(t)
	seller := e.createUser(t, "seller", 0)
	buyer := e.createUser(t, "buyer", 1000)
	admin := e.createAdmin(t)
	listing := e.createListing(t, seller.ID, 200)

	trade, err := e.trades.CreateTrade(CreateTradeInput{
		ListingID: listing.ID, BuyerID: buyer.ID, OfferVP: 200,
	})
	if err != nil {
		t.Fatalf("CreateTrade: %v", err)
	}
	if _, err := e.trades.AcceptOffer(trade.ID, seller.ID); err != nil {
		t.Fatalf("AcceptOffer: %v", err)
	}

	trade, err = e.trades.ResolveTrade(trade.ID, admin.ID, "seller")
	if err != nil {
		t.Fatalf("ResolveTrade: %v", err)
	}
	if got := trade.CurrentState(); got != models.StateCancelled {
		t.Fatalf("state = %s, want %s", got, models.StateCancelled)
	}
	if got := e.balance(t, seller.ID); got != 30 {
		t.Fatalf("seller balance after ruling = %d, want 30", got)
	}

	var holds int64
	e.db.Model(&models.EscrowHold{}).Where("trade_id = ?", trade.ID).Count(&holds)
	if holds != 0 {
		t.Fatalf("%d escrow holds left after resolution", holds)
	}
}
