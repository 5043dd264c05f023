package services

import (
	"meetbarter/internal/models"
)

// CanRevealContact decides whether the viewer may see the counterparty's
// phone number for this trade. Pure function of current trade state;
// callers must re-evaluate it on every read, never cache the answer.
//
// VP mode: contact opens once the soft commitment (intent) is recorded.
// Cash mode: contact opens only once the counterparty has a phone number
// on file AND the brokerage fee has been admin-verified.
func CanRevealContact(trade *models.Trade, counterparty *models.User, viewerID uint) bool {
	if !trade.IsParty(viewerID) {
		return false
	}
	if trade.Counterparty(viewerID) != counterparty.ID {
		return false
	}
	if trade.CurrentState() == models.StateCancelled {
		return false
	}

	switch trade.ExchangeMode {
	case models.ModeCash:
		return counterparty.PhoneNumber != "" && trade.FeesVerified
	default:
		return trade.IntentAt != nil
	}
}
