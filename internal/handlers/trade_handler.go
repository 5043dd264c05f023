package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"meetbarter/internal/models"
	"meetbarter/internal/services"
)

type CreateTradeRequest struct {
	ListingID    uint   `json:"listing_id" validate:"required"`
	OfferVP      int64  `json:"offer_vp" validate:"required,gt=0"`
	ExchangeMode string `json:"exchange_mode" validate:"omitempty,oneof=vp cash"`
	CashOffer    int64  `json:"cash_offer" validate:"omitempty,gt=0"`
	CashCurrency string `json:"cash_currency" validate:"omitempty,len=3"`
}

type ChecklistRequest struct {
	Checklist string `json:"checklist" validate:"required"`
}

type SweetenerRequest struct {
	Amount   int64  `json:"amount" validate:"required,gt=0"`
	Currency string `json:"currency" validate:"required,len=3"`
}

func tradeIDParam(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	return uint(id), err
}

// CreateTrade opens a trade against a listing. Cash-mode trades start
// gated on brokerage fee verification.
func CreateTrade(c *fiber.Ctx) error {
	req := new(CreateTradeRequest)
	if err := parseBody(c, req); err != nil {
		return err
	}

	buyerID := c.Locals("user_id").(uint)

	trade, err := tradeService.CreateTrade(services.CreateTradeInput{
		ListingID:    req.ListingID,
		BuyerID:      buyerID,
		OfferVP:      req.OfferVP,
		ExchangeMode: models.ExchangeMode(req.ExchangeMode),
		CashOffer:    req.CashOffer,
		CashCurrency: req.CashCurrency,
	})
	if err != nil {
		return serviceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Trade offer created",
		"trade":   trade,
		"state":   trade.CurrentState(),
	})
}

// AcceptOffer - seller accepts the offer; the coordination escrow is
// held from the buyer's wallet.
func AcceptOffer(c *fiber.Ctx) error {
	tradeID, err := tradeIDParam(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid trade id"})
	}
	userID := c.Locals("user_id").(uint)

	trade, err := tradeService.AcceptOffer(tradeID, userID)
	if err != nil {
		return serviceError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Offer accepted. Coordination escrow is now held.",
		"trade":   trade,
		"state":   trade.CurrentState(),
	})
}

// RecordIntent records the soft commitment that gates early contact
// disclosure on VP trades.
func RecordIntent(c *fiber.Ctx) error {
	tradeID, err := tradeIDParam(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid trade id"})
	}
	userID := c.Locals("user_id").(uint)

	trade, err := tradeService.RecordIntent(tradeID, userID)
	if err != nil {
		return serviceError(c, err)
	}

	return c.JSON(fiber.Map{
		"message":   "Intent recorded",
		"trade":     trade,
		"intent_at": trade.IntentAt,
	})
}

// LockItems - seller confirms the items are set aside for this trade.
func LockItems(c *fiber.Ctx) error {
	tradeID, err := tradeIDParam(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid trade id"})
	}
	userID := c.Locals("user_id").(uint)

	trade, err := tradeService.LockItems(tradeID, userID)
	if err != nil {
		return serviceError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Items locked for this trade",
		"trade":   trade,
		"state":   trade.CurrentState(),
	})
}

// VerifyTrade - buyer confirms the item details before agreeing to meet.
func VerifyTrade(c *fiber.Ctx) error {
	tradeID, err := tradeIDParam(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid trade id"})
	}
	userID := c.Locals("user_id").(uint)

	trade, err := tradeService.VerifyTrade(tradeID, userID)
	if err != nil {
		return serviceError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Trade verified",
		"trade":   trade,
		"state":   trade.CurrentState(),
	})
}

// SubmitChecklist records a party's pre-trade checklist; when both
// parties have submitted, the meetup is agreed.
func SubmitChecklist(c *fiber.Ctx) error {
	tradeID, err := tradeIDParam(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid trade id"})
	}
	req := new(ChecklistRequest)
	if err := parseBody(c, req); err != nil {
		return err
	}
	userID := c.Locals("user_id").(uint)

	trade, err := tradeService.SubmitChecklist(tradeID, userID, req.Checklist)
	if err != nil {
		return serviceError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Checklist submitted",
		"trade":   trade,
		"state":   trade.CurrentState(),
	})
}

// ConfirmCompletion - buyer confirms receipt; escrow is released to the
// seller and both reputations update.
func ConfirmCompletion(c *fiber.Ctx) error {
	tradeID, err := tradeIDParam(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid trade id"})
	}
	userID := c.Locals("user_id").(uint)

	trade, err := tradeService.ConfirmCompletion(tradeID, userID)
	if err != nil {
		return serviceError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Trade completed. Escrow released to seller.",
		"trade":   trade,
		"state":   trade.CurrentState(),
	})
}

// CancelTrade aborts the trade; any held escrow is refunded.
func CancelTrade(c *fiber.Ctx) error {
	tradeID, err := tradeIDParam(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid trade id"})
	}
	userID := c.Locals("user_id").(uint)

	trade, err := tradeService.CancelTrade(tradeID, userID)
	if err != nil {
		return serviceError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Trade cancelled. Any held escrow has been refunded.",
		"trade":   trade,
		"state":   trade.CurrentState(),
	})
}

// AddCashSweetener attaches a cash offer on top of the VP offer.
func AddCashSweetener(c *fiber.Ctx) error {
	tradeID, err := tradeIDParam(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid trade id"})
	}
	req := new(SweetenerRequest)
	if err := parseBody(c, req); err != nil {
		return err
	}
	userID := c.Locals("user_id").(uint)

	trade, err := tradeService.AddCashSweetener(tradeID, userID, req.Amount, req.Currency)
	if err != nil {
		return serviceError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Cash sweetener recorded",
		"trade":   trade,
	})
}

// GetMyTrades retrieves all trades for the authenticated user
func GetMyTrades(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(uint)
	role := c.Query("role")

	trades, err := tradeService.TradesFor(userID, role)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to retrieve trades",
		})
	}

	return c.JSON(fiber.Map{
		"trades": trades,
		"count":  len(trades),
	})
}

// GetTradeByID retrieves a specific trade with its timeline
func GetTradeByID(c *fiber.Ctx) error {
	tradeID, err := tradeIDParam(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid trade id"})
	}
	userID := c.Locals("user_id").(uint)

	trade, err := tradeService.GetTrade(tradeID)
	if err != nil {
		return serviceError(c, err)
	}
	if !trade.IsParty(userID) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "You don't have access to this trade",
		})
	}

	return c.JSON(fiber.Map{
		"trade": trade,
		"state": trade.CurrentState(),
	})
}

// GetContact applies the disclosure gate: the counterparty's phone is
// revealed only once the trade has progressed far enough for its mode.
// Evaluated fresh on every request.
func GetContact(c *fiber.Ctx) error {
	tradeID, err := tradeIDParam(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid trade id"})
	}
	userID := c.Locals("user_id").(uint)

	card, err := tradeService.Contact(tradeID, userID)
	if err != nil {
		return serviceError(c, err)
	}

	return c.JSON(fiber.Map{
		"contact": card,
	})
}
