package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"meetbarter/internal/database"
	"meetbarter/internal/models"
)

type RaiseDisputeRequest struct {
	TradeID     uint   `json:"trade_id" validate:"required"`
	Reason      string `json:"reason" validate:"required,oneof=counterparty_no_show item_not_as_described item_damaged brokerage_fee_dispute other"`
	Description string `json:"description" validate:"required"`
}

type ResolveDisputeRequest struct {
	Winner     string `json:"winner" validate:"required,oneof=buyer seller"`
	Resolution string `json:"resolution" validate:"required"`
}

// RaiseDispute opens a dispute on a trade the caller is a party to.
func RaiseDispute(c *fiber.Ctx) error {
	req := new(RaiseDisputeRequest)
	if err := parseBody(c, req); err != nil {
		return err
	}

	userID := c.Locals("user_id").(uint)

	trade, err := tradeService.GetTrade(req.TradeID)
	if err != nil {
		return serviceError(c, err)
	}
	if !trade.IsParty(userID) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "You don't have access to this trade",
		})
	}
	if trade.IsTerminal() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Cannot dispute a closed trade",
		})
	}

	var existing models.Dispute
	if err := database.DB.Where("trade_id = ? AND status = ?", req.TradeID, models.DisputeOpen).First(&existing).Error; err == nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "An open dispute already exists for this trade",
		})
	}

	dispute := models.Dispute{
		TradeID:     req.TradeID,
		RaisedBy:    userID,
		Reason:      models.DisputeReason(req.Reason),
		Description: req.Description,
		Status:      models.DisputeOpen,
	}

	if err := database.DB.Create(&dispute).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to raise dispute",
		})
	}

	notificationService.Create(trade.Counterparty(userID), models.NotificationDisputeRaised,
		"Dispute Raised", "A dispute has been raised on one of your trades.",
		map[string]interface{}{"trade_id": trade.ID, "dispute_id": dispute.ID})

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Dispute raised. An admin will review the trade.",
		"dispute": dispute,
	})
}

// GetMyDisputes retrieves disputes on the caller's trades.
func GetMyDisputes(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(uint)

	var disputes []models.Dispute
	if err := database.DB.
		Joins("JOIN trades ON trades.id = disputes.trade_id").
		Where("disputes.raised_by = ? OR trades.buyer_id = ? OR trades.seller_id = ?", userID, userID, userID).
		Order("disputes.created_at DESC").
		Find(&disputes).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to retrieve disputes",
		})
	}

	return c.JSON(fiber.Map{
		"disputes": disputes,
		"count":    len(disputes),
	})
}

// ResolveDispute - admin rules on a dispute; the escrow goes to the
// winner and the trade is closed through the state machine.
func ResolveDispute(c *fiber.Ctx) error {
	disputeID := c.Params("id")
	adminID := c.Locals("user_id").(uint)

	req := new(ResolveDisputeRequest)
	if err := parseBody(c, req); err != nil {
		return err
	}

	var dispute models.Dispute
	if err := database.DB.First(&dispute, disputeID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Dispute not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Database error",
		})
	}

	if dispute.Status != models.DisputeOpen {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Dispute is not open",
		})
	}

	trade, err := tradeService.ResolveTrade(dispute.TradeID, adminID, req.Winner)
	if err != nil {
		return serviceError(c, err)
	}

	now := time.Now()
	dispute.Status = models.DisputeResolved
	dispute.Resolution = req.Resolution
	dispute.ResolvedBy = &adminID
	dispute.ResolvedAt = &now

	if err := database.DB.Save(&dispute).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to resolve dispute",
		})
	}

	for _, partyID := range []uint{trade.BuyerID, trade.SellerID} {
		notificationService.Create(partyID, models.NotificationDisputeResolved,
			"Dispute Resolved", "An admin has ruled on your disputed trade.",
			map[string]interface{}{"trade_id": trade.ID, "dispute_id": dispute.ID, "winner": req.Winner})
	}

	return c.JSON(fiber.Map{
		"message": "Dispute resolved",
		"dispute": fiber.Map{
			"id":          dispute.ID,
			"status":      dispute.Status,
			"resolution":  dispute.Resolution,
			"winner":      req.Winner,
			"resolved_at": dispute.ResolvedAt,
		},
		"trade_state": trade.CurrentState(),
	})
}
