package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"meetbarter/internal/database"
	"meetbarter/internal/models"
)

type GrantVPRequest struct {
	UserID uint   `json:"user_id" validate:"required"`
	Amount int64  `json:"amount" validate:"required,gt=0"`
	Reason string `json:"reason" validate:"required"`
}

// GetWalletBalance retrieves the caller's VP balance, with the escrow
// sub-balance derived from active holds.
func GetWalletBalance(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(uint)

	var user models.User
	if err := database.DB.First(&user, userID).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to retrieve balance",
		})
	}

	var escrowBalance int64
	database.DB.Model(&models.EscrowHold{}).
		Where("holder_id = ?", userID).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&escrowBalance)

	return c.JSON(fiber.Map{
		"wallet_balance": user.WalletBalance,
		"escrow_balance": escrowBalance,
		"user": fiber.Map{
			"id":        user.ID,
			"full_name": user.FullName,
			"email":     user.Email,
		},
	})
}

// GrantVP credits VP to a user. Value Points are non-convertible, so
// they only enter the system through admin grants (signup bonuses,
// promotions, verification rewards).
func GrantVP(c *fiber.Ctx) error {
	req := new(GrantVPRequest)
	if err := parseBody(c, req); err != nil {
		return err
	}

	if err := ledgerService.Credit(req.UserID, req.Amount, req.Reason); err != nil {
		return serviceError(c, err)
	}

	var user models.User
	database.DB.First(&user, req.UserID)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":     "VP granted successfully",
		"user_id":     req.UserID,
		"amount":      req.Amount,
		"new_balance": user.WalletBalance,
	})
}

// GetLedgerHistory retrieves the caller's ledger entries, newest first.
func GetLedgerHistory(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(uint)

	limit, _ := strconv.Atoi(c.Query("limit", "50"))

	entries, err := ledgerService.Entries(userID, limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to retrieve ledger history",
		})
	}

	return c.JSON(fiber.Map{
		"entries": entries,
		"count":   len(entries),
	})
}
