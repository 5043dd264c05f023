package handlers

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"meetbarter/internal/database"
	"meetbarter/internal/models"
)

type UpdatePhoneRequest struct {
	PhoneNumber string `json:"phone_number" validate:"required,min=7,max=20"`
}

// GetProfile retrieves the caller's own profile
func GetProfile(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(uint)

	var user models.User
	if err := database.DB.First(&user, userID).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to retrieve profile",
		})
	}

	return c.JSON(fiber.Map{
		"user": user,
	})
}

// GetPublicProfile shows another user's trust signals. Contact fields
// stay hidden here; they only ever surface through the per-trade
// disclosure gate.
func GetPublicProfile(c *fiber.Ctx) error {
	userID := c.Params("id")

	var user models.User
	if err := database.DB.First(&user, userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "User not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Database error",
		})
	}

	return c.JSON(fiber.Map{
		"user": fiber.Map{
			"id":                 user.ID,
			"full_name":          user.FullName,
			"global_trust_score": user.GlobalTrustScore,
			"completed_trades":   user.CompletedTrades,
			"verification_level": user.VerificationLevel,
			"member_since":       user.CreatedAt,
		},
	})
}

// UpdatePhone sets the caller's phone number. Required before contact
// disclosure can happen on cash trades.
func UpdatePhone(c *fiber.Ctx) error {
	req := new(UpdatePhoneRequest)
	if err := parseBody(c, req); err != nil {
		return err
	}

	userID := c.Locals("user_id").(uint)

	if err := database.DB.Model(&models.User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"phone_number":   req.PhoneNumber,
			"phone_verified": false,
		}).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update phone number",
		})
	}

	return c.JSON(fiber.Map{
		"message": "Phone number updated. Verification pending.",
	})
}
