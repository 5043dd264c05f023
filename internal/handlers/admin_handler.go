package handlers

import (
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"meetbarter/internal/database"
	"meetbarter/internal/models"
)

type AdminLoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AdminLogin authenticates an admin account
func AdminLogin(c *fiber.Ctx) error {
	req := new(AdminLoginRequest)
	if err := parseBody(c, req); err != nil {
		return err
	}

	var user models.User
	if err := database.DB.Where("email = ?", req.Email).First(&user).Error; err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid credentials",
		})
	}

	if !user.IsAdmin() {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Admin access required",
		})
	}

	if user.IsSuspended {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Account is suspended",
		})
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid credentials",
		})
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": user.ID,
		"email":   user.Email,
		"role":    user.Role,
		"exp":     time.Now().Add(time.Hour * 24 * 7).Unix(), // 7 days for admin
	})

	tokenString, err := token.SignedString([]byte(os.Getenv("JWT_SECRET")))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to generate token",
		})
	}

	return c.JSON(fiber.Map{
		"message": "Admin login successful",
		"token":   tokenString,
		"user": fiber.Map{
			"id":        user.ID,
			"full_name": user.FullName,
			"email":     user.Email,
			"role":      user.Role,
		},
	})
}

// AdminRealityCheck - admin verifies item condition on a cash trade
// before any further progression. Idempotent.
func AdminRealityCheck(c *fiber.Ctx) error {
	tradeID, err := tradeIDParam(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid trade id"})
	}
	adminID := c.Locals("user_id").(uint)

	trade, err := tradeService.AdminRealityCheck(tradeID, adminID)
	if err != nil {
		return serviceError(c, err)
	}

	return c.JSON(fiber.Map{
		"message":            "Reality check recorded",
		"trade_id":           trade.ID,
		"is_reality_checked": trade.IsRealityChecked,
	})
}

// AdminVerifyFees - admin confirms the out-of-band brokerage fee
// payment on a cash trade. Idempotent; unblocks AWAITING_FEE.
func AdminVerifyFees(c *fiber.Ctx) error {
	tradeID, err := tradeIDParam(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid trade id"})
	}
	adminID := c.Locals("user_id").(uint)

	trade, err := tradeService.AdminVerifyFees(tradeID, adminID)
	if err != nil {
		return serviceError(c, err)
	}

	return c.JSON(fiber.Map{
		"message":       "Brokerage fees verified",
		"trade_id":      trade.ID,
		"fees_verified": trade.FeesVerified,
		"state":         trade.CurrentState(),
	})
}

// GetAllTrades lists trades for the admin dashboard
func GetAllTrades(c *fiber.Ctx) error {
	var trades []models.Trade
	if err := database.DB.
		Preload("Timeline", func(db *gorm.DB) *gorm.DB {
			return db.Order("seq ASC")
		}).
		Order("created_at DESC").
		Limit(200).
		Find(&trades).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to retrieve trades",
		})
	}

	return c.JSON(fiber.Map{
		"trades": trades,
		"count":  len(trades),
	})
}

// SuspendUser suspends a user account
func SuspendUser(c *fiber.Ctx) error {
	userID := c.Params("id")

	var req struct {
		Reason string `json:"reason" validate:"required"`
	}
	if err := parseBody(c, &req); err != nil {
		return err
	}

	var user models.User
	if err := database.DB.First(&user, userID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "User not found",
		})
	}

	now := time.Now()
	user.IsSuspended = true
	user.SuspendedAt = &now
	user.SuspendReason = req.Reason

	if err := database.DB.Save(&user).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to suspend user",
		})
	}

	return c.JSON(fiber.Map{
		"message": "User suspended",
		"user_id": user.ID,
	})
}
