package handlers

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"meetbarter/internal/database"
	"meetbarter/internal/models"
	"meetbarter/internal/services"
)

type CreateListingRequest struct {
	Title              string `json:"title" validate:"required"`
	Description        string `json:"description"`
	OriginalPrice      int64  `json:"original_price" validate:"required,gt=0"`
	PriceVP            int64  `json:"price_vp"`
	Condition          string `json:"condition" validate:"omitempty,oneof=new used"`
	OriginType         string `json:"origin_type"`
	AuthenticityStatus string `json:"authenticity_status" validate:"omitempty,oneof=verified unverified replica_declared"`
	IsRefurbished      bool   `json:"is_refurbished"`
	EscrowPercentage   int    `json:"escrow_percentage" validate:"omitempty,gt=0,lte=100"`
}

// Listing limits per verification tier (0-4).
var listingLimits = [5]int64{3, 10, 25, 50, 100}

// CreateListing creates a listing with its VP price clamped by the
// valuation policy. The clamped price is frozen; trades reference it.
func CreateListing(c *fiber.Ctx) error {
	req := new(CreateListingRequest)
	if err := parseBody(c, req); err != nil {
		return err
	}

	sellerID := c.Locals("user_id").(uint)

	var seller models.User
	if err := database.DB.First(&seller, sellerID).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to retrieve seller information",
		})
	}
	if !seller.CanTrade() {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Account is suspended",
		})
	}

	tier := seller.VerificationLevel
	if tier < 0 {
		tier = 0
	}
	if tier > 4 {
		tier = 4
	}
	var active int64
	database.DB.Model(&models.Listing{}).
		Where("seller_id = ? AND status = ?", sellerID, models.ListingActive).
		Count(&active)
	if active >= listingLimits[tier] {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Active listing limit reached for your verification level",
		})
	}

	condition := models.ListingCondition(req.Condition)
	if condition == "" {
		condition = models.ConditionNew
	}
	authenticity := models.AuthenticityStatus(req.AuthenticityStatus)
	if authenticity == "" {
		authenticity = models.AuthenticityUnverified
	}

	listing := models.Listing{
		SellerID:           sellerID,
		Title:              req.Title,
		Description:        req.Description,
		OriginalPrice:      req.OriginalPrice,
		PriceVP:            req.PriceVP,
		Condition:          condition,
		OriginType:         req.OriginType,
		AuthenticityStatus: authenticity,
		IsRefurbished:      req.IsRefurbished,
		EscrowPercentage:   req.EscrowPercentage,
		Status:             models.ListingActive,
	}
	services.ClampListingPrice(&listing)

	if err := database.DB.Create(&listing).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create listing",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Listing created successfully",
		"listing": listing,
	})
}

// GetListing retrieves a specific listing
func GetListing(c *fiber.Ctx) error {
	listingID := c.Params("id")

	var listing models.Listing
	if err := database.DB.Preload("Seller").First(&listing, listingID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Listing not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Database error",
		})
	}

	return c.JSON(fiber.Map{
		"listing": listing,
	})
}

// GetListings retrieves active listings, newest first
func GetListings(c *fiber.Ctx) error {
	query := database.DB.Where("status = ?", models.ListingActive)

	if sellerID := c.Query("seller_id"); sellerID != "" {
		query = query.Where("seller_id = ?", sellerID)
	}

	var listings []models.Listing
	if err := query.Order("created_at DESC").Find(&listings).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to retrieve listings",
		})
	}

	return c.JSON(fiber.Map{
		"listings": listings,
		"count":    len(listings),
	})
}
