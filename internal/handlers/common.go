package handlers

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"meetbarter/internal/database"
	"meetbarter/internal/services"
)

var validate = validator.New()

// Engine services shared by the handlers, wired once at startup.
var (
	ledgerService       *services.LedgerService
	tradeService        *services.TradeService
	notificationService *services.NotificationService
)

func InitServices() {
	db := database.DB
	ledgerService = services.NewLedgerService(db)
	escrow := services.NewEscrowCoordinator(ledgerService)
	reputation := services.NewReputationService(db, nil)
	publisher := services.NewNotificationPublisher(db)
	tradeService = services.NewTradeService(db, ledgerService, escrow, reputation, publisher)
	notificationService = services.NewNotificationService(db)
}

// parseBody parses and validates a JSON request body. Errors surface
// through the app's error handler as a 400.
func parseBody(c *fiber.Ctx, req interface{}) error {
	if err := c.BodyParser(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return nil
}

// serviceError maps the engine's typed errors to HTTP responses.
func serviceError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrUnauthorized):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrInsufficientFunds),
		errors.Is(err, services.ErrInvalidAmount),
		errors.Is(err, services.ErrPolicyViolation):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrInvalidTransition),
		errors.Is(err, services.ErrHoldAlreadyExists),
		errors.Is(err, services.ErrHoldNotFound):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Internal server error",
		})
	}
}
