package routes

import (
	"github.com/gofiber/fiber/v2"

	"meetbarter/internal/handlers"
	"meetbarter/internal/middleware"
)

func SetupDisputeRoutes(app *fiber.App) {
	disputes := app.Group("/api/disputes", middleware.Protected())

	// Raise a dispute on a trade
	disputes.Post("/", handlers.RaiseDispute)

	// Get my disputes
	disputes.Get("/my-disputes", handlers.GetMyDisputes)
}
