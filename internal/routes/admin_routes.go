package routes

import (
	"github.com/gofiber/fiber/v2"

	"meetbarter/internal/handlers"
	"meetbarter/internal/middleware"
)

func SetupAdminRoutes(app *fiber.App) {
	app.Post("/api/admin/login", handlers.AdminLogin)

	admin := app.Group("/api/admin", middleware.Protected(), middleware.AdminOnly())

	// Trade oversight
	admin.Get("/trades", handlers.GetAllTrades)

	// Cash-mode gates
	admin.Post("/trades/:id/reality-check", handlers.AdminRealityCheck)
	admin.Post("/trades/:id/verify-fees", handlers.AdminVerifyFees)

	// Dispute ruling
	admin.Post("/disputes/:id/resolve", handlers.ResolveDispute)

	// User moderation
	admin.Post("/users/:id/suspend", handlers.SuspendUser)
}
