package routes

import (
	"github.com/gofiber/fiber/v2"

	"meetbarter/internal/handlers"
	"meetbarter/internal/middleware"
)

func SetupWalletRoutes(app *fiber.App) {
	wallet := app.Group("/api/wallet", middleware.Protected())

	// Get wallet + derived escrow balance
	wallet.Get("/balance", handlers.GetWalletBalance)

	// Ledger history (append-only audit trail)
	wallet.Get("/ledger", handlers.GetLedgerHistory)

	// VP grants are admin-only: Value Points are non-convertible and
	// never purchased.
	wallet.Post("/grant", middleware.AdminOnly(), handlers.GrantVP)
}
