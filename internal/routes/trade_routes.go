package routes

import (
	"github.com/gofiber/fiber/v2"

	"meetbarter/internal/handlers"
	"meetbarter/internal/middleware"
)

func SetupTradeRoutes(app *fiber.App) {
	trades := app.Group("/api/trades", middleware.Protected())

	// Create new trade offer (buyer)
	trades.Post("/", handlers.CreateTrade)

	// Get all my trades
	trades.Get("/my-trades", handlers.GetMyTrades)

	// Accept offer (seller) - places the coordination escrow hold
	trades.Post("/:id/accept", handlers.AcceptOffer)

	// Record soft commitment (either party)
	trades.Post("/:id/intent", handlers.RecordIntent)

	// Lock items for the trade (seller)
	trades.Post("/:id/lock-items", handlers.LockItems)

	// Verify item details (buyer)
	trades.Post("/:id/verify", handlers.VerifyTrade)

	// Submit pre-trade checklist (both parties)
	trades.Post("/:id/checklist", handlers.SubmitChecklist)

	// Confirm completion (buyer) - releases escrow to seller
	trades.Post("/:id/complete", handlers.ConfirmCompletion)

	// Cancel trade (either party) - refunds any held escrow
	trades.Post("/:id/cancel", handlers.CancelTrade)

	// Attach a cash sweetener (buyer)
	trades.Post("/:id/sweetener", handlers.AddCashSweetener)

	// Counterparty contact, gated by disclosure rules
	trades.Get("/:id/contact", handlers.GetContact)

	// Get specific trade
	trades.Get("/:id", handlers.GetTradeByID)
}
