package routes

import (
	"github.com/gofiber/fiber/v2"

	"meetbarter/internal/handlers"
	"meetbarter/internal/middleware"
)

func SetupListingRoutes(app *fiber.App) {
	listings := app.Group("/api/listings")

	// Browse is public
	listings.Get("/", handlers.GetListings)
	listings.Get("/:id", handlers.GetListing)

	// Creating a listing runs the valuation policy
	listings.Post("/", middleware.Protected(), handlers.CreateListing)
}
