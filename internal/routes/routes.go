package routes

import (
	"github.com/gofiber/fiber/v2"

	"meetbarter/internal/handlers"
	"meetbarter/internal/middleware"
)

func SetupRoutes(app *fiber.App) {
	// API routes
	api := app.Group("/api")

	// Auth routes
	auth := api.Group("/auth")
	auth.Post("/signup", handlers.Signup)
	auth.Post("/login", handlers.Login)

	// Profile routes
	profile := api.Group("/profile", middleware.Protected())
	profile.Get("/", handlers.GetProfile)
	profile.Put("/phone", handlers.UpdatePhone)
	api.Get("/users/:id", handlers.GetPublicProfile)

	// Health check
	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "MeetBarter API v1.0",
			"status":  "running",
		})
	})
}
