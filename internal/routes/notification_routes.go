package routes

import (
	"github.com/gofiber/fiber/v2"

	"meetbarter/internal/handlers"
	"meetbarter/internal/middleware"
)

func SetupNotificationRoutes(app *fiber.App) {
	notifications := app.Group("/api/notifications", middleware.Protected())

	notifications.Get("/", handlers.GetNotifications)
	notifications.Post("/:id/read", handlers.MarkNotificationRead)
}
