package handlers

import (
	"bounty-board-backend/services"

	"github.com/gofiber/fiber/v2"
)

func SetupWebhookRoutes(app *fiber.App, webhookService *services.WebhookService) {
	// No bearer auth here — deliveries are authenticated by HMAC signature.
	app.Post("/github/webhook", webhookService.HandleWebhook)
}
