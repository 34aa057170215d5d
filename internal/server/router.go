package server

import (
	"github.com/gofiber/fiber/v2"

	"github.com/tesserahq/trustgate/internal/domain/auth"
	"github.com/tesserahq/trustgate/internal/domain/ratelimit"
)

// SetupRoutes sets up the routes for the application
func SetupRoutes(app *fiber.App, authHandler *auth.Handler, authMiddleware fiber.Handler, apiLimiter, loginLimiter *ratelimit.Limiter) {
	api := app.Group("/v1", ratelimit.Middleware(apiLimiter))

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status": "ok",
		})
	})

	authGroup := api.Group("/auth")
	authGroup.Post("/login", ratelimit.Middleware(loginLimiter), authHandler.Login)
	authGroup.Post("/refresh", authHandler.Refresh)
	authGroup.Post("/logout", authMiddleware, authHandler.Logout)
	authGroup.Post("/password", authMiddleware, authHandler.ChangePassword)
	authGroup.Post("/sessions/revoke-others", authMiddleware, authHandler.RevokeOtherSessions)
}
