package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/konekt-api/internal/config"
	"github.com/noah-isme/konekt-api/internal/handler"
	"github.com/noah-isme/konekt-api/internal/middleware"
	"github.com/noah-isme/konekt-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	ConversationHandler *handler.ConversationHandler
	NotificationHandler *handler.NotificationHandler
	FriendHandler       *handler.FriendHandler
	UserHandler         *handler.UserHandler
	PostHandler         *handler.PostHandler
	SocketHandler       *handler.SocketHandler
	Verifier            middleware.TokenVerifier
	NodeID              string
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/health", handler.HealthCheck(cfg, deps.NodeID))
	app.Get("/metrics", observability.MetricsHandler())

	if deps.SocketHandler != nil {
		deps.SocketHandler.Register(app, middleware.SocketAuth(deps.Verifier))
	}

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.NodeID))

	if deps.UserHandler != nil {
		deps.UserHandler.RegisterPublic(api.Group("/users"))
	}

	protected := api.Group("", middleware.JWTProtected(deps.Verifier))

	if deps.ConversationHandler != nil {
		deps.ConversationHandler.Register(protected.Group("/conversations"))
	}
	if deps.NotificationHandler != nil {
		deps.NotificationHandler.Register(protected.Group("/notifications"))
	}
	if deps.FriendHandler != nil {
		deps.FriendHandler.Register(protected.Group("/friends"))
	}
	if deps.UserHandler != nil {
		deps.UserHandler.Register(protected.Group("/users"))
	}
	if deps.PostHandler != nil {
		deps.PostHandler.Register(protected.Group("/posts"))
	}
	if deps.SocketHandler != nil {
		admin := protected.Group("/admin", middleware.RequireRole("admin"))
		deps.SocketHandler.RegisterAdmin(admin)
	}
}
