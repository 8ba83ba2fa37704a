package handler

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/konekt-api/internal/middleware"
	"github.com/noah-isme/konekt-api/internal/realtime"
	"github.com/noah-isme/konekt-api/internal/service"
	"github.com/noah-isme/konekt-api/internal/utils"
)

// SocketHandler upgrades authenticated requests into realtime connections.
type SocketHandler struct {
	service service.SocketService
	options realtime.ClientOptions
	logger  zerolog.Logger
}

// NewSocketHandler creates a websocket handler.
func NewSocketHandler(service service.SocketService, options realtime.ClientOptions, logger zerolog.Logger) *SocketHandler {
	handlerLogger := logger.With().Str("component", "socket_handler").Logger()
	options.Logger = handlerLogger
	return &SocketHandler{
		service: service,
		options: options,
		logger:  handlerLogger,
	}
}

// Register binds the websocket endpoint. auth must reject the request before
// the upgrade when the caller carries no valid token.
func (h *SocketHandler) Register(router fiber.Router, auth fiber.Handler) {
	router.Use("/ws", auth, func(c *fiber.Ctx) error {
		ctx := middleware.ContextWithCorrelation(context.Background(), middleware.GetCorrelationID(c))
		c.Locals("request_ctx", ctx)
		return c.Next()
	})
	router.Get("/ws", websocket.New(h.handleConnection))
}

// RegisterAdmin binds the presence statistics endpoint.
func (h *SocketHandler) RegisterAdmin(router fiber.Router) {
	router.Get("/presence", h.presence)
}

func (h *SocketHandler) handleConnection(conn *websocket.Conn) {
	userID, err := realtime.NormalizeUserID(conn.Locals("user_id"))
	if err != nil {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "authentication error"))
		_ = conn.Close()
		return
	}

	ctx, _ := conn.Locals("request_ctx").(context.Context)
	if ctx == nil {
		ctx = context.Background()
	}

	client := realtime.NewClient(conn, h.options)
	if err := client.Authenticate(userID); err != nil {
		_ = conn.Close()
		return
	}

	h.logger.Info().Str("user_id", userID.String()).Str("connection_id", client.ID()).Msg("websocket connected")
	if err := h.service.Serve(ctx, client); err != nil {
		h.logger.Warn().Err(err).Str("user_id", userID.String()).Msg("websocket session failed")
	}
	h.logger.Info().Str("user_id", userID.String()).Str("connection_id", client.ID()).Msg("websocket disconnected")
}

func (h *SocketHandler) presence(c *fiber.Ctx) error {
	stats := h.service.Stats()
	return utils.SendSuccess(c, "presence", stats)
}
