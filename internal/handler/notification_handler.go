package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/konekt-api/internal/dto"
	"github.com/noah-isme/konekt-api/internal/service"
	"github.com/noah-isme/konekt-api/internal/utils"
	"github.com/noah-isme/konekt-api/pkg/apperror"
)

// NotificationHandler serves the polled notification view.
type NotificationHandler struct {
	service   service.NotificationService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewNotificationHandler constructs a handler instance.
func NewNotificationHandler(service service.NotificationService, validator *validator.Validate, logger zerolog.Logger) *NotificationHandler {
	return &NotificationHandler{
		service:   service,
		validator: validator,
		logger:    logger.With().Str("component", "notification_handler").Logger(),
	}
}

// Register binds the notification routes.
func (h *NotificationHandler) Register(router fiber.Router) {
	router.Get("/", h.list)
	router.Get("/unread", h.unread)
	router.Put("/read", h.markManyRead)
	router.Put("/read-all", h.markAllRead)
	router.Put("/:id/read", h.markRead)
	router.Delete("/", h.clear)
}

func (h *NotificationHandler) list(c *fiber.Ctx) error {
	userID, ok := currentUser(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	var query dto.NotificationListQuery
	if err := bindQuery(c, &query); err != nil {
		return utils.SendAppError(c, err)
	}

	result, err := h.service.List(requestContext(c), userID, query)
	if err != nil {
		return failure(c, h.logger, err)
	}

	return utils.SendSuccess(c, "notifications", result)
}

func (h *NotificationHandler) unread(c *fiber.Ctx) error {
	userID, ok := currentUser(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	count, err := h.service.UnreadCount(requestContext(c), userID)
	if err != nil {
		return failure(c, h.logger, err)
	}

	return utils.SendSuccess(c, "unread notifications", dto.NotificationUnreadResponse{UnreadCount: count})
}

func (h *NotificationHandler) markRead(c *fiber.Ctx) error {
	userID, ok := currentUser(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}
	id, err := paramID(c, "id")
	if err != nil {
		return utils.SendAppError(c, err)
	}

	notification, err := h.service.MarkRead(requestContext(c), id, userID)
	if err != nil {
		return failure(c, h.logger, err)
	}

	return utils.SendSuccess(c, "notification updated", notification)
}

func (h *NotificationHandler) markManyRead(c *fiber.Ctx) error {
	userID, ok := currentUser(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	var payload dto.MarkNotificationsRequest
	if err := bindBody(c, &payload); err != nil {
		return utils.SendAppError(c, err)
	}
	if err := h.validator.Struct(payload); err != nil {
		return utils.SendAppError(c, apperror.Validation("notification_ids must contain between 1 and 100 ids"))
	}

	affected, err := h.service.MarkManyRead(requestContext(c), userID, payload.NotificationIDs)
	if err != nil {
		return failure(c, h.logger, err)
	}

	return utils.SendSuccess(c, "notifications marked as read", dto.NotificationBulkResponse{Affected: affected})
}

func (h *NotificationHandler) markAllRead(c *fiber.Ctx) error {
	userID, ok := currentUser(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	affected, err := h.service.MarkAllRead(requestContext(c), userID)
	if err != nil {
		return failure(c, h.logger, err)
	}

	return utils.SendSuccess(c, "notifications marked as read", dto.NotificationBulkResponse{Affected: affected})
}

func (h *NotificationHandler) clear(c *fiber.Ctx) error {
	userID, ok := currentUser(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	affected, err := h.service.ClearAll(requestContext(c), userID)
	if err != nil {
		return failure(c, h.logger, err)
	}

	return utils.SendSuccess(c, "notifications cleared", dto.NotificationBulkResponse{Affected: affected})
}
