package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/konekt-api/internal/service"
	"github.com/noah-isme/konekt-api/internal/utils"
)

// FriendHandler exposes the friend request lifecycle.
type FriendHandler struct {
	service service.FriendService
	logger  zerolog.Logger
}

// NewFriendHandler constructs a friend handler.
func NewFriendHandler(service service.FriendService, logger zerolog.Logger) *FriendHandler {
	return &FriendHandler{
		service: service,
		logger:  logger.With().Str("component", "friend_handler").Logger(),
	}
}

// Register binds the friend routes.
func (h *FriendHandler) Register(router fiber.Router) {
	router.Get("/requests/pending", h.pending)
	router.Post("/requests/:userId", h.sendRequest)
	router.Delete("/requests/:userId", h.deleteRequest)
	router.Put("/requests/:requestId/accept", h.accept)
	router.Put("/requests/:requestId/reject", h.reject)
	router.Delete("/:friendId", h.remove)
}

func (h *FriendHandler) sendRequest(c *fiber.Ctx) error {
	userID, ok := currentUser(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}
	targetID, err := paramID(c, "userId")
	if err != nil {
		return utils.SendAppError(c, err)
	}

	request, err := h.service.SendRequest(requestContext(c), userID, targetID)
	if err != nil {
		return failure(c, h.logger, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "friend request sent", request)
}

func (h *FriendHandler) deleteRequest(c *fiber.Ctx) error {
	userID, ok := currentUser(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}
	targetID, err := paramID(c, "userId")
	if err != nil {
		return utils.SendAppError(c, err)
	}

	if err := h.service.DeleteRequest(requestContext(c), userID, targetID); err != nil {
		return failure(c, h.logger, err)
	}

	return utils.SendSuccess(c, "friend request deleted", nil)
}

func (h *FriendHandler) pending(c *fiber.Ctx) error {
	userID, ok := currentUser(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	requests, err := h.service.ListPending(requestContext(c), userID)
	if err != nil {
		return failure(c, h.logger, err)
	}

	return utils.SendSuccess(c, "pending friend requests", requests)
}

func (h *FriendHandler) accept(c *fiber.Ctx) error {
	userID, ok := currentUser(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}
	requestID, err := paramID(c, "requestId")
	if err != nil {
		return utils.SendAppError(c, err)
	}

	request, err := h.service.Accept(requestContext(c), userID, requestID)
	if err != nil {
		return failure(c, h.logger, err)
	}

	return utils.SendSuccess(c, "friend request accepted", request)
}

func (h *FriendHandler) reject(c *fiber.Ctx) error {
	userID, ok := currentUser(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}
	requestID, err := paramID(c, "requestId")
	if err != nil {
		return utils.SendAppError(c, err)
	}

	request, err := h.service.Reject(requestContext(c), userID, requestID)
	if err != nil {
		return failure(c, h.logger, err)
	}

	return utils.SendSuccess(c, "friend request rejected", request)
}

func (h *FriendHandler) remove(c *fiber.Ctx) error {
	userID, ok := currentUser(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}
	friendID, err := paramID(c, "friendId")
	if err != nil {
		return utils.SendAppError(c, err)
	}

	if err := h.service.RemoveFriend(requestContext(c), userID, friendID); err != nil {
		return failure(c, h.logger, err)
	}

	return utils.SendSuccess(c, "friend removed", nil)
}
