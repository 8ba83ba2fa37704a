package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/konekt-api/internal/dto"
	"github.com/noah-isme/konekt-api/internal/service"
	"github.com/noah-isme/konekt-api/internal/utils"
)

// UserHandler exposes user registration, profiles and friend lists.
type UserHandler struct {
	users   service.UserService
	friends service.FriendService
	logger  zerolog.Logger
}

// NewUserHandler constructs a user handler.
func NewUserHandler(users service.UserService, friends service.FriendService, logger zerolog.Logger) *UserHandler {
	return &UserHandler{
		users:   users,
		friends: friends,
		logger:  logger.With().Str("component", "user_handler").Logger(),
	}
}

// RegisterPublic binds the unauthenticated user routes.
func (h *UserHandler) RegisterPublic(router fiber.Router) {
	router.Post("/", h.create)
}

// Register binds the authenticated user routes.
func (h *UserHandler) Register(router fiber.Router) {
	router.Get("/:id", h.get)
	router.Get("/:id/friends", h.friendList)
}

func (h *UserHandler) create(c *fiber.Ctx) error {
	var payload dto.UserCreateRequest
	if err := bindBody(c, &payload); err != nil {
		return utils.SendAppError(c, err)
	}

	user, err := h.users.Create(requestContext(c), payload)
	if err != nil {
		return failure(c, h.logger, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "user created", user)
}

func (h *UserHandler) get(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return utils.SendAppError(c, err)
	}

	user, err := h.users.Get(requestContext(c), id)
	if err != nil {
		return failure(c, h.logger, err)
	}

	return utils.SendSuccess(c, "user", user)
}

func (h *UserHandler) friendList(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return utils.SendAppError(c, err)
	}

	friends, err := h.friends.ListFriends(requestContext(c), id)
	if err != nil {
		return failure(c, h.logger, err)
	}

	return utils.SendSuccess(c, "friends", friends)
}
