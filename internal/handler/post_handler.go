package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/konekt-api/internal/dto"
	"github.com/noah-isme/konekt-api/internal/service"
	"github.com/noah-isme/konekt-api/internal/utils"
)

// PostHandler exposes posts, likes and comments.
type PostHandler struct {
	service service.PostService
	logger  zerolog.Logger
}

// NewPostHandler constructs a post handler.
func NewPostHandler(service service.PostService, logger zerolog.Logger) *PostHandler {
	return &PostHandler{
		service: service,
		logger:  logger.With().Str("component", "post_handler").Logger(),
	}
}

// Register binds the post routes.
func (h *PostHandler) Register(router fiber.Router) {
	router.Get("/", h.list)
	router.Post("/", h.create)
	router.Post("/:id/likes", h.like)
	router.Delete("/:id/likes", h.unlike)
	router.Get("/:id/comments", h.comments)
	router.Post("/:id/comments", h.comment)
}

func (h *PostHandler) list(c *fiber.Ctx) error {
	var query dto.PostQuery
	if err := bindQuery(c, &query); err != nil {
		return utils.SendAppError(c, err)
	}

	result, err := h.service.List(requestContext(c), query)
	if err != nil {
		return failure(c, h.logger, err)
	}

	return utils.SendPage(c, "posts", result.Items, utils.NewPageMeta(result.Page, result.PageSize, result.Total))
}

func (h *PostHandler) create(c *fiber.Ctx) error {
	userID, ok := currentUser(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	var payload dto.PostCreateRequest
	if err := bindBody(c, &payload); err != nil {
		return utils.SendAppError(c, err)
	}

	post, err := h.service.Create(requestContext(c), userID, payload)
	if err != nil {
		return failure(c, h.logger, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "post created", post)
}

func (h *PostHandler) like(c *fiber.Ctx) error {
	userID, ok := currentUser(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}
	postID, err := paramID(c, "id")
	if err != nil {
		return utils.SendAppError(c, err)
	}

	state, err := h.service.Like(requestContext(c), userID, postID)
	if err != nil {
		return failure(c, h.logger, err)
	}

	return utils.SendSuccess(c, "post liked", state)
}

func (h *PostHandler) unlike(c *fiber.Ctx) error {
	userID, ok := currentUser(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}
	postID, err := paramID(c, "id")
	if err != nil {
		return utils.SendAppError(c, err)
	}

	state, err := h.service.Unlike(requestContext(c), userID, postID)
	if err != nil {
		return failure(c, h.logger, err)
	}

	return utils.SendSuccess(c, "post unliked", state)
}

func (h *PostHandler) comments(c *fiber.Ctx) error {
	postID, err := paramID(c, "id")
	if err != nil {
		return utils.SendAppError(c, err)
	}

	comments, err := h.service.ListComments(requestContext(c), postID)
	if err != nil {
		return failure(c, h.logger, err)
	}

	return utils.SendSuccess(c, "comments", comments)
}

func (h *PostHandler) comment(c *fiber.Ctx) error {
	userID, ok := currentUser(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}
	postID, err := paramID(c, "id")
	if err != nil {
		return utils.SendAppError(c, err)
	}

	var payload dto.CommentCreateRequest
	if err := bindBody(c, &payload); err != nil {
		return utils.SendAppError(c, err)
	}

	comment, err := h.service.Comment(requestContext(c), userID, postID, payload)
	if err != nil {
		return failure(c, h.logger, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "comment created", comment)
}
