package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/konekt-api/internal/dto"
	"github.com/noah-isme/konekt-api/internal/service"
	"github.com/noah-isme/konekt-api/internal/utils"
)

// ConversationHandler exposes conversations, their messages and read state.
type ConversationHandler struct {
	conversations service.ConversationService
	messages      service.MessageService
	readState     service.ReadStateService
	messageLimit  fiber.Handler
	logger        zerolog.Logger
}

// NewConversationHandler constructs the handler. messageLimit guards message
// creation and may be nil.
func NewConversationHandler(conversations service.ConversationService, messages service.MessageService, readState service.ReadStateService, messageLimit fiber.Handler, logger zerolog.Logger) *ConversationHandler {
	if messageLimit == nil {
		messageLimit = func(c *fiber.Ctx) error { return c.Next() }
	}
	return &ConversationHandler{
		conversations: conversations,
		messages:      messages,
		readState:     readState,
		messageLimit:  messageLimit,
		logger:        logger.With().Str("component", "conversation_handler").Logger(),
	}
}

// Register binds the conversation routes.
func (h *ConversationHandler) Register(router fiber.Router) {
	router.Get("/", h.list)
	router.Post("/", h.create)
	router.Get("/unread", h.unreadSummary)
	router.Get("/:id", h.get)
	router.Put("/:id", h.rename)
	router.Delete("/:id", h.leave)
	router.Post("/:id/read", h.markRead)
	router.Get("/:id/unread", h.unreadCount)
	router.Get("/:id/participants", h.participants)
	router.Post("/:id/participants", h.addParticipant)
	router.Post("/:id/messages", h.messageLimit, h.sendMessage)
	router.Put("/:id/messages/:messageId", h.editMessage)
	router.Delete("/:id/messages/:messageId", h.deleteMessage)
}

func (h *ConversationHandler) list(c *fiber.Ctx) error {
	userID, ok := currentUser(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	var query dto.ConversationQuery
	if err := bindQuery(c, &query); err != nil {
		return utils.SendAppError(c, err)
	}

	result, err := h.conversations.List(requestContext(c), userID, query)
	if err != nil {
		return failure(c, h.logger, err)
	}

	return utils.SendPage(c, "conversations", result.Items, utils.NewPageMeta(result.Page, result.PageSize, result.Total))
}

func (h *ConversationHandler) create(c *fiber.Ctx) error {
	userID, ok := currentUser(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	var payload dto.ConversationCreateRequest
	if err := bindBody(c, &payload); err != nil {
		return utils.SendAppError(c, err)
	}

	result, err := h.conversations.Create(requestContext(c), userID, payload)
	if err != nil {
		return failure(c, h.logger, err)
	}

	if !result.Created {
		return utils.SendSuccess(c, "conversation already exists", result.Conversation)
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "conversation created", result.Conversation)
}

func (h *ConversationHandler) get(c *fiber.Ctx) error {
	userID, ok := currentUser(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}
	conversationID, err := paramID(c, "id")
	if err != nil {
		return utils.SendAppError(c, err)
	}

	var query dto.ConversationQuery
	if err := bindQuery(c, &query); err != nil {
		return utils.SendAppError(c, err)
	}

	detail, err := h.conversations.Get(requestContext(c), userID, conversationID, query)
	if err != nil {
		return failure(c, h.logger, err)
	}

	return utils.SendSuccess(c, "conversation", detail)
}

func (h *ConversationHandler) rename(c *fiber.Ctx) error {
	userID, ok := currentUser(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}
	conversationID, err := paramID(c, "id")
	if err != nil {
		return utils.SendAppError(c, err)
	}

	var payload dto.ConversationUpdateRequest
	if err := bindBody(c, &payload); err != nil {
		return utils.SendAppError(c, err)
	}

	conversation, err := h.conversations.Rename(requestContext(c), userID, conversationID, payload)
	if err != nil {
		return failure(c, h.logger, err)
	}

	return utils.SendSuccess(c, "conversation updated", conversation)
}

func (h *ConversationHandler) leave(c *fiber.Ctx) error {
	userID, ok := currentUser(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}
	conversationID, err := paramID(c, "id")
	if err != nil {
		return utils.SendAppError(c, err)
	}

	if err := h.conversations.Leave(requestContext(c), userID, conversationID); err != nil {
		return failure(c, h.logger, err)
	}

	return utils.SendSuccess(c, "conversation removed", nil)
}

func (h *ConversationHandler) markRead(c *fiber.Ctx) error {
	userID, ok := currentUser(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}
	conversationID, err := paramID(c, "id")
	if err != nil {
		return utils.SendAppError(c, err)
	}

	unread, err := h.readState.MarkConversationRead(requestContext(c), userID, conversationID)
	if err != nil {
		return failure(c, h.logger, err)
	}

	return utils.SendSuccess(c, "conversation marked as read", unread)
}

func (h *ConversationHandler) unreadCount(c *fiber.Ctx) error {
	userID, ok := currentUser(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}
	conversationID, err := paramID(c, "id")
	if err != nil {
		return utils.SendAppError(c, err)
	}

	unread, err := h.readState.UnreadCount(requestContext(c), userID, conversationID)
	if err != nil {
		return failure(c, h.logger, err)
	}

	return utils.SendSuccess(c, "unread count", unread)
}

func (h *ConversationHandler) unreadSummary(c *fiber.Ctx) error {
	userID, ok := currentUser(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	summary, err := h.readState.UnreadSummary(requestContext(c), userID)
	if err != nil {
		return failure(c, h.logger, err)
	}

	return utils.SendSuccess(c, "unread summary", summary)
}

func (h *ConversationHandler) participants(c *fiber.Ctx) error {
	userID, ok := currentUser(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}
	conversationID, err := paramID(c, "id")
	if err != nil {
		return utils.SendAppError(c, err)
	}

	participants, err := h.conversations.ListParticipants(requestContext(c), userID, conversationID)
	if err != nil {
		return failure(c, h.logger, err)
	}

	return utils.SendSuccess(c, "participants", participants)
}

func (h *ConversationHandler) addParticipant(c *fiber.Ctx) error {
	userID, ok := currentUser(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}
	conversationID, err := paramID(c, "id")
	if err != nil {
		return utils.SendAppError(c, err)
	}

	var payload dto.ParticipantAddRequest
	if err := bindBody(c, &payload); err != nil {
		return utils.SendAppError(c, err)
	}

	participant, err := h.conversations.AddParticipant(requestContext(c), userID, conversationID, payload)
	if err != nil {
		return failure(c, h.logger, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "participant added", participant)
}

func (h *ConversationHandler) sendMessage(c *fiber.Ctx) error {
	userID, ok := currentUser(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}
	conversationID, err := paramID(c, "id")
	if err != nil {
		return utils.SendAppError(c, err)
	}

	var payload dto.MessageCreateRequest
	if err := bindBody(c, &payload); err != nil {
		return utils.SendAppError(c, err)
	}

	message, err := h.messages.Send(requestContext(c), userID, conversationID, payload)
	if err != nil {
		return failure(c, h.logger, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "message sent", message)
}

func (h *ConversationHandler) editMessage(c *fiber.Ctx) error {
	userID, ok := currentUser(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}
	conversationID, err := paramID(c, "id")
	if err != nil {
		return utils.SendAppError(c, err)
	}
	messageID, err := paramID(c, "messageId")
	if err != nil {
		return utils.SendAppError(c, err)
	}

	var payload dto.MessageUpdateRequest
	if err := bindBody(c, &payload); err != nil {
		return utils.SendAppError(c, err)
	}

	message, err := h.messages.Edit(requestContext(c), userID, conversationID, messageID, payload)
	if err != nil {
		return failure(c, h.logger, err)
	}

	return utils.SendSuccess(c, "message updated", message)
}

func (h *ConversationHandler) deleteMessage(c *fiber.Ctx) error {
	userID, ok := currentUser(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}
	conversationID, err := paramID(c, "id")
	if err != nil {
		return utils.SendAppError(c, err)
	}
	messageID, err := paramID(c, "messageId")
	if err != nil {
		return utils.SendAppError(c, err)
	}

	if err := h.messages.Delete(requestContext(c), userID, conversationID, messageID); err != nil {
		return failure(c, h.logger, err)
	}

	return utils.SendSuccess(c, "message deleted", nil)
}
