package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/konekt-api/internal/dto"
	"github.com/noah-isme/konekt-api/internal/models"
	"github.com/noah-isme/konekt-api/internal/realtime"
	"github.com/noah-isme/konekt-api/internal/repository"
	"github.com/noah-isme/konekt-api/pkg/apperror"
)

// MessageService persists conversation messages and fans them out live.
type MessageService interface {
	Send(ctx context.Context, senderID, conversationID uint, payload dto.MessageCreateRequest) (dto.MessageResponse, error)
	Edit(ctx context.Context, userID, conversationID, messageID uint, payload dto.MessageUpdateRequest) (dto.MessageResponse, error)
	Delete(ctx context.Context, userID, conversationID, messageID uint) error
}

type messageService struct {
	conversations repository.ConversationRepository
	messages      repository.MessageRepository
	notifier      *Notifier
	router        EventRouter
	sequencer     *realtime.Sequencer
	validator     *validator.Validate
	sanitizer     *bluemonday.Policy
	logger        zerolog.Logger
	tracer        trace.Tracer
}

// NewMessageService constructs the message service.
func NewMessageService(
	conversations repository.ConversationRepository,
	messages repository.MessageRepository,
	notifier *Notifier,
	router EventRouter,
	sequencer *realtime.Sequencer,
	validate *validator.Validate,
	logger zerolog.Logger,
) MessageService {
	if sequencer == nil {
		sequencer = realtime.NewSequencer()
	}
	sanitizer := bluemonday.UGCPolicy()
	sanitizer.AllowElements("br")

	return &messageService{
		conversations: conversations,
		messages:      messages,
		notifier:      notifier,
		router:        router,
		sequencer:     sequencer,
		validator:     validate,
		sanitizer:     sanitizer,
		logger:        logger.With().Str("component", "message_service").Logger(),
		tracer:        otel.Tracer("github.com/noah-isme/konekt-api/internal/service/message"),
	}
}

func (s *messageService) Send(ctx context.Context, senderID, conversationID uint, payload dto.MessageCreateRequest) (dto.MessageResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.MessageResponse{}, validationError(err)
	}
	content := strings.TrimSpace(s.sanitizer.Sanitize(payload.Content))
	if content == "" {
		return dto.MessageResponse{}, apperror.Validation("Message content is required")
	}

	spanCtx, span := s.tracer.Start(ctx, "messages.send", trace.WithAttributes(
		attribute.Int64("conversation.id", int64(conversationID)),
		attribute.Int64("message.sender_id", int64(senderID)),
	))
	defer span.End()

	conversation, err := s.conversations.FindByID(spanCtx, conversationID)
	if err != nil {
		span.RecordError(err)
		return dto.MessageResponse{}, storeError(err, "Conversation not found")
	}
	if _, ok := conversation.Participant(senderID); !ok {
		return dto.MessageResponse{}, apperror.Unauthorized("You are not a participant in this conversation")
	}

	message := models.Message{
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        content,
		AttachmentURL:  strings.TrimSpace(payload.AttachmentURL),
	}
	if !conversation.IsGroup {
		for _, participant := range conversation.Participants {
			if participant.UserID != senderID {
				message.ReceiverID = uintPtr(participant.UserID)
			}
		}
	}

	unlock := s.sequencer.Lock(conversationKey(conversationID))
	if err := s.messages.Create(spanCtx, &message); err != nil {
		unlock()
		span.RecordError(err)
		return dto.MessageResponse{}, storeError(err, "Conversation not found")
	}
	if stored, err := s.messages.FindByID(spanCtx, message.ID); err == nil {
		message = stored
	} else {
		s.logger.Warn().Err(err).Uint("message_id", message.ID).Msg("failed to reload message")
	}

	if !conversation.IsGroup {
		s.restoreHidden(spanCtx, conversation)
	}

	response := dto.NewMessageResponse(message)
	if s.router != nil {
		summary := dto.NewConversationResponse(conversation)
		summary.LastMessage = &response
		s.router.SendToConversation(spanCtx, conversationID, realtime.EventMessageNew, dto.MessageEventPayload{
			Message:      response,
			Conversation: &summary,
		})
	}
	unlock()

	if s.notifier != nil {
		sender := models.User{ID: senderID}
		if message.Sender != nil {
			sender = *message.Sender
		} else if participant, ok := conversation.Participant(senderID); ok && participant.User != nil {
			sender = *participant.User
		}
		if err := s.notifier.NotifyNewMessage(spanCtx, message, sender, conversation.Participants); err != nil {
			s.logger.Warn().Err(err).Uint("message_id", message.ID).Msg("failed to record message notifications")
		}
	}

	return response, nil
}

// restoreHidden brings a hidden direct conversation back for its participants.
func (s *messageService) restoreHidden(ctx context.Context, conversation models.Conversation) {
	hidden := false
	for _, participant := range conversation.Participants {
		hidden = hidden || participant.IsHidden
	}
	if !hidden {
		return
	}
	if err := s.conversations.UnhideAll(ctx, conversation.ID); err != nil {
		s.logger.Warn().Err(err).Uint("conversation_id", conversation.ID).Msg("failed to restore hidden conversation")
	}
}

func (s *messageService) Edit(ctx context.Context, userID, conversationID, messageID uint, payload dto.MessageUpdateRequest) (dto.MessageResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.MessageResponse{}, validationError(err)
	}
	content := strings.TrimSpace(s.sanitizer.Sanitize(payload.Content))
	if content == "" {
		return dto.MessageResponse{}, apperror.Validation("Message content is required")
	}

	if _, err := s.ownMessage(ctx, userID, conversationID, messageID, "edit"); err != nil {
		return dto.MessageResponse{}, err
	}

	unlock := s.sequencer.Lock(conversationKey(conversationID))
	defer unlock()

	updated, err := s.messages.UpdateContent(ctx, messageID, content, strings.TrimSpace(payload.AttachmentURL))
	if err != nil {
		return dto.MessageResponse{}, storeError(err, "Message not found")
	}

	response := dto.NewMessageResponse(updated)
	if s.router != nil {
		s.router.SendToConversation(ctx, conversationID, realtime.EventMessageUpdated, dto.MessageEventPayload{Message: response})
	}
	return response, nil
}

func (s *messageService) Delete(ctx context.Context, userID, conversationID, messageID uint) error {
	if _, err := s.ownMessage(ctx, userID, conversationID, messageID, "delete"); err != nil {
		return err
	}

	unlock := s.sequencer.Lock(conversationKey(conversationID))
	defer unlock()

	if err := s.messages.Delete(ctx, messageID); err != nil {
		return storeError(err, "Message not found")
	}
	if s.router != nil {
		s.router.SendToConversation(ctx, conversationID, realtime.EventMessageDeleted, dto.MessageDeletedPayload{
			MessageID:      messageID,
			ConversationID: conversationID,
		})
	}
	return nil
}

func (s *messageService) ownMessage(ctx context.Context, userID, conversationID, messageID uint, action string) (models.Message, error) {
	message, err := s.messages.FindByID(ctx, messageID)
	if err != nil {
		return models.Message{}, storeError(err, "Message not found")
	}
	if message.ConversationID != conversationID {
		return models.Message{}, apperror.NotFound("Message not found")
	}
	if message.SenderID != userID {
		return models.Message{}, apperror.Unauthorized("You can only %s your own messages", action)
	}
	return message, nil
}
