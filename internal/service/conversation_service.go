package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/konekt-api/internal/dto"
	"github.com/noah-isme/konekt-api/internal/models"
	"github.com/noah-isme/konekt-api/internal/realtime"
	"github.com/noah-isme/konekt-api/internal/repository"
	"github.com/noah-isme/konekt-api/pkg/apperror"
)

// ChannelRouter is an EventRouter that can also evict a user from a
// conversation channel. Joining is left to the user's own connections.
type ChannelRouter interface {
	EventRouter
	LeaveUser(ctx context.Context, conversationID uint, userID realtime.UserID)
}

// ConversationService manages conversations and their participants.
type ConversationService interface {
	List(ctx context.Context, userID uint, query dto.ConversationQuery) (dto.ConversationListResponse, error)
	Create(ctx context.Context, creatorID uint, payload dto.ConversationCreateRequest) (dto.ConversationCreateResult, error)
	Get(ctx context.Context, userID, conversationID uint, query dto.ConversationQuery) (dto.ConversationDetailResponse, error)
	Rename(ctx context.Context, userID, conversationID uint, payload dto.ConversationUpdateRequest) (dto.ConversationResponse, error)
	Leave(ctx context.Context, userID, conversationID uint) error
	ListParticipants(ctx context.Context, userID, conversationID uint) ([]dto.ParticipantResponse, error)
	AddParticipant(ctx context.Context, userID, conversationID uint, payload dto.ParticipantAddRequest) (dto.ParticipantResponse, error)
}

type conversationService struct {
	conversations repository.ConversationRepository
	messages      repository.MessageRepository
	users         repository.UserRepository
	readState     ReadStateService
	notifier      *Notifier
	router        ChannelRouter
	sequencer     *realtime.Sequencer
	validator     *validator.Validate
	sanitizer     *bluemonday.Policy
	logger        zerolog.Logger
	tracer        trace.Tracer
	now           func() time.Time
}

// NewConversationService constructs the conversation service.
func NewConversationService(
	conversations repository.ConversationRepository,
	messages repository.MessageRepository,
	users repository.UserRepository,
	readState ReadStateService,
	notifier *Notifier,
	router ChannelRouter,
	sequencer *realtime.Sequencer,
	validate *validator.Validate,
	logger zerolog.Logger,
) ConversationService {
	if sequencer == nil {
		sequencer = realtime.NewSequencer()
	}
	return &conversationService{
		conversations: conversations,
		messages:      messages,
		users:         users,
		readState:     readState,
		notifier:      notifier,
		router:        router,
		sequencer:     sequencer,
		validator:     validate,
		sanitizer:     bluemonday.StrictPolicy(),
		logger:        logger.With().Str("component", "conversation_service").Logger(),
		tracer:        otel.Tracer("github.com/noah-isme/konekt-api/internal/service/conversation"),
		now:           func() time.Time { return time.Now().UTC() },
	}
}

func (s *conversationService) List(ctx context.Context, userID uint, query dto.ConversationQuery) (dto.ConversationListResponse, error) {
	if err := s.validator.Struct(query); err != nil {
		return dto.ConversationListResponse{}, validationError(err)
	}
	filter := repository.PageFilter{Page: query.Page, PageSize: query.PageSize}.Normalize()

	conversations, total, err := s.conversations.ListForUser(ctx, userID, filter)
	if err != nil {
		return dto.ConversationListResponse{}, storeError(err, "conversations not found")
	}

	items := make([]dto.ConversationResponse, 0, len(conversations))
	for _, conversation := range conversations {
		response, err := s.decorate(ctx, conversation, userID)
		if err != nil {
			return dto.ConversationListResponse{}, err
		}
		items = append(items, response)
	}

	return dto.ConversationListResponse{Items: items, Total: total, Page: filter.Page, PageSize: filter.PageSize}, nil
}

func (s *conversationService) Create(ctx context.Context, creatorID uint, payload dto.ConversationCreateRequest) (dto.ConversationCreateResult, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.ConversationCreateResult{}, validationError(err)
	}

	title := strings.TrimSpace(s.sanitizer.Sanitize(payload.Title))
	others := otherParticipants(payload.Participants, creatorID)
	switch {
	case len(others) == 0:
		return dto.ConversationCreateResult{}, apperror.Validation("Participant list is required")
	case !payload.IsGroup && len(others) != 1:
		return dto.ConversationCreateResult{}, apperror.Validation("Direct conversations require exactly one participant")
	case payload.IsGroup && title == "":
		return dto.ConversationCreateResult{}, apperror.Validation("Group conversations require a title")
	}

	spanCtx, span := s.tracer.Start(ctx, "conversations.create", trace.WithAttributes(
		attribute.Int64("conversation.creator_id", int64(creatorID)),
		attribute.Bool("conversation.is_group", payload.IsGroup),
		attribute.Int("conversation.participants", len(others)+1),
	))
	defer span.End()

	existing, err := s.users.ExistingIDs(spanCtx, others)
	if err != nil {
		span.RecordError(err)
		return dto.ConversationCreateResult{}, storeError(err, "One or more participants do not exist")
	}
	if len(existing) != len(others) {
		return dto.ConversationCreateResult{}, apperror.NotFound("One or more participants do not exist")
	}

	if payload.IsGroup {
		conversation := models.Conversation{Title: &title, IsGroup: true}
		if err := s.conversations.Create(spanCtx, &conversation, append([]uint{creatorID}, others...)); err != nil {
			span.RecordError(err)
			return dto.ConversationCreateResult{}, storeError(err, "conversation not found")
		}
		return s.afterCreate(spanCtx, conversation.ID, creatorID)
	}

	return s.createDirect(spanCtx, creatorID, others[0])
}

// createDirect returns the unique conversation of the pair, creating it when
// missing and restoring it when the creator had hidden it.
func (s *conversationService) createDirect(ctx context.Context, creatorID, otherID uint) (dto.ConversationCreateResult, error) {
	key := models.DirectKey(creatorID, otherID)
	unlock := s.sequencer.Lock("direct:" + key)
	defer unlock()

	conversation, err := s.conversations.FindByDirectKey(ctx, key)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		conversation = models.Conversation{DirectKey: &key}
		err = s.conversations.Create(ctx, &conversation, []uint{creatorID, otherID})
		if err == nil {
			return s.afterCreate(ctx, conversation.ID, creatorID)
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return dto.ConversationCreateResult{}, storeError(err, "conversation not found")
		}
		// Created concurrently by another node.
		conversation, err = s.conversations.FindByDirectKey(ctx, key)
	}
	if err != nil {
		return dto.ConversationCreateResult{}, storeError(err, "conversation not found")
	}

	restored := false
	if participant, ok := conversation.Participant(creatorID); ok && participant.IsHidden {
		if err := s.conversations.SetHidden(ctx, conversation.ID, creatorID, false); err != nil {
			return dto.ConversationCreateResult{}, storeError(err, "conversation not found")
		}
		restored = true
		if conversation, err = s.conversations.FindByID(ctx, conversation.ID); err != nil {
			return dto.ConversationCreateResult{}, storeError(err, "conversation not found")
		}
	}

	response, err := s.decorate(ctx, conversation, creatorID)
	if err != nil {
		return dto.ConversationCreateResult{}, err
	}
	return dto.ConversationCreateResult{Conversation: response, Restored: restored}, nil
}

func (s *conversationService) afterCreate(ctx context.Context, conversationID, creatorID uint) (dto.ConversationCreateResult, error) {
	conversation, err := s.conversations.FindByID(ctx, conversationID)
	if err != nil {
		return dto.ConversationCreateResult{}, storeError(err, "conversation not found")
	}

	if s.notifier != nil {
		if err := s.notifier.NotifyNewConversation(ctx, conversation, creatorID); err != nil {
			s.logger.Warn().Err(err).Uint("conversation_id", conversation.ID).Msg("failed to record new conversation notifications")
		}
	}

	return dto.ConversationCreateResult{Conversation: dto.NewConversationResponse(conversation), Created: true}, nil
}

func (s *conversationService) Get(ctx context.Context, userID, conversationID uint, query dto.ConversationQuery) (dto.ConversationDetailResponse, error) {
	if err := s.validator.Struct(query); err != nil {
		return dto.ConversationDetailResponse{}, validationError(err)
	}

	conversation, err := s.memberConversation(ctx, userID, conversationID)
	if err != nil {
		return dto.ConversationDetailResponse{}, err
	}

	filter := repository.MessageFilter{PageFilter: repository.PageFilter{Page: query.Page, PageSize: query.PageSize}.Normalize()}
	messages, total, err := s.messages.ListByConversation(ctx, conversationID, filter)
	if err != nil {
		return dto.ConversationDetailResponse{}, storeError(err, "conversation not found")
	}

	if s.readState != nil {
		if _, err := s.readState.TouchRead(ctx, userID, conversationID); err != nil {
			s.logger.Warn().Err(err).Uint("conversation_id", conversationID).Msg("failed to update read marker")
		}
	}

	response := dto.NewConversationResponse(conversation)
	if len(messages) > 0 {
		latest := dto.NewMessageResponse(messages[0])
		response.LastMessage = &latest
	}

	return dto.ConversationDetailResponse{
		ConversationResponse: response,
		Messages:             dto.NewMessageResponseSlice(messages),
		Total:                total,
	}, nil
}

func (s *conversationService) Rename(ctx context.Context, userID, conversationID uint, payload dto.ConversationUpdateRequest) (dto.ConversationResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.ConversationResponse{}, validationError(err)
	}
	title := strings.TrimSpace(s.sanitizer.Sanitize(payload.Title))
	if title == "" {
		return dto.ConversationResponse{}, apperror.Validation("Title is required")
	}

	conversation, err := s.memberConversation(ctx, userID, conversationID)
	if err != nil {
		return dto.ConversationResponse{}, err
	}
	if !conversation.IsGroup {
		return dto.ConversationResponse{}, apperror.Validation("Only group conversations can be renamed")
	}

	if err := s.conversations.UpdateTitle(ctx, conversationID, title); err != nil {
		return dto.ConversationResponse{}, storeError(err, "conversation not found")
	}
	conversation.Title = &title

	if s.router != nil {
		s.router.SendToConversation(ctx, conversationID, realtime.EventConversationRenamed, dto.ConversationRenamedPayload{
			ConversationID: conversationID,
			NewTitle:       title,
			UserID:         userID,
			Timestamp:      s.now(),
		})
	}

	return s.decorate(ctx, conversation, userID)
}

// Leave hides a direct conversation for the caller or removes the caller from a group.
func (s *conversationService) Leave(ctx context.Context, userID, conversationID uint) error {
	conversation, err := s.memberConversation(ctx, userID, conversationID)
	if err != nil {
		return err
	}

	if !conversation.IsGroup {
		participant, _ := conversation.Participant(userID)
		if participant.IsHidden {
			return apperror.Validation("Conversation is already deleted")
		}
		if err := s.conversations.SetHidden(ctx, conversationID, userID, true); err != nil {
			return storeError(err, "conversation not found")
		}
		if s.router != nil {
			s.router.LeaveUser(ctx, conversationID, realtime.UserID(userID))
		}
		return nil
	}

	if err := s.conversations.RemoveParticipant(ctx, conversationID, userID); err != nil {
		return storeError(err, "conversation not found")
	}
	if s.router != nil {
		s.router.LeaveUser(ctx, conversationID, realtime.UserID(userID))
		s.router.SendToConversation(ctx, conversationID, realtime.EventConversationUserLeft, dto.ParticipantEventPayload{
			ConversationID: conversationID,
			UserID:         userID,
			Timestamp:      s.now(),
		})
	}
	return nil
}

func (s *conversationService) ListParticipants(ctx context.Context, userID, conversationID uint) ([]dto.ParticipantResponse, error) {
	if _, err := s.memberConversation(ctx, userID, conversationID); err != nil {
		return nil, err
	}
	participants, err := s.conversations.ListParticipants(ctx, conversationID)
	if err != nil {
		return nil, storeError(err, "conversation not found")
	}
	return dto.NewParticipantResponseSlice(participants), nil
}

func (s *conversationService) AddParticipant(ctx context.Context, userID, conversationID uint, payload dto.ParticipantAddRequest) (dto.ParticipantResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.ParticipantResponse{}, validationError(err)
	}

	conversation, err := s.memberConversation(ctx, userID, conversationID)
	if err != nil {
		return dto.ParticipantResponse{}, err
	}
	if !conversation.IsGroup {
		return dto.ParticipantResponse{}, apperror.Validation("Cannot add participants to a direct conversation")
	}
	if _, ok := conversation.Participant(payload.UserID); ok {
		return dto.ParticipantResponse{}, apperror.Conflict("User is already a participant")
	}

	user, err := s.users.FindByID(ctx, payload.UserID)
	if err != nil {
		return dto.ParticipantResponse{}, storeError(err, "User not found")
	}

	participant := models.ConversationParticipant{
		UserID:         payload.UserID,
		ConversationID: conversationID,
		JoinedAt:       s.now(),
	}
	if err := s.conversations.AddParticipant(ctx, &participant); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return dto.ParticipantResponse{}, apperror.Conflict("User is already a participant")
		}
		return dto.ParticipantResponse{}, storeError(err, "conversation not found")
	}
	participant.User = &user

	if s.router != nil {
		s.router.SendToConversation(ctx, conversationID, realtime.EventConversationUserAdded, dto.ParticipantEventPayload{
			ConversationID: conversationID,
			UserID:         payload.UserID,
			AddedByID:      userID,
			Timestamp:      s.now(),
		})
	}
	if s.notifier != nil {
		if err := s.notifier.NotifyAddedToConversation(ctx, conversation, payload.UserID, userID); err != nil {
			s.logger.Warn().Err(err).Uint("conversation_id", conversationID).Msg("failed to record added-to-conversation notification")
		}
	}

	return dto.NewParticipantResponse(participant), nil
}

// memberConversation loads the conversation and checks that userID takes part in it.
func (s *conversationService) memberConversation(ctx context.Context, userID, conversationID uint) (models.Conversation, error) {
	conversation, err := s.conversations.FindByID(ctx, conversationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Conversation{}, apperror.NotFound("Conversation with id (%d) not found", conversationID)
		}
		return models.Conversation{}, storeError(err, "conversation not found")
	}
	if _, ok := conversation.Participant(userID); !ok {
		return models.Conversation{}, apperror.Unauthorized("You are not a participant in this conversation")
	}
	return conversation, nil
}

// decorate adds the latest message and the caller's unread count.
func (s *conversationService) decorate(ctx context.Context, conversation models.Conversation, userID uint) (dto.ConversationResponse, error) {
	response := dto.NewConversationResponse(conversation)

	latest, err := s.messages.Latest(ctx, conversation.ID)
	switch {
	case err == nil:
		message := dto.NewMessageResponse(latest)
		response.LastMessage = &message
	case errors.Is(err, gorm.ErrRecordNotFound):
	default:
		return dto.ConversationResponse{}, storeError(err, "conversation not found")
	}

	var lastReadAt *time.Time
	if participant, ok := conversation.Participant(userID); ok {
		lastReadAt = participant.LastReadAt
	}
	unread, err := s.messages.CountUnread(ctx, conversation.ID, userID, lastReadAt)
	if err != nil {
		return dto.ConversationResponse{}, storeError(err, "conversation not found")
	}
	response.UnreadCount = unread

	return response, nil
}

func otherParticipants(ids []uint, creatorID uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id == 0 || id == creatorID {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
