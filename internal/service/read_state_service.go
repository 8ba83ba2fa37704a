package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/konekt-api/internal/dto"
	"github.com/noah-isme/konekt-api/internal/realtime"
	"github.com/noah-isme/konekt-api/internal/repository"
	"github.com/noah-isme/konekt-api/pkg/apperror"
)

// ReadStateService tracks per-participant read markers and unread counts.
type ReadStateService interface {
	TouchRead(ctx context.Context, userID, conversationID uint) (dto.ParticipantResponse, error)
	TouchReadAt(ctx context.Context, userID, conversationID uint, at time.Time) (dto.ParticipantResponse, error)
	ReadUpTo(ctx context.Context, userID, conversationID, messageID uint) (dto.ParticipantResponse, error)
	MarkConversationRead(ctx context.Context, userID, conversationID uint) (dto.UnreadCountResponse, error)
	UnreadCount(ctx context.Context, userID, conversationID uint) (dto.UnreadCountResponse, error)
	UnreadSummary(ctx context.Context, userID uint) (dto.UnreadSummaryResponse, error)
}

type readStateService struct {
	conversations repository.ConversationRepository
	messages      repository.MessageRepository
	router        EventRouter
	sequencer     *realtime.Sequencer
	logger        zerolog.Logger
	tracer        trace.Tracer
	now           func() time.Time
}

// NewReadStateService constructs the read-state tracker.
func NewReadStateService(conversations repository.ConversationRepository, messages repository.MessageRepository, router EventRouter, sequencer *realtime.Sequencer, logger zerolog.Logger) ReadStateService {
	if sequencer == nil {
		sequencer = realtime.NewSequencer()
	}
	return &readStateService{
		conversations: conversations,
		messages:      messages,
		router:        router,
		sequencer:     sequencer,
		logger:        logger.With().Str("component", "read_state_service").Logger(),
		tracer:        otel.Tracer("github.com/noah-isme/konekt-api/internal/service/read_state"),
		now:           func() time.Time { return time.Now().UTC() },
	}
}

func (s *readStateService) TouchRead(ctx context.Context, userID, conversationID uint) (dto.ParticipantResponse, error) {
	return s.TouchReadAt(ctx, userID, conversationID, s.now())
}

func (s *readStateService) TouchReadAt(ctx context.Context, userID, conversationID uint, at time.Time) (dto.ParticipantResponse, error) {
	spanCtx, span := s.tracer.Start(ctx, "read_state.touch", trace.WithAttributes(
		attribute.Int64("conversation.id", int64(conversationID)),
		attribute.Int64("user.id", int64(userID)),
	))
	defer span.End()

	unlock := s.sequencer.Lock(conversationKey(conversationID))
	defer unlock()

	participant, err := s.conversations.TouchRead(spanCtx, conversationID, userID, at.UTC())
	if err != nil {
		span.RecordError(err)
		return dto.ParticipantResponse{}, storeError(err, "conversation not found")
	}

	latest, err := s.messages.Latest(spanCtx, conversationID)
	switch {
	case err == nil:
		s.emitRead(spanCtx, conversationID, userID, latest.ID)
	case errors.Is(err, gorm.ErrRecordNotFound):
	default:
		s.logger.Warn().Err(err).Uint("conversation_id", conversationID).Msg("failed to load latest message for read receipt")
	}

	return dto.NewParticipantResponse(participant), nil
}

func (s *readStateService) ReadUpTo(ctx context.Context, userID, conversationID, messageID uint) (dto.ParticipantResponse, error) {
	message, err := s.messages.FindByID(ctx, messageID)
	if err != nil {
		return dto.ParticipantResponse{}, storeError(err, "message not found")
	}
	if message.ConversationID != conversationID {
		return dto.ParticipantResponse{}, apperror.NotFound("message not found")
	}

	unlock := s.sequencer.Lock(conversationKey(conversationID))
	defer unlock()

	participant, err := s.conversations.TouchRead(ctx, conversationID, userID, message.CreatedAt.UTC())
	if err != nil {
		return dto.ParticipantResponse{}, storeError(err, "conversation not found")
	}
	s.emitRead(ctx, conversationID, userID, message.ID)

	return dto.NewParticipantResponse(participant), nil
}

func (s *readStateService) MarkConversationRead(ctx context.Context, userID, conversationID uint) (dto.UnreadCountResponse, error) {
	if _, err := s.TouchRead(ctx, userID, conversationID); err != nil {
		return dto.UnreadCountResponse{}, err
	}
	if _, err := s.messages.MarkConversationRead(ctx, conversationID, userID); err != nil {
		return dto.UnreadCountResponse{}, storeError(err, "conversation not found")
	}
	return s.UnreadCount(ctx, userID, conversationID)
}

func (s *readStateService) UnreadCount(ctx context.Context, userID, conversationID uint) (dto.UnreadCountResponse, error) {
	participant, err := s.conversations.FindParticipant(ctx, conversationID, userID)
	if err != nil {
		return dto.UnreadCountResponse{}, storeError(err, "conversation not found")
	}
	count, err := s.messages.CountUnread(ctx, conversationID, userID, participant.LastReadAt)
	if err != nil {
		return dto.UnreadCountResponse{}, storeError(err, "conversation not found")
	}
	return dto.UnreadCountResponse{ConversationID: conversationID, UnreadCount: count}, nil
}

func (s *readStateService) UnreadSummary(ctx context.Context, userID uint) (dto.UnreadSummaryResponse, error) {
	participations, err := s.conversations.ListParticipations(ctx, userID)
	if err != nil {
		return dto.UnreadSummaryResponse{}, storeError(err, "conversations not found")
	}

	summary := dto.UnreadSummaryResponse{Conversations: make([]dto.UnreadCountResponse, 0, len(participations))}
	for _, participation := range participations {
		count, err := s.messages.CountUnread(ctx, participation.ConversationID, userID, participation.LastReadAt)
		if err != nil {
			return dto.UnreadSummaryResponse{}, storeError(err, "conversations not found")
		}
		summary.Conversations = append(summary.Conversations, dto.UnreadCountResponse{
			ConversationID: participation.ConversationID,
			UnreadCount:    count,
		})
		summary.TotalUnread += count
	}
	return summary, nil
}

func (s *readStateService) emitRead(ctx context.Context, conversationID, userID, messageID uint) {
	if s.router == nil {
		return
	}
	s.router.SendToConversation(ctx, conversationID, realtime.EventMessageRead, dto.ReadReceiptPayload{
		ConversationID:    conversationID,
		UserID:            userID,
		LastReadMessageID: messageID,
		Timestamp:         s.now(),
	})
}

func conversationKey(id uint) string {
	return fmt.Sprintf("conversation:%d", id)
}
